package msgym

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// TupleSpace implements a tuple (i.e., product) of simpler spaces
//
// A TupleSpace treats all the spaces it contains in a recursive manner.
// For example, when calling the High() method, the TupleSpace calls
// each of its contained spaces' High() methods and returns a
// []*mat.VecDense resulting from the call to High() on all embedded
// spaces *in recursive order*.
type TupleSpace struct {
	spaces []Space
}

// NewTupleSpace returns the product of spaces
func NewTupleSpace(spaces ...Space) (*TupleSpace, error) {
	for i, space := range spaces {
		if space == nil {
			return nil, fmt.Errorf("newTupleSpace: nil space at index %v", i)
		}
	}
	return &TupleSpace{append([]Space(nil), spaces...)}, nil
}

// Seed seeds the RNG for all sub-spaces recursively
func (t *TupleSpace) Seed(seed uint64) {
	for _, space := range t.spaces {
		space.Seed(seed)
	}
}

// Low returns the lower bounds of the space, with those of composite
// sub-spaces expanded in order
func (t *TupleSpace) Low() []*mat.VecDense {
	low := make([]*mat.VecDense, 0, t.Len())

	for _, space := range t.spaces {
		low = append(low, space.Low()...)
	}
	return low
}

// High returns the upper bounds of the space, with those of composite
// sub-spaces expanded in order
func (t *TupleSpace) High() []*mat.VecDense {
	high := make([]*mat.VecDense, 0, t.Len())

	for _, space := range t.spaces {
		high = append(high, space.High()...)
	}
	return high
}

// Contains returns whether in is in the space. The argument in must
// be a []interface{} whose i-th element is contained in the i-th
// sub-space.
func (t *TupleSpace) Contains(in interface{}) bool {
	x, ok := in.([]interface{})
	if !ok || len(x) != t.Len() {
		return false
	}

	for i := range x {
		if !t.spaces[i].Contains(x[i]) {
			return false
		}
	}
	return true
}

// Sample samples each sub-space in order
func (t *TupleSpace) Sample() []*mat.VecDense {
	sample := make([]*mat.VecDense, 0, t.Len())

	for _, space := range t.spaces {
		sample = append(sample, space.Sample()...)
	}
	return sample
}

func (t *TupleSpace) Len() int {
	return len(t.spaces)
}

// At returns the Space in the TupleSpace at index i
func (t *TupleSpace) At(i int) Space {
	return t.spaces[i]
}
