package msgym

import (
	"fmt"

	"github.com/samuelfneumann/msgym/gdict"
	"gonum.org/v1/gonum/mat"
)

// DictSpace implements an ordered dictionary of simpler spaces, such
// as the nested observation spaces of ManiSkill2 environments.
//
// A DictSpace treats all the spaces it contains in a recursive manner.
// For example, when calling the High() method, the DictSpace calls
// each of its contained spaces' High() methods and returns a
// []*mat.VecDense resulting from the call to High() on all embedded
// spaces *in recursive order*.
type DictSpace struct {
	keys   []string
	values []Space
}

// NewDictSpace returns a new DictSpace holding spaces under keys, in
// order
func NewDictSpace(keys []string, spaces []Space) (*DictSpace, error) {
	if len(keys) != len(spaces) {
		return nil, fmt.Errorf("newDictSpace: got %v keys but %v spaces",
			len(keys), len(spaces))
	}

	seen := make(map[string]struct{}, len(keys))
	for i, key := range keys {
		if _, ok := seen[key]; ok {
			return nil, fmt.Errorf("newDictSpace: duplicate key %q", key)
		}
		seen[key] = struct{}{}
		if spaces[i] == nil {
			return nil, fmt.Errorf("newDictSpace: nil space at key %q", key)
		}
	}

	return &DictSpace{
		keys:   append([]string(nil), keys...),
		values: append([]Space(nil), spaces...),
	}, nil
}

// Keys returns the keys of the DictSpace in order
func (d *DictSpace) Keys() []string {
	return append([]string(nil), d.keys...)
}

// Get returns the sub-space at key
func (d *DictSpace) Get(key string) (Space, bool) {
	for i, k := range d.keys {
		if k == key {
			return d.values[i], true
		}
	}
	return nil, false
}

// Seed seeds the RNG for all sub-spaces recursively
func (d *DictSpace) Seed(seed uint64) {
	for _, space := range d.values {
		space.Seed(seed)
	}
}

// Sample takes a sample from within the space bounds. If a composite
// space exists in the DictSpace, then its Sample() method is
// recursively called, and all samples are placed in the returned
// slice sequentially.
func (d *DictSpace) Sample() []*mat.VecDense {
	sample := make([]*mat.VecDense, 0, d.Len())

	for _, space := range d.values {
		sample = append(sample, space.Sample()...)
	}
	return sample
}

// Contains returns whether in is in the space. The argument in must
// be a *gdict.Dict with exactly the keys of the space.
func (d *DictSpace) Contains(in interface{}) bool {
	x, ok := in.(*gdict.Dict)
	if !ok {
		return false
	}

	if x.Len() != d.Len() {
		return false
	}

	for i, key := range d.keys {
		val, ok := x.Get(key)
		if !ok {
			return false
		}
		if !d.values[i].Contains(val) {
			return false
		}
	}
	return true
}

// Low returns the lower bounds of the space. If a composite space
// exists in the DictSpace, its Low() method is called recursively, and
// all lower bounds are placed in the returned slice sequentially.
func (d *DictSpace) Low() []*mat.VecDense {
	low := make([]*mat.VecDense, 0, d.Len())

	for _, space := range d.values {
		low = append(low, space.Low()...)
	}
	return low
}

// High returns the upper bounds of the space. If a composite space
// exists in the DictSpace, its High() method is called recursively, and
// all upper bounds are placed in the returned slice sequentially.
func (d *DictSpace) High() []*mat.VecDense {
	high := make([]*mat.VecDense, 0, d.Len())

	for _, space := range d.values {
		high = append(high, space.High()...)
	}
	return high
}

// Len returns the number of sub-spaces in the space
func (d *DictSpace) Len() int {
	return len(d.keys)
}
