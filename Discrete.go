package msgym

import (
	"fmt"
	"time"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Discrete represents a space of discrete numbers: (0, 1, 2, ..., n-1).
// Elements of the space are 1-element vectors holding the index.
type Discrete struct {
	src rand.Source
	rng distuv.Categorical
	n   int // Number of actions, actions in (0, 1, ..., n-1)
}

// NewDiscrete returns a new Discrete space with n elements
func NewDiscrete(n int) (*Discrete, error) {
	if n <= 0 {
		return nil, fmt.Errorf("newDiscrete: n must be positive, got %v", n)
	}

	src := rand.NewSource(uint64(time.Now().UnixNano()))
	weights := make([]float64, n)
	for i := range weights {
		weights[i] = 1.0
	}

	return &Discrete{
		src: src,
		rng: distuv.NewCategorical(weights, src),
		n:   n,
	}, nil
}

// N returns the number of elements in the space
func (d *Discrete) N() int {
	return d.n
}

// Seed seeds the sampler for the space
func (d *Discrete) Seed(seed uint64) {
	d.src.Seed(seed)
}

// Sample takes a sample from within the spaces bounds
func (d *Discrete) Sample() []*mat.VecDense {
	return []*mat.VecDense{
		mat.NewVecDense(1, []float64{float64(int(d.rng.Rand()) % d.n)}),
	}
}

// Contains returns whether x is in the space. The argument x must be an
// int or a 1-element *mat.VecDense.
func (d *Discrete) Contains(x interface{}) bool {
	var i int
	switch v := x.(type) {
	case int:
		i = v
	case *mat.VecDense:
		if v.Len() != 1 {
			return false
		}
		f := v.AtVec(0)
		if f != float64(int(f)) {
			return false
		}
		i = int(f)
	default:
		return false
	}
	return i >= 0 && i < d.n
}

// High returns the upper bounds of the space
func (d *Discrete) High() []*mat.VecDense {
	return []*mat.VecDense{mat.NewVecDense(1, []float64{float64(d.n - 1)})}
}

// Low returns the lower bounds of the space
func (d *Discrete) Low() []*mat.VecDense {
	return []*mat.VecDense{mat.NewVecDense(1, []float64{0.0})}
}
