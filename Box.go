package msgym

import (
	"fmt"
	"math"
	"time"

	"github.com/emer/etable/etensor"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"
	"gonum.org/v1/gonum/stat/distmv"
	"gonum.org/v1/gonum/stat/distuv"
)

// Box represents a (possibly unbounded) box in R^n. Specifically, a
// Box represents the Cartesian product of n closed intervals. Each
// interval has the form of one of [a, b], (-∞, b], [a, ∞), or
// (-∞, ∞) for a, b ϵ R.
//
// As in Gym, bounded dimensions are sampled uniformly, dimensions
// bounded on one side are sampled from a shifted exponential and
// unbounded dimensions from a standard normal.
type Box struct {
	src                        rand.Source
	uniform                    *distmv.Uniform
	low, high                  *mat.VecDense
	boundedBelow, boundedAbove []bool
}

// NewBox returns a new Box with the given bounds
func NewBox(low, high []float64) (*Box, error) {
	if len(low) != len(high) {
		return nil, fmt.Errorf("newBox: bounds have different lengths %v "+
			"and %v", len(low), len(high))
	}
	if len(low) == 0 {
		return nil, fmt.Errorf("newBox: empty bounds")
	}

	boundedBelow := make([]bool, len(low))
	boundedAbove := make([]bool, len(high))
	bounded := true
	for i := range low {
		if low[i] > high[i] {
			return nil, fmt.Errorf("newBox: low[%v] = %v > high[%v] = %v",
				i, low[i], i, high[i])
		}
		boundedBelow[i] = math.Inf(-1) < low[i]
		boundedAbove[i] = math.Inf(1) > high[i]
		bounded = bounded && boundedBelow[i] && boundedAbove[i]
	}

	b := &Box{
		low:          mat.NewVecDense(len(low), append([]float64(nil), low...)),
		high:         mat.NewVecDense(len(high), append([]float64(nil), high...)),
		boundedBelow: boundedBelow,
		boundedAbove: boundedAbove,
	}
	b.src = rand.NewSource(uint64(time.Now().UnixNano()))

	if bounded {
		bounds := make([]r1.Interval, len(low))
		for i := range bounds {
			bounds[i] = r1.Interval{Min: low[i], Max: high[i]}
		}
		b.uniform = distmv.NewUniform(bounds, b.src)
	}
	return b, nil
}

// NewUniformBox returns a new Box of dimension n with every dimension
// bounded by [low, high]
func NewUniformBox(n int, low, high float64) (*Box, error) {
	l := make([]float64, n)
	h := make([]float64, n)
	for i := range l {
		l[i] = low
		h[i] = high
	}
	return NewBox(l, h)
}

// Seed seeds the sampler for the space
func (b *Box) Seed(seed uint64) {
	b.src.Seed(seed)
}

// Dim returns the dimension of the space
func (b *Box) Dim() int {
	return b.low.Len()
}

// Sample takes a sample from within the spaces bounds
func (b *Box) Sample() []*mat.VecDense {
	if b.uniform != nil {
		sample := b.uniform.Rand(nil)
		return []*mat.VecDense{mat.NewVecDense(len(sample), sample)}
	}

	sample := make([]float64, b.Dim())
	for i := range sample {
		low, high := b.low.AtVec(i), b.high.AtVec(i)
		switch {
		case b.boundedBelow[i] && b.boundedAbove[i]:
			sample[i] = distuv.Uniform{Min: low, Max: high, Src: b.src}.Rand()
		case b.boundedBelow[i]:
			sample[i] = low + distuv.Exponential{Rate: 1, Src: b.src}.Rand()
		case b.boundedAbove[i]:
			sample[i] = high - distuv.Exponential{Rate: 1, Src: b.src}.Rand()
		default:
			sample[i] = distuv.Normal{Mu: 0, Sigma: 1, Src: b.src}.Rand()
		}
	}
	return []*mat.VecDense{mat.NewVecDense(len(sample), sample)}
}

// Contains returns whether in is in the space. The argument in must
// be a []float64, a *mat.VecDense or an etensor.Tensor.
func (b *Box) Contains(in interface{}) bool {
	var x []float64
	switch v := in.(type) {
	case []float64:
		x = v
	case *mat.VecDense:
		x = v.RawVector().Data
	case etensor.Tensor:
		x = make([]float64, v.Len())
		for i := range x {
			x[i] = v.FloatVal1D(i)
		}
	default:
		return false
	}

	if len(x) != b.Dim() {
		return false
	}
	for i := range x {
		if x[i] < b.low.AtVec(i) || x[i] > b.high.AtVec(i) {
			return false
		}
	}
	return true
}

// Clip returns a copy of x with every element clipped to the bounds of
// the space
func (b *Box) Clip(x *mat.VecDense) (*mat.VecDense, error) {
	if x.Len() != b.Dim() {
		return nil, fmt.Errorf("clip: expected vector of length %v, got %v",
			b.Dim(), x.Len())
	}
	out := mat.NewVecDense(x.Len(), nil)
	for i := 0; i < x.Len(); i++ {
		out.SetVec(i, math.Max(b.low.AtVec(i), math.Min(b.high.AtVec(i),
			x.AtVec(i))))
	}
	return out, nil
}

// High returns the upper bounds of the space
func (b *Box) High() []*mat.VecDense {
	return []*mat.VecDense{b.high}
}

// Low returns the lower bounds of the space
func (b *Box) Low() []*mat.VecDense {
	return []*mat.VecDense{b.low}
}

// BoundedAbove returns whether the space is bounded above
func (b *Box) BoundedAbove() []bool {
	return b.boundedAbove
}

// BoundedBelow returns whether the space is bounded below
func (b *Box) BoundedBelow() []bool {
	return b.boundedBelow
}
