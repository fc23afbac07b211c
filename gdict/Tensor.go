package gdict

import (
	"fmt"

	"github.com/emer/etable/etensor"
	"gonum.org/v1/gonum/mat"
)

// NewFloat32 returns a row-major *etensor.Float32 with the given shape.
// If values is not nil, it is copied into the tensor.
func NewFloat32(shape []int, values []float32) *etensor.Float32 {
	t := etensor.NewFloat32(shape, nil, nil)
	if values != nil {
		copy(t.Values, values)
	}
	return t
}

// NewFloat64 returns a row-major *etensor.Float64 with the given shape.
// If values is not nil, it is copied into the tensor.
func NewFloat64(shape []int, values []float64) *etensor.Float64 {
	t := etensor.NewFloat64(shape, nil, nil)
	if values != nil {
		copy(t.Values, values)
	}
	return t
}

// NewUint8 returns a row-major *etensor.Uint8 with the given shape.
// If values is not nil, it is copied into the tensor.
func NewUint8(shape []int, values []uint8) *etensor.Uint8 {
	t := etensor.NewUint8(shape, nil, nil)
	if values != nil {
		copy(t.Values, values)
	}
	return t
}

// Vector returns a 1-D *etensor.Float64 holding values
func Vector(values ...float64) *etensor.Float64 {
	return NewFloat64([]int{len(values)}, values)
}

// Shape returns a copy of the shape of t
func Shape(t etensor.Tensor) []int {
	return append([]int(nil), t.Shapes()...)
}

func numel(shape []int) int {
	n := 1
	for _, s := range shape {
		n *= s
	}
	return n
}

// newLike returns a zeroed tensor with the element type of t and the
// argument shape. Element types without a dedicated case are stored as
// float64.
func newLike(t etensor.Tensor, shape []int) etensor.Tensor {
	switch t.(type) {
	case *etensor.Float32:
		return etensor.NewFloat32(shape, nil, nil)
	case *etensor.Uint8:
		return etensor.NewUint8(shape, nil, nil)
	case *etensor.Int64:
		return etensor.NewInt64(shape, nil, nil)
	default:
		return etensor.NewFloat64(shape, nil, nil)
	}
}

// Clone returns a copy of t with its own storage
func Clone(t etensor.Tensor) etensor.Tensor {
	out := newLike(t, Shape(t))
	switch src := t.(type) {
	case *etensor.Float32:
		copy(out.(*etensor.Float32).Values, src.Values)
	case *etensor.Float64:
		copy(out.(*etensor.Float64).Values, src.Values)
	case *etensor.Uint8:
		copy(out.(*etensor.Uint8).Values, src.Values)
	case *etensor.Int64:
		copy(out.(*etensor.Int64).Values, src.Values)
	default:
		for i := 0; i < t.Len(); i++ {
			out.SetFloat1D(i, t.FloatVal1D(i))
		}
	}
	return out
}

// Float64s returns the elements of t, in row-major order, as float64s
func Float64s(t etensor.Tensor) []float64 {
	if f, ok := t.(*etensor.Float64); ok {
		return append([]float64(nil), f.Values...)
	}
	out := make([]float64, t.Len())
	for i := range out {
		out[i] = t.FloatVal1D(i)
	}
	return out
}

// Float32s returns the elements of t, in row-major order, as float32s
func Float32s(t etensor.Tensor) []float32 {
	if f, ok := t.(*etensor.Float32); ok {
		return append([]float32(nil), f.Values...)
	}
	out := make([]float32, t.Len())
	for i := range out {
		out[i] = float32(t.FloatVal1D(i))
	}
	return out
}

// ToFloat32 converts t to an *etensor.Float32 of the same shape. If t
// already is a *etensor.Float32, it is returned unchanged.
func ToFloat32(t etensor.Tensor) *etensor.Float32 {
	if f, ok := t.(*etensor.Float32); ok {
		return f
	}
	return NewFloat32(Shape(t), Float32s(t))
}

// Dense converts a 2-D tensor to a *mat.Dense. 1-D tensors are
// treated as a single row.
func Dense(t etensor.Tensor) (*mat.Dense, error) {
	shape := t.Shapes()
	var r, c int
	switch len(shape) {
	case 1:
		r, c = 1, shape[0]
	case 2:
		r, c = shape[0], shape[1]
	default:
		return nil, fmt.Errorf("dense: cannot convert %v-D tensor to matrix",
			len(shape))
	}
	if r == 0 || c == 0 {
		return nil, fmt.Errorf("dense: cannot convert empty tensor %v to "+
			"matrix", shape)
	}
	return mat.NewDense(r, c, Float64s(t)), nil
}

// FromDense converts a matrix to a 2-D *etensor.Float32
func FromDense(m mat.Matrix) *etensor.Float32 {
	r, c := m.Dims()
	out := NewFloat32([]int{r, c}, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out.Values[i*c+j] = float32(m.At(i, j))
		}
	}
	return out
}

// Concat concatenates tensors along axis. All tensors must have the
// same number of dimensions and agree on every dimension except axis.
// The result has the element type of the first tensor.
func Concat(axis int, ts ...etensor.Tensor) (etensor.Tensor, error) {
	if len(ts) == 0 {
		return nil, fmt.Errorf("concat: no tensors to concatenate")
	}

	first := ts[0].Shapes()
	if axis < 0 || axis >= len(first) {
		return nil, fmt.Errorf("concat: axis %v out of range for %v-D "+
			"tensor", axis, len(first))
	}

	shape := append([]int(nil), first...)
	shape[axis] = 0
	for _, t := range ts {
		s := t.Shapes()
		if len(s) != len(first) {
			return nil, fmt.Errorf("concat: mismatched dimensions %v and %v",
				first, s)
		}
		for i := range s {
			if i != axis && s[i] != first[i] {
				return nil, fmt.Errorf("concat: mismatched shapes %v and %v",
					first, s)
			}
		}
		shape[axis] += s[axis]
	}

	outer := numel(first[:axis])
	inner := numel(first[axis+1:])
	out := newLike(ts[0], shape)

	dst := 0
	for o := 0; o < outer; o++ {
		for _, t := range ts {
			block := t.Shapes()[axis] * inner
			src := o * block
			for i := 0; i < block; i++ {
				out.SetFloat1D(dst, t.FloatVal1D(src+i))
				dst++
			}
		}
	}
	return out, nil
}

// Rows gathers rows along the first axis of t at the argument indices.
// Indices may repeat.
func Rows(t etensor.Tensor, indices []int) (etensor.Tensor, error) {
	shape := Shape(t)
	if len(shape) == 0 {
		return nil, fmt.Errorf("rows: scalar tensor has no rows")
	}

	inner := numel(shape[1:])
	shape[0] = len(indices)
	out := newLike(t, shape)
	for r, idx := range indices {
		if idx < 0 || idx >= t.Shapes()[0] {
			return nil, fmt.Errorf("rows: index %v out of range [0, %v)",
				idx, t.Shapes()[0])
		}
		for i := 0; i < inner; i++ {
			out.SetFloat1D(r*inner+i, t.FloatVal1D(idx*inner+i))
		}
	}
	return out, nil
}

// Mask keeps the rows along the first axis of t for which keep is true
func Mask(t etensor.Tensor, keep []bool) (etensor.Tensor, error) {
	if len(keep) != t.Shapes()[0] {
		return nil, fmt.Errorf("mask: mask length %v does not match %v rows",
			len(keep), t.Shapes()[0])
	}
	indices := make([]int, 0, len(keep))
	for i, k := range keep {
		if k {
			indices = append(indices, i)
		}
	}
	return Rows(t, indices)
}

// Columns returns the columns [from, to) of the 2-D tensor t
func Columns(t etensor.Tensor, from, to int) (etensor.Tensor, error) {
	shape := t.Shapes()
	if len(shape) != 2 {
		return nil, fmt.Errorf("columns: expected 2-D tensor, got %v", shape)
	}
	if from < 0 || to > shape[1] || from >= to {
		return nil, fmt.Errorf("columns: invalid range [%v, %v) for %v "+
			"columns", from, to, shape[1])
	}

	out := newLike(t, []int{shape[0], to - from})
	w := to - from
	for r := 0; r < shape[0]; r++ {
		for c := from; c < to; c++ {
			out.SetFloat1D(r*w+c-from, t.FloatVal1D(r*shape[1]+c))
		}
	}
	return out, nil
}

// Stack stacks equally sized vectors into a 2-D *etensor.Float32 with
// one row per vector.
func Stack(vectors ...[]float64) (*etensor.Float32, error) {
	if len(vectors) == 0 {
		return nil, fmt.Errorf("stack: no vectors to stack")
	}
	n := len(vectors[0])
	out := NewFloat32([]int{len(vectors), n}, nil)
	for i, v := range vectors {
		if len(v) != n {
			return nil, fmt.Errorf("stack: vector %v has length %v, "+
				"expected %v", i, len(v), n)
		}
		for j, x := range v {
			out.Values[i*n+j] = float32(x)
		}
	}
	return out, nil
}

// HWCToCHW permutes a height x width x channel tensor to channel x
// height x width, keeping its element type.
func HWCToCHW(t etensor.Tensor) (etensor.Tensor, error) {
	shape := t.Shapes()
	if len(shape) != 3 {
		return nil, fmt.Errorf("hwcToCHW: expected 3-D tensor, got %v", shape)
	}
	h, w, c := shape[0], shape[1], shape[2]

	out := newLike(t, []int{c, h, w})
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			for ch := 0; ch < c; ch++ {
				out.SetFloat1D(ch*h*w+y*w+x, t.FloatVal1D((y*w+x)*c+ch))
			}
		}
	}
	return out, nil
}
