package gdict

import (
	"fmt"

	"github.com/emer/etable/etensor"
)

// F64ToF32 returns v with every float64 value replaced by a float32
// one. *etensor.Float64 leaves become *etensor.Float32 leaves of the
// same shape and nested dictionaries are converted recursively. Other
// values are returned unchanged.
func F64ToF32(v interface{}) interface{} {
	switch x := v.(type) {
	case *Dict:
		if x == nil {
			return x
		}
		out := New()
		for _, key := range x.keys {
			out.Set(key, F64ToF32(x.values[key]))
		}
		return out

	case *etensor.Float64:
		out := NewFloat32(Shape(x), nil)
		for i, f := range x.Values {
			out.Values[i] = float32(f)
		}
		return out

	case float64:
		return float32(x)

	default:
		return v
	}
}

// F64ToF32 returns a copy of d with all float64 values converted to
// float32. See the package-level F64ToF32.
func (d *Dict) F64ToF32() *Dict {
	if d == nil {
		return nil
	}
	return F64ToF32(d).(*Dict)
}

// FlattenState concatenates every leaf of d, depth first and in key
// order, into a single float32 vector. Tensors are raveled in
// row-major order, numeric and boolean scalars contribute one element
// and empty dictionaries contribute nothing.
func FlattenState(d *Dict) ([]float32, error) {
	state := make([]float32, 0)
	err := d.Walk(func(path string, value interface{}) error {
		if t, ok := value.(etensor.Tensor); ok {
			state = append(state, Float32s(t)...)
			return nil
		}

		f, ok := ScalarFloat(value)
		if !ok {
			return fmt.Errorf("cannot flatten %T at %q", value, path)
		}
		state = append(state, float32(f))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("flattenState: %w", err)
	}
	return state, nil
}

// AssignAll copies src into dst in place. Tensors already present in
// dst are overwritten element by element, so anyone holding a
// reference to a dst tensor observes the new values. Scalars replace
// the value in dst and keys missing from dst are added.
func AssignAll(dst, src *Dict) error {
	if dst == nil {
		return fmt.Errorf("assignAll: nil destination")
	}

	for _, key := range src.Keys() {
		value := src.values[key]
		existing, ok := dst.Get(key)
		if !ok {
			dst.Set(key, copyValue(value))
			continue
		}

		switch v := value.(type) {
		case *Dict:
			sub, ok := existing.(*Dict)
			if !ok {
				return fmt.Errorf("assignAll: cannot assign dict to %T at %q",
					existing, key)
			}
			if err := AssignAll(sub, v); err != nil {
				return fmt.Errorf("assignAll: %q: %w", key, err)
			}

		case etensor.Tensor:
			t, ok := existing.(etensor.Tensor)
			if !ok {
				dst.Set(key, Clone(v))
				continue
			}
			if err := AssignTensor(t, v); err != nil {
				return fmt.Errorf("assignAll: %q: %w", key, err)
			}

		default:
			if t, ok := existing.(etensor.Tensor); ok {
				if err := assignScalar(t, value); err != nil {
					return fmt.Errorf("assignAll: %q: %w", key, err)
				}
				continue
			}
			dst.Set(key, value)
		}
	}
	return nil
}

// AssignTensor copies the elements of src into dst. Both tensors must
// hold the same number of elements; element types may differ.
func AssignTensor(dst, src etensor.Tensor) error {
	if dst.Len() != src.Len() {
		return fmt.Errorf("assignTensor: cannot assign %v elements to "+
			"tensor of %v elements", src.Len(), dst.Len())
	}

	switch d := dst.(type) {
	case *etensor.Float32:
		if s, ok := src.(*etensor.Float32); ok {
			copy(d.Values, s.Values)
			return nil
		}
	case *etensor.Uint8:
		if s, ok := src.(*etensor.Uint8); ok {
			copy(d.Values, s.Values)
			return nil
		}
	}

	for i := 0; i < src.Len(); i++ {
		dst.SetFloat1D(i, src.FloatVal1D(i))
	}
	return nil
}

func assignScalar(dst etensor.Tensor, value interface{}) error {
	f, ok := ScalarFloat(value)
	if !ok {
		return fmt.Errorf("cannot assign %T to tensor", value)
	}
	if dst.Len() != 1 {
		return fmt.Errorf("cannot assign scalar to tensor of %v elements",
			dst.Len())
	}
	dst.SetFloat1D(0, f)
	return nil
}
