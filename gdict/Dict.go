// Package gdict implements ordered, nested dictionaries used to hold
// environment observations and step information.
//
// A Dict keeps its keys in insertion order, which matters because
// flattened state vectors are built by walking the dictionary in order.
// The leaves of a Dict are either etensor.Tensor values (images, point
// clouds, joint positions, ...) or scalars (float64, float32, int, int64,
// bool, string).
package gdict

import (
	"fmt"
	"strings"

	"github.com/emer/etable/etensor"
)

// Dict is an insertion-ordered string-keyed dictionary
type Dict struct {
	keys   []string
	values map[string]interface{}
}

// New returns a new, empty *Dict
func New() *Dict {
	return &Dict{values: make(map[string]interface{})}
}

// FromPairs returns a new *Dict holding the argument key, value pairs
// in order. The argument must have an even length and each key must be
// a string.
func FromPairs(pairs ...interface{}) (*Dict, error) {
	if len(pairs)%2 != 0 {
		return nil, fmt.Errorf("fromPairs: odd number of arguments")
	}

	d := New()
	for i := 0; i < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			return nil, fmt.Errorf("fromPairs: key at index %v is not a "+
				"string", i)
		}
		d.Set(key, pairs[i+1])
	}
	return d, nil
}

// Set sets the value at key. Setting an existing key keeps its
// position in the key order.
func (d *Dict) Set(key string, value interface{}) {
	if d.values == nil {
		d.values = make(map[string]interface{})
	}
	if _, ok := d.values[key]; !ok {
		d.keys = append(d.keys, key)
	}
	d.values[key] = value
}

// Get returns the value at key and whether the key exists
func (d *Dict) Get(key string) (interface{}, bool) {
	if d == nil {
		return nil, false
	}
	v, ok := d.values[key]
	return v, ok
}

// Has returns whether key is in the Dict
func (d *Dict) Has(key string) bool {
	_, ok := d.Get(key)
	return ok
}

// Delete removes key from the Dict and returns the removed value, if
// any.
func (d *Dict) Delete(key string) (interface{}, bool) {
	v, ok := d.Get(key)
	if !ok {
		return nil, false
	}
	delete(d.values, key)
	for i, k := range d.keys {
		if k == key {
			d.keys = append(d.keys[:i], d.keys[i+1:]...)
			break
		}
	}
	return v, true
}

// Keys returns the keys of the Dict in insertion order
func (d *Dict) Keys() []string {
	if d == nil {
		return nil
	}
	return append([]string(nil), d.keys...)
}

// Len returns the number of keys in the Dict
func (d *Dict) Len() int {
	if d == nil {
		return 0
	}
	return len(d.keys)
}

// Dict returns the nested *Dict at key
func (d *Dict) Dict(key string) (*Dict, error) {
	v, ok := d.Get(key)
	if !ok {
		return nil, fmt.Errorf("dict: no key %q", key)
	}
	sub, ok := v.(*Dict)
	if !ok {
		return nil, fmt.Errorf("dict: value at %q is %T, not *Dict", key, v)
	}
	return sub, nil
}

// Tensor returns the etensor.Tensor at key
func (d *Dict) Tensor(key string) (etensor.Tensor, error) {
	v, ok := d.Get(key)
	if !ok {
		return nil, fmt.Errorf("tensor: no key %q", key)
	}
	t, ok := v.(etensor.Tensor)
	if !ok {
		return nil, fmt.Errorf("tensor: value at %q is %T, not a tensor",
			key, v)
	}
	return t, nil
}

// Float returns the numeric scalar at key as a float64. Single-element
// tensors are accepted as well.
func (d *Dict) Float(key string) (float64, error) {
	v, ok := d.Get(key)
	if !ok {
		return 0, fmt.Errorf("float: no key %q", key)
	}
	f, ok := ScalarFloat(v)
	if !ok {
		return 0, fmt.Errorf("float: value at %q is %T, not a scalar", key, v)
	}
	return f, nil
}

// Path returns the value at a "/" separated path of keys, e.g.
// "agent/base_pose".
func (d *Dict) Path(path string) (interface{}, bool) {
	parts := strings.Split(path, "/")
	cur := d
	for i, part := range parts {
		v, ok := cur.Get(part)
		if !ok {
			return nil, false
		}
		if i == len(parts)-1 {
			return v, true
		}
		if cur, ok = v.(*Dict); !ok {
			return nil, false
		}
	}
	return nil, false
}

// Copy returns a deep copy of the Dict. Tensors are cloned, so the
// copy shares no storage with d.
func (d *Dict) Copy() *Dict {
	if d == nil {
		return nil
	}
	out := New()
	for _, key := range d.keys {
		out.Set(key, copyValue(d.values[key]))
	}
	return out
}

func copyValue(v interface{}) interface{} {
	switch x := v.(type) {
	case *Dict:
		return x.Copy()
	case etensor.Tensor:
		return Clone(x)
	default:
		return v
	}
}

// Walk calls fn on every leaf of the Dict, depth first and in key
// order. The path passed to fn joins the nested keys with "/". Empty
// nested dictionaries are skipped.
func (d *Dict) Walk(fn func(path string, value interface{}) error) error {
	return d.walk("", fn)
}

func (d *Dict) walk(prefix string, fn func(string, interface{}) error) error {
	for _, key := range d.Keys() {
		path := key
		if prefix != "" {
			path = prefix + "/" + key
		}

		v := d.values[key]
		if sub, ok := v.(*Dict); ok {
			if err := sub.walk(path, fn); err != nil {
				return err
			}
			continue
		}
		if err := fn(path, v); err != nil {
			return err
		}
	}
	return nil
}

// String implements fmt.Stringer. Tensors are shown by shape only.
func (d *Dict) String() string {
	var b strings.Builder
	b.WriteString("{")
	for i, key := range d.Keys() {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%v: ", key)
		switch v := d.values[key].(type) {
		case etensor.Tensor:
			fmt.Fprintf(&b, "%T%v", v, v.Shapes())
		default:
			fmt.Fprintf(&b, "%v", v)
		}
	}
	b.WriteString("}")
	return b.String()
}

// ScalarFloat converts a numeric or boolean scalar, or a tensor with a
// single element, to a float64.
func ScalarFloat(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case int32:
		return float64(x), true
	case uint8:
		return float64(x), true
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	case etensor.Tensor:
		if x.Len() == 1 {
			return x.FloatVal1D(0), true
		}
	}
	return 0, false
}
