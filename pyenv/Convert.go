package pyenv

import (
	"fmt"

	python "github.com/DataDog/go-python3"
	"github.com/emer/etable/etensor"
	"github.com/samuelfneumann/msgym/gdict"
)

// F64SliceFromIter converts a Python iterable to a []float64. Borrows
// python.PyObject reference.
func F64SliceFromIter(obj *python.PyObject) ([]float64, error) {
	seq := obj.GetIter()
	if seq == nil {
		return nil, pyError("f64SliceFromIter", "object is not iterable")
	}
	defer seq.DecRef()
	next := seq.GetAttrString("__next__")
	defer next.DecRef()

	data := make([]float64, obj.Length())
	for i := range data {
		item := next.CallObject(nil)
		if item == nil {
			return nil, pyError("f64SliceFromIter",
				fmt.Sprintf("nil item at index %v", i))
		}

		data[i] = python.PyFloat_AsDouble(item)
		item.DecRef()
	}

	return data, nil
}

// StringSliceFromIter converts a Python iterable to a []string. Borrows
// python.PyObject reference.
func StringSliceFromIter(obj *python.PyObject) ([]string, error) {
	seq := obj.GetIter()
	if seq == nil {
		return nil, pyError("stringSliceFromIter", "object is not iterable")
	}
	defer seq.DecRef()
	next := seq.GetAttrString("__next__")
	defer next.DecRef()

	data := make([]string, obj.Length())
	for i := range data {
		item := next.CallObject(nil)
		if item == nil {
			return nil, pyError("stringSliceFromIter",
				fmt.Sprintf("nil item at index %v", i))
		}

		if !python.PyUnicode_Check(item) {
			item.DecRef()
			return nil, fmt.Errorf("stringSliceFromIter: item at index %v is "+
				"not a string", i)
		}

		data[i] = python.PyUnicode_AsUTF8(item)
		item.DecRef()
	}

	return data, nil
}

// IntSliceFromIter converts a Python iterable to a []int. Borrows
// python.PyObject reference.
func IntSliceFromIter(obj *python.PyObject) ([]int, error) {
	seq := obj.GetIter()
	if seq == nil {
		return nil, pyError("intSliceFromIter", "object is not iterable")
	}
	defer seq.DecRef()
	next := seq.GetAttrString("__next__")
	defer next.DecRef()

	data := make([]int, obj.Length())
	for i := range data {
		item := next.CallObject(nil)
		if item == nil {
			return nil, pyError("intSliceFromIter",
				fmt.Sprintf("nil item at index %v", i))
		}

		if !python.PyLong_Check(item) {
			item.DecRef()
			return nil, fmt.Errorf("intSliceFromIter: item at index %v is "+
				"not an int", i)
		}

		data[i] = python.PyLong_AsLong(item)
		item.DecRef()
	}

	return data, nil
}

// F64ToList converts a []float64 to a Python List. Creates a new
// python.PyObject reference.
func F64ToList(slice []float64) (*python.PyObject, error) {
	list := python.PyList_New(len(slice))
	for i, elem := range slice {
		float := python.PyFloat_FromDouble(elem)
		n := python.PyList_SetItem(list, i, float)
		if n != 0 {
			float.DecRef()
			list.DecRef()
			return nil, pyError("f64ToList", "could not set Python list item")
		}
	}
	return list, nil
}

// F64ToNumpy converts a []float64 to a 1-D NumPy array of the given
// dtype. Creates a new python.PyObject reference.
func F64ToNumpy(slice []float64, dtype string) (*python.PyObject, error) {
	list, err := F64ToList(slice)
	if err != nil {
		return nil, fmt.Errorf("f64ToNumpy: %w", err)
	}

	asarray := numpy.GetAttrString("asarray")
	if asarray == nil {
		list.DecRef()
		return nil, pyError("f64ToNumpy", "could not get numpy.asarray")
	}
	defer asarray.DecRef()

	// PyTuple_SetItem steals the reference to list
	args := python.PyTuple_New(1)
	defer args.DecRef()
	python.PyTuple_SetItem(args, 0, list)

	kwargs := python.PyDict_New()
	defer kwargs.DecRef()
	d := python.PyUnicode_FromString(dtype)
	python.PyDict_SetItemString(kwargs, "dtype", d)
	d.DecRef()

	arr := asarray.Call(args, kwargs)
	if arr == nil {
		return nil, pyError("f64ToNumpy", "could not create NumPy array")
	}
	return arr, nil
}

// isArray returns whether obj is a NumPy array or scalar
func isArray(obj *python.PyObject) bool {
	return obj.HasAttrString("dtype") && obj.HasAttrString("shape") &&
		obj.HasAttrString("ravel")
}

// ToGo converts a Python object returned by a ManiSkill2 environment
// to Go. Borrows python.PyObject reference.
//
//	None                    nil
//	bool, int, float, str   bool, int, float64, string
//	dict                    *gdict.Dict with string keys
//	NumPy array             etensor.Tensor, see TensorFromNumpy
//	NumPy scalar, 0-d array bool, int or float64
//	list, tuple             []interface{}
func ToGo(obj *python.PyObject) (interface{}, error) {
	switch {
	case obj == nil:
		return nil, fmt.Errorf("toGo: nil object")

	case obj == python.Py_None:
		return nil, nil

	case python.PyBool_Check(obj):
		return obj == python.Py_True, nil

	case python.PyLong_Check(obj):
		return python.PyLong_AsLong(obj), nil

	case python.PyFloat_Check(obj):
		return python.PyFloat_AsDouble(obj), nil

	case python.PyUnicode_Check(obj):
		return python.PyUnicode_AsUTF8(obj), nil

	case python.PyDict_Check(obj):
		return DictFromPython(obj)

	case isArray(obj):
		if ndim := obj.GetAttrString("ndim"); ndim != nil {
			n := python.PyLong_AsLong(ndim)
			ndim.DecRef()
			if n > 0 {
				return TensorFromNumpy(obj)
			}
		}

		// NumPy scalars and 0-d arrays
		item := obj.CallMethodArgs("item")
		if item == nil {
			return nil, pyError("toGo", "could not convert NumPy scalar")
		}
		defer item.DecRef()
		return ToGo(item)

	case python.PyList_Check(obj), python.PyTuple_Check(obj):
		out := make([]interface{}, obj.Length())
		for i := range out {
			var item *python.PyObject
			if python.PyList_Check(obj) {
				item = python.PyList_GetItem(obj, i)
			} else {
				item = python.PyTuple_GetItem(obj, i)
			}
			v, err := ToGo(item)
			if err != nil {
				return nil, fmt.Errorf("toGo: item %v: %w", i, err)
			}
			out[i] = v
		}
		return out, nil
	}

	t := obj.Type()
	defer t.DecRef()
	name := t.Str()
	defer name.DecRef()
	return nil, fmt.Errorf("toGo: unsupported Python type %v",
		python.PyUnicode_AsUTF8(name))
}

// DictFromPython converts a Python dict with string keys to a
// *gdict.Dict, keeping the key order. Borrows python.PyObject
// reference.
func DictFromPython(obj *python.PyObject) (*gdict.Dict, error) {
	keys := python.PyDict_Keys(obj)
	if keys == nil {
		return nil, pyError("dictFromPython", "could not get dict keys")
	}
	defer keys.DecRef()

	out := gdict.New()
	for i := 0; i < keys.Length(); i++ {
		key := python.PyList_GetItem(keys, i)
		if !python.PyUnicode_Check(key) {
			return nil, fmt.Errorf("dictFromPython: key at index %v is not "+
				"a string", i)
		}
		k := python.PyUnicode_AsUTF8(key)

		v, err := ToGo(python.PyDict_GetItem(obj, key))
		if err != nil {
			return nil, fmt.Errorf("dictFromPython: %v: %w", k, err)
		}
		out.Set(k, v)
	}
	return out, nil
}

// TensorFromNumpy converts a NumPy array to an etensor.Tensor of the
// same shape:
//
//	float64                         *etensor.Float64
//	float32, float16                *etensor.Float32
//	uint8, bool                     *etensor.Uint8
//	other signed or unsigned ints   *etensor.Int64
//
// Borrows python.PyObject reference.
func TensorFromNumpy(obj *python.PyObject) (etensor.Tensor, error) {
	shapeObj := obj.GetAttrString("shape")
	if shapeObj == nil {
		return nil, pyError("tensorFromNumpy", "object has no shape")
	}
	defer shapeObj.DecRef()
	shape, err := IntSliceFromIter(shapeObj)
	if err != nil {
		return nil, fmt.Errorf("tensorFromNumpy: %w", err)
	}

	dtype := obj.GetAttrString("dtype")
	if dtype == nil {
		return nil, pyError("tensorFromNumpy", "object has no dtype")
	}
	defer dtype.DecRef()
	nameObj := dtype.GetAttrString("name")
	defer nameObj.DecRef()
	name := python.PyUnicode_AsUTF8(nameObj)

	flat := obj.CallMethodArgs("ravel")
	if flat == nil {
		return nil, pyError("tensorFromNumpy", "could not flatten array")
	}
	defer flat.DecRef()
	list := flat.CallMethodArgs("tolist")
	if list == nil {
		return nil, pyError("tensorFromNumpy", "could not convert array to "+
			"list")
	}
	defer list.DecRef()

	n := list.Length()
	switch name {
	case "float64":
		t := gdict.NewFloat64(shape, nil)
		for i := 0; i < n; i++ {
			t.Values[i] = python.PyFloat_AsDouble(python.PyList_GetItem(list, i))
		}
		return t, nil

	case "float32", "float16":
		t := gdict.NewFloat32(shape, nil)
		for i := 0; i < n; i++ {
			t.Values[i] = float32(python.PyFloat_AsDouble(
				python.PyList_GetItem(list, i)))
		}
		return t, nil

	case "uint8", "bool":
		t := gdict.NewUint8(shape, nil)
		for i := 0; i < n; i++ {
			t.Values[i] = uint8(python.PyLong_AsLong(
				python.PyList_GetItem(list, i)))
		}
		return t, nil

	case "int8", "int16", "int32", "int64", "uint16", "uint32", "uint64":
		t := etensor.NewInt64(shape, nil, nil)
		for i := 0; i < n; i++ {
			t.Values[i] = int64(python.PyLong_AsLong(
				python.PyList_GetItem(list, i)))
		}
		return t, nil

	default:
		return nil, fmt.Errorf("tensorFromNumpy: unsupported dtype %v", name)
	}
}
