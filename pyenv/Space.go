package pyenv

import (
	"fmt"

	python "github.com/DataDog/go-python3"
	"github.com/samuelfneumann/msgym"
)

// FromPythonSpace converts a Python gym space to its Go counterpart.
// Box, Discrete, Dict and Tuple spaces are supported. Borrows
// python.PyObject reference.
func FromPythonSpace(space *python.PyObject) (msgym.Space, error) {
	if space == nil {
		return nil, fmt.Errorf("fromPythonSpace: nil space")
	}

	var goSpace msgym.Space
	var err error
	switch {
	case space.IsInstance(boxSpace) == 1:
		var box *msgym.Box
		if box, err = newBox(space); err == nil {
			goSpace = box
		}
		return goSpace, err

	case space.IsInstance(discreteSpace) == 1:
		var discrete *msgym.Discrete
		if discrete, err = newDiscrete(space); err == nil {
			goSpace = discrete
		}
		return goSpace, err

	case space.IsInstance(dictSpace) == 1:
		var dict *msgym.DictSpace
		if dict, err = newDictSpace(space); err == nil {
			goSpace = dict
		}
		return goSpace, err

	case space.IsInstance(tupleSpace) == 1:
		var tuple *msgym.TupleSpace
		if tuple, err = newTupleSpace(space); err == nil {
			goSpace = tuple
		}
		return goSpace, err
	}

	t := space.Type()
	defer t.DecRef()
	name := t.Str()
	defer name.DecRef()
	return nil, fmt.Errorf("fromPythonSpace: space %v not yet implemented",
		python.PyUnicode_AsUTF8(name))
}

// bounds returns the flattened bounds attribute attr of a Box space
func bounds(boxSpace *python.PyObject, attr string) ([]float64, error) {
	b := boxSpace.GetAttrString(attr)
	if b == nil {
		return nil, pyError("bounds", fmt.Sprintf("space has no %v", attr))
	}
	defer b.DecRef()

	flat := b.CallMethodArgs("ravel")
	if flat == nil {
		return nil, pyError("bounds", fmt.Sprintf("could not flatten %v",
			attr))
	}
	defer flat.DecRef()
	return F64SliceFromIter(flat)
}

// newBox takes a Python gym.spaces.Box and converts it into its Go
// counterpart. Multi-dimensional boxes are flattened.
func newBox(boxSpace *python.PyObject) (*msgym.Box, error) {
	low, err := bounds(boxSpace, "low")
	if err != nil {
		return nil, fmt.Errorf("newBox: could not compute lower bound: %w",
			err)
	}
	high, err := bounds(boxSpace, "high")
	if err != nil {
		return nil, fmt.Errorf("newBox: could not compute upper bound: %w",
			err)
	}
	return msgym.NewBox(low, high)
}

// newDiscrete takes a Python gym.spaces.Discrete and converts it into
// its Go counterpart
func newDiscrete(space *python.PyObject) (*msgym.Discrete, error) {
	pythonN := space.GetAttrString("n")
	if pythonN == nil {
		return nil, pyError("newDiscrete", "space has no n")
	}
	defer pythonN.DecRef()

	return msgym.NewDiscrete(python.PyLong_AsLong(pythonN))
}

// newDictSpace takes a Python gym.spaces.Dict and converts it, and
// all its sub-spaces, into its Go counterpart
func newDictSpace(space *python.PyObject) (*msgym.DictSpace, error) {
	dictSpaces := space.GetAttrString("spaces")
	if dictSpaces == nil || !python.PyDict_Check(dictSpaces) {
		dictSpaces.DecRef()
		return nil, pyError("newDictSpace", "space has no dict of spaces")
	}
	defer dictSpaces.DecRef()

	keysObj := python.PyDict_Keys(dictSpaces)
	if keysObj == nil {
		return nil, pyError("newDictSpace", "could not get keys")
	}
	defer keysObj.DecRef()
	keys, err := StringSliceFromIter(keysObj)
	if err != nil {
		return nil, fmt.Errorf("newDictSpace: %w", err)
	}

	spaces := make([]msgym.Space, len(keys))
	for i, key := range keys {
		spaceAtKey := python.PyDict_GetItemString(dictSpaces, key)
		spaces[i], err = FromPythonSpace(spaceAtKey)
		if err != nil {
			return nil, fmt.Errorf("newDictSpace: %v: %w", key, err)
		}
	}
	return msgym.NewDictSpace(keys, spaces)
}

// newTupleSpace takes a Python gym.spaces.Tuple and converts it, and
// all its sub-spaces, into its Go counterpart
func newTupleSpace(space *python.PyObject) (*msgym.TupleSpace, error) {
	tuple := space.GetAttrString("spaces")
	if tuple == nil {
		return nil, pyError("newTupleSpace", "nil tuple of Python spaces")
	}
	defer tuple.DecRef()

	spaces := make([]msgym.Space, tuple.Length())
	for i := range spaces {
		var err error
		spaces[i], err = FromPythonSpace(python.PyTuple_GetItem(tuple, i))
		if err != nil {
			return nil, fmt.Errorf("newTupleSpace: could not convert space "+
				"%v: %w", i, err)
		}
	}
	return msgym.NewTupleSpace(spaces...)
}
