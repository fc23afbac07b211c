// Package pyenv provides Go bindings for ManiSkill2 environments
// running in an embedded Python interpreter.
//
// Before running, ensure python-3.7.pc is in a directory pointed to
// by PKG_CONFIG_PATH. On Ubuntu:
// export PKG_CONFIG_PATH="$PKG_CONFIG_PATH":/usr/local/lib/pkgconfig
//
// The interpreter is started on the first call to Make and stopped by
// Close. Nothing in this package is safe for concurrent use, and all
// calls should be made from a single goroutine locked to its OS thread
// with runtime.LockOSThread.
package pyenv

// #cgo pkg-config: python-3.7
// #include <Python.h>
import "C"
import (
	"errors"
	"fmt"
	"sync"

	python "github.com/DataDog/go-python3"
	"github.com/samuelfneumann/msgym/internal/log"
	"go.uber.org/zap"
)

// EnvModules are imported when the interpreter starts so that their
// environments are registered with gym
var EnvModules = []string{"mani_skill2.envs"}

// ErrClosed is returned when the package is used after Close
var ErrClosed = errors.New("pyenv: package closed")

// Set of open environments
var openEnvironments = make(map[*GymEnv]struct{})

// Python modules
var gym *python.PyObject
var numpy *python.PyObject

// Space types
var boxSpace *python.PyObject
var discreteSpace *python.PyObject
var dictSpace *python.PyObject
var tupleSpace *python.PyObject

var (
	initOnce sync.Once
	initErr  error
	closed   bool
)

// Init starts the Python interpreter and imports gym, NumPy and
// EnvModules. It is called by Make and only has an effect the first
// time it is called.
func Init() error {
	if closed {
		return ErrClosed
	}
	initOnce.Do(func() {
		initErr = start()
	})
	return initErr
}

func start() error {
	python.Py_Initialize()

	gym = python.PyImport_ImportModule("gym")
	if gym == nil {
		return pyError("init", "could not import gym")
	}
	numpy = python.PyImport_ImportModule("numpy")
	if numpy == nil {
		return pyError("init", "could not import numpy")
	}

	for _, name := range EnvModules {
		module := python.PyImport_ImportModule(name)
		if module == nil {
			return pyError("init", fmt.Sprintf("could not import %v", name))
		}
		module.DecRef()
	}

	spaces := gym.GetAttrString("spaces")
	if spaces == nil {
		return pyError("init", "could not get gym.spaces")
	}
	defer spaces.DecRef()

	types := map[string]**python.PyObject{
		"Box":      &boxSpace,
		"Discrete": &discreteSpace,
		"Dict":     &dictSpace,
		"Tuple":    &tupleSpace,
	}
	for name, dst := range types {
		*dst = spaces.GetAttrString(name)
		if *dst == nil {
			return pyError("init", fmt.Sprintf("could not get Python %v "+
				"space type", name))
		}
	}

	log.Provide().Debug("python interpreter started",
		zap.Strings("modules", EnvModules))
	return nil
}

// Close performs cleanup of package resources. Any environments that
// have not been closed will be closed. This should be called after
// the package is no longer needed or at the end of main.
func Close() {
	if closed {
		return
	}
	closed = true

	// Init was never called successfully
	if gym == nil {
		return
	}

	for env := range openEnvironments {
		env.Close()
	}

	for _, obj := range []*python.PyObject{gym, numpy, boxSpace,
		discreteSpace, dictSpace, tupleSpace} {
		obj.DecRef()
	}
	python.Py_Finalize()
	log.Provide().Debug("python interpreter finalized")
}

// pyError returns an error for a failed call in function fn. If a
// Python exception is set, it is cleared, logged and added to the
// returned error.
func pyError(fn, msg string) error {
	if python.PyErr_Occurred() == nil {
		return fmt.Errorf("%v: %v", fn, msg)
	}

	exc, value, traceback := python.PyErr_Fetch()
	defer exc.DecRef()
	defer value.DecRef()
	defer traceback.DecRef()

	pyMsg := "unknown Python error"
	if value != nil {
		str := value.Str()
		pyMsg = python.PyUnicode_AsUTF8(str)
		str.DecRef()
	}
	log.Provide().Error("python error", zap.String("func", fn),
		zap.String("error", pyMsg))
	return fmt.Errorf("%v: %v: %v", fn, msg, pyMsg)
}
