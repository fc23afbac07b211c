package pyenv

import (
	"fmt"

	python "github.com/DataDog/go-python3"
	"github.com/samuelfneumann/msgym"
	"github.com/samuelfneumann/msgym/gdict"
	"github.com/samuelfneumann/msgym/internal/log"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

// MakeOptions are the keyword arguments passed to gym.make. Empty
// fields use the environment defaults.
type MakeOptions struct {
	ObsMode     string
	ControlMode string
	RewardMode  string
}

// kwargs returns the options as a new Python dict
func (m MakeOptions) kwargs() *python.PyObject {
	kwargs := python.PyDict_New()
	for key, value := range map[string]string{
		"obs_mode":     m.ObsMode,
		"control_mode": m.ControlMode,
		"reward_mode":  m.RewardMode,
	} {
		if value == "" {
			continue
		}
		v := python.PyUnicode_FromString(value)
		python.PyDict_SetItemString(kwargs, key, v)
		v.DecRef()
	}
	return kwargs
}

// GymEnv wraps a Python ManiSkill2 environment and provides Go bindings
// for interacting with that environment. Observations that are not
// dicts, such as the flat state vectors of the state observation
// mode, are returned as {"state": observation}.
type GymEnv struct {
	env     *python.PyObject
	envName string
	obsMode string

	discreteAction   bool
	actionSpace      msgym.Space
	observationSpace msgym.Space

	logger *zap.Logger
}

// Make returns a new environment with the given name. It is equivalent
// to gym.make(envName, **opts) in Python.
func Make(envName string, opts MakeOptions) (*GymEnv, error) {
	if err := Init(); err != nil {
		return nil, fmt.Errorf("make: %w", err)
	}

	makeEnv := gym.GetAttrString("make")
	if !(makeEnv != nil && python.PyCallable_Check(makeEnv)) {
		makeEnv.DecRef()
		return nil, pyError("make", "could not get gym.make")
	}
	defer makeEnv.DecRef()

	// Construct the arguments to the gym.make function
	args := python.PyTuple_New(1)
	defer args.DecRef()
	python.PyTuple_SetItem(args, 0, python.PyUnicode_FromString(envName))
	kwargs := opts.kwargs()
	defer kwargs.DecRef()

	// Create the gym environment
	env := makeEnv.Call(args, kwargs)
	if env == nil {
		return nil, pyError("make", fmt.Sprintf("could not make %v", envName))
	}

	g := &GymEnv{
		env:     env,
		envName: envName,
		obsMode: opts.ObsMode,
	}
	if obsMode := env.GetAttrString("obs_mode"); obsMode != nil {
		if python.PyUnicode_Check(obsMode) {
			g.obsMode = python.PyUnicode_AsUTF8(obsMode)
		}
		obsMode.DecRef()
	} else {
		python.PyErr_Clear()
	}
	g.logger = log.Provide().With(zap.String("env", envName),
		zap.String("obsMode", g.obsMode))

	// Construct the action space
	actionSpace := env.GetAttrString("action_space")
	defer actionSpace.DecRef()
	var err error
	g.actionSpace, err = FromPythonSpace(actionSpace)
	if err != nil {
		env.DecRef()
		return nil, fmt.Errorf("make: could not create action space: %w", err)
	}
	_, g.discreteAction = g.actionSpace.(*msgym.Discrete)

	// Construct the observation space. Unsupported observation spaces
	// are not fatal.
	observationSpace := env.GetAttrString("observation_space")
	defer observationSpace.DecRef()
	space, err := FromPythonSpace(observationSpace)
	if err != nil {
		python.PyErr_Clear()
		g.logger.Warn("observation space not converted", zap.Error(err))
	} else {
		g.observationSpace = space
	}

	// Register the environment with the list of all environments
	openEnvironments[g] = struct{}{}
	g.logger.Debug("made environment")

	return g, nil
}

// Env gets the GymEnv's Python gym environment
func (g *GymEnv) Env() *python.PyObject {
	return g.env
}

// Name gets the name of the environment
func (g *GymEnv) Name() string {
	return g.envName
}

// ObsMode returns the observation mode of the environment
func (g *GymEnv) ObsMode() string {
	return g.obsMode
}

// ActionSpace returns the action space as a Go data structure
func (g *GymEnv) ActionSpace() msgym.Space {
	return g.actionSpace
}

// ObservationSpace returns the observation space as a Go data
// structure, or nil if it could not be converted
func (g *GymEnv) ObservationSpace() msgym.Space {
	return g.observationSpace
}

// call calls method name of the Python environment. Positional
// arguments are stolen. kwargs may be nil.
func (g *GymEnv) call(name string, kwargs *python.PyObject,
	args ...*python.PyObject) (*python.PyObject, error) {
	method := g.env.GetAttrString(name)
	if method == nil {
		for _, arg := range args {
			arg.DecRef()
		}
		return nil, pyError(name, "no such method")
	}
	defer method.DecRef()

	tuple := python.PyTuple_New(len(args))
	defer tuple.DecRef()
	for i, arg := range args {
		python.PyTuple_SetItem(tuple, i, arg)
	}

	var retVal *python.PyObject
	if kwargs == nil {
		retVal = method.CallObject(tuple)
	} else {
		retVal = method.Call(tuple, kwargs)
	}
	if retVal == nil {
		return nil, pyError(name, fmt.Sprintf("could not call %v.%v",
			g.envName, name))
	}
	return retVal, nil
}

// observation converts a Python observation to a dict
func (g *GymEnv) observation(obs *python.PyObject) (*gdict.Dict, error) {
	goObs, err := ToGo(obs)
	if err != nil {
		return nil, err
	}
	switch o := goObs.(type) {
	case *gdict.Dict:
		return o, nil
	case nil:
		return nil, fmt.Errorf("nil observation")
	default:
		out := gdict.New()
		out.Set("state", o)
		return out, nil
	}
}

// Seed seeds the GymEnv and returns the seed. It is equivalent to
// calling env.seed(seed) in Python.
func (g *GymEnv) Seed(seed int) ([]int, error) {
	retVal, err := g.call("seed", nil, python.PyLong_FromGoInt(seed))
	if err != nil {
		return nil, err
	}
	defer retVal.DecRef()

	s, err := IntSliceFromIter(retVal)
	if err != nil {
		return nil, fmt.Errorf("seed: could not convert seed to Go: %w", err)
	}
	return s, nil
}

// Reset resets the GymEnv and returns the starting observation. A seed
// reseeds the environment before resetting and a level is passed as
// the episode seed, as in env.reset(seed=level).
func (g *GymEnv) Reset(opts ...msgym.ResetOption) (*gdict.Dict, error) {
	cfg := msgym.NewResetConfig(opts...)
	if cfg.HasSeed {
		if _, err := g.Seed(cfg.Seed); err != nil {
			return nil, fmt.Errorf("reset: %w", err)
		}
	}

	kwargs := python.PyDict_New()
	defer kwargs.DecRef()
	if cfg.HasLevel {
		level := python.PyLong_FromGoInt(cfg.Level)
		python.PyDict_SetItemString(kwargs, "seed", level)
		level.DecRef()
	}

	obs, err := g.call("reset", kwargs)
	if err != nil {
		return nil, err
	}
	defer obs.DecRef()

	out, err := g.observation(obs)
	if err != nil {
		return nil, fmt.Errorf("reset: could not decode observation: %w", err)
	}
	return out, nil
}

// Step takes one environmental step given some action a. It is
// equivalent to calling env.step(a) in Python. Continuous actions are
// sent as float32 NumPy arrays.
func (g *GymEnv) Step(a *mat.VecDense) (*gdict.Dict, float64, bool,
	*gdict.Dict, error) {
	if a == nil {
		return nil, 0, false, nil, fmt.Errorf("step: nil action")
	}

	var action *python.PyObject
	if g.discreteAction {
		action = python.PyLong_FromGoInt(int(a.AtVec(0)))
	} else {
		var err error
		action, err = F64ToNumpy(a.RawVector().Data, "float32")
		if err != nil {
			return nil, 0, false, nil, fmt.Errorf("step: could not convert "+
				"action: %w", err)
		}
	}

	retVal, err := g.call("step", nil, action)
	if err != nil {
		return nil, 0, false, nil, err
	}
	defer retVal.DecRef()
	if !python.PyTuple_Check(retVal) || python.PyTuple_Size(retVal) != 4 {
		return nil, 0, false, nil, fmt.Errorf("step: expected a 4-tuple")
	}

	obs, err := g.observation(python.PyTuple_GetItem(retVal, 0))
	if err != nil {
		return nil, 0, false, nil, fmt.Errorf("step: could not decode "+
			"observation: %w", err)
	}

	reward := python.PyFloat_AsDouble(python.PyTuple_GetItem(retVal, 1))
	goDone, err := ToGo(python.PyTuple_GetItem(retVal, 2))
	if err != nil {
		return nil, 0, false, nil, fmt.Errorf("step: could not decode done: "+
			"%w", err)
	}
	done, _ := goDone.(bool)

	info := gdict.New()
	pyInfo := python.PyTuple_GetItem(retVal, 3)
	if python.PyDict_Check(pyInfo) {
		info, err = DictFromPython(pyInfo)
		if err != nil {
			return nil, 0, false, nil, fmt.Errorf("step: could not decode "+
				"info: %w", err)
		}
	}

	return obs, reward, done, info, nil
}

// Render renders the environment. It is equivalent to
// env.render(mode=mode) in Python. The result is nil, an
// etensor.Tensor image or a *gdict.Dict of images.
func (g *GymEnv) Render(mode string) (interface{}, error) {
	kwargs := python.PyDict_New()
	defer kwargs.DecRef()
	m := python.PyUnicode_FromString(mode)
	python.PyDict_SetItemString(kwargs, "mode", m)
	m.DecRef()

	retVal, err := g.call("render", kwargs)
	if err != nil {
		return nil, err
	}
	defer retVal.DecRef()

	img, err := ToGo(retVal)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return img, nil
}

// GetObs returns the current observation without stepping
func (g *GymEnv) GetObs() (*gdict.Dict, error) {
	obs, err := g.call("get_obs", nil)
	if err != nil {
		return nil, err
	}
	defer obs.DecRef()

	out, err := g.observation(obs)
	if err != nil {
		return nil, fmt.Errorf("getObs: %w", err)
	}
	return out, nil
}

// GetState returns the flattened simulator state
func (g *GymEnv) GetState() ([]float64, error) {
	state, err := g.call("get_state", nil)
	if err != nil {
		return nil, err
	}
	defer state.DecRef()

	flat := state.CallMethodArgs("ravel")
	if flat == nil {
		return nil, pyError("getState", "could not flatten state")
	}
	defer flat.DecRef()
	return F64SliceFromIter(flat)
}

// SetState restores a state returned by GetState
func (g *GymEnv) SetState(state []float64) error {
	arr, err := F64ToNumpy(state, "float64")
	if err != nil {
		return fmt.Errorf("setState: %w", err)
	}

	retVal, err := g.call("set_state", nil, arr)
	if err != nil {
		return err
	}
	retVal.DecRef()
	return nil
}

// Level returns the episode seed of the current episode
func (g *GymEnv) Level() (int, bool) {
	seed := g.env.GetAttrString("_episode_seed")
	if seed == nil {
		python.PyErr_Clear()
		return 0, false
	}
	defer seed.DecRef()

	if !python.PyLong_Check(seed) {
		return 0, false
	}
	return python.PyLong_AsLong(seed), true
}

// Close performs cleanup of environment resources. It should be
// called once the environment is no longer needed.
func (g *GymEnv) Close() {
	if _, ok := openEnvironments[g]; !ok {
		return
	}
	delete(openEnvironments, g)

	if retVal, err := g.call("close", nil); err != nil {
		g.logger.Warn("could not close environment", zap.Error(err))
	} else {
		retVal.DecRef()
	}
	g.env.DecRef()
}
