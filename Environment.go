// Package msgym provides Go environment adapters for ManiSkill2 robot
// manipulation tasks, in the style of OpenAI Gym.
//
// The package defines the Environment contract shared by simulator
// backends (see the pyenv package) and environment wrappers (see the
// wrappers package). Observations and step information are ordered,
// nested dictionaries (see the gdict package) whose leaves are
// etensor tensors or scalars.
package msgym

import (
	"errors"
	"fmt"

	"github.com/samuelfneumann/msgym/gdict"
	"gonum.org/v1/gonum/mat"
)

// Render modes understood by ManiSkill2 environments
const (
	RenderHuman      = "human"
	RenderRGBArray   = "rgb_array"
	RenderColorImage = "color_image"
	RenderCameras    = "cameras"
)

// Observation modes of ManiSkill2 environments
const (
	ObsModeState      = "state"
	ObsModeRGBD       = "rgbd"
	ObsModePointCloud = "pointcloud"
	ObsModeParticles  = "particles"
)

// ErrNotStateful is returned when an environment does not support
// getting or setting its simulator state
var ErrNotStateful = errors.New("environment does not support state " +
	"access")

// Environment describes a Gym-style environment with dictionary
// observations
type Environment interface {
	// Name gets the name of the environment
	Name() string

	// ActionSpace returns the action space as a Go data structure
	ActionSpace() Space

	// ObservationSpace returns the observation space as a Go data
	// structure
	ObservationSpace() Space

	// Seed seeds the Environment and returns the seeds used
	Seed(seed int) ([]int, error)

	// Reset resets the Environment and returns the starting
	// observation
	Reset(opts ...ResetOption) (*gdict.Dict, error)

	// Step takes one environmental step given some action a and
	// returns the next observation, reward, a flag indicating if the
	// episode has completed and auxiliary step information. Discrete
	// actions are given as a 1-element vector holding the action
	// index.
	Step(a *mat.VecDense) (obs *gdict.Dict, reward float64, done bool,
		info *gdict.Dict, err error)

	// Render renders the environment in the given mode. Depending on
	// the environment and mode, the result is nil, an etensor.Tensor
	// image or a *gdict.Dict of images.
	Render(mode string) (interface{}, error)

	// Close performs cleanup of environment resources. It should be
	// called once the environment is no longer needed.
	Close()
}

// StatefulEnvironment is an Environment whose simulator state can be
// saved and restored
type StatefulEnvironment interface {
	Environment

	// GetObs returns the current observation without stepping
	GetObs() (*gdict.Dict, error)

	// GetState returns the flattened simulator state
	GetState() ([]float64, error)

	// SetState restores a state returned by GetState
	SetState(state []float64) error
}

// ObsModer is implemented by environments that report their
// observation mode
type ObsModer interface {
	ObsMode() string
}

// Leveler is implemented by environments that report the level (the
// per-episode seed in ManiSkill) of the current episode
type Leveler interface {
	Level() (int, bool)
}

// GetObs returns the current observation of env, or ErrNotStateful if
// env does not support it
func GetObs(env Environment) (*gdict.Dict, error) {
	s, ok := env.(StatefulEnvironment)
	if !ok {
		return nil, fmt.Errorf("getObs: %v: %w", env.Name(), ErrNotStateful)
	}
	return s.GetObs()
}

// GetState returns the simulator state of env, or ErrNotStateful if
// env does not support it
func GetState(env Environment) ([]float64, error) {
	s, ok := env.(StatefulEnvironment)
	if !ok {
		return nil, fmt.Errorf("getState: %v: %w", env.Name(), ErrNotStateful)
	}
	return s.GetState()
}

// SetState sets the simulator state of env, or returns ErrNotStateful
// if env does not support it
func SetState(env Environment, state []float64) error {
	s, ok := env.(StatefulEnvironment)
	if !ok {
		return fmt.Errorf("setState: %v: %w", env.Name(), ErrNotStateful)
	}
	return s.SetState(state)
}

// ObsMode returns the observation mode of env. Environments that do not
// report one are assumed to emit state observations.
func ObsMode(env Environment) string {
	if m, ok := env.(ObsModer); ok {
		return m.ObsMode()
	}
	return ObsModeState
}

// Level returns the level of the current episode of env, if env
// reports one
func Level(env Environment) (int, bool) {
	if l, ok := env.(Leveler); ok {
		return l.Level()
	}
	return 0, false
}

// ResetConfig holds the optional arguments to Reset
type ResetConfig struct {
	Seed     int
	HasSeed  bool
	Level    int
	HasLevel bool
}

// ResetOption configures a call to Reset
type ResetOption func(*ResetConfig)

// WithSeed reseeds the environment on reset
func WithSeed(seed int) ResetOption {
	return func(c *ResetConfig) {
		c.Seed = seed
		c.HasSeed = true
	}
}

// WithLevel resets the environment to a specific level
func WithLevel(level int) ResetOption {
	return func(c *ResetConfig) {
		c.Level = level
		c.HasLevel = true
	}
}

// NewResetConfig applies opts to an empty ResetConfig
func NewResetConfig(opts ...ResetOption) ResetConfig {
	var c ResetConfig
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// Options returns the ResetOptions that reproduce c
func (c ResetConfig) Options() []ResetOption {
	var opts []ResetOption
	if c.HasSeed {
		opts = append(opts, WithSeed(c.Seed))
	}
	if c.HasLevel {
		opts = append(opts, WithLevel(c.Level))
	}
	return opts
}

// Wrapper is implemented by environments that wrap another
// environment
type Wrapper interface {
	Environment
	Unwrap() Environment
}

// Unwrapped returns the innermost environment of a chain of wrappers
func Unwrapped(env Environment) Environment {
	for {
		w, ok := env.(Wrapper)
		if !ok {
			return env
		}
		env = w.Unwrap()
	}
}

// EpisodeLimiter is implemented by environments that cut episodes off
// after a fixed number of steps
type EpisodeLimiter interface {
	MaxEpisodeSteps() int
}

// MaxEpisodeSteps returns the step limit of the outermost
// EpisodeLimiter in the wrapper chain of env, if there is one
func MaxEpisodeSteps(env Environment) (int, bool) {
	for {
		if l, ok := env.(EpisodeLimiter); ok {
			return l.MaxEpisodeSteps(), true
		}
		w, ok := env.(Wrapper)
		if !ok {
			return 0, false
		}
		env = w.Unwrap()
	}
}

// IsStateful reports whether the innermost environment of env supports
// getting and setting its simulator state
func IsStateful(env Environment) bool {
	_, ok := Unwrapped(env).(StatefulEnvironment)
	return ok
}
