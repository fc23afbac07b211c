// Package wrappers implements environment wrappers for msgym
// Environments.
//
// Every wrapper embeds the environment it wraps, so that any method it
// does not change is forwarded to the wrapped environment. This
// includes the state access methods of msgym.StatefulEnvironment and
// the observation mode and level of ManiSkill2 environments.
package wrappers

import (
	"github.com/samuelfneumann/msgym"
	"github.com/samuelfneumann/msgym/gdict"
)

// truncatedKey is the step information key marking an episode cut off
// by a time limit
const truncatedKey = "TimeLimit.truncated"

// Wrapper forwards all calls to the embedded environment. It is
// embedded by the concrete wrappers of this package.
type Wrapper struct {
	msgym.Environment
}

// Unwrap returns the wrapped environment
func (w Wrapper) Unwrap() msgym.Environment {
	return w.Environment
}

// GetObs returns the current observation of the wrapped environment
func (w Wrapper) GetObs() (*gdict.Dict, error) {
	return msgym.GetObs(w.Environment)
}

// GetState returns the simulator state of the wrapped environment
func (w Wrapper) GetState() ([]float64, error) {
	return msgym.GetState(w.Environment)
}

// SetState sets the simulator state of the wrapped environment
func (w Wrapper) SetState(state []float64) error {
	return msgym.SetState(w.Environment, state)
}

// ObsMode returns the observation mode of the wrapped environment
func (w Wrapper) ObsMode() string {
	return msgym.ObsMode(w.Environment)
}

// Level returns the level of the wrapped environment
func (w Wrapper) Level() (int, bool) {
	return msgym.Level(w.Environment)
}

// TrueDone returns whether an episode ended for a reason other than a
// time limit
func TrueDone(done bool, info *gdict.Dict) bool {
	if !done {
		return false
	}
	v, ok := info.Get(truncatedKey)
	if !ok {
		return true
	}
	truncated, _ := v.(bool)
	return !truncated
}
