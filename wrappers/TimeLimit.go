package wrappers

import (
	"fmt"

	"github.com/samuelfneumann/msgym"
	"github.com/samuelfneumann/msgym/gdict"
	"gonum.org/v1/gonum/mat"
)

// TimeLimit wraps a msgym.Environment and provides for it a limit on
// the time steps. When an episode is cut off by the limit, rather than
// ending on its own, the step information holds
// "TimeLimit.truncated" = true.
//
// https://github.com/openai/gym/blob/master/gym/wrappers/time_limit.py
type TimeLimit struct {
	Wrapper

	maxEpisodeSteps int
	elapsedSteps    int
}

// NewTimeLimit create a new TimeLimit wrapper on a msgym Environment
func NewTimeLimit(env msgym.Environment,
	maxEpisodeSteps int) (*TimeLimit, error) {
	if maxEpisodeSteps <= 0 {
		return nil, fmt.Errorf("newTimeLimit: maxEpisodeSteps must be positive")
	}

	return &TimeLimit{
		Wrapper:         Wrapper{env},
		maxEpisodeSteps: maxEpisodeSteps,
	}, nil
}

// Name gets the name of the environment
func (t *TimeLimit) Name() string {
	return fmt.Sprintf("TimeLimit(steps: %v)(%v)", t.maxEpisodeSteps,
		t.Environment.Name())
}

// MaxEpisodeSteps returns the time limit
func (t *TimeLimit) MaxEpisodeSteps() int {
	return t.maxEpisodeSteps
}

// ElapsedSteps returns the number of steps taken in the current
// episode
func (t *TimeLimit) ElapsedSteps() int {
	return t.elapsedSteps
}

// Reset resets the environment and the step counter
func (t *TimeLimit) Reset(opts ...msgym.ResetOption) (*gdict.Dict, error) {
	t.elapsedSteps = 0
	return t.Environment.Reset(opts...)
}

// Step takes one environmental step, ending the episode once the time
// limit is reached
func (t *TimeLimit) Step(a *mat.VecDense) (*gdict.Dict, float64, bool,
	*gdict.Dict, error) {
	obs, reward, done, info, err := t.Environment.Step(a)
	if err != nil {
		return nil, 0, false, nil, err
	}

	t.elapsedSteps++
	if t.elapsedSteps >= t.maxEpisodeSteps {
		if info == nil {
			info = gdict.New()
		}
		info.Set(truncatedKey, !done)
		done = true
	}
	return obs, reward, done, info, nil
}
