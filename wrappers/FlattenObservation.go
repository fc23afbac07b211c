package wrappers

import (
	"fmt"

	"github.com/samuelfneumann/msgym"
	"github.com/samuelfneumann/msgym/gdict"
	"gonum.org/v1/gonum/mat"
)

// FlattenObservation wraps a msgym.Environment and flattens the
// observations into a single float32 vector stored under "state".
//
// The observation space of a FlattenObservation wrapper is always a
// Box, or nil if the wrapped environment does not describe its
// observations.
//
// https://github.com/openai/gym/blob/master/gym/wrappers/flatten_
// observation.py
type FlattenObservation struct {
	Wrapper

	obsSpace msgym.Space
}

// NewFlattenObservation returns a new msgym.Environment that flattens
// state observations
func NewFlattenObservation(env msgym.Environment) (*FlattenObservation,
	error) {
	f := &FlattenObservation{Wrapper: Wrapper{env}}

	if space := env.ObservationSpace(); space != nil {
		var low, high []float64
		for i := range space.Low() {
			low = append(low, space.Low()[i].RawVector().Data...)
			high = append(high, space.High()[i].RawVector().Data...)
		}
		box, err := msgym.NewBox(low, high)
		if err != nil {
			return nil, fmt.Errorf("newFlattenObservation: could not create "+
				"observation space: %w", err)
		}
		f.obsSpace = box
	}
	return f, nil
}

// Name gets the name of the environment
func (f *FlattenObservation) Name() string {
	return fmt.Sprintf("FlattenObservation(%v)", f.Environment.Name())
}

// ObservationSpace returns the flattened observation space
func (f *FlattenObservation) ObservationSpace() msgym.Space {
	return f.obsSpace
}

// Observation returns a flattened version of some observation x
func (f *FlattenObservation) Observation(x *gdict.Dict) (*gdict.Dict, error) {
	state, err := gdict.FlattenState(x)
	if err != nil {
		return nil, fmt.Errorf("observation: %w", err)
	}
	out := gdict.New()
	out.Set("state", gdict.NewFloat32([]int{len(state)}, state))
	return out, nil
}

// Reset resets the environment and returns the flattened observation
func (f *FlattenObservation) Reset(opts ...msgym.ResetOption) (*gdict.Dict,
	error) {
	obs, err := f.Environment.Reset(opts...)
	if err != nil {
		return nil, err
	}
	return f.Observation(obs)
}

// Step takes one environmental step and returns the flattened
// observation
func (f *FlattenObservation) Step(a *mat.VecDense) (*gdict.Dict, float64,
	bool, *gdict.Dict, error) {
	obs, reward, done, info, err := f.Environment.Step(a)
	if err != nil {
		return nil, 0, false, nil, err
	}
	obs, err = f.Observation(obs)
	if err != nil {
		return nil, 0, false, nil, fmt.Errorf("step: %w", err)
	}
	return obs, reward, done, info, nil
}

// GetObs returns the flattened current observation
func (f *FlattenObservation) GetObs() (*gdict.Dict, error) {
	obs, err := msgym.GetObs(f.Environment)
	if err != nil {
		return nil, err
	}
	return f.Observation(obs)
}
