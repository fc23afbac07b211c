package wrappers

import (
	"fmt"

	"github.com/samuelfneumann/msgym"
	"github.com/samuelfneumann/msgym/gdict"
	"gonum.org/v1/gonum/mat"
)

// FilterObservation filters dictionary observations by their keys.
//
// https://github.com/openai/gym/blob/master/gym/wrappers/filter_
// observation.py
type FilterObservation struct {
	Wrapper

	keys     []string
	obsSpace msgym.Space
}

// NewFilterObservation returns a new msgym.Environment that filters
// observations by the specified keys. If env has a DictSpace
// observation space, every key must be in it. An observation space
// other than a DictSpace is an error.
func NewFilterObservation(env msgym.Environment,
	keys ...string) (*FilterObservation, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("newFilterObservation: no keys to keep")
	}

	var obsSpace msgym.Space
	if space := env.ObservationSpace(); space != nil {
		dict, ok := space.(*msgym.DictSpace)
		if !ok {
			return nil, fmt.Errorf("newFilterObservation: could not wrap " +
				"environment with non-DictSpace observation space")
		}

		spaces := make([]msgym.Space, len(keys))
		for i, key := range keys {
			s, ok := dict.Get(key)
			if !ok {
				return nil, fmt.Errorf("newFilterObservation: key %q not in "+
					"observation space %v", key, dict.Keys())
			}
			spaces[i] = s
		}

		var err error
		obsSpace, err = msgym.NewDictSpace(keys, spaces)
		if err != nil {
			return nil, fmt.Errorf("newFilterObservation: %w", err)
		}
	}

	return &FilterObservation{
		Wrapper:  Wrapper{env},
		keys:     append([]string(nil), keys...),
		obsSpace: obsSpace,
	}, nil
}

// Name gets the name of the environment
func (f *FilterObservation) Name() string {
	return fmt.Sprintf("FilterObservation(%v)", f.Environment.Name())
}

// ObservationSpace returns the filtered observation space, or nil if
// the wrapped environment does not describe its observations
func (f *FilterObservation) ObservationSpace() msgym.Space {
	return f.obsSpace
}

// Observation returns the filtered observation of x
func (f *FilterObservation) Observation(x *gdict.Dict) (*gdict.Dict, error) {
	out := gdict.New()
	for _, key := range f.keys {
		v, ok := x.Get(key)
		if !ok {
			return nil, fmt.Errorf("observation: no key %q in observation",
				key)
		}
		out.Set(key, v)
	}
	return out, nil
}

// Reset resets the environment and returns the filtered observation
func (f *FilterObservation) Reset(opts ...msgym.ResetOption) (*gdict.Dict,
	error) {
	obs, err := f.Environment.Reset(opts...)
	if err != nil {
		return nil, err
	}
	return f.Observation(obs)
}

// Step takes one environmental step and returns the filtered
// observation
func (f *FilterObservation) Step(a *mat.VecDense) (*gdict.Dict, float64, bool,
	*gdict.Dict, error) {
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

// GetObs returns the filtered current observation
func (f *FilterObservation) GetObs() (*gdict.Dict, error) {
	obs, err := msgym.GetObs(f.Environment)
	if err != nil {
		return nil, err
	}
	return f.Observation(obs)
}
