package wrappers

import (
	"fmt"

	"github.com/samuelfneumann/msgym"
	"github.com/samuelfneumann/msgym/gdict"
)

// FixedInit resets an environment to a fixed simulator state at the
// start of every episode
type FixedInit struct {
	Wrapper

	initState []float64
	level     *int
}

// NewFixedInit returns a new FixedInit wrapper. The wrapped environment
// must support state access. If level is not nil, every reset first
// resets the environment to that level before restoring initState.
func NewFixedInit(env msgym.Environment, initState []float64,
	level *int) (*FixedInit, error) {
	if !msgym.IsStateful(env) {
		return nil, fmt.Errorf("newFixedInit: %v: %w", env.Name(),
			msgym.ErrNotStateful)
	}

	f := &FixedInit{
		Wrapper:   Wrapper{env},
		initState: append([]float64(nil), initState...),
	}
	if level != nil {
		l := *level
		f.level = &l
	}
	return f, nil
}

// Name gets the name of the environment
func (f *FixedInit) Name() string {
	return fmt.Sprintf("FixedInit(%v)", f.Environment.Name())
}

// Reset resets the environment and restores the initial state. The
// configured level overrides any level in opts.
func (f *FixedInit) Reset(opts ...msgym.ResetOption) (*gdict.Dict, error) {
	if f.level != nil {
		opts = append(opts[:len(opts):len(opts)], msgym.WithLevel(*f.level))
	}
	if _, err := f.Environment.Reset(opts...); err != nil {
		return nil, fmt.Errorf("reset: %w", err)
	}
	if err := f.SetState(f.initState); err != nil {
		return nil, fmt.Errorf("reset: %w", err)
	}
	return f.GetObs()
}
