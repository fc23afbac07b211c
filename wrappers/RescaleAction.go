package wrappers

import (
	"fmt"

	"github.com/samuelfneumann/msgym"
	"github.com/samuelfneumann/msgym/gdict"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// RescaleAction wraps a msgym.Environment and rescales the continuous
// action space of the environment to a range [a, b]. The action
// space should be a bounded Box.
//
// https://github.com/openai/gym/blob/master/gym/wrappers/rescale_
// action.py
type RescaleAction struct {
	Wrapper

	a, b        float64
	low, high   []float64
	actionSpace *msgym.Box
}

// NewRescaleAction returns a new msgym.Environment that rescales the
// actions taken in env.
func NewRescaleAction(env msgym.Environment, a, b float64) (*RescaleAction,
	error) {
	if !(a < b) {
		return nil, fmt.Errorf("newRescaleAction: expected a < b, got a = %v "+
			"and b = %v", a, b)
	}

	box, ok := env.ActionSpace().(*msgym.Box)
	if !ok {
		return nil, fmt.Errorf("newRescaleAction: cannot rescale actions of "+
			"%T action space", env.ActionSpace())
	}
	for i := range box.BoundedAbove() {
		if !box.BoundedAbove()[i] || !box.BoundedBelow()[i] {
			return nil, fmt.Errorf("newRescaleAction: action dimension %v is "+
				"unbounded", i)
		}
	}

	actionSpace, err := msgym.NewUniformBox(box.Dim(), a, b)
	if err != nil {
		return nil, fmt.Errorf("newRescaleAction: could not create action "+
			"space: %w", err)
	}

	return &RescaleAction{
		Wrapper:     Wrapper{env},
		a:           a,
		b:           b,
		low:         box.Low()[0].RawVector().Data,
		high:        box.High()[0].RawVector().Data,
		actionSpace: actionSpace,
	}, nil
}

// Name gets the name of the environment
func (r *RescaleAction) Name() string {
	return fmt.Sprintf("RescaleAction([%v, %v])(%v)", r.a, r.b,
		r.Environment.Name())
}

// ActionSpace returns the rescaled action space [a, b]^n
func (r *RescaleAction) ActionSpace() msgym.Space {
	return r.actionSpace
}

// Action maps an action in [a, b] to the action space of the wrapped
// environment
func (r *RescaleAction) Action(action []float64) ([]float64, error) {
	if !r.actionSpace.Contains(action) {
		return nil, fmt.Errorf("action: %v not in [%v, %v]^%v", action, r.a,
			r.b, r.actionSpace.Dim())
	}

	// low + (high - low) * (action - a) / (b - a)
	out := make([]float64, len(action))
	floats.AddConst(-r.a, floats.AddTo(out, out, action))
	floats.Scale(1/(r.b-r.a), out)
	width := floats.SubTo(make([]float64, len(out)), r.high, r.low)
	floats.Mul(out, width)
	floats.Add(out, r.low)
	return out, nil
}

// Step rescales the action and takes one environmental step
func (r *RescaleAction) Step(a *mat.VecDense) (*gdict.Dict, float64, bool,
	*gdict.Dict, error) {
	if a == nil {
		return nil, 0, false, nil, fmt.Errorf("step: nil action")
	}
	action, err := r.Action(a.RawVector().Data)
	if err != nil {
		return nil, 0, false, nil, fmt.Errorf("step: %w", err)
	}
	return r.Environment.Step(mat.NewVecDense(len(action), action))
}
