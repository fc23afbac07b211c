package wrappers

import (
	"fmt"

	"github.com/samuelfneumann/msgym"
	"github.com/samuelfneumann/msgym/gdict"
	"gonum.org/v1/gonum/mat"
)

// ClipAction wraps a msgym.Environment and clips the continuous action
// within the valid bounds.
//
// https://github.com/openai/gym/blob/master/gym/wrappers/clip_action.py
type ClipAction struct {
	Wrapper

	box *msgym.Box
}

// NewClipAction returns a new msgym.Environment that clips the actions
// taken in env. The action space of env must be a *msgym.Box.
func NewClipAction(env msgym.Environment) (*ClipAction, error) {
	box, ok := env.ActionSpace().(*msgym.Box)
	if !ok {
		return nil, fmt.Errorf("newClipAction: cannot clip actions of %T "+
			"action space", env.ActionSpace())
	}

	return &ClipAction{
		Wrapper: Wrapper{env},
		box:     box,
	}, nil
}

// Name gets the name of the environment
func (c *ClipAction) Name() string {
	return fmt.Sprintf("ClipAction(%v)", c.Environment.Name())
}

// Step clips the action to the action space bounds and takes one
// environmental step
func (c *ClipAction) Step(a *mat.VecDense) (*gdict.Dict, float64, bool,
	*gdict.Dict, error) {
	clipped, err := c.box.Clip(a)
	if err != nil {
		return nil, 0, false, nil, fmt.Errorf("step: %w", err)
	}
	return c.Environment.Step(clipped)
}
