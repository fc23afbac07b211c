package wrappers

import (
	"fmt"

	"github.com/emer/etable/etensor"
	"github.com/samuelfneumann/msgym"
	"github.com/samuelfneumann/msgym/gdict"
	"github.com/samuelfneumann/msgym/imageutil"
	"gonum.org/v1/gonum/mat"
)

// RenderInfo draws the step information of the last step, including
// its reward, onto rendered rgb_array and cameras images
type RenderInfo struct {
	Wrapper

	info *gdict.Dict
}

// NewRenderInfo returns a new RenderInfo wrapper
func NewRenderInfo(env msgym.Environment) *RenderInfo {
	return &RenderInfo{
		Wrapper: Wrapper{env},
		info:    gdict.New(),
	}
}

// Name gets the name of the environment
func (r *RenderInfo) Name() string {
	return fmt.Sprintf("RenderInfo(%v)", r.Environment.Name())
}

// Reset resets the environment and clears the remembered step
// information
func (r *RenderInfo) Reset(opts ...msgym.ResetOption) (*gdict.Dict, error) {
	obs, err := r.Environment.Reset(opts...)
	if err != nil {
		return nil, err
	}
	r.info = gdict.New()
	return obs, nil
}

// Step takes one environmental step, adds the reward to the step
// information under "reward" and remembers it for rendering
func (r *RenderInfo) Step(a *mat.VecDense) (*gdict.Dict, float64, bool,
	*gdict.Dict, error) {
	obs, reward, done, info, err := r.Environment.Step(a)
	if err != nil {
		return nil, 0, false, nil, err
	}
	if info == nil {
		info = gdict.New()
	}
	info.Set("reward", reward)
	r.info = info
	return obs, reward, done, info, nil
}

// Render renders the environment. Images rendered in the rgb_array and
// cameras modes carry the remembered step information as text.
func (r *RenderInfo) Render(mode string) (interface{}, error) {
	if mode != msgym.RenderRGBArray && mode != msgym.RenderCameras {
		return r.Environment.Render(mode)
	}

	img, err := r.Environment.Render(mode)
	if err != nil {
		return nil, err
	}
	t, ok := img.(etensor.Tensor)
	if !ok {
		return nil, fmt.Errorf("render: expected image tensor, got %T", img)
	}
	out, err := imageutil.PutInfoOnImage(t, r.info, nil, true)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return out, nil
}
