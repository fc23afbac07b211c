package wrappers

import (
	"fmt"

	"github.com/samuelfneumann/msgym"
	"github.com/samuelfneumann/msgym/gdict"
	"gonum.org/v1/gonum/mat"
)

// PixelObservation wraps a msgym.Environment to provide pixel
// observations. The rgb_array rendering of the environment, normalised
// to an H x W x 3 uint8 image, is added to every observation under the
// pixel key.
//
// https://github.com/openai/gym/blob/master/gym/wrappers/pixel_
// observation.py
type PixelObservation struct {
	Wrapper

	pixelsOnly bool
	pixelKey   string
}

// NewPixelObservation returns a new msgym.Environment with pixel
// observations. If pixelsOnly is true, the observation holds only the
// pixels.
func NewPixelObservation(env msgym.Environment, pixelsOnly bool,
	pixelKey string) (*PixelObservation, error) {
	if pixelKey == "" {
		return nil, fmt.Errorf("newPixelObservation: empty pixel key")
	}

	return &PixelObservation{
		Wrapper:    Wrapper{env},
		pixelsOnly: pixelsOnly,
		pixelKey:   pixelKey,
	}, nil
}

// Name gets the name of the environment
func (p *PixelObservation) Name() string {
	return fmt.Sprintf("Pixel(%v)", p.Environment.Name())
}

// ObservationSpace returns nil; pixel observations are not described
// by a space
func (p *PixelObservation) ObservationSpace() msgym.Space {
	return nil
}

// Observation adds the current rendering to obs
func (p *PixelObservation) Observation(obs *gdict.Dict) (*gdict.Dict,
	error) {
	if !p.pixelsOnly && obs.Has(p.pixelKey) {
		return nil, fmt.Errorf("observation: key %q already in observation",
			p.pixelKey)
	}

	img, err := p.Environment.Render(msgym.RenderRGBArray)
	if err != nil {
		return nil, fmt.Errorf("observation: %w", err)
	}
	pixels, err := NormalizeImage(img)
	if err != nil {
		return nil, fmt.Errorf("observation: %w", err)
	}

	out := gdict.New()
	if !p.pixelsOnly {
		out = obs.Copy()
	}
	out.Set(p.pixelKey, pixels)
	return out, nil
}

// Reset resets the environment and returns the pixel observation
func (p *PixelObservation) Reset(opts ...msgym.ResetOption) (*gdict.Dict,
	error) {
	obs, err := p.Environment.Reset(opts...)
	if err != nil {
		return nil, err
	}
	return p.Observation(obs)
}

// Step takes one environmental step and returns the pixel observation
func (p *PixelObservation) Step(a *mat.VecDense) (*gdict.Dict, float64, bool,
	*gdict.Dict, error) {
	obs, reward, done, info, err := p.Environment.Step(a)
	if err != nil {
		return nil, 0, false, nil, err
	}
	obs, err = p.Observation(obs)
	if err != nil {
		return nil, 0, false, nil, fmt.Errorf("step: %w", err)
	}
	return obs, reward, done, info, nil
}
