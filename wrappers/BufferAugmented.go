package wrappers

import (
	"errors"
	"fmt"

	"github.com/emer/etable/etensor"
	"github.com/samuelfneumann/msgym"
	"github.com/samuelfneumann/msgym/gdict"
	"gonum.org/v1/gonum/mat"
)

// ErrNoVisBuffer is returned when an image is rendered into a
// BufferAugmented wrapper that has no visualisation buffer
var ErrNoVisBuffer = errors.New("no visualisation buffer")

// Buffers are the preallocated outputs a BufferAugmented wrapper writes
// into. Obs receives reset and step observations, Reward and Done are
// single element tensors and VisImg, which may be nil, receives
// rendered images.
type Buffers struct {
	Obs    *gdict.Dict
	Reward etensor.Tensor
	Done   etensor.Tensor
	Info   *gdict.Dict
	VisImg etensor.Tensor
}

// BufferAugmented writes the outputs of Reset, Step and Render into
// preallocated buffers, so that a process owning the buffers can read
// them without copying. All writes are in place: tensors already held
// by the buffers are overwritten element by element.
//
// BufferAugmented does not synchronise access to the buffers.
type BufferAugmented struct {
	Wrapper

	buffers Buffers
}

// NewBufferAugmented returns a new BufferAugmented wrapper
func NewBufferAugmented(env msgym.Environment,
	buffers Buffers) (*BufferAugmented, error) {
	if buffers.Obs == nil || buffers.Info == nil {
		return nil, fmt.Errorf("newBufferAugmented: observation and step " +
			"information buffers are required")
	}
	if buffers.Reward == nil || buffers.Reward.Len() != 1 {
		return nil, fmt.Errorf("newBufferAugmented: reward buffer must hold " +
			"one element")
	}
	if buffers.Done == nil || buffers.Done.Len() != 1 {
		return nil, fmt.Errorf("newBufferAugmented: done buffer must hold " +
			"one element")
	}

	return &BufferAugmented{
		Wrapper: Wrapper{env},
		buffers: buffers,
	}, nil
}

// Name gets the name of the environment
func (b *BufferAugmented) Name() string {
	return fmt.Sprintf("BufferAugmented(%v)", b.Environment.Name())
}

// Buffers returns the buffers written to
func (b *BufferAugmented) Buffers() Buffers {
	return b.buffers
}

// Reset resets the environment and writes the observation into the
// observation buffer, which is returned
func (b *BufferAugmented) Reset(opts ...msgym.ResetOption) (*gdict.Dict,
	error) {
	obs, err := b.Environment.Reset(opts...)
	if err != nil {
		return nil, err
	}
	if err := gdict.AssignAll(b.buffers.Obs, obs); err != nil {
		return nil, fmt.Errorf("reset: %w", err)
	}
	return b.buffers.Obs, nil
}

// Step takes one environmental step and writes its outputs into the
// observation, reward, done and step information buffers. The
// observation and step information buffers are returned.
func (b *BufferAugmented) Step(a *mat.VecDense) (*gdict.Dict, float64, bool,
	*gdict.Dict, error) {
	obs, reward, done, info, err := b.Environment.Step(a)
	if err != nil {
		return nil, 0, false, nil, err
	}

	if err := gdict.AssignAll(b.buffers.Obs, obs); err != nil {
		return nil, 0, false, nil, fmt.Errorf("step: %w", err)
	}
	if err := gdict.AssignAll(b.buffers.Info, info); err != nil {
		return nil, 0, false, nil, fmt.Errorf("step: %w", err)
	}
	b.buffers.Reward.SetFloat1D(0, reward)
	if done {
		b.buffers.Done.SetFloat1D(0, 1)
	} else {
		b.buffers.Done.SetFloat1D(0, 0)
	}

	return b.buffers.Obs, reward, done, b.buffers.Info, nil
}

// Render renders the environment and writes a rendered image into the
// visualisation buffer, which is returned. Modes that render nothing
// return nil.
func (b *BufferAugmented) Render(mode string) (interface{}, error) {
	img, err := b.Environment.Render(mode)
	if err != nil || img == nil {
		return nil, err
	}
	if b.buffers.VisImg == nil {
		return nil, fmt.Errorf("render: %w", ErrNoVisBuffer)
	}

	t, ok := img.(etensor.Tensor)
	if !ok {
		return nil, fmt.Errorf("render: expected image tensor, got %T", img)
	}
	if err := gdict.AssignTensor(b.buffers.VisImg, t); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return b.buffers.VisImg, nil
}
