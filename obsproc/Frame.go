// Package obsproc converts raw ManiSkill2 observations into the
// representations consumed by learning algorithms: point clouds in a
// chosen reference frame, stacked RGB-D images and particle states.
//
// All functions leave their argument observations unmodified.
package obsproc

import (
	"errors"
	"fmt"

	"github.com/emer/etable/etensor"
	"github.com/samuelfneumann/msgym/gdict"
	"github.com/samuelfneumann/msgym/pose"
)

// ErrUnknownFrame is returned for reference frames other than base,
// world and ee
var ErrUnknownFrame = errors.New("unknown reference frame")

// Frame is the coordinate system positional observations are expressed
// in
type Frame string

// Supported reference frames
const (
	FrameBase  Frame = "base"
	FrameWorld Frame = "world"
	FrameEE    Frame = "ee"
)

// ParseFrame parses a reference frame name
func ParseFrame(name string) (Frame, error) {
	switch f := Frame(name); f {
	case FrameBase, FrameWorld, FrameEE:
		return f, nil
	default:
		return "", fmt.Errorf("parseFrame: %q: %w", name, ErrUnknownFrame)
	}
}

// ToOrigin returns the pose mapping world coordinates into frame. For
// the base and world frames this is the inverse robot base pose
// (agent/base_pose), for the ee frame the inverse tool centre point
// pose (extra/tcp_pose).
func ToOrigin(obs *gdict.Dict, frame Frame) (pose.Pose, error) {
	switch frame {
	case FrameBase, FrameWorld:
		p, err := PoseAt(obs, "agent/base_pose")
		if err != nil {
			return pose.Pose{}, fmt.Errorf("toOrigin: %w", err)
		}
		return p.Inv(), nil

	case FrameEE:
		p, err := PoseAt(obs, "extra/tcp_pose")
		if err != nil {
			return pose.Pose{}, fmt.Errorf("toOrigin: %w", err)
		}
		return p.Inv(), nil

	default:
		return pose.Pose{}, fmt.Errorf("toOrigin: %q: %w", frame,
			ErrUnknownFrame)
	}
}

// VectorAt returns the tensor or scalar at path as a []float64
func VectorAt(obs *gdict.Dict, path string) ([]float64, error) {
	v, ok := obs.Path(path)
	if !ok {
		return nil, fmt.Errorf("no observation at %q", path)
	}
	if t, ok := v.(etensor.Tensor); ok {
		return gdict.Float64s(t), nil
	}
	f, ok := gdict.ScalarFloat(v)
	if !ok {
		return nil, fmt.Errorf("observation at %q is %T, not numeric", path, v)
	}
	return []float64{f}, nil
}

// PoseAt returns the 7-element pose vector at path as a pose.Pose
func PoseAt(obs *gdict.Dict, path string) (pose.Pose, error) {
	v, err := VectorAt(obs, path)
	if err != nil {
		return pose.Pose{}, err
	}
	p, err := pose.FromVector(v)
	if err != nil {
		return pose.Pose{}, fmt.Errorf("pose at %q: %w", path, err)
	}
	return p, nil
}

// Position returns the first three elements of the vector at path
func Position(obs *gdict.Dict, path string) ([3]float64, error) {
	v, err := VectorAt(obs, path)
	if err != nil {
		return [3]float64{}, err
	}
	if len(v) < 3 {
		return [3]float64{}, fmt.Errorf("position at %q has %v elements",
			path, len(v))
	}
	return [3]float64{v[0], v[1], v[2]}, nil
}
