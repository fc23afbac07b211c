package obsproc

import (
	"fmt"

	"github.com/emer/etable/etensor"
	"github.com/samuelfneumann/msgym/gdict"
	"github.com/samuelfneumann/msgym/imageutil"
)

// ImageSize is the height and width images are resized to
type ImageSize struct {
	Height int `yaml:"height"`
	Width  int `yaml:"width"`
}

// RGBD converts a ManiSkill2 RGB-D observation, e.g.
//
//	{image: {hand_camera: {rgb: [H, W, 3], depth: [H, W, 1], ...},
//	         base_camera: {rgb: [H, W, 3], depth: [H, W, 1], ...}},
//	 agent: {qpos: [9], qvel: [9], base_pose: [7], ...},
//	 extra: {tcp_pose: [7], goal_pos: [3]}}
//
// into a dictionary holding the per-camera images stacked along the
// channel axis, in camera order, and the flattened remaining state:
//
//	rgb   uint8   [3 * cameras, H, W]
//	depth float32 [cameras, H, W]
//	state float32 [S]
//
// RGB images must be uint8 in [0, 255]. When size is not nil and
// differs from the camera resolution, images are resized bilinearly.
// If extra holds both tcp_pose and goal_pos, their difference is added
// to the state as extra/tcp_to_goal_pos.
func RGBD(obs *gdict.Dict, size *ImageSize) (*gdict.Dict, error) {
	obs = obs.Copy()

	v, ok := obs.Delete("image")
	if !ok {
		return nil, fmt.Errorf("rgbd: no image in observation")
	}
	images, ok := v.(*gdict.Dict)
	if !ok || images.Len() == 0 {
		return nil, fmt.Errorf("rgbd: image observation holds no cameras")
	}

	var rgbs, depths []etensor.Tensor
	for _, camera := range images.Keys() {
		cam, err := images.Dict(camera)
		if err != nil {
			return nil, fmt.Errorf("rgbd: %w", err)
		}

		rgb, err := cam.Tensor("rgb")
		if err != nil {
			return nil, fmt.Errorf("rgbd: camera %q: %w", camera, err)
		}
		if _, ok := rgb.(*etensor.Uint8); !ok {
			return nil, fmt.Errorf("rgbd: camera %q: rgb must be uint8, got "+
				"%T", camera, rgb)
		}
		depth, err := cam.Tensor("depth")
		if err != nil {
			return nil, fmt.Errorf("rgbd: camera %q: %w", camera, err)
		}

		rgbs = append(rgbs, rgb)
		depths = append(depths, gdict.ToFloat32(depth))
	}

	rgb, err := gdict.Concat(2, rgbs...)
	if err != nil {
		return nil, fmt.Errorf("rgbd: stacking rgb: %w", err)
	}
	depth, err := gdict.Concat(2, depths...)
	if err != nil {
		return nil, fmt.Errorf("rgbd: stacking depth: %w", err)
	}

	if extra, err := obs.Dict("extra"); err == nil &&
		extra.Has("tcp_pose") && extra.Has("goal_pos") {
		tcp, err := Position(extra, "tcp_pose")
		if err != nil {
			return nil, fmt.Errorf("rgbd: %w", err)
		}
		goal, err := Position(extra, "goal_pos")
		if err != nil {
			return nil, fmt.Errorf("rgbd: %w", err)
		}
		extra.Set("tcp_to_goal_pos", gdict.Vector(goal[0]-tcp[0],
			goal[1]-tcp[1], goal[2]-tcp[2]))
	}

	state, err := gdict.FlattenState(obs)
	if err != nil {
		return nil, fmt.Errorf("rgbd: %w", err)
	}

	shape := rgb.Shapes()
	if size != nil && (size.Height != shape[0] || size.Width != shape[1]) {
		if rgb, err = imageutil.Resize(rgb, size.Width, size.Height); err != nil {
			return nil, fmt.Errorf("rgbd: %w", err)
		}
		if depth, err = imageutil.Resize(depth, size.Width,
			size.Height); err != nil {
			return nil, fmt.Errorf("rgbd: %w", err)
		}
	}

	rgbCHW, err := gdict.HWCToCHW(rgb)
	if err != nil {
		return nil, fmt.Errorf("rgbd: %w", err)
	}
	depthCHW, err := gdict.HWCToCHW(gdict.ToFloat32(depth))
	if err != nil {
		return nil, fmt.Errorf("rgbd: %w", err)
	}

	out := gdict.New()
	out.Set("rgb", rgbCHW)
	out.Set("depth", depthCHW)
	out.Set("state", gdict.NewFloat32([]int{len(state)}, state))
	return out, nil
}
