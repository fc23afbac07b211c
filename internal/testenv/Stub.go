// Package testenv provides a deterministic, in-process stand-in for a
// ManiSkill2 simulator, used to exercise wrappers and observation
// processing without Python.
package testenv

import (
	"fmt"

	"github.com/samuelfneumann/msgym"
	"github.com/samuelfneumann/msgym/gdict"
	"gonum.org/v1/gonum/mat"
)

// Observation geometry of the stub
const (
	ImageHeight = 8
	ImageWidth  = 6
	NumPoints   = 64
	NumJoints   = 3
)

// Config configures a Stub
type Config struct {
	ObsMode string

	// Discrete selects a Discrete(4) action space instead of a
	// 3-dimensional Box in [-1, 1]
	Discrete bool

	// EpisodeLength is the number of steps until done. Zero means
	// episodes never end.
	EpisodeLength int

	// Reward is returned on every step
	Reward float64

	// RenderDict makes Render return {"world": {"rgb": image}} instead
	// of a bare image
	RenderDict bool

	// GoalPose replaces extra/goal_pos by extra/goal_pose
	GoalPose bool
}

// Stub is a deterministic ManiSkill2-like environment. Its simulator
// state is the joint position vector followed by the step count.
type Stub struct {
	cfg         Config
	actionSpace msgym.Space

	qpos  []float64
	steps int
	level int

	// Resets records the configuration of every Reset call
	Resets []msgym.ResetConfig

	// Actions records every action passed to Step
	Actions []*mat.VecDense

	// Closed is set by Close
	Closed bool
}

// New returns a new Stub
func New(cfg Config) *Stub {
	if cfg.ObsMode == "" {
		cfg.ObsMode = msgym.ObsModeState
	}

	var space msgym.Space
	var err error
	if cfg.Discrete {
		space, err = msgym.NewDiscrete(4)
	} else {
		space, err = msgym.NewUniformBox(NumJoints, -1, 1)
	}
	if err != nil {
		panic(fmt.Sprintf("new: could not create action space: %v", err))
	}

	return &Stub{
		cfg:         cfg,
		actionSpace: space,
		qpos:        make([]float64, NumJoints),
	}
}

// Name gets the name of the environment
func (s *Stub) Name() string {
	return "Stub-" + s.cfg.ObsMode
}

// ObsMode returns the observation mode of the environment
func (s *Stub) ObsMode() string {
	return s.cfg.ObsMode
}

// Level returns the level passed to the last Reset
func (s *Stub) Level() (int, bool) {
	return s.level, true
}

// ActionSpace returns the action space
func (s *Stub) ActionSpace() msgym.Space {
	return s.actionSpace
}

// ObservationSpace returns nil; the stub does not describe its
// observations
func (s *Stub) ObservationSpace() msgym.Space {
	return nil
}

// Seed seeds the action space
func (s *Stub) Seed(seed int) ([]int, error) {
	s.actionSpace.Seed(uint64(seed))
	return []int{seed}, nil
}

// Reset resets the episode. A level, if given, becomes the initial
// position of the first joint.
func (s *Stub) Reset(opts ...msgym.ResetOption) (*gdict.Dict, error) {
	cfg := msgym.NewResetConfig(opts...)
	s.Resets = append(s.Resets, cfg)

	s.steps = 0
	s.qpos = make([]float64, NumJoints)
	if cfg.HasLevel {
		s.level = cfg.Level
		s.qpos[0] = float64(cfg.Level)
	}
	return s.GetObs()
}

// Step adds the action to the joint positions. Discrete actions add
// the action index to the first joint.
func (s *Stub) Step(a *mat.VecDense) (*gdict.Dict, float64, bool,
	*gdict.Dict, error) {
	s.Actions = append(s.Actions, mat.VecDenseCopyOf(a))

	if s.cfg.Discrete {
		s.qpos[0] += a.AtVec(0)
	} else {
		if a.Len() != NumJoints {
			return nil, 0, false, nil, fmt.Errorf("step: expected %v "+
				"action dimensions, got %v", NumJoints, a.Len())
		}
		for i := range s.qpos {
			s.qpos[i] += a.AtVec(i)
		}
	}
	s.steps++

	done := s.cfg.EpisodeLength > 0 && s.steps >= s.cfg.EpisodeLength
	info := gdict.New()
	info.Set("elapsed_steps", s.steps)
	info.Set("success", done)
	info.Set("dist", 0.5)

	obs, err := s.GetObs()
	if err != nil {
		return nil, 0, false, nil, err
	}
	return obs, s.cfg.Reward, done, info, nil
}

// Render returns a float64 image in [0, 2] so that consumers must clip
// it. In human mode nothing is returned.
func (s *Stub) Render(mode string) (interface{}, error) {
	if mode == msgym.RenderHuman {
		return nil, nil
	}

	img := gdict.NewFloat64([]int{1, ImageHeight, ImageWidth, 4}, nil)
	for i := range img.Values {
		img.Values[i] = float64(i%5) / 2
	}
	if !s.cfg.RenderDict {
		return img, nil
	}

	world := gdict.New()
	world.Set("rgb", img)
	out := gdict.New()
	out.Set("world", world)
	return out, nil
}

// Close marks the environment as closed
func (s *Stub) Close() {
	s.Closed = true
}

// GetObs returns the observation for the current state
func (s *Stub) GetObs() (*gdict.Dict, error) {
	return Observation(s.cfg, s.qpos, s.steps), nil
}

// GetState returns the joint positions followed by the step count
func (s *Stub) GetState() ([]float64, error) {
	return append(append([]float64(nil), s.qpos...), float64(s.steps)), nil
}

// SetState restores a state returned by GetState
func (s *Stub) SetState(state []float64) error {
	if len(state) != NumJoints+1 {
		return fmt.Errorf("setState: expected %v elements, got %v",
			NumJoints+1, len(state))
	}
	copy(s.qpos, state[:NumJoints])
	s.steps = int(state[NumJoints])
	return nil
}

// Observation builds the raw observation of an environment in the
// given configuration at joint positions qpos after steps steps
func Observation(cfg Config, qpos []float64, steps int) *gdict.Dict {
	if cfg.ObsMode == msgym.ObsModeState {
		state := append([]float64(nil), qpos...)
		state = append(state, float64(steps))
		obs := gdict.New()
		obs.Set("state", gdict.Vector(state...))
		return obs
	}

	obs := gdict.New()
	switch cfg.ObsMode {
	case msgym.ObsModeRGBD:
		images := gdict.New()
		images.Set("hand_camera", Camera(10))
		images.Set("base_camera", Camera(20))
		obs.Set("image", images)
	case msgym.ObsModePointCloud:
		obs.Set("pointcloud", PointCloudXYZW())
	case msgym.ObsModeParticles:
		particles := gdict.New()
		particles.Set("x", gdict.NewFloat32([]int{NumPoints, 3}, nil))
		particles.Set("v", gdict.NewFloat32([]int{NumPoints, 3}, nil))
		obs.Set("particles", particles)
	}
	obs.Set("agent", Agent(qpos))
	obs.Set("extra", Extra(cfg.GoalPose))
	return obs
}

// Camera returns a camera observation whose rgb pixels all equal
// value and whose depth increases along each row
func Camera(value uint8) *gdict.Dict {
	rgb := gdict.NewUint8([]int{ImageHeight, ImageWidth, 3}, nil)
	for i := range rgb.Values {
		rgb.Values[i] = value
	}
	depth := gdict.NewFloat32([]int{ImageHeight, ImageWidth, 1}, nil)
	for i := range depth.Values {
		depth.Values[i] = float32(i % ImageWidth)
	}

	cam := gdict.New()
	cam.Set("rgb", rgb)
	cam.Set("depth", depth)
	cam.Set("camera_intrinsic", gdict.NewFloat64([]int{3, 3}, nil))
	return cam
}

// PointCloudXYZW returns NumPoints points on a line. Every fourth point
// lies outside the depth range (w = 0) and the first point lies on the
// ground.
func PointCloudXYZW() *gdict.Dict {
	xyzw := gdict.NewFloat32([]int{NumPoints, 4}, nil)
	rgb := gdict.NewUint8([]int{NumPoints, 3}, nil)
	for i := 0; i < NumPoints; i++ {
		xyzw.Values[i*4] = float32(i) / 10
		xyzw.Values[i*4+1] = 0
		xyzw.Values[i*4+2] = float32(i) / 100
		if i%4 != 3 {
			xyzw.Values[i*4+3] = 1
		}
		rgb.Values[i*3] = 255
	}

	pcd := gdict.New()
	pcd.Set("xyzw", xyzw)
	pcd.Set("rgb", rgb)
	return pcd
}

// Agent returns the agent observation: joint positions, zero joint
// velocities, an empty controller state and a base pose at (1, 0, 0)
// with identity rotation
func Agent(qpos []float64) *gdict.Dict {
	controller := gdict.New()
	controller.Set("arm", gdict.New())

	agent := gdict.New()
	agent.Set("qpos", gdict.Vector(qpos...))
	agent.Set("qvel", gdict.NewFloat64([]int{len(qpos)}, nil))
	agent.Set("controller", controller)
	agent.Set("base_pose", gdict.Vector(1, 0, 0, 1, 0, 0, 0))
	return agent
}

// Extra returns the task observation: a tcp pose at (1, 0, 0.5) and a
// goal at (1, 0.2, 0.5), given as a position or, if goalPose is true,
// as a pose rotated 90 degrees about z
func Extra(goalPose bool) *gdict.Dict {
	extra := gdict.New()
	extra.Set("tcp_pose", gdict.Vector(1, 0, 0.5, 1, 0, 0, 0))
	if goalPose {
		extra.Set("goal_pose", gdict.Vector(1, 0.2, 0.5, 0.7071067811865476,
			0, 0, 0.7071067811865476))
	} else {
		extra.Set("goal_pos", gdict.Vector(1, 0.2, 0.5))
	}
	return extra
}
