package obsproc

import (
	"fmt"

	"github.com/emer/etable/etensor"
	"github.com/samuelfneumann/msgym/gdict"
	"github.com/samuelfneumann/msgym/pose"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"
	"gonum.org/v1/gonum/stat/distmv"
)

// goalPointSpread is the half-width of the cube goal points are sampled
// in around the goal position
const goalPointSpread = 0.01

// pointFields are the per-point fields kept from the raw point cloud
var pointFields = []string{"xyz", "rgb", "robot_seg"}

// frameKeys are entries of obs["extra"] already folded into the
// frame-relative states and so excluded from the trailing state vector
var frameKeys = map[string]struct{}{
	"tcp_pose":         {},
	"goal_pos":         {},
	"goal_pose":        {},
	"tcp_to_goal_pos":  {},
	"tcp_to_goal_pose": {},
	"joint_axis":       {},
	"link_pos":         {},
}

// PointCloudConfig configures PointCloud
type PointCloudConfig struct {
	// Frame is the reference frame points and states are expressed in
	Frame Frame

	// NPoints is the number of points kept after downsampling
	NPoints int

	// NGoalPoints is the number of synthetic goal points appended to
	// the cloud. Values <= 0 disable goal points.
	NGoalPoints int

	// GroundEps is the ground height threshold used when downsampling
	GroundEps float64

	// SkipDownsample disables downsampling, e.g. when the simulator
	// already preprocesses its point clouds
	SkipDownsample bool
}

// DefaultPointCloudConfig returns the default point cloud configuration:
// base frame, 1200 points and no goal points
func DefaultPointCloudConfig() PointCloudConfig {
	return PointCloudConfig{
		Frame:       FrameBase,
		NPoints:     1200,
		NGoalPoints: -1,
		GroundEps:   DefaultGroundEps,
	}
}

// PointCloud converts a ManiSkill2 point cloud observation, e.g.
//
//	{pointcloud: {xyz: [N, 3], rgb: [N, 3]},
//	 agent: {qpos: [9], qvel: [9], base_pose: [7], ...},
//	 extra: {tcp_pose: [7], goal_pos: [3], ...}}
//
// into a dictionary holding
//
//	xyz                      [P, 3] points in the configured frame
//	rgb                      [P, 3] colours in [0, 1]
//	robot_seg                [P, ...] if present in the input
//	frame_related_states     [K, 3] positions and axes in the frame
//	frame_goal_related_poses [M, 7] goal poses in the frame, if any
//	to_frames                [F, 4, 4] frame-to-object transforms
//	state                    flat agent state
//
// where P is the downsampled point count plus the number of goal
// points.
//
// An "xyzw" field may replace "xyz"; its last column marks points
// inside the camera depth range and points with w <= 0.5 are dropped.
func PointCloud(obs *gdict.Dict, cfg PointCloudConfig,
	rng *rand.Rand) (*gdict.Dict, error) {
	toOrigin, err := ToOrigin(obs, cfg.Frame)
	if err != nil {
		return nil, fmt.Errorf("pointCloud: %w", err)
	}

	raw, err := obs.Dict("pointcloud")
	if err != nil {
		return nil, fmt.Errorf("pointCloud: %w", err)
	}
	pcd, err := maskValid(raw.Copy())
	if err != nil {
		return nil, fmt.Errorf("pointCloud: %w", err)
	}

	ret := gdict.New()
	for _, key := range pointFields {
		if v, ok := pcd.Get(key); ok {
			ret.Set(key, v)
		}
	}
	if !ret.Has("xyz") {
		return nil, fmt.Errorf("pointCloud: no xyz in point cloud")
	}
	if rgb, err := ret.Tensor("rgb"); err == nil {
		ret.Set("rgb", scale(rgb, 1.0/255))
	}

	if !cfg.SkipDownsample {
		err := UniformDownsample(ret, cfg.GroundEps, cfg.NPoints, rng)
		if err != nil {
			return nil, fmt.Errorf("pointCloud: %w", err)
		}
	}

	xyz, err := ret.Tensor("xyz")
	if err != nil {
		return nil, fmt.Errorf("pointCloud: %w", err)
	}
	transformed, err := applyPoseToTensor(toOrigin, xyz)
	if err != nil {
		return nil, fmt.Errorf("pointCloud: %w", err)
	}
	ret.Set("xyz", transformed)

	extra, err := obs.Dict("extra")
	if err != nil {
		extra = gdict.New()
	}
	goals, err := readGoals(extra)
	if err != nil {
		return nil, fmt.Errorf("pointCloud: %w", err)
	}

	if cfg.NGoalPoints > 0 {
		if goals.goalPos == nil {
			return nil, fmt.Errorf("pointCloud: goal points requested but " +
				"the observation holds no goal_pos or goal_pose")
		}
		if err := appendGoalPoints(ret, toOrigin, *goals.goalPos,
			cfg.NGoalPoints, rng); err != nil {
			return nil, fmt.Errorf("pointCloud: %w", err)
		}
	}

	frameStates, err := frameRelatedStates(obs, extra, goals, toOrigin)
	if err != nil {
		return nil, fmt.Errorf("pointCloud: %w", err)
	}
	frameStatesTensor, err := gdict.Stack(frameStates...)
	if err != nil {
		return nil, fmt.Errorf("pointCloud: %w", err)
	}
	ret.Set("frame_related_states", frameStatesTensor)

	var goalPoses [][]float64
	if goals.goalPose != nil {
		goalPoses = append(goalPoses, toOrigin.Mul(*goals.goalPose).Vector())
		if goals.tcpPose != nil {
			tcpToGoal := goals.goalPose.Mul(goals.tcpPose.Inv())
			goalPoses = append(goalPoses, toOrigin.Mul(tcpToGoal).Vector())
		}
		t, err := gdict.Stack(goalPoses...)
		if err != nil {
			return nil, fmt.Errorf("pointCloud: %w", err)
		}
		ret.Set("frame_goal_related_poses", t)
	}

	toFrames, err := frameTransforms(obs, goals, toOrigin)
	if err != nil {
		return nil, fmt.Errorf("pointCloud: %w", err)
	}
	ret.Set("to_frames", toFrames)

	state, err := agentState(obs, extra, frameStates, goalPoses)
	if err != nil {
		return nil, fmt.Errorf("pointCloud: %w", err)
	}
	ret.Set("state", gdict.NewFloat32([]int{len(state)}, state))

	return ret, nil
}

// maskValid replaces an xyzw field by xyz, keeping only the points
// whose w component exceeds 0.5
func maskValid(pcd *gdict.Dict) (*gdict.Dict, error) {
	v, ok := pcd.Delete("xyzw")
	if !ok {
		return pcd, nil
	}
	if pcd.Has("xyz") {
		return nil, fmt.Errorf("maskValid: point cloud holds both xyz and " +
			"xyzw")
	}

	xyzw, ok := v.(etensor.Tensor)
	if !ok || len(xyzw.Shapes()) != 2 || xyzw.Shapes()[1] != 4 {
		return nil, fmt.Errorf("maskValid: expected N x 4 xyzw")
	}
	n := xyzw.Shapes()[0]

	keep := make([]bool, n)
	for i := range keep {
		keep[i] = xyzw.FloatVal1D(i*4+3) > 0.5
	}

	for _, key := range pcd.Keys() {
		fv, _ := pcd.Get(key)
		t, ok := fv.(etensor.Tensor)
		if !ok || len(t.Shapes()) == 0 || t.Shapes()[0] != n {
			continue
		}
		masked, err := gdict.Mask(t, keep)
		if err != nil {
			return nil, fmt.Errorf("maskValid: %q: %w", key, err)
		}
		pcd.Set(key, masked)
	}

	xyz, err := gdict.Columns(xyzw, 0, 3)
	if err != nil {
		return nil, fmt.Errorf("maskValid: %w", err)
	}
	xyz, err = gdict.Mask(xyz, keep)
	if err != nil {
		return nil, fmt.Errorf("maskValid: %w", err)
	}
	pcd.Set("xyz", xyz)
	return pcd, nil
}

// scale returns a float32 copy of t multiplied by s
func scale(t etensor.Tensor, s float64) *etensor.Float32 {
	out := gdict.NewFloat32(gdict.Shape(t), nil)
	for i := range out.Values {
		out.Values[i] = float32(t.FloatVal1D(i) * s)
	}
	return out
}

// applyPoseToTensor transforms an N x 3 point tensor by p
func applyPoseToTensor(p pose.Pose, points etensor.Tensor) (*etensor.Float32,
	error) {
	m, err := gdict.Dense(points)
	if err != nil {
		return nil, fmt.Errorf("applyPoseToTensor: %w", err)
	}
	out, err := p.ApplyPoints(m)
	if err != nil {
		return nil, fmt.Errorf("applyPoseToTensor: %w", err)
	}
	return gdict.FromDense(out), nil
}

// taskPoses collects the optional task poses of obs["extra"]
type taskPoses struct {
	tcpPose      *pose.Pose
	tcpPos       *[3]float64
	goalPos      *[3]float64
	goalPose     *pose.Pose
	tcpToGoalPos *[3]float64
}

func readGoals(extra *gdict.Dict) (taskPoses, error) {
	var g taskPoses
	if extra.Has("tcp_pose") {
		p, err := PoseAt(extra, "tcp_pose")
		if err != nil {
			return g, err
		}
		tcpPos, _ := Position(extra, "tcp_pose")
		g.tcpPose, g.tcpPos = &p, &tcpPos
	}

	switch {
	case extra.Has("goal_pos"):
		pos, err := Position(extra, "goal_pos")
		if err != nil {
			return g, err
		}
		g.goalPos = &pos
	case extra.Has("goal_pose"):
		p, err := PoseAt(extra, "goal_pose")
		if err != nil {
			return g, err
		}
		pos, _ := Position(extra, "goal_pose")
		g.goalPos, g.goalPose = &pos, &p
	}

	if g.tcpPos != nil && g.goalPos != nil {
		d := [3]float64{
			g.goalPos[0] - g.tcpPos[0],
			g.goalPos[1] - g.tcpPos[1],
			g.goalPos[2] - g.tcpPos[2],
		}
		g.tcpToGoalPos = &d
	}
	return g, nil
}

// appendGoalPoints samples n points uniformly in a small cube around
// goalPos, transforms them into the frame and appends them, coloured
// green, to the point cloud. Other per-point fields are padded with
// zeros.
func appendGoalPoints(ret *gdict.Dict, toOrigin pose.Pose, goalPos [3]float64,
	n int, rng *rand.Rand) error {
	bounds := []r1.Interval{
		{Min: -goalPointSpread, Max: goalPointSpread},
		{Min: -goalPointSpread, Max: goalPointSpread},
		{Min: -goalPointSpread, Max: goalPointSpread},
	}
	uniform := distmv.NewUniform(bounds, rng)

	goalXYZ := mat.NewDense(n, 3, nil)
	for i := 0; i < n; i++ {
		offset := uniform.Rand(nil)
		for j := 0; j < 3; j++ {
			goalXYZ.Set(i, j, goalPos[j]+offset[j])
		}
	}
	transformed, err := toOrigin.ApplyPoints(goalXYZ)
	if err != nil {
		return fmt.Errorf("appendGoalPoints: %w", err)
	}

	xyz, _ := ret.Tensor("xyz")
	nPoints := xyz.Shapes()[0]
	for _, key := range ret.Keys() {
		t, err := ret.Tensor(key)
		if err != nil {
			continue
		}
		var extra etensor.Tensor
		switch key {
		case "xyz":
			extra = gdict.FromDense(transformed)
		case "rgb":
			green := gdict.NewFloat32([]int{n, 3}, nil)
			for i := 0; i < n; i++ {
				green.Values[i*3+1] = 1
			}
			extra = green
		default:
			shape := gdict.Shape(t)
			if len(shape) == 0 || shape[0] != nPoints {
				continue
			}
			shape[0] = n
			extra = gdict.NewFloat32(shape, nil)
		}

		joined, err := gdict.Concat(0, t, extra)
		if err != nil {
			return fmt.Errorf("appendGoalPoints: %q: %w", key, err)
		}
		ret.Set(key, joined)
	}
	return nil
}

// frameRelatedStates returns the positions (and axes) of the robot and
// task in the frame: base, tcp, goal, tcp-to-goal, gripper, joint axis
// and link position, each when present
func frameRelatedStates(obs, extra *gdict.Dict, g taskPoses,
	toOrigin pose.Pose) ([][]float64, error) {
	basePos, err := Position(obs, "agent/base_pose")
	if err != nil {
		return nil, err
	}

	apply := func(p [3]float64) []float64 {
		out := toOrigin.Apply(p)
		return out[:]
	}

	states := [][]float64{apply(basePos)}
	if g.tcpPos != nil {
		states = append(states, apply(*g.tcpPos))
	}
	if g.goalPos != nil {
		states = append(states, apply(*g.goalPos))
	}
	if g.tcpToGoalPos != nil {
		states = append(states, apply(*g.tcpToGoalPos))
	}
	if extra.Has("gripper_pose") {
		p, err := Position(extra, "gripper_pose")
		if err != nil {
			return nil, err
		}
		states = append(states, apply(p))
	}
	if extra.Has("joint_axis") {
		axis, err := VectorAt(extra, "joint_axis")
		if err != nil {
			return nil, err
		}
		if len(axis) != 3 {
			return nil, fmt.Errorf("joint_axis has %v elements", len(axis))
		}
		var rotated mat.VecDense
		rotated.MulVec(toOrigin.Rotation(), mat.NewVecDense(3, axis))
		states = append(states, rotated.RawVector().Data)
	}
	if extra.Has("link_pos") {
		p, err := Position(extra, "link_pos")
		if err != nil {
			return nil, err
		}
		states = append(states, apply(p))
	}
	return states, nil
}

// frameTransforms returns the stacked 4 x 4 matrices mapping frame
// coordinates into the base, tcp and goal frames
func frameTransforms(obs *gdict.Dict, g taskPoses,
	toOrigin pose.Pose) (*etensor.Float32, error) {
	basePose, err := PoseAt(obs, "agent/base_pose")
	if err != nil {
		return nil, err
	}

	frames := []pose.Pose{toOrigin.Mul(basePose).Inv()}
	if g.tcpPose != nil {
		frames = append(frames, toOrigin.Mul(*g.tcpPose).Inv())
	}
	if g.goalPose != nil {
		frames = append(frames, toOrigin.Mul(*g.goalPose).Inv())
	}

	out := gdict.NewFloat32([]int{len(frames), 4, 4}, nil)
	for f, frame := range frames {
		m := frame.Matrix()
		for i := 0; i < 4; i++ {
			for j := 0; j < 4; j++ {
				out.Values[f*16+i*4+j] = float32(m.At(i, j))
			}
		}
	}
	return out, nil
}

// agentState concatenates qpos, qvel, the frame-relative states and
// poses, and every remaining entry of extra
func agentState(obs, extra *gdict.Dict, frameStates,
	goalPoses [][]float64) ([]float32, error) {
	var state []float32
	for _, path := range []string{"agent/qpos", "agent/qvel"} {
		v, err := VectorAt(obs, path)
		if err != nil {
			return nil, err
		}
		state = appendFloats(state, v)
	}
	for _, s := range frameStates {
		state = appendFloats(state, s)
	}
	for _, p := range goalPoses {
		state = appendFloats(state, p)
	}

	for _, key := range extra.Keys() {
		if _, ok := frameKeys[key]; ok {
			continue
		}
		v, err := VectorAt(extra, key)
		if err != nil {
			return nil, err
		}
		state = appendFloats(state, v)
	}
	return state, nil
}

func appendFloats(dst []float32, src []float64) []float32 {
	for _, x := range src {
		dst = append(dst, float32(x))
	}
	return dst
}
