package obsproc_test

import (
	"math"
	"testing"

	"github.com/emer/etable/etensor"
	"github.com/samuelfneumann/msgym"
	"github.com/samuelfneumann/msgym/gdict"
	"github.com/samuelfneumann/msgym/internal/testenv"
	"github.com/samuelfneumann/msgym/obsproc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

func pointCloudObs(goalPose bool) *gdict.Dict {
	cfg := testenv.Config{ObsMode: msgym.ObsModePointCloud, GoalPose: goalPose}
	return testenv.Observation(cfg, make([]float64, testenv.NumJoints), 0)
}

func row(t etensor.Tensor, r int) []float64 {
	shape := t.Shapes()
	n := shape[len(shape)-1]
	out := make([]float64, n)
	for i := range out {
		out[i] = t.FloatVal1D(r*n + i)
	}
	return out
}

func TestPointCloudBaseFrame(t *testing.T) {
	obs := pointCloudObs(false)
	before := obs.String()

	cfg := obsproc.DefaultPointCloudConfig()
	cfg.NPoints = 32
	cfg.NGoalPoints = 5
	out, err := obsproc.PointCloud(obs, cfg, rand.New(rand.NewSource(1)))
	require.NoError(t, err)

	assert.Equal(t, before, obs.String(), "input observation was modified")
	assert.Equal(t, []string{"xyz", "rgb", "frame_related_states",
		"to_frames", "state"}, out.Keys())

	xyz, err := out.Tensor("xyz")
	require.NoError(t, err)
	rgb, err := out.Tensor("rgb")
	require.NoError(t, err)
	require.Equal(t, []int{37, 3}, xyz.Shapes())
	require.Equal(t, []int{37, 3}, rgb.Shapes())

	// Sampled points lie on the line x = 10z in world coordinates, above
	// the ground and inside the depth range. The base sits at x = 1.
	seen := map[int]bool{}
	for i := 0; i < 32; i++ {
		p := row(xyz, i)
		assert.Greater(t, p[2], obsproc.DefaultGroundEps)
		assert.InDelta(t, 10*p[2], p[0]+1, 1e-4)
		assert.InDelta(t, 0, p[1], 1e-6)

		idx := int(math.Round(p[2] * 100))
		assert.NotEqual(t, 3, idx%4, "point %v is outside the depth range",
			idx)
		assert.False(t, seen[idx], "point %v sampled twice", idx)
		seen[idx] = true

		assert.Equal(t, []float64{1, 0, 0}, row(rgb, i))
	}

	// Goal points surround the goal at (0, 0.2, 0.5) in the base frame
	for i := 32; i < 37; i++ {
		p := row(xyz, i)
		assert.InDelta(t, 0, p[0], 0.0101)
		assert.InDelta(t, 0.2, p[1], 0.0101)
		assert.InDelta(t, 0.5, p[2], 0.0101)
		assert.Equal(t, []float64{0, 1, 0}, row(rgb, i))
	}

	states, err := out.Tensor("frame_related_states")
	require.NoError(t, err)
	require.Equal(t, []int{4, 3}, states.Shapes())
	want := [][]float64{{0, 0, 0}, {0, 0, 0.5}, {0, 0.2, 0.5}, {-1, 0.2, 0}}
	for i, w := range want {
		assert.InDeltaSlice(t, w, row(states, i), 1e-6, "state %v", i)
	}

	toFrames, err := out.Tensor("to_frames")
	require.NoError(t, err)
	require.Equal(t, []int{2, 4, 4}, toFrames.Shapes())
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			want := 0.0
			if i == j {
				want = 1
			}
			assert.InDelta(t, want, toFrames.FloatVal1D(i*4+j), 1e-6)
		}
	}
	// The tcp sits 0.5 above the base, so the frame maps z to z - 0.5
	assert.InDelta(t, -0.5, toFrames.FloatVal1D(16+2*4+3), 1e-6)

	state, err := out.Tensor("state")
	require.NoError(t, err)
	_, ok := state.(*etensor.Float32)
	assert.True(t, ok)
	require.Equal(t, []int{18}, state.Shapes())
	assert.InDelta(t, 0.5, state.FloatVal1D(11), 1e-6)
	assert.InDelta(t, -1, state.FloatVal1D(15), 1e-6)
}

func TestPointCloudWorldFrame(t *testing.T) {
	base := obsproc.DefaultPointCloudConfig()
	base.NPoints = 16
	base.NGoalPoints = 4
	world := base
	world.Frame = obsproc.FrameWorld

	want, err := obsproc.PointCloud(pointCloudObs(false), base,
		rand.New(rand.NewSource(2)))
	require.NoError(t, err)
	out, err := obsproc.PointCloud(pointCloudObs(false), world,
		rand.New(rand.NewSource(2)))
	require.NoError(t, err)

	// The world frame is expressed relative to the robot base
	assert.Equal(t, want.Keys(), out.Keys())
	for _, key := range want.Keys() {
		w, err := want.Tensor(key)
		require.NoError(t, err)
		o, err := out.Tensor(key)
		require.NoError(t, err)
		assert.Equal(t, gdict.Float64s(w), gdict.Float64s(o), key)
	}

	states, err := out.Tensor("frame_related_states")
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0, 0, 0}, row(states, 0), 1e-6)
	assert.InDeltaSlice(t, []float64{0, 0.2, 0.5}, row(states, 2), 1e-6)
}

func TestPointCloudGoalPose(t *testing.T) {
	cfg := obsproc.DefaultPointCloudConfig()
	cfg.NPoints = 8
	out, err := obsproc.PointCloud(pointCloudObs(true), cfg,
		rand.New(rand.NewSource(3)))
	require.NoError(t, err)

	poses, err := out.Tensor("frame_goal_related_poses")
	require.NoError(t, err)
	require.Equal(t, []int{2, 7}, poses.Shapes())
	goal := row(poses, 0)
	assert.InDeltaSlice(t, []float64{0, 0.2, 0.5}, goal[:3], 1e-6)
	assert.InDelta(t, math.Sqrt2/2, goal[3], 1e-6)
	assert.InDelta(t, math.Sqrt2/2, goal[6], 1e-6)

	toFrames, err := out.Tensor("to_frames")
	require.NoError(t, err)
	assert.Equal(t, []int{3, 4, 4}, toFrames.Shapes())

	state, err := out.Tensor("state")
	require.NoError(t, err)
	assert.Equal(t, []int{6 + 4*3 + 2*7}, state.Shapes())
}

func TestPointCloudSkipDownsample(t *testing.T) {
	cfg := obsproc.DefaultPointCloudConfig()
	cfg.SkipDownsample = true
	out, err := obsproc.PointCloud(pointCloudObs(false), cfg, nil)
	require.NoError(t, err)

	xyz, err := out.Tensor("xyz")
	require.NoError(t, err)
	assert.Equal(t, []int{testenv.NumPoints * 3 / 4, 3}, xyz.Shapes())
}

func TestPointCloudGoalPointsWithoutGoal(t *testing.T) {
	obs := pointCloudObs(false)
	extra, err := obs.Dict("extra")
	require.NoError(t, err)
	extra.Delete("goal_pos")

	cfg := obsproc.DefaultPointCloudConfig()
	cfg.NPoints = 8
	cfg.NGoalPoints = 4
	_, err = obsproc.PointCloud(obs, cfg, rand.New(rand.NewSource(1)))
	assert.Error(t, err)

	cfg.NGoalPoints = 0
	_, err = obsproc.PointCloud(obs, cfg, rand.New(rand.NewSource(1)))
	assert.NoError(t, err)
}

func TestPointCloudExtraState(t *testing.T) {
	obs := pointCloudObs(false)
	extra, err := obs.Dict("extra")
	require.NoError(t, err)
	extra.Set("obj_dist", 0.25)

	cfg := obsproc.DefaultPointCloudConfig()
	cfg.NPoints = 8
	out, err := obsproc.PointCloud(obs, cfg, rand.New(rand.NewSource(1)))
	require.NoError(t, err)

	state, err := out.Tensor("state")
	require.NoError(t, err)
	require.Equal(t, []int{19}, state.Shapes())
	assert.InDelta(t, 0.25, state.FloatVal1D(18), 1e-6)
}
