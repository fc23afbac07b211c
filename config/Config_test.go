package config_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/emer/etable/etensor"
	"github.com/samuelfneumann/msgym"
	"github.com/samuelfneumann/msgym/config"
	"github.com/samuelfneumann/msgym/gdict"
	"github.com/samuelfneumann/msgym/internal/testenv"
	"github.com/samuelfneumann/msgym/obsproc"
	"github.com/samuelfneumann/msgym/wrappers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

const pointCloudConfig = `
env_name: PickCube-v0
obs_mode: pointcloud
control_mode: pd_ee_delta_pose
reward_scale: 0.5
n_points: 20
n_goal_points: 5
obs_frame: world
fix_seed: 3
max_episode_steps: 4
wrappers:
  - type: RenderInfoWrapper
  - type: FixedInitWrapper
    params:
      init_state: [0, 0.5, 1, 0]
      level: 2
`

func TestLoadYAML(t *testing.T) {
	c, err := config.LoadYAML(strings.NewReader(pointCloudConfig))
	require.NoError(t, err)

	assert.Equal(t, "PickCube-v0", c.EnvName)
	assert.Equal(t, msgym.ObsModePointCloud, c.ObsMode)
	assert.Equal(t, "pd_ee_delta_pose", c.ControlMode)
	assert.Equal(t, "", c.RewardMode)
	assert.Equal(t, 0.5, c.RewardScale)
	assert.False(t, c.UseCost)
	assert.Equal(t, 20, c.NPoints)
	assert.Equal(t, 5, c.NGoalPoints)
	assert.Equal(t, "world", c.ObsFrame)
	require.NotNil(t, c.FixSeed)
	assert.Equal(t, 3, *c.FixSeed)
	assert.Nil(t, c.ImgSize)
	assert.Equal(t, 4, c.MaxEpisodeSteps)

	require.Len(t, c.Wrappers, 2)
	assert.Equal(t, "RenderInfoWrapper", c.Wrappers[0].Type)
	assert.Equal(t, "FixedInitWrapper", c.Wrappers[1].Type)
	assert.Contains(t, c.Wrappers[1].Params, "init_state")
}

func TestLoadYAMLDefaults(t *testing.T) {
	c, err := config.LoadYAML(strings.NewReader("env_name: LiftCube-v0\n" +
		"img_size: {height: 32, width: 48}\n"))
	require.NoError(t, err)

	assert.Equal(t, msgym.ObsModeState, c.ObsMode)
	assert.Equal(t, 1.0, c.RewardScale)
	assert.Equal(t, 1200, c.NPoints)
	assert.Equal(t, -1, c.NGoalPoints)
	assert.Equal(t, "base", c.ObsFrame)
	assert.Nil(t, c.FixSeed)
	assert.Equal(t, &obsproc.ImageSize{Height: 32, Width: 48}, c.ImgSize)
}

func TestLoadYAMLErrors(t *testing.T) {
	tests := map[string]string{
		"empty":         "",
		"unknown field": "env_name: A\nnum_points: 3\n",
		"obs mode":      "env_name: A\nobs_mode: voxels\n",
		"reward scale":  "env_name: A\nreward_scale: 0\n",
		"frame":         "env_name: A\nobs_frame: camera\n",
		"n points":      "env_name: A\nobs_mode: pointcloud\nn_points: 0\n",
		"time limit":    "env_name: A\nmax_episode_steps: -1\n",
		"wrapper type":  "env_name: A\nwrappers:\n  - params: {a: 1}\n",
	}

	for name, in := range tests {
		_, err := config.LoadYAML(strings.NewReader(in))
		assert.Error(t, err, name)
	}

	_, err := config.LoadYAML(strings.NewReader(
		"env_name: A\nobs_frame: camera\n"))
	assert.True(t, errors.Is(err, obsproc.ErrUnknownFrame))

	_, err = config.LoadYAML(strings.NewReader(
		"env_name: A\nreward_scale: 0\n"))
	assert.True(t, errors.Is(err, wrappers.ErrNonPositiveScale))
}

func TestWrap(t *testing.T) {
	c, err := config.LoadYAML(strings.NewReader(pointCloudConfig))
	require.NoError(t, err)

	stub := testenv.New(testenv.Config{
		ObsMode:  c.ObsMode,
		Reward:   1,
		GoalPose: true,
	})
	env, err := c.Wrap(stub)
	require.NoError(t, err)

	assert.Equal(t, "ExtendedEnv(TimeLimit(steps: 4)(FixedInit(RenderInfo("+
		"ManiSkill2Obs(pointcloud)(Stub-pointcloud)))))", env.Name())
	assert.Equal(t, stub, msgym.Unwrapped(env))
	assert.True(t, msgym.IsStateful(env))

	obs, err := env.Reset()
	require.NoError(t, err)
	require.Len(t, stub.Resets, 1)
	// fix_seed overrides the level of the FixedInitWrapper
	assert.True(t, stub.Resets[0].HasLevel)
	assert.Equal(t, 3, stub.Resets[0].Level)
	assert.False(t, stub.Resets[0].HasSeed)

	level, hasLevel := msgym.Level(env)
	assert.True(t, hasLevel)
	assert.Equal(t, 3, level)

	xyz, err := obs.Tensor("xyz")
	require.NoError(t, err)
	assert.Equal(t, []int{25, 3}, xyz.Shapes())
	_, ok := xyz.(*etensor.Float32)
	assert.True(t, ok, "observations are float32")

	steps := 0
	done := false
	for !done {
		var reward float64
		var info *gdict.Dict
		_, reward, done, info, err = env.Step(mat.NewVecDense(3, nil))
		require.NoError(t, err)
		assert.Equal(t, 0.5, reward)
		steps++

		if done {
			assert.False(t, wrappers.TrueDone(done, info))
		}
	}
	assert.Equal(t, 4, steps)
}

func TestWrapInvalid(t *testing.T) {
	c := config.Default()
	_, err := c.Wrap(testenv.New(testenv.Config{}))
	assert.Error(t, err, "env_name is required")

	c.EnvName = "A"
	c.Wrappers = []wrappers.WrapperConfig{{Type: "Unknown"}}
	_, err = c.Wrap(testenv.New(testenv.Config{}))
	assert.Error(t, err)
}

// statelessEnv hides the state access methods of the stub
type statelessEnv struct {
	msgym.Environment
}

func TestWrapSentinelErrors(t *testing.T) {
	c := config.Default()
	c.EnvName = "A"
	c.ObsFrame = "camera"
	_, err := c.Wrap(testenv.New(testenv.Config{}))
	assert.ErrorIs(t, err, obsproc.ErrUnknownFrame)

	c = config.Default()
	c.EnvName = "A"
	c.RewardScale = -1
	_, err = c.Wrap(testenv.New(testenv.Config{}))
	assert.ErrorIs(t, err, wrappers.ErrNonPositiveScale)

	c = config.Default()
	c.EnvName = "A"
	c.Wrappers = []wrappers.WrapperConfig{{
		Type:   "FixedInitWrapper",
		Params: map[string]interface{}{"init_state": []interface{}{0, 0, 0, 0}},
	}}
	_, err = c.Wrap(statelessEnv{testenv.New(testenv.Config{})})
	assert.ErrorIs(t, err, msgym.ErrNotStateful)
}
