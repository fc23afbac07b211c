package wrappers_test

import (
	"testing"

	"github.com/samuelfneumann/msgym"
	"github.com/samuelfneumann/msgym/gdict"
	"github.com/samuelfneumann/msgym/internal/testenv"
	"github.com/samuelfneumann/msgym/wrappers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestNewFlattenObservation(t *testing.T) {
	// Create the environment
	env, err := wrappers.NewFlattenObservation(testenv.New(testenv.Config{
		ObsMode: msgym.ObsModeParticles}))
	require.NoError(t, err)
	assert.Nil(t, env.ObservationSpace())

	// Reset the environment
	obs, err := env.Reset()
	require.NoError(t, err)
	assert.Equal(t, []string{"state"}, obs.Keys())

	// particles x and v, agent qpos, qvel and base_pose, extra tcp_pose
	// and goal_pos
	n := 2*testenv.NumPoints*3 + 3 + 3 + 7 + 7 + 3
	state := mustTensor(t, obs, "state")
	assert.Equal(t, []int{n}, state.Shapes())

	// Take an environmental step
	obs, _, _, _, err = env.Step(mat.NewVecDense(3, []float64{1, 0, 0}))
	require.NoError(t, err)
	state = mustTensor(t, obs, "state")
	assert.Equal(t, 1.0, state.FloatVal1D(2*testenv.NumPoints*3))

	obs, err = env.GetObs()
	require.NoError(t, err)
	assert.Equal(t, []int{n}, mustTensor(t, obs, "state").Shapes())

	// Test the observation function
	raw := gdict.New()
	raw.Set("a", gdict.Vector(1, 2))
	raw.Set("b", "text")
	_, err = env.Observation(raw)
	assert.Error(t, err)
}

func TestFlattenObservationSpace(t *testing.T) {
	pos, err := msgym.NewUniformBox(3, -1, 1)
	require.NoError(t, err)
	gripper, err := msgym.NewDiscrete(2)
	require.NoError(t, err)
	space, err := msgym.NewDictSpace([]string{"pos", "gripper"},
		[]msgym.Space{pos, gripper})
	require.NoError(t, err)

	env, err := wrappers.NewFlattenObservation(spacedEnv{
		testenv.New(testenv.Config{}), space})
	require.NoError(t, err)

	box, ok := env.ObservationSpace().(*msgym.Box)
	require.True(t, ok)
	assert.Equal(t, []float64{-1, -1, -1, 0}, box.Low()[0].RawVector().Data)
	assert.Equal(t, []float64{1, 1, 1, 1}, box.High()[0].RawVector().Data)
}
