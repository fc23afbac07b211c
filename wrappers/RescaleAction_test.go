package wrappers_test

import (
	"testing"

	"github.com/samuelfneumann/msgym"
	"github.com/samuelfneumann/msgym/internal/testenv"
	"github.com/samuelfneumann/msgym/wrappers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestNewRescaleAction(t *testing.T) {
	// Create the environment
	stub := testenv.New(testenv.Config{})
	env, err := wrappers.NewRescaleAction(stub, 0, 1)
	require.NoError(t, err)

	box, ok := env.ActionSpace().(*msgym.Box)
	require.True(t, ok)
	assert.Equal(t, []float64{0, 0, 0}, box.Low()[0].RawVector().Data)
	assert.Equal(t, []float64{1, 1, 1}, box.High()[0].RawVector().Data)

	// Reset the environment
	_, err = env.Reset()
	require.NoError(t, err)

	// Take an environmental step
	_, _, _, _, err = env.Step(mat.NewVecDense(3, []float64{0, 0.5, 1}))
	require.NoError(t, err)
	require.Len(t, stub.Actions, 1)
	assert.InDeltaSlice(t, []float64{-1, 0, 1},
		stub.Actions[0].RawVector().Data, 1e-12)

	// Test the action scaling function
	action, err := env.Action([]float64{0.25, 0.75, 0.5})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{-0.5, 0.5, 0}, action, 1e-12)

	_, err = env.Action([]float64{2, 0, 0})
	assert.Error(t, err)
	_, _, _, _, err = env.Step(mat.NewVecDense(3, []float64{-1, 0, 0}))
	assert.Error(t, err)
}

func TestNewRescaleActionInvalid(t *testing.T) {
	_, err := wrappers.NewRescaleAction(testenv.New(testenv.Config{}), 1, 1)
	assert.Error(t, err)

	_, err = wrappers.NewRescaleAction(testenv.New(testenv.Config{
		Discrete: true}), 0, 1)
	assert.Error(t, err)
}
