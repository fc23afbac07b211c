package wrappers_test

import (
	"testing"

	"github.com/samuelfneumann/msgym/internal/testenv"
	"github.com/samuelfneumann/msgym/wrappers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestNewClipAction(t *testing.T) {
	// Create the environment
	stub := testenv.New(testenv.Config{})
	env, err := wrappers.NewClipAction(stub)
	require.NoError(t, err)
	assert.Equal(t, "ClipAction(Stub-state)", env.Name())

	// Reset the environment
	_, err = env.Reset()
	require.NoError(t, err)

	// Take an environmental step with an out of bounds action
	_, _, _, _, err = env.Step(mat.NewVecDense(3, []float64{5, -5, 0.5}))
	require.NoError(t, err)
	require.Len(t, stub.Actions, 1)
	assert.Equal(t, []float64{1, -1, 0.5}, stub.Actions[0].RawVector().Data)

	// Actions of the wrong dimension are rejected
	_, _, _, _, err = env.Step(mat.NewVecDense(2, nil))
	assert.Error(t, err)
}

func TestNewClipActionDiscrete(t *testing.T) {
	_, err := wrappers.NewClipAction(testenv.New(testenv.Config{
		Discrete: true}))
	assert.Error(t, err)
}
