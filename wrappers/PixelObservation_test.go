package wrappers_test

import (
	"testing"

	"github.com/emer/etable/etensor"
	"github.com/samuelfneumann/msgym/internal/testenv"
	"github.com/samuelfneumann/msgym/wrappers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestNewPixelObservation(t *testing.T) {
	// Create the environment
	env, err := wrappers.NewPixelObservation(testenv.New(testenv.Config{}),
		true, "pixels")
	require.NoError(t, err)

	// Reset the environment
	obs, err := env.Reset()
	require.NoError(t, err)
	assert.Equal(t, []string{"pixels"}, obs.Keys())

	pixels := mustTensor(t, obs, "pixels")
	_, ok := pixels.(*etensor.Uint8)
	assert.True(t, ok)
	assert.Equal(t, []int{testenv.ImageHeight, testenv.ImageWidth, 3},
		pixels.Shapes())

	// Take an environmental step
	obs, _, _, _, err = env.Step(mat.NewVecDense(3, nil))
	require.NoError(t, err)
	assert.Equal(t, []string{"pixels"}, obs.Keys())
}

func TestPixelObservationKeepsState(t *testing.T) {
	env, err := wrappers.NewPixelObservation(testenv.New(testenv.Config{
		RenderDict: true}), false, "pixels")
	require.NoError(t, err)

	obs, err := env.Reset()
	require.NoError(t, err)
	assert.Equal(t, []string{"state", "pixels"}, obs.Keys())

	env, err = wrappers.NewPixelObservation(testenv.New(testenv.Config{}),
		false, "state")
	require.NoError(t, err)
	_, err = env.Reset()
	assert.Error(t, err)

	_, err = wrappers.NewPixelObservation(testenv.New(testenv.Config{}),
		false, "")
	assert.Error(t, err)
}
