package wrappers_test

import (
	"testing"

	"github.com/samuelfneumann/msgym"
	"github.com/samuelfneumann/msgym/internal/testenv"
	"github.com/samuelfneumann/msgym/wrappers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistryNames(t *testing.T) {
	assert.Equal(t, []string{
		"ClipAction",
		"FilterObservation",
		"FixedInitWrapper",
		"FlattenObservation",
		"PixelObservation",
		"RenderInfoWrapper",
		"RescaleAction",
		"TimeLimit",
	}, wrappers.DefaultRegistry.Names())
}

func TestBuild(t *testing.T) {
	tests := []struct {
		cfg  wrappers.WrapperConfig
		name string
	}{
		{
			wrappers.WrapperConfig{Type: "TimeLimit", Params: map[string]interface{}{
				"max_episode_steps": 50,
			}},
			"TimeLimit(steps: 50)(Stub-state)",
		},
		{
			wrappers.WrapperConfig{Type: "FixedInitWrapper", Params: map[string]interface{}{
				"init_state": []interface{}{0, 0.5, 1, 0},
				"level":      3,
			}},
			"FixedInit(Stub-state)",
		},
		{wrappers.WrapperConfig{Type: "RenderInfoWrapper"}, "RenderInfo(Stub-state)"},
		{wrappers.WrapperConfig{Type: "ClipAction"}, "ClipAction(Stub-state)"},
		{
			wrappers.WrapperConfig{Type: "RescaleAction", Params: map[string]interface{}{
				"low":  0,
				"high": 2.5,
			}},
			"RescaleAction([0, 2.5])(Stub-state)",
		},
		{
			wrappers.WrapperConfig{Type: "FilterObservation", Params: map[string]interface{}{
				"keys": []interface{}{"state"},
			}},
			"FilterObservation(Stub-state)",
		},
		{wrappers.WrapperConfig{Type: "FlattenObservation"}, "FlattenObservation(Stub-state)"},
		{wrappers.WrapperConfig{Type: "PixelObservation"}, "Pixel(Stub-state)"},
	}

	for _, test := range tests {
		env, err := wrappers.Build(testenv.New(testenv.Config{}), test.cfg)
		require.NoError(t, err, test.cfg.Type)
		assert.Equal(t, test.name, env.Name())

		_, err = env.Reset()
		assert.NoError(t, err, test.cfg.Type)
	}
}

func TestBuildFixedInitLevel(t *testing.T) {
	stub := testenv.New(testenv.Config{})
	env, err := wrappers.Build(stub, wrappers.WrapperConfig{
		Type: "FixedInitWrapper",
		Params: map[string]interface{}{
			"init_state": []interface{}{0, 0.5, 1, 0},
			"level":      3,
		},
	})
	require.NoError(t, err)

	_, err = env.Reset()
	require.NoError(t, err)
	require.Len(t, stub.Resets, 1)
	assert.Equal(t, 3, stub.Resets[0].Level)

	state, err := msgym.GetState(env)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0.5, 1, 0}, state)
}

func TestBuildErrors(t *testing.T) {
	stub := testenv.New(testenv.Config{})

	_, err := wrappers.Build(stub, wrappers.WrapperConfig{Type: "Unknown"})
	assert.Error(t, err)

	_, err = wrappers.Build(stub, wrappers.WrapperConfig{Type: "TimeLimit",
		Params: map[string]interface{}{"max_steps": 10}})
	assert.Error(t, err, "unknown parameters are rejected")

	_, err = wrappers.Build(stub, wrappers.WrapperConfig{Type: "TimeLimit"})
	assert.Error(t, err, "time limit is required")

	_, err = wrappers.Build(stub, wrappers.WrapperConfig{
		Type: "FixedInitWrapper"})
	assert.Error(t, err)

	_, err = wrappers.Build(plainEnv{stub}, wrappers.WrapperConfig{
		Type: "FixedInitWrapper",
		Params: map[string]interface{}{
			"init_state": []interface{}{0, 0, 0, 0},
		},
	})
	assert.ErrorIs(t, err, msgym.ErrNotStateful)
}

func TestRegister(t *testing.T) {
	r := wrappers.NewRegistry()
	build := func(env msgym.Environment,
		params map[string]interface{}) (msgym.Environment, error) {
		return wrappers.NewRenderInfo(env), nil
	}

	require.NoError(t, r.Register("Info", build))
	assert.Error(t, r.Register("Info", build))
	assert.Equal(t, []string{"Info"}, r.Names())

	env, err := r.Build(testenv.New(testenv.Config{}),
		wrappers.WrapperConfig{Type: "Info"})
	require.NoError(t, err)
	assert.Equal(t, "RenderInfo(Stub-state)", env.Name())
}
