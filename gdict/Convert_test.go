package gdict_test

import (
	"testing"

	"github.com/emer/etable/etensor"
	"github.com/samuelfneumann/msgym/gdict"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestF64ToF32(t *testing.T) {
	extra := gdict.New()
	extra.Set("goal_pos", gdict.Vector(0.1, 0.2, 0.3))
	extra.Set("success", true)
	obs := gdict.New()
	obs.Set("extra", extra)
	obs.Set("rgb", gdict.NewUint8([]int{2, 2, 3}, nil))
	obs.Set("elapsed", 1.5)
	obs.Set("steps", 3)

	out := obs.F64ToF32()

	goal, ok := out.Path("extra/goal_pos")
	require.True(t, ok)
	g, ok := goal.(*etensor.Float32)
	require.True(t, ok, "goal_pos should be float32, got %T", goal)
	assert.Equal(t, []int{3}, g.Shapes())
	assert.InDelta(t, 0.2, g.Values[1], 1e-7)

	rgb, _ := out.Get("rgb")
	assert.IsType(t, &etensor.Uint8{}, rgb)

	elapsed, _ := out.Get("elapsed")
	assert.Equal(t, float32(1.5), elapsed)

	steps, _ := out.Get("steps")
	assert.Equal(t, 3, steps)

	success, _ := out.Path("extra/success")
	assert.Equal(t, true, success)

	// The source is left untouched
	orig, _ := obs.Path("extra/goal_pos")
	assert.IsType(t, &etensor.Float64{}, orig)
}

func TestFlattenState(t *testing.T) {
	controller := gdict.New()
	controller.Set("arm", gdict.New())
	agent := gdict.New()
	agent.Set("qpos", gdict.Vector(1, 2))
	agent.Set("controller", controller)
	agent.Set("base_pose", gdict.NewFloat32([]int{1, 2}, []float32{3, 4}))
	obs := gdict.New()
	obs.Set("agent", agent)
	obs.Set("flag", true)
	obs.Set("level", 7)

	state, err := gdict.FlattenState(obs)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, 3, 4, 1, 7}, state)

	obs.Set("name", "PickCube")
	_, err = gdict.FlattenState(obs)
	assert.Error(t, err)
}

func TestAssignAllWritesInPlace(t *testing.T) {
	bufObs := gdict.NewFloat32([]int{3}, nil)
	buffer := gdict.New()
	buffer.Set("state", bufObs)
	buffer.Set("reward", gdict.NewFloat32([]int{1}, nil))

	src := gdict.New()
	src.Set("state", gdict.Vector(1, 2, 3))
	src.Set("reward", float32(0.25))
	src.Set("success", true)

	require.NoError(t, gdict.AssignAll(buffer, src))
	assert.Equal(t, []float32{1, 2, 3}, bufObs.Values)

	reward, err := buffer.Float("reward")
	require.NoError(t, err)
	assert.InDelta(t, 0.25, reward, 1e-7)
	assert.True(t, buffer.Has("success"))

	src.Set("state", gdict.Vector(1, 2))
	assert.Error(t, gdict.AssignAll(buffer, src))
}

func TestConcatAndRows(t *testing.T) {
	a := gdict.NewUint8([]int{1, 2, 3}, []uint8{1, 2, 3, 4, 5, 6})
	b := gdict.NewUint8([]int{1, 2, 1}, []uint8{7, 8})

	c, err := gdict.Concat(2, a, b)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 4}, c.Shapes())
	assert.Equal(t, []uint8{1, 2, 3, 7, 4, 5, 6, 8}, c.(*etensor.Uint8).Values)

	_, err = gdict.Concat(1, a, gdict.NewUint8([]int{1, 3, 1}, nil))
	assert.Error(t, err)

	pts := gdict.NewFloat32([]int{3, 2}, []float32{0, 1, 2, 3, 4, 5})
	rows, err := gdict.Rows(pts, []int{2, 0, 2})
	require.NoError(t, err)
	assert.Equal(t, []float32{4, 5, 0, 1, 4, 5}, rows.(*etensor.Float32).Values)

	masked, err := gdict.Mask(pts, []bool{false, true, false})
	require.NoError(t, err)
	assert.Equal(t, []float32{2, 3}, masked.(*etensor.Float32).Values)

	cols, err := gdict.Columns(pts, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 3, 5}, cols.(*etensor.Float32).Values)
}

func TestHWCToCHW(t *testing.T) {
	// 1x2 image with 2 channels
	img := gdict.NewUint8([]int{1, 2, 2}, []uint8{1, 2, 3, 4})
	out, err := gdict.HWCToCHW(img)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 1, 2}, out.Shapes())
	assert.Equal(t, []uint8{1, 3, 2, 4}, out.(*etensor.Uint8).Values)
}
