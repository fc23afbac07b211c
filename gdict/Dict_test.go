package gdict_test

import (
	"testing"

	"github.com/emer/etable/etensor"
	"github.com/samuelfneumann/msgym/gdict"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDictKeepsInsertionOrder(t *testing.T) {
	d := gdict.New()
	d.Set("b", 1.0)
	d.Set("a", 2.0)
	d.Set("c", 3.0)
	d.Set("b", 4.0)

	assert.Equal(t, []string{"b", "a", "c"}, d.Keys())

	v, ok := d.Delete("a")
	require.True(t, ok)
	assert.Equal(t, 2.0, v)
	assert.Equal(t, []string{"b", "c"}, d.Keys())
	assert.False(t, d.Has("a"))
}

func TestDictPathAndAccessors(t *testing.T) {
	agent := gdict.New()
	agent.Set("qpos", gdict.Vector(1, 2, 3))
	obs := gdict.New()
	obs.Set("agent", agent)
	obs.Set("reward", 0.5)

	v, ok := obs.Path("agent/qpos")
	require.True(t, ok)
	assert.Equal(t, 3, v.(etensor.Tensor).Len())

	_, ok = obs.Path("agent/qvel")
	assert.False(t, ok)
	_, ok = obs.Path("reward/x")
	assert.False(t, ok)

	f, err := obs.Float("reward")
	require.NoError(t, err)
	assert.Equal(t, 0.5, f)

	_, err = obs.Dict("reward")
	assert.Error(t, err)
	_, err = obs.Tensor("agent")
	assert.Error(t, err)
}

func TestDictCopyIsDeep(t *testing.T) {
	qpos := gdict.Vector(1, 2)
	agent := gdict.New()
	agent.Set("qpos", qpos)
	obs := gdict.New()
	obs.Set("agent", agent)

	cp := obs.Copy()
	qpos.Values[0] = 10

	v, ok := cp.Path("agent/qpos")
	require.True(t, ok)
	assert.Equal(t, 1.0, v.(etensor.Tensor).FloatVal1D(0))
}

func TestFromPairs(t *testing.T) {
	d, err := gdict.FromPairs("x", 1, "y", true)
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, d.Keys())

	_, err = gdict.FromPairs("x")
	assert.Error(t, err)
	_, err = gdict.FromPairs(1, 2)
	assert.Error(t, err)
}
