package obsproc_test

import (
	"testing"

	"github.com/samuelfneumann/msgym/gdict"
	"github.com/samuelfneumann/msgym/obsproc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

// cloud returns n points with x equal to the point index. The first
// onGround points have z = 0.
func cloud(n, onGround int) *gdict.Dict {
	xyz := gdict.NewFloat32([]int{n, 3}, nil)
	seg := gdict.NewFloat32([]int{n}, nil)
	for i := 0; i < n; i++ {
		xyz.Values[i*3] = float32(i)
		if i >= onGround {
			xyz.Values[i*3+2] = 1
		}
		seg.Values[i] = float32(i)
	}
	pcd := gdict.New()
	pcd.Set("xyz", xyz)
	pcd.Set("seg", seg)
	pcd.Set("camera", gdict.Vector(1, 2))
	return pcd
}

func TestUniformDownsample(t *testing.T) {
	pcd := cloud(10, 2)
	err := obsproc.UniformDownsample(pcd, obsproc.DefaultGroundEps, 5,
		rand.New(rand.NewSource(1)))
	require.NoError(t, err)

	xyz, err := pcd.Tensor("xyz")
	require.NoError(t, err)
	seg, err := pcd.Tensor("seg")
	require.NoError(t, err)
	require.Equal(t, []int{5, 3}, xyz.Shapes())
	require.Equal(t, []int{5}, seg.Shapes())

	seen := map[float64]bool{}
	for i := 0; i < 5; i++ {
		x := xyz.FloatVal1D(i * 3)
		assert.GreaterOrEqual(t, x, 2.0, "ground point kept")
		assert.Equal(t, x, seg.FloatVal1D(i), "fields sampled apart")
		assert.False(t, seen[x], "point %v sampled twice", x)
		seen[x] = true
	}

	camera, err := pcd.Tensor("camera")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, gdict.Float64s(camera))
}

func TestUniformDownsamplePads(t *testing.T) {
	pcd := cloud(6, 2)
	err := obsproc.UniformDownsample(pcd, obsproc.DefaultGroundEps, 20,
		rand.New(rand.NewSource(1)))
	require.NoError(t, err)

	xyz, err := pcd.Tensor("xyz")
	require.NoError(t, err)
	require.Equal(t, []int{20, 3}, xyz.Shapes())

	for i := 0; i < 4; i++ {
		assert.Equal(t, float64(i+2), xyz.FloatVal1D(i*3))
	}
	for i := 4; i < 20; i++ {
		assert.GreaterOrEqual(t, xyz.FloatVal1D(i*3), 2.0)
	}
}

func TestUniformDownsampleErrors(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	assert.Error(t, obsproc.UniformDownsample(cloud(4, 4),
		obsproc.DefaultGroundEps, 2, rng))
	assert.Error(t, obsproc.UniformDownsample(cloud(4, 0),
		obsproc.DefaultGroundEps, 0, rng))

	pcd := gdict.New()
	pcd.Set("xyz", gdict.NewFloat32([]int{4, 4}, nil))
	assert.Error(t, obsproc.UniformDownsample(pcd, obsproc.DefaultGroundEps,
		2, rng))
}
