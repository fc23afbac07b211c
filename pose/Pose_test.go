package pose_test

import (
	"math"
	"testing"

	"github.com/samuelfneumann/msgym/pose"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

const tol = 1e-9

// rotZ returns a pose rotating by theta about the z axis
func rotZ(p [3]float64, theta float64) pose.Pose {
	return pose.New(p, math.Cos(theta/2), 0, 0, math.Sin(theta/2))
}

func TestApply(t *testing.T) {
	p := rotZ([3]float64{1, 0, 0}, math.Pi/2)
	out := p.Apply([3]float64{1, 0, 0})

	assert.InDelta(t, 1, out[0], tol)
	assert.InDelta(t, 1, out[1], tol)
	assert.InDelta(t, 0, out[2], tol)
}

func TestInvComposesToIdentity(t *testing.T) {
	p := pose.New([3]float64{0.3, -1, 2}, 0.9, 0.1, -0.3, 0.2)

	assert.True(t, p.Mul(p.Inv()).Equal(pose.Identity(), tol))
	assert.True(t, p.Inv().Mul(p).Equal(pose.Identity(), tol))

	x := [3]float64{0.5, 0.25, -4}
	back := p.Inv().Apply(p.Apply(x))
	for i := range x {
		assert.InDelta(t, x[i], back[i], tol)
	}
}

func TestMulAppliesRightFirst(t *testing.T) {
	a := rotZ([3]float64{0, 0, 1}, math.Pi/2)
	b := pose.New([3]float64{1, 0, 0}, 1, 0, 0, 0)

	x := [3]float64{0, 0, 0}
	got := a.Mul(b).Apply(x)
	want := a.Apply(b.Apply(x))
	for i := range got {
		assert.InDelta(t, want[i], got[i], tol)
	}
	assert.InDelta(t, 1, got[1], tol)
	assert.InDelta(t, 1, got[2], tol)
}

func TestApplyPointsMatchesApply(t *testing.T) {
	p := pose.New([3]float64{0.1, 0.2, 0.3}, 0.5, 0.5, 0.5, 0.5)
	points := mat.NewDense(2, 3, []float64{1, 2, 3, -1, 0, 4})

	out, err := p.ApplyPoints(points)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		want := p.Apply([3]float64{points.At(i, 0), points.At(i, 1),
			points.At(i, 2)})
		for j := 0; j < 3; j++ {
			assert.InDelta(t, want[j], out.At(i, j), tol)
		}
	}

	_, err = p.ApplyPoints(mat.NewDense(1, 2, nil))
	assert.Error(t, err)
}

func TestMatrix(t *testing.T) {
	p := rotZ([3]float64{1, 2, 3}, math.Pi)
	m := p.Matrix()

	r, c := m.Dims()
	require.Equal(t, 4, r)
	require.Equal(t, 4, c)
	assert.InDelta(t, -1, m.At(0, 0), tol)
	assert.InDelta(t, -1, m.At(1, 1), tol)
	assert.InDelta(t, 1, m.At(2, 2), tol)
	assert.InDelta(t, 3, m.At(2, 3), tol)
	assert.InDelta(t, 1, m.At(3, 3), tol)
}

func TestFromVector(t *testing.T) {
	p, err := pose.FromVector([]float64{1, 2, 3, 2, 0, 0, 0})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3, 1, 0, 0, 0}, p.Vector())

	_, err = pose.FromVector([]float64{1, 2, 3})
	assert.Error(t, err)
}
