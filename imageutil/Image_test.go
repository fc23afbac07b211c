package imageutil_test

import (
	"testing"

	"github.com/emer/etable/etensor"
	"github.com/samuelfneumann/msgym/gdict"
	"github.com/samuelfneumann/msgym/imageutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solid(h, w, c int, v uint8) *etensor.Uint8 {
	img := gdict.NewUint8([]int{h, w, c}, nil)
	for i := range img.Values {
		img.Values[i] = v
	}
	return img
}

func TestRGBARoundTrip(t *testing.T) {
	img := gdict.NewUint8([]int{1, 2, 3}, []uint8{1, 2, 3, 4, 5, 6})
	rgba, err := imageutil.ToRGBA(img)
	require.NoError(t, err)

	back := imageutil.FromRGBA(rgba)
	assert.Equal(t, img.Values, back.Values)
	assert.Equal(t, []int{1, 2, 3}, back.Shapes())

	_, err = imageutil.ToRGBA(gdict.NewUint8([]int{2, 2}, nil))
	assert.Error(t, err)
}

func TestResizeRGBStack(t *testing.T) {
	// Two stacked cameras of constant colour stay constant
	img := gdict.NewUint8([]int{4, 4, 6}, nil)
	for i := range img.Values {
		if i%6 < 3 {
			img.Values[i] = 200
		} else {
			img.Values[i] = 10
		}
	}

	out, err := imageutil.Resize(img, 2, 3)
	require.NoError(t, err)
	require.Equal(t, []int{3, 2, 6}, out.Shapes())

	u, ok := out.(*etensor.Uint8)
	require.True(t, ok)
	for i, v := range u.Values {
		if i%6 < 3 {
			assert.Equal(t, uint8(200), v)
		} else {
			assert.Equal(t, uint8(10), v)
		}
	}
}

func TestResizeFloat(t *testing.T) {
	// A 1x2 depth ramp upsampled to 1x4
	depth := gdict.NewFloat32([]int{1, 2, 1}, []float32{0, 1})
	out, err := imageutil.Resize(depth, 4, 1)
	require.NoError(t, err)

	f := out.(*etensor.Float32)
	assert.Equal(t, []int{1, 4, 1}, f.Shapes())
	assert.InDeltaSlice(t, []float32{0, 0.25, 0.75, 1}, f.Values, 1e-6)

	_, err = imageutil.Resize(depth, 0, 1)
	assert.Error(t, err)
}

func TestPutInfoOnImage(t *testing.T) {
	img := solid(32, 64, 3, 0)
	info := gdict.New()
	info.Set("reward", 0.5)
	info.Set("success", false)

	assert.Equal(t, []string{"reward: 0.500", "success: false", "hi"},
		imageutil.InfoLines(info, []string{"hi"}))

	out, err := imageutil.PutInfoOnImage(img, info, nil, true)
	require.NoError(t, err)
	assert.Equal(t, []int{32, 64, 3}, out.Shapes())

	lit := 0
	for _, v := range out.Values {
		if v > 0 {
			lit++
		}
	}
	assert.Greater(t, lit, 0, "expected text pixels on the image")

	// The input is not modified
	for _, v := range img.Values {
		require.Equal(t, uint8(0), v)
	}

	panel, err := imageutil.PutInfoOnImage(img, info, nil, false)
	require.NoError(t, err)
	assert.Equal(t, []int{32, 128, 3}, panel.Shapes())
}
