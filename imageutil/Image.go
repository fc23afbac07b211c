// Package imageutil converts between image tensors and Go images,
// resizes multi-camera image stacks and draws step information onto
// rendered frames.
package imageutil

import (
	"fmt"
	"image"
	"math"

	"github.com/emer/etable/etensor"
	"github.com/samuelfneumann/msgym/gdict"
	"golang.org/x/image/draw"
)

// ToRGBA converts a height x width x channel uint8 tensor to an
// *image.RGBA. Only the first three channels are used. Images with a
// single channel are treated as grayscale.
func ToRGBA(t etensor.Tensor) (*image.RGBA, error) {
	shape := t.Shapes()
	if len(shape) != 3 {
		return nil, fmt.Errorf("toRGBA: expected H x W x C image, got %v",
			shape)
	}
	h, w, c := shape[0], shape[1], shape[2]
	if c != 1 && c < 3 {
		return nil, fmt.Errorf("toRGBA: unsupported channel count %v", c)
	}

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			base := (y*w + x) * c
			i := img.PixOffset(x, y)
			for ch := 0; ch < 3; ch++ {
				src := base + ch
				if c == 1 {
					src = base
				}
				img.Pix[i+ch] = uint8(t.FloatVal1D(src))
			}
			img.Pix[i+3] = 255
		}
	}
	return img, nil
}

// FromRGBA converts an image to a height x width x 3 uint8 tensor,
// dropping the alpha channel
func FromRGBA(img *image.RGBA) *etensor.Uint8 {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := gdict.NewUint8([]int{h, w, 3}, nil)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := img.PixOffset(b.Min.X+x, b.Min.Y+y)
			copy(out.Values[(y*w+x)*3:(y*w+x)*3+3], img.Pix[i:i+3])
		}
	}
	return out
}

// Resize resizes a height x width x channel image tensor to
// height x width using bilinear interpolation.
//
// uint8 images whose channel count is a multiple of three are treated
// as stacked RGB images and scaled with golang.org/x/image/draw.
// All other tensors are interpolated channel by channel and returned
// as float32.
func Resize(t etensor.Tensor, width, height int) (etensor.Tensor, error) {
	shape := t.Shapes()
	if len(shape) != 3 {
		return nil, fmt.Errorf("resize: expected H x W x C image, got %v",
			shape)
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("resize: invalid target size %vx%v", width,
			height)
	}

	if u, ok := t.(*etensor.Uint8); ok && shape[2]%3 == 0 {
		return resizeRGBStack(u, width, height)
	}
	return resizeFloat(t, width, height), nil
}

// resizeRGBStack resizes each group of three channels of t as an RGB
// image and restacks the results
func resizeRGBStack(t *etensor.Uint8, width, height int) (etensor.Tensor,
	error) {
	shape := t.Shapes()
	h, w, c := shape[0], shape[1], shape[2]
	out := gdict.NewUint8([]int{height, width, c}, nil)

	for group := 0; group < c/3; group++ {
		src := image.NewRGBA(image.Rect(0, 0, w, h))
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				i := src.PixOffset(x, y)
				j := (y*w+x)*c + group*3
				copy(src.Pix[i:i+3], t.Values[j:j+3])
				src.Pix[i+3] = 255
			}
		}

		dst := image.NewRGBA(image.Rect(0, 0, width, height))
		draw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				i := dst.PixOffset(x, y)
				j := (y*width+x)*c + group*3
				copy(out.Values[j:j+3], dst.Pix[i:i+3])
			}
		}
	}
	return out, nil
}

// resizeFloat bilinearly interpolates every channel of t using
// half-pixel centres, clamping samples at the border
func resizeFloat(t etensor.Tensor, width, height int) etensor.Tensor {
	shape := t.Shapes()
	h, w, c := shape[0], shape[1], shape[2]
	out := gdict.NewFloat32([]int{height, width, c}, nil)

	sy := float64(h) / float64(height)
	sx := float64(w) / float64(width)
	for y := 0; y < height; y++ {
		fy := math.Max((float64(y)+0.5)*sy-0.5, 0)
		y0 := int(fy)
		if y0 > h-1 {
			y0 = h - 1
		}
		y1 := y0 + 1
		if y1 > h-1 {
			y1 = h - 1
		}
		dy := fy - float64(y0)

		for x := 0; x < width; x++ {
			fx := math.Max((float64(x)+0.5)*sx-0.5, 0)
			x0 := int(fx)
			if x0 > w-1 {
				x0 = w - 1
			}
			x1 := x0 + 1
			if x1 > w-1 {
				x1 = w - 1
			}
			dx := fx - float64(x0)

			for ch := 0; ch < c; ch++ {
				at := func(yy, xx int) float64 {
					return t.FloatVal1D((yy*w+xx)*c + ch)
				}
				top := at(y0, x0)*(1-dx) + at(y0, x1)*dx
				bottom := at(y1, x0)*(1-dx) + at(y1, x1)*dx
				out.Values[(y*width+x)*c+ch] = float32(top*(1-dy) + bottom*dy)
			}
		}
	}
	return out
}
