package imageutil

import (
	"fmt"
	"image"
	"image/color"

	"github.com/emer/etable/etensor"
	"github.com/samuelfneumann/msgym/gdict"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	lineHeight = 15
	margin     = 4
)

// InfoLines formats every leaf of info as a "key: value" line, in key
// order, followed by the extra lines
func InfoLines(info *gdict.Dict, extras []string) []string {
	var lines []string
	_ = info.Walk(func(path string, value interface{}) error {
		lines = append(lines, fmt.Sprintf("%v: %v", path, formatValue(value)))
		return nil
	})
	return append(lines, extras...)
}

func formatValue(v interface{}) string {
	switch x := v.(type) {
	case float64:
		return fmt.Sprintf("%.3f", x)
	case float32:
		return fmt.Sprintf("%.3f", x)
	case etensor.Tensor:
		if x.Len() > 4 {
			return fmt.Sprintf("%v", x.Shapes())
		}
		s := "["
		for i := 0; i < x.Len(); i++ {
			if i > 0 {
				s += " "
			}
			s += fmt.Sprintf("%.3f", x.FloatVal1D(i))
		}
		return s + "]"
	default:
		return fmt.Sprintf("%v", x)
	}
}

// PutInfoOnImage writes info, and any extra lines, as text onto an
// H x W x 3 uint8 image. If overlay is true the text is drawn over the
// image itself; otherwise a black text panel as wide as the image is
// appended to its right. The argument image is not modified.
func PutInfoOnImage(img etensor.Tensor, info *gdict.Dict, extras []string,
	overlay bool) (*etensor.Uint8, error) {
	src, err := ToRGBA(img)
	if err != nil {
		return nil, fmt.Errorf("putInfoOnImage: %w", err)
	}

	b := src.Bounds()
	canvas := src
	textX := margin
	if !overlay {
		canvas = image.NewRGBA(image.Rect(0, 0, 2*b.Dx(), b.Dy()))
		draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.Black),
			image.Point{}, draw.Src)
		draw.Draw(canvas, b, src, b.Min, draw.Src)
		textX = b.Dx() + margin
	}

	d := &font.Drawer{
		Dst:  canvas,
		Src:  image.NewUniform(color.RGBA{R: 255, G: 255, B: 255, A: 255}),
		Face: basicfont.Face7x13,
	}
	for i, line := range InfoLines(info, extras) {
		y := (i + 1) * lineHeight
		if y > b.Dy() {
			break
		}
		d.Dot = fixed.P(textX, y)
		d.DrawString(line)
	}

	return FromRGBA(canvas), nil
}
