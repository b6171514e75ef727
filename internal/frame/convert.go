package frame

import (
	"image"
	"image/color"
)

// ToGray renders the image into an 8-bit grayscale picture, linearly
// stretching [lo, hi] onto [0, 255]. Passing lo >= hi stretches the full
// dynamic range instead.
func (m *Image) ToGray(lo, hi float64) *image.Gray {
	if lo >= hi {
		lo, hi = m.MinMax()
		if lo >= hi {
			hi = lo + 1
		}
	}
	scale := 255.0 / (hi - lo)
	out := image.NewGray(image.Rect(0, 0, m.Width, m.Height))
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			v := (m.Pix[y*m.Width+x] - lo) * scale
			if v < 0 {
				v = 0
			}
			if v > 255 {
				v = 255
			}
			out.SetGray(x, y, color.Gray{Y: uint8(v + 0.5)})
		}
	}
	return out
}

// ToRGBA renders the image into an RGBA picture using the same stretch as
// ToGray. Used as the base layer for candidate overlays.
func (m *Image) ToRGBA(lo, hi float64) *image.RGBA {
	gray := m.ToGray(lo, hi)
	out := image.NewRGBA(gray.Bounds())
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			g := gray.GrayAt(x, y).Y
			out.SetRGBA(x, y, color.RGBA{R: g, G: g, B: g, A: 255})
		}
	}
	return out
}
