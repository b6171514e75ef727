// Package colorutil provides shared colors for detection overlays.
package colorutil

import "image/color"

// Overlay palette. One color per classification label, plus black and
// white for backgrounds and text.
var (
	Black   = color.RGBA{R: 0, G: 0, B: 0, A: 255}
	White   = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	Cyan    = color.RGBA{R: 0, G: 255, B: 255, A: 255}
	Magenta = color.RGBA{R: 255, G: 0, B: 255, A: 255}
	Blue    = color.RGBA{R: 0, G: 0, B: 255, A: 255}
	Green   = color.RGBA{R: 0, G: 255, B: 0, A: 255}
	Yellow  = color.RGBA{R: 255, G: 255, B: 0, A: 255}
)

// Dim returns c at the given brightness fraction, keeping alpha opaque.
// Used to render secondary markers without adding palette entries.
func Dim(c color.RGBA, frac float64) color.RGBA {
	if frac < 0 {
		frac = 0
	} else if frac > 1 {
		frac = 1
	}
	return color.RGBA{
		R: uint8(float64(c.R) * frac),
		G: uint8(float64(c.G) * frac),
		B: uint8(float64(c.B) * frac),
		A: 255,
	}
}
