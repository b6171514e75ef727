package render

import (
	"fmt"
	"image"
	"image/color"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"transient-finder/internal/frame"
	"transient-finder/internal/score"
	"transient-finder/pkg/colorutil"
)

// OverlayParams configures the color quicklook overlay.
type OverlayParams struct {
	Markers    MarkerParams
	ShowLabels bool // draw "id:reliability" next to each marker
}

// DefaultOverlayParams returns overlay defaults.
func DefaultOverlayParams() OverlayParams {
	return OverlayParams{Markers: DefaultMarkerParams(), ShowLabels: true}
}

// labelColor maps a classification onto its overlay color.
func labelColor(l score.Label) color.RGBA {
	switch l {
	case score.LabelCandidate:
		return colorutil.Green
	case score.LabelStellar:
		return colorutil.Cyan
	case score.LabelArtifact:
		return colorutil.Yellow
	default:
		return colorutil.Magenta
	}
}

// Overlay renders a grayscale stretch of the base image with each candidate
// circled in its label color. The base image is not modified.
func Overlay(base *frame.Image, cands []score.Scored, p OverlayParams) (*image.RGBA, error) {
	if err := base.Validate(); err != nil {
		return nil, err
	}
	if err := p.Markers.Validate(); err != nil {
		return nil, err
	}

	out := base.ToRGBA(0, 0)
	if len(cands) == 0 {
		return out, nil
	}

	metricMin, metricMax := metricSpan(cands, p.Markers)
	for _, c := range cands {
		col := labelColor(c.Label)
		r := p.Markers.Radius(p.Markers.metricValue(c), metricMin, metricMax)
		drawCircleRGBA(out, int(c.X+0.5), int(c.Y+0.5), r, col)
		if p.ShowLabels {
			text := fmt.Sprintf("%d:%.0f", c.ID, c.Reliability)
			drawText(out, int(c.X+0.5)+r+2, int(c.Y+0.5), text, colorutil.Dim(col, 0.8))
		}
	}
	return out, nil
}

// drawCircleRGBA writes a circle outline into an RGBA picture.
func drawCircleRGBA(img *image.RGBA, cx, cy, r int, col color.RGBA) {
	set := func(x, y int) {
		if image.Pt(x, y).In(img.Bounds()) {
			img.SetRGBA(x, y, col)
		}
	}
	x, y := r, 0
	err := 1 - r
	for x >= y {
		set(cx+x, cy+y)
		set(cx+y, cy+x)
		set(cx-y, cy+x)
		set(cx-x, cy+y)
		set(cx-x, cy-y)
		set(cx-y, cy-x)
		set(cx+y, cy-x)
		set(cx+x, cy-y)
		y++
		if err < 0 {
			err += 2*y + 1
		} else {
			x--
			err += 2 * (y - x + 1)
		}
	}
}

// drawText renders a small fixed-width label.
func drawText(img *image.RGBA, x, y int, text string, col color.RGBA) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(col),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y+4),
	}
	d.DrawString(text)
}
