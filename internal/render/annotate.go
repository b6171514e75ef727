// Package render produces the run artifacts: an annotated copy of an image
// with accepted candidates circled, a color quicklook overlay, and the text
// catalog.
package render

import (
	"strings"

	"transient-finder/internal/frame"
	"transient-finder/internal/score"
)

// Metric selects which candidate quantity the marker radius encodes.
type Metric int

const (
	// MetricArea encodes the candidate pixel area.
	MetricArea Metric = iota
	// MetricFlux encodes the absolute net flux.
	MetricFlux
	// MetricSNR encodes the signal-to-noise ratio.
	MetricSNR
)

func (m Metric) String() string {
	switch m {
	case MetricArea:
		return "area"
	case MetricFlux:
		return "flux"
	case MetricSNR:
		return "snr"
	default:
		return "unknown"
	}
}

// ParseMetric maps a configuration string onto a Metric.
func ParseMetric(s string) (Metric, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "area":
		return MetricArea, true
	case "flux":
		return MetricFlux, true
	case "snr":
		return MetricSNR, true
	}
	return MetricArea, false
}

// MarkerParams configures the circle markers.
type MarkerParams struct {
	Metric    Metric
	MinRadius int
	MaxRadius int
}

// DefaultMarkerParams returns marker defaults.
func DefaultMarkerParams() MarkerParams {
	return MarkerParams{Metric: MetricSNR, MinRadius: 6, MaxRadius: 18}
}

// Validate rejects inconsistent marker parameters.
func (p MarkerParams) Validate() error {
	if p.MinRadius < 1 {
		return frame.Configf("min_radius", "must be at least 1, got %d", p.MinRadius)
	}
	if p.MaxRadius < p.MinRadius {
		return frame.Configf("max_radius", "must be at least min_radius (%d), got %d", p.MinRadius, p.MaxRadius)
	}
	if p.Metric < MetricArea || p.Metric > MetricSNR {
		return frame.Configf("marker_metric", "unknown metric %d", p.Metric)
	}
	return nil
}

// metricValue reads the configured metric off a candidate.
func (p MarkerParams) metricValue(s score.Scored) float64 {
	switch p.Metric {
	case MetricArea:
		return float64(s.Area)
	case MetricFlux:
		if s.Total < 0 {
			return -s.Total
		}
		return s.Total
	default:
		return s.SNR
	}
}

// Radius maps a metric value onto a circle radius, linearly between the
// configured minimum and maximum over [metricMin, metricMax]. The degenerate
// span maps everything to the midpoint radius.
func (p MarkerParams) Radius(value, metricMin, metricMax float64) int {
	if metricMax == metricMin {
		return (p.MinRadius + p.MaxRadius) / 2
	}
	t := (value - metricMin) / (metricMax - metricMin)
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	return p.MinRadius + int(t*float64(p.MaxRadius-p.MinRadius)+0.5)
}

// Annotate returns a copy of the base image with each candidate circled. The
// marker intensity sits just above the image's own dynamic range so circles
// stay visible on any stretch. The input image is never written to.
func Annotate(base *frame.Image, cands []score.Scored, p MarkerParams) (*frame.Image, error) {
	if err := base.Validate(); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	out := base.Clone()
	if len(cands) == 0 {
		return out, nil
	}

	lo, hi := base.MinMax()
	marker := hi + 0.1*(hi-lo)
	if hi == lo {
		marker = hi + 1
	}

	metricMin, metricMax := metricSpan(cands, p)
	for _, c := range cands {
		r := p.Radius(p.metricValue(c), metricMin, metricMax)
		drawCircle(out, int(c.X+0.5), int(c.Y+0.5), r, marker)
	}
	return out, nil
}

// metricSpan returns the metric extrema over the candidate set.
func metricSpan(cands []score.Scored, p MarkerParams) (float64, float64) {
	lo := p.metricValue(cands[0])
	hi := lo
	for _, c := range cands[1:] {
		v := p.metricValue(c)
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

// drawCircle writes a one-pixel circle outline with the midpoint algorithm.
func drawCircle(img *frame.Image, cx, cy, r int, v float64) {
	x, y := r, 0
	err := 1 - r
	for x >= y {
		img.Set(cx+x, cy+y, v)
		img.Set(cx+y, cy+x, v)
		img.Set(cx-y, cy+x, v)
		img.Set(cx-x, cy+y, v)
		img.Set(cx-x, cy-y, v)
		img.Set(cx-y, cy-x, v)
		img.Set(cx+y, cy-x, v)
		img.Set(cx+x, cy-y, v)
		y++
		if err < 0 {
			err += 2*y + 1
		} else {
			x--
			err += 2 * (y - x + 1)
		}
	}
}
