// Package candidate extracts discrete transient candidates from a cleaned
// difference map by connected-component labelling.
package candidate

import (
	"math"

	"transient-finder/pkg/geometry"
)

// Connectivity selects the neighbourhood used when labelling components.
type Connectivity int

const (
	// Connect8 treats diagonal neighbours as connected (the default).
	Connect8 Connectivity = 8
	// Connect4 restricts connectivity to the four edge neighbours.
	Connect4 Connectivity = 4
)

// Candidate is one connected region of significant residual signal. The
// extractor fills the geometric and photometric fields; classification is
// layered on top by the scoring stage.
type Candidate struct {
	ID int

	// Flux-weighted centroid in difference-map coordinates.
	X, Y float64

	Area  int
	Peak  float64 // pixel with the largest absolute value, sign preserved
	Mean  float64
	Total float64 // net flux; negative means dimming or a subtraction artifact
	SNR   float64

	// Shape descriptors from second-order intensity moments.
	Elongation  float64 // principal-axis length ratio, >= 1
	Compactness float64 // area over the moment-ellipse area, ~1 for a disk

	// OnBoundary marks components touching the frame edge; their shape
	// metrics are unreliable because part of the region may be cut off.
	OnBoundary bool

	Bounds geometry.RectInt
}

// Center returns the candidate centroid as a point.
func (c Candidate) Center() geometry.Point2D {
	return geometry.Point2D{X: c.X, Y: c.Y}
}

// EdgeDistance returns the distance from the centroid to the nearest frame
// edge.
func (c Candidate) EdgeDistance(width, height int) float64 {
	d := c.X
	if v := float64(width-1) - c.X; v < d {
		d = v
	}
	if c.Y < d {
		d = c.Y
	}
	if v := float64(height-1) - c.Y; v < d {
		d = v
	}
	if d < 0 {
		d = 0
	}
	return d
}

// CenterDistance returns the distance from the centroid to the frame center.
func (c Candidate) CenterDistance(width, height int) float64 {
	dx := c.X - float64(width-1)/2
	dy := c.Y - float64(height-1)/2
	return math.Sqrt(dx*dx + dy*dy)
}
