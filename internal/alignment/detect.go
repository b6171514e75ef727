package alignment

import (
	"math"
	"math/rand"
	"sort"

	"transient-finder/internal/frame"
)

const (
	descriptorBits = DescriptorSize * 8
	patchRadius    = 15 // descriptor sampling reach around a keypoint
	orientRadius   = 8  // moment window for the orientation estimate
)

// briefPattern holds the fixed descriptor comparison offsets, two points per
// bit. Generated once from a constant seed so descriptors are identical
// across runs and builds.
var briefPattern [descriptorBits][4]float64

func init() {
	rng := rand.New(rand.NewSource(31415))
	reach := float64(patchRadius - 2)
	for i := range briefPattern {
		for j := 0; j < 4; j++ {
			v := rng.NormFloat64() * reach / 2.5
			if v > reach {
				v = reach
			}
			if v < -reach {
				v = -reach
			}
			briefPattern[i][j] = v
		}
	}
}

// BlobDetector finds point sources as local maxima above a robust background
// threshold and describes each with an oriented 256-bit binary descriptor.
// Stars are intrinsically rotation invariant as locations; the orientation
// estimate makes the descriptor follow field rotation as well.
type BlobDetector struct {
	MaxKeypoints   int     // cap on returned keypoints, brightest first
	DetectionKappa float64 // detection threshold in sigmas above the clipped median
	MinSeparation  float64 // minimum distance between keypoints in pixels
}

// NewBlobDetector returns a detector with defaults suited to survey frames.
func NewBlobDetector() *BlobDetector {
	return &BlobDetector{
		MaxKeypoints:   400,
		DetectionKappa: 4.0,
		MinSeparation:  8.0,
	}
}

// DetectAndDescribe implements Detector. A frame with no significant local
// maxima yields an empty slice, not an error.
func (d *BlobDetector) DetectAndDescribe(img *frame.Image) ([]FeaturePoint, error) {
	if err := img.Validate(); err != nil {
		return nil, err
	}

	margin := patchRadius + 3
	if img.Width < 2*margin+1 || img.Height < 2*margin+1 {
		return nil, nil
	}

	stats := frame.SigmaClippedStats(img.Pix, 3.0, 5)
	if stats.Sigma <= 0 {
		return nil, nil
	}
	threshold := stats.Median + d.DetectionKappa*stats.Sigma

	type peak struct {
		x, y int
		v    float64
	}
	var peaks []peak
	for y := margin; y < img.Height-margin; y++ {
		row := y * img.Width
		for x := margin; x < img.Width-margin; x++ {
			v := img.Pix[row+x]
			if v <= threshold {
				continue
			}
			if !isLocalMax(img, x, y, v) {
				continue
			}
			peaks = append(peaks, peak{x, y, v})
		}
	}
	if len(peaks) == 0 {
		return nil, nil
	}

	// Brightest first, then suppress anything crowding a stronger peak.
	sort.Slice(peaks, func(i, j int) bool { return peaks[i].v > peaks[j].v })
	minSepSq := d.MinSeparation * d.MinSeparation
	kept := peaks[:0]
	for _, p := range peaks {
		crowded := false
		for _, q := range kept {
			dx := float64(p.x - q.x)
			dy := float64(p.y - q.y)
			if dx*dx+dy*dy < minSepSq {
				crowded = true
				break
			}
		}
		if !crowded {
			kept = append(kept, p)
			if len(kept) >= d.MaxKeypoints {
				break
			}
		}
	}

	points := make([]FeaturePoint, 0, len(kept))
	for _, p := range kept {
		cx, cy := refineCentroid(img, p.x, p.y, stats.Median)
		fp := FeaturePoint{X: cx, Y: cy, Response: p.v}
		theta := orientation(img, p.x, p.y, stats.Median)
		describe(img, p.x, p.y, theta, &fp.Desc)
		points = append(points, fp)
	}
	return points, nil
}

// isLocalMax reports whether (x, y) dominates its 8 neighbours.
func isLocalMax(img *frame.Image, x, y int, v float64) bool {
	for dy := -1; dy <= 1; dy++ {
		row := (y + dy) * img.Width
		for dx := -1; dx <= 1; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			if img.Pix[row+x+dx] > v {
				return false
			}
		}
	}
	return true
}

// refineCentroid computes a flux-weighted centroid in a 7x7 window, weighting
// each pixel by its excess over the background.
func refineCentroid(img *frame.Image, x, y int, background float64) (float64, float64) {
	var sx, sy, sw float64
	for dy := -3; dy <= 3; dy++ {
		for dx := -3; dx <= 3; dx++ {
			w := img.At(x+dx, y+dy) - background
			if w <= 0 {
				continue
			}
			sx += float64(x+dx) * w
			sy += float64(y+dy) * w
			sw += w
		}
	}
	if sw == 0 {
		return float64(x), float64(y)
	}
	return sx / sw, sy / sw
}

// orientation estimates the patch orientation from first-order intensity
// moments in a circular window.
func orientation(img *frame.Image, x, y int, background float64) float64 {
	var m10, m01 float64
	r2 := float64(orientRadius * orientRadius)
	for dy := -orientRadius; dy <= orientRadius; dy++ {
		for dx := -orientRadius; dx <= orientRadius; dx++ {
			if float64(dx*dx+dy*dy) > r2 {
				continue
			}
			w := img.At(x+dx, y+dy) - background
			if w <= 0 {
				continue
			}
			m10 += float64(dx) * w
			m01 += float64(dy) * w
		}
	}
	return math.Atan2(m01, m10)
}

// describe fills the descriptor by comparing smoothed intensity at rotated
// pattern point pairs.
func describe(img *frame.Image, x, y int, theta float64, desc *[DescriptorSize]byte) {
	sin, cos := math.Sincos(theta)
	for bit := 0; bit < descriptorBits; bit++ {
		p := briefPattern[bit]
		x1 := x + int(math.Round(cos*p[0]-sin*p[1]))
		y1 := y + int(math.Round(sin*p[0]+cos*p[1]))
		x2 := x + int(math.Round(cos*p[2]-sin*p[3]))
		y2 := y + int(math.Round(sin*p[2]+cos*p[3]))
		if smoothedAt(img, x1, y1) < smoothedAt(img, x2, y2) {
			desc[bit/8] |= 1 << uint(bit%8)
		}
	}
}

// smoothedAt samples a 3x3 box mean, the smoothing BRIEF-style comparisons
// need to tolerate pixel noise.
func smoothedAt(img *frame.Image, x, y int) float64 {
	var sum float64
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			sum += img.At(x+dx, y+dy)
		}
	}
	return sum / 9
}
