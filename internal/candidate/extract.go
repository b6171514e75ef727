package candidate

import (
	"math"
	"sort"

	"transient-finder/internal/diffimage"
	"transient-finder/internal/frame"
	"transient-finder/pkg/geometry"
)

// Params configures extraction.
type Params struct {
	MinArea      int
	Connectivity Connectivity

	// Optional ranking by a weighted composite of proximity to the frame
	// center and total signal. The weights are re-normalized to sum to 1;
	// a non-positive sum is a configuration error.
	RankByComposite bool
	CenterWeight    float64
	SignalWeight    float64
}

// DefaultParams returns extraction defaults.
func DefaultParams() Params {
	return Params{
		MinArea:      3,
		Connectivity: Connect8,

		RankByComposite: false,
		CenterWeight:    0.3,
		SignalWeight:    0.7,
	}
}

// Validate rejects out-of-range parameters.
func (p Params) Validate() error {
	if p.MinArea < 1 {
		return frame.Configf("min_candidate_area", "must be at least 1, got %d", p.MinArea)
	}
	if p.Connectivity != Connect4 && p.Connectivity != Connect8 {
		return frame.Configf("connectivity", "must be 4 or 8, got %d", p.Connectivity)
	}
	if p.RankByComposite {
		if p.CenterWeight < 0 || p.SignalWeight < 0 {
			return frame.Configf("rank_weights", "weights must not be negative, got %g and %g", p.CenterWeight, p.SignalWeight)
		}
		if p.CenterWeight+p.SignalWeight <= 0 {
			return frame.Configf("rank_weights", "weights sum to zero and cannot be normalized")
		}
	}
	return nil
}

// Extract labels connected non-zero regions of the difference map and turns
// each sufficiently large region into a Candidate. A map with no non-zero
// pixels yields an empty slice. Components touching the frame edge are kept
// but flagged.
func Extract(dm *diffimage.DiffMap, p Params) ([]Candidate, error) {
	if dm == nil || dm.Img == nil {
		return nil, frame.Inputf("extract", "nil difference map")
	}
	if err := dm.Img.Validate(); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	img := dm.Img
	w, h := img.Width, img.Height
	visited := make([]bool, w*h)
	stack := make([]int, 0, 256)
	member := make([]int, 0, 256)

	var out []Candidate
	for start := range img.Pix {
		if visited[start] || img.Pix[start] == 0 {
			continue
		}
		stack = append(stack[:0], start)
		member = member[:0]
		visited[start] = true
		for len(stack) > 0 {
			idx := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			member = append(member, idx)
			x, y := idx%w, idx/w
			for _, d := range neighbours(p.Connectivity) {
				nx, ny := x+d[0], y+d[1]
				if nx < 0 || nx >= w || ny < 0 || ny >= h {
					continue
				}
				n := ny*w + nx
				if !visited[n] && img.Pix[n] != 0 {
					visited[n] = true
					stack = append(stack, n)
				}
			}
		}
		if len(member) < p.MinArea {
			continue
		}
		out = append(out, measure(img, dm, member))
	}

	// Stable reading order before any ranking: top-to-bottom, left-to-right.
	sort.Slice(out, func(i, j int) bool {
		if out[i].Y != out[j].Y {
			return out[i].Y < out[j].Y
		}
		return out[i].X < out[j].X
	})
	if p.RankByComposite {
		rankComposite(out, w, h, p)
	}
	for i := range out {
		out[i].ID = i + 1
	}
	return out, nil
}

func neighbours(c Connectivity) [][2]int {
	if c == Connect4 {
		return [][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}
	}
	return [][2]int{
		{1, 0}, {-1, 0}, {0, 1}, {0, -1},
		{1, 1}, {1, -1}, {-1, 1}, {-1, -1},
	}
}

// measure aggregates the photometric and shape statistics of one component.
func measure(img *frame.Image, dm *diffimage.DiffMap, member []int) Candidate {
	w := img.Width
	c := Candidate{Area: len(member)}

	minX, minY := w, img.Height
	maxX, maxY := 0, 0
	var sumW, sumX, sumY, total float64
	for _, idx := range member {
		x, y := idx%w, idx/w
		v := img.Pix[idx]
		total += v
		if math.Abs(v) > math.Abs(c.Peak) {
			c.Peak = v
		}
		// Centroid and moments weight by magnitude so dimming regions get
		// sensible shapes too.
		wgt := math.Abs(v)
		sumW += wgt
		sumX += float64(x) * wgt
		sumY += float64(y) * wgt
		if x < minX {
			minX = x
		}
		if x > maxX {
			maxX = x
		}
		if y < minY {
			minY = y
		}
		if y > maxY {
			maxY = y
		}
	}
	c.Total = total
	c.Mean = total / float64(len(member))
	if sumW > 0 {
		c.X = sumX / sumW
		c.Y = sumY / sumW
	} else {
		c.X = float64(minX+maxX) / 2
		c.Y = float64(minY+maxY) / 2
	}
	c.Bounds = geometry.RectInt{X: minX, Y: minY, Width: maxX - minX + 1, Height: maxY - minY + 1}
	c.OnBoundary = minX == 0 || minY == 0 || maxX == w-1 || maxY == img.Height-1

	c.Elongation, c.Compactness = shapeFromMoments(img, member, c.X, c.Y, sumW, len(member))

	if dm.NoiseSigma > 0 {
		c.SNR = math.Abs(c.Peak-dm.NoiseFloor) / dm.NoiseSigma
	}
	return c
}

// shapeFromMoments derives elongation and compactness from the second-order
// central moments of the component's absolute intensity.
func shapeFromMoments(img *frame.Image, member []int, cx, cy, sumW float64, area int) (elongation, compactness float64) {
	elongation = 1
	compactness = 1
	if sumW <= 0 || len(member) < 2 {
		return elongation, compactness
	}
	w := img.Width
	var mxx, myy, mxy float64
	for _, idx := range member {
		x, y := idx%w, idx/w
		wgt := math.Abs(img.Pix[idx])
		dx := float64(x) - cx
		dy := float64(y) - cy
		mxx += wgt * dx * dx
		myy += wgt * dy * dy
		mxy += wgt * dx * dy
	}
	mxx /= sumW
	myy /= sumW
	mxy /= sumW

	// Eigenvalues of the 2x2 covariance are the squared principal semi-axis
	// lengths.
	tr := mxx + myy
	det := mxx*myy - mxy*mxy
	disc := tr*tr/4 - det
	if disc < 0 {
		disc = 0
	}
	root := math.Sqrt(disc)
	l1 := tr/2 + root
	l2 := tr/2 - root
	if l2 <= 1e-9 {
		// Degenerate second moment: a line of pixels.
		return math.Max(1, float64(area)), 0
	}
	elongation = math.Sqrt(l1 / l2)

	// Area of the 2-sigma moment ellipse versus the pixel count.
	ellipse := math.Pi * 2 * math.Sqrt(l1) * 2 * math.Sqrt(l2)
	if ellipse > 0 {
		compactness = float64(area) / ellipse
		if compactness > 1 {
			compactness = 1
		}
	}
	return elongation, compactness
}

// rankComposite orders candidates by a weighted blend of proximity to the
// frame center and normalized total signal, strongest first.
func rankComposite(cands []Candidate, width, height int, p Params) {
	sum := p.CenterWeight + p.SignalWeight
	wc := p.CenterWeight / sum
	ws := p.SignalWeight / sum

	maxDist := math.Sqrt(float64(width*width+height*height)) / 2
	var maxSignal float64
	for _, c := range cands {
		if a := math.Abs(c.Total); a > maxSignal {
			maxSignal = a
		}
	}
	score := func(c Candidate) float64 {
		s := wc * (1 - c.CenterDistance(width, height)/maxDist)
		if maxSignal > 0 {
			s += ws * math.Abs(c.Total) / maxSignal
		}
		return s
	}
	sort.SliceStable(cands, func(i, j int) bool {
		return score(cands[i]) > score(cands[j])
	})
}
