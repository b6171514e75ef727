package diffimage

import (
	"math"
	"sort"

	"transient-finder/internal/frame"
)

// removeSmallComponents zeroes 8-connected non-zero regions smaller than
// minArea pixels.
func removeSmallComponents(img *frame.Image, minArea int) {
	w, h := img.Width, img.Height
	visited := make([]bool, w*h)
	stack := make([]int, 0, 256)
	component := make([]int, 0, 256)

	for start := range img.Pix {
		if visited[start] || img.Pix[start] == 0 {
			continue
		}
		stack = append(stack[:0], start)
		component = component[:0]
		visited[start] = true
		for len(stack) > 0 {
			idx := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			component = append(component, idx)
			x, y := idx%w, idx/w
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					nx, ny := x+dx, y+dy
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
		}
		if len(component) < minArea {
			for _, idx := range component {
				img.Pix[idx] = 0
			}
		}
	}
}

// openClose runs a binary open then close over the non-zero support with a
// disk structuring element. Opening deletes speckle the size filter missed;
// closing fills small interior holes, assigning filled pixels the mean of
// their non-zero neighbours so shape metrics see a continuous region.
func openClose(img *frame.Image, radius int) {
	mask := make([]bool, len(img.Pix))
	for i, v := range img.Pix {
		mask[i] = v != 0
	}

	opened := dilateMask(erodeMask(mask, img.Width, img.Height, radius), img.Width, img.Height, radius)
	closed := erodeMask(dilateMask(opened, img.Width, img.Height, radius), img.Width, img.Height, radius)

	for i := range img.Pix {
		switch {
		case !closed[i]:
			img.Pix[i] = 0
		case img.Pix[i] == 0:
			img.Pix[i] = neighbourMean(img, i%img.Width, i/img.Width)
		}
	}
}

// neighbourMean averages the non-zero 8-neighbours of (x, y).
func neighbourMean(img *frame.Image, x, y int) float64 {
	var sum float64
	n := 0
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			v := img.At(x+dx, y+dy)
			if v != 0 {
				sum += v
				n++
			}
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// diskOffsets returns the structuring-element offsets for a disk of the
// given radius.
func diskOffsets(radius int) [][2]int {
	var offs [][2]int
	r2 := radius * radius
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			if dx*dx+dy*dy <= r2 {
				offs = append(offs, [2]int{dx, dy})
			}
		}
	}
	return offs
}

func erodeMask(mask []bool, w, h, radius int) []bool {
	offs := diskOffsets(radius)
	out := make([]bool, len(mask))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			keep := mask[y*w+x]
			for _, o := range offs {
				if !keep {
					break
				}
				nx, ny := x+o[0], y+o[1]
				if nx < 0 || nx >= w || ny < 0 || ny >= h || !mask[ny*w+nx] {
					keep = false
				}
			}
			out[y*w+x] = keep
		}
	}
	return out
}

func dilateMask(mask []bool, w, h, radius int) []bool {
	offs := diskOffsets(radius)
	out := make([]bool, len(mask))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if !mask[y*w+x] {
				continue
			}
			for _, o := range offs {
				nx, ny := x+o[0], y+o[1]
				if nx >= 0 && nx < w && ny >= 0 && ny < h {
					out[ny*w+nx] = true
				}
			}
		}
	}
	return out
}

// median3x3 replaces each pixel with the median of its 3x3 neighbourhood,
// clamping the window at the frame edges.
func median3x3(img *frame.Image) {
	src := make([]float64, len(img.Pix))
	copy(src, img.Pix)
	var window [9]float64
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			n := 0
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					nx, ny := x+dx, y+dy
					if nx < 0 || nx >= img.Width || ny < 0 || ny >= img.Height {
						continue
					}
					window[n] = src[ny*img.Width+nx]
					n++
				}
			}
			w := window[:n]
			sort.Float64s(w)
			img.Pix[y*img.Width+x] = w[n/2]
		}
	}
}

// GaussianSmooth returns a copy of the image convolved with a separable
// Gaussian kernel. A non-positive sigma returns an unmodified copy.
func GaussianSmooth(img *frame.Image, sigma float64) *frame.Image {
	out := img.Clone()
	if sigma > 0 {
		gaussianInPlace(out, sigma)
	}
	return out
}

// gaussianInPlace convolves the image with a separable Gaussian kernel,
// renormalizing at the edges so flux near the border is not bled away.
func gaussianInPlace(img *frame.Image, sigma float64) {
	radius := int(math.Ceil(3 * sigma))
	if radius < 1 {
		radius = 1
	}
	kernel := make([]float64, 2*radius+1)
	var sum float64
	for i := range kernel {
		d := float64(i - radius)
		kernel[i] = math.Exp(-d * d / (2 * sigma * sigma))
		sum += kernel[i]
	}
	for i := range kernel {
		kernel[i] /= sum
	}

	tmp := make([]float64, len(img.Pix))
	// Horizontal pass.
	for y := 0; y < img.Height; y++ {
		row := y * img.Width
		for x := 0; x < img.Width; x++ {
			var acc, wsum float64
			for k := -radius; k <= radius; k++ {
				nx := x + k
				if nx < 0 || nx >= img.Width {
					continue
				}
				w := kernel[k+radius]
				acc += img.Pix[row+nx] * w
				wsum += w
			}
			tmp[row+x] = acc / wsum
		}
	}
	// Vertical pass.
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			var acc, wsum float64
			for k := -radius; k <= radius; k++ {
				ny := y + k
				if ny < 0 || ny >= img.Height {
					continue
				}
				w := kernel[k+radius]
				acc += tmp[ny*img.Width+x] * w
				wsum += w
			}
			img.Pix[y*img.Width+x] = acc / wsum
		}
	}
}
