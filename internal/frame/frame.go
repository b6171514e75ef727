// Package frame provides the floating-point image representation shared by
// the pipeline stages, together with the robust statistics helpers they use.
package frame

import (
	"math"
)

// Image is a rectangular grid of float64 intensities in row-major order plus
// the header cards carried over from the file it was loaded from. Pipeline
// stages treat an Image as read-only; every stage that changes pixels returns
// a new Image.
type Image struct {
	Width  int
	Height int
	Pix    []float64
	Header map[string]string
}

// New allocates a zero-filled image.
func New(width, height int) (*Image, error) {
	if width <= 0 || height <= 0 {
		return nil, Inputf("new image", "dimensions %dx%d are not a 2-D grid", width, height)
	}
	return &Image{
		Width:  width,
		Height: height,
		Pix:    make([]float64, width*height),
		Header: make(map[string]string),
	}, nil
}

// FromSlice wraps an existing row-major buffer. The buffer is used directly,
// not copied.
func FromSlice(pix []float64, width, height int) (*Image, error) {
	if width <= 0 || height <= 0 {
		return nil, Inputf("from slice", "dimensions %dx%d are not a 2-D grid", width, height)
	}
	if len(pix) != width*height {
		return nil, Inputf("from slice", "buffer holds %d pixels, want %d", len(pix), width*height)
	}
	return &Image{Width: width, Height: height, Pix: pix, Header: make(map[string]string)}, nil
}

// FromRows builds an image from a slice of equal-length rows.
func FromRows(rows [][]float64) (*Image, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, Inputf("from rows", "empty pixel array")
	}
	width := len(rows[0])
	img, err := New(width, len(rows))
	if err != nil {
		return nil, err
	}
	for y, row := range rows {
		if len(row) != width {
			return nil, Inputf("from rows", "row %d has %d pixels, want %d", y, len(row), width)
		}
		copy(img.Pix[y*width:(y+1)*width], row)
	}
	return img, nil
}

// Validate checks the image is a usable 2-D grid. Every pipeline stage calls
// this on its inputs before touching pixel data.
func (m *Image) Validate() error {
	if m == nil {
		return Inputf("validate", "nil image")
	}
	if m.Width <= 0 || m.Height <= 0 {
		return Inputf("validate", "dimensions %dx%d are not a 2-D grid", m.Width, m.Height)
	}
	if len(m.Pix) != m.Width*m.Height {
		return Inputf("validate", "buffer holds %d pixels, want %d", len(m.Pix), m.Width*m.Height)
	}
	return nil
}

// At returns the pixel at (x, y). Out-of-bounds reads return 0.
func (m *Image) At(x, y int) float64 {
	if x < 0 || x >= m.Width || y < 0 || y >= m.Height {
		return 0
	}
	return m.Pix[y*m.Width+x]
}

// Set writes the pixel at (x, y). Out-of-bounds writes are dropped.
func (m *Image) Set(x, y int, v float64) {
	if x < 0 || x >= m.Width || y < 0 || y >= m.Height {
		return
	}
	m.Pix[y*m.Width+x] = v
}

// Clone returns a deep copy, header included.
func (m *Image) Clone() *Image {
	out := &Image{
		Width:  m.Width,
		Height: m.Height,
		Pix:    make([]float64, len(m.Pix)),
		Header: make(map[string]string, len(m.Header)),
	}
	copy(out.Pix, m.Pix)
	for k, v := range m.Header {
		out.Header[k] = v
	}
	return out
}

// MinMax returns the smallest and largest pixel values.
func (m *Image) MinMax() (float64, float64) {
	if len(m.Pix) == 0 {
		return 0, 0
	}
	lo, hi := m.Pix[0], m.Pix[0]
	for _, v := range m.Pix[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

// Sanitize replaces NaN and infinite pixels with the median of their finite
// 3x3 neighbours, or zero when a pixel has no finite neighbour. Returns the
// number of pixels replaced. Loaders run this once per image so the rest of
// the pipeline can assume finite data.
func (m *Image) Sanitize() int {
	replaced := 0
	var neigh [8]float64
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			v := m.Pix[y*m.Width+x]
			if !math.IsNaN(v) && !math.IsInf(v, 0) {
				continue
			}
			n := 0
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					if dx == 0 && dy == 0 {
						continue
					}
					nx, ny := x+dx, y+dy
					if nx < 0 || nx >= m.Width || ny < 0 || ny >= m.Height {
						continue
					}
					nv := m.Pix[ny*m.Width+nx]
					if math.IsNaN(nv) || math.IsInf(nv, 0) {
						continue
					}
					neigh[n] = nv
					n++
				}
			}
			if n == 0 {
				m.Pix[y*m.Width+x] = 0
			} else {
				m.Pix[y*m.Width+x] = medianInPlace(neigh[:n])
			}
			replaced++
		}
	}
	return replaced
}
