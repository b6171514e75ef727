package alignment

import (
	"transient-finder/internal/frame"
)

// Normalize rescales an image onto [0, 255] between the given intensity
// percentiles, clamping values outside them. Percentile clipping keeps hot
// pixels and cosmic-ray spikes from compressing the range the descriptors
// sample. A flat image comes back all zero.
func Normalize(img *frame.Image, loPct, hiPct float64) *frame.Image {
	out := img.Clone()
	lo := frame.Percentile(img.Pix, loPct)
	hi := frame.Percentile(img.Pix, hiPct)
	if hi <= lo {
		for i := range out.Pix {
			out.Pix[i] = 0
		}
		return out
	}
	scale := 255.0 / (hi - lo)
	for i, v := range img.Pix {
		v = (v - lo) * scale
		if v < 0 {
			v = 0
		}
		if v > 255 {
			v = 255
		}
		out.Pix[i] = v
	}
	return out
}

// cropCenter extracts a centered square window of the given edge length.
// Windows larger than the image collapse to the full frame. The returned
// offsets map window coordinates back to full-frame coordinates.
func cropCenter(img *frame.Image, size int) (*frame.Image, int, int) {
	if size <= 0 || (size >= img.Width && size >= img.Height) {
		return img, 0, 0
	}
	w, h := size, size
	if w > img.Width {
		w = img.Width
	}
	if h > img.Height {
		h = img.Height
	}
	offX := (img.Width - w) / 2
	offY := (img.Height - h) / 2

	out, _ := frame.New(w, h)
	for y := 0; y < h; y++ {
		srcRow := (y+offY)*img.Width + offX
		copy(out.Pix[y*w:(y+1)*w], img.Pix[srcRow:srcRow+w])
	}
	return out, offX, offY
}
