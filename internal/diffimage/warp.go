//go:build !gocv

package diffimage

import (
	"transient-finder/internal/frame"
	"transient-finder/pkg/geometry"
)

// Resample maps the source image into a width x height target grid. tr maps
// source coordinates onto the target grid; each target pixel samples the
// source at the inverse-transformed location with bilinear interpolation.
// The returned mask is true where the sample fell inside the source frame.
func Resample(src *frame.Image, tr geometry.Transform, width, height int) (*frame.Image, []bool, error) {
	if err := src.Validate(); err != nil {
		return nil, nil, err
	}
	out, err := frame.New(width, height)
	if err != nil {
		return nil, nil, err
	}
	covered := make([]bool, width*height)

	inv, ok := tr.Inverse()
	if !ok {
		return nil, nil, frame.Inputf("resample", "transform is singular")
	}

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			p := inv.Apply(geometry.Point2D{X: float64(x), Y: float64(y)})
			v, ok := bilinear(src, p.X, p.Y)
			if !ok {
				continue
			}
			out.Pix[y*width+x] = v
			covered[y*width+x] = true
		}
	}
	return out, covered, nil
}

// bilinear samples the image at a fractional position. Samples needing pixels
// outside the frame report ok=false.
func bilinear(img *frame.Image, x, y float64) (float64, bool) {
	x0 := int(x)
	y0 := int(y)
	if x < 0 || y < 0 || x0 > img.Width-1 || y0 > img.Height-1 {
		return 0, false
	}
	fx := x - float64(x0)
	fy := y - float64(y0)

	x1, y1 := x0, y0
	if fx > 0 {
		x1 = x0 + 1
	}
	if fy > 0 {
		y1 = y0 + 1
	}
	if x1 > img.Width-1 || y1 > img.Height-1 {
		return 0, false
	}

	v00 := img.Pix[y0*img.Width+x0]
	v10 := img.Pix[y0*img.Width+x1]
	v01 := img.Pix[y1*img.Width+x0]
	v11 := img.Pix[y1*img.Width+x1]

	top := v00*(1-fx) + v10*fx
	bot := v01*(1-fx) + v11*fx
	return top*(1-fy) + bot*fy, true
}
