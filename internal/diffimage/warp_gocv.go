//go:build gocv

package diffimage

import (
	"image"

	"gocv.io/x/gocv"

	"transient-finder/internal/frame"
	"transient-finder/pkg/geometry"
)

// Resample maps the source image into a width x height target grid through
// OpenCV's perspective warp. The contract matches the pure Go build: tr maps
// source coordinates onto the target grid, sampling is bilinear, and the
// returned mask is true where the sample fell inside the source frame.
func Resample(src *frame.Image, tr geometry.Transform, width, height int) (*frame.Image, []bool, error) {
	if err := src.Validate(); err != nil {
		return nil, nil, err
	}
	out, err := frame.New(width, height)
	if err != nil {
		return nil, nil, err
	}
	if _, ok := tr.Inverse(); !ok {
		return nil, nil, frame.Inputf("resample", "transform is singular")
	}

	srcMat := gocv.NewMatWithSize(src.Height, src.Width, gocv.MatTypeCV64F)
	defer srcMat.Close()
	maskMat := gocv.NewMatWithSize(src.Height, src.Width, gocv.MatTypeCV64F)
	defer maskMat.Close()
	for y := 0; y < src.Height; y++ {
		for x := 0; x < src.Width; x++ {
			srcMat.SetDoubleAt(y, x, src.Pix[y*src.Width+x])
			maskMat.SetDoubleAt(y, x, 1)
		}
	}

	trMat := gocv.NewMatWithSize(3, 3, gocv.MatTypeCV64F)
	defer trMat.Close()
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			trMat.SetDoubleAt(i, j, tr[i][j])
		}
	}

	dst := gocv.NewMat()
	defer dst.Close()
	dstMask := gocv.NewMat()
	defer dstMask.Close()
	size := image.Pt(width, height)
	gocv.WarpPerspective(srcMat, &dst, trMat, size)
	gocv.WarpPerspective(maskMat, &dstMask, trMat, size)

	covered := make([]bool, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			// Interior samples keep a mask weight of exactly 1; anything the
			// warp blended with the outside drops below it.
			if dstMask.GetDoubleAt(y, x) >= 1 {
				out.Pix[y*width+x] = dst.GetDoubleAt(y, x)
				covered[y*width+x] = true
			}
		}
	}
	return out, covered, nil
}
