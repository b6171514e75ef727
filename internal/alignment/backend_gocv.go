//go:build gocv

package alignment

import (
	"transient-finder/internal/frame"

	"gocv.io/x/gocv"
)

// OpenCV-backed detection and matching. Selected with -tags gocv; the
// interfaces and results match the pure Go backend.

func newDefaultDetector() Detector {
	return &ORBDetector{MaxKeypoints: 400}
}

func newDefaultMatcher() Matcher {
	return &BFMatcher{MaxDistance: 64}
}

// ORBDetector wraps the OpenCV ORB feature detector.
type ORBDetector struct {
	MaxKeypoints int
}

// DetectAndDescribe implements Detector with ORB keypoints and descriptors.
func (d *ORBDetector) DetectAndDescribe(img *frame.Image) ([]FeaturePoint, error) {
	if err := img.Validate(); err != nil {
		return nil, err
	}

	m := matFromImage(img)
	defer m.Close()

	orb := gocv.NewORB()
	defer orb.Close()

	mask := gocv.NewMat()
	defer mask.Close()
	kps, desc := orb.DetectAndCompute(m, mask)
	defer desc.Close()

	if len(kps) == 0 || desc.Rows() == 0 {
		return nil, nil
	}

	limit := len(kps)
	if d.MaxKeypoints > 0 && limit > d.MaxKeypoints {
		limit = d.MaxKeypoints
	}
	points := make([]FeaturePoint, 0, limit)
	for i := 0; i < limit; i++ {
		fp := FeaturePoint{X: kps[i].X, Y: kps[i].Y, Response: kps[i].Response}
		for c := 0; c < DescriptorSize && c < desc.Cols(); c++ {
			fp.Desc[c] = desc.GetUCharAt(i, c)
		}
		points = append(points, fp)
	}
	return points, nil
}

// BFMatcher wraps the OpenCV brute-force Hamming matcher with cross checking,
// which is exactly mutual nearest-neighbour matching.
type BFMatcher struct {
	MaxDistance int
}

// Match implements Matcher.
func (m *BFMatcher) Match(sci, ref []FeaturePoint) []Correspondence {
	if len(sci) == 0 || len(ref) == 0 {
		return nil
	}

	sciDesc := descriptorMat(sci)
	defer sciDesc.Close()
	refDesc := descriptorMat(ref)
	defer refDesc.Close()

	bf := gocv.NewBFMatcherWithParams(gocv.NormHamming, true)
	defer bf.Close()

	var out []Correspondence
	for _, group := range bf.KnnMatch(sciDesc, refDesc, 1) {
		if len(group) == 0 {
			continue
		}
		dm := group[0]
		if int(dm.Distance) > m.MaxDistance {
			continue
		}
		out = append(out, Correspondence{
			Sci:      sci[dm.QueryIdx],
			Ref:      ref[dm.TrainIdx],
			Distance: int(dm.Distance),
		})
	}
	return out
}

// matFromImage converts a normalized [0,255] frame into an 8-bit Mat.
func matFromImage(img *frame.Image) gocv.Mat {
	m := gocv.NewMatWithSize(img.Height, img.Width, gocv.MatTypeCV8U)
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			v := img.Pix[y*img.Width+x]
			if v < 0 {
				v = 0
			}
			if v > 255 {
				v = 255
			}
			m.SetUCharAt(y, x, uint8(v))
		}
	}
	return m
}

// descriptorMat packs binary descriptors into the row-per-point Mat the
// matcher expects.
func descriptorMat(pts []FeaturePoint) gocv.Mat {
	m := gocv.NewMatWithSize(len(pts), DescriptorSize, gocv.MatTypeCV8U)
	for i, p := range pts {
		for c := 0; c < DescriptorSize; c++ {
			m.SetUCharAt(i, c, p.Desc[c])
		}
	}
	return m
}
