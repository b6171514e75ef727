package alignment

import (
	"fmt"
	"math/rand"

	"transient-finder/internal/frame"
	"transient-finder/pkg/geometry"
)

// Align registers the science image against the reference image and returns
// the transform mapping science coordinates onto the reference grid.
//
// Align is a pure function over its inputs. Missing features, thin
// correspondence sets, and weak consensus all come back as Success=false
// with a reason; an error is returned only for malformed input.
func Align(ref, sci *frame.Image, opts Options) (*Result, error) {
	if err := ref.Validate(); err != nil {
		return nil, err
	}
	if err := sci.Validate(); err != nil {
		return nil, err
	}

	det := opts.Detector
	if det == nil {
		det = newDefaultDetector()
	}
	matcher := opts.Matcher
	if matcher == nil {
		matcher = newDefaultMatcher()
	}

	normRef := Normalize(ref, opts.ClipLoPercentile, opts.ClipHiPercentile)
	normSci := Normalize(sci, opts.ClipLoPercentile, opts.ClipHiPercentile)

	var refOffX, refOffY, sciOffX, sciOffY int
	if opts.UseCentralRegion {
		normRef, refOffX, refOffY = cropCenter(normRef, opts.CentralRegionSize)
		normSci, sciOffX, sciOffY = cropCenter(normSci, opts.CentralRegionSize)
	}

	result := &Result{
		Transform: geometry.IdentityTransform(),
		Class:     opts.Class,
	}

	kpsRef, err := det.DetectAndDescribe(normRef)
	if err != nil {
		return nil, err
	}
	kpsSci, err := det.DetectAndDescribe(normSci)
	if err != nil {
		return nil, err
	}
	offsetKeypoints(kpsRef, refOffX, refOffY)
	offsetKeypoints(kpsSci, sciOffX, sciOffY)
	result.Stats.KeypointsRef = len(kpsRef)
	result.Stats.KeypointsSci = len(kpsSci)

	if len(kpsRef) == 0 || len(kpsSci) == 0 {
		result.Reason = "no keypoints detected"
		return result, nil
	}

	corr := matcher.Match(kpsSci, kpsRef)
	result.Stats.Correspondences = len(corr)
	minCorr := opts.Class.MinCorrespondences()
	if len(corr) < minCorr {
		result.Reason = fmt.Sprintf("%d correspondences, %s needs %d", len(corr), opts.Class, minCorr)
		return result, nil
	}

	src := make([]geometry.Point2D, len(corr))
	dst := make([]geometry.Point2D, len(corr))
	for i, c := range corr {
		src[i] = c.Sci.Point()
		dst[i] = c.Ref.Point()
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	tr, inliers, err := EstimateRANSAC(src, dst, opts.Class, opts.RANSACIterations, opts.InlierThreshold, rng)
	if err != nil {
		result.Reason = err.Error()
		return result, nil
	}

	result.Stats.Inliers = len(inliers)
	result.Stats.InlierRatio = float64(len(inliers)) / float64(len(corr))
	if len(inliers) < minCorr {
		result.Reason = fmt.Sprintf("%d inliers survive, %s needs %d", len(inliers), opts.Class, minCorr)
		return result, nil
	}
	if result.Stats.InlierRatio < opts.MinInlierRatio {
		result.Reason = fmt.Sprintf("inlier ratio %.2f below floor %.2f", result.Stats.InlierRatio, opts.MinInlierRatio)
		return result, nil
	}

	result.Transform = tr
	result.Stats.MeanError = MeanAlignmentError(src, dst, tr, inliers)
	result.Stats.Coverage = inlierCoverage(src, inliers, sci.Width, sci.Height)
	result.Success = true
	return result, nil
}

// inlierCoverage measures the convex-hull footprint of the inlier keypoints
// relative to the frame area.
func inlierCoverage(src []geometry.Point2D, inliers []int, w, h int) float64 {
	if w <= 0 || h <= 0 {
		return 0
	}
	pts := make([]geometry.Point2D, len(inliers))
	for i, idx := range inliers {
		pts[i] = src[idx]
	}
	hull := geometry.ConvexHull(pts)
	return geometry.PolygonArea(hull) / float64(w*h)
}

// offsetKeypoints shifts window coordinates back into the full frame after a
// central-region crop.
func offsetKeypoints(pts []FeaturePoint, offX, offY int) {
	if offX == 0 && offY == 0 {
		return
	}
	for i := range pts {
		pts[i].X += float64(offX)
		pts[i].Y += float64(offY)
	}
}
