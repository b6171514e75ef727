// Package alignment registers a science image against a reference image of
// the same field. It detects keypoints in both frames, matches their binary
// descriptors, and estimates a rigid, similarity, or projective transform
// with an outlier-rejecting fit.
package alignment

import (
	"strings"

	"transient-finder/internal/frame"
	"transient-finder/pkg/geometry"
)

// TransformClass selects the geometric model fitted between the two frames.
type TransformClass int

const (
	// ClassRigid fits rotation plus translation.
	ClassRigid TransformClass = iota
	// ClassSimilarity adds a uniform scale.
	ClassSimilarity
	// ClassHomography fits a full projective transform.
	ClassHomography
)

func (c TransformClass) String() string {
	switch c {
	case ClassRigid:
		return "rigid"
	case ClassSimilarity:
		return "similarity"
	case ClassHomography:
		return "homography"
	default:
		return "unknown"
	}
}

// ParseClass maps a configuration string onto a TransformClass.
func ParseClass(s string) (TransformClass, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "rigid":
		return ClassRigid, true
	case "similarity":
		return ClassSimilarity, true
	case "homography":
		return ClassHomography, true
	}
	return ClassRigid, false
}

// MinCorrespondences returns the smallest number of surviving matches the
// class accepts before alignment is declared failed.
func (c TransformClass) MinCorrespondences() int {
	if c == ClassHomography {
		return 4
	}
	return 3
}

// minimalSample is the number of correspondences one RANSAC hypothesis needs.
func (c TransformClass) minimalSample() int {
	if c == ClassHomography {
		return 4
	}
	return 2
}

// DescriptorSize is the binary descriptor length in bytes (256 bits).
const DescriptorSize = 32

// FeaturePoint is a detected keypoint with its binary descriptor. Points are
// transient: they exist only while a pair of frames is being matched.
type FeaturePoint struct {
	X, Y float64
	// Response orders keypoints by strength; brighter blobs score higher.
	Response float64
	Desc     [DescriptorSize]byte
}

// Point returns the keypoint location.
func (f FeaturePoint) Point() geometry.Point2D {
	return geometry.Point2D{X: f.X, Y: f.Y}
}

// Correspondence pairs a science keypoint with a reference keypoint.
type Correspondence struct {
	Sci      FeaturePoint
	Ref      FeaturePoint
	Distance int // Hamming distance between the descriptors
}

// MatchStats carries the registration diagnostics exposed to callers.
type MatchStats struct {
	KeypointsRef    int
	KeypointsSci    int
	Correspondences int
	Inliers         int
	InlierRatio     float64
	MeanError       float64 // mean inlier residual in pixels
	// Coverage is the convex-hull area of the inlier keypoints as a
	// fraction of the science frame. Low coverage means the fit is
	// extrapolating over most of the image.
	Coverage float64
}

// Result is the outcome of registering one image pair. Success is a flag,
// never an error: a frame with no usable features is a valid outcome.
type Result struct {
	Transform geometry.Transform // maps science coordinates onto the reference grid
	Class     TransformClass
	Success   bool
	Reason    string // machine-readable failure reason when Success is false
	Stats     MatchStats
}

// Detector finds keypoints and computes their descriptors. Implementations
// must be safe for sequential reuse across image pairs.
type Detector interface {
	DetectAndDescribe(img *frame.Image) ([]FeaturePoint, error)
}

// Matcher pairs keypoints between two frames by descriptor distance.
type Matcher interface {
	Match(sci, ref []FeaturePoint) []Correspondence
}
