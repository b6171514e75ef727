//go:build !gocv

package alignment

// The default build carries no cgo dependency; detection and matching run on
// the pure Go implementations. Build with -tags gocv for the OpenCV backend.

func newDefaultDetector() Detector {
	return NewBlobDetector()
}

func newDefaultMatcher() Matcher {
	return NewHammingMatcher()
}
