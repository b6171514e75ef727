package alignment

// Options configures the registration process.
type Options struct {
	Class TransformClass // geometric model to fit

	// Central region optimization: restrict feature search to a centered
	// square window when pointing errors are known to be small.
	UseCentralRegion  bool
	CentralRegionSize int // window edge in pixels

	// Intensity normalization percentiles applied before detection.
	ClipLoPercentile float64
	ClipHiPercentile float64

	RANSACIterations int     // hypothesis count for the robust fit
	InlierThreshold  float64 // max residual in pixels for an inlier
	MinInlierRatio   float64 // alignment fails below this consensus floor
	Seed             int64   // seeds the RANSAC sampler; fixed seed, fixed result

	// Detector and Matcher default to the built-in implementations when nil.
	Detector Detector
	Matcher  Matcher
}

// DefaultOptions returns registration defaults tuned for typical survey
// frames with modest pointing error.
func DefaultOptions() Options {
	return Options{
		Class: ClassRigid,

		UseCentralRegion:  false,
		CentralRegionSize: 512,

		// Clip hot pixels and the deep tail so descriptor sampling sees a
		// stable dynamic range.
		ClipLoPercentile: 0.5,
		ClipHiPercentile: 99.5,

		RANSACIterations: 2000,
		InlierThreshold:  2.0,
		MinInlierRatio:   0.25,
		Seed:             1,
	}
}

// WithClass returns a copy of the options with the transform class replaced.
func (o Options) WithClass(class TransformClass) Options {
	o.Class = class
	return o
}

// WithCentralRegion returns a copy restricting feature search to a centered
// window of the given edge length.
func (o Options) WithCentralRegion(size int) Options {
	o.UseCentralRegion = true
	o.CentralRegionSize = size
	return o
}
