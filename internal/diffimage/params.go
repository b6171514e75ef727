package diffimage

import "transient-finder/internal/frame"

// Params configures the cleaning stages. The stages run in a fixed order:
// threshold, size filter, morphology, smoothing. Disabling a stage leaves its
// input untouched.
type Params struct {
	// Sigma clipping of the raw residual for the noise-floor estimate.
	ClipKappa      float64
	ClipIterations int

	// Threshold stage: keep pixels at least NoiseKappa sigmas from the noise
	// floor and at least AbsoluteFloorFrac of the largest excursion.
	EnableThreshold   bool
	NoiseKappa        float64
	AbsoluteFloorFrac float64

	// Size filter: drop connected components smaller than this pixel count.
	EnableSizeFilter bool
	MinComponentArea int

	// Morphology: open-then-close on the non-zero support with a disk of the
	// given radius. Opening removes speckle, closing fills interior holes.
	EnableMorphology bool
	MorphRadius      int

	// Smoothing: 3x3 median then a separable Gaussian, stabilizing the shape
	// metrics computed downstream.
	EnableSmoothing bool
	GaussianSigma   float64
}

// DefaultParams returns cleaning defaults for typical survey residuals.
func DefaultParams() Params {
	return Params{
		ClipKappa:      3.0,
		ClipIterations: 5,

		EnableThreshold:   true,
		NoiseKappa:        4.0,
		AbsoluteFloorFrac: 0.02,

		EnableSizeFilter: true,
		MinComponentArea: 3,

		EnableMorphology: true,
		MorphRadius:      1,

		EnableSmoothing: true,
		GaussianSigma:   1.0,
	}
}

// WithNoiseKappa returns a copy with the detection threshold replaced.
func (p Params) WithNoiseKappa(kappa float64) Params {
	p.NoiseKappa = kappa
	return p
}

// Validate rejects out-of-range parameters before any pixel work starts.
func (p Params) Validate() error {
	if p.ClipKappa <= 0 {
		return frame.Configf("clip_kappa", "must be positive, got %g", p.ClipKappa)
	}
	if p.ClipIterations <= 0 {
		return frame.Configf("clip_iterations", "must be positive, got %d", p.ClipIterations)
	}
	if p.EnableThreshold {
		if p.NoiseKappa <= 0 {
			return frame.Configf("noise_sigma_multiplier", "must be positive, got %g", p.NoiseKappa)
		}
		if p.AbsoluteFloorFrac < 0 || p.AbsoluteFloorFrac >= 1 {
			return frame.Configf("absolute_floor_frac", "must be in [0, 1), got %g", p.AbsoluteFloorFrac)
		}
	}
	if p.EnableSizeFilter && p.MinComponentArea < 1 {
		return frame.Configf("min_component_area", "must be at least 1, got %d", p.MinComponentArea)
	}
	if p.EnableMorphology && p.MorphRadius < 1 {
		return frame.Configf("morph_radius", "must be at least 1, got %d", p.MorphRadius)
	}
	if p.EnableSmoothing && p.GaussianSigma < 0 {
		return frame.Configf("gaussian_sigma", "must not be negative, got %g", p.GaussianSigma)
	}
	return nil
}
