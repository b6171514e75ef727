// Package diffimage computes the cleaned difference between a registered
// image pair. The science frame is resampled onto the reference grid, the
// frames are subtracted, and a fixed sequence of noise-suppression stages
// turns the raw residual into a map where non-zero pixels are significant
// excess signal.
package diffimage

import (
	"math"

	"transient-finder/internal/frame"
	"transient-finder/pkg/geometry"
)

// DiffMap is the cleaned residual between two registered frames, together
// with the noise statistics downstream scoring needs. Pixels keep their sign:
// positive is brightening in the science frame, negative is dimming or a
// subtraction artifact.
type DiffMap struct {
	Img        *frame.Image
	Residual   *frame.Image // raw residual before any cleaning, kept for vetting
	NoiseFloor float64      // clipped median of the raw residual's non-zero population
	NoiseSigma float64      // clipped scale of the same population
	Peak       float64      // largest absolute pixel value after cleaning
	AllZero    bool         // the raw residual had no non-zero pixels
}

// Compute resamples the science frame into the reference frame through the
// inverse of tr, subtracts the reference, and runs the cleaning stages.
// tr maps science coordinates onto the reference grid. A residual with no
// non-zero pixels short-circuits to an all-zero map with AllZero set; that is
// a valid outcome, not an error.
func Compute(ref, sci *frame.Image, tr geometry.Transform, p Params) (*DiffMap, error) {
	if err := ref.Validate(); err != nil {
		return nil, err
	}
	if err := sci.Validate(); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	aligned, covered, err := Resample(sci, tr, ref.Width, ref.Height)
	if err != nil {
		return nil, err
	}

	// Science minus reference, so a new source in the science frame comes out
	// positive. Pixels the science frame never covered are forced to zero
	// rather than left as a spurious copy of the reference.
	raw := ref.Clone()
	for i := range raw.Pix {
		if covered[i] {
			raw.Pix[i] = aligned.Pix[i] - ref.Pix[i]
		} else {
			raw.Pix[i] = 0
		}
	}
	return Clean(raw, p)
}

// Clean runs the noise-suppression stages over an already-computed raw
// residual. The stage order is fixed; later stages assume the suppression the
// earlier ones performed. Each stage can be disabled through Params. Clean
// owns the raw buffer it is handed.
func Clean(raw *frame.Image, p Params) (*DiffMap, error) {
	if err := raw.Validate(); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	dm := &DiffMap{Img: raw}

	nonZero := make([]float64, 0, len(raw.Pix))
	for _, v := range raw.Pix {
		if v != 0 {
			nonZero = append(nonZero, v)
		}
	}
	if len(nonZero) == 0 {
		dm.AllZero = true
		return dm, nil
	}
	// The cleaning stages below mutate raw in place; scoring needs the
	// untouched residual to recognize subtraction residues by their
	// negative counterpart.
	dm.Residual = raw.Clone()

	stats := frame.SigmaClippedStats(nonZero, p.ClipKappa, p.ClipIterations)
	dm.NoiseFloor = stats.Median
	dm.NoiseSigma = stats.Sigma

	if p.EnableThreshold {
		// A zero-spread residual (all-equal pixels) would zero everything;
		// degrade by skipping the stage instead.
		if stats.Sigma > 0 {
			applyThreshold(raw, stats.Median, stats.Sigma, p)
		}
	}
	if p.EnableSizeFilter && p.MinComponentArea > 1 {
		removeSmallComponents(raw, p.MinComponentArea)
	}
	if p.EnableMorphology {
		openClose(raw, p.MorphRadius)
	}
	if p.EnableSmoothing {
		median3x3(raw)
		if p.GaussianSigma > 0 {
			gaussianInPlace(raw, p.GaussianSigma)
		}
	}

	for _, v := range raw.Pix {
		if a := math.Abs(v); a > dm.Peak {
			dm.Peak = a
		}
	}
	return dm, nil
}

// applyThreshold zeroes pixels whose excursion from the noise floor is below
// kappa sigmas, and pixels below the absolute floor taken as a fraction of
// the residual's largest excursion. The cut is symmetric so dimming survives
// with its sign.
func applyThreshold(img *frame.Image, floor, sigma float64, p Params) {
	var maxDev float64
	for _, v := range img.Pix {
		if d := math.Abs(v - floor); d > maxDev {
			maxDev = d
		}
	}
	cut := p.NoiseKappa * sigma
	if abs := p.AbsoluteFloorFrac * maxDev; abs > cut {
		cut = abs
	}
	for i, v := range img.Pix {
		if math.Abs(v-floor) < cut {
			img.Pix[i] = 0
		}
	}
}
