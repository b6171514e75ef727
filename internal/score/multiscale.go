package score

import (
	"transient-finder/internal/candidate"
	"transient-finder/internal/diffimage"
	"transient-finder/internal/frame"
)

// MultiScale scores candidates by persistence across detection scales: the
// difference map is re-blurred at several Gaussian widths and re-extracted,
// and a candidate that survives at every scale is far more likely to be a
// real source than one that only exists at full resolution. Blurring and
// re-extraction are deterministic, so scores are reproducible.
type MultiScale struct {
	Params Params

	// Sigmas are the blur widths re-detection runs at; zero means the
	// unblurred map. MatchRadius pairs re-detections with candidates.
	Sigmas      []float64
	MatchRadius float64
}

// DefaultSigmas are the re-detection blur widths.
var DefaultSigmas = []float64{0, 1.0, 2.0}

// Score implements Scorer.
func (m *MultiScale) Score(cands []candidate.Candidate, dm *diffimage.DiffMap) ([]Scored, error) {
	if err := m.Params.Validate(); err != nil {
		return nil, err
	}
	if dm == nil || dm.Img == nil {
		return nil, frame.Inputf("score", "nil difference map")
	}

	sigmas := m.Sigmas
	if len(sigmas) == 0 {
		sigmas = DefaultSigmas
	}
	radius := m.MatchRadius
	if radius <= 0 {
		radius = 3.0
	}

	persist := make([]int, len(cands))
	extractParams := m.Params.Extract
	if extractParams == (candidate.Params{}) {
		extractParams = candidate.DefaultParams()
	}
	for _, sigma := range sigmas {
		img := diffimage.GaussianSmooth(dm.Img, sigma)
		if sigma > 0 && dm.NoiseSigma > 0 {
			// Re-threshold after the blur: a marginal detection loses its
			// peak to the smoothing and drops out at the coarser scales.
			cut := 3 * dm.NoiseSigma
			for i, v := range img.Pix {
				if v > -cut && v < cut {
					img.Pix[i] = 0
				}
			}
		}
		blurred := &diffimage.DiffMap{
			Img:        img,
			NoiseFloor: dm.NoiseFloor,
			NoiseSigma: dm.NoiseSigma,
			Peak:       dm.Peak,
		}
		redetected, err := candidate.Extract(blurred, extractParams)
		if err != nil {
			return nil, err
		}
		for i, c := range cands {
			for _, r := range redetected {
				if c.Center().Distance(r.Center()) <= radius {
					persist[i]++
					break
				}
			}
		}
	}

	out := make([]Scored, len(cands))
	for i, c := range cands {
		s := scoreOne(c, dm, m.Params)
		persistence := float64(persist[i]) / float64(len(sigmas))
		// Cross-scale persistence rescales reliability; the rule gates keep
		// their labels.
		s.Reliability *= persistence
		if s.Label == LabelCandidate {
			s.Confidence = clamp01(s.Confidence * persistence)
			if persist[i] == 0 {
				s.Label = LabelNoise
			}
		}
		out[i] = s
	}
	return out, nil
}
