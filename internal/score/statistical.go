package score

import (
	"math"

	"transient-finder/internal/candidate"
	"transient-finder/internal/diffimage"
	"transient-finder/internal/frame"
)

// Params holds the thresholds and feature weights shared by the scoring
// strategies.
type Params struct {
	// Rule gates, applied in order before any weighting.
	MinSNR         float64 // below this the candidate is noise
	ElongationMax  float64 // above this with a small area it is an artifact
	SmallAreaMax   int     // "small" for the elongation gate
	StellarAreaMin int     // large bright regions are unsubtracted stars

	// Dipole veto. A source present in both frames subtracts to paired
	// positive and negative structure; a candidate whose surrounding raw
	// residual dips below floor - DipoleKappa*sigma (and by more than
	// DipoleDepthFrac of its own peak excursion) is the positive lobe of
	// such a residue, not a new source. Zero DipoleKappa disables the gate.
	DipoleKappa     float64
	DipoleDepthFrac float64

	// Normalization scales for the linear reliability combination. A feature
	// at or above its scale contributes its full weight.
	SNRScale  float64
	AreaScale int

	// Feature weights, re-normalized to sum to 1.
	SNRWeight     float64
	AreaWeight    float64
	CompactWeight float64
	EdgeWeight    float64

	// Extract mirrors the settings the scored candidates were extracted
	// with; multiscale re-detection runs under the same settings so
	// persistence is judged like-for-like.
	Extract candidate.Params
}

// DefaultParams returns scoring defaults.
func DefaultParams() Params {
	return Params{
		MinSNR:         5.0,
		ElongationMax:  3.0,
		SmallAreaMax:   40,
		StellarAreaMin: 250,

		DipoleKappa:     3.5,
		DipoleDepthFrac: 0.05,

		SNRScale:  20.0,
		AreaScale: 50,

		SNRWeight:     0.45,
		AreaWeight:    0.20,
		CompactWeight: 0.15,
		EdgeWeight:    0.20,

		Extract: candidate.DefaultParams(),
	}
}

// Validate rejects out-of-range parameters.
func (p Params) Validate() error {
	if p.MinSNR < 0 {
		return frame.Configf("min_snr", "must not be negative, got %g", p.MinSNR)
	}
	if p.ElongationMax < 1 {
		return frame.Configf("elongation_max", "must be at least 1, got %g", p.ElongationMax)
	}
	if p.DipoleKappa < 0 {
		return frame.Configf("dipole_kappa", "must not be negative, got %g", p.DipoleKappa)
	}
	if p.DipoleDepthFrac < 0 || p.DipoleDepthFrac >= 1 {
		return frame.Configf("dipole_depth_frac", "must be in [0, 1), got %g", p.DipoleDepthFrac)
	}
	if p.SNRScale <= 0 || p.AreaScale <= 0 {
		return frame.Configf("feature_scales", "must be positive, got %g and %d", p.SNRScale, p.AreaScale)
	}
	sum := p.SNRWeight + p.AreaWeight + p.CompactWeight + p.EdgeWeight
	if p.SNRWeight < 0 || p.AreaWeight < 0 || p.CompactWeight < 0 || p.EdgeWeight < 0 || sum <= 0 {
		return frame.Configf("feature_weights", "weights must be non-negative with a positive sum")
	}
	return nil
}

// Statistical is the default strategy: ordered rule gates followed by a
// weighted linear combination of normalized features.
type Statistical struct {
	Params Params
}

// Score implements Scorer.
func (s *Statistical) Score(cands []candidate.Candidate, dm *diffimage.DiffMap) ([]Scored, error) {
	if err := s.Params.Validate(); err != nil {
		return nil, err
	}
	if dm == nil || dm.Img == nil {
		return nil, frame.Inputf("score", "nil difference map")
	}

	out := make([]Scored, len(cands))
	for i, c := range cands {
		out[i] = scoreOne(c, dm, s.Params)
	}
	return out, nil
}

// scoreOne applies the gates and the weighted combination to one candidate.
// Both the statistical and multiscale strategies build on it.
func scoreOne(c candidate.Candidate, dm *diffimage.DiffMap, p Params) Scored {
	s := Scored{Candidate: c}
	base := reliabilityBase(c, dm, p)

	switch {
	case c.Total < 0:
		// Net dimming is the signature of a subtraction residue, not a new
		// source.
		s.Label = LabelArtifact
		s.Confidence = 0.9
		s.Reliability = base * 0.2
	case c.Elongation > p.ElongationMax && c.Area <= p.SmallAreaMax:
		s.Label = LabelArtifact
		s.Confidence = clamp01((c.Elongation - p.ElongationMax) / p.ElongationMax)
		s.Reliability = base * 0.25
	case dipoleVeto(c, dm, p):
		s.Label = LabelArtifact
		s.Confidence = 0.8
		s.Reliability = base * 0.25
	case c.SNR < p.MinSNR:
		s.Label = LabelNoise
		s.Confidence = clamp01(1 - c.SNR/p.MinSNR)
		s.Reliability = base * 0.3
	case c.Area >= p.StellarAreaMin:
		s.Label = LabelStellar
		s.Confidence = clamp01(float64(c.Area) / float64(2*p.StellarAreaMin))
		s.Reliability = base * 0.5
	default:
		s.Label = LabelCandidate
		s.Confidence = clamp01(base / 100)
		s.Reliability = base
	}
	if s.Reliability > 100 {
		s.Reliability = 100
	}
	return s
}

// dipoleGrow is how far beyond the candidate bounds the veto searches for
// the negative lobe, in pixels. Covers the lobe separation of a typical
// point-source subtraction residue.
const dipoleGrow = 4

// dipoleVeto reports whether the raw residual around the candidate dips far
// enough below the noise floor to mark the candidate as one lobe of a
// subtraction residue. The depth demanded scales with both the noise and the
// candidate's own peak excursion, so noise minima near a bright source never
// trip the veto. Maps without a retained residual are never vetoed.
func dipoleVeto(c candidate.Candidate, dm *diffimage.DiffMap, p Params) bool {
	if p.DipoleKappa <= 0 || dm.Residual == nil || dm.NoiseSigma <= 0 {
		return false
	}
	depth := p.DipoleKappa * dm.NoiseSigma
	if d := p.DipoleDepthFrac * math.Abs(c.Peak-dm.NoiseFloor); d > depth {
		depth = d
	}
	limit := dm.NoiseFloor - depth

	res := dm.Residual
	x0 := c.Bounds.X - dipoleGrow
	y0 := c.Bounds.Y - dipoleGrow
	x1 := c.Bounds.X + c.Bounds.Width + dipoleGrow
	y1 := c.Bounds.Y + c.Bounds.Height + dipoleGrow
	if x0 < 0 {
		x0 = 0
	}
	if y0 < 0 {
		y0 = 0
	}
	if x1 > res.Width {
		x1 = res.Width
	}
	if y1 > res.Height {
		y1 = res.Height
	}
	for y := y0; y < y1; y++ {
		row := y * res.Width
		for x := x0; x < x1; x++ {
			if res.Pix[row+x] <= limit {
				return true
			}
		}
	}
	return false
}

// reliabilityBase is the weighted linear combination of normalized features,
// on the 0-100 scale.
func reliabilityBase(c candidate.Candidate, dm *diffimage.DiffMap, p Params) float64 {
	wsum := p.SNRWeight + p.AreaWeight + p.CompactWeight + p.EdgeWeight

	snr := clamp01(c.SNR / p.SNRScale)
	area := clamp01(float64(c.Area) / float64(p.AreaScale))
	compact := clamp01(c.Compactness)

	// Distance to the nearest frame edge, saturating at a quarter of the
	// short frame dimension. Boundary components always score zero here.
	short := dm.Img.Width
	if dm.Img.Height < short {
		short = dm.Img.Height
	}
	edge := clamp01(c.EdgeDistance(dm.Img.Width, dm.Img.Height) / (float64(short) / 4))
	if c.OnBoundary {
		edge = 0
	}

	score := p.SNRWeight*snr + p.AreaWeight*area + p.CompactWeight*compact + p.EdgeWeight*edge
	return 100 * score / wsum
}

func clamp01(v float64) float64 {
	return math.Min(1, math.Max(0, v))
}
