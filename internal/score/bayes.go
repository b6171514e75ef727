package score

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"transient-finder/internal/candidate"
	"transient-finder/internal/diffimage"
	"transient-finder/internal/frame"
)

// Bayes scores candidates by fitting a two-component Gaussian mixture to the
// candidate SNR population: a low-SNR noise component and a high-SNR signal
// component. A candidate's confidence is its posterior membership of the
// signal component. Initialization is quantile-based and the fit is plain EM,
// so identical inputs always produce identical scores.
type Bayes struct {
	Params Params

	// MaxIterations bounds the EM loop; Tolerance stops it early when the
	// log-likelihood plateaus.
	MaxIterations int
	Tolerance     float64
}

// Score implements Scorer.
func (b *Bayes) Score(cands []candidate.Candidate, dm *diffimage.DiffMap) ([]Scored, error) {
	if err := b.Params.Validate(); err != nil {
		return nil, err
	}
	if dm == nil || dm.Img == nil {
		return nil, frame.Inputf("score", "nil difference map")
	}
	// The mixture needs a population to fit; small candidate lists fall back
	// to the gate-based scoring, which needs no fit.
	if len(cands) < 4 {
		out := make([]Scored, len(cands))
		for i, c := range cands {
			out[i] = scoreOne(c, dm, b.Params)
		}
		return out, nil
	}

	snrs := make([]float64, len(cands))
	for i, c := range cands {
		snrs[i] = c.SNR
	}
	mix, ok := fitMixture(snrs, b.maxIter(), b.tol())

	out := make([]Scored, len(cands))
	for i, c := range cands {
		s := scoreOne(c, dm, b.Params)
		if ok {
			post := mix.posteriorHigh(c.SNR)
			// The mixture refines confidence and reliability; the rule gates
			// still decide artifact labels.
			if s.Label == LabelCandidate || s.Label == LabelNoise {
				s.Confidence = post
				s.Reliability = 100 * post
				if post >= 0.5 {
					s.Label = LabelCandidate
				} else {
					s.Label = LabelNoise
				}
			}
		}
		out[i] = s
	}
	return out, nil
}

func (b *Bayes) maxIter() int {
	if b.MaxIterations > 0 {
		return b.MaxIterations
	}
	return 100
}

func (b *Bayes) tol() float64 {
	if b.Tolerance > 0 {
		return b.Tolerance
	}
	return 1e-6
}

// mixture is a fitted two-component 1-D Gaussian mixture. Component 1 is the
// high-mean signal component.
type mixture struct {
	weightLow, weightHigh float64
	low, high             distuv.Normal
}

// posteriorHigh returns the posterior probability that v belongs to the
// high-mean component.
func (m mixture) posteriorHigh(v float64) float64 {
	ph := m.weightHigh * m.high.Prob(v)
	pl := m.weightLow * m.low.Prob(v)
	if ph+pl <= 0 {
		// Far out in both tails; assign by proximity to the means.
		if math.Abs(v-m.high.Mu) < math.Abs(v-m.low.Mu) {
			return 1
		}
		return 0
	}
	return ph / (ph + pl)
}

// fitMixture runs EM with deterministic quantile initialization: component
// means start at the 25th and 75th percentiles. Returns ok=false when the
// population is degenerate (no spread).
func fitMixture(values []float64, maxIter int, tol float64) (mixture, bool) {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	sd := stat.StdDev(sorted, nil)
	if sd == 0 || math.IsNaN(sd) {
		return mixture{}, false
	}
	m := mixture{
		weightLow:  0.5,
		weightHigh: 0.5,
		low:        distuv.Normal{Mu: stat.Quantile(0.25, stat.Empirical, sorted, nil), Sigma: sd},
		high:       distuv.Normal{Mu: stat.Quantile(0.75, stat.Empirical, sorted, nil), Sigma: sd},
	}
	if m.low.Mu == m.high.Mu {
		m.high.Mu = m.low.Mu + sd
	}

	n := float64(len(values))
	resp := make([]float64, len(values)) // responsibility of the high component
	prevLL := math.Inf(-1)
	for iter := 0; iter < maxIter; iter++ {
		// E step.
		ll := 0.0
		for i, v := range values {
			ph := m.weightHigh * m.high.Prob(v)
			pl := m.weightLow * m.low.Prob(v)
			total := ph + pl
			if total <= 0 {
				resp[i] = 0.5
				continue
			}
			resp[i] = ph / total
			ll += math.Log(total)
		}

		// M step.
		var sumH, muH, muL float64
		for i, v := range values {
			sumH += resp[i]
			muH += resp[i] * v
			muL += (1 - resp[i]) * v
		}
		sumL := n - sumH
		if sumH < 1e-9 || sumL < 1e-9 {
			break
		}
		m.weightHigh = sumH / n
		m.weightLow = sumL / n
		m.high.Mu = muH / sumH
		m.low.Mu = muL / sumL

		var varH, varL float64
		for i, v := range values {
			dh := v - m.high.Mu
			dl := v - m.low.Mu
			varH += resp[i] * dh * dh
			varL += (1 - resp[i]) * dl * dl
		}
		m.high.Sigma = math.Sqrt(varH/sumH + 1e-9)
		m.low.Sigma = math.Sqrt(varL/sumL + 1e-9)

		if math.Abs(ll-prevLL) < tol {
			break
		}
		prevLL = ll
	}

	// Keep the high-mean component in the high slot.
	if m.low.Mu > m.high.Mu {
		m.low, m.high = m.high, m.low
		m.weightLow, m.weightHigh = m.weightHigh, m.weightLow
	}
	return m, true
}
