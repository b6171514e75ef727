package frame

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// ClippedStats holds the result of iterative sigma clipping over a pixel
// population.
type ClippedStats struct {
	Mean       float64
	Median     float64
	Sigma      float64
	Iterations int
	Kept       int
}

// SigmaClippedStats estimates a robust location and scale of values by
// repeatedly discarding samples further than kappa scale units from the
// current median. The clip interval uses a scale derived from the median
// absolute deviation, so heavy outliers cannot widen the interval that is
// supposed to reject them; the reported Sigma is the standard deviation of
// the surviving population. Iteration stops when no sample is discarded or
// after maxIter rounds. Degenerate input (fewer than 2 samples, or zero
// spread) returns the plain statistics with Sigma 0.
func SigmaClippedStats(values []float64, kappa float64, maxIter int) ClippedStats {
	work := make([]float64, len(values))
	copy(work, values)
	sort.Float64s(work)

	out := ClippedStats{Kept: len(work)}
	if len(work) == 0 {
		return out
	}
	if len(work) == 1 {
		out.Mean = work[0]
		out.Median = work[0]
		return out
	}

	for iter := 0; iter < maxIter; iter++ {
		mean, sigma := stat.MeanStdDev(work, nil)
		median := stat.Quantile(0.5, stat.Empirical, work, nil)
		out.Mean = mean
		out.Median = median
		out.Sigma = sigma
		out.Iterations = iter + 1
		out.Kept = len(work)

		if sigma == 0 || math.IsNaN(sigma) {
			out.Sigma = 0
			return out
		}

		scale := 1.4826 * medianAbsDeviation(work, median)
		if scale == 0 {
			// More than half the samples sit on the median; the MAD
			// carries no information, fall back to the plain deviation.
			scale = sigma
		}

		lo := median - kappa*scale
		hi := median + kappa*scale
		clipped := work[:0]
		for _, v := range work {
			if v >= lo && v <= hi {
				clipped = append(clipped, v)
			}
		}
		if len(clipped) == len(work) || len(clipped) < 2 {
			return out
		}
		work = clipped
	}
	return out
}

// medianAbsDeviation returns the median of |v - median| over values.
func medianAbsDeviation(values []float64, median float64) float64 {
	dev := make([]float64, len(values))
	for i, v := range values {
		dev[i] = math.Abs(v - median)
	}
	return medianInPlace(dev)
}

// Percentile returns the p-th percentile (0-100) of values. The input is not
// modified.
func Percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[len(sorted)-1]
	}
	return stat.Quantile(p/100, stat.Empirical, sorted, nil)
}

// medianInPlace sorts its argument and returns the median. Callers own the
// slice.
func medianInPlace(v []float64) float64 {
	sort.Float64s(v)
	n := len(v)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return v[n/2]
	}
	return 0.5 * (v[n/2-1] + v[n/2])
}
