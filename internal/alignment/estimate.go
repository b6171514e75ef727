package alignment

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"transient-finder/pkg/geometry"
)

// solver fits one transform class to matched point sets. Returns false when
// the points are degenerate for the class.
type solver func(src, dst []geometry.Point2D) (geometry.Transform, bool)

func solverFor(class TransformClass) solver {
	switch class {
	case ClassSimilarity:
		return solveSimilarity
	case ClassHomography:
		return solveHomography
	default:
		return solveRigid
	}
}

// EstimateRANSAC fits a transform mapping src points onto dst points while
// rejecting outliers. Random minimal samples vote for hypotheses; the best
// consensus set is then re-fit with least squares over all of its inliers.
// The returned indices are the inliers of the final fit.
func EstimateRANSAC(src, dst []geometry.Point2D, class TransformClass, iterations int, threshold float64, rng *rand.Rand) (geometry.Transform, []int, error) {
	identity := geometry.IdentityTransform()
	if len(src) != len(dst) {
		return identity, nil, fmt.Errorf("point count mismatch: %d vs %d", len(src), len(dst))
	}
	sampleSize := class.minimalSample()
	if len(src) < sampleSize {
		return identity, nil, fmt.Errorf("need at least %d correspondences for %s, have %d", sampleSize, class, len(src))
	}
	if iterations <= 0 {
		iterations = 1000
	}
	solve := solverFor(class)

	sampleSrc := make([]geometry.Point2D, sampleSize)
	sampleDst := make([]geometry.Point2D, sampleSize)
	var bestInliers []int
	for iter := 0; iter < iterations; iter++ {
		perm := rng.Perm(len(src))
		for i := 0; i < sampleSize; i++ {
			sampleSrc[i] = src[perm[i]]
			sampleDst[i] = dst[perm[i]]
		}
		if degenerateSample(sampleSrc) || degenerateSample(sampleDst) {
			continue
		}
		tr, ok := solve(sampleSrc, sampleDst)
		if !ok {
			continue
		}
		inliers := consensus(tr, src, dst, threshold)
		if len(inliers) > len(bestInliers) {
			bestInliers = inliers
		}
	}
	if len(bestInliers) < sampleSize {
		return identity, nil, fmt.Errorf("no consensus after %d iterations", iterations)
	}

	// Re-fit over the full consensus set for sub-pixel accuracy.
	inSrc := make([]geometry.Point2D, len(bestInliers))
	inDst := make([]geometry.Point2D, len(bestInliers))
	for i, idx := range bestInliers {
		inSrc[i] = src[idx]
		inDst[i] = dst[idx]
	}
	tr, ok := solve(inSrc, inDst)
	if !ok {
		return identity, nil, fmt.Errorf("degenerate consensus set of %d points", len(bestInliers))
	}
	final := consensus(tr, src, dst, threshold)
	if len(final) < sampleSize {
		final = bestInliers
	}
	return tr, final, nil
}

// consensus returns the indices of correspondences the transform maps within
// threshold pixels.
func consensus(tr geometry.Transform, src, dst []geometry.Point2D, threshold float64) []int {
	var inliers []int
	for i := range src {
		if tr.Apply(src[i]).Distance(dst[i]) < threshold {
			inliers = append(inliers, i)
		}
	}
	return inliers
}

// degenerateSample reports coincident points in a minimal sample.
func degenerateSample(pts []geometry.Point2D) bool {
	for i := 0; i < len(pts); i++ {
		for j := i + 1; j < len(pts); j++ {
			if pts[i].Distance(pts[j]) < 1e-9 {
				return true
			}
		}
	}
	return false
}

// MeanAlignmentError returns the mean residual of the inlier correspondences
// under the transform, in pixels.
func MeanAlignmentError(src, dst []geometry.Point2D, tr geometry.Transform, inliers []int) float64 {
	if len(inliers) == 0 {
		return 0
	}
	var sum float64
	for _, i := range inliers {
		sum += tr.Apply(src[i]).Distance(dst[i])
	}
	return sum / float64(len(inliers))
}

// solveRigid fits rotation plus translation with the closed-form centroid
// alignment. Exact for two points, least squares beyond.
func solveRigid(src, dst []geometry.Point2D) (geometry.Transform, bool) {
	if len(src) < 2 || len(src) != len(dst) {
		return geometry.IdentityTransform(), false
	}
	sc := geometry.Centroid(src)
	dc := geometry.Centroid(dst)

	var dotSum, crossSum float64
	for i := range src {
		s := src[i].Sub(sc)
		d := dst[i].Sub(dc)
		dotSum += s.X*d.X + s.Y*d.Y
		crossSum += s.X*d.Y - s.Y*d.X
	}
	if dotSum == 0 && crossSum == 0 {
		return geometry.IdentityTransform(), false
	}
	theta := math.Atan2(crossSum, dotSum)

	a := geometry.Rotation(theta)
	rotated := a.Apply(sc)
	a.TX = dc.X - rotated.X
	a.TY = dc.Y - rotated.Y
	return geometry.FromAffine(a), true
}

// solveSimilarity extends the rigid fit with the least-squares uniform scale.
func solveSimilarity(src, dst []geometry.Point2D) (geometry.Transform, bool) {
	if len(src) < 2 || len(src) != len(dst) {
		return geometry.IdentityTransform(), false
	}
	sc := geometry.Centroid(src)
	dc := geometry.Centroid(dst)

	var dotSum, crossSum, srcVar float64
	for i := range src {
		s := src[i].Sub(sc)
		d := dst[i].Sub(dc)
		dotSum += s.X*d.X + s.Y*d.Y
		crossSum += s.X*d.Y - s.Y*d.X
		srcVar += s.X*s.X + s.Y*s.Y
	}
	if srcVar == 0 {
		return geometry.IdentityTransform(), false
	}
	scale := math.Hypot(dotSum, crossSum) / srcVar
	if scale == 0 {
		return geometry.IdentityTransform(), false
	}
	theta := math.Atan2(crossSum, dotSum)

	a := geometry.SimilarityTransform(scale, theta, 0, 0)
	scaled := a.Apply(sc)
	a.TX = dc.X - scaled.X
	a.TY = dc.Y - scaled.Y
	return geometry.FromAffine(a), true
}

// solveHomography fits the eight projective parameters with h33 fixed at 1,
// solving the stacked linear system by QR. Exact for four points, least
// squares beyond.
func solveHomography(src, dst []geometry.Point2D) (geometry.Transform, bool) {
	n := len(src)
	if n < 4 || n != len(dst) {
		return geometry.IdentityTransform(), false
	}

	a := mat.NewDense(2*n, 8, nil)
	b := mat.NewVecDense(2*n, nil)
	for i := 0; i < n; i++ {
		x, y := src[i].X, src[i].Y
		u, v := dst[i].X, dst[i].Y
		a.SetRow(2*i, []float64{x, y, 1, 0, 0, 0, -x * u, -y * u})
		b.SetVec(2*i, u)
		a.SetRow(2*i+1, []float64{0, 0, 0, x, y, 1, -x * v, -y * v})
		b.SetVec(2*i+1, v)
	}

	var qr mat.QR
	qr.Factorize(a)
	var h mat.VecDense
	if err := qr.SolveVecTo(&h, false, b); err != nil {
		return geometry.IdentityTransform(), false
	}
	tr := geometry.Transform{
		{h.AtVec(0), h.AtVec(1), h.AtVec(2)},
		{h.AtVec(3), h.AtVec(4), h.AtVec(5)},
		{h.AtVec(6), h.AtVec(7), 1},
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if math.IsNaN(tr[i][j]) || math.IsInf(tr[i][j], 0) {
				return geometry.IdentityTransform(), false
			}
		}
	}
	return tr, true
}
