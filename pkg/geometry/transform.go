package geometry

import (
	"math"
)

// Transform is a 3x3 projective transformation matrix in row-major order.
// Affine transforms keep the bottom row at [0 0 1]; a full homography adds
// perspective terms in the bottom row. The bottom-right element is kept at 1
// by Normalized.
type Transform [3][3]float64

// IdentityTransform returns the 3x3 identity.
func IdentityTransform() Transform {
	return Transform{
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
	}
}

// FromAffine lifts a 2x3 affine transform into the 3x3 form.
func FromAffine(a AffineTransform) Transform {
	return Transform{
		{a.A, a.B, a.TX},
		{a.C, a.D, a.TY},
		{0, 0, 1},
	}
}

// Apply maps a point through the transform, including the perspective divide.
// Points mapped to the line at infinity come back as (+Inf, +Inf).
func (t Transform) Apply(p Point2D) Point2D {
	w := t[2][0]*p.X + t[2][1]*p.Y + t[2][2]
	if math.Abs(w) < 1e-12 {
		return Point2D{X: math.Inf(1), Y: math.Inf(1)}
	}
	return Point2D{
		X: (t[0][0]*p.X + t[0][1]*p.Y + t[0][2]) / w,
		Y: (t[1][0]*p.X + t[1][1]*p.Y + t[1][2]) / w,
	}
}

// Mul returns the composition t * other (other applied first).
func (t Transform) Mul(other Transform) Transform {
	var out Transform
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out[i][j] = t[i][0]*other[0][j] + t[i][1]*other[1][j] + t[i][2]*other[2][j]
		}
	}
	return out
}

// Det returns the determinant of the 3x3 matrix.
func (t Transform) Det() float64 {
	return t[0][0]*(t[1][1]*t[2][2]-t[1][2]*t[2][1]) -
		t[0][1]*(t[1][0]*t[2][2]-t[1][2]*t[2][0]) +
		t[0][2]*(t[1][0]*t[2][1]-t[1][1]*t[2][0])
}

// Inverse returns the inverse transform, normalized so the bottom-right
// element is 1. Returns false for a singular matrix.
func (t Transform) Inverse() (Transform, bool) {
	det := t.Det()
	if math.Abs(det) < 1e-12 {
		return Transform{}, false
	}
	invDet := 1.0 / det
	var inv Transform
	inv[0][0] = (t[1][1]*t[2][2] - t[1][2]*t[2][1]) * invDet
	inv[0][1] = (t[0][2]*t[2][1] - t[0][1]*t[2][2]) * invDet
	inv[0][2] = (t[0][1]*t[1][2] - t[0][2]*t[1][1]) * invDet
	inv[1][0] = (t[1][2]*t[2][0] - t[1][0]*t[2][2]) * invDet
	inv[1][1] = (t[0][0]*t[2][2] - t[0][2]*t[2][0]) * invDet
	inv[1][2] = (t[0][2]*t[1][0] - t[0][0]*t[1][2]) * invDet
	inv[2][0] = (t[1][0]*t[2][1] - t[1][1]*t[2][0]) * invDet
	inv[2][1] = (t[0][1]*t[2][0] - t[0][0]*t[2][1]) * invDet
	inv[2][2] = (t[0][0]*t[1][1] - t[0][1]*t[1][0]) * invDet
	return inv.Normalized(), true
}

// Normalized scales the matrix so the bottom-right element is 1. A matrix
// with a vanishing bottom-right element is returned unchanged.
func (t Transform) Normalized() Transform {
	if math.Abs(t[2][2]) < 1e-12 {
		return t
	}
	inv := 1.0 / t[2][2]
	var out Transform
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out[i][j] = t[i][j] * inv
		}
	}
	return out
}

// IsAffine reports whether the perspective terms are negligible.
func (t Transform) IsAffine(tol float64) bool {
	n := t.Normalized()
	return math.Abs(n[2][0]) <= tol && math.Abs(n[2][1]) <= tol
}

// Affine extracts the 2x3 affine part. Returns false when the transform
// carries perspective terms larger than tol.
func (t Transform) Affine(tol float64) (AffineTransform, bool) {
	if !t.IsAffine(tol) {
		return AffineTransform{}, false
	}
	n := t.Normalized()
	return AffineTransform{
		A: n[0][0], B: n[0][1], TX: n[0][2],
		C: n[1][0], D: n[1][1], TY: n[1][2],
	}, true
}

// IsScaledOrthogonal reports whether the upper-left 2x2 block is a scaled
// orthogonal matrix, the invariant rigid and similarity transforms carry.
// tol is relative to the block's scale.
func (t Transform) IsScaledOrthogonal(tol float64) bool {
	n := t.Normalized()
	r1x, r1y := n[0][0], n[0][1]
	r2x, r2y := n[1][0], n[1][1]
	n1 := math.Hypot(r1x, r1y)
	n2 := math.Hypot(r2x, r2y)
	if n1 < 1e-12 || n2 < 1e-12 {
		return false
	}
	dot := math.Abs(r1x*r2x + r1y*r2y)
	return dot/(n1*n2) <= tol && math.Abs(n1-n2)/n1 <= tol
}
