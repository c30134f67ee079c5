// internal/geometry/matrix.go
package geometry

import "math"

// singularEpsilon is the determinant magnitude below which the linear block
// of a matrix is treated as collapsed and therefore non-invertible.
const singularEpsilon = 1e-10

// Matrix is a 2D affine transformation in CSS column order:
//
//	[ A  C  E ]
//	[ B  D  F ]
//	[ 0  0  1 ]
//
// The zero value is the degenerate all-zero matrix, not the identity; use
// Identity when no transformation is intended.
type Matrix struct {
	A, B, C, D, E, F float64
}

// Identity returns the matrix that leaves points unchanged.
func Identity() Matrix {
	return Matrix{A: 1, D: 1}
}

// Translation returns a matrix that moves points by (tx, ty).
func Translation(tx, ty float64) Matrix {
	return Matrix{A: 1, D: 1, E: tx, F: ty}
}

// Scaling returns a matrix that scales points by (sx, sy) about the origin.
func Scaling(sx, sy float64) Matrix {
	return Matrix{A: sx, D: sy}
}

// Rotation returns a matrix that rotates points by angle radians about the
// origin, positive angles turning clockwise in screen coordinates.
func Rotation(angle float64) Matrix {
	sin, cos := math.Sincos(angle)
	return Matrix{A: cos, B: sin, C: -sin, D: cos}
}

// Skewing returns a matrix that shears by ax radians along the x axis and
// ay radians along the y axis.
func Skewing(ax, ay float64) Matrix {
	return Matrix{A: 1, B: math.Tan(ay), C: math.Tan(ax), D: 1}
}

// Multiply returns the matrix product m x n. Order matters: applying the
// product maps a point p to m(n(p)), so n acts first. This is the CSS
// composition rule, where the right-most function in a transform list is
// the first one to touch the point.
func (m Matrix) Multiply(n Matrix) Matrix {
	return Matrix{
		A: m.A*n.A + m.C*n.B,
		B: m.B*n.A + m.D*n.B,
		C: m.A*n.C + m.C*n.D,
		D: m.B*n.C + m.D*n.D,
		E: m.A*n.E + m.C*n.F + m.E,
		F: m.B*n.E + m.D*n.F + m.F,
	}
}

// Apply transforms the point (x, y) by m.
func (m Matrix) Apply(x, y float64) (float64, float64) {
	return m.A*x + m.C*y + m.E, m.B*x + m.D*y + m.F
}

// Determinant returns the determinant of the linear 2x2 block. A negative
// value indicates a reflection, a near-zero value a collapsed axis.
func (m Matrix) Determinant() float64 {
	return m.A*m.D - m.B*m.C
}

// Invert returns the inverse of m. It fails with ErrSingularMatrix when the
// determinant is too close to zero for the division to be meaningful.
func (m Matrix) Invert() (Matrix, error) {
	det := m.Determinant()
	if math.Abs(det) < singularEpsilon {
		return Matrix{}, ErrSingularMatrix
	}
	invDet := 1.0 / det
	return Matrix{
		A: m.D * invDet,
		B: -m.B * invDet,
		C: -m.C * invDet,
		D: m.A * invDet,
		E: (m.C*m.F - m.D*m.E) * invDet,
		F: (m.B*m.E - m.A*m.F) * invDet,
	}, nil
}

// IsIdentity reports whether m is exactly the identity matrix.
func (m Matrix) IsIdentity() bool {
	return m == Matrix{A: 1, D: 1}
}

// isFinite reports whether v is a real number (not NaN or an infinity).
func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
