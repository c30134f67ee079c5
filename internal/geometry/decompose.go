// internal/geometry/decompose.go
package geometry

import (
	"fmt"
	"math"
)

const (
	// skewEpsilon is the largest decomposed skew angle (radians) that still
	// counts as numeric noise rather than real shear.
	skewEpsilon = 1e-6

	// conditionLimit is the condition number above which the linear block
	// is flagged as unstable under inversion.
	conditionLimit = 1e12

	// Scale factors outside this band almost always mean the page is being
	// distorted beyond what a design tool reproduces faithfully.
	minSaneScale = 0.01
	maxSaneScale = 100.0
)

// Decomposition is the translate/scale/rotate/skew reading of an affine
// matrix. Shear is folded entirely onto the x axis, so SkewY is always
// zero and matrices with genuine y shear do not round-trip exactly.
type Decomposition struct {
	TranslateX float64
	TranslateY float64
	ScaleX     float64
	ScaleY     float64
	Rotation   float64 // radians
	SkewX      float64 // radians
	SkewY      float64 // radians, always 0
}

// Decompose splits m into translation, scale, rotation and skew. A
// reflection (negative determinant) is represented as a negative ScaleY.
func Decompose(m Matrix) Decomposition {
	d := Decomposition{
		TranslateX: m.E,
		TranslateY: m.F,
		ScaleX:     math.Hypot(m.A, m.B),
		ScaleY:     math.Hypot(m.C, m.D),
		Rotation:   math.Atan2(m.B, m.A),
	}
	if m.Determinant() < 0 {
		d.ScaleY = -d.ScaleY
	}
	// Whatever correlation remains between the two axes after rotation is
	// accounted for is shear.
	d.SkewX = math.Atan2(m.A*m.C+m.B*m.D, m.A*m.A+m.B*m.B)
	return d
}

// MatrixHealth is the numerical soundness report for a matrix. Warnings
// flag suspicious but usable matrices; only a degenerate or unstable
// linear block clears Valid.
type MatrixHealth struct {
	Valid           bool
	Degenerate      bool
	Determinant     float64
	ConditionNumber float64
	Warnings        []string
}

// ValidateMatrix checks m for the failure modes that corrupt coordinates
// downstream: non-finite coefficients, a collapsed axis (near-zero
// determinant), a condition number that makes inversion unreliable, and
// scale factors far outside what a renderer produces on purpose.
func ValidateMatrix(m Matrix) MatrixHealth {
	h := MatrixHealth{Determinant: m.Determinant()}

	for _, v := range [6]float64{m.A, m.B, m.C, m.D, m.E, m.F} {
		if !isFinite(v) {
			h.Degenerate = true
			h.Warnings = append(h.Warnings, "matrix has non-finite coefficients")
			return h
		}
	}

	h.Degenerate = math.Abs(h.Determinant) < singularEpsilon
	h.ConditionNumber = conditionNumber(m)
	h.Valid = !h.Degenerate && h.ConditionNumber <= conditionLimit

	if h.Degenerate {
		h.Warnings = append(h.Warnings, fmt.Sprintf("determinant %.3g collapses the plane", h.Determinant))
		return h
	}
	if h.ConditionNumber > conditionLimit {
		h.Warnings = append(h.Warnings, fmt.Sprintf("condition number %.3g exceeds %.0e, inversion is unreliable", h.ConditionNumber, conditionLimit))
	}

	d := Decompose(m)
	if s := math.Abs(d.ScaleX); s < minSaneScale || s > maxSaneScale {
		h.Warnings = append(h.Warnings, fmt.Sprintf("x scale factor %.4g outside [%g, %g]", d.ScaleX, minSaneScale, maxSaneScale))
	}
	if s := math.Abs(d.ScaleY); s < minSaneScale || s > maxSaneScale {
		h.Warnings = append(h.Warnings, fmt.Sprintf("y scale factor %.4g outside [%g, %g]", d.ScaleY, minSaneScale, maxSaneScale))
	}
	return h
}

// conditionNumber returns the ratio of the largest to the smallest singular
// value of the linear 2x2 block, +Inf when the block is singular.
func conditionNumber(m Matrix) float64 {
	// Largest singular value via the eigenvalues of M^T M. The smallest
	// comes from sMax*sMin == |det|, which stays accurate where the
	// direct eigenvalue formula cancels to zero.
	sum := m.A*m.A + m.B*m.B + m.C*m.C + m.D*m.D
	det := m.Determinant()
	disc := math.Sqrt(math.Max(0, sum*sum-4*det*det))
	sMax := math.Sqrt((sum + disc) / 2)
	if det == 0 || sMax == 0 {
		return math.Inf(1)
	}
	sMin := math.Abs(det) / sMax
	return sMax / sMin
}

// FigmaTransform is the rotate/scale/translate subset a Figma node can
// express natively. Supported is false when the matrix carries real shear,
// which has no node-level primitive there; callers rasterize such elements
// instead of positioning them.
type FigmaTransform struct {
	Rotation   float64 `json:"rotation"`
	ScaleX     float64 `json:"scaleX"`
	ScaleY     float64 `json:"scaleY"`
	TranslateX float64 `json:"translateX"`
	TranslateY float64 `json:"translateY"`
	Supported  bool    `json:"supported"`
}

// ToFigmaTransform projects m onto the canvas transform model.
func ToFigmaTransform(m Matrix) FigmaTransform {
	d := Decompose(m)
	return FigmaTransform{
		Rotation:   d.Rotation,
		ScaleX:     d.ScaleX,
		ScaleY:     d.ScaleY,
		TranslateX: d.TranslateX,
		TranslateY: d.TranslateY,
		Supported:  math.Abs(d.SkewX) <= skewEpsilon && math.Abs(d.SkewY) <= skewEpsilon,
	}
}
