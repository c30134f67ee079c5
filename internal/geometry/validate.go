// internal/geometry/validate.go
package geometry

import (
	"fmt"
	"math"
)

// acceptScore is the confidence floor below which geometry is rejected.
const acceptScore = 0.7

// Tolerances bounds what the validators accept before penalizing the
// confidence score.
type Tolerances struct {
	// Precision is the target positional accuracy in coordinate units. A
	// point whose accumulated error grows past ten times this value is
	// penalized.
	Precision float64
	// Size is the allowed disagreement between a rectangle's stored
	// width/height and the extent derived from its edges.
	Size float64
	// Bound is the sanity limit on coordinate magnitude. Nothing a real
	// page produces sits further out than this.
	Bound float64
}

// DefaultTolerances returns the production defaults.
func DefaultTolerances() Tolerances {
	return Tolerances{
		Precision: 0.01,
		Size:      1.0,
		Bound:     50000,
	}
}

// Validation is a confidence verdict. The score starts at 1.0 and is
// multiplied down per problem, so several small issues compound into a
// rejection faster than they would additively.
type Validation struct {
	Score           float64  `json:"score"`
	WithinTolerance bool     `json:"withinTolerance"`
	Issues          []string `json:"issues,omitempty"`
}

// ValidatePoint scores p against tol. Pure: p is never modified and no
// state is consulted beyond the arguments.
func ValidatePoint(p Point, tol Tolerances) Validation {
	v := Validation{Score: 1.0}
	switch {
	case !isFinite(p.X) || !isFinite(p.Y):
		v.Score = 0
		v.Issues = append(v.Issues, fmt.Sprintf("coordinates (%v, %v) are not finite", p.X, p.Y))
	case !isFinite(p.Precision):
		v.Score = 0
		v.Issues = append(v.Issues, "accumulated error estimate is not finite")
	default:
		if math.Abs(p.X) > tol.Bound || math.Abs(p.Y) > tol.Bound {
			v.Score *= 0.5
			v.Issues = append(v.Issues, fmt.Sprintf("coordinate magnitude exceeds %g", tol.Bound))
		}
		if p.Precision > 10*tol.Precision {
			v.Score *= 0.8
			v.Issues = append(v.Issues, fmt.Sprintf("accumulated error %.4g exceeds 10x the %g precision target", p.Precision, tol.Precision))
		}
	}
	v.WithinTolerance = v.Score >= acceptScore
	return v
}

// ValidateBounds scores a rectangle: negative or zero extent, and
// width/height that disagree with the edge-derived extent beyond tol.Size,
// each shave the score. Both axes of the consistency check are penalized
// independently.
func ValidateBounds(b Bounds, tol Tolerances) Validation {
	v := Validation{Score: 1.0}

	finite := true
	for _, val := range [6]float64{b.Left, b.Top, b.Right, b.Bottom, b.Width, b.Height} {
		if !isFinite(val) {
			finite = false
			break
		}
	}

	if !finite {
		v.Score = 0
		v.Issues = append(v.Issues, "rectangle has non-finite values")
	} else {
		if b.Width < 0 || b.Height < 0 {
			v.Score *= 0.3
			v.Issues = append(v.Issues, fmt.Sprintf("negative extent %gx%g", b.Width, b.Height))
		}
		if b.Width == 0 || b.Height == 0 {
			v.Score *= 0.7
			v.Issues = append(v.Issues, "zero-area rectangle")
		}
		if d := math.Abs(b.Width - (b.Right - b.Left)); d > tol.Size {
			v.Score *= 0.8
			v.Issues = append(v.Issues, fmt.Sprintf("width disagrees with edges by %.4g", d))
		}
		if d := math.Abs(b.Height - (b.Bottom - b.Top)); d > tol.Size {
			v.Score *= 0.8
			v.Issues = append(v.Issues, fmt.Sprintf("height disagrees with edges by %.4g", d))
		}
	}

	v.WithinTolerance = v.Score >= acceptScore
	return v
}
