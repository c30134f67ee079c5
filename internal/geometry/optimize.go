// internal/geometry/optimize.go
package geometry

import (
	"math"
	"sort"
)

// OptimizeConfig controls the final fix-up of geometry before it is
// written into a document.
type OptimizeConfig struct {
	// Precision is the rounding grid: 1.0 snaps to whole canvas pixels,
	// 0.01 keeps centipixel accuracy for intermediate storage.
	Precision float64
	// IncludeScrollOffset folds the capture scroll position into the
	// rectangle before rounding, turning viewport geometry into
	// page-absolute geometry. Leave it off when the input has already
	// been through a space conversion that accounts for scroll.
	IncludeScrollOffset bool
	// EnableRounding toggles pixel snapping without losing the scroll
	// handling.
	EnableRounding bool
}

// DefaultOptimizeConfig returns the canvas-ready defaults.
func DefaultOptimizeConfig() OptimizeConfig {
	return OptimizeConfig{
		Precision:           1.0,
		IncludeScrollOffset: true,
		EnableRounding:      true,
	}
}

// RoundToPrecision snaps v onto the grid defined by precision, rounding
// half away from zero. Non-finite values and non-positive precisions pass
// through unchanged so a bad config cannot corrupt geometry. Rounding an
// already-rounded value is a no-op.
func RoundToPrecision(v, precision float64) float64 {
	if precision <= 0 || !isFinite(v) {
		return v
	}
	return math.Round(v/precision) * precision
}

// EdgeDeltas records how far rounding moved each edge: rounded value minus
// the pre-rounding value.
type EdgeDeltas struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
}

// OptimizedBounds pairs snapped geometry with the raw input and the
// per-edge movement the snap introduced, so callers can audit how far any
// element was pushed.
type OptimizedBounds struct {
	Bounds      Bounds     `json:"bounds"`
	Original    Bounds     `json:"original"`
	Adjustments EdgeDeltas `json:"adjustments"`
}

// Optimize folds the scroll offset into b when configured, snaps every
// edge onto the rounding grid and re-derives width/height from the snapped
// edges so the result is internally consistent.
func Optimize(b Bounds, ctx Context, cfg OptimizeConfig) OptimizedBounds {
	out := OptimizedBounds{Original: b}

	shifted := b
	if cfg.IncludeScrollOffset {
		shifted.Left += ctx.ScrollX
		shifted.Right += ctx.ScrollX
		shifted.Top += ctx.ScrollY
		shifted.Bottom += ctx.ScrollY
	}

	snapped := shifted
	if cfg.EnableRounding {
		snapped.Left = RoundToPrecision(shifted.Left, cfg.Precision)
		snapped.Top = RoundToPrecision(shifted.Top, cfg.Precision)
		snapped.Right = RoundToPrecision(shifted.Right, cfg.Precision)
		snapped.Bottom = RoundToPrecision(shifted.Bottom, cfg.Precision)
	}
	snapped.Width = snapped.Right - snapped.Left
	snapped.Height = snapped.Bottom - snapped.Top

	out.Bounds = snapped
	out.Adjustments = EdgeDeltas{
		Left:   snapped.Left - shifted.Left,
		Top:    snapped.Top - shifted.Top,
		Right:  snapped.Right - shifted.Right,
		Bottom: snapped.Bottom - shifted.Bottom,
	}
	return out
}

// PositionRecord ties an element identifier to a position, either expected
// or measured.
type PositionRecord struct {
	ID string  `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
}

// Offender is one element whose deviation exceeded the verification
// tolerance. Missing marks identifiers absent from the measured set, whose
// deviation is +Inf.
type Offender struct {
	ID        string
	Deviation float64
	Missing   bool
}

// DeviationReport summarizes how far a batch of produced positions landed
// from where they were expected.
type DeviationReport struct {
	Tolerance        float64
	WithinTolerance  int
	OutsideTolerance int
	// MaxDeviation keeps +Inf when an element is missing, so a dropped
	// element can never hide inside an otherwise good average.
	MaxDeviation float64
	// AverageDeviation covers finite deviations only.
	AverageDeviation float64
	// Offenders lists everything outside tolerance, worst first.
	Offenders []Offender
}

// Clean reports whether every expected element was found within tolerance.
func (r *DeviationReport) Clean() bool {
	return r.OutsideTolerance == 0
}

// VerifyBatch compares expected and actual positions pairwise by ID, using
// Euclidean distance. Expected identifiers with no measured counterpart
// count as infinitely wrong rather than being dropped: completeness
// failures must be impossible to average away.
func VerifyBatch(expected, actual []PositionRecord, tolerance float64) *DeviationReport {
	rep := &DeviationReport{Tolerance: tolerance}

	measured := make(map[string]PositionRecord, len(actual))
	for _, a := range actual {
		measured[a.ID] = a
	}

	var finiteSum float64
	var finiteCount int
	for _, exp := range expected {
		act, ok := measured[exp.ID]
		if !ok {
			rep.OutsideTolerance++
			rep.MaxDeviation = math.Inf(1)
			rep.Offenders = append(rep.Offenders, Offender{ID: exp.ID, Deviation: math.Inf(1), Missing: true})
			continue
		}
		dev := math.Hypot(act.X-exp.X, act.Y-exp.Y)
		finiteSum += dev
		finiteCount++
		if dev > rep.MaxDeviation {
			rep.MaxDeviation = dev
		}
		if dev <= tolerance {
			rep.WithinTolerance++
		} else {
			rep.OutsideTolerance++
			rep.Offenders = append(rep.Offenders, Offender{ID: exp.ID, Deviation: dev})
		}
	}
	if finiteCount > 0 {
		rep.AverageDeviation = finiteSum / float64(finiteCount)
	}

	sort.Slice(rep.Offenders, func(i, j int) bool {
		a, b := rep.Offenders[i], rep.Offenders[j]
		if a.Deviation != b.Deviation {
			return a.Deviation > b.Deviation
		}
		return a.ID < b.ID
	})
	return rep
}
