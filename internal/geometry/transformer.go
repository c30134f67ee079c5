// internal/geometry/transformer.go
package geometry

import (
	"math"
	"sync"

	"go.uber.org/zap"
)

// TransformConfig carries the per-step error contributions a Transformer
// charges while executing a plan, in coordinate units. The step constants
// are empirical upper bounds on the drift each source of truth introduces
// (fractional scroll positions, canvas origin measurement, border box
// rounding), not measured propagation. They are configurable for
// calibration but are never adjusted silently at runtime.
type TransformConfig struct {
	// ScrollStepError covers scroll offset steps.
	ScrollStepError float64
	// CanvasStepError covers canvas origin steps.
	CanvasStepError float64
	// OffsetStepError covers element and parent border box offset steps.
	OffsetStepError float64
	// MatrixStepError covers CSS matrix application and inversion steps.
	MatrixStepError float64
	// BaseStepError is the floor charged per traversed step when the
	// input precision is essentially zero.
	BaseStepError float64
}

// DefaultTransformConfig returns the calibrated defaults.
func DefaultTransformConfig() TransformConfig {
	return TransformConfig{
		ScrollStepError: 0.1,
		CanvasStepError: 0.05,
		OffsetStepError: 0.02,
		MatrixStepError: 0.05,
		BaseStepError:   0.001,
	}
}

// Metrics is a snapshot of a Transformer's advisory counters.
type Metrics struct {
	Conversions     int64
	CumulativeError float64
	AverageError    float64
}

// Transformer executes conversion plans between coordinate spaces and
// keeps advisory accuracy counters for the capture it belongs to. One
// instance per capture session; safe for concurrent use.
type Transformer struct {
	cfg TransformConfig
	log *zap.Logger

	mu              sync.Mutex
	conversions     int64
	cumulativeError float64
}

// NewTransformer builds a Transformer. A nil logger falls back to a no-op
// logger so library callers are not forced to wire one.
func NewTransformer(cfg TransformConfig, logger *zap.Logger) *Transformer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Transformer{cfg: cfg, log: logger.Named("transformer")}
}

// Transform converts p into the target space by executing the fixed plan
// for the (p.Space, target) pair. The result's precision is the input
// precision (floored at a per-step baseline) plus the error constants of
// every traversed step, so precision grows monotonically along any chain
// of conversions.
//
// Failures are typed: *UnsupportedConversionError when no plan exists and
// *NumericalError when a step produces a non-finite coordinate or the CSS
// matrix cannot be inverted. A failed conversion never returns a partially
// converted point.
func (t *Transformer) Transform(p Point, target Space, ctx Context) (Point, error) {
	if !p.Finite() {
		return Point{}, &NumericalError{Step: "input", LastX: p.X, LastY: p.Y}
	}

	plan, ok := planFor(p.Space, target)
	if !ok {
		err := &UnsupportedConversionError{From: p.Space, To: target}
		t.log.Debug("unsupported conversion requested",
			zap.String("from", string(p.Space)),
			zap.String("to", string(target)))
		return Point{}, err
	}

	x, y := p.X, p.Y
	var traversed float64
	for _, st := range plan {
		nx, ny, err := applyStep(st, ctx, x, y)
		if err != nil {
			return Point{}, &NumericalError{Step: st.name, LastX: x, LastY: y, Err: err}
		}
		if !isFinite(nx) || !isFinite(ny) {
			return Point{}, &NumericalError{Step: st.name, LastX: x, LastY: y}
		}
		x, y = nx, ny
		traversed += t.stepError(st.kind)
	}

	out := Point{
		X:         x,
		Y:         y,
		Space:     target,
		Precision: math.Max(p.Precision, float64(len(plan))*t.cfg.BaseStepError) + traversed,
	}

	t.mu.Lock()
	t.conversions++
	t.cumulativeError += out.Precision - p.Precision
	t.mu.Unlock()
	return out, nil
}

// TransformBounds converts a rectangle by converting its two defining
// corners and rebuilding the extent from the results. The rectangle's
// width/height are re-derived so the output is internally consistent even
// when the input carried disagreeing values.
func (t *Transformer) TransformBounds(b Bounds, target Space, ctx Context) (Bounds, error) {
	tl, err := t.Transform(Point{X: b.Left, Y: b.Top, Space: b.Space}, target, ctx)
	if err != nil {
		return Bounds{}, err
	}
	br, err := t.Transform(Point{X: b.Right, Y: b.Bottom, Space: b.Space}, target, ctx)
	if err != nil {
		return Bounds{}, err
	}
	return Bounds{
		Left:   tl.X,
		Top:    tl.Y,
		Right:  br.X,
		Bottom: br.Y,
		Width:  br.X - tl.X,
		Height: br.Y - tl.Y,
		Space:  target,
	}, nil
}

// Metrics returns a snapshot of the conversion counters.
func (t *Transformer) Metrics() Metrics {
	t.mu.Lock()
	defer t.mu.Unlock()
	m := Metrics{
		Conversions:     t.conversions,
		CumulativeError: t.cumulativeError,
	}
	if t.conversions > 0 {
		m.AverageError = t.cumulativeError / float64(t.conversions)
	}
	return m
}

// ResetMetrics zeroes the counters, typically between capture sessions
// that share one Transformer.
func (t *Transformer) ResetMetrics() {
	t.mu.Lock()
	t.conversions = 0
	t.cumulativeError = 0
	t.mu.Unlock()
}

func (t *Transformer) stepError(k stepKind) float64 {
	switch k {
	case stepAddScroll, stepSubScroll:
		return t.cfg.ScrollStepError
	case stepSubCanvasOrigin, stepAddCanvasOrigin:
		return t.cfg.CanvasStepError
	case stepApplyCSSMatrix, stepInvertCSSMatrix:
		return t.cfg.MatrixStepError
	default:
		return t.cfg.OffsetStepError
	}
}

// applyStep executes one primitive conversion move. Pure except for the
// context reads; all page state comes in through ctx.
func applyStep(st step, ctx Context, x, y float64) (float64, float64, error) {
	switch st.kind {
	case stepAddScroll:
		return x + ctx.ScrollX, y + ctx.ScrollY, nil
	case stepSubScroll:
		return x - ctx.ScrollX, y - ctx.ScrollY, nil
	case stepSubCanvasOrigin:
		return x - ctx.CanvasOriginX, y - ctx.CanvasOriginY, nil
	case stepAddCanvasOrigin:
		return x + ctx.CanvasOriginX, y + ctx.CanvasOriginY, nil
	case stepAddElementOffset:
		return x + ctx.ElementBounds.Left, y + ctx.ElementBounds.Top, nil
	case stepSubElementOffset:
		return x - ctx.ElementBounds.Left, y - ctx.ElementBounds.Top, nil
	case stepAddParentOffset:
		return x + ctx.ParentBounds.Left, y + ctx.ParentBounds.Top, nil
	case stepSubParentOffset:
		return x - ctx.ParentBounds.Left, y - ctx.ParentBounds.Top, nil
	case stepApplyCSSMatrix:
		nx, ny := ctx.CSSMatrix.Apply(x, y)
		return nx, ny, nil
	case stepInvertCSSMatrix:
		inv, err := ctx.CSSMatrix.Invert()
		if err != nil {
			return 0, 0, err
		}
		nx, ny := inv.Apply(x, y)
		return nx, ny, nil
	default:
		return x, y, nil
	}
}
