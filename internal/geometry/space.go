// internal/geometry/space.go

// Package geometry converts positions captured from a rendered page into
// design-canvas coordinates. It owns the CSS transform matrix algebra, the
// coordinate space conversions with their error accounting, and the
// validation and pixel-snapping passes that run before geometry is written
// into a document.
package geometry

// Space identifies the frame of reference a point or rectangle is
// expressed in. The set is closed: conversions only exist between pairs
// that planFor knows, and everything else is an UnsupportedConversionError.
type Space string

const (
	// SpaceViewport is the visible browser area, origin top-left,
	// unaffected by scrolling. getBoundingClientRect reports here.
	SpaceViewport Space = "viewport"
	// SpaceDocument is the full page: viewport shifted by the scroll
	// offset.
	SpaceDocument Space = "document"
	// SpaceElement is local to an element's own border box.
	SpaceElement Space = "element"
	// SpaceParent is local to the parent element's border box.
	SpaceParent Space = "parent"
	// SpaceCanvas is the target design document frame.
	SpaceCanvas Space = "canvas"
	// SpaceTransformed is viewport space after the element's own CSS
	// transform has been applied.
	SpaceTransformed Space = "transformed"
)

// Point is a position tagged with the space it lives in and a conservative
// estimate of its accumulated positional error, in the same units as X and
// Y. Precision only ever grows as the point moves between spaces.
type Point struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Space     Space   `json:"space"`
	Precision float64 `json:"precision"`
}

// Finite reports whether every numeric field of p is a real number.
func (p Point) Finite() bool {
	return isFinite(p.X) && isFinite(p.Y) && isFinite(p.Precision)
}

// Bounds is an axis-aligned rectangle in a tagged space. Width and Height
// are carried alongside the edges rather than derived from them, because
// capture sources report both and they can disagree; ValidateBounds scores
// that disagreement.
type Bounds struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Space  Space   `json:"space"`
}

// NewBounds builds a consistent rectangle from an origin and size.
func NewBounds(left, top, width, height float64, space Space) Bounds {
	return Bounds{
		Left:   left,
		Top:    top,
		Right:  left + width,
		Bottom: top + height,
		Width:  width,
		Height: height,
		Space:  space,
	}
}

// Context carries the per-capture quantities conversion plans read: scroll
// position, zoom, where the canvas origin sits in document space, the
// element and parent border boxes in viewport space, the viewport size and
// the element's own CSS matrix. The engine holds no page state of its own;
// everything situational arrives through here.
type Context struct {
	ScrollX        float64
	ScrollY        float64
	Zoom           float64
	CanvasOriginX  float64
	CanvasOriginY  float64
	ElementBounds  Bounds
	ParentBounds   Bounds
	ViewportWidth  float64
	ViewportHeight float64
	CSSMatrix      Matrix
}

// stepKind enumerates the primitive moves a conversion plan is built from.
type stepKind int

const (
	stepAddScroll stepKind = iota
	stepSubScroll
	stepSubCanvasOrigin
	stepAddCanvasOrigin
	stepAddElementOffset
	stepSubElementOffset
	stepAddParentOffset
	stepSubParentOffset
	stepApplyCSSMatrix
	stepInvertCSSMatrix
)

// step is one primitive move: it recomputes x/y from the context, re-tags
// the point with its destination space and charges a fixed error estimate
// to the running precision.
type step struct {
	kind stepKind
	name string
	to   Space
}

func (k stepKind) step(to Space) step {
	names := map[stepKind]string{
		stepAddScroll:        "add scroll offset",
		stepSubScroll:        "subtract scroll offset",
		stepSubCanvasOrigin:  "subtract canvas origin",
		stepAddCanvasOrigin:  "add canvas origin",
		stepAddElementOffset: "add element offset",
		stepSubElementOffset: "subtract element offset",
		stepAddParentOffset:  "add parent offset",
		stepSubParentOffset:  "subtract parent offset",
		stepApplyCSSMatrix:   "apply css matrix",
		stepInvertCSSMatrix:  "invert css matrix",
	}
	return step{kind: k, name: names[k], to: to}
}

type spacePair struct {
	from Space
	to   Space
}

// conversionPlans is the static table of supported conversions. Plans are
// data, not code: every supported pair routes through the same small set
// of primitive steps, so error accounting stays uniform. Pairs involving
// SpaceTransformed and a local space are deliberately absent; geometry
// local to an element is ill-defined once its own transform has been
// applied.
var conversionPlans = buildPlans()

func buildPlans() map[spacePair][]step {
	plans := map[spacePair][]step{
		// Scroll moves between viewport and document.
		{SpaceViewport, SpaceDocument}: {stepAddScroll.step(SpaceDocument)},
		{SpaceDocument, SpaceViewport}: {stepSubScroll.step(SpaceViewport)},

		// The canvas origin is expressed in document space.
		{SpaceDocument, SpaceCanvas}: {stepSubCanvasOrigin.step(SpaceCanvas)},
		{SpaceCanvas, SpaceDocument}: {stepAddCanvasOrigin.step(SpaceDocument)},
		{SpaceViewport, SpaceCanvas}: {
			stepAddScroll.step(SpaceDocument),
			stepSubCanvasOrigin.step(SpaceCanvas),
		},
		{SpaceCanvas, SpaceViewport}: {
			stepAddCanvasOrigin.step(SpaceDocument),
			stepSubScroll.step(SpaceViewport),
		},

		// Element and parent border boxes are captured in viewport space.
		{SpaceElement, SpaceViewport}: {stepAddElementOffset.step(SpaceViewport)},
		{SpaceViewport, SpaceElement}: {stepSubElementOffset.step(SpaceElement)},
		{SpaceParent, SpaceViewport}:  {stepAddParentOffset.step(SpaceViewport)},
		{SpaceViewport, SpaceParent}:  {stepSubParentOffset.step(SpaceParent)},
		{SpaceElement, SpaceParent}: {
			stepAddElementOffset.step(SpaceViewport),
			stepSubParentOffset.step(SpaceParent),
		},
		{SpaceParent, SpaceElement}: {
			stepAddParentOffset.step(SpaceViewport),
			stepSubElementOffset.step(SpaceElement),
		},
		{SpaceElement, SpaceDocument}: {
			stepAddElementOffset.step(SpaceViewport),
			stepAddScroll.step(SpaceDocument),
		},
		{SpaceDocument, SpaceElement}: {
			stepSubScroll.step(SpaceViewport),
			stepSubElementOffset.step(SpaceElement),
		},
		{SpaceParent, SpaceDocument}: {
			stepAddParentOffset.step(SpaceViewport),
			stepAddScroll.step(SpaceDocument),
		},
		{SpaceDocument, SpaceParent}: {
			stepSubScroll.step(SpaceViewport),
			stepSubParentOffset.step(SpaceParent),
		},
		{SpaceElement, SpaceCanvas}: {
			stepAddElementOffset.step(SpaceViewport),
			stepAddScroll.step(SpaceDocument),
			stepSubCanvasOrigin.step(SpaceCanvas),
		},
		{SpaceCanvas, SpaceElement}: {
			stepAddCanvasOrigin.step(SpaceDocument),
			stepSubScroll.step(SpaceViewport),
			stepSubElementOffset.step(SpaceElement),
		},
		{SpaceParent, SpaceCanvas}: {
			stepAddParentOffset.step(SpaceViewport),
			stepAddScroll.step(SpaceDocument),
			stepSubCanvasOrigin.step(SpaceCanvas),
		},
		{SpaceCanvas, SpaceParent}: {
			stepAddCanvasOrigin.step(SpaceDocument),
			stepSubScroll.step(SpaceViewport),
			stepSubParentOffset.step(SpaceParent),
		},

		// The element's own CSS matrix maps between plain and transformed
		// viewport coordinates.
		{SpaceViewport, SpaceTransformed}: {stepApplyCSSMatrix.step(SpaceTransformed)},
		{SpaceTransformed, SpaceViewport}: {stepInvertCSSMatrix.step(SpaceViewport)},
		{SpaceTransformed, SpaceDocument}: {
			stepInvertCSSMatrix.step(SpaceViewport),
			stepAddScroll.step(SpaceDocument),
		},
		{SpaceDocument, SpaceTransformed}: {
			stepSubScroll.step(SpaceViewport),
			stepApplyCSSMatrix.step(SpaceTransformed),
		},
		{SpaceTransformed, SpaceCanvas}: {
			stepInvertCSSMatrix.step(SpaceViewport),
			stepAddScroll.step(SpaceDocument),
			stepSubCanvasOrigin.step(SpaceCanvas),
		},
		{SpaceCanvas, SpaceTransformed}: {
			stepAddCanvasOrigin.step(SpaceDocument),
			stepSubScroll.step(SpaceViewport),
			stepApplyCSSMatrix.step(SpaceTransformed),
		},
	}
	return plans
}

// planFor looks up the conversion plan for a space pair. Same-space
// requests get an empty plan; pairs the table does not know report ok as
// false and the caller fails with a typed error.
func planFor(from, to Space) ([]step, bool) {
	if from == to {
		return nil, true
	}
	plan, ok := conversionPlans[spacePair{from, to}]
	return plan, ok
}
