// File: internal/extract/node.go
package extract

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/stickerverse/figmaconvert/api/schemas"
	"github.com/stickerverse/figmaconvert/internal/assets"
	"github.com/stickerverse/figmaconvert/internal/config"
	"github.com/stickerverse/figmaconvert/internal/geometry"
)

// outcome is what one worker reports for one element. A nil node means
// the element was dropped; the warning, when set, ends up in the summary.
type outcome struct {
	index    int
	node     *schemas.Node
	degraded bool
	warning  string
}

// converter holds the per-run geometry state shared by all workers. The
// element slice is read-only once the run starts, so concurrent reads are
// safe without locking.
type converter struct {
	transformer   *geometry.Transformer
	gctx          geometry.Context
	tol           geometry.Tolerances
	optCfg        geometry.OptimizeConfig
	refs          AssetRefs
	elements      []schemas.CapturedElement
	skipInvisible bool
	log           *zap.Logger
}

func newConverter(cfg *config.Config, capture *schemas.CaptureResult, refs AssetRefs, logger *zap.Logger) *converter {
	zoom := capture.Viewport.Zoom
	if zoom == 0 {
		zoom = 1.0
	}
	return &converter{
		transformer: geometry.NewTransformer(geometry.TransformConfig{
			ScrollStepError: cfg.Geometry.ScrollStepError,
			CanvasStepError: cfg.Geometry.CanvasStepError,
			OffsetStepError: cfg.Geometry.OffsetStepError,
			MatrixStepError: cfg.Geometry.MatrixStepError,
			BaseStepError:   cfg.Geometry.BaseStepError,
		}, logger),
		gctx: geometry.Context{
			ScrollX:        capture.Viewport.ScrollX,
			ScrollY:        capture.Viewport.ScrollY,
			Zoom:           zoom,
			CanvasOriginX:  capture.CanvasOriginX,
			CanvasOriginY:  capture.CanvasOriginY,
			ViewportWidth:  float64(capture.Viewport.Width),
			ViewportHeight: float64(capture.Viewport.Height),
		},
		tol: geometry.Tolerances{
			Precision: cfg.Geometry.Precision,
			Size:      cfg.Geometry.SizeTolerance,
			Bound:     cfg.Geometry.BoundLimit,
		},
		// The viewport to canvas plan already folds the scroll offset in,
		// so the optimizer must not add it a second time.
		optCfg: geometry.OptimizeConfig{
			Precision:           cfg.Output.Precision,
			IncludeScrollOffset: false,
			EnableRounding:      cfg.Output.EnableRounding,
		},
		refs:          refs,
		elements:      capture.Elements,
		skipInvisible: cfg.Extract.SkipInvisible,
		log:           logger,
	}
}

// convert runs one element through parse, space conversion, validation
// and rounding. Rects arrive post-transform from the renderer, so the
// parsed CSS matrix only feeds the node-level transform record, never the
// position itself.
func (c *converter) convert(el schemas.CapturedElement) outcome {
	out := outcome{index: el.Index}

	if c.skipInvisible && !el.Visible {
		return out
	}

	parsed := geometry.ParseTransform(el.Transform)
	out.degraded = len(parsed.Degraded) > 0

	cctx := c.gctx
	cctx.CSSMatrix = parsed.Matrix
	cctx.ElementBounds = geometry.NewBounds(el.Rect.Left, el.Rect.Top, el.Rect.Width, el.Rect.Height, geometry.SpaceViewport)
	if parent, ok := c.parentRect(el.ParentIndex); ok {
		cctx.ParentBounds = parent
	}

	canvas, err := c.transformer.TransformBounds(cctx.ElementBounds, geometry.SpaceCanvas, cctx)
	if err != nil {
		c.log.Warn("Dropping element, conversion failed.",
			zap.String("selector", el.Selector),
			zap.Error(err),
		)
		out.warning = fmt.Sprintf("%s: %v", el.Selector, err)
		return out
	}

	check := geometry.ValidateBounds(canvas, c.tol)

	var health geometry.MatrixHealth
	hasTransform := !parsed.Matrix.IsIdentity()
	if hasTransform {
		health = geometry.ValidateMatrix(parsed.Matrix)
		check.Issues = append(check.Issues, health.Warnings...)
	}

	opt := geometry.Optimize(canvas, cctx, c.optCfg)

	node := &schemas.Node{
		ID:   fmt.Sprintf("node-%d", el.Index),
		Name: nodeName(el),
		Type: nodeType(el),
		Bounds: schemas.NodeBounds{
			X:      opt.Bounds.Left,
			Y:      opt.Bounds.Top,
			Width:  opt.Bounds.Width,
			Height: opt.Bounds.Height,
		},
		Validation: &schemas.ValidationRecord{
			Score:           check.Score,
			WithinTolerance: check.WithinTolerance,
			Issues:          check.Issues,
		},
		Styles:         el.Styles,
		Text:           el.Text,
		SourceSelector: el.Selector,
		HTMLMetadata:   map[string]string{"tag": el.TagName},
	}

	if d := opt.Adjustments; d.Left != 0 || d.Top != 0 || d.Right != 0 || d.Bottom != 0 {
		node.Adjustments = &schemas.EdgeAdjustments{Left: d.Left, Top: d.Top, Right: d.Right, Bottom: d.Bottom}
	}

	if hasTransform {
		ft := geometry.ToFigmaTransform(parsed.Matrix)
		node.Transform = &schemas.TransformRecord{
			Rotation:   ft.Rotation,
			ScaleX:     ft.ScaleX,
			ScaleY:     ft.ScaleY,
			TranslateX: ft.TranslateX,
			TranslateY: ft.TranslateY,
			Supported:  ft.Supported && health.Valid,
		}
	}

	if ref, ok := c.refs.Images[el.Index]; ok {
		node.ImageRef = ref
		node.ContentHash = ref
	}
	if ref, ok := c.refs.SVGs[el.Index]; ok {
		node.SVGRef = ref
		node.ContentHash = ref
	}
	if node.ContentHash == "" && el.Text != "" {
		node.ContentHash = assets.ContentKey([]byte(el.Text))
	}

	if len(parsed.Degraded) > 0 || len(parsed.Unrecognized) > 0 {
		node.DebugInfo = map[string]string{}
		if len(parsed.Degraded) > 0 {
			node.DebugInfo["degradedFunctions"] = strings.Join(parsed.Degraded, ", ")
		}
		if len(parsed.Unrecognized) > 0 {
			node.DebugInfo["unrecognizedFunctions"] = strings.Join(parsed.Unrecognized, ", ")
			out.warning = fmt.Sprintf("%s: unrecognized transform function %s", el.Selector, strings.Join(parsed.Unrecognized, ", "))
		}
	}

	out.node = node
	return out
}

// parentRect looks up the parent's viewport rectangle. Parents always
// precede children in capture order, so the index is either valid or -1.
func (c *converter) parentRect(parentIndex int) (geometry.Bounds, bool) {
	if parentIndex < 0 || parentIndex >= len(c.elements) {
		return geometry.Bounds{}, false
	}
	r := c.elements[parentIndex].Rect
	return geometry.NewBounds(r.Left, r.Top, r.Width, r.Height, geometry.SpaceViewport), true
}

// containerTags are the structural elements that become frames rather
// than plain groups.
var containerTags = map[string]bool{
	"body": true, "div": true, "section": true, "article": true,
	"header": true, "footer": true, "main": true, "nav": true,
	"aside": true, "form": true, "ul": true, "ol": true,
	"table": true, "fieldset": true, "dialog": true,
}

// nodeType maps an element onto the design tool's node taxonomy. Vector
// and image content win over text, text over structure.
func nodeType(el schemas.CapturedElement) schemas.NodeType {
	switch {
	case el.TagName == "svg" || el.SVGMarkup != "":
		return schemas.NodeVector
	case el.TagName == "img" || el.ImageURL != "":
		return schemas.NodeImage
	case strings.TrimSpace(el.Text) != "":
		return schemas.NodeText
	case containerTags[el.TagName]:
		return schemas.NodeFrame
	default:
		return schemas.NodeGroup
	}
}

const maxNameRunes = 40

// nodeName derives a layer name: collapsed text content for text-bearing
// elements, otherwise the tail of the selector path.
func nodeName(el schemas.CapturedElement) string {
	if text := strings.Join(strings.Fields(el.Text), " "); text != "" {
		runes := []rune(text)
		if len(runes) > maxNameRunes {
			return string(runes[:maxNameRunes])
		}
		return text
	}
	if i := strings.LastIndex(el.Selector, " > "); i >= 0 {
		return el.Selector[i+3:]
	}
	if el.Selector != "" {
		return el.Selector
	}
	return el.TagName
}
