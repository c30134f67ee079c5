// File: internal/extract/pipeline_test.go
package extract

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/stickerverse/figmaconvert/api/schemas"
	"github.com/stickerverse/figmaconvert/internal/config"
)

func styleMap(kv ...string) map[string]string {
	m := make(map[string]string, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		m[kv[i]] = kv[i+1]
	}
	return m
}

// fixtureCapture is a small page: a hero section with text, an image and
// an icon, an invisible sidebar with a visible child, two transformed
// divs and three repeated list items.
func fixtureCapture() *schemas.CaptureResult {
	return &schemas.CaptureResult{
		URL:   "https://example.com/pricing",
		Title: "Pricing",
		Viewport: schemas.Viewport{
			Width: 1280, Height: 800, DevicePixelRatio: 2,
			ScrollX: 5, ScrollY: 5, Zoom: 1,
		},
		CanvasOriginX: 100,
		CanvasOriginY: 100,
		Elements: []schemas.CapturedElement{
			{
				Index: 0, ParentIndex: -1, Selector: "body", TagName: "body",
				Rect:    schemas.ElementRect{Left: 0, Top: 0, Right: 1280, Bottom: 2000, Width: 1280, Height: 2000},
				Styles:  styleMap("display", "block", "margin", "0px", "background-color", "rgb(255, 255, 255)"),
				Visible: true,
			},
			{
				Index: 1, ParentIndex: 0, Selector: "body > div#hero", TagName: "div",
				Rect:    schemas.ElementRect{Left: 10, Top: 20, Right: 610, Bottom: 420, Width: 600, Height: 400},
				Styles:  styleMap("display", "block", "background-color", "rgb(0, 87, 255)", "padding", "16px"),
				Visible: true,
			},
			{
				Index: 2, ParentIndex: 1, Selector: "body > div#hero > h1", TagName: "h1",
				Rect: schemas.ElementRect{Left: 30, Top: 40, Right: 430, Bottom: 88, Width: 400, Height: 48},
				Styles: styleMap(
					"display", "block", "color", "rgb(17, 24, 39)",
					"font-family", "Inter, sans-serif", "font-size", "32px",
					"font-weight", "700", "line-height", "40px",
				),
				Text:    "Simple pricing",
				Visible: true,
			},
			{
				Index: 3, ParentIndex: 1, Selector: "body > div#hero > img", TagName: "img",
				Rect:     schemas.ElementRect{Left: 30, Top: 120, Right: 230, Bottom: 220, Width: 200, Height: 100},
				Styles:   styleMap("display", "inline-block"),
				ImageURL: "https://example.com/logo.png",
				Visible:  true,
			},
			{
				Index: 4, ParentIndex: 1, Selector: "body > div#hero > svg", TagName: "svg",
				Rect:      schemas.ElementRect{Left: 260, Top: 120, Right: 284, Bottom: 144, Width: 24, Height: 24},
				Styles:    styleMap("display", "inline-block"),
				SVGMarkup: `<svg viewBox="0 0 24 24"><path d="M0 0h24v24"/></svg>`,
				Visible:   true,
			},
			{
				Index: 5, ParentIndex: 0, Selector: "body > div.sidebar", TagName: "div",
				Rect:    schemas.ElementRect{Left: 700, Top: 20, Right: 1000, Bottom: 420, Width: 300, Height: 400},
				Styles:  styleMap("display", "none"),
				Visible: false,
			},
			{
				Index: 6, ParentIndex: 5, Selector: "body > div.sidebar > span", TagName: "span",
				Rect: schemas.ElementRect{Left: 710, Top: 30, Right: 790, Bottom: 50, Width: 80, Height: 20},
				Styles: styleMap(
					"display", "inline", "color", "rgb(75, 85, 99)",
					"font-family", "Inter, sans-serif", "font-size", "14px",
				),
				Text:    "Hidden child",
				Visible: true,
			},
			{
				Index: 7, ParentIndex: 0, Selector: "body > div.rotated", TagName: "div",
				Rect:      schemas.ElementRect{Left: 100, Top: 600, Right: 200, Bottom: 700, Width: 100, Height: 100},
				Styles:    styleMap("display", "block"),
				Transform: "rotate(45deg)",
				Visible:   true,
			},
			{
				Index: 8, ParentIndex: 0, Selector: "body > div.shifted", TagName: "div",
				Rect:      schemas.ElementRect{Left: 100, Top: 100, Right: 150, Bottom: 150, Width: 50, Height: 50},
				Styles:    styleMap("display", "block"),
				Transform: "matrix3d(1,0,0,0, 0,1,0,0, 0,0,1,0, 30,40,5,1)",
				Visible:   true,
			},
			{
				Index: 9, ParentIndex: 0, Selector: "body > li.item:nth-child(1)", TagName: "li",
				Rect:    schemas.ElementRect{Left: 0, Top: 900, Right: 400, Bottom: 980, Width: 400, Height: 80},
				Styles:  styleMap("display", "list-item", "background-color", "rgb(239, 68, 68)", "padding", "8px"),
				Visible: true,
			},
			{
				Index: 10, ParentIndex: 0, Selector: "body > li.item:nth-child(2)", TagName: "li",
				Rect:    schemas.ElementRect{Left: 0, Top: 990, Right: 400, Bottom: 1070, Width: 400, Height: 80},
				Styles:  styleMap("display", "list-item", "background-color", "rgb(34, 197, 94)", "padding", "8px"),
				Visible: true,
			},
			{
				Index: 11, ParentIndex: 0, Selector: "body > li.item:nth-child(3)", TagName: "li",
				Rect:    schemas.ElementRect{Left: 0, Top: 1080, Right: 400, Bottom: 1160, Width: 400, Height: 80},
				Styles:  styleMap("display", "list-item", "background-color", "rgb(59, 130, 246)", "padding", "8px"),
				Visible: true,
			},
		},
	}
}

func newTestPipeline(t *testing.T) *Pipeline {
	t.Helper()
	p, err := New(config.NewDefaultConfig(), zaptest.NewLogger(t))
	require.NoError(t, err)
	return p
}

func findChild(t *testing.T, parent *schemas.Node, id string) *schemas.Node {
	t.Helper()
	for _, child := range parent.Children {
		if child.ID == id {
			return child
		}
	}
	t.Fatalf("node %q has no child %q", parent.ID, id)
	return nil
}

func TestNewPipeline_Validation(t *testing.T) {
	_, err := New(nil, zaptest.NewLogger(t))
	assert.ErrorContains(t, err, "config cannot be nil")

	_, err = New(config.NewDefaultConfig(), nil)
	assert.ErrorContains(t, err, "logger cannot be nil")
}

func TestPipelineRun_FullPage(t *testing.T) {
	p := newTestPipeline(t)
	refs := AssetRefs{
		Images: map[int]string{3: "00112233aabbccdd"},
		SVGs:   map[int]string{4: "ffeeddccbbaa9988"},
	}

	res, err := p.Run(context.Background(), fixtureCapture(), refs)
	require.NoError(t, err)
	require.NotNil(t, res)
	require.NotNil(t, res.Tree)

	// The body survives as the single root; the invisible sidebar is
	// skipped and its visible child reattaches to the body.
	root := res.Tree
	assert.Equal(t, "node-0", root.ID)
	assert.Equal(t, "body", root.Name)
	assert.Equal(t, schemas.NodeFrame, root.Type)
	require.Len(t, root.Children, 7)
	assert.Equal(t, "node-6", root.Children[1].ID)

	// Viewport (10, 20) with scroll (5, 5) and canvas origin (100, 100)
	// lands at (-85, -75).
	hero := findChild(t, root, "node-1")
	assert.Equal(t, -85.0, hero.Bounds.X)
	assert.Equal(t, -75.0, hero.Bounds.Y)
	assert.Equal(t, 600.0, hero.Bounds.Width)
	assert.Equal(t, 400.0, hero.Bounds.Height)
	assert.Nil(t, hero.Adjustments)
	require.NotNil(t, hero.Validation)
	assert.True(t, hero.Validation.WithinTolerance)
	assert.Equal(t, 1.0, hero.Validation.Score)
	require.Len(t, hero.Children, 3)

	heading := findChild(t, hero, "node-2")
	assert.Equal(t, schemas.NodeText, heading.Type)
	assert.Equal(t, "Simple pricing", heading.Name)
	assert.NotEmpty(t, heading.ContentHash)

	img := findChild(t, hero, "node-3")
	assert.Equal(t, schemas.NodeImage, img.Type)
	assert.Equal(t, "00112233aabbccdd", img.ImageRef)
	assert.Equal(t, "00112233aabbccdd", img.ContentHash)

	icon := findChild(t, hero, "node-4")
	assert.Equal(t, schemas.NodeVector, icon.Type)
	assert.Equal(t, "ffeeddccbbaa9988", icon.SVGRef)

	rotated := findChild(t, root, "node-7")
	require.NotNil(t, rotated.Transform)
	assert.InDelta(t, math.Pi/4, rotated.Transform.Rotation, 1e-9)
	assert.True(t, rotated.Transform.Supported)

	shifted := findChild(t, root, "node-8")
	assert.Equal(t, 5.0, shifted.Bounds.X)
	assert.Equal(t, 5.0, shifted.Bounds.Y)
	require.NotNil(t, shifted.Transform)
	assert.Equal(t, 30.0, shifted.Transform.TranslateX)
	assert.Equal(t, 40.0, shifted.Transform.TranslateY)
	assert.Contains(t, shifted.DebugInfo["degradedFunctions"], "matrix3d")

	// Tokens mined across retained elements only.
	assert.Len(t, res.Tokens.Colors, 7)
	assert.Equal(t, 1, res.Tokens.Colors["rgb(0, 87, 255)"].Usage)
	require.Len(t, res.Tokens.Typography, 2)
	heroType := res.Tokens.Typography["Inter, sans-serif/32/700"]
	require.NotNil(t, heroType)
	assert.Equal(t, 32.0, heroType.FontSize)
	assert.Equal(t, "40px", heroType.LineHeight)
	require.NotNil(t, res.Tokens.Spacing["8px"])
	assert.Equal(t, 3, res.Tokens.Spacing["8px"].Usage)
	assert.Equal(t, 1, res.Tokens.Spacing["16px"].Usage)
	assert.NotContains(t, res.Tokens.Spacing, "0px")

	// The three list items collapse into one component with color
	// variants.
	require.Len(t, res.Components.Definitions, 1)
	var def *schemas.ComponentDefinition
	for _, d := range res.Components.Definitions {
		def = d
	}
	assert.Equal(t, []string{"node-9", "node-10", "node-11"}, def.NodeIDs)
	require.Len(t, res.Variants, 1)
	assert.Len(t, res.Variants[def.Name], 3)

	sum := res.Summary
	assert.Equal(t, 11, sum.ElementCount)
	assert.Equal(t, 1, sum.SkippedCount)
	assert.Equal(t, 1, sum.DegradedCount)
	assert.Equal(t, int64(22), sum.Conversions)
	assert.InDelta(t, 0.152, sum.AveragePrecision, 1e-9)
	assert.Empty(t, sum.Warnings)
}

func TestPipelineRun_DroppedAndUnrecognized(t *testing.T) {
	p := newTestPipeline(t)
	capture := &schemas.CaptureResult{
		URL:      "https://example.com",
		Viewport: schemas.Viewport{Width: 1280, Height: 800, Zoom: 1},
		Elements: []schemas.CapturedElement{
			{
				Index: 0, ParentIndex: -1, Selector: "body", TagName: "body",
				Rect:    schemas.ElementRect{Width: 1280, Height: 800, Right: 1280, Bottom: 800},
				Visible: true,
			},
			{
				Index: 1, ParentIndex: 0, Selector: "body > div.bad", TagName: "div",
				Rect:    schemas.ElementRect{Left: math.NaN(), Top: 10, Width: 50, Height: 50},
				Visible: true,
			},
			{
				Index: 2, ParentIndex: 0, Selector: "body > div.odd", TagName: "div",
				Rect:      schemas.ElementRect{Left: 10, Top: 10, Right: 60, Bottom: 60, Width: 50, Height: 50},
				Transform: "sparkle(3)",
				Visible:   true,
			},
		},
	}

	res, err := p.Run(context.Background(), capture, AssetRefs{})
	require.NoError(t, err)

	assert.Equal(t, 2, res.Summary.ElementCount)
	assert.Equal(t, 1, res.Summary.SkippedCount)
	require.Len(t, res.Summary.Warnings, 2)
	assert.Contains(t, res.Summary.Warnings[0], "div.bad")
	assert.Contains(t, res.Summary.Warnings[1], "unrecognized transform function sparkle")

	odd := findChild(t, res.Tree, "node-2")
	assert.Equal(t, "sparkle", odd.DebugInfo["unrecognizedFunctions"])
	assert.Nil(t, odd.Transform)
}

func TestPipelineRun_Cancellation(t *testing.T) {
	defer goleak.VerifyNone(t)

	cfg := config.NewDefaultConfig()
	cfg.Extract.WorkerConcurrency = 2
	cfg.Extract.QueueSize = 1
	p, err := New(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)

	capture := &schemas.CaptureResult{
		URL:      "https://example.com",
		Viewport: schemas.Viewport{Width: 1280, Height: 800, Zoom: 1},
	}
	for i := 0; i < 200; i++ {
		parent := -1
		if i > 0 {
			parent = 0
		}
		capture.Elements = append(capture.Elements, schemas.CapturedElement{
			Index: i, ParentIndex: parent,
			Selector: fmt.Sprintf("body > div:nth-child(%d)", i),
			TagName:  "div",
			Rect:     schemas.ElementRect{Left: float64(i), Top: float64(i), Right: float64(i + 10), Bottom: float64(i + 10), Width: 10, Height: 10},
			Visible:  true,
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := p.Run(ctx, capture, AssetRefs{})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, res)
}

func TestPipelineRun_EmptyAndNil(t *testing.T) {
	p := newTestPipeline(t)

	res, err := p.Run(context.Background(), &schemas.CaptureResult{}, AssetRefs{})
	require.NoError(t, err)
	assert.Nil(t, res.Tree)
	assert.Zero(t, res.Summary.ElementCount)

	_, err = p.Run(context.Background(), nil, AssetRefs{})
	assert.ErrorContains(t, err, "capture result cannot be nil")
}
