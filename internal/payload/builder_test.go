// File: internal/payload/builder_test.go
package payload

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stickerverse/figmaconvert/api/schemas"
	"github.com/stickerverse/figmaconvert/internal/assets"
	"github.com/stickerverse/figmaconvert/internal/extract"
)

func TestBuildDocument(t *testing.T) {
	capturedAt := time.Date(2025, 11, 3, 10, 30, 0, 0, time.UTC)
	capture := &schemas.CaptureResult{
		URL:           "https://example.com/pricing",
		Title:         "Pricing",
		Viewport:      schemas.Viewport{Width: 1280, Height: 800, ScrollX: 5, ScrollY: 5, Zoom: 1},
		CSSVariables:  map[string]string{"--brand": "#ff4400"},
		Screenshot:    []byte{0x89, 0x50, 0x4e, 0x47},
		ConsoleErrors: []string{"TypeError: x is undefined"},
		CapturedAt:    capturedAt,
	}
	ext := &extract.Result{
		Tree: &schemas.Node{ID: "node-0", Type: schemas.NodeFrame},
		Tokens: schemas.DesignTokens{
			Colors:     map[string]*schemas.ColorToken{"#fff": {Value: "#fff", Usage: 2}},
			Typography: map[string]*schemas.TypographyToken{},
			Spacing:    map[string]*schemas.SpacingToken{},
		},
		Components: schemas.Components{Definitions: map[string]*schemas.ComponentDefinition{}},
		Variants:   map[string][]string{"card": {"red"}},
		Summary:    schemas.ExtractionSummary{ElementCount: 12, Warnings: []string{"div.bad: dropped"}},
	}
	intake := &assets.Result{
		Assets: &schemas.Assets{
			Images: map[string]*schemas.ImageAsset{"k1": {Data: "aGk=", Format: "png"}},
			SVGs:   map[string]*schemas.SVGAsset{},
		},
		Skipped: []string{"https://example.com/huge.jpg: over size cap"},
	}

	doc := BuildDocument(capture, ext, intake)

	assert.Equal(t, schemas.SchemaVersion, doc.SchemaVersion)
	assert.Equal(t, "https://example.com/pricing", doc.Source.URL)
	assert.Equal(t, "Pricing", doc.Source.Title)
	assert.Equal(t, capturedAt, doc.Source.CapturedAt)
	assert.Equal(t, capture.Viewport, doc.Viewport)
	assert.Same(t, ext.Tree, doc.Tree)
	assert.Equal(t, map[string]string{"--brand": "#ff4400"}, doc.CSSVariables)
	assert.Contains(t, doc.Assets.Images, "k1")
	assert.Equal(t, map[string][]string{"card": {"red"}}, doc.Variants)

	decoded, err := base64.StdEncoding.DecodeString(doc.Screenshot)
	require.NoError(t, err)
	assert.Equal(t, capture.Screenshot, decoded)

	require.NotNil(t, doc.ExtractionSummary)
	assert.Equal(t, 12, doc.ExtractionSummary.ElementCount)
	require.Len(t, doc.ExtractionSummary.Warnings, 3)
	assert.Equal(t, "div.bad: dropped", doc.ExtractionSummary.Warnings[0])
	assert.Equal(t, "asset: https://example.com/huge.jpg: over size cap", doc.ExtractionSummary.Warnings[1])
	assert.Equal(t, "console: TypeError: x is undefined", doc.ExtractionSummary.Warnings[2])
}

func TestBuildDocument_NilSections(t *testing.T) {
	capture := &schemas.CaptureResult{
		URL:      "https://example.com",
		Viewport: schemas.Viewport{Width: 800, Height: 600, Zoom: 1},
	}

	doc := BuildDocument(capture, nil, nil)

	assert.Nil(t, doc.Tree)
	assert.Empty(t, doc.Screenshot)
	assert.NotNil(t, doc.Assets.Images)
	assert.NotNil(t, doc.Assets.SVGs)
	assert.NotNil(t, doc.DesignTokens.Colors)
	assert.NotNil(t, doc.Components.Definitions)
	require.NotNil(t, doc.ExtractionSummary)
	assert.Zero(t, doc.ExtractionSummary.ElementCount)
}
