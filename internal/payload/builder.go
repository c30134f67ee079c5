// File: internal/payload/builder.go

// Package payload assembles the final plugin document and shrinks it to
// fit the transport budget.
package payload

import (
	"encoding/base64"

	"github.com/stickerverse/figmaconvert/api/schemas"
	"github.com/stickerverse/figmaconvert/internal/assets"
	"github.com/stickerverse/figmaconvert/internal/extract"
)

// BuildDocument assembles the plugin payload from the capture, the
// extraction result and the asset intake. Nil extraction or intake
// results degrade to empty sections so the document stays loadable.
func BuildDocument(capture *schemas.CaptureResult, ext *extract.Result, intake *assets.Result) *schemas.Document {
	doc := &schemas.Document{
		SchemaVersion: schemas.SchemaVersion,
		Source: schemas.Source{
			URL:        capture.URL,
			Title:      capture.Title,
			CapturedAt: capture.CapturedAt,
		},
		Viewport: capture.Viewport,
		Assets: schemas.Assets{
			Images: map[string]*schemas.ImageAsset{},
			SVGs:   map[string]*schemas.SVGAsset{},
		},
		DesignTokens: schemas.DesignTokens{
			Colors:     map[string]*schemas.ColorToken{},
			Typography: map[string]*schemas.TypographyToken{},
			Spacing:    map[string]*schemas.SpacingToken{},
		},
		Components:   schemas.Components{Definitions: map[string]*schemas.ComponentDefinition{}},
		CSSVariables: capture.CSSVariables,
	}
	if len(capture.Screenshot) > 0 {
		doc.Screenshot = base64.StdEncoding.EncodeToString(capture.Screenshot)
	}

	var summary schemas.ExtractionSummary
	if ext != nil {
		doc.Tree = ext.Tree
		doc.DesignTokens = ext.Tokens
		doc.Components = ext.Components
		doc.Variants = ext.Variants
		summary = ext.Summary
	}
	if intake != nil {
		if intake.Assets != nil {
			doc.Assets = *intake.Assets
		}
		for _, s := range intake.Skipped {
			summary.Warnings = append(summary.Warnings, "asset: "+s)
		}
	}
	for _, msg := range capture.ConsoleErrors {
		summary.Warnings = append(summary.Warnings, "console: "+msg)
	}
	doc.ExtractionSummary = &summary

	return doc
}
