// File: internal/payload/compress.go
package payload

import (
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/stickerverse/figmaconvert/api/schemas"
	"github.com/stickerverse/figmaconvert/internal/assets"
)

// limits bundles the caps one compression pass applies.
type limits struct {
	maxImageKB    float64
	maxSVGKB      float64
	topColors     int
	topTypography int
	topSpacing    int
	maxDepth      int
}

var (
	standardLimits   = limits{maxImageKB: 75, maxSVGKB: 30, topColors: 30, topTypography: 20, topSpacing: 25, maxDepth: 10}
	aggressiveLimits = limits{maxImageKB: 25, maxSVGKB: 10, topColors: 15, topTypography: 10, topSpacing: 10, maxDepth: 6}
)

// Options control one Compress call.
type Options struct {
	// TargetSizeMB is the budget; zero or negative means the default.
	TargetSizeMB float64
	// Aggressive forces the aggressive pass on the first round.
	Aggressive bool
}

// Report is the compression audit trail.
type Report struct {
	OriginalMB     float64
	FinalMB        float64
	Compressed     bool
	Aggressive     bool
	RemovedImages  int
	RemovedSVGs    int
	DroppedTokens  int
	TruncatedNodes int
}

// Compressor shrinks documents in place until they fit a target size.
type Compressor struct {
	log *zap.Logger
}

func NewCompressor(logger *zap.Logger) *Compressor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Compressor{log: logger.Named("payload")}
}

// Compress applies the standard pass when doc is over the target and an
// aggressive follow-up when the first round was not enough. Documents
// already under budget pass through completely untouched. Oversize
// inputs past the auto threshold go straight to the aggressive pass.
func (c *Compressor) Compress(doc *schemas.Document, opts Options) (*Report, error) {
	if doc == nil {
		return nil, errors.New("document cannot be nil")
	}
	target := opts.TargetSizeMB
	if target <= 0 {
		target = DefaultTargetMB
	}

	size, err := EncodedSizeMB(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to measure document: %w", err)
	}
	rep := &Report{OriginalMB: size, FinalMB: size}

	if size <= target {
		c.log.Info("Document already under target.",
			zap.Float64("size_mb", size),
			zap.Float64("target_mb", target),
		)
		return rep, nil
	}

	rep.Compressed = true
	rep.Aggressive = opts.Aggressive || size > autoAggressiveMB
	c.pass(doc, rep, rep.Aggressive)

	size, err = EncodedSizeMB(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to measure document: %w", err)
	}
	rep.FinalMB = size

	if size > target {
		c.log.Warn("Still over target, applying aggressive pass.",
			zap.Float64("size_mb", size),
			zap.Float64("target_mb", target),
		)
		rep.Aggressive = true
		c.pass(doc, rep, true)
		size, err = EncodedSizeMB(doc)
		if err != nil {
			return nil, fmt.Errorf("failed to measure document: %w", err)
		}
		rep.FinalMB = size
	}

	if size > oversizeWarnMB {
		c.log.Warn("Document is still very large, consider capturing a smaller page.",
			zap.Float64("size_mb", size))
	}
	c.log.Info("Compression complete.",
		zap.Float64("original_mb", rep.OriginalMB),
		zap.Float64("final_mb", rep.FinalMB),
		zap.Bool("aggressive", rep.Aggressive),
	)
	return rep, nil
}

func (c *Compressor) pass(doc *schemas.Document, rep *Report, aggressive bool) {
	lim := standardLimits
	if aggressive {
		lim = aggressiveLimits
	}

	removedImages := pruneAssets(doc.Assets.Images, lim.maxImageKB, func(a *schemas.ImageAsset) float64 {
		return assets.Base64SizeKB(a.Data)
	})
	removedSVGs := pruneAssets(doc.Assets.SVGs, lim.maxSVGKB, func(a *schemas.SVGAsset) float64 {
		return assets.RawSizeKB([]byte(a.SVGCode))
	})
	rep.RemovedImages += len(removedImages)
	rep.RemovedSVGs += len(removedSVGs)
	if len(removedImages) > 0 || len(removedSVGs) > 0 {
		c.log.Info("Removed oversize assets.",
			zap.Int("images", len(removedImages)),
			zap.Int("svgs", len(removedSVGs)),
			zap.Float64("image_cap_kb", lim.maxImageKB),
			zap.Float64("svg_cap_kb", lim.maxSVGKB),
		)
		clearRefs(doc.Tree, removedImages, removedSVGs)
	}

	dropped := topN(doc.DesignTokens.Colors, lim.topColors, func(t *schemas.ColorToken) int { return t.Usage })
	dropped += topN(doc.DesignTokens.Typography, lim.topTypography, func(t *schemas.TypographyToken) int { return t.Usage })
	dropped += topN(doc.DesignTokens.Spacing, lim.topSpacing, func(t *schemas.SpacingToken) int { return t.Usage })
	rep.DroppedTokens += dropped

	rep.TruncatedNodes += simplifyTree(doc.Tree, lim.maxDepth, 0)

	if aggressive {
		if doc.Screenshot != "" {
			doc.Screenshot = ""
			c.log.Info("Removed screenshot.")
		}
		doc.Components = schemas.Components{Definitions: map[string]*schemas.ComponentDefinition{}}
		doc.Variants = nil
		doc.CSSVariables = nil
		doc.ExtractionSummary = nil
	}
}

// pruneAssets deletes entries whose measured size exceeds maxKB and
// returns the removed keys.
func pruneAssets[T any](m map[string]*T, maxKB float64, sizeKB func(*T) float64) map[string]bool {
	removed := map[string]bool{}
	for key, asset := range m {
		if sizeKB(asset) > maxKB {
			removed[key] = true
		}
	}
	for key := range removed {
		delete(m, key)
	}
	return removed
}

// clearRefs walks the tree and drops references to assets that no longer
// exist, so the plugin never chases a pruned payload.
func clearRefs(node *schemas.Node, images, svgs map[string]bool) {
	if node == nil {
		return
	}
	if images[node.ImageRef] {
		node.ImageRef = ""
	}
	if svgs[node.SVGRef] {
		node.SVGRef = ""
	}
	for _, child := range node.Children {
		clearRefs(child, images, svgs)
	}
}

// topN keeps the n highest-usage entries of m, breaking usage ties by
// key so the result is deterministic, and returns how many were dropped.
func topN[T any](m map[string]*T, n int, usage func(*T) int) int {
	if n < 0 || len(m) <= n {
		return 0
	}
	type entry struct {
		key   string
		usage int
	}
	items := make([]entry, 0, len(m))
	for k, v := range m {
		items = append(items, entry{key: k, usage: usage(v)})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].usage != items[j].usage {
			return items[i].usage > items[j].usage
		}
		return items[i].key < items[j].key
	})
	for _, it := range items[n:] {
		delete(m, it.key)
	}
	return len(items) - n
}

// simplifyTree strips the per-node debug metadata and cuts all children
// below maxDepth, returning how many nodes the cut removed. The root sits
// at depth zero.
func simplifyTree(node *schemas.Node, maxDepth, depth int) int {
	if node == nil {
		return 0
	}
	node.HTMLMetadata = nil
	node.DebugInfo = nil
	node.SourceSelector = ""
	node.ComponentSignature = ""
	node.ContentHash = ""
	node.CSSVariables = nil

	if depth >= maxDepth {
		cut := 0
		for _, child := range node.Children {
			cut += child.CountNodes()
		}
		node.Children = nil
		return cut
	}
	cut := 0
	for _, child := range node.Children {
		cut += simplifyTree(child, maxDepth, depth+1)
	}
	return cut
}
