// File: internal/assets/intake.go

// Package assets turns the raw content references a capture produces
// (image URLs, inline SVG markup) into the content-addressed asset table
// of the output document. Everything here degrades softly: an asset that
// cannot be fetched or sanitized is skipped and reported, never fatal.
package assets

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/stickerverse/figmaconvert/api/schemas"
	"github.com/stickerverse/figmaconvert/internal/config"
)

// Intake collects every asset a captured page references.
type Intake struct {
	cfg       config.AssetsConfig
	log       *zap.Logger
	fetcher   *Fetcher
	sanitizer *SVGSanitizer
}

// Result maps captured element indexes to the asset keys the document
// tree will reference.
type Result struct {
	Assets    *schemas.Assets
	ImageRefs map[int]string
	SVGRefs   map[int]string
	// Skipped lists references that were dropped, with the reason folded
	// into the string. Advisory only.
	Skipped []string
}

// NewIntake wires an intake from configuration.
func NewIntake(cfg config.AssetsConfig, logger *zap.Logger) *Intake {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Intake{
		cfg:       cfg,
		log:       logger.Named("assets"),
		fetcher:   NewFetcher(cfg, logger),
		sanitizer: NewSVGSanitizer(cfg.MaxSVGKB),
	}
}

// Collect gathers images and SVGs for the captured elements. Fetches run
// concurrently under the configured limit. The only returned error is
// context cancellation; per-asset failures land in Result.Skipped.
func (in *Intake) Collect(ctx context.Context, elements []schemas.CapturedElement) (*Result, error) {
	res := &Result{
		Assets: &schemas.Assets{
			Images: make(map[string]*schemas.ImageAsset),
			SVGs:   make(map[string]*schemas.SVGAsset),
		},
		ImageRefs: make(map[int]string),
		SVGRefs:   make(map[int]string),
	}

	in.collectSVGs(elements, res)

	// Deduplicate image URLs before fetching; the same logo appears on a
	// page dozens of times.
	wanted := make(map[string][]int)
	for _, el := range elements {
		if el.ImageURL == "" {
			continue
		}
		wanted[el.ImageURL] = append(wanted[el.ImageURL], el.Index)
	}

	var mu sync.Mutex
	skip := func(ref string, reason string) {
		mu.Lock()
		res.Skipped = append(res.Skipped, ref+": "+reason)
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxInt(in.cfg.FetchConcurrency, 1))

	for url, indexes := range wanted {
		g.Go(func() error {
			data, contentType, err := in.load(gctx, url)
			if err != nil {
				in.log.Debug("Dropping unfetchable image.", zap.String("url", url), zap.Error(err))
				skip(url, err.Error())
				return nil
			}
			if in.cfg.MaxImageKB > 0 && RawSizeKB(data) > float64(in.cfg.MaxImageKB) {
				in.log.Debug("Dropping oversize image.",
					zap.String("url", url), zap.Float64("kb", RawSizeKB(data)))
				skip(url, "over size cap")
				return nil
			}

			width, height := ImageDims(data)
			asset := &schemas.ImageAsset{
				Data:   base64.StdEncoding.EncodeToString(data),
				Format: DetectFormat(data, contentType),
				Width:  width,
				Height: height,
				URL:    url,
			}

			key := ContentKey(data)
			mu.Lock()
			res.Assets.Images[key] = asset
			for _, idx := range indexes {
				res.ImageRefs[idx] = key
			}
			mu.Unlock()
			return nil
		})
	}

	// Workers swallow their own failures, so Wait only reflects ctx.
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return res, err
	}

	in.log.Info("Asset collection complete.",
		zap.Int("images", len(res.Assets.Images)),
		zap.Int("svgs", len(res.Assets.SVGs)),
		zap.Int("skipped", len(res.Skipped)))
	return res, nil
}

// collectSVGs sanitizes inline markup synchronously; there is no IO here.
func (in *Intake) collectSVGs(elements []schemas.CapturedElement, res *Result) {
	seen := make(map[string]string) // raw markup -> key
	for _, el := range elements {
		if el.SVGMarkup == "" {
			continue
		}
		if key, ok := seen[el.SVGMarkup]; ok {
			res.SVGRefs[el.Index] = key
			continue
		}
		clean, err := in.sanitizer.Sanitize(el.SVGMarkup)
		if err != nil {
			in.log.Debug("Dropping svg.", zap.String("selector", el.Selector), zap.Error(err))
			res.Skipped = append(res.Skipped, el.Selector+": "+err.Error())
			continue
		}
		key := ContentKey([]byte(clean))
		res.Assets.SVGs[key] = &schemas.SVGAsset{SVGCode: clean}
		res.SVGRefs[el.Index] = key
		seen[el.SVGMarkup] = key
	}
}

// load resolves a reference to raw bytes, decoding data: URIs locally and
// fetching everything else over HTTP.
func (in *Intake) load(ctx context.Context, url string) ([]byte, string, error) {
	if strings.HasPrefix(url, "data:") {
		if data, mediaType, ok := DecodeDataURL(url); ok {
			return data, mediaType, nil
		}
		return nil, "", errMalformedDataURL
	}
	return in.fetcher.Fetch(ctx, url)
}

var errMalformedDataURL = errors.New("malformed data url")

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
