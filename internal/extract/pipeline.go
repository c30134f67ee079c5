// File: internal/extract/pipeline.go

// Package extract runs captured elements through the geometry engine and
// folds the survivors into a document tree with design tokens, component
// definitions and a run summary.
package extract

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/stickerverse/figmaconvert/api/schemas"
	"github.com/stickerverse/figmaconvert/internal/config"
)

// maxWarnings bounds the warning list carried in the run summary so a
// pathological page cannot bloat the document.
const maxWarnings = 50

// AssetRefs maps element indexes to the content keys produced by asset
// intake, so nodes can reference deduplicated payloads.
type AssetRefs struct {
	Images map[int]string
	SVGs   map[int]string
}

// Result is everything one pipeline run produces for document assembly.
type Result struct {
	Tree       *schemas.Node
	Tokens     schemas.DesignTokens
	Components schemas.Components
	Variants   map[string][]string
	Summary    schemas.ExtractionSummary
}

// Pipeline fans captured elements out to a bounded worker pool and
// collects the per-element outcomes back into a single result. One run at
// a time per instance.
type Pipeline struct {
	cfg    *config.Config
	logger *zap.Logger

	// stateLock protects the running state of the pipeline.
	stateLock sync.Mutex
	isRunning bool
}

// New creates a Pipeline. Dependencies are validated up front to prevent
// runtime panics deep inside a worker.
func New(cfg *config.Config, logger *zap.Logger) (*Pipeline, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	return &Pipeline{cfg: cfg, logger: logger.Named("extract")}, nil
}

// Run converts every captured element into canvas space and assembles the
// document tree. Elements that fail conversion are dropped with a warning
// rather than aborting the run; cancellation aborts the whole run and
// returns the context's error once the pool has drained.
func (p *Pipeline) Run(ctx context.Context, capture *schemas.CaptureResult, refs AssetRefs) (*Result, error) {
	if capture == nil {
		return nil, errors.New("capture result cannot be nil")
	}

	p.stateLock.Lock()
	if p.isRunning {
		p.stateLock.Unlock()
		return nil, errors.New("pipeline is already running")
	}
	p.isRunning = true
	p.stateLock.Unlock()
	defer func() {
		p.stateLock.Lock()
		p.isRunning = false
		p.stateLock.Unlock()
	}()

	start := time.Now()
	conv := newConverter(p.cfg, capture, refs, p.logger)

	workers := p.cfg.Extract.WorkerConcurrency
	if workers < 1 {
		workers = 1
	}
	queueSize := p.cfg.Extract.QueueSize
	if queueSize < 1 {
		queueSize = 1
	}

	queue := make(chan schemas.CapturedElement, queueSize)
	results := make(chan outcome, queueSize)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go p.runWorker(ctx, i+1, conv, queue, results, &wg)
	}

	feedDone := make(chan struct{})
	go func() {
		defer close(feedDone)
		defer close(queue)
		for _, el := range capture.Elements {
			select {
			case <-ctx.Done():
				return
			case queue <- el:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	outcomes := make(map[int]outcome, len(capture.Elements))
	for out := range results {
		outcomes[out.index] = out
	}
	<-feedDone

	if err := ctx.Err(); err != nil {
		p.logger.Warn("Extraction aborted.", zap.Error(err))
		return nil, fmt.Errorf("extraction aborted: %w", err)
	}

	return p.assemble(capture, conv, outcomes, start), nil
}

// runWorker is the main loop for a single extraction worker.
func (p *Pipeline) runWorker(ctx context.Context, id int, conv *converter, queue <-chan schemas.CapturedElement, results chan<- outcome, wg *sync.WaitGroup) {
	defer wg.Done()
	log := p.logger.With(zap.Int("worker_id", id))
	log.Debug("Extraction worker started.")

	for {
		select {
		case <-ctx.Done():
			log.Debug("Extraction worker stopping, context cancelled.")
			return
		case el, ok := <-queue:
			if !ok {
				log.Debug("Extraction worker stopping, queue closed.")
				return
			}
			select {
			case results <- conv.convert(el):
			case <-ctx.Done():
				return
			}
		}
	}
}

// assemble folds per-element outcomes into the final result, preserving
// capture order so siblings keep their document order.
func (p *Pipeline) assemble(capture *schemas.CaptureResult, conv *converter, outcomes map[int]outcome, start time.Time) *Result {
	nodes := make(map[int]*schemas.Node, len(outcomes))
	var (
		skipped  int
		degraded int
		warnings []string
	)
	for _, el := range capture.Elements {
		out, ok := outcomes[el.Index]
		if !ok {
			continue
		}
		if out.warning != "" {
			warnings = appendWarning(warnings, out.warning)
		}
		if out.node == nil {
			skipped++
			continue
		}
		if out.degraded {
			degraded++
		}
		nodes[el.Index] = out.node
	}

	tree := buildTree(capture, nodes)
	tokens := mineTokens(capture.Elements, nodes)
	comps, variants := detectComponents(capture.Elements, nodes)

	m := conv.transformer.Metrics()
	summary := schemas.ExtractionSummary{
		ElementCount:     len(nodes),
		SkippedCount:     skipped,
		DurationMS:       time.Since(start).Milliseconds(),
		Conversions:      m.Conversions,
		AveragePrecision: m.AverageError,
		DegradedCount:    degraded,
		Warnings:         warnings,
	}

	p.logger.Info("Extraction complete.",
		zap.Int("nodes", len(nodes)),
		zap.Int("skipped", skipped),
		zap.Int("degraded", degraded),
		zap.Int64("conversions", m.Conversions),
		zap.Float64("avg_precision", m.AverageError),
		zap.Duration("duration", time.Since(start)),
	)

	return &Result{Tree: tree, Tokens: tokens, Components: comps, Variants: variants, Summary: summary}
}

func appendWarning(list []string, w string) []string {
	if len(list) >= maxWarnings {
		return list
	}
	return append(list, w)
}
