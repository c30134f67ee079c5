// File: internal/capture/collector.go
package capture

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/stickerverse/figmaconvert/api/schemas"
	"github.com/stickerverse/figmaconvert/internal/config"
)

// maxConsoleErrors bounds how much page noise one capture can accumulate.
const maxConsoleErrors = 100

// collectedPage is the JSON payload collectScript returns.
type collectedPage struct {
	Elements []schemas.CapturedElement `json:"elements"`
}

// pageMetrics is the JSON payload metricsScript returns.
type pageMetrics struct {
	DevicePixelRatio float64           `json:"devicePixelRatio"`
	CSSVariables     map[string]string `json:"cssVariables"`
}

// settleProbe is one layout-stability sample from settleScript.
type settleProbe struct {
	ReadyState    string  `json:"readyState"`
	ScrollHeight  float64 `json:"scrollHeight"`
	PendingImages int     `json:"pendingImages"`
	FontsLoaded   bool    `json:"fontsLoaded"`
}

// quiet reports whether the probe itself shows nothing in flight.
func (p settleProbe) quiet() bool {
	return p.ReadyState == "complete" && p.PendingImages == 0 && p.FontsLoaded
}

// Collector drives one page capture through an Executor: navigate, wait for
// the layout to settle, then lift out the element list, page metrics and
// artifacts in a single pass.
type Collector struct {
	cfg  config.CaptureConfig
	log  *zap.Logger
	exec Executor

	mu            sync.Mutex
	consoleErrors []string
}

// NewCollector creates a collector bound to an executor. A nil logger is
// replaced with a no-op one so the collector is usable as a library.
func NewCollector(cfg config.CaptureConfig, logger *zap.Logger, exec Executor) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collector{
		cfg:  cfg,
		log:  logger.Named("capture"),
		exec: exec,
	}
}

// Capture loads the URL and returns everything the conversion pipeline
// needs from the live page. The returned geometry is raw viewport data;
// no coordinate conversion happens here.
func (c *Collector) Capture(ctx context.Context, url string) (*schemas.CaptureResult, error) {
	start := time.Now()
	c.resetConsole()
	c.exec.ListenConsole(ctx, c.recordConsoleError)

	navCtx, cancel := context.WithTimeout(ctx, c.cfg.NavigationTimeout)
	defer cancel()

	c.log.Info("Navigating.", zap.String("url", url))
	if err := c.exec.Navigate(navCtx, url); err != nil {
		return nil, fmt.Errorf("failed to navigate to %s: %w", url, err)
	}

	if err := c.waitForSettle(navCtx); err != nil {
		return nil, err
	}

	title, err := c.exec.Title(navCtx)
	if err != nil {
		c.log.Warn("Could not read page title.", zap.Error(err))
	}

	visual, err := c.exec.LayoutMetrics(navCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to read layout metrics: %w", err)
	}

	var metrics pageMetrics
	if err := c.exec.Evaluate(navCtx, metricsScript, &metrics); err != nil {
		return nil, fmt.Errorf("failed to evaluate page metrics: %w", err)
	}

	var page collectedPage
	if err := c.exec.Evaluate(navCtx, collectScript, &page); err != nil {
		return nil, fmt.Errorf("failed to collect elements: %w", err)
	}

	var screenshot []byte
	if c.cfg.ScreenshotQuality > 0 {
		screenshot, err = c.exec.Screenshot(navCtx, c.cfg.ScreenshotQuality, c.cfg.FullPage)
		if err != nil {
			// The screenshot is an aid, not a requirement.
			c.log.Warn("Screenshot failed; continuing without one.", zap.Error(err))
			screenshot = nil
		}
	}

	viewport := schemas.Viewport{
		Width:            c.cfg.ViewportWidth,
		Height:           c.cfg.ViewportHeight,
		DevicePixelRatio: metrics.DevicePixelRatio,
		Zoom:             1.0,
	}
	if visual != nil {
		viewport.ScrollX = visual.PageX
		viewport.ScrollY = visual.PageY
		viewport.Width = int(visual.ClientWidth)
		viewport.Height = int(visual.ClientHeight)
		if visual.Scale > 0 {
			viewport.Zoom = visual.Scale
		}
	}

	result := &schemas.CaptureResult{
		URL:           url,
		Title:         title,
		Viewport:      viewport,
		Elements:      page.Elements,
		CSSVariables:  metrics.CSSVariables,
		Screenshot:    screenshot,
		ConsoleErrors: c.snapshotConsole(),
		CapturedAt:    start.UTC(),
		Duration:      time.Since(start),
	}

	c.log.Info("Capture complete.",
		zap.Int("elements", len(result.Elements)),
		zap.Int("console_errors", len(result.ConsoleErrors)),
		zap.Duration("duration", result.Duration))
	return result, nil
}

// waitForSettle polls layout stability until two consecutive quiet probes
// agree, or the settle timeout passes. Timing out is not an error; the
// capture proceeds with whatever layout the page reached.
func (c *Collector) waitForSettle(ctx context.Context) error {
	if c.cfg.SettleTimeout <= 0 {
		return nil
	}
	deadline := time.Now().Add(c.cfg.SettleTimeout)

	var last settleProbe
	stable := 0
	for time.Now().Before(deadline) {
		var probe settleProbe
		if err := c.exec.Evaluate(ctx, settleScript, &probe); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// Navigations can briefly tear the execution context down.
			c.log.Debug("Settle probe failed.", zap.Error(err))
			stable = 0
		} else if probe.quiet() && probe == last {
			stable++
			if stable >= 2 {
				c.log.Debug("Page settled.", zap.Float64("scroll_height", probe.ScrollHeight))
				return nil
			}
		} else {
			stable = 0
		}
		last = probe

		if err := c.exec.Sleep(ctx, c.cfg.SettlePollInterval); err != nil {
			return err
		}
	}

	c.log.Warn("Page did not settle before timeout; capturing current state.",
		zap.Duration("timeout", c.cfg.SettleTimeout))
	return nil
}

func (c *Collector) resetConsole() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.consoleErrors = nil
}

func (c *Collector) recordConsoleError(message string) {
	if message == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.consoleErrors) >= maxConsoleErrors {
		return
	}
	c.consoleErrors = append(c.consoleErrors, message)
}

func (c *Collector) snapshotConsole() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.consoleErrors))
	copy(out, c.consoleErrors)
	return out
}
