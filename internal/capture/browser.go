// File: internal/capture/browser.go
package capture

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/stickerverse/figmaconvert/internal/config"
)

const shutdownGracePeriod = 15 * time.Second

// Browser owns the Chrome process and the single tab used for capture.
// It exists so the command layer has one handle to launch and tear down,
// while the collector only sees the tab context.
type Browser struct {
	logger      *zap.Logger
	tabCtx      context.Context
	tabCancel   context.CancelFunc
	allocCancel context.CancelFunc
}

// NewBrowser launches Chrome with the configured viewport and flags. The
// browser is started eagerly so launch failures surface here rather than
// mid-capture.
func NewBrowser(ctx context.Context, cfg config.CaptureConfig, logger *zap.Logger) (*Browser, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("browser")

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.WindowSize(cfg.ViewportWidth, cfg.ViewportHeight),
		// Stability flags, necessary in containers.
		chromedp.Flag("disable-gpu", true),
		chromedp.NoSandbox,
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if cfg.DevicePixelRatio > 0 {
		opts = append(opts, chromedp.Flag("force-device-scale-factor", fmt.Sprintf("%g", cfg.DevicePixelRatio)))
	}
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	for _, arg := range cfg.BrowserArgs {
		name, value, found := strings.Cut(strings.TrimPrefix(arg, "--"), "=")
		if found {
			opts = append(opts, chromedp.Flag(name, value))
		} else {
			opts = append(opts, chromedp.Flag(name, true))
		}
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx, chromedp.WithErrorf(func(format string, args ...interface{}) {
		logger.Sugar().Errorf(format, args...)
	}))

	b := &Browser{
		logger:      logger,
		tabCtx:      tabCtx,
		tabCancel:   tabCancel,
		allocCancel: allocCancel,
	}

	// An empty Run starts the browser process and attaches the tab.
	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		allocCancel()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	logger.Info("Browser launched.",
		zap.Bool("headless", cfg.Headless),
		zap.Int("viewport_width", cfg.ViewportWidth),
		zap.Int("viewport_height", cfg.ViewportHeight))
	return b, nil
}

// Context returns the tab context. All Executor calls run against it.
func (b *Browser) Context() context.Context {
	return b.tabCtx
}

// Close shuts the tab and the browser process down, waiting up to the
// provided context (or the grace period) for Chrome to exit cleanly.
func (b *Browser) Close(ctx context.Context) error {
	b.logger.Info("Shutting down browser.")

	done := make(chan error, 1)
	go func() {
		done <- chromedp.Cancel(b.tabCtx)
	}()

	graceCtx, cancel := context.WithTimeout(ctx, shutdownGracePeriod)
	defer cancel()

	var closeErr error
	select {
	case err := <-done:
		closeErr = err
	case <-graceCtx.Done():
		b.logger.Warn("Timeout waiting for graceful browser close. Forcing shutdown.", zap.Error(graceCtx.Err()))
	}

	b.tabCancel()
	b.allocCancel()

	if closeErr != nil {
		return fmt.Errorf("failed to close browser cleanly: %w", closeErr)
	}
	b.logger.Info("Browser shutdown complete.")
	return nil
}
