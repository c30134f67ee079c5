// File: internal/capture/executor.go
package capture

import (
	"context"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

// Executor defines the contract for browser interactions, allowing the
// collector to be exercised in tests without a Chrome process.
type Executor interface {
	// Navigate loads the given URL in the tab.
	Navigate(ctx context.Context, url string) error

	// Title returns the current document title.
	Title(ctx context.Context) (string, error)

	// Evaluate runs a JavaScript expression and unmarshals its JSON result
	// into out.
	Evaluate(ctx context.Context, expression string, out interface{}) error

	// LayoutMetrics retrieves the CSS visual viewport, the authoritative
	// source for scroll offsets and viewport size.
	LayoutMetrics(ctx context.Context) (*page.VisualViewport, error)

	// Screenshot captures the page. quality applies to full-page capture;
	// viewport capture is always lossless PNG.
	Screenshot(ctx context.Context, quality int, fullPage bool) ([]byte, error)

	// Sleep pauses execution for a given duration (context-aware).
	Sleep(ctx context.Context, d time.Duration) error

	// ListenConsole registers a callback for console errors and uncaught
	// exceptions emitted by the page.
	ListenConsole(ctx context.Context, fn func(message string))
}

// CDPExecutor is the production implementation of the Executor interface,
// wrapping the real chromedp calls.
type CDPExecutor struct{}

// NewCDPExecutor creates a new production-ready executor.
func NewCDPExecutor() *CDPExecutor {
	return &CDPExecutor{}
}

func (e *CDPExecutor) Navigate(ctx context.Context, url string) error {
	return chromedp.Run(ctx, chromedp.Navigate(url))
}

func (e *CDPExecutor) Title(ctx context.Context) (string, error) {
	var title string
	err := chromedp.Run(ctx, chromedp.Title(&title))
	return title, err
}

func (e *CDPExecutor) Evaluate(ctx context.Context, expression string, out interface{}) error {
	return chromedp.Run(ctx, chromedp.Evaluate(expression, out))
}

func (e *CDPExecutor) LayoutMetrics(ctx context.Context) (*page.VisualViewport, error) {
	var cssVisualViewport *page.VisualViewport
	err := chromedp.Run(ctx, chromedp.ActionFunc(func(c context.Context) error {
		// Use the modern 7-value return signature and only keep what we need.
		var err error
		_, _, _, _, cssVisualViewport, _, err = page.GetLayoutMetrics().Do(c)
		return err
	}))
	return cssVisualViewport, err
}

func (e *CDPExecutor) Screenshot(ctx context.Context, quality int, fullPage bool) ([]byte, error) {
	var buf []byte
	action := chromedp.CaptureScreenshot(&buf)
	if fullPage {
		action = chromedp.FullScreenshot(&buf, quality)
	}
	err := chromedp.Run(ctx, action)
	return buf, err
}

func (e *CDPExecutor) Sleep(ctx context.Context, d time.Duration) error {
	return chromedp.Sleep(d).Do(ctx)
}

func (e *CDPExecutor) ListenConsole(ctx context.Context, fn func(message string)) {
	chromedp.ListenTarget(ctx, func(ev interface{}) {
		switch ev := ev.(type) {
		case *runtime.EventConsoleAPICalled:
			if ev.Type != runtime.APITypeError {
				return
			}
			parts := make([]string, 0, len(ev.Args))
			for _, arg := range ev.Args {
				if len(arg.Value) > 0 {
					parts = append(parts, string(arg.Value))
				} else if arg.Description != "" {
					parts = append(parts, arg.Description)
				}
			}
			fn(strings.Join(parts, " "))
		case *runtime.EventExceptionThrown:
			fn(ev.ExceptionDetails.Error())
		}
	})
}
