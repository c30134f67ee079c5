// File: cmd/convert.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/stickerverse/figmaconvert/internal/assets"
	"github.com/stickerverse/figmaconvert/internal/capture"
	"github.com/stickerverse/figmaconvert/internal/config"
	"github.com/stickerverse/figmaconvert/internal/extract"
	"github.com/stickerverse/figmaconvert/internal/observability"
	"github.com/stickerverse/figmaconvert/internal/payload"
	"github.com/stickerverse/figmaconvert/internal/store"
)

// newConvertCmd creates and configures the `convert` command.
func newConvertCmd() *cobra.Command {
	var outputPath string
	var viewport string

	convertCmd := &cobra.Command{
		Use:   "convert <url>",
		Short: "Capture a web page and convert it into a design document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Use the context passed from main (signal-aware).
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}

			if viewport != "" {
				width, height, err := parseViewport(viewport)
				if err != nil {
					return err
				}
				cfg.Capture.ViewportWidth = width
				cfg.Capture.ViewportHeight = height
			}

			// Ensure the target has a scheme before it reaches the browser.
			url := args[0]
			if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
				url = "https://" + url
			}

			sessionID := uuid.New().String()
			logger.Info("Starting conversion",
				zap.String("session_id", sessionID),
				zap.String("url", url),
				zap.Int("viewport_width", cfg.Capture.ViewportWidth),
				zap.Int("viewport_height", cfg.Capture.ViewportHeight),
				zap.Bool("full_page", cfg.Capture.FullPage),
			)

			components, err := initializeConvertComponents(ctx, cfg, logger)
			if err != nil {
				if components != nil {
					components.Shutdown(ctx)
				}
				return fmt.Errorf("failed to initialize components: %w", err)
			}
			defer components.Shutdown(ctx)

			return runConvert(ctx, logger, cfg, components, sessionID, url, outputPath, cmd.OutOrStdout())
		},
	}

	convertCmd.Flags().StringVarP(&outputPath, "output", "o", "document.json", "Output file path for the document.")
	convertCmd.Flags().StringVar(&viewport, "viewport", "", "Viewport size as WIDTHxHEIGHT. (Overrides config)")
	convertCmd.Flags().Bool("full-page", false, "Capture the full scrollable page instead of the viewport. (Overrides config)")
	convertCmd.Flags().Duration("timeout", 0, "Navigation timeout. (Overrides config)")
	convertCmd.Flags().String("compress", "", "Output encoding: none, gzip or brotli. (Overrides config)")
	convertCmd.Flags().Bool("aggressive", false, "Use aggressive size reduction when over the target. (Overrides config)")

	return convertCmd
}

// parseViewport splits a WIDTHxHEIGHT flag value.
func parseViewport(s string) (int, int, error) {
	w, h, ok := strings.Cut(strings.ToLower(s), "x")
	if !ok {
		return 0, 0, fmt.Errorf("invalid viewport %q, expected WIDTHxHEIGHT", s)
	}
	width, err := strconv.Atoi(strings.TrimSpace(w))
	if err != nil || width <= 0 {
		return 0, 0, fmt.Errorf("invalid viewport width %q", w)
	}
	height, err := strconv.Atoi(strings.TrimSpace(h))
	if err != nil || height <= 0 {
		return 0, 0, fmt.Errorf("invalid viewport height %q", h)
	}
	return width, height, nil
}

// pathForCompression appends the conventional extension for the selected
// encoding so a later read can sniff it back.
func pathForCompression(path, compression string) string {
	switch compression {
	case payload.CompressionGzip:
		if !strings.HasSuffix(path, ".gz") {
			return path + ".gz"
		}
	case payload.CompressionBrotli:
		if !strings.HasSuffix(path, ".br") {
			return path + ".br"
		}
	}
	return path
}

// convertComponents holds the initialized services for one conversion.
type convertComponents struct {
	Browser   *capture.Browser
	Collector *capture.Collector
	Intake    *assets.Intake
	Pipeline  *extract.Pipeline
	Store     *store.Store
	DBPool    *pgxpool.Pool
}

// Shutdown gracefully closes all components.
func (cc *convertComponents) Shutdown(ctx context.Context) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if cc.Browser != nil {
		if err := cc.Browser.Close(shutdownCtx); err != nil {
			observability.GetLogger().Warn("Error during browser shutdown", zap.Error(err))
		}
	}
	if cc.DBPool != nil {
		cc.DBPool.Close()
	}
}

// initializeConvertComponents handles dependency injection for a conversion.
func initializeConvertComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*convertComponents, error) {
	components := &convertComponents{}

	// History persistence is optional and only wired when configured.
	if cfg.Database.URL != "" {
		dbPool, err := pgxpool.New(ctx, cfg.Database.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		components.DBPool = dbPool

		dbStore, err := store.New(ctx, dbPool, logger)
		if err != nil {
			return components, fmt.Errorf("failed to initialize history store: %w", err)
		}
		if err := dbStore.EnsureSchema(ctx); err != nil {
			return components, fmt.Errorf("failed to prepare history schema: %w", err)
		}
		components.Store = dbStore
	}

	browser, err := capture.NewBrowser(ctx, cfg.Capture, logger)
	if err != nil {
		return components, fmt.Errorf("failed to launch browser: %w", err)
	}
	components.Browser = browser
	components.Collector = capture.NewCollector(cfg.Capture, logger, capture.NewCDPExecutor())
	components.Intake = assets.NewIntake(cfg.Assets, logger)

	pipeline, err := extract.New(cfg, logger)
	if err != nil {
		return components, fmt.Errorf("failed to initialize extraction pipeline: %w", err)
	}
	components.Pipeline = pipeline

	return components, nil
}

// runConvert contains the core conversion flow: capture, asset intake,
// extraction, assembly, budget compression and emission.
func runConvert(ctx context.Context, logger *zap.Logger, cfg *config.Config, components *convertComponents, sessionID, url, outputPath string, out io.Writer) error {
	start := time.Now()

	captureRes, err := components.Collector.Capture(components.Browser.Context(), url)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Warn("Conversion aborted", zap.String("session_id", sessionID))
			return fmt.Errorf("conversion aborted by user signal")
		}
		return fmt.Errorf("capture failed: %w", err)
	}

	intakeRes, err := components.Intake.Collect(ctx, captureRes.Elements)
	if err != nil {
		return fmt.Errorf("asset collection failed: %w", err)
	}

	extractRes, err := components.Pipeline.Run(ctx, captureRes, extract.AssetRefs{
		Images: intakeRes.ImageRefs,
		SVGs:   intakeRes.SVGRefs,
	})
	if err != nil {
		return fmt.Errorf("extraction failed: %w", err)
	}

	doc := payload.BuildDocument(captureRes, extractRes, intakeRes)
	// Aggressive compression may strip the summary from the document, so
	// take the copy the history row needs first.
	summary := *doc.ExtractionSummary

	compressor := payload.NewCompressor(logger)
	report, err := compressor.Compress(doc, payload.Options{
		TargetSizeMB: cfg.Output.TargetSizeMB,
		Aggressive:   cfg.Output.Aggressive,
	})
	if err != nil {
		return fmt.Errorf("compression failed: %w", err)
	}

	outputPath = pathForCompression(outputPath, cfg.Output.Compression)
	rawSize, err := payload.WriteFile(outputPath, doc, cfg.Output.Compression)
	if err != nil {
		return fmt.Errorf("failed to write document: %w", err)
	}

	durationMS := time.Since(start).Milliseconds()
	logger.Info("Conversion complete",
		zap.String("session_id", sessionID),
		zap.String("output", outputPath),
		zap.Int("elements", summary.ElementCount),
		zap.Int("raw_bytes", rawSize),
		zap.Float64("document_mb", report.FinalMB),
		zap.Int64("duration_ms", durationMS),
	)

	if components.Store != nil {
		sess := &store.Session{
			ID:               sessionID,
			URL:              url,
			Title:            captureRes.Title,
			ElementCount:     summary.ElementCount,
			SkippedCount:     summary.SkippedCount,
			AveragePrecision: summary.AveragePrecision,
			DurationMS:       durationMS,
			DocumentMB:       report.FinalMB,
		}
		// History is best effort; a failed insert never fails the run.
		if err := components.Store.SaveSession(ctx, sess); err != nil {
			logger.Warn("Failed to record session history", zap.Error(err))
		}
	}

	fmt.Fprintf(out, "\nConversion complete. Session ID: %s\n", sessionID)
	fmt.Fprintf(out, "Document: %s (%d elements, %.2f MB)\n", outputPath, summary.ElementCount, report.FinalMB)
	if len(summary.Warnings) > 0 {
		fmt.Fprintf(out, "Warnings: %d\n", len(summary.Warnings))
	}
	return nil
}
