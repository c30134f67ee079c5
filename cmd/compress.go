// File: cmd/compress.go
package cmd

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/stickerverse/figmaconvert/internal/config"
	"github.com/stickerverse/figmaconvert/internal/observability"
	"github.com/stickerverse/figmaconvert/internal/payload"
)

// newCompressCmd creates and configures the `compress` command.
func newCompressCmd() *cobra.Command {
	compressCmd := &cobra.Command{
		Use:   "compress <input> <output>",
		Short: "Shrink an existing document to fit the size target",
		Long: `Compress re-runs the size compressor over a document produced earlier.
The output encoding follows the output extension: .gz writes gzip, .br
writes brotli, anything else plain JSON.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := observability.GetLogger()
			cfg, err := getConfigFromContext(cmd.Context())
			if err != nil {
				return err
			}
			return runCompress(logger, cfg, args[0], args[1], cmd.OutOrStdout())
		},
	}

	compressCmd.Flags().Bool("aggressive", false, "Allow lossy reductions to reach the size target (Overrides config)")
	compressCmd.Flags().Float64("target-size", 0, "Target document size in MB (Overrides config)")
	return compressCmd
}

// runCompress contains the core, testable logic for the compress command.
func runCompress(logger *zap.Logger, cfg *config.Config, inputPath, outputPath string, out io.Writer) error {
	doc, err := payload.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("failed to read document: %w", err)
	}

	compressor := payload.NewCompressor(logger)
	report, err := compressor.Compress(doc, payload.Options{
		TargetSizeMB: cfg.Output.TargetSizeMB,
		Aggressive:   cfg.Output.Aggressive,
	})
	if err != nil {
		return fmt.Errorf("compression failed: %w", err)
	}

	compression := compressionForPath(outputPath)
	if _, err := payload.WriteFile(outputPath, doc, compression); err != nil {
		return fmt.Errorf("failed to write document: %w", err)
	}

	logger.Info("Compression complete",
		zap.String("input", inputPath),
		zap.String("output", outputPath),
		zap.String("encoding", compression),
		zap.Float64("original_mb", report.OriginalMB),
		zap.Float64("final_mb", report.FinalMB),
		zap.Bool("aggressive", report.Aggressive),
	)

	if !report.Compressed {
		fmt.Fprintf(out, "Document already under target (%.2f MB); written unchanged to %s\n", report.OriginalMB, outputPath)
		return nil
	}
	fmt.Fprintf(out, "Compressed %.2f MB -> %.2f MB (%s)\n", report.OriginalMB, report.FinalMB, outputPath)
	if report.Aggressive {
		fmt.Fprintf(out, "Aggressive pass: removed %d images, %d SVGs, %d tokens; truncated %d nodes\n",
			report.RemovedImages, report.RemovedSVGs, report.DroppedTokens, report.TruncatedNodes)
	}
	return nil
}

// compressionForPath maps an output extension to the matching encoding.
func compressionForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz":
		return payload.CompressionGzip
	case ".br":
		return payload.CompressionBrotli
	default:
		return payload.CompressionNone
	}
}
