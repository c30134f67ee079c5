// File: cmd/verify.go
package cmd

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/stickerverse/figmaconvert/api/schemas"
	"github.com/stickerverse/figmaconvert/internal/config"
	"github.com/stickerverse/figmaconvert/internal/geometry"
	"github.com/stickerverse/figmaconvert/internal/observability"
	"github.com/stickerverse/figmaconvert/internal/payload"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// maxListedOffenders caps the human-readable offender listing; the full set
// still lands in the JSON report.
const maxListedOffenders = 10

// verifyParams bundles the resolved inputs for a verification run.
type verifyParams struct {
	ExpectedPath string
	ActualPath   string
	Tolerance    float64
	OutputPath   string
}

// newVerifyCmd creates and configures the `verify` command.
func newVerifyCmd(provider storeProvider) *cobra.Command {
	var (
		expectedPath string
		actualPath   string
		tolerance    float64
		outputPath   string
	)

	verifyCmd := &cobra.Command{
		Use:   "verify",
		Short: "Compare produced element positions against expected positions",
		Long: `Verify compares two sets of element positions pairwise by element ID and
reports every element whose Euclidean deviation exceeds the tolerance.
Either input may be a bare JSON array of {id, x, y} records or a full
conversion document, whose node tree is flattened to absolute positions.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}

			tol := cfg.Geometry.VerifyTolerance
			if cmd.Flags().Changed("tolerance") {
				tol = tolerance
			}

			return runVerify(ctx, logger, cfg, provider, verifyParams{
				ExpectedPath: expectedPath,
				ActualPath:   actualPath,
				Tolerance:    tol,
				OutputPath:   outputPath,
			}, cmd.OutOrStdout())
		},
	}

	verifyCmd.Flags().StringVar(&expectedPath, "expected", "", "Path to the expected positions (JSON array or document)")
	verifyCmd.Flags().StringVar(&actualPath, "actual", "", "Path to the produced positions (JSON array or document)")
	verifyCmd.Flags().Float64Var(&tolerance, "tolerance", 0, "Maximum allowed deviation in pixels (Overrides config)")
	verifyCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write the full deviation report as JSON to this path")
	_ = verifyCmd.MarkFlagRequired("expected")
	_ = verifyCmd.MarkFlagRequired("actual")

	return verifyCmd
}

// runVerify contains the core, testable logic for the verify command. It
// returns a non-nil error when any element lands outside tolerance, so the
// process exits non-zero for CI consumers.
func runVerify(ctx context.Context, logger *zap.Logger, cfg *config.Config, provider storeProvider, params verifyParams, out io.Writer) error {
	expected, err := readPositions(params.ExpectedPath)
	if err != nil {
		return fmt.Errorf("failed to read expected positions: %w", err)
	}
	actual, err := readPositions(params.ActualPath)
	if err != nil {
		return fmt.Errorf("failed to read produced positions: %w", err)
	}

	report := geometry.VerifyBatch(expected, actual, params.Tolerance)
	logger.Info("Verification finished",
		zap.Int("checked", report.WithinTolerance+report.OutsideTolerance),
		zap.Int("within_tolerance", report.WithinTolerance),
		zap.Int("outside_tolerance", report.OutsideTolerance),
		zap.Float64("tolerance", report.Tolerance),
	)

	printVerifySummary(out, report)

	if params.OutputPath != "" {
		if err := writeVerifyReport(params.OutputPath, report); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
		fmt.Fprintf(out, "Report written to %s\n", params.OutputPath)
	}

	if cfg.Database.URL != "" {
		persistVerification(ctx, logger, cfg, provider, report)
	}

	if !report.Clean() {
		return fmt.Errorf("verification failed: %d of %d elements outside tolerance",
			report.OutsideTolerance, report.WithinTolerance+report.OutsideTolerance)
	}
	return nil
}

// readPositions loads position records from a file holding either a bare
// JSON array of records or a full conversion document, in which case the
// node tree is flattened.
func readPositions(path string) ([]geometry.PositionRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var records []geometry.PositionRecord
	if err := json.Unmarshal(data, &records); err == nil {
		return records, nil
	}

	doc, err := payload.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%s holds neither a position array nor a document: %w", path, err)
	}
	return flattenPositions(doc.Tree), nil
}

// flattenPositions walks the node tree depth first, emitting one record per
// node with the absolute top-left corner of its bounds.
func flattenPositions(root *schemas.Node) []geometry.PositionRecord {
	var records []geometry.PositionRecord
	var walk func(n *schemas.Node)
	walk = func(n *schemas.Node) {
		if n == nil {
			return
		}
		records = append(records, geometry.PositionRecord{ID: n.ID, X: n.Bounds.X, Y: n.Bounds.Y})
		for _, child := range n.Children {
			walk(child)
		}
	}
	walk(root)
	return records
}

func printVerifySummary(out io.Writer, report *geometry.DeviationReport) {
	checked := report.WithinTolerance + report.OutsideTolerance
	fmt.Fprintf(out, "Checked %d elements against a %.2fpx tolerance.\n", checked, report.Tolerance)
	fmt.Fprintf(out, "  within:  %d\n", report.WithinTolerance)
	fmt.Fprintf(out, "  outside: %d\n", report.OutsideTolerance)
	if report.OutsideTolerance > 0 {
		if math.IsInf(report.MaxDeviation, 1) {
			fmt.Fprintln(out, "  max deviation: missing element")
		} else {
			fmt.Fprintf(out, "  max deviation: %.3fpx\n", report.MaxDeviation)
		}
		fmt.Fprintf(out, "  average deviation: %.3fpx\n", report.AverageDeviation)
		fmt.Fprintln(out, "Worst offenders:")
		for i, off := range report.Offenders {
			if i == maxListedOffenders {
				fmt.Fprintf(out, "  ... and %d more\n", len(report.Offenders)-maxListedOffenders)
				break
			}
			if off.Missing {
				fmt.Fprintf(out, "  %-32s missing\n", off.ID)
				continue
			}
			fmt.Fprintf(out, "  %-32s %.3fpx\n", off.ID, off.Deviation)
		}
	}
}

// reportView mirrors DeviationReport for JSON output. Missing elements carry
// a +Inf deviation the encoder rejects, so they become a missing flag with
// the numeric deviation omitted.
type reportView struct {
	Tolerance        float64         `json:"tolerance"`
	Checked          int             `json:"checked"`
	WithinTolerance  int             `json:"withinTolerance"`
	OutsideTolerance int             `json:"outsideTolerance"`
	Clean            bool            `json:"clean"`
	MaxDeviation     *float64        `json:"maxDeviation,omitempty"`
	AverageDeviation float64         `json:"averageDeviation"`
	Offenders        []deviationView `json:"offenders,omitempty"`
}

type deviationView struct {
	ID        string  `json:"id"`
	Deviation float64 `json:"deviation,omitempty"`
	Missing   bool    `json:"missing,omitempty"`
}

func writeVerifyReport(path string, report *geometry.DeviationReport) error {
	view := reportView{
		Tolerance:        report.Tolerance,
		Checked:          report.WithinTolerance + report.OutsideTolerance,
		WithinTolerance:  report.WithinTolerance,
		OutsideTolerance: report.OutsideTolerance,
		Clean:            report.Clean(),
		AverageDeviation: report.AverageDeviation,
	}
	if !math.IsInf(report.MaxDeviation, 1) {
		max := report.MaxDeviation
		view.MaxDeviation = &max
	}
	for _, off := range report.Offenders {
		dv := deviationView{ID: off.ID}
		if off.Missing {
			dv.Missing = true
		} else {
			dv.Deviation = off.Deviation
		}
		view.Offenders = append(view.Offenders, dv)
	}

	data, err := json.MarshalIndent(view, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// persistVerification records the run in the history store. Failures are
// logged and swallowed; history is best effort and never fails the
// verification itself.
func persistVerification(ctx context.Context, logger *zap.Logger, cfg *config.Config, provider storeProvider, report *geometry.DeviationReport) {
	storeService, cleanup, err := provider.Create(ctx, cfg)
	if err != nil {
		logger.Warn("Skipping verification history", zap.Error(err))
		return
	}
	if cleanup != nil {
		defer cleanup()
	}

	runID := uuid.New().String()
	if err := storeService.SaveVerification(ctx, runID, report); err != nil {
		logger.Warn("Failed to record verification run", zap.String("run_id", runID), zap.Error(err))
		return
	}
	logger.Info("Verification run recorded", zap.String("run_id", runID))
}
