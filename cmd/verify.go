package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wiretrace/wiretrace/internal/verify"
)

var (
	verifyJSON  bool
	verifyJUnit bool
)

var verifyCmd = &cobra.Command{
	Use:   "verify <recording-file>",
	Short: "Check a recording against the format's invariants",
	Long: `Verify walks every frame of a traffic recording and checks the on-disk
invariants: each frame must decode, order values must form the dense
sequence 1..N, messages must match their self-declared length, and
timestamps must not go backwards.

A failing recording exits nonzero. Structured output is available for
capture pipelines and CI.

Examples:
  # Human-readable summary
  wiretrace verify traffic.bin

  # JSON report
  wiretrace verify traffic.bin --json

  # JUnit XML for CI
  wiretrace verify traffic.bin --junit`,
	Args: cobra.ExactArgs(1),
	RunE: runVerify,
}

func init() { //nolint:gochecknoinits
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().BoolVar(&verifyJSON, "json", false, "emit a JSON report")
	verifyCmd.Flags().BoolVar(&verifyJUnit, "junit", false, "emit a JUnit XML report")
}

func runVerify(cmd *cobra.Command, args []string) error {
	report, err := verify.File(args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch {
	case verifyJSON:
		if err := verify.FormatJSON(out, report); err != nil {
			return err
		}
	case verifyJUnit:
		if err := verify.FormatJUnit(out, report, time.Time{}); err != nil {
			return err
		}
	default:
		color := resolveColor()
		fmt.Fprintf(out, "%s\n", bold(report.File, color))
		fmt.Fprintf(out, "  frames: %d, bytes: %d\n", report.Frames, report.TotalBytes)
		for _, p := range report.Problems {
			if p.Frame > 0 {
				fmt.Fprintf(out, "  %s frame %d [%s]: %s\n", red("FAIL", color), p.Frame, p.Check, p.Detail)
			} else {
				fmt.Fprintf(out, "  %s [%s]: %s\n", red("FAIL", color), p.Check, p.Detail)
			}
		}
		if report.Passed {
			fmt.Fprintf(out, "  %s\n", green("OK", color))
		}
	}

	if !report.Passed {
		return fmt.Errorf("recording failed verification with %d problem(s)", len(report.Problems))
	}
	return nil
}
