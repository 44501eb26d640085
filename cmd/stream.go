package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/wiretrace/wiretrace/internal/reader"
)

var (
	streamInput  string
	streamOutput string
)

var streamCmd = &cobra.Command{
	Use:   "stream",
	Short: "Convert a recording into the playback file format",
	Long: `Stream converts a traffic recording into the raw BSON playback file
expected by the replay tooling: one version header document, then one
document per recorded message in recording order.

Examples:
  # Convert a recording to a playback file
  wiretrace stream --input traffic.bin --output playback.bson

  # Use stdin and stdout
  wiretrace stream < traffic.bin > playback.bson`,
	Args: cobra.NoArgs,
	RunE: runStream,
}

func init() { //nolint:gochecknoinits
	rootCmd.AddCommand(streamCmd)

	streamCmd.Flags().StringVarP(&streamInput, "input", "i", "-", "recording file to read, or - for stdin")
	streamCmd.Flags().StringVarP(&streamOutput, "output", "o", "-", "playback file to write, or - for stdout")
}

func runStream(cmd *cobra.Command, args []string) error {
	var in io.Reader = cmd.InOrStdin()
	if streamInput != "-" {
		f, err := os.Open(streamInput) //nolint:gosec // recording path comes from the operator
		if err != nil {
			return fmt.Errorf("failed to open recording file: %w", err)
		}
		defer func() { _ = f.Close() }()
		in = f
	}

	var out io.Writer = cmd.OutOrStdout()
	if streamOutput != "-" {
		f, err := os.Create(streamOutput) //nolint:gosec // output path comes from the operator
		if err != nil {
			return fmt.Errorf("failed to create playback file: %w", err)
		}
		defer func() { _ = f.Close() }()
		out = f
	}

	return reader.Stream(in, out)
}
