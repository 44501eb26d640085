// Package cmd implements the wiretrace Cobra command tree.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version, Commit, and Date are set at build time via -ldflags.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "wiretrace",
	Short: "Offline tooling for traffic recording files",
	Long: `wiretrace - Offline tooling for traffic recording files

Decode, convert, and verify the binary traffic logs produced by the
server's traffic recorder.

Examples:
  # Print every recorded message as a JSON document
  wiretrace read traffic.bin

  # Produce the playback file consumed by the replay tooling
  wiretrace stream --input traffic.bin --output playback.bson

  # Check a recording against the format's invariants
  wiretrace verify traffic.bin --json`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() { //nolint:gochecknoinits
	rootCmd.SetVersionTemplate(fmt.Sprintf("wiretrace version {{.Version}} (commit: %s, built: %s)\n", Commit, Date))
}
