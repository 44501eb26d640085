package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/wiretrace/wiretrace/internal/reader"
)

var readCmd = &cobra.Command{
	Use:   "read <recording-file>",
	Short: "Decode a recording and print one JSON document per message",
	Long: `Read decodes every frame of a traffic recording and prints the playback
document for each recorded message as canonical extended JSON, one per
line, in recording order. The opType field carries the command name of
OP_MSG messages; every other opcode is tagged "legacy".

Examples:
  # Dump a recording
  wiretrace read traffic.bin

  # Count recorded messages
  wiretrace read traffic.bin | wc -l`,
	Args: cobra.ExactArgs(1),
	RunE: runRead,
}

func init() { //nolint:gochecknoinits
	rootCmd.AddCommand(readCmd)
}

func runRead(cmd *cobra.Command, args []string) error {
	docs, err := reader.ReadDocuments(args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, doc := range docs {
		line, err := bson.MarshalExtJSON(doc, true, false)
		if err != nil {
			return fmt.Errorf("failed to render document: %w", err)
		}
		fmt.Fprintf(out, "%s\n", line)
	}

	return nil
}
