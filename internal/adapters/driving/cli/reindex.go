package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var reindexCmd = &cobra.Command{
	Use:   "reindex [dir]",
	Short: "Rebuild the index from a directory",
	Long: `Deletes every indexed document and re-ingests all supported files
found under the given directory. Files that fail to parse are skipped
and reported at the end.`,
	Args: cobra.ExactArgs(1),
	RunE: runReindex,
}

func init() {
	rootCmd.AddCommand(reindexCmd)
}

func runReindex(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.checkEmbedder(cmd.Context()); err != nil {
		return err
	}

	cmd.Printf("Rebuilding index from %s...\n", args[0])
	result, err := a.Ingest.Reindex(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("reindex failed: %w", err)
	}

	cmd.Printf("Indexed %d documents (%d chunks) in %s.\n",
		result.DocumentsCount, result.ChunksCount, result.Duration.Round(time.Millisecond))
	if len(result.FailedFiles) > 0 {
		cmd.Printf("Skipped %d files:\n", len(result.FailedFiles))
		for _, f := range result.FailedFiles {
			cmd.Printf("  %s\n", f)
		}
	}
	return nil
}
