package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/juristec/legisrag/internal/core/domain"
)

var ingestName string

var ingestCmd = &cobra.Command{
	Use:   "ingest [file]",
	Short: "Index a legal document",
	Long: `Parses, chunks, embeds and stores one document (.docx or .pdf).
Re-ingesting a file whose content is already indexed is a no-op.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestName, "name", "", "document name (default: file basename)")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.checkEmbedder(cmd.Context()); err != nil {
		return err
	}

	doc, err := a.Ingest.IngestFile(cmd.Context(), args[0], ingestName)
	if err != nil {
		var dup *domain.DuplicateDocumentError
		if errors.As(err, &dup) {
			cmd.Printf("Already indexed as %q (id %d), skipping.\n", dup.ExistingName, dup.ExistingID)
			return nil
		}
		return fmt.Errorf("ingest failed: %w", err)
	}

	cmd.Printf("Indexed %q: %d chunks, %d tokens (id %d)\n",
		doc.Name, doc.ChunkCount, doc.TokenCount, doc.ID)
	return nil
}
