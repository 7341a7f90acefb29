package cli

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/juristec/legisrag/internal/core/domain"
)

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "Manage indexed documents",
}

var docsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List indexed documents",
	Args:  cobra.NoArgs,
	RunE:  runDocsList,
}

var docsDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a document and its chunks",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocsDelete,
}

func init() {
	docsCmd.AddCommand(docsListCmd)
	docsCmd.AddCommand(docsDeleteCmd)
	rootCmd.AddCommand(docsCmd)
}

func runDocsList(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	docs, err := a.Ingest.ListDocuments(cmd.Context())
	if err != nil {
		return fmt.Errorf("listing documents: %w", err)
	}
	if len(docs) == 0 {
		cmd.Println("No documents indexed.")
		return nil
	}

	for _, doc := range docs {
		cmd.Printf("  [%d] %s — %d chunks, %d tokens (%s)\n",
			doc.ID, doc.Name, doc.ChunkCount, doc.TokenCount,
			doc.CreatedAt.Format("2006-01-02"))
	}
	return nil
}

func runDocsDelete(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid document id %q", args[0])
	}

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Ingest.DeleteDocument(cmd.Context(), id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("document %d not found", id)
		}
		return fmt.Errorf("deleting document: %w", err)
	}
	cmd.Printf("Deleted document %d.\n", id)
	return nil
}
