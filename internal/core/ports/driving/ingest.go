package driving

import (
	"context"
	"time"

	"github.com/juristec/legisrag/internal/core/domain"
)

// IngestService loads source documents into the vector store.
type IngestService interface {
	// IngestFile parses, chunks, embeds and persists one document under
	// the given name; an empty name derives it from the file basename.
	// A file whose content hash is already stored returns
	// *domain.DuplicateDocumentError without touching the store.
	IngestFile(ctx context.Context, path, name string) (*domain.Document, error)

	// Reindex wipes the store and re-ingests every supported file found
	// under dir. Per-file failures are logged and skipped; the result
	// reports what survived.
	Reindex(ctx context.Context, dir string) (*ReindexResult, error)

	// ListDocuments returns all indexed documents.
	ListDocuments(ctx context.Context) ([]domain.Document, error)

	// DeleteDocument removes one document and its chunks.
	DeleteDocument(ctx context.Context, id int64) error
}

// ReindexResult summarises a full reindex run.
type ReindexResult struct {
	DocumentsCount int
	ChunksCount    int
	FailedFiles    []string
	Duration       time.Duration
}
