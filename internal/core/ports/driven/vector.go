package driven

import (
	"context"

	"github.com/juristec/legisrag/internal/core/domain"
)

// VectorStore persists documents with their chunks and performs
// similarity search over stored embeddings.
type VectorStore interface {
	// GetDocumentByHash returns the document with the given content hash,
	// or domain.ErrNotFound when no document matches.
	GetDocumentByHash(ctx context.Context, fileHash string) (*domain.Document, error)

	// InsertDocumentWithChunks atomically persists a document and all of
	// its chunks. On success doc.ID is populated and every chunk carries
	// the new document ID. A hash collision with an existing document
	// returns *domain.DuplicateDocumentError and persists nothing.
	InsertDocumentWithChunks(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) error

	// Search returns up to limit chunks with similarity >= minSimilarity,
	// ordered by descending similarity. A nil filter matches everything.
	Search(ctx context.Context, embedding []float32, limit int, minSimilarity float64, filter *SearchFilter) ([]SearchHit, error)

	// ListDocuments returns all stored documents ordered by creation time.
	ListDocuments(ctx context.Context) ([]domain.Document, error)

	// DeleteDocument removes a document and all of its chunks.
	DeleteDocument(ctx context.Context, id int64) error

	// DeleteAll removes every document and chunk. Used by reindex.
	DeleteAll(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// SearchHit is a chunk returned by similarity search.
type SearchHit struct {
	Chunk domain.Chunk

	// Similarity is the cosine similarity score (0-1).
	Similarity float64
}

// FieldMatch is one metadata field/value pair inside a filter's Any group.
type FieldMatch struct {
	Field string
	Value any
}

// SearchFilter restricts similarity search to chunks matching structured
// conditions. All populated clauses must hold; within Any, one match
// suffices.
type SearchFilter struct {
	// DocumentID limits results to a single document when non-zero.
	DocumentID int64

	// Equals requires each named metadata field to equal the given value.
	Equals map[string]any

	// Present requires each named metadata field to be non-empty.
	Present []string

	// Any requires at least one of the listed field/value pairs to match.
	Any []FieldMatch
}

// Matches reports whether chunk metadata satisfies the filter. Backends
// without native metadata predicates evaluate this in process.
func (f *SearchFilter) Matches(meta domain.ChunkMetadata) bool {
	if f == nil {
		return true
	}
	for field, want := range f.Equals {
		got, ok := meta.Field(field)
		if !ok || got != want {
			return false
		}
	}
	for _, field := range f.Present {
		got, ok := meta.Field(field)
		if !ok {
			return false
		}
		if s, isStr := got.(string); isStr && s == "" {
			return false
		}
		if b, isBool := got.(bool); isBool && !b {
			return false
		}
	}
	if len(f.Any) > 0 {
		matched := false
		for _, fm := range f.Any {
			if got, ok := meta.Field(fm.Field); ok && got == fm.Value {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}
