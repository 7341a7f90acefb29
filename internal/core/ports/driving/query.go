package driving

import (
	"context"

	"github.com/juristec/legisrag/internal/core/domain"
)

// QueryService retrieves grounded context for a natural-language question.
type QueryService interface {
	// Query runs the full retrieval pipeline: embed, over-fetched vector
	// search with one adaptive fallback, optional hybrid rerank,
	// truncation to top-k, confidence scoring and citation building.
	// Zero candidates yield a SEM_RAG context, not an error; embedding or
	// vector store failures propagate as *domain.QueryError so the caller
	// can answer without context.
	Query(ctx context.Context, question string, opts QueryOptions) (*domain.RAGContext, error)

	// QueryByTipo runs Query restricted to a content category:
	// "artigo", "jurisprudencia", "questao", "nota" or "todos".
	// An unknown tipo returns domain.ErrInvalidInput.
	QueryByTipo(ctx context.Context, question, tipo string, opts QueryOptions) (*domain.RAGContext, error)
}

// QueryOptions overrides per-call retrieval knobs. Zero values fall back
// to the configured settings.
type QueryOptions struct {
	TopK          int
	MinSimilarity float64

	// DocumentID restricts the search to one document when non-zero.
	DocumentID int64
}
