package domain

// RetrievalMeta is the diagnostic bag attached to every query result.
type RetrievalMeta struct {
	// TraceID identifies one query execution in logs.
	TraceID string `json:"trace_id"`

	// NormalizedQuery is the query after Portuguese normalization.
	NormalizedQuery string `json:"normalized_query"`

	// RerankApplied reports whether hybrid reranking ran.
	RerankApplied bool `json:"rerank_applied"`

	// FallbackApplied reports whether the adaptive threshold retry fired.
	FallbackApplied bool `json:"fallback_applied"`

	// EffectiveMinSimilarity is the threshold the final search used.
	EffectiveMinSimilarity float64 `json:"effective_min_similarity"`

	// CandidateCount is the number of candidates fetched before rerank.
	CandidateCount int `json:"candidate_count"`

	// SearchFailed marks a degraded result where retrieval errored and
	// the caller should answer without context.
	SearchFailed bool `json:"search_failed,omitempty"`
}

// RAGContext is the ephemeral result of one query. It is never persisted.
// ChunksUsed, Similarities and Sources are parallel slices in relevance
// order; Validate enforces the length invariant.
type RAGContext struct {
	ChunksUsed   []Chunk       `json:"chunks_used"`
	Similarities []float64     `json:"similarities"`
	Confidence   Confidence    `json:"confidence"`
	Sources      []string      `json:"sources"`
	Meta         RetrievalMeta `json:"retrieval_meta"`
}

// Validate checks the parallel-slice invariant. A mismatch is a
// programming bug and is surfaced as a ValidationError.
func (c *RAGContext) Validate() error {
	if len(c.ChunksUsed) != len(c.Similarities) || len(c.ChunksUsed) != len(c.Sources) {
		return &ValidationError{
			Msg: "rag context slice lengths diverge",
			Details: map[string]int{
				"chunks":       len(c.ChunksUsed),
				"similarities": len(c.Similarities),
				"sources":      len(c.Sources),
			},
		}
	}
	return nil
}
