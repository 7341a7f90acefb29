package domain

import "fmt"

// Settings holds the externally supplied retrieval knobs. It is built once
// at process start from the config file and passed by value into each
// component's constructor; there is no global settings state.
type Settings struct {
	// EmbeddingModel names the provider model.
	EmbeddingModel string

	// EmbeddingDimensions is the fixed vector size.
	EmbeddingDimensions int

	// TopK is the default number of chunks returned per query.
	TopK int

	// MinSimilarity is the default similarity cutoff for vector search.
	MinSimilarity float64

	// CandidateMultiplier, CandidateMin and CandidateCap control the
	// over-fetch window: multiplier*topK clamped to [min, cap].
	CandidateMultiplier int
	CandidateMin        int
	CandidateCap        int

	// FallbackDelta and FallbackFloor control the single adaptive
	// threshold retry: the lowered threshold is max(min-delta, floor).
	FallbackDelta float64
	FallbackFloor float64

	// HybridRerank enables the semantic+lexical+metadata rerank.
	HybridRerank bool

	// SemanticWeight, LexicalWeight and MetadataWeight are the rerank
	// blend (alpha, beta, gamma).
	SemanticWeight float64
	LexicalWeight  float64
	MetadataWeight float64

	// ConfidenceAlta, ConfidenceMedia and ConfidenceBaixa are the mean
	// similarity thresholds of the confidence ladder.
	ConfidenceAlta  float64
	ConfidenceMedia float64
	ConfidenceBaixa float64

	// MaxTokens, OverlapTokens and MinChunkSize bound the chunker.
	MaxTokens     int
	OverlapTokens int
	MinChunkSize  int

	// MetadataMaxDepth is the deepest heading level captured as
	// hierarchical context (1=titulo, 2=capitulo, 3=secao).
	MetadataMaxDepth int

	// NotaMaxTokens is the chunk size ceiling for tipo="nota" queries.
	NotaMaxTokens int
}

// DefaultSettings returns the reference defaults.
func DefaultSettings() Settings {
	return Settings{
		EmbeddingModel:      "text-embedding-3-small",
		EmbeddingDimensions: 1536,
		TopK:                5,
		MinSimilarity:       0.40,
		CandidateMultiplier: 3,
		CandidateMin:        10,
		CandidateCap:        30,
		FallbackDelta:       0.10,
		FallbackFloor:       0.20,
		HybridRerank:        true,
		SemanticWeight:      0.70,
		LexicalWeight:       0.20,
		MetadataWeight:      0.10,
		ConfidenceAlta:      0.70,
		ConfidenceMedia:     0.55,
		ConfidenceBaixa:     0.40,
		MaxTokens:           500,
		OverlapTokens:       50,
		MinChunkSize:        100,
		MetadataMaxDepth:    3,
		NotaMaxTokens:       120,
	}
}

// Validate rejects malformed numeric settings. Configuration errors are
// fatal at startup and never retried.
func (s Settings) Validate() error {
	if s.EmbeddingModel == "" {
		return fmt.Errorf("%w: embedding model is required", ErrInvalidInput)
	}
	if s.EmbeddingDimensions <= 0 {
		return fmt.Errorf("%w: embedding dimensions must be positive, got %d",
			ErrInvalidInput, s.EmbeddingDimensions)
	}
	if s.TopK <= 0 {
		return fmt.Errorf("%w: top_k must be positive, got %d", ErrInvalidInput, s.TopK)
	}
	if s.MinSimilarity < 0 || s.MinSimilarity > 1 {
		return fmt.Errorf("%w: min_similarity must be in [0,1], got %v",
			ErrInvalidInput, s.MinSimilarity)
	}
	if s.CandidateMin > s.CandidateCap {
		return fmt.Errorf("%w: candidate_min %d exceeds candidate_cap %d",
			ErrInvalidInput, s.CandidateMin, s.CandidateCap)
	}
	if s.FallbackFloor > s.MinSimilarity {
		return fmt.Errorf("%w: fallback_floor %v exceeds min_similarity %v",
			ErrInvalidInput, s.FallbackFloor, s.MinSimilarity)
	}
	if w := s.SemanticWeight + s.LexicalWeight + s.MetadataWeight; s.HybridRerank && w <= 0 {
		return fmt.Errorf("%w: rerank weights sum to %v", ErrInvalidInput, w)
	}
	if !(s.ConfidenceAlta >= s.ConfidenceMedia && s.ConfidenceMedia >= s.ConfidenceBaixa) {
		return fmt.Errorf("%w: confidence thresholds must be non-increasing", ErrInvalidInput)
	}
	if s.MaxTokens <= 0 || s.MinChunkSize < 0 || s.OverlapTokens < 0 {
		return fmt.Errorf("%w: chunker bounds must be non-negative", ErrInvalidInput)
	}
	if s.OverlapTokens >= s.MaxTokens {
		return fmt.Errorf("%w: overlap_tokens %d must be below max_tokens %d",
			ErrInvalidInput, s.OverlapTokens, s.MaxTokens)
	}
	return nil
}
