package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/juristec/legisrag/internal/core/domain"
	"github.com/juristec/legisrag/internal/core/ports/driven"
	"github.com/juristec/legisrag/internal/core/ports/driving"
	"github.com/juristec/legisrag/internal/logger"
	"github.com/juristec/legisrag/internal/metadata"
	"github.com/juristec/legisrag/internal/textnorm"
)

// Ensure QueryService implements the interface.
var _ driving.QueryService = (*QueryService)(nil)

// QueryService runs the retrieval pipeline: embed, over-fetched vector
// search with one adaptive threshold fallback, optional hybrid rerank,
// confidence scoring and citation formatting.
type QueryService struct {
	store     driven.VectorStore
	embedder  driven.EmbeddingService
	extractor *metadata.Extractor
	settings  domain.Settings
}

// NewQueryService creates the query service.
func NewQueryService(
	store driven.VectorStore,
	embedder driven.EmbeddingService,
	settings domain.Settings,
) *QueryService {
	return &QueryService{
		store:     store,
		embedder:  embedder,
		extractor: metadata.New(),
		settings:  settings,
	}
}

// Query retrieves grounded context for a question. Embedding or vector
// store failures propagate as *domain.QueryError so callers can degrade
// to answering without context.
func (s *QueryService) Query(ctx context.Context, question string, opts driving.QueryOptions) (*domain.RAGContext, error) {
	return s.run(ctx, question, opts, nil, false)
}

// QueryByTipo restricts Query to one content category.
func (s *QueryService) QueryByTipo(ctx context.Context, question, tipo string, opts driving.QueryOptions) (*domain.RAGContext, error) {
	switch tipo {
	case "todos", "":
		return s.run(ctx, question, opts, nil, false)
	case "artigo":
		return s.run(ctx, question, opts, &driven.SearchFilter{Present: []string{"artigo"}}, false)
	case "jurisprudencia":
		return s.run(ctx, question, opts, &driven.SearchFilter{
			Any: []driven.FieldMatch{
				{Field: "marca_stf", Value: true},
				{Field: "marca_stj", Value: true},
			},
		}, false)
	case "questao":
		return s.run(ctx, question, opts, &driven.SearchFilter{Present: []string{"banca"}}, false)
	case "nota":
		// Notes have no structural marker; short chunks are selected
		// after retrieval instead.
		return s.run(ctx, question, opts, nil, true)
	default:
		return nil, fmt.Errorf("%w: unknown tipo %q", domain.ErrInvalidInput, tipo)
	}
}

func (s *QueryService) run(ctx context.Context, question string, opts driving.QueryOptions, filter *driven.SearchFilter, notaOnly bool) (*domain.RAGContext, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("%w: empty question", domain.ErrInvalidInput)
	}

	topK := s.settings.TopK
	if opts.TopK > 0 {
		topK = opts.TopK
	}
	minSim := s.settings.MinSimilarity
	if opts.MinSimilarity > 0 {
		minSim = opts.MinSimilarity
	}
	if opts.DocumentID != 0 {
		if filter == nil {
			filter = &driven.SearchFilter{}
		}
		filter.DocumentID = opts.DocumentID
	}

	meta := domain.RetrievalMeta{
		TraceID:                uuid.New().String(),
		NormalizedQuery:        textnorm.NormalizeQuery(question),
		EffectiveMinSimilarity: minSim,
	}
	logger.Section("Query")
	logger.Debug("Trace: %s", meta.TraceID)
	logger.Debug("Normalized: %s", meta.NormalizedQuery)

	embedding, err := s.embedder.Embed(ctx, question)
	if err != nil {
		logger.Error("Query embedding failed: %v", err)
		return nil, &domain.QueryError{Stage: "embed", Err: err}
	}

	// Over-fetch so the reranker has real candidates to reorder, and so
	// post-retrieval filters do not starve the result.
	limit := clampCandidates(topK, s.settings)
	if notaOnly {
		limit *= 2
	}

	hits, err := s.store.Search(ctx, embedding, limit, minSim, filter)
	if err != nil {
		logger.Error("Vector search failed: %v", err)
		return nil, &domain.QueryError{Stage: "search", Err: err}
	}

	// One adaptive retry at a relaxed threshold when the first search
	// comes up short of the desired count.
	if len(hits) < topK && minSim > s.settings.FallbackFloor {
		relaxed := minSim - s.settings.FallbackDelta
		if relaxed < s.settings.FallbackFloor {
			relaxed = s.settings.FallbackFloor
		}
		logger.Debug("%d of %d hits at %.2f, retrying at %.2f", len(hits), topK, minSim, relaxed)

		hits, err = s.store.Search(ctx, embedding, limit, relaxed, filter)
		if err != nil {
			logger.Error("Fallback search failed: %v", err)
			return nil, &domain.QueryError{Stage: "search", Err: err}
		}
		meta.FallbackApplied = true
		meta.EffectiveMinSimilarity = relaxed
	}
	meta.CandidateCount = len(hits)

	if notaOnly {
		hits = keepShort(hits, s.settings.NotaMaxTokens)
	}

	if s.settings.HybridRerank && len(hits) > 0 {
		sig := extractQuerySignals(question, meta.NormalizedQuery, s.extractor)
		hits = rerank(hits, sig, s.settings)
		meta.RerankApplied = true
	}

	if len(hits) > topK {
		hits = hits[:topK]
	}

	result := &domain.RAGContext{
		ChunksUsed:   make([]domain.Chunk, len(hits)),
		Similarities: make([]float64, len(hits)),
		Sources:      make([]string, len(hits)),
		Meta:         meta,
	}
	for i, hit := range hits {
		result.ChunksUsed[i] = hit.Chunk
		result.Similarities[i] = hit.Similarity
		result.Sources[i] = formatCitation(hit.Chunk.Metadata)
	}
	result.Confidence = computeConfidence(result.Similarities, s.settings)

	if err := result.Validate(); err != nil {
		return nil, err
	}
	logger.Info("Query done: %d chunks, confidence %s", len(hits), result.Confidence)
	return result, nil
}

// clampCandidates sizes the over-fetch window: topK times the multiplier,
// clamped to [CandidateMin, CandidateCap] but never below topK itself.
func clampCandidates(topK int, s domain.Settings) int {
	n := topK * s.CandidateMultiplier
	if n < s.CandidateMin {
		n = s.CandidateMin
	}
	if n > s.CandidateCap {
		n = s.CandidateCap
	}
	if n < topK {
		n = topK
	}
	return n
}

// keepShort drops candidates above the note token budget, preserving order.
func keepShort(hits []driven.SearchHit, maxTokens int) []driven.SearchHit {
	out := hits[:0]
	for _, hit := range hits {
		if hit.Chunk.TokenCount <= maxTokens {
			out = append(out, hit)
		}
	}
	return out
}

// formatCitation renders a human-readable source line from the fields
// present in the chunk metadata. Absent fields are omitted.
func formatCitation(meta domain.ChunkMetadata) string {
	parts := make([]string, 0, 7)
	if meta.Documento != "" {
		parts = append(parts, meta.Documento)
	}
	if meta.Artigo != "" {
		parts = append(parts, "Art. "+meta.Artigo)
	}
	if meta.Paragrafo != "" {
		parts = append(parts, "§ "+meta.Paragrafo)
	}
	if meta.Inciso != "" {
		parts = append(parts, "Inciso "+meta.Inciso)
	}
	switch {
	case meta.Titulo != "":
		parts = append(parts, meta.Titulo)
	case meta.Capitulo != "":
		parts = append(parts, meta.Capitulo)
	}
	if meta.Banca != "" {
		parts = append(parts, meta.Banca)
	}
	if meta.Ano != "" {
		parts = append(parts, meta.Ano)
	}
	return strings.Join(parts, ", ")
}
