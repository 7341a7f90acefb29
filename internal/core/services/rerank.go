package services

import (
	"regexp"
	"sort"

	"github.com/juristec/legisrag/internal/core/domain"
	"github.com/juristec/legisrag/internal/core/ports/driven"
	"github.com/juristec/legisrag/internal/metadata"
	"github.com/juristec/legisrag/internal/textnorm"
)

// Metadata-alignment boosts. An exact article match dominates: a user
// asking for "art. 5" almost always wants the chunk tagged with that
// article, even when a paraphrase scores higher semantically.
const (
	boostArtigo    = 0.8
	boostParagrafo = 0.3
	boostInciso    = 0.3
	boostCourt     = 0.2
	boostBanca     = 0.2
)

// Queries are a single line, so the extractor's line-anchored inciso
// pattern never fires on them. Match the spelled-out form instead.
var queryIncisoRe = regexp.MustCompile(`(?i)\binciso\s+([IVXLCDM]+)\b`)

// querySignals holds the legal-citation signals mentioned in a question,
// matched against candidate chunk metadata during reranking.
type querySignals struct {
	artigo    string
	paragrafo string
	inciso    string
	wantsSTF  bool
	wantsSTJ  bool
	banca     string
	tokens    []string
}

// extractQuerySignals mines the raw question for citation numbers and
// court/exam markers, and tokenizes the normalized form once.
func extractQuerySignals(question, normalized string, extractor *metadata.Extractor) querySignals {
	meta := extractor.Extract(question, metadata.Context{})
	sig := querySignals{
		artigo:    meta.Artigo,
		paragrafo: meta.Paragrafo,
		wantsSTF:  meta.MarcaSTF,
		wantsSTJ:  meta.MarcaSTJ,
		banca:     meta.Banca,
		tokens:    textnorm.Tokenize(normalized),
	}
	if m := queryIncisoRe.FindStringSubmatch(question); m != nil && metadata.RomanToInt(m[1]) > 0 {
		sig.inciso = m[1]
	}
	return sig
}

// rerank blends semantic similarity with lexical overlap and metadata
// alignment, then re-sorts the candidates by the combined score. The
// semantic similarity on each hit is left untouched; only the order
// changes.
func rerank(hits []driven.SearchHit, sig querySignals, s domain.Settings) []driven.SearchHit {
	type scored struct {
		hit   driven.SearchHit
		score float64
	}

	ranked := make([]scored, len(hits))
	for i, hit := range hits {
		lexical := lexicalScore(sig.tokens, hit.Chunk.Text)
		boost := metadataBoost(sig, hit.Chunk.Metadata)
		ranked[i] = scored{
			hit: hit,
			score: s.SemanticWeight*hit.Similarity +
				s.LexicalWeight*lexical +
				s.MetadataWeight*boost,
		}
	}

	sort.SliceStable(ranked, func(a, b int) bool {
		return ranked[a].score > ranked[b].score
	})

	out := make([]driven.SearchHit, len(ranked))
	for i, r := range ranked {
		out[i] = r.hit
	}
	return out
}

// lexicalScore measures keyword overlap between the query tokens and the
// chunk text: the fraction of distinct query tokens present, damped by
// how often they actually occur. Both sides go through the same
// normalizer, so matching is case and diacritic insensitive.
func lexicalScore(queryTokens []string, chunkText string) float64 {
	if len(queryTokens) == 0 {
		return 0
	}

	counts := make(map[string]int)
	for _, tok := range textnorm.Tokenize(chunkText) {
		counts[tok]++
	}

	distinct := make(map[string]struct{}, len(queryTokens))
	for _, tok := range queryTokens {
		distinct[tok] = struct{}{}
	}

	matched := 0
	occurrences := 0
	for tok := range distinct {
		if n := counts[tok]; n > 0 {
			matched++
			occurrences += n
		}
	}
	if matched == 0 {
		return 0
	}

	coverage := float64(matched) / float64(len(distinct))
	frequency := float64(occurrences) / float64(len(distinct))
	if frequency > 1 {
		frequency = 1
	}
	return coverage * frequency
}

// metadataBoost rewards exact alignment between citation numbers or
// markers mentioned in the query and the chunk's extracted metadata,
// capped at 1.0.
func metadataBoost(sig querySignals, meta domain.ChunkMetadata) float64 {
	var boost float64
	if sig.artigo != "" && sig.artigo == meta.Artigo {
		boost += boostArtigo
	}
	if sig.paragrafo != "" && sig.paragrafo == meta.Paragrafo {
		boost += boostParagrafo
	}
	if sig.inciso != "" && sig.inciso == meta.Inciso {
		boost += boostInciso
	}
	if sig.wantsSTF && meta.MarcaSTF {
		boost += boostCourt
	}
	if sig.wantsSTJ && meta.MarcaSTJ {
		boost += boostCourt
	}
	if sig.banca != "" && sig.banca == meta.Banca {
		boost += boostBanca
	}
	if boost > 1 {
		boost = 1
	}
	return boost
}
