package domain

// Confidence is the 4-tier trust level of a retrieval result, derived
// from the mean similarity of the final candidate set.
type Confidence string

// Confidence levels, highest first.
const (
	ConfidenceAlta   Confidence = "ALTA"
	ConfidenceMedia  Confidence = "MEDIA"
	ConfidenceBaixa  Confidence = "BAIXA"
	ConfidenceSemRAG Confidence = "SEM_RAG"
)

// Rank orders levels for comparison: ALTA > MEDIA > BAIXA > SEM_RAG.
func (c Confidence) Rank() int {
	switch c {
	case ConfidenceAlta:
		return 3
	case ConfidenceMedia:
		return 2
	case ConfidenceBaixa:
		return 1
	default:
		return 0
	}
}

// UsableForRAG reports whether retrieved context should be surfaced to
// the caller. Even BAIXA is surfaced (with hedging); only SEM_RAG is
// suppressed entirely.
func (c Confidence) UsableForRAG() bool {
	return c != ConfidenceSemRAG && c != ""
}
