package services

import "github.com/juristec/legisrag/internal/core/domain"

// computeConfidence maps the mean similarity of the final candidate set
// onto the four-tier ladder. Boundaries are inclusive: a mean exactly at
// a threshold earns that tier. An empty set is SEM_RAG.
func computeConfidence(similarities []float64, s domain.Settings) domain.Confidence {
	if len(similarities) == 0 {
		return domain.ConfidenceSemRAG
	}

	var sum float64
	for _, sim := range similarities {
		sum += sim
	}
	mean := sum / float64(len(similarities))

	switch {
	case mean >= s.ConfidenceAlta:
		return domain.ConfidenceAlta
	case mean >= s.ConfidenceMedia:
		return domain.ConfidenceMedia
	case mean >= s.ConfidenceBaixa:
		return domain.ConfidenceBaixa
	default:
		return domain.ConfidenceSemRAG
	}
}
