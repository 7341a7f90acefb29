// Package cache decorates an embedding service with an in-memory LRU
// cache keyed by normalized text, so re-ingesting overlapping documents
// and repeated queries skip the API.
package cache

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/juristec/legisrag/internal/core/ports/driven"
	"github.com/juristec/legisrag/internal/logger"
	"github.com/juristec/legisrag/internal/textnorm"
)

// Ensure Service implements the interface.
var _ driven.EmbeddingService = (*Service)(nil)

// DefaultSize is the default cache capacity in entries.
const DefaultSize = 4096

// Service wraps another embedding service with an LRU cache.
type Service struct {
	inner  driven.EmbeddingService
	cache  *lru.Cache[string, []float32]
	hits   atomic.Int64
	misses atomic.Int64
}

// New creates a caching decorator around inner. A non-positive size
// falls back to DefaultSize.
func New(inner driven.EmbeddingService, size int) (*Service, error) {
	if size <= 0 {
		size = DefaultSize
	}
	cache, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, err
	}
	return &Service{inner: inner, cache: cache}, nil
}

// key normalizes the text before hashing so trivially different spellings
// of the same query share an entry.
func key(text string) string {
	sum := md5.Sum([]byte(textnorm.NormalizeQuery(text)))
	return hex.EncodeToString(sum[:])
}

// Embed returns a cached embedding when available.
func (s *Service) Embed(ctx context.Context, text string) ([]float32, error) {
	k := key(text)
	if vec, ok := s.cache.Get(k); ok {
		s.hits.Add(1)
		return vec, nil
	}
	s.misses.Add(1)

	vec, err := s.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	s.cache.Add(k, vec)
	return vec, nil
}

// EmbedBatch partitions texts into cache hits and misses, embeds only
// the misses through the inner service, and merges results back in the
// original order.
func (s *Service) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string
	for i, text := range texts {
		if vec, ok := s.cache.Get(key(text)); ok {
			s.hits.Add(1)
			out[i] = vec
			continue
		}
		s.misses.Add(1)
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}

	if len(missTexts) == 0 {
		return out, nil
	}
	logger.Debug("embedding cache: %d hits, %d misses", len(texts)-len(missTexts), len(missTexts))

	vectors, err := s.inner.EmbedBatch(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	for j, i := range missIdx {
		out[i] = vectors[j]
		s.cache.Add(key(texts[i]), vectors[j])
	}
	return out, nil
}

// Stats returns hit and miss counters since creation.
func (s *Service) Stats() (hits, misses int64) {
	return s.hits.Load(), s.misses.Load()
}

// Dimensions returns the inner service's embedding size.
func (s *Service) Dimensions() int {
	return s.inner.Dimensions()
}

// ModelName returns the inner service's model name.
func (s *Service) ModelName() string {
	return s.inner.ModelName()
}

// Ping delegates to the inner service.
func (s *Service) Ping(ctx context.Context) error {
	return s.inner.Ping(ctx)
}

// Close releases the inner service's resources.
func (s *Service) Close() error {
	s.cache.Purge()
	return s.inner.Close()
}
