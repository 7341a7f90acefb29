// Package memory provides an in-memory vector store, used by tests and
// as a throwaway backend for experiments.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/juristec/legisrag/internal/core/domain"
	"github.com/juristec/legisrag/internal/core/ports/driven"
	"github.com/juristec/legisrag/internal/vectorutil"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

// Store is an in-memory vector store safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	nextID int64
	docs   map[int64]domain.Document
	chunks map[int64][]domain.Chunk
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		nextID: 1,
		docs:   make(map[int64]domain.Document),
		chunks: make(map[int64][]domain.Chunk),
	}
}

// GetDocumentByHash retrieves a document by its content hash.
func (s *Store) GetDocumentByHash(_ context.Context, fileHash string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, doc := range s.docs {
		if doc.FileHash == fileHash {
			d := doc
			return &d, nil
		}
	}
	return nil, domain.ErrNotFound
}

// InsertDocumentWithChunks atomically persists a document and its chunks.
func (s *Store) InsertDocumentWithChunks(_ context.Context, doc *domain.Document, chunks []domain.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.docs {
		if existing.FileHash == doc.FileHash {
			return &domain.DuplicateDocumentError{
				ExistingID:   existing.ID,
				ExistingName: existing.Name,
				FileHash:     doc.FileHash,
			}
		}
	}

	doc.ID = s.nextID
	s.nextID++
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}
	doc.ChunkCount = len(chunks)
	doc.TokenCount = 0

	stored := make([]domain.Chunk, len(chunks))
	for i := range chunks {
		chunks[i].DocumentID = doc.ID
		doc.TokenCount += chunks[i].TokenCount
		stored[i] = chunks[i]
	}

	s.docs[doc.ID] = *doc
	s.chunks[doc.ID] = stored
	return nil
}

// Search ranks chunks by cosine similarity.
func (s *Store) Search(_ context.Context, embedding []float32, limit int, minSimilarity float64, filter *driven.SearchFilter) ([]driven.SearchHit, error) {
	if limit <= 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var hits []driven.SearchHit
	for docID, chunks := range s.chunks {
		if filter != nil && filter.DocumentID != 0 && filter.DocumentID != docID {
			continue
		}
		for _, chunk := range chunks {
			if !filter.Matches(chunk.Metadata) {
				continue
			}
			similarity := vectorutil.Cosine(embedding, chunk.Embedding)
			if similarity < minSimilarity {
				continue
			}
			hits = append(hits, driven.SearchHit{Chunk: chunk, Similarity: similarity})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Similarity > hits[j].Similarity
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// ListDocuments returns all stored documents ordered by creation time.
func (s *Store) ListDocuments(_ context.Context) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := make([]domain.Document, 0, len(s.docs))
	for _, doc := range s.docs {
		docs = append(docs, doc)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}

// DeleteDocument removes a document and its chunks.
func (s *Store) DeleteDocument(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.docs[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.docs, id)
	delete(s.chunks, id)
	return nil
}

// DeleteAll removes every document and chunk.
func (s *Store) DeleteAll(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.docs = make(map[int64]domain.Document)
	s.chunks = make(map[int64][]domain.Chunk)
	return nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error {
	return nil
}
