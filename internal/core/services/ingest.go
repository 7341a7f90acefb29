package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/juristec/legisrag/internal/core/domain"
	"github.com/juristec/legisrag/internal/core/ports/driven"
	"github.com/juristec/legisrag/internal/core/ports/driving"
	"github.com/juristec/legisrag/internal/logger"
)

// Ensure IngestService implements the interface.
var _ driving.IngestService = (*IngestService)(nil)

// ParserSelector picks a parser for a file. Implemented by the parser
// registry.
type ParserSelector interface {
	ForFile(path string) (driven.Parser, error)
	Supports(path string) bool
}

// Chunker splits parsed paragraphs into retrieval chunks.
type Chunker interface {
	Chunk(paragraphs []domain.Paragraph, documentName string) []domain.Chunk
}

// IngestService loads source documents into the vector store.
type IngestService struct {
	store    driven.VectorStore
	embedder driven.EmbeddingService
	parsers  ParserSelector
	chunker  Chunker
	settings domain.Settings
}

// NewIngestService creates the ingestion service.
func NewIngestService(
	store driven.VectorStore,
	embedder driven.EmbeddingService,
	parsers ParserSelector,
	chunker Chunker,
	settings domain.Settings,
) *IngestService {
	return &IngestService{
		store:    store,
		embedder: embedder,
		parsers:  parsers,
		chunker:  chunker,
		settings: settings,
	}
}

// IngestFile parses, chunks, embeds and persists one document. An empty
// name falls back to the file basename. The hash check runs before any
// expensive work; a duplicate returns *domain.DuplicateDocumentError
// untouched so callers can branch on it.
func (s *IngestService) IngestFile(ctx context.Context, path, name string) (*domain.Document, error) {
	logger.Section("Ingest")
	logger.Debug("File: %s", path)

	if name == "" {
		name = documentName(path)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, &domain.IngestError{Path: path, Name: name, Stage: "read", Err: err}
	}
	sum := sha256.Sum256(content)
	fileHash := hex.EncodeToString(sum[:])
	logger.Debug("Hash: %s", fileHash)

	existing, err := s.store.GetDocumentByHash(ctx, fileHash)
	if err == nil {
		return nil, &domain.DuplicateDocumentError{
			ExistingID:   existing.ID,
			ExistingName: existing.Name,
			FileHash:     fileHash,
		}
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, &domain.IngestError{Path: path, Name: name, Stage: "dedup", Err: err}
	}

	parser, err := s.parsers.ForFile(path)
	if err != nil {
		return nil, err
	}
	paragraphs, err := parser.Parse(ctx, path)
	if err != nil {
		return nil, &domain.IngestError{Path: path, Name: name, Stage: "parse", Err: err}
	}
	logger.Debug("Paragraphs: %d", len(paragraphs))

	chunks := s.chunker.Chunk(paragraphs, name)
	if len(chunks) == 0 {
		return nil, &domain.IngestError{Path: path, Name: name, Stage: "chunk", Err: domain.ErrEmptyDocument}
	}
	logger.Debug("Chunks: %d", len(chunks))

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}
	embeddings, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, &domain.IngestError{Path: path, Name: name, Stage: "embed", Err: err}
	}
	if len(embeddings) != len(chunks) {
		return nil, &domain.ValidationError{
			Msg: "embedding count diverges from chunk count",
			Details: map[string]int{
				"chunks":     len(chunks),
				"embeddings": len(embeddings),
			},
		}
	}
	for i := range chunks {
		if len(embeddings[i]) != s.settings.EmbeddingDimensions {
			return nil, &domain.ValidationError{
				Msg: "embedding dimension mismatch",
				Details: map[string]int{
					"expected": s.settings.EmbeddingDimensions,
					"got":      len(embeddings[i]),
					"chunk":    i,
				},
			}
		}
		chunks[i].Embedding = embeddings[i]
	}

	doc := &domain.Document{
		Name:       name,
		SourcePath: path,
		FileHash:   fileHash,
	}
	if err := s.store.InsertDocumentWithChunks(ctx, doc, chunks); err != nil {
		var dup *domain.DuplicateDocumentError
		if errors.As(err, &dup) {
			// Lost a concurrent race after the pre-check.
			return nil, dup
		}
		return nil, &domain.IngestError{Path: path, Name: name, Stage: "store", Err: err}
	}

	logger.Info("Ingested %q: %d chunks, %d tokens", doc.Name, doc.ChunkCount, doc.TokenCount)
	return doc, nil
}

// Reindex wipes the store and re-ingests every supported file under dir.
// Individual file failures are logged and skipped so one broken document
// cannot block a corpus rebuild.
func (s *IngestService) Reindex(ctx context.Context, dir string) (*driving.ReindexResult, error) {
	logger.Section("Reindex")
	start := time.Now()

	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", domain.ErrInvalidInput, dir)
	}

	if err := s.store.DeleteAll(ctx); err != nil {
		return nil, fmt.Errorf("clearing store: %w", err)
	}

	result := &driving.ReindexResult{}
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() || !s.parsers.Supports(path) {
			return nil
		}

		doc, err := s.IngestFile(ctx, path, "")
		if err != nil {
			var dup *domain.DuplicateDocumentError
			if errors.As(err, &dup) {
				logger.Warn("Skipping %s: same content as %q", path, dup.ExistingName)
				return nil
			}
			logger.Error("Skipping %s: %v", path, err)
			result.FailedFiles = append(result.FailedFiles, path)
			return nil
		}

		result.DocumentsCount++
		result.ChunksCount += doc.ChunkCount
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", dir, err)
	}

	result.Duration = time.Since(start)
	logger.Info("Reindexed %d documents (%d chunks) in %v",
		result.DocumentsCount, result.ChunksCount, result.Duration)
	return result, nil
}

// ListDocuments returns all indexed documents.
func (s *IngestService) ListDocuments(ctx context.Context) ([]domain.Document, error) {
	return s.store.ListDocuments(ctx)
}

// DeleteDocument removes one document and its chunks.
func (s *IngestService) DeleteDocument(ctx context.Context, id int64) error {
	return s.store.DeleteDocument(ctx, id)
}

// documentName derives the logical document name from the file path.
func documentName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
