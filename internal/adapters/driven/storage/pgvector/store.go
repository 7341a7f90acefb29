// Package pgvector provides a dedicated vector store backed by
// PostgreSQL with the pgvector extension. Similarity ordering and
// metadata filtering run in SQL, which scales past the embedded
// SQLite backend.
package pgvector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	pgv "github.com/pgvector/pgvector-go"

	"github.com/juristec/legisrag/internal/core/domain"
	"github.com/juristec/legisrag/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

// uniqueViolation is the PostgreSQL error code for unique constraint
// violations.
const uniqueViolation = "23505"

// Store is a PostgreSQL+pgvector backed vector store.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore connects to PostgreSQL and ensures the schema exists.
// dimensions fixes the vector column width and must match the
// embedding model.
func NewStore(ctx context.Context, databaseURL string, dimensions int) (*Store, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("pgvector: database URL is required")
	}
	if dimensions <= 0 {
		return nil, fmt.Errorf("pgvector: dimensions must be positive")
	}

	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing database URL: %w", err)
	}
	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = time.Hour

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	s := &Store{pool: pool}
	if err := s.ensureSchema(ctx, dimensions); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// ensureSchema creates the extension, tables and indexes.
func (s *Store) ensureSchema(ctx context.Context, dimensions int) error {
	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`CREATE TABLE IF NOT EXISTS documents (
			id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
			name TEXT NOT NULL,
			source_path TEXT NOT NULL,
			file_hash TEXT NOT NULL UNIQUE,
			chunk_count INTEGER NOT NULL DEFAULT 0,
			token_count INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS chunks (
			id TEXT NOT NULL,
			document_id BIGINT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
			content TEXT NOT NULL,
			metadata JSONB NOT NULL DEFAULT '{}',
			token_count INTEGER NOT NULL DEFAULT 0,
			position DOUBLE PRECISION NOT NULL DEFAULT 0,
			embedding vector(%d),
			PRIMARY KEY (document_id, id)
		)`, dimensions),
		`CREATE INDEX IF NOT EXISTS idx_chunks_metadata ON chunks USING GIN (metadata)`,
		`CREATE INDEX IF NOT EXISTS idx_chunks_embedding ON chunks
			USING hnsw (embedding vector_cosine_ops)`,
	}
	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensuring schema: %w", err)
		}
	}
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// GetDocumentByHash retrieves a document by its content hash.
func (s *Store) GetDocumentByHash(ctx context.Context, fileHash string) (*domain.Document, error) {
	var doc domain.Document
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, source_path, file_hash, chunk_count, token_count, created_at
		FROM documents WHERE file_hash = $1
	`, fileHash).Scan(&doc.ID, &doc.Name, &doc.SourcePath, &doc.FileHash,
		&doc.ChunkCount, &doc.TokenCount, &doc.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting document by hash: %w", err)
	}
	return &doc, nil
}

// InsertDocumentWithChunks atomically persists a document and its chunks.
func (s *Store) InsertDocumentWithChunks(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}
	doc.ChunkCount = len(chunks)
	doc.TokenCount = 0
	for _, chunk := range chunks {
		doc.TokenCount += chunk.TokenCount
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO documents (name, source_path, file_hash, chunk_count, token_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, doc.Name, doc.SourcePath, doc.FileHash, doc.ChunkCount, doc.TokenCount, doc.CreatedAt).Scan(&doc.ID)
	if err != nil {
		if dup := asDuplicate(err, doc.FileHash); dup != nil {
			return s.describeDuplicate(ctx, dup)
		}
		return fmt.Errorf("inserting document: %w", err)
	}

	batch := &pgx.Batch{}
	for i := range chunks {
		chunks[i].DocumentID = doc.ID

		metadataJSON, err := json.Marshal(chunks[i].Metadata)
		if err != nil {
			return fmt.Errorf("marshalling chunk metadata: %w", err)
		}
		batch.Queue(`
			INSERT INTO chunks (id, document_id, content, metadata, token_count, position, embedding)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, chunks[i].ID, doc.ID, chunks[i].Text, metadataJSON,
			chunks[i].TokenCount, chunks[i].Position, pgv.NewVector(chunks[i].Embedding))
	}

	br := tx.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("inserting chunk %d: %w", i, err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("closing batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// asDuplicate maps a unique violation on file_hash to the typed error.
func asDuplicate(err error, fileHash string) *domain.DuplicateDocumentError {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return &domain.DuplicateDocumentError{FileHash: fileHash}
	}
	return nil
}

// describeDuplicate fills in the existing document's identity for the
// duplicate error, best effort.
func (s *Store) describeDuplicate(ctx context.Context, dup *domain.DuplicateDocumentError) error {
	existing, err := s.GetDocumentByHash(ctx, dup.FileHash)
	if err == nil {
		dup.ExistingID = existing.ID
		dup.ExistingName = existing.Name
	}
	return dup
}

// Search runs cosine similarity ordering and metadata filtering in SQL.
func (s *Store) Search(ctx context.Context, embedding []float32, limit int, minSimilarity float64, filter *driven.SearchFilter) ([]driven.SearchHit, error) {
	if limit <= 0 {
		return nil, nil
	}

	where := []string{"embedding IS NOT NULL", "1 - (embedding <=> $1) >= $2"}
	args := []any{pgv.NewVector(embedding), minSimilarity}

	if filter != nil {
		clause, extra, err := buildFilterSQL(filter, len(args))
		if err != nil {
			return nil, err
		}
		where = append(where, clause...)
		args = append(args, extra...)
	}

	args = append(args, limit)
	query := fmt.Sprintf(`
		SELECT id, document_id, content, metadata, token_count, position,
		       1 - (embedding <=> $1) AS similarity
		FROM chunks
		WHERE %s
		ORDER BY embedding <=> $1
		LIMIT $%d
	`, strings.Join(where, " AND "), len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("searching chunks: %w", err)
	}
	defer rows.Close()

	var hits []driven.SearchHit
	for rows.Next() {
		var hit driven.SearchHit
		var metadataJSON []byte
		if err := rows.Scan(&hit.Chunk.ID, &hit.Chunk.DocumentID, &hit.Chunk.Text,
			&metadataJSON, &hit.Chunk.TokenCount, &hit.Chunk.Position, &hit.Similarity); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		if err := json.Unmarshal(metadataJSON, &hit.Chunk.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshaling chunk metadata: %w", err)
		}
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}
	return hits, nil
}

// buildFilterSQL renders the structured filter as JSONB predicates.
// Placeholder numbering continues from argOffset.
func buildFilterSQL(filter *driven.SearchFilter, argOffset int) ([]string, []any, error) {
	var clauses []string
	var args []any
	next := func() int { return argOffset + len(args) + 1 }

	if filter.DocumentID != 0 {
		clauses = append(clauses, fmt.Sprintf("document_id = $%d", next()))
		args = append(args, filter.DocumentID)
	}

	if len(filter.Equals) > 0 {
		fragment, err := json.Marshal(filter.Equals)
		if err != nil {
			return nil, nil, fmt.Errorf("marshalling equals filter: %w", err)
		}
		clauses = append(clauses, fmt.Sprintf("metadata @> $%d::jsonb", next()))
		args = append(args, string(fragment))
	}

	for _, field := range filter.Present {
		// Non-empty text, or a boolean flag that is true.
		clauses = append(clauses,
			fmt.Sprintf("COALESCE(metadata->>$%d, '') NOT IN ('', 'false')", next()))
		args = append(args, field)
	}

	if len(filter.Any) > 0 {
		var ors []string
		for _, fm := range filter.Any {
			fragment, err := json.Marshal(map[string]any{fm.Field: fm.Value})
			if err != nil {
				return nil, nil, fmt.Errorf("marshalling any filter: %w", err)
			}
			ors = append(ors, fmt.Sprintf("metadata @> $%d::jsonb", next()))
			args = append(args, string(fragment))
		}
		clauses = append(clauses, "("+strings.Join(ors, " OR ")+")")
	}

	return clauses, args, nil
}

// ListDocuments returns all stored documents ordered by creation time.
func (s *Store) ListDocuments(ctx context.Context) ([]domain.Document, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, source_path, file_hash, chunk_count, token_count, created_at
		FROM documents ORDER BY created_at, id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.Document
	for rows.Next() {
		var doc domain.Document
		if err := rows.Scan(&doc.ID, &doc.Name, &doc.SourcePath, &doc.FileHash,
			&doc.ChunkCount, &doc.TokenCount, &doc.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// DeleteDocument removes a document; its chunks cascade.
func (s *Store) DeleteDocument(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// DeleteAll removes every document and chunk.
func (s *Store) DeleteAll(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `TRUNCATE documents CASCADE`); err != nil {
		return fmt.Errorf("truncating documents: %w", err)
	}
	return nil
}
