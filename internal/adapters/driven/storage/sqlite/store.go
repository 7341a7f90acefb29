// Package sqlite provides an embedded vector store backed by SQLite.
// Embeddings are stored as little-endian float32 blobs; similarity is
// computed in process, which is adequate for single-machine corpora.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/juristec/legisrag/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/juristec/legisrag/internal/core/domain"
	"github.com/juristec/legisrag/internal/core/ports/driven"
	"github.com/juristec/legisrag/internal/vectorutil"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

// Store is a SQLite-backed vector store.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a SQLite store at the given database path.
// If path is empty, defaults to ~/.legisrag/data/legisrag.db.
func NewStore(path string) (*Store, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		path = filepath.Join(home, ".legisrag", "data", "legisrag.db")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{db: db, path: path}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// GetDocumentByHash retrieves a document by its content hash.
func (s *Store) GetDocumentByHash(ctx context.Context, fileHash string) (*domain.Document, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, source_path, file_hash, chunk_count, token_count, created_at
		FROM documents WHERE file_hash = ?
	`, fileHash)

	return scanDocument(row)
}

// InsertDocumentWithChunks atomically persists a document and its chunks.
func (s *Store) InsertDocumentWithChunks(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	// Pre-check inside the transaction for a friendly duplicate error;
	// the UNIQUE constraint below still closes the race.
	var existingID int64
	var existingName string
	err = tx.QueryRowContext(ctx,
		"SELECT id, name FROM documents WHERE file_hash = ?", doc.FileHash,
	).Scan(&existingID, &existingName)
	if err == nil {
		return &domain.DuplicateDocumentError{
			ExistingID:   existingID,
			ExistingName: existingName,
			FileHash:     doc.FileHash,
		}
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("checking for duplicate: %w", err)
	}

	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}
	doc.ChunkCount = len(chunks)
	doc.TokenCount = 0
	for _, chunk := range chunks {
		doc.TokenCount += chunk.TokenCount
	}

	result, err := tx.ExecContext(ctx, `
		INSERT INTO documents (name, source_path, file_hash, chunk_count, token_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, doc.Name, doc.SourcePath, doc.FileHash, doc.ChunkCount, doc.TokenCount, doc.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return &domain.DuplicateDocumentError{FileHash: doc.FileHash}
		}
		return fmt.Errorf("inserting document: %w", err)
	}

	doc.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting document id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, document_id, content, metadata, token_count, position, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for i := range chunks {
		chunks[i].DocumentID = doc.ID

		metadataJSON, err := json.Marshal(chunks[i].Metadata)
		if err != nil {
			return fmt.Errorf("marshalling chunk metadata: %w", err)
		}

		if _, err := stmt.ExecContext(ctx, chunks[i].ID, doc.ID, chunks[i].Text,
			string(metadataJSON), chunks[i].TokenCount, chunks[i].Position,
			vectorutil.Encode(chunks[i].Embedding)); err != nil {
			return fmt.Errorf("inserting chunk %s: %w", chunks[i].ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Search loads candidate chunks and ranks them by cosine similarity in
// process. Metadata filters are evaluated in Go against the decoded
// metadata; the document filter is pushed into SQL.
func (s *Store) Search(ctx context.Context, embedding []float32, limit int, minSimilarity float64, filter *driven.SearchFilter) ([]driven.SearchHit, error) {
	if limit <= 0 {
		return nil, nil
	}

	query := `
		SELECT id, document_id, content, metadata, token_count, position, embedding
		FROM chunks
	`
	var args []any
	if filter != nil && filter.DocumentID != 0 {
		query += " WHERE document_id = ?"
		args = append(args, filter.DocumentID)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var hits []driven.SearchHit
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		if !filter.Matches(chunk.Metadata) {
			continue
		}
		similarity := vectorutil.Cosine(embedding, chunk.Embedding)
		if similarity < minSimilarity {
			continue
		}
		hits = append(hits, driven.SearchHit{Chunk: *chunk, Similarity: similarity})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
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
func (s *Store) ListDocuments(ctx context.Context) ([]domain.Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, source_path, file_hash, chunk_count, token_count, created_at
		FROM documents ORDER BY created_at, id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.Document //nolint:prealloc // size unknown from query
	for rows.Next() {
		var doc domain.Document
		if err := rows.Scan(&doc.ID, &doc.Name, &doc.SourcePath, &doc.FileHash,
			&doc.ChunkCount, &doc.TokenCount, &doc.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}
	return docs, nil
}

// DeleteDocument removes a document; its chunks cascade.
func (s *Store) DeleteDocument(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking delete result: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// DeleteAll removes every document and chunk.
func (s *Store) DeleteAll(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks"); err != nil {
		return fmt.Errorf("deleting chunks: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM documents"); err != nil {
		return fmt.Errorf("deleting documents: %w", err)
	}
	return tx.Commit()
}

// isUniqueViolation detects the driver's UNIQUE constraint error on the
// document hash. modernc.org/sqlite exposes no typed error for this.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed: documents.file_hash")
}

// scanDocument scans a single document row.
func scanDocument(row *sql.Row) (*domain.Document, error) {
	var doc domain.Document
	if err := row.Scan(&doc.ID, &doc.Name, &doc.SourcePath, &doc.FileHash,
		&doc.ChunkCount, &doc.TokenCount, &doc.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning document: %w", err)
	}
	return &doc, nil
}

// scanChunk scans a chunk from *sql.Rows.
func scanChunk(rows *sql.Rows) (*domain.Chunk, error) {
	var chunk domain.Chunk
	var embeddingBlob []byte
	var metadataJSON string

	if err := rows.Scan(&chunk.ID, &chunk.DocumentID, &chunk.Text,
		&metadataJSON, &chunk.TokenCount, &chunk.Position, &embeddingBlob); err != nil {
		return nil, fmt.Errorf("scanning chunk: %w", err)
	}

	chunk.Embedding = vectorutil.Decode(embeddingBlob)

	if metadataJSON != "" {
		if err := json.Unmarshal([]byte(metadataJSON), &chunk.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshaling chunk metadata: %w", err)
		}
	}

	return &chunk, nil
}
