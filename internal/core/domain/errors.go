package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for categorical failures.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnsupportedType indicates a file extension no parser handles.
	ErrUnsupportedType = errors.New("unsupported file type")

	// ErrEmptyDocument indicates a parse produced no paragraphs.
	// Ingestion fails without side effects.
	ErrEmptyDocument = errors.New("document produced no paragraphs")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")
)

// DuplicateDocumentError is returned when ingesting content whose file
// hash already exists. It carries the existing document's identity so the
// caller can decide how to proceed.
type DuplicateDocumentError struct {
	ExistingID   int64
	ExistingName string
	FileHash     string
}

func (e *DuplicateDocumentError) Error() string {
	return fmt.Sprintf("document content already ingested as %q (id %d, hash %s)",
		e.ExistingName, e.ExistingID, e.FileHash)
}

// ParseError wraps a failure to read or decode a source file.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// EmbeddingError is an unrecoverable embedding-provider failure. It names
// the model and the length of the failing text; partial or garbage vectors
// are never returned in its place.
type EmbeddingError struct {
	Model   string
	TextLen int
	Err     error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedding failed (model %s, text length %d): %v",
		e.Model, e.TextLen, e.Err)
}

func (e *EmbeddingError) Unwrap() error { return e.Err }

// QueryError wraps a failure in one stage of the query pipeline.
// Queries are read-only, so no rollback accompanies it.
type QueryError struct {
	Stage string
	Err   error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query failed at %s: %v", e.Stage, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// IngestError wraps a failure in one stage of document ingestion. The
// enclosing transaction has been rolled back when it is returned.
type IngestError struct {
	Path  string
	Name  string
	Stage string
	Err   error
}

func (e *IngestError) Error() string {
	return fmt.Sprintf("ingest %s (%s) failed at %s: %v", e.Name, e.Path, e.Stage, e.Err)
}

func (e *IngestError) Unwrap() error { return e.Err }

// ValidationError indicates an internal invariant violation: a programming
// bug, not a transient condition. It fails loudly rather than degrading.
type ValidationError struct {
	Msg     string
	Details map[string]int
}

func (e *ValidationError) Error() string {
	if len(e.Details) == 0 {
		return "validation: " + e.Msg
	}
	return fmt.Sprintf("validation: %s %v", e.Msg, e.Details)
}
