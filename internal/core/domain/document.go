package domain

import "time"

// Document represents one ingested source file.
type Document struct {
	// ID is assigned by the storage backend on insert.
	ID int64

	// Name is the human-readable document name used to derive chunk ids.
	Name string

	// SourcePath is the path the document was ingested from.
	SourcePath string

	// FileHash is the SHA-256 of the source file content.
	// It is unique across documents: re-ingesting byte-identical content
	// is rejected, never duplicated.
	FileHash string

	// ChunkCount is the number of chunks created for this document.
	// Always equal to len(chunks) after ingestion completes.
	ChunkCount int

	// TokenCount is the sum of the token counts of all chunks.
	TokenCount int

	// CreatedAt is when the document was ingested.
	CreatedAt time.Time
}

// Paragraph is one ordered unit of parsed source text.
// Parsers produce a sequence of these; the chunker consumes them.
type Paragraph struct {
	// Text is the paragraph content.
	Text string

	// StyleName is the source style name ("Heading 1", "Título 2", ...).
	// Empty when the format carries no style information (PDF).
	StyleName string

	// IsHeading reports whether the style matched a heading pattern.
	IsHeading bool

	// HeadingLevel is 1-9 for headings, 0 otherwise.
	HeadingLevel int

	// IsBold and IsItalic reflect run-level formatting of the paragraph.
	IsBold   bool
	IsItalic bool
}
