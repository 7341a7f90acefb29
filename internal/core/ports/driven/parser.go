package driven

import (
	"context"

	"github.com/juristec/legisrag/internal/core/domain"
)

// Parser extracts ordered paragraphs from a source document on disk.
type Parser interface {
	// Extensions returns the lowercase file extensions this parser
	// handles, including the leading dot (e.g. ".docx").
	Extensions() []string

	// Parse reads the file and returns its paragraphs in document order.
	// An unreadable or structurally broken file returns *domain.ParseError;
	// a file with no extractable text returns domain.ErrEmptyDocument.
	Parse(ctx context.Context, path string) ([]domain.Paragraph, error)
}
