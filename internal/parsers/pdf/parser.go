// Package pdf parses PDF files into paragraphs, one per extracted line.
// PDF text carries no style information, so paragraphs are never marked
// as headings; hierarchical context comes from metadata extraction alone.
package pdf

import (
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/juristec/legisrag/internal/core/domain"
	"github.com/juristec/legisrag/internal/core/ports/driven"
	"github.com/juristec/legisrag/internal/textnorm"
)

// Ensure Parser implements the interface.
var _ driven.Parser = (*Parser)(nil)

// Parser handles .pdf files.
type Parser struct{}

// New creates a PDF parser.
func New() *Parser {
	return &Parser{}
}

// Extensions returns the file extensions this parser handles.
func (p *Parser) Extensions() []string {
	return []string{".pdf"}
}

// Parse extracts plain text page by page. Pages that fail to decode are
// skipped; the file only errors when nothing at all could be extracted.
func (p *Parser) Parse(ctx context.Context, path string) ([]domain.Paragraph, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, &domain.ParseError{Path: path, Err: fmt.Errorf("open pdf: %w", err)}
	}
	defer f.Close()

	var paragraphs []domain.Paragraph
	fonts := make(map[string]*pdf.Font)
	for i := 1; i <= reader.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(fonts)
		if err != nil {
			continue
		}
		paragraphs = append(paragraphs, splitLines(text)...)
	}

	if len(paragraphs) == 0 {
		return nil, fmt.Errorf("%s: %w", path, domain.ErrEmptyDocument)
	}
	return paragraphs, nil
}

// splitLines turns page text into one paragraph per non-empty line.
func splitLines(text string) []domain.Paragraph {
	var out []domain.Paragraph
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(textnorm.RepairEncoding(line))
		if line == "" {
			continue
		}
		out = append(out, domain.Paragraph{Text: line})
	}
	return out
}
