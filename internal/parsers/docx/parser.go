// Package docx parses DOCX files into paragraphs, preserving heading
// styles and run formatting needed by the chunker.
package docx

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/juristec/legisrag/internal/core/domain"
	"github.com/juristec/legisrag/internal/core/ports/driven"
	"github.com/juristec/legisrag/internal/textnorm"
)

// Ensure Parser implements the interface.
var _ driven.Parser = (*Parser)(nil)

// headingStyleRe matches English and Portuguese heading style names, with
// or without a space before the level digit ("Heading1", "Título 2").
var headingStyleRe = regexp.MustCompile(`(?i)(?:heading|t[íi]tulo|cabe[çc]alho)\s*(\d+)?`)

// Parser handles .docx files.
type Parser struct{}

// New creates a DOCX parser.
func New() *Parser {
	return &Parser{}
}

// Extensions returns the file extensions this parser handles.
func (p *Parser) Extensions() []string {
	return []string{".docx"}
}

// Parse opens the file as a ZIP archive and extracts paragraphs from
// word/document.xml in document order.
func (p *Parser) Parse(ctx context.Context, path string) ([]domain.Paragraph, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	reader, err := zip.OpenReader(path)
	if err != nil {
		return nil, &domain.ParseError{Path: path, Err: fmt.Errorf("open docx archive: %w", err)}
	}
	defer reader.Close()

	content, err := readDocumentXML(&reader.Reader)
	if err != nil {
		return nil, &domain.ParseError{Path: path, Err: err}
	}

	paragraphs, err := parseDocumentXML(content)
	if err != nil {
		return nil, &domain.ParseError{Path: path, Err: err}
	}
	if len(paragraphs) == 0 {
		return nil, fmt.Errorf("%s: %w", path, domain.ErrEmptyDocument)
	}
	return paragraphs, nil
}

// readDocumentXML locates and reads word/document.xml.
func readDocumentXML(reader *zip.Reader) ([]byte, error) {
	for _, file := range reader.File {
		if file.Name != "word/document.xml" {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("open document.xml: %w", err)
		}
		defer rc.Close()
		content, err := io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("read document.xml: %w", err)
		}
		return content, nil
	}
	return nil, fmt.Errorf("word/document.xml missing from archive")
}

// documentXML mirrors the subset of word/document.xml we consume.
// encoding/xml matches on local names, so namespace prefixes are ignored.
type documentXML struct {
	Body struct {
		Paragraphs []paragraphXML `xml:"p"`
	} `xml:"body"`
}

type paragraphXML struct {
	Props struct {
		Style struct {
			Val string `xml:"val,attr"`
		} `xml:"pStyle"`
	} `xml:"pPr"`
	Runs []runXML `xml:"r"`
}

type runXML struct {
	Props struct {
		Bold   *toggleXML `xml:"b"`
		Italic *toggleXML `xml:"i"`
	} `xml:"rPr"`
	Text []textXML `xml:"t"`
}

// toggleXML is an OOXML on/off property: present means on unless the val
// attribute says otherwise.
type toggleXML struct {
	Val string `xml:"val,attr"`
}

func (t *toggleXML) on() bool {
	if t == nil {
		return false
	}
	return t.Val != "0" && !strings.EqualFold(t.Val, "false")
}

type textXML struct {
	Content string `xml:",chardata"`
}

// parseDocumentXML converts the document body into paragraphs, skipping
// whitespace-only ones.
func parseDocumentXML(content []byte) ([]domain.Paragraph, error) {
	var doc documentXML
	if err := xml.Unmarshal(content, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal document.xml: %w", err)
	}

	var paragraphs []domain.Paragraph
	for _, para := range doc.Body.Paragraphs {
		text, bold, italic := flattenRuns(para.Runs)
		text = strings.TrimSpace(textnorm.RepairEncoding(text))
		if text == "" {
			continue
		}

		dp := domain.Paragraph{
			Text:      text,
			StyleName: para.Props.Style.Val,
			IsBold:    bold,
			IsItalic:  italic,
		}
		dp.IsHeading, dp.HeadingLevel = headingFromStyle(para.Props.Style.Val)
		paragraphs = append(paragraphs, dp)
	}
	return paragraphs, nil
}

// flattenRuns joins run texts and reports whether every text-bearing run
// is bold (resp. italic).
func flattenRuns(runs []runXML) (string, bool, bool) {
	var b strings.Builder
	bold, italic := true, true
	textRuns := 0
	for _, run := range runs {
		runText := ""
		for _, t := range run.Text {
			runText += t.Content
		}
		if strings.TrimSpace(runText) != "" {
			textRuns++
			if !run.Props.Bold.on() {
				bold = false
			}
			if !run.Props.Italic.on() {
				italic = false
			}
		}
		b.WriteString(runText)
	}
	if textRuns == 0 {
		return b.String(), false, false
	}
	return b.String(), bold, italic
}

// headingFromStyle detects heading styles and their level. A heading
// style without an explicit digit is treated as level 1.
func headingFromStyle(style string) (bool, int) {
	if style == "" {
		return false, 0
	}
	m := headingStyleRe.FindStringSubmatch(style)
	if m == nil {
		return false, 0
	}
	if m[1] == "" {
		return true, 1
	}
	level, err := strconv.Atoi(m[1])
	if err != nil || level < 1 {
		return true, 1
	}
	return true, level
}
