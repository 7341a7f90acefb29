// Package chunker groups parsed paragraphs into token-bounded chunks,
// preserving hierarchical heading context and adding boundary-aware
// overlap between consecutive chunks.
package chunker

import (
	"fmt"
	"math"
	"strings"
	"unicode"

	"github.com/juristec/legisrag/internal/core/domain"
	"github.com/juristec/legisrag/internal/metadata"
	"github.com/juristec/legisrag/internal/textnorm"
)

// Default bounds, overridable via options.
const (
	DefaultMaxTokens        = 500
	DefaultOverlapTokens    = 50
	DefaultMinChunkSize     = 100
	DefaultMetadataMaxDepth = 3
)

// majorHeadingLevel is the deepest heading level that forces a chunk
// break on its own.
const majorHeadingLevel = 2

// Extractor derives chunk metadata from text plus hierarchical context.
type Extractor interface {
	Extract(text string, ctx metadata.Context) domain.ChunkMetadata
}

// Chunker splits paragraph sequences into chunks.
type Chunker struct {
	extractor        Extractor
	maxTokens        int
	overlapTokens    int
	minChunkSize     int
	metadataMaxDepth int
}

// Option configures the chunker.
type Option func(*Chunker)

// WithMaxTokens sets the chunk token ceiling.
func WithMaxTokens(n int) Option {
	return func(c *Chunker) {
		if n > 0 {
			c.maxTokens = n
		}
	}
}

// WithOverlapTokens sets the boundary overlap budget.
func WithOverlapTokens(n int) Option {
	return func(c *Chunker) {
		if n >= 0 {
			c.overlapTokens = n
		}
	}
}

// WithMinChunkSize sets the minimum tokens before a break is allowed.
func WithMinChunkSize(n int) Option {
	return func(c *Chunker) {
		if n >= 0 {
			c.minChunkSize = n
		}
	}
}

// WithMetadataMaxDepth sets the deepest heading level captured as
// hierarchical context.
func WithMetadataMaxDepth(n int) Option {
	return func(c *Chunker) {
		if n > 0 {
			c.metadataMaxDepth = n
		}
	}
}

// New creates a chunker using the given metadata extractor.
func New(extractor Extractor, opts ...Option) *Chunker {
	c := &Chunker{
		extractor:        extractor,
		maxTokens:        DefaultMaxTokens,
		overlapTokens:    DefaultOverlapTokens,
		minChunkSize:     DefaultMinChunkSize,
		metadataMaxDepth: DefaultMetadataMaxDepth,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.overlapTokens >= c.maxTokens {
		c.overlapTokens = c.maxTokens / 4
	}
	return c
}

// indexed pairs a paragraph with its position in the source sequence so
// overlapped paragraphs keep their original indices.
type indexed struct {
	para  domain.Paragraph
	index int
}

// Chunk walks paragraphs in order, accumulating groups bounded by the
// token ceiling and broken early at major headings. Each closed group
// seeds the next with trailing paragraphs up to the overlap budget. An
// empty paragraph list yields an empty chunk list.
func (c *Chunker) Chunk(paragraphs []domain.Paragraph, documentName string) []domain.Chunk {
	if len(paragraphs) == 0 {
		return nil
	}

	var chunks []domain.Chunk
	var group []indexed
	groupTokens := 0
	sequence := 0

	flush := func() {
		if len(group) == 0 {
			return
		}
		chunks = append(chunks, c.materialize(group, paragraphs, documentName, sequence))
		sequence++
		group, groupTokens = c.overlapSeed(group)
	}

	for i, para := range paragraphs {
		tokens := textnorm.EstimateTokens(para.Text)

		overSize := groupTokens+tokens > c.maxTokens && groupTokens >= c.minChunkSize
		atHeading := para.IsHeading && para.HeadingLevel > 0 &&
			para.HeadingLevel <= majorHeadingLevel && groupTokens >= c.minChunkSize
		if overSize || atHeading {
			flush()
		}

		group = append(group, indexed{para: para, index: i})
		groupTokens += tokens
	}

	// Final pending group is always flushed, even if it never broke.
	if len(group) > 0 {
		chunks = append(chunks, c.materialize(group, paragraphs, documentName, sequence))
	}

	return chunks
}

// overlapSeed takes trailing paragraphs from a just-closed group,
// accumulating backwards until the overlap budget would be exceeded.
func (c *Chunker) overlapSeed(closed []indexed) ([]indexed, int) {
	if c.overlapTokens <= 0 {
		return nil, 0
	}
	total := 0
	start := len(closed)
	for i := len(closed) - 1; i >= 0; i-- {
		tokens := textnorm.EstimateTokens(closed[i].para.Text)
		if total+tokens > c.overlapTokens {
			break
		}
		total += tokens
		start = i
	}
	if start == len(closed) {
		return nil, 0
	}
	seed := make([]indexed, len(closed)-start)
	copy(seed, closed[start:])
	return seed, total
}

// materialize turns a paragraph group into a Chunk, computing the
// hierarchical context by scanning backwards through all prior paragraphs
// for the nearest heading at each level.
func (c *Chunker) materialize(group []indexed, all []domain.Paragraph, documentName string, sequence int) domain.Chunk {
	texts := make([]string, len(group))
	allHeadings := true
	for i, g := range group {
		texts[i] = g.para.Text
		if !g.para.IsHeading {
			allHeadings = false
		}
	}
	text := strings.Join(texts, "\n")

	firstIdx := group[0].index
	lastIdx := group[len(group)-1].index

	ctx := metadata.Context{
		Documento: documentName,
		Tipo:      "content",
	}
	if allHeadings {
		ctx.Tipo = "heading"
	}
	c.fillHierarchy(&ctx, all, lastIdx)

	mid := float64(firstIdx+lastIdx) / 2.0
	position := math.Round(mid/float64(len(all))*10000) / 10000

	return domain.Chunk{
		ID:         fmt.Sprintf("%s-%04d", sanitizeName(documentName), sequence),
		Text:       text,
		Metadata:   c.extractor.Extract(text, ctx),
		TokenCount: textnorm.EstimateTokens(text),
		Position:   position,
	}
}

// fillHierarchy finds the nearest heading at each level up to the
// configured depth, scanning backwards from the group's last paragraph.
func (c *Chunker) fillHierarchy(ctx *metadata.Context, all []domain.Paragraph, from int) {
	for i := from; i >= 0; i-- {
		p := all[i]
		if !p.IsHeading || p.HeadingLevel <= 0 || p.HeadingLevel > c.metadataMaxDepth {
			continue
		}
		switch p.HeadingLevel {
		case 1:
			if ctx.Titulo == "" {
				ctx.Titulo = p.Text
			}
		case 2:
			if ctx.Capitulo == "" {
				ctx.Capitulo = p.Text
			}
		case 3:
			if ctx.Secao == "" {
				ctx.Secao = p.Text
			}
		}
		if ctx.Titulo != "" && ctx.Capitulo != "" && ctx.Secao != "" {
			return
		}
	}
}

// sanitizeName lowercases the document name and replaces every
// non-alphanumeric run with a single hyphen.
func sanitizeName(name string) string {
	name = textnorm.NormalizeQuery(name)
	var b strings.Builder
	b.Grow(len(name))
	lastHyphen := true
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastHyphen = false
		} else if !lastHyphen {
			b.WriteByte('-')
			lastHyphen = true
		}
	}
	return strings.TrimRight(b.String(), "-")
}
