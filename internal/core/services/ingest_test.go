package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/juristec/legisrag/internal/adapters/driven/storage/memory"
	"github.com/juristec/legisrag/internal/core/domain"
	"github.com/juristec/legisrag/internal/metadata"
	"github.com/juristec/legisrag/internal/parsers"
	"github.com/juristec/legisrag/internal/postprocessors/chunker"
)

// stubParser returns canned paragraphs for any file it claims to support.
type stubParser struct {
	exts   []string
	paras  []domain.Paragraph
	failOn string
}

func (p *stubParser) Extensions() []string { return p.exts }

func (p *stubParser) Parse(_ context.Context, path string) ([]domain.Paragraph, error) {
	if p.failOn != "" && strings.Contains(path, p.failOn) {
		return nil, &domain.ParseError{Path: path, Err: errors.New("corrupt container")}
	}
	return p.paras, nil
}

func legalParagraphs() []domain.Paragraph {
	return []domain.Paragraph{
		{Text: "TÍTULO II Dos Direitos e Garantias Fundamentais", IsHeading: true, HeadingLevel: 1},
		{Text: "Art. 5º Todos são iguais perante a lei, sem distinção de qualquer natureza, garantindo-se a inviolabilidade do direito à vida."},
		{Text: "I - homens e mulheres são iguais em direitos e obrigações, nos termos desta Constituição."},
		{Text: "II - ninguém será obrigado a fazer ou deixar de fazer alguma coisa senão em virtude de lei."},
	}
}

func newTestIngest(t *testing.T, store *memory.Store, parser *stubParser, embedder *stubEmbedder) *IngestService {
	t.Helper()
	settings := querySettings()
	settings.MaxTokens = 40
	settings.OverlapTokens = 5
	settings.MinChunkSize = 2

	chk := chunker.New(metadata.New(),
		chunker.WithMaxTokens(settings.MaxTokens),
		chunker.WithOverlapTokens(settings.OverlapTokens),
		chunker.WithMinChunkSize(settings.MinChunkSize),
	)
	return NewIngestService(store, embedder, parsers.NewRegistry(parser), chk, settings)
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestIngestFile_Success(t *testing.T) {
	store := memory.NewStore()
	embedder := &stubEmbedder{dims: 3, vec: vecAt(1)}
	parser := &stubParser{exts: []string{".docx"}, paras: legalParagraphs()}
	svc := newTestIngest(t, store, parser, embedder)

	path := writeFile(t, t.TempDir(), "constituicao.docx", "conteudo original")

	doc, err := svc.IngestFile(context.Background(), path, "")
	require.NoError(t, err)

	assert.NotZero(t, doc.ID)
	assert.Equal(t, "constituicao", doc.Name)
	assert.Len(t, doc.FileHash, 64)
	assert.Greater(t, doc.ChunkCount, 0)
	assert.Greater(t, doc.TokenCount, 0)
	assert.Equal(t, 1, embedder.batchCalls)

	listed, err := svc.ListDocuments(context.Background())
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, doc.ID, listed[0].ID)
}

func TestIngestFile_CustomName(t *testing.T) {
	store := memory.NewStore()
	parser := &stubParser{exts: []string{".docx"}, paras: legalParagraphs()}
	svc := newTestIngest(t, store, parser, &stubEmbedder{dims: 3, vec: vecAt(1)})

	path := writeFile(t, t.TempDir(), "cf-88-consolidada.docx", "conteudo")

	doc, err := svc.IngestFile(context.Background(), path, "Constituição Federal")
	require.NoError(t, err)

	assert.Equal(t, "Constituição Federal", doc.Name)

	// Chunk IDs derive from the supplied name, not the file basename.
	hits, err := store.Search(context.Background(), vecAt(1), 1, 0, nil)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Contains(t, hits[0].Chunk.ID, "constituicao-federal-")
}

func TestIngestFile_DuplicateContent(t *testing.T) {
	store := memory.NewStore()
	parser := &stubParser{exts: []string{".docx"}, paras: legalParagraphs()}
	svc := newTestIngest(t, store, parser, &stubEmbedder{dims: 3, vec: vecAt(1)})

	dir := t.TempDir()
	first := writeFile(t, dir, "original.docx", "mesmo conteudo")
	second := writeFile(t, dir, "copia.docx", "mesmo conteudo")

	doc, err := svc.IngestFile(context.Background(), first, "")
	require.NoError(t, err)

	_, err = svc.IngestFile(context.Background(), second, "")
	var dup *domain.DuplicateDocumentError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, doc.ID, dup.ExistingID)
	assert.Equal(t, "original", dup.ExistingName)

	// The duplicate never reached the store.
	listed, err := svc.ListDocuments(context.Background())
	require.NoError(t, err)
	assert.Len(t, listed, 1)
}

func TestIngestFile_UnsupportedExtension(t *testing.T) {
	parser := &stubParser{exts: []string{".docx"}, paras: legalParagraphs()}
	svc := newTestIngest(t, memory.NewStore(), parser, &stubEmbedder{dims: 3, vec: vecAt(1)})

	path := writeFile(t, t.TempDir(), "planilha.xlsx", "dados")

	_, err := svc.IngestFile(context.Background(), path, "")
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
}

func TestIngestFile_MissingFile(t *testing.T) {
	parser := &stubParser{exts: []string{".docx"}, paras: legalParagraphs()}
	svc := newTestIngest(t, memory.NewStore(), parser, &stubEmbedder{dims: 3, vec: vecAt(1)})

	_, err := svc.IngestFile(context.Background(), filepath.Join(t.TempDir(), "nada.docx"), "")
	var ingestErr *domain.IngestError
	require.ErrorAs(t, err, &ingestErr)
	assert.Equal(t, "read", ingestErr.Stage)
}

func TestIngestFile_EmptyParse(t *testing.T) {
	parser := &stubParser{exts: []string{".docx"}}
	svc := newTestIngest(t, memory.NewStore(), parser, &stubEmbedder{dims: 3, vec: vecAt(1)})

	path := writeFile(t, t.TempDir(), "vazio.docx", "so espacos")

	_, err := svc.IngestFile(context.Background(), path, "")
	assert.ErrorIs(t, err, domain.ErrEmptyDocument)
}

func TestIngestFile_DimensionMismatch(t *testing.T) {
	parser := &stubParser{exts: []string{".docx"}, paras: legalParagraphs()}
	// Vector length 2 against configured dimension 3.
	embedder := &stubEmbedder{dims: 2, vec: []float32{1, 0}}
	svc := newTestIngest(t, memory.NewStore(), parser, embedder)

	path := writeFile(t, t.TempDir(), "constituicao.docx", "conteudo")

	_, err := svc.IngestFile(context.Background(), path, "")
	var vErr *domain.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, 3, vErr.Details["expected"])
	assert.Equal(t, 2, vErr.Details["got"])
}

func TestIngestFile_EmbedFailure(t *testing.T) {
	parser := &stubParser{exts: []string{".docx"}, paras: legalParagraphs()}
	embedder := &stubEmbedder{dims: 3, err: errors.New("rate limit")}
	svc := newTestIngest(t, memory.NewStore(), parser, embedder)

	path := writeFile(t, t.TempDir(), "constituicao.docx", "conteudo")

	_, err := svc.IngestFile(context.Background(), path, "")
	var ingestErr *domain.IngestError
	require.ErrorAs(t, err, &ingestErr)
	assert.Equal(t, "embed", ingestErr.Stage)

	// Nothing persisted on failure.
	listed, err := svc.ListDocuments(context.Background())
	require.NoError(t, err)
	assert.Empty(t, listed)
}

func TestReindex(t *testing.T) {
	store := memory.NewStore()
	parser := &stubParser{exts: []string{".docx"}, paras: legalParagraphs(), failOn: "quebrado"}
	svc := newTestIngest(t, store, parser, &stubEmbedder{dims: 3, vec: vecAt(1)})
	ctx := context.Background()

	// Pre-existing content must be wiped by the rebuild.
	stale := writeFile(t, t.TempDir(), "antigo.docx", "conteudo antigo")
	_, err := svc.IngestFile(ctx, stale, "")
	require.NoError(t, err)

	dir := t.TempDir()
	writeFile(t, dir, "constituicao.docx", "conteudo um")
	writeFile(t, dir, "penal.docx", "conteudo dois")
	writeFile(t, dir, "quebrado.docx", "conteudo tres")
	writeFile(t, dir, "notas.txt", "ignorado")

	result, err := svc.Reindex(ctx, dir)
	require.NoError(t, err)

	assert.Equal(t, 2, result.DocumentsCount)
	assert.Greater(t, result.ChunksCount, 0)
	require.Len(t, result.FailedFiles, 1)
	assert.Contains(t, result.FailedFiles[0], "quebrado.docx")
	assert.Greater(t, result.Duration, time.Duration(0))

	listed, err := svc.ListDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	for _, d := range listed {
		assert.NotEqual(t, "antigo", d.Name)
	}
}

func TestReindex_DuplicateContentSkipped(t *testing.T) {
	parser := &stubParser{exts: []string{".docx"}, paras: legalParagraphs()}
	svc := newTestIngest(t, memory.NewStore(), parser, &stubEmbedder{dims: 3, vec: vecAt(1)})

	dir := t.TempDir()
	writeFile(t, dir, "original.docx", "mesmo conteudo")
	writeFile(t, dir, "replica.docx", "mesmo conteudo")

	result, err := svc.Reindex(context.Background(), dir)
	require.NoError(t, err)

	// The duplicate is skipped silently, not counted as a failure.
	assert.Equal(t, 1, result.DocumentsCount)
	assert.Empty(t, result.FailedFiles)
}

func TestReindex_NotADirectory(t *testing.T) {
	parser := &stubParser{exts: []string{".docx"}, paras: legalParagraphs()}
	svc := newTestIngest(t, memory.NewStore(), parser, &stubEmbedder{dims: 3, vec: vecAt(1)})

	file := writeFile(t, t.TempDir(), "arquivo.docx", "conteudo")

	_, err := svc.Reindex(context.Background(), file)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.Reindex(context.Background(), filepath.Join(t.TempDir(), "inexistente"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestDeleteDocument(t *testing.T) {
	store := memory.NewStore()
	parser := &stubParser{exts: []string{".docx"}, paras: legalParagraphs()}
	svc := newTestIngest(t, store, parser, &stubEmbedder{dims: 3, vec: vecAt(1)})
	ctx := context.Background()

	path := writeFile(t, t.TempDir(), "constituicao.docx", "conteudo")
	doc, err := svc.IngestFile(ctx, path, "")
	require.NoError(t, err)

	require.NoError(t, svc.DeleteDocument(ctx, doc.ID))
	assert.ErrorIs(t, svc.DeleteDocument(ctx, doc.ID), domain.ErrNotFound)
}
