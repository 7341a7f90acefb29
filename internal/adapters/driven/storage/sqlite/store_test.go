package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/juristec/legisrag/internal/core/domain"
	"github.com/juristec/legisrag/internal/core/ports/driven"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testChunk(id string, artigo string, embedding []float32) domain.Chunk {
	return domain.Chunk{
		ID:   id,
		Text: "Art. " + artigo + " texto da lei",
		Metadata: domain.ChunkMetadata{
			Documento: "lei-8072",
			Artigo:    artigo,
			Tipo:      "content",
		},
		TokenCount: 25,
		Position:   0.5,
		Embedding:  embedding,
	}
}

func TestInsertAndGetByHash(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	doc := &domain.Document{Name: "lei-8072", SourcePath: "/docs/lei.docx", FileHash: "abc123"}
	chunks := []domain.Chunk{
		testChunk("lei-8072-0000", "1", []float32{1, 0, 0}),
		testChunk("lei-8072-0001", "2", []float32{0, 1, 0}),
	}
	require.NoError(t, s.InsertDocumentWithChunks(ctx, doc, chunks))

	assert.NotZero(t, doc.ID)
	assert.Equal(t, 2, doc.ChunkCount)
	assert.Equal(t, 50, doc.TokenCount)
	assert.Equal(t, doc.ID, chunks[0].DocumentID)

	got, err := s.GetDocumentByHash(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, doc.ID, got.ID)
	assert.Equal(t, "lei-8072", got.Name)
	assert.Equal(t, 2, got.ChunkCount)
}

func TestGetDocumentByHash_NotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetDocumentByHash(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestInsert_DuplicateHash(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := &domain.Document{Name: "original", SourcePath: "/a.docx", FileHash: "samehash"}
	require.NoError(t, s.InsertDocumentWithChunks(ctx, first, []domain.Chunk{
		testChunk("original-0000", "1", []float32{1, 0, 0}),
	}))

	second := &domain.Document{Name: "copia", SourcePath: "/b.docx", FileHash: "samehash"}
	err := s.InsertDocumentWithChunks(ctx, second, nil)

	var dupErr *domain.DuplicateDocumentError
	require.ErrorAs(t, err, &dupErr)
	assert.Equal(t, first.ID, dupErr.ExistingID)
	assert.Equal(t, "original", dupErr.ExistingName)
	assert.Equal(t, "samehash", dupErr.FileHash)

	// Nothing was persisted for the duplicate.
	docs, err := s.ListDocuments(ctx)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestSearch_OrderingAndThreshold(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	doc := &domain.Document{Name: "lei", SourcePath: "/l.docx", FileHash: "h1"}
	require.NoError(t, s.InsertDocumentWithChunks(ctx, doc, []domain.Chunk{
		testChunk("lei-0000", "1", []float32{1, 0, 0}),
		testChunk("lei-0001", "2", []float32{0.9, 0.1, 0}),
		testChunk("lei-0002", "3", []float32{0, 0, 1}),
	}))

	hits, err := s.Search(ctx, []float32{1, 0, 0}, 10, 0.5, nil)
	require.NoError(t, err)
	require.Len(t, hits, 2, "orthogonal chunk is below threshold")
	assert.Equal(t, "lei-0000", hits[0].Chunk.ID)
	assert.Equal(t, "lei-0001", hits[1].Chunk.ID)
	assert.Greater(t, hits[0].Similarity, hits[1].Similarity)
}

func TestSearch_LimitAndMetadataRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	doc := &domain.Document{Name: "lei", SourcePath: "/l.docx", FileHash: "h1"}
	chunk := testChunk("lei-0000", "121", []float32{1, 0, 0})
	chunk.Metadata.MarcaSTF = true
	chunk.Metadata.Banca = "FGV"
	require.NoError(t, s.InsertDocumentWithChunks(ctx, doc, []domain.Chunk{chunk}))

	hits, err := s.Search(ctx, []float32{1, 0, 0}, 1, 0, nil)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "121", hits[0].Chunk.Metadata.Artigo)
	assert.True(t, hits[0].Chunk.Metadata.MarcaSTF)
	assert.Equal(t, "FGV", hits[0].Chunk.Metadata.Banca)
	assert.Equal(t, []float32{1, 0, 0}, hits[0].Chunk.Embedding)
}

func TestSearch_Filters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	docA := &domain.Document{Name: "a", SourcePath: "/a.docx", FileHash: "ha"}
	require.NoError(t, s.InsertDocumentWithChunks(ctx, docA, []domain.Chunk{
		testChunk("a-0000", "1", []float32{1, 0, 0}),
	}))

	docB := &domain.Document{Name: "b", SourcePath: "/b.docx", FileHash: "hb"}
	stfChunk := testChunk("b-0000", "", []float32{1, 0, 0})
	stfChunk.Metadata.MarcaSTF = true
	require.NoError(t, s.InsertDocumentWithChunks(ctx, docB, []domain.Chunk{stfChunk}))

	// Document filter pushed into SQL.
	hits, err := s.Search(ctx, []float32{1, 0, 0}, 10, 0, &driven.SearchFilter{DocumentID: docA.ID})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "a-0000", hits[0].Chunk.ID)

	// Present filter: only the chunk with a non-empty artigo.
	hits, err = s.Search(ctx, []float32{1, 0, 0}, 10, 0, &driven.SearchFilter{Present: []string{"artigo"}})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "a-0000", hits[0].Chunk.ID)

	// Any (OR group): STF or STJ marker.
	hits, err = s.Search(ctx, []float32{1, 0, 0}, 10, 0, &driven.SearchFilter{
		Any: []driven.FieldMatch{
			{Field: "marca_stf", Value: true},
			{Field: "marca_stj", Value: true},
		},
	})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "b-0000", hits[0].Chunk.ID)
}

func TestDeleteDocument_Cascades(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	doc := &domain.Document{Name: "lei", SourcePath: "/l.docx", FileHash: "h1"}
	require.NoError(t, s.InsertDocumentWithChunks(ctx, doc, []domain.Chunk{
		testChunk("lei-0000", "1", []float32{1, 0, 0}),
	}))

	require.NoError(t, s.DeleteDocument(ctx, doc.ID))

	hits, err := s.Search(ctx, []float32{1, 0, 0}, 10, 0, nil)
	require.NoError(t, err)
	assert.Empty(t, hits)

	assert.ErrorIs(t, s.DeleteDocument(ctx, doc.ID), domain.ErrNotFound)
}

func TestDeleteAll(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i, hash := range []string{"h1", "h2"} {
		doc := &domain.Document{Name: "d", SourcePath: "/d.docx", FileHash: hash}
		require.NoError(t, s.InsertDocumentWithChunks(ctx, doc, []domain.Chunk{
			testChunk(fmt.Sprintf("d-%04d", i), "1", []float32{1, 0, 0}),
		}))
	}

	require.NoError(t, s.DeleteAll(ctx))

	docs, err := s.ListDocuments(ctx)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestMigrationsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s1, err := NewStore(path)
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	// Reopening re-runs the migration check against schema_migrations.
	s2, err := NewStore(path)
	require.NoError(t, err)
	assert.NoError(t, s2.Close())
}
