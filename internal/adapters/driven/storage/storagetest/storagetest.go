// Package storagetest provides conformance suites for the storage ports.
// Each backend's tests call the suites with a constructor for a fresh store.
package storagetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
)

// Chunk builds a chunk with a fixed embedding for suite fixtures.
func Chunk(docID string, page, ordinal int, text string, vec ...float32) domain.Chunk {
	return domain.Chunk{
		ID:         domain.ChunkID(docID, page, ordinal, -1),
		DocumentID: docID,
		PageNumber: page,
		Ordinal:    ordinal,
		Text:       text,
		Metadata: domain.ChunkMetadata{
			DocumentType: domain.DefaultDocumentType,
			Jurisdiction: domain.DefaultJurisdiction,
			UploadDate:   "2024-05-01",
			SourceName:   docID + ".pdf",
			SourcePath:   "/acts/" + docID + ".pdf",
		},
		Embedding: vec,
	}
}

// RunVectorStore exercises the driven.VectorStore contract.
func RunVectorStore(t *testing.T, open func(t *testing.T) driven.VectorStore) {
	t.Helper()
	ctx := context.Background()

	t.Run("unknown collection is empty", func(t *testing.T) {
		s := open(t)
		n, err := s.Count(ctx, "Missing-Base")
		require.NoError(t, err)
		assert.Zero(t, n)

		chunks, err := s.Chunks(ctx, "Missing-Base", nil)
		require.NoError(t, err)
		assert.Empty(t, chunks)

		hits, err := s.Query(ctx, "Missing-Base", []float32{1, 0, 0}, 3, nil)
		require.NoError(t, err)
		assert.Empty(t, hits)
	})

	t.Run("upsert then read back", func(t *testing.T) {
		s := open(t)
		in := Chunk("doca", 1, 0, "The minister may issue licences.", 1, 0, 0)
		require.NoError(t, s.Upsert(ctx, "Act-Base", []domain.Chunk{in}))

		chunks, err := s.Chunks(ctx, "Act-Base", nil)
		require.NoError(t, err)
		require.Len(t, chunks, 1)
		got := chunks[0]
		assert.Equal(t, in.ID, got.ID)
		assert.Equal(t, "Act-Base", got.Collection)
		assert.Equal(t, in.DocumentID, got.DocumentID)
		assert.Equal(t, 1, got.PageNumber)
		assert.Equal(t, in.Text, got.Text)
		assert.Equal(t, in.Metadata, got.Metadata)
		assert.InDeltaSlice(t, []float64{1, 0, 0}, toFloat64(got.Embedding), 1e-6)
	})

	t.Run("upsert same id overwrites", func(t *testing.T) {
		s := open(t)
		first := Chunk("doca", 1, 0, "old text", 1, 0, 0)
		second := Chunk("doca", 1, 0, "new text", 0, 1, 0)
		require.NoError(t, s.Upsert(ctx, "Act-Base", []domain.Chunk{first}))
		require.NoError(t, s.Upsert(ctx, "Act-Base", []domain.Chunk{second}))

		n, err := s.Count(ctx, "Act-Base")
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		chunks, err := s.Chunks(ctx, "Act-Base", nil)
		require.NoError(t, err)
		assert.Equal(t, "new text", chunks[0].Text)
	})

	t.Run("collections are isolated", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Upsert(ctx, "Act-Base", []domain.Chunk{Chunk("doca", 1, 0, "base", 1, 0, 0)}))
		require.NoError(t, s.Upsert(ctx, "Act-Amendment", []domain.Chunk{
			Chunk("docb", 1, 0, "amendment one", 1, 0, 0),
			Chunk("docb", 1, 1, "amendment two", 0, 1, 0),
		}))

		base, err := s.Count(ctx, "Act-Base")
		require.NoError(t, err)
		amend, err := s.Count(ctx, "Act-Amendment")
		require.NoError(t, err)
		assert.Equal(t, 1, base)
		assert.Equal(t, 2, amend)
	})

	t.Run("query orders by similarity", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Upsert(ctx, "Act-Base", []domain.Chunk{
			Chunk("doca", 1, 0, "far", 0, 0, 1),
			Chunk("doca", 1, 1, "near", 1, 0.1, 0),
			Chunk("docb", 2, 0, "exact", 1, 0, 0),
		}))

		hits, err := s.Query(ctx, "Act-Base", []float32{1, 0, 0}, 2, nil)

		require.NoError(t, err)
		require.Len(t, hits, 2)
		assert.Equal(t, "exact", hits[0].Chunk.Text)
		assert.Equal(t, "near", hits[1].Chunk.Text)
		assert.InDelta(t, 1.0, hits[0].Similarity, 1e-4)
		assert.Greater(t, hits[0].Similarity, hits[1].Similarity)
	})

	t.Run("filter restricts to one document", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Upsert(ctx, "Act-Base", []domain.Chunk{
			Chunk("doca", 1, 0, "a one", 1, 0, 0),
			Chunk("doca", 2, 0, "a two", 0, 1, 0),
			Chunk("docb", 1, 0, "b one", 1, 0, 0),
		}))
		filter := &domain.Filter{DocumentID: "doca"}

		chunks, err := s.Chunks(ctx, "Act-Base", filter)
		require.NoError(t, err)
		require.Len(t, chunks, 2)
		for _, c := range chunks {
			assert.Equal(t, "doca", c.DocumentID)
		}

		hits, err := s.Query(ctx, "Act-Base", []float32{1, 0, 0}, 5, filter)
		require.NoError(t, err)
		require.Len(t, hits, 2)
		for _, h := range hits {
			assert.Equal(t, "doca", h.Chunk.DocumentID)
		}
	})

	t.Run("chunks come back in id order", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Upsert(ctx, "Act-Base", []domain.Chunk{
			Chunk("docb", 1, 0, "b", 1, 0, 0),
			Chunk("doca", 1, 1, "a1", 1, 0, 0),
			Chunk("doca", 1, 0, "a0", 1, 0, 0),
		}))

		chunks, err := s.Chunks(ctx, "Act-Base", nil)

		require.NoError(t, err)
		ids := make([]string, len(chunks))
		for i, c := range chunks {
			ids[i] = c.ID
		}
		assert.IsIncreasing(t, ids)
	})
}

// RunCatalogStore exercises the driven.CatalogStore contract.
// reopen, when non-nil, returns a second store over the same persisted state.
func RunCatalogStore(t *testing.T, open func(t *testing.T) (driven.CatalogStore, func() driven.CatalogStore)) {
	t.Helper()
	ctx := context.Background()

	doc := func(id, name string) domain.Document {
		return domain.Document{
			ID:           id,
			SourceName:   name,
			SourcePath:   "/acts/" + name,
			UploadDate:   "2024-05-01",
			DocumentType: domain.DefaultDocumentType,
			Jurisdiction: domain.DefaultJurisdiction,
		}
	}

	t.Run("empty catalog", func(t *testing.T) {
		s, _ := open(t)
		names, err := s.Processed(ctx)
		require.NoError(t, err)
		assert.Empty(t, names)

		docs, err := s.Documents(ctx, "Act-Base")
		require.NoError(t, err)
		assert.Empty(t, docs)

		_, err = s.Document(ctx, "missing")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("processed keeps insertion order", func(t *testing.T) {
		s, _ := open(t)
		for _, name := range []string{"Zoning_Act-Base", "Aviation_Act-Base", "Zoning_Act-Amendment"} {
			require.NoError(t, s.MarkProcessed(ctx, name))
		}
		require.NoError(t, s.MarkProcessed(ctx, "Aviation_Act-Base"))

		names, err := s.Processed(ctx)

		require.NoError(t, err)
		assert.Equal(t, []string{"Zoning_Act-Base", "Aviation_Act-Base", "Zoning_Act-Amendment"}, names)
	})

	t.Run("documents keep insertion order", func(t *testing.T) {
		s, _ := open(t)
		require.NoError(t, s.SaveDocuments(ctx, "Act-Base", []domain.Document{doc("id2", "b.pdf"), doc("id1", "a.pdf")}))
		require.NoError(t, s.SaveDocuments(ctx, "Act-Base", []domain.Document{doc("id3", "c.pdf"), doc("id2", "b2.pdf")}))
		require.NoError(t, s.SaveDocuments(ctx, "Act-Amendment", []domain.Document{doc("id9", "z.pdf")}))

		docs, err := s.Documents(ctx, "Act-Base")
		require.NoError(t, err)
		require.Len(t, docs, 3)
		assert.Equal(t, "id2", docs[0].ID)
		assert.Equal(t, "b2.pdf", docs[0].SourceName)
		assert.Equal(t, "id1", docs[1].ID)
		assert.Equal(t, "id3", docs[2].ID)
		assert.Equal(t, "Act-Base", docs[0].Collection)

		got, err := s.Document(ctx, "id9")
		require.NoError(t, err)
		assert.Equal(t, "Act-Amendment", got.Collection)
		assert.Equal(t, "z.pdf", got.SourceName)
		assert.Equal(t, domain.DefaultJurisdiction, got.Jurisdiction)
	})

	t.Run("state survives reopen", func(t *testing.T) {
		s, reopen := open(t)
		if reopen == nil {
			t.Skip("store is not persistent")
		}
		require.NoError(t, s.SaveDocuments(ctx, "Act-Base", []domain.Document{doc("id1", "a.pdf")}))
		require.NoError(t, s.MarkProcessed(ctx, "Act-Base"))
		require.NoError(t, s.Close())

		again := reopen()
		defer again.Close()

		names, err := again.Processed(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"Act-Base"}, names)

		docs, err := again.Documents(ctx, "Act-Base")
		require.NoError(t, err)
		require.Len(t, docs, 1)
		assert.Equal(t, "a.pdf", docs[0].SourceName)
	})
}

func toFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, f := range v {
		out[i] = float64(f)
	}
	return out
}
