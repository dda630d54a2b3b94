package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCitations_DedupesByDocumentPage(t *testing.T) {
	chunks := []ScoredChunk{
		{Chunk: Chunk{DocumentID: "a", Collection: "Aviation", PageNumber: 2, Metadata: ChunkMetadata{SourceName: "Aviation.pdf"}}},
		{Chunk: Chunk{DocumentID: "a", Collection: "Aviation", PageNumber: 2, Metadata: ChunkMetadata{SourceName: "Aviation.pdf"}}},
		{Chunk: Chunk{DocumentID: "a", Collection: "Aviation", PageNumber: 5, Metadata: ChunkMetadata{SourceName: "Aviation.pdf"}}},
		{Chunk: Chunk{DocumentID: "b", Collection: "Rail", PageNumber: 1, Metadata: ChunkMetadata{SourcePath: "/acts/Rail.pdf"}}},
		{Chunk: Chunk{DocumentID: "c", Collection: "Rail", PageNumber: 1}},
	}

	got := Citations(chunks)

	assert.Equal(t, []Citation{
		{Collection: "Aviation", DocumentID: "a", Source: "Aviation.pdf", Page: 2},
		{Collection: "Aviation", DocumentID: "a", Source: "Aviation.pdf", Page: 5},
		{Collection: "Rail", DocumentID: "b", Source: "Rail.pdf", Page: 1},
		{Collection: "Rail", DocumentID: "c", Source: "c", Page: 1},
	}, got)
}

func TestCitations_Empty(t *testing.T) {
	got := Citations(nil)

	assert.NotNil(t, got)
	assert.Empty(t, got)
}
