package domain

import "fmt"

// Chunk is the atomic retrieval unit: a contiguous span of page text.
type Chunk struct {
	// ID is "{document_id}-p{page}-c{i}", or "-c{i}-{j}" for a paragraph sub-split.
	// Re-ingesting the same file with the same chunking parameters
	// reproduces the same IDs, so upserts overwrite instead of duplicating.
	ID string

	// DocumentID links to the owning Document.
	DocumentID string

	// Collection is the collection the chunk is stored in.
	Collection string

	// PageNumber is the 1-based page the text came from.
	PageNumber int

	// Ordinal is the intra-page position.
	Ordinal int

	// Text is the chunk content.
	Text string

	// Metadata is copied from the owning Document at ingestion.
	Metadata ChunkMetadata

	// Embedding is the dense vector, set before upsert.
	Embedding []float32
}

// ChunkMetadata is the document metadata denormalised onto every chunk.
type ChunkMetadata struct {
	DocumentType string `json:"document_type"`
	Jurisdiction string `json:"jurisdiction"`
	UploadDate   string `json:"upload_date"`
	SourceName   string `json:"source_name"`
	SourcePath   string `json:"source_path"`
}

// MetadataFor returns the chunk metadata for doc.
func MetadataFor(doc Document) ChunkMetadata {
	return ChunkMetadata{
		DocumentType: doc.DocumentType,
		Jurisdiction: doc.Jurisdiction,
		UploadDate:   doc.UploadDate,
		SourceName:   doc.SourceName,
		SourcePath:   doc.SourcePath,
	}
}

// ChunkID builds the chunk identifier. A negative sub ordinal omits the suffix.
func ChunkID(documentID string, page, ordinal, sub int) string {
	if sub < 0 {
		return fmt.Sprintf("%s-p%d-c%d", documentID, page, ordinal)
	}
	return fmt.Sprintf("%s-p%d-c%d-%d", documentID, page, ordinal, sub)
}

// ScoredChunk is a chunk returned by retrieval with its per-stage scores.
type ScoredChunk struct {
	Chunk Chunk

	// Score is the final ranking score (fused, or rerank score when reranked).
	Score float64

	// Dense is the cosine similarity from the dense leg (0 if absent).
	Dense float64

	// Lexical is the BM25 score from the lexical leg (0 if absent).
	Lexical float64

	// Reranked is true when Score came from the cross-encoder.
	Reranked bool
}

// Filter narrows a retrieval to a subset of a collection.
type Filter struct {
	// DocumentID restricts candidates to one document when set.
	DocumentID string
}

// Matches reports whether c passes the filter. A nil filter matches everything.
func (f *Filter) Matches(c Chunk) bool {
	if f == nil || f.DocumentID == "" {
		return true
	}
	return c.DocumentID == f.DocumentID
}
