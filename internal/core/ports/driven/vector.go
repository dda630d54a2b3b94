package driven

import (
	"context"

	"github.com/custodia-labs/lexrag/internal/core/domain"
)

// VectorStore is the embedding index. Chunks are partitioned by collection
// and keyed by chunk ID; upserting an existing ID overwrites it.
type VectorStore interface {
	// Upsert stores chunks (with embeddings) under collection.
	Upsert(ctx context.Context, collection string, chunks []domain.Chunk) error

	// Query returns up to k nearest chunks to vector, most similar first.
	// Only chunks passing filter are eligible.
	Query(ctx context.Context, collection string, vector []float32, k int, filter *domain.Filter) ([]VectorHit, error)

	// Chunks returns every chunk in collection passing filter, in ID order.
	// This is the candidate set for lexical ranking.
	Chunks(ctx context.Context, collection string, filter *domain.Filter) ([]domain.Chunk, error)

	// Count returns the number of chunks in collection. Unknown collections count zero.
	Count(ctx context.Context, collection string) (int, error)

	// Close releases resources.
	Close() error
}

// VectorHit represents a similarity search result.
type VectorHit struct {
	Chunk domain.Chunk

	// Similarity is the cosine similarity score.
	Similarity float64
}
