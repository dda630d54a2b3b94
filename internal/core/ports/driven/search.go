package driven

import (
	"context"

	"github.com/custodia-labs/lexrag/internal/core/domain"
)

// LexicalRanker ranks a candidate chunk set by term statistics (BM25).
// Rankers are pure: scores depend only on query and candidates.
type LexicalRanker interface {
	// Rank returns up to k hits with positive score, highest first.
	Rank(query string, candidates []domain.Chunk, k int) []LexicalHit
}

// LexicalHit represents a lexical ranking result.
type LexicalHit struct {
	// ChunkID is the matched chunk.
	ChunkID string

	// Score is the relevance score (e.g., BM25).
	Score float64
}

// Reranker re-scores (query, text) pairs with a cross-encoder.
type Reranker interface {
	// Rerank returns one score per text, in input order. Higher is more relevant.
	Rerank(ctx context.Context, query string, texts []string) ([]float64, error)
}
