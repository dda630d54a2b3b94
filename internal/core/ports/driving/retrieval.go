package driving

import (
	"context"

	"github.com/custodia-labs/lexrag/internal/core/domain"
)

// RetrievalService provides hybrid (lexical + dense) retrieval over a collection.
type RetrievalService interface {
	// Retrieve returns at most k chunks of collection ranked for question.
	// A non-nil filter with a DocumentID restricts every stage to that document.
	// An empty or unknown collection yields an empty result, not an error.
	Retrieve(ctx context.Context, question, collection string, k int, filter *domain.Filter) ([]domain.ScoredChunk, error)

	// RetrieveTopKPerDocument runs one document-filtered retrieval per ID,
	// giving every document the same k-slot budget.
	RetrieveTopKPerDocument(
		ctx context.Context, question, collection string, documentIDs []string, k int,
	) (map[string][]domain.ScoredChunk, error)
}
