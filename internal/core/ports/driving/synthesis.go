package driving

import (
	"context"

	"github.com/custodia-labs/lexrag/internal/core/domain"
)

// SynthesisService merges per-document evidence into one answer.
type SynthesisService interface {
	// Synthesize runs one map completion per document, then a single reduce
	// completion over the map answers. Documents render in the order of docs.
	Synthesize(
		ctx context.Context,
		question string,
		perDocument map[string][]domain.ScoredChunk,
		docs []domain.Document,
		opts SynthesisOptions,
	) (*SynthesisResult, error)
}

// SynthesisOptions configures the completion calls of one synthesis.
type SynthesisOptions struct {
	Model       string
	Temperature float64
}

// SynthesisResult is the outcome of map-reduce synthesis.
type SynthesisResult struct {
	Answer string

	// DocumentAnswers holds the map answer per document ID.
	DocumentAnswers map[string]string

	// Order is the document ID order used in the reduce prompt.
	Order []string

	// Reduced is false when the reduce call was skipped.
	Reduced bool

	// MapFailures counts map calls that failed.
	MapFailures int
}

// AskService answers a question over whole collections with map-reduce synthesis.
type AskService interface {
	Ask(ctx context.Context, question string, opts AskOptions) (*SynthesisResult, error)
}

// AskOptions configures one Ask call. Zero values take configured defaults.
type AskOptions struct {
	KPerDoc     int
	Model       string
	Temperature *float64

	// Collections restricts the question to these collections. Empty means all.
	Collections []string
}
