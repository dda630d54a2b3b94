// Package driven provides interfaces for infrastructure adapters (secondary/outbound ports).
package driven

import "context"

// CompletionService turns a prompt into text.
//
// Callers use temperature 0 for classification and extraction paths.
// Open-ended synthesis may use a higher temperature.
//
// Implementations may include:
//   - OpenAI (gpt-4o-mini)
//   - Google Gemini
//   - Anthropic (Claude)
//   - Ollama (local models)
type CompletionService interface {
	// Complete returns the model's reply to prompt.
	Complete(ctx context.Context, prompt string, opts CompleteOptions) (string, error)

	// ModelName returns the default model used when opts.Model is empty.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// CompleteOptions configures a single completion.
type CompleteOptions struct {
	// Model overrides the service's default model when non-empty.
	Model string

	// Temperature controls randomness (0.0 = deterministic).
	Temperature float64

	// MaxTokens is the maximum number of tokens to generate. Zero means provider default.
	MaxTokens int
}
