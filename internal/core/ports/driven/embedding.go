package driven

import "context"

// EmbeddingService generates vector embeddings from text.
//
// Note: This is separate from VectorStore which stores and searches vectors.
// EmbeddingService generates vectors; VectorStore stores them. The same
// model must embed chunks at ingestion and questions at query time.
//
// Implementations may include:
//   - OpenAI (text-embedding-3-small, text-embedding-3-large)
//   - Ollama (nomic-embed-text, all-minilm)
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts efficiently.
	// This is more efficient than calling Embed in a loop for large batches.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size (e.g., 384, 1536, 3072).
	// This is determined by the model and must match the VectorStore schema.
	Dimensions() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	// This is used at startup to verify connectivity before ingesting.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
