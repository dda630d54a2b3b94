// Package gemini provides an embedding service adapter using Google Gemini.
package gemini

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"

	geminillm "github.com/custodia-labs/lexrag/internal/adapters/driven/llm/gemini"
	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Default configuration values.
const (
	DefaultModel      = "text-embedding-004"
	DefaultDimensions = 768
)

// Config holds configuration for the Gemini embedding service.
type Config struct {
	APIKey     string
	Model      string
	Dimensions int
}

// EmbeddingService generates embeddings with Gemini batch embedding.
type EmbeddingService struct {
	client     *genai.Client
	model      string
	dimensions int
}

// NewEmbeddingService creates a new Gemini embedding service.
func NewEmbeddingService(ctx context.Context, cfg Config) (*EmbeddingService, error) {
	cl, err := geminillm.NewClient(ctx, cfg.APIKey)
	if err != nil {
		return nil, err
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Dimensions == 0 {
		cfg.Dimensions = DefaultDimensions
	}
	return &EmbeddingService{client: cl, model: cfg.Model, dimensions: cfg.Dimensions}, nil
}

// Embed generates a vector embedding for the given text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	res, err := s.client.EmbeddingModel(s.model).EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("gemini embed: %w", err)
	}
	if res.Embedding == nil {
		return nil, fmt.Errorf("gemini: no embedding returned")
	}
	return res.Embedding.Values, nil
}

// EmbedBatch batches all texts in one request.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	em := s.client.EmbeddingModel(s.model)
	batch := em.NewBatch()
	for _, t := range texts {
		batch.AddContent(genai.Text(t))
	}

	resp, err := em.BatchEmbedContents(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("gemini batch embed: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("gemini: expected %d embeddings, got %d", len(texts), len(resp.Embeddings))
	}

	out := make([][]float32, 0, len(resp.Embeddings))
	for _, e := range resp.Embeddings {
		out = append(out, e.Values)
	}
	return out, nil
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// ModelName returns the embedding model name.
func (s *EmbeddingService) ModelName() string {
	return s.model
}

// Ping validates the API key.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	return geminillm.Ping(ctx, s.client)
}

// Close releases the underlying client.
func (s *EmbeddingService) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}
