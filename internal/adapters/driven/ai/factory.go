// Package ai provides factory functions for creating AI service adapters.
package ai

import (
	"context"
	"fmt"
	"time"

	geminiembed "github.com/custodia-labs/lexrag/internal/adapters/driven/embedding/gemini"
	ollamaembed "github.com/custodia-labs/lexrag/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/lexrag/internal/adapters/driven/embedding/openai"
	anthropicllm "github.com/custodia-labs/lexrag/internal/adapters/driven/llm/anthropic"
	geminillm "github.com/custodia-labs/lexrag/internal/adapters/driven/llm/gemini"
	ollamallm "github.com/custodia-labs/lexrag/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/lexrag/internal/adapters/driven/llm/openai"
	geminiocr "github.com/custodia-labs/lexrag/internal/adapters/driven/ocr/gemini"
	openaiocr "github.com/custodia-labs/lexrag/internal/adapters/driven/ocr/openai"
	"github.com/custodia-labs/lexrag/internal/adapters/driven/rerank/tei"
	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// configHint is appended to provider errors.
const configHint = "Check the provider settings in config.toml in the data directory or the API key environment variables"

// CreateAndValidateEmbeddingService creates an embedding service and validates connectivity.
// Returns the service if successful, or an error with guidance.
func CreateAndValidateEmbeddingService(ctx context.Context, settings domain.ProviderSettings) (driven.EmbeddingService, error) {
	if !settings.IsConfigured() {
		return nil, fmt.Errorf("%w: provider %q is not configured. %s",
			domain.ErrEmbeddingUnavailable, settings.Provider, configHint)
	}

	svc, err := CreateEmbeddingService(ctx, settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. %s", domain.ErrEmbeddingUnavailable, err, configHint)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := svc.Ping(pingCtx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w). %s",
			domain.ErrEmbeddingUnavailable, err, configHint)
	}

	return svc, nil
}

// CreateAndValidateCompletionService creates a completion service and validates connectivity.
func CreateAndValidateCompletionService(ctx context.Context, settings domain.ProviderSettings) (driven.CompletionService, error) {
	if !settings.IsConfigured() {
		return nil, fmt.Errorf("%w: provider %q is not configured. %s",
			domain.ErrLLMUnavailable, settings.Provider, configHint)
	}

	svc, err := CreateCompletionService(ctx, settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. %s", domain.ErrLLMUnavailable, err, configHint)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := svc.Ping(pingCtx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w). %s",
			domain.ErrLLMUnavailable, err, configHint)
	}

	return svc, nil
}

// ValidateEmbeddingConfig validates an embedding configuration by creating a service and pinging it.
// Unconfigured settings are not an error.
func ValidateEmbeddingConfig(ctx context.Context, settings domain.ProviderSettings) error {
	if !settings.IsConfigured() {
		return nil
	}

	svc, err := CreateEmbeddingService(ctx, settings)
	if err != nil {
		return err
	}
	defer svc.Close()

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return svc.Ping(pingCtx)
}

// ValidateCompletionConfig validates a completion configuration by creating a service and pinging it.
func ValidateCompletionConfig(ctx context.Context, settings domain.ProviderSettings) error {
	if !settings.IsConfigured() {
		return nil
	}

	svc, err := CreateCompletionService(ctx, settings)
	if err != nil {
		return err
	}
	defer svc.Close()

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return svc.Ping(pingCtx)
}

// CreateEmbeddingService creates the embedding service for settings.Provider.
func CreateEmbeddingService(ctx context.Context, settings domain.ProviderSettings) (driven.EmbeddingService, error) {
	if !settings.Provider.IsValid() {
		return nil, fmt.Errorf("unsupported embedding provider: %q", settings.Provider)
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return createOllamaEmbedding(settings), nil

	case domain.AIProviderOpenAI:
		return createOpenAIEmbedding(settings)

	case domain.AIProviderGemini:
		return createGeminiEmbedding(ctx, settings)

	case domain.AIProviderAnthropic:
		// Anthropic does not offer an embeddings API.
		return nil, fmt.Errorf("anthropic does not support embeddings, use openai, ollama or gemini")

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %q", settings.Provider)
	}
}

// CreateCompletionService creates the completion service for settings.Provider.
func CreateCompletionService(ctx context.Context, settings domain.ProviderSettings) (driven.CompletionService, error) {
	switch settings.Provider {
	case domain.AIProviderOllama:
		return createOllamaLLM(settings), nil

	case domain.AIProviderOpenAI:
		return createOpenAILLM(settings)

	case domain.AIProviderAnthropic:
		return createAnthropicLLM(settings)

	case domain.AIProviderGemini:
		return createGeminiLLM(ctx, settings)

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %q", settings.Provider)
	}
}

// CreateVisionOCR creates the page OCR for settings.Provider. prompt is the
// transcription instruction sent with each image.
func CreateVisionOCR(ctx context.Context, settings domain.ProviderSettings, prompt string) (driven.VisionOCR, error) {
	switch settings.Provider {
	case domain.AIProviderOpenAI:
		return openaiocr.New(openaiocr.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
			Prompt:  prompt,
		})

	case domain.AIProviderGemini:
		return geminiocr.New(ctx, geminiocr.Config{
			APIKey: settings.APIKey,
			Model:  settings.Model,
			Prompt: prompt,
		})

	default:
		return nil, fmt.Errorf("provider %q does not support vision OCR, use openai or gemini", settings.Provider)
	}
}

// CreateReranker returns the cross-encoder client, or nil when reranking is off.
func CreateReranker(settings domain.RetrievalSettings) (driven.Reranker, error) {
	if !settings.Rerank {
		return nil, nil
	}
	r, err := tei.New(tei.Config{BaseURL: settings.RerankURL})
	if err != nil {
		return nil, err
	}
	return r, nil
}

func createOllamaEmbedding(settings domain.ProviderSettings) driven.EmbeddingService {
	dimensions := domain.EmbeddingDimensions()[settings.Model]
	if dimensions == 0 {
		dimensions = ollamaembed.DefaultDimensions
	}

	return ollamaembed.NewEmbeddingService(ollamaembed.Config{
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Dimensions: dimensions,
	})
}

func createOpenAIEmbedding(settings domain.ProviderSettings) (driven.EmbeddingService, error) {
	return openaiembed.NewEmbeddingService(openaiembed.Config{
		APIKey:     settings.APIKey,
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Dimensions: domain.EmbeddingDimensions()[settings.Model],
	})
}

func createGeminiEmbedding(ctx context.Context, settings domain.ProviderSettings) (driven.EmbeddingService, error) {
	return geminiembed.NewEmbeddingService(ctx, geminiembed.Config{
		APIKey:     settings.APIKey,
		Model:      settings.Model,
		Dimensions: domain.EmbeddingDimensions()[settings.Model],
	})
}

func createOllamaLLM(settings domain.ProviderSettings) driven.CompletionService {
	return ollamallm.NewCompletionService(ollamallm.Config{
		BaseURL: settings.BaseURL,
		Model:   settings.Model,
	})
}

func createOpenAILLM(settings domain.ProviderSettings) (driven.CompletionService, error) {
	return openaillm.NewCompletionService(openaillm.Config{
		APIKey:  settings.APIKey,
		BaseURL: settings.BaseURL,
		Model:   settings.Model,
	})
}

func createAnthropicLLM(settings domain.ProviderSettings) (driven.CompletionService, error) {
	return anthropicllm.NewCompletionService(anthropicllm.Config{
		APIKey:  settings.APIKey,
		BaseURL: settings.BaseURL,
		Model:   settings.Model,
	})
}

func createGeminiLLM(ctx context.Context, settings domain.ProviderSettings) (driven.CompletionService, error) {
	return geminillm.NewCompletionService(ctx, geminillm.Config{
		APIKey: settings.APIKey,
		Model:  settings.Model,
	})
}
