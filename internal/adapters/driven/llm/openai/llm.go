// Package openai provides a completion service adapter using the OpenAI API.
package openai

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
)

// Ensure CompletionService implements the interface.
var _ driven.CompletionService = (*CompletionService)(nil)

// Default configuration values.
const (
	DefaultModel   = "gpt-4o-mini"
	DefaultTimeout = 120 * time.Second
)

// Config holds configuration for the OpenAI completion service.
type Config struct {
	// APIKey is the OpenAI API key (required).
	APIKey string

	// BaseURL overrides the API base URL for Azure OpenAI or compatible APIs.
	BaseURL string

	// Model is the default model (default: gpt-4o-mini).
	Model string

	// Timeout is the request timeout (default: 120s).
	Timeout time.Duration
}

// CompletionService answers prompts using OpenAI chat completions.
type CompletionService struct {
	client *openai.Client
	model  string
}

// NewClient builds a go-openai client. It is shared with the embedding
// and OCR adapters.
func NewClient(apiKey, baseURL string, timeout time.Duration) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if timeout > 0 {
		cfg.HTTPClient = &http.Client{Timeout: timeout}
	}
	return openai.NewClientWithConfig(cfg)
}

// NewCompletionService creates a new OpenAI completion service.
func NewCompletionService(cfg Config) (*CompletionService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &CompletionService{
		client: NewClient(cfg.APIKey, cfg.BaseURL, cfg.Timeout),
		model:  cfg.Model,
	}, nil
}

// Complete sends prompt as a single user message.
func (s *CompletionService) Complete(ctx context.Context, prompt string, opts driven.CompleteOptions) (string, error) {
	model := s.model
	if opts.Model != "" {
		model = opts.Model
	}

	req := openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: Temperature(opts.Temperature),
		MaxTokens:   opts.MaxTokens,
	}

	resp, err := s.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("create openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai chat completion returned no choices")
	}

	return resp.Choices[0].Message.Content, nil
}

// Temperature converts t for the request. The client omits a zero
// temperature, and the API then applies its default of 1.
func Temperature(t float64) float32 {
	if t <= 0 {
		return math.SmallestNonzeroFloat32
	}
	return float32(t)
}

// ModelName returns the default model.
func (s *CompletionService) ModelName() string {
	return s.model
}

// Ping validates the API key by listing models.
func (s *CompletionService) Ping(ctx context.Context) error {
	if _, err := s.client.ListModels(ctx); err != nil {
		return fmt.Errorf("openai: ping failed: %w", err)
	}
	return nil
}

// Close releases resources.
func (s *CompletionService) Close() error {
	return nil
}
