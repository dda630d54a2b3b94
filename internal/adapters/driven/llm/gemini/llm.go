// Package gemini provides a completion service adapter using Google Gemini.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
)

// Ensure CompletionService implements the interface.
var _ driven.CompletionService = (*CompletionService)(nil)

// DefaultModel is the completion model used when none is configured.
const DefaultModel = "gemini-1.5-flash"

// Config holds configuration for the Gemini completion service.
type Config struct {
	// APIKey is the Gemini API key (required).
	APIKey string

	// Model is the default model (default: gemini-1.5-flash).
	Model string
}

// CompletionService answers prompts using Gemini GenerateContent.
type CompletionService struct {
	client *genai.Client
	model  string
}

// NewClient opens a genai client. It is shared with the embedding and OCR adapters.
func NewClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: API key is required")
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return cl, nil
}

// NewCompletionService creates a new Gemini completion service.
func NewCompletionService(ctx context.Context, cfg Config) (*CompletionService, error) {
	cl, err := NewClient(ctx, cfg.APIKey)
	if err != nil {
		return nil, err
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	return &CompletionService{client: cl, model: cfg.Model}, nil
}

// Complete generates a reply to prompt.
func (s *CompletionService) Complete(ctx context.Context, prompt string, opts driven.CompleteOptions) (string, error) {
	name := s.model
	if opts.Model != "" {
		name = opts.Model
	}

	m := s.client.GenerativeModel(name)
	m.SetTemperature(float32(opts.Temperature))
	if opts.MaxTokens > 0 {
		m.SetMaxOutputTokens(int32(opts.MaxTokens))
	}

	resp, err := m.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	return ResponseText(resp), nil
}

// ResponseText concatenates the text parts of the first candidate.
func ResponseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}

	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if t, ok := p.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return b.String()
}

// Ping lists one model to validate the API key.
func Ping(ctx context.Context, client *genai.Client) error {
	_, err := client.ListModels(ctx).Next()
	if err != nil && !errors.Is(err, iterator.Done) {
		return fmt.Errorf("gemini: ping failed: %w", err)
	}
	return nil
}

// ModelName returns the default model.
func (s *CompletionService) ModelName() string {
	return s.model
}

// Ping validates the service is reachable.
func (s *CompletionService) Ping(ctx context.Context) error {
	return Ping(ctx, s.client)
}

// Close releases the underlying client.
func (s *CompletionService) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}
