// Package openai transcribes page images with an OpenAI vision model.
package openai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/JaimeStill/document-context/pkg/document"
	"github.com/JaimeStill/document-context/pkg/encoding"
	openai "github.com/sashabaranov/go-openai"

	openaillm "github.com/custodia-labs/lexrag/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
)

// Ensure OCR implements the interface.
var _ driven.VisionOCR = (*OCR)(nil)

// Default configuration values.
const (
	DefaultModel   = "gpt-4o-mini"
	DefaultTimeout = 120 * time.Second

	systemPrompt = "You are an OCR assistant for legal documents."
)

// Config holds configuration for the OpenAI vision OCR.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration

	// Prompt is the transcription instruction sent with each image.
	Prompt string
}

// OCR sends page images to a vision-capable chat model.
type OCR struct {
	client *openai.Client
	model  string
	prompt string
}

// New creates an OpenAI vision OCR.
func New(cfg Config) (*OCR, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: API key is required")
	}
	if strings.TrimSpace(cfg.Prompt) == "" {
		return nil, fmt.Errorf("openai: OCR prompt is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &OCR{
		client: openaillm.NewClient(cfg.APIKey, cfg.BaseURL, cfg.Timeout),
		model:  cfg.Model,
		prompt: cfg.Prompt,
	}, nil
}

// OCR returns the text in a PNG page image at temperature 0.
func (o *OCR) OCR(ctx context.Context, png []byte) (string, error) {
	if len(png) == 0 {
		return "", fmt.Errorf("openai ocr: empty image")
	}

	dataURI, err := encoding.EncodeImageDataURI(png, document.PNG)
	if err != nil {
		return "", fmt.Errorf("encode image: %w", err)
	}

	req := openai.ChatCompletionRequest{
		Model:       o.model,
		Temperature: openaillm.Temperature(0),
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: o.prompt},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    dataURI,
							Detail: openai.ImageURLDetailHigh,
						},
					},
				},
			},
		},
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("openai ocr: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai ocr: no choices returned")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
