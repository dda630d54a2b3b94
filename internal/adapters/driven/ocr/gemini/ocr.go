// Package gemini transcribes page images with a Gemini vision model.
package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"

	geminillm "github.com/custodia-labs/lexrag/internal/adapters/driven/llm/gemini"
	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
)

// Ensure OCR implements the interface.
var _ driven.VisionOCR = (*OCR)(nil)

const systemPrompt = "You are an OCR assistant for legal documents."

// Config holds configuration for the Gemini vision OCR.
type Config struct {
	APIKey string
	Model  string

	// Prompt is the transcription instruction sent with each image.
	Prompt string
}

// OCR sends page images to a Gemini model.
type OCR struct {
	client *genai.Client
	model  string
	prompt string
}

// New creates a Gemini vision OCR.
func New(ctx context.Context, cfg Config) (*OCR, error) {
	if strings.TrimSpace(cfg.Prompt) == "" {
		return nil, fmt.Errorf("gemini: OCR prompt is required")
	}
	cl, err := geminillm.NewClient(ctx, cfg.APIKey)
	if err != nil {
		return nil, err
	}
	if cfg.Model == "" {
		cfg.Model = geminillm.DefaultModel
	}
	return &OCR{client: cl, model: cfg.Model, prompt: cfg.Prompt}, nil
}

// OCR returns the text in a PNG page image at temperature 0.
func (o *OCR) OCR(ctx context.Context, png []byte) (string, error) {
	if len(png) == 0 {
		return "", fmt.Errorf("gemini ocr: empty image")
	}

	m := o.client.GenerativeModel(o.model)
	m.SetTemperature(0)
	m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(systemPrompt)}}

	resp, err := m.GenerateContent(ctx, genai.Text(o.prompt), genai.ImageData("png", png))
	if err != nil {
		return "", fmt.Errorf("gemini ocr: %w", err)
	}
	return strings.TrimSpace(geminillm.ResponseText(resp)), nil
}

// Close releases the underlying client.
func (o *OCR) Close() error {
	return o.client.Close()
}
