package gemini

import (
	"context"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
)

func TestNewCompletionService_RequiresAPIKey(t *testing.T) {
	svc, err := NewCompletionService(context.Background(), Config{})

	assert.ErrorContains(t, err, "API key is required")
	assert.Nil(t, svc)
}

func TestResponseText(t *testing.T) {
	tests := []struct {
		name string
		resp *genai.GenerateContentResponse
		want string
	}{
		{"nil response", nil, ""},
		{"no candidates", &genai.GenerateContentResponse{}, ""},
		{"nil content", &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{}}}, ""},
		{
			"joins text parts",
			&genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
				Content: &genai.Content{Parts: []genai.Part{
					genai.Text("Section 12 "),
					genai.Blob{MIMEType: "image/png"},
					genai.Text("applies."),
				}},
			}}},
			"Section 12 applies.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResponseText(tt.resp))
		})
	}
}
