package ai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/lexrag/internal/core/domain"
)

func newOllamaServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/tags" {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"models":[]}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCreateEmbeddingService(t *testing.T) {
	tests := []struct {
		name        string
		settings    domain.ProviderSettings
		wantErr     bool
		errContains string
	}{
		{
			name: "ollama provider creates service",
			settings: domain.ProviderSettings{
				Provider: domain.AIProviderOllama,
				BaseURL:  "http://localhost:11434",
				Model:    "nomic-embed-text",
			},
		},
		{
			name: "openai provider creates service",
			settings: domain.ProviderSettings{
				Provider: domain.AIProviderOpenAI,
				APIKey:   "test-key",
				Model:    "text-embedding-3-small",
			},
		},
		{
			name: "openai without key fails",
			settings: domain.ProviderSettings{
				Provider: domain.AIProviderOpenAI,
			},
			wantErr:     true,
			errContains: "API key is required",
		},
		{
			name: "gemini without key fails",
			settings: domain.ProviderSettings{
				Provider: domain.AIProviderGemini,
			},
			wantErr:     true,
			errContains: "API key is required",
		},
		{
			name: "anthropic provider returns error",
			settings: domain.ProviderSettings{
				Provider: domain.AIProviderAnthropic,
				APIKey:   "test-key",
			},
			wantErr:     true,
			errContains: "anthropic does not support embeddings",
		},
		{
			name: "unknown provider returns error",
			settings: domain.ProviderSettings{
				Provider: "unknown",
				APIKey:   "test-key",
			},
			wantErr:     true,
			errContains: "unsupported embedding provider",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := CreateEmbeddingService(context.Background(), tt.settings)

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, svc)
			assert.Equal(t, tt.settings.Model, svc.ModelName())
			svc.Close()
		})
	}
}

func TestCreateEmbeddingService_OllamaDimensions(t *testing.T) {
	svc, err := CreateEmbeddingService(context.Background(), domain.ProviderSettings{
		Provider: domain.AIProviderOllama,
		Model:    "mxbai-embed-large",
	})

	require.NoError(t, err)
	assert.Equal(t, 1024, svc.Dimensions())
}

func TestCreateCompletionService(t *testing.T) {
	tests := []struct {
		name        string
		settings    domain.ProviderSettings
		wantErr     bool
		errContains string
	}{
		{
			name:     "ollama provider creates service",
			settings: domain.ProviderSettings{Provider: domain.AIProviderOllama, Model: "llama3.2"},
		},
		{
			name:     "openai provider creates service",
			settings: domain.ProviderSettings{Provider: domain.AIProviderOpenAI, APIKey: "k", Model: "gpt-4o-mini"},
		},
		{
			name:     "anthropic provider creates service",
			settings: domain.ProviderSettings{Provider: domain.AIProviderAnthropic, APIKey: "k", Model: "claude-3-5-sonnet-latest"},
		},
		{
			name:        "anthropic without key fails",
			settings:    domain.ProviderSettings{Provider: domain.AIProviderAnthropic},
			wantErr:     true,
			errContains: "API key is required",
		},
		{
			name:        "unknown provider fails",
			settings:    domain.ProviderSettings{Provider: "mistral"},
			wantErr:     true,
			errContains: "unsupported LLM provider",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := CreateCompletionService(context.Background(), tt.settings)

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, svc)
			assert.Equal(t, tt.settings.Model, svc.ModelName())
		})
	}
}

func TestCreateVisionOCR(t *testing.T) {
	ocr, err := CreateVisionOCR(context.Background(), domain.ProviderSettings{
		Provider: domain.AIProviderOpenAI,
		APIKey:   "k",
		Model:    "gpt-4o-mini",
	}, "Transcribe the page.")
	require.NoError(t, err)
	assert.NotNil(t, ocr)

	_, err = CreateVisionOCR(context.Background(), domain.ProviderSettings{
		Provider: domain.AIProviderOllama,
	}, "Transcribe the page.")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not support vision OCR")
}

func TestCreateReranker(t *testing.T) {
	r, err := CreateReranker(domain.RetrievalSettings{})
	require.NoError(t, err)
	assert.Nil(t, r)

	r, err = CreateReranker(domain.RetrievalSettings{Rerank: true, RerankURL: "http://localhost:8080"})
	require.NoError(t, err)
	assert.NotNil(t, r)

	_, err = CreateReranker(domain.RetrievalSettings{Rerank: true})
	assert.Error(t, err)
}

func TestCreateAndValidateCompletionService(t *testing.T) {
	srv := newOllamaServer(t)

	svc, err := CreateAndValidateCompletionService(context.Background(), domain.ProviderSettings{
		Provider: domain.AIProviderOllama,
		BaseURL:  srv.URL,
		Model:    "llama3.2",
	})

	require.NoError(t, err)
	require.NotNil(t, svc)
}

func TestCreateAndValidateCompletionService_Unreachable(t *testing.T) {
	_, err := CreateAndValidateCompletionService(context.Background(), domain.ProviderSettings{
		Provider: domain.AIProviderOllama,
		BaseURL:  "http://127.0.0.1:1",
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
	assert.Contains(t, err.Error(), "service unreachable")
}

func TestCreateAndValidateCompletionService_Unconfigured(t *testing.T) {
	_, err := CreateAndValidateCompletionService(context.Background(), domain.ProviderSettings{
		Provider: domain.AIProviderOpenAI,
	})

	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
}

func TestCreateAndValidateEmbeddingService(t *testing.T) {
	srv := newOllamaServer(t)

	svc, err := CreateAndValidateEmbeddingService(context.Background(), domain.ProviderSettings{
		Provider: domain.AIProviderOllama,
		BaseURL:  srv.URL,
		Model:    "nomic-embed-text",
	})

	require.NoError(t, err)
	assert.Equal(t, 768, svc.Dimensions())
}

func TestCreateAndValidateEmbeddingService_Anthropic(t *testing.T) {
	_, err := CreateAndValidateEmbeddingService(context.Background(), domain.ProviderSettings{
		Provider: domain.AIProviderAnthropic,
		APIKey:   "k",
	})

	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}
