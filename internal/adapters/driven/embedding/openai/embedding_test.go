package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEmbeddingService(t *testing.T) {
	tests := []struct {
		name     string
		cfg      Config
		wantDims int
		wantErr  bool
	}{
		{"missing key", Config{}, 0, true},
		{"default model", Config{APIKey: "k"}, 1536, false},
		{"large model", Config{APIKey: "k", Model: "text-embedding-3-large"}, 3072, false},
		{"explicit dims", Config{APIKey: "k", Dimensions: 256}, 256, false},
		{"unknown model", Config{APIKey: "k", Model: "custom"}, 1536, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := NewEmbeddingService(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantDims, svc.Dimensions())
		})
	}
}

func TestEmbedBatch_OrdersByIndex(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[
			{"object":"embedding","index":1,"embedding":[0.0,1.0]},
			{"object":"embedding","index":0,"embedding":[1.0,0.0]}
		]}`))
	}))
	defer srv.Close()

	svc, err := NewEmbeddingService(Config{APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)

	vecs, err := svc.EmbedBatch(context.Background(), []string{"first", "second"})

	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 0}, {0, 1}}, vecs)
	assert.Equal(t, DefaultModel, got["model"])
	assert.Equal(t, float64(1536), got["dimensions"])
}

func TestEmbedBatch_CountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[{"index":0,"embedding":[1.0]}]}`))
	}))
	defer srv.Close()

	svc, err := NewEmbeddingService(Config{APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = svc.EmbedBatch(context.Background(), []string{"a", "b"})

	assert.ErrorContains(t, err, "expected 2 embeddings")
}

func TestEmbedBatch_Empty(t *testing.T) {
	svc, err := NewEmbeddingService(Config{APIKey: "k"})
	require.NoError(t, err)

	vecs, err := svc.EmbedBatch(context.Background(), nil)

	assert.NoError(t, err)
	assert.Nil(t, vecs)
}

func TestEmbed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[{"index":0,"embedding":[0.5,0.5]}]}`))
	}))
	defer srv.Close()

	svc, err := NewEmbeddingService(Config{APIKey: "k", BaseURL: srv.URL, Model: "text-embedding-ada-002"})
	require.NoError(t, err)

	vec, err := svc.Embed(context.Background(), "query")

	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 0.5}, vec)
	assert.Equal(t, "text-embedding-ada-002", svc.ModelName())
}
