package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pngHeader is enough for the data URI encoder; the server never decodes it.
var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{Prompt: "transcribe"})
	assert.ErrorContains(t, err, "API key")

	_, err = New(Config{APIKey: "k"})
	assert.ErrorContains(t, err, "prompt")
}

func TestOCR_SendsImageAndInstruction(t *testing.T) {
	var got struct {
		Messages []struct {
			Role    string          `json:"role"`
			Content json.RawMessage `json:"content"`
		} `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  SECTION 1\nShort title  "}}]}`))
	}))
	defer srv.Close()

	o, err := New(Config{APIKey: "k", BaseURL: srv.URL, Prompt: "Transcribe this page."})
	require.NoError(t, err)

	text, err := o.OCR(context.Background(), pngHeader)

	require.NoError(t, err)
	assert.Equal(t, "SECTION 1\nShort title", text)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Contains(t, string(got.Messages[0].Content), "OCR assistant for legal documents")
	user := string(got.Messages[1].Content)
	assert.Contains(t, user, "Transcribe this page.")
	assert.True(t, strings.Contains(user, "data:image/png;base64,"))
}

func TestOCR_EmptyImage(t *testing.T) {
	o, err := New(Config{APIKey: "k", Prompt: "p"})
	require.NoError(t, err)

	_, err = o.OCR(context.Background(), nil)

	assert.ErrorContains(t, err, "empty image")
}

func TestOCR_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":{"message":"overloaded"}}`))
	}))
	defer srv.Close()

	o, err := New(Config{APIKey: "k", BaseURL: srv.URL, Prompt: "p"})
	require.NoError(t, err)

	_, err = o.OCR(context.Background(), pngHeader)

	assert.Error(t, err)
}
