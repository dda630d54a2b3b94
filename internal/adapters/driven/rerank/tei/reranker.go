// Package tei provides a cross-encoder reranker backed by a
// text-embeddings-inference compatible /rerank endpoint.
package tei

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
)

// Ensure Reranker implements the interface.
var _ driven.Reranker = (*Reranker)(nil)

// DefaultTimeout is the request timeout.
const DefaultTimeout = 30 * time.Second

// Config holds configuration for the reranker.
type Config struct {
	// BaseURL is the server root; /rerank is appended (required).
	BaseURL string

	// APIKey is sent as a bearer token when set.
	APIKey string

	Timeout time.Duration
}

// Reranker scores (query, text) pairs remotely.
type Reranker struct {
	client  *http.Client
	baseURL string
	apiKey  string
}

type rerankRequest struct {
	Query     string   `json:"query"`
	Texts     []string `json:"texts"`
	RawScores bool     `json:"raw_scores"`
	Truncate  bool     `json:"truncate"`
}

type rerankHit struct {
	Index int     `json:"index"`
	Score float64 `json:"score"`
}

// New creates a reranker.
func New(cfg Config) (*Reranker, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("rerank: base URL is required")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Reranker{
		client:  &http.Client{Timeout: cfg.Timeout},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
	}, nil
}

// Rerank returns one score per text, in input order.
func (r *Reranker) Rerank(ctx context.Context, query string, texts []string) ([]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	jsonBody, err := json.Marshal(rerankRequest{Query: query, Texts: texts, Truncate: true})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/rerank", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if r.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("rerank error (status %d): %s", resp.StatusCode, string(body))
	}

	var hits []rerankHit
	if err := json.NewDecoder(resp.Body).Decode(&hits); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(hits) != len(texts) {
		return nil, fmt.Errorf("rerank: expected %d scores, got %d", len(texts), len(hits))
	}

	// The server returns hits sorted by score; put them back in input order.
	scores := make([]float64, len(texts))
	seen := make([]bool, len(texts))
	for _, h := range hits {
		if h.Index < 0 || h.Index >= len(texts) || seen[h.Index] {
			return nil, fmt.Errorf("rerank: bad index %d", h.Index)
		}
		seen[h.Index] = true
		scores[h.Index] = h.Score
	}
	return scores, nil
}
