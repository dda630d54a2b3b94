package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/logger"
)

// timestampLayout matches the API's human-readable timestamps.
const timestampLayout = "2006-01-02 15:04:05"

// defaultMaxResults caps the sources returned by /chat.
const defaultMaxResults = 5

// apiName is reported by the root endpoint.
const apiName = "Legal Acts RAG API"

type handlers struct {
	ports   *Ports
	version string
}

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	Message     string   `json:"message"`
	Collections []string `json:"collections,omitempty"`

	// MaxResults caps the returned sources (default 5).
	MaxResults int `json:"max_results,omitempty"`

	// IncludeSources defaults to true.
	IncludeSources *bool `json:"include_sources,omitempty"`
}

// ChatResponse is the body returned by POST /chat.
type ChatResponse struct {
	Response       string            `json:"response"`
	Sources        []domain.Citation `json:"sources"`
	Collections    []string          `json:"collections"`
	Outcome        string            `json:"outcome"`
	Status         string            `json:"status"`
	ProcessingTime float64           `json:"processing_time"`
	Timestamp      string            `json:"timestamp"`
}

// CollectionsResponse is the body returned by GET /collections.
type CollectionsResponse struct {
	Collections []string `json:"collections"`
	TotalCount  int      `json:"total_count"`
	LastUpdated string   `json:"last_updated"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("http: encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}

func (h *handlers) root(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": apiName,
		"version": h.version,
		"status":  "running",
	})
}

func (h *handlers) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(timestampLayout),
		"version":   h.version,
	})
}

func (h *handlers) chat(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	logger.Info("http: processing chat request: %.100s", req.Message)
	state, err := h.ports.Router.Run(r.Context(), req.Message, h.ports.Decider(req.Collections))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrInvalidInput) {
			status = http.StatusBadRequest
		}
		logger.Error("http: chat request failed: %v", err)
		writeError(w, status, "Error processing request: "+err.Error())
		return
	}

	sources := []domain.Citation{}
	if req.IncludeSources == nil || *req.IncludeSources {
		limit := req.MaxResults
		if limit <= 0 {
			limit = defaultMaxResults
		}
		sources = domain.Citations(state.RetrievedDocs)
		if len(sources) > limit {
			sources = sources[:limit]
		}
	}

	collections := state.SelectedCollections
	if collections == nil {
		collections = []string{}
	}

	elapsed := time.Since(start)
	logger.Info("http: chat request processed in %.2fs (%s)", elapsed.Seconds(), state.Outcome)
	writeJSON(w, http.StatusOK, ChatResponse{
		Response:       state.FinalAnswer,
		Sources:        sources,
		Collections:    collections,
		Outcome:        state.Outcome.String(),
		Status:         state.Status.String(),
		ProcessingTime: elapsed.Seconds(),
		Timestamp:      time.Now().Format(timestampLayout),
	})
}

func (h *handlers) collections(w http.ResponseWriter, r *http.Request) {
	names, err := h.ports.Catalog.Collections(r.Context())
	if err != nil {
		logger.Error("http: list collections: %v", err)
		writeError(w, http.StatusInternalServerError, "Error listing collections: "+err.Error())
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, CollectionsResponse{
		Collections: names,
		TotalCount:  len(names),
		LastUpdated: time.Now().Format(timestampLayout),
	})
}
