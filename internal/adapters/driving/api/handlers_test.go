package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler(t *testing.T, router *mockRouter, catalog *mockCatalog, opts Options) http.Handler {
	t.Helper()
	h, err := NewHandler(newTestPorts(router, catalog), opts)
	require.NoError(t, err)
	return h
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestNewHandler_ValidatesPorts(t *testing.T) {
	_, err := NewHandler(&Ports{}, Options{})
	assert.ErrorIs(t, err, ErrMissingRouter)

	_, err = NewHandler(&Ports{Router: &mockRouter{}, Decider: newTestPorts(nil, nil).Decider}, Options{})
	assert.ErrorIs(t, err, ErrMissingCatalog)
}

func TestRoot(t *testing.T) {
	h := newTestHandler(t, &mockRouter{}, &mockCatalog{}, Options{Version: "1.2.3"})

	rec := do(h, http.MethodGet, "/", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Legal Acts RAG API", body["message"])
	assert.Equal(t, "1.2.3", body["version"])
	assert.Equal(t, "running", body["status"])
}

func TestHealth(t *testing.T) {
	h := newTestHandler(t, &mockRouter{}, &mockCatalog{}, Options{Version: "1.2.3"})

	rec := do(h, http.MethodGet, "/health", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Len(t, body["timestamp"], len(timestampLayout))
}

func TestChat_Answered(t *testing.T) {
	router := &mockRouter{state: answeredState()}
	h := newTestHandler(t, router, &mockCatalog{}, Options{})

	rec := do(h, http.MethodPost, "/chat", `{"message":"  Who needs a licence?  ","collections":["aviation"]}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Pilots must hold a licence.", resp.Response)
	assert.Equal(t, "answered", resp.Outcome)
	assert.Equal(t, "answerable", resp.Status)
	assert.Equal(t, []string{"aviation"}, resp.Collections)
	require.Len(t, resp.Sources, 3)
	assert.Equal(t, "a.pdf", resp.Sources[0].Source)
	assert.Equal(t, 2, resp.Sources[1].Page)

	assert.Equal(t, "Who needs a licence?", router.question)
	require.IsType(t, &stubDecider{}, router.decider)
	assert.Equal(t, []string{"aviation"}, router.decider.(*stubDecider).requested)
}

func TestChat_MaxResultsCapsSources(t *testing.T) {
	h := newTestHandler(t, &mockRouter{state: answeredState()}, &mockCatalog{}, Options{})

	rec := do(h, http.MethodPost, "/chat", `{"message":"q","max_results":1}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Sources, 1)
}

func TestChat_ExcludeSources(t *testing.T) {
	h := newTestHandler(t, &mockRouter{state: answeredState()}, &mockCatalog{}, Options{})

	rec := do(h, http.MethodPost, "/chat", `{"message":"q","include_sources":false}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotNil(t, resp.Sources)
	assert.Empty(t, resp.Sources)
}

func TestChat_BadRequests(t *testing.T) {
	h := newTestHandler(t, &mockRouter{}, &mockCatalog{}, Options{})

	tests := []struct {
		name string
		body string
	}{
		{name: "malformed json", body: `{"message":`},
		{name: "empty message", body: `{"message":"   "}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(h, http.MethodPost, "/chat", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), "detail")
		})
	}
}

func TestChat_RouterError(t *testing.T) {
	h := newTestHandler(t, &mockRouter{err: errors.New("llm down")}, &mockCatalog{}, Options{})

	rec := do(h, http.MethodPost, "/chat", `{"message":"q"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Error processing request: llm down", body.Detail)
}

func TestCollections(t *testing.T) {
	h := newTestHandler(t, &mockRouter{}, &mockCatalog{collections: []string{"aviation", "maritime"}}, Options{})

	rec := do(h, http.MethodGet, "/collections", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var resp CollectionsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{"aviation", "maritime"}, resp.Collections)
	assert.Equal(t, 2, resp.TotalCount)
}

func TestCollections_Empty(t *testing.T) {
	h := newTestHandler(t, &mockRouter{}, &mockCatalog{}, Options{})

	rec := do(h, http.MethodGet, "/collections", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"collections":[]`)
}

func TestCollections_Error(t *testing.T) {
	h := newTestHandler(t, &mockRouter{}, &mockCatalog{err: errors.New("disk")}, Options{})

	rec := do(h, http.MethodGet, "/collections", "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	h := newTestHandler(t, &mockRouter{}, &mockCatalog{}, Options{AllowedOrigins: []string{"https://app.example"}})

	req := httptest.NewRequest(http.MethodOptions, "/chat", nil)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "https://app.example", rec.Header().Get("Access-Control-Allow-Origin"))
}
