package services

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
	"github.com/custodia-labs/lexrag/internal/core/ports/driving"
)

// --- Mock implementations ---

// mockEmbedder implements driven.EmbeddingService for testing.
// Texts not in vectors embed to fallback.
type mockEmbedder struct {
	mu       sync.Mutex
	vectors  map[string][]float32
	fallback []float32
	err      error
	batchErr error
	calls    int
	batches  [][]string
}

var _ driven.EmbeddingService = (*mockEmbedder)(nil)

func (m *mockEmbedder) vector(text string) []float32 {
	if v, ok := m.vectors[text]; ok {
		return v
	}
	if m.fallback != nil {
		return m.fallback
	}
	return []float32{1, 0, 0}
}

func (m *mockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.vector(text), nil
}

func (m *mockEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches = append(m.batches, append([]string(nil), texts...))
	if m.batchErr != nil {
		return nil, m.batchErr
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = m.vector(t)
	}
	return out, nil
}

func (m *mockEmbedder) Dimensions() int              { return 3 }
func (m *mockEmbedder) ModelName() string            { return "mock-embed" }
func (m *mockEmbedder) Ping(_ context.Context) error { return m.err }
func (m *mockEmbedder) Close() error                 { return nil }

// mockCompleter implements driven.CompletionService for testing.
// respond, when set, computes the reply; otherwise reply is returned.
type mockCompleter struct {
	mu      sync.Mutex
	reply   string
	err     error
	respond func(prompt string) (string, error)
	prompts []string
	opts    []driven.CompleteOptions
}

var _ driven.CompletionService = (*mockCompleter)(nil)

func (m *mockCompleter) Complete(_ context.Context, prompt string, opts driven.CompleteOptions) (string, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.opts = append(m.opts, opts)
	m.mu.Unlock()

	if m.respond != nil {
		return m.respond(prompt)
	}
	if m.err != nil {
		return "", m.err
	}
	return m.reply, nil
}

func (m *mockCompleter) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

func (m *mockCompleter) ModelName() string            { return "mock-llm" }
func (m *mockCompleter) Ping(_ context.Context) error { return nil }
func (m *mockCompleter) Close() error                 { return nil }

// mockReranker implements driven.Reranker for testing.
type mockReranker struct {
	score func(text string) float64
	err   error
	texts []string
}

func (m *mockReranker) Rerank(_ context.Context, _ string, texts []string) ([]float64, error) {
	m.texts = append([]string(nil), texts...)
	if m.err != nil {
		return nil, m.err
	}
	scores := make([]float64, len(texts))
	for i, t := range texts {
		scores[i] = m.score(t)
	}
	return scores, nil
}

// failingVectorStore wraps a VectorStore and fails selected operations.
type failingVectorStore struct {
	driven.VectorStore
	queryErr  error
	chunksErr error
	upsertErr error
	// failDocument limits chunksErr to filtered reads of one document.
	failDocument string
}

func (f *failingVectorStore) Query(
	ctx context.Context, collection string, vector []float32, k int, filter *domain.Filter,
) ([]driven.VectorHit, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.VectorStore.Query(ctx, collection, vector, k, filter)
}

func (f *failingVectorStore) Chunks(ctx context.Context, collection string, filter *domain.Filter) ([]domain.Chunk, error) {
	failing := f.failDocument == "" || (filter != nil && filter.DocumentID == f.failDocument)
	if f.chunksErr != nil && failing {
		return nil, f.chunksErr
	}
	return f.VectorStore.Chunks(ctx, collection, filter)
}

func (f *failingVectorStore) Upsert(ctx context.Context, collection string, chunks []domain.Chunk) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	return f.VectorStore.Upsert(ctx, collection, chunks)
}

// mockExtractor implements driven.PageExtractor from a path to pages table.
type mockExtractor struct {
	mu    sync.Mutex
	pages map[string][]domain.Page
	calls []string
}

func (m *mockExtractor) Extract(_ context.Context, path string) ([]domain.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, path)
	for p, pages := range m.pages {
		if strings.HasSuffix(path, p) {
			return pages, nil
		}
	}
	return nil, errors.New("corrupt pdf")
}

// mockRenderer implements driven.PageRenderer.
type mockRenderer struct {
	mu    sync.Mutex
	err   error
	pages []int
}

func (m *mockRenderer) Render(_ context.Context, _ string, page, _ int) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pages = append(m.pages, page)
	if m.err != nil {
		return nil, m.err
	}
	return []byte{0x89, 'P', 'N', 'G'}, nil
}

// mockOCR implements driven.VisionOCR, failing the first failures calls.
type mockOCR struct {
	mu       sync.Mutex
	text     string
	failures int
	calls    int
}

func (m *mockOCR) OCR(_ context.Context, _ []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.calls <= m.failures {
		return "", errors.New("rate limited")
	}
	return m.text, nil
}

// mockPromptStore implements driven.PromptStore.
type mockPromptStore struct {
	prompts map[string]string
}

func (m *mockPromptStore) Load(name string) (string, error) {
	if p, ok := m.prompts[name]; ok {
		return p, nil
	}
	return "", domain.ErrNotFound
}

func (m *mockPromptStore) Reload() {}

// scriptedDecider implements driving.Decider from fixed answers and
// records which callbacks ran.
type scriptedDecider struct {
	reshape   driving.ReshapeDecision
	confirm   bool
	selection []string
	err       error

	approved  int
	confirmed int
	selected  int
	suggested []string
	offered   []string
}

var _ driving.Decider = (*scriptedDecider)(nil)

func (d *scriptedDecider) ApproveReshaped(_ context.Context, _, _ string) (driving.ReshapeDecision, error) {
	d.approved++
	return d.reshape, d.err
}

func (d *scriptedDecider) ConfirmCollections(_ context.Context, suggested []string) (bool, error) {
	d.confirmed++
	d.suggested = suggested
	return d.confirm, d.err
}

func (d *scriptedDecider) SelectCollections(_ context.Context, available []string) ([]string, error) {
	d.selected++
	d.offered = available
	return d.selection, d.err
}
