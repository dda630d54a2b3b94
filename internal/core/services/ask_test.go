package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/lexrag/internal/adapters/driven/search/bm25"
	"github.com/custodia-labs/lexrag/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/core/ports/driving"
)

// newAskFixture wires an AskService over one processed collection holding
// doc1 (chunks a, c) and doc2 (chunk b).
func newAskFixture(t *testing.T, llm *mockCompleter) *AskService {
	t.Helper()
	ctx := context.Background()

	catalog := NewCatalogService(memory.NewCatalogStore())
	require.NoError(t, catalog.RecordDocuments(ctx, testCollection, []domain.Document{
		{ID: "doc1", SourceName: "Aviation.pdf"},
		{ID: "doc2", SourceName: "Licensing.pdf"},
	}))
	require.NoError(t, catalog.MarkProcessed(ctx, testCollection))

	retrieval := NewRetrievalService(seedRetrievalStore(t), &mockEmbedder{}, bm25.New(), testRetrievalSettings())
	synthesis := NewSynthesisService(llm, testPrompts(), domain.SynthesisSettings{MapConcurrency: 2})
	settings := domain.SynthesisSettings{KPerDoc: 3, Temperature: 0.1}
	return NewAskService(catalog, retrieval, synthesis, settings, "default-model")
}

func TestAsk_EndToEnd(t *testing.T) {
	llm := &mockCompleter{respond: func(prompt string) (string, error) {
		if strings.HasPrefix(prompt, "REDUCE") {
			return "final", nil
		}
		return "partial", nil
	}}
	svc := newAskFixture(t, llm)

	res, err := svc.Ask(context.Background(), "airport licence", driving.AskOptions{})

	require.NoError(t, err)
	assert.Equal(t, "final", res.Answer)
	assert.Equal(t, []string{"doc1", "doc2"}, res.Order)
	assert.Equal(t, 3, llm.calls())
	for _, o := range llm.opts {
		assert.Equal(t, "default-model", o.Model)
		assert.InDelta(t, 0.1, o.Temperature, 1e-9)
	}
}

func TestAsk_OverridesApply(t *testing.T) {
	llm := &mockCompleter{respond: func(prompt string) (string, error) {
		if strings.HasPrefix(prompt, "REDUCE") {
			return "final", nil
		}
		return "partial", nil
	}}
	svc := newAskFixture(t, llm)
	zero := 0.0

	_, err := svc.Ask(context.Background(), "airport licence", driving.AskOptions{
		KPerDoc:     1,
		Model:       "gpt-4o",
		Temperature: &zero,
	})

	require.NoError(t, err)
	for _, o := range llm.opts {
		assert.Equal(t, "gpt-4o", o.Model)
		assert.Zero(t, o.Temperature)
	}
	for _, p := range llm.prompts {
		if strings.HasPrefix(p, "MAP Aviation.pdf") {
			assert.NotContains(t, p, "[2]", "k_per_doc=1 keeps one chunk per document")
		}
	}
}

func TestAsk_EmptyQuestion(t *testing.T) {
	svc := newAskFixture(t, &mockCompleter{})

	_, err := svc.Ask(context.Background(), " ", driving.AskOptions{})

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestAsk_UnknownCollection(t *testing.T) {
	svc := newAskFixture(t, &mockCompleter{})

	_, err := svc.Ask(context.Background(), "airport", driving.AskOptions{Collections: []string{"Income Tax"}})

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAsk_NoCollections(t *testing.T) {
	llm := &mockCompleter{reply: "unused"}
	catalog := NewCatalogService(memory.NewCatalogStore())
	retrieval := NewRetrievalService(memory.NewVectorStore(), &mockEmbedder{}, bm25.New(), testRetrievalSettings())
	synthesis := NewSynthesisService(llm, testPrompts(), domain.SynthesisSettings{})
	svc := NewAskService(catalog, retrieval, synthesis, domain.SynthesisSettings{KPerDoc: 3}, "")

	res, err := svc.Ask(context.Background(), "airport", driving.AskOptions{})

	require.NoError(t, err)
	assert.Equal(t, domain.MessageNoRelevantAcrossDocuments, res.Answer)
	assert.Zero(t, llm.calls())
}
