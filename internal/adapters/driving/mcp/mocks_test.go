package mcp

import (
	"context"

	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/core/ports/driving"
)

// mockAskService is a mock implementation of driving.AskService.
type mockAskService struct {
	result   *driving.SynthesisResult
	err      error
	question string
	opts     driving.AskOptions
}

func (m *mockAskService) Ask(_ context.Context, question string, opts driving.AskOptions) (*driving.SynthesisResult, error) {
	m.question = question
	m.opts = opts
	return m.result, m.err
}

// mockRetrievalService is a mock implementation of driving.RetrievalService.
type mockRetrievalService struct {
	results    []domain.ScoredChunk
	err        error
	collection string
	k          int
	filter     *domain.Filter
}

func (m *mockRetrievalService) Retrieve(
	_ context.Context, _, collection string, k int, filter *domain.Filter,
) ([]domain.ScoredChunk, error) {
	m.collection = collection
	m.k = k
	m.filter = filter
	return m.results, m.err
}

func (m *mockRetrievalService) RetrieveTopKPerDocument(
	context.Context, string, string, []string, int,
) (map[string][]domain.ScoredChunk, error) {
	return nil, m.err
}

// mockCatalogService is a mock implementation of driving.CatalogService.
type mockCatalogService struct {
	collections []string
	documents   map[string][]domain.Document
	err         error
}

func (m *mockCatalogService) Collections(context.Context) ([]string, error) {
	return m.collections, m.err
}

func (m *mockCatalogService) IsProcessed(context.Context, string) (bool, error) { return true, m.err }

func (m *mockCatalogService) MarkProcessed(context.Context, string) error { return m.err }

func (m *mockCatalogService) RecordDocuments(context.Context, string, []domain.Document) error {
	return m.err
}

func (m *mockCatalogService) Documents(_ context.Context, collection string) ([]domain.Document, error) {
	return m.documents[collection], m.err
}

func (m *mockCatalogService) Document(_ context.Context, id string) (*domain.Document, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, docs := range m.documents {
		for i := range docs {
			if docs[i].ID == id {
				return &docs[i], nil
			}
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockCatalogService) Match(context.Context, []string) ([]string, error) { return nil, m.err }

func newTestPorts() *Ports {
	return &Ports{
		Ask:       &mockAskService{},
		Retrieval: &mockRetrievalService{},
		Catalog: &mockCatalogService{
			collections: []string{"Civil_Aviation_Act-Base"},
			documents: map[string][]domain.Document{
				"Civil_Aviation_Act-Base": {
					{ID: "doc-1", Collection: "Civil_Aviation_Act-Base", SourceName: "Aviation.pdf", SourcePath: "/acts/Aviation.pdf"},
					{ID: "doc-2", Collection: "Civil_Aviation_Act-Base"},
				},
			},
		},
	}
}
