package api

import (
	"context"

	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/core/ports/driving"
)

type mockRouter struct {
	state    domain.AgentState
	err      error
	question string
	decider  driving.Decider
}

func (m *mockRouter) Run(_ context.Context, question string, decider driving.Decider) (domain.AgentState, error) {
	m.question = question
	m.decider = decider
	return m.state, m.err
}

type mockCatalog struct {
	collections []string
	err         error
}

func (m *mockCatalog) Collections(context.Context) ([]string, error) { return m.collections, m.err }
func (m *mockCatalog) IsProcessed(context.Context, string) (bool, error) {
	return true, nil
}
func (m *mockCatalog) MarkProcessed(context.Context, string) error { return nil }
func (m *mockCatalog) RecordDocuments(context.Context, string, []domain.Document) error {
	return nil
}
func (m *mockCatalog) Documents(context.Context, string) ([]domain.Document, error) {
	return nil, nil
}
func (m *mockCatalog) Document(context.Context, string) (*domain.Document, error) {
	return nil, domain.ErrNotFound
}
func (m *mockCatalog) Match(_ context.Context, suggested []string) ([]string, error) {
	return suggested, nil
}

type stubDecider struct {
	requested []string
}

func (d *stubDecider) ApproveReshaped(context.Context, string, string) (driving.ReshapeDecision, error) {
	return driving.ReshapeDecision{Choice: driving.ReshapeAccept}, nil
}

func (d *stubDecider) ConfirmCollections(context.Context, []string) (bool, error) {
	return true, nil
}

func (d *stubDecider) SelectCollections(context.Context, []string) ([]string, error) {
	return d.requested, nil
}

func newTestPorts(router *mockRouter, catalog *mockCatalog) *Ports {
	return &Ports{
		Router:  router,
		Catalog: catalog,
		Decider: func(requested []string) driving.Decider {
			return &stubDecider{requested: requested}
		},
	}
}

func answeredState() domain.AgentState {
	chunk := func(doc string, page int) domain.ScoredChunk {
		return domain.ScoredChunk{Chunk: domain.Chunk{
			ID:         doc + "-chunk",
			DocumentID: doc,
			Collection: "aviation",
			PageNumber: page,
			Metadata:   domain.ChunkMetadata{SourceName: doc + ".pdf"},
		}}
	}
	return domain.AgentState{
		Stage:               domain.StageDone,
		Outcome:             domain.OutcomeAnswered,
		Status:              domain.StatusAnswerable,
		SelectedCollections: []string{"aviation"},
		FinalAnswer:         "Pilots must hold a licence.",
		RetrievedDocs:       []domain.ScoredChunk{chunk("a", 1), chunk("a", 2), chunk("b", 1)},
	}
}
