package tui

import (
	"context"

	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/core/ports/driving"
)

type mockRouter struct {
	state     domain.AgentState
	err       error
	questions []string
}

func (m *mockRouter) Run(ctx context.Context, question string, decider driving.Decider) (domain.AgentState, error) {
	m.questions = append(m.questions, question)
	if m.err != nil {
		return domain.AgentState{}, m.err
	}
	if m.state.Stage == domain.StageDone && m.state.Outcome == domain.OutcomeCancelled {
		// Exercise the decider so the session's reader is shared.
		if _, err := decider.ApproveReshaped(ctx, question, "reshaped"); err != nil {
			return domain.AgentState{}, err
		}
	}
	return m.state, nil
}

type mockCatalog struct {
	collections []string
	err         error
}

func (m *mockCatalog) Collections(context.Context) ([]string, error) { return m.collections, m.err }
func (m *mockCatalog) IsProcessed(context.Context, string) (bool, error) {
	return false, nil
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
func (m *mockCatalog) Match(context.Context, []string) ([]string, error) { return nil, nil }
