package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/lexrag/internal/adapters/driven/search/bm25"
	"github.com/custodia-labs/lexrag/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/core/ports/driving"
)

// --- Advance ---

func TestAdvance_AnswerablePath(t *testing.T) {
	s, err := Advance(domain.AgentState{}, QuestionEvent{Question: "  Who issues licences?  "})
	require.NoError(t, err)
	assert.Equal(t, domain.StageAnalyze, s.Stage)
	assert.Equal(t, "Who issues licences?", s.UserQuestion)

	s, err = Advance(s, AnalysisEvent{Analysis: domain.Analysis{
		Status:       domain.StatusAnswerable,
		RelevantActs: []string{"Civil_Aviation_Act-Base"},
	}})
	require.NoError(t, err)
	assert.Equal(t, domain.StageSelect, s.Stage)
	assert.Equal(t, "Who issues licences?", s.ApprovedQuestion)
	assert.Equal(t, 1, s.AnalyzeCalls)

	s, err = Advance(s, SelectionEvent{Collections: []string{"Civil_Aviation_Act-Base"}})
	require.NoError(t, err)
	assert.Equal(t, domain.StageRetrieve, s.Stage)

	s, err = Advance(s, RetrievalEvent{Chunks: []domain.ScoredChunk{{Chunk: domain.Chunk{ID: "x"}}}})
	require.NoError(t, err)
	assert.Equal(t, domain.StageSynthesize, s.Stage)

	s, err = Advance(s, AnswerEvent{Answer: "The authority."})
	require.NoError(t, err)
	assert.True(t, s.Done())
	assert.Equal(t, domain.OutcomeAnswered, s.Outcome)
	assert.Equal(t, "The authority.", s.FinalAnswer)
}

func analyzed(t *testing.T, a domain.Analysis) domain.AgentState {
	t.Helper()
	s, err := Advance(domain.AgentState{}, QuestionEvent{Question: "original"})
	require.NoError(t, err)
	s, err = Advance(s, AnalysisEvent{Analysis: a})
	require.NoError(t, err)
	return s
}

func TestAdvance_NotAnswerable(t *testing.T) {
	s := analyzed(t, domain.Analysis{Status: domain.StatusNotAnswerable, Explanation: "about cooking"})

	assert.True(t, s.Done())
	assert.Equal(t, domain.OutcomeNotAnswerable, s.Outcome)
	assert.True(t, strings.HasPrefix(s.FinalAnswer, domain.MessageNotAnswerable))
	assert.Contains(t, s.FinalAnswer, "about cooking")
}

func TestAdvance_Reshape(t *testing.T) {
	tests := []struct {
		name     string
		decision driving.ReshapeDecision
		stage    domain.Stage
		approved string
		outcome  domain.Outcome
	}{
		{"accept", driving.ReshapeDecision{Choice: driving.ReshapeAccept}, domain.StageSelect, "suggested", domain.OutcomeNone},
		{"edit", driving.ReshapeDecision{Choice: driving.ReshapeEdit, Question: " mine "}, domain.StageSelect, "mine", domain.OutcomeNone},
		{"cancel", driving.ReshapeDecision{Choice: driving.ReshapeCancel}, domain.StageDone, "", domain.OutcomeCancelled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := analyzed(t, domain.Analysis{Status: domain.StatusNeedsReshaping, SuggestedQuestion: "suggested"})
			require.Equal(t, domain.StageReshape, s.Stage)

			s, err := Advance(s, ReshapeEvent{Decision: tt.decision})

			require.NoError(t, err)
			assert.Equal(t, tt.stage, s.Stage)
			assert.Equal(t, tt.approved, s.ApprovedQuestion)
			assert.Equal(t, tt.outcome, s.Outcome)
			if tt.outcome == domain.OutcomeCancelled {
				assert.Equal(t, domain.MessageCancelled, s.FinalAnswer)
			}
		})
	}
}

func TestAdvance_EmptyEditRejected(t *testing.T) {
	s := analyzed(t, domain.Analysis{Status: domain.StatusNeedsReshaping, SuggestedQuestion: "suggested"})

	next, err := Advance(s, ReshapeEvent{Decision: driving.ReshapeDecision{Choice: driving.ReshapeEdit, Question: "  "}})

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, domain.StageReshape, next.Stage)
}

func TestAdvance_EmptyRetrievalEndsWithNoDocuments(t *testing.T) {
	s := analyzed(t, domain.Analysis{Status: domain.StatusAnswerable})
	s, err := Advance(s, SelectionEvent{Collections: []string{"A"}})
	require.NoError(t, err)

	s, err = Advance(s, RetrievalEvent{})

	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeNoDocuments, s.Outcome)
	assert.Equal(t, domain.MessageNoDocuments, s.FinalAnswer)
}

func TestAdvance_InvalidTransitions(t *testing.T) {
	answerable := analyzed(t, domain.Analysis{Status: domain.StatusAnswerable})
	done := analyzed(t, domain.Analysis{Status: domain.StatusNotAnswerable})

	tests := []struct {
		name  string
		state domain.AgentState
		ev    Event
	}{
		{"answer before question", domain.AgentState{}, AnswerEvent{Answer: "x"}},
		{"second question", answerable, QuestionEvent{Question: "again"}},
		{"second analysis", answerable, AnalysisEvent{Analysis: domain.Analysis{Status: domain.StatusAnswerable}}},
		{"reshape without suggestion", answerable, ReshapeEvent{}},
		{"event after done", done, SelectionEvent{Collections: []string{"A"}}},
		{"retrieval before selection", answerable, RetrievalEvent{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, err := Advance(tt.state, tt.ev)

			assert.ErrorIs(t, err, domain.ErrInvalidTransition)
			assert.Equal(t, tt.state, next)
		})
	}
}

func TestAdvance_UnknownStatusRejected(t *testing.T) {
	s, err := Advance(domain.AgentState{}, QuestionEvent{Question: "q"})
	require.NoError(t, err)

	_, err = Advance(s, AnalysisEvent{Analysis: domain.Analysis{}})

	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestAdvance_EmptyQuestion(t *testing.T) {
	_, err := Advance(domain.AgentState{}, QuestionEvent{Question: "\t"})

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

// --- ParseAnalysis ---

func TestParseAnalysis(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		status     domain.QuestionStatus
		suggestion string
		acts       []string
		wantErr    bool
	}{
		{
			name:   "answerable",
			text:   "STATUS: ANSWERABLE\nEXPLANATION: Covered by the act.\nSUGGESTED_QUESTION: N/A\nRELEVANT_ACTS: Civil_Aviation_Act-Base, Customs_Act-Base",
			status: domain.StatusAnswerable,
			acts:   []string{"Civil_Aviation_Act-Base", "Customs_Act-Base"},
		},
		{
			name:       "bracketed needs reshaping",
			text:       "STATUS: [NEEDS_RESHAPING]\nEXPLANATION: Too vague.\nSUGGESTED_QUESTION: \"What licences does the Civil Aviation Act require?\"\nRELEVANT_ACTS: None",
			status:     domain.StatusNeedsReshaping,
			suggestion: "What licences does the Civil Aviation Act require?",
		},
		{
			name:   "bold label not answerable",
			text:   "**STATUS**: NOT_ANSWERABLE\nEXPLANATION: Cooking.",
			status: domain.StatusNotAnswerable,
		},
		{
			name:   "lowercase status value",
			text:   "status: answerable",
			status: domain.StatusAnswerable,
		},
		{
			name:    "missing status",
			text:    "EXPLANATION: I am not sure.",
			status:  domain.StatusNotAnswerable,
			wantErr: true,
		},
		{
			name:    "unknown status",
			text:    "STATUS: MAYBE",
			status:  domain.StatusNotAnswerable,
			wantErr: true,
		},
		{
			name:   "not answerable with a space",
			text:   "STATUS: Not Answerable\nEXPLANATION: Cooking.",
			status: domain.StatusNotAnswerable,
		},
		{
			name:       "hyphenated needs reshaping",
			text:       "STATUS: needs-reshaping\nSUGGESTED_QUESTION: What does the Customs Act say about duty?",
			status:     domain.StatusNeedsReshaping,
			suggestion: "What does the Customs Act say about duty?",
		},
		{
			name:    "unanswerable is not a known status",
			text:    "STATUS: Unanswerable",
			status:  domain.StatusNotAnswerable,
			wantErr: true,
		},
		{
			name:    "echoed status template",
			text:    "STATUS: [ANSWERABLE/NEEDS_RESHAPING/NOT_ANSWERABLE]",
			status:  domain.StatusNotAnswerable,
			wantErr: true,
		},
		{
			name:    "reshaping without suggestion",
			text:    "STATUS: NEEDS_RESHAPING\nSUGGESTED_QUESTION: N/A",
			status:  domain.StatusNotAnswerable,
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := ParseAnalysis(tt.text)

			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, domain.ErrClassificationParse)
				assert.NotEmpty(t, a.Explanation)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.status, a.Status)
			assert.Equal(t, tt.suggestion, a.SuggestedQuestion)
			assert.Equal(t, tt.acts, a.RelevantActs)
			assert.Equal(t, tt.text, a.Raw)
		})
	}
}

func TestParseAnalysis_MultiLineExplanation(t *testing.T) {
	a, err := ParseAnalysis("STATUS: ANSWERABLE\nEXPLANATION: First line\ncontinues here.\nRELEVANT_ACTS: A")

	require.NoError(t, err)
	assert.Equal(t, "First line continues here.", a.Explanation)
}

// --- Run ---

const routerCollection = "Civil_Aviation_Act-Base"

func newRouterFixture(t *testing.T, llm *mockCompleter) *RouterService {
	t.Helper()
	ctx := context.Background()

	catalog := NewCatalogService(memory.NewCatalogStore())
	require.NoError(t, catalog.MarkProcessed(ctx, routerCollection))
	require.NoError(t, catalog.MarkProcessed(ctx, "Customs_Act-Base"))

	store := memory.NewVectorStore()
	require.NoError(t, store.Upsert(ctx, routerCollection, []domain.Chunk{{
		ID:         "c1",
		DocumentID: "d1",
		PageNumber: 7,
		Text:       "The authority issues airport licences.",
		Metadata:   domain.ChunkMetadata{SourceName: "Aviation.pdf"},
		Embedding:  []float32{1, 0, 0},
	}}))
	retrieval := NewRetrievalService(store, &mockEmbedder{}, bm25.New(), testRetrievalSettings())

	return NewRouterService(llm, testPrompts(), catalog, retrieval, 5, "gpt-4o", 0.2)
}

func routerLLM(analysis string) *mockCompleter {
	return &mockCompleter{respond: func(prompt string) (string, error) {
		if strings.HasPrefix(prompt, "ANALYZE") {
			return analysis, nil
		}
		return "The authority issues them (see: Aviation.pdf).", nil
	}}
}

func TestRun_Answerable(t *testing.T) {
	llm := routerLLM("STATUS: ANSWERABLE\nEXPLANATION: ok\nRELEVANT_ACTS: civil_aviation_act")
	router := newRouterFixture(t, llm)
	decider := &scriptedDecider{confirm: true}

	state, err := router.Run(context.Background(), "Who issues airport licences?", decider)

	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeAnswered, state.Outcome)
	assert.Equal(t, "The authority issues them (see: Aviation.pdf).", state.FinalAnswer)
	assert.Equal(t, []string{routerCollection}, state.SelectedCollections)
	assert.Equal(t, []string{routerCollection}, decider.suggested)
	assert.Zero(t, decider.selected)
	assert.Equal(t, 1, state.AnalyzeCalls)
	assert.Equal(t, 2, state.CompletionCalls)
	require.Equal(t, 2, llm.calls())

	assert.Contains(t, llm.prompts[0], routerCollection+"\nCustoms_Act-Base")
	assert.Zero(t, llm.opts[0].Temperature)
	assert.Contains(t, llm.prompts[1], "Source: Aviation.pdf, Page: 7\nContent: The authority issues airport licences.")
	assert.Equal(t, "gpt-4o", llm.opts[1].Model)
	assert.InDelta(t, 0.2, llm.opts[1].Temperature, 1e-9)
}

func TestRun_NotAnswerableMakesNoFurtherCalls(t *testing.T) {
	llm := routerLLM("STATUS: NOT_ANSWERABLE\nEXPLANATION: Unrelated to the acts.")
	router := newRouterFixture(t, llm)
	decider := &scriptedDecider{}

	state, err := router.Run(context.Background(), "Best pasta recipe?", decider)

	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeNotAnswerable, state.Outcome)
	assert.Contains(t, state.FinalAnswer, "Unrelated to the acts.")
	assert.Equal(t, 1, llm.calls())
	assert.Zero(t, decider.confirmed+decider.selected+decider.approved)
}

func TestRun_ParseFailureIsNotAnswerable(t *testing.T) {
	llm := routerLLM("I think this might be fine.")
	router := newRouterFixture(t, llm)

	state, err := router.Run(context.Background(), "q", &scriptedDecider{})

	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeNotAnswerable, state.Outcome)
	assert.Contains(t, state.FinalAnswer, "STATUS")
}

func TestRun_AnalysisCompletionError(t *testing.T) {
	llm := &mockCompleter{err: errors.New("service unavailable")}
	router := newRouterFixture(t, llm)

	state, err := router.Run(context.Background(), "q", &scriptedDecider{})

	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeNotAnswerable, state.Outcome)
	assert.Contains(t, state.FinalAnswer, "service unavailable")
	assert.Equal(t, 1, llm.calls())
}

func TestRun_ReshapeCancelled(t *testing.T) {
	llm := routerLLM("STATUS: NEEDS_RESHAPING\nEXPLANATION: vague\nSUGGESTED_QUESTION: Which licences does the act require?")
	router := newRouterFixture(t, llm)
	decider := &scriptedDecider{reshape: driving.ReshapeDecision{Choice: driving.ReshapeCancel}}

	state, err := router.Run(context.Background(), "licences?", decider)

	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeCancelled, state.Outcome)
	assert.Equal(t, domain.MessageCancelled, state.FinalAnswer)
	assert.Equal(t, 1, decider.approved)
	assert.Equal(t, 1, llm.calls())
}

func TestRun_ReshapeEditedThenManualSelection(t *testing.T) {
	llm := routerLLM("STATUS: NEEDS_RESHAPING\nSUGGESTED_QUESTION: Which licences does the act require?\nRELEVANT_ACTS: Income Tax")
	router := newRouterFixture(t, llm)
	decider := &scriptedDecider{
		reshape:   driving.ReshapeDecision{Choice: driving.ReshapeEdit, Question: "Who issues airport licences?"},
		selection: []string{routerCollection},
	}

	state, err := router.Run(context.Background(), "licences?", decider)

	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeAnswered, state.Outcome)
	assert.Equal(t, "Who issues airport licences?", state.ApprovedQuestion)
	assert.Zero(t, decider.confirmed, "no valid suggestion to confirm")
	assert.Equal(t, 1, decider.selected)
	assert.Equal(t, []string{routerCollection, "Customs_Act-Base"}, decider.offered)
}

func TestRun_DeclinedSuggestionFallsBackToSelection(t *testing.T) {
	llm := routerLLM("STATUS: ANSWERABLE\nRELEVANT_ACTS: Customs_Act-Base")
	router := newRouterFixture(t, llm)
	decider := &scriptedDecider{confirm: false, selection: []string{routerCollection}}

	state, err := router.Run(context.Background(), "airport licences", decider)

	require.NoError(t, err)
	assert.Equal(t, 1, decider.confirmed)
	assert.Equal(t, 1, decider.selected)
	assert.Equal(t, []string{routerCollection}, state.SelectedCollections)
}

func TestRun_NoDocuments(t *testing.T) {
	llm := routerLLM("STATUS: ANSWERABLE\nRELEVANT_ACTS: Customs_Act-Base")
	router := newRouterFixture(t, llm)

	state, err := router.Run(context.Background(), "customs duty", &scriptedDecider{confirm: true})

	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeNoDocuments, state.Outcome)
	assert.Equal(t, domain.MessageNoDocuments, state.FinalAnswer)
	assert.Equal(t, 1, llm.calls(), "no answer completion without documents")
}

func TestRun_AnswerFailureIsText(t *testing.T) {
	llm := &mockCompleter{respond: func(prompt string) (string, error) {
		if strings.HasPrefix(prompt, "ANALYZE") {
			return "STATUS: ANSWERABLE\nRELEVANT_ACTS: " + routerCollection, nil
		}
		return "", errors.New("timeout")
	}}
	router := newRouterFixture(t, llm)

	state, err := router.Run(context.Background(), "airport licences", &scriptedDecider{confirm: true})

	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeAnswered, state.Outcome)
	assert.Contains(t, state.FinalAnswer, "timeout")
}

func TestRun_DeciderErrorPropagates(t *testing.T) {
	llm := routerLLM("STATUS: ANSWERABLE\nRELEVANT_ACTS: " + routerCollection)
	router := newRouterFixture(t, llm)
	decider := &scriptedDecider{err: errors.New("stdin closed")}

	_, err := router.Run(context.Background(), "q", decider)

	assert.EqualError(t, err, "stdin closed")
}

func TestRun_EmptyQuestion(t *testing.T) {
	router := newRouterFixture(t, routerLLM(""))

	_, err := router.Run(context.Background(), "", &scriptedDecider{})

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

// --- AutoDecider ---

func TestAutoDecider(t *testing.T) {
	ctx := context.Background()
	available := []string{"A-Base", "B-Base"}

	d := AutoDecider{}
	dec, err := d.ApproveReshaped(ctx, "q", "better q")
	require.NoError(t, err)
	assert.Equal(t, driving.ReshapeAccept, dec.Choice)

	ok, err := d.ConfirmCollections(ctx, []string{"A-Base"})
	require.NoError(t, err)
	assert.True(t, ok)

	all, err := d.SelectCollections(ctx, available)
	require.NoError(t, err)
	assert.Equal(t, available, all)

	requested := AutoDecider{Collections: []string{"b-base"}}
	ok, err = requested.ConfirmCollections(ctx, []string{"A-Base"})
	require.NoError(t, err)
	assert.False(t, ok)

	picked, err := requested.SelectCollections(ctx, available)
	require.NoError(t, err)
	assert.Equal(t, []string{"B-Base"}, picked)

	_, err = AutoDecider{Collections: []string{"Z"}}.SelectCollections(ctx, available)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRun_WithAutoDecider(t *testing.T) {
	llm := routerLLM("STATUS: NEEDS_RESHAPING\nSUGGESTED_QUESTION: Who issues airport licences?\nRELEVANT_ACTS: " + routerCollection)
	router := newRouterFixture(t, llm)

	state, err := router.Run(context.Background(), "licences?", AutoDecider{})

	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeAnswered, state.Outcome)
	assert.Equal(t, "Who issues airport licences?", state.ApprovedQuestion)
}
