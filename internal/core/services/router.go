package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
	"github.com/custodia-labs/lexrag/internal/core/ports/driving"
	"github.com/custodia-labs/lexrag/internal/logger"
)

// Ensure RouterService implements the interface.
var _ driving.RouterService = (*RouterService)(nil)

// Event is an input to Advance. Each stage accepts exactly one event type.
type Event interface {
	event()
}

// QuestionEvent starts a session.
type QuestionEvent struct {
	Question string
}

// AnalysisEvent carries the classification of the question.
type AnalysisEvent struct {
	Analysis domain.Analysis
}

// ReshapeEvent carries the user's answer to a suggested rewrite.
type ReshapeEvent struct {
	Decision driving.ReshapeDecision
}

// SelectionEvent carries the collections to search.
type SelectionEvent struct {
	Collections []string
}

// RetrievalEvent carries the retrieved chunks.
type RetrievalEvent struct {
	Chunks []domain.ScoredChunk
}

// AnswerEvent carries the generated answer.
type AnswerEvent struct {
	Answer string
}

func (QuestionEvent) event()  {}
func (AnalysisEvent) event()  {}
func (ReshapeEvent) event()   {}
func (SelectionEvent) event() {}
func (RetrievalEvent) event() {}
func (AnswerEvent) event()    {}

// Advance applies ev to state and returns the next state. It performs no
// I/O. An event that does not belong to the current stage returns
// ErrInvalidTransition and the state unchanged.
func Advance(state domain.AgentState, ev Event) (domain.AgentState, error) {
	switch e := ev.(type) {
	case QuestionEvent:
		if state.Stage != domain.StageInput {
			return state, invalidTransition(state, ev)
		}
		q := strings.TrimSpace(e.Question)
		if q == "" {
			return state, fmt.Errorf("%w: empty question", domain.ErrInvalidInput)
		}
		state.UserQuestion = q
		state.Stage = domain.StageAnalyze
		return state, nil

	case AnalysisEvent:
		if state.Stage != domain.StageAnalyze || state.AnalyzeCalls > 0 {
			return state, invalidTransition(state, ev)
		}
		return applyAnalysis(state, e.Analysis)

	case ReshapeEvent:
		if state.Stage != domain.StageReshape {
			return state, invalidTransition(state, ev)
		}
		switch e.Decision.Choice {
		case driving.ReshapeAccept:
			state.ApprovedQuestion = state.ReshapedQuestion
		case driving.ReshapeEdit:
			q := strings.TrimSpace(e.Decision.Question)
			if q == "" {
				return state, fmt.Errorf("%w: edited question is empty", domain.ErrInvalidInput)
			}
			state.ApprovedQuestion = q
		case driving.ReshapeCancel:
			return finish(state, domain.OutcomeCancelled, domain.MessageCancelled), nil
		default:
			return state, fmt.Errorf("%w: unknown reshape choice %d", domain.ErrInvalidInput, e.Decision.Choice)
		}
		state.Stage = domain.StageSelect
		return state, nil

	case SelectionEvent:
		if state.Stage != domain.StageSelect {
			return state, invalidTransition(state, ev)
		}
		state.SelectedCollections = append([]string(nil), e.Collections...)
		state.Stage = domain.StageRetrieve
		return state, nil

	case RetrievalEvent:
		if state.Stage != domain.StageRetrieve {
			return state, invalidTransition(state, ev)
		}
		state.RetrievedDocs = e.Chunks
		if len(e.Chunks) == 0 {
			return finish(state, domain.OutcomeNoDocuments, domain.MessageNoDocuments), nil
		}
		state.Stage = domain.StageSynthesize
		return state, nil

	case AnswerEvent:
		if state.Stage != domain.StageSynthesize {
			return state, invalidTransition(state, ev)
		}
		return finish(state, domain.OutcomeAnswered, e.Answer), nil

	default:
		return state, invalidTransition(state, ev)
	}
}

// applyAnalysis is the single branch point of the session.
func applyAnalysis(state domain.AgentState, a domain.Analysis) (domain.AgentState, error) {
	state.AnalyzeCalls++
	state.Status = a.Status
	state.Explanation = a.Explanation
	state.SuggestedCollections = append([]string(nil), a.RelevantActs...)

	switch a.Status {
	case domain.StatusAnswerable:
		state.ApprovedQuestion = state.UserQuestion
		state.Stage = domain.StageSelect
	case domain.StatusNeedsReshaping:
		state.ReshapedQuestion = a.SuggestedQuestion
		state.Stage = domain.StageReshape
	case domain.StatusNotAnswerable:
		answer := domain.MessageNotAnswerable
		if a.Explanation != "" {
			answer += "\n\nReason: " + a.Explanation
		}
		state = finish(state, domain.OutcomeNotAnswerable, answer)
	case domain.StatusUnknown:
		return state, fmt.Errorf("%w: analysis has no status", domain.ErrInvalidTransition)
	default:
		return state, fmt.Errorf("%w: unknown status %d", domain.ErrInvalidTransition, a.Status)
	}
	return state, nil
}

func finish(state domain.AgentState, outcome domain.Outcome, answer string) domain.AgentState {
	state.Stage = domain.StageDone
	state.Outcome = outcome
	state.FinalAnswer = answer
	return state
}

func invalidTransition(state domain.AgentState, ev Event) error {
	return fmt.Errorf("%w: %T in stage %s", domain.ErrInvalidTransition, ev, state.Stage)
}

// Analysis field labels.
const (
	fieldStatus      = "STATUS"
	fieldExplanation = "EXPLANATION"
	fieldSuggested   = "SUGGESTED_QUESTION"
	fieldActs        = "RELEVANT_ACTS"
)

// ParseAnalysis reads the STATUS / EXPLANATION / SUGGESTED_QUESTION /
// RELEVANT_ACTS block of an analysis completion. On error the returned
// analysis is still usable: it is not_answerable and its explanation
// names the problem.
func ParseAnalysis(text string) (domain.Analysis, error) {
	fields := make(map[string]string)
	current := ""
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if key, value, ok := analysisField(line); ok {
			current = key
			fields[key] = value
			continue
		}
		// continuation of a multi-line explanation
		if current == fieldExplanation {
			fields[current] += " " + line
		}
	}

	a := domain.Analysis{
		Explanation:       strings.TrimSpace(fields[fieldExplanation]),
		SuggestedQuestion: cleanValue(fields[fieldSuggested]),
		RelevantActs:      splitActs(fields[fieldActs]),
		Raw:               text,
	}

	raw, ok := fields[fieldStatus]
	if !ok {
		return notAnswerable(a, "analysis output has no STATUS line")
	}
	switch normalizeStatus(raw) {
	case "ANSWERABLE":
		a.Status = domain.StatusAnswerable
	case "NEEDS_RESHAPING":
		a.Status = domain.StatusNeedsReshaping
	case "NOT_ANSWERABLE":
		a.Status = domain.StatusNotAnswerable
	default:
		return notAnswerable(a, fmt.Sprintf("unknown analysis status %q", raw))
	}

	if a.Status == domain.StatusNeedsReshaping && a.SuggestedQuestion == "" {
		return notAnswerable(a, "reshaping suggested without a replacement question")
	}
	return a, nil
}

// normalizeStatus turns "[Not Answerable]" or "needs-reshaping" into the
// upper snake case token.
func normalizeStatus(raw string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	s = strings.Trim(s, "[]*\"'.` ")
	s = strings.Join(strings.Fields(s), "_")
	return strings.ReplaceAll(s, "-", "_")
}

func notAnswerable(a domain.Analysis, problem string) (domain.Analysis, error) {
	a.Status = domain.StatusNotAnswerable
	a.SuggestedQuestion = ""
	a.Explanation = "Could not classify the question: " + problem
	return a, fmt.Errorf("%w: %s", domain.ErrClassificationParse, problem)
}

func analysisField(line string) (key, value string, ok bool) {
	k, v, found := strings.Cut(line, ":")
	if !found {
		return "", "", false
	}
	k = strings.ToUpper(strings.Trim(strings.TrimSpace(k), "*# "))
	switch k {
	case fieldStatus, fieldExplanation, fieldSuggested, fieldActs:
		return k, strings.TrimSpace(v), true
	}
	return "", "", false
}

// cleanValue strips brackets and quotes, and maps placeholder answers to "".
func cleanValue(v string) string {
	v = strings.Trim(strings.TrimSpace(v), `[]"'`)
	v = strings.TrimSpace(v)
	switch strings.ToLower(v) {
	case "", "none", "n/a", "na", "-":
		return ""
	}
	return v
}

func splitActs(v string) []string {
	var acts []string
	for _, part := range strings.Split(v, ",") {
		if act := cleanValue(part); act != "" {
			acts = append(acts, act)
		}
	}
	return acts
}

// RouterService drives question routing sessions: analysis, optional
// reshaping, collection selection, retrieval and a single-pass answer.
type RouterService struct {
	llm       driven.CompletionService
	prompts   driven.PromptStore
	catalog   driving.CatalogService
	retrieval driving.RetrievalService

	k           int
	model       string
	temperature float64
}

// NewRouterService creates a router. k is the per-collection retrieval
// depth; model and temperature apply to the answer completion.
func NewRouterService(
	llm driven.CompletionService,
	prompts driven.PromptStore,
	catalog driving.CatalogService,
	retrieval driving.RetrievalService,
	k int,
	model string,
	temperature float64,
) *RouterService {
	return &RouterService{
		llm:         llm,
		prompts:     prompts,
		catalog:     catalog,
		retrieval:   retrieval,
		k:           max(k, 1),
		model:       model,
		temperature: temperature,
	}
}

type analyzePromptData struct {
	Question    string
	Collections string
}

type answerPromptData struct {
	Question string
	Context  string
}

// Run takes question through the state machine until it reaches StageDone.
// Errors are returned only for invalid input, a failing decider or an
// unreadable catalog; model failures become answer text.
func (r *RouterService) Run(ctx context.Context, question string, decider driving.Decider) (domain.AgentState, error) {
	state, err := Advance(domain.AgentState{}, QuestionEvent{Question: question})
	if err != nil {
		return state, err
	}

	available, err := r.catalog.Collections(ctx)
	if err != nil {
		return state, err
	}

	analysis := r.analyze(ctx, state.UserQuestion, available)
	state.CompletionCalls++
	if state, err = Advance(state, AnalysisEvent{Analysis: analysis}); err != nil {
		return state, err
	}
	logger.Debug("router: status=%s explanation=%q", state.Status, state.Explanation)

	for !state.Done() {
		if err := ctx.Err(); err != nil {
			return state, err
		}

		var ev Event
		switch state.Stage {
		case domain.StageReshape:
			decision, err := decider.ApproveReshaped(ctx, state.UserQuestion, state.ReshapedQuestion)
			if err != nil {
				return state, err
			}
			ev = ReshapeEvent{Decision: decision}

		case domain.StageSelect:
			selected, err := r.selectCollections(ctx, state.SuggestedCollections, available, decider)
			if err != nil {
				return state, err
			}
			ev = SelectionEvent{Collections: selected}

		case domain.StageRetrieve:
			ev = RetrievalEvent{Chunks: r.retrieve(ctx, state.ApprovedQuestion, state.SelectedCollections)}

		case domain.StageSynthesize:
			state.CompletionCalls++
			ev = AnswerEvent{Answer: r.answer(ctx, state.ApprovedQuestion, state.RetrievedDocs)}

		default:
			return state, fmt.Errorf("%w: no driver for stage %s", domain.ErrInvalidTransition, state.Stage)
		}

		if state, err = Advance(state, ev); err != nil {
			return state, err
		}
	}

	logger.Debug("router: finished with outcome %s after %d completion calls", state.Outcome, state.CompletionCalls)
	return state, nil
}

// analyze classifies the question. Any failure yields a not_answerable
// analysis whose explanation says why.
func (r *RouterService) analyze(ctx context.Context, question string, available []string) domain.Analysis {
	prompt, err := renderPrompt(r.prompts, driven.PromptAnalyze, analyzePromptData{
		Question:    question,
		Collections: strings.Join(available, "\n"),
	})
	if err != nil {
		return failedAnalysis(err)
	}
	if r.llm == nil {
		return failedAnalysis(domain.ErrLLMUnavailable)
	}

	text, err := r.llm.Complete(ctx, prompt, driven.CompleteOptions{Temperature: 0})
	if err != nil {
		return failedAnalysis(err)
	}

	analysis, err := ParseAnalysis(text)
	if err != nil {
		logger.Warn("router: %v", err)
	}
	return analysis
}

func failedAnalysis(err error) domain.Analysis {
	logger.Warn("router: analysis failed: %v", err)
	return domain.Analysis{
		Status:      domain.StatusNotAnswerable,
		Explanation: "Question analysis failed: " + err.Error(),
	}
}

// selectCollections offers the validated suggestion first and falls back
// to a manual choice from every processed collection.
func (r *RouterService) selectCollections(
	ctx context.Context,
	suggested, available []string,
	decider driving.Decider,
) ([]string, error) {
	matched := MatchCollections(suggested, available)
	if len(matched) > 0 {
		ok, err := decider.ConfirmCollections(ctx, matched)
		if err != nil {
			return nil, err
		}
		if ok {
			return matched, nil
		}
	}
	return decider.SelectCollections(ctx, available)
}

// retrieve concatenates the top-k of each selected collection.
// A failing collection is logged and skipped.
func (r *RouterService) retrieve(ctx context.Context, question string, collections []string) []domain.ScoredChunk {
	var all []domain.ScoredChunk
	for _, col := range collections {
		hits, err := r.retrieval.Retrieve(ctx, question, col, r.k, nil)
		if err != nil {
			logger.Warn("router: retrieval from %s failed: %v", col, err)
			continue
		}
		all = append(all, hits...)
	}
	return all
}

// answer makes the single-pass answer completion.
func (r *RouterService) answer(ctx context.Context, question string, chunks []domain.ScoredChunk) string {
	blocks := make([]string, len(chunks))
	for i, c := range chunks {
		src := c.Chunk.Metadata.SourceName
		if src == "" {
			src = "Unknown"
		}
		blocks[i] = fmt.Sprintf("Source: %s, Page: %d\nContent: %s", src, c.Chunk.PageNumber, c.Chunk.Text)
	}

	prompt, err := renderPrompt(r.prompts, driven.PromptAnswer, answerPromptData{
		Question: question,
		Context:  strings.Join(blocks, "\n\n"),
	})
	if err == nil {
		if r.llm == nil {
			err = domain.ErrLLMUnavailable
		} else {
			var text string
			text, err = r.llm.Complete(ctx, prompt, driven.CompleteOptions{
				Model:       r.model,
				Temperature: r.temperature,
			})
			if err == nil {
				return strings.TrimSpace(text)
			}
		}
	}

	err = fmt.Errorf("%w: %w", domain.ErrSynthesis, err)
	logger.Error("router: %v", err)
	return "Sorry, an error occurred while generating the answer: " + err.Error()
}

// AutoDecider answers every router question without a human: it accepts
// reshaped questions, and uses Collections when set, else the suggestion,
// else every processed collection.
type AutoDecider struct {
	Collections []string
}

// Ensure AutoDecider implements the interface.
var _ driving.Decider = AutoDecider{}

// ApproveReshaped always accepts the suggestion.
func (d AutoDecider) ApproveReshaped(_ context.Context, _, _ string) (driving.ReshapeDecision, error) {
	return driving.ReshapeDecision{Choice: driving.ReshapeAccept}, nil
}

// ConfirmCollections accepts the suggestion unless collections were requested.
func (d AutoDecider) ConfirmCollections(_ context.Context, _ []string) (bool, error) {
	return len(d.Collections) == 0, nil
}

// SelectCollections returns the requested collections that exist, or all of them.
func (d AutoDecider) SelectCollections(_ context.Context, available []string) ([]string, error) {
	if len(d.Collections) == 0 {
		return available, nil
	}
	matched := MatchCollections(d.Collections, available)
	if len(matched) == 0 {
		return nil, fmt.Errorf("%w: no processed collection matches %s",
			domain.ErrNotFound, strings.Join(d.Collections, ", "))
	}
	return matched, nil
}
