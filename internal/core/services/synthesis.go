package services

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
	"github.com/custodia-labs/lexrag/internal/core/ports/driving"
	"github.com/custodia-labs/lexrag/internal/logger"
)

// Ensure SynthesisService implements the interface.
var _ driving.SynthesisService = (*SynthesisService)(nil)

// SynthesisService answers a question per document (map) and merges the
// answers with a single completion (reduce).
type SynthesisService struct {
	llm         driven.CompletionService
	prompts     driven.PromptStore
	concurrency int
}

// NewSynthesisService creates a synthesis service.
func NewSynthesisService(
	llm driven.CompletionService,
	prompts driven.PromptStore,
	settings domain.SynthesisSettings,
) *SynthesisService {
	return &SynthesisService{
		llm:         llm,
		prompts:     prompts,
		concurrency: max(settings.MapConcurrency, 1),
	}
}

type mapPromptData struct {
	Question string
	Title    string
	Context  string
}

type reducePromptData struct {
	Question string
	Answers  string
}

// Synthesize runs map-reduce over perDocument. Map failures are recorded as
// that document's answer; only a failed reduce returns an error, and it
// still carries a readable answer.
func (s *SynthesisService) Synthesize(
	ctx context.Context,
	question string,
	perDocument map[string][]domain.ScoredChunk,
	docs []domain.Document,
	opts driving.SynthesisOptions,
) (*driving.SynthesisResult, error) {
	if s.llm == nil {
		return nil, domain.ErrLLMUnavailable
	}

	order, titles := documentOrder(perDocument, docs)
	result := &driving.SynthesisResult{
		DocumentAnswers: make(map[string]string, len(order)),
		Order:           order,
	}
	if len(order) == 0 {
		result.Answer = domain.MessageNoRelevantAcrossDocuments
		return result, nil
	}

	answers, failures := s.mapDocuments(ctx, question, order, titles, perDocument, opts)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for i, id := range order {
		result.DocumentAnswers[id] = answers[i]
	}
	result.MapFailures = failures

	if allIrrelevant(answers) {
		logger.Debug("synthesis: every document answered %q, skipping reduce", domain.NoRelevantInformation)
		result.Answer = domain.MessageNoRelevantAcrossDocuments
		return result, nil
	}

	sections := make([]string, len(order))
	for i, id := range order {
		sections[i] = fmt.Sprintf("## %s\n%s", titles[id], answers[i])
	}

	prompt, err := renderPrompt(s.prompts, driven.PromptReduce, reducePromptData{
		Question: question,
		Answers:  strings.Join(sections, "\n\n"),
	})
	if err == nil {
		var merged string
		merged, err = s.llm.Complete(ctx, prompt, completeOptions(opts))
		if err == nil {
			result.Answer = strings.TrimSpace(merged)
			result.Reduced = true
			return result, nil
		}
	}

	logger.Error("synthesis: reduce failed: %v", err)
	result.Answer = fmt.Sprintf("Unable to combine the per-document answers: %v", err)
	return result, fmt.Errorf("%w: reduce: %w", domain.ErrSynthesis, err)
}

// mapDocuments runs one bounded-parallel completion per document and
// returns the answers in order together with the failure count.
func (s *SynthesisService) mapDocuments(
	ctx context.Context,
	question string,
	order []string,
	titles map[string]string,
	perDocument map[string][]domain.ScoredChunk,
	opts driving.SynthesisOptions,
) ([]string, int) {
	answers := make([]string, len(order))
	failed := make([]bool, len(order))

	var g errgroup.Group
	g.SetLimit(s.concurrency)

	for i, id := range order {
		chunks := perDocument[id]
		if len(chunks) == 0 {
			answers[i] = domain.NoRelevantInformation
			continue
		}
		g.Go(func() error {
			answer, err := s.mapOne(ctx, question, titles[id], chunks, opts)
			if err != nil {
				logger.Warn("synthesis: map failed for %s: %v", titles[id], err)
				answers[i] = "Error: " + err.Error()
				failed[i] = true
				return nil
			}
			answers[i] = answer
			return nil
		})
	}
	_ = g.Wait()

	failures := 0
	for _, f := range failed {
		if f {
			failures++
		}
	}
	return answers, failures
}

func (s *SynthesisService) mapOne(
	ctx context.Context,
	question, title string,
	chunks []domain.ScoredChunk,
	opts driving.SynthesisOptions,
) (string, error) {
	prompt, err := renderPrompt(s.prompts, driven.PromptMap, mapPromptData{
		Question: question,
		Title:    title,
		Context:  renderChunks(chunks, title),
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrSynthesis, err)
	}
	answer, err := s.llm.Complete(ctx, prompt, completeOptions(opts))
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrSynthesis, err)
	}
	return strings.TrimSpace(answer), nil
}

// renderChunks numbers chunks from 1 under a source and page header.
func renderChunks(chunks []domain.ScoredChunk, title string) string {
	blocks := make([]string, len(chunks))
	for i, c := range chunks {
		src := c.Chunk.Metadata.SourceName
		if src == "" {
			src = title
		}
		blocks[i] = fmt.Sprintf("[%d] Source: %s, Page: %d\n%s", i+1, src, c.Chunk.PageNumber, c.Chunk.Text)
	}
	return strings.Join(blocks, "\n\n")
}

// documentOrder returns document IDs in catalog order followed by any
// retrieved IDs the catalog does not know, sorted. Titles fall back to
// the short ID form.
func documentOrder(perDocument map[string][]domain.ScoredChunk, docs []domain.Document) ([]string, map[string]string) {
	titles := titleIndex(docs)
	order := make([]string, 0, len(docs))
	for _, d := range docs {
		if !slices.Contains(order, d.ID) {
			order = append(order, d.ID)
		}
	}

	var extra []string
	for id := range perDocument {
		if _, known := titles[id]; !known {
			extra = append(extra, id)
			titles[id] = domain.FallbackTitle(id)
		}
	}
	sort.Strings(extra)
	return append(order, extra...), titles
}

func allIrrelevant(answers []string) bool {
	for _, a := range answers {
		if !isNoRelevantInformation(a) {
			return false
		}
	}
	return true
}

func isNoRelevantInformation(answer string) bool {
	return strings.Trim(strings.TrimSpace(answer), `"'`) == domain.NoRelevantInformation
}

func completeOptions(opts driving.SynthesisOptions) driven.CompleteOptions {
	return driven.CompleteOptions{Model: opts.Model, Temperature: opts.Temperature}
}
