package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/core/ports/driving"
	"github.com/custodia-labs/lexrag/internal/logger"
)

// Ensure AskService implements the interface.
var _ driving.AskService = (*AskService)(nil)

// AskService answers a question over whole collections: top-k chunks per
// document, then one map-reduce synthesis over every document.
type AskService struct {
	catalog   driving.CatalogService
	retrieval driving.RetrievalService
	synthesis driving.SynthesisService
	settings  domain.SynthesisSettings
	model     string
}

// NewAskService creates an ask service. model is the default completion
// model; an empty string defers to the completion service.
func NewAskService(
	catalog driving.CatalogService,
	retrieval driving.RetrievalService,
	synthesis driving.SynthesisService,
	settings domain.SynthesisSettings,
	model string,
) *AskService {
	return &AskService{
		catalog:   catalog,
		retrieval: retrieval,
		synthesis: synthesis,
		settings:  settings,
		model:     model,
	}
}

// Ask retrieves per-document evidence from each collection and synthesizes one answer.
func (s *AskService) Ask(ctx context.Context, question string, opts driving.AskOptions) (*driving.SynthesisResult, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("%w: empty question", domain.ErrInvalidInput)
	}

	k := s.settings.KPerDoc
	if opts.KPerDoc > 0 {
		k = opts.KPerDoc
	}
	temperature := s.settings.Temperature
	if opts.Temperature != nil {
		temperature = *opts.Temperature
	}
	model := s.model
	if opts.Model != "" {
		model = opts.Model
	}

	collections, err := s.collections(ctx, opts.Collections)
	if err != nil {
		return nil, err
	}

	perDocument := make(map[string][]domain.ScoredChunk)
	var docs []domain.Document
	for _, col := range collections {
		colDocs, err := s.catalog.Documents(ctx, col)
		if err != nil {
			return nil, fmt.Errorf("documents of %s: %w", col, err)
		}
		if len(colDocs) == 0 {
			continue
		}

		ids := make([]string, len(colDocs))
		for i, d := range colDocs {
			ids[i] = d.ID
		}
		hits, err := s.retrieval.RetrieveTopKPerDocument(ctx, question, col, ids, k)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logger.Warn("ask: retrieval over %s failed, skipping: %v", col, err)
			continue
		}

		docs = append(docs, colDocs...)
		for id, chunks := range hits {
			perDocument[id] = append(perDocument[id], chunks...)
		}
	}

	logger.Debug("ask: %d documents across %d collections, k=%d", len(docs), len(collections), k)
	return s.synthesis.Synthesize(ctx, question, perDocument, docs, driving.SynthesisOptions{
		Model:       model,
		Temperature: temperature,
	})
}

// collections resolves the requested names against the catalog.
// No request means every processed collection.
func (s *AskService) collections(ctx context.Context, requested []string) ([]string, error) {
	if len(requested) == 0 {
		return s.catalog.Collections(ctx)
	}
	matched, err := s.catalog.Match(ctx, requested)
	if err != nil {
		return nil, err
	}
	if len(matched) == 0 {
		return nil, fmt.Errorf("%w: no processed collection matches %s",
			domain.ErrNotFound, strings.Join(requested, ", "))
	}
	return matched, nil
}
