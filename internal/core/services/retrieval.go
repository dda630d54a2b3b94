package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
	"github.com/custodia-labs/lexrag/internal/core/ports/driving"
	"github.com/custodia-labs/lexrag/internal/logger"
)

// Ensure RetrievalService implements the interface.
var _ driving.RetrievalService = (*RetrievalService)(nil)

// perDocumentConcurrency bounds the filtered retrievals of RetrieveTopKPerDocument.
const perDocumentConcurrency = 4

// RetrievalService provides hybrid retrieval: BM25 over the candidate set
// and dense similarity from the vector store, fused with weighted RRF.
type RetrievalService struct {
	vectors  driven.VectorStore
	embedder driven.EmbeddingService
	lexical  driven.LexicalRanker
	reranker driven.Reranker
	settings domain.RetrievalSettings
}

// NewRetrievalService creates a retrieval service.
// The embedder and lexical ranker are each optional, but not both.
func NewRetrievalService(
	vectors driven.VectorStore,
	embedder driven.EmbeddingService,
	lexical driven.LexicalRanker,
	settings domain.RetrievalSettings,
) *RetrievalService {
	return &RetrievalService{
		vectors:  vectors,
		embedder: embedder,
		lexical:  lexical,
		settings: settings,
	}
}

// SetReranker enables the cross-encoder stage. Passing nil disables it.
func (s *RetrievalService) SetReranker(r driven.Reranker) {
	s.reranker = r
}

// fused is one candidate during fusion.
type fused struct {
	chunk   domain.Chunk
	score   float64
	dense   float64
	lexical float64
}

// Retrieve returns at most k chunks of collection ranked for question.
func (s *RetrievalService) Retrieve(
	ctx context.Context,
	question, collection string,
	k int,
	filter *domain.Filter,
) ([]domain.ScoredChunk, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return []domain.ScoredChunk{}, nil
	}
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", domain.ErrInvalidInput, k)
	}
	if s.vectors == nil {
		return nil, fmt.Errorf("%w: vector store unavailable", domain.ErrRetrieval)
	}

	candidates, err := s.vectors.Chunks(ctx, collection, filter)
	if err != nil {
		return nil, fmt.Errorf("%w: load candidates of %s: %w", domain.ErrRetrieval, collection, err)
	}
	if len(candidates) == 0 {
		logger.Debug("retrieve: collection %q has no eligible chunks", collection)
		return []domain.ScoredChunk{}, nil
	}

	pool := max(k, s.settings.CandidatePool)
	logger.Debug("retrieve: %d candidates in %q, pool=%d, k=%d", len(candidates), collection, pool, k)

	var lexHits []driven.LexicalHit
	var denseHits []driven.VectorHit
	var lexErr, denseErr error

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		lexHits, lexErr = s.lexicalLeg(question, candidates, pool)
	}()
	go func() {
		defer wg.Done()
		denseHits, denseErr = s.denseLeg(ctx, question, collection, pool, filter)
	}()
	wg.Wait()

	// Degrade to whichever leg succeeded
	if lexErr != nil && denseErr != nil {
		return nil, fmt.Errorf("%w: lexical=%w, dense=%w", domain.ErrRetrieval, lexErr, denseErr)
	}
	if lexErr != nil {
		logger.Warn("retrieve: lexical leg failed, using dense ranking only: %v", lexErr)
	}
	if denseErr != nil {
		logger.Warn("retrieve: dense leg failed, using lexical ranking only: %v", denseErr)
	}

	ranked := s.fuse(candidates, denseHits, lexHits)
	if len(ranked) == 0 {
		return []domain.ScoredChunk{}, nil
	}

	results := toScored(ranked)
	if s.settings.Rerank && s.reranker != nil {
		results = s.rerank(ctx, question, results)
	}

	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// RetrieveTopKPerDocument runs one document-filtered retrieval per ID.
// A document whose retrieval fails is logged and gets an empty result;
// only cancellation of ctx fails the call.
func (s *RetrievalService) RetrieveTopKPerDocument(
	ctx context.Context,
	question, collection string,
	documentIDs []string,
	k int,
) (map[string][]domain.ScoredChunk, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", domain.ErrInvalidInput, k)
	}
	out := make(map[string][]domain.ScoredChunk, len(documentIDs))
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(perDocumentConcurrency)

	for _, id := range documentIDs {
		g.Go(func() error {
			hits, err := s.Retrieve(ctx, question, collection, k, &domain.Filter{DocumentID: id})
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				logger.Warn("retrieval: document %s: %v", id, err)
				hits = []domain.ScoredChunk{}
			}
			mu.Lock()
			out[id] = hits
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *RetrievalService) lexicalLeg(question string, candidates []domain.Chunk, n int) ([]driven.LexicalHit, error) {
	if s.lexical == nil {
		return nil, errors.New("lexical ranker unavailable")
	}
	return s.lexical.Rank(question, candidates, n), nil
}

func (s *RetrievalService) denseLeg(
	ctx context.Context,
	question, collection string,
	n int,
	filter *domain.Filter,
) ([]driven.VectorHit, error) {
	if s.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}
	vec, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}
	hits, err := s.vectors.Query(ctx, collection, vec, n, filter)
	if err != nil {
		return nil, fmt.Errorf("query vectors: %w", err)
	}
	return hits, nil
}

// fuse combines the two rankings with weighted reciprocal rank fusion:
// score = sum(w_i / (rrf_k + rank_i + 1)). Ties break by dense similarity,
// then by chunk ID.
func (s *RetrievalService) fuse(
	candidates []domain.Chunk,
	denseHits []driven.VectorHit,
	lexHits []driven.LexicalHit,
) []fused {
	byID := make(map[string]domain.Chunk, len(candidates))
	for _, c := range candidates {
		byID[c.ID] = c
	}

	rrfK := float64(s.settings.RRFK)
	entries := make(map[string]*fused)
	entry := func(c domain.Chunk) *fused {
		e, ok := entries[c.ID]
		if !ok {
			e = &fused{chunk: c}
			entries[c.ID] = e
		}
		return e
	}

	for rank, h := range denseHits {
		e := entry(h.Chunk)
		e.dense = h.Similarity
		e.score += s.settings.DenseWeight / (rrfK + float64(rank) + 1)
	}
	for rank, h := range lexHits {
		c, ok := byID[h.ChunkID]
		if !ok {
			continue
		}
		e := entry(c)
		e.lexical = h.Score
		e.score += s.settings.LexicalWeight / (rrfK + float64(rank) + 1)
	}

	ranked := make([]fused, 0, len(entries))
	for _, e := range entries {
		ranked = append(ranked, *e)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		if ranked[i].dense != ranked[j].dense {
			return ranked[i].dense > ranked[j].dense
		}
		return ranked[i].chunk.ID < ranked[j].chunk.ID
	})
	return ranked
}

func toScored(ranked []fused) []domain.ScoredChunk {
	out := make([]domain.ScoredChunk, len(ranked))
	for i, r := range ranked {
		out[i] = domain.ScoredChunk{
			Chunk:   r.chunk,
			Score:   r.score,
			Dense:   r.dense,
			Lexical: r.lexical,
		}
	}
	return out
}

// rerank re-scores the head of results with the cross-encoder.
// On failure the fused order is kept.
func (s *RetrievalService) rerank(ctx context.Context, question string, results []domain.ScoredChunk) []domain.ScoredChunk {
	top := len(results)
	if s.settings.RerankTopN > 0 && s.settings.RerankTopN < top {
		top = s.settings.RerankTopN
	}

	texts := make([]string, top)
	for i := range top {
		texts[i] = results[i].Chunk.Text
	}

	scores, err := s.reranker.Rerank(ctx, question, texts)
	if err != nil || len(scores) != top {
		logger.Warn("retrieve: rerank failed, keeping fused order: %v", err)
		return results
	}

	head := make([]domain.ScoredChunk, top)
	copy(head, results[:top])
	for i := range head {
		head[i].Score = scores[i]
		head[i].Reranked = true
	}
	sort.SliceStable(head, func(i, j int) bool {
		return head[i].Score > head[j].Score
	})

	return append(head, results[top:]...)
}
