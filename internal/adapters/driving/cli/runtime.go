package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/custodia-labs/lexrag/internal/adapters/driven/ai"
	"github.com/custodia-labs/lexrag/internal/adapters/driven/config/file"
	"github.com/custodia-labs/lexrag/internal/adapters/driven/render"
	"github.com/custodia-labs/lexrag/internal/adapters/driven/search/bm25"
	"github.com/custodia-labs/lexrag/internal/adapters/driven/storage/jsonfile"
	"github.com/custodia-labs/lexrag/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/lexrag/internal/adapters/driven/storage/pgvector"
	"github.com/custodia-labs/lexrag/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
	"github.com/custodia-labs/lexrag/internal/core/services"
	"github.com/custodia-labs/lexrag/internal/logger"
	"github.com/custodia-labs/lexrag/internal/normalisers/pdf"
)

// Runtime owns every adapter built from one Config. Adapters are created
// on first use so that commands only need the providers they call.
type Runtime struct {
	cfg domain.Config

	// validate pings AI providers when they are created.
	validate bool

	sqlite    *sqlite.Store
	catalogDB driven.CatalogStore
	vectors   driven.VectorStore
	embedder  driven.EmbeddingService
	llm       driven.CompletionService
	prompts   *file.PromptStore

	catalog   *services.CatalogService
	retrieval *services.RetrievalService
	synthesis *services.SynthesisService

	closers []func() error
}

// NewRuntime creates a runtime for cfg.
func NewRuntime(cfg domain.Config) *Runtime {
	return &Runtime{cfg: cfg, validate: true}
}

// Config returns the configuration the runtime was built from.
func (r *Runtime) Config() domain.Config {
	return r.cfg
}

// Close releases every adapter in reverse creation order.
func (r *Runtime) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	return errors.Join(errs...)
}

func (r *Runtime) sqliteStore() (*sqlite.Store, error) {
	if r.sqlite != nil {
		return r.sqlite, nil
	}
	store, err := sqlite.NewStore(r.cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite store: %w", err)
	}
	r.sqlite = store
	r.closers = append(r.closers, store.Close)
	return store, nil
}

// Catalog returns the collection catalog service.
func (r *Runtime) Catalog() (*services.CatalogService, error) {
	if r.catalog != nil {
		return r.catalog, nil
	}

	switch r.cfg.CatalogBackend {
	case domain.CatalogSQLite:
		store, err := r.sqliteStore()
		if err != nil {
			return nil, err
		}
		r.catalogDB = store.CatalogStore()
	default:
		store, err := jsonfile.NewCatalogStore(filepath.Join(r.cfg.DataDir, "catalog"))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrCatalogLoad, err)
		}
		r.catalogDB = store
		r.closers = append(r.closers, store.Close)
	}

	r.catalog = services.NewCatalogService(r.catalogDB)
	return r.catalog, nil
}

func (r *Runtime) vectorStore(ctx context.Context) (driven.VectorStore, error) {
	if r.vectors != nil {
		return r.vectors, nil
	}

	switch r.cfg.IndexBackend {
	case domain.IndexMemory:
		r.vectors = memory.NewVectorStore()
	case domain.IndexPGVector:
		store, err := pgvector.Open(ctx, r.cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("opening pgvector store: %w", err)
		}
		r.vectors = store
		r.closers = append(r.closers, store.Close)
	default:
		store, err := r.sqliteStore()
		if err != nil {
			return nil, err
		}
		r.vectors = store.VectorStore()
	}
	return r.vectors, nil
}

func (r *Runtime) embedding(ctx context.Context) (driven.EmbeddingService, error) {
	if r.embedder != nil {
		return r.embedder, nil
	}
	create := ai.CreateEmbeddingService
	if r.validate {
		create = ai.CreateAndValidateEmbeddingService
	}
	svc, err := create(ctx, r.cfg.Embedding)
	if err != nil {
		return nil, err
	}
	r.embedder = svc
	r.closers = append(r.closers, svc.Close)
	return svc, nil
}

func (r *Runtime) completion(ctx context.Context) (driven.CompletionService, error) {
	if r.llm != nil {
		return r.llm, nil
	}
	create := ai.CreateCompletionService
	if r.validate {
		create = ai.CreateAndValidateCompletionService
	}
	svc, err := create(ctx, r.cfg.LLM)
	if err != nil {
		return nil, err
	}
	r.llm = svc
	r.closers = append(r.closers, svc.Close)
	return svc, nil
}

func (r *Runtime) promptStore() (*file.PromptStore, error) {
	if r.prompts != nil {
		return r.prompts, nil
	}
	store, err := file.NewPromptStore(filepath.Join(r.cfg.DataDir, "prompts"))
	if err != nil {
		return nil, fmt.Errorf("opening prompt store: %w", err)
	}
	r.prompts = store
	return store, nil
}

// Retrieval returns the hybrid retriever, with the reranker when enabled.
func (r *Runtime) Retrieval(ctx context.Context) (*services.RetrievalService, error) {
	if r.retrieval != nil {
		return r.retrieval, nil
	}
	vectors, err := r.vectorStore(ctx)
	if err != nil {
		return nil, err
	}
	embedder, err := r.embedding(ctx)
	if err != nil {
		return nil, err
	}

	svc := services.NewRetrievalService(vectors, embedder, bm25.New(), r.cfg.Retrieval)
	reranker, err := ai.CreateReranker(r.cfg.Retrieval)
	if err != nil {
		return nil, err
	}
	if reranker != nil {
		svc.SetReranker(reranker)
	}
	r.retrieval = svc
	return svc, nil
}

// Ingest returns the ingestion pipeline. OCR fallback is enabled when the
// OCR provider is configured; otherwise scanned pages keep their native text.
func (r *Runtime) Ingest(ctx context.Context) (*services.IngestService, error) {
	catalog, err := r.Catalog()
	if err != nil {
		return nil, err
	}
	vectors, err := r.vectorStore(ctx)
	if err != nil {
		return nil, err
	}
	embedder, err := r.embedding(ctx)
	if err != nil {
		return nil, err
	}

	svc := services.NewIngestService(pdf.New(), embedder, vectors, catalog, r.cfg.Ingest)

	if !r.cfg.OCR.IsConfigured() {
		logger.Warn("OCR provider %s is not configured; scanned pages will not be transcribed", r.cfg.OCR.Provider)
		return svc, nil
	}
	prompts, err := r.promptStore()
	if err != nil {
		return nil, err
	}
	prompt, err := prompts.Load(driven.PromptOCR)
	if err != nil {
		return nil, fmt.Errorf("loading OCR prompt: %w", err)
	}
	ocr, err := ai.CreateVisionOCR(ctx, r.cfg.OCR, prompt)
	if err != nil {
		logger.Warn("OCR disabled: %v", err)
		return svc, nil
	}
	svc.SetOCR(render.New(), ocr)
	return svc, nil
}

func (r *Runtime) synthesizer(ctx context.Context) (*services.SynthesisService, error) {
	if r.synthesis != nil {
		return r.synthesis, nil
	}
	llm, err := r.completion(ctx)
	if err != nil {
		return nil, err
	}
	prompts, err := r.promptStore()
	if err != nil {
		return nil, err
	}
	r.synthesis = services.NewSynthesisService(llm, prompts, r.cfg.Synthesis)
	return r.synthesis, nil
}

// Ask returns the whole-collection map-reduce question answerer.
func (r *Runtime) Ask(ctx context.Context) (*services.AskService, error) {
	catalog, err := r.Catalog()
	if err != nil {
		return nil, err
	}
	retrieval, err := r.Retrieval(ctx)
	if err != nil {
		return nil, err
	}
	synthesis, err := r.synthesizer(ctx)
	if err != nil {
		return nil, err
	}
	return services.NewAskService(catalog, retrieval, synthesis, r.cfg.Synthesis, r.cfg.LLM.Model), nil
}

// Router returns the question routing state machine.
func (r *Runtime) Router(ctx context.Context) (*services.RouterService, error) {
	catalog, err := r.Catalog()
	if err != nil {
		return nil, err
	}
	retrieval, err := r.Retrieval(ctx)
	if err != nil {
		return nil, err
	}
	llm, err := r.completion(ctx)
	if err != nil {
		return nil, err
	}
	prompts, err := r.promptStore()
	if err != nil {
		return nil, err
	}
	return services.NewRouterService(
		llm, prompts, catalog, retrieval,
		r.cfg.Retrieval.RouterK, r.cfg.LLM.Model, r.cfg.Synthesis.Temperature,
	), nil
}
