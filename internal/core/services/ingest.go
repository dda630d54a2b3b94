package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/lexrag/internal/chunker"
	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
	"github.com/custodia-labs/lexrag/internal/core/ports/driving"
	"github.com/custodia-labs/lexrag/internal/logger"
)

// Ensure IngestService implements the interface.
var _ driving.IngestService = (*IngestService)(nil)

// DefaultWatchDebounce is how long Watch waits for a burst of file
// system events to settle before re-running IngestAll.
const DefaultWatchDebounce = 2 * time.Second

// IngestService turns directories of PDFs into indexed collections.
type IngestService struct {
	extractor driven.PageExtractor
	renderer  driven.PageRenderer
	ocr       driven.VisionOCR
	embedder  driven.EmbeddingService
	vectors   driven.VectorStore
	catalog   driving.CatalogService

	splitter *chunker.Splitter
	settings domain.IngestSettings
	limiter  *rate.Limiter
	debounce time.Duration
}

// NewIngestService creates an ingestion service. OCR is disabled until
// SetOCR is called.
func NewIngestService(
	extractor driven.PageExtractor,
	embedder driven.EmbeddingService,
	vectors driven.VectorStore,
	catalog driving.CatalogService,
	settings domain.IngestSettings,
) *IngestService {
	s := &IngestService{
		extractor: extractor,
		embedder:  embedder,
		vectors:   vectors,
		catalog:   catalog,
		splitter:  chunker.FromSettings(settings),
		settings:  settings,
		debounce:  DefaultWatchDebounce,
	}
	if settings.OCRRatePerMinute > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(float64(settings.OCRRatePerMinute)/60), 1)
	}
	return s
}

// SetOCR enables the OCR fallback for scanned pages.
func (s *IngestService) SetOCR(renderer driven.PageRenderer, ocr driven.VisionOCR) {
	s.renderer = renderer
	s.ocr = ocr
}

// fileResult is the outcome of processing one PDF.
type fileResult struct {
	doc      domain.Document
	chunks   []domain.Chunk
	pages    int
	ocrPages int
}

// Ingest processes every PDF directly inside dir into collection.
func (s *IngestService) Ingest(ctx context.Context, dir, collection string) (driving.IngestReport, error) {
	report := driving.IngestReport{Collection: collection, Dir: dir}
	if strings.TrimSpace(collection) == "" {
		return report, fmt.Errorf("%w: empty collection name", domain.ErrInvalidInput)
	}

	files, err := listPDFs(dir)
	if err != nil {
		logger.Warn("ingest: cannot read %s: %v", dir, err)
		return report, nil
	}
	if len(files) == 0 {
		logger.Info("ingest: no PDF files in %s", dir)
		return report, nil
	}
	report.Files = len(files)
	logger.Section(fmt.Sprintf("Ingesting %d files into %s", len(files), collection))

	results := make([]*fileResult, len(files))
	var g errgroup.Group
	g.SetLimit(max(s.settings.Workers, 1))
	for i, path := range files {
		g.Go(func() error {
			res, err := s.processFile(ctx, path, collection)
			if err != nil {
				// per-file failures never abort the batch
				logger.Warn("ingest: skipping %s: %v", filepath.Base(path), err)
				return nil
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return report, err
	}

	var chunks []domain.Chunk
	var docs []domain.Document
	for _, res := range results {
		if res == nil {
			report.FileErrors++
			continue
		}
		docs = append(docs, res.doc)
		chunks = append(chunks, res.chunks...)
		report.Pages += res.pages
		report.OCRPages += res.ocrPages
	}
	if len(chunks) == 0 {
		logger.Warn("ingest: no chunks produced from %s; %s not marked processed", dir, collection)
		return report, nil
	}

	if err := s.embed(ctx, chunks); err != nil {
		return report, err
	}
	if err := s.vectors.Upsert(ctx, collection, chunks); err != nil {
		return report, fmt.Errorf("upsert %s: %w", collection, err)
	}
	if err := s.catalog.RecordDocuments(ctx, collection, docs); err != nil {
		return report, fmt.Errorf("record documents of %s: %w", collection, err)
	}
	if err := s.catalog.MarkProcessed(ctx, collection); err != nil {
		return report, fmt.Errorf("mark %s processed: %w", collection, err)
	}

	report.Documents = len(docs)
	report.Chunks = len(chunks)
	logger.Info("ingest: %s: %d documents, %d pages (%d OCR), %d chunks",
		collection, report.Documents, report.Pages, report.OCRPages, report.Chunks)
	return report, nil
}

// processFile extracts, OCRs and chunks one PDF.
func (s *IngestService) processFile(ctx context.Context, path, collection string) (*fileResult, error) {
	doc, err := domain.NewDocument(path, domain.DocumentMeta{
		Collection:   collection,
		DocumentType: s.settings.DocumentType,
		Jurisdiction: s.settings.Jurisdiction,
	})
	if err != nil {
		return nil, err
	}

	pages, err := s.extractor.Extract(ctx, doc.SourcePath)
	if err != nil {
		if errors.Is(err, domain.ErrExtraction) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrExtraction, err)
	}

	res := &fileResult{doc: doc}
	meta := domain.MetadataFor(doc)
	for _, page := range pages {
		page = s.pageText(ctx, doc.SourcePath, page)
		if page.Text == "" {
			continue
		}
		res.pages++
		if page.OCR {
			res.ocrPages++
		}
		for _, piece := range s.splitter.Split(page.Text) {
			res.chunks = append(res.chunks, domain.Chunk{
				ID:         domain.ChunkID(doc.ID, page.Number, piece.Ordinal, piece.Sub),
				DocumentID: doc.ID,
				Collection: collection,
				PageNumber: page.Number,
				Ordinal:    piece.Ordinal,
				Text:       piece.Text,
				Metadata:   meta,
			})
		}
	}

	if len(res.chunks) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrEmptyDocument, doc.SourceName)
	}
	logger.Debug("ingest: %s: %d pages, %d chunks", doc.SourceName, res.pages, len(res.chunks))
	return res, nil
}

// pageText returns the page with its final, whitespace-normalised text.
// Scanned pages go through OCR; the longer of native and OCR text wins.
func (s *IngestService) pageText(ctx context.Context, path string, page domain.Page) domain.Page {
	native := chunker.NormalizeWhitespace(page.Text)
	page.Text = native
	if len([]rune(native)) >= s.settings.OCRThreshold || s.ocr == nil || s.renderer == nil {
		return page
	}

	text, err := s.ocrPage(ctx, path, page.Number)
	if err != nil {
		logger.Warn("ingest: %v", err)
	}
	text = chunker.NormalizeWhitespace(text)
	if len([]rune(text)) > len([]rune(native)) {
		page.Text = text
		page.OCR = true
	}
	return page
}

// ocrPage renders a page and sends it to the OCR service, retrying with
// exponential backoff.
func (s *IngestService) ocrPage(ctx context.Context, path string, page int) (string, error) {
	png, err := s.renderer.Render(ctx, path, page, s.settings.OCRDPI)
	if err != nil {
		return "", fmt.Errorf("%w: render %s page %d: %w", domain.ErrOCR, filepath.Base(path), page, err)
	}

	attempts := max(s.settings.OCRRetries, 1)
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				return "", err
			}
		}

		text, err := s.ocr.OCR(ctx, png)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if attempt == attempts {
			break
		}

		delay := s.settings.OCRBackoff * time.Duration(1<<(attempt-1))
		logger.Debug("ingest: OCR attempt %d for %s page %d failed, retrying in %s: %v",
			attempt, filepath.Base(path), page, delay, err)
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(delay):
		}
	}
	return "", fmt.Errorf("%w: %s page %d after %d attempts: %w",
		domain.ErrOCR, filepath.Base(path), page, attempts, lastErr)
}

// embed fills chunk embeddings in batches.
func (s *IngestService) embed(ctx context.Context, chunks []domain.Chunk) error {
	if s.embedder == nil {
		return domain.ErrEmbeddingUnavailable
	}
	size := s.settings.EmbedBatch
	if size <= 0 {
		size = len(chunks)
	}

	for start := 0; start < len(chunks); start += size {
		end := min(start+size, len(chunks))
		texts := make([]string, end-start)
		for i := range texts {
			texts[i] = chunks[start+i].Text
		}

		vectors, err := s.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed chunks %d-%d: %w", start, end, err)
		}
		if len(vectors) != len(texts) {
			return fmt.Errorf("embed chunks %d-%d: got %d vectors for %d texts", start, end, len(vectors), len(texts))
		}
		for i, v := range vectors {
			chunks[start+i].Embedding = v
		}
	}
	return nil
}

// listPDFs returns the *.pdf files directly in dir, case-insensitively, sorted.
func listPDFs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	return files, nil
}

// ingestTarget is one directory feeding one collection.
type ingestTarget struct {
	dir        string
	collection string
}

// discover lists acts_root/<act>/{base,amendment} followed by the
// explicit source directories. Duplicate collections keep the first.
func (s *IngestService) discover() []ingestTarget {
	var targets []ingestTarget
	seen := make(map[string]bool)
	add := func(dir, collection string) {
		if seen[collection] {
			logger.Warn("ingest: collection %s already mapped, ignoring %s", collection, dir)
			return
		}
		seen[collection] = true
		targets = append(targets, ingestTarget{dir: dir, collection: collection})
	}

	if root := s.settings.ActsRoot; root != "" {
		acts, err := os.ReadDir(root)
		if err != nil {
			logger.Debug("ingest: acts root %s: %v", root, err)
		}
		for _, act := range acts {
			if !act.IsDir() {
				continue
			}
			for _, kind := range domain.ActFolderKinds {
				dir := filepath.Join(root, act.Name(), string(kind))
				if info, err := os.Stat(dir); err == nil && info.IsDir() {
					add(dir, domain.CollectionName(act.Name(), kind))
				}
			}
		}
	}

	for _, src := range s.settings.Sources {
		collection := src.Collection
		if collection == "" {
			collection = filepath.Base(filepath.Clean(src.Path))
		}
		add(src.Path, collection)
	}
	return targets
}

// IngestAll ingests every discovered collection that is not yet processed.
func (s *IngestService) IngestAll(ctx context.Context) ([]driving.IngestReport, error) {
	targets := s.discover()
	if len(targets) == 0 {
		logger.Info("ingest: nothing to ingest under %s", s.settings.ActsRoot)
		return nil, nil
	}

	reports := make([]driving.IngestReport, 0, len(targets))
	var errs []error
	for _, t := range targets {
		done, err := s.catalog.IsProcessed(ctx, t.collection)
		if err != nil {
			return reports, err
		}
		if done {
			logger.Debug("ingest: %s already processed, skipping", t.collection)
			reports = append(reports, driving.IngestReport{Collection: t.collection, Dir: t.dir, Skipped: true})
			continue
		}

		report, err := s.Ingest(ctx, t.dir, t.collection)
		reports = append(reports, report)
		if err != nil {
			if ctx.Err() != nil {
				return reports, ctx.Err()
			}
			logger.Error("ingest: %s: %v", t.collection, err)
			errs = append(errs, fmt.Errorf("%s: %w", t.collection, err))
		}
	}
	return reports, errors.Join(errs...)
}

// Watch re-runs IngestAll whenever directories appear under acts_root.
// It blocks until ctx is done.
func (s *IngestService) Watch(ctx context.Context) error {
	root := s.settings.ActsRoot
	if root == "" {
		return fmt.Errorf("%w: acts_root is not set", domain.ErrInvalidInput)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(root); err != nil {
		return fmt.Errorf("watch %s: %w", root, err)
	}
	// act folders gain base/ and amendment/ after they are created
	if acts, err := os.ReadDir(root); err == nil {
		for _, act := range acts {
			if act.IsDir() {
				_ = watcher.Add(filepath.Join(root, act.Name()))
			}
		}
	}
	logger.Info("ingest: watching %s", root)

	timer := time.NewTimer(s.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Create) {
				continue
			}
			if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
				if filepath.Dir(ev.Name) == filepath.Clean(root) {
					_ = watcher.Add(ev.Name)
				}
			}
			timer.Reset(s.debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("ingest: watcher: %v", err)

		case <-timer.C:
			reports, err := s.IngestAll(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				logger.Error("ingest: watch run: %v", err)
			}
			for _, r := range reports {
				if !r.Skipped && r.Chunks > 0 {
					logger.Info("ingest: watch indexed %s (%d chunks)", r.Collection, r.Chunks)
				}
			}
		}
	}
}
