// Package pdf extracts native per-page text from PDF files.
//
// Text comes from the PDF's own text layer via ledongthuc/pdf. When that
// reader cannot open a file and poppler's pdftotext is installed, the
// extractor falls back to it. Scanned pages come back with empty text;
// OCR is the ingestion pipeline's concern, not this package's.
package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
	"github.com/custodia-labs/lexrag/internal/logger"
)

// Ensure Extractor implements the interface.
var _ driven.PageExtractor = (*Extractor)(nil)

// ErrPDFToolNotFound indicates pdftotext is not installed.
var ErrPDFToolNotFound = errors.New("pdftotext not found: install poppler-utils")

// pdftotext separates pages with a form feed.
const pageBreak = "\f"

// CommandRunner executes an external command and returns its stdout.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// Extractor reads the text layer of each page.
type Extractor struct {
	// runner is nil when no pdftotext fallback is available.
	runner CommandRunner
}

// New returns an Extractor. The pdftotext fallback is enabled when the
// binary is on PATH.
func New() *Extractor {
	e := &Extractor{}
	if _, err := exec.LookPath("pdftotext"); err == nil {
		e.runner = execRunner{}
	}
	return e
}

// NewWithRunner returns an Extractor whose fallback uses runner.
func NewWithRunner(runner CommandRunner) *Extractor {
	return &Extractor{runner: runner}
}

// Extract returns one Page per PDF page, numbered from 1.
func (e *Extractor) Extract(ctx context.Context, path string) ([]domain.Page, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", domain.ErrExtraction, path, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", domain.ErrExtraction, path)
	}

	// pdfcpu is stricter than the text reader; a failed count is only logged.
	declared, countErr := api.PageCount(bytes.NewReader(data), nil)
	if countErr != nil {
		logger.Debug("pdf: page count failed for %s: %v", path, countErr)
		declared = 0
	}

	pages, readErr := readPages(ctx, data)
	if readErr == nil {
		return padPages(pages, declared), nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	if e.runner == nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrExtraction, path, readErr)
	}
	logger.Debug("pdf: falling back to pdftotext for %s: %v", path, readErr)

	pages, toolErr := e.pdftotext(ctx, path)
	if toolErr != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrExtraction, path, errors.Join(readErr, toolErr))
	}
	return padPages(pages, declared), nil
}

// readPages extracts each page's plain text. A page whose content cannot
// be decoded is returned empty so that it can still be OCR'd.
func readPages(ctx context.Context, data []byte) ([]domain.Page, error) {
	r, err := openReader(data)
	if err != nil {
		return nil, err
	}

	n := r.NumPage()
	if n == 0 {
		return nil, errors.New("no pages")
	}

	pages := make([]domain.Page, 0, n)
	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pages = append(pages, domain.Page{Number: i, Text: pageText(r, i)})
	}
	return pages, nil
}

// openReader guards against panics on malformed cross-reference tables.
func openReader(data []byte) (r *pdf.Reader, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r, err = nil, fmt.Errorf("malformed pdf: %v", rec)
		}
	}()
	return pdf.NewReader(bytes.NewReader(data), int64(len(data)))
}

func pageText(r *pdf.Reader, i int) (text string) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Debug("pdf: page %d unreadable: %v", i, rec)
			text = ""
		}
	}()

	p := r.Page(i)
	if p.V.IsNull() {
		return ""
	}
	text, err := p.GetPlainText(nil)
	if err != nil {
		logger.Debug("pdf: page %d text: %v", i, err)
		return ""
	}
	return text
}

func (e *Extractor) pdftotext(ctx context.Context, path string) ([]domain.Page, error) {
	out, err := e.runner.Run(ctx, "pdftotext", "-layout", "-enc", "UTF-8", path, "-")
	if err != nil {
		var execErr *exec.Error
		if errors.As(err, &execErr) && errors.Is(execErr.Err, exec.ErrNotFound) {
			return nil, ErrPDFToolNotFound
		}
		return nil, fmt.Errorf("pdftotext: %w", err)
	}

	parts := strings.Split(string(out), pageBreak)
	// pdftotext terminates the last page with a form feed as well
	if len(parts) > 1 && strings.TrimSpace(parts[len(parts)-1]) == "" {
		parts = parts[:len(parts)-1]
	}

	pages := make([]domain.Page, len(parts))
	for i, part := range parts {
		pages[i] = domain.Page{Number: i + 1, Text: part}
	}
	return pages, nil
}

// padPages appends empty pages up to declared so that pages the text
// reader missed still reach OCR.
func padPages(pages []domain.Page, declared int) []domain.Page {
	for n := len(pages) + 1; n <= declared; n++ {
		pages = append(pages, domain.Page{Number: n})
	}
	return pages
}
