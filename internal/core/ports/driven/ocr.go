package driven

import (
	"context"

	"github.com/custodia-labs/lexrag/internal/core/domain"
)

// PageExtractor reads native text from every page of a PDF.
type PageExtractor interface {
	// Extract returns one Page per PDF page, numbered from 1.
	// Pages without a text layer are returned with empty Text.
	Extract(ctx context.Context, path string) ([]domain.Page, error)
}

// PageRenderer rasterises a single PDF page for OCR.
type PageRenderer interface {
	// Render returns PNG bytes for the 1-based page at the given DPI.
	Render(ctx context.Context, path string, page, dpi int) ([]byte, error)
}

// VisionOCR transcribes the text in a page image.
// Implementations are expected to fail intermittently (rate limits,
// transient errors); callers own retry and backoff.
type VisionOCR interface {
	// OCR returns the text recognised in a PNG image.
	OCR(ctx context.Context, png []byte) (string, error)
}
