// Package render rasterises PDF pages for vision OCR using ImageMagick.
package render

import (
	"context"
	"fmt"

	"github.com/JaimeStill/document-context/pkg/config"
	"github.com/JaimeStill/document-context/pkg/document"
	"github.com/JaimeStill/document-context/pkg/image"

	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
)

// Ensure Renderer implements the interface.
var _ driven.PageRenderer = (*Renderer)(nil)

// Renderer renders single PDF pages to PNG through document-context.
type Renderer struct{}

// New returns a Renderer. ImageMagick must be installed for Render to succeed.
func New() *Renderer {
	return &Renderer{}
}

// ImageConfig returns the render settings for dpi: PNG on a white background.
func ImageConfig(dpi int) config.ImageConfig {
	return config.ImageConfig{
		Format:  "png",
		DPI:     dpi,
		Options: map[string]any{"background": "white"},
	}
}

// Render returns PNG bytes for the 1-based page of the PDF at path.
func (r *Renderer) Render(ctx context.Context, path string, page, dpi int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if page < 1 {
		return nil, fmt.Errorf("render %s: invalid page %d", path, page)
	}

	pdfDoc, err := document.OpenPDF(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer pdfDoc.Close()

	p, err := pdfDoc.ExtractPage(page)
	if err != nil {
		return nil, fmt.Errorf("extract page %d: %w", page, err)
	}

	renderer, err := image.NewImageMagickRenderer(ImageConfig(dpi))
	if err != nil {
		return nil, fmt.Errorf("create renderer: %w", err)
	}

	data, err := p.ToImage(renderer, nil)
	if err != nil {
		return nil, fmt.Errorf("render page %d: %w", page, err)
	}
	return data, nil
}
