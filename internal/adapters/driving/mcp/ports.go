package mcp

import (
	"github.com/custodia-labs/lexrag/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
type Ports struct {
	// Ask answers questions with map-reduce synthesis. Optional: without
	// it the ask tool reports ErrAskUnavailable.
	Ask driving.AskService

	// Retrieval runs hybrid search over one collection.
	Retrieval driving.RetrievalService

	// Catalog lists collections and their documents.
	Catalog driving.CatalogService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Retrieval == nil {
		return ErrMissingRetrievalService
	}
	if p.Catalog == nil {
		return ErrMissingCatalogService
	}
	return nil
}
