// Package api serves the question router over HTTP with chi.
package api

import (
	"errors"

	"github.com/custodia-labs/lexrag/internal/core/ports/driving"
)

// ErrMissingRouter is returned when the router service is not provided.
var ErrMissingRouter = errors.New("api: router service is required")

// ErrMissingCatalog is returned when the catalog service is not provided.
var ErrMissingCatalog = errors.New("api: catalog service is required")

// DeciderFunc builds the non-interactive decider for one request.
// requested holds the collections named in the request, possibly empty.
type DeciderFunc func(requested []string) driving.Decider

// Ports aggregates the driving ports used by the HTTP API.
type Ports struct {
	Router  driving.RouterService
	Catalog driving.CatalogService

	// Decider answers the router's questions on behalf of the HTTP client.
	Decider DeciderFunc
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Router == nil || p.Decider == nil {
		return ErrMissingRouter
	}
	if p.Catalog == nil {
		return ErrMissingCatalog
	}
	return nil
}
