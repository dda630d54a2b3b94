// Package tui provides the interactive console session for lexrag: the
// question loop, the human decisions the router waits on, and a
// bubbletea collection picker.
package tui

import (
	"github.com/custodia-labs/lexrag/internal/core/ports/driving"
)

// Ports aggregates the driving ports used by a console session.
type Ports struct {
	// Router runs one question through analysis, selection and answering.
	Router driving.RouterService

	// Catalog lists processed collections for the welcome banner.
	Catalog driving.CatalogService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p == nil || p.Router == nil {
		return ErrMissingRouter
	}
	if p.Catalog == nil {
		return ErrMissingCatalog
	}
	return nil
}
