package mcp

import (
	"github.com/custodia-labs/mnemo/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Catalog searches visible documents.
	Catalog driving.CatalogService

	// Selection edits the operator's basket.
	Selection driving.SelectionService

	// Pipeline dispatches runs.
	Pipeline driving.PipelineService

	// Document reads stored documents. Optional; resources are empty without it.
	Document driving.DocumentService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	switch {
	case p.Catalog == nil:
		return ErrMissingCatalogService
	case p.Selection == nil:
		return ErrMissingSelectionService
	case p.Pipeline == nil:
		return ErrMissingPipelineService
	}
	return nil
}
