// Package mcp provides an MCP (Model Context Protocol) server adapter for mnemo.
// It lets assistants search the catalog, edit the selection basket and
// dispatch runs on behalf of an operator.
package mcp

import "errors"

// Errors returned when required ports are missing.
var (
	ErrMissingCatalogService   = errors.New("mcp: catalog service is required")
	ErrMissingSelectionService = errors.New("mcp: selection service is required")
	ErrMissingPipelineService  = errors.New("mcp: pipeline service is required")
)
