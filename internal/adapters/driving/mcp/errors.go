// Package mcp provides an MCP (Model Context Protocol) server adapter for lexrag.
// It lets AI assistants ask questions over the ingested legal acts, run
// hybrid retrieval and browse the collection catalog.
package mcp

import "errors"

// ErrMissingRetrievalService is returned when the retrieval service is not provided.
var ErrMissingRetrievalService = errors.New("mcp: retrieval service is required")

// ErrMissingCatalogService is returned when the catalog service is not provided.
var ErrMissingCatalogService = errors.New("mcp: catalog service is required")

// ErrAskUnavailable is returned by the ask tool when no ask service is configured.
var ErrAskUnavailable = errors.New("mcp: ask service is not configured")
