// Package domain defines the core legal corpus entities for lexrag.
//
// This package is part of the hexagonal architecture's innermost layer
// and defines the fundamental types:
//
//   - Document: One ingested PDF with its required metadata
//   - Page: One page of extracted text, ephemeral during ingestion
//   - Chunk: The atomic retrieval unit with a deterministic ID
//   - Collection: A named partition of the embedding index
//   - AgentState: The record threaded through a question routing session
//   - Config: The explicit process configuration
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. All other packages depend on
// domain, never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library and github.com/google/uuid
//   - Cannot Import: Any internal/ package
package domain
