// Package normalisers holds the document readers that turn source files
// into page text for ingestion.
//
// Subpackages:
//   - pdf: native per-page text layer extraction
package normalisers
