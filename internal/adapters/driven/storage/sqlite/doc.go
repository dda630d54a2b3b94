// Package sqlite provides a SQLite-based implementation of the catalog
// and embedding index ports.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO. One database connection serves both:
//
//   - CatalogStore: processed collections and their documents
//   - VectorStore: chunks with their embeddings, queried by cosine scan
//
// # Schema
//
// The schema is managed through versioned migrations in the migrations/
// directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Data Location
//
// By default, the database is stored at ~/.lexrag/lexrag.db
package sqlite
