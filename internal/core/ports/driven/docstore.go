package driven

import (
	"context"

	"github.com/custodia-labs/lexrag/internal/core/domain"
)

// CatalogStore persists the collection catalog: which collections have
// been processed and which documents each one contains.
//
// Collections and documents are returned in insertion order so that
// downstream prompt rendering is reproducible.
type CatalogStore interface {
	// Processed returns the names of processed collections in insertion order.
	// A missing store is an empty catalog; an unreadable one returns ErrCatalogLoad.
	Processed(ctx context.Context) ([]string, error)

	// MarkProcessed records collection as processed. Marking twice is a no-op.
	MarkProcessed(ctx context.Context, collection string) error

	// SaveDocuments records documents under collection, replacing any
	// entry with the same ID.
	SaveDocuments(ctx context.Context, collection string, docs []domain.Document) error

	// Documents returns the documents of collection in insertion order.
	Documents(ctx context.Context, collection string) ([]domain.Document, error)

	// Document returns a document by ID, or ErrNotFound.
	Document(ctx context.Context, id string) (*domain.Document, error)

	// Close releases resources.
	Close() error
}
