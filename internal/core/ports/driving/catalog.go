package driving

import (
	"context"

	"github.com/custodia-labs/lexrag/internal/core/domain"
)

// CatalogService exposes the collection catalog.
type CatalogService interface {
	// Collections returns processed collection names in insertion order.
	Collections(ctx context.Context) ([]string, error)

	// IsProcessed reports whether collection has been ingested.
	IsProcessed(ctx context.Context, collection string) (bool, error)

	// MarkProcessed records collection as ingested.
	MarkProcessed(ctx context.Context, collection string) error

	// RecordDocuments adds documents to collection.
	RecordDocuments(ctx context.Context, collection string, docs []domain.Document) error

	// Documents returns the documents of collection in insertion order.
	Documents(ctx context.Context, collection string) ([]domain.Document, error)

	// Document returns one document by ID.
	Document(ctx context.Context, id string) (*domain.Document, error)

	// Match validates suggested names against the catalog: exact match first,
	// else case-insensitive substring match in either direction.
	Match(ctx context.Context, suggested []string) ([]string, error)
}
