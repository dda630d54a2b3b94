package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
)

// Ensure CatalogStore implements the interface.
var _ driven.CatalogStore = (*CatalogStore)(nil)

// CatalogStore is an in-memory implementation of driven.CatalogStore.
type CatalogStore struct {
	mu        sync.RWMutex
	processed []string
	order     map[string][]string
	documents map[string]domain.Document
}

// NewCatalogStore creates an empty in-memory catalog.
func NewCatalogStore() *CatalogStore {
	return &CatalogStore{
		order:     make(map[string][]string),
		documents: make(map[string]domain.Document),
	}
}

// Processed returns processed collection names in insertion order.
func (s *CatalogStore) Processed(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.processed), nil
}

// MarkProcessed records collection as processed.
func (s *CatalogStore) MarkProcessed(_ context.Context, collection string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !slices.Contains(s.processed, collection) {
		s.processed = append(s.processed, collection)
	}
	return nil
}

// SaveDocuments records docs under collection.
func (s *CatalogStore) SaveDocuments(_ context.Context, collection string, docs []domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range docs {
		d.Collection = collection
		if _, seen := s.documents[d.ID]; !seen {
			s.order[collection] = append(s.order[collection], d.ID)
		}
		s.documents[d.ID] = d
	}
	return nil
}

// Documents returns the documents of collection in insertion order.
func (s *CatalogStore) Documents(_ context.Context, collection string) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.order[collection]
	out := make([]domain.Document, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.documents[id])
	}
	return out, nil
}

// Document returns a document by ID.
func (s *CatalogStore) Document(_ context.Context, id string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &doc, nil
}

// Close is a no-op.
func (s *CatalogStore) Close() error {
	return nil
}
