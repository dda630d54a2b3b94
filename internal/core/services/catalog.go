package services

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
	"github.com/custodia-labs/lexrag/internal/core/ports/driving"
)

// Ensure CatalogService implements the interface.
var _ driving.CatalogService = (*CatalogService)(nil)

// CatalogService exposes the collection catalog over a CatalogStore.
type CatalogService struct {
	store driven.CatalogStore
}

// NewCatalogService creates a catalog service.
func NewCatalogService(store driven.CatalogStore) *CatalogService {
	return &CatalogService{store: store}
}

// Collections returns processed collection names in insertion order.
func (s *CatalogService) Collections(ctx context.Context) ([]string, error) {
	names, err := s.store.Processed(ctx)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	return names, nil
}

// IsProcessed reports whether collection has been ingested.
func (s *CatalogService) IsProcessed(ctx context.Context, collection string) (bool, error) {
	names, err := s.Collections(ctx)
	if err != nil {
		return false, err
	}
	return slices.Contains(names, collection), nil
}

// MarkProcessed records collection as ingested.
func (s *CatalogService) MarkProcessed(ctx context.Context, collection string) error {
	if strings.TrimSpace(collection) == "" {
		return fmt.Errorf("%w: empty collection name", domain.ErrInvalidInput)
	}
	return s.store.MarkProcessed(ctx, collection)
}

// RecordDocuments adds documents to collection.
func (s *CatalogService) RecordDocuments(ctx context.Context, collection string, docs []domain.Document) error {
	if len(docs) == 0 {
		return nil
	}
	return s.store.SaveDocuments(ctx, collection, docs)
}

// Documents returns the documents of collection in insertion order.
func (s *CatalogService) Documents(ctx context.Context, collection string) ([]domain.Document, error) {
	return s.store.Documents(ctx, collection)
}

// Document returns one document by ID.
func (s *CatalogService) Document(ctx context.Context, id string) (*domain.Document, error) {
	return s.store.Document(ctx, id)
}

// Match validates suggested collection names against the catalog.
func (s *CatalogService) Match(ctx context.Context, suggested []string) ([]string, error) {
	available, err := s.Collections(ctx)
	if err != nil {
		return nil, err
	}
	return MatchCollections(suggested, available), nil
}

// MatchCollections maps each suggestion to catalog names. An exact match
// wins; otherwise every name that contains the suggestion, or is contained
// in it, case-insensitively, matches. The result is de-duplicated and
// follows catalog order.
func MatchCollections(suggested, available []string) []string {
	hit := make(map[string]bool)
	for _, raw := range suggested {
		sug := strings.TrimSpace(raw)
		if sug == "" {
			continue
		}
		if slices.Contains(available, sug) {
			hit[sug] = true
			continue
		}
		lower := strings.ToLower(sug)
		for _, name := range available {
			ln := strings.ToLower(name)
			if strings.Contains(ln, lower) || strings.Contains(lower, ln) {
				hit[name] = true
			}
		}
	}

	matched := make([]string, 0, len(hit))
	for _, name := range available {
		if hit[name] {
			matched = append(matched, name)
		}
	}
	return matched
}

// titleIndex maps document IDs to display titles.
func titleIndex(docs []domain.Document) map[string]string {
	titles := make(map[string]string, len(docs))
	for _, d := range docs {
		titles[d.ID] = d.Title()
	}
	return titles
}
