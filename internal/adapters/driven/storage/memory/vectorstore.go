package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/lexrag/internal/adapters/driven/storage"
	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
)

// Ensure VectorStore implements the interface.
var _ driven.VectorStore = (*VectorStore)(nil)

// VectorStore is an in-memory implementation of driven.VectorStore.
// Query is a brute-force cosine scan, which is adequate for a few
// thousand chunks and for tests.
type VectorStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]domain.Chunk
}

// NewVectorStore creates an empty in-memory vector store.
func NewVectorStore() *VectorStore {
	return &VectorStore{
		collections: make(map[string]map[string]domain.Chunk),
	}
}

// Upsert stores chunks under collection, overwriting equal IDs.
func (s *VectorStore) Upsert(_ context.Context, collection string, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	col, ok := s.collections[collection]
	if !ok {
		col = make(map[string]domain.Chunk, len(chunks))
		s.collections[collection] = col
	}
	for _, c := range chunks {
		c.Collection = collection
		c.Embedding = append([]float32(nil), c.Embedding...)
		col[c.ID] = c
	}
	return nil
}

// Query returns the k chunks most similar to vector.
func (s *VectorStore) Query(
	ctx context.Context,
	collection string,
	vector []float32,
	k int,
	filter *domain.Filter,
) ([]driven.VectorHit, error) {
	candidates, err := s.Chunks(ctx, collection, filter)
	if err != nil {
		return nil, err
	}
	return storage.NearestChunks(candidates, vector, k), nil
}

// Chunks returns the chunks of collection that pass filter, in ID order.
func (s *VectorStore) Chunks(_ context.Context, collection string, filter *domain.Filter) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	col := s.collections[collection]
	out := make([]domain.Chunk, 0, len(col))
	for _, c := range col {
		if filter.Matches(c) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Count returns the number of chunks in collection.
func (s *VectorStore) Count(_ context.Context, collection string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.collections[collection]), nil
}

// Close is a no-op.
func (s *VectorStore) Close() error {
	return nil
}
