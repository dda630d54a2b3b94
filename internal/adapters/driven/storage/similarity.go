// Package storage holds helpers shared by the embedding index adapters
// in its subpackages.
package storage

import (
	"math"
	"sort"

	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
)

// Cosine returns the cosine similarity of a and b.
// Mismatched lengths or zero vectors score 0.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// NearestChunks scores every candidate against vector and returns the k best,
// highest similarity first. Ties break by chunk ID. Candidates without an
// embedding are skipped.
func NearestChunks(candidates []domain.Chunk, vector []float32, k int) []driven.VectorHit {
	if k <= 0 || len(vector) == 0 {
		return nil
	}
	hits := make([]driven.VectorHit, 0, len(candidates))
	for _, c := range candidates {
		if len(c.Embedding) == 0 {
			continue
		}
		hits = append(hits, driven.VectorHit{Chunk: c, Similarity: Cosine(vector, c.Embedding)})
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Similarity != hits[j].Similarity {
			return hits[i].Similarity > hits[j].Similarity
		}
		return hits[i].Chunk.ID < hits[j].Chunk.ID
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits
}
