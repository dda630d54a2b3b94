// Package bm25 ranks chunk candidates with Okapi BM25.
// The ranker keeps no index: statistics are computed over the candidate set
// passed to each call, so a per-document pre-filter changes the IDF exactly
// as an index built over that document alone would.
package bm25

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
)

// Default parameters.
const (
	DefaultK1 = 1.5
	DefaultB  = 0.75
)

// Ensure Ranker implements the interface.
var _ driven.LexicalRanker = (*Ranker)(nil)

// Ranker is a stateless BM25 scorer.
type Ranker struct {
	k1 float64
	b  float64
}

// Option configures a Ranker.
type Option func(*Ranker)

// WithK1 sets the term frequency saturation.
func WithK1(k1 float64) Option {
	return func(r *Ranker) { r.k1 = k1 }
}

// WithB sets the length normalisation.
func WithB(b float64) Option {
	return func(r *Ranker) { r.b = b }
}

// New creates a Ranker.
func New(opts ...Option) *Ranker {
	r := &Ranker{k1: DefaultK1, b: DefaultB}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Rank scores candidates against query and returns up to k positive hits,
// highest first. Ties break by chunk ID.
func (r *Ranker) Rank(query string, candidates []domain.Chunk, k int) []driven.LexicalHit {
	if k <= 0 || len(candidates) == 0 {
		return nil
	}
	terms := unique(Tokenize(query))
	if len(terms) == 0 {
		return nil
	}

	docs := make([]map[string]int, len(candidates))
	lengths := make([]int, len(candidates))
	df := make(map[string]int, len(terms))
	total := 0
	for i, c := range candidates {
		tokens := Tokenize(c.Text)
		tf := make(map[string]int)
		for _, t := range tokens {
			tf[t]++
		}
		docs[i] = tf
		lengths[i] = len(tokens)
		total += len(tokens)
		for _, t := range terms {
			if tf[t] > 0 {
				df[t]++
			}
		}
	}
	n := float64(len(candidates))
	avg := float64(total) / n
	if avg == 0 {
		return nil
	}

	hits := make([]driven.LexicalHit, 0, len(candidates))
	for i, tf := range docs {
		var score float64
		for _, t := range terms {
			f := float64(tf[t])
			if f == 0 {
				continue
			}
			d := float64(df[t])
			// Lucene IDF: never negative, even for terms in every candidate.
			idf := math.Log(1 + (n-d+0.5)/(d+0.5))
			norm := f + r.k1*(1-r.b+r.b*float64(lengths[i])/avg)
			score += idf * f * (r.k1 + 1) / norm
		}
		if score > 0 {
			hits = append(hits, driven.LexicalHit{ChunkID: candidates[i].ID, Score: score})
		}
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ChunkID < hits[j].ChunkID
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits
}

// Tokenize lowercases text and splits it on anything that is not a letter
// or digit. Single characters and stop words are dropped; section numbers
// such as "12" are kept.
func Tokenize(text string) []string {
	words := strings.FieldsFunc(strings.ToLower(text), func(c rune) bool {
		return !unicode.IsLetter(c) && !unicode.IsDigit(c)
	})
	tokens := words[:0]
	for _, w := range words {
		if len([]rune(w)) < 2 && !unicode.IsDigit([]rune(w)[0]) {
			continue
		}
		if stopWords[w] {
			continue
		}
		tokens = append(tokens, w)
	}
	return tokens
}

func unique(tokens []string) []string {
	seen := make(map[string]bool, len(tokens))
	out := tokens[:0:0]
	for _, t := range tokens {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

// stopWords is deliberately small: words like "shall", "may" and "not"
// carry meaning in statutes and are kept.
var stopWords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true,
	"at": true, "be": true, "by": true, "for": true, "from": true,
	"has": true, "have": true, "in": true, "is": true, "it": true,
	"its": true, "of": true, "on": true, "or": true, "that": true,
	"the": true, "to": true, "was": true, "were": true, "with": true,
	"this": true, "what": true, "which": true, "who": true, "how": true,
	"do": true, "does": true, "did": true, "there": true, "their": true,
}
