// Package chunker splits extracted page text into retrieval-sized pieces.
//
// Two strategies are supported. FixedWindow is a recursive character
// splitter: it tries paragraph, line, sentence and word boundaries in turn
// and merges the pieces back up to the chunk size with a character overlap.
// Paragraph keeps blank-line paragraphs whole and re-splits only the
// oversized ones. Splitting is a pure function of text and options.
package chunker

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/lexrag/internal/core/domain"
)

// Default splitter settings.
const (
	DefaultChunkSize        = 1000
	DefaultChunkOverlap     = 200
	DefaultMinLength        = 30
	DefaultMaxLength        = 1000
	DefaultParagraphOverlap = 50
)

// DefaultSeparators are tried in order, coarsest first.
var DefaultSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// Piece is one emitted chunk of text.
type Piece struct {
	Text string

	// Ordinal is the index among the page's pieces before short ones were dropped,
	// so surviving pieces keep stable ordinals.
	Ordinal int

	// Sub is the index within a re-split paragraph, or -1 when not re-split.
	Sub int
}

// Splitter splits page text according to its strategy.
type Splitter struct {
	strategy         domain.ChunkStrategy
	chunkSize        int
	overlap          int
	minLength        int
	maxLength        int
	paragraphOverlap int
	separators       []string
}

// Option configures the splitter.
type Option func(*Splitter)

// WithStrategy selects fixed-window or paragraph splitting.
func WithStrategy(s domain.ChunkStrategy) Option {
	return func(sp *Splitter) {
		if s == domain.ChunkFixedWindow || s == domain.ChunkParagraph {
			sp.strategy = s
		}
	}
}

// WithChunkSize sets the fixed-window chunk size in characters.
func WithChunkSize(size int) Option {
	return func(sp *Splitter) {
		if size > 0 {
			sp.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between fixed-window chunks in characters.
func WithOverlap(overlap int) Option {
	return func(sp *Splitter) {
		if overlap >= 0 {
			sp.overlap = overlap
		}
	}
}

// WithMinLength sets the minimum emitted chunk length.
func WithMinLength(n int) Option {
	return func(sp *Splitter) {
		if n >= 0 {
			sp.minLength = n
		}
	}
}

// WithMaxLength sets the paragraph length above which a paragraph is re-split.
func WithMaxLength(n int) Option {
	return func(sp *Splitter) {
		if n > 0 {
			sp.maxLength = n
		}
	}
}

// WithParagraphOverlap sets the overlap used when re-splitting long paragraphs.
func WithParagraphOverlap(n int) Option {
	return func(sp *Splitter) {
		if n >= 0 {
			sp.paragraphOverlap = n
		}
	}
}

// New creates a splitter with the given options.
func New(opts ...Option) *Splitter {
	sp := &Splitter{
		strategy:         domain.ChunkFixedWindow,
		chunkSize:        DefaultChunkSize,
		overlap:          DefaultChunkOverlap,
		minLength:        DefaultMinLength,
		maxLength:        DefaultMaxLength,
		paragraphOverlap: DefaultParagraphOverlap,
		separators:       DefaultSeparators,
	}

	for _, opt := range opts {
		opt(sp)
	}

	// Ensure overlap doesn't exceed chunk size
	if sp.overlap >= sp.chunkSize {
		sp.overlap = sp.chunkSize / 4
	}
	if sp.paragraphOverlap >= sp.maxLength {
		sp.paragraphOverlap = sp.maxLength / 4
	}

	return sp
}

// FromSettings builds a splitter from ingestion settings.
func FromSettings(s domain.IngestSettings) *Splitter {
	return New(
		WithStrategy(s.Strategy),
		WithChunkSize(s.ChunkSize),
		WithOverlap(s.ChunkOverlap),
		WithMinLength(s.MinLength),
		WithMaxLength(s.MaxLength),
		WithParagraphOverlap(s.ParagraphOverlap),
	)
}

// Strategy returns the configured strategy.
func (sp *Splitter) Strategy() domain.ChunkStrategy {
	return sp.strategy
}

// Split splits text into pieces. Pieces shorter than the minimum length are dropped.
func (sp *Splitter) Split(text string) []Piece {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if sp.strategy == domain.ChunkParagraph {
		return sp.splitParagraphs(text)
	}

	windows := recursiveSplit(text, sp.separators, sp.chunkSize, sp.overlap)
	pieces := make([]Piece, 0, len(windows))
	for i, w := range windows {
		w = strings.TrimSpace(w)
		if runeLen(w) < sp.minLength {
			continue
		}
		pieces = append(pieces, Piece{Text: w, Ordinal: i, Sub: -1})
	}
	return pieces
}

func (sp *Splitter) splitParagraphs(text string) []Piece {
	var paragraphs []string
	for _, p := range strings.Split(text, "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			paragraphs = append(paragraphs, p)
		}
	}

	var pieces []Piece
	for i, para := range paragraphs {
		if runeLen(para) < sp.minLength {
			continue
		}
		if runeLen(para) <= sp.maxLength {
			pieces = append(pieces, Piece{Text: para, Ordinal: i, Sub: -1})
			continue
		}
		for j, sub := range recursiveSplit(para, sp.separators, sp.maxLength, sp.paragraphOverlap) {
			sub = strings.TrimSpace(sub)
			if runeLen(sub) < sp.minLength {
				continue
			}
			pieces = append(pieces, Piece{Text: sub, Ordinal: i, Sub: j})
		}
	}
	return pieces
}

// recursiveSplit splits on the first separator present in text, recursing into
// pieces that are still too long with the remaining separators, then merges
// adjacent small pieces back up to size with overlap.
func recursiveSplit(text string, separators []string, size, overlap int) []string {
	separator := separators[len(separators)-1]
	var rest []string
	for i, s := range separators {
		if s == "" {
			separator = s
			break
		}
		if strings.Contains(text, s) {
			separator = s
			rest = separators[i+1:]
			break
		}
	}

	var out, small []string
	for _, s := range splitKeepSeparator(text, separator) {
		if runeLen(s) < size {
			small = append(small, s)
			continue
		}
		if len(small) > 0 {
			out = append(out, mergeSplits(small, size, overlap)...)
			small = nil
		}
		if len(rest) == 0 {
			out = append(out, s)
		} else {
			out = append(out, recursiveSplit(s, rest, size, overlap)...)
		}
	}
	if len(small) > 0 {
		out = append(out, mergeSplits(small, size, overlap)...)
	}
	return out
}

// splitKeepSeparator splits text on sep, attaching each separator to the start
// of the piece that follows it. Empty pieces are dropped. An empty sep splits
// into characters.
func splitKeepSeparator(text, sep string) []string {
	if sep == "" {
		out := make([]string, 0, len(text))
		for _, r := range text {
			out = append(out, string(r))
		}
		return out
	}

	parts := strings.Split(text, sep)
	out := make([]string, 0, len(parts))
	for i, p := range parts {
		if i > 0 {
			p = sep + p
		}
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// mergeSplits greedily joins pieces into windows no longer than size, carrying
// at most overlap characters of trailing pieces into the next window.
func mergeSplits(splits []string, size, overlap int) []string {
	var (
		docs    []string
		current []string
		total   int
	)
	for _, s := range splits {
		l := runeLen(s)
		if total+l > size && len(current) > 0 {
			if doc := strings.TrimSpace(strings.Join(current, "")); doc != "" {
				docs = append(docs, doc)
			}
			for total > overlap || (total+l > size && total > 0) {
				total -= runeLen(current[0])
				current = current[1:]
			}
		}
		current = append(current, s)
		total += l
	}
	if doc := strings.TrimSpace(strings.Join(current, "")); doc != "" {
		docs = append(docs, doc)
	}
	return docs
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}

var (
	inlineSpace = regexp.MustCompile(`[ \t\x{00A0}]+`)
	blankRuns   = regexp.MustCompile(`\n{3,}`)
)

// NormalizeWhitespace collapses runs of spaces, tabs and non-breaking spaces
// to a single space and runs of three or more newlines to a blank line.
func NormalizeWhitespace(s string) string {
	s = inlineSpace.ReplaceAllString(s, " ")
	s = blankRuns.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
