package domain

import "path/filepath"

// Citation is one (document, page) reference behind an answer.
type Citation struct {
	Collection string `json:"collection"`
	DocumentID string `json:"document_id"`
	Source     string `json:"source"`
	Page       int    `json:"page"`
}

// Citations lists the distinct document pages of chunks in rank order.
// Source falls back to the file name of the source path, then to the
// document ID.
func Citations(chunks []ScoredChunk) []Citation {
	type pageKey struct {
		doc  string
		page int
	}
	seen := make(map[pageKey]bool, len(chunks))
	out := make([]Citation, 0, len(chunks))
	for _, sc := range chunks {
		c := sc.Chunk
		key := pageKey{c.DocumentID, c.PageNumber}
		if seen[key] {
			continue
		}
		seen[key] = true

		source := c.Metadata.SourceName
		if source == "" && c.Metadata.SourcePath != "" {
			source = filepath.Base(c.Metadata.SourcePath)
		}
		if source == "" {
			source = c.DocumentID
		}
		out = append(out, Citation{
			Collection: c.Collection,
			DocumentID: c.DocumentID,
			Source:     source,
			Page:       c.PageNumber,
		})
	}
	return out
}
