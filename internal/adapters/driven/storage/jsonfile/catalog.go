// Package jsonfile persists the collection catalog as two JSON files in
// the data directory: processed_collections.json maps collection names to
// a processed flag, and documents.json lists every ingested document.
package jsonfile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
)

// File names inside the data directory.
const (
	ProcessedFile = "processed_collections.json"
	DocumentsFile = "documents.json"
)

// Ensure CatalogStore implements the interface.
var _ driven.CatalogStore = (*CatalogStore)(nil)

// CatalogStore is a JSON-file implementation of driven.CatalogStore.
// The whole catalog is held in memory and rewritten on every change.
type CatalogStore struct {
	mu        sync.RWMutex
	dir       string
	processed []string
	documents []documentRecord
}

type documentRecord struct {
	ID           string `json:"document_id"`
	Collection   string `json:"collection"`
	SourceName   string `json:"source"`
	SourcePath   string `json:"source_path"`
	UploadDate   string `json:"upload_date"`
	DocumentType string `json:"document_type"`
	Jurisdiction string `json:"jurisdiction"`
}

// NewCatalogStore loads the catalog from dir. Missing files are an empty
// catalog; unreadable or malformed files return domain.ErrCatalogLoad.
func NewCatalogStore(dir string) (*CatalogStore, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("%w: create %s: %w", domain.ErrCatalogLoad, dir, err)
	}
	s := &CatalogStore{dir: dir}

	processed, err := readProcessed(filepath.Join(dir, ProcessedFile))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrCatalogLoad, ProcessedFile, err)
	}
	s.processed = processed

	data, err := os.ReadFile(filepath.Join(dir, DocumentsFile))
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrCatalogLoad, DocumentsFile, err)
	default:
		if err := json.Unmarshal(data, &s.documents); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", domain.ErrCatalogLoad, DocumentsFile, err)
		}
	}
	return s, nil
}

// Processed returns processed collection names in insertion order.
func (s *CatalogStore) Processed(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.processed), nil
}

// MarkProcessed records collection as processed and rewrites the log.
func (s *CatalogStore) MarkProcessed(_ context.Context, collection string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if slices.Contains(s.processed, collection) {
		return nil
	}
	next := append(slices.Clone(s.processed), collection)
	if err := writeProcessed(s.dir, next); err != nil {
		return fmt.Errorf("writing %s: %w", ProcessedFile, err)
	}
	s.processed = next
	return nil
}

// SaveDocuments records docs under collection and rewrites documents.json.
func (s *CatalogStore) SaveDocuments(_ context.Context, collection string, docs []domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := slices.Clone(s.documents)
	for _, d := range docs {
		rec := toRecord(d)
		rec.Collection = collection
		if i := slices.IndexFunc(next, func(r documentRecord) bool { return r.ID == d.ID }); i >= 0 {
			next[i] = rec
			continue
		}
		next = append(next, rec)
	}
	data, err := json.MarshalIndent(next, "", "  ")
	if err != nil {
		return err
	}
	if err := writeAtomic(filepath.Join(s.dir, DocumentsFile), data); err != nil {
		return fmt.Errorf("writing %s: %w", DocumentsFile, err)
	}
	s.documents = next
	return nil
}

// Documents returns the documents of collection in insertion order.
func (s *CatalogStore) Documents(_ context.Context, collection string) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Document
	for _, r := range s.documents {
		if r.Collection == collection {
			out = append(out, r.toDocument())
		}
	}
	return out, nil
}

// Document returns a document by ID.
func (s *CatalogStore) Document(_ context.Context, id string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.documents {
		if r.ID == id {
			doc := r.toDocument()
			return &doc, nil
		}
	}
	return nil, domain.ErrNotFound
}

// Close is a no-op; every change is already on disk.
func (s *CatalogStore) Close() error {
	return nil
}

// writeProcessed writes {"name": true, ...} with keys in insertion order.
func writeProcessed(dir string, names []string) error {
	var buf bytes.Buffer
	buf.WriteString("{")
	for i, name := range names {
		if i > 0 {
			buf.WriteString(",")
		}
		key, err := json.Marshal(name)
		if err != nil {
			return err
		}
		buf.WriteString("\n  ")
		buf.Write(key)
		buf.WriteString(": true")
	}
	if len(names) > 0 {
		buf.WriteString("\n")
	}
	buf.WriteString("}\n")
	return writeAtomic(filepath.Join(dir, ProcessedFile), buf.Bytes())
}

// readProcessed decodes the processed log token by token so that the
// order of keys in the file is kept. Entries with a false value are ignored.
func readProcessed(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("expected a JSON object")
	}

	var names []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		name, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected key %v", tok)
		}
		var processed bool
		if err := dec.Decode(&processed); err != nil {
			return nil, fmt.Errorf("collection %q: %w", name, err)
		}
		if processed && !slices.Contains(names, name) {
			names = append(names, name)
		}
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return names, nil
}

func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func toRecord(d domain.Document) documentRecord {
	return documentRecord{
		ID:           d.ID,
		Collection:   d.Collection,
		SourceName:   d.SourceName,
		SourcePath:   d.SourcePath,
		UploadDate:   d.UploadDate,
		DocumentType: d.DocumentType,
		Jurisdiction: d.Jurisdiction,
	}
}

func (r documentRecord) toDocument() domain.Document {
	return domain.Document{
		ID:           r.ID,
		Collection:   r.Collection,
		SourceName:   r.SourceName,
		SourcePath:   r.SourcePath,
		UploadDate:   r.UploadDate,
		DocumentType: r.DocumentType,
		Jurisdiction: r.Jurisdiction,
	}
}
