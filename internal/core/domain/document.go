package domain

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Default document metadata applied when the caller does not supply a value.
const (
	DefaultDocumentType = "Legal Document"
	DefaultJurisdiction = "Unknown"
)

// UploadDateLayout is the layout of Document.UploadDate.
const UploadDateLayout = "2006-01-02"

// Document is one ingested source file.
// Documents are created once at first ingestion and never mutated.
type Document struct {
	// ID is derived from the canonical file path; see DocumentIDFor.
	ID string

	// Collection is the catalog collection the document was ingested into.
	Collection string

	// SourceName is the file's base name, e.g. "Civil_Aviation_Act.pdf".
	SourceName string

	// SourcePath is the absolute path the document was read from.
	SourcePath string

	// UploadDate is the ingestion date in YYYY-MM-DD form.
	UploadDate string

	// DocumentType classifies the document, e.g. "Legal Document".
	DocumentType string

	// Jurisdiction is the issuing jurisdiction.
	Jurisdiction string
}

// DocumentMeta carries optional overrides for NewDocument.
// Zero values fall back to the package defaults.
type DocumentMeta struct {
	Collection   string
	DocumentType string
	Jurisdiction string
	UploadDate   time.Time
}

// NewDocument builds a Document for the file at path.
// Every field is populated; missing metadata takes its default here
// rather than at the point of use.
func NewDocument(path string, meta DocumentMeta) (Document, error) {
	abs, err := CanonicalPath(path)
	if err != nil {
		return Document{}, err
	}

	uploaded := meta.UploadDate
	if uploaded.IsZero() {
		uploaded = time.Now()
	}

	doc := Document{
		ID:           DocumentIDFor(abs),
		Collection:   meta.Collection,
		SourceName:   filepath.Base(abs),
		SourcePath:   abs,
		UploadDate:   uploaded.Format(UploadDateLayout),
		DocumentType: meta.DocumentType,
		Jurisdiction: meta.Jurisdiction,
	}
	if doc.DocumentType == "" {
		doc.DocumentType = DefaultDocumentType
	}
	if doc.Jurisdiction == "" {
		doc.Jurisdiction = DefaultJurisdiction
	}
	return doc, nil
}

// CanonicalPath returns the absolute, cleaned form of path.
func CanonicalPath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("%w: empty path", ErrInvalidInput)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("%w: resolve %q: %w", ErrInvalidInput, path, err)
	}
	return filepath.Clean(abs), nil
}

// DocumentIDFor returns the deterministic document id for an absolute path:
// the name-based UUID (SHA-1, URL namespace) of its file:// URI, as 32 hex digits.
// The id depends only on the path, never on file content.
func DocumentIDFor(absPath string) string {
	id := uuid.NewSHA1(uuid.NameSpaceURL, []byte(fileURI(absPath)))
	return strings.ReplaceAll(id.String(), "-", "")
}

func fileURI(absPath string) string {
	p := filepath.ToSlash(absPath)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	u := url.URL{Scheme: "file", Path: p}
	return u.String()
}

// Title returns the display title used in prompts: the source name,
// or "document <first 8 id chars>" when the name is unknown.
func (d Document) Title() string {
	if d.SourceName != "" {
		return d.SourceName
	}
	return FallbackTitle(d.ID)
}

// FallbackTitle is the title used for a document id missing from the catalog.
func FallbackTitle(id string) string {
	short := id
	if len(short) > 8 {
		short = short[:8]
	}
	return "document " + short
}

// Page is one page of a Document during ingestion. Pages are not persisted.
type Page struct {
	// Number is 1-based.
	Number int

	// Text is the page text, native or OCR-derived.
	Text string

	// OCR is true when Text came from the vision OCR service.
	OCR bool
}
