package domain

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDocument_PopulatesEveryField(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Civil_Aviation_Act.pdf")
	uploaded := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)

	doc, err := NewDocument(path, DocumentMeta{Collection: "Civil_Aviation_Act-Base", UploadDate: uploaded})

	require.NoError(t, err)
	assert.Equal(t, DocumentIDFor(path), doc.ID)
	assert.Equal(t, "Civil_Aviation_Act-Base", doc.Collection)
	assert.Equal(t, "Civil_Aviation_Act.pdf", doc.SourceName)
	assert.Equal(t, path, doc.SourcePath)
	assert.Equal(t, "2024-03-05", doc.UploadDate)
	assert.Equal(t, DefaultDocumentType, doc.DocumentType)
	assert.Equal(t, DefaultJurisdiction, doc.Jurisdiction)
}

func TestNewDocument_KeepsSuppliedMetadata(t *testing.T) {
	doc, err := NewDocument("act.pdf", DocumentMeta{DocumentType: "Regulation", Jurisdiction: "Kenya"})

	require.NoError(t, err)
	assert.Equal(t, "Regulation", doc.DocumentType)
	assert.Equal(t, "Kenya", doc.Jurisdiction)
	assert.True(t, filepath.IsAbs(doc.SourcePath))
	assert.Len(t, doc.UploadDate, len(UploadDateLayout))
}

func TestNewDocument_EmptyPath(t *testing.T) {
	_, err := NewDocument("  ", DocumentMeta{})

	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestDocumentIDFor(t *testing.T) {
	a := DocumentIDFor("/acts/aviation/base/act.pdf")
	b := DocumentIDFor("/acts/aviation/base/act.pdf")
	c := DocumentIDFor("/acts/aviation/base/other.pdf")

	assert.Equal(t, a, b, "id depends only on the path")
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 32)
	assert.NotContains(t, a, "-")
}

func TestCanonicalPath_CleansRelativePaths(t *testing.T) {
	got, err := CanonicalPath("acts/../acts/./act.pdf")

	require.NoError(t, err)
	want, _ := filepath.Abs("acts/act.pdf")
	assert.Equal(t, want, got)
}

func TestDocument_Title(t *testing.T) {
	assert.Equal(t, "Act.pdf", Document{ID: "0123456789abcdef", SourceName: "Act.pdf"}.Title())
	assert.Equal(t, "document 01234567", Document{ID: "0123456789abcdef"}.Title())
	assert.Equal(t, "document abc", FallbackTitle("abc"))
}

func TestMetadataFor(t *testing.T) {
	doc := Document{
		SourceName:   "Act.pdf",
		SourcePath:   "/acts/Act.pdf",
		UploadDate:   "2024-01-01",
		DocumentType: "Legal Document",
		Jurisdiction: "Unknown",
	}

	meta := MetadataFor(doc)

	assert.Equal(t, ChunkMetadata{
		DocumentType: "Legal Document",
		Jurisdiction: "Unknown",
		UploadDate:   "2024-01-01",
		SourceName:   "Act.pdf",
		SourcePath:   "/acts/Act.pdf",
	}, meta)
}

func TestChunkID(t *testing.T) {
	assert.Equal(t, "doc-p3-c1", ChunkID("doc", 3, 1, -1))
	assert.Equal(t, "doc-p3-c1-0", ChunkID("doc", 3, 1, 0))
}

func TestFilter_Matches(t *testing.T) {
	chunk := Chunk{DocumentID: "doc-1"}

	var nilFilter *Filter
	assert.True(t, nilFilter.Matches(chunk))
	assert.True(t, (&Filter{}).Matches(chunk))
	assert.True(t, (&Filter{DocumentID: "doc-1"}).Matches(chunk))
	assert.False(t, (&Filter{DocumentID: "doc-2"}).Matches(chunk))
}

func TestCollectionName(t *testing.T) {
	tests := []struct {
		act  string
		kind ActFolderKind
		want string
	}{
		{"Civil Aviation Act", ActBase, "Civil_Aviation_Act-Base"},
		{"Civil Aviation Act", ActAmendment, "Civil_Aviation_Act-Amendment"},
		{"  Rail Act ", ActBase, "Rail_Act-Base"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CollectionName(tt.act, tt.kind))
	}
}
