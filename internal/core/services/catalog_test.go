package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/lexrag/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/lexrag/internal/core/domain"
)

func TestCatalogService_MarkAndList(t *testing.T) {
	ctx := context.Background()
	svc := NewCatalogService(memory.NewCatalogStore())

	require.NoError(t, svc.MarkProcessed(ctx, "Civil_Aviation_Act-Base"))
	require.NoError(t, svc.MarkProcessed(ctx, "Civil_Aviation_Act-Amendment"))
	require.NoError(t, svc.MarkProcessed(ctx, "Civil_Aviation_Act-Base"))

	names, err := svc.Collections(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Civil_Aviation_Act-Base", "Civil_Aviation_Act-Amendment"}, names)

	ok, err := svc.IsProcessed(ctx, "Civil_Aviation_Act-Base")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.IsProcessed(ctx, "Customs_Act-Base")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCatalogService_MarkProcessedRejectsEmptyName(t *testing.T) {
	svc := NewCatalogService(memory.NewCatalogStore())

	err := svc.MarkProcessed(context.Background(), "  ")

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCatalogService_Documents(t *testing.T) {
	ctx := context.Background()
	svc := NewCatalogService(memory.NewCatalogStore())
	docs := []domain.Document{
		{ID: "b", SourceName: "b.pdf"},
		{ID: "a", SourceName: "a.pdf"},
	}

	require.NoError(t, svc.RecordDocuments(ctx, "Acts-Base", docs))
	require.NoError(t, svc.RecordDocuments(ctx, "Acts-Base", nil))

	got, err := svc.Documents(ctx, "Acts-Base")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].ID)
	assert.Equal(t, "a", got[1].ID)

	doc, err := svc.Document(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "a.pdf", doc.SourceName)

	_, err = svc.Document(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCatalogService_Match(t *testing.T) {
	ctx := context.Background()
	svc := NewCatalogService(memory.NewCatalogStore())
	require.NoError(t, svc.MarkProcessed(ctx, "Civil_Aviation_Act-Base"))

	got, err := svc.Match(ctx, []string{"civil_aviation"})

	require.NoError(t, err)
	assert.Equal(t, []string{"Civil_Aviation_Act-Base"}, got)
}

func TestMatchCollections(t *testing.T) {
	available := []string{
		"Civil_Aviation_Act-Base",
		"Civil_Aviation_Act-Amendment",
		"Customs_Act-Base",
	}

	tests := []struct {
		name      string
		suggested []string
		want      []string
	}{
		{
			name:      "exact match wins over substring",
			suggested: []string{"Customs_Act-Base"},
			want:      []string{"Customs_Act-Base"},
		},
		{
			name:      "case-insensitive containment",
			suggested: []string{"civil_aviation_act"},
			want:      []string{"Civil_Aviation_Act-Base", "Civil_Aviation_Act-Amendment"},
		},
		{
			name:      "suggestion contains catalog name",
			suggested: []string{"the Customs_Act-Base collection"},
			want:      []string{"Customs_Act-Base"},
		},
		{
			name:      "deduplicated in catalog order",
			suggested: []string{"Customs_Act-Base", "Civil_Aviation_Act-Amendment", "customs"},
			want:      []string{"Civil_Aviation_Act-Amendment", "Customs_Act-Base"},
		},
		{
			name:      "no match",
			suggested: []string{"Income Tax"},
			want:      []string{},
		},
		{
			name:      "blank suggestions ignored",
			suggested: []string{"", "  "},
			want:      []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchCollections(tt.suggested, available))
		})
	}
}

func TestTitleIndex(t *testing.T) {
	titles := titleIndex([]domain.Document{
		{ID: "0123456789abcdef", SourceName: "Act.pdf"},
		{ID: "fedcba9876543210"},
	})

	assert.Equal(t, "Act.pdf", titles["0123456789abcdef"])
	assert.Equal(t, "document fedcba98", titles["fedcba9876543210"])
}
