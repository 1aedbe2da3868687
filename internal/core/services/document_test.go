package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/mnemo/internal/core/domain"
	"github.com/custodia-labs/mnemo/internal/core/ports/driving"
)

func newDocumentService(f *fixture) *DocumentService {
	return NewDocumentService(f.docs, f.operators, paragraphPipeline{}, joinHasher{}, upperNormaliser{}, "1600:150")
}

func TestDocumentService_Create(t *testing.T) {
	f := newFixture(t)
	svc := newDocumentService(f)
	ctx := context.Background()

	res, err := svc.Create(ctx, testOperator, driving.NewDocument{
		Title: " Release plan ",
		Text:  "First paragraph here.\n\nSecond one.",
		Tags:  []string{"#Plan", "release-notes"},
	})
	require.NoError(t, err)

	assert.False(t, res.Existing)
	assert.Equal(t, 2, res.Chunks)
	assert.Equal(t, domain.KindNote, res.Document.Kind)
	assert.Equal(t, "Release plan", res.Document.Title)
	assert.Equal(t, f.active.ID, res.Document.CollectionID)
	assert.Equal(t, []string{"plan", "release-notes"}, res.Document.Tags)
	assert.Equal(t, "1600:150|FIRST PARAGRAPH HERE.\n\nSECOND ONE.", res.Document.ContentHash)

	chunks, err := svc.Chunks(ctx, res.Document.ID)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "Second one.", chunks[1].Text)
}

func TestDocumentService_Create_DeduplicatesContent(t *testing.T) {
	f := newFixture(t)
	svc := newDocumentService(f)
	ctx := context.Background()

	first, err := svc.Create(ctx, testOperator, driving.NewDocument{Text: "same text"})
	require.NoError(t, err)

	again, err := svc.Create(ctx, testOperator, driving.NewDocument{Kind: domain.KindImport, Text: "  SAME TEXT "})
	require.NoError(t, err)
	assert.True(t, again.Existing)
	assert.Equal(t, first.Document.ID, again.Document.ID)

	n, _ := svc.CountDocuments(ctx, f.active.ID)
	assert.Equal(t, 1, n)
}

func TestDocumentService_Create_Errors(t *testing.T) {
	f := newFixture(t)
	svc := newDocumentService(f)
	ctx := context.Background()

	_, err := svc.Create(ctx, testOperator, driving.NewDocument{Text: "  "})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.Create(ctx, testOperator, driving.NewDocument{Kind: "video", Text: "x"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.Create(ctx, 99, driving.NewDocument{Text: "x"})
	assert.ErrorIs(t, err, domain.ErrNoActiveCollection)

	missing := int64(404)
	_, err = svc.Create(ctx, testOperator, driving.NewDocument{Text: "x", ParentID: &missing})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentService_Create_WithParent(t *testing.T) {
	f := newFixture(t)
	svc := newDocumentService(f)
	ctx := context.Background()

	parent, err := svc.Create(ctx, testOperator, driving.NewDocument{Text: "long source"})
	require.NoError(t, err)
	pid := parent.Document.ID

	child, err := svc.Create(ctx, testOperator, driving.NewDocument{Text: "summary", ParentID: &pid, Tags: []string{"summary"}})
	require.NoError(t, err)
	require.NotNil(t, child.Document.ParentID)
	assert.Equal(t, pid, *child.Document.ParentID)
}

func TestDocumentService_TagsAndPin(t *testing.T) {
	f := newFixture(t)
	svc := newDocumentService(f)
	ctx := context.Background()
	id := f.addDoc(t, f.active.ID, "Doc", nil, 5)

	require.NoError(t, svc.SetTags(ctx, id, []string{" #DB ", "db", "infra"}))
	doc, err := svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{"db", "infra"}, doc.Tags)

	pinned, err := svc.TogglePin(ctx, id)
	require.NoError(t, err)
	assert.True(t, pinned)
	pinned, err = svc.TogglePin(ctx, id)
	require.NoError(t, err)
	assert.False(t, pinned)

	_, err = svc.TogglePin(ctx, 404)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentService_DeleteAndCleanup(t *testing.T) {
	f := newFixture(t)
	svc := newDocumentService(f)
	ctx := context.Background()

	keep := f.addDoc(t, f.active.ID, "Keep", nil, 1)
	f.addDoc(t, f.active.ID, "Drop", nil, 1)
	gone := f.addDoc(t, f.active.ID, "Gone", nil, 1)
	_, err := svc.TogglePin(ctx, keep)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, gone))
	_, err = svc.Chunks(ctx, gone)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	n, err := svc.Cleanup(ctx, f.active.ID, true)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = svc.Get(ctx, keep)
	assert.NoError(t, err)

	_, err = svc.Cleanup(ctx, 404, true)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentService_ListCollections(t *testing.T) {
	f := newFixture(t)
	svc := newDocumentService(f)
	_, _ = f.docs.EnsureCollection(context.Background(), "archive")

	cols, err := svc.ListCollections(context.Background())
	require.NoError(t, err)
	require.Len(t, cols, 2)
	assert.Equal(t, "archive", cols[0].Name)
	assert.Equal(t, "work", cols[1].Name)
}

func TestDocumentService_NilStores(t *testing.T) {
	svc := NewDocumentService(nil, nil, nil, nil, nil, "")
	ctx := context.Background()

	_, err := svc.Create(ctx, 1, driving.NewDocument{Text: "x"})
	assert.ErrorIs(t, err, domain.ErrNotImplemented)
	_, err = svc.Get(ctx, 1)
	assert.ErrorIs(t, err, domain.ErrNotImplemented)
	_, err = svc.Cleanup(ctx, 1, false)
	assert.ErrorIs(t, err, domain.ErrNotImplemented)
}
