package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/mnemo/internal/core/domain"
	"github.com/custodia-labs/mnemo/internal/core/ports/driven"
)

// setupTestStore creates a SQLite store in a temporary directory.
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, store.Close())
	})
	return store
}

// createTestDocument stores a document with one chunk per token count.
func createTestDocument(t *testing.T, docs driven.DocumentStore, collectionID int64, title string, created time.Time, tags ...string) int64 {
	t.Helper()

	doc := &domain.Document{
		CollectionID: collectionID,
		Kind:         domain.KindNote,
		Title:        title,
		Text:         title + " body",
		ContentHash:  "hash-" + title,
		Tags:         tags,
		CreatedAt:    created,
	}
	chunks := []domain.Chunk{
		{Index: 0, Text: title + " part one", Tokens: 3},
		{Index: 1, Text: title + " part two", Tokens: 3},
	}
	require.NoError(t, docs.SaveDocument(context.Background(), doc, chunks))
	require.NotZero(t, doc.ID)
	return doc.ID
}

func TestNewStore_CreatesDatabase(t *testing.T) {
	dir := t.TempDir()

	store, err := NewStore(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "mnemo.db"), store.Path())

	var version int
	require.NoError(t, store.db.QueryRow("SELECT MAX(version) FROM schema_migrations").Scan(&version))
	assert.Equal(t, 2, version)
	require.NoError(t, store.Close())

	// Reopening does not re-run applied migrations.
	store, err = NewStore(dir)
	require.NoError(t, err)
	var applied int
	require.NoError(t, store.db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&applied))
	assert.Equal(t, 2, applied)
	require.NoError(t, store.Close())
}

func TestNewStore_FoldsExistingTitles(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)
	docs := store.DocumentStore()
	ctx := context.Background()
	col, err := docs.EnsureCollection(ctx, "legacy")
	require.NoError(t, err)
	id := createTestDocument(t, docs, col.ID, "Отчёт Q1", time.Now())

	// Rows written before title_folded existed carry the column default.
	_, err = store.db.Exec(`UPDATE documents SET title_folded = '' WHERE id = ?`, id)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	store, err = NewStore(dir)
	require.NoError(t, err)
	defer store.Close()

	var folded string
	require.NoError(t, store.db.QueryRow(`SELECT title_folded FROM documents WHERE id = ?`, id).Scan(&folded))
	assert.Equal(t, "отчёт q1", folded)

	got, total, err := store.DocumentStore().SearchDocuments(ctx, driven.DocumentQuery{
		CollectionIDs: []int64{col.ID},
		Query:         domain.ParseQuery("ОТЧЁТ"),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, got, 1)
	assert.Equal(t, id, got[0].ID)
}

func TestDocumentStore_Collections(t *testing.T) {
	docs := setupTestStore(t).DocumentStore()
	ctx := context.Background()

	work, err := docs.EnsureCollection(ctx, " work ")
	require.NoError(t, err)
	assert.Equal(t, "work", work.Name)

	again, err := docs.EnsureCollection(ctx, "work")
	require.NoError(t, err)
	assert.Equal(t, work.ID, again.ID)

	_, err = docs.EnsureCollection(ctx, "archive")
	require.NoError(t, err)

	_, err = docs.EnsureCollection(ctx, "  ")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	cols, err := docs.ListCollections(ctx)
	require.NoError(t, err)
	require.Len(t, cols, 2)
	assert.Equal(t, "archive", cols[0].Name)
	assert.Equal(t, "work", cols[1].Name)

	_, err = docs.GetCollection(ctx, 404)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentStore_SaveAndGet(t *testing.T) {
	docs := setupTestStore(t).DocumentStore()
	ctx := context.Background()
	col, err := docs.EnsureCollection(ctx, "work")
	require.NoError(t, err)

	parentID := createTestDocument(t, docs, col.ID, "Source", time.Now())

	doc := &domain.Document{
		CollectionID: col.ID,
		Kind:         domain.KindAnswer,
		Title:        "Summary",
		Text:         "short",
		BlobRef:      "blob://1",
		Pinned:       true,
		ParentID:     &parentID,
		ContentHash:  "h1",
		Tags:         []string{"#Summary", "api", "api"},
	}
	chunks := []domain.Chunk{{Index: 0, Text: "short", Tokens: 1}}
	require.NoError(t, docs.SaveDocument(ctx, doc, chunks))
	assert.Equal(t, doc.ID, chunks[0].DocumentID)
	assert.NotZero(t, chunks[0].ID)

	got, err := docs.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.KindAnswer, got.Kind)
	assert.Equal(t, "Summary", got.Title)
	assert.Equal(t, "blob://1", got.BlobRef)
	assert.True(t, got.Pinned)
	require.NotNil(t, got.ParentID)
	assert.Equal(t, parentID, *got.ParentID)
	assert.Equal(t, []string{"api", "summary"}, got.Tags)
	assert.False(t, got.CreatedAt.IsZero())

	stored, err := docs.GetChunks(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "short", stored[0].Text)

	_, err = docs.GetDocument(ctx, 404)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	err = docs.SaveDocument(ctx, &domain.Document{CollectionID: 404, Kind: domain.KindNote}, nil)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentStore_GetDocuments_RespectsOrderAndVisibility(t *testing.T) {
	docs := setupTestStore(t).DocumentStore()
	ctx := context.Background()
	work, _ := docs.EnsureCollection(ctx, "work")
	other, _ := docs.EnsureCollection(ctx, "other")
	now := time.Now()

	a := createTestDocument(t, docs, work.ID, "A", now)
	b := createTestDocument(t, docs, work.ID, "B", now)
	hidden := createTestDocument(t, docs, other.ID, "Hidden", now)

	got, err := docs.GetDocuments(ctx, []int64{b, hidden, 999, a}, []int64{work.ID})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, b, got[0].ID)
	assert.Equal(t, a, got[1].ID)

	got, err = docs.GetDocuments(ctx, []int64{a}, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDocumentStore_SearchDocuments(t *testing.T) {
	docs := setupTestStore(t).DocumentStore()
	ctx := context.Background()
	work, _ := docs.EnsureCollection(ctx, "work")
	other, _ := docs.EnsureCollection(ctx, "other")
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	plan := createTestDocument(t, docs, work.ID, "Release plan", base, "plan", "release-notes")
	schema := createTestDocument(t, docs, work.ID, "DB schema", base.Add(time.Hour), "db")
	notes := createTestDocument(t, docs, work.ID, "Notes_2026", base.Add(2*time.Hour), "api", "apidocs")
	foreign := createTestDocument(t, docs, other.ID, "Release draft", base.Add(3*time.Hour), "plan")
	intl, _ := docs.EnsureCollection(ctx, "intl")
	project := createTestDocument(t, docs, intl.ID, "Проект План", base, "plan")
	design := createTestDocument(t, docs, intl.ID, "Über Design", base.Add(time.Hour))

	ids := func(list []domain.Document) []int64 {
		out := make([]int64, len(list))
		for i, d := range list {
			out[i] = d.ID
		}
		return out
	}

	tests := []struct {
		name      string
		cols      []int64
		query     string
		wantIDs   []int64
		wantTotal int
	}{
		{"all newest first", []int64{work.ID}, "", []int64{notes, schema, plan}, 3},
		{"by id", []int64{work.ID}, fmt.Sprint(schema), []int64{schema}, 1},
		{"by id outside scope", []int64{work.ID}, fmt.Sprint(foreign), []int64{}, 0},
		{"by tag substring", []int64{work.ID}, "#API", []int64{notes}, 1},
		{"by tag across collections", []int64{work.ID, other.ID}, "#plan", []int64{foreign, plan}, 2},
		{"by name case-insensitive", []int64{work.ID, other.ID}, "RELEASE", []int64{foreign, plan}, 2},
		{"cyrillic lowercase", []int64{intl.ID}, "проект", []int64{project}, 1},
		{"cyrillic uppercase", []int64{intl.ID}, "ПРОЕКТ", []int64{project}, 1},
		{"cyrillic exact case", []int64{intl.ID}, "Проект", []int64{project}, 1},
		{"latin-1 lowercase", []int64{intl.ID}, "über", []int64{design}, 1},
		{"latin-1 uppercase", []int64{intl.ID}, "ÜBER", []int64{design}, 1},
		{"underscore is literal", []int64{work.ID}, "s_2", []int64{notes}, 1},
		{"percent is literal", []int64{work.ID}, "%", []int64{}, 0},
		{"no collections", nil, "", []int64{}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, total, err := docs.SearchDocuments(ctx, driven.DocumentQuery{
				CollectionIDs: tt.cols,
				Query:         domain.ParseQuery(tt.query),
			})
			require.NoError(t, err)
			assert.Equal(t, tt.wantTotal, total)
			assert.Equal(t, tt.wantIDs, ids(got))
		})
	}

	t.Run("paging", func(t *testing.T) {
		got, total, err := docs.SearchDocuments(ctx, driven.DocumentQuery{
			CollectionIDs: []int64{work.ID},
			Query:         domain.ParseQuery(""),
			Offset:        1,
			Limit:         1,
		})
		require.NoError(t, err)
		assert.Equal(t, 3, total)
		assert.Equal(t, []int64{schema}, ids(got))
		assert.Equal(t, []string{"db"}, got[0].Tags)
	})
}

func TestDocumentStore_FindByContentHash(t *testing.T) {
	docs := setupTestStore(t).DocumentStore()
	ctx := context.Background()
	work, _ := docs.EnsureCollection(ctx, "work")
	other, _ := docs.EnsureCollection(ctx, "other")

	id := createTestDocument(t, docs, work.ID, "A", time.Now())

	got, err := docs.FindByContentHash(ctx, work.ID, "hash-A")
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)

	_, err = docs.FindByContentHash(ctx, other.ID, "hash-A")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentStore_TagsPinAndDelete(t *testing.T) {
	docs := setupTestStore(t).DocumentStore()
	ctx := context.Background()
	work, _ := docs.EnsureCollection(ctx, "work")

	keep := createTestDocument(t, docs, work.ID, "Keep", time.Now(), "old")
	drop := createTestDocument(t, docs, work.ID, "Drop", time.Now())
	gone := createTestDocument(t, docs, work.ID, "Gone", time.Now())

	require.NoError(t, docs.SetTags(ctx, keep, []string{"#Infra", "db"}))
	got, _ := docs.GetDocument(ctx, keep)
	assert.Equal(t, []string{"db", "infra"}, got.Tags)
	assert.ErrorIs(t, docs.SetTags(ctx, 404, []string{"x"}), domain.ErrNotFound)

	require.NoError(t, docs.SetPinned(ctx, keep, true))
	assert.ErrorIs(t, docs.SetPinned(ctx, 404, true), domain.ErrNotFound)

	require.NoError(t, docs.DeleteDocument(ctx, gone))
	assert.ErrorIs(t, docs.DeleteDocument(ctx, gone), domain.ErrNotFound)
	chunks, err := docs.GetChunks(ctx, gone)
	require.NoError(t, err)
	assert.Empty(t, chunks, "chunks cascade with the document")

	n, err := docs.DeleteCollectionDocuments(ctx, work.ID, true)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	_, err = docs.GetDocument(ctx, drop)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	count, err := docs.CountDocuments(ctx, work.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	n, err = docs.DeleteCollectionDocuments(ctx, work.ID, false)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestOperatorStore_GetInitialises(t *testing.T) {
	ops := setupTestStore(t).OperatorStore()

	st, err := ops.Get(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), st.OperatorID)
	assert.Equal(t, domain.ScopeLinked, st.Scope)
	assert.Empty(t, st.Basket)
	assert.Empty(t, st.LinkedCollectionIDs)
	assert.Nil(t, st.ActiveCollectionID)
	assert.Nil(t, st.LastRun)
	assert.Empty(t, st.InFlightRunID)
}

func TestOperatorStore_SaveRoundTrip(t *testing.T) {
	store := setupTestStore(t)
	ops := store.OperatorStore()
	ctx := context.Background()
	work, _ := store.DocumentStore().EnsureCollection(ctx, "work")

	saved := int64(12)
	st, _ := ops.Get(ctx, 1)
	st.ActiveCollectionID = &work.ID
	st.LinkedCollectionIDs = []int64{work.ID, work.ID}
	st.Basket = []int64{9, 3, 9}
	st.AutoClear = true
	st.Scope = domain.ScopeAll
	st.Armed = true
	st.Model = "gpt-4o"
	st.LastRun = &domain.LastRun{
		RunID:           "run-1",
		Question:        "why?",
		Text:            "because",
		UsedSourceIDs:   []int64{3, 9},
		Model:           "gpt-4o",
		TokensIn:        100,
		TokensOut:       20,
		CostUSD:         0.0123,
		Duration:        1500 * time.Millisecond,
		Attempts:        2,
		Saved:           true,
		SavedDocumentID: &saved,
		CompletedAt:     time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	require.NoError(t, ops.Save(ctx, st))

	got, err := ops.Get(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, got.ActiveCollectionID)
	assert.Equal(t, work.ID, *got.ActiveCollectionID)
	assert.Equal(t, []int64{work.ID}, got.LinkedCollectionIDs)
	assert.Equal(t, []int64{3, 9}, got.Basket)
	assert.True(t, got.AutoClear)
	assert.True(t, got.Armed)
	assert.Equal(t, domain.ScopeAll, got.Scope)
	assert.Equal(t, "gpt-4o", got.Model)
	require.NotNil(t, got.LastRun)
	assert.Equal(t, *st.LastRun, *got.LastRun)

	got.LastRun = nil
	got.ActiveCollectionID = nil
	require.NoError(t, ops.Save(ctx, got))
	again, _ := ops.Get(ctx, 1)
	assert.Nil(t, again.LastRun)
	assert.Nil(t, again.ActiveCollectionID)
}

func TestOperatorStore_UnreadableLastRunIsDropped(t *testing.T) {
	store := setupTestStore(t)
	ops := store.OperatorStore()
	ctx := context.Background()

	st, _ := ops.Get(ctx, 3)
	st.Basket = []int64{4, 8}
	st.LastRun = &domain.LastRun{RunID: "run-1", Text: "ok"}
	require.NoError(t, ops.Save(ctx, st))

	_, err := store.db.Exec(`UPDATE operator_states SET last_run = '{"run_id": 12' WHERE operator_id = 3`)
	require.NoError(t, err)

	got, err := ops.Get(ctx, 3)
	require.NoError(t, err)
	assert.Nil(t, got.LastRun)
	assert.Equal(t, []int64{4, 8}, got.Basket)

	got.Basket = []int64{4}
	require.NoError(t, ops.Save(ctx, got))
	again, err := ops.Get(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, []int64{4}, again.Basket)
	assert.Nil(t, again.LastRun)
}

func TestOperatorStore_RunGuard(t *testing.T) {
	ops := setupTestStore(t).OperatorStore()
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	ok, err := ops.BeginRun(ctx, 1, "run-a", now, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = ops.BeginRun(ctx, 1, "run-b", now.Add(time.Second), time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	// Save never touches the guard.
	st, _ := ops.Get(ctx, 1)
	require.NotNil(t, st.InFlightSince)
	assert.True(t, st.InFlightSince.Equal(now))
	st.InFlightRunID = ""
	st.Basket = []int64{4}
	require.NoError(t, ops.Save(ctx, st))
	got, _ := ops.Get(ctx, 1)
	assert.Equal(t, "run-a", got.InFlightRunID)
	assert.Equal(t, []int64{4}, got.Basket)

	require.NoError(t, ops.EndRun(ctx, 1, "run-b"))
	got, _ = ops.Get(ctx, 1)
	assert.Equal(t, "run-a", got.InFlightRunID)

	require.NoError(t, ops.EndRun(ctx, 1, "run-a"))
	got, _ = ops.Get(ctx, 1)
	assert.Empty(t, got.InFlightRunID)
	assert.Nil(t, got.InFlightSince)
}

func TestOperatorStore_BeginRun_StaleGuard(t *testing.T) {
	ops := setupTestStore(t).OperatorStore()
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	ok, _ := ops.BeginRun(ctx, 1, "run-a", now, time.Minute)
	require.True(t, ok)

	ok, err := ops.BeginRun(ctx, 1, "run-b", now.Add(time.Minute), time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "a guard older than staleAfter is taken over")

	got, _ := ops.Get(ctx, 1)
	assert.Equal(t, "run-b", got.InFlightRunID)
}

func TestOperatorStore_CompleteRun(t *testing.T) {
	ops := setupTestStore(t).OperatorStore()
	ctx := context.Background()
	now := time.Now()

	ok, _ := ops.BeginRun(ctx, 1, "run-a", now, time.Minute)
	require.True(t, ok)

	st, _ := ops.Get(ctx, 1)
	st.LastRun = &domain.LastRun{RunID: "run-a", Text: "done"}
	st.Armed = false
	require.NoError(t, ops.CompleteRun(ctx, st, "run-a"))

	got, _ := ops.Get(ctx, 1)
	assert.Empty(t, got.InFlightRunID)
	require.NotNil(t, got.LastRun)
	assert.Equal(t, "done", got.LastRun.Text)

	ok, err := ops.BeginRun(ctx, 1, "run-b", now, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestOperatorStore_BeginRun_ConcurrentSingleWinner(t *testing.T) {
	ops := setupTestStore(t).OperatorStore()
	ctx := context.Background()
	now := time.Now()

	_, err := ops.Get(ctx, 1)
	require.NoError(t, err)

	const racers = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ok, err := ops.BeginRun(ctx, 1, fmt.Sprintf("run-%d", i), now, time.Minute)
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}
