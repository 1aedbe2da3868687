package mcp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/mnemo/internal/core/domain"
	"github.com/custodia-labs/mnemo/internal/core/ports/driving"
)

func TestServer_handleSearch(t *testing.T) {
	ctx := context.Background()

	t.Run("returns documents with selection marks", func(t *testing.T) {
		ports, catalog, selection, _ := newTestPorts()
		catalog.page = &domain.SearchPage{
			Documents: []domain.Document{
				{ID: 12, Title: "API notes", Kind: domain.KindNote, Tags: []string{"api"}},
				{ID: 9, Kind: domain.KindImport, Pinned: true},
			},
			Total:    7,
			Page:     2,
			PageSize: 2,
		}
		selection.state(5).ToggleBasket(9)

		server, err := NewServer(ports, 5)
		require.NoError(t, err)

		_, out, err := server.handleSearch(ctx, nil, SearchInput{Query: "#api", Page: 2})
		require.NoError(t, err)

		assert.Equal(t, int64(5), catalog.gotOp)
		assert.Equal(t, "#api", catalog.gotQuery)
		assert.Equal(t, 2, catalog.gotPageArg)
		assert.Equal(t, 7, out.Total)
		assert.Equal(t, 4, out.Pages)
		require.Len(t, out.Documents, 2)
		assert.Equal(t, "API notes", out.Documents[0].Title)
		assert.False(t, out.Documents[0].Selected)
		assert.Equal(t, "mnemo://documents/12", out.Documents[0].URI)
		assert.Equal(t, "9", out.Documents[1].Title, "untitled documents show their id")
		assert.True(t, out.Documents[1].Selected)
		assert.True(t, out.Documents[1].Pinned)
	})

	t.Run("no active collection is not an error", func(t *testing.T) {
		ports, catalog, _, _ := newTestPorts()
		catalog.page = &domain.SearchPage{Page: 1, PageSize: 5, NoActiveCollection: true}
		server, err := NewServer(ports, 1)
		require.NoError(t, err)

		_, out, err := server.handleSearch(ctx, nil, SearchInput{})
		require.NoError(t, err)
		assert.True(t, out.NoActiveCollection)
		assert.Empty(t, out.Documents)
		assert.Equal(t, 0, out.Pages)
	})

	t.Run("returns error on search failure", func(t *testing.T) {
		ports, catalog, _, _ := newTestPorts()
		catalog.err = errors.New("search failed")
		server, err := NewServer(ports, 1)
		require.NoError(t, err)

		_, _, err = server.handleSearch(ctx, nil, SearchInput{Query: "x"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "search failed")
	})
}

func TestServer_SelectionTools(t *testing.T) {
	ctx := context.Background()
	ports, _, _, _ := newTestPorts()
	server, err := NewServer(ports, 3)
	require.NoError(t, err)

	_, toggled, err := server.handleToggle(ctx, nil, ToggleInput{DocumentID: 8})
	require.NoError(t, err)
	assert.True(t, toggled.Added)
	assert.Equal(t, []int64{8}, toggled.Selection)

	_, toggled, err = server.handleToggle(ctx, nil, ToggleInput{DocumentID: 2})
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 8}, toggled.Selection)

	_, toggled, err = server.handleToggle(ctx, nil, ToggleInput{DocumentID: 8})
	require.NoError(t, err)
	assert.False(t, toggled.Added)
	assert.Equal(t, []int64{2}, toggled.Selection)

	_, sel, err := server.handleSetAutoClear(ctx, nil, AutoClearInput{Enabled: true})
	require.NoError(t, err)
	assert.True(t, sel.AutoClear)
	assert.Equal(t, "linked", sel.Scope)

	_, sel, err = server.handleClear(ctx, nil, OperatorInput{})
	require.NoError(t, err)
	assert.Equal(t, []int64{}, sel.DocumentIDs)

	// Another operator is untouched.
	_, sel, err = server.handleGetSelection(ctx, nil, OperatorInput{OperatorID: 99})
	require.NoError(t, err)
	assert.Equal(t, []int64{}, sel.DocumentIDs)
	assert.False(t, sel.AutoClear)
}

func TestServer_handleRunRequest(t *testing.T) {
	ctx := context.Background()

	t.Run("returns answer and usage", func(t *testing.T) {
		ports, _, _, pipeline := newTestPorts()
		pipeline.result = &driving.RunResult{
			RunID:         "run-1",
			Text:          "answer [4]",
			UsedSourceIDs: []int64{4},
			Usage:         domain.Usage{Model: "gpt-4o-mini", TokensIn: 120, TokensOut: 30, CostUSD: 0.0001, Duration: 1500 * time.Millisecond},
		}
		server, err := NewServer(ports, 3)
		require.NoError(t, err)

		_, out, err := server.handleRunRequest(ctx, nil, RunInput{Question: "why?", TriggerID: "msg-1"})
		require.NoError(t, err)

		assert.Equal(t, driving.RunInput{OperatorID: 3, Question: "why?", TriggerID: "msg-1"}, pipeline.got)
		assert.Equal(t, "run-1", out.RunID)
		assert.Equal(t, []int64{4}, out.UsedSourceIDs)
		assert.Equal(t, int64(1500), out.Usage.DurationMS)
		assert.False(t, out.Debounced)
	})

	t.Run("debounced run is reported", func(t *testing.T) {
		ports, _, _, pipeline := newTestPorts()
		pipeline.result = &driving.RunResult{Debounced: true}
		server, err := NewServer(ports, 3)
		require.NoError(t, err)

		_, out, err := server.handleRunRequest(ctx, nil, RunInput{Question: "again"})
		require.NoError(t, err)
		assert.True(t, out.Debounced)
		assert.Empty(t, out.RunID)
	})

	t.Run("empty selection error surfaces", func(t *testing.T) {
		ports, _, _, pipeline := newTestPorts()
		pipeline.err = domain.ErrEmptySelection
		server, err := NewServer(ports, 3)
		require.NoError(t, err)

		_, _, err = server.handleRunRequest(ctx, nil, RunInput{Question: "q"})
		assert.ErrorIs(t, err, domain.ErrEmptySelection)
	})
}
