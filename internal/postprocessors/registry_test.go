package postprocessors

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/mnemo/internal/adapters/driven/tokenizer"
	"github.com/custodia-labs/mnemo/internal/core/domain"
	"github.com/custodia-labs/mnemo/internal/core/ports/driven"
)

func TestRegistry_RegisterAndBuild(t *testing.T) {
	r := NewRegistry()
	assert.False(t, r.Has("mock"))

	r.Register("mock", func(_ map[string]any) (driven.PostProcessor, error) {
		return &mockProcessor{name: "mock"}, nil
	})

	assert.True(t, r.Has("mock"))
	assert.Equal(t, []string{"mock"}, r.Names())

	proc, err := r.Build("mock", nil)
	require.NoError(t, err)
	assert.Equal(t, "mock", proc.Name())
}

func TestRegistry_Build_UnknownProcessor(t *testing.T) {
	_, err := NewRegistry().Build("nope", nil)
	assert.Error(t, err)
}

func TestBuildPipeline_UsesChunkerSettings(t *testing.T) {
	r := NewRegistry()
	RegisterDefaults(r, tokenizer.Bytes{})

	p, err := BuildPipeline(r, domain.ChunkerSettings{Window: 4, Overlap: 0})
	require.NoError(t, err)

	chunks, err := p.Process(context.Background(), &domain.Document{ID: 2, Text: "abcdefgh"})
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "efgh", chunks[1].Text)
}

func TestBuildChunker_ZeroOverlapIsKept(t *testing.T) {
	r := NewRegistry()
	RegisterDefaults(r, tokenizer.Bytes{})

	p, err := BuildPipeline(r, domain.ChunkerSettings{Window: 3, Overlap: 0})
	require.NoError(t, err)

	chunks, err := p.Process(context.Background(), &domain.Document{Text: "abcdef"})
	require.NoError(t, err)
	assert.Len(t, chunks, 2)
}

func TestGetIntFromConfig(t *testing.T) {
	cfg := map[string]any{"a": 1, "b": int64(2), "c": float64(3), "d": "x"}
	assert.Equal(t, 1, getIntFromConfig(cfg, "a"))
	assert.Equal(t, 2, getIntFromConfig(cfg, "b"))
	assert.Equal(t, 3, getIntFromConfig(cfg, "c"))
	assert.Equal(t, 0, getIntFromConfig(cfg, "d"))
	assert.Equal(t, 0, getIntFromConfig(cfg, "missing"))
}
