package modelcatalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalog_BuiltinLookups(t *testing.T) {
	c := New()

	tests := []struct {
		model   string
		window  int
		in, out float64
	}{
		{"gpt-4o-mini", 128_000, 0.0005, 0.0015},
		{"gpt-4o", 128_000, 0.005, 0.015},
		{"gpt-4o-2024-08-06", 128_000, 0.005, 0.015},
		{"gpt-4", 8_192, 0.03, 0.06},
		{"gpt-5-nano", 400_000, 0.0002, 0.0006},
		{"GPT-5", 400_000, 0.002, 0.006},
		{"claude-3-5-sonnet-latest", 200_000, 0.003, 0.015},
		{"gemini-1.5-flash", 1_048_576, 0.000075, 0.0003},
		{"llama3.2", 128_000, 0, 0},
		{"mystery-model", 128_000, 0.002, 0.006},
	}
	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			assert.Equal(t, tt.window, c.ContextWindow(tt.model))
			in, out := c.Pricing(tt.model)
			assert.InDelta(t, tt.in, in, 1e-12)
			assert.InDelta(t, tt.out, out, 1e-12)
		})
	}

	_, ok := c.Lookup("mystery-model")
	assert.False(t, ok)
}

func TestCatalog_Apply(t *testing.T) {
	c := New()
	err := c.Apply([]byte(`
default:
  context_window: 32000
models:
  gpt-4o:
    price_in: 0.0025
  My-Finetune:
    context_window: 16000
    price_in: 0.001
    price_out: 0.002
`))
	require.NoError(t, err)

	assert.Equal(t, 128_000, c.ContextWindow("gpt-4o"), "unset fields keep the built-in value")
	in, out := c.Pricing("gpt-4o")
	assert.InDelta(t, 0.0025, in, 1e-12)
	assert.InDelta(t, 0.015, out, 1e-12)

	assert.Equal(t, 16_000, c.ContextWindow("my-finetune-v2"))
	assert.Equal(t, 32_000, c.ContextWindow("unknown"))
	assert.Contains(t, c.Models(), "my-finetune")

	assert.Error(t, c.Apply([]byte("models: [not, a, map]")))
}

func TestLoad(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 128_000, c.ContextWindow("gpt-4o"))

	path := filepath.Join(t.TempDir(), "models.yaml")
	require.NoError(t, os.WriteFile(path, []byte("models:\n  local:\n    context_window: 4096\n"), 0600))
	c, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, 4096, c.ContextWindow("local"))

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
