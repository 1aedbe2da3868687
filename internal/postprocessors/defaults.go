package postprocessors

import (
	"github.com/custodia-labs/mnemo/internal/core/domain"
	"github.com/custodia-labs/mnemo/internal/core/ports/driven"
	"github.com/custodia-labs/mnemo/internal/postprocessors/chunker"
)

// RegisterDefaults registers all built-in processors with the registry.
// Call this during application initialisation to enable standard processors.
// tok is shared by every processor that counts tokens.
func RegisterDefaults(r *Registry, tok driven.Tokenizer) {
	r.Register("chunker", func(cfg map[string]any) (driven.PostProcessor, error) {
		return buildChunker(cfg, tok)
	})
}

// buildChunker creates a chunker processor from generic config.
// Supported config keys:
//   - window (int): Tokens per chunk (default: 1600)
//   - overlap (int): Overlapping tokens between chunks (default: 150)
func buildChunker(cfg map[string]any, tok driven.Tokenizer) (driven.PostProcessor, error) {
	opts := []chunker.Option{chunker.WithTokenizer(tok)}

	if cfg != nil {
		if size := getIntFromConfig(cfg, "window"); size > 0 {
			opts = append(opts, chunker.WithWindow(size))
		}
		if _, ok := cfg["overlap"]; ok {
			opts = append(opts, chunker.WithOverlap(getIntFromConfig(cfg, "overlap")))
		}
	}

	return chunker.New(opts...), nil
}

// BuildPipeline builds the ingest pipeline for the given chunker settings.
func BuildPipeline(r *Registry, settings domain.ChunkerSettings) (*Pipeline, error) {
	proc, err := r.Build("chunker", map[string]any{
		"window":  settings.Window,
		"overlap": settings.Overlap,
	})
	if err != nil {
		return nil, err
	}
	return NewPipeline(proc), nil
}

// getIntFromConfig safely extracts an int from generic config map.
// Handles int, int64, and float64 types that may come from TOML/JSON parsing.
func getIntFromConfig(cfg map[string]any, key string) int {
	val, ok := cfg[key]
	if !ok {
		return 0
	}

	switch v := val.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}
