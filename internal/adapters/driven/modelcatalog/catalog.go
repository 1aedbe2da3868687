// Package modelcatalog provides the table of model context windows and prices.
//
// The built-in table can be extended or overridden by a YAML file:
//
//	default:
//	  context_window: 128000
//	  price_in: 0.002
//	  price_out: 0.006
//	models:
//	  my-finetune:
//	    context_window: 32000
//	    price_in: 0.001
//	    price_out: 0.002
//
// Lookups match the longest model-name prefix, so dated variants such as
// "gpt-4o-2024-08-06" resolve to "gpt-4o".
package modelcatalog

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/mnemo/internal/core/ports/driven"
)

// Ensure Catalog implements the interface.
var _ driven.ModelCatalog = (*Catalog)(nil)

// Entry describes one model. Prices are USD per 1k tokens.
type Entry struct {
	ContextWindow int     `yaml:"context_window"`
	PriceIn       float64 `yaml:"price_in"`
	PriceOut      float64 `yaml:"price_out"`
}

// fileFormat is the YAML override layout.
type fileFormat struct {
	Default *Entry           `yaml:"default"`
	Models  map[string]Entry `yaml:"models"`
}

// DefaultEntry applies to models with no matching prefix.
var DefaultEntry = Entry{ContextWindow: 128_000, PriceIn: 0.002, PriceOut: 0.006}

// builtin returns the shipped table.
func builtin() map[string]Entry {
	return map[string]Entry{
		"gpt-5":                    {ContextWindow: 400_000, PriceIn: 0.002, PriceOut: 0.006},
		"gpt-5-mini":               {ContextWindow: 400_000, PriceIn: 0.001, PriceOut: 0.003},
		"gpt-5-nano":               {ContextWindow: 400_000, PriceIn: 0.0002, PriceOut: 0.0006},
		"gpt-4.1":                  {ContextWindow: 1_047_576, PriceIn: 0.005, PriceOut: 0.015},
		"gpt-4o":                   {ContextWindow: 128_000, PriceIn: 0.005, PriceOut: 0.015},
		"gpt-4o-mini":              {ContextWindow: 128_000, PriceIn: 0.0005, PriceOut: 0.0015},
		"gpt-4-turbo":              {ContextWindow: 128_000, PriceIn: 0.01, PriceOut: 0.03},
		"gpt-4":                    {ContextWindow: 8_192, PriceIn: 0.03, PriceOut: 0.06},
		"gpt-3.5-turbo":            {ContextWindow: 16_385, PriceIn: 0.0005, PriceOut: 0.0015},
		"claude-3-5-sonnet-latest": {ContextWindow: 200_000, PriceIn: 0.003, PriceOut: 0.015},
		"claude":                   {ContextWindow: 200_000, PriceIn: 0.003, PriceOut: 0.015},
		"gemini-1.5-flash":         {ContextWindow: 1_048_576, PriceIn: 0.000075, PriceOut: 0.0003},
		"gemini-1.5-pro":           {ContextWindow: 2_097_152, PriceIn: 0.00125, PriceOut: 0.005},
		"llama3.2":                 {ContextWindow: 128_000},
	}
}

// Catalog resolves model names to entries.
type Catalog struct {
	mu       sync.RWMutex
	entries  map[string]Entry
	prefixes []string // sorted longest first
	fallback Entry
}

// New returns a catalog holding the built-in table.
func New() *Catalog {
	c := &Catalog{entries: builtin(), fallback: DefaultEntry}
	c.reindex()
	return c
}

// Load returns the built-in table with the YAML file at path applied on top.
// An empty path yields the built-in table.
func Load(path string) (*Catalog, error) {
	c := New()
	if path == "" {
		return c, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading model table: %w", err)
	}
	if err := c.Apply(data); err != nil {
		return nil, fmt.Errorf("parsing model table %s: %w", path, err)
	}
	return c, nil
}

// Apply merges a YAML override. Zero fields in an override keep the existing value.
func (c *Catalog) Apply(data []byte) error {
	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if f.Default != nil {
		c.fallback = merge(c.fallback, *f.Default)
	}
	for name, e := range f.Models {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		c.entries[name] = merge(c.entries[name], e)
	}
	c.reindex()
	return nil
}

// Lookup returns the entry for model and whether a table entry matched.
func (c *Catalog) Lookup(model string) (Entry, bool) {
	model = strings.ToLower(strings.TrimSpace(model))
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, p := range c.prefixes {
		if strings.HasPrefix(model, p) {
			return c.withFallback(c.entries[p]), true
		}
	}
	return c.fallback, false
}

// ContextWindow returns the model's context size in tokens.
func (c *Catalog) ContextWindow(model string) int {
	e, _ := c.Lookup(model)
	return e.ContextWindow
}

// Pricing returns USD per 1k input and output tokens.
func (c *Catalog) Pricing(model string) (in, out float64) {
	e, _ := c.Lookup(model)
	return e.PriceIn, e.PriceOut
}

// Models returns the known model names, sorted.
func (c *Catalog) Models() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.entries))
	for name := range c.entries {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// withFallback fills a missing context window from the default entry.
// Prices are kept as-is so local models can be free.
func (c *Catalog) withFallback(e Entry) Entry {
	if e.ContextWindow <= 0 {
		e.ContextWindow = c.fallback.ContextWindow
	}
	return e
}

func (c *Catalog) reindex() {
	c.prefixes = c.prefixes[:0]
	for name := range c.entries {
		c.prefixes = append(c.prefixes, name)
	}
	sort.Slice(c.prefixes, func(i, j int) bool {
		if len(c.prefixes[i]) != len(c.prefixes[j]) {
			return len(c.prefixes[i]) > len(c.prefixes[j])
		}
		return c.prefixes[i] < c.prefixes[j]
	})
}

func merge(base, override Entry) Entry {
	if override.ContextWindow > 0 {
		base.ContextWindow = override.ContextWindow
	}
	if override.PriceIn > 0 {
		base.PriceIn = override.PriceIn
	}
	if override.PriceOut > 0 {
		base.PriceOut = override.PriceOut
	}
	return base
}
