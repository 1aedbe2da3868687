package normalisers

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/custodia-labs/mnemo/internal/core/ports/driven"
)

// Registry maps file extensions to import converters.
type Registry struct {
	byExt map[string]driven.ImportConverter
}

// NewRegistry creates an empty converter registry.
func NewRegistry() *Registry {
	return &Registry{byExt: make(map[string]driven.ImportConverter)}
}

// Register adds c for each of its extensions. A later registration for the
// same extension replaces the earlier one.
func (r *Registry) Register(c driven.ImportConverter) {
	for _, ext := range c.Extensions() {
		r.byExt[strings.ToLower(ext)] = c
	}
}

// For returns the converter for the file name's extension. A nil registry
// has no converters.
func (r *Registry) For(name string) (driven.ImportConverter, bool) {
	if r == nil {
		return nil, false
	}
	c, ok := r.byExt[strings.ToLower(filepath.Ext(name))]
	return c, ok
}

// Extensions returns the registered extensions, sorted.
func (r *Registry) Extensions() []string {
	exts := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// TitleFromFilename turns "release_notes-v2.md" into "release notes v2".
func TitleFromFilename(name string) string {
	base := filepath.Base(name)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.NewReplacer("_", " ", "-", " ").Replace(base)
	return strings.TrimSpace(base)
}
