package file

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/mnemo/internal/core/domain"
	"github.com/custodia-labs/mnemo/internal/core/ports/driven"
)

func newTestPromptStore(t *testing.T) *PromptStore {
	t.Helper()
	store, err := NewPromptStore(filepath.Join(t.TempDir(), "prompts"))
	require.NoError(t, err)
	return store
}

func TestNewPromptStore_DefaultDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	store, err := NewPromptStore("")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".mnemo", "prompts"), store.Dir())

	_, err = os.Stat(store.Dir())
	assert.True(t, os.IsNotExist(err), "constructor performs no I/O")
}

func TestPromptStore_Load_MissingIsNotFound(t *testing.T) {
	store := newTestPromptStore(t)

	_, err := store.Load(driven.PromptSystem)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = os.Stat(filepath.Join(store.Dir(), "README.md"))
	assert.NoError(t, err)
}

func TestPromptStore_Load_CustomContent(t *testing.T) {
	store := newTestPromptStore(t)
	require.NoError(t, os.MkdirAll(store.Dir(), 0700))
	require.NoError(t, os.WriteFile(filepath.Join(store.Dir(), "system.txt"), []byte("  Be brief.\n\n"), 0600))

	text, err := store.Load(driven.PromptSystem)
	require.NoError(t, err)
	assert.Equal(t, "Be brief.", text)
}

func TestPromptStore_Load_BlankIsNotFound(t *testing.T) {
	store := newTestPromptStore(t)
	require.NoError(t, os.MkdirAll(store.Dir(), 0700))
	require.NoError(t, os.WriteFile(filepath.Join(store.Dir(), "system.txt"), []byte(" \n"), 0600))

	_, err := store.Load(driven.PromptSystem)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPromptStore_Load_RejectsPaths(t *testing.T) {
	store := newTestPromptStore(t)
	_, err := store.Load("../config")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestPromptStore_CacheAndReload(t *testing.T) {
	store := newTestPromptStore(t)
	path := filepath.Join(store.Dir(), "system.txt")
	require.NoError(t, os.MkdirAll(store.Dir(), 0700))
	require.NoError(t, os.WriteFile(path, []byte("first"), 0600))

	text, err := store.Load(driven.PromptSystem)
	require.NoError(t, err)
	assert.Equal(t, "first", text)

	require.NoError(t, os.WriteFile(path, []byte("second"), 0600))
	text, _ = store.Load(driven.PromptSystem)
	assert.Equal(t, "first", text, "cached until reload")

	store.Reload()
	text, _ = store.Load(driven.PromptSystem)
	assert.Equal(t, "second", text)
}

func TestPromptStore_ConcurrentAccess(t *testing.T) {
	store := newTestPromptStore(t)
	require.NoError(t, os.MkdirAll(store.Dir(), 0700))
	require.NoError(t, os.WriteFile(filepath.Join(store.Dir(), "system.txt"), []byte("shared"), 0600))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			text, err := store.Load(driven.PromptSystem)
			assert.NoError(t, err)
			assert.Equal(t, "shared", text)
			if i%5 == 0 {
				store.Reload()
			}
		}()
	}
	wg.Wait()
}
