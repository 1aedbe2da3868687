package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDebounceCache_Claim(t *testing.T) {
	cache := NewDebounceCache()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }
	ctx := context.Background()

	ok, err := cache.Claim(ctx, "debounce:1:t1", 10*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = cache.Claim(ctx, "debounce:1:t1", 10*time.Second)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, _ = cache.Claim(ctx, "debounce:2:t1", 10*time.Second)
	assert.True(t, ok, "keys are independent")

	now = now.Add(10 * time.Second)
	ok, _ = cache.Claim(ctx, "debounce:1:t1", 10*time.Second)
	assert.True(t, ok, "expired keys can be claimed again")
}

func TestDebounceCache_Release(t *testing.T) {
	cache := NewDebounceCache()
	ctx := context.Background()

	ok, _ := cache.Claim(ctx, "k", time.Hour)
	require.True(t, ok)
	require.NoError(t, cache.Release(ctx, "k"))

	ok, _ = cache.Claim(ctx, "k", time.Hour)
	assert.True(t, ok)
}
