package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestCache connects to MNEMO_TEST_REDIS_URL or skips.
func newTestCache(t *testing.T) *DebounceCache {
	t.Helper()
	url := os.Getenv("MNEMO_TEST_REDIS_URL")
	if url == "" {
		t.Skip("MNEMO_TEST_REDIS_URL not set")
	}
	c, err := New(url)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestDebounceCache_ClaimOnce(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	key := "test:" + uuid.NewString()
	t.Cleanup(func() { _ = c.Release(ctx, key) })

	ok, err := c.Claim(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.Claim(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Release(ctx, key))
	ok, err = c.Claim(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDebounceCache_Expires(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	key := "test:" + uuid.NewString()

	ok, err := c.Claim(ctx, key, 50*time.Millisecond)
	require.NoError(t, err)
	require.True(t, ok)

	assert.Eventually(t, func() bool {
		ok, err := c.Claim(ctx, key, time.Minute)
		return err == nil && ok
	}, 2*time.Second, 20*time.Millisecond)
	_ = c.Release(ctx, key)
}

func TestNew_Unreachable(t *testing.T) {
	_, err := New("redis://127.0.0.1:1/0")
	assert.Error(t, err)
}

func TestNew_BadURL(t *testing.T) {
	_, err := New("redis://localhost:6379/notanumber")
	assert.Error(t, err)
}
