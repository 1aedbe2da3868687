package memory

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/mnemo/internal/core/ports/driven"
)

// Ensure DebounceCache implements the interface.
var _ driven.DebounceCache = (*DebounceCache)(nil)

// DebounceCache is an in-process implementation of driven.DebounceCache.
// Expired keys are swept lazily on Claim.
type DebounceCache struct {
	mu   sync.Mutex
	keys map[string]time.Time
	now  func() time.Time
}

// NewDebounceCache creates an empty cache.
func NewDebounceCache() *DebounceCache {
	return &DebounceCache{
		keys: make(map[string]time.Time),
		now:  time.Now,
	}
}

// Claim stores key for ttl and reports whether it was free.
func (c *DebounceCache) Claim(_ context.Context, key string, ttl time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for k, exp := range c.keys {
		if !now.Before(exp) {
			delete(c.keys, k)
		}
	}
	if _, held := c.keys[key]; held {
		return false, nil
	}
	c.keys[key] = now.Add(ttl)
	return true, nil
}

// Release forgets key.
func (c *DebounceCache) Release(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.keys, key)
	return nil
}
