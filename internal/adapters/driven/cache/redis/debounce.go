// Package redis provides a Redis-backed debounce cache shared across processes.
package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/mnemo/internal/core/ports/driven"
)

// Ensure DebounceCache implements the interface.
var _ driven.DebounceCache = (*DebounceCache)(nil)

const (
	keyPrefix   = "mnemo:"
	pingTimeout = 5 * time.Second
)

// DebounceCache claims keys with SET NX and a TTL.
type DebounceCache struct {
	rdb redis.UniversalClient
}

// New connects to the Redis server at url and verifies it answers.
// Both redis:// URLs and bare host:port addresses are accepted.
func New(url string) (*DebounceCache, error) {
	var opts *redis.Options
	if strings.HasPrefix(url, "redis://") || strings.HasPrefix(url, "rediss://") {
		parsed, err := redis.ParseURL(url)
		if err != nil {
			return nil, fmt.Errorf("parsing redis url: %w", err)
		}
		opts = parsed
	} else {
		opts = &redis.Options{Addr: url}
	}

	rdb := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	return &DebounceCache{rdb: rdb}, nil
}

// NewWithClient wraps an existing client.
func NewWithClient(rdb redis.UniversalClient) *DebounceCache {
	return &DebounceCache{rdb: rdb}
}

// Claim stores key for ttl. It returns false when the key is already held.
func (c *DebounceCache) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := c.rdb.SetNX(ctx, keyPrefix+key, time.Now().UnixNano(), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claiming %s: %w", key, err)
	}
	return ok, nil
}

// Release deletes key.
func (c *DebounceCache) Release(ctx context.Context, key string) error {
	if err := c.rdb.Del(ctx, keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("releasing %s: %w", key, err)
	}
	return nil
}

// Close closes the underlying client.
func (c *DebounceCache) Close() error {
	return c.rdb.Close()
}
