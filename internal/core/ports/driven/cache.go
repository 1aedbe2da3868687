package driven

import (
	"context"
	"time"
)

// DebounceCache remembers short-lived keys with explicit expiry.
// Keys are scoped by operator id by the caller.
type DebounceCache interface {
	// Claim stores key for ttl. It returns true if the key was not already held.
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Release forgets key before its expiry.
	Release(ctx context.Context, key string) error
}
