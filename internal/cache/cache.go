// Package cache implements the two-level search result cache.
//
// L1 is an in-process [MemoryStore] with TTL and a bounded entry count. L2 is any [Store] that survives restarts:
// a [RedisStore] shared between instances, or the SQLite search cache repository. [Tiered] combines them, filling L1
// from L2 hits and counting hits and misses.
package cache

import (
	"context"
	"crypto/sha256"
	"fmt"
	"strings"
	"time"
)

// Store is a byte-oriented cache backend. Get returns [shared.ErrCacheMiss] for absent or expired keys.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Key builds a deterministic "<namespace>:<digest>" key from parts.
func Key(namespace string, parts ...string) string {
	hash := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return fmt.Sprintf("%s:%x", namespace, hash[:12])
}
