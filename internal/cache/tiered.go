package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/hyde/internal/shared"
)

// Counters reports cache effectiveness.
type Counters struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
}

// Tiered reads L1 then L2, populating L1 on an L2 hit, and writes both.
//
// L2 failures are logged and treated as misses so a flaky backend never fails a search.
type Tiered struct {
	l1     *MemoryStore
	l2     Store
	ttl    time.Duration
	logger *log.Logger

	hits   atomic.Int64
	misses atomic.Int64
}

// NewTiered combines l1 with an optional l2 (nil disables the second level).
func NewTiered(l1 *MemoryStore, l2 Store, ttl time.Duration, logger *log.Logger) *Tiered {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Tiered{l1: l1, l2: l2, ttl: ttl, logger: shared.WithLogger(logger, "component", "cache")}
}

func (t *Tiered) Get(ctx context.Context, key string) ([]byte, error) {
	if data, err := t.l1.Get(ctx, key); err == nil {
		t.hits.Add(1)
		t.logger.Debug("L1 hit", "key", key)
		return data, nil
	}

	if t.l2 != nil {
		data, err := t.l2.Get(ctx, key)
		switch {
		case err == nil:
			t.hits.Add(1)
			t.logger.Debug("L2 hit", "key", key)
			t.l1.Set(ctx, key, data, t.ttl)
			return data, nil
		case !errors.Is(err, shared.ErrCacheMiss):
			t.logger.Warn("L2 get failed", "key", key, "error", err)
		}
	}

	t.misses.Add(1)
	return nil, shared.ErrCacheMiss
}

// Set stores value in both levels with the cache TTL. ttl overrides it when positive.
func (t *Tiered) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = t.ttl
	}
	t.l1.Set(ctx, key, value, ttl)
	if t.l2 != nil {
		if err := t.l2.Set(ctx, key, value, ttl); err != nil {
			t.logger.Warn("L2 set failed", "key", key, "error", err)
		}
	}
	return nil
}

func (t *Tiered) Delete(ctx context.Context, key string) error {
	t.l1.Delete(ctx, key)
	if t.l2 != nil {
		return t.l2.Delete(ctx, key)
	}
	return nil
}

// Counters returns the hit and miss totals since start.
func (t *Tiered) Counters() Counters {
	return Counters{Hits: t.hits.Load(), Misses: t.misses.Load()}
}

// GetJSON decodes a cached value into T. A payload that does not decode counts as a miss.
func GetJSON[T any](ctx context.Context, s Store, key string) (T, bool) {
	var out T
	data, err := s.Get(ctx, key)
	if err != nil {
		return out, false
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, false
	}
	return out, true
}

// SetJSON encodes v and stores it under key.
func SetJSON[T any](ctx context.Context, s Store, key string, v T, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.Set(ctx, key, data, ttl)
}
