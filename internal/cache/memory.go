package cache

import (
	"context"
	"sync"
	"time"

	"github.com/desertthunder/hyde/internal/shared"
)

type entry struct {
	data      []byte
	expiresAt time.Time
}

// MemoryStore is an in-process [Store] bounded by maxEntries.
//
// When full, expired entries are evicted first, then the entries closest to expiry.
type MemoryStore struct {
	entries    sync.Map // key → *entry
	mu         sync.Mutex
	maxEntries int
	now        func() time.Time
}

// NewMemoryStore creates a store holding at most maxEntries keys. Zero means unbounded.
func NewMemoryStore(maxEntries int) *MemoryStore {
	return &MemoryStore{maxEntries: maxEntries, now: time.Now}
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	val, ok := m.entries.Load(key)
	if !ok {
		return nil, shared.ErrCacheMiss
	}
	e := val.(*entry)
	if !m.now().Before(e.expiresAt) {
		m.entries.Delete(key)
		return nil, shared.ErrCacheMiss
	}
	return e.data, nil
}

func (m *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.entries.Load(key); !exists {
		m.evictIfNeeded()
	}
	m.entries.Store(key, &entry{data: value, expiresAt: m.now().Add(ttl)})
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.entries.Delete(key)
	return nil
}

// Len counts stored entries, including expired ones not yet pruned.
func (m *MemoryStore) Len() int {
	n := 0
	m.entries.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Prune removes expired entries and returns how many were removed.
func (m *MemoryStore) Prune() int {
	now := m.now()
	removed := 0
	m.entries.Range(func(key, val any) bool {
		if e := val.(*entry); !now.Before(e.expiresAt) {
			m.entries.Delete(key)
			removed++
		}
		return true
	})
	return removed
}

// Clear removes every entry and returns how many were removed.
func (m *MemoryStore) Clear() int {
	removed := 0
	m.entries.Range(func(key, _ any) bool {
		m.entries.Delete(key)
		removed++
		return true
	})
	return removed
}

// Run prunes expired entries every interval until ctx is done.
func (m *MemoryStore) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Prune()
		}
	}
}

// evictIfNeeded makes room for one new entry. The caller must hold m.mu.
func (m *MemoryStore) evictIfNeeded() {
	if m.maxEntries <= 0 {
		return
	}

	count := m.Len()
	if count < m.maxEntries {
		return
	}

	count -= m.Prune()

	for count >= m.maxEntries {
		var oldestKey any
		var oldestAt time.Time
		m.entries.Range(func(key, val any) bool {
			e := val.(*entry)
			if oldestKey == nil || e.expiresAt.Before(oldestAt) {
				oldestKey, oldestAt = key, e.expiresAt
			}
			return true
		})
		if oldestKey == nil {
			return
		}
		m.entries.Delete(oldestKey)
		count--
	}
}
