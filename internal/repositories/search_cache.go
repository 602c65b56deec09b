package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/hyde/internal/shared"
)

// CacheStats summarizes the persisted cache.
type CacheStats struct {
	Entries    int64            `json:"entries"`
	Expired    int64            `json:"expired"`
	Hits       int64            `json:"hits"`
	Namespaces map[string]int64 `json:"namespaces"`
}

// SearchCacheRepository stores cached provider payloads in the search_cache table.
//
// Keys are "<namespace>:<digest>"; the namespace is kept in its own column for stats.
type SearchCacheRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSearchCacheRepository creates a repository over a migrated database.
func NewSearchCacheRepository(db *sql.DB) *SearchCacheRepository {
	return &SearchCacheRepository{db: db, now: time.Now}
}

// Get returns the payload for key, or [shared.ErrCacheMiss] when it is absent or expired.
func (r *SearchCacheRepository) Get(ctx context.Context, key string) ([]byte, error) {
	var payload []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT payload FROM search_cache WHERE cache_key = ? AND expires_at > ?`,
		key, r.now().UnixMilli(),
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cache entry: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, `UPDATE search_cache SET hits = hits + 1 WHERE cache_key = ?`, key); err != nil {
		return nil, fmt.Errorf("failed to record cache hit: %w", err)
	}
	return payload, nil
}

// Set stores payload under key for ttl, replacing any previous entry.
func (r *SearchCacheRepository) Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	now := r.now()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO search_cache (cache_key, namespace, payload, created_at, expires_at, hits)
		VALUES (?, ?, ?, ?, ?, 0)
		ON CONFLICT(cache_key) DO UPDATE SET
			payload = excluded.payload,
			created_at = excluded.created_at,
			expires_at = excluded.expires_at,
			hits = 0
	`, key, namespace(key), payload, now.UnixMilli(), now.Add(ttl).UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	return nil
}

// Delete removes key. Deleting an absent key is not an error.
func (r *SearchCacheRepository) Delete(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM search_cache WHERE cache_key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

// Prune deletes expired entries and returns how many were removed.
func (r *SearchCacheRepository) Prune(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM search_cache WHERE expires_at <= ?`, r.now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to prune cache: %w", err)
	}
	return res.RowsAffected()
}

// Clear deletes every entry and returns how many were removed.
func (r *SearchCacheRepository) Clear(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM search_cache`)
	if err != nil {
		return 0, fmt.Errorf("failed to clear cache: %w", err)
	}
	return res.RowsAffected()
}

// Stats counts entries, expired entries, and recorded hits.
func (r *SearchCacheRepository) Stats(ctx context.Context) (*CacheStats, error) {
	stats := &CacheStats{Namespaces: make(map[string]int64)}
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN expires_at <= ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(hits), 0)
		FROM search_cache
	`, r.now().UnixMilli()).Scan(&stats.Entries, &stats.Expired, &stats.Hits)
	if err != nil {
		return nil, fmt.Errorf("failed to read cache stats: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `SELECT namespace, COUNT(*) FROM search_cache GROUP BY namespace`)
	if err != nil {
		return nil, fmt.Errorf("failed to read cache namespaces: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ns string
		var n int64
		if err := rows.Scan(&ns, &n); err != nil {
			return nil, fmt.Errorf("failed to scan cache namespace: %w", err)
		}
		stats.Namespaces[ns] = n
	}
	return stats, rows.Err()
}

func namespace(key string) string {
	if ns, _, ok := strings.Cut(key, ":"); ok {
		return ns
	}
	return "default"
}
