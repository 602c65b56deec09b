package services

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/hyde/internal/cache"
	"github.com/desertthunder/hyde/internal/models"
	"github.com/desertthunder/hyde/internal/shared"
	"golang.org/x/sync/singleflight"
)

// sharedSearchTimeout bounds a shared upstream search once it no longer follows any caller's context.
const sharedSearchTimeout = 30 * time.Second

// CachedSearch decorates a [SearchProvider] with a cache and duplicate suppression.
//
// Concurrent searches for the same key share one upstream call. Empty results are not cached.
type CachedSearch struct {
	provider SearchProvider
	store    cache.Store
	ttl      time.Duration
	group    singleflight.Group
	logger   *log.Logger
}

func NewCachedSearch(provider SearchProvider, store cache.Store, ttl time.Duration, logger *log.Logger) *CachedSearch {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &CachedSearch{
		provider: provider,
		store:    store,
		ttl:      ttl,
		logger:   shared.WithLogger(logger, "component", "cached-search"),
	}
}

func (c *CachedSearch) Name() string { return c.provider.Name() }

// SearchKey returns the cache key for a provider, query and limit. Queries are compared case-insensitively.
func SearchKey(provider, query string, limit int) string {
	return cache.Key("search", provider, strings.ToLower(strings.TrimSpace(query)), strconv.Itoa(limit))
}

func (c *CachedSearch) Search(ctx context.Context, query string, limit int) ([]models.RawResult, error) {
	key := SearchKey(c.provider.Name(), query, limit)
	if results, ok := cache.GetJSON[[]models.RawResult](ctx, c.store, key); ok {
		return results, nil
	}

	// The shared call outlives any single caller; each caller stops waiting when its own ctx ends.
	ch := c.group.DoChan(key, func() (any, error) {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedSearchTimeout)
		defer cancel()

		results, err := c.provider.Search(sctx, query, limit)
		if err != nil {
			return nil, err
		}
		if len(results) > 0 {
			if err := cache.SetJSON(sctx, c.store, key, results, c.ttl); err != nil {
				c.logger.Warn("cache write failed", "key", key, "error", err)
			}
		}
		return results, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			c.logger.Debug("shared in-flight search", "query", query)
		}
		results := res.Val.([]models.RawResult)
		return append([]models.RawResult(nil), results...), nil
	}
}
