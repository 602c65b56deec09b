package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/desertthunder/hyde/internal/cache"
	"github.com/desertthunder/hyde/internal/repositories"
	"github.com/desertthunder/hyde/internal/services"
	"github.com/desertthunder/hyde/internal/shared"
	"github.com/desertthunder/hyde/internal/tasks"
)

// stack holds the search pipeline and cache backends shared by serve and the one-shot commands.
type stack struct {
	search services.SearchProvider
	tiered *cache.Tiered
	memory *cache.MemoryStore
	db     *sql.DB
	repo   *repositories.SearchCacheRepository
	redis  *cache.RedisStore
}

func (s *stack) Close() error {
	var errs []error
	if s.db != nil {
		errs = append(errs, s.db.Close())
	}
	if s.redis != nil {
		errs = append(errs, s.redis.Close())
	}
	return errors.Join(errs...)
}

// counters reports cache hits and misses; zero when caching is off.
func (s *stack) counters() cache.Counters {
	if s.tiered == nil {
		return cache.Counters{}
	}
	return s.tiered.Counters()
}

// buildStack assembles provider -> tiered cache (memory L1 + sqlite or redis L2) -> singleflight decorator.
func (r *Runner) buildStack(ctx context.Context) (*stack, error) {
	if r.search != nil {
		return &stack{search: r.search}, nil
	}

	provider, err := r.newProvider(ctx)
	if err != nil {
		return nil, err
	}

	cfg := r.config.Cache
	if !cfg.Enabled {
		r.logger.Info("search cache disabled")
		return &stack{search: provider}, nil
	}

	s, err := r.openCacheBackend(ctx)
	if err != nil {
		return nil, err
	}
	s.memory = cache.NewMemoryStore(cfg.MaxEntries)

	var l2 cache.Store
	switch {
	case s.repo != nil:
		l2 = s.repo
	case s.redis != nil:
		l2 = s.redis
	}
	s.tiered = cache.NewTiered(s.memory, l2, cfg.TTL(), r.logger)
	s.search = services.NewCachedSearch(provider, s.tiered, cfg.TTL(), r.logger)

	r.logger.Info("search pipeline ready", "provider", provider.Name(), "cache", cfg.Backend)
	return s, nil
}

// openCacheBackend connects the configured second-level cache. The memory backend has none.
func (r *Runner) openCacheBackend(ctx context.Context) (*stack, error) {
	s := &stack{}
	switch r.config.Cache.Backend {
	case "sqlite":
		db, err := shared.OpenDatabase(ctx, r.config.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to open cache database: %w", err)
		}
		s.db = db
		s.repo = repositories.NewSearchCacheRepository(db)
	case "redis":
		rs, err := cache.NewRedisStore(ctx, r.config.Cache.RedisURL)
		if err != nil {
			return nil, err
		}
		s.redis = rs
	}
	return s, nil
}

func (r *Runner) newProvider(ctx context.Context) (services.SearchProvider, error) {
	cfg := r.config.Search

	if cfg.Provider == services.ProviderDataAPI {
		return services.NewDataAPIProvider(ctx, services.DataAPIOptions{
			APIKey:    r.config.Credentials.YouTube.APIKey,
			Timeout:   cfg.Timeout(),
			RateLimit: cfg.RateLimit,
			Logger:    r.logger,
		})
	}

	var headers *shared.HeaderSet
	if cfg.HeadersPath != "" {
		h, err := shared.ParseCurlFile(cfg.HeadersPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load search headers: %w", err)
		}
		headers = h
		r.logger.Debug("loaded browser headers", "path", cfg.HeadersPath, "count", h.Len())
	}
	return services.NewScrapeProvider(services.ScrapeOptions{
		Timeout:   cfg.Timeout(),
		RateLimit: cfg.RateLimit,
		Headers:   headers,
		Logger:    r.logger,
	}), nil
}

func (r *Runner) openStore() (*repositories.PlaylistStore, error) {
	if r.store != nil {
		return r.store, nil
	}
	store, err := repositories.OpenPlaylistStore(r.config.Store.Path, repositories.StoreOptions{
		Strict: r.config.Store.Strict,
		Logger: r.logger,
	})
	if err != nil {
		return nil, err
	}
	r.store = store
	return store, nil
}

func (r *Runner) completer() services.StreamCompleter {
	if r.chat == nil {
		r.chat = services.NewOllamaClient(r.config.Ollama.Host, r.config.Ollama.Timeout())
	}
	return r.chat
}

// engines wires the recommendation and shuffle engines, each falling back to its embedded catalog.
func (r *Runner) engines(search services.SearchProvider, catalog *services.Catalog) (recommend, shuffle services.Fetcher) {
	cfg := r.config
	rec := tasks.NewRecommendationEngine(
		r.completer(),
		tasks.NewResolver(search, cfg.Workers.Recommend, r.logger),
		cfg.Ollama.RecommendModel,
		tasks.ModeRecommend,
		r.logger,
	)
	shuf := tasks.NewRecommendationEngine(
		r.completer(),
		tasks.NewResolver(search, cfg.Workers.Shuffle, r.logger),
		cfg.Ollama.ShuffleModel,
		tasks.ModeShuffle,
		r.logger,
	)
	return services.WithFallback(rec, catalog.FallbackRecommendations(), r.logger),
		services.WithFallback(shuf, catalog.ShuffleTracks(), r.logger)
}
