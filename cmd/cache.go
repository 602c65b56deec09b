package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/desertthunder/hyde/internal/ui"
	"github.com/urfave/cli/v3"
)

const searchNamespace = "search"

// CacheStats prints entry counts for the persistent search cache.
func (r *Runner) CacheStats(ctx context.Context, cmd *cli.Command) error {
	st, err := r.openCacheBackend(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	if st.repo == nil {
		return r.writePlain("%s\n", ui.Warn(fmt.Sprintf("No persistent statistics for the %s backend", r.config.Cache.Backend)))
	}
	stats, err := st.repo.Stats(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(stats, cmd.Bool("pretty"))
	}
	r.writePlainHeader("Search cache")
	r.writePlain("Entries: %d\n", stats.Entries)
	r.writePlain("Expired: %d\n", stats.Expired)
	r.writePlain("Hits:    %d\n", stats.Hits)

	namespaces := make([]string, 0, len(stats.Namespaces))
	for ns := range stats.Namespaces {
		namespaces = append(namespaces, ns)
	}
	sort.Strings(namespaces)
	for _, ns := range namespaces {
		r.writePlain("  %s: %d\n", ns, stats.Namespaces[ns])
	}
	return nil
}

// CacheClear removes every cached search from the persistent backend.
func (r *Runner) CacheClear(ctx context.Context, cmd *cli.Command) error {
	st, err := r.openCacheBackend(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	var removed int64
	switch {
	case st.repo != nil:
		removed, err = st.repo.Clear(ctx)
	case st.redis != nil:
		removed, err = st.redis.Clear(ctx, searchNamespace)
	default:
		return r.writePlain("%s\n", ui.Warn("The memory cache lives in the server process; restart it to clear"))
	}
	if err != nil {
		return err
	}
	return r.writePlain("%s Removed %d cached searches\n", ui.Success("✓"), removed)
}

// CachePrune deletes expired entries. Redis expires keys on its own.
func (r *Runner) CachePrune(ctx context.Context, cmd *cli.Command) error {
	st, err := r.openCacheBackend(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	if st.repo == nil {
		return r.writePlain("%s\n", ui.Warn(fmt.Sprintf("Nothing to prune for the %s backend", r.config.Cache.Backend)))
	}
	removed, err := st.repo.Prune(ctx)
	if err != nil {
		return err
	}
	return r.writePlain("%s Pruned %d expired entries\n", ui.Success("✓"), removed)
}
