package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/hyde/internal/models"
	"github.com/desertthunder/hyde/internal/parser"
	"github.com/desertthunder/hyde/internal/shared"
	"github.com/desertthunder/hyde/internal/ui"
	"github.com/urfave/cli/v3"
)

// Search runs a query through the configured search pipeline and prints the ranked tracks.
func (r *Runner) Search(ctx context.Context, cmd *cli.Command) error {
	query := strings.TrimSpace(cmd.StringArg("query"))
	if query == "" {
		return fmt.Errorf("%w: query is required", shared.ErrMissingArgument)
	}
	limit := cmd.Int("limit")
	if limit <= 0 {
		limit = r.config.Search.DefaultLimit
	}

	tracks, err := r.searchTracks(ctx, query, limit)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(tracks, cmd.Bool("pretty"))
	}
	r.writePlainHeader(fmt.Sprintf("Results for %q", query))
	return r.writePlain("%s\n", ui.Tracks(tracks))
}

func (r *Runner) searchTracks(ctx context.Context, query string, limit int) ([]models.Track, error) {
	st, err := r.buildStack(ctx)
	if err != nil {
		return nil, err
	}
	defer st.Close()

	r.logger.Debug("searching", "query", query, "limit", limit, "provider", st.search.Name())
	raw, err := st.search.Search(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	return parser.BuildTracks(raw, query, limit), nil
}
