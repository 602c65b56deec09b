package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/desertthunder/hyde/internal/server"
	"github.com/desertthunder/hyde/internal/services"
	"github.com/desertthunder/hyde/internal/sessions"
	"github.com/desertthunder/hyde/internal/shared"
	"github.com/desertthunder/hyde/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Serve assembles every component from the configuration and runs the HTTP API until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	if cmd.IsSet("host") {
		r.config.Server.Host = cmd.String("host")
	}
	if cmd.IsSet("port") {
		r.config.Server.Port = cmd.Int("port")
	}

	store, err := r.openStore()
	if err != nil {
		return fmt.Errorf("failed to open playlist store: %w", err)
	}
	r.logger.Info("playlist store loaded", "path", r.config.Store.Path, "playlists", store.Len())

	st, err := r.buildStack(ctx)
	if err != nil {
		return err
	}
	defer st.Close()
	if st.memory != nil {
		go st.memory.Run(ctx, 0)
	}

	catalog, err := services.LoadCatalog()
	if err != nil {
		return err
	}
	recommend, shuffle := r.engines(st.search, catalog)

	ollama := r.completer()
	deps := server.Deps{
		Config:    r.config,
		Logger:    r.logger,
		Store:     store,
		Search:    st.search,
		Chat:      ollama,
		Sessions:  r.sessions(),
		Suggest:   services.NewSuggestClient(r.config.Search.SuggestURL, r.config.Search.SuggestTimeout()),
		Resolver:  tasks.NewResolver(st.search, r.config.Workers.Catalog, r.logger),
		Recommend: recommend,
		Shuffle:   shuffle,
		Trending:  catalog.Trending(),
		Cache:     st.counters,
	}
	if p, ok := ollama.(server.Pinger); ok {
		deps.Health = p
	}

	spotify, err := services.NewSpotifyCatalog(ctx, r.config.Credentials.Spotify, services.SpotifyOptions{})
	switch {
	case err == nil:
		deps.Catalog = spotify
	case errors.Is(err, shared.ErrServiceUnavailable):
		r.logger.Warn("spotify catalog search disabled", "reason", err)
	default:
		return err
	}

	return server.New(deps).ListenAndServe(ctx)
}

func (r *Runner) sessions() *sessions.ChatLog {
	cfg := r.config.Sessions
	return sessions.New(sessions.Options{
		MaxSessions: cfg.MaxSessions,
		MaxBytes:    cfg.MaxBytes,
		IdleTTL:     cfg.IdleTTL(),
	})
}
