package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/hyde/internal/models"
	"github.com/desertthunder/hyde/internal/services"
	"github.com/desertthunder/hyde/internal/tasks"
	"github.com/desertthunder/hyde/internal/ui"
	"github.com/urfave/cli/v3"
)

// Recommend asks the model for songs like the seed (or a shuffle list with --shuffle) and resolves them.
//
// When the model cannot answer, the embedded fallback catalog is printed instead.
func (r *Runner) Recommend(ctx context.Context, cmd *cli.Command) error {
	seed := models.Seed{
		Song:   strings.TrimSpace(cmd.String("song")),
		Artist: strings.TrimSpace(cmd.String("artist")),
	}
	asJSON := cmd.Bool("json")

	st, err := r.buildStack(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	catalog, err := services.LoadCatalog()
	if err != nil {
		return err
	}

	cfg := r.config
	mode, model, workers, fallback := tasks.ModeRecommend, cfg.Ollama.RecommendModel, cfg.Workers.Recommend, catalog.FallbackRecommendations()
	if cmd.Bool("shuffle") {
		mode, model, workers, fallback = tasks.ModeShuffle, cfg.Ollama.ShuffleModel, cfg.Workers.Shuffle, catalog.ShuffleTracks()
	}
	engine := tasks.NewRecommendationEngine(r.completer(), tasks.NewResolver(st.search, workers, r.logger), model, mode, r.logger)

	var progress chan tasks.ProgressUpdate
	done := make(chan struct{})
	if asJSON {
		close(done)
	} else {
		progress = make(chan tasks.ProgressUpdate, 32)
		go func() {
			defer close(done)
			for u := range progress {
				r.writePlain("%s\n", ui.Progress(u))
			}
		}()
	}

	run := services.FetcherFunc(func(ctx context.Context, seed models.Seed) ([]models.Track, error) {
		return engine.Run(ctx, seed, progress)
	})
	tracks, err := services.WithFallback(run, fallback, r.logger).Fetch(ctx, seed)
	if progress != nil {
		close(progress)
	}
	<-done
	if err != nil {
		return err
	}

	if asJSON {
		return r.writeJSON(tracks, cmd.Bool("pretty"))
	}
	title := "Recommendations"
	if seed.Song != "" {
		title = fmt.Sprintf("Because you played %s", seed.Song)
	}
	if mode == tasks.ModeShuffle {
		title = "Shuffle"
	}
	r.writePlainHeader(title)
	return r.writePlain("%s\n", ui.Tracks(tracks))
}
