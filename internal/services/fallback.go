package services

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/hyde/internal/models"
	"github.com/desertthunder/hyde/internal/shared"
)

// Fetcher produces tracks related to a seed.
type Fetcher interface {
	Fetch(ctx context.Context, seed models.Seed) ([]models.Track, error)
}

// FetcherFunc adapts a function to [Fetcher].
type FetcherFunc func(ctx context.Context, seed models.Seed) ([]models.Track, error)

func (f FetcherFunc) Fetch(ctx context.Context, seed models.Seed) ([]models.Track, error) {
	return f(ctx, seed)
}

// StaticFetcher always returns a copy of the same tracks.
type StaticFetcher []models.Track

func (s StaticFetcher) Fetch(context.Context, models.Seed) ([]models.Track, error) {
	return copyTracks(s), nil
}

type fallbackFetcher struct {
	primary  Fetcher
	fallback StaticFetcher
	logger   *log.Logger
}

// WithFallback returns a [Fetcher] that answers with fallback whenever primary fails or finds nothing.
// Its Fetch never returns an error.
func WithFallback(primary Fetcher, fallback []models.Track, logger *log.Logger) Fetcher {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &fallbackFetcher{primary: primary, fallback: StaticFetcher(fallback), logger: logger}
}

func (f *fallbackFetcher) Fetch(ctx context.Context, seed models.Seed) ([]models.Track, error) {
	tracks, err := f.primary.Fetch(ctx, seed)
	switch {
	case err != nil:
		f.logger.Warn("using fallback tracks", "song", seed.Song, "artist", seed.Artist, "error", err)
	case len(tracks) == 0:
		f.logger.Warn("using fallback tracks", "song", seed.Song, "artist", seed.Artist, "error", shared.ErrNoRecommendations)
	default:
		return tracks, nil
	}
	return f.fallback.Fetch(ctx, seed)
}
