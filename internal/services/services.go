package services

import (
	"context"

	"github.com/desertthunder/hyde/internal/models"
)

const (
	ProviderScrape  = "scrape"
	ProviderDataAPI = "data_api"
)

// SearchProvider returns raw video results for a free-text query, best match first.
type SearchProvider interface {
	Search(ctx context.Context, query string, limit int) ([]models.RawResult, error)

	// Name identifies the provider in cache keys and logs.
	Name() string
}

// Completer asks a language model for a single, complete answer.
type Completer interface {
	Complete(ctx context.Context, req Completion) (string, error)
}

// StreamCompleter produces an answer incrementally.
//
// emit receives each chunk as it arrives; a non-nil error from emit stops the stream and is returned.
// The full answer is returned when the model finishes.
type StreamCompleter interface {
	Completer
	Stream(ctx context.Context, req Completion, emit func(chunk string) error) (string, error)
}

// TrackCatalog searches an external music catalog for track metadata.
type TrackCatalog interface {
	SearchTracks(ctx context.Context, query string, limit int) ([]models.Track, error)
}

// Suggester completes a partial query.
type Suggester interface {
	Suggest(ctx context.Context, query string) ([]string, error)
}
