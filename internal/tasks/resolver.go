package tasks

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/hyde/internal/models"
	"github.com/desertthunder/hyde/internal/parser"
	"github.com/desertthunder/hyde/internal/services"
	"github.com/desertthunder/hyde/internal/shared"
)

// Resolution is the outcome of looking up one query. Track is nil when nothing matched or Err is set.
type Resolution struct {
	Index int
	Query string
	Track *models.Track
	Err   error
}

type resolveJob struct {
	index int
	query string
}

// Resolver turns free-text queries into tracks using a fixed pool of search workers.
type Resolver struct {
	search  services.SearchProvider
	workers int
	logger  *log.Logger
}

// NewResolver creates a resolver. The worker count is clamped to [shared.MinWorkers, shared.MaxWorkers].
func NewResolver(search services.SearchProvider, workers int, logger *log.Logger) *Resolver {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Resolver{
		search:  search,
		workers: shared.ClampWorkers(workers),
		logger:  shared.WithLogger(logger, "component", "resolver"),
	}
}

// Workers returns the pool size.
func (r *Resolver) Workers() int { return r.workers }

// Resolve searches every query with limit 1 and returns one [Resolution] per query, in query order.
//
// Lookups run concurrently on the worker pool; completion order only affects progress updates.
// After ctx is done the remaining queries resolve immediately with the context error.
func (r *Resolver) Resolve(ctx context.Context, queries []string, prog chan<- ProgressUpdate) []Resolution {
	out := make([]Resolution, len(queries))
	if len(queries) == 0 {
		return out
	}

	jobs := make(chan resolveJob, len(queries))
	results := make(chan Resolution, len(queries))

	var wg sync.WaitGroup
	for i := 0; i < min(r.workers, len(queries)); i++ {
		wg.Add(1)
		go r.worker(ctx, &wg, jobs, results)
	}

	for i, q := range queries {
		jobs <- resolveJob{index: i, query: q}
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		out[res.Index] = res
		sendProgress(prog, resolvedTrackUpdate(completed, len(queries), res.Query, res.Track))
	}
	return out
}

func (r *Resolver) worker(ctx context.Context, wg *sync.WaitGroup, jobs <-chan resolveJob, results chan<- Resolution) {
	defer wg.Done()
	for job := range jobs {
		results <- r.resolveOne(ctx, job)
	}
}

func (r *Resolver) resolveOne(ctx context.Context, job resolveJob) Resolution {
	res := Resolution{Index: job.index, Query: job.query}
	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}

	raw, err := r.search.Search(ctx, job.query, 1)
	if err != nil {
		r.logger.Warn("lookup failed", "query", job.query, "error", err)
		res.Err = err
		return res
	}

	if tracks := parser.BuildTracks(raw, job.query, 1); len(tracks) > 0 {
		res.Track = &tracks[0]
	}
	return res
}

// AttachExternalIDs looks up a YouTube video for each catalog track and returns copies carrying its id.
//
// Tracks keep their own metadata; only the external id (and a missing image) come from the match.
// Tracks without a match keep an empty external id.
func (r *Resolver) AttachExternalIDs(ctx context.Context, tracks []models.Track, prog chan<- ProgressUpdate) []models.Track {
	queries := make([]string, len(tracks))
	for i, t := range tracks {
		queries[i] = lookupQuery(t)
	}

	resolved := r.Resolve(ctx, queries, prog)
	out := make([]models.Track, len(tracks))
	for i, t := range tracks {
		out[i] = t
		out[i].Artists = append([]string{}, t.Artists...)
		if match := resolved[i].Track; match != nil {
			out[i].ExternalID = match.ExternalID
			if out[i].Image == "" {
				out[i].Image = match.Image
			}
		}
	}
	return out
}

func lookupQuery(t models.Track) string {
	if len(t.Artists) == 0 || t.Artists[0] == "" {
		return fmt.Sprintf("%s audio", t.Name)
	}
	return fmt.Sprintf("%s %s audio", t.Name, t.Artists[0])
}
