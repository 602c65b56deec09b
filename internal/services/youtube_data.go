package services

import (
	"context"
	"fmt"
	"html"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/hyde/internal/models"
	"github.com/desertthunder/hyde/internal/shared"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// musicCategoryID is the YouTube video category for music.
const musicCategoryID = "10"

// DataAPIOptions configures [NewDataAPIProvider].
type DataAPIOptions struct {
	APIKey string
	// Endpoint overrides the API base URL.
	Endpoint  string
	Timeout   time.Duration
	RateLimit float64
	Logger    *log.Logger
}

// DataAPIProvider searches YouTube through the official Data API v3.
type DataAPIProvider struct {
	svc     *youtube.Service
	timeout time.Duration
	limiter *rate.Limiter
	logger  *log.Logger
}

func NewDataAPIProvider(ctx context.Context, opts DataAPIOptions) (*DataAPIProvider, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("%w: youtube data api key is not configured", shared.ErrServiceUnavailable)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultSearchTimeout
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = defaultRateLimit
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	clientOpts := []option.ClientOption{option.WithAPIKey(opts.APIKey)}
	if opts.Endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(opts.Endpoint))
	}

	svc, err := youtube.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create youtube service: %w", err)
	}

	return &DataAPIProvider{
		svc:     svc,
		timeout: opts.Timeout,
		limiter: rate.NewLimiter(rate.Limit(opts.RateLimit), 1),
		logger:  shared.WithLogger(opts.Logger, "provider", ProviderDataAPI),
	}, nil
}

func (p *DataAPIProvider) Name() string { return ProviderDataAPI }

// Search lists music-category videos for query, then looks up their durations.
//
// A failed duration lookup is logged and the results are returned without durations.
func (p *DataAPIProvider) Search(ctx context.Context, query string, limit int) ([]models.RawResult, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrUpstream, err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	resp, err := p.svc.Search.List([]string{"snippet"}).
		Q(query).
		Type("video").
		VideoCategoryId(musicCategoryID).
		MaxResults(int64(limit)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("%w: youtube data api search: %v", shared.ErrUpstream, err)
	}

	results := make([]models.RawResult, 0, len(resp.Items))
	ids := make([]string, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.Id == nil || item.Id.VideoId == "" || item.Snippet == nil {
			continue
		}
		results = append(results, models.RawResult{
			ExternalID: item.Id.VideoId,
			RawTitle:   html.UnescapeString(item.Snippet.Title),
		})
		ids = append(ids, item.Id.VideoId)
	}
	if len(ids) == 0 {
		return results, nil
	}

	durations, err := p.durations(ctx, ids)
	if err != nil {
		p.logger.Warn("duration lookup failed", "query", query, "error", err)
		return results, nil
	}
	for i := range results {
		results[i].DurationText = durations[results[i].ExternalID]
	}
	return results, nil
}

// durations maps video ids to their ISO-8601 durations.
func (p *DataAPIProvider) durations(ctx context.Context, ids []string) (map[string]string, error) {
	resp, err := p.svc.Videos.List([]string{"contentDetails"}).Id(ids...).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(resp.Items))
	for _, v := range resp.Items {
		if v.ContentDetails != nil {
			out[v.Id] = v.ContentDetails.Duration
		}
	}
	return out, nil
}
