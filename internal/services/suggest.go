package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/desertthunder/hyde/internal/shared"
)

const (
	DefaultSuggestURL     = "http://suggestqueries.google.com/complete/search"
	defaultSuggestTimeout = 5 * time.Second
)

// SuggestClient queries the YouTube flavoured search suggestion endpoint.
type SuggestClient struct {
	endpoint   string
	httpClient *http.Client
}

func NewSuggestClient(endpoint string, timeout time.Duration) *SuggestClient {
	if endpoint == "" {
		endpoint = DefaultSuggestURL
	}
	if timeout <= 0 {
		timeout = defaultSuggestTimeout
	}
	return &SuggestClient{endpoint: endpoint, httpClient: &http.Client{Timeout: timeout}}
}

// Suggest returns completions for query. The endpoint answers with [query, [suggestions...], ...].
func (s *SuggestClient) Suggest(ctx context.Context, query string) ([]string, error) {
	params := url.Values{}
	params.Set("client", "firefox")
	params.Set("ds", "yt")
	params.Set("q", query)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: suggestions: %v", shared.ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: suggestions returned status %d", shared.ErrUpstream, resp.StatusCode)
	}

	var payload []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: decode suggestions: %v", shared.ErrUpstream, err)
	}
	if len(payload) < 2 {
		return nil, fmt.Errorf("%w: malformed suggestions payload", shared.ErrUpstream)
	}

	var suggestions []string
	if err := json.Unmarshal(payload[1], &suggestions); err != nil {
		return nil, fmt.Errorf("%w: decode suggestions: %v", shared.ErrUpstream, err)
	}
	return suggestions, nil
}
