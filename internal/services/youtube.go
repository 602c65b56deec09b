package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/hyde/internal/models"
	"github.com/desertthunder/hyde/internal/shared"
	"golang.org/x/net/html"
	"golang.org/x/time/rate"
)

const (
	DefaultScrapeURL = "https://www.youtube.com"

	defaultSearchTimeout = 10 * time.Second
	defaultRateLimit     = 5.0
	maxPageBytes         = 4 << 20
)

var (
	initialDataMarkers = [][]byte{
		[]byte("var ytInitialData = "),
		[]byte(`window["ytInitialData"] = `),
	}
	videoIDPattern = regexp.MustCompile(`"videoId":"([A-Za-z0-9_-]{11})"`)

	browserHeaders = map[string]string{
		"User-Agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		"Accept-Language": "en-US,en;q=0.9",
	}
)

// ScrapeOptions configures [NewScrapeProvider]. Zero values select the defaults.
type ScrapeOptions struct {
	BaseURL   string
	Timeout   time.Duration
	RateLimit float64
	// Headers are sent in addition to (and override) the browser defaults.
	Headers *shared.HeaderSet
	Client  *http.Client
	Logger  *log.Logger
}

// ScrapeProvider searches YouTube by reading the results page the website serves to browsers.
type ScrapeProvider struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	headers *shared.HeaderSet
	logger  *log.Logger
}

func NewScrapeProvider(opts ScrapeOptions) *ScrapeProvider {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultScrapeURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultSearchTimeout
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = defaultRateLimit
	}
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: opts.Timeout}
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	return &ScrapeProvider{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		client:  opts.Client,
		limiter: rate.NewLimiter(rate.Limit(opts.RateLimit), 1),
		headers: opts.Headers,
		logger:  shared.WithLogger(opts.Logger, "provider", ProviderScrape),
	}
}

func (p *ScrapeProvider) Name() string { return ProviderScrape }

// Search fetches the results page for "<query> music" and returns up to limit videos in page order.
//
// When the page carries no video renderers, bare video ids found anywhere in the page are returned with empty titles.
func (p *ScrapeProvider) Search(ctx context.Context, query string, limit int) ([]models.RawResult, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrUpstream, err)
	}

	searchURL := p.baseURL + "/results?search_query=" + url.QueryEscape(query+" music")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range browserHeaders {
		req.Header.Set(k, v)
	}
	p.headers.Apply(req.Header)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: youtube search: %v", shared.ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: youtube search returned status %d", shared.ErrUpstream, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read youtube search response: %v", shared.ErrUpstream, err)
	}

	if data := findInitialData(body); data != nil {
		if results := extractRenderers(data, limit); len(results) > 0 {
			p.logger.Debug("parsed results page", "query", query, "results", len(results))
			return results, nil
		}
	}

	results := extractVideoIDs(body, limit)
	p.logger.Warn("no video renderers found, using bare video ids", "query", query, "results", len(results))
	return results, nil
}

// findInitialData returns the ytInitialData object from the first script element that assigns it.
// Pages that are not well-formed HTML are searched as plain bytes.
func findInitialData(page []byte) []byte {
	z := html.NewTokenizer(bytes.NewReader(page))
	inScript := false
	for {
		switch z.Next() {
		case html.ErrorToken:
			return initialDataFrom(page)
		case html.StartTagToken:
			name, _ := z.TagName()
			inScript = string(name) == "script"
		case html.EndTagToken:
			inScript = false
		case html.TextToken:
			if !inScript {
				continue
			}
			if data := initialDataFrom(z.Text()); data != nil {
				return data
			}
		}
	}
}

func initialDataFrom(b []byte) []byte {
	for _, marker := range initialDataMarkers {
		if idx := bytes.Index(b, marker); idx >= 0 {
			return extractJSON(b[idx+len(marker):])
		}
	}
	return nil
}

// extractJSON returns the complete JSON object starting at b[0] == '{' by tracking brace depth.
func extractJSON(b []byte) []byte {
	if len(b) == 0 || b[0] != '{' {
		return nil
	}
	depth := 0
	inStr, escaped := false, false
	for i, c := range b {
		if inStr {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inStr = false
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return b[:i+1]
			}
		}
	}
	return nil
}

type textRuns struct {
	Runs []struct {
		Text string `json:"text"`
	} `json:"runs"`
	SimpleText string `json:"simpleText"`
}

func (t textRuns) String() string {
	if t.SimpleText != "" {
		return t.SimpleText
	}
	var sb strings.Builder
	for _, r := range t.Runs {
		sb.WriteString(r.Text)
	}
	return sb.String()
}

type videoRenderer struct {
	VideoID    string   `json:"videoId"`
	Title      textRuns `json:"title"`
	LengthText textRuns `json:"lengthText"`
}

type jsonFrame struct {
	object    bool
	expectKey bool
}

// extractRenderers walks data in document order and collects videoRenderer entries.
// A video id seen earlier on the page is skipped and does not count toward limit.
//
// A token decoder is used instead of unmarshaling into maps so result order matches the page.
func extractRenderers(data []byte, limit int) []models.RawResult {
	var results []models.RawResult
	seen := make(map[string]bool)
	dec := json.NewDecoder(bytes.NewReader(data))
	var stack []jsonFrame

	valueSeen := func() {
		if n := len(stack); n > 0 && stack[n-1].object {
			stack[n-1].expectKey = true
		}
	}

	for len(results) < limit {
		tok, err := dec.Token()
		if err != nil {
			break
		}

		switch v := tok.(type) {
		case json.Delim:
			switch v {
			case '{':
				valueSeen()
				stack = append(stack, jsonFrame{object: true, expectKey: true})
			case '[':
				valueSeen()
				stack = append(stack, jsonFrame{})
			default:
				if len(stack) > 0 {
					stack = stack[:len(stack)-1]
				}
			}
		case string:
			n := len(stack)
			if n == 0 || !stack[n-1].object || !stack[n-1].expectKey {
				valueSeen()
				continue
			}
			stack[n-1].expectKey = false
			if v != "videoRenderer" {
				continue
			}

			var vr videoRenderer
			if err := dec.Decode(&vr); err != nil {
				return results
			}
			stack[n-1].expectKey = true
			if vr.VideoID == "" || seen[vr.VideoID] {
				continue
			}
			seen[vr.VideoID] = true
			results = append(results, models.RawResult{
				ExternalID:   vr.VideoID,
				RawTitle:     vr.Title.String(),
				DurationText: vr.LengthText.String(),
			})
		default:
			valueSeen()
		}
	}
	return results
}

// extractVideoIDs returns unique 11-character video ids in page order.
func extractVideoIDs(page []byte, limit int) []models.RawResult {
	var results []models.RawResult
	seen := make(map[string]bool)
	for _, m := range videoIDPattern.FindAllSubmatch(page, -1) {
		if len(results) >= limit {
			break
		}
		id := string(m[1])
		if seen[id] {
			continue
		}
		seen[id] = true
		results = append(results, models.RawResult{ExternalID: id})
	}
	return results
}
