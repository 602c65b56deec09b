package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/hyde/internal/models"
	"github.com/desertthunder/hyde/internal/services"
	"github.com/desertthunder/hyde/internal/shared"
	th "github.com/desertthunder/hyde/internal/testing"
)

type mockCompleter struct {
	reply string
	err   error

	mu       sync.Mutex
	requests []services.Completion
}

func (m *mockCompleter) Complete(ctx context.Context, req services.Completion) (string, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()
	return m.reply, m.err
}

func raw(id, title string) []models.RawResult {
	return []models.RawResult{{ExternalID: id, RawTitle: title, DurationText: "3:30"}}
}

func TestResolver(t *testing.T) {
	t.Run("results follow query order", func(t *testing.T) {
		queries := make([]string, 20)
		provider := &th.MockSearchProvider{Results: map[string][]models.RawResult{}}
		for i := range queries {
			queries[i] = fmt.Sprintf("song %d", i)
			provider.Results[queries[i]] = raw(fmt.Sprintf("id%09d", i), fmt.Sprintf("Artist - song %d", i))
		}

		got := NewResolver(provider, 8, nil).Resolve(context.Background(), queries, nil)
		if len(got) != len(queries) {
			t.Fatalf("expected %d resolutions, got %d", len(queries), len(got))
		}
		for i, res := range got {
			if res.Index != i || res.Query != queries[i] {
				t.Errorf("expected resolution %d for %q, got %+v", i, queries[i], res)
			}
			if res.Track == nil || res.Track.ExternalID != fmt.Sprintf("id%09d", i) {
				t.Errorf("expected track id%09d at %d, got %+v", i, i, res.Track)
			}
		}
	})

	t.Run("lookups run concurrently", func(t *testing.T) {
		var inFlight, peak atomic.Int32
		provider := searchFunc(func(ctx context.Context, q string, limit int) ([]models.RawResult, error) {
			n := inFlight.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)
			inFlight.Add(-1)
			return nil, nil
		})

		NewResolver(provider, 5, nil).Resolve(context.Background(), make([]string, 10), nil)
		if peak.Load() < 2 {
			t.Errorf("expected concurrent lookups, peak was %d", peak.Load())
		}
		if peak.Load() > 5 {
			t.Errorf("expected at most 5 concurrent lookups, peak was %d", peak.Load())
		}
	})

	t.Run("misses and errors", func(t *testing.T) {
		provider := searchFunc(func(ctx context.Context, q string, limit int) ([]models.RawResult, error) {
			if q == "broken" {
				return nil, shared.ErrUpstream
			}
			return nil, nil
		})

		got := NewResolver(provider, 5, nil).Resolve(context.Background(), []string{"nothing", "broken"}, nil)
		if got[0].Track != nil || got[0].Err != nil {
			t.Errorf("expected a clean miss, got %+v", got[0])
		}
		if !errors.Is(got[1].Err, shared.ErrUpstream) {
			t.Errorf("expected ErrUpstream, got %v", got[1].Err)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		provider := &th.MockSearchProvider{Default: raw("abcdefghijk", "A - B")}

		got := NewResolver(provider, 5, nil).Resolve(ctx, []string{"a", "b", "c"}, nil)
		for _, res := range got {
			if !errors.Is(res.Err, context.Canceled) {
				t.Errorf("expected context.Canceled, got %v", res.Err)
			}
		}
		if len(provider.Queries()) != 0 {
			t.Errorf("expected no searches after cancellation, got %v", provider.Queries())
		}
	})

	t.Run("workers are clamped", func(t *testing.T) {
		if w := NewResolver(nil, 1, nil).Workers(); w != shared.MinWorkers {
			t.Errorf("expected %d workers, got %d", shared.MinWorkers, w)
		}
		if w := NewResolver(nil, 50, nil).Workers(); w != shared.MaxWorkers {
			t.Errorf("expected %d workers, got %d", shared.MaxWorkers, w)
		}
	})

	t.Run("empty input", func(t *testing.T) {
		if got := NewResolver(&th.MockSearchProvider{}, 5, nil).Resolve(context.Background(), nil, nil); len(got) != 0 {
			t.Errorf("expected no resolutions, got %d", len(got))
		}
	})

	t.Run("progress updates", func(t *testing.T) {
		progressCh := make(chan ProgressUpdate, 10)
		provider := &th.MockSearchProvider{Default: raw("abcdefghijk", "Daft Punk - One More Time")}

		NewResolver(provider, 5, nil).Resolve(context.Background(), []string{"one more time", "other"}, progressCh)
		close(progressCh)

		count := 0
		for update := range progressCh {
			count++
			if update.Phase != ResolveTracks || update.Total != 2 {
				t.Errorf("unexpected update %+v", update)
			}
		}
		if count != 2 {
			t.Errorf("expected 2 updates, got %d", count)
		}
	})
}

func TestAttachExternalIDs(t *testing.T) {
	provider := &th.MockSearchProvider{Results: map[string][]models.RawResult{
		"Get Lucky Daft Punk audio": raw("5NV6Rdv1a3I", "Daft Punk - Get Lucky (Official Audio)"),
		"Instrumental audio":        raw("instrument1", "Instrumental"),
	}}
	tracks := []models.Track{
		{ID: "spotify_1", Name: "Get Lucky", Artists: []string{"Daft Punk", "Pharrell Williams"}, Image: "https://i.scdn.co/image/ram", Source: "spotify"},
		{ID: "spotify_2", Name: "Unknown Song", Artists: []string{"Nobody"}, Source: "spotify"},
		{ID: "spotify_3", Name: "Instrumental", Source: "spotify"},
	}

	got := NewResolver(provider, 5, nil).AttachExternalIDs(context.Background(), tracks, nil)
	if len(got) != 3 {
		t.Fatalf("expected 3 tracks, got %d", len(got))
	}
	if got[0].ExternalID != "5NV6Rdv1a3I" || got[0].Image != "https://i.scdn.co/image/ram" || got[0].Name != "Get Lucky" {
		t.Errorf("expected matched id with catalog metadata kept, got %+v", got[0])
	}
	if got[1].ExternalID != "" {
		t.Errorf("expected unmatched track to keep empty id, got %q", got[1].ExternalID)
	}
	if got[2].ExternalID != "instrument1" || got[2].Image != models.ThumbnailURL("instrument1") {
		t.Errorf("expected missing image filled from match, got %+v", got[2])
	}
	if tracks[0].ExternalID != "" {
		t.Error("expected input tracks to be left untouched")
	}
}

type searchFunc func(ctx context.Context, q string, limit int) ([]models.RawResult, error)

func (f searchFunc) Search(ctx context.Context, q string, limit int) ([]models.RawResult, error) {
	return f(ctx, q, limit)
}

func (f searchFunc) Name() string { return "func" }

func TestExtractRecommendations(t *testing.T) {
	tests := []struct {
		name     string
		reply    string
		expected []models.Recommendation
	}{
		{
			name:     "bare array",
			reply:    `[{"song":"Blinding Lights","artist":"The Weeknd"}]`,
			expected: []models.Recommendation{{Song: "Blinding Lights", Artist: "The Weeknd"}},
		},
		{
			name:  "array wrapped in prose",
			reply: "Sure! Here you go:\n```json\n[{\"song\": \"Levitating\", \"artist\": \"Dua Lipa\"}, {\"song\": \"Heat Waves\", \"artist\": \"Glass Animals\"}]\n```\nEnjoy!",
			expected: []models.Recommendation{
				{Song: "Levitating", Artist: "Dua Lipa"},
				{Song: "Heat Waves", Artist: "Glass Animals"},
			},
		},
		{
			name:     "incomplete and malformed entries are skipped",
			reply:    `[{"song":"No Artist"}, "just text", {"song":"  ","artist":"Blank"}, {"song":3,"artist":"x"}, {"song":"Valid","artist":"Entry"}]`,
			expected: []models.Recommendation{{Song: "Valid", Artist: "Entry"}},
		},
		{name: "no array", reply: "I cannot help with that.", expected: nil},
		{name: "reversed brackets", reply: "] nope [", expected: nil},
		{name: "invalid json", reply: `[{"song": "A", "artist": }]`, expected: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractRecommendations(tt.reply)
			if len(got) != len(tt.expected) {
				t.Fatalf("expected %d recommendations, got %d (%v)", len(tt.expected), len(got), got)
			}
			for i := range got {
				if got[i] != tt.expected[i] {
					t.Errorf("expected %+v, got %+v", tt.expected[i], got[i])
				}
			}
		})
	}

	t.Run("capped at 25", func(t *testing.T) {
		var sb strings.Builder
		sb.WriteString("[")
		for i := range 30 {
			if i > 0 {
				sb.WriteString(",")
			}
			fmt.Fprintf(&sb, `{"song":"Song %d","artist":"Artist %d"}`, i, i)
		}
		sb.WriteString("]")

		got := ExtractRecommendations(sb.String())
		if len(got) != 25 {
			t.Fatalf("expected 25 recommendations, got %d", len(got))
		}
		if got[24].Song != "Song 24" {
			t.Errorf("expected the first 25 in order, got %s last", got[24].Song)
		}
	})
}

func TestRecommendationEngine(t *testing.T) {
	reply := `[{"song":"One More Time","artist":"Daft Punk"},{"song":"Made Up Song","artist":"Nobody Band"}]`
	provider := &th.MockSearchProvider{Results: map[string][]models.RawResult{
		"One More Time Daft Punk": raw("FGBhQbmPwH8", "Daft Punk - One More Time (Official Video)"),
	}}
	seed := models.Seed{Song: "Get Lucky", Artist: "Daft Punk"}

	t.Run("recommend mode", func(t *testing.T) {
		completer := &mockCompleter{reply: reply}
		engine := NewRecommendationEngine(completer, NewResolver(provider, 5, nil), "llama3.1", ModeRecommend, nil)

		tracks, err := engine.Fetch(context.Background(), seed)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(tracks) != 2 {
			t.Fatalf("expected 2 tracks, got %d", len(tracks))
		}

		found := tracks[0]
		if found.ID != "youtube_FGBhQbmPwH8" || found.ExternalID != "FGBhQbmPwH8" || found.Source != models.SourceYouTube {
			t.Errorf("expected resolved youtube track, got %+v", found)
		}
		if found.Name != "One More Time" || found.Artists[0] != "Daft Punk" {
			t.Errorf("expected suggestion metadata, got %s by %v", found.Name, found.Artists)
		}

		missing := tracks[1]
		if missing.ID != "ai_made_up_song_nobody_band" {
			t.Errorf("expected slug id, got %s", missing.ID)
		}
		if missing.ExternalID != "" || missing.Album != "AI Recommendation" || missing.DurationMS != 180000 || missing.Source != ModeRecommend {
			t.Errorf("expected placeholder track, got %+v", missing)
		}

		if len(completer.requests) != 1 || completer.requests[0].Model != "llama3.1" {
			t.Fatalf("expected one request to llama3.1, got %+v", completer.requests)
		}
		if !strings.Contains(completer.requests[0].Prompt, `"Get Lucky" by Daft Punk`) {
			t.Errorf("expected seeded prompt, got %q", completer.requests[0].Prompt)
		}
	})

	t.Run("shuffle mode", func(t *testing.T) {
		engine := NewRecommendationEngine(&mockCompleter{reply: reply}, NewResolver(provider, 8, nil), "llama3", ModeShuffle, nil)

		tracks, err := engine.Fetch(context.Background(), models.Seed{})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if tracks[0].ID != "ai_shuffle_FGBhQbmPwH8" {
			t.Errorf("expected shuffle id for resolved track, got %s", tracks[0].ID)
		}
		if tracks[1].ID != "ai_shuffle_1" || tracks[1].Source != ModeShuffle {
			t.Errorf("expected indexed placeholder, got %+v", tracks[1])
		}
	})

	t.Run("open prompt without seed", func(t *testing.T) {
		engine := NewRecommendationEngine(nil, nil, "m", ModeRecommend, nil)
		if p := engine.Prompt(models.Seed{Song: "only a song"}); strings.Contains(p, "only a song") {
			t.Errorf("expected open-ended prompt, got %q", p)
		}
	})

	t.Run("unknown mode defaults to recommend", func(t *testing.T) {
		if m := NewRecommendationEngine(nil, nil, "m", "bogus", nil).Mode(); m != ModeRecommend {
			t.Errorf("expected %s, got %s", ModeRecommend, m)
		}
	})

	t.Run("completion failure", func(t *testing.T) {
		engine := NewRecommendationEngine(&mockCompleter{err: shared.ErrUpstream}, NewResolver(provider, 5, nil), "m", ModeRecommend, nil)
		if _, err := engine.Fetch(context.Background(), seed); !errors.Is(err, shared.ErrUpstream) {
			t.Errorf("expected ErrUpstream, got %v", err)
		}
	})

	t.Run("no usable suggestions", func(t *testing.T) {
		engine := NewRecommendationEngine(&mockCompleter{reply: "no idea"}, NewResolver(provider, 5, nil), "m", ModeRecommend, nil)
		if _, err := engine.Fetch(context.Background(), seed); !errors.Is(err, shared.ErrNoRecommendations) {
			t.Errorf("expected ErrNoRecommendations, got %v", err)
		}
	})

	t.Run("falls back when wrapped", func(t *testing.T) {
		engine := NewRecommendationEngine(&mockCompleter{reply: "[]"}, NewResolver(provider, 5, nil), "m", ModeShuffle, nil)
		static := []models.Track{th.Track("G7KNmW9a75Y", "Flowers", "Miley Cyrus")}

		tracks, err := services.WithFallback(engine, static, nil).Fetch(context.Background(), seed)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(tracks) != 1 || tracks[0].Name != "Flowers" {
			t.Errorf("expected fallback tracks, got %+v", tracks)
		}
	})
}
