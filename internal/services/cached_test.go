package services

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/hyde/internal/cache"
	"github.com/desertthunder/hyde/internal/models"
	"github.com/desertthunder/hyde/internal/shared"
)

type countingProvider struct {
	calls   atomic.Int32
	results []models.RawResult
	err     error
	gate    chan struct{}
}

func (p *countingProvider) Name() string { return "fake" }

func (p *countingProvider) Search(ctx context.Context, query string, limit int) ([]models.RawResult, error) {
	p.calls.Add(1)
	if p.gate != nil {
		<-p.gate
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return p.results, p.err
}

func newTestCachedSearch(p SearchProvider) *CachedSearch {
	return NewCachedSearch(p, cache.NewMemoryStore(100), time.Minute, shared.NewLogger(io.Discard))
}

func TestCachedSearch(t *testing.T) {
	results := []models.RawResult{{ExternalID: "aaaaaaaaaaa", RawTitle: "Artist - Song"}}

	t.Run("second search is served from cache", func(t *testing.T) {
		p := &countingProvider{results: results}
		c := newTestCachedSearch(p)

		for range 3 {
			got, err := c.Search(context.Background(), "Artist Song", 5)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(got) != 1 || got[0].ExternalID != "aaaaaaaaaaa" {
				t.Errorf("expected cached result, got %+v", got)
			}
		}
		if n := p.calls.Load(); n != 1 {
			t.Errorf("expected 1 provider call, got %d", n)
		}
	})

	t.Run("query case and spacing share a key", func(t *testing.T) {
		p := &countingProvider{results: results}
		c := newTestCachedSearch(p)

		c.Search(context.Background(), "Artist Song", 5)
		c.Search(context.Background(), "  artist song ", 5)
		if n := p.calls.Load(); n != 1 {
			t.Errorf("expected 1 provider call, got %d", n)
		}
	})

	t.Run("limit is part of the key", func(t *testing.T) {
		p := &countingProvider{results: results}
		c := newTestCachedSearch(p)

		c.Search(context.Background(), "q", 5)
		c.Search(context.Background(), "q", 1)
		if n := p.calls.Load(); n != 2 {
			t.Errorf("expected 2 provider calls, got %d", n)
		}
	})

	t.Run("empty results are not cached", func(t *testing.T) {
		p := &countingProvider{}
		c := newTestCachedSearch(p)

		c.Search(context.Background(), "q", 5)
		c.Search(context.Background(), "q", 5)
		if n := p.calls.Load(); n != 2 {
			t.Errorf("expected 2 provider calls, got %d", n)
		}
	})

	t.Run("errors are returned and not cached", func(t *testing.T) {
		p := &countingProvider{err: shared.ErrUpstream}
		c := newTestCachedSearch(p)

		if _, err := c.Search(context.Background(), "q", 5); !errors.Is(err, shared.ErrUpstream) {
			t.Errorf("expected ErrUpstream, got %v", err)
		}
		c.Search(context.Background(), "q", 5)
		if n := p.calls.Load(); n != 2 {
			t.Errorf("expected 2 provider calls, got %d", n)
		}
	})

	t.Run("concurrent identical searches share one call", func(t *testing.T) {
		p := &countingProvider{results: results, gate: make(chan struct{})}
		c := newTestCachedSearch(p)

		var wg sync.WaitGroup
		for range 10 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if got, err := c.Search(context.Background(), "same", 5); err != nil || len(got) != 1 {
					t.Errorf("expected one result, got %+v (%v)", got, err)
				}
			}()
		}

		// Wait for the first caller to reach the provider before releasing it.
		for p.calls.Load() == 0 {
			time.Sleep(time.Millisecond)
		}
		time.Sleep(20 * time.Millisecond)
		close(p.gate)
		wg.Wait()

		if n := p.calls.Load(); n != 1 {
			t.Errorf("expected 1 provider call, got %d", n)
		}
	})

	t.Run("cancelled caller does not fail a shared search", func(t *testing.T) {
		p := &countingProvider{results: results, gate: make(chan struct{})}
		c := newTestCachedSearch(p)

		ctx, cancel := context.WithCancel(context.Background())
		first := make(chan error, 1)
		go func() {
			_, err := c.Search(ctx, "same", 5)
			first <- err
		}()
		for p.calls.Load() == 0 {
			time.Sleep(time.Millisecond)
		}

		type outcome struct {
			got []models.RawResult
			err error
		}
		second := make(chan outcome, 1)
		go func() {
			got, err := c.Search(context.Background(), "same", 5)
			second <- outcome{got, err}
		}()
		time.Sleep(20 * time.Millisecond)

		cancel()
		select {
		case err := <-first:
			if !errors.Is(err, context.Canceled) {
				t.Errorf("expected context.Canceled for the cancelled caller, got %v", err)
			}
		case <-time.After(time.Second):
			t.Fatal("expected cancelled caller to return before the search finished")
		}

		close(p.gate)
		res := <-second
		if res.err != nil {
			t.Fatalf("expected no error for the waiting caller, got %v", res.err)
		}
		if len(res.got) != 1 {
			t.Errorf("expected one result, got %+v", res.got)
		}
		if n := p.calls.Load(); n != 1 {
			t.Errorf("expected 1 provider call, got %d", n)
		}
		if got, err := c.Search(context.Background(), "same", 5); err != nil || len(got) != 1 {
			t.Errorf("expected shared result to be cached, got %+v (%v)", got, err)
		}
		if n := p.calls.Load(); n != 1 {
			t.Errorf("expected cached lookup, got %d provider calls", n)
		}
	})

	t.Run("returned slices are independent", func(t *testing.T) {
		p := &countingProvider{results: results}
		c := newTestCachedSearch(p)

		first, _ := c.Search(context.Background(), "q", 5)
		first[0].RawTitle = "changed"
		second, _ := c.Search(context.Background(), "q", 5)
		if second[0].RawTitle != "Artist - Song" {
			t.Errorf("expected cached title unchanged, got %q", second[0].RawTitle)
		}
	})

	t.Run("name passes through", func(t *testing.T) {
		if got := newTestCachedSearch(&countingProvider{}).Name(); got != "fake" {
			t.Errorf("expected name 'fake', got %q", got)
		}
	})
}
