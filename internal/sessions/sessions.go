// Package sessions keeps the per-session chat transcripts used as model context.
//
// Transcripts live in memory only. A [ChatLog] bounds them three ways: a maximum number of sessions (least recently
// used evicted first), a maximum size per transcript (oldest exchanges dropped), and an idle expiry.
package sessions

import (
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	DefaultSession     = "default"
	DefaultMaxSessions = 1000
	DefaultMaxBytes    = 16 * 1024
	DefaultIdleTTL     = time.Hour

	exchangePrefix = "User: "
)

// Options bounds a [ChatLog]. Zero values select the defaults.
type Options struct {
	MaxSessions int
	MaxBytes    int
	IdleTTL     time.Duration
	Now         func() time.Time
}

type transcript struct {
	text    string
	touched time.Time
}

// ChatLog maps session ids to transcripts of the form "User: q\nBot: a\n...".
type ChatLog struct {
	mu       sync.Mutex
	entries  *lru.Cache[string, *transcript]
	maxBytes int
	idleTTL  time.Duration
	now      func() time.Time
}

func New(opts Options) *ChatLog {
	if opts.MaxSessions <= 0 {
		opts.MaxSessions = DefaultMaxSessions
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = DefaultMaxBytes
	}
	if opts.IdleTTL <= 0 {
		opts.IdleTTL = DefaultIdleTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	entries, err := lru.New[string, *transcript](opts.MaxSessions)
	if err != nil {
		panic(fmt.Sprintf("sessions: %v", err))
	}
	return &ChatLog{entries: entries, maxBytes: opts.MaxBytes, idleTTL: opts.IdleTTL, now: opts.Now}
}

// Key normalizes a client supplied session id; blank means [DefaultSession].
func Key(id string) string {
	if id = strings.TrimSpace(id); id == "" {
		return DefaultSession
	}
	return id
}

// Context returns the transcript for id, or "" for an unknown or expired session.
func (c *ChatLog) Context(id string) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sweep()
	t, ok := c.entries.Get(Key(id))
	if !ok {
		return ""
	}
	return t.text
}

// Append records one exchange and trims the transcript to the size cap.
func (c *ChatLog) Append(id, question, answer string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sweep()
	key := Key(id)
	t, ok := c.entries.Get(key)
	if !ok {
		t = &transcript{}
	}
	t.text = trim(t.text+exchangePrefix+question+"\nBot: "+answer+"\n", c.maxBytes)
	t.touched = c.now()
	c.entries.Add(key, t)
}

// Clear forgets a session and reports whether it existed.
func (c *ChatLog) Clear(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Remove(Key(id))
}

// Len returns the number of live sessions.
func (c *ChatLog) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sweep()
	return c.entries.Len()
}

// sweep drops sessions idle for longer than the TTL. Callers hold mu.
func (c *ChatLog) sweep() {
	cutoff := c.now().Add(-c.idleTTL)
	for _, key := range c.entries.Keys() {
		if t, ok := c.entries.Peek(key); ok && t.touched.Before(cutoff) {
			c.entries.Remove(key)
		}
	}
}

// trim drops whole exchanges from the front until text fits in maxBytes.
// A single exchange larger than the cap keeps its tail.
func trim(text string, maxBytes int) string {
	for len(text) > maxBytes {
		next := strings.Index(text, "\n"+exchangePrefix)
		if next < 0 {
			cut := len(text) - maxBytes
			for cut < len(text) && !utf8.RuneStart(text[cut]) {
				cut++
			}
			return text[cut:]
		}
		text = text[next+1:]
	}
	return text
}
