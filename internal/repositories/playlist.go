package repositories

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/hyde/internal/models"
	"github.com/desertthunder/hyde/internal/shared"
)

// StoreOptions configures [OpenPlaylistStore].
type StoreOptions struct {
	// Strict makes an unparseable file an error instead of quarantining it.
	Strict bool
	Logger *log.Logger
	Now    func() time.Time
}

// PlaylistStore maps playlist names to records and persists the whole map to a JSON file.
//
// All operations take the same lock, so a read-modify-persist sequence never interleaves with another.
// The file is written before a mutation returns.
type PlaylistStore struct {
	mu        sync.Mutex
	path      string
	logger    *log.Logger
	now       func() time.Time
	playlists map[string]*models.PlaylistRecord
}

// OpenPlaylistStore loads the playlist document at path. A missing or empty file is an empty store.
func OpenPlaylistStore(path string, opts StoreOptions) (*PlaylistStore, error) {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &PlaylistStore{
		path:      path,
		logger:    shared.WithLogger(opts.Logger, "component", "playlist-store"),
		now:       opts.Now,
		playlists: make(map[string]*models.PlaylistRecord),
	}

	if err := s.load(opts.Strict); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PlaylistStore) load(strict bool) error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read playlist store: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	var doc map[string]*models.PlaylistRecord
	if err := json.Unmarshal(data, &doc); err != nil {
		if strict {
			return fmt.Errorf("%w: %s: %v", shared.ErrCorruptStore, s.path, err)
		}
		return s.quarantine(err)
	}

	for name, p := range doc {
		if p == nil {
			continue
		}
		if p.Name == "" {
			p.Name = name
		}
		if p.Tracks == nil {
			p.Tracks = []models.Track{}
		}
		s.playlists[name] = p
	}
	s.logger.Debug("loaded playlists", "path", s.path, "count", len(s.playlists))
	return nil
}

// quarantine moves an unreadable document aside so the store can start empty without overwriting it.
func (s *PlaylistStore) quarantine(cause error) error {
	target := fmt.Sprintf("%s.corrupt-%d", s.path, s.now().Unix())
	if _, err := os.Stat(target); err == nil {
		target = fmt.Sprintf("%s.corrupt-%s", s.path, shared.GenerateID())
	}
	if err := os.Rename(s.path, target); err != nil {
		return fmt.Errorf("%w: failed to quarantine %s: %v", shared.ErrCorruptStore, s.path, err)
	}
	s.logger.Error("playlist store is corrupt, starting empty", "path", s.path, "moved_to", target, "error", cause)
	return nil
}

// Path returns the location of the playlist document.
func (s *PlaylistStore) Path() string { return s.path }

// Len returns the number of playlists.
func (s *PlaylistStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.playlists)
}

// Create adds an empty playlist with the placeholder cover.
func (s *PlaylistStore) Create(name string) (*models.PlaylistRecord, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: playlist name is required", shared.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.playlists[name]; ok {
		return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistExists, name)
	}

	cover := models.DefaultCover
	p := &models.PlaylistRecord{
		Name:      name,
		Tracks:    []models.Track{},
		CreatedAt: float64(s.now().UnixMicro()) / 1e6,
		Cover:     &cover,
	}

	err := s.commit(func(next map[string]*models.PlaylistRecord) {
		next[name] = p
	})
	if err != nil {
		return nil, err
	}
	return clone(p), nil
}

// List summarizes every playlist, oldest first.
func (s *PlaylistStore) List() []models.PlaylistSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	summaries := make([]models.PlaylistSummary, 0, len(s.playlists))
	for _, p := range s.playlists {
		summaries = append(summaries, models.PlaylistSummary{
			Name:       p.Name,
			TrackCount: len(p.Tracks),
			CreatedAt:  p.CreatedAt,
			Cover:      effectiveCover(p),
		})
	}
	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].CreatedAt != summaries[j].CreatedAt {
			return summaries[i].CreatedAt < summaries[j].CreatedAt
		}
		return summaries[i].Name < summaries[j].Name
	})
	return summaries
}

// Get returns a playlist, backfilling and persisting its cover when tracks exist but no cover is stored.
func (s *PlaylistStore) Get(name string) (*models.PlaylistRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.playlists[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, name)
	}

	if p.Cover == nil && len(p.Tracks) > 0 {
		cover := p.Tracks[0].Image
		err := s.commit(func(next map[string]*models.PlaylistRecord) {
			next[name].Cover = &cover
		})
		if err != nil {
			return nil, err
		}
		p = s.playlists[name]
	}
	return clone(p), nil
}

// AddTrack appends track unless a track with the same external id is present.
//
// added is false for a duplicate, which is not an error. The first track added becomes the cover.
// Blank artists are dropped, falling back to [models.UnknownArtist], and a negative duration is stored as 0.
func (s *PlaylistStore) AddTrack(name string, track models.Track) (p *models.PlaylistRecord, added bool, err error) {
	if track.ExternalID == "" {
		return nil, false, fmt.Errorf("%w: track youtube_id is required", shared.ErrInvalidInput)
	}
	track = normalizeTrack(track)

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.playlists[name]
	if !ok {
		return nil, false, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, name)
	}
	if current.HasTrack(track.ExternalID) {
		return clone(current), false, nil
	}

	err = s.commit(func(next map[string]*models.PlaylistRecord) {
		rec := next[name]
		rec.Tracks = append(rec.Tracks, track)
		if len(rec.Tracks) == 1 {
			cover := track.Image
			rec.Cover = &cover
		}
	})
	if err != nil {
		return nil, false, err
	}
	return clone(s.playlists[name]), true, nil
}

func normalizeTrack(t models.Track) models.Track {
	artists := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		if a = strings.TrimSpace(a); a != "" {
			artists = append(artists, a)
		}
	}
	if len(artists) == 0 {
		artists = append(artists, models.UnknownArtist)
	}
	t.Artists = artists
	if t.DurationMS < 0 {
		t.DurationMS = 0
	}
	return t
}

// RemoveTrack removes every track with the given external id and reports whether any were removed.
//
// The cover follows the new first track, or is cleared when the playlist becomes empty.
func (s *PlaylistStore) RemoveTrack(name, externalID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.playlists[name]
	if !ok {
		return false, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, name)
	}
	if !current.HasTrack(externalID) {
		return false, nil
	}

	err := s.commit(func(next map[string]*models.PlaylistRecord) {
		rec := next[name]
		kept := make([]models.Track, 0, len(rec.Tracks))
		for _, t := range rec.Tracks {
			if t.ExternalID != externalID {
				kept = append(kept, t)
			}
		}
		rec.Tracks = kept
		rec.Cover = nil
		if len(kept) > 0 {
			cover := kept[0].Image
			rec.Cover = &cover
		}
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// Delete removes a playlist.
func (s *PlaylistStore) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.playlists[name]; !ok {
		return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, name)
	}
	return s.commit(func(next map[string]*models.PlaylistRecord) {
		delete(next, name)
	})
}

// commit applies fn to a copy of the playlists, persists the copy, and only then makes it current.
// The caller must hold s.mu.
func (s *PlaylistStore) commit(fn func(next map[string]*models.PlaylistRecord)) error {
	next := make(map[string]*models.PlaylistRecord, len(s.playlists)+1)
	for name, p := range s.playlists {
		next[name] = clone(p)
	}
	fn(next)

	if err := s.persist(next); err != nil {
		s.logger.Error("failed to persist playlists", "path", s.path, "error", err)
		return err
	}
	s.playlists = next
	return nil
}

func (s *PlaylistStore) persist(doc map[string]*models.PlaylistRecord) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode playlists: %w", err)
	}
	return writeFileAtomic(s.path, buf.Bytes(), 0644)
}

// effectiveCover is the stored cover, else the first track's image, else nil.
func effectiveCover(p *models.PlaylistRecord) *string {
	if p.Cover != nil {
		cover := *p.Cover
		return &cover
	}
	if len(p.Tracks) > 0 {
		cover := p.Tracks[0].Image
		return &cover
	}
	return nil
}

func clone(p *models.PlaylistRecord) *models.PlaylistRecord {
	c := *p
	c.Tracks = make([]models.Track, len(p.Tracks))
	for i, t := range p.Tracks {
		t.Artists = append(make([]string, 0, len(t.Artists)), t.Artists...)
		c.Tracks[i] = t
	}
	if p.Cover != nil {
		cover := *p.Cover
		c.Cover = &cover
	}
	return &c
}
