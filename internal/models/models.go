package models

import "fmt"

const (
	// UnknownArtist is used when no artist could be derived from a title.
	UnknownArtist = "Unknown Artist"
	// DefaultAlbum labels search results that carry no album metadata.
	DefaultAlbum = "YouTube Music"
	// SourceYouTube tags tracks resolved from a YouTube search.
	SourceYouTube = "youtube"
	// DefaultCover is assigned to freshly created playlists.
	DefaultCover = "https://img.youtube.com/vi/dQw4w9WgXcQ/hqdefault.jpg"
)

// Track is a search result normalized for clients and persisted inside playlists.
type Track struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Artists    []string `json:"artists"`
	Album      string   `json:"album"`
	Image      string   `json:"image"`
	ExternalID string   `json:"youtube_id"`
	DurationMS int      `json:"duration"`
	Source     string   `json:"source"`
}

// PrimaryArtist returns the first artist, or [UnknownArtist] when none is set.
func (t Track) PrimaryArtist() string {
	if len(t.Artists) == 0 || t.Artists[0] == "" {
		return UnknownArtist
	}
	return t.Artists[0]
}

// PlaylistRecord is a named, ordered collection of tracks.
//
// Cover is nil when absent, which keeps it out of the persisted document.
type PlaylistRecord struct {
	Name      string  `json:"name"`
	Tracks    []Track `json:"tracks"`
	CreatedAt float64 `json:"created_at"`
	Cover     *string `json:"cover,omitempty"`
}

// HasTrack reports whether a track with the given external id is present.
func (p *PlaylistRecord) HasTrack(externalID string) bool {
	for _, t := range p.Tracks {
		if t.ExternalID == externalID {
			return true
		}
	}
	return false
}

// PlaylistSummary is the listing view of a [PlaylistRecord].
type PlaylistSummary struct {
	Name       string  `json:"name"`
	TrackCount int     `json:"track_count"`
	CreatedAt  float64 `json:"created_at"`
	Cover      *string `json:"cover"`
}

// RawResult is what a search provider returns before title parsing.
type RawResult struct {
	ExternalID   string `json:"external_id"`
	RawTitle     string `json:"raw_title"`
	DurationText string `json:"duration_text,omitempty"`
}

// Recommendation is a song suggested by a language model.
type Recommendation struct {
	Song   string `json:"song"`
	Artist string `json:"artist"`
}

// Query returns the search text used to resolve the recommendation.
func (r Recommendation) Query() string {
	return fmt.Sprintf("%s %s", r.Song, r.Artist)
}

// Seed is the track a recommendation or shuffle request starts from. Both fields may be empty.
type Seed struct {
	Song   string
	Artist string
}

// Empty reports whether the seed is missing the song or the artist.
func (s Seed) Empty() bool {
	return s.Song == "" || s.Artist == ""
}

// ThumbnailURL returns the high quality thumbnail for a YouTube video id.
func ThumbnailURL(videoID string) string {
	return fmt.Sprintf("https://img.youtube.com/vi/%s/hqdefault.jpg", videoID)
}

// YouTubeTrackID returns the stable track id for a YouTube video id.
func YouTubeTrackID(videoID string) string {
	return "youtube_" + videoID
}
