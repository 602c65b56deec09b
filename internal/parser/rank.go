package parser

import (
	"fmt"
	"sort"
	"strings"

	"github.com/desertthunder/hyde/internal/models"
)

const (
	untitledArtist = "YouTube"
	untitledAlbum  = "Search Results"
)

// Ranked is a parsed track with its relevance score.
type Ranked struct {
	models.Track
	Score int `json:"relevance_score"`
}

// Rank parses raw results into scored tracks.
//
// Results are deduplicated by external id (first occurrence wins), truncated to limit when it is positive, then
// stable-sorted by score, highest first. Results without an id are dropped.
func Rank(results []models.RawResult, query string, limit int) []Ranked {
	seen := make(map[string]struct{}, len(results))
	ranked := make([]Ranked, 0, len(results))

	for _, r := range results {
		if limit > 0 && len(ranked) >= limit {
			break
		}
		if r.ExternalID == "" {
			continue
		}
		if _, dup := seen[r.ExternalID]; dup {
			continue
		}
		seen[r.ExternalID] = struct{}{}
		ranked = append(ranked, build(r, query, len(ranked)+1))
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}

// BuildTracks is [Rank] without the scores.
func BuildTracks(results []models.RawResult, query string, limit int) []models.Track {
	ranked := Rank(results, query, limit)
	tracks := make([]models.Track, len(ranked))
	for i, r := range ranked {
		tracks[i] = r.Track
	}
	return tracks
}

func build(r models.RawResult, query string, position int) Ranked {
	track := models.Track{
		ID:         models.YouTubeTrackID(r.ExternalID),
		Album:      models.DefaultAlbum,
		Image:      models.ThumbnailURL(r.ExternalID),
		ExternalID: r.ExternalID,
		DurationMS: DurationMS(r.DurationText),
		Source:     models.SourceYouTube,
	}

	if strings.TrimSpace(r.RawTitle) == "" {
		track.Name = fmt.Sprintf("Search Result %d", position)
		track.Artists = []string{untitledArtist}
		track.Album = untitledAlbum
		return Ranked{Track: track, Score: Score(track.Name, untitledArtist, query)}
	}

	song, artist := Parse(r.RawTitle, query)
	track.Name = song
	track.Artists = []string{artist}
	return Ranked{Track: track, Score: Score(song, artist, query)}
}
