package services

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/desertthunder/hyde/internal/models"
)

//go:embed catalog.json
var catalogJSON []byte

// maxFallbackTracks caps the static recommendation list.
const maxFallbackTracks = 25

// Catalog holds the static track lists shipped with the binary.
type Catalog struct {
	Categories      map[string][]models.Track `json:"categories"`
	Shuffle         []models.Track            `json:"shuffle"`
	Recommendations []models.Track            `json:"recommendations"`
}

// LoadCatalog decodes the embedded catalog.
func LoadCatalog() (*Catalog, error) {
	var c Catalog
	if err := json.Unmarshal(catalogJSON, &c); err != nil {
		return nil, fmt.Errorf("failed to parse embedded catalog: %w", err)
	}
	return &c, nil
}

// Trending returns a copy of the trending list.
func (c *Catalog) Trending() []models.Track {
	return copyTracks(c.Categories["trending"])
}

// ShuffleTracks returns a copy of the shuffle fallback list.
func (c *Catalog) ShuffleTracks() []models.Track {
	return copyTracks(c.Shuffle)
}

// FallbackRecommendations returns the recommendation list followed by every category, unique by id, capped at 25.
func (c *Catalog) FallbackRecommendations() []models.Track {
	names := make([]string, 0, len(c.Categories))
	for name := range c.Categories {
		names = append(names, name)
	}
	sort.Strings(names)

	all := copyTracks(c.Recommendations)
	for _, name := range names {
		all = append(all, c.Categories[name]...)
	}

	seen := make(map[string]bool, len(all))
	out := make([]models.Track, 0, maxFallbackTracks)
	for _, t := range all {
		if seen[t.ID] || len(out) >= maxFallbackTracks {
			continue
		}
		seen[t.ID] = true
		out = append(out, copyTrack(t))
	}
	return out
}

func copyTracks(tracks []models.Track) []models.Track {
	out := make([]models.Track, len(tracks))
	for i, t := range tracks {
		out[i] = copyTrack(t)
	}
	return out
}

func copyTrack(t models.Track) models.Track {
	t.Artists = append([]string(nil), t.Artists...)
	return t
}
