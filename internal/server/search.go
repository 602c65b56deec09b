package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/desertthunder/hyde/internal/models"
	"github.com/desertthunder/hyde/internal/parser"
	"github.com/desertthunder/hyde/internal/services"
	"github.com/desertthunder/hyde/internal/shared"
)

const maxSearchLimit = 50

type tracksResponse struct {
	Tracks []models.Track `json:"tracks"`
}

type relatedRequest struct {
	TrackName  string `json:"track_name"`
	ArtistName string `json:"artist_name"`
	Limit      int    `json:"limit"`
}

type relatedResponse struct {
	Tracks         []models.Track `json:"tracks"`
	HasMore        bool           `json:"has_more"`
	TotalAvailable int            `json:"total_available"`
}

type shuffleRequest struct {
	CurrentTrack struct {
		Name    string   `json:"name"`
		Artists []string `json:"artists"`
	} `json:"current_track"`
}

type shuffleResponse struct {
	Tracks []models.Track `json:"tracks"`
	Total  int            `json:"total"`
}

type recommendationRequest struct {
	SongName   string `json:"song_name"`
	ArtistName string `json:"artist_name"`
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "Hyde Music API running"})
}

// searchTracks runs query through the search provider and ranks the raw results into tracks.
func (s *Server) searchTracks(r *http.Request, query string, limit int) ([]models.Track, error) {
	if s.deps.Search == nil {
		return nil, fmt.Errorf("%w: no search provider configured", shared.ErrServiceUnavailable)
	}
	raw, err := s.deps.Search.Search(r.Context(), query, limit)
	if err != nil {
		return nil, err
	}
	tracks := parser.BuildTracks(raw, query, limit)
	if tracks == nil {
		tracks = []models.Track{}
	}
	return tracks, nil
}

func (s *Server) handleSearchMusic(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Query string `json:"query"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	query := strings.TrimSpace(body.Query)
	if query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	tracks, err := s.searchTracks(r, query, s.cfg.Search.DefaultLimit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tracksResponse{Tracks: tracks})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}
	limit, err := queryLimit(r, s.cfg.Search.DefaultLimit, maxSearchLimit)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	tracks, err := s.searchTracks(r, query, limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tracks)
}

func (s *Server) handleTrending(w http.ResponseWriter, r *http.Request) {
	tracks := s.deps.Trending
	if tracks == nil {
		tracks = []models.Track{}
	}
	writeJSON(w, http.StatusOK, tracksResponse{Tracks: tracks})
}

// handleSuggestions never fails: a missing query, provider or upstream error all answer [].
func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	suggestions := []string{}
	if query != "" && s.deps.Suggest != nil {
		got, err := s.deps.Suggest.Suggest(r.Context(), query)
		if err != nil {
			s.logger.Warn("suggestions failed", "query", query, "error", err)
		} else if got != nil {
			suggestions = got
		}
	}
	writeJSON(w, http.StatusOK, suggestions)
}

func (s *Server) handleRelated(w http.ResponseWriter, r *http.Request) {
	var body relatedRequest
	if err := decodeJSON(w, r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	name := strings.TrimSpace(body.TrackName)
	if name == "" {
		writeError(w, http.StatusBadRequest, "track_name is required")
		return
	}
	limit := body.Limit
	if limit <= 0 {
		limit = s.cfg.Search.DefaultLimit
	}
	limit = min(limit, maxSearchLimit)

	query := strings.TrimSpace(name + " " + strings.TrimSpace(body.ArtistName))
	tracks, err := s.searchTracks(r, query, limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, relatedResponse{
		Tracks:         tracks,
		HasMore:        len(tracks) >= limit,
		TotalAvailable: len(tracks),
	})
}

func (s *Server) handleShuffle(w http.ResponseWriter, r *http.Request) {
	var body shuffleRequest
	if err := decodeJSON(w, r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	seed := models.Seed{Song: strings.TrimSpace(body.CurrentTrack.Name)}
	if len(body.CurrentTrack.Artists) > 0 {
		seed.Artist = strings.TrimSpace(body.CurrentTrack.Artists[0])
	}

	tracks, err := s.fetch(r, s.deps.Shuffle, seed)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, shuffleResponse{Tracks: tracks, Total: len(tracks)})
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	var body recommendationRequest
	if err := decodeJSON(w, r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	seed := models.Seed{Song: strings.TrimSpace(body.SongName), Artist: strings.TrimSpace(body.ArtistName)}

	tracks, err := s.fetch(r, s.deps.Recommend, seed)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tracksResponse{Tracks: tracks})
}

func (s *Server) fetch(r *http.Request, f services.Fetcher, seed models.Seed) ([]models.Track, error) {
	if f == nil {
		return nil, fmt.Errorf("%w: recommendations are not configured", shared.ErrServiceUnavailable)
	}
	tracks, err := f.Fetch(r.Context(), seed)
	if err != nil {
		return nil, err
	}
	if tracks == nil {
		tracks = []models.Track{}
	}
	return tracks, nil
}

// handleCatalogSearch searches the external catalog and attaches a playable YouTube id to each result.
func (s *Server) handleCatalogSearch(w http.ResponseWriter, r *http.Request) {
	if s.deps.Catalog == nil {
		s.fail(w, r, fmt.Errorf("%w: catalog credentials are not configured", shared.ErrServiceUnavailable))
		return
	}
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}
	limit, err := queryLimit(r, s.cfg.Search.DefaultLimit, maxSearchLimit)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	tracks, err := s.deps.Catalog.SearchTracks(r.Context(), query, limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if s.deps.Resolver != nil {
		tracks = s.deps.Resolver.AttachExternalIDs(r.Context(), tracks, nil)
	}
	if tracks == nil {
		tracks = []models.Track{}
	}
	writeJSON(w, http.StatusOK, tracks)
}
