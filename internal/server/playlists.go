package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/desertthunder/hyde/internal/models"
	"github.com/desertthunder/hyde/internal/shared"
)

type playlistResponse struct {
	Success  bool                   `json:"success"`
	Playlist *models.PlaylistRecord `json:"playlist"`
}

type playlistDetail struct {
	Name   string         `json:"name"`
	Tracks []models.Track `json:"tracks"`
	Total  int            `json:"total"`
	Cover  *string        `json:"cover"`
}

type addTrackRequest struct {
	PlaylistName string        `json:"playlist_name"`
	Track        *models.Track `json:"track"`
}

type removeTrackRequest struct {
	PlaylistName string `json:"playlist_name"`
	YouTubeID    string `json:"youtube_id"`
}

type removeTrackResponse struct {
	Success bool   `json:"success"`
	Removed bool   `json:"removed"`
	Message string `json:"message,omitempty"`
}

type messageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// store guards handlers against a server assembled without playlist storage.
func (s *Server) store(w http.ResponseWriter, r *http.Request) (PlaylistStore, bool) {
	if s.deps.Store == nil {
		s.fail(w, r, fmt.Errorf("%w: playlist store is not configured", shared.ErrServiceUnavailable))
		return nil, false
	}
	return s.deps.Store, true
}

func (s *Server) handleCreatePlaylist(w http.ResponseWriter, r *http.Request) {
	store, ok := s.store(w, r)
	if !ok {
		return
	}
	var body struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	if strings.TrimSpace(body.Name) == "" {
		writeError(w, http.StatusBadRequest, "playlist name is required")
		return
	}

	p, err := store.Create(body.Name)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, playlistResponse{Success: true, Playlist: p})
}

func (s *Server) handleListPlaylists(w http.ResponseWriter, r *http.Request) {
	store, ok := s.store(w, r)
	if !ok {
		return
	}
	list := store.List()
	if list == nil {
		list = []models.PlaylistSummary{}
	}
	writeJSON(w, http.StatusOK, map[string][]models.PlaylistSummary{"playlists": list})
}

func (s *Server) handleGetPlaylist(w http.ResponseWriter, r *http.Request) {
	store, ok := s.store(w, r)
	if !ok {
		return
	}
	p, err := store.Get(r.PathValue("name"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	tracks := p.Tracks
	if tracks == nil {
		tracks = []models.Track{}
	}
	writeJSON(w, http.StatusOK, playlistDetail{Name: p.Name, Tracks: tracks, Total: len(tracks), Cover: p.Cover})
}

func (s *Server) handleAddTrack(w http.ResponseWriter, r *http.Request) {
	store, ok := s.store(w, r)
	if !ok {
		return
	}
	var body addTrackRequest
	if err := decodeJSON(w, r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	if strings.TrimSpace(body.PlaylistName) == "" || body.Track == nil {
		writeError(w, http.StatusBadRequest, "playlist_name and track are required")
		return
	}

	p, added, err := store.AddTrack(body.PlaylistName, *body.Track)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if !added {
		s.logger.Debug("track already in playlist", "playlist", p.Name, "youtube_id", body.Track.ExternalID)
	}
	writeJSON(w, http.StatusOK, playlistResponse{Success: true, Playlist: p})
}

func (s *Server) handleRemoveTrack(w http.ResponseWriter, r *http.Request) {
	store, ok := s.store(w, r)
	if !ok {
		return
	}
	var body removeTrackRequest
	if err := decodeJSON(w, r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	if strings.TrimSpace(body.PlaylistName) == "" || strings.TrimSpace(body.YouTubeID) == "" {
		writeError(w, http.StatusBadRequest, "playlist_name and youtube_id are required")
		return
	}

	removed, err := store.RemoveTrack(body.PlaylistName, body.YouTubeID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	resp := removeTrackResponse{Success: true, Removed: removed}
	if !removed {
		resp.Message = "Track not in playlist"
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDeletePlaylist(w http.ResponseWriter, r *http.Request) {
	store, ok := s.store(w, r)
	if !ok {
		return
	}
	if err := store.Delete(r.PathValue("name")); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Success: true, Message: "Playlist deleted"})
}
