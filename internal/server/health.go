package server

import (
	"context"
	"net/http"
	"time"

	"github.com/desertthunder/hyde/internal/cache"
)

const pingTimeout = 3 * time.Second

type healthResponse struct {
	Status    string         `json:"status"`
	Model     string         `json:"model"`
	Ollama    string         `json:"ollama"`
	Cache     cache.Counters `json:"cache"`
	Playlists int            `json:"playlists"`
	Sessions  int            `json:"sessions"`
}

// healthHandler reports model reachability and store counters. It is exempt from API key checks.
type healthHandler struct {
	s *Server
}

// Routes implements [Handler].
func (h *healthHandler) Routes() []string {
	return []string{"GET /health"}
}

// ServeHTTP answers 500 when the model server cannot be reached.
func (h *healthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s := h.s
	resp := healthResponse{
		Status:   "healthy",
		Model:    s.cfg.Ollama.ChatModel,
		Ollama:   "disabled",
		Sessions: s.deps.Sessions.Len(),
	}
	if s.deps.Cache != nil {
		resp.Cache = s.deps.Cache()
	}
	if s.deps.Store != nil {
		resp.Playlists = s.deps.Store.Len()
	}

	status := http.StatusOK
	if s.deps.Health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
		defer cancel()

		if err := s.deps.Health.Ping(ctx); err != nil {
			s.logger.Warn("ollama unreachable", "error", err)
			resp.Status = "unhealthy"
			resp.Ollama = "disconnected"
			status = http.StatusInternalServerError
		} else {
			resp.Ollama = "connected"
		}
	}
	writeJSON(w, status, resp)
}
