// package server contains the router, middleware & JSON handlers for the hyde music API
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/hyde/internal/cache"
	"github.com/desertthunder/hyde/internal/models"
	"github.com/desertthunder/hyde/internal/services"
	"github.com/desertthunder/hyde/internal/sessions"
	"github.com/desertthunder/hyde/internal/shared"
	"github.com/desertthunder/hyde/internal/tasks"
)

const shutdownTimeout = 10 * time.Second

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
// Common middleware includes logging, authentication, CORS, panic recovery, etc.
type Middleware func(http.Handler) http.Handler

// Handler defines the interface for HTTP request handlers that know their own routes.
type Handler interface {
	http.Handler      // ServeHTTP handles the HTTP request and writes the response
	Routes() []string // Routes returns the method-qualified patterns this handler serves ("GET /health")
}

// Router defines the interface for HTTP routing and middleware management.
type Router interface {
	Use(middleware ...Middleware)                             // Use adds middleware to the router's middleware stack
	Handle(method, path string, handler http.Handler)         // Handle registers a handler for the specified method and path
	HandleFunc(method, path string, handler http.HandlerFunc) // HandleFunc registers a handler function
	Handler(handler Handler)                                  // Handler registers a custom Handler implementation
	ServeHTTP(w http.ResponseWriter, r *http.Request)         // ServeHTTP implements http.Handler for the entire router
}

// PlaylistStore is the playlist persistence the handlers use. [repositories.PlaylistStore] satisfies it.
type PlaylistStore interface {
	Create(name string) (*models.PlaylistRecord, error)
	List() []models.PlaylistSummary
	Get(name string) (*models.PlaylistRecord, error)
	AddTrack(name string, track models.Track) (*models.PlaylistRecord, bool, error)
	RemoveTrack(name, externalID string) (bool, error)
	Delete(name string) error
	Len() int
}

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators the API is assembled from.
//
// Suggest and Catalog are optional: without them suggestions are always empty and catalog search
// answers 503. Cache may be nil when the search cache is disabled.
type Deps struct {
	Config    *shared.Config
	Logger    *log.Logger
	Store     PlaylistStore
	Search    services.SearchProvider
	Chat      services.StreamCompleter
	Health    Pinger
	Sessions  *sessions.ChatLog
	Suggest   services.Suggester
	Catalog   services.TrackCatalog
	Resolver  *tasks.Resolver
	Recommend services.Fetcher
	Shuffle   services.Fetcher
	Trending  []models.Track
	Cache     func() cache.Counters
}

// Server serves the hyde API.
type Server struct {
	deps   Deps
	cfg    *shared.Config
	logger *log.Logger
	router *BasicRouter
}

// New builds the router, middleware stack and routes from deps.
func New(deps Deps) *Server {
	if deps.Config == nil {
		deps.Config = shared.DefaultConfig()
	}
	if deps.Logger == nil {
		deps.Logger = shared.NewLogger(nil)
	}
	if deps.Sessions == nil {
		deps.Sessions = sessions.New(sessions.Options{})
	}

	s := &Server{
		deps:   deps,
		cfg:    deps.Config,
		logger: shared.WithLogger(deps.Logger, "component", "server"),
		router: NewBasicRouter(),
	}

	if s.cfg.Server.APIKey == "" {
		s.logger.Warn("api key is empty; requests are not authenticated")
	}

	s.router.Use(
		Recover(s.logger),
		RequestID(),
		Logging(s.logger),
		CORS(s.cfg.Server.CORSOrigins),
		APIKey(s.cfg.Server.APIKey),
	)
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router

	r.HandleFunc(http.MethodGet, "/{$}", s.handleRoot)
	r.Handler(&healthHandler{s: s})

	r.HandleFunc(http.MethodPost, "/search_music", s.handleSearchMusic)
	r.HandleFunc(http.MethodGet, "/search", s.handleSearch)
	r.HandleFunc(http.MethodGet, "/trending_music", s.handleTrending)
	r.HandleFunc(http.MethodGet, "/suggestions", s.handleSuggestions)
	r.HandleFunc(http.MethodPost, "/get_related_songs", s.handleRelated)
	r.HandleFunc(http.MethodPost, "/get_shuffle_songs", s.handleShuffle)
	r.HandleFunc(http.MethodPost, "/get_ai_recommendations", s.handleRecommendations)
	r.HandleFunc(http.MethodGet, "/catalog/search", s.handleCatalogSearch)

	r.HandleFunc(http.MethodPost, "/chat", s.handleChat)
	r.HandleFunc(http.MethodPost, "/chat/stream", s.handleChatStream)
	r.HandleFunc(http.MethodDelete, "/chat/{session}", s.handleClearSession)

	r.HandleFunc(http.MethodPost, "/playlist/create", s.handleCreatePlaylist)
	r.HandleFunc(http.MethodGet, "/playlists", s.handleListPlaylists)
	r.HandleFunc(http.MethodGet, "/playlist/{name}", s.handleGetPlaylist)
	r.HandleFunc(http.MethodPost, "/playlist/add", s.handleAddTrack)
	r.HandleFunc(http.MethodPost, "/playlist/remove", s.handleRemoveTrack)
	r.HandleFunc(http.MethodDelete, "/playlist/{name}", s.handleDeletePlaylist)

	r.Fallback(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	}))
}

// ServeHTTP implements [http.Handler].
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on the configured address until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s,
		ReadTimeout:  time.Duration(s.cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(s.cfg.Server.WriteTimeoutSeconds) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
