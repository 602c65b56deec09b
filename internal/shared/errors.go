package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Request errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrUnauthorized    = fmt.Errorf("unauthorized")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")

	// Playlist store errors
	ErrPlaylistNotFound = fmt.Errorf("playlist not found")
	ErrPlaylistExists   = fmt.Errorf("playlist already exists")
	ErrCorruptStore     = fmt.Errorf("playlist store is corrupt")

	// Upstream and service errors
	ErrUpstream           = fmt.Errorf("upstream request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrNoRecommendations  = fmt.Errorf("no recommendations")
	ErrCacheMiss          = fmt.Errorf("cache miss")
)
