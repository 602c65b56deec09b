package services

import (
	"context"
	"fmt"

	"github.com/desertthunder/hyde/internal/models"
	"github.com/desertthunder/hyde/internal/shared"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2/clientcredentials"
)

// SourceSpotify tags tracks returned by [SpotifyCatalog].
const SourceSpotify = "spotify"

// maxSpotifyLimit is the largest page the search endpoint accepts.
const maxSpotifyLimit = 50

// SpotifyOptions overrides the Spotify endpoints.
type SpotifyOptions struct {
	TokenURL string
	// APIURL must end with a slash.
	APIURL string
}

// SpotifyCatalog searches the Spotify catalog using an application token.
//
// Tracks carry Spotify metadata only; resolving them to playable YouTube ids is left to the caller.
type SpotifyCatalog struct {
	client *spotify.Client
}

// NewSpotifyCatalog returns [shared.ErrServiceUnavailable] when the client credentials are missing.
func NewSpotifyCatalog(ctx context.Context, creds shared.SpotifyConfig, opts SpotifyOptions) (*SpotifyCatalog, error) {
	if !creds.Configured() {
		return nil, fmt.Errorf("%w: spotify client credentials are not configured", shared.ErrServiceUnavailable)
	}
	if opts.TokenURL == "" {
		opts.TokenURL = spotifyauth.TokenURL
	}

	cc := &clientcredentials.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		TokenURL:     opts.TokenURL,
	}

	var clientOpts []spotify.ClientOption
	if opts.APIURL != "" {
		clientOpts = append(clientOpts, spotify.WithBaseURL(opts.APIURL))
	}

	return &SpotifyCatalog{client: spotify.New(cc.Client(ctx), clientOpts...)}, nil
}

// SearchTracks returns up to limit tracks matching query.
func (s *SpotifyCatalog) SearchTracks(ctx context.Context, query string, limit int) ([]models.Track, error) {
	if limit <= 0 || limit > maxSpotifyLimit {
		limit = maxSpotifyLimit
	}

	results, err := s.client.Search(ctx, query, spotify.SearchTypeTrack, spotify.Limit(limit))
	if err != nil {
		return nil, fmt.Errorf("%w: spotify search: %v", shared.ErrUpstream, err)
	}

	tracks := []models.Track{}
	if results.Tracks == nil {
		return tracks, nil
	}
	for _, item := range results.Tracks.Tracks {
		tracks = append(tracks, spotifyTrack(item))
	}
	return tracks, nil
}

func spotifyTrack(item spotify.FullTrack) models.Track {
	artists := make([]string, 0, len(item.Artists))
	for _, artist := range item.Artists {
		artists = append(artists, artist.Name)
	}
	if len(artists) == 0 {
		artists = append(artists, models.UnknownArtist)
	}

	image := ""
	if len(item.Album.Images) > 0 {
		image = item.Album.Images[0].URL
	}

	return models.Track{
		ID:         "spotify_" + string(item.ID),
		Name:       item.Name,
		Artists:    artists,
		Album:      item.Album.Name,
		Image:      image,
		DurationMS: int(item.Duration),
		Source:     SourceSpotify,
	}
}
