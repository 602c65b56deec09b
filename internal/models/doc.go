// Package models defines the domain types shared by the hyde search, chat, and playlist components.
//
// The package contains three groups of types:
//
// 1. Wire types returned to clients and persisted in the playlist document
//   - [Track] : normalized search result, keyed by its external (YouTube) id
//   - [PlaylistRecord] : named, ordered track list with a derived cover image
//   - [PlaylistSummary] : listing view of a playlist
//
// 2. Provider types
//   - [RawResult] : unparsed search hit (external id, raw title, optional duration text)
//   - [Recommendation] : a song/artist pair suggested by a language model
//
// 3. Request context
//   - [Seed] : the track a recommendation or shuffle request starts from
//
// Track JSON field names (youtube_id, duration) are what the web player reads.
package models
