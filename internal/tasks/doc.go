// Package tasks runs the fan-out jobs behind recommendations, catalog search and playlist exports,
// reporting progress over optional channels.
//
// # Resolving
//
// [Resolver] looks up free-text queries on a [services.SearchProvider] with a fixed pool of workers
// (5-8, see [shared.ClampWorkers]). Each query is searched with limit 1 and parsed into a track.
// Results are reassembled in query order no matter which worker finishes first.
//
// [Resolver.AttachExternalIDs] uses the same pool to give catalog tracks (Spotify) a playable YouTube id.
//
// # Recommendations
//
// [RecommendationEngine] asks a language model for a JSON array of songs, extracts it with
// [ExtractRecommendations] and resolves every suggestion. Suggestions that cannot be found become
// placeholder tracks without an external id. The engine is a [services.Fetcher], so handlers wrap it with
// [services.WithFallback] to answer from the embedded catalog when the model is unavailable.
//
// # Exports
//
// [ExportPlaylists] writes playlists from the store to json, csv, markdown or txt with a worker pool and
// records an export_manifest.json summarizing each outcome.
//
// # Progress Reporting
//
// All operations accept a nil-able chan<- [ProgressUpdate]. Updates use select with default so a slow or
// absent reader never blocks the work.
package tasks
