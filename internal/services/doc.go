// Package services wraps the external systems hyde talks to.
//
// # Search Providers
//
// A [SearchProvider] turns a query into raw video results. [ScrapeProvider] reads the ytInitialData document embedded
// in the public results page; [DataAPIProvider] uses the YouTube Data API with an API key. Both are rate limited.
// [CachedSearch] decorates either one with the tiered cache and collapses identical concurrent searches.
//
// # Language Models
//
// [OllamaClient] implements [Completer] and [StreamCompleter] against the Ollama chat endpoint.
// Streaming responses are newline-delimited JSON objects, forwarded chunk by chunk.
//
// # Catalogs
//
// [SpotifyCatalog] searches Spotify with an application (client credentials) token. [Catalog] holds the embedded
// static track lists used for trending music and as the fallback when recommendations fail.
//
// # Fallbacks
//
// A [Fetcher] produces tracks for a [models.Seed]. [WithFallback] wraps one so that a failure, or an empty answer,
// yields a static list instead of an error.
//
// # Error Handling
//
// Failures talking to a remote system wrap [shared.ErrUpstream]. Missing credentials wrap
// [shared.ErrServiceUnavailable].
package services
