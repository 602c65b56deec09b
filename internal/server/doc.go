// Package server provides the HTTP API behind the hyde music player: routing, middleware and JSON handlers.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation registers [http.ServeMux] method patterns ("GET /playlists") and wraps the
// whole mux with its middleware, so preflights and unknown paths see the same stack as real routes.
//
// # Middleware
//
// [New] installs, outermost first:
//   - [Recover]: panics become 500 {"error":"internal server error"}
//   - [RequestID]: X-Request-ID is reused or generated and stored in the request context
//   - [Logging]: one structured line per request
//   - [CORS]: origins from [server] cors_origins; OPTIONS preflights answer 200
//   - [APIKey]: X-HYDE-API-KEY compared in constant time; "/", "/health" and preflights are exempt
//
// # Errors
//
// Handlers return sentinel errors from the shared package. Invalid input and existing playlists map to 400,
// a missing playlist to 404, unconfigured services to 503. Anything else is logged and answered with a
// generic 500 so upstream details never reach the client.
//
// # Chat Streaming
//
// POST /chat/stream answers with server-sent events. Model chunks are coalesced to at least three bytes,
// the last event is {"chunk":"","done":true,"full_response":...}, and an upstream failure ends the stream
// with a single error event.
package server
