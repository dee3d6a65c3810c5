// Package server provides HTTP routing, middleware, and the handlers for the
// voice assistant integration service.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # Handlers
//
// Each endpoint group implements the [Handler] interface, which wraps the stdlib handler
// interface and adds routes, allowing handlers to register multiple routes and
// encapsulate route definitions within the implementation:
//
//   - [AuthHandler] : OAuth2 account linking (/auth/spotify, /auth/spotify/callback, /disconnect)
//   - [ToolsHandler] : chat tool dispatch (POST /tools/{name})
//   - [ManifestHandler] : tool manifest (/.well-known/omi-tools.json)
//   - [SettingsHandler] : settings page, setup status, default playlist, health
//
// # OAuth Flow
//
// /auth/spotify stores a random one-shot state keyed to the user, then redirects to
// the provider's consent page. The callback consumes the state (replayed or forged
// callbacks are rejected), exchanges the code, and persists the token pair.
//
// # Tool Dispatch
//
// Tool calls always answer 200 with a {result, error} envelope; the assistant
// relays whichever field is set to the user. HTTP error statuses are reserved
// for transport problems (unknown tool, unreadable body).
package server
