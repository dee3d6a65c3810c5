// Package services defines the [Service] interface for music streaming providers and implements it for Spotify.
//
// # Service Interface
//
// Tool endpoints operate on a provider abstraction so dispatch logic stays independent of Spotify's wire format.
//
// # Spotify Implementation
//
// [SpotifyService] uses OAuth2 for authentication with automatic token refresh.
//
// The [oauth2.Client] refreshes expired tokens using the refresh token; refreshed tokens are reported through
// the callback set with [SpotifyService.SetTokenRefreshCallback] so they can be written back to the store.
//
// Requests are rate limited client-side with [rate.Limiter] to stay under the API's burst limits.
//
// # Per-User Binding
//
// A [SpotifyService] is bound to one user's token. [NewUserFactory] builds a [Factory]
// that loads the user's token from the store, binds a fresh service to it, and persists
// refreshed tokens back.
//
// # Error Handling
//
// Services use typed errors from the shared package:
//   - [shared.ErrNotAuthenticated] : no token on record for the user
//   - [shared.ErrTokenExpired] : the API rejected the token (401)
//   - [shared.ErrNoActiveDevice] : playback was requested with no active device
//   - [shared.ErrNotFound] : the requested resource does not exist
//   - [shared.ErrAPIRequest] : any other upstream failure
package services
