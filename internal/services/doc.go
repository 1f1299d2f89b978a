// Package services implements the HTTP clients Monthlify depends on.
//
// # Spotify
//
// [SpotifyService] wraps the Spotify Web API. It uses OAuth2 for authentication with automatic token refresh;
// [SpotifyService.WithToken] binds a copy of a configured service to one user's token, so the backend can serve
// many sessions from a single service. Every call waits on a shared [rate.Limiter].
//
// [SpotifyService] implements [Library], the interface the playlist engine depends on.
//
// # Backend client
//
// [BackendClient] is the typed client of the backend API used by the web frontend. It forwards the browser's
// cookies and returns the cookies the backend sets so they can be relayed.
//
// # Error Handling
//
// Spotify calls return typed errors from the shared package:
//   - [shared.ErrNotAuthenticated] : no token bound
//   - [shared.ErrTokenExpired] : 401 from Spotify or refresh failed, reauthorization needed
//   - [shared.ErrPlaylistNotFound] : 404 from Spotify
//   - [shared.ErrAPIRequest] : any other failed request
//
// Backend calls fail with one of three classes, see [Classify]:
//   - Unauthorized : 401, wraps [shared.ErrUnauthorized]
//   - [ApplicationError] : non-2xx with an {"error": "..."} body
//   - [TransportError] : network failure, undecodable body or non-2xx without an error body
package services
