// Package api implements the Monthlify backend: the JSON endpoints the frontend calls.
//
// # Sessions
//
// The auth endpoints run the Spotify authorization code flow. A successful callback stores a
// [models.Session] through a [SessionStore] and sets a session cookie holding its id. Authenticated endpoints
// resolve the cookie back to the session and open the user's library with its token; refreshed tokens are
// written back to the session.
//
// # Playlists
//
// Listing, preview and materialization are delegated to a [tasks.LibraryBackend] built per request, so the
// handlers only decode bodies, map errors to status codes and encode responses. Every error body has the shape
// {"error": "..."}.
//
// # Routes
//
//	GET  /api/auth/login
//	GET  /api/auth/callback
//	POST /api/auth/logout
//	GET  /api/spotify/playlists
//	GET  /api/spotify/user
//	POST /api/preview
//	POST /api/create-monthly-playlists
//	GET  /api/cover/{token}
package api
