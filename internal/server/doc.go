// Package server provides HTTP routing, middleware, the session guard and the CLI OAuth callback shared by
// the Monthlify backend API and frontend.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] method patterns, so "GET /api/spotify/user" and
// "POST /api/preview" register independently and other methods get a 405.
//
// # Session Guard
//
// [GuardPolicy.Decide] maps a path and the presence of a session credential to a [Decision]:
//   - public paths such as the OAuth callback and static assets are always allowed
//   - the login page redirects to the dashboard when a credential is present
//   - everything else redirects to the login page when no credential is present
//
// [SessionGuard] applies the policy as middleware. It checks presence only; the backend validates the session.
//
// # OAuth Callback Handler
//
// OAuthHandler implements the loopback callback of the CLI authorization code flow. It validates the state
// parameter, exchanges the code through an [Exchanger], and sends the result through a channel. It only processes
// one callback.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
