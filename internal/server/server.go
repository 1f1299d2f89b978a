package server

import "net/http"

// Middleware decorates a handler: request logging, panic recovery, the session guard.
type Middleware func(http.Handler) http.Handler

// Handler is an [http.Handler] that owns a fixed set of route patterns, like the CLI's OAuth callback.
type Handler interface {
	http.Handler
	Routes() []string
}

// Router is what the backend and the frontend mount their routes on.
type Router interface {
	http.Handler
	Use(middleware ...Middleware)
	Handle(method, path string, handler http.Handler)
	Handler(handler Handler)
	Patterns() []string
}
