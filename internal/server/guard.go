package server

import (
	"net/http"
	"strings"
)

// RouteClass groups paths by how the session guard treats them.
type RouteClass int

const (
	// RouteProtected requires a session credential.
	RouteProtected RouteClass = iota
	// RouteLogin is only shown to visitors without a credential.
	RouteLogin
	// RoutePublic is always served.
	RoutePublic
)

func (c RouteClass) String() string {
	switch c {
	case RouteLogin:
		return "login"
	case RoutePublic:
		return "public"
	default:
		return "protected"
	}
}

// Decision is the outcome of the session guard for one navigation.
type Decision struct {
	Allow      bool
	RedirectTo string
}

// GuardPolicy classifies paths for the session guard.
//
// Paths are matched exactly against LoginRoutes and by prefix against PublicPrefixes; everything else is protected.
type GuardPolicy struct {
	LoginPath      string
	HomePath       string
	LoginRoutes    []string
	PublicPrefixes []string
}

// DefaultGuardPolicy is the frontend's policy: "/" is the login page and "/dashboard" the home page.
func DefaultGuardPolicy() GuardPolicy {
	return GuardPolicy{
		LoginPath:      "/",
		HomePath:       "/dashboard",
		LoginRoutes:    []string{"/", "/login"},
		PublicPrefixes: []string{"/callback", "/api/", "/static/", "/favicon.ico"},
	}
}

// Classify returns the class of path.
func (p GuardPolicy) Classify(path string) RouteClass {
	for _, prefix := range p.PublicPrefixes {
		if path == strings.TrimSuffix(prefix, "/") || strings.HasPrefix(path, prefix) {
			return RoutePublic
		}
	}
	for _, route := range p.LoginRoutes {
		if path == route {
			return RouteLogin
		}
	}
	return RouteProtected
}

// Decide is the guard itself: a pure function of the path and whether a credential is present.
func (p GuardPolicy) Decide(path string, hasCredential bool) Decision {
	switch p.Classify(path) {
	case RoutePublic:
		return Decision{Allow: true}
	case RouteLogin:
		if hasCredential {
			return Decision{RedirectTo: p.HomePath}
		}
		return Decision{Allow: true}
	default:
		if hasCredential {
			return Decision{Allow: true}
		}
		return Decision{RedirectTo: p.LoginPath}
	}
}

// SessionGuard applies policy to every request, treating a non-empty cookieName cookie as the credential.
func SessionGuard(policy GuardPolicy, cookieName string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := policy.Decide(r.URL.Path, HasCredential(r, cookieName))
			if !d.Allow {
				http.Redirect(w, r, d.RedirectTo, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// HasCredential reports whether r carries a non-empty cookie named name.
func HasCredential(r *http.Request, name string) bool {
	c, err := r.Cookie(name)
	return err == nil && c.Value != ""
}
