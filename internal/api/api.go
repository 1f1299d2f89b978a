package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/monthlify/internal/models"
	"github.com/desertthunder/monthlify/internal/server"
	"github.com/desertthunder/monthlify/internal/services"
	"github.com/desertthunder/monthlify/internal/shared"
	"github.com/desertthunder/monthlify/internal/tasks"
	"golang.org/x/oauth2"
)

const (
	// StateCookie carries the OAuth state between login and callback.
	StateCookie = "monthlify_oauth_state"
	// DefaultCookieName is the session cookie name when none is configured.
	DefaultCookieName = "spotify_access_token"

	stateTTL     = 10 * time.Minute
	maxBodyBytes = 4 << 20
)

// SessionStore persists backend sessions. [repositories.SessionRepository] implements it.
type SessionStore interface {
	Create(session *models.Session) error
	Active(id string, now time.Time) (*models.Session, error)
	Update(session *models.Session) error
	Delete(id string) error
}

// Connector starts authorization flows and opens a user's library with a token.
type Connector interface {
	GetAuthURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	Connect(ctx context.Context, token *oauth2.Token, onRefresh func(*oauth2.Token)) services.Library
}

// SpotifyConnector adapts a configured [services.SpotifyService] to [Connector].
type SpotifyConnector struct {
	*services.SpotifyService
}

// Connect returns a copy of the service bound to token.
func (c SpotifyConnector) Connect(ctx context.Context, token *oauth2.Token, onRefresh func(*oauth2.Token)) services.Library {
	lib := c.WithToken(ctx, token)
	lib.SetTokenRefreshCallback(onRefresh)
	return lib
}

// Options holds the session cookie policy.
type Options struct {
	CookieName   string
	CookieSecure bool
	SessionTTL   time.Duration
	FrontendURL  string // browsers hitting the callback directly are sent to FrontendURL + "/dashboard"
}

// Handler serves the backend API.
type Handler struct {
	connector Connector
	sessions  SessionStore
	engine    tasks.Engine
	covers    tasks.CoverRenderer
	logger    *log.Logger
	opts      Options
	now       func() time.Time
}

// New creates the backend handler.
func New(connector Connector, sessions SessionStore, engine tasks.Engine, covers tasks.CoverRenderer, logger *log.Logger, opts Options) *Handler {
	if opts.CookieName == "" {
		opts.CookieName = DefaultCookieName
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 30 * 24 * time.Hour
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	opts.FrontendURL = strings.TrimRight(opts.FrontendURL, "/")

	return &Handler{
		connector: connector,
		sessions:  sessions,
		engine:    engine,
		covers:    covers,
		logger:    logger,
		opts:      opts,
		now:       time.Now,
	}
}

// Mount registers every route on r.
func (h *Handler) Mount(r server.Router) {
	r.Handle(http.MethodGet, "/{$}", http.HandlerFunc(h.index))
	r.Handle(http.MethodGet, "/api/auth/login", http.HandlerFunc(h.login))
	r.Handle(http.MethodGet, "/api/auth/callback", http.HandlerFunc(h.callback))
	r.Handle(http.MethodPost, "/api/auth/logout", http.HandlerFunc(h.logout))
	r.Handle(http.MethodGet, "/api/spotify/playlists", h.authenticated(h.playlists))
	r.Handle(http.MethodGet, "/api/spotify/user", h.authenticated(h.user))
	r.Handle(http.MethodPost, "/api/preview", h.authenticated(h.preview))
	r.Handle(http.MethodPost, "/api/create-monthly-playlists", h.authenticated(h.createMonthlyPlaylists))
	r.Handle(http.MethodGet, "/api/cover/{token}", http.HandlerFunc(h.cover))
}

// NewRouter returns a router with the request logger, recovery middleware and every route mounted.
func (h *Handler) NewRouter() *server.BasicRouter {
	r := server.NewBasicRouter()
	r.Use(server.RequestLogger(h.logger), server.Recoverer(h.logger))
	h.Mount(r)
	return r
}

func (h *Handler) index(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, services.MessageResponse{Message: "Monthlify API"})
}

// authedFunc is a handler that runs with the caller's session and library.
type authedFunc func(w http.ResponseWriter, r *http.Request, backend *tasks.LibraryBackend)

// authenticated resolves the session cookie and binds a library to the session's token.
func (h *Handler) authenticated(next authedFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, err := h.session(r)
		if err != nil {
			if !errors.Is(err, shared.ErrSessionNotFound) && !errors.Is(err, shared.ErrNotAuthenticated) {
				h.logger.Error("failed to load session", "error", err)
			}
			writeError(w, http.StatusUnauthorized, "not authenticated")
			return
		}

		lib := h.connector.Connect(r.Context(), session.Token(), h.persistRefresh(session))
		next(w, r, tasks.NewLibraryBackend(h.engine, lib))
	})
}

func (h *Handler) session(r *http.Request) (*models.Session, error) {
	c, err := r.Cookie(h.opts.CookieName)
	if err != nil || c.Value == "" {
		return nil, shared.ErrNotAuthenticated
	}
	return h.sessions.Active(c.Value, h.now())
}

// persistRefresh writes refreshed tokens back to session.
func (h *Handler) persistRefresh(session *models.Session) func(*oauth2.Token) {
	var mu sync.Mutex
	return func(token *oauth2.Token) {
		mu.Lock()
		defer mu.Unlock()

		session.SetToken(token)
		if err := h.sessions.Update(session); err != nil {
			h.logger.Warn("failed to persist refreshed token", "session", session.ID(), "error", err)
			return
		}
		h.logger.Debug("refreshed token", "session", session.ID())
	}
}

// fail maps an error from the library or engine to a response.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, shared.ErrTokenExpired), errors.Is(err, shared.ErrNotAuthenticated):
		writeError(w, http.StatusUnauthorized, "not authenticated")
	case errors.Is(err, shared.ErrInvalidURL):
		writeError(w, http.StatusBadRequest, "Invalid Spotify playlist URL.")
	case errors.Is(err, shared.ErrInvalidSource), errors.Is(err, shared.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, shared.ErrPlaylistNotFound):
		writeError(w, http.StatusNotFound, "Playlist not found.")
	case errors.Is(err, context.Canceled):
		h.logger.Debug("request canceled", "path", r.URL.Path)
	default:
		h.logger.Error("upstream request failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusBadGateway, err.Error())
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, services.ErrorResponse{Error: message})
}
