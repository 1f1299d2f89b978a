// Package web implements the Monthlify frontend: server-rendered pages that call the backend API.
//
// # Pages
//
//	GET  /                           login page
//	POST /login                      ask the backend for the authorization URL and redirect to it
//	GET  /callback                   submit the authorization code to the backend, relay its session cookie
//	POST /logout                     end the backend session
//	GET  /dashboard                  playlist listing (?q= filters)
//	GET  /dashboard/preview          preview flow for ?identifier=&type=
//	POST /dashboard/preview/confirm  materialize the previewed partitions
//	GET  /dashboard/success          result view
//	POST /dashboard/success/clear    clear the result and return to the listing
//	GET  /static/...                 embedded assets
//
// Every page is a full navigation driven by one backend response. The [server.SessionGuard] keeps
// anonymous visitors on the login page and signed-in users off it, based only on the presence of the
// session cookie; the backend decides whether the session is valid. A 401 from the backend expires the
// cookie before redirecting to login so the guard cannot bounce the user back.
//
// # State
//
// Nothing is kept between requests except the materialization result, which the confirm step writes to a
// [flow.ResultStore] under a key derived from the session cookie and the result view reads and clears.
// The previewed partitions travel inside the confirm form as a hidden base64 JSON payload, so the confirm step
// submits exactly what was previewed and a failed confirm re-renders the same preview.
// A second confirm for the same session while one is outstanding gets a 409.
package web

import (
	"bytes"
	"embed"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/monthlify/internal/flow"
	"github.com/desertthunder/monthlify/internal/models"
	"github.com/desertthunder/monthlify/internal/server"
	"github.com/desertthunder/monthlify/internal/services"
)

// FlashCookie carries a one-time message to the next page.
const FlashCookie = "monthlify_flash"

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

var funcs = template.FuncMap{
	"plural": plural,
	"previewQuery": func(id string) template.URL {
		return template.URL(models.SourceIdentifier{Value: id, Kind: models.KindID}.Query())
	},
}

func plural(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	return strconv.Itoa(n) + " " + word + "s"
}

// Options configures the frontend.
type Options struct {
	CookieName   string // backend session cookie
	CookieSecure bool
}

// Server renders the frontend pages.
type Server struct {
	backend  *services.BackendClient
	store    flow.ResultStore
	inflight *flow.InFlight
	logger   *log.Logger
	opts     Options
	pages    map[string]*template.Template
}

// New creates the frontend for the backend reached through backend.
func New(backend *services.BackendClient, store flow.ResultStore, logger *log.Logger, opts Options) *Server {
	if opts.CookieName == "" {
		opts.CookieName = "spotify_access_token"
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	if store == nil {
		store = flow.NewMemoryResultStore(time.Hour)
	}

	pages := map[string]*template.Template{}
	for _, name := range []string{"login", "dashboard", "preview", "success", "error"} {
		pages[name] = template.Must(template.New(name).Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html"))
	}

	return &Server{
		backend:  backend,
		store:    store,
		inflight: flow.NewInFlight(),
		logger:   logger,
		opts:     opts,
		pages:    pages,
	}
}

// Mount registers every page on r.
func (s *Server) Mount(r server.Router) {
	static, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}

	r.Handle(http.MethodGet, "/static/", http.StripPrefix("/static/", http.FileServerFS(static)))
	r.Handle(http.MethodGet, "/{$}", http.HandlerFunc(s.loginPage))
	r.Handle(http.MethodPost, "/login", http.HandlerFunc(s.login))
	r.Handle(http.MethodGet, "/callback", http.HandlerFunc(s.callback))
	r.Handle(http.MethodPost, "/logout", http.HandlerFunc(s.logout))
	r.Handle(http.MethodGet, "/dashboard", http.HandlerFunc(s.dashboard))
	r.Handle(http.MethodGet, "/dashboard/preview", http.HandlerFunc(s.preview))
	r.Handle(http.MethodPost, "/dashboard/preview/confirm", http.HandlerFunc(s.confirm))
	r.Handle(http.MethodGet, "/dashboard/success", http.HandlerFunc(s.success))
	r.Handle(http.MethodPost, "/dashboard/success/clear", http.HandlerFunc(s.clear))
}

// NewRouter returns a router with logging, recovery, the session guard and every page mounted.
func (s *Server) NewRouter() *server.BasicRouter {
	r := server.NewBasicRouter()
	r.Use(
		server.RequestLogger(s.logger),
		server.Recoverer(s.logger),
		server.SessionGuard(server.DefaultGuardPolicy(), s.opts.CookieName),
	)
	s.Mount(r)
	return r
}

// page holds the fields the layout renders.
type page struct {
	Title string
	User  string
	Flash string
}

// failureView is a failure with the links a page offers for it.
type failureView struct {
	Message string
	Retry   string
	Back    string
	Confirm bool
}

func newFailureView(f *flow.Failure, retry string) *failureView {
	if f == nil {
		return nil
	}
	v := &failureView{Message: f.Message}
	switch f.Recovery {
	case flow.RecoverBack:
		v.Back = flow.ListingPath
	case flow.RecoverReload:
		v.Retry = retry
		v.Back = flow.ListingPath
	case flow.RecoverConfirm:
		v.Confirm = true
	}
	return v
}

// render executes a page into a buffer so template errors become a 500.
func (s *Server) render(w http.ResponseWriter, status int, name string, data any) {
	var buf bytes.Buffer
	if err := s.pages[name].ExecuteTemplate(&buf, "layout", data); err != nil {
		s.logger.Error("failed to render page", "page", name, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

type errorPage struct {
	page
	Failure *failureView
}

func (s *Server) renderFailure(w http.ResponseWriter, status int, f *flow.Failure, retry string) {
	s.render(w, status, "error", errorPage{page: page{Title: "Error"}, Failure: newFailureView(f, retry)})
}

// client returns a backend client carrying the browser's cookies.
func (s *Server) client(r *http.Request) *services.BackendClient {
	return s.backend.WithCookies(r.Cookies()...)
}

// sessionKey is the result store key of the request's session.
func (s *Server) sessionKey(r *http.Request) string {
	c, err := r.Cookie(s.opts.CookieName)
	if err != nil {
		return ""
	}
	return flow.SessionKey(c.Value)
}

// relay copies backend cookies onto the browser response.
func relay(w http.ResponseWriter, cookies []*http.Cookie) {
	for _, c := range cookies {
		c.Domain = ""
		http.SetCookie(w, c)
	}
}

func (s *Server) expireSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{Name: s.opts.CookieName, Value: "", Path: "/", MaxAge: -1, HttpOnly: true, Secure: s.opts.CookieSecure, SameSite: http.SameSiteLaxMode})
}

// reauthenticate drops the session cookie and sends the browser to login.
func (s *Server) reauthenticate(w http.ResponseWriter, r *http.Request) {
	s.expireSession(w)
	s.setFlash(w, "Your session has expired. Please log in again.")
	http.Redirect(w, r, flow.LoginPath, http.StatusSeeOther)
}

func (s *Server) setFlash(w http.ResponseWriter, message string) {
	http.SetCookie(w, &http.Cookie{
		Name:     FlashCookie,
		Value:    url.QueryEscape(message),
		Path:     "/",
		MaxAge:   60,
		HttpOnly: true,
		Secure:   s.opts.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// takeFlash reads and clears the flash message.
func (s *Server) takeFlash(w http.ResponseWriter, r *http.Request) string {
	c, err := r.Cookie(FlashCookie)
	if err != nil || c.Value == "" {
		return ""
	}
	http.SetCookie(w, &http.Cookie{Name: FlashCookie, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})

	message, err := url.QueryUnescape(c.Value)
	if err != nil {
		return ""
	}
	return message
}
