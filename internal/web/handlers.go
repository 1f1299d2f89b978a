package web

import (
	"errors"
	"net/http"

	"github.com/desertthunder/monthlify/internal/flow"
	"github.com/desertthunder/monthlify/internal/models"
	"github.com/desertthunder/monthlify/internal/services"
	"golang.org/x/sync/errgroup"
)

type loginPage struct {
	page
}

func (s *Server) loginPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, "login", loginPage{page: page{Title: "Log in", Flash: s.takeFlash(w, r)}})
}

// login asks the backend for the authorization URL and sends the browser there.
func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	authURL, cookies, err := s.backend.LoginURL(r.Context())
	if err != nil {
		s.logger.Error("login initiation failed", "error", err)
		s.setFlash(w, "Could not start login: "+flow.Describe(err, flow.PhaseListing).Message)
		http.Redirect(w, r, flow.LoginPath, http.StatusSeeOther)
		return
	}

	relay(w, cookies)
	http.Redirect(w, r, authURL, http.StatusSeeOther)
}

// callback submits the authorization code to the backend and relays the session cookie.
func (s *Server) callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if e := q.Get("error"); e != "" {
		s.setFlash(w, "Spotify authorization failed: "+e)
		http.Redirect(w, r, flow.LoginPath, http.StatusSeeOther)
		return
	}

	code := q.Get("code")
	if code == "" {
		s.setFlash(w, "Spotify authorization failed: missing authorization code")
		http.Redirect(w, r, flow.LoginPath, http.StatusSeeOther)
		return
	}

	cookies, err := s.client(r).Callback(r.Context(), code, q.Get("state"))
	if err != nil {
		s.logger.Error("callback exchange failed", "error", err)
		s.setFlash(w, "Login failed: "+flow.Describe(err, flow.PhaseListing).Message)
		http.Redirect(w, r, flow.LoginPath, http.StatusSeeOther)
		return
	}

	relay(w, cookies)
	http.Redirect(w, r, flow.ListingPath, http.StatusSeeOther)
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	cookies, err := s.client(r).Logout(r.Context())
	if err != nil {
		s.logger.Warn("backend logout failed", "error", err)
	}
	if key := s.sessionKey(r); key != "" {
		if err := s.store.Clear(r.Context(), key); err != nil {
			s.logger.Warn("failed to clear results", "error", err)
		}
	}

	relay(w, cookies)
	s.expireSession(w)
	http.Redirect(w, r, flow.LoginPath, http.StatusSeeOther)
}

type dashboardPage struct {
	page
	Query     string
	Playlists []models.SourcePlaylist
}

// dashboard fetches the profile and the playlists concurrently and renders the filtered grid.
func (s *Server) dashboard(w http.ResponseWriter, r *http.Request) {
	client := s.client(r)

	var (
		user      *models.UserProfile
		playlists []models.SourcePlaylist
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		user, err = client.User(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		playlists, err = client.Playlists(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		s.fail(w, r, err, flow.PhaseListing)
		return
	}

	query := r.URL.Query().Get("q")
	s.render(w, http.StatusOK, "dashboard", dashboardPage{
		page:      page{Title: "Playlists", User: user.Name(), Flash: s.takeFlash(w, r)},
		Query:     query,
		Playlists: FilterPlaylists(playlists, query),
	})
}

type previewPage struct {
	page
	Source     models.SourceIdentifier
	Partitions []models.PartitionPreview
	Empty      bool
	Failure    *failureView
	Payload    string
	coverURL   func(string) string
}

// CoverURL is the cover image of a partition.
func (p previewPage) CoverURL(id string) string {
	return p.coverURL(id)
}

// preview runs the preview flow for the identifier in the query.
func (s *Server) preview(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := flow.New(s.client(r), s.store, s.sessionKey(r))

	step, err := f.Load(r.Context(), q.Get("identifier"), q.Get("type"))
	if err != nil {
		s.fail(w, r, err, flow.PhasePreview)
		return
	}
	if s.follow(w, r, step) {
		return
	}

	s.renderPreview(w, r, f.Snapshot())
}

// confirm materializes the partitions carried by the form.
func (s *Server) confirm(w http.ResponseWriter, r *http.Request) {
	src, partitions, err := DecodePreview(r.PostFormValue("payload"))
	if err != nil {
		s.logger.Warn("rejected confirm payload", "error", err)
		s.setFlash(w, "That preview could not be read. Please preview the playlist again.")
		http.Redirect(w, r, flow.ListingPath, http.StatusSeeOther)
		return
	}

	key := s.sessionKey(r)
	f := flow.New(s.client(r), s.store, key)
	if step, _ := f.Resume(src, partitions); s.follow(w, r, step) {
		return
	}

	if !s.inflight.Acquire(key) {
		snap := f.Snapshot()
		snap.Failure = &flow.Failure{
			Message:  "Your playlists are already being created.",
			Recovery: flow.RecoverConfirm,
			Phase:    flow.PhaseMaterialize,
			Status:   http.StatusConflict,
		}
		s.renderPreview(w, r, snap)
		return
	}
	defer s.inflight.Release(key)

	step, err := f.Confirm(r.Context())
	if err != nil {
		http.Redirect(w, r, flow.ListingPath, http.StatusSeeOther)
		return
	}
	if s.follow(w, r, step) {
		return
	}

	s.renderPreview(w, r, f.Snapshot())
}

// follow performs the navigation a step asks for and reports whether it did.
func (s *Server) follow(w http.ResponseWriter, r *http.Request, step flow.Step) bool {
	switch step.Redirect {
	case "":
		return false
	case flow.LoginPath:
		s.reauthenticate(w, r)
	default:
		http.Redirect(w, r, step.Redirect, http.StatusSeeOther)
	}
	return true
}

func (s *Server) renderPreview(w http.ResponseWriter, r *http.Request, snap flow.Snapshot) {
	data := previewPage{
		page:       page{Title: "Preview"},
		Source:     snap.Source,
		Partitions: snap.Partitions,
		Empty:      snap.State == flow.Empty,
		Failure:    newFailureView(snap.Failure, previewRetryURL(snap.Source)),
		coverURL:   s.backend.CoverURL,
	}

	if len(snap.Partitions) > 0 {
		payload, err := EncodePreview(snap.Source, snap.Partitions)
		if err != nil {
			s.logger.Error("failed to encode preview", "error", err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		data.Payload = payload
	}

	s.render(w, failureStatus(snap.Failure), "preview", data)
}

func previewRetryURL(src models.SourceIdentifier) string {
	return "/dashboard/preview?" + src.Query()
}

type successPage struct {
	page
	Created []models.MaterializedPlaylist
	Updated []models.MaterializedPlaylist
}

// success renders the stored materialization result.
func (s *Server) success(w http.ResponseWriter, r *http.Request) {
	results, ok, err := s.store.Get(r.Context(), s.sessionKey(r))
	if err != nil {
		s.logger.Error("failed to load results", "error", err)
		s.renderFailure(w, http.StatusInternalServerError, &flow.Failure{
			Message:  "Could not load your results. Check your connection and try again.",
			Recovery: flow.RecoverReload,
		}, r.URL.RequestURI())
		return
	}
	if !ok {
		http.Redirect(w, r, flow.ListingPath, http.StatusSeeOther)
		return
	}

	created, updated := models.SplitByAction(results)
	s.render(w, http.StatusOK, "success", successPage{page: page{Title: "Done"}, Created: created, Updated: updated})
}

// clear leaves the result view.
func (s *Server) clear(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Clear(r.Context(), s.sessionKey(r)); err != nil {
		s.logger.Warn("failed to clear results", "error", err)
	}
	http.Redirect(w, r, flow.ListingPath, http.StatusSeeOther)
}

// fail reports a backend error outside the preview page.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error, phase flow.Phase) {
	if errors.Is(err, flow.ErrInFlight) {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	failure := flow.Describe(err, phase)
	if failure.Kind == services.KindUnauthorized {
		s.reauthenticate(w, r)
		return
	}

	s.logger.Error("backend request failed", "path", r.URL.Path, "kind", failure.Kind, "error", err)
	s.renderFailure(w, failureStatus(&failure), &failure, r.URL.RequestURI())
}

// failureStatus is the page status for a failure: the backend's when it answered, 502 when it did not.
func failureStatus(f *flow.Failure) int {
	switch {
	case f == nil:
		return http.StatusOK
	case f.Status >= 400:
		return f.Status
	default:
		return http.StatusBadGateway
	}
}
