package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/desertthunder/monthlify/internal/models"
	"github.com/desertthunder/monthlify/internal/services"
	"github.com/desertthunder/monthlify/internal/shared"
)

// login creates an OAuth state, stores it in a cookie and returns the authorization URL.
func (h *Handler) login(w http.ResponseWriter, _ *http.Request) {
	state := shared.GenerateState()
	http.SetCookie(w, &http.Cookie{
		Name:     StateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   int(stateTTL / time.Second),
		HttpOnly: true,
		Secure:   h.opts.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, services.AuthURLResponse{AuthURL: h.connector.GetAuthURL(state)})
}

// callback exchanges the authorization code and starts a session.
func (h *Handler) callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if e := q.Get("error"); e != "" {
		writeError(w, http.StatusBadRequest, "authorization failed: "+e)
		return
	}

	code := q.Get("code")
	if code == "" {
		writeError(w, http.StatusBadRequest, "missing authorization code")
		return
	}

	c, err := r.Cookie(StateCookie)
	if err != nil || c.Value == "" || c.Value != q.Get("state") {
		writeError(w, http.StatusBadRequest, shared.ErrInvalidState.Error())
		return
	}
	h.expire(w, StateCookie)

	token, err := h.connector.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("token exchange failed", "error", err)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	user, err := h.connector.Connect(r.Context(), token, nil).CurrentUser(r.Context())
	if err != nil {
		h.logger.Error("failed to fetch profile", "error", err)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	session := models.NewSession(0, user.ID, user.Name(), token, h.opts.SessionTTL)
	if err := h.sessions.Create(session); err != nil {
		h.logger.Error("failed to create session", "user", user.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	h.logger.Info("session started", "user", user.ID)
	http.SetCookie(w, &http.Cookie{
		Name:     h.opts.CookieName,
		Value:    session.ID(),
		Path:     "/",
		Expires:  session.ExpiresAt(),
		HttpOnly: true,
		Secure:   h.opts.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	if h.opts.FrontendURL != "" && strings.Contains(r.Header.Get("Accept"), "text/html") {
		http.Redirect(w, r, h.opts.FrontendURL+"/dashboard", http.StatusSeeOther)
		return
	}
	writeJSON(w, http.StatusOK, services.MessageResponse{Message: "Authenticated"})
}

// logout deletes the session, if any, and expires the cookie.
func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(h.opts.CookieName); err == nil && c.Value != "" {
		if err := h.sessions.Delete(c.Value); err != nil && !errors.Is(err, shared.ErrRecordNotFound) {
			h.logger.Warn("failed to delete session", "error", err)
		}
	}

	h.expire(w, h.opts.CookieName)
	writeJSON(w, http.StatusOK, services.MessageResponse{Message: "Logged out"})
}

func (h *Handler) expire(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.opts.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}
