package models

import (
	"errors"
	"time"

	"golang.org/x/oauth2"
)

// Session is a backend session created by a completed Spotify authorization.
//
// The session id is the value of the session cookie.
type Session struct {
	base
	userID       string
	displayName  string
	accessToken  string
	refreshToken string
	tokenExpiry  time.Time
	expiresAt    time.Time
}

// NewSession creates a session for userID holding token, valid for ttl.
func NewSession(sequence int, userID, displayName string, token *oauth2.Token, ttl time.Duration) *Session {
	s := &Session{base: newBase(sequence), userID: userID, displayName: displayName}
	s.expiresAt = s.createdAt.Add(ttl)
	if token != nil {
		s.SetToken(token)
	}
	return s
}

func (s *Session) UserID() string           { return s.userID }
func (s *Session) DisplayName() string      { return s.displayName }
func (s *Session) AccessToken() string      { return s.accessToken }
func (s *Session) RefreshToken() string     { return s.refreshToken }
func (s *Session) TokenExpiry() time.Time   { return s.tokenExpiry }
func (s *Session) ExpiresAt() time.Time     { return s.expiresAt }
func (s *Session) SetExpiresAt(t time.Time) { s.expiresAt = t }

// Token returns the stored Spotify token.
func (s *Session) Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  s.accessToken,
		RefreshToken: s.refreshToken,
		TokenType:    "Bearer",
		Expiry:       s.tokenExpiry,
	}
}

// SetToken replaces the stored token. An empty refresh token keeps the previous one.
func (s *Session) SetToken(token *oauth2.Token) {
	s.accessToken = token.AccessToken
	if token.RefreshToken != "" {
		s.refreshToken = token.RefreshToken
	}
	s.tokenExpiry = token.Expiry
}

// Expired reports whether the session lifetime has passed at now.
func (s *Session) Expired(now time.Time) bool {
	return !s.expiresAt.IsZero() && !now.Before(s.expiresAt)
}

// Validate ensures the session has an owner and a token.
func (s *Session) Validate() error {
	if s.userID == "" {
		return errors.New("user id is required")
	}
	if s.accessToken == "" {
		return errors.New("access token is required")
	}
	return nil
}
