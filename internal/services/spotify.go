// Spotify Web API client used by the backend and the local CLI.
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/desertthunder/monthlify/internal/models"
	"github.com/desertthunder/monthlify/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	pageLimit     = 50
	maxBatchItems = 100
)

// SpotifyScopes are requested by every authorization, read access for previews and write access for materialization.
var SpotifyScopes = []string{
	"user-read-private",
	"playlist-read-private",
	"playlist-read-collaborative",
	"playlist-modify-private",
	"playlist-modify-public",
	"user-library-read",
	"ugc-image-upload",
}

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string         `json:"id"`
	DisplayName string         `json:"display_name"`
	Country     string         `json:"country"`
	Product     string         `json:"product"` // premium, free, etc.
	Images      []SpotifyImage `json:"images"`
}

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

type externalURLs struct {
	Spotify string `json:"spotify"`
}

// SpotifyTrack represents a Spotify track or episode.
//
// Local files have no ID and may have no URI.
type SpotifyTrack struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Artists    []SpotifyArtist `json:"artists"`
	DurationMS int             `json:"duration_ms"`
	IsLocal    bool            `json:"is_local"`
	Type       string          `json:"type"`
	URI        string          `json:"uri"`
}

// ArtistNames joins the artist names with ", ".
func (t SpotifyTrack) ArtistNames() string {
	names := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		names = append(names, a.Name)
	}
	return strings.Join(names, ", ")
}

// SpotifyArtist represents a simplified Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

type Owner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// SpotifyPlaylistTrack is one item of a playlist or of the saved tracks library.
//
// Track is nil for items Spotify could not resolve.
type SpotifyPlaylistTrack struct {
	AddedAt string        `json:"added_at"`
	Track   *SpotifyTrack `json:"track"`
}

// SpotifyPaginatedTracks represents a paginated response of playlist items or saved tracks.
type SpotifyPaginatedTracks struct {
	Items  []SpotifyPlaylistTrack `json:"items"`
	Total  int                    `json:"total"`
	Limit  int                    `json:"limit"`
	Offset int                    `json:"offset"`
	Next   *string                `json:"next"`
}

// SpotifyPaginatedPlaylists represents a paginated response of playlists.
type SpotifyPaginatedPlaylists struct {
	Items  []SpotifySimplePlaylist `json:"items"`
	Total  int                     `json:"total"`
	Limit  int                     `json:"limit"`
	Offset int                     `json:"offset"`
	Next   *string                 `json:"next"`
}

type simplePlaylistTrack struct {
	Total int `json:"total"`
}

// SpotifySimplePlaylist represents a simplified playlist object (used in lists and create responses).
type SpotifySimplePlaylist struct {
	ID           string              `json:"id"`
	Name         string              `json:"name"`
	Description  string              `json:"description"`
	Owner        Owner               `json:"owner"`
	Public       bool                `json:"public"`
	Tracks       simplePlaylistTrack `json:"tracks"`
	Images       []SpotifyImage      `json:"images"`
	ExternalURLs externalURLs        `json:"external_urls"`
	URI          string              `json:"uri"`
}

// Source converts the playlist to the listing DTO.
func (p SpotifySimplePlaylist) Source() models.SourcePlaylist {
	sp := models.SourcePlaylist{
		ID:         p.ID,
		Name:       p.Name,
		Owner:      p.Owner.DisplayName,
		OwnerID:    p.Owner.ID,
		TrackCount: p.Tracks.Total,
		URL:        p.ExternalURLs.Spotify,
	}
	if sp.Owner == "" {
		sp.Owner = p.Owner.ID
	}
	if len(p.Images) > 0 {
		sp.ImageURL = p.Images[0].URL
	}
	if sp.URL == "" && p.ID != "" {
		sp.URL = "https://open.spotify.com/playlist/" + p.ID
	}
	return sp
}

type spotifyErrorBody struct {
	Error struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

// SpotifyService talks to the Spotify Web API.
// Uses [oauth2] for authentication and token refresh and a shared [rate.Limiter] around every call.
//
// A configured service is not bound to a user; [SpotifyService.WithToken] returns a copy that is.
type SpotifyService struct {
	config         *oauth2.Config
	source         *refreshableTokenSource
	httpClient     *http.Client
	limiter        *rate.Limiter
	baseURL        string
	onTokenRefresh func(*oauth2.Token)
}

// refreshableTokenSource reports every new token to callback.
type refreshableTokenSource struct {
	mu       sync.Mutex
	source   oauth2.TokenSource
	callback func(*oauth2.Token)
	last     string
}

func (r *refreshableTokenSource) Token() (*oauth2.Token, error) {
	token, err := r.source.Token()
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	callback := r.callback
	changed := token.AccessToken != r.last
	r.last = token.AccessToken
	r.mu.Unlock()

	if changed && callback != nil {
		callback(token)
	}
	return token, nil
}

func (r *refreshableTokenSource) setCallback(fn func(*oauth2.Token)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.callback = fn
}

// NewSpotifyService creates a new Spotify service with the given OAuth2 credentials.
func NewSpotifyService(credentials map[string]string) (*SpotifyService, error) {
	clientID, ok := credentials["client_id"]
	if !ok || clientID == "" {
		return nil, fmt.Errorf("%w: missing client_id", shared.ErrMissingCredentials)
	}

	clientSecret, ok := credentials["client_secret"]
	if !ok || clientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret", shared.ErrMissingCredentials)
	}

	redirectURI, ok := credentials["redirect_uri"]
	if !ok || redirectURI == "" {
		redirectURI = "http://127.0.0.1:3000/callback"
	}

	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes:       SpotifyScopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}

	return &SpotifyService{
		config:     config,
		httpClient: http.DefaultClient,
		limiter:    rate.NewLimiter(rate.Limit(10), 5),
		baseURL:    spotifyBaseURL,
	}, nil
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// GetAuthURL returns the OAuth2 authorization URL for user login.
func (s *SpotifyService) GetAuthURL(state string) string {
	return s.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// Exchange trades an authorization code for a token.
func (s *SpotifyService) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: missing authorization code", shared.ErrAuthFailed)
	}

	token, err := s.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to exchange auth code: %v", shared.ErrAuthFailed, err)
	}
	return token, nil
}

// Authenticate binds the service to a token. Expects an "access_token" (with optional "refresh_token") or an "auth_code".
func (s *SpotifyService) Authenticate(ctx context.Context, credentials map[string]string) error {
	if accessToken, ok := credentials["access_token"]; ok && accessToken != "" {
		s.bind(ctx, &oauth2.Token{AccessToken: accessToken, RefreshToken: credentials["refresh_token"], TokenType: "Bearer"})
		return nil
	}

	if authCode, ok := credentials["auth_code"]; ok && authCode != "" {
		token, err := s.Exchange(ctx, authCode)
		if err != nil {
			return err
		}
		s.bind(ctx, token)
		return nil
	}

	return fmt.Errorf("%w: missing access_token or auth_code", shared.ErrMissingCredentials)
}

// WithToken returns a copy of the service bound to token. The rate limiter is shared with the parent.
func (s *SpotifyService) WithToken(ctx context.Context, token *oauth2.Token) *SpotifyService {
	c := *s
	c.bind(ctx, token)
	return &c
}

func (s *SpotifyService) bind(ctx context.Context, token *oauth2.Token) {
	ctx = context.WithoutCancel(ctx)
	s.source = &refreshableTokenSource{
		source:   oauth2.ReuseTokenSource(token, s.config.TokenSource(ctx, token)),
		callback: s.onTokenRefresh,
		last:     token.AccessToken,
	}
	s.httpClient = oauth2.NewClient(ctx, s.source)
}

// SetTokenRefreshCallback registers fn to receive every refreshed token, so it can be persisted.
func (s *SpotifyService) SetTokenRefreshCallback(fn func(*oauth2.Token)) {
	s.onTokenRefresh = fn
	if s.source != nil {
		s.source.setCallback(fn)
	}
}

// Token returns the current token, refreshing it when it has expired.
func (s *SpotifyService) Token() (*oauth2.Token, error) {
	if s.source == nil {
		return nil, shared.ErrNotAuthenticated
	}

	token, err := s.source.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrTokenExpired, err)
	}
	return token, nil
}

// doRequest performs an authenticated JSON request to the Spotify API.
func (s *SpotifyService) doRequest(ctx context.Context, method, endpoint string, body any, result any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	return s.do(ctx, method, endpoint, "application/json", reader, result)
}

func (s *SpotifyService) do(ctx context.Context, method, endpoint, contentType string, body io.Reader, result any) error {
	if s.source == nil {
		return fmt.Errorf("%w: call Authenticate first", shared.ErrNotAuthenticated)
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			return fmt.Errorf("%w: %v", shared.ErrTokenExpired, err)
		}
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return shared.ErrTokenExpired
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, endpoint)
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: rate limited, retry after %ss", shared.ErrServiceUnavailable, resp.Header.Get("Retry-After"))
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return fmt.Errorf("%w: status %d: %s", shared.ErrAPIRequest, resp.StatusCode, errorMessage(resp.Body))
	}

	if result != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

func errorMessage(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil {
		return "unreadable response"
	}

	var body spotifyErrorBody
	if err := json.Unmarshal(data, &body); err == nil && body.Error.Message != "" {
		return body.Error.Message
	}
	return strings.TrimSpace(string(data))
}

// UserProfile retrieves the current authenticated user's profile.
func (s *SpotifyService) UserProfile(ctx context.Context) (*SpotifyUser, error) {
	var user SpotifyUser
	if err := s.doRequest(ctx, http.MethodGet, "/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// CurrentUser returns the profile as the DTO served by the API.
func (s *SpotifyService) CurrentUser(ctx context.Context) (*models.UserProfile, error) {
	user, err := s.UserProfile(ctx)
	if err != nil {
		return nil, err
	}

	profile := &models.UserProfile{ID: user.ID, DisplayName: user.DisplayName, Images: []models.Image{}}
	for _, img := range user.Images {
		profile.Images = append(profile.Images, models.Image{URL: img.URL, Height: img.Height, Width: img.Width})
	}
	return profile, nil
}

// UserPlaylists retrieves one page of the current user's playlists.
func (s *SpotifyService) UserPlaylists(ctx context.Context, limit, offset int) (*SpotifyPaginatedPlaylists, error) {
	endpoint := fmt.Sprintf("/me/playlists?limit=%d&offset=%d", clampLimit(limit), offset)

	var response SpotifyPaginatedPlaylists
	if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
		return nil, err
	}

	return &response, nil
}

// Playlists retrieves every playlist of the authenticated user.
func (s *SpotifyService) Playlists(ctx context.Context) ([]models.SourcePlaylist, error) {
	var playlists []models.SourcePlaylist
	offset := 0

	for {
		response, err := s.UserPlaylists(ctx, pageLimit, offset)
		if err != nil {
			return nil, err
		}

		for _, sp := range response.Items {
			playlists = append(playlists, sp.Source())
		}

		if response.Next == nil || len(response.Items) == 0 {
			break
		}
		offset += pageLimit
	}

	return playlists, nil
}

// SavedTracksPage retrieves one page of the user's saved tracks.
func (s *SpotifyService) SavedTracksPage(ctx context.Context, limit, offset int) (*SpotifyPaginatedTracks, error) {
	endpoint := fmt.Sprintf("/me/tracks?limit=%d&offset=%d", clampLimit(limit), offset)

	var response SpotifyPaginatedTracks
	if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
		return nil, err
	}

	return &response, nil
}

// SavedTracksTotal returns how many tracks the user has saved.
func (s *SpotifyService) SavedTracksTotal(ctx context.Context) (int, error) {
	page, err := s.SavedTracksPage(ctx, 1, 0)
	if err != nil {
		return 0, err
	}
	return page.Total, nil
}

// LikedSongs retrieves every saved track.
func (s *SpotifyService) LikedSongs(ctx context.Context) ([]SpotifyPlaylistTrack, error) {
	return s.collect(ctx, func(offset int) (*SpotifyPaginatedTracks, error) {
		return s.SavedTracksPage(ctx, pageLimit, offset)
	})
}

// PlaylistItemsPage retrieves one page of a playlist's items, tracks and episodes included.
func (s *SpotifyService) PlaylistItemsPage(ctx context.Context, playlistID string, limit, offset int) (*SpotifyPaginatedTracks, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(clampLimit(limit)))
	q.Set("offset", strconv.Itoa(offset))
	q.Set("additional_types", "track,episode")
	endpoint := fmt.Sprintf("/playlists/%s/tracks?%s", url.PathEscape(playlistID), q.Encode())

	var response SpotifyPaginatedTracks
	if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
		return nil, err
	}

	return &response, nil
}

// PlaylistItems retrieves every item of a playlist.
func (s *SpotifyService) PlaylistItems(ctx context.Context, playlistID string) ([]SpotifyPlaylistTrack, error) {
	return s.collect(ctx, func(offset int) (*SpotifyPaginatedTracks, error) {
		return s.PlaylistItemsPage(ctx, playlistID, pageLimit, offset)
	})
}

func (s *SpotifyService) collect(ctx context.Context, page func(offset int) (*SpotifyPaginatedTracks, error)) ([]SpotifyPlaylistTrack, error) {
	var items []SpotifyPlaylistTrack
	offset := 0

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		response, err := page(offset)
		if err != nil {
			return nil, err
		}

		items = append(items, response.Items...)

		if response.Next == nil || len(response.Items) == 0 {
			break
		}
		offset += len(response.Items)
	}

	return items, nil
}

// CreatePlaylist creates a private playlist owned by userID.
func (s *SpotifyService) CreatePlaylist(ctx context.Context, userID, name, description string) (*models.SourcePlaylist, error) {
	body := map[string]any{
		"name":        name,
		"description": description,
		"public":      false,
	}

	var created SpotifySimplePlaylist
	endpoint := fmt.Sprintf("/users/%s/playlists", url.PathEscape(userID))
	if err := s.doRequest(ctx, http.MethodPost, endpoint, body, &created); err != nil {
		return nil, err
	}

	sp := created.Source()
	return &sp, nil
}

// ReplaceItems replaces the playlist's items with uris. An empty slice clears the playlist.
func (s *SpotifyService) ReplaceItems(ctx context.Context, playlistID string, uris []string) error {
	if len(uris) > maxBatchItems {
		return fmt.Errorf("%w: at most %d items per request", shared.ErrInvalidInput, maxBatchItems)
	}
	if uris == nil {
		uris = []string{}
	}

	endpoint := fmt.Sprintf("/playlists/%s/tracks", url.PathEscape(playlistID))
	return s.doRequest(ctx, http.MethodPut, endpoint, map[string][]string{"uris": uris}, nil)
}

// AddItems appends up to 100 uris to the playlist.
func (s *SpotifyService) AddItems(ctx context.Context, playlistID string, uris []string) error {
	if len(uris) == 0 {
		return nil
	}
	if len(uris) > maxBatchItems {
		return fmt.Errorf("%w: at most %d items per request", shared.ErrInvalidInput, maxBatchItems)
	}

	endpoint := fmt.Sprintf("/playlists/%s/tracks", url.PathEscape(playlistID))
	return s.doRequest(ctx, http.MethodPost, endpoint, map[string][]string{"uris": uris}, nil)
}

// UploadCover sets the playlist image from JPEG bytes.
func (s *SpotifyService) UploadCover(ctx context.Context, playlistID string, jpeg []byte) error {
	encoded := base64.StdEncoding.EncodeToString(jpeg)
	endpoint := fmt.Sprintf("/playlists/%s/images", url.PathEscape(playlistID))
	return s.do(ctx, http.MethodPut, endpoint, "image/jpeg", strings.NewReader(encoded), nil)
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	if limit > pageLimit {
		return pageLimit
	}
	return limit
}
