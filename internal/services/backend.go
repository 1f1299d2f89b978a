// Client of the backend HTTP API used by the web frontend
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/desertthunder/monthlify/internal/models"
	"github.com/desertthunder/monthlify/internal/shared"
)

const maxResponseBytes = 8 << 20

// BackendClient calls the backend API on behalf of a browser, forwarding its cookies.
type BackendClient struct {
	baseURL    string
	httpClient *http.Client
	cookies    []*http.Cookie
}

// NewBackendClient creates a client for the backend at baseURL.
func NewBackendClient(baseURL string, client *http.Client) *BackendClient {
	if baseURL == "" {
		baseURL = "http://127.0.0.1:5000"
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &BackendClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: client,
	}
}

// WithCookies returns a copy of the client that sends cookies with every request.
func (b *BackendClient) WithCookies(cookies ...*http.Cookie) *BackendClient {
	c := *b
	c.cookies = append([]*http.Cookie(nil), cookies...)
	return &c
}

// LoginURL asks the backend for the Spotify authorization URL.
//
// The returned cookies (the OAuth state) must be relayed to the browser.
func (b *BackendClient) LoginURL(ctx context.Context) (string, []*http.Cookie, error) {
	var body AuthURLResponse
	resp, err := b.do(ctx, http.MethodGet, "/api/auth/login", nil, &body)
	if err != nil {
		return "", nil, err
	}
	if body.AuthURL == "" {
		return "", nil, &TransportError{Status: resp.StatusCode, Err: fmt.Errorf("missing auth_url")}
	}
	return body.AuthURL, resp.Cookies(), nil
}

// Callback submits the authorization code and returns the session cookies set by the backend.
func (b *BackendClient) Callback(ctx context.Context, code, state string) ([]*http.Cookie, error) {
	q := url.Values{}
	q.Set("code", code)
	if state != "" {
		q.Set("state", state)
	}

	resp, err := b.do(ctx, http.MethodGet, "/api/auth/callback?"+q.Encode(), nil, nil)
	if err != nil {
		return nil, err
	}
	return resp.Cookies(), nil
}

// Logout ends the backend session and returns the expiring cookies.
func (b *BackendClient) Logout(ctx context.Context) ([]*http.Cookie, error) {
	resp, err := b.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
	if err != nil {
		return nil, err
	}
	return resp.Cookies(), nil
}

// Playlists lists the source playlists, liked songs first.
func (b *BackendClient) Playlists(ctx context.Context) ([]models.SourcePlaylist, error) {
	var body PlaylistsResponse
	if _, err := b.do(ctx, http.MethodGet, "/api/spotify/playlists", nil, &body); err != nil {
		return nil, err
	}
	return body.Playlists, nil
}

// User returns the signed-in user's profile.
func (b *BackendClient) User(ctx context.Context) (*models.UserProfile, error) {
	var body models.UserProfile
	if _, err := b.do(ctx, http.MethodGet, "/api/spotify/user", nil, &body); err != nil {
		return nil, err
	}
	return &body, nil
}

// Preview asks the backend to partition src by month.
func (b *BackendClient) Preview(ctx context.Context, src models.SourceIdentifier) ([]models.PartitionPreview, error) {
	var body struct {
		PreviewData *[]models.PartitionPreview `json:"preview_data"`
	}
	resp, err := b.do(ctx, http.MethodPost, "/api/preview", PreviewRequest{SourceIdentifier: src}, &body)
	if err != nil {
		return nil, err
	}
	if body.PreviewData == nil {
		return nil, &TransportError{Status: resp.StatusCode, Err: fmt.Errorf("missing preview_data in response")}
	}
	return *body.PreviewData, nil
}

// CreateMonthlyPlaylists asks the backend to materialize partitions.
func (b *BackendClient) CreateMonthlyPlaylists(ctx context.Context, src models.SourceIdentifier, partitions []models.PartitionPreview) ([]models.MaterializedPlaylist, error) {
	req := MaterializeRequest{Playlists: partitions, SourceIdentifier: src}

	var body struct {
		Playlists *[]models.MaterializedPlaylist `json:"playlists"`
	}
	resp, err := b.do(ctx, http.MethodPost, "/api/create-monthly-playlists", req, &body)
	if err != nil {
		return nil, err
	}
	if body.Playlists == nil {
		return nil, &TransportError{Status: resp.StatusCode, Err: fmt.Errorf("missing playlists in response")}
	}
	return *body.Playlists, nil
}

// CoverURL is the backend URL of the cover image for a YYYY-MM month.
func (b *BackendClient) CoverURL(month string) string {
	return b.baseURL + "/api/cover/" + url.PathEscape(month)
}

// do sends the request and classifies failures. The response body is consumed.
func (b *BackendClient) do(ctx context.Context, method, path string, body, result any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, b.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range b.cookies {
		req.AddCookie(c)
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &TransportError{Status: resp.StatusCode, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, classifyResponse(resp.StatusCode, data)
	}

	if result != nil {
		if err := json.Unmarshal(data, result); err != nil {
			return nil, &TransportError{Status: resp.StatusCode, Err: fmt.Errorf("failed to decode response: %w", err)}
		}
	}

	return resp, nil
}

func classifyResponse(status int, data []byte) error {
	var payload ErrorResponse
	hasPayload := json.Unmarshal(data, &payload) == nil && payload.Error != ""

	if status == http.StatusUnauthorized {
		if hasPayload {
			return fmt.Errorf("%w: %s", shared.ErrUnauthorized, payload.Error)
		}
		return shared.ErrUnauthorized
	}

	if hasPayload {
		return &ApplicationError{Status: status, Message: payload.Error}
	}
	return &TransportError{Status: status, Err: fmt.Errorf("unexpected response")}
}
