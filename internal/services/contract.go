package services

import "github.com/desertthunder/monthlify/internal/models"

// Request and response bodies of the backend HTTP API, shared by the handlers and [BackendClient].

// ErrorResponse is the body of every non-2xx backend response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// AuthURLResponse is returned by GET /api/auth/login.
type AuthURLResponse struct {
	AuthURL string `json:"auth_url"`
}

// MessageResponse is returned by endpoints with nothing else to say.
type MessageResponse struct {
	Message string `json:"message"`
}

// PlaylistsResponse is returned by GET /api/spotify/playlists.
type PlaylistsResponse struct {
	Playlists []models.SourcePlaylist `json:"playlists"`
}

// PreviewRequest is the body of POST /api/preview.
type PreviewRequest struct {
	models.SourceIdentifier
}

// PreviewResponse is returned by POST /api/preview. PreviewData is always present; an empty list is a valid result.
type PreviewResponse struct {
	PreviewData []models.PartitionPreview `json:"preview_data"`
}

// MaterializeRequest is the body of POST /api/create-monthly-playlists.
type MaterializeRequest struct {
	Playlists []models.PartitionPreview `json:"playlists"`
	models.SourceIdentifier
}

// MaterializeResponse is returned by POST /api/create-monthly-playlists. Playlists is always present.
type MaterializeResponse struct {
	Message   string                        `json:"message"`
	Playlists []models.MaterializedPlaylist `json:"playlists"`
}
