// package services defines the clients Monthlify uses to reach HTTP APIs
//
// Spotify (the music library) and the Monthlify backend (from the web frontend)
package services

import (
	"context"

	"github.com/desertthunder/monthlify/internal/models"
)

// Library is the view of a user's music library the playlist engine needs.
// [SpotifyService] bound to a token implements it.
type Library interface {
	// CurrentUser returns the profile of the library owner.
	CurrentUser(ctx context.Context) (*models.UserProfile, error)

	// Playlists returns every playlist the user owns or follows.
	Playlists(ctx context.Context) ([]models.SourcePlaylist, error)

	// SavedTracksTotal returns the number of liked songs.
	SavedTracksTotal(ctx context.Context) (int, error)

	// PlaylistItems returns every item of a playlist in playlist order.
	PlaylistItems(ctx context.Context, playlistID string) ([]SpotifyPlaylistTrack, error)

	// LikedSongs returns every saved track, most recently added first.
	LikedSongs(ctx context.Context) ([]SpotifyPlaylistTrack, error)

	// CreatePlaylist creates a private playlist owned by userID.
	CreatePlaylist(ctx context.Context, userID, name, description string) (*models.SourcePlaylist, error)

	// ReplaceItems replaces a playlist's items; an empty slice clears it.
	ReplaceItems(ctx context.Context, playlistID string, uris []string) error

	// AddItems appends at most 100 items to a playlist.
	AddItems(ctx context.Context, playlistID string, uris []string) error

	// UploadCover sets a playlist's cover image from JPEG bytes.
	UploadCover(ctx context.Context, playlistID string, jpeg []byte) error
}

var _ Library = (*SpotifyService)(nil)

// Backend is the set of operations behind the /api surface that the preview flow and its views call.
// [BackendClient] implements it over HTTP; an in-process implementation serves the CLI and terminal client.
type Backend interface {
	User(ctx context.Context) (*models.UserProfile, error)
	Playlists(ctx context.Context) ([]models.SourcePlaylist, error)
	Preview(ctx context.Context, src models.SourceIdentifier) ([]models.PartitionPreview, error)
	CreateMonthlyPlaylists(ctx context.Context, src models.SourceIdentifier, partitions []models.PartitionPreview) ([]models.MaterializedPlaylist, error)
}

var _ Backend = (*BackendClient)(nil)
