package tasks

import (
	"context"

	"github.com/desertthunder/monthlify/internal/models"
	"github.com/desertthunder/monthlify/internal/services"
	"golang.org/x/sync/errgroup"
)

var _ services.Backend = (*LibraryBackend)(nil)

// LibraryBackend answers the backend API operations directly from a library.
//
// It serves the HTTP handlers and the local CLI and TUI, which skip the HTTP hop.
type LibraryBackend struct {
	engine   Engine
	lib      services.Library
	progress chan<- ProgressUpdate
}

// NewLibraryBackend binds engine to lib.
func NewLibraryBackend(engine Engine, lib services.Library) *LibraryBackend {
	return &LibraryBackend{engine: engine, lib: lib}
}

// WithProgress returns a copy of the backend that reports engine progress on progress.
func (b *LibraryBackend) WithProgress(progress chan<- ProgressUpdate) *LibraryBackend {
	c := *b
	c.progress = progress
	return &c
}

// User returns the library owner's profile.
func (b *LibraryBackend) User(ctx context.Context) (*models.UserProfile, error) {
	return b.lib.CurrentUser(ctx)
}

// Playlists lists the user's playlists, prefixed by the liked songs pseudo playlist.
func (b *LibraryBackend) Playlists(ctx context.Context) ([]models.SourcePlaylist, error) {
	var (
		user      *models.UserProfile
		playlists []models.SourcePlaylist
		liked     int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		user, err = b.lib.CurrentUser(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		playlists, err = b.lib.Playlists(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		liked, err = b.lib.SavedTracksTotal(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	all := make([]models.SourcePlaylist, 0, len(playlists)+1)
	all = append(all, models.SourcePlaylist{
		ID:         models.LikedSongsID,
		Name:       "Liked Songs",
		Owner:      user.Name(),
		OwnerID:    user.ID,
		TrackCount: liked,
	})
	return append(all, playlists...), nil
}

// Preview partitions src by month.
func (b *LibraryBackend) Preview(ctx context.Context, src models.SourceIdentifier) ([]models.PartitionPreview, error) {
	return b.engine.Preview(ctx, b.lib, src, b.progress)
}

// CreateMonthlyPlaylists materializes partitions.
func (b *LibraryBackend) CreateMonthlyPlaylists(ctx context.Context, src models.SourceIdentifier, partitions []models.PartitionPreview) ([]models.MaterializedPlaylist, error) {
	return b.engine.Materialize(ctx, b.lib, src, partitions, b.progress)
}
