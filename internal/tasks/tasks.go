// package tasks implements the month partitioning and playlist materialization operations.
//
// The core abstraction is PlaylistEngine, which builds month previews from a library and turns them into playlists.
// Operations emit progress updates via channels for non-blocking status reporting to CLI/UI layers.
package tasks

import (
	"context"
	"fmt"
	"io"
	"slices"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/monthlify/internal/models"
	"github.com/desertthunder/monthlify/internal/services"
	"github.com/desertthunder/monthlify/internal/shared"
)

const addBatchSize = 100

// CoverRenderer renders the cover image of a YYYY-MM month as JPEG.
type CoverRenderer interface {
	Render(month string) ([]byte, error)
}

// Recorder stores the outcome of a materialized partition.
type Recorder interface {
	Record(userID string, partition models.PartitionPreview, result models.MaterializedPlaylist) error
}

// Engine defines the month playlist operations.
type Engine interface {
	// Preview fetches the source playlist and groups its tracks by month.
	Preview(ctx context.Context, lib services.Library, src models.SourceIdentifier, progress chan<- ProgressUpdate) ([]models.PartitionPreview, error)

	// Materialize creates or updates one playlist per partition.
	Materialize(ctx context.Context, lib services.Library, src models.SourceIdentifier, partitions []models.PartitionPreview, progress chan<- ProgressUpdate) ([]models.MaterializedPlaylist, error)
}

// PlaylistEngine implements Engine.
//
// Covers and the recorder are optional; their failures are logged and never abort a run.
type PlaylistEngine struct {
	covers   CoverRenderer
	recorder Recorder
	logger   *log.Logger
}

// NewPlaylistEngine creates a new PlaylistEngine. Any argument may be nil.
func NewPlaylistEngine(covers CoverRenderer, recorder Recorder, logger *log.Logger) *PlaylistEngine {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &PlaylistEngine{covers: covers, recorder: recorder, logger: logger}
}

// Preview fetches every item of the source and partitions it by month.
func (e *PlaylistEngine) Preview(ctx context.Context, lib services.Library, src models.SourceIdentifier, progress chan<- ProgressUpdate) ([]models.PartitionPreview, error) {
	if lib == nil {
		return nil, fmt.Errorf("%w: library not initialized", shared.ErrServiceUnavailable)
	}

	playlistID, err := ResolvePlaylistID(src)
	if err != nil {
		return nil, err
	}

	sendProgress(progress, fetchSourceUpdate(playlistID))

	var items []services.SpotifyPlaylistTrack
	if playlistID == models.LikedSongsID {
		items, err = lib.LikedSongs(ctx)
	} else {
		items, err = lib.PlaylistItems(ctx, playlistID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tracks: %w", err)
	}

	partitions := PartitionByMonth(items)
	sendProgress(progress, partitionUpdate(len(items), len(partitions)))
	return partitions, nil
}

// Materialize creates or updates one playlist per partition, in order.
//
// An existing playlist owned by the user with the same name is cleared and refilled.
// The first upstream failure aborts the run; results for partitions already processed are returned with the error.
func (e *PlaylistEngine) Materialize(ctx context.Context, lib services.Library, src models.SourceIdentifier, partitions []models.PartitionPreview, progress chan<- ProgressUpdate) ([]models.MaterializedPlaylist, error) {
	if lib == nil {
		return nil, fmt.Errorf("%w: library not initialized", shared.ErrServiceUnavailable)
	}
	if err := src.Validate(); err != nil {
		return nil, err
	}
	if len(partitions) == 0 {
		return nil, fmt.Errorf("%w: no playlists to create", shared.ErrInvalidInput)
	}
	for _, p := range partitions {
		if p.Name == "" {
			return nil, fmt.Errorf("%w: playlist name is required", shared.ErrInvalidInput)
		}
	}

	user, err := lib.CurrentUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}

	sendProgress(progress, fetchPlaylistsUpdate())
	existing, err := lib.Playlists(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch playlists: %w", err)
	}

	owned := map[string]models.SourcePlaylist{}
	for _, p := range existing {
		if p.OwnerID != user.ID {
			continue
		}
		if _, ok := owned[p.Name]; !ok {
			owned[p.Name] = p
		}
	}

	total := len(partitions)
	results := make([]models.MaterializedPlaylist, 0, total)

	for i, p := range partitions {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		result, err := e.materialize(ctx, lib, user.ID, owned, p, i+1, total, progress)
		if err != nil {
			e.logger.Error("materialization aborted", "playlist", p.Name, "processed", len(results), "error", err)
			return results, fmt.Errorf("failed to materialize %s: %w", p.Name, err)
		}
		results = append(results, result)

		if e.recorder != nil {
			if err := e.recorder.Record(user.ID, p, result); err != nil {
				e.logger.Warn("failed to record playlist", "playlist", p.Name, "error", err)
			}
		}
	}

	return results, nil
}

func (e *PlaylistEngine) materialize(
	ctx context.Context, lib services.Library, userID string, owned map[string]models.SourcePlaylist,
	p models.PartitionPreview, step, total int, progress chan<- ProgressUpdate,
) (models.MaterializedPlaylist, error) {
	result := models.MaterializedPlaylist{Name: p.Name}

	if existing, ok := owned[p.Name]; ok {
		sendProgress(progress, materializeUpdate(step, total, p, models.ActionUpdated))
		if err := lib.ReplaceItems(ctx, existing.ID, nil); err != nil {
			return result, err
		}
		result.ID, result.URL, result.Action = existing.ID, existing.URL, models.ActionUpdated
	} else {
		sendProgress(progress, materializeUpdate(step, total, p, models.ActionCreated))
		created, err := lib.CreatePlaylist(ctx, userID, p.Name, "Monthlify: tracks added in "+p.Name)
		if err != nil {
			return result, err
		}
		owned[p.Name] = *created
		result.ID, result.URL, result.Action = created.ID, created.URL, models.ActionCreated
	}

	uris := p.URIs()
	added := 0
	for batch := range slices.Chunk(uris, addBatchSize) {
		if err := lib.AddItems(ctx, result.ID, batch); err != nil {
			return result, err
		}
		added += len(batch)
		sendProgress(progress, addTracksUpdate(step, total, p.Name, added, len(uris)))
	}

	e.uploadCover(ctx, lib, result.ID, p, step, total, progress)
	return result, nil
}

func (e *PlaylistEngine) uploadCover(ctx context.Context, lib services.Library, playlistID string, p models.PartitionPreview, step, total int, progress chan<- ProgressUpdate) {
	if e.covers == nil || !models.IsMonthToken(p.ID) {
		return
	}

	sendProgress(progress, uploadCoverUpdate(step, total, p.Name))

	img, err := e.covers.Render(p.ID)
	if err != nil {
		e.logger.Warn("failed to render cover", "month", p.ID, "error", err)
		return
	}
	if err := lib.UploadCover(ctx, playlistID, img); err != nil {
		e.logger.Warn("failed to upload cover", "playlist", playlistID, "error", err)
	}
}
