package tasks

import (
	"fmt"

	"github.com/desertthunder/monthlify/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	FetchSource Phase = iota
	Partition
	FetchPlaylists
	CreatePlaylist
	UpdatePlaylist
	AddTracks
	UploadCover
)

func (p Phase) String() string {
	switch p {
	case FetchSource:
		return "fetch_source"
	case Partition:
		return "partition"
	case FetchPlaylists:
		return "fetch_playlists"
	case CreatePlaylist:
		return "create_playlist"
	case UpdatePlaylist:
		return "update_playlist"
	case AddTracks:
		return "add_tracks"
	case UploadCover:
		return "upload_cover"
	default:
		return ""
	}
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func fetchSourceUpdate(playlistID string) ProgressUpdate {
	msg := fmt.Sprintf("Fetching tracks of playlist %s...", playlistID)
	if playlistID == models.LikedSongsID {
		msg = "Fetching liked songs..."
	}
	return ProgressUpdate{Phase: FetchSource, Step: 1, Total: 1, Message: msg}
}

func partitionUpdate(tracks, months int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Partition,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Grouped %d tracks into %d months", tracks, months),
	}
}

func fetchPlaylistsUpdate() ProgressUpdate {
	return ProgressUpdate{Phase: FetchPlaylists, Step: 1, Total: 1, Message: "Looking up existing playlists..."}
}

func materializeUpdate(step, total int, p models.PartitionPreview, action models.PlaylistAction) ProgressUpdate {
	phase, verb := CreatePlaylist, "Creating"
	if action == models.ActionUpdated {
		phase, verb = UpdatePlaylist, "Updating"
	}
	return ProgressUpdate{
		Phase:   phase,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s %s (%d tracks)...", step, total, verb, p.Name, p.TrackCount()),
		Data:    p,
	}
}

func addTracksUpdate(step, total int, name string, added, count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   AddTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s: added %d/%d tracks", step, total, name, added, count),
	}
}

func uploadCoverUpdate(step, total int, name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   UploadCover,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Uploading cover for %s...", step, total, name),
	}
}
