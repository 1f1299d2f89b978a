package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/monthlify/internal/models"
)

var (
	_ list.Item = playlistItem{}
	_ list.Item = partitionItem{}
	_ list.Item = trackItem{}
)

// playlistItem wraps [models.SourcePlaylist] to implement [list.Item].
type playlistItem struct {
	playlist models.SourcePlaylist
}

func (i playlistItem) FilterValue() string { return i.playlist.Name + " " + i.playlist.Owner }
func (i playlistItem) Title() string       { return i.playlist.Name }
func (i playlistItem) Description() string {
	desc := fmt.Sprintf("%d tracks", i.playlist.TrackCount)
	if i.playlist.Owner != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.playlist.Owner)
	}
	return desc
}

// partitionItem wraps [models.PartitionPreview] to implement [list.Item].
type partitionItem struct {
	partition models.PartitionPreview
}

func (i partitionItem) FilterValue() string { return i.partition.Name }
func (i partitionItem) Title() string       { return i.partition.Name }
func (i partitionItem) Description() string {
	if i.partition.TrackCount() == 1 {
		return "1 song"
	}
	return fmt.Sprintf("%d songs", i.partition.TrackCount())
}

// trackItem wraps [models.TrackRef] to implement [list.Item].
type trackItem struct {
	track models.TrackRef
}

func (i trackItem) FilterValue() string { return i.track.Name }
func (i trackItem) Title() string       { return i.track.Name }
func (i trackItem) Description() string {
	desc := i.track.Artists
	if !i.track.AddedAt.IsZero() {
		desc = fmt.Sprintf("%s • added %s", desc, i.track.AddedAt.Format("Jan 2, 2006"))
	}
	return desc
}

func playlistItems(playlists []models.SourcePlaylist) []list.Item {
	items := make([]list.Item, len(playlists))
	for i, pl := range playlists {
		items[i] = playlistItem{playlist: pl}
	}
	return items
}

func partitionItems(partitions []models.PartitionPreview) []list.Item {
	items := make([]list.Item, len(partitions))
	for i, p := range partitions {
		items[i] = partitionItem{partition: p}
	}
	return items
}

func trackItems(tracks []models.TrackRef) []list.Item {
	items := make([]list.Item, len(tracks))
	for i, t := range tracks {
		items[i] = trackItem{track: t}
	}
	return items
}
