package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/monthlify/internal/flow"
	"github.com/desertthunder/monthlify/internal/models"
	"github.com/desertthunder/monthlify/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgPlaylistsFetched MsgKind = iota
	MsgPreviewLoaded
	MsgMaterialized
	MsgProgressUpdate
)

type playlistsData struct {
	playlists []models.SourcePlaylist
	err       error
}

type stepData struct {
	step    flow.Step
	err     error
	request int
}

// playlistsFetchedMsg is the constructor for [MsgPlaylistsFetched]
func playlistsFetchedMsg(playlists []models.SourcePlaylist, err error) Msg {
	return Msg{kind: MsgPlaylistsFetched, data: playlistsData{playlists, err}}
}

// previewLoadedMsg is the constructor for [MsgPreviewLoaded]
func previewLoadedMsg(step flow.Step, err error, request int) Msg {
	return Msg{kind: MsgPreviewLoaded, data: stepData{step, err, request}}
}

// materializedMsg is the constructor for [MsgMaterialized]
func materializedMsg(step flow.Step, err error) Msg {
	return Msg{kind: MsgMaterialized, data: stepData{step: step, err: err}}
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}
