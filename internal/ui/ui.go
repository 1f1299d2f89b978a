package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/monthlify/internal/flow"
	"github.com/desertthunder/monthlify/internal/models"
	"github.com/desertthunder/monthlify/internal/services"
	"github.com/desertthunder/monthlify/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	PlaylistListView ViewState = iota
	PreviewView
	PartitionView
	ConfirmView
	MaterializingView
	ResultView
)

// flowKey stores the TUI's results in its private result store.
const flowKey = "tui"

// LoginHint is shown when the saved Spotify token is no longer accepted.
const LoginHint = "Run `monthlify spotify auth` to sign in again."

// Model represents the TUI application state.
type Model struct {
	ctx      context.Context
	view     ViewState
	backend  services.Backend
	flow     *flow.Flow
	store    flow.ResultStore
	progress <-chan tasks.ProgressUpdate
	update   tasks.ProgressUpdate

	width  int
	height int

	playlistList  list.Model
	partitionList list.Model
	trackList     list.Model
	input         textinput.Model
	entering      bool
	spinner       spinner.Model

	playlists []models.SourcePlaylist
	snapshot  flow.Snapshot
	results   []models.MaterializedPlaylist
	listing   *flow.Failure
	loaded    bool
	request   int

	help help.Model
	keys keyMap
}

// NewModel creates a TUI model over backend. progress may be nil; when set it should be the channel the
// backend reports engine progress on.
func NewModel(ctx context.Context, backend services.Backend, progress <-chan tasks.ProgressUpdate) *Model {
	store := flow.NewMemoryResultStore(0)

	input := textinput.New()
	input.Placeholder = "https://open.spotify.com/playlist/..."
	input.CharLimit = 512
	input.Width = 60

	playlistList := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	playlistList.Title = "Your Playlists"

	return &Model{
		ctx:           ctx,
		view:          PlaylistListView,
		backend:       backend,
		flow:          flow.New(backend, store, flowKey),
		store:         store,
		progress:      progress,
		playlistList:  playlistList,
		partitionList: list.New(nil, list.NewDefaultDelegate(), 0, 0),
		trackList:     list.New(nil, list.NewDefaultDelegate(), 0, 0),
		input:         input,
		spinner:       spinner.New(spinner.WithSpinner(spinner.Dot)),
		help:          help.New(),
		keys:          newKeyMap(),
	}
}

// Init fetches the playlist listing and starts listening for progress updates.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.fetchPlaylists(), m.waitForProgress(), m.spinner.Tick)
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.quit) && msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		switch m.view {
		case PlaylistListView:
			return m.handlePlaylistListKeys(msg)
		case PreviewView:
			return m.handlePreviewKeys(msg)
		case PartitionView:
			return m.handlePartitionKeys(msg)
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		case MaterializingView:
			if key.Matches(msg, m.keys.quit) {
				return m, tea.Quit
			}
			return m, nil
		case ResultView:
			return m.handleResultKeys(msg)
		}

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateLists(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgPlaylistsFetched:
		data := msg.data.(playlistsData)
		m.loaded = true
		if data.err != nil {
			failure := flow.Describe(data.err, flow.PhaseListing)
			m.listing = &failure
			return m, nil
		}
		m.listing = nil
		m.playlists = data.playlists
		cmd := m.playlistList.SetItems(playlistItems(data.playlists))
		return m, cmd

	case MsgPreviewLoaded:
		data := msg.data.(stepData)
		if data.request != m.request || errors.Is(data.err, flow.ErrInFlight) {
			return m, nil
		}
		m.snapshot = m.flow.Snapshot()
		if data.step.Redirect == flow.ListingPath {
			m.view = PlaylistListView
			return m, nil
		}
		m.partitionList.Title = fmt.Sprintf("Months in %s", m.sourceName())
		cmd := m.partitionList.SetItems(partitionItems(m.snapshot.Partitions))
		m.partitionList.ResetSelected()
		m.view = PreviewView
		return m, cmd

	case MsgMaterialized:
		data := msg.data.(stepData)
		if errors.Is(data.err, flow.ErrInFlight) {
			return m, nil
		}
		m.snapshot = m.flow.Snapshot()
		if data.step.State == flow.Done {
			results, _, err := m.store.Get(m.ctx, flowKey)
			if err != nil {
				results = m.snapshot.Results
			}
			m.results = results
			m.view = ResultView
			return m, nil
		}
		m.view = PreviewView
		return m, nil

	case MsgProgressUpdate:
		m.update = msg.data.(tasks.ProgressUpdate)
		return m, m.waitForProgress()
	}
	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case PlaylistListView:
		return m.renderPlaylistList()
	case PreviewView:
		return m.renderPreview()
	case PartitionView:
		return m.renderPartition()
	case ConfirmView:
		return m.renderConfirm()
	case MaterializingView:
		return m.renderMaterializing()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) handlePlaylistListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.entering {
		switch msg.Type {
		case tea.KeyEsc:
			m.entering = false
			m.input.Blur()
			m.input.Reset()
			return m, nil
		case tea.KeyEnter:
			value := strings.TrimSpace(m.input.Value())
			m.entering = false
			m.input.Blur()
			m.input.Reset()
			if value == "" {
				return m, nil
			}
			return m.startPreview(value, models.KindURL)
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	if m.playlistList.SettingFilter() {
		var cmd tea.Cmd
		m.playlistList, cmd = m.playlistList.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.reload) && m.listing != nil:
		m.listing = nil
		m.loaded = false
		return m, m.fetchPlaylists()
	case key.Matches(msg, m.keys.url):
		m.entering = true
		return m, m.input.Focus()
	case key.Matches(msg, m.keys.enter):
		if pl, ok := m.playlistList.SelectedItem().(playlistItem); ok {
			return m.startPreview(pl.playlist.ID, models.KindID)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.playlistList, cmd = m.playlistList.Update(msg)
	return m, cmd
}

func (m *Model) handlePreviewKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.snapshot.State == flow.Loading {
		if key.Matches(msg, m.keys.quit) {
			return m, tea.Quit
		}
		if key.Matches(msg, m.keys.back) {
			m.request++
			m.flow.Reset()
			m.snapshot = m.flow.Snapshot()
			m.view = PlaylistListView
		}
		return m, nil
	}

	if m.partitionList.SettingFilter() {
		var cmd tea.Cmd
		m.partitionList, cmd = m.partitionList.Update(msg)
		return m, cmd
	}

	failure := m.snapshot.Failure
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.flow.Reset()
		m.snapshot = m.flow.Snapshot()
		m.view = PlaylistListView
		return m, nil
	case key.Matches(msg, m.keys.reload) && failure != nil && failure.Recovery == flow.RecoverReload:
		src := m.snapshot.Source
		return m.startPreview(src.Value, src.Kind)
	case key.Matches(msg, m.keys.confirm) && m.canConfirm():
		m.view = ConfirmView
		return m, nil
	case key.Matches(msg, m.keys.enter) && len(m.snapshot.Partitions) > 0:
		if item, ok := m.partitionList.SelectedItem().(partitionItem); ok {
			partition, found := m.flow.Partition(item.partition.ID)
			if !found {
				return m, nil
			}
			m.trackList.Title = partition.Name
			cmd := m.trackList.SetItems(trackItems(partition.Tracks))
			m.trackList.ResetSelected()
			m.view = PartitionView
			return m, cmd
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.partitionList, cmd = m.partitionList.Update(msg)
	return m, cmd
}

func (m *Model) handlePartitionKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.trackList.SettingFilter() {
		var cmd tea.Cmd
		m.trackList, cmd = m.trackList.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.view = PreviewView
		return m, nil
	}

	var cmd tea.Cmd
	m.trackList, cmd = m.trackList.Update(msg)
	return m, cmd
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.no), key.Matches(msg, m.keys.back), key.Matches(msg, m.keys.quit):
		m.view = PreviewView
		return m, nil
	case key.Matches(msg, m.keys.yes):
		if !m.canConfirm() {
			m.view = PreviewView
			return m, nil
		}
		m.view = MaterializingView
		m.snapshot.State = flow.Materializing
		m.update = tasks.ProgressUpdate{}
		return m, m.materialize()
	}
	return m, nil
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.restart):
		_ = m.store.Clear(m.ctx, flowKey)
		m.flow.Reset()
		m.snapshot = m.flow.Snapshot()
		m.results = nil
		m.view = PlaylistListView
		return m, nil
	}
	return m, nil
}

func (m *Model) updateLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case PlaylistListView:
		m.playlistList, cmd = m.playlistList.Update(msg)
	case PreviewView:
		m.partitionList, cmd = m.partitionList.Update(msg)
	case PartitionView:
		m.trackList, cmd = m.trackList.Update(msg)
	}
	return m, cmd
}

// canConfirm reports whether the preview can be materialized: it is ready, or its last
// materialization failed and the partitions are kept.
func (m *Model) canConfirm() bool {
	switch m.snapshot.State {
	case flow.Ready:
		return true
	case flow.Failed:
		f := m.snapshot.Failure
		return f != nil && f.Recovery == flow.RecoverConfirm && len(m.snapshot.Partitions) > 0
	default:
		return false
	}
}

func (m *Model) startPreview(identifier string, kind models.IdentifierKind) (tea.Model, tea.Cmd) {
	if m.snapshot.State.Busy() {
		return m, nil
	}
	m.snapshot = flow.Snapshot{State: flow.Loading}
	m.update = tasks.ProgressUpdate{}
	m.view = PreviewView
	m.request++
	return m, m.loadPreview(identifier, string(kind), m.request)
}

func (m *Model) resize() {
	w, h := max(m.width-4, 0), max(m.height-8, 0)
	m.playlistList.SetSize(w, h)
	m.partitionList.SetSize(w, h)
	m.trackList.SetSize(w, h)
}

func (m *Model) sourceName() string {
	src := m.snapshot.Source
	for _, pl := range m.playlists {
		if src.Kind == models.KindID && pl.ID == src.Value {
			return pl.Name
		}
	}
	return src.Value
}

func (m *Model) fetchPlaylists() tea.Cmd {
	return func() tea.Msg {
		playlists, err := m.backend.Playlists(m.ctx)
		return playlistsFetchedMsg(playlists, err)
	}
}

// loadPreview tags its answer with request so answers for abandoned previews are dropped.
func (m *Model) loadPreview(identifier, kind string, request int) tea.Cmd {
	return func() tea.Msg {
		step, err := m.flow.Load(m.ctx, identifier, kind)
		return previewLoadedMsg(step, err, request)
	}
}

func (m *Model) materialize() tea.Cmd {
	return func() tea.Msg {
		step, err := m.flow.Confirm(m.ctx)
		return materializedMsg(step, err)
	}
}

// waitForProgress blocks on the next engine update. It returns nil when there is no progress channel.
func (m *Model) waitForProgress() tea.Cmd {
	if m.progress == nil {
		return nil
	}
	return func() tea.Msg {
		select {
		case update, ok := <-m.progress:
			if !ok {
				return nil
			}
			return progressUpdateMsg(update)
		case <-m.ctx.Done():
			return nil
		}
	}
}

func (m *Model) renderFailure(f *flow.Failure) string {
	var hint string
	switch f.Recovery {
	case flow.RecoverLogin:
		hint = LoginHint
	case flow.RecoverReload:
		hint = "Press r to try again."
	case flow.RecoverConfirm:
		hint = "Your preview is kept. Press c to try again."
	case flow.RecoverBack:
		hint = "Press esc to pick another playlist."
	}
	return fmt.Sprintf("%s\n%s", styles.err.Render(f.Message), styles.help.Render(hint))
}

func (m *Model) renderPlaylistList() string {
	if !m.loaded {
		return fmt.Sprintf("%s Loading playlists...", m.spinner.View())
	}
	if m.listing != nil {
		helpView := m.help.ShortHelpView([]key.Binding{m.keys.reload, m.keys.quit})
		return fmt.Sprintf("%s\n\n%s", m.renderFailure(m.listing), helpView)
	}
	if m.entering {
		title := styles.title.Render("Organize a playlist by URL")
		helpView := m.help.ShortHelpView([]key.Binding{m.keys.enter, m.keys.back})
		return fmt.Sprintf("%s\n%s\n\n%s", title, m.input.View(), helpView)
	}

	helpView := m.help.ShortHelpView([]key.Binding{m.keys.enter, m.keys.url, m.keys.quit})
	return fmt.Sprintf("%s\n\n%s", m.playlistList.View(), helpView)
}

func (m *Model) renderPreview() string {
	switch m.snapshot.State {
	case flow.Loading:
		status := "Loading preview..."
		if m.update.Message != "" {
			status = m.update.Message
		}
		return fmt.Sprintf("%s %s\n\n%s", m.spinner.View(), status, m.help.ShortHelpView([]key.Binding{m.keys.back, m.keys.quit}))
	case flow.Empty:
		title := styles.title.Render(m.sourceName())
		helpView := m.help.ShortHelpView([]key.Binding{m.keys.back, m.keys.quit})
		return fmt.Sprintf("%s\n%s\n\n%s", title, styles.warn.Render("No songs to sort"), helpView)
	case flow.Failed:
		bindings := []key.Binding{m.keys.back, m.keys.quit}
		switch m.snapshot.Failure.Recovery {
		case flow.RecoverReload:
			bindings = append([]key.Binding{m.keys.reload}, bindings...)
		case flow.RecoverConfirm:
			bindings = append([]key.Binding{m.keys.confirm}, bindings...)
		}
		body := m.renderFailure(m.snapshot.Failure)
		if len(m.snapshot.Partitions) > 0 {
			body = fmt.Sprintf("%s\n\n%s", m.partitionList.View(), body)
		}
		return fmt.Sprintf("%s\n\n%s", body, m.help.ShortHelpView(bindings))
	}

	helpView := m.help.ShortHelpView([]key.Binding{m.keys.enter, m.keys.confirm, m.keys.back, m.keys.quit})
	return fmt.Sprintf("%s\n\n%s", m.partitionList.View(), helpView)
}

func (m *Model) renderPartition() string {
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.back, m.keys.quit})
	return fmt.Sprintf("%s\n\n%s", m.trackList.View(), helpView)
}

func (m *Model) renderConfirm() string {
	partitions := m.snapshot.Partitions
	title := styles.title.Render(fmt.Sprintf("Create monthly playlists for '%s'?", m.sourceName()))

	tracks := 0
	for _, p := range partitions {
		tracks += p.TrackCount()
	}
	months := make([]string, 0, len(partitions))
	for _, p := range partitions {
		months = append(months, styles.badge.Render(p.ID))
	}
	info := fmt.Sprintf("\nMonths: %d\nTracks: %d\n\n%s\n", len(partitions), tracks, strings.Join(months, " "))

	helpView := m.help.ShortHelpView([]key.Binding{m.keys.yes, m.keys.no})
	return fmt.Sprintf("%s\n%s\n%s", title, info, helpView)
}

func (m *Model) renderMaterializing() string {
	title := styles.title.Render("Creating Monthly Playlists")

	var phase string
	switch m.update.Phase {
	case tasks.FetchPlaylists:
		phase = "Looking up existing playlists..."
	case tasks.CreatePlaylist, tasks.UpdatePlaylist, tasks.AddTracks, tasks.UploadCover:
		phase = fmt.Sprintf("Writing playlists (%d/%d)", m.update.Step, m.update.Total)
	default:
		phase = "Processing..."
	}

	return fmt.Sprintf("%s\n\n%s %s\n%s\n%s", title, m.spinner.View(), phase, styles.bar(m.update.Step, m.update.Total), m.update.Message)
}

func (m *Model) renderResult() string {
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.restart, m.keys.quit})
	if len(m.results) == 0 {
		return fmt.Sprintf("%s\n\n%s", styles.warn.Render("No playlists found."), helpView)
	}

	var b strings.Builder
	b.WriteString(styles.ok.Render("✓ Playlists processed successfully"))
	b.WriteString("\n")

	created, updated := models.SplitByAction(m.results)
	section := func(heading string, results []models.MaterializedPlaylist) {
		if len(results) == 0 {
			return
		}
		fmt.Fprintf(&b, "\n%s\n", styles.heading(heading))
		for _, r := range results {
			fmt.Fprintf(&b, "  • %s  %s\n", r.Name, styles.help.Render(r.URL))
		}
	}
	section("Newly Created", created)
	section("Updated", updated)

	return fmt.Sprintf("%s\n%s", b.String(), helpView)
}
