// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI walks the same steps as the web dashboard:
//  1. [PlaylistListView] : Browse and filter playlists, or paste a playlist URL
//  2. [PreviewView] : Month partitions of the chosen playlist (loading, empty, failed or ready)
//  3. [PartitionView] : Tracks of one month
//  4. [ConfirmView] : Confirm playlist creation
//  5. [MaterializingView] : Follow progress while monthly playlists are written
//  6. [ResultView] : Newly created and updated playlists
//
// The [Model] delegates every state transition to a [flow.Flow], so a preview can't be confirmed twice
// and a late answer for an abandoned preview is dropped. Progress updates arrive on a channel fed by the
// [tasks.PlaylistEngine].
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, y/n, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
