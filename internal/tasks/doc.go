// Package tasks implements the month playlist operations.
//
// # Preview
//
// [PlaylistEngine.Preview] resolves a [models.SourceIdentifier] to a playlist id ([ResolvePlaylistID]),
// fetches every item of the playlist (or of the liked songs) and groups them with [PartitionByMonth]:
// one partition per YYYY-MM prefix of added_at, chronologically ordered, named "January 2023".
//
// # Materialize
//
// [PlaylistEngine.Materialize] turns partitions into playlists. A playlist owned by the user with the partition's
// name is cleared and refilled ("updated"); otherwise a private playlist is created ("created"). Tracks are added
// in batches of 100, a cover is rendered and uploaded, and the outcome is recorded. Cover and recording failures
// are logged and skipped; any other failure stops the run and returns the results so far.
//
// # Progress
//
// Both operations emit [ProgressUpdate] values on an optional channel. Sends never block; when the channel is
// full the update is dropped.
//
// # Backend adapter
//
// [LibraryBackend] exposes the engine with the same method set as the HTTP backend client, so the API handlers,
// the CLI and the TUI share one code path.
package tasks
