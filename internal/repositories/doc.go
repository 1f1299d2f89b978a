// Package repositories implements SQLite persistence for all domain entities.
//
// Each repository handles CRUD operations with atomic sequence generation for human-readable ordering.
// All repositories support soft deletes via deleted_at timestamps and exclude deleted records from queries by default.
//
// Key Implementations:
//   - [SessionRepository] : backend sessions keyed by the session cookie, with expiry
//   - [PlaylistRecordRepository] : history of materialized month playlists; its Record method is the
//     engine's recorder
//
// Sequence numbers provide stable, human-readable ordering (e.g., session #42, record #15) independent of UUIDs and creation timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
