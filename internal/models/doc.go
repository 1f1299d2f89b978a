// Package models defines domain entities and persistence interfaces for Monthlify.
//
// The package contains two categories of types:
//
// 1. Data Transfer Objects (DTOs): plain structs exchanged with Spotify and between the backend and frontend
//   - [SourceIdentifier] : the playlist a preview is built from, by id or by URL
//   - [SourcePlaylist] : playlist metadata shown in the listing
//   - [PartitionPreview] : one calendar month of tracks
//   - [TrackRef] : a single track inside a partition
//   - [MaterializedPlaylist] : the created or updated playlist for one partition
//
// 2. Persistent Entities: database-backed models with lifecycle management
//   - [Session] : a backend session holding the user's Spotify tokens
//   - [PlaylistRecord] : history of every materialized month playlist
//
// All persistent entities implement the Model interface providing ID generation, timestamps, validation, and soft delete support.
// The Repository[T] interface defines standard CRUD operations for database access.
package models
