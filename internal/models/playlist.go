package models

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/desertthunder/monthlify/internal/shared"
)

// IdentifierKind tags how a [SourceIdentifier] names its playlist.
type IdentifierKind string

const (
	KindID  IdentifierKind = "id"
	KindURL IdentifierKind = "url"
)

// LikedSongsID is the pseudo playlist id that selects the user's saved tracks.
const LikedSongsID = "liked-songs"

// Valid reports whether k is a supported tag.
func (k IdentifierKind) Valid() bool {
	return k == KindID || k == KindURL
}

// SourceIdentifier names the playlist a preview is built from.
//
// The JSON shape matches the request bodies of the preview and materialize endpoints.
type SourceIdentifier struct {
	Value string         `json:"identifier"`
	Kind  IdentifierKind `json:"type"`
}

// NewSourceIdentifier validates value and kind. The value is trimmed.
func NewSourceIdentifier(value, kind string) (SourceIdentifier, error) {
	src := SourceIdentifier{Value: strings.TrimSpace(value), Kind: IdentifierKind(strings.TrimSpace(kind))}
	if err := src.Validate(); err != nil {
		return SourceIdentifier{}, err
	}
	return src, nil
}

// Validate checks the value is non-empty and the tag is supported.
func (s SourceIdentifier) Validate() error {
	if strings.TrimSpace(s.Value) == "" {
		return fmt.Errorf("%w: identifier is required", shared.ErrInvalidSource)
	}
	if !s.Kind.Valid() {
		return fmt.Errorf("%w: unsupported type %q", shared.ErrInvalidSource, s.Kind)
	}
	return nil
}

// Query returns the identifier as URL query parameters (identifier, type).
func (s SourceIdentifier) Query() string {
	return url.Values{"identifier": {s.Value}, "type": {string(s.Kind)}}.Encode()
}

func (s SourceIdentifier) String() string {
	return fmt.Sprintf("%s:%s", s.Kind, s.Value)
}

// SourcePlaylist is a playlist the user can organize.
type SourcePlaylist struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Owner      string `json:"owner"`
	TrackCount int    `json:"track_count"`
	ImageURL   string `json:"image_url"`
	OwnerID    string `json:"-"`
	URL        string `json:"-"`
}

// Image is a Spotify image reference.
type Image struct {
	URL    string `json:"url"`
	Height int    `json:"height,omitempty"`
	Width  int    `json:"width,omitempty"`
}

// UserProfile is the signed-in Spotify user.
type UserProfile struct {
	ID          string  `json:"id"`
	DisplayName string  `json:"display_name"`
	Images      []Image `json:"images"`
}

// Name returns the display name, falling back to the user id.
func (u UserProfile) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.ID
}

// TrackRef is one track of a [PartitionPreview].
type TrackRef struct {
	ID      string    `json:"id"`
	Name    string    `json:"name"`
	Artists string    `json:"artists"`
	AddedAt time.Time `json:"added_at"`
	URI     string    `json:"uri,omitempty"`
}

// Label renders the track as "Name — Artists".
func (t TrackRef) Label() string {
	if t.Artists == "" {
		return t.Name
	}
	return t.Name + " — " + t.Artists
}

// PartitionPreview is one calendar month of tracks.
//
// ID is the YYYY-MM token, Name the human form ("January 2023").
type PartitionPreview struct {
	ID     string     `json:"id"`
	Name   string     `json:"name"`
	Tracks []TrackRef `json:"tracks"`
}

// TrackCount is the number of tracks shown for the partition.
func (p PartitionPreview) TrackCount() int {
	return len(p.Tracks)
}

// URIs returns the track URIs that can be added to a playlist, skipping local files without one.
func (p PartitionPreview) URIs() []string {
	uris := make([]string, 0, len(p.Tracks))
	for _, t := range p.Tracks {
		if t.URI != "" {
			uris = append(uris, t.URI)
		}
	}
	return uris
}

// PlaylistAction tags whether materialization created or reused a playlist.
type PlaylistAction string

const (
	ActionCreated PlaylistAction = "created"
	ActionUpdated PlaylistAction = "updated"
)

// MaterializedPlaylist is the outcome of materializing one partition.
type MaterializedPlaylist struct {
	Name   string         `json:"name"`
	ID     string         `json:"id"`
	URL    string         `json:"url"`
	Action PlaylistAction `json:"action"`
}

// SplitByAction separates results into created and updated, preserving order.
func SplitByAction(results []MaterializedPlaylist) (created, updated []MaterializedPlaylist) {
	for _, r := range results {
		switch r.Action {
		case ActionCreated:
			created = append(created, r)
		case ActionUpdated:
			updated = append(updated, r)
		}
	}
	return created, updated
}
