package models

import (
	"errors"
	"fmt"
	"regexp"
)

var monthToken = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// PlaylistRecord is the stored outcome of materializing one month playlist.
type PlaylistRecord struct {
	base
	userID     string
	monthID    string
	playlistID string
	name       string
	url        string
	action     PlaylistAction
	trackCount int
}

// NewPlaylistRecord builds a record for userID from a materialized partition.
func NewPlaylistRecord(sequence int, userID, monthID string, p MaterializedPlaylist, trackCount int) *PlaylistRecord {
	return &PlaylistRecord{
		base:       newBase(sequence),
		userID:     userID,
		monthID:    monthID,
		playlistID: p.ID,
		name:       p.Name,
		url:        p.URL,
		action:     p.Action,
		trackCount: trackCount,
	}
}

func (r *PlaylistRecord) UserID() string             { return r.userID }
func (r *PlaylistRecord) MonthID() string            { return r.monthID }
func (r *PlaylistRecord) PlaylistID() string         { return r.playlistID }
func (r *PlaylistRecord) Name() string               { return r.name }
func (r *PlaylistRecord) URL() string                { return r.url }
func (r *PlaylistRecord) Action() PlaylistAction     { return r.action }
func (r *PlaylistRecord) TrackCount() int            { return r.trackCount }
func (r *PlaylistRecord) SetTrackCount(n int)        { r.trackCount = n }
func (r *PlaylistRecord) SetAction(a PlaylistAction) { r.action = a }

// Playlist returns the record as the DTO the API returns.
func (r *PlaylistRecord) Playlist() MaterializedPlaylist {
	return MaterializedPlaylist{Name: r.name, ID: r.playlistID, URL: r.url, Action: r.action}
}

// Validate checks the month token, the playlist id and the action.
func (r *PlaylistRecord) Validate() error {
	if r.userID == "" {
		return errors.New("user id is required")
	}
	if r.playlistID == "" {
		return errors.New("playlist id is required")
	}
	if !IsMonthToken(r.monthID) {
		return fmt.Errorf("invalid month id %q", r.monthID)
	}
	if r.action != ActionCreated && r.action != ActionUpdated {
		return fmt.Errorf("invalid action %q", r.action)
	}
	return nil
}

// IsMonthToken reports whether s is a YYYY-MM month token.
func IsMonthToken(s string) bool {
	return monthToken.MatchString(s)
}
