package tasks

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/monthlify/internal/models"
	"github.com/desertthunder/monthlify/internal/services"
	"github.com/desertthunder/monthlify/internal/shared"
)

// PartitionByMonth groups library items by the calendar month they were added in.
//
// Items without an added_at timestamp or without a track are skipped. Partitions are ordered
// chronologically and tracks keep their source order.
func PartitionByMonth(items []services.SpotifyPlaylistTrack) []models.PartitionPreview {
	buckets := map[string][]models.TrackRef{}

	for _, item := range items {
		if item.AddedAt == "" || item.Track == nil || len(item.AddedAt) < 7 {
			continue
		}

		month := item.AddedAt[:7]
		if !models.IsMonthToken(month) {
			continue
		}

		addedAt, err := time.Parse(time.RFC3339, item.AddedAt)
		if err != nil {
			addedAt = time.Time{}
		}

		buckets[month] = append(buckets[month], models.TrackRef{
			ID:      fmt.Sprintf("%s-%d", month, len(buckets[month])),
			Name:    item.Track.Name,
			Artists: item.Track.ArtistNames(),
			AddedAt: addedAt,
			URI:     item.Track.URI,
		})
	}

	months := make([]string, 0, len(buckets))
	for m := range buckets {
		months = append(months, m)
	}
	sort.Strings(months)

	partitions := make([]models.PartitionPreview, 0, len(months))
	for _, m := range months {
		partitions = append(partitions, models.PartitionPreview{ID: m, Name: MonthName(m), Tracks: buckets[m]})
	}
	return partitions
}

// MonthName renders a YYYY-MM token as "January 2023".
func MonthName(token string) string {
	year, month, ok := strings.Cut(token, "-")
	if !ok {
		return token
	}

	m, err := strconv.Atoi(month)
	if err != nil || m < 1 || m > 12 {
		return token
	}
	return time.Month(m).String() + " " + year
}

// ResolvePlaylistID returns the Spotify playlist id named by src.
//
// URLs must point at open.spotify.com/playlist/<id>; spotify:playlist:<id> URIs are also accepted.
func ResolvePlaylistID(src models.SourceIdentifier) (string, error) {
	if err := src.Validate(); err != nil {
		return "", err
	}

	value := strings.TrimSpace(src.Value)
	if src.Kind == models.KindID {
		return value, nil
	}

	if id, ok := strings.CutPrefix(value, "spotify:playlist:"); ok && id != "" {
		return id, nil
	}

	u, err := url.Parse(value)
	if err != nil || u.Host != "open.spotify.com" {
		return "", shared.ErrInvalidURL
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	// links copied from localized clients carry a leading "intl-xx" segment
	if len(segments) > 0 && strings.HasPrefix(segments[0], "intl-") {
		segments = segments[1:]
	}
	if len(segments) != 2 || segments[0] != "playlist" || segments[1] == "" {
		return "", shared.ErrInvalidURL
	}
	return segments[1], nil
}
