package web

import (
	"cmp"
	"slices"
	"strings"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
	"github.com/desertthunder/monthlify/internal/models"
	"github.com/desertthunder/monthlify/internal/shared"
)

// fuzzyThreshold is the minimum Jaro-Winkler similarity of a fuzzy match.
const fuzzyThreshold = 0.85

// FilterPlaylists returns the playlists matching query.
//
// Names and owners containing the query match first, in listing order. When nothing contains it, names
// similar to the query are returned, most similar first. An empty query returns every playlist.
func FilterPlaylists(playlists []models.SourcePlaylist, query string) []models.SourcePlaylist {
	q := shared.NormalizeName(query)
	if q == "" {
		return playlists
	}

	var matches []models.SourcePlaylist
	for _, p := range playlists {
		if strings.Contains(shared.NormalizeName(p.Name), q) || strings.Contains(shared.NormalizeName(p.Owner), q) {
			matches = append(matches, p)
		}
	}
	if len(matches) > 0 {
		return matches
	}

	type scored struct {
		playlist models.SourcePlaylist
		score    float64
	}

	metric := metrics.NewJaroWinkler()
	var candidates []scored
	for _, p := range playlists {
		if score := strutil.Similarity(q, shared.NormalizeName(p.Name), metric); score >= fuzzyThreshold {
			candidates = append(candidates, scored{playlist: p, score: score})
		}
	}
	slices.SortStableFunc(candidates, func(a, b scored) int {
		return cmp.Compare(b.score, a.score)
	})

	for _, c := range candidates {
		matches = append(matches, c.playlist)
	}
	return matches
}
