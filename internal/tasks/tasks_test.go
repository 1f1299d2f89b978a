package tasks

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/desertthunder/monthlify/internal/models"
	"github.com/desertthunder/monthlify/internal/services"
	"github.com/desertthunder/monthlify/internal/shared"
	tu "github.com/desertthunder/monthlify/internal/testing"
	"github.com/google/go-cmp/cmp"
)

type stubCovers struct {
	err   error
	calls []string
}

func (s *stubCovers) Render(month string) ([]byte, error) {
	s.calls = append(s.calls, month)
	return []byte("jpeg:" + month), s.err
}

type stubRecorder struct {
	err     error
	records []models.MaterializedPlaylist
}

func (s *stubRecorder) Record(userID string, p models.PartitionPreview, result models.MaterializedPlaylist) error {
	s.records = append(s.records, result)
	return s.err
}

func TestPartitionByMonth(t *testing.T) {
	t.Run("Groups Chronologically", func(t *testing.T) {
		items := []services.SpotifyPlaylistTrack{
			tu.Item("2023-02-10T08:00:00Z", "Song C", "Artist Z"),
			tu.Item("2023-01-05T10:00:00Z", "Song A", "Artist X"),
			tu.Item("2023-01-20T12:00:00Z", "Song B", "Artist X", "Artist Y"),
		}

		got := PartitionByMonth(items)

		want := []models.PartitionPreview{
			{
				ID:   "2023-01",
				Name: "January 2023",
				Tracks: []models.TrackRef{
					{ID: "2023-01-0", Name: "Song A", Artists: "Artist X", AddedAt: time.Date(2023, 1, 5, 10, 0, 0, 0, time.UTC), URI: "spotify:track:song-a"},
					{ID: "2023-01-1", Name: "Song B", Artists: "Artist X, Artist Y", AddedAt: time.Date(2023, 1, 20, 12, 0, 0, 0, time.UTC), URI: "spotify:track:song-b"},
				},
			},
			{
				ID:   "2023-02",
				Name: "February 2023",
				Tracks: []models.TrackRef{
					{ID: "2023-02-0", Name: "Song C", Artists: "Artist Z", AddedAt: time.Date(2023, 2, 10, 8, 0, 0, 0, time.UTC), URI: "spotify:track:song-c"},
				},
			},
		}

		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("PartitionByMonth() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("Skips Items Without Date Or Track", func(t *testing.T) {
		items := []services.SpotifyPlaylistTrack{
			{AddedAt: "", Track: &services.SpotifyTrack{Name: "No Date"}},
			{AddedAt: "2023-01-05T10:00:00Z", Track: nil},
			{AddedAt: "garbage", Track: &services.SpotifyTrack{Name: "Bad Date"}},
			tu.Item("2023-03-01T00:00:00Z", "Kept"),
		}

		got := PartitionByMonth(items)
		if len(got) != 1 || got[0].TrackCount() != 1 || got[0].Tracks[0].Name != "Kept" {
			t.Errorf("unexpected partitions %+v", got)
		}
	})

	t.Run("Empty Input", func(t *testing.T) {
		got := PartitionByMonth(nil)
		if got == nil || len(got) != 0 {
			t.Errorf("expected empty non-nil slice, got %#v", got)
		}
	})
}

func TestMonthName(t *testing.T) {
	tc := []struct {
		token string
		want  string
	}{
		{"2023-01", "January 2023"},
		{"1999-12", "December 1999"},
		{"2023-13", "2023-13"},
		{"oops", "oops"},
	}

	for _, tt := range tc {
		t.Run(tt.token, func(t *testing.T) {
			if got := MonthName(tt.token); got != tt.want {
				t.Errorf("MonthName(%q) = %q, want %q", tt.token, got, tt.want)
			}
		})
	}
}

func TestResolvePlaylistID(t *testing.T) {
	tc := []struct {
		name    string
		src     models.SourceIdentifier
		want    string
		wantErr error
	}{
		{name: "plain id", src: models.SourceIdentifier{Value: "37i9dQZF1", Kind: models.KindID}, want: "37i9dQZF1"},
		{name: "liked songs", src: models.SourceIdentifier{Value: "liked-songs", Kind: models.KindID}, want: models.LikedSongsID},
		{name: "url", src: models.SourceIdentifier{Value: "https://open.spotify.com/playlist/abc123", Kind: models.KindURL}, want: "abc123"},
		{name: "url with query", src: models.SourceIdentifier{Value: "https://open.spotify.com/playlist/abc123?si=xyz", Kind: models.KindURL}, want: "abc123"},
		{name: "localized url", src: models.SourceIdentifier{Value: "https://open.spotify.com/intl-de/playlist/abc123", Kind: models.KindURL}, want: "abc123"},
		{name: "uri", src: models.SourceIdentifier{Value: "spotify:playlist:abc123", Kind: models.KindURL}, want: "abc123"},
		{name: "album url", src: models.SourceIdentifier{Value: "https://open.spotify.com/album/abc123", Kind: models.KindURL}, wantErr: shared.ErrInvalidURL},
		{name: "other host", src: models.SourceIdentifier{Value: "https://example.com/playlist/abc123", Kind: models.KindURL}, wantErr: shared.ErrInvalidURL},
		{name: "missing id", src: models.SourceIdentifier{Value: "https://open.spotify.com/playlist/", Kind: models.KindURL}, wantErr: shared.ErrInvalidURL},
		{name: "empty", src: models.SourceIdentifier{Value: "", Kind: models.KindID}, wantErr: shared.ErrInvalidSource},
		{name: "bad kind", src: models.SourceIdentifier{Value: "abc", Kind: "name"}, wantErr: shared.ErrInvalidSource},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolvePlaylistID(tt.src)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ResolvePlaylistID() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPlaylistEngine(t *testing.T) {
	src := models.SourceIdentifier{Value: "src", Kind: models.KindID}

	t.Run("Preview", func(t *testing.T) {
		t.Run("From Playlist", func(t *testing.T) {
			lib := tu.NewFakeLibrary()
			lib.Items["src"] = []services.SpotifyPlaylistTrack{tu.Item("2023-01-05T10:00:00Z", "Song A", "Artist X")}

			progress := make(chan ProgressUpdate, 10)
			partitions, err := NewPlaylistEngine(nil, nil, nil).Preview(context.Background(), lib, src, progress)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if len(partitions) != 1 || partitions[0].Name != "January 2023" {
				t.Errorf("unexpected partitions %+v", partitions)
			}
			if len(progress) != 2 {
				t.Errorf("expected 2 progress updates, got %d", len(progress))
			}
		})

		t.Run("From Liked Songs", func(t *testing.T) {
			lib := tu.NewFakeLibrary()
			lib.Liked = []services.SpotifyPlaylistTrack{tu.Item("2022-12-31T23:59:59Z", "Late")}

			partitions, err := NewPlaylistEngine(nil, nil, nil).Preview(context.Background(), lib, models.SourceIdentifier{Value: models.LikedSongsID, Kind: models.KindID}, nil)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(partitions) != 1 || partitions[0].ID != "2022-12" {
				t.Errorf("unexpected partitions %+v", partitions)
			}
			if lib.CallCount("PlaylistItems") != 0 {
				t.Error("liked songs should not fetch playlist items")
			}
		})

		t.Run("Invalid URL Makes No Call", func(t *testing.T) {
			lib := tu.NewFakeLibrary()
			_, err := NewPlaylistEngine(nil, nil, nil).Preview(context.Background(), lib, models.SourceIdentifier{Value: "https://example.com", Kind: models.KindURL}, nil)
			if !errors.Is(err, shared.ErrInvalidURL) {
				t.Fatalf("expected ErrInvalidURL, got %v", err)
			}
			if len(lib.Calls) != 0 {
				t.Errorf("expected no library calls, got %v", lib.Calls)
			}
		})

		t.Run("Upstream Failure", func(t *testing.T) {
			lib := tu.NewFakeLibrary()
			lib.FailOn["PlaylistItems"] = shared.ErrTokenExpired

			_, err := NewPlaylistEngine(nil, nil, nil).Preview(context.Background(), lib, src, nil)
			if !errors.Is(err, shared.ErrTokenExpired) {
				t.Fatalf("expected wrapped ErrTokenExpired, got %v", err)
			}
		})

		t.Run("Nil Library", func(t *testing.T) {
			_, err := NewPlaylistEngine(nil, nil, nil).Preview(context.Background(), nil, src, nil)
			if !errors.Is(err, shared.ErrServiceUnavailable) {
				t.Fatalf("expected ErrServiceUnavailable, got %v", err)
			}
		})
	})

	t.Run("Materialize", func(t *testing.T) {
		partitions := func() []models.PartitionPreview {
			jan := models.PartitionPreview{ID: "2023-01", Name: "January 2023"}
			for i := range 150 {
				jan.Tracks = append(jan.Tracks, models.TrackRef{ID: fmt.Sprintf("2023-01-%d", i), URI: fmt.Sprintf("spotify:track:%d", i)})
			}
			jan.Tracks = append(jan.Tracks, models.TrackRef{ID: "2023-01-150", Name: "local file"})

			feb := models.PartitionPreview{ID: "2023-02", Name: "February 2023", Tracks: []models.TrackRef{{ID: "2023-02-0", URI: "spotify:track:f"}}}
			return []models.PartitionPreview{jan, feb}
		}

		t.Run("Creates And Updates", func(t *testing.T) {
			lib := tu.NewFakeLibrary()
			lib.Lists = []models.SourcePlaylist{
				{ID: "followed", Name: "February 2023", OwnerID: "someone-else"},
				{ID: "mine", Name: "February 2023", OwnerID: "owner", URL: "https://open.spotify.com/playlist/mine"},
			}
			covers := &stubCovers{}
			recorder := &stubRecorder{}

			results, err := NewPlaylistEngine(covers, recorder, nil).Materialize(context.Background(), lib, src, partitions(), nil)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			want := []models.MaterializedPlaylist{
				{Name: "January 2023", ID: "created-3", URL: "https://open.spotify.com/playlist/created-3", Action: models.ActionCreated},
				{Name: "February 2023", ID: "mine", URL: "https://open.spotify.com/playlist/mine", Action: models.ActionUpdated},
			}
			if diff := cmp.Diff(want, results); diff != "" {
				t.Errorf("results mismatch (-want +got):\n%s", diff)
			}

			if batches := lib.Added["created-3"]; len(batches) != 2 || len(batches[0]) != 100 || len(batches[1]) != 50 {
				t.Errorf("expected batches of 100 and 50, got %d batches", len(batches))
			}
			if cleared, ok := lib.Replaced["mine"]; !ok || len(cleared) != 0 {
				t.Errorf("expected owned playlist to be cleared, got %v", cleared)
			}
			if _, ok := lib.Replaced["followed"]; ok {
				t.Error("playlists owned by others must not be touched")
			}
			if diff := cmp.Diff([]string{"2023-01", "2023-02"}, covers.calls); diff != "" {
				t.Errorf("cover renders mismatch (-want +got):\n%s", diff)
			}
			if len(lib.Covers) != 2 {
				t.Errorf("expected 2 uploaded covers, got %d", len(lib.Covers))
			}
			if diff := cmp.Diff(want, recorder.records); diff != "" {
				t.Errorf("records mismatch (-want +got):\n%s", diff)
			}
		})

		t.Run("Cover And Record Failures Are Not Fatal", func(t *testing.T) {
			lib := tu.NewFakeLibrary()
			lib.FailOn["UploadCover"] = errors.New("image too large")

			engine := NewPlaylistEngine(&stubCovers{}, &stubRecorder{err: errors.New("disk full")}, nil)
			results, err := engine.Materialize(context.Background(), lib, src, partitions(), nil)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(results) != 2 {
				t.Errorf("expected 2 results, got %d", len(results))
			}
		})

		t.Run("Upstream Failure Returns Partial Results", func(t *testing.T) {
			lib := tu.NewFakeLibrary()
			lib.Lists = []models.SourcePlaylist{{ID: "mine", Name: "February 2023", OwnerID: "owner"}}
			lib.FailOn["ReplaceItems"] = shared.ErrAPIRequest

			results, err := NewPlaylistEngine(nil, nil, nil).Materialize(context.Background(), lib, src, partitions(), nil)
			if !errors.Is(err, shared.ErrAPIRequest) {
				t.Fatalf("expected ErrAPIRequest, got %v", err)
			}
			if len(results) != 1 || results[0].Name != "January 2023" {
				t.Errorf("expected the first partition to be reported, got %+v", results)
			}
		})

		t.Run("Validation", func(t *testing.T) {
			lib := tu.NewFakeLibrary()
			engine := NewPlaylistEngine(nil, nil, nil)

			if _, err := engine.Materialize(context.Background(), lib, src, nil, nil); !errors.Is(err, shared.ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput for no partitions, got %v", err)
			}
			if _, err := engine.Materialize(context.Background(), lib, models.SourceIdentifier{}, partitions(), nil); !errors.Is(err, shared.ErrInvalidSource) {
				t.Errorf("expected ErrInvalidSource, got %v", err)
			}
			if _, err := engine.Materialize(context.Background(), lib, src, []models.PartitionPreview{{ID: "2023-01"}}, nil); !errors.Is(err, shared.ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput for unnamed partition, got %v", err)
			}
			if len(lib.Calls) != 0 {
				t.Errorf("validation failures should not call the library, got %v", lib.Calls)
			}
		})

		t.Run("Progress Never Blocks", func(t *testing.T) {
			lib := tu.NewFakeLibrary()
			progress := make(chan ProgressUpdate)

			done := make(chan error, 1)
			go func() {
				_, err := NewPlaylistEngine(nil, nil, nil).Materialize(context.Background(), lib, src, partitions(), progress)
				done <- err
			}()

			select {
			case err := <-done:
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
			case <-time.After(2 * time.Second):
				t.Fatal("materialize blocked on an unread progress channel")
			}
		})
	})
}

func TestLibraryBackend(t *testing.T) {
	lib := tu.NewFakeLibrary()
	lib.Lists = []models.SourcePlaylist{{ID: "p1", Name: "Road Trip", Owner: "Owner", OwnerID: "owner", TrackCount: 4}}
	lib.Liked = []services.SpotifyPlaylistTrack{tu.Item("2023-01-05T10:00:00Z", "Song A"), tu.Item("2023-02-05T10:00:00Z", "Song B")}

	backend := NewLibraryBackend(NewPlaylistEngine(nil, nil, nil), lib)

	t.Run("Playlists Starts With Liked Songs", func(t *testing.T) {
		playlists, err := backend.Playlists(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(playlists) != 2 {
			t.Fatalf("expected 2 playlists, got %d", len(playlists))
		}
		liked := playlists[0]
		if liked.ID != models.LikedSongsID || liked.Name != "Liked Songs" || liked.TrackCount != 2 || liked.Owner != "Owner" {
			t.Errorf("unexpected liked songs entry %+v", liked)
		}
	})

	t.Run("Playlists Propagates Errors", func(t *testing.T) {
		failing := tu.NewFakeLibrary()
		failing.FailOn["SavedTracksTotal"] = shared.ErrTokenExpired

		_, err := NewLibraryBackend(NewPlaylistEngine(nil, nil, nil), failing).Playlists(context.Background())
		if !errors.Is(err, shared.ErrTokenExpired) {
			t.Fatalf("expected ErrTokenExpired, got %v", err)
		}
	})

	t.Run("Preview And Create", func(t *testing.T) {
		liked := models.SourceIdentifier{Value: models.LikedSongsID, Kind: models.KindID}

		partitions, err := backend.Preview(context.Background(), liked)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(partitions) != 2 {
			t.Fatalf("expected 2 partitions, got %d", len(partitions))
		}

		results, err := backend.CreateMonthlyPlaylists(context.Background(), liked, partitions)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		created, updated := models.SplitByAction(results)
		if len(created) != 2 || len(updated) != 0 {
			t.Errorf("expected 2 created playlists, got %+v", results)
		}
	})
	t.Run("WithProgress Reports Updates", func(t *testing.T) {
		progress := make(chan ProgressUpdate, 64)
		reporting := backend.WithProgress(progress)

		liked := models.SourceIdentifier{Value: models.LikedSongsID, Kind: models.KindID}
		if _, err := reporting.Preview(context.Background(), liked); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(progress) == 0 {
			t.Error("expected progress updates")
		}
		if backend.progress != nil {
			t.Error("expected original backend to stay silent")
		}
	})
}
