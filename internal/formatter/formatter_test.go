package formatter

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/monthlify/internal/covers"
	"github.com/desertthunder/monthlify/internal/models"
	th "github.com/desertthunder/monthlify/internal/testing"
	"github.com/google/go-cmp/cmp"
)

func samplePartitions() []models.PartitionPreview {
	jan := time.Date(2023, 1, 5, 10, 0, 0, 0, time.UTC)
	return []models.PartitionPreview{
		{ID: "2023-01", Name: "January 2023", Tracks: []models.TrackRef{
			{ID: "2023-01-0", Name: "Song One", Artists: "Artist One", AddedAt: jan, URI: "spotify:track:1"},
			{ID: "2023-01-1", Name: "Song Two", Artists: "Artist Two, Guest", AddedAt: jan.AddDate(0, 0, 3), URI: "spotify:track:2"},
		}},
		{ID: "2023-03", Name: "March 2023", Tracks: []models.TrackRef{
			{ID: "2023-03-0", Name: "Local Demo", AddedAt: jan.AddDate(0, 2, 0)},
		}},
	}
}

type failingCovers struct{}

func (failingCovers) Render(string) ([]byte, error) { return nil, errors.New("no fonts") }

func TestPreviewRenderers(t *testing.T) {
	t.Run("PreviewToText", func(t *testing.T) {
		output := string(PreviewToText("Liked Songs", samplePartitions()))

		for _, want := range []string{
			"Playlist: Liked Songs",
			"Months: 2",
			"January 2023 (2 songs)",
			"2. Song Two — Artist Two, Guest",
			"March 2023 (1 song)",
			"1. Local Demo\n",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("text missing %q, got:\n%s", want, output)
			}
		}
	})

	t.Run("PreviewToText Empty", func(t *testing.T) {
		output := string(PreviewToText("Road Trip", nil))
		if !strings.Contains(output, "No songs to sort") {
			t.Errorf("expected empty message, got %q", output)
		}
	})

	t.Run("PreviewToMarkdown", func(t *testing.T) {
		t.Run("without covers", func(t *testing.T) {
			output := string(PreviewToMarkdown("Liked Songs", samplePartitions(), nil))

			for _, want := range []string{
				"# Liked Songs",
				"**Months**: 2",
				"**Tracks**: 3",
				"## January 2023",
				"1. Song One — Artist One [2023-01-05]",
				"## March 2023",
			} {
				if !strings.Contains(output, want) {
					t.Errorf("markdown missing %q, got:\n%s", want, output)
				}
			}
			if strings.Contains(output, "![") {
				t.Errorf("expected no images, got:\n%s", output)
			}
		})

		t.Run("with covers", func(t *testing.T) {
			output := string(PreviewToMarkdown("Liked Songs", samplePartitions(), map[string]string{"2023-01": "2023-01.jpg"}))

			if !strings.Contains(output, "![January 2023](2023-01.jpg)") {
				t.Errorf("markdown missing cover reference, got:\n%s", output)
			}
			if strings.Contains(output, "![March 2023]") {
				t.Errorf("expected no cover for March, got:\n%s", output)
			}
		})
	})

	t.Run("PreviewToCSV", func(t *testing.T) {
		data, err := PreviewToCSV(samplePartitions())
		if err != nil {
			t.Fatalf("PreviewToCSV failed: %v", err)
		}

		lines := strings.Split(strings.TrimSpace(string(data)), "\n")
		if len(lines) != 4 {
			t.Fatalf("expected header and 3 rows, got %d lines", len(lines))
		}
		if lines[0] != "Month,Position,Name,Artists,Added,URI" {
			t.Errorf("unexpected header %q", lines[0])
		}
		if lines[2] != `2023-01,2,Song Two,"Artist Two, Guest",2023-01-08T10:00:00Z,spotify:track:2` {
			t.Errorf("unexpected row %q", lines[2])
		}
		if !strings.HasPrefix(lines[3], "2023-03,1,Local Demo,,") {
			t.Errorf("unexpected row %q", lines[3])
		}
	})
}

func TestResultRenderers(t *testing.T) {
	results := []models.MaterializedPlaylist{
		{Name: "January 2023", ID: "a", URL: "https://open.spotify.com/playlist/a", Action: models.ActionUpdated},
		{Name: "March 2023", ID: "b", URL: "https://open.spotify.com/playlist/b", Action: models.ActionCreated},
	}

	t.Run("ResultsToText", func(t *testing.T) {
		output := string(ResultsToText(results))

		created := strings.Index(output, "Newly Created:")
		updated := strings.Index(output, "Updated:")
		if created < 0 || updated < 0 || created > updated {
			t.Fatalf("expected created section before updated, got:\n%s", output)
		}
		if !strings.Contains(output, "March 2023  https://open.spotify.com/playlist/b") {
			t.Errorf("missing created playlist, got:\n%s", output)
		}
	})

	t.Run("ResultsToText Empty", func(t *testing.T) {
		if output := string(ResultsToText(nil)); output != "No playlists found.\n" {
			t.Errorf("unexpected output %q", output)
		}
	})

	t.Run("PlaylistsToText", func(t *testing.T) {
		output := string(PlaylistsToText([]models.SourcePlaylist{
			{ID: models.LikedSongsID, Name: "Liked Songs", Owner: "Owner", TrackCount: 12},
			{ID: "p1", Name: "Road Trip", Owner: "Friend", TrackCount: 1},
		}))

		if !strings.Contains(output, "Liked Songs (Owner, 12 songs)") {
			t.Errorf("missing liked songs line, got:\n%s", output)
		}
		if !strings.Contains(output, "Road Trip (Friend, 1 song)") {
			t.Errorf("missing playlist line, got:\n%s", output)
		}
	})

	t.Run("ToJSON", func(t *testing.T) {
		data, err := ToJSON(results, true)
		if err != nil {
			t.Fatalf("ToJSON failed: %v", err)
		}
		if !strings.Contains(string(data), "\n  {") {
			t.Errorf("expected indented JSON, got %s", data)
		}

		var decoded []models.MaterializedPlaylist
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if diff := cmp.Diff(results, decoded); diff != "" {
			t.Errorf("round trip mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestWriters(t *testing.T) {
	t.Run("WriteMarkdownPreview", func(t *testing.T) {
		t.Run("WithCovers", func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), "liked")

			result, err := WriteMarkdownPreview("Liked Songs", samplePartitions(), dir, covers.NewRenderer())
			if err != nil {
				t.Fatalf("WriteMarkdownPreview failed: %v", err)
			}

			th.AssertFileExists(t, result.Directory)
			if len(result.Covers) != 2 {
				t.Fatalf("expected 2 covers, got %v", result.Covers)
			}
			for _, path := range result.Covers {
				th.AssertFileExists(t, path)
			}

			content := th.MustReadFile(t, filepath.Join(dir, "README.md"))
			if !strings.Contains(content, "![March 2023](2023-03.jpg)") {
				t.Errorf("README missing cover link, got:\n%s", content)
			}
		})

		t.Run("CoverFailuresAreSkipped", func(t *testing.T) {
			dir := t.TempDir()

			result, err := WriteMarkdownPreview("Liked Songs", samplePartitions(), dir, failingCovers{})
			if err != nil {
				t.Fatalf("WriteMarkdownPreview failed: %v", err)
			}
			if len(result.Covers) != 0 || len(result.Files) != 1 {
				t.Errorf("expected only the README, got %+v", result)
			}
		})

		t.Run("WithDefaultDirectory", func(t *testing.T) {
			tempDir := t.TempDir()
			originalDir := th.MustGetwd(t)
			th.MustChdir(t, tempDir)
			defer th.MustChdir(t, originalDir)

			result, err := WriteMarkdownPreview("Liked Songs", samplePartitions(), "", nil)
			if err != nil {
				t.Fatalf("WriteMarkdownPreview failed: %v", err)
			}
			if result.Directory != "preview" {
				t.Errorf("expected default directory, got %q", result.Directory)
			}
			th.AssertFileExists(t, "preview/README.md")
		})
	})

	t.Run("WriteCSVPreview", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "tracks.csv")

		written, err := WriteCSVPreview(samplePartitions(), path)
		if err != nil {
			t.Fatalf("WriteCSVPreview failed: %v", err)
		}
		if written != path {
			t.Errorf("expected %q, got %q", path, written)
		}
		if content := th.MustReadFile(t, path); !strings.HasPrefix(content, "Month,Position") {
			t.Errorf("unexpected content %q", content)
		}
	})
}
