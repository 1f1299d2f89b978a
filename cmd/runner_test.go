package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/monthlify/internal/models"
	"github.com/desertthunder/monthlify/internal/services"
	"github.com/desertthunder/monthlify/internal/shared"
	tu "github.com/desertthunder/monthlify/internal/testing"
	"github.com/google/go-cmp/cmp"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

func newLibrary() *tu.FakeLibrary {
	lib := tu.NewFakeLibrary()
	lib.Lists = []models.SourcePlaylist{
		{ID: "p1", Name: "Road Trip", Owner: "Owner", OwnerID: "owner", TrackCount: 2},
		{ID: "p2", Name: "Focus", Owner: "Someone", OwnerID: "someone", TrackCount: 0},
	}
	lib.Liked = []services.SpotifyPlaylistTrack{
		tu.Item("2023-01-05T10:00:00Z", "Song A", "Artist A"),
		tu.Item("2023-02-10T10:00:00Z", "Song B", "Artist B"),
		tu.Item("2023-01-20T10:00:00Z", "Song C", "Artist C"),
	}
	lib.Items["p1"] = []services.SpotifyPlaylistTrack{
		tu.Item("2022-12-31T23:00:00Z", "Song D", "Artist D"),
	}
	return lib
}

func newTestRunner(lib *tu.FakeLibrary, output *bytes.Buffer, input string) *Runner {
	config := shared.DefaultConfig()
	config.Database.Path = ":memory:"
	return NewRunner(RunnerOpts{
		Config:  config,
		Library: lib,
		Output:  output,
		Input:   strings.NewReader(input),
	})
}

func run(r *Runner, args ...string) error {
	app := &cli.Command{Name: "monthlify", Commands: r.register()}
	return app.Run(context.Background(), append([]string{"monthlify"}, args...))
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			input := strings.NewReader("")
			httpClient := &http.Client{}
			lib := tu.NewFakeLibrary()

			runner := NewRunner(RunnerOpts{
				Config:     config,
				Logger:     logger,
				Output:     output,
				Input:      input,
				HTTPClient: httpClient,
				Library:    lib,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.input != input {
				t.Error("expected input to be set")
			}
			if runner.httpClient != httpClient {
				t.Error("expected httpClient to be set")
			}
			if runner.library != lib {
				t.Error("expected library to be set")
			}
			if runner.covers == nil {
				t.Error("expected cover renderer to be set")
			}
		})

		t.Run("with nil options uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.config == nil {
				t.Error("expected default config to be set")
			}
			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
			if runner.input != os.Stdin {
				t.Error("expected input to default to os.Stdin")
			}
			if runner.httpClient != http.DefaultClient {
				t.Error("expected httpClient to default to http.DefaultClient")
			}
			if runner.spotify != nil {
				t.Error("expected no spotify service")
			}
		})

		t.Run("with configPath sets field", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{ConfigPath: "/test/path/config.toml"})

			if runner.configPath != "/test/path/config.toml" {
				t.Errorf("expected configPath to be set, got %s", runner.configPath)
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, false); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			expected := `{"key":"value"}` + "\n"
			if output.String() != expected {
				t.Errorf("expected %q, got %q", expected, output.String())
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			err := runner.writeJSON(make(chan int), false)
			if err == nil {
				t.Fatal("expected error for non-serializable data")
			}
			if !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			limitedWriter := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &limitedWriter})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil {
				t.Fatal("expected error writing newline")
			}
			if !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlain("hello %s", "world"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if output.String() != "hello world" {
				t.Errorf("expected 'hello world', got %q", output.String())
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writePlain("test")
			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("confirm", func(t *testing.T) {
		tests := []struct {
			input string
			want  bool
		}{
			{"y\n", true},
			{"YES\n", true},
			{" yes ", true},
			{"n\n", false},
			{"\n", false},
			{"", false},
			{"maybe\n", false},
		}

		for _, tt := range tests {
			t.Run(strings.TrimSpace(tt.input), func(t *testing.T) {
				output := &bytes.Buffer{}
				runner := NewRunner(RunnerOpts{Output: output, Input: strings.NewReader(tt.input)})

				if got := runner.confirm("Proceed?"); got != tt.want {
					t.Errorf("confirm(%q) = %v, want %v", tt.input, got, tt.want)
				}
				if !strings.Contains(output.String(), "Proceed? [y/N]: ") {
					t.Errorf("expected prompt, got %q", output.String())
				}
			})
		}
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})

		var names []string
		for _, cmd := range runner.register() {
			names = append(names, cmd.Name)
		}

		want := []string{"setup", "serve", "spotify", "preview", "create", "cover", "tui"}
		if diff := cmp.Diff(want, names); diff != "" {
			t.Errorf("commands mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("saveToken", func(t *testing.T) {
		t.Run("persists refreshed tokens", func(t *testing.T) {
			configPath := filepath.Join(t.TempDir(), "config.toml")
			config := shared.DefaultConfig()
			if err := shared.SaveConfig(configPath, config); err != nil {
				t.Fatalf("failed to create test config: %v", err)
			}

			runner := NewRunner(RunnerOpts{Config: config, ConfigPath: configPath})
			runner.saveToken(&oauth2.Token{AccessToken: "new_access_token", RefreshToken: "new_refresh_token"})

			loaded, err := shared.LoadConfig(configPath)
			if err != nil {
				t.Fatalf("failed to reload config: %v", err)
			}
			if loaded.Credentials.Spotify.AccessToken != "new_access_token" {
				t.Errorf("expected access token to be updated, got %s", loaded.Credentials.Spotify.AccessToken)
			}
			if loaded.Credentials.Spotify.RefreshToken != "new_refresh_token" {
				t.Errorf("expected refresh token to be updated, got %s", loaded.Credentials.Spotify.RefreshToken)
			}
		})

		t.Run("updates memory without a config path", func(t *testing.T) {
			config := shared.DefaultConfig()
			runner := NewRunner(RunnerOpts{Config: config})

			runner.saveToken(&oauth2.Token{AccessToken: "new_token"})

			if config.Credentials.Spotify.AccessToken != "new_token" {
				t.Error("expected config to be updated in memory")
			}
		})
	})

	t.Run("userLibrary", func(t *testing.T) {
		t.Run("without spotify credentials", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			_, err := runner.userLibrary(context.Background())
			if !errors.Is(err, shared.ErrServiceUnavailable) {
				t.Errorf("expected ErrServiceUnavailable, got %v", err)
			}
		})

		t.Run("prefers the injected library", func(t *testing.T) {
			lib := tu.NewFakeLibrary()
			runner := NewRunner(RunnerOpts{Library: lib})

			got, err := runner.userLibrary(context.Background())
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if got != lib {
				t.Error("expected injected library")
			}
		})
	})
}

func TestCommands(t *testing.T) {
	t.Run("spotify playlists", func(t *testing.T) {
		t.Run("lists liked songs first", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := newTestRunner(newLibrary(), output, "")

			if err := run(runner, "spotify", "playlists"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, "Found 3 playlists:") {
				t.Errorf("expected playlist count, got %q", result)
			}
			liked, road := strings.Index(result, "Liked Songs"), strings.Index(result, "Road Trip")
			if liked < 0 || road < 0 || liked > road {
				t.Errorf("expected Liked Songs before Road Trip, got %q", result)
			}
		})

		t.Run("as JSON with search", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := newTestRunner(newLibrary(), output, "")

			if err := run(runner, "spotify", "playlists", "--json", "--search", "road"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			var playlists []models.SourcePlaylist
			if err := json.Unmarshal(output.Bytes(), &playlists); err != nil {
				t.Fatalf("expected JSON output, got %v: %q", err, output.String())
			}
			if len(playlists) != 1 || playlists[0].ID != "p1" {
				t.Errorf("expected only Road Trip, got %+v", playlists)
			}
		})

		t.Run("surfaces library errors", func(t *testing.T) {
			lib := newLibrary()
			lib.FailOn["Playlists"] = errors.New("boom")
			runner := newTestRunner(lib, &bytes.Buffer{}, "")

			err := run(runner, "spotify", "playlists")
			if !errors.Is(err, shared.ErrAPIRequest) {
				t.Errorf("expected ErrAPIRequest, got %v", err)
			}
		})
	})

	t.Run("preview", func(t *testing.T) {
		t.Run("requires a source", func(t *testing.T) {
			runner := newTestRunner(newLibrary(), &bytes.Buffer{}, "")

			err := run(runner, "preview")
			if !errors.Is(err, shared.ErrMissingArgument) {
				t.Errorf("expected ErrMissingArgument, got %v", err)
			}
		})

		t.Run("rejects both id and url", func(t *testing.T) {
			runner := newTestRunner(newLibrary(), &bytes.Buffer{}, "")

			err := run(runner, "preview", "--id", "p1", "--url", "https://open.spotify.com/playlist/p1")
			if !errors.Is(err, shared.ErrInvalidArgument) {
				t.Errorf("expected ErrInvalidArgument, got %v", err)
			}
		})

		t.Run("prints months as text", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := newTestRunner(newLibrary(), output, "")

			if err := run(runner, "preview", "--id", models.LikedSongsID); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			for _, want := range []string{"Months: 2", "January 2023 (2 songs)", "February 2023 (1 song)", "Song A"} {
				if !strings.Contains(result, want) {
					t.Errorf("expected %q in output, got %q", want, result)
				}
			}
			if strings.Index(result, "January 2023") > strings.Index(result, "February 2023") {
				t.Error("expected months in chronological order")
			}
		})

		t.Run("resolves playlist urls", func(t *testing.T) {
			output := &bytes.Buffer{}
			lib := newLibrary()
			runner := newTestRunner(lib, output, "")

			if err := run(runner, "preview", "--url", "https://open.spotify.com/playlist/p1?si=abc"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !strings.Contains(output.String(), "December 2022") {
				t.Errorf("expected December 2022, got %q", output.String())
			}
			if lib.CallCount("PlaylistItems") != 1 {
				t.Errorf("expected one PlaylistItems call, got %d", lib.CallCount("PlaylistItems"))
			}
		})

		t.Run("as JSON", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := newTestRunner(newLibrary(), output, "")

			if err := run(runner, "preview", "--id", models.LikedSongsID, "--json"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			var partitions []models.PartitionPreview
			if err := json.Unmarshal(output.Bytes(), &partitions); err != nil {
				t.Fatalf("expected JSON output, got %v", err)
			}

			var ids []string
			for _, p := range partitions {
				ids = append(ids, p.ID)
			}
			if diff := cmp.Diff([]string{"2023-01", "2023-02"}, ids); diff != "" {
				t.Errorf("partition mismatch (-want +got):\n%s", diff)
			}
		})

		t.Run("as Markdown", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := newTestRunner(newLibrary(), output, "")

			if err := run(runner, "preview", "--id", models.LikedSongsID, "--markdown"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !strings.HasPrefix(output.String(), "# "+models.LikedSongsID) {
				t.Errorf("expected Markdown heading, got %q", output.String())
			}
		})

		t.Run("writes files", func(t *testing.T) {
			dir := t.TempDir()
			csvPath := filepath.Join(dir, "tracks.csv")
			outDir := filepath.Join(dir, "preview")
			output := &bytes.Buffer{}
			runner := newTestRunner(newLibrary(), output, "")

			err := run(runner, "preview", "--id", models.LikedSongsID, "--csv", csvPath, "--output", outDir)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			tu.AssertFileExists(t, csvPath)
			tu.AssertFileExists(t, filepath.Join(outDir, "README.md"))
			tu.AssertFileExists(t, filepath.Join(outDir, "2023-01.jpg"))
			tu.AssertFileExists(t, filepath.Join(outDir, "2023-02.jpg"))

			if !strings.HasPrefix(tu.MustReadFile(t, csvPath), "Month,Position,Name,Artists,Added,URI") {
				t.Error("expected CSV header")
			}
			if !strings.Contains(output.String(), "Preview written to") {
				t.Errorf("expected confirmation, got %q", output.String())
			}
		})

		t.Run("without credentials", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			err := run(runner, "preview", "--id", models.LikedSongsID)
			if !errors.Is(err, shared.ErrServiceUnavailable) {
				t.Errorf("expected ErrServiceUnavailable, got %v", err)
			}
		})
	})

	t.Run("create", func(t *testing.T) {
		t.Run("with --yes", func(t *testing.T) {
			output := &bytes.Buffer{}
			lib := newLibrary()
			runner := newTestRunner(lib, output, "")

			if err := run(runner, "create", "--id", models.LikedSongsID, "--yes"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, "Playlists processed successfully") {
				t.Errorf("expected success, got %q", result)
			}
			if !strings.Contains(result, "Newly Created") {
				t.Errorf("expected created playlists, got %q", result)
			}
			if lib.CallCount("CreatePlaylist") != 2 {
				t.Errorf("expected 2 playlists created, got %d", lib.CallCount("CreatePlaylist"))
			}
		})

		t.Run("confirmed on input", func(t *testing.T) {
			output := &bytes.Buffer{}
			lib := newLibrary()
			runner := newTestRunner(lib, output, "y\n")

			if err := run(runner, "create", "--id", models.LikedSongsID, "--json"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			start := strings.Index(result, "[\n")
			if start < 0 {
				t.Fatalf("expected JSON results, got %q", result)
			}
			var results []models.MaterializedPlaylist
			if err := json.Unmarshal([]byte(result[start:]), &results); err != nil {
				t.Fatalf("expected JSON results, got %v", err)
			}
			if len(results) != 2 || results[0].Name != "January 2023" {
				t.Errorf("unexpected results %+v", results)
			}
		})

		t.Run("declined", func(t *testing.T) {
			output := &bytes.Buffer{}
			lib := newLibrary()
			runner := newTestRunner(lib, output, "n\n")

			if err := run(runner, "create", "--id", models.LikedSongsID); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !strings.Contains(output.String(), "Aborted.") {
				t.Errorf("expected abort message, got %q", output.String())
			}
			if lib.CallCount("CreatePlaylist") != 0 {
				t.Error("expected no playlists created")
			}
		})

		t.Run("empty source", func(t *testing.T) {
			output := &bytes.Buffer{}
			lib := newLibrary()
			lib.Liked = nil
			runner := newTestRunner(lib, output, "")

			if err := run(runner, "create", "--id", models.LikedSongsID); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !strings.Contains(output.String(), "No songs to sort") {
				t.Errorf("expected empty preview, got %q", output.String())
			}
			if lib.CallCount("CurrentUser") != 0 {
				t.Error("expected nothing materialized")
			}
		})

		t.Run("library failure", func(t *testing.T) {
			lib := newLibrary()
			lib.FailOn["CreatePlaylist"] = errors.New("boom")
			runner := newTestRunner(lib, &bytes.Buffer{}, "")

			err := run(runner, "create", "--id", models.LikedSongsID, "--yes")
			if !errors.Is(err, shared.ErrAPIRequest) {
				t.Errorf("expected ErrAPIRequest, got %v", err)
			}
		})
	})

	t.Run("cover", func(t *testing.T) {
		t.Run("writes a JPEG", func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "cover.jpg")
			output := &bytes.Buffer{}
			runner := newTestRunner(newLibrary(), output, "")

			if err := run(runner, "cover", "--month", "2023-01", "--output", path); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			data, err := os.ReadFile(path)
			if err != nil {
				t.Fatalf("expected cover file, got %v", err)
			}
			if len(data) < 2 || data[0] != 0xFF || data[1] != 0xD8 {
				t.Error("expected JPEG magic bytes")
			}
			if !strings.Contains(output.String(), "Cover written to "+path) {
				t.Errorf("expected confirmation, got %q", output.String())
			}
		})

		t.Run("rejects invalid months", func(t *testing.T) {
			runner := newTestRunner(newLibrary(), &bytes.Buffer{}, "")

			err := run(runner, "cover", "--month", "2023-13", "--output", filepath.Join(t.TempDir(), "x.jpg"))
			if !errors.Is(err, shared.ErrInvalidArgument) {
				t.Errorf("expected ErrInvalidArgument, got %v", err)
			}
		})
	})

	t.Run("setup", func(t *testing.T) {
		t.Run("config", func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			output := &bytes.Buffer{}
			runner := newTestRunner(newLibrary(), output, "")

			if err := run(runner, "setup", "config", "--config", path); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			tu.AssertFileExists(t, path)
			if !strings.Contains(output.String(), "Configuration written to "+path) {
				t.Errorf("expected confirmation, got %q", output.String())
			}

			if err := run(runner, "setup", "config", "--config", path); !errors.Is(err, shared.ErrInvalidArgument) {
				t.Errorf("expected ErrInvalidArgument for existing file, got %v", err)
			}
		})

		t.Run("database", func(t *testing.T) {
			dir := t.TempDir()
			original := tu.MustGetwd(t)
			tu.MustChdir(t, dir)
			defer tu.MustChdir(t, original)

			output := &bytes.Buffer{}
			runner := newTestRunner(newLibrary(), output, "")

			if err := run(runner, "setup", "database", "--config", filepath.Join(dir, "config.toml")); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			tu.AssertFileExists(t, filepath.Join(dir, "config.toml"))
			if !strings.Contains(output.String(), "Database ready at") {
				t.Errorf("expected confirmation, got %q", output.String())
			}
		})
	})
}

func TestServeHelpers(t *testing.T) {
	t.Run("listenAddr", func(t *testing.T) {
		tests := []struct {
			name     string
			redirect string
			want     string
		}{
			{"with port", "http://127.0.0.1:8080/callback", "127.0.0.1:8080"},
			{"without port", "http://localhost/callback", "localhost:80"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				config := shared.DefaultConfig()
				config.Credentials.Spotify.RedirectURI = tt.redirect

				if got := listenAddr(config); got != tt.want {
					t.Errorf("listenAddr() = %q, want %q", got, tt.want)
				}
			})
		}

		t.Run("falls back to the server address", func(t *testing.T) {
			config := shared.DefaultConfig()
			config.Credentials.Spotify.RedirectURI = ""

			if got := listenAddr(config); got != config.Server.Addr() {
				t.Errorf("listenAddr() = %q, want %q", got, config.Server.Addr())
			}
		})
	})

	t.Run("resultStore", func(t *testing.T) {
		t.Run("defaults to memory", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})
			runner.config.Store.Driver = ""

			store, cleanup, err := runner.resultStore(context.Background())
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			defer cleanup()
			if store == nil {
				t.Error("expected a store")
			}
		})

		t.Run("rejects unknown drivers", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})
			runner.config.Store.Driver = "etcd"

			_, _, err := runner.resultStore(context.Background())
			if !errors.Is(err, shared.ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	})

	t.Run("apiHandler requires credentials", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})

		_, _, err := runner.apiHandler(context.Background())
		if !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})
}
