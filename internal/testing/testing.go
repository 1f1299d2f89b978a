// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/desertthunder/monthlify/internal/models"
	"github.com/desertthunder/monthlify/internal/services"
)

// FakeLibrary is an in-memory [services.Library].
//
// Errors in FailOn are returned by the method with that name; playlists it creates are appended to Lists.
type FakeLibrary struct {
	mu sync.Mutex

	User  *models.UserProfile
	Lists []models.SourcePlaylist
	Items map[string][]services.SpotifyPlaylistTrack
	Liked []services.SpotifyPlaylistTrack

	FailOn map[string]error

	Calls    []string
	Replaced map[string][]string
	Added    map[string][][]string
	Covers   map[string][]byte
}

// NewFakeLibrary returns a library owned by user "owner".
func NewFakeLibrary() *FakeLibrary {
	return &FakeLibrary{
		User:     &models.UserProfile{ID: "owner", DisplayName: "Owner", Images: []models.Image{}},
		Items:    map[string][]services.SpotifyPlaylistTrack{},
		FailOn:   map[string]error{},
		Replaced: map[string][]string{},
		Added:    map[string][][]string{},
		Covers:   map[string][]byte{},
	}
}

func (f *FakeLibrary) call(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, name)
	return f.FailOn[name]
}

// CallCount returns how many times method name was called.
func (f *FakeLibrary) CallCount(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := 0
	for _, c := range f.Calls {
		if c == name {
			n++
		}
	}
	return n
}

func (f *FakeLibrary) CurrentUser(ctx context.Context) (*models.UserProfile, error) {
	if err := f.call("CurrentUser"); err != nil {
		return nil, err
	}
	u := *f.User
	return &u, nil
}

func (f *FakeLibrary) Playlists(ctx context.Context) ([]models.SourcePlaylist, error) {
	if err := f.call("Playlists"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.SourcePlaylist(nil), f.Lists...), nil
}

func (f *FakeLibrary) SavedTracksTotal(ctx context.Context) (int, error) {
	if err := f.call("SavedTracksTotal"); err != nil {
		return 0, err
	}
	return len(f.Liked), nil
}

func (f *FakeLibrary) PlaylistItems(ctx context.Context, playlistID string) ([]services.SpotifyPlaylistTrack, error) {
	if err := f.call("PlaylistItems"); err != nil {
		return nil, err
	}
	items, ok := f.Items[playlistID]
	if !ok {
		return nil, fmt.Errorf("playlist not found: %s", playlistID)
	}
	return items, nil
}

func (f *FakeLibrary) LikedSongs(ctx context.Context) ([]services.SpotifyPlaylistTrack, error) {
	if err := f.call("LikedSongs"); err != nil {
		return nil, err
	}
	return f.Liked, nil
}

func (f *FakeLibrary) CreatePlaylist(ctx context.Context, userID, name, description string) (*models.SourcePlaylist, error) {
	if err := f.call("CreatePlaylist"); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	id := fmt.Sprintf("created-%d", len(f.Lists)+1)
	p := models.SourcePlaylist{ID: id, Name: name, Owner: f.User.Name(), OwnerID: userID, URL: "https://open.spotify.com/playlist/" + id}
	f.Lists = append(f.Lists, p)
	return &p, nil
}

func (f *FakeLibrary) ReplaceItems(ctx context.Context, playlistID string, uris []string) error {
	if err := f.call("ReplaceItems"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Replaced[playlistID] = append([]string{}, uris...)
	delete(f.Added, playlistID)
	return nil
}

func (f *FakeLibrary) AddItems(ctx context.Context, playlistID string, uris []string) error {
	if err := f.call("AddItems"); err != nil {
		return err
	}
	if len(uris) > 100 {
		return errors.New("too many items")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Added[playlistID] = append(f.Added[playlistID], append([]string{}, uris...))
	return nil
}

func (f *FakeLibrary) UploadCover(ctx context.Context, playlistID string, jpeg []byte) error {
	if err := f.call("UploadCover"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Covers[playlistID] = jpeg
	return nil
}

// Item builds a library item added at addedAt (RFC 3339) with a URI derived from name.
func Item(addedAt, name string, artists ...string) services.SpotifyPlaylistTrack {
	track := &services.SpotifyTrack{
		ID:   strings.ToLower(strings.ReplaceAll(name, " ", "-")),
		Name: name,
		URI:  "spotify:track:" + strings.ToLower(strings.ReplaceAll(name, " ", "-")),
	}
	for _, a := range artists {
		track.Artists = append(track.Artists, services.SpotifyArtist{Name: a})
	}
	return services.SpotifyPlaylistTrack{AddedAt: addedAt, Track: track}
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
