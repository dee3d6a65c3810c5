// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"testing"

	"github.com/desertthunder/spotomi/internal/services"
)

// MockService is a configurable test double for [services.Service].
// Unset function fields return zero values without error.
type MockService struct {
	UserProfileFn     func(ctx context.Context) (*services.User, error)
	SearchTracksFn    func(ctx context.Context, query string, limit int) ([]services.Track, error)
	UserPlaylistsFn   func(ctx context.Context, limit, offset int) ([]services.Playlist, error)
	CreatePlaylistFn  func(ctx context.Context, userID, name, description string, public bool) (*services.Playlist, error)
	AddTracksFn       func(ctx context.Context, playlistID string, uris []string) error
	PlayFn            func(ctx context.Context, uris []string) error
	PauseFn           func(ctx context.Context) error
	NextTrackFn       func(ctx context.Context) error
	PreviousTrackFn   func(ctx context.Context) error
	NowPlayingFn      func(ctx context.Context) (*services.Playback, error)
	RecentlyPlayedFn  func(ctx context.Context, limit int) ([]services.Track, error)
	RecommendationsFn func(ctx context.Context, seeds services.Seeds, limit int) ([]services.Track, error)
}

func (m *MockService) UserProfile(ctx context.Context) (*services.User, error) {
	if m.UserProfileFn != nil {
		return m.UserProfileFn(ctx)
	}
	return &services.User{ID: "mock_user"}, nil
}

func (m *MockService) SearchTracks(ctx context.Context, query string, limit int) ([]services.Track, error) {
	if m.SearchTracksFn != nil {
		return m.SearchTracksFn(ctx, query, limit)
	}
	return nil, nil
}

func (m *MockService) UserPlaylists(ctx context.Context, limit, offset int) ([]services.Playlist, error) {
	if m.UserPlaylistsFn != nil {
		return m.UserPlaylistsFn(ctx, limit, offset)
	}
	return nil, nil
}

func (m *MockService) CreatePlaylist(ctx context.Context, userID, name, description string, public bool) (*services.Playlist, error) {
	if m.CreatePlaylistFn != nil {
		return m.CreatePlaylistFn(ctx, userID, name, description, public)
	}
	return &services.Playlist{Name: name}, nil
}

func (m *MockService) AddTracksToPlaylist(ctx context.Context, playlistID string, uris []string) error {
	if m.AddTracksFn != nil {
		return m.AddTracksFn(ctx, playlistID, uris)
	}
	return nil
}

func (m *MockService) Play(ctx context.Context, uris []string) error {
	if m.PlayFn != nil {
		return m.PlayFn(ctx, uris)
	}
	return nil
}

func (m *MockService) Pause(ctx context.Context) error {
	if m.PauseFn != nil {
		return m.PauseFn(ctx)
	}
	return nil
}

func (m *MockService) NextTrack(ctx context.Context) error {
	if m.NextTrackFn != nil {
		return m.NextTrackFn(ctx)
	}
	return nil
}

func (m *MockService) PreviousTrack(ctx context.Context) error {
	if m.PreviousTrackFn != nil {
		return m.PreviousTrackFn(ctx)
	}
	return nil
}

func (m *MockService) NowPlaying(ctx context.Context) (*services.Playback, error) {
	if m.NowPlayingFn != nil {
		return m.NowPlayingFn(ctx)
	}
	return &services.Playback{}, nil
}

func (m *MockService) RecentlyPlayed(ctx context.Context, limit int) ([]services.Track, error) {
	if m.RecentlyPlayedFn != nil {
		return m.RecentlyPlayedFn(ctx, limit)
	}
	return nil, nil
}

func (m *MockService) Recommendations(ctx context.Context, seeds services.Seeds, limit int) ([]services.Track, error) {
	if m.RecommendationsFn != nil {
		return m.RecommendationsFn(ctx, seeds, limit)
	}
	return nil, nil
}

func (m *MockService) Name() string { return "mock" }

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

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
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

func AssertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		t.Errorf("Directory does not exist: %s", path)
		return
	}
	if !info.IsDir() {
		t.Errorf("Path is not a directory: %s", path)
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
