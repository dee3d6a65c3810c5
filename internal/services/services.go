// package services defines interface Service for interacting with the Spotify Web API
package services

import (
	"context"
	"strings"
)

// Service defines the operations the tool endpoints need from a music provider.
//
// A Service instance is bound to a single authenticated user; implementations
// are created per request by a factory that loads the user's token.
type Service interface {
	// UserProfile retrieves the authenticated user's profile.
	UserProfile(ctx context.Context) (*User, error)

	// SearchTracks searches the catalog for tracks matching the query.
	SearchTracks(ctx context.Context, query string, limit int) ([]Track, error)

	// UserPlaylists retrieves the user's playlists.
	UserPlaylists(ctx context.Context, limit, offset int) ([]Playlist, error)

	// CreatePlaylist creates a playlist owned by the given provider user id.
	CreatePlaylist(ctx context.Context, userID, name, description string, public bool) (*Playlist, error)

	// AddTracksToPlaylist appends tracks (by URI) to a playlist.
	AddTracksToPlaylist(ctx context.Context, playlistID string, uris []string) error

	// Play starts or resumes playback. With URIs, plays those tracks; without, resumes.
	Play(ctx context.Context, uris []string) error

	// Pause pauses playback on the active device.
	Pause(ctx context.Context) error

	// NextTrack skips to the next track.
	NextTrack(ctx context.Context) error

	// PreviousTrack returns to the previous track.
	PreviousTrack(ctx context.Context) error

	// NowPlaying reports the current playback state.
	// A nil Track means nothing is playing.
	NowPlaying(ctx context.Context) (*Playback, error)

	// RecentlyPlayed retrieves the user's most recently played tracks.
	RecentlyPlayed(ctx context.Context, limit int) ([]Track, error)

	// Recommendations retrieves track recommendations for the given seeds.
	Recommendations(ctx context.Context, seeds Seeds, limit int) ([]Track, error)

	// Name returns the name of the service (e.g., "Spotify")
	Name() string
}

// Track represents a music track from any service
type Track struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Artists     []string `json:"artists"`
	Album       string   `json:"album"`
	DurationMS  int      `json:"duration_ms"`
	URI         string   `json:"uri"`
	ExternalURL string   `json:"external_url,omitempty"`
	PreviewURL  string   `json:"preview_url,omitempty"`
}

// ArtistLine joins the track's artists for display.
func (t Track) ArtistLine() string {
	return strings.Join(t.Artists, ", ")
}

// Playlist represents a music playlist from any service
type Playlist struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Owner       string `json:"owner,omitempty"`
	TrackCount  int    `json:"track_count"`
	Public      bool   `json:"public"`
	URI         string `json:"uri,omitempty"`
	ExternalURL string `json:"external_url,omitempty"`
}

// Playback represents the current playback state for a user.
type Playback struct {
	Track      *Track `json:"track,omitempty"`
	IsPlaying  bool   `json:"is_playing"`
	ProgressMS int    `json:"progress_ms"`
}

// User represents a provider user profile.
type User struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email,omitempty"`
	Product     string `json:"product,omitempty"`
}

// Seeds carries recommendation seed identifiers. Each kind is capped at
// maxSeedsPerKind entries when sent to the provider.
type Seeds struct {
	Tracks  []string `json:"seed_tracks,omitempty"`
	Artists []string `json:"seed_artists,omitempty"`
	Genres  []string `json:"seed_genres,omitempty"`
}

// Empty reports whether no seeds of any kind are present.
func (s Seeds) Empty() bool {
	return len(s.Tracks) == 0 && len(s.Artists) == 0 && len(s.Genres) == 0
}
