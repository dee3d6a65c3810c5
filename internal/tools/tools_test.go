package tools

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotomi/internal/services"
	"github.com/desertthunder/spotomi/internal/shared"
	"github.com/desertthunder/spotomi/internal/store"
	th "github.com/desertthunder/spotomi/internal/testing"
)

// connectedUID is the only uid the test factory treats as authenticated.
const connectedUID = "user_connected"

func newTestEngine(svc services.Service) (*Engine, *store.MemoryStore) {
	st := store.NewMemoryStore()
	factory := func(ctx context.Context, uid string) (services.Service, error) {
		if uid != connectedUID {
			return nil, shared.ErrNotAuthenticated
		}
		return svc, nil
	}
	return NewEngine(factory, st, log.New(io.Discard)), st
}

func sampleTracks() []services.Track {
	return []services.Track{
		{
			ID:         "track1",
			Title:      "Song One",
			Artists:    []string{"Artist One"},
			Album:      "Album One",
			DurationMS: 204000,
			URI:        "spotify:track:track1",
		},
	}
}

func TestSearchSongs(t *testing.T) {
	ctx := context.Background()

	t.Run("requires uid", func(t *testing.T) {
		engine, _ := newTestEngine(&th.MockService{})
		resp := engine.SearchSongs(ctx, SearchSongsRequest{Query: "song"})
		if resp.Error != "User ID is required" {
			t.Errorf("unexpected response: %+v", resp)
		}
	})

	t.Run("requires connected account", func(t *testing.T) {
		engine, _ := newTestEngine(&th.MockService{})
		resp := engine.SearchSongs(ctx, SearchSongsRequest{UID: "stranger", Query: "song"})
		if resp.Error != msgConnectFirst {
			t.Errorf("unexpected response: %+v", resp)
		}
	})

	t.Run("requires query", func(t *testing.T) {
		engine, _ := newTestEngine(&th.MockService{})
		resp := engine.SearchSongs(ctx, SearchSongsRequest{UID: connectedUID})
		if resp.Error != "Search query is required" {
			t.Errorf("unexpected response: %+v", resp)
		}
	})

	t.Run("formats results", func(t *testing.T) {
		var gotLimit int
		svc := &th.MockService{
			SearchTracksFn: func(ctx context.Context, query string, limit int) ([]services.Track, error) {
				gotLimit = limit
				return sampleTracks(), nil
			},
		}

		engine, _ := newTestEngine(svc)
		resp := engine.SearchSongs(ctx, SearchSongsRequest{UID: connectedUID, Query: "song one"})

		if gotLimit != defaultSearchLimit {
			t.Errorf("expected default limit %d, got %d", defaultSearchLimit, gotLimit)
		}
		if !strings.Contains(resp.Result, "🎵 Found 1 songs:") {
			t.Errorf("unexpected result: %s", resp.Result)
		}
		if !strings.Contains(resp.Result, "**Song One** by Artist One") {
			t.Errorf("unexpected result: %s", resp.Result)
		}
	})

	t.Run("reports search failures", func(t *testing.T) {
		svc := &th.MockService{
			SearchTracksFn: func(ctx context.Context, query string, limit int) ([]services.Track, error) {
				return nil, fmt.Errorf("%w: upstream down", shared.ErrAPIRequest)
			},
		}

		engine, _ := newTestEngine(svc)
		resp := engine.SearchSongs(ctx, SearchSongsRequest{UID: connectedUID, Query: "song"})
		if !strings.HasPrefix(resp.Error, "Search failed:") {
			t.Errorf("unexpected response: %+v", resp)
		}
	})
}

func TestAddToPlaylist(t *testing.T) {
	ctx := context.Background()

	t.Run("requires song name", func(t *testing.T) {
		engine, _ := newTestEngine(&th.MockService{})
		resp := engine.AddToPlaylist(ctx, AddToPlaylistRequest{UID: connectedUID})
		if resp.Error != "Song name is required" {
			t.Errorf("unexpected response: %+v", resp)
		}
	})

	t.Run("adds by explicit playlist id", func(t *testing.T) {
		var addedTo string
		var addedURIs []string
		svc := &th.MockService{
			SearchTracksFn: func(ctx context.Context, query string, limit int) ([]services.Track, error) {
				if limit != 1 {
					t.Errorf("expected single-result search, got limit %d", limit)
				}
				return sampleTracks(), nil
			},
			AddTracksFn: func(ctx context.Context, playlistID string, uris []string) error {
				addedTo = playlistID
				addedURIs = uris
				return nil
			},
		}

		engine, _ := newTestEngine(svc)
		resp := engine.AddToPlaylist(ctx, AddToPlaylistRequest{
			UID:        connectedUID,
			SongName:   "Song One",
			PlaylistID: "pl_explicit",
		})

		if addedTo != "pl_explicit" {
			t.Errorf("expected explicit playlist, got %s", addedTo)
		}
		if len(addedURIs) != 1 || addedURIs[0] != "spotify:track:track1" {
			t.Errorf("unexpected uris %+v", addedURIs)
		}
		if !strings.Contains(resp.Result, "✅ Added **Song One** by Artist One") {
			t.Errorf("unexpected result: %s", resp.Result)
		}
	})

	t.Run("includes artist in the search query", func(t *testing.T) {
		var gotQuery string
		svc := &th.MockService{
			SearchTracksFn: func(ctx context.Context, query string, limit int) ([]services.Track, error) {
				gotQuery = query
				return sampleTracks(), nil
			},
		}

		engine, _ := newTestEngine(svc)
		engine.AddToPlaylist(ctx, AddToPlaylistRequest{
			UID:        connectedUID,
			SongName:   "Song One",
			ArtistName: "Artist One",
			PlaylistID: "pl1",
		})

		if gotQuery != "Song One artist:Artist One" {
			t.Errorf("unexpected query %q", gotQuery)
		}
	})

	t.Run("resolves playlist by name", func(t *testing.T) {
		t.Run("exact match wins over substring", func(t *testing.T) {
			var addedTo string
			svc := &th.MockService{
				SearchTracksFn: func(ctx context.Context, query string, limit int) ([]services.Track, error) {
					return sampleTracks(), nil
				},
				UserPlaylistsFn: func(ctx context.Context, limit, offset int) ([]services.Playlist, error) {
					return []services.Playlist{
						{ID: "pl_partial", Name: "Road Trip Extended"},
						{ID: "pl_exact", Name: "Road Trip"},
					}, nil
				},
				AddTracksFn: func(ctx context.Context, playlistID string, uris []string) error {
					addedTo = playlistID
					return nil
				},
			}

			engine, _ := newTestEngine(svc)
			resp := engine.AddToPlaylist(ctx, AddToPlaylistRequest{
				UID:          connectedUID,
				SongName:     "Song One",
				PlaylistName: "road trip",
			})

			if addedTo != "pl_exact" {
				t.Errorf("expected exact match, got %s", addedTo)
			}
			if !strings.Contains(resp.Result, "**Road Trip**") {
				t.Errorf("unexpected result: %s", resp.Result)
			}
		})

		t.Run("falls back to substring match", func(t *testing.T) {
			var addedTo string
			svc := &th.MockService{
				SearchTracksFn: func(ctx context.Context, query string, limit int) ([]services.Track, error) {
					return sampleTracks(), nil
				},
				UserPlaylistsFn: func(ctx context.Context, limit, offset int) ([]services.Playlist, error) {
					return []services.Playlist{
						{ID: "pl_partial", Name: "Road Trip Extended"},
					}, nil
				},
				AddTracksFn: func(ctx context.Context, playlistID string, uris []string) error {
					addedTo = playlistID
					return nil
				},
			}

			engine, _ := newTestEngine(svc)
			engine.AddToPlaylist(ctx, AddToPlaylistRequest{
				UID:          connectedUID,
				SongName:     "Song One",
				PlaylistName: "road trip",
			})

			if addedTo != "pl_partial" {
				t.Errorf("expected substring match, got %s", addedTo)
			}
		})

		t.Run("reports unknown playlists", func(t *testing.T) {
			svc := &th.MockService{
				SearchTracksFn: func(ctx context.Context, query string, limit int) ([]services.Track, error) {
					return sampleTracks(), nil
				},
			}

			engine, _ := newTestEngine(svc)
			resp := engine.AddToPlaylist(ctx, AddToPlaylistRequest{
				UID:          connectedUID,
				SongName:     "Song One",
				PlaylistName: "Nonexistent",
			})

			if resp.Error != "Could not find playlist: Nonexistent" {
				t.Errorf("unexpected response: %+v", resp)
			}
		})
	})

	t.Run("uses the stored default playlist", func(t *testing.T) {
		var addedTo string
		svc := &th.MockService{
			SearchTracksFn: func(ctx context.Context, query string, limit int) ([]services.Track, error) {
				return sampleTracks(), nil
			},
			AddTracksFn: func(ctx context.Context, playlistID string, uris []string) error {
				addedTo = playlistID
				return nil
			},
		}

		engine, st := newTestEngine(svc)
		if err := st.SaveDefaultPlaylist(ctx, connectedUID, store.PlaylistRef{ID: "pl_default", Name: "Favorites"}); err != nil {
			t.Fatalf("failed to save default playlist: %v", err)
		}

		resp := engine.AddToPlaylist(ctx, AddToPlaylistRequest{UID: connectedUID, SongName: "Song One"})

		if addedTo != "pl_default" {
			t.Errorf("expected default playlist, got %s", addedTo)
		}
		if !strings.Contains(resp.Result, "**Favorites**") {
			t.Errorf("unexpected result: %s", resp.Result)
		}
	})

	t.Run("errors without a default playlist", func(t *testing.T) {
		svc := &th.MockService{
			SearchTracksFn: func(ctx context.Context, query string, limit int) ([]services.Track, error) {
				return sampleTracks(), nil
			},
		}

		engine, _ := newTestEngine(svc)
		resp := engine.AddToPlaylist(ctx, AddToPlaylistRequest{UID: connectedUID, SongName: "Song One"})

		if !strings.Contains(resp.Error, "no default playlist set") {
			t.Errorf("unexpected response: %+v", resp)
		}
	})

	t.Run("reports unfound songs", func(t *testing.T) {
		engine, _ := newTestEngine(&th.MockService{})
		resp := engine.AddToPlaylist(ctx, AddToPlaylistRequest{
			UID:        connectedUID,
			SongName:   "Ghost Song",
			PlaylistID: "pl1",
		})

		if resp.Error != "Could not find song: Ghost Song" {
			t.Errorf("unexpected response: %+v", resp)
		}
	})
}

func TestCreatePlaylist(t *testing.T) {
	ctx := context.Background()

	t.Run("requires name", func(t *testing.T) {
		engine, _ := newTestEngine(&th.MockService{})
		resp := engine.CreatePlaylist(ctx, CreatePlaylistRequest{UID: connectedUID})
		if resp.Error != "Playlist name is required" {
			t.Errorf("unexpected response: %+v", resp)
		}
	})

	t.Run("creates with default description", func(t *testing.T) {
		var gotOwner, gotDescription string
		var gotPublic bool
		svc := &th.MockService{
			UserProfileFn: func(ctx context.Context) (*services.User, error) {
				return &services.User{ID: "spotify_user"}, nil
			},
			CreatePlaylistFn: func(ctx context.Context, userID, name, description string, public bool) (*services.Playlist, error) {
				gotOwner = userID
				gotDescription = description
				gotPublic = public
				return &services.Playlist{
					ID:          "pl_new",
					Name:        name,
					ExternalURL: "https://open.spotify.com/playlist/pl_new",
				}, nil
			},
		}

		engine, _ := newTestEngine(svc)
		resp := engine.CreatePlaylist(ctx, CreatePlaylistRequest{UID: connectedUID, Name: "New Mix"})

		if gotOwner != "spotify_user" {
			t.Errorf("expected profile id as owner, got %s", gotOwner)
		}
		if gotDescription != "Created with Omi" {
			t.Errorf("expected default description, got %q", gotDescription)
		}
		if gotPublic {
			t.Error("expected playlist to default to private")
		}
		if !strings.Contains(resp.Result, "✅ Created playlist **New Mix**!") {
			t.Errorf("unexpected result: %s", resp.Result)
		}
		if !strings.Contains(resp.Result, "Open in Spotify:") {
			t.Errorf("expected link in result: %s", resp.Result)
		}
	})

	t.Run("reports profile failures", func(t *testing.T) {
		svc := &th.MockService{
			UserProfileFn: func(ctx context.Context) (*services.User, error) {
				return nil, errors.New("boom")
			},
		}

		engine, _ := newTestEngine(svc)
		resp := engine.CreatePlaylist(ctx, CreatePlaylistRequest{UID: connectedUID, Name: "New Mix"})
		if resp.Error != "Failed to get user profile" {
			t.Errorf("unexpected response: %+v", resp)
		}
	})
}

func TestGetPlaylists(t *testing.T) {
	ctx := context.Background()

	t.Run("formats playlists with default limit", func(t *testing.T) {
		var gotLimit int
		svc := &th.MockService{
			UserPlaylistsFn: func(ctx context.Context, limit, offset int) ([]services.Playlist, error) {
				gotLimit = limit
				return []services.Playlist{
					{ID: "pl1", Name: "Road Trip", TrackCount: 42, Public: true},
				}, nil
			},
		}

		engine, _ := newTestEngine(svc)
		resp := engine.GetPlaylists(ctx, GetPlaylistsRequest{UID: connectedUID})

		if gotLimit != defaultPlaylistLimit {
			t.Errorf("expected default limit %d, got %d", defaultPlaylistLimit, gotLimit)
		}
		if !strings.Contains(resp.Result, "1. 🌐 **Road Trip** (42 tracks)") {
			t.Errorf("unexpected result: %s", resp.Result)
		}
	})

	t.Run("handles empty playlists", func(t *testing.T) {
		engine, _ := newTestEngine(&th.MockService{})
		resp := engine.GetPlaylists(ctx, GetPlaylistsRequest{UID: connectedUID})
		if resp.Result != "You don't have any playlists yet." {
			t.Errorf("unexpected response: %+v", resp)
		}
	})
}

func TestGetNowPlaying(t *testing.T) {
	ctx := context.Background()

	t.Run("nothing playing", func(t *testing.T) {
		engine, _ := newTestEngine(&th.MockService{})
		resp := engine.GetNowPlaying(ctx, NowPlayingRequest{UID: connectedUID})
		if resp.Result != "🔇 Nothing is currently playing on Spotify." {
			t.Errorf("unexpected response: %+v", resp)
		}
	})

	t.Run("active playback", func(t *testing.T) {
		track := sampleTracks()[0]
		svc := &th.MockService{
			NowPlayingFn: func(ctx context.Context) (*services.Playback, error) {
				return &services.Playback{Track: &track, IsPlaying: true, ProgressMS: 63000}, nil
			},
		}

		engine, _ := newTestEngine(svc)
		resp := engine.GetNowPlaying(ctx, NowPlayingRequest{UID: connectedUID})

		if !strings.Contains(resp.Result, "▶️ Playing: **Song One** by Artist One") {
			t.Errorf("unexpected result: %s", resp.Result)
		}
		if !strings.Contains(resp.Result, "Progress: 1:03 / 3:24") {
			t.Errorf("unexpected result: %s", resp.Result)
		}
	})
}

func TestControlPlayback(t *testing.T) {
	ctx := context.Background()

	t.Run("dispatches each action", func(t *testing.T) {
		var called []string
		svc := &th.MockService{
			PlayFn:          func(ctx context.Context, uris []string) error { called = append(called, "play"); return nil },
			PauseFn:         func(ctx context.Context) error { called = append(called, "pause"); return nil },
			NextTrackFn:     func(ctx context.Context) error { called = append(called, "next"); return nil },
			PreviousTrackFn: func(ctx context.Context) error { called = append(called, "previous"); return nil },
		}

		engine, _ := newTestEngine(svc)

		cases := map[string]string{
			"play":     "▶️ Resumed playback",
			"pause":    "⏸️ Paused playback",
			"next":     "⏭️ Skipped to next track",
			"skip":     "⏭️ Skipped to next track",
			"previous": "⏮️ Went to previous track",
		}

		for action, want := range cases {
			resp := engine.ControlPlayback(ctx, ControlPlaybackRequest{UID: connectedUID, Action: action})
			if resp.Result != want {
				t.Errorf("action %q: got %+v, want %q", action, resp, want)
			}
		}

		if len(called) != 5 {
			t.Errorf("expected 5 service calls, got %d (%v)", len(called), called)
		}
	})

	t.Run("uppercase actions are accepted", func(t *testing.T) {
		engine, _ := newTestEngine(&th.MockService{})
		resp := engine.ControlPlayback(ctx, ControlPlaybackRequest{UID: connectedUID, Action: "PAUSE"})
		if resp.Result != "⏸️ Paused playback" {
			t.Errorf("unexpected response: %+v", resp)
		}
	})

	t.Run("rejects unknown actions", func(t *testing.T) {
		engine, _ := newTestEngine(&th.MockService{})
		resp := engine.ControlPlayback(ctx, ControlPlaybackRequest{UID: connectedUID, Action: "shuffle"})
		if resp.Error != "Invalid action. Use: play, pause, next, previous" {
			t.Errorf("unexpected response: %+v", resp)
		}
	})

	t.Run("reports missing devices", func(t *testing.T) {
		svc := &th.MockService{
			PauseFn: func(ctx context.Context) error {
				return fmt.Errorf("%w: nothing online", shared.ErrNoActiveDevice)
			},
		}

		engine, _ := newTestEngine(svc)
		resp := engine.ControlPlayback(ctx, ControlPlaybackRequest{UID: connectedUID, Action: "pause"})
		if resp.Error != msgNoActiveDevice {
			t.Errorf("unexpected response: %+v", resp)
		}
	})
}

func TestPlaySong(t *testing.T) {
	ctx := context.Background()

	t.Run("plays the first match", func(t *testing.T) {
		var playedURIs []string
		svc := &th.MockService{
			SearchTracksFn: func(ctx context.Context, query string, limit int) ([]services.Track, error) {
				return sampleTracks(), nil
			},
			PlayFn: func(ctx context.Context, uris []string) error {
				playedURIs = uris
				return nil
			},
		}

		engine, _ := newTestEngine(svc)
		resp := engine.PlaySong(ctx, PlaySongRequest{UID: connectedUID, SongName: "Song One"})

		if len(playedURIs) != 1 || playedURIs[0] != "spotify:track:track1" {
			t.Errorf("unexpected uris %+v", playedURIs)
		}
		if resp.Result != "▶️ Now playing: **Song One** by Artist One" {
			t.Errorf("unexpected result: %s", resp.Result)
		}
	})

	t.Run("requires song name", func(t *testing.T) {
		engine, _ := newTestEngine(&th.MockService{})
		resp := engine.PlaySong(ctx, PlaySongRequest{UID: connectedUID})
		if resp.Error != "Song name is required" {
			t.Errorf("unexpected response: %+v", resp)
		}
	})

	t.Run("reports unfound songs", func(t *testing.T) {
		engine, _ := newTestEngine(&th.MockService{})
		resp := engine.PlaySong(ctx, PlaySongRequest{UID: connectedUID, SongName: "Ghost Song"})
		if resp.Error != "Could not find song: Ghost Song" {
			t.Errorf("unexpected response: %+v", resp)
		}
	})

	t.Run("reports missing devices", func(t *testing.T) {
		svc := &th.MockService{
			SearchTracksFn: func(ctx context.Context, query string, limit int) ([]services.Track, error) {
				return sampleTracks(), nil
			},
			PlayFn: func(ctx context.Context, uris []string) error {
				return fmt.Errorf("%w: nothing online", shared.ErrNoActiveDevice)
			},
		}

		engine, _ := newTestEngine(svc)
		resp := engine.PlaySong(ctx, PlaySongRequest{UID: connectedUID, SongName: "Song One"})
		if resp.Error != msgNoActiveDevice {
			t.Errorf("unexpected response: %+v", resp)
		}
	})
}

func TestGetRecommendations(t *testing.T) {
	ctx := context.Background()

	t.Run("uses provided seeds", func(t *testing.T) {
		var gotSeeds services.Seeds
		svc := &th.MockService{
			RecommendationsFn: func(ctx context.Context, seeds services.Seeds, limit int) ([]services.Track, error) {
				gotSeeds = seeds
				return sampleTracks(), nil
			},
		}

		engine, _ := newTestEngine(svc)
		resp := engine.GetRecommendations(ctx, RecommendationsRequest{
			UID:        connectedUID,
			SeedGenres: []string{"jazz"},
		})

		if len(gotSeeds.Genres) != 1 || gotSeeds.Genres[0] != "jazz" {
			t.Errorf("unexpected seeds %+v", gotSeeds)
		}
		if !strings.Contains(resp.Result, "🎧 Recommended songs for you:") {
			t.Errorf("unexpected result: %s", resp.Result)
		}
	})

	t.Run("seeds from recently played", func(t *testing.T) {
		var gotSeeds services.Seeds
		svc := &th.MockService{
			RecentlyPlayedFn: func(ctx context.Context, limit int) ([]services.Track, error) {
				return []services.Track{{ID: "recent1"}, {ID: "recent2"}}, nil
			},
			RecommendationsFn: func(ctx context.Context, seeds services.Seeds, limit int) ([]services.Track, error) {
				gotSeeds = seeds
				return sampleTracks(), nil
			},
		}

		engine, _ := newTestEngine(svc)
		engine.GetRecommendations(ctx, RecommendationsRequest{UID: connectedUID})

		if len(gotSeeds.Tracks) != 2 || gotSeeds.Tracks[0] != "recent1" {
			t.Errorf("unexpected seeds %+v", gotSeeds)
		}
	})

	t.Run("no seeds anywhere", func(t *testing.T) {
		engine, _ := newTestEngine(&th.MockService{})
		resp := engine.GetRecommendations(ctx, RecommendationsRequest{UID: connectedUID})
		if resp.Result != "No recommendations found." {
			t.Errorf("unexpected response: %+v", resp)
		}
	})
}

func TestDispatch(t *testing.T) {
	ctx := context.Background()

	t.Run("routes known tools", func(t *testing.T) {
		svc := &th.MockService{
			SearchTracksFn: func(ctx context.Context, query string, limit int) ([]services.Track, error) {
				return sampleTracks(), nil
			},
		}

		engine, _ := newTestEngine(svc)
		payload := []byte(fmt.Sprintf(`{"uid":%q,"query":"song one"}`, connectedUID))

		resp, known := engine.Dispatch(ctx, "search_songs", payload)
		if !known {
			t.Fatal("expected search_songs to be known")
		}
		if !strings.Contains(resp.Result, "Song One") {
			t.Errorf("unexpected result: %s", resp.Result)
		}
	})

	t.Run("rejects unknown tools", func(t *testing.T) {
		engine, _ := newTestEngine(&th.MockService{})
		if _, known := engine.Dispatch(ctx, "delete_account", []byte(`{}`)); known {
			t.Error("expected unknown tool")
		}
	})

	t.Run("rejects malformed payloads", func(t *testing.T) {
		engine, _ := newTestEngine(&th.MockService{})
		resp, known := engine.Dispatch(ctx, "get_playlists", []byte(`{not json`))
		if !known {
			t.Fatal("expected get_playlists to be known")
		}
		if resp.Error != "Invalid request body" {
			t.Errorf("unexpected response: %+v", resp)
		}
	})

	t.Run("covers every manifest tool", func(t *testing.T) {
		engine, _ := newTestEngine(&th.MockService{})
		for _, def := range DefaultManifest().Tools {
			payload := []byte(fmt.Sprintf(`{"uid":%q}`, connectedUID))
			if _, known := engine.Dispatch(ctx, def.Name, payload); !known {
				t.Errorf("manifest tool %q is not dispatchable", def.Name)
			}
		}
	})
}
