// package tools executes chat tool calls against a user's Spotify account
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotomi/internal/formatter"
	"github.com/desertthunder/spotomi/internal/services"
	"github.com/desertthunder/spotomi/internal/shared"
	"github.com/desertthunder/spotomi/internal/store"
)

const (
	// msgConnectFirst is returned for any tool call from a user without a linked account.
	msgConnectFirst = "Please connect your Spotify account first in the app settings."

	// msgNoActiveDevice is returned when playback is requested with no device online.
	msgNoActiveDevice = "No active Spotify device found. Please open Spotify on one of your devices first."

	defaultSearchLimit         = 5
	defaultPlaylistLimit       = 10
	defaultRecommendationLimit = 5
)

// Response is the envelope every tool call returns. Exactly one of Result or
// Error is set; errors are conversational, not HTTP-level.
type Response struct {
	Result string `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

func resultOf(text string) Response { return Response{Result: text} }

func errorOf(format string, args ...any) Response {
	return Response{Error: fmt.Sprintf(format, args...)}
}

// SearchSongsRequest is the payload for the search_songs tool.
type SearchSongsRequest struct {
	UID   string `json:"uid"`
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

// AddToPlaylistRequest is the payload for the add_to_playlist tool.
type AddToPlaylistRequest struct {
	UID          string `json:"uid"`
	SongName     string `json:"song_name"`
	ArtistName   string `json:"artist_name"`
	PlaylistName string `json:"playlist_name"`
	PlaylistID   string `json:"playlist_id"`
}

// CreatePlaylistRequest is the payload for the create_playlist tool.
type CreatePlaylistRequest struct {
	UID         string `json:"uid"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Public      bool   `json:"public"`
}

// GetPlaylistsRequest is the payload for the get_playlists tool.
type GetPlaylistsRequest struct {
	UID   string `json:"uid"`
	Limit int    `json:"limit"`
}

// NowPlayingRequest is the payload for the get_now_playing tool.
type NowPlayingRequest struct {
	UID string `json:"uid"`
}

// ControlPlaybackRequest is the payload for the control_playback tool.
type ControlPlaybackRequest struct {
	UID    string `json:"uid"`
	Action string `json:"action"`
}

// PlaySongRequest is the payload for the play_song tool.
type PlaySongRequest struct {
	UID        string `json:"uid"`
	SongName   string `json:"song_name"`
	ArtistName string `json:"artist_name"`
}

// RecommendationsRequest is the payload for the get_recommendations tool.
type RecommendationsRequest struct {
	UID         string   `json:"uid"`
	SeedTracks  []string `json:"seed_tracks"`
	SeedArtists []string `json:"seed_artists"`
	SeedGenres  []string `json:"seed_genres"`
	Limit       int      `json:"limit"`
}

// Engine executes tool calls. Each call binds a [services.Service] to the
// calling user's stored token through the factory, so a single Engine serves
// all users.
type Engine struct {
	factory services.Factory
	store   store.Store
	logger  *log.Logger
}

// NewEngine creates an [Engine] backed by the given factory and store.
func NewEngine(factory services.Factory, st store.Store, logger *log.Logger) *Engine {
	return &Engine{factory: factory, store: st, logger: logger}
}

// service binds a Service to the user, translating missing credentials into
// the conversational connect prompt. The bool reports success.
func (e *Engine) service(ctx context.Context, uid string) (services.Service, Response, bool) {
	if uid == "" {
		return nil, errorOf("User ID is required"), false
	}

	svc, err := e.factory(ctx, uid)
	if err != nil {
		if errors.Is(err, shared.ErrNotAuthenticated) {
			return nil, errorOf(msgConnectFirst), false
		}
		e.logger.Error("failed to bind service", "uid", uid, "error", err)
		return nil, errorOf("Spotify is unavailable right now. Please try again."), false
	}

	return svc, Response{}, true
}

// SearchSongs searches the catalog and formats the matches.
func (e *Engine) SearchSongs(ctx context.Context, req SearchSongsRequest) Response {
	svc, resp, ok := e.service(ctx, req.UID)
	if !ok {
		return resp
	}

	if req.Query == "" {
		return errorOf("Search query is required")
	}

	limit := req.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	tracks, err := svc.SearchTracks(ctx, req.Query, limit)
	if err != nil {
		return errorOf("Search failed: %v", err)
	}

	return resultOf(formatter.SearchResults(req.Query, tracks))
}

// AddToPlaylist finds a song and appends it to the resolved playlist.
//
// Playlist resolution order: explicit id, then name lookup, then the user's
// stored default.
func (e *Engine) AddToPlaylist(ctx context.Context, req AddToPlaylistRequest) Response {
	svc, resp, ok := e.service(ctx, req.UID)
	if !ok {
		return resp
	}

	if req.SongName == "" {
		return errorOf("Song name is required")
	}

	tracks, err := svc.SearchTracks(ctx, buildSongQuery(req.SongName, req.ArtistName), 1)
	if err != nil {
		return errorOf("Failed to add song: %v", err)
	}
	if len(tracks) == 0 {
		return errorOf("Could not find song: %s", req.SongName)
	}
	track := tracks[0]

	target, resp, ok := e.resolvePlaylist(ctx, svc, req)
	if !ok {
		return resp
	}

	if err := svc.AddTracksToPlaylist(ctx, target.ID, []string{track.URI}); err != nil {
		return errorOf("Failed to add song: %v", err)
	}

	e.logger.Info("added track to playlist", "uid", req.UID, "track", track.ID, "playlist", target.ID)
	return resultOf(formatter.TrackAdded(track, target.Name))
}

// resolvePlaylist determines the target playlist for an add_to_playlist call.
func (e *Engine) resolvePlaylist(ctx context.Context, svc services.Service, req AddToPlaylistRequest) (store.PlaylistRef, Response, bool) {
	switch {
	case req.PlaylistID != "":
		name := req.PlaylistName
		if name == "" {
			name = "Unknown"
		}
		return store.PlaylistRef{ID: req.PlaylistID, Name: name}, Response{}, true

	case req.PlaylistName != "":
		playlist, err := findPlaylistByName(ctx, svc, req.PlaylistName)
		if err != nil {
			return store.PlaylistRef{}, errorOf("Failed to add song: %v", err), false
		}
		if playlist == nil {
			return store.PlaylistRef{}, errorOf("Could not find playlist: %s", req.PlaylistName), false
		}
		return store.PlaylistRef{ID: playlist.ID, Name: playlist.Name}, Response{}, true

	default:
		ref, err := e.store.DefaultPlaylist(ctx, req.UID)
		if errors.Is(err, shared.ErrNotFound) {
			return store.PlaylistRef{}, errorOf("No playlist specified and no default playlist set. Please specify a playlist name or set a default in app settings."), false
		}
		if err != nil {
			return store.PlaylistRef{}, errorOf("Failed to add song: %v", err), false
		}
		return *ref, Response{}, true
	}
}

// findPlaylistByName matches case-insensitively, preferring an exact match
// over a substring match.
func findPlaylistByName(ctx context.Context, svc services.Service, name string) (*services.Playlist, error) {
	playlists, err := svc.UserPlaylists(ctx, 50, 0)
	if err != nil {
		return nil, err
	}

	lower := strings.ToLower(name)
	for i := range playlists {
		if strings.ToLower(playlists[i].Name) == lower {
			return &playlists[i], nil
		}
	}
	for i := range playlists {
		if strings.Contains(strings.ToLower(playlists[i].Name), lower) {
			return &playlists[i], nil
		}
	}

	return nil, nil
}

// CreatePlaylist creates a playlist owned by the calling user.
func (e *Engine) CreatePlaylist(ctx context.Context, req CreatePlaylistRequest) Response {
	svc, resp, ok := e.service(ctx, req.UID)
	if !ok {
		return resp
	}

	if req.Name == "" {
		return errorOf("Playlist name is required")
	}

	description := req.Description
	if description == "" {
		description = "Created with Omi"
	}

	profile, err := svc.UserProfile(ctx)
	if err != nil {
		return errorOf("Failed to get user profile")
	}

	playlist, err := svc.CreatePlaylist(ctx, profile.ID, req.Name, description, req.Public)
	if err != nil {
		return errorOf("Failed to create playlist: %v", err)
	}

	e.logger.Info("created playlist", "uid", req.UID, "playlist", playlist.ID)
	return resultOf(formatter.PlaylistCreated(playlist))
}

// GetPlaylists lists the user's playlists.
func (e *Engine) GetPlaylists(ctx context.Context, req GetPlaylistsRequest) Response {
	svc, resp, ok := e.service(ctx, req.UID)
	if !ok {
		return resp
	}

	limit := req.Limit
	if limit <= 0 {
		limit = defaultPlaylistLimit
	}

	playlists, err := svc.UserPlaylists(ctx, limit, 0)
	if err != nil {
		return errorOf("Failed to get playlists: %v", err)
	}

	return resultOf(formatter.PlaylistList(playlists))
}

// GetNowPlaying reports the user's current playback state.
func (e *Engine) GetNowPlaying(ctx context.Context, req NowPlayingRequest) Response {
	svc, resp, ok := e.service(ctx, req.UID)
	if !ok {
		return resp
	}

	playback, err := svc.NowPlaying(ctx)
	if err != nil {
		return errorOf("Failed to get current playback: %v", err)
	}

	return resultOf(formatter.NowPlaying(playback))
}

// ControlPlayback executes a play/pause/next/previous action.
func (e *Engine) ControlPlayback(ctx context.Context, req ControlPlaybackRequest) Response {
	svc, resp, ok := e.service(ctx, req.UID)
	if !ok {
		return resp
	}

	action := strings.ToLower(req.Action)

	var err error
	switch action {
	case "play":
		err = svc.Play(ctx, nil)
	case "pause":
		err = svc.Pause(ctx)
	case "next", "skip":
		err = svc.NextTrack(ctx)
	case "previous":
		err = svc.PreviousTrack(ctx)
	default:
		return errorOf("Invalid action. Use: play, pause, next, previous")
	}

	if err != nil {
		if errors.Is(err, shared.ErrNoActiveDevice) {
			return errorOf(msgNoActiveDevice)
		}
		return errorOf("Playback control failed: %v", err)
	}

	return resultOf(formatter.PlaybackAction(action))
}

// PlaySong searches for a song and starts playing it.
func (e *Engine) PlaySong(ctx context.Context, req PlaySongRequest) Response {
	svc, resp, ok := e.service(ctx, req.UID)
	if !ok {
		return resp
	}

	if req.SongName == "" {
		return errorOf("Song name is required")
	}

	tracks, err := svc.SearchTracks(ctx, buildSongQuery(req.SongName, req.ArtistName), 1)
	if err != nil {
		return errorOf("Failed to play song: %v", err)
	}
	if len(tracks) == 0 {
		return errorOf("Could not find song: %s", req.SongName)
	}
	track := tracks[0]

	if err := svc.Play(ctx, []string{track.URI}); err != nil {
		if errors.Is(err, shared.ErrNoActiveDevice) {
			return errorOf(msgNoActiveDevice)
		}
		return errorOf("Failed to play: %v", err)
	}

	return resultOf(formatter.PlaybackStarted(track))
}

// GetRecommendations fetches recommendations, seeding from the user's
// recently played tracks when the request carries no seeds.
func (e *Engine) GetRecommendations(ctx context.Context, req RecommendationsRequest) Response {
	svc, resp, ok := e.service(ctx, req.UID)
	if !ok {
		return resp
	}

	seeds := services.Seeds{
		Tracks:  req.SeedTracks,
		Artists: req.SeedArtists,
		Genres:  req.SeedGenres,
	}

	if seeds.Empty() {
		recent, err := svc.RecentlyPlayed(ctx, 5)
		if err != nil {
			e.logger.Warn("failed to seed from recently played", "uid", req.UID, "error", err)
		}
		for _, track := range recent {
			seeds.Tracks = append(seeds.Tracks, track.ID)
		}
	}

	if seeds.Empty() {
		return resultOf("No recommendations found.")
	}

	limit := req.Limit
	if limit <= 0 {
		limit = defaultRecommendationLimit
	}

	tracks, err := svc.Recommendations(ctx, seeds, limit)
	if err != nil {
		return errorOf("Failed to get recommendations: %v", err)
	}

	return resultOf(formatter.Recommendations(tracks))
}

// buildSongQuery appends the artist filter when an artist name is given.
func buildSongQuery(song, artist string) string {
	if artist != "" {
		return fmt.Sprintf("%s artist:%s", song, artist)
	}
	return song
}

// Dispatch decodes a raw payload and routes it to the named tool.
// The bool reports whether the tool name is known.
func (e *Engine) Dispatch(ctx context.Context, tool string, payload []byte) (Response, bool) {
	decode := func(v any) bool {
		if err := json.Unmarshal(payload, v); err != nil {
			e.logger.Warn("failed to decode tool payload", "tool", tool, "error", err)
			return false
		}
		return true
	}

	switch tool {
	case "search_songs":
		var req SearchSongsRequest
		if !decode(&req) {
			return errorOf("Invalid request body"), true
		}
		return e.SearchSongs(ctx, req), true

	case "add_to_playlist":
		var req AddToPlaylistRequest
		if !decode(&req) {
			return errorOf("Invalid request body"), true
		}
		return e.AddToPlaylist(ctx, req), true

	case "create_playlist":
		var req CreatePlaylistRequest
		if !decode(&req) {
			return errorOf("Invalid request body"), true
		}
		return e.CreatePlaylist(ctx, req), true

	case "get_playlists":
		var req GetPlaylistsRequest
		if !decode(&req) {
			return errorOf("Invalid request body"), true
		}
		return e.GetPlaylists(ctx, req), true

	case "get_now_playing":
		var req NowPlayingRequest
		if !decode(&req) {
			return errorOf("Invalid request body"), true
		}
		return e.GetNowPlaying(ctx, req), true

	case "control_playback":
		var req ControlPlaybackRequest
		if !decode(&req) {
			return errorOf("Invalid request body"), true
		}
		return e.ControlPlayback(ctx, req), true

	case "play_song":
		var req PlaySongRequest
		if !decode(&req) {
			return errorOf("Invalid request body"), true
		}
		return e.PlaySong(ctx, req), true

	case "get_recommendations":
		var req RecommendationsRequest
		if !decode(&req) {
			return errorOf("Invalid request body"), true
		}
		return e.GetRecommendations(ctx, req), true

	default:
		return Response{}, false
	}
}
