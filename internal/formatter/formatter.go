// package formatter renders tracks, playlists, and playback state as chat-ready text
package formatter

import (
	"fmt"
	"strings"

	"github.com/desertthunder/spotomi/internal/services"
	"github.com/desertthunder/spotomi/internal/shared"
)

// SearchResults formats track search results as a numbered list.
//
// Each entry reads "1. **Title** by Artist (m:ss) - Album: Name".
func SearchResults(query string, tracks []services.Track) string {
	if len(tracks) == 0 {
		return fmt.Sprintf("No songs found for '%s'", query)
	}

	var buf strings.Builder
	fmt.Fprintf(&buf, "🎵 Found %d songs:\n\n", len(tracks))

	for i, track := range tracks {
		fmt.Fprintf(&buf, "%d. **%s** by %s (%s) - Album: %s",
			i+1, track.Title, track.ArtistLine(), shared.FormatDuration(track.DurationMS), track.Album)
		if i < len(tracks)-1 {
			buf.WriteString("\n")
		}
	}

	return buf.String()
}

// PlaylistList formats the user's playlists as a numbered list with a
// visibility marker (🌐 public, 🔒 private).
func PlaylistList(playlists []services.Playlist) string {
	if len(playlists) == 0 {
		return "You don't have any playlists yet."
	}

	var buf strings.Builder
	buf.WriteString("📋 Your playlists:\n\n")

	for i, playlist := range playlists {
		visibility := "🔒"
		if playlist.Public {
			visibility = "🌐"
		}
		fmt.Fprintf(&buf, "%d. %s **%s** (%d tracks)", i+1, visibility, playlist.Name, playlist.TrackCount)
		if i < len(playlists)-1 {
			buf.WriteString("\n")
		}
	}

	return buf.String()
}

// NowPlaying formats the current playback state with progress.
func NowPlaying(playback *services.Playback) string {
	if playback == nil || playback.Track == nil {
		return "🔇 Nothing is currently playing on Spotify."
	}

	status := "⏸️ Paused"
	if playback.IsPlaying {
		status = "▶️ Playing"
	}

	track := playback.Track
	return fmt.Sprintf("%s: **%s** by %s\nAlbum: %s\nProgress: %s / %s",
		status, track.Title, track.ArtistLine(), track.Album,
		shared.FormatDuration(playback.ProgressMS), shared.FormatDuration(track.DurationMS))
}

// TrackAdded confirms a track was added to a playlist.
func TrackAdded(track services.Track, playlistName string) string {
	return fmt.Sprintf("✅ Added **%s** by %s to playlist **%s**!", track.Title, track.ArtistLine(), playlistName)
}

// PlaylistCreated confirms a playlist was created, with a link when available.
func PlaylistCreated(playlist *services.Playlist) string {
	if playlist.ExternalURL != "" {
		return fmt.Sprintf("✅ Created playlist **%s**!\n\nOpen in Spotify: %s", playlist.Name, playlist.ExternalURL)
	}
	return fmt.Sprintf("✅ Created playlist **%s**!", playlist.Name)
}

// PlaybackStarted confirms a specific track began playing.
func PlaybackStarted(track services.Track) string {
	return fmt.Sprintf("▶️ Now playing: **%s** by %s", track.Title, track.ArtistLine())
}

// playbackActionMessages maps control actions to confirmations.
var playbackActionMessages = map[string]string{
	"play":     "▶️ Resumed playback",
	"pause":    "⏸️ Paused playback",
	"next":     "⏭️ Skipped to next track",
	"skip":     "⏭️ Skipped to next track",
	"previous": "⏮️ Went to previous track",
}

// PlaybackAction returns the confirmation message for a playback control action.
func PlaybackAction(action string) string {
	if msg, ok := playbackActionMessages[action]; ok {
		return msg
	}
	return "Done"
}

// Recommendations formats recommended tracks as a numbered list.
func Recommendations(tracks []services.Track) string {
	if len(tracks) == 0 {
		return "No recommendations found."
	}

	var buf strings.Builder
	buf.WriteString("🎧 Recommended songs for you:\n\n")

	for i, track := range tracks {
		fmt.Fprintf(&buf, "%d. **%s** by %s", i+1, track.Title, track.ArtistLine())
		if i < len(tracks)-1 {
			buf.WriteString("\n")
		}
	}

	return buf.String()
}
