package server

import (
	_ "embed"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotomi/internal/services"
	"github.com/desertthunder/spotomi/internal/shared"
	"github.com/desertthunder/spotomi/internal/store"
)

//go:embed settings.html
var settingsTemplate string

// settingsPage is the template context for the settings page.
type settingsPage struct {
	UID             string
	Authenticated   bool
	Error           string
	Profile         *services.User
	Playlists       []services.Playlist
	DefaultPlaylist *store.PlaylistRef
	OAuthURL        string
}

// SettingsHandler serves the app settings page and the setup/settings JSON
// endpoints the assistant platform polls.
type SettingsHandler struct {
	store   store.Store
	factory services.Factory
	logger  *log.Logger
	tmpl    *template.Template
}

// NewSettingsHandler creates a [SettingsHandler].
func NewSettingsHandler(st store.Store, factory services.Factory, logger *log.Logger) *SettingsHandler {
	return &SettingsHandler{
		store:   st,
		factory: factory,
		logger:  logger,
		tmpl:    template.Must(template.New("settings").Parse(settingsTemplate)),
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *SettingsHandler) Routes() []string {
	return []string{"/", "/setup/spotify", "/settings/default-playlist", "/health"}
}

func (h *SettingsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/":
		h.home(w, r)
	case "/setup/spotify":
		h.setupStatus(w, r)
	case "/settings/default-playlist":
		h.setDefaultPlaylist(w, r)
	case "/health":
		h.health(w, r)
	default:
		http.NotFound(w, r)
	}
}

// home renders the settings page: connection status, the user's playlists,
// and the default playlist picker.
func (h *SettingsHandler) home(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	uid := r.URL.Query().Get("uid")
	if uid == "" {
		h.render(w, settingsPage{Error: "Missing user ID"})
		return
	}

	page := settingsPage{
		UID:      uid,
		OAuthURL: "/auth/spotify?uid=" + uid,
	}

	svc, err := h.factory(r.Context(), uid)
	if err != nil {
		if !errors.Is(err, shared.ErrNotAuthenticated) {
			h.logger.Error("failed to bind service", "uid", uid, "error", err)
			page.Error = "Spotify is unavailable right now."
		}
		h.render(w, page)
		return
	}

	page.Authenticated = true

	if profile, err := svc.UserProfile(r.Context()); err == nil {
		page.Profile = profile
	} else {
		h.logger.Warn("failed to load profile", "uid", uid, "error", err)
	}

	if playlists, err := svc.UserPlaylists(r.Context(), 50, 0); err == nil {
		page.Playlists = playlists
	} else {
		h.logger.Warn("failed to load playlists", "uid", uid, "error", err)
	}

	if ref, err := h.store.DefaultPlaylist(r.Context(), uid); err == nil {
		page.DefaultPlaylist = ref
	}

	h.render(w, page)
}

func (h *SettingsHandler) render(w http.ResponseWriter, page settingsPage) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.tmpl.Execute(w, page); err != nil {
		h.logger.Error("failed to render settings page", "error", err)
	}
}

// setupStatus reports whether the user finished linking their account.
func (h *SettingsHandler) setupStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	uid := r.URL.Query().Get("uid")
	if uid == "" {
		http.Error(w, "User ID is required", http.StatusBadRequest)
		return
	}

	_, err := h.store.Token(r.Context(), uid)
	completed := err == nil
	if err != nil && !errors.Is(err, shared.ErrNotAuthenticated) {
		h.logger.Error("failed to check setup", "uid", uid, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]bool{"is_setup_completed": completed})
}

// setDefaultPlaylist stores the playlist add_to_playlist falls back to.
func (h *SettingsHandler) setDefaultPlaylist(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	query := r.URL.Query()
	uid := query.Get("uid")
	playlistID := query.Get("playlist_id")
	playlistName := query.Get("playlist_name")

	if uid == "" || playlistID == "" || playlistName == "" {
		http.Error(w, "uid, playlist_id, and playlist_name are required", http.StatusBadRequest)
		return
	}

	ref := store.PlaylistRef{ID: playlistID, Name: playlistName}
	if err := h.store.SaveDefaultPlaylist(r.Context(), uid, ref); err != nil {
		h.logger.Error("failed to save default playlist", "uid", uid, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]any{
		"success": true,
		"message": "Default playlist set to: " + playlistName,
	})
}

func (h *SettingsHandler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{
		"status":  "healthy",
		"service": "spotify-omi-integration",
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
