package server

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotomi/internal/services"
	"github.com/desertthunder/spotomi/internal/shared"
	"github.com/desertthunder/spotomi/internal/store"
)

// stateTTL bounds how long a pending authorization may sit before the
// callback arrives.
const stateTTL = 10 * time.Minute

// AuthHandler runs the OAuth2 authorization code flow for linking a user's
// Spotify account, and unlinking it again via /disconnect.
//
// State tokens are random, stored with a TTL, and consumed exactly once, so a
// replayed or forged callback cannot bind tokens to another user.
type AuthHandler struct {
	service *services.SpotifyService
	store   store.Store
	logger  *log.Logger
}

// NewAuthHandler creates an [AuthHandler]. The service carries the OAuth2
// client configuration; it is never bound to a user token here.
func NewAuthHandler(svc *services.SpotifyService, st store.Store, logger *log.Logger) *AuthHandler {
	return &AuthHandler{service: svc, store: st, logger: logger}
}

// Routes returns the HTTP routes this handler serves.
func (h *AuthHandler) Routes() []string {
	return []string{"/auth/spotify", "/auth/spotify/callback", "/disconnect"}
}

func (h *AuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/auth/spotify":
		h.begin(w, r)
	case "/auth/spotify/callback":
		h.callback(w, r)
	case "/disconnect":
		h.disconnect(w, r)
	default:
		http.NotFound(w, r)
	}
}

// begin starts the authorization flow: records a one-shot state for the user
// and redirects to the provider's consent page.
func (h *AuthHandler) begin(w http.ResponseWriter, r *http.Request) {
	uid := r.URL.Query().Get("uid")
	if uid == "" {
		http.Error(w, "User ID is required", http.StatusBadRequest)
		return
	}

	state, err := shared.GenerateState()
	if err != nil {
		h.logger.Error("failed to generate state", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if err := h.store.SaveAuthState(r.Context(), state, uid, stateTTL); err != nil {
		h.logger.Error("failed to save auth state", "uid", uid, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, h.service.GetAuthURL(state), http.StatusFound)
}

// callback completes the flow: resolves the state to a user, exchanges the
// code, persists the token pair, and sends the user back to the settings page.
func (h *AuthHandler) callback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	if errParam := query.Get("error"); errParam != "" {
		h.logger.Warn("authorization denied", "error", errParam)
		http.Error(w, fmt.Sprintf("Authorization failed: %s", errParam), http.StatusBadRequest)
		return
	}

	code := query.Get("code")
	state := query.Get("state")
	if code == "" || state == "" {
		http.Error(w, "Invalid callback parameters", http.StatusBadRequest)
		return
	}

	uid, err := h.store.ConsumeAuthState(r.Context(), state)
	if err != nil {
		if errors.Is(err, shared.ErrStateMismatch) {
			http.Error(w, "Invalid state parameter", http.StatusBadRequest)
			return
		}
		h.logger.Error("failed to consume auth state", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	token, err := h.service.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("token exchange failed", "uid", uid, "error", err)
		http.Error(w, "Failed to exchange authorization code", http.StatusBadGateway)
		return
	}

	if err := h.store.SaveToken(r.Context(), uid, token); err != nil {
		h.logger.Error("failed to save token", "uid", uid, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.Info("account linked", "uid", uid)
	http.Redirect(w, r, fmt.Sprintf("/?uid=%s", uid), http.StatusFound)
}

// disconnect removes the user's token record.
func (h *AuthHandler) disconnect(w http.ResponseWriter, r *http.Request) {
	uid := r.URL.Query().Get("uid")
	if uid == "" {
		http.Error(w, "User ID is required", http.StatusBadRequest)
		return
	}

	if err := h.store.DeleteToken(r.Context(), uid); err != nil {
		h.logger.Error("failed to delete token", "uid", uid, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.Info("account unlinked", "uid", uid)
	http.Redirect(w, r, fmt.Sprintf("/?uid=%s", uid), http.StatusFound)
}
