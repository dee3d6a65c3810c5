package server

import (
	"encoding/json"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotomi/internal/tools"
)

// ManifestHandler serves the chat tools manifest the assistant platform
// fetches when the app is installed or updated.
type ManifestHandler struct {
	manifest tools.Manifest
	logger   *log.Logger
}

// NewManifestHandler creates a [ManifestHandler] serving the given manifest.
func NewManifestHandler(manifest tools.Manifest, logger *log.Logger) *ManifestHandler {
	return &ManifestHandler{manifest: manifest, logger: logger}
}

// Routes returns the HTTP routes this handler serves.
func (h *ManifestHandler) Routes() []string {
	return []string{"/.well-known/omi-tools.json"}
}

func (h *ManifestHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.manifest); err != nil {
		h.logger.Error("failed to encode manifest", "error", err)
	}
}
