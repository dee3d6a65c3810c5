package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotomi/internal/tools"
)

// ToolsHandler serves POST /tools/{name}, dispatching each call to the tool
// engine. Tool failures are reported inside the response envelope with a 200
// status; only transport-level problems get an error status.
type ToolsHandler struct {
	engine *tools.Engine
	logger *log.Logger
}

// NewToolsHandler creates a [ToolsHandler] backed by the given engine.
func NewToolsHandler(engine *tools.Engine, logger *log.Logger) *ToolsHandler {
	return &ToolsHandler{engine: engine, logger: logger}
}

// Routes returns the HTTP routes this handler serves.
func (h *ToolsHandler) Routes() []string {
	return []string{"/tools/"}
}

func (h *ToolsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	name := strings.TrimPrefix(r.URL.Path, "/tools/")
	if name == "" || strings.Contains(name, "/") {
		http.NotFound(w, r)
		return
	}

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	resp, known := h.engine.Dispatch(r.Context(), name, payload)
	if !known {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("failed to encode tool response", "tool", name, "error", err)
	}
}
