package handler

import (
	"net/http"
	"time"
)

// StatusHandler serves the runtime mode and storage backend.
type StatusHandler struct {
	Mode      string
	Storage   string
	StartedAt time.Time
}

// NewStatusHandler creates a StatusHandler.
func NewStatusHandler(mode, storage string, startedAt time.Time) *StatusHandler {
	return &StatusHandler{Mode: mode, Storage: storage, StartedAt: startedAt}
}

// GetStatus responds with runtime metadata for dashboards.
// GET /api/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"mode":           h.Mode,
		"storage":        h.Storage,
		"started_at":     h.StartedAt.UTC().Format(time.RFC3339),
		"uptime_seconds": int64(time.Since(h.StartedAt).Seconds()),
	})
}
