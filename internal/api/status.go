package api

import (
	"encoding/json"
	"net/http"
	"time"

	"vigil/internal/command"
	"vigil/internal/metrics"
	"vigil/internal/version"
)

type statusResponse struct {
	Version       string              `json:"version"`
	State         string              `json:"state"`
	Root          string              `json:"root"`
	ActiveWatches int                 `json:"active_watches"`
	UptimeSeconds int64               `json:"uptime_seconds"`
	Inflight      []command.Execution `json:"inflight"`
	Metrics       metrics.Snapshot    `json:"metrics"`
}

func (server *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if !validateToken(r, server.token) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	response := statusResponse{
		Version:       version.Version,
		State:         server.watcher.State().String(),
		Root:          server.watcher.Root(),
		ActiveWatches: server.watcher.ActiveWatches(),
		UptimeSeconds: int64(time.Since(server.started) / time.Second),
		Inflight:      server.tracker.Snapshot(),
		Metrics:       server.registry.Snapshot(),
	}
	if response.Inflight == nil {
		response.Inflight = []command.Execution{}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		server.logger.Warn("status encode failed", map[string]string{
			"error": err.Error(),
		})
	}
}
