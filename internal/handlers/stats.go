package handlers

import (
	"context"
	"net/http"
	"time"

	"travellog/internal/appinfo"
	"travellog/pkg/logger"
	"travellog/pkg/utils"
)

// Health reports liveness and, when configured, database reachability.
// GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if h.ping != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.ping(ctx); err != nil {
			logger.LogError("Health: database ping failed: %v", err)
			utils.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status":   "degraded",
				"database": "unreachable",
			})
			return
		}
	}
	utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Stats returns location counters, runtime figures and cache usage.
// GET /api/stats
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"app": map[string]string{
			"name":    h.cfg.App.Name,
			"version": h.cfg.App.Version,
		},
		"stats":           appinfo.Current(),
		"cache":           h.cache.Stats(),
		"max_upload_size": utils.FormatBytes(h.maxUpload),
	})
}
