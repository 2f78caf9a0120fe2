package handlers

import (
	"context"
	"net/http"
	"time"

	"album-engine/internal/database"
	"album-engine/internal/metrics"
)

// StatsResponse combines the engine snapshot with library totals.
type StatsResponse struct {
	Engine      metrics.Stats          `json:"engine"`
	Library     *database.LibraryStats `json:"library,omitempty"`
	LibraryErr  string                 `json:"libraryError,omitempty"`
	LastPurge   time.Time              `json:"lastTrashPurge,omitempty"`
	GeneratedAt time.Time              `json:"generatedAt"`
}

// GetStats returns engine occupancy and library totals
func (h *Handlers) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	resp := StatsResponse{
		Engine:      h.eng.Stats(),
		GeneratedAt: time.Now(),
	}

	lib, err := h.db.CalculateStats(ctx)
	if err != nil {
		resp.LibraryErr = err.Error()
	} else {
		resp.Library = &lib
	}
	if t, err := h.db.GetLastTrashPurge(ctx); err == nil {
		resp.LastPurge = t
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	writeJSON(w, resp)
}
