package handlers

import (
	"net/http"
	"runtime"
	"time"

	"album-engine/internal/startup"
)

const (
	statusHealthy  = "healthy"
	statusStarting = "starting"
)

// HealthResponse contains the health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Ready   bool   `json:"ready"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`

	// Engine occupancy
	CachedRecords   int  `json:"cachedRecords"`
	FirstPageSize   int  `json:"firstPageSize"`
	PoolActive      int  `json:"poolActive"`
	PoolQueued      int  `json:"poolQueued"`
	OperatorRunning bool `json:"operatorRunning"`

	// System info
	GoVersion    string `json:"goVersion"`
	NumCPU       int    `json:"numCpu"`
	NumGoroutine int    `json:"numGoroutine"`
}

// HealthCheck returns the health status of the service
func (h *Handlers) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	stats := h.eng.Stats()
	ready := h.IsReady()

	response := HealthResponse{
		Ready:           ready,
		Version:         startup.Version,
		Uptime:          time.Since(h.startTime).Round(time.Second).String(),
		CachedRecords:   stats.CachedRecords,
		FirstPageSize:   stats.FirstPageSize,
		PoolActive:      stats.PoolActive,
		PoolQueued:      stats.PoolQueued,
		OperatorRunning: stats.OperatorRunning,
		GoVersion:       runtime.Version(),
		NumCPU:          runtime.NumCPU(),
		NumGoroutine:    runtime.NumGoroutine(),
	}

	w.Header().Set("Content-Type", "application/json")
	if ready {
		response.Status = statusHealthy
		w.WriteHeader(http.StatusOK)
	} else {
		response.Status = statusStarting
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	writeJSON(w, response)
}

// LivenessCheck is a simple liveness probe (always returns 200 if server is running)
func (h *Handlers) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	// For HEAD requests, only send headers (no body)
	if r.Method != http.MethodHead {
		writeJSON(w, map[string]string{
			"status": "alive",
		})
	}
}

// ReadinessCheck returns 200 only once the first page has loaded
func (h *Handlers) ReadinessCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if h.IsReady() {
		w.WriteHeader(http.StatusOK)
		writeJSON(w, map[string]string{"status": "ready"})
		return
	}
	w.WriteHeader(http.StatusServiceUnavailable)
	writeJSON(w, map[string]string{"status": "not_ready"})
}

// GetVersion reports the build that is running.
func (h *Handlers) GetVersion(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	writeJSON(w, startup.GetBuildInfo())
}
