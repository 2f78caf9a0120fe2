package handlers

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"album-engine/internal/database"
	"album-engine/internal/engine"
)

// Handlers serves the admin API over an engine and its database.
type Handlers struct {
	eng       *engine.Engine
	db        *database.Database
	startTime time.Time
	ready     atomic.Bool
}

func New(eng *engine.Engine, db *database.Database) *Handlers {
	return &Handlers{
		eng:       eng,
		db:        db,
		startTime: time.Now(),
	}
}

// MarkReady flags the service as ready. The event loop calls it once the
// first page has loaded.
func (h *Handlers) MarkReady() {
	h.ready.Store(true)
}

// IsReady reports whether the first page has loaded.
func (h *Handlers) IsReady() bool {
	return h.ready.Load()
}

// MetricsHandler exposes the default Prometheus registry.
func (h *Handlers) MetricsHandler() http.Handler {
	return promhttp.Handler()
}
