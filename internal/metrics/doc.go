// Package metrics provides Prometheus instrumentation for the album engine.
//
// All metrics are prefixed with "album_engine_" and registered through
// promauto at package init. The categories are:
//
//   - Cache and registry: record count, first-page size, registry misses
//   - Worker pool: live workers, active workers, queue depth, expiries
//   - Tasks: submissions, completions by status, durations, per-file failures
//   - Dedicated worker: requests by type and status, queue depth, stops
//   - Notifications: events published by kind, pending events
//   - Database: query counts and durations, transactions, rows affected
//   - Filesystem: operation durations and errors, ESTALE retries
//   - Thumbnails and rotation
//   - Mount watcher events
//
// Call InitializeMetrics once at startup so every label combination is
// exported from the first scrape. Collector periodically copies an engine
// Stats snapshot into the gauges.
package metrics
