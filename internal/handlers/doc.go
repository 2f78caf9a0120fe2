// Package handlers provides the HTTP handlers of the album engine's admin
// server.
//
// It includes handlers for:
//   - Health, liveness and readiness probes
//   - Version and engine/library statistics
//   - Submitting engine operations (import, trash, recover, reload, rotate)
//   - Reading the cached first page and single records
//
// Operation endpoints answer 202 Accepted once the engine has queued the
// work; results arrive later through the engine's event stream.
package handlers
