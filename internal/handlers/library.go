package handlers

import (
	"net/http"
	"strconv"

	"album-engine/internal/registry"
	"album-engine/internal/tasks"
)

// PathsRequest is the body of the bulk operation endpoints.
type PathsRequest struct {
	Paths []string `json:"paths"`
	// Album applies to imports only.
	Album string `json:"album,omitempty"`
	// Permanent applies to trash only: the paths are already in the trash
	// and are deleted for good.
	Permanent bool `json:"permanent,omitempty"`
}

// RotateRequest is the body of the rotate endpoint.
type RotateRequest struct {
	Path    string `json:"path"`
	Degrees int    `json:"degrees"`
}

// GetFirstPage returns the cached first page, newest first
func (h *Handlers) GetFirstPage(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, h.eng.FirstPage())
}

// LoadFirstPage reloads the first page. The optional count query parameter
// overrides the configured page size.
func (h *Handlers) LoadFirstPage(w http.ResponseWriter, r *http.Request) {
	n := 0
	if v := r.URL.Query().Get("count"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			writeJSONError(w, "count must be a non-negative integer", http.StatusBadRequest)
			return
		}
		n = parsed
	}
	writeAccepted(w, h.eng.LoadFirstPage(n, true), "engine is shut down")
}

// GetRecord returns the cached record for the path query parameter
func (h *Handlers) GetRecord(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeJSONError(w, "path is required", http.StatusBadRequest)
		return
	}
	rec, ok := h.eng.Record(path)
	if !ok {
		writeJSONError(w, "not cached", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, rec)
}

// Import queues an import of files and directories
func (h *Handlers) Import(w http.ResponseWriter, r *http.Request) {
	var req PathsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	ok := h.eng.ImportFromPaths(req.Paths, req.Album, registry.Handle{}, tasks.ImportOptions{})
	writeAccepted(w, ok, "nothing to import")
}

// Trash queues a move to the trash, or a permanent delete
func (h *Handlers) Trash(w http.ResponseWriter, r *http.Request) {
	var req PathsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeAccepted(w, h.eng.MoveToTrash(req.Paths, req.Permanent, false), "no deletable paths")
}

// Recover queues restoring trashed files
func (h *Handlers) Recover(w http.ResponseWriter, r *http.Request) {
	var req PathsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeAccepted(w, h.eng.RecoverFromTrash(req.Paths), "nothing to recover")
}

// CleanupTrash queues purging trash entries for good
func (h *Handlers) CleanupTrash(w http.ResponseWriter, r *http.Request) {
	var req PathsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeAccepted(w, h.eng.CleanupTrash(req.Paths), "nothing to clean")
}

// RemoveImages queues dropping rows without touching files
func (h *Handlers) RemoveImages(w http.ResponseWriter, r *http.Request) {
	var req PathsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeAccepted(w, h.eng.RemoveImages(req.Paths), "nothing to remove")
}

// Reload queues validating cached records against the filesystem
func (h *Handlers) Reload(w http.ResponseWriter, _ *http.Request) {
	writeAccepted(w, h.eng.ReloadValidatingAgainstFilesystem(), "engine is shut down")
}

// Rotate queues rotating a picture
func (h *Handlers) Rotate(w http.ResponseWriter, r *http.Request) {
	var req RotateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeAccepted(w, h.eng.RotateImage(req.Path, req.Degrees), "rotation must be a multiple of 90 degrees")
}

// Stop asks the page worker to abandon what it is doing
func (h *Handlers) Stop(w http.ResponseWriter, _ *http.Request) {
	h.eng.RequestStop()
	writeAccepted(w, true, "")
}
