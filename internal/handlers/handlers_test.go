package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"album-engine/internal/database"
	"album-engine/internal/engine"
	"album-engine/internal/events"
	"album-engine/internal/mediatypes"
)

func setupHandlers(t *testing.T) (*Handlers, *engine.Engine, *database.Database, string) {
	t.Helper()
	root := t.TempDir()

	db, err := database.New(context.Background(), filepath.Join(root, "album.db"))
	if err != nil {
		t.Fatalf("database.New() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	trash := filepath.Join(root, "trash")
	if err := os.MkdirAll(trash, 0o755); err != nil {
		t.Fatal(err)
	}
	eng := engine.New(engine.Config{TrashDir: trash, PoolWorkers: 2, PoolIdleTimeout: time.Second, PageSize: 10}, db)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = eng.Shutdown(ctx)
	})

	return New(eng, db), eng, db, root
}

func writePNG(t *testing.T, path string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, image.NewGray(image.Rect(0, 0, 2, 2))); err != nil {
		t.Fatal(err)
	}
}

func waitForPage(t *testing.T, eng *engine.Engine) events.FirstPageReady {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev := <-eng.Events():
			if ready, ok := ev.(events.FirstPageReady); ok {
				return ready
			}
		case <-timeout:
			t.Fatal("timed out waiting for FirstPageReady")
		}
	}
}

func postJSON(t *testing.T, handler http.HandlerFunc, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/op", bytes.NewReader(data))
	w := httptest.NewRecorder()
	handler(w, req)
	return w
}

func TestHealthCheckReadiness(t *testing.T) {
	h, _, _, _ := setupHandlers(t)

	w := httptest.NewRecorder()
	h.HealthCheck(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("HealthCheck before ready = %d, want 503", w.Code)
	}
	var resp HealthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != statusStarting || resp.Ready {
		t.Errorf("response = %+v", resp)
	}

	h.MarkReady()

	w = httptest.NewRecorder()
	h.HealthCheck(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK {
		t.Errorf("HealthCheck after ready = %d, want 200", w.Code)
	}

	w = httptest.NewRecorder()
	h.ReadinessCheck(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if w.Code != http.StatusOK {
		t.Errorf("ReadinessCheck = %d, want 200", w.Code)
	}
}

func TestLivenessCheckHead(t *testing.T) {
	h, _, _, _ := setupHandlers(t)

	w := httptest.NewRecorder()
	h.LivenessCheck(w, httptest.NewRequest(http.MethodHead, "/livez", nil))
	if w.Code != http.StatusOK || w.Body.Len() != 0 {
		t.Errorf("HEAD /livez = %d with %d body bytes", w.Code, w.Body.Len())
	}
}

func TestGetVersion(t *testing.T) {
	h, _, _, _ := setupHandlers(t)

	w := httptest.NewRecorder()
	h.GetVersion(w, httptest.NewRequest(http.MethodGet, "/version", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if cc := w.Header().Get("Cache-Control"); cc != "no-cache" {
		t.Errorf("Cache-Control = %q", cc)
	}
}

func TestFirstPageAndRecord(t *testing.T) {
	h, eng, db, root := setupHandlers(t)

	rec := mediatypes.NewRecord(filepath.Join(root, "a.png"))
	rec.Kind = mediatypes.KindPicture
	rec.CaptureTime = time.Date(2022, 5, 1, 0, 0, 0, 0, time.UTC)
	if err := db.InsertImages(context.Background(), []mediatypes.ImageRecord{rec}, "", 0); err != nil {
		t.Fatal(err)
	}

	w := httptest.NewRecorder()
	h.LoadFirstPage(w, httptest.NewRequest(http.MethodPost, "/api/page?count=5", nil))
	if w.Code != http.StatusAccepted {
		t.Fatalf("LoadFirstPage = %d", w.Code)
	}
	waitForPage(t, eng)

	w = httptest.NewRecorder()
	h.GetFirstPage(w, httptest.NewRequest(http.MethodGet, "/api/page", nil))
	var page []mediatypes.ImageRecord
	if err := json.Unmarshal(w.Body.Bytes(), &page); err != nil {
		t.Fatal(err)
	}
	if len(page) != 1 || page[0].Path != rec.Path {
		t.Errorf("page = %+v", page)
	}

	w = httptest.NewRecorder()
	h.GetRecord(w, httptest.NewRequest(http.MethodGet, "/api/record?path="+rec.Path, nil))
	if w.Code != http.StatusOK {
		t.Errorf("GetRecord cached = %d", w.Code)
	}

	w = httptest.NewRecorder()
	h.GetRecord(w, httptest.NewRequest(http.MethodGet, "/api/record?path=/nope.jpg", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("GetRecord missing = %d", w.Code)
	}

	w = httptest.NewRecorder()
	h.LoadFirstPage(w, httptest.NewRequest(http.MethodPost, "/api/page?count=x", nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad count = %d", w.Code)
	}
}

func TestOperationEndpoints(t *testing.T) {
	h, _, _, root := setupHandlers(t)
	src := filepath.Join(root, "in.png")
	writePNG(t, src)

	tests := []struct {
		name    string
		handler http.HandlerFunc
		body    interface{}
		want    int
	}{
		{"import", h.Import, PathsRequest{Paths: []string{src}, Album: "a"}, http.StatusAccepted},
		{"empty import", h.Import, PathsRequest{}, http.StatusUnprocessableEntity},
		{"empty trash", h.Trash, PathsRequest{}, http.StatusUnprocessableEntity},
		{"empty recover", h.Recover, PathsRequest{}, http.StatusUnprocessableEntity},
		{"empty cleanup", h.CleanupTrash, PathsRequest{}, http.StatusUnprocessableEntity},
		{"empty remove", h.RemoveImages, PathsRequest{}, http.StatusUnprocessableEntity},
		{"bad rotation", h.Rotate, RotateRequest{Path: src, Degrees: 45}, http.StatusUnprocessableEntity},
		{"rotation", h.Rotate, RotateRequest{Path: src, Degrees: 90}, http.StatusAccepted},
		{"unknown field", h.Trash, map[string]string{"bogus": "x"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postJSON(t, tt.handler, tt.body)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestGetStats(t *testing.T) {
	h, _, _, _ := setupHandlers(t)

	w := httptest.NewRecorder()
	h.GetStats(w, httptest.NewRequest(http.MethodGet, "/api/stats", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp StatsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Library == nil || resp.LibraryErr != "" {
		t.Errorf("library stats missing: %+v", resp)
	}
}
