package media

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"album-engine/internal/mediatypes"
)

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{uint8(x), uint8(y), 128, 255})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func writeJPEG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := jpeg.Encode(f, img, nil); err != nil {
		t.Fatal(err)
	}
}

func TestProbe(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Photo.PNG")
	writePNG(t, path, 32, 16)

	mtime := time.Date(2021, 8, 9, 10, 11, 12, 0, time.UTC)
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatal(err)
	}

	rec, err := Probe(path)
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if rec.Kind != mediatypes.KindPicture {
		t.Errorf("Kind = %v, want picture", rec.Kind)
	}
	if rec.Width != 32 || rec.Height != 16 {
		t.Errorf("dimensions = %dx%d, want 32x16", rec.Width, rec.Height)
	}
	if rec.MimeType != "image/png" {
		t.Errorf("MimeType = %s", rec.MimeType)
	}
	// No EXIF in a PNG, so capture time falls back to mtime.
	if !rec.CaptureTime.Equal(mtime) || !rec.ChangeTime.Equal(mtime) {
		t.Errorf("times = %v / %v, want %v", rec.CaptureTime, rec.ChangeTime, mtime)
	}
	if !rec.ImportTime.IsZero() {
		t.Error("Probe set ImportTime")
	}
	if rec.Name != "Photo.PNG" || rec.Dir != dir {
		t.Errorf("Name/Dir = %s / %s", rec.Name, rec.Dir)
	}

	at := time.Now()
	rec, err = ProbeAt(path, at)
	if err != nil || !rec.ImportTime.Equal(at) {
		t.Errorf("ProbeAt ImportTime = %v, %v", rec.ImportTime, err)
	}
}

func TestProbeErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := Probe(filepath.Join(dir, "missing.jpg")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file: %v", err)
	}
	if _, err := Probe(dir); err == nil {
		t.Error("directory probe succeeded")
	}
}

func TestCaptureTimeFallback(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.jpg")
	writeJPEG(t, path, 4, 4)

	fallback := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	if got := CaptureTime(path, fallback); !got.Equal(fallback) {
		t.Errorf("CaptureTime = %v, want fallback", got)
	}
}

func TestConstrainedSize(t *testing.T) {
	tests := []struct {
		name         string
		w, h         int
		maxDim, maxP int
		wantW, wantH int
		wantShrink   bool
	}{
		{"within limits", 100, 50, 200, 1_000_000, 100, 50, false},
		{"wide over dimension", 8000, 4000, 4096, 100_000_000, 4096, 2048, true},
		{"tall over dimension", 1000, 2000, 1000, 100_000_000, 500, 1000, true},
		{"over pixel budget", 2000, 2000, 4096, 1_000_000, 1000, 1000, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h, shrink := constrainedSize(tt.w, tt.h, tt.maxDim, tt.maxP)
			if w != tt.wantW || h != tt.wantH || shrink != tt.wantShrink {
				t.Errorf("constrainedSize = %d, %d, %v; want %d, %d, %v", w, h, shrink, tt.wantW, tt.wantH, tt.wantShrink)
			}
		})
	}
}

func TestNormalizeDegrees(t *testing.T) {
	tests := []struct {
		in      int
		want    int
		wantErr bool
	}{
		{90, 90, false},
		{-90, 270, false},
		{360, 0, false},
		{450, 90, false},
		{45, 0, true},
	}
	for _, tt := range tests {
		got, err := NormalizeDegrees(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("NormalizeDegrees(%d) err = %v", tt.in, err)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("NormalizeDegrees(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestRotateFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wide.png")
	writePNG(t, path, 20, 10)

	if err := RotateFile(path, 90); err != nil {
		t.Fatalf("RotateFile: %v", err)
	}
	dims, err := GetImageDimensions(path)
	if err != nil {
		t.Fatal(err)
	}
	if dims.Width != 10 || dims.Height != 20 {
		t.Errorf("after 90: %dx%d, want 10x20", dims.Width, dims.Height)
	}

	if err := RotateFile(path, 180); err != nil {
		t.Fatal(err)
	}
	dims, _ = GetImageDimensions(path)
	if dims.Width != 10 || dims.Height != 20 {
		t.Errorf("after 180: %dx%d, want 10x20", dims.Width, dims.Height)
	}

	if err := RotateFile(path, 30); !errors.Is(err, ErrBadAngle) {
		t.Errorf("RotateFile(30) = %v, want ErrBadAngle", err)
	}

	video := filepath.Join(dir, "clip.mp4")
	if err := os.WriteFile(video, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := RotateFile(video, 90); err == nil {
		t.Error("rotating a video succeeded")
	}

	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".png" && e.Name() != "wide.png" {
			t.Errorf("temporary file left behind: %s", e.Name())
		}
	}
}

func TestCacheKey(t *testing.T) {
	mtime := time.Unix(1700000000, 0)
	a := cacheKey("/lib/a.jpg", mtime)
	if a != cacheKey("/lib/a.jpg", mtime) {
		t.Error("cacheKey not deterministic")
	}
	if a == cacheKey("/lib/b.jpg", mtime) {
		t.Error("different paths share a key")
	}
	if a == cacheKey("/lib/a.jpg", mtime.Add(time.Second)) {
		t.Error("modification time ignored")
	}
	if filepath.Ext(a) != ".jpg" || len(a) != 64+4 {
		t.Errorf("unexpected key format %q", a)
	}
}

func TestThumbnailWarm(t *testing.T) {
	dir := t.TempDir()
	cacheDir := filepath.Join(dir, "cache")
	src := filepath.Join(dir, "photo.png")
	writePNG(t, src, 400, 300)

	gen := NewThumbnailGenerator(cacheDir, 100, true)
	ctx := context.Background()

	cached, err := gen.Warm(ctx, src, mediatypes.KindPicture)
	if err != nil {
		t.Fatalf("Warm: %v", err)
	}
	dims, err := GetImageDimensions(cached)
	if err != nil {
		t.Fatal(err)
	}
	if dims.Width != 100 || dims.Height != 75 {
		t.Errorf("thumbnail = %dx%d, want 100x75", dims.Width, dims.Height)
	}

	again, err := gen.Warm(ctx, src, mediatypes.KindUnknown)
	if err != nil || again != cached {
		t.Errorf("second Warm = %s, %v; want cache hit %s", again, err, cached)
	}

	data, err := gen.GetThumbnail(ctx, src, mediatypes.KindPicture)
	if err != nil || len(data) == 0 {
		t.Errorf("GetThumbnail = %d bytes, %v", len(data), err)
	}
}

func TestThumbnailErrors(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	disabled := NewThumbnailGenerator(dir, 0, false)
	if disabled.IsEnabled() {
		t.Error("disabled generator reports enabled")
	}
	if _, err := disabled.Warm(ctx, "/x.jpg", mediatypes.KindPicture); err == nil {
		t.Error("disabled generator produced a thumbnail")
	}

	gen := NewThumbnailGenerator(filepath.Join(dir, "cache"), 0, true)
	if _, err := gen.Warm(ctx, filepath.Join(dir, "missing.jpg"), mediatypes.KindPicture); err == nil {
		t.Error("missing file produced a thumbnail")
	}

	other := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(other, []byte("hi"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := gen.Warm(ctx, other, mediatypes.KindUnknown); err == nil {
		t.Error("unsupported file produced a thumbnail")
	}
}

func TestThumbnailWithVipsRequiresInit(t *testing.T) {
	if IsVipsAvailable() {
		t.Skip("libvips already started in this process")
	}
	path := filepath.Join(t.TempDir(), "photo.png")
	writePNG(t, path, 8, 8)
	if _, err := thumbnailWithVips(path, 4); err == nil {
		t.Error("thumbnailWithVips succeeded before InitVips")
	}
}
