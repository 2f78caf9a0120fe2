package media

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"golang.org/x/crypto/blake2b"

	"album-engine/internal/filesystem"
	"album-engine/internal/logging"
	"album-engine/internal/mediatypes"
	"album-engine/internal/metrics"
)

// DefaultThumbnailSize is the bounding box edge of generated thumbnails.
const DefaultThumbnailSize = 200

// ThumbnailGenerator renders and caches JPEG thumbnails.
type ThumbnailGenerator struct {
	cacheDir string
	size     int
	enabled  bool
	locks    [16]sync.Mutex
}

// NewThumbnailGenerator returns a generator writing into cacheDir. A disabled
// generator rejects every request.
func NewThumbnailGenerator(cacheDir string, size int, enabled bool) *ThumbnailGenerator {
	if size <= 0 {
		size = DefaultThumbnailSize
	}
	if enabled {
		logging.Debug("ThumbnailGenerator: enabled, cache dir: %s", cacheDir)
		if err := os.MkdirAll(cacheDir, 0o755); err != nil {
			logging.Warn("ThumbnailGenerator: failed to create cache dir: %v", err)
		}
	} else {
		logging.Debug("ThumbnailGenerator: disabled")
	}
	return &ThumbnailGenerator{cacheDir: cacheDir, size: size, enabled: enabled}
}

// IsEnabled reports whether thumbnails are generated.
func (t *ThumbnailGenerator) IsEnabled() bool {
	return t.enabled
}

// cacheKey hashes the path together with its modification time, so a
// rewritten file (for example after rotation) gets a fresh thumbnail.
func cacheKey(path string, modTime time.Time) string {
	h, _ := blake2b.New256(nil)
	h.Write([]byte(path))
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatInt(modTime.UnixNano(), 10)))
	return hex.EncodeToString(h.Sum(nil)) + ".jpg"
}

// Warm makes sure a thumbnail for path is cached and returns its location.
func (t *ThumbnailGenerator) Warm(ctx context.Context, path string, kind mediatypes.ItemKind) (string, error) {
	if !t.enabled {
		return "", fmt.Errorf("thumbnails disabled")
	}

	info, err := filesystem.StatWithRetry(path, filesystem.DefaultRetryConfig())
	if err != nil {
		return "", fmt.Errorf("file not accessible: %w", err)
	}

	key := cacheKey(path, info.ModTime())
	cachePath := filepath.Join(t.cacheDir, key)

	if _, err := os.Stat(cachePath); err == nil {
		metrics.ThumbnailCacheHits.Inc()
		return cachePath, nil
	}

	lock := &t.locks[key[0]%byte(len(t.locks))]
	lock.Lock()
	defer lock.Unlock()

	if _, err := os.Stat(cachePath); err == nil {
		metrics.ThumbnailCacheHits.Inc()
		return cachePath, nil
	}
	metrics.ThumbnailCacheMisses.Inc()

	if kind == mediatypes.KindUnknown {
		kind = mediatypes.KindForPath(path)
	}

	start := time.Now()
	data, err := t.render(ctx, path, kind)
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.ThumbnailGenerationsTotal.WithLabelValues(kind.String(), status).Inc()
	metrics.ThumbnailGenerationDuration.WithLabelValues(kind.String()).Observe(time.Since(start).Seconds())
	if err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(t.cacheDir, ".thumb-*")
	if err != nil {
		return "", fmt.Errorf("failed to cache thumbnail: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to cache thumbnail: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", err
	}
	if err := os.Rename(tmp.Name(), cachePath); err != nil {
		_ = os.Remove(tmp.Name())
		return "", err
	}

	logging.Debug("Thumbnail cached: %s -> %s", path, cachePath)
	return cachePath, nil
}

// GetThumbnail returns the JPEG bytes of path's thumbnail, generating it if needed.
func (t *ThumbnailGenerator) GetThumbnail(ctx context.Context, path string, kind mediatypes.ItemKind) ([]byte, error) {
	cachePath, err := t.Warm(ctx, path, kind)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(cachePath)
}

func (t *ThumbnailGenerator) render(ctx context.Context, path string, kind mediatypes.ItemKind) ([]byte, error) {
	var img image.Image
	var err error

	switch kind {
	case mediatypes.KindPicture:
		img, err = t.loadPicture(ctx, path)
	case mediatypes.KindVideo:
		img, err = extractFrame(ctx, path, true)
	default:
		return nil, fmt.Errorf("unsupported file type: %s", kind)
	}
	if err != nil {
		return nil, fmt.Errorf("thumbnail generation failed: %w", err)
	}
	if img == nil {
		return nil, fmt.Errorf("thumbnail generation returned nil image")
	}

	thumb := imaging.Fit(img, t.size, t.size, imaging.Lanczos)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: 80}); err != nil {
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}

func (t *ThumbnailGenerator) loadPicture(ctx context.Context, path string) (image.Image, error) {
	if IsVipsAvailable() {
		img, err := thumbnailWithVips(path, t.size)
		if err == nil {
			return img, nil
		}
		logging.Debug("vips failed for %s: %v, falling back to imaging", path, err)
	}

	img, err := LoadImageConstrained(path, MaxImageDimension, MaxImagePixels)
	if err == nil {
		return img, nil
	}
	logging.Debug("imaging failed for %s: %v, trying ffmpeg fallback", path, err)

	img, ffErr := extractFrame(ctx, path, false)
	if ffErr != nil {
		return nil, fmt.Errorf("all image decode methods failed for %s: %w", path, err)
	}
	return img, nil
}

// extractFrame decodes one frame through ffmpeg. For videos it first tries
// one second in, skipping black intro frames, then the first frame.
func extractFrame(ctx context.Context, path string, seek bool) (image.Image, error) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return nil, fmt.Errorf("ffmpeg not found: %w", err)
	}

	run := func(args ...string) (*bytes.Buffer, error) {
		var stdout, stderr bytes.Buffer
		cmd := exec.CommandContext(ctx, "ffmpeg", args...)
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
		if err := cmd.Run(); err != nil {
			return nil, fmt.Errorf("ffmpeg failed: %v, stderr: %s", err, stderr.String())
		}
		if stdout.Len() == 0 {
			return nil, fmt.Errorf("ffmpeg produced no output for %s", path)
		}
		return &stdout, nil
	}

	firstFrame := []string{"-i", path, "-vframes", "1", "-f", "image2pipe", "-vcodec", "png", "-"}

	var out *bytes.Buffer
	var err error
	if seek {
		out, err = run("-i", path, "-ss", "00:00:01", "-vframes", "1", "-f", "image2pipe", "-vcodec", "png", "-")
		if err != nil {
			logging.Debug("FFmpeg seek attempt failed for %s: %v", path, err)
			out, err = run(firstFrame...)
		}
	} else {
		out, err = run(firstFrame...)
	}
	if err != nil {
		return nil, err
	}

	img, _, err := image.Decode(out)
	if err != nil {
		return nil, fmt.Errorf("failed to decode ffmpeg output: %w", err)
	}
	return img, nil
}
