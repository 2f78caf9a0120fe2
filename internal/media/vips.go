package media

import (
	"bytes"
	"fmt"
	"image"
	"sync"
	"sync/atomic"

	"github.com/davidbyttow/govips/v2/vips"
	"github.com/disintegration/imaging"

	"album-engine/internal/logging"
)

var (
	vipsMu    sync.Mutex
	vipsReady atomic.Bool
)

// InitVips starts libvips. Thumbnails use it when it is running and fall
// back to pure Go decoding otherwise. Calling it twice is harmless.
func InitVips() error {
	vipsMu.Lock()
	defer vipsMu.Unlock()

	if vipsReady.Load() {
		return nil
	}

	level, handler := vipsLogging(logging.GetLevel())
	vips.LoggingSettings(handler, level)

	// One operation at a time and a small cache; thumbnails run on the task
	// pool, which already provides the parallelism.
	vips.Startup(&vips.Config{
		ConcurrencyLevel: 1,
		MaxCacheMem:      50 * 1024 * 1024,
		MaxCacheSize:     100,
	})

	vipsReady.Store(true)
	logging.Info("libvips initialized (version %s)", vips.Version)
	return nil
}

// vipsLogging maps the application log level onto libvips' own level and
// routes libvips messages through the logging package.
func vipsLogging(appLevel logging.LogLevel) (vips.LogLevel, func(string, vips.LogLevel, string)) {
	log := logging.For("vips")
	forward := func(domain string, level vips.LogLevel, msg string) {
		switch {
		case level <= vips.LogLevelCritical:
			log.Error("[%s] %s", domain, msg)
		case level == vips.LogLevelWarning:
			log.Warn("[%s] %s", domain, msg)
		default:
			log.Debug("[%s] %s", domain, msg)
		}
	}

	switch appLevel {
	case logging.LevelDebug:
		return vips.LogLevelInfo, forward
	case logging.LevelWarn:
		return vips.LogLevelError, forward
	case logging.LevelError:
		return vips.LogLevelCritical, forward
	default:
		return vips.LogLevelWarning, forward
	}
}

// ShutdownVips stops libvips.
func ShutdownVips() {
	vipsMu.Lock()
	defer vipsMu.Unlock()

	if vipsReady.Swap(false) {
		vips.Shutdown()
		logging.Info("libvips shut down")
	}
}

// IsVipsAvailable reports whether InitVips has run.
func IsVipsAvailable() bool {
	return vipsReady.Load()
}

// thumbnailWithVips renders a picture to fit in size x size. libvips shrinks
// while decoding, so large JPEGs never exist at full resolution in memory.
// The result goes back through imaging so orientation is handled the same
// way as on the pure Go path.
func thumbnailWithVips(path string, size int) (image.Image, error) {
	if !vipsReady.Load() {
		return nil, fmt.Errorf("libvips not initialized")
	}

	ref, err := vips.NewThumbnailFromFile(path, size, size, vips.InterestingNone)
	if err != nil {
		return nil, fmt.Errorf("vips thumbnail %s: %w", path, err)
	}
	defer ref.Close()

	data, _, err := ref.ExportJpeg(&vips.JpegExportParams{Quality: 90})
	if err != nil {
		return nil, fmt.Errorf("vips export %s: %w", path, err)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode vips output for %s: %w", path, err)
	}
	return img, nil
}
