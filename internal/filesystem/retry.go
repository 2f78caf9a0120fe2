package filesystem

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"album-engine/internal/logging"
)

// VolumeResolver names the volume a path lives on, for metric labels. The
// longest configured prefix wins.
type VolumeResolver struct {
	prefixes []volumePrefix
}

type volumePrefix struct {
	dir  string // absolute, with trailing separator
	name string
}

const unknownVolume = "unknown"

// NewVolumeResolver builds a resolver from volume name to directory, for
// example {"library": "/library", "trash": "/trash", "mount": "/media"}.
func NewVolumeResolver(volumes map[string]string) *VolumeResolver {
	vr := &VolumeResolver{prefixes: make([]volumePrefix, 0, len(volumes))}
	for name, dir := range volumes {
		if abs, err := filepath.Abs(dir); err == nil {
			dir = abs
		}
		vr.prefixes = append(vr.prefixes, volumePrefix{dir: withSeparator(dir), name: name})
	}
	sort.Slice(vr.prefixes, func(i, j int) bool {
		return len(vr.prefixes[i].dir) > len(vr.prefixes[j].dir)
	})
	return vr
}

func withSeparator(dir string) string {
	if strings.HasSuffix(dir, string(filepath.Separator)) {
		return dir
	}
	return dir + string(filepath.Separator)
}

// Resolve returns the volume name for path, or "unknown".
func (vr *VolumeResolver) Resolve(path string) string {
	if vr == nil {
		return unknownVolume
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return unknownVolume
	}
	abs = withSeparator(abs)
	for _, p := range vr.prefixes {
		if strings.HasPrefix(abs, p.dir) {
			return p.name
		}
	}
	return unknownVolume
}

var defaultResolver *VolumeResolver

// SetDefaultVolumeResolver sets the resolver used when a RetryConfig has
// none. Call it once at startup.
func SetDefaultVolumeResolver(vr *VolumeResolver) {
	defaultResolver = vr
}

// RetryConfig controls how ESTALE failures on network filesystems are
// retried. Backoff doubles after each attempt up to MaxBackoff.
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	// VolumeResolver overrides the package default for metric labels.
	VolumeResolver *VolumeResolver
}

// DefaultRetryConfig retries three times starting at 50ms.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     3,
		InitialBackoff: 50 * time.Millisecond,
		MaxBackoff:     500 * time.Millisecond,
	}
}

func (c RetryConfig) volume(path string) string {
	if c.VolumeResolver != nil {
		return c.VolumeResolver.Resolve(path)
	}
	return defaultResolver.Resolve(path)
}

func isNFSStaleError(err error) bool {
	var errno syscall.Errno
	return errors.As(err, &errno) && errno == syscall.ESTALE
}

// withRetry runs op until it succeeds, fails with anything but ESTALE, or
// MaxRetries retries have been spent.
func withRetry[T any](operation, path string, config RetryConfig, op func() (T, error)) (T, error) {
	start := time.Now()
	volume := config.volume(path)
	obs := observe()
	record := func(ev RetryEvent) {
		if obs != nil {
			obs.ObserveRetry(ev, operation, volume)
		}
	}
	finish := func(err error) {
		if obs != nil {
			obs.ObserveOperation(volume, operation, time.Since(start).Seconds(), err)
		}
	}

	backoff := config.InitialBackoff
	var err error
	for attempt := 0; ; attempt++ {
		var v T
		v, err = op()
		if err == nil {
			if attempt > 0 {
				logging.Info("%s of %s succeeded on retry %d", operation, path, attempt)
				record(RetrySucceeded)
			}
			finish(nil)
			return v, nil
		}
		if !isNFSStaleError(err) {
			finish(err)
			var zero T
			return zero, err
		}

		record(RetryStale)
		if attempt >= config.MaxRetries {
			break
		}
		record(RetryAttempt)
		logging.Debug("stale file handle on %s of %s, retry %d/%d in %v",
			operation, path, attempt+1, config.MaxRetries, backoff)
		time.Sleep(backoff)
		backoff = min(backoff*2, config.MaxBackoff)
	}

	logging.Warn("%s of %s failed after %d retries: %v", operation, path, config.MaxRetries, err)
	record(RetryExhausted)
	finish(err)
	var zero T
	return zero, err
}

// StatWithRetry is os.Stat with ESTALE retries.
func StatWithRetry(path string, config RetryConfig) (os.FileInfo, error) {
	return withRetry("stat", path, config, func() (os.FileInfo, error) {
		return os.Stat(path)
	})
}

// OpenWithRetry is os.Open with ESTALE retries.
func OpenWithRetry(path string, config RetryConfig) (*os.File, error) {
	return withRetry("open", path, config, func() (*os.File, error) {
		return os.Open(path)
	})
}
