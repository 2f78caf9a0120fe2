package filesystem

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"album-engine/internal/logging"
)

// ErrExists is returned when a copy or move target is already present.
var ErrExists = errors.New("destination already exists")

// Exists reports whether path can be stat'ed.
func Exists(path string) bool {
	_, err := StatWithRetry(path, DefaultRetryConfig())
	return err == nil
}

// Writable reports whether the owner write bit is set on path.
// A path that cannot be stat'ed is not writable.
func Writable(path string) bool {
	info, err := StatWithRetry(path, DefaultRetryConfig())
	if err != nil {
		return false
	}
	return info.Mode().Perm()&0o200 != 0
}

// FilterTrashable returns the paths that may be moved to the trash: every path
// except those that exist and are not writable. The input slice is not modified.
func FilterTrashable(paths []string) []string {
	keep := make([]string, 0, len(paths))
	for _, p := range paths {
		if !Writable(p) && Exists(p) {
			logging.Debug("Skipping %s: exists but is not writable", p)
			continue
		}
		keep = append(keep, p)
	}
	return keep
}

func timed(op, path string, fn func() error) error {
	start := time.Now()
	err := fn()
	if obs := observe(); obs != nil {
		obs.ObserveOperation(defaultResolver.Resolve(path), op, time.Since(start).Seconds(), err)
	}
	return err
}

// Move renames src to dst, creating dst's parent directory. When the rename
// crosses devices the file is copied and the source removed. An existing dst
// is never overwritten.
func Move(src, dst string) error {
	return timed("move", dst, func() error {
		if _, err := os.Lstat(dst); err == nil {
			return fmt.Errorf("move %s: %w", dst, ErrExists)
		}
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return fmt.Errorf("failed to create directory for %s: %w", dst, err)
		}

		err := os.Rename(src, dst)
		if err == nil {
			return nil
		}

		var errno syscall.Errno
		if !errors.As(err, &errno) || errno != syscall.EXDEV {
			return err
		}

		logging.Debug("Cross-device move %s -> %s, falling back to copy", src, dst)
		if err := copyFile(src, dst); err != nil {
			return err
		}
		if err := os.Remove(src); err != nil {
			return fmt.Errorf("copied %s but failed to remove source: %w", src, err)
		}
		return nil
	})
}

// Copy copies src to dst, preserving the modification time. It fails with
// ErrExists if dst is present.
func Copy(src, dst string) error {
	return timed("copy", dst, func() error {
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return fmt.Errorf("failed to create directory for %s: %w", dst, err)
		}
		return copyFile(src, dst)
	})
}

// Remove deletes path. A missing path is not an error.
func Remove(path string) error {
	return timed("remove", path, func() error {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		return nil
	})
}

func copyFile(src, dst string) (err error) {
	in, err := OpenWithRetry(src, DefaultRetryConfig())
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := in.Close(); closeErr != nil {
			logging.Warn("failed to close %s: %v", src, closeErr)
		}
	}()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, info.Mode().Perm())
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("copy %s: %w", dst, ErrExists)
		}
		return err
	}

	if _, err = io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}
	if err = out.Close(); err != nil {
		_ = os.Remove(dst)
		return err
	}

	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}

// UniquePath returns dir/name, or dir/name with a numeric suffix before the
// extension if that path is taken.
func UniquePath(dir, name string) string {
	candidate := filepath.Join(dir, name)
	if _, err := os.Lstat(candidate); errors.Is(err, os.ErrNotExist) {
		return candidate
	}

	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	for i := 1; ; i++ {
		candidate = filepath.Join(dir, base+"("+strconv.Itoa(i)+")"+ext)
		if _, err := os.Lstat(candidate); errors.Is(err, os.ErrNotExist) {
			return candidate
		}
	}
}
