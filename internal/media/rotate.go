package media

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"time"

	"github.com/disintegration/imaging"

	"album-engine/internal/logging"
	"album-engine/internal/mediatypes"
	"album-engine/internal/metrics"
)

// ErrBadAngle is returned for rotations that are not a multiple of 90 degrees.
var ErrBadAngle = errors.New("rotation must be a multiple of 90 degrees")

// NormalizeDegrees maps any multiple of 90 onto 0, 90, 180 or 270.
func NormalizeDegrees(degrees int) (int, error) {
	if degrees%90 != 0 {
		return 0, fmt.Errorf("%d: %w", degrees, ErrBadAngle)
	}
	return ((degrees % 360) + 360) % 360, nil
}

// RotateFile rotates the picture at path clockwise by degrees and rewrites it
// in place in its original format. The write goes through a temporary file
// in the same directory.
func RotateFile(path string, degrees int) (err error) {
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
		}
		metrics.ImageRotationsTotal.WithLabelValues(status).Inc()
	}()

	deg, err := NormalizeDegrees(degrees)
	if err != nil {
		return err
	}
	if mediatypes.KindForPath(path) != mediatypes.KindPicture {
		return fmt.Errorf("rotate %s: not a picture", path)
	}

	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if deg == 0 {
		return nil
	}

	format, err := imaging.FormatFromFilename(path)
	if err != nil {
		return fmt.Errorf("rotate %s: %w", path, err)
	}

	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return fmt.Errorf("rotate %s: %w", path, err)
	}

	var out image.Image
	// imaging rotates counter-clockwise.
	switch deg {
	case 90:
		out = imaging.Rotate270(img)
	case 180:
		out = imaging.Rotate180(img)
	case 270:
		out = imaging.Rotate90(img)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".rotate-*"+filepath.Ext(path))
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpPath)
		}
	}()

	if err = imaging.Encode(tmp, out, format, imaging.JPEGQuality(95)); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("rotate %s: encode: %w", path, err)
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = os.Chmod(tmpPath, info.Mode().Perm()); err != nil {
		return err
	}
	if err = os.Rename(tmpPath, path); err != nil {
		return err
	}

	now := time.Now()
	if chErr := os.Chtimes(path, now, now); chErr != nil {
		logging.Warn("failed to touch %s after rotation: %v", path, chErr)
	}
	logging.Debug("Rotated %s by %d degrees", path, deg)
	return nil
}
