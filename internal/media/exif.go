package media

import (
	"time"

	"github.com/rwcarlsen/goexif/exif"

	"album-engine/internal/filesystem"
	"album-engine/internal/logging"
)

const exifDateLayout = "2006:01:02 15:04:05"

// ExifDateOriginal returns the DateTimeOriginal tag of a picture.
func ExifDateOriginal(path string) (time.Time, error) {
	f, err := filesystem.OpenWithRetry(path, filesystem.DefaultRetryConfig())
	if err != nil {
		return time.Time{}, err
	}
	defer func() {
		if err := f.Close(); err != nil {
			logging.Warn("failed to close %s: %v", path, err)
		}
	}()

	x, err := exif.Decode(f)
	if err != nil {
		return time.Time{}, err
	}

	tag, err := x.Get(exif.DateTimeOriginal)
	if err != nil {
		// Some cameras only write DateTime.
		return x.DateTime()
	}

	dateStr, err := tag.StringVal()
	if err != nil {
		return time.Time{}, err
	}
	return time.ParseInLocation(exifDateLayout, dateStr, time.Local)
}

// CaptureTime returns the EXIF capture time of path, or fallback when the
// file carries none.
func CaptureTime(path string, fallback time.Time) time.Time {
	t, err := ExifDateOriginal(path)
	if err != nil || t.IsZero() {
		return fallback
	}
	return t
}
