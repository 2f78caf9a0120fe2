package media

import (
	"fmt"
	"image"
	"math"
	"path/filepath"
	"strings"
	"time"

	"album-engine/internal/filesystem"
	"album-engine/internal/logging"
	"album-engine/internal/mediatypes"

	// Image format decoders
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"  // BMP format support
	_ "golang.org/x/image/tiff" // TIFF format support
	_ "golang.org/x/image/webp" // WebP format support
)

const (
	// MaxImageDimension is the maximum width or height we'll decode at full size.
	// Images larger than this are downscaled before thumbnailing.
	MaxImageDimension = 4096

	// MaxImagePixels is the maximum total pixels (width * height) we'll process
	MaxImagePixels = 20_000_000 // ~20MP, uses ~80MB in RGBA
)

// ImageDimensions holds image width and height
type ImageDimensions struct {
	Width  int
	Height int
}

// GetImageDimensions returns image dimensions without fully decoding the image
func GetImageDimensions(path string) (*ImageDimensions, error) {
	file, err := filesystem.OpenWithRetry(path, filesystem.DefaultRetryConfig())
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := file.Close(); err != nil {
			logging.Warn("failed to close image file %s: %v", path, err)
		}
	}()

	config, _, err := image.DecodeConfig(file)
	if err != nil {
		return nil, err
	}

	return &ImageDimensions{
		Width:  config.Width,
		Height: config.Height,
	}, nil
}

// constrainedSize returns the size an image of width x height is scaled to
// so that neither side exceeds maxDimension and the area stays under maxPixels.
func constrainedSize(width, height, maxDimension, maxPixels int) (int, int, bool) {
	if width <= maxDimension && height <= maxDimension && width*height <= maxPixels {
		return width, height, false
	}

	targetWidth, targetHeight := width, height
	if width > maxDimension || height > maxDimension {
		if width > height {
			targetWidth = maxDimension
			targetHeight = height * maxDimension / width
		} else {
			targetHeight = maxDimension
			targetWidth = width * maxDimension / height
		}
	}

	if targetPixels := targetWidth * targetHeight; targetPixels > maxPixels {
		scale := math.Sqrt(float64(maxPixels) / float64(targetPixels))
		targetWidth = int(float64(targetWidth) * scale)
		targetHeight = int(float64(targetHeight) * scale)
	}
	return max(targetWidth, 1), max(targetHeight, 1), true
}

// LoadImageConstrained loads an image, downscaling if it exceeds size limits.
// This prevents OOM when processing very large images.
func LoadImageConstrained(path string, maxDimension, maxPixels int) (image.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}

	b := img.Bounds()
	w, h, shrink := constrainedSize(b.Dx(), b.Dy(), maxDimension, maxPixels)
	if !shrink {
		return img, nil
	}

	logging.Info("Constraining large image %s from %dx%d to %dx%d", path, b.Dx(), b.Dy(), w, h)
	return imaging.Resize(img, w, h, imaging.Lanczos), nil
}

// Probe stats path and returns its metadata record. ImportTime is left zero;
// callers set it when the file is actually imported.
func Probe(path string) (mediatypes.ImageRecord, error) {
	info, err := filesystem.StatWithRetry(path, filesystem.DefaultRetryConfig())
	if err != nil {
		return mediatypes.ImageRecord{}, err
	}
	if info.IsDir() {
		return mediatypes.ImageRecord{}, fmt.Errorf("%s is a directory", path)
	}

	rec := mediatypes.NewRecord(path)
	rec.Kind = mediatypes.KindForPath(path)
	rec.Size = info.Size()
	rec.ChangeTime = info.ModTime()
	rec.MimeType = mediatypes.GetMimeType(strings.ToLower(filepath.Ext(path)))

	rec.CaptureTime = CaptureTime(path, info.ModTime())

	if rec.Kind == mediatypes.KindPicture {
		if dims, err := GetImageDimensions(path); err == nil {
			rec.Width, rec.Height = dims.Width, dims.Height
		} else {
			logging.Debug("Could not read dimensions for %s: %v", path, err)
		}
	}

	return rec, nil
}

// ProbeAt is Probe with ImportTime set to at.
func ProbeAt(path string, at time.Time) (mediatypes.ImageRecord, error) {
	rec, err := Probe(path)
	if err != nil {
		return rec, err
	}
	rec.ImportTime = at
	return rec, nil
}
