// Package media reads and transforms the files the engine tracks.
//
// Probe builds an ImageRecord for a path: its kind from the extension, its
// capture time from EXIF DateTimeOriginal (falling back to the modification
// time), its pixel dimensions from the image header and its MIME type.
//
// RotateFile rewrites a picture rotated by a multiple of 90 degrees.
//
// ThumbnailGenerator produces JPEG thumbnails into a cache directory:
//   - Pictures: libvips when initialized, otherwise imaging with size limits
//   - Videos: a frame extracted with FFmpeg
package media
