package mediatypes

import (
	"path/filepath"
	"strings"
	"time"
)

// ItemKind classifies a tracked file. The numeric values are persisted.
type ItemKind int

const (
	// KindUnknown means the file has not been classified.
	KindUnknown ItemKind = iota
	// KindPicture represents a still image.
	KindPicture
	// KindVideo represents a video file.
	KindVideo
)

// String returns the lowercase name of the kind.
func (k ItemKind) String() string {
	switch k {
	case KindPicture:
		return "picture"
	case KindVideo:
		return "video"
	default:
		return "unknown"
	}
}

// ImageExtensions maps file extensions to whether they are supported image formats.
var ImageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".bmp":  true,
	".webp": true,
	".tiff": true,
	".tif":  true,
	".heic": true,
	".heif": true,
	".dng":  true,
	".cr2":  true,
	".nef":  true,
	".arw":  true,
}

// VideoExtensions maps file extensions to whether they are supported video formats.
var VideoExtensions = map[string]bool{
	".mp4":  true,
	".mkv":  true,
	".avi":  true,
	".mov":  true,
	".wmv":  true,
	".flv":  true,
	".webm": true,
	".m4v":  true,
	".mpeg": true,
	".mpg":  true,
	".3gp":  true,
	".ts":   true,
}

// MimeTypes maps file extensions to their MIME types.
var MimeTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
	".webp": "image/webp",
	".tiff": "image/tiff",
	".tif":  "image/tiff",
	".heic": "image/heic",
	".heif": "image/heif",

	".mp4":  "video/mp4",
	".mkv":  "video/x-matroska",
	".avi":  "video/x-msvideo",
	".mov":  "video/quicktime",
	".wmv":  "video/x-ms-wmv",
	".flv":  "video/x-flv",
	".webm": "video/webm",
	".m4v":  "video/x-m4v",
	".mpeg": "video/mpeg",
	".mpg":  "video/mpeg",
	".3gp":  "video/3gpp",
	".ts":   "video/mp2t",
}

// GetKind returns the ItemKind for a given file extension.
// The extension should be lowercase and include the leading dot (e.g., ".jpg").
func GetKind(ext string) ItemKind {
	if ImageExtensions[ext] {
		return KindPicture
	}
	if VideoExtensions[ext] {
		return KindVideo
	}
	return KindUnknown
}

// KindForPath classifies a path by its extension, ignoring case.
func KindForPath(path string) ItemKind {
	return GetKind(strings.ToLower(filepath.Ext(path)))
}

// GetMimeType returns the MIME type for a given file extension.
// Returns "application/octet-stream" if the extension is not recognized.
func GetMimeType(ext string) string {
	if mime, ok := MimeTypes[ext]; ok {
		return mime
	}
	return "application/octet-stream"
}

// IsMediaFile returns true if the path has a supported picture or video extension.
func IsMediaFile(path string) bool {
	return KindForPath(path) != KindUnknown
}

// ImageRecord is the metadata the engine tracks for one file path.
// Zero-valued fields are treated as "not supplied" by Merge.
type ImageRecord struct {
	Path        string    `json:"path"`
	Name        string    `json:"name"`
	Dir         string    `json:"dir"`
	Kind        ItemKind  `json:"kind"`
	CaptureTime time.Time `json:"captureTime"`
	ChangeTime  time.Time `json:"changeTime"`
	ImportTime  time.Time `json:"importTime"`
	Size        int64     `json:"size,omitempty"`
	Width       int       `json:"width,omitempty"`
	Height      int       `json:"height,omitempty"`
	MimeType    string    `json:"mimeType,omitempty"`
}

// NewRecord returns a record with Path, Name and Dir derived from path.
func NewRecord(path string) ImageRecord {
	return ImageRecord{
		Path: path,
		Name: filepath.Base(path),
		Dir:  filepath.Dir(path),
	}
}

// Merge overlays the supplied fields of patch onto prev. The path of prev wins
// when patch carries none.
func Merge(prev, patch ImageRecord) ImageRecord {
	out := prev
	if patch.Path != "" {
		out.Path = patch.Path
	}
	if patch.Name != "" {
		out.Name = patch.Name
	}
	if patch.Dir != "" {
		out.Dir = patch.Dir
	}
	if patch.Kind != KindUnknown {
		out.Kind = patch.Kind
	}
	if !patch.CaptureTime.IsZero() {
		out.CaptureTime = patch.CaptureTime
	}
	if !patch.ChangeTime.IsZero() {
		out.ChangeTime = patch.ChangeTime
	}
	if !patch.ImportTime.IsZero() {
		out.ImportTime = patch.ImportTime
	}
	if patch.Size != 0 {
		out.Size = patch.Size
	}
	if patch.Width != 0 {
		out.Width = patch.Width
	}
	if patch.Height != 0 {
		out.Height = patch.Height
	}
	if patch.MimeType != "" {
		out.MimeType = patch.MimeType
	}
	return out
}

// TrashEntry describes a file that has been moved into the trash area.
type TrashEntry struct {
	OriginalPath string      `json:"originalPath"`
	TrashPath    string      `json:"trashPath"`
	DeletedAt    time.Time   `json:"deletedAt"`
	Record       ImageRecord `json:"record"`
}
