package events

import (
	"album-engine/internal/mediatypes"
	"album-engine/internal/registry"
)

// Event is implemented by every notification type.
type Event interface {
	Kind() string
}

// WaitingRequested asks the consumer to show a waiting indicator.
type WaitingRequested struct {
	Message  string
	Progress bool
}

// FirstPageReady fires once the first-page database read finishes. Err is set
// when the read failed, in which case Records is empty and the cache is unchanged.
type FirstPageReady struct {
	Records []mediatypes.ImageRecord
	Err     error
}

// BatchReady carries a batch of metadata records now present in the cache.
type BatchReady struct {
	Records []mediatypes.ImageRecord
}

// ImageReady reports that one image has been processed (thumbnail warmed or
// rotated). Thumbnail is the cached thumbnail path when one was produced.
type ImageReady struct {
	Path      string
	Record    mediatypes.ImageRecord
	Thumbnail string
	Err       error
}

// MountListReady carries the media files found on a mounted device.
type MountListReady struct {
	Mount string
	Paths []string
	Err   error
}

// DeviceUnmounted reports that a mount has been finalized after removal.
type DeviceUnmounted struct {
	Mount string
}

// ImportCompleted is addressed to the object that requested the import.
type ImportCompleted struct {
	TaskID   string
	Handle   registry.Handle
	Album    string
	Records  []mediatypes.ImageRecord
	Failures []error
}

// TrashCompleted reports a move-to-trash or permanent delete.
type TrashCompleted struct {
	TaskID       string
	Paths        []string
	AlreadyTrash bool
	Failures     []error
}

// RecoverCompleted reports files restored from the trash.
type RecoverCompleted struct {
	TaskID   string
	Records  []mediatypes.ImageRecord
	Failures []error
}

// ReloadCompleted reports the result of validating the library against the
// filesystem.
type ReloadCompleted struct {
	TaskID  string
	Valid   int
	Missing []string
	Err     error
}

// TrashCleaned reports purged trash entries.
type TrashCleaned struct {
	TaskID   string
	Paths    []string
	Failures []error
}

// ImagesRemoved reports rows deleted from the database.
type ImagesRemoved struct {
	TaskID string
	Paths  []string
	Err    error
}

func (WaitingRequested) Kind() string { return "waiting_requested" }
func (FirstPageReady) Kind() string   { return "first_page_ready" }
func (BatchReady) Kind() string       { return "batch_ready" }
func (ImageReady) Kind() string       { return "image_ready" }
func (MountListReady) Kind() string   { return "mount_list_ready" }
func (DeviceUnmounted) Kind() string  { return "device_unmounted" }
func (ImportCompleted) Kind() string  { return "import_completed" }
func (TrashCompleted) Kind() string   { return "trash_completed" }
func (RecoverCompleted) Kind() string { return "recover_completed" }
func (ReloadCompleted) Kind() string  { return "reload_completed" }
func (TrashCleaned) Kind() string     { return "trash_cleaned" }
func (ImagesRemoved) Kind() string    { return "images_removed" }
