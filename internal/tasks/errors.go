package tasks

import (
	"errors"
	"fmt"
	"os"

	"album-engine/internal/filesystem"
	"album-engine/internal/metrics"
)

// Per-file failure classes.
var (
	ErrPermissionDenied = errors.New("permission denied")
	ErrNotFound         = errors.New("not found")
	ErrAlreadyExists    = errors.New("already exists")
	ErrUnsupported      = errors.New("unsupported file type")
)

// FileError is the failure of one operation on one file.
type FileError struct {
	Path string
	Op   string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap exposes both the failure class and the underlying error, so
// errors.Is works against the package sentinels and the os errors alike.
func (e *FileError) Unwrap() []error {
	if class := classify(e.Err); class != nil && !errors.Is(e.Err, class) {
		return []error{class, e.Err}
	}
	return []error{e.Err}
}

func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrUnsupported):
		return ErrUnsupported
	case errors.Is(err, filesystem.ErrExists), errors.Is(err, os.ErrExist), errors.Is(err, ErrAlreadyExists):
		return ErrAlreadyExists
	case errors.Is(err, os.ErrPermission), errors.Is(err, ErrPermissionDenied):
		return ErrPermissionDenied
	case errors.Is(err, os.ErrNotExist), errors.Is(err, ErrNotFound):
		return ErrNotFound
	default:
		return nil
	}
}

// Reason returns the metric label for err's failure class.
func Reason(err error) string {
	switch classify(err) {
	case ErrUnsupported:
		return "unsupported"
	case ErrAlreadyExists:
		return "already_exists"
	case ErrPermissionDenied:
		return "permission_denied"
	case ErrNotFound:
		return "not_found"
	default:
		return "io"
	}
}

// failures accumulates per-file errors for one task run.
type failures struct {
	kind string
	errs []error
}

func (f *failures) add(path, op string, err error) {
	fe := &FileError{Path: path, Op: op, Err: err}
	metrics.TaskFileFailures.WithLabelValues(f.kind, Reason(err)).Inc()
	f.errs = append(f.errs, fe)
}

func (f *failures) list() []error {
	return f.errs
}
