/*
Package filesystem provides the filesystem primitives the album engine's
background tasks are built on: permission checks, move and copy, and retry
logic for NFS stale file handle errors.

# Permission Checks

Writable reports whether the owner write bit is set on a file; Exists
reports whether a path can be stat'ed. The trash filter excludes only paths
that exist and are not writable:

	keep := filesystem.FilterTrashable(paths)

A path that does not exist is kept even though it is not writable, because
existence is only used to decide whether a permission denial means anything.

# Move and Copy

Move renames a file, falling back to copy-and-remove when source and
destination are on different devices (EXDEV), which is the normal case for
files imported from a mounted device. Copy refuses to overwrite an existing
destination and returns ErrExists.

# Retry

StatWithRetry wraps os.Stat with exponential backoff when the error is
ESTALE. Other errors return immediately:

	info, err := filesystem.StatWithRetry(path, filesystem.DefaultRetryConfig())

# Metrics

Operations report to an Observer set with SetObserver; the metrics package
provides the Prometheus implementation. A nil observer skips recording.
*/
package filesystem
