package tasks

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"album-engine/internal/filesystem"
	"album-engine/internal/logging"
	"album-engine/internal/media"
	"album-engine/internal/mediatypes"
	"album-engine/internal/registry"
)

// Source says where an import's paths came from.
type Source int

const (
	// SourceFiles is an import of an explicit file or directory list.
	SourceFiles Source = iota
	// SourceMount is an import of files listed from a mounted device.
	SourceMount
)

// ImportOptions tune an import.
type ImportOptions struct {
	// UID tags album membership rows.
	UID int
	// CopyTo, when set, copies every file into this directory before
	// recording it. An existing destination is an already-exists failure.
	// Files copied by an import that fails are removed again.
	CopyTo string
}

// ImportTask classifies files, optionally copies them into the library and
// records them in the store.
type ImportTask struct {
	base
	Source    Source
	Paths     []string
	Album     string
	Requester registry.Handle
	Options   ImportOptions
}

// ImportResult is reported when an import finishes.
type ImportResult struct {
	Outcome
	Source    Source
	Album     string
	Requester registry.Handle
	Records   []mediatypes.ImageRecord
}

// Kind returns the task kind label.
func (r *ImportResult) Kind() string { return importKind(r.Source) }

// NewImport returns an import of paths into album on behalf of requester.
func NewImport(source Source, paths []string, album string, requester registry.Handle, opts ImportOptions) *ImportTask {
	return &ImportTask{
		base:      newBase(),
		Source:    source,
		Paths:     append([]string(nil), paths...),
		Album:     album,
		Requester: requester,
		Options:   opts,
	}
}

func importKind(s Source) string {
	if s == SourceMount {
		return KindMountImport
	}
	return KindImport
}

// Kind returns the task kind label.
func (t *ImportTask) Kind() string { return importKind(t.Source) }

// Run imports every file, collecting failures, and writes all records in one
// batch.
func (t *ImportTask) Run(ctx context.Context, env Env) Result {
	res := &ImportResult{
		Outcome:   Outcome{ID: t.id},
		Source:    t.Source,
		Album:     t.Album,
		Requester: t.Requester,
	}
	fails := &failures{kind: t.Kind()}
	importedAt := env.now()

	files := expandPaths(ctx, t.Paths, fails)

	records := make([]mediatypes.ImageRecord, 0, len(files))
	var copies []string
	names := make(map[string]int)
	for _, src := range files {
		if ctx.Err() != nil {
			res.Err = ctx.Err()
			break
		}

		path := src
		if t.Options.CopyTo != "" {
			path = filepath.Join(t.Options.CopyTo, copyName(filepath.Base(src), names))
			if err := filesystem.Copy(src, path); err != nil {
				fails.add(src, "copy", err)
				continue
			}
			copies = append(copies, path)
		}

		rec, err := media.ProbeAt(path, importedAt)
		if err != nil {
			fails.add(path, "probe", err)
			if t.Options.CopyTo != "" {
				copies = copies[:len(copies)-1]
				if rmErr := filesystem.Remove(path); rmErr != nil {
					logging.Warn("failed to remove unreadable copy %s: %v", path, rmErr)
				}
			}
			continue
		}
		records = append(records, rec)
	}

	res.Failures = fails.list()
	if res.Err != nil {
		res.Err = errors.Join(res.Err, removeCopies(copies))
		return res
	}

	if err := env.Store.InsertImages(ctx, records, t.Album, t.Options.UID); err != nil {
		res.Err = errors.Join(
			fmt.Errorf("failed to record %d imported files: %w", len(records), err),
			removeCopies(copies))
		return res
	}

	res.Records = records
	res.Succeeded = len(records)
	logging.Info("Imported %d files into %q (%d failures)", len(records), t.Album, len(res.Failures))
	return res
}

// copyName picks the destination name for a copied file. Cameras reuse
// names across folders, so a name already taken by an earlier file of the
// same import gets a numeric suffix. The choice depends only on the order of
// the files, which keeps a repeated import mapping to the same names.
func copyName(name string, taken map[string]int) string {
	n := taken[name]
	taken[name] = n + 1
	if n == 0 {
		return name
	}
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for ; ; n++ {
		candidate := fmt.Sprintf("%s(%d)%s", stem, n, ext)
		if taken[candidate] == 0 {
			taken[candidate] = 1
			return candidate
		}
	}
}

// removeCopies deletes files an import copied before it failed.
func removeCopies(paths []string) error {
	var errs []error
	for _, p := range paths {
		if err := filesystem.Remove(p); err != nil {
			errs = append(errs, fmt.Errorf("rollback %s: %w", p, err))
		}
	}
	if len(paths) > 0 {
		logging.Info("Removed %d copied files after a failed import", len(paths))
	}
	return errors.Join(errs...)
}

// expandPaths turns the requested paths into the list of media files to
// import. Directories are walked; hidden entries and non-media files inside
// them are skipped. A non-media file named explicitly is a failure.
func expandPaths(ctx context.Context, paths []string, fails *failures) []string {
	var out []string
	seen := make(map[string]bool, len(paths))
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}

	for _, p := range paths {
		info, err := filesystem.StatWithRetry(p, filesystem.DefaultRetryConfig())
		if err != nil {
			fails.add(p, "stat", err)
			continue
		}

		if !info.IsDir() {
			if !mediatypes.IsMediaFile(p) {
				fails.add(p, "classify", ErrUnsupported)
				continue
			}
			add(p)
			continue
		}

		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if ctx.Err() != nil {
				return fs.SkipAll
			}
			if err != nil {
				logging.Warn("Error accessing path %s: %v", path, err)
				return nil
			}
			if path != p && strings.HasPrefix(d.Name(), ".") {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() || !mediatypes.IsMediaFile(path) {
				return nil
			}
			add(path)
			return nil
		})
		if err != nil && !errors.Is(err, fs.SkipAll) {
			fails.add(p, "walk", err)
		}
	}
	return out
}
