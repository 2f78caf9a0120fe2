package tasks

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"album-engine/internal/filesystem"
	"album-engine/internal/logging"
	"album-engine/internal/mediatypes"
)

const trashMoveAttempts = 3

// TrashTask moves files into the trash directory, or, when AlreadyTrash is
// set, deletes trashed files permanently.
type TrashTask struct {
	base
	Paths        []string
	AlreadyTrash bool
}

// TrashResult is reported when a TrashTask finishes. Paths lists the paths
// that were processed successfully.
type TrashResult struct {
	Outcome
	AlreadyTrash bool
	Paths        []string
	Entries      []mediatypes.TrashEntry
}

// Kind returns the task kind label.
func (r *TrashResult) Kind() string { return trashKind(r.AlreadyTrash) }

// NewTrash returns a trash task for paths.
func NewTrash(paths []string, alreadyTrash bool) *TrashTask {
	return &TrashTask{
		base:         newBase(),
		Paths:        append([]string(nil), paths...),
		AlreadyTrash: alreadyTrash,
	}
}

func trashKind(alreadyTrash bool) string {
	if alreadyTrash {
		return KindTrashDelete
	}
	return KindTrash
}

// Kind returns the task kind label.
func (t *TrashTask) Kind() string { return trashKind(t.AlreadyTrash) }

// Run performs the move or the permanent delete.
func (t *TrashTask) Run(ctx context.Context, env Env) Result {
	res := &TrashResult{Outcome: Outcome{ID: t.id}, AlreadyTrash: t.AlreadyTrash}
	fails := &failures{kind: t.Kind()}

	if t.AlreadyTrash {
		purged, err := purge(ctx, env, t.Paths, fails)
		res.Paths = purged.requested
		res.Entries = purged.entries
		res.Err = err
		res.Failures = fails.list()
		res.Succeeded = len(res.Paths)
		return res
	}

	now := env.now()
	var entries []mediatypes.TrashEntry
	for _, p := range t.Paths {
		if ctx.Err() != nil {
			res.Err = ctx.Err()
			break
		}

		dst, err := moveIntoTrash(p, env.TrashDir)
		if err != nil {
			fails.add(p, "trash", err)
			continue
		}

		rec := mediatypes.NewRecord(p)
		rec.Kind = mediatypes.KindForPath(p)
		entries = append(entries, mediatypes.TrashEntry{
			OriginalPath: p,
			TrashPath:    dst,
			DeletedAt:    now,
			Record:       rec,
		})
	}
	res.Failures = fails.list()

	if len(entries) > 0 {
		if err := env.Store.MoveToTrash(ctx, entries); err != nil {
			res.Err = errors.Join(
				fmt.Errorf("failed to record %d trash entries: %w", len(entries), err),
				restoreMoved(entries),
			)
			return res
		}
	}

	for _, e := range entries {
		res.Paths = append(res.Paths, e.OriginalPath)
	}
	res.Entries = entries
	res.Succeeded = len(entries)
	logging.Info("Moved %d files to trash (%d failures)", len(entries), len(res.Failures))
	return res
}

// moveIntoTrash moves path into dir under a free name. Another task may take
// the same name between the check and the move, so a collision is retried.
func moveIntoTrash(path, dir string) (string, error) {
	var err error
	for i := 0; i < trashMoveAttempts; i++ {
		dst := filesystem.UniquePath(dir, filepath.Base(path))
		if err = filesystem.Move(path, dst); err == nil {
			return dst, nil
		}
		if !errors.Is(err, filesystem.ErrExists) {
			return "", err
		}
	}
	return "", err
}

// restoreMoved puts files moved into the trash back where they came from.
func restoreMoved(entries []mediatypes.TrashEntry) error {
	var errs []error
	for _, e := range entries {
		if err := filesystem.Move(e.TrashPath, e.OriginalPath); err != nil {
			errs = append(errs, fmt.Errorf("rollback %s: %w", e.OriginalPath, err))
		}
	}
	return errors.Join(errs...)
}

// CleanTrashTask purges trash entries permanently: the listed paths plus,
// when Before is set, every entry trashed before that time.
type CleanTrashTask struct {
	base
	Paths  []string
	Before time.Time
}

// CleanTrashResult is reported when a CleanTrashTask finishes. Paths holds
// the requested or expired paths that were purged, TrashPaths the files that
// were removed from the trash directory.
type CleanTrashResult struct {
	Outcome
	Paths      []string
	TrashPaths []string
}

// Kind returns the task kind label.
func (r *CleanTrashResult) Kind() string { return KindCleanTrash }

// NewCleanTrash returns a purge of paths.
func NewCleanTrash(paths []string) *CleanTrashTask {
	return &CleanTrashTask{base: newBase(), Paths: append([]string(nil), paths...)}
}

// NewPurgeExpired returns a purge of every entry trashed before cutoff.
func NewPurgeExpired(cutoff time.Time) *CleanTrashTask {
	return &CleanTrashTask{base: newBase(), Before: cutoff}
}

// Kind returns the task kind label.
func (t *CleanTrashTask) Kind() string { return KindCleanTrash }

// Run purges the entries.
func (t *CleanTrashTask) Run(ctx context.Context, env Env) Result {
	res := &CleanTrashResult{Outcome: Outcome{ID: t.id}}
	fails := &failures{kind: t.Kind()}

	paths := append([]string(nil), t.Paths...)
	if !t.Before.IsZero() {
		expired, err := env.Store.ExpiredTrash(ctx, t.Before)
		if err != nil {
			res.Err = fmt.Errorf("failed to list expired trash: %w", err)
			return res
		}
		for _, e := range expired {
			paths = append(paths, e.OriginalPath)
		}
	}

	purged, err := purge(ctx, env, paths, fails)
	res.Paths = purged.requested
	for _, e := range purged.entries {
		res.TrashPaths = append(res.TrashPaths, e.TrashPath)
	}
	res.TrashPaths = append(res.TrashPaths, purged.untracked...)
	res.Failures = fails.list()
	res.Succeeded = len(res.Paths)
	res.Err = err

	if err == nil && !t.Before.IsZero() {
		if err := env.Store.SetLastTrashPurge(ctx, env.now()); err != nil {
			logging.Warn("failed to record trash purge time: %v", err)
		}
	}
	if len(res.Paths) > 0 {
		logging.Info("Purged %d trash entries", len(res.Paths))
	}
	return res
}

type purgeResult struct {
	requested []string
	entries   []mediatypes.TrashEntry
	untracked []string
}

// purge deletes trashed files and their rows. Each path may name either the
// original location or the file inside the trash directory. Files in the
// trash directory with no row are removed as well.
func purge(ctx context.Context, env Env, paths []string, fails *failures) (purgeResult, error) {
	var out purgeResult
	if len(paths) == 0 {
		return out, nil
	}

	byOriginal, err := env.Store.TrashEntries(ctx, paths)
	if err != nil {
		return out, fmt.Errorf("failed to look up trash entries: %w", err)
	}
	byTrash, err := env.Store.TrashEntriesByTrashPath(ctx, paths)
	if err != nil {
		return out, fmt.Errorf("failed to look up trash entries: %w", err)
	}

	lookup := make(map[string]mediatypes.TrashEntry, len(byOriginal)+len(byTrash))
	for _, e := range byOriginal {
		lookup[e.OriginalPath] = e
	}
	for _, e := range byTrash {
		lookup[e.TrashPath] = e
	}

	var originals []string
	done := make(map[string]bool, len(paths))
	for _, p := range paths {
		if done[p] {
			continue
		}
		done[p] = true
		if ctx.Err() != nil {
			return out, ctx.Err()
		}

		e, ok := lookup[p]
		if !ok {
			if inDir(env.TrashDir, p) && filesystem.Exists(p) {
				if err := filesystem.Remove(p); err != nil {
					fails.add(p, "purge", err)
					continue
				}
				out.requested = append(out.requested, p)
				out.untracked = append(out.untracked, p)
				continue
			}
			fails.add(p, "purge", ErrNotFound)
			continue
		}

		if err := filesystem.Remove(e.TrashPath); err != nil {
			fails.add(p, "purge", err)
			continue
		}
		originals = append(originals, e.OriginalPath)
		out.requested = append(out.requested, p)
		out.entries = append(out.entries, e)
	}

	if _, err := env.Store.DeleteTrashEntries(ctx, originals); err != nil {
		return out, fmt.Errorf("failed to delete %d trash rows: %w", len(originals), err)
	}
	return out, nil
}

func inDir(dir, path string) bool {
	if dir == "" {
		return false
	}
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != "." && !strings.HasPrefix(rel, "..")
}
