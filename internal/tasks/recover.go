package tasks

import (
	"context"
	"fmt"

	"album-engine/internal/filesystem"
	"album-engine/internal/logging"
	"album-engine/internal/media"
	"album-engine/internal/mediatypes"
)

// RecoverTask moves trashed files back to where they were deleted from.
type RecoverTask struct {
	base
	Paths []string
}

// RecoverResult is reported when a RecoverTask finishes.
type RecoverResult struct {
	Outcome
	Records []mediatypes.ImageRecord
}

// Kind returns the task kind label.
func (r *RecoverResult) Kind() string { return KindRecover }

// NewRecover returns a recovery of paths. Each path may be the original
// location or the trashed file.
func NewRecover(paths []string) *RecoverTask {
	return &RecoverTask{base: newBase(), Paths: append([]string(nil), paths...)}
}

// Kind returns the task kind label.
func (t *RecoverTask) Kind() string { return KindRecover }

// Run restores each entry. A file already present at the original location
// is left alone and reported as already existing.
func (t *RecoverTask) Run(ctx context.Context, env Env) Result {
	res := &RecoverResult{Outcome: Outcome{ID: t.id}}
	fails := &failures{kind: t.Kind()}

	byOriginal, err := env.Store.TrashEntries(ctx, t.Paths)
	if err != nil {
		res.Err = fmt.Errorf("failed to look up trash entries: %w", err)
		return res
	}
	byTrash, err := env.Store.TrashEntriesByTrashPath(ctx, t.Paths)
	if err != nil {
		res.Err = fmt.Errorf("failed to look up trash entries: %w", err)
		return res
	}
	lookup := make(map[string]mediatypes.TrashEntry, len(byOriginal)+len(byTrash))
	for _, e := range byOriginal {
		lookup[e.OriginalPath] = e
	}
	for _, e := range byTrash {
		lookup[e.TrashPath] = e
	}

	for _, p := range t.Paths {
		if ctx.Err() != nil {
			res.Err = ctx.Err()
			break
		}

		e, ok := lookup[p]
		if !ok {
			fails.add(p, "recover", ErrNotFound)
			continue
		}

		if err := filesystem.Move(e.TrashPath, e.OriginalPath); err != nil {
			fails.add(e.OriginalPath, "recover", err)
			continue
		}

		// Refresh what the filesystem says; the stored record fills the gaps.
		rec := e.Record
		if probed, err := media.Probe(e.OriginalPath); err == nil {
			rec = mediatypes.Merge(rec, probed)
		}
		rec.Path = e.OriginalPath
		e.Record = rec

		if err := env.Store.RestoreFromTrash(ctx, e); err != nil {
			// Keep the file and its row together.
			if mvErr := filesystem.Move(e.OriginalPath, e.TrashPath); mvErr != nil {
				logging.Error("failed to move %s back to trash after restore error: %v", e.OriginalPath, mvErr)
			}
			fails.add(e.OriginalPath, "restore", err)
			continue
		}
		res.Records = append(res.Records, rec)
	}

	res.Failures = fails.list()
	res.Succeeded = len(res.Records)
	logging.Info("Recovered %d files from trash (%d failures)", len(res.Records), len(res.Failures))
	return res
}
