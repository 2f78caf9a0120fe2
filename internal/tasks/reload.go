package tasks

import (
	"context"
	"fmt"

	"album-engine/internal/filesystem"
	"album-engine/internal/logging"
	"album-engine/internal/mediatypes"
)

// ReloadTask checks the stored library and the cached paths against the
// filesystem and drops rows for files that are gone.
type ReloadTask struct {
	base
	CachedPaths []string
}

// ReloadResult is reported when a ReloadTask finishes. Valid holds the rows
// whose files exist; Missing every stored or cached path that does not.
type ReloadResult struct {
	Outcome
	Valid   []mediatypes.ImageRecord
	Missing []string
}

// Kind returns the task kind label.
func (r *ReloadResult) Kind() string { return KindReload }

// NewReload returns a reload that also checks cachedPaths.
func NewReload(cachedPaths []string) *ReloadTask {
	return &ReloadTask{base: newBase(), CachedPaths: append([]string(nil), cachedPaths...)}
}

// Kind returns the task kind label.
func (t *ReloadTask) Kind() string { return KindReload }

// Run validates every row and cached path.
func (t *ReloadTask) Run(ctx context.Context, env Env) Result {
	res := &ReloadResult{Outcome: Outcome{ID: t.id}}

	rows, err := env.Store.AllImages(ctx)
	if err != nil {
		res.Err = fmt.Errorf("failed to read library: %w", err)
		return res
	}

	seen := make(map[string]bool, len(rows))
	var missingRows []string
	for _, rec := range rows {
		if ctx.Err() != nil {
			res.Err = ctx.Err()
			return res
		}
		seen[rec.Path] = true
		if filesystem.Exists(rec.Path) {
			res.Valid = append(res.Valid, rec)
			continue
		}
		missingRows = append(missingRows, rec.Path)
	}

	res.Missing = append(res.Missing, missingRows...)
	for _, p := range t.CachedPaths {
		if seen[p] {
			continue
		}
		seen[p] = true
		if !filesystem.Exists(p) {
			res.Missing = append(res.Missing, p)
		}
	}

	if len(missingRows) > 0 {
		n, err := env.Store.DeleteImages(ctx, missingRows)
		if err != nil {
			res.Err = fmt.Errorf("failed to delete %d missing rows: %w", len(missingRows), err)
			return res
		}
		logging.Info("Removed %d missing files from library", n)
	}

	if err := env.Store.SetLastReload(ctx, env.now()); err != nil {
		logging.Warn("failed to record reload time: %v", err)
	}

	res.Succeeded = len(res.Valid)
	return res
}
