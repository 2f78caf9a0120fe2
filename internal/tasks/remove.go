package tasks

import (
	"context"
	"fmt"
)

// RemoveTask deletes image rows without touching the files.
type RemoveTask struct {
	base
	Paths []string
}

// RemoveResult is reported when a RemoveTask finishes.
type RemoveResult struct {
	Outcome
	Paths   []string
	Removed int64
}

// Kind returns the task kind label.
func (r *RemoveResult) Kind() string { return KindRemove }

// NewRemove returns a removal of paths.
func NewRemove(paths []string) *RemoveTask {
	return &RemoveTask{base: newBase(), Paths: append([]string(nil), paths...)}
}

// Kind returns the task kind label.
func (t *RemoveTask) Kind() string { return KindRemove }

// Run deletes the rows in one statement batch.
func (t *RemoveTask) Run(ctx context.Context, env Env) Result {
	res := &RemoveResult{Outcome: Outcome{ID: t.id}, Paths: t.Paths}
	n, err := env.Store.DeleteImages(ctx, t.Paths)
	if err != nil {
		res.Err = fmt.Errorf("failed to remove %d images: %w", len(t.Paths), err)
		res.Paths = nil
		return res
	}
	res.Removed = n
	res.Succeeded = len(t.Paths)
	return res
}
