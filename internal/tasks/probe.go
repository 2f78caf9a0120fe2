package tasks

import (
	"context"

	"album-engine/internal/media"
	"album-engine/internal/mediatypes"
)

// KindProbe labels single-file classification.
const KindProbe = "probe"

// ProbeTask classifies one file without touching the store. The engine uses
// it to put a file into the cache on demand.
type ProbeTask struct {
	base
	Path string
}

// ProbeResult carries the classified record.
type ProbeResult struct {
	Outcome
	Path   string
	Record mediatypes.ImageRecord
}

// Kind returns the task kind label.
func (r *ProbeResult) Kind() string { return KindProbe }

// NewProbe returns a classification of path.
func NewProbe(path string) *ProbeTask {
	return &ProbeTask{base: newBase(), Path: path}
}

// Kind returns the task kind label.
func (t *ProbeTask) Kind() string { return KindProbe }

// Run stats and classifies the file.
func (t *ProbeTask) Run(_ context.Context, _ Env) Result {
	res := &ProbeResult{Outcome: Outcome{ID: t.id}, Path: t.Path}
	rec, err := media.Probe(t.Path)
	if err != nil {
		res.Failures = []error{&FileError{Path: t.Path, Op: "probe", Err: err}}
		return res
	}
	res.Record = rec
	res.Succeeded = 1
	return res
}
