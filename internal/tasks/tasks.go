package tasks

import (
	"context"
	"time"

	"album-engine/internal/logging"
	"album-engine/internal/mediatypes"
	"album-engine/internal/metrics"

	"github.com/google/uuid"
)

// Task kinds, used as metric labels and pool job names.
const (
	KindImport      = "import"
	KindMountImport = "mount_import"
	KindTrash       = "trash"
	KindTrashDelete = "trash_delete"
	KindRecover     = "recover"
	KindReload      = "reload"
	KindCleanTrash  = "clean_trash"
	KindRemove      = "remove"
	KindThumbnail   = "thumbnail"
)

// Result statuses.
const (
	StatusSuccess = "success"
	StatusPartial = "partial"
	StatusError   = "error"
)

// Store is the slice of the database the tasks write through.
type Store interface {
	InsertImages(ctx context.Context, records []mediatypes.ImageRecord, album string, uid int) error
	AllImages(ctx context.Context) ([]mediatypes.ImageRecord, error)
	DeleteImages(ctx context.Context, paths []string) (int64, error)
	MoveToTrash(ctx context.Context, entries []mediatypes.TrashEntry) error
	TrashEntries(ctx context.Context, paths []string) ([]mediatypes.TrashEntry, error)
	TrashEntriesByTrashPath(ctx context.Context, paths []string) ([]mediatypes.TrashEntry, error)
	RestoreFromTrash(ctx context.Context, entry mediatypes.TrashEntry) error
	DeleteTrashEntries(ctx context.Context, paths []string) (int64, error)
	ExpiredTrash(ctx context.Context, before time.Time) ([]mediatypes.TrashEntry, error)
	SetLastReload(ctx context.Context, t time.Time) error
	SetLastTrashPurge(ctx context.Context, t time.Time) error
}

// Thumbnailer warms the thumbnail cache for one file.
type Thumbnailer interface {
	Warm(ctx context.Context, path string, kind mediatypes.ItemKind) (string, error)
	IsEnabled() bool
}

// Reporter receives results from running tasks. Report must not block.
type Reporter interface {
	Report(r Result)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(Result)

// Report calls f(r).
func (f ReporterFunc) Report(r Result) { f(r) }

// Env is everything a task may use while running.
type Env struct {
	Store      Store
	Reporter   Reporter
	Thumbnails Thumbnailer
	TrashDir   string
	Now        func() time.Time
}

func (e Env) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Env) report(r Result) {
	if e.Reporter != nil {
		e.Reporter.Report(r)
	}
}

// Task is one unit of pool work.
type Task interface {
	ID() string
	Kind() string
	Run(ctx context.Context, env Env) Result
}

// Result is what a finished task reports. Every concrete result embeds
// Outcome.
type Result interface {
	TaskID() string
	Kind() string
	Status() string
}

// Outcome carries the parts every result shares.
type Outcome struct {
	ID        string
	Succeeded int
	Failures  []error
	// Err is a task-level failure, such as the database write failing.
	Err error
}

// TaskID returns the id of the task that produced the result.
func (o Outcome) TaskID() string { return o.ID }

// Status classifies the outcome as success, partial or error.
func (o Outcome) Status() string {
	switch {
	case o.Err != nil:
		return StatusError
	case len(o.Failures) == 0:
		return StatusSuccess
	case o.Succeeded > 0:
		return StatusPartial
	default:
		return StatusError
	}
}

type base struct {
	id string
}

func newBase() base { return base{id: uuid.NewString()} }

// ID returns the task's unique id.
func (b base) ID() string { return b.id }

// Execute runs t, records its metrics and reports its result.
func Execute(ctx context.Context, t Task, env Env) Result {
	start := time.Now()
	log := logging.For(t.Kind())
	log.Debug("task %s started", t.ID())

	res := t.Run(ctx, env)

	status := res.Status()
	metrics.TaskDuration.WithLabelValues(t.Kind()).Observe(time.Since(start).Seconds())
	metrics.TasksCompletedTotal.WithLabelValues(t.Kind(), status).Inc()

	if status == StatusSuccess {
		log.Debug("task %s finished in %v", t.ID(), time.Since(start))
	} else {
		log.Warn("task %s finished with status %s in %v", t.ID(), status, time.Since(start))
	}

	env.report(res)
	return res
}
