package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"album-engine/internal/cache"
	"album-engine/internal/events"
	"album-engine/internal/filesystem"
	"album-engine/internal/logging"
	"album-engine/internal/mailbox"
	"album-engine/internal/media"
	"album-engine/internal/mediatypes"
	"album-engine/internal/metrics"
	"album-engine/internal/operator"
	"album-engine/internal/registry"
	"album-engine/internal/tasks"
	"album-engine/internal/workers"
)

// ErrShutdown is returned by Shutdown when called a second time.
var ErrShutdown = errors.New("engine already shut down")

// Store is the database the engine reads pages from and tasks write to.
type Store interface {
	tasks.Store
	operator.PageSource
}

// ImportListener is an object waiting for an import to finish.
type ImportListener interface {
	ImportCompleted(ev events.ImportCompleted)
}

// Config sizes the engine.
type Config struct {
	TrashDir        string
	ImportDir       string
	PoolWorkers     int
	PoolIdleTimeout time.Duration
	PageSize        int
}

// Option configures optional collaborators.
type Option func(*Engine)

// WithThumbnails sets the generator used to warm first-page thumbnails.
func WithThumbnails(t tasks.Thumbnailer) Option {
	return func(e *Engine) { e.env.Thumbnails = t }
}

// WithRotator replaces the function the dedicated worker rotates files with.
func WithRotator(fn func(path string, degrees int) error) Option {
	return func(e *Engine) { e.opOpts = append(e.opOpts, operator.WithRotator(fn)) }
}

// WithClock replaces the time source handed to tasks.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.env.Now = now }
}

// Engine coordinates all background work.
type Engine struct {
	cfg   Config
	store Store

	cache   *cache.Cache
	objects *registry.Registry[ImportListener]
	pool    *workers.Pool
	op      *operator.Operator
	opOpts  []operator.Option
	bus     *events.Bus
	results *mailbox.Mailbox[any]
	env     tasks.Env

	mu      sync.Mutex
	closed  bool
	hubDone chan struct{}
	log     *logging.Logger
}

// New builds the engine and starts its result hub. The pool and the
// dedicated worker start goroutines lazily.
func New(cfg Config, store Store, opts ...Option) *Engine {
	if cfg.PoolWorkers <= 0 {
		cfg.PoolWorkers = workers.ForTasks()
	}
	if cfg.PoolIdleTimeout <= 0 {
		cfg.PoolIdleTimeout = workers.DefaultIdleTimeout
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 80
	}

	e := &Engine{
		cfg:     cfg,
		store:   store,
		cache:   cache.New(),
		objects: registry.New[ImportListener](),
		pool:    workers.NewPool("tasks", cfg.PoolWorkers, cfg.PoolIdleTimeout),
		bus:     events.NewBus(),
		results: mailbox.New[any](),
		hubDone: make(chan struct{}),
		log:     logging.For("engine"),
	}
	e.env = tasks.Env{
		Store:    store,
		TrashDir: cfg.TrashDir,
		Reporter: tasks.ReporterFunc(func(r tasks.Result) { e.results.Put(r) }),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.op = operator.New(store, func(r operator.Reply) { e.results.Put(r) }, e.opOpts...)

	go e.hub()
	return e
}

// Shutdown stops the dedicated worker, drains the pool, delivers the
// remaining results and closes the event stream. If ctx expires before
// running tasks return, their context is cancelled and ctx's error returned.
func (e *Engine) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrShutdown
	}
	e.closed = true
	e.mu.Unlock()

	e.op.Stop()
	poolErr := e.pool.Shutdown(ctx)

	e.results.Close()
	select {
	case <-e.hubDone:
	case <-ctx.Done():
		e.results.Abandon()
		<-e.hubDone
	}
	e.bus.Close()
	e.log.Info("engine shut down")
	return poolErr
}

func (e *Engine) isClosed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

// submit hands t to the pool.
func (e *Engine) submit(t tasks.Task) (*workers.Future, bool) {
	f, err := e.pool.Submit(t.Kind(), func(ctx context.Context) error {
		res := tasks.Execute(ctx, t, e.env)
		if res.Status() == tasks.StatusError {
			return fmt.Errorf("task %s (%s) failed", t.ID(), t.Kind())
		}
		return nil
	})
	if err != nil {
		e.log.Warn("rejected %s task: %v", t.Kind(), err)
		return nil, false
	}
	metrics.TasksSubmittedTotal.WithLabelValues(t.Kind()).Inc()
	return f, true
}

func (e *Engine) waiting(message string, progress bool) {
	e.bus.Publish(events.WaitingRequested{Message: message, Progress: progress})
}

// ImportFromPaths imports files and directories into album on behalf of
// requester. It returns false only for an empty list.
func (e *Engine) ImportFromPaths(paths []string, album string, requester registry.Handle, opts tasks.ImportOptions) bool {
	if len(paths) == 0 || e.isClosed() {
		return false
	}
	e.waiting("Importing...", true)
	_, ok := e.submit(tasks.NewImport(tasks.SourceFiles, paths, album, requester, opts))
	return ok
}

// ImportFromMount copies files listed from a mounted device into the import
// directory and records them.
func (e *Engine) ImportFromMount(paths []string, album string, requester registry.Handle, uid int) bool {
	if len(paths) == 0 || e.isClosed() {
		return false
	}
	e.waiting("Importing from device...", true)
	_, ok := e.submit(tasks.NewImport(tasks.SourceMount, paths, album, requester,
		tasks.ImportOptions{UID: uid, CopyTo: e.cfg.ImportDir}))
	return ok
}

// MoveToTrash moves paths to the trash, or deletes them for good when
// alreadyTrash is set. Paths that exist but are not writable are skipped on a
// move. It returns false when nothing is left to do.
//
// A permanent delete removes the paths from the cache before the task is
// queued. If the pool refuses the task the entries are put back.
func (e *Engine) MoveToTrash(paths []string, alreadyTrash, showProgress bool) bool {
	if len(paths) == 0 || e.isClosed() {
		return false
	}

	var removed []mediatypes.ImageRecord
	if alreadyTrash {
		for _, p := range paths {
			if rec, ok := e.cache.Get(p); ok {
				removed = append(removed, rec)
			}
		}
		e.cache.Remove(paths...)
	} else {
		paths = filesystem.FilterTrashable(paths)
		if len(paths) == 0 {
			return false
		}
	}

	e.waiting("Deleting...", showProgress)
	if _, ok := e.submit(tasks.NewTrash(paths, alreadyTrash)); !ok {
		e.cache.UpsertMany(removed)
		return false
	}
	return true
}

// RecoverFromTrash moves trashed paths back to their original location.
func (e *Engine) RecoverFromTrash(paths []string) bool {
	if len(paths) == 0 || e.isClosed() {
		return false
	}
	e.waiting("Restoring...", false)
	_, ok := e.submit(tasks.NewRecover(paths))
	return ok
}

// CleanupTrash purges the given trash entries permanently.
func (e *Engine) CleanupTrash(paths []string) bool {
	if len(paths) == 0 || e.isClosed() {
		return false
	}
	_, ok := e.submit(tasks.NewCleanTrash(paths))
	return ok
}

// PurgeExpiredTrash purges every entry trashed more than retention ago.
func (e *Engine) PurgeExpiredTrash(retention time.Duration) bool {
	if retention <= 0 || e.isClosed() {
		return false
	}
	now := time.Now
	if e.env.Now != nil {
		now = e.env.Now
	}
	_, ok := e.submit(tasks.NewPurgeExpired(now().Add(-retention)))
	return ok
}

// ReloadValidatingAgainstFilesystem drops rows and cache entries for files
// that no longer exist.
func (e *Engine) ReloadValidatingAgainstFilesystem() bool {
	if e.isClosed() {
		return false
	}
	e.waiting("Checking library...", false)
	_, ok := e.submit(tasks.NewReload(e.cache.Paths()))
	return ok
}

// RemoveImages deletes the rows for paths, leaving the files alone.
func (e *Engine) RemoveImages(paths []string) bool {
	if len(paths) == 0 || e.isClosed() {
		return false
	}
	_, ok := e.submit(tasks.NewRemove(paths))
	return ok
}

// InsertImage puts path into the cache. Classification runs on the pool and
// ends with an ImageReady event. A path already cached is left as is unless
// reclassify is set, and InsertImage reports false for it since nothing was
// queued.
func (e *Engine) InsertImage(path string, reclassify bool) bool {
	if path == "" || e.isClosed() {
		return false
	}
	if !reclassify && e.cache.Contains(path) {
		return false
	}
	_, ok := e.submit(tasks.NewProbe(path))
	return ok
}

// LoadFirstPage reads the pageSize most recent records on the dedicated
// worker. FirstPageReady fires when the read finishes; thumbnails for the
// page are warmed afterwards on the pool. With clearCache the current page
// is dropped first.
func (e *Engine) LoadFirstPage(pageSize int, clearCache bool) bool {
	if e.isClosed() {
		return false
	}
	if pageSize <= 0 {
		pageSize = e.cfg.PageSize
	}
	if clearCache {
		e.cache.ClearPage()
	}
	e.op.Start()
	return e.op.LoadPage(pageSize)
}

// RequestStop asks the dedicated worker to abandon its current request.
func (e *Engine) RequestStop() {
	e.op.RequestStop()
}

// LoadMountList lists the media files on a mounted device.
func (e *Engine) LoadMountList(mount string) bool {
	if mount == "" || e.isClosed() {
		return false
	}
	e.op.Start()
	return e.op.LoadMountList(mount)
}

// DeviceUnmounted aborts any listing of mount and finalizes its removal.
func (e *Engine) DeviceUnmounted(mount string) bool {
	if mount == "" || e.isClosed() {
		return false
	}
	e.op.Start()
	return e.op.DeviceUnmounted(mount)
}

// RotateImage rotates path clockwise by degrees, a multiple of 90.
func (e *Engine) RotateImage(path string, degrees int) bool {
	if path == "" || e.isClosed() {
		return false
	}
	if _, err := media.NormalizeDegrees(degrees); err != nil {
		e.log.Warn("rejected rotation of %s: %v", path, err)
		return false
	}
	e.op.Start()
	return e.op.Rotate(path, degrees)
}

// Count returns the number of cached records.
func (e *Engine) Count() int { return e.cache.Count() }

// Record returns the cached record for path.
func (e *Engine) Record(path string) (mediatypes.ImageRecord, bool) { return e.cache.Get(path) }

// Exists reports whether path is cached.
func (e *Engine) Exists(path string) bool { return e.cache.Contains(path) }

// FirstPage returns the current first page, newest first.
func (e *Engine) FirstPage() []mediatypes.ImageRecord { return e.cache.Page() }

// Register adds a listener and returns its handle. Register before passing
// the handle to an import.
func (e *Engine) Register(l ImportListener) registry.Handle {
	h := e.objects.Register(l)
	metrics.RegistryObjects.Set(float64(e.objects.Len()))
	return h
}

// Unregister removes a listener. Call it before the listener goes away.
func (e *Engine) Unregister(h registry.Handle) bool {
	ok := e.objects.Unregister(h)
	metrics.RegistryObjects.Set(float64(e.objects.Len()))
	return ok
}

// ObjectExists reports whether h is registered.
func (e *Engine) ObjectExists(h registry.Handle) bool { return e.objects.Exists(h) }

// Events returns the channel the interface goroutine reads events from. It
// is closed by Shutdown.
func (e *Engine) Events() <-chan events.Event { return e.bus.Events() }

// Deliver dispatches ev to its target on the calling goroutine. Only
// ImportCompleted has a target: its listener is called if its handle is
// still registered. Deliver reports whether a listener was called.
func (e *Engine) Deliver(ev events.Event) bool {
	done, ok := ev.(events.ImportCompleted)
	if !ok {
		return false
	}
	l, ok := e.objects.Lookup(done.Handle)
	if !ok {
		metrics.RegistryMissesTotal.Inc()
		e.log.Debug("dropping import completion for released handle %s", done.Handle)
		return false
	}
	l.ImportCompleted(done)
	return true
}

// Stats returns a snapshot of the engine's occupancy.
func (e *Engine) Stats() metrics.Stats {
	ps := e.pool.Stats()
	s := metrics.Stats{
		CachedRecords:   e.cache.Count(),
		FirstPageSize:   e.cache.PageLen(),
		LiveObjects:     e.objects.Len(),
		PoolWorkers:     ps.Workers,
		PoolActive:      ps.Active,
		PoolQueued:      ps.Queued,
		OperatorQueued:  e.op.Queued(),
		OperatorRunning: e.op.Running(),
		PendingEvents:   e.bus.Pending(),
	}
	if c, ok := e.store.(interface{ OpenConnections() int }); ok {
		s.DBOpenConns = c.OpenConnections()
	}
	return s
}

// GetStats implements metrics.StatsProvider.
func (e *Engine) GetStats() metrics.Stats { return e.Stats() }
