package operator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"album-engine/internal/logging"
	"album-engine/internal/mailbox"
	"album-engine/internal/media"
	"album-engine/internal/mediatypes"
	"album-engine/internal/metrics"
)

var (
	// ErrStopped is reported by a request aborted by RequestStop or Stop.
	ErrStopped = errors.New("operation stopped")
	// ErrUnmounted is reported by a mount listing whose device went away.
	ErrUnmounted = errors.New("device unmounted")
)

// Request names, used as metric labels.
const (
	RequestLoadPage      = "load_page"
	RequestLoadMountList = "load_mount_list"
	RequestDeviceUnmount = "device_unmount"
	RequestRotate        = "rotate"
)

// PageSource streams the most recent records, newest first.
type PageSource interface {
	ScanRecent(ctx context.Context, n int, fn func(mediatypes.ImageRecord) error) error
}

// Reply is a completed request.
type Reply interface {
	request() string
}

// PageLoaded carries the result of LoadPage. Records is empty when Err is set.
type PageLoaded struct {
	Size    int
	Records []mediatypes.ImageRecord
	Err     error
}

// MountListed carries the media files found below a mount.
type MountListed struct {
	Mount string
	Paths []string
	Err   error
}

// Unmounted reports that a device unmount has been finalized.
type Unmounted struct {
	Mount string
}

// Rotated reports a finished rotation. Record is the re-probed file.
type Rotated struct {
	Path    string
	Degrees int
	Record  mediatypes.ImageRecord
	Err     error
}

func (PageLoaded) request() string  { return RequestLoadPage }
func (MountListed) request() string { return RequestLoadMountList }
func (Unmounted) request() string   { return RequestDeviceUnmount }
func (Rotated) request() string     { return RequestRotate }

type request struct {
	name    string
	n       int
	mount   string
	path    string
	degrees int
}

// Option configures an Operator.
type Option func(*Operator)

// WithRotator replaces the function used to rotate files.
func WithRotator(fn func(path string, degrees int) error) Option {
	return func(o *Operator) { o.rotate = fn }
}

// Operator is the dedicated background worker.
type Operator struct {
	src    PageSource
	sink   func(Reply)
	rotate func(path string, degrees int) error

	box *mailbox.Mailbox[request]

	mu        sync.Mutex
	started   bool
	stopped   bool
	unmounted map[string]bool

	stopGen atomic.Uint64
	running atomic.Bool
	queued  atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	log    *logging.Logger
}

// New returns an operator reading pages from src and handing replies to sink.
// The goroutine is not started until Start.
func New(src PageSource, sink func(Reply), opts ...Option) *Operator {
	ctx, cancel := context.WithCancel(context.Background())
	o := &Operator{
		src:       src,
		sink:      sink,
		rotate:    media.RotateFile,
		box:       mailbox.New[request](),
		unmounted: make(map[string]bool),
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
		log:       logging.For("operator"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Start launches the worker goroutine. Calling it again is a no-op.
func (o *Operator) Start() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.started || o.stopped {
		return
	}
	o.started = true
	go o.loop()
	o.log.Debug("dedicated worker started")
}

// Started reports whether Start has run.
func (o *Operator) Started() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.started
}

// LoadPage queues a read of the n most recent records.
func (o *Operator) LoadPage(n int) bool {
	return o.enqueue(request{name: RequestLoadPage, n: n})
}

// LoadMountList queues a listing of the media files below mount.
func (o *Operator) LoadMountList(mount string) bool {
	return o.enqueue(request{name: RequestLoadMountList, mount: mount})
}

// DeviceUnmounted flags mount as gone right away, so a listing in progress
// aborts at its next checkpoint, and queues the request that finalizes it.
func (o *Operator) DeviceUnmounted(mount string) bool {
	o.MarkUnmounted(mount)
	return o.enqueue(request{name: RequestDeviceUnmount, mount: mount})
}

// Rotate queues a clockwise rotation of path.
func (o *Operator) Rotate(path string, degrees int) bool {
	return o.enqueue(request{name: RequestRotate, path: path, degrees: degrees})
}

// RequestStop asks the running request to stop at its next checkpoint.
// Requests still queued are not affected.
func (o *Operator) RequestStop() {
	o.stopGen.Add(1)
	metrics.OperatorStopsTotal.Inc()
}

// MarkUnmounted flags mount as removed until its unmount request runs.
func (o *Operator) MarkUnmounted(mount string) {
	o.mu.Lock()
	o.unmounted[mount] = true
	o.mu.Unlock()
}

func (o *Operator) isUnmounted(mount string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.unmounted[mount]
}

// Queued returns the number of requests waiting to run.
func (o *Operator) Queued() int {
	return int(o.queued.Load())
}

// Running reports whether a request is executing.
func (o *Operator) Running() bool {
	return o.running.Load()
}

// Stop drops queued requests, stops the running one and waits for the
// goroutine to exit.
func (o *Operator) Stop() {
	o.mu.Lock()
	if o.stopped {
		o.mu.Unlock()
		return
	}
	o.stopped = true
	started := o.started
	o.mu.Unlock()

	o.stopGen.Add(1)
	o.cancel()
	o.box.Abandon()
	if started {
		<-o.done
	}
	o.queued.Store(0)
	metrics.OperatorQueueDepth.Set(0)
	o.log.Debug("dedicated worker stopped")
}

func (o *Operator) enqueue(r request) bool {
	o.queued.Add(1)
	if !o.box.Put(r) {
		o.queued.Add(-1)
		return false
	}
	metrics.OperatorQueueDepth.Set(float64(o.queued.Load()))
	return true
}

func (o *Operator) loop() {
	defer close(o.done)
	for r := range o.box.C() {
		metrics.OperatorQueueDepth.Set(float64(o.queued.Add(-1)))
		if o.ctx.Err() != nil {
			continue
		}
		o.run(r)
	}
}

func (o *Operator) run(r request) {
	gen := o.stopGen.Load()
	checkpoint := func() error {
		if o.stopGen.Load() != gen || o.ctx.Err() != nil {
			return ErrStopped
		}
		return nil
	}

	o.running.Store(true)
	start := time.Now()

	var reply Reply
	var err error
	switch r.name {
	case RequestLoadPage:
		p := o.loadPage(r.n, checkpoint)
		reply, err = p, p.Err
	case RequestLoadMountList:
		m := o.loadMountList(r.mount, checkpoint)
		reply, err = m, m.Err
	case RequestDeviceUnmount:
		reply = o.finalizeUnmount(r.mount)
	case RequestRotate:
		rot := o.rotateOne(r.path, r.degrees)
		reply, err = rot, rot.Err
	}

	o.running.Store(false)

	status := "success"
	switch {
	case errors.Is(err, ErrStopped), errors.Is(err, ErrUnmounted):
		status = "stopped"
	case err != nil:
		status = "error"
	}
	metrics.OperatorRequestsTotal.WithLabelValues(r.name, status).Inc()
	metrics.OperatorRequestDuration.WithLabelValues(r.name).Observe(time.Since(start).Seconds())
	if err != nil {
		o.log.Debug("%s finished with %v", r.name, err)
	}

	if o.sink != nil {
		o.sink(reply)
	}
}

func (o *Operator) loadPage(n int, checkpoint func() error) PageLoaded {
	records := make([]mediatypes.ImageRecord, 0, min(max(n, 0), 1024))
	err := o.src.ScanRecent(o.ctx, n, func(rec mediatypes.ImageRecord) error {
		if err := checkpoint(); err != nil {
			return err
		}
		records = append(records, rec)
		return nil
	})
	if err == nil {
		err = checkpoint()
	}
	if err != nil {
		if !errors.Is(err, ErrStopped) {
			o.log.Error("first page load failed: %v", err)
			err = fmt.Errorf("load first page: %w", err)
		}
		return PageLoaded{Size: n, Err: err}
	}
	return PageLoaded{Size: n, Records: records}
}

func (o *Operator) loadMountList(mount string, checkpoint func() error) MountListed {
	check := func() error {
		if o.isUnmounted(mount) {
			return ErrUnmounted
		}
		return checkpoint()
	}
	paths, err := ListMedia(mount, check)
	if err != nil {
		return MountListed{Mount: mount, Err: err}
	}
	return MountListed{Mount: mount, Paths: paths}
}

func (o *Operator) finalizeUnmount(mount string) Unmounted {
	o.mu.Lock()
	delete(o.unmounted, mount)
	o.mu.Unlock()
	o.log.Info("device %s unmounted", mount)
	return Unmounted{Mount: mount}
}

func (o *Operator) rotateOne(path string, degrees int) Rotated {
	out := Rotated{Path: path, Degrees: degrees}
	if err := o.rotate(path, degrees); err != nil {
		out.Err = err
		return out
	}
	rec, err := media.Probe(path)
	if err != nil {
		out.Err = fmt.Errorf("re-read %s after rotation: %w", path, err)
		return out
	}
	out.Record = rec
	return out
}
