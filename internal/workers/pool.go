package workers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"album-engine/internal/logging"
	"album-engine/internal/metrics"
)

var (
	// ErrPoolClosed is returned by Submit after Shutdown.
	ErrPoolClosed = errors.New("worker pool is shut down")
	// ErrCleared resolves the future of a job dropped before it started.
	ErrCleared = errors.New("job cleared before it started")
)

// DefaultIdleTimeout is how long an idle worker waits for work before exiting.
const DefaultIdleTimeout = 10 * time.Second

// Future is the handle for one submitted job.
type Future struct {
	name string
	done chan struct{}
	err  error
}

// Name returns the name the job was submitted with.
func (f *Future) Name() string { return f.name }

// Done is closed when the job has finished or been cleared.
func (f *Future) Done() <-chan struct{} { return f.done }

// Err returns the job's error. It is only meaningful after Done is closed.
func (f *Future) Err() error {
	select {
	case <-f.done:
		return f.err
	default:
		return nil
	}
}

// Wait blocks until the job finishes or ctx is done.
func (f *Future) Wait(ctx context.Context) error {
	select {
	case <-f.done:
		return f.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *Future) resolve(err error) {
	f.err = err
	close(f.done)
}

type job struct {
	fn     func(context.Context) error
	future *Future
}

// Stats is a snapshot of pool occupancy.
type Stats struct {
	Workers int
	Active  int
	Queued  int
}

// Pool is a bounded goroutine pool with idle expiry.
type Pool struct {
	name        string
	maxWorkers  int
	idleTimeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	queue   []*job
	workers int
	active  int
	idle    int
	closed  bool

	wake chan struct{}
	quit chan struct{}
	wg   sync.WaitGroup
	log  *logging.Logger
}

// NewPool returns a pool that runs at most maxWorkers jobs at once. Workers
// are started lazily and exit after idleTimeout without work.
func NewPool(name string, maxWorkers int, idleTimeout time.Duration) *Pool {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	if idleTimeout <= 0 {
		idleTimeout = DefaultIdleTimeout
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		name:        name,
		maxWorkers:  maxWorkers,
		idleTimeout: idleTimeout,
		ctx:         ctx,
		cancel:      cancel,
		wake:        make(chan struct{}, maxWorkers),
		quit:        make(chan struct{}),
		log:         logging.For("pool " + name),
	}
}

// MaxWorkers returns the pool bound.
func (p *Pool) MaxWorkers() int { return p.maxWorkers }

// Submit queues fn. The context passed to fn is cancelled only if Shutdown
// gives up waiting.
func (p *Pool) Submit(name string, fn func(ctx context.Context) error) (*Future, error) {
	f := &Future{name: name, done: make(chan struct{})}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrPoolClosed
	}

	p.queue = append(p.queue, &job{fn: fn, future: f})

	switch {
	case p.idle > 0:
		// Each token is claimed by exactly one idle worker.
		p.idle--
		p.wake <- struct{}{}
	case p.workers < p.maxWorkers:
		p.workers++
		p.wg.Add(1)
		go p.worker()
	}

	p.updateGaugesLocked()
	return f, nil
}

// Clear drops every queued job that has not started and returns how many
// were dropped.
func (p *Pool) Clear() int {
	p.mu.Lock()
	dropped := p.queue
	p.queue = nil
	p.updateGaugesLocked()
	p.mu.Unlock()

	for _, j := range dropped {
		j.future.resolve(ErrCleared)
	}
	if n := len(dropped); n > 0 {
		metrics.PoolJobsCleared.WithLabelValues(p.name).Add(float64(n))
		p.log.Debug("cleared %d queued jobs", n)
	}
	return len(dropped)
}

// Shutdown stops accepting jobs, clears the queue and waits for running jobs
// to return. If ctx expires first the jobs' context is cancelled and ctx's
// error is returned.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	p.Clear()
	close(p.quit)

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cancel()
		return nil
	case <-ctx.Done():
		p.cancel()
		return fmt.Errorf("pool %s: %w", p.name, ctx.Err())
	}
}

// Stats returns current occupancy.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{Workers: p.workers, Active: p.active, Queued: len(p.queue)}
}

func (p *Pool) updateGaugesLocked() {
	metrics.PoolWorkers.WithLabelValues(p.name).Set(float64(p.workers))
	metrics.PoolActiveWorkers.WithLabelValues(p.name).Set(float64(p.active))
	metrics.PoolQueueDepth.WithLabelValues(p.name).Set(float64(len(p.queue)))
}

func (p *Pool) worker() {
	defer p.wg.Done()

	timer := time.NewTimer(p.idleTimeout)
	defer timer.Stop()

	for {
		p.mu.Lock()
		if len(p.queue) > 0 {
			j := p.queue[0]
			p.queue[0] = nil
			p.queue = p.queue[1:]
			p.active++
			p.updateGaugesLocked()
			p.mu.Unlock()

			p.run(j)

			p.mu.Lock()
			p.active--
			p.updateGaugesLocked()
			p.mu.Unlock()
			continue
		}
		if p.closed {
			p.workers--
			p.updateGaugesLocked()
			p.mu.Unlock()
			return
		}
		p.idle++
		p.mu.Unlock()

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(p.idleTimeout)

		select {
		case <-p.wake:
		case <-p.quit:
			p.mu.Lock()
			select {
			case <-p.wake:
			default:
				p.idle--
			}
			p.mu.Unlock()
		case <-timer.C:
			if p.expire() {
				return
			}
		}
	}
}

// expire retires an idle worker unless a wake token arrived in the meantime.
func (p *Pool) expire() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	select {
	case <-p.wake:
		// Submit already took this worker off the idle count.
		return false
	default:
	}

	p.idle--
	p.workers--
	p.updateGaugesLocked()
	metrics.PoolWorkersExpired.WithLabelValues(p.name).Inc()
	p.log.Debug("idle worker expired (%d remaining)", p.workers)
	return true
}

func (p *Pool) run(j *job) {
	var err error
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", j.future.name, r)
			p.log.Error("%v", err)
		}
		j.future.resolve(err)
	}()
	err = j.fn(p.ctx)
}
