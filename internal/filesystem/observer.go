package filesystem

import "sync/atomic"

// RetryEvent is a step in the stale-handle retry loop.
type RetryEvent int

const (
	// RetryStale: an attempt failed with ESTALE.
	RetryStale RetryEvent = iota
	// RetryAttempt: another attempt is about to be made.
	RetryAttempt
	// RetrySucceeded: a retried operation finally succeeded.
	RetrySucceeded
	// RetryExhausted: every attempt failed with ESTALE.
	RetryExhausted
)

// Observer receives filesystem measurements. The metrics package provides
// the implementation; filesystem cannot import it without a cycle.
type Observer interface {
	// ObserveOperation records one stat, open, move, copy or remove on the
	// volume that owns its path.
	ObserveOperation(volume, operation string, durationSeconds float64, err error)
	// ObserveRetry records a retry loop step.
	ObserveRetry(event RetryEvent, operation, volume string)
}

var observer atomic.Pointer[Observer]

// SetObserver installs o for the whole package. nil turns recording off.
func SetObserver(o Observer) {
	if o == nil {
		observer.Store(nil)
		return
	}
	observer.Store(&o)
}

func observe() Observer {
	if p := observer.Load(); p != nil {
		return *p
	}
	return nil
}
