package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"album-engine/internal/filesystem"
)

// fsObserver feeds filesystem measurements into the collectors in metrics.go.
type fsObserver struct {
	retry map[filesystem.RetryEvent]*prometheus.CounterVec
}

// NewFilesystemObserver returns the observer to install with
// filesystem.SetObserver.
func NewFilesystemObserver() filesystem.Observer {
	return &fsObserver{retry: map[filesystem.RetryEvent]*prometheus.CounterVec{
		filesystem.RetryStale:     FilesystemStaleErrors,
		filesystem.RetryAttempt:   FilesystemRetryAttempts,
		filesystem.RetrySucceeded: FilesystemRetrySuccess,
		filesystem.RetryExhausted: FilesystemRetryFailures,
	}}
}

func (o *fsObserver) ObserveOperation(volume, operation string, seconds float64, err error) {
	FilesystemOperationDuration.WithLabelValues(volume, operation).Observe(seconds)
	if err != nil {
		FilesystemOperationErrors.WithLabelValues(volume, operation).Inc()
	}
}

func (o *fsObserver) ObserveRetry(event filesystem.RetryEvent, operation, volume string) {
	if c, ok := o.retry[event]; ok {
		c.WithLabelValues(operation, volume).Inc()
	}
}
