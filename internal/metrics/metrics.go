package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metadata cache and object registry metrics
var (
	CacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "album_engine_cache_entries",
			Help: "Number of image metadata records held in memory",
		},
	)

	CachePageSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "album_engine_cache_first_page_size",
			Help: "Number of records in the current first-page view order",
		},
	)

	CacheOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "album_engine_cache_operations_total",
			Help: "Total number of metadata cache mutations by operation",
		},
		[]string{"operation"}, // "upsert", "remove", "set_page", "clear"
	)

	RegistryObjects = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "album_engine_registry_objects",
			Help: "Number of live objects in the object registry",
		},
	)

	RegistryMissesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "album_engine_registry_misses_total",
			Help: "Completion callbacks dropped because the target handle was no longer registered",
		},
	)
)

// Worker pool metrics
var (
	PoolWorkers = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "album_engine_pool_workers",
			Help: "Number of live worker goroutines in the pool",
		},
		[]string{"pool"},
	)

	PoolActiveWorkers = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "album_engine_pool_active_workers",
			Help: "Number of pool workers currently running a job",
		},
		[]string{"pool"},
	)

	PoolQueueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "album_engine_pool_queue_depth",
			Help: "Number of jobs waiting for a free worker",
		},
		[]string{"pool"},
	)

	PoolWorkersExpired = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "album_engine_pool_workers_expired_total",
			Help: "Total number of idle workers reclaimed after the expiry timeout",
		},
		[]string{"pool"},
	)

	PoolJobsCleared = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "album_engine_pool_jobs_cleared_total",
			Help: "Total number of queued jobs dropped before they started",
		},
		[]string{"pool"},
	)
)

// Task metrics
var (
	TasksSubmittedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "album_engine_tasks_submitted_total",
			Help: "Total number of task objects submitted by kind",
		},
		[]string{"kind"},
	)

	TasksCompletedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "album_engine_tasks_completed_total",
			Help: "Total number of task objects completed by kind and status",
		},
		[]string{"kind", "status"},
	)

	TaskDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "album_engine_task_duration_seconds",
			Help:    "Task object run duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"kind"},
	)

	TaskFileFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "album_engine_task_file_failures_total",
			Help: "Total number of per-file failures reported by tasks",
		},
		[]string{"kind", "reason"},
	)
)

// Dedicated worker metrics
var (
	OperatorRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "album_engine_operator_requests_total",
			Help: "Total number of requests handled by the dedicated worker",
		},
		[]string{"request", "status"},
	)

	OperatorRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "album_engine_operator_request_duration_seconds",
			Help:    "Dedicated worker request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		},
		[]string{"request"},
	)

	OperatorQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "album_engine_operator_queue_depth",
			Help: "Number of requests waiting for the dedicated worker",
		},
	)

	OperatorStopsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "album_engine_operator_stops_total",
			Help: "Total number of requests aborted by a stop request",
		},
	)
)

// Notification metrics
var (
	EventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "album_engine_events_published_total",
			Help: "Total number of notifications published by kind",
		},
		[]string{"kind"},
	)

	EventsPending = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "album_engine_events_pending",
			Help: "Number of notifications not yet consumed by the event loop",
		},
	)
)

// Database metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "album_engine_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "album_engine_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	DBTransactionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "album_engine_db_transaction_duration_seconds",
			Help:    "Database transaction duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"outcome"}, // "commit", "rollback"
	)

	DBConnectionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "album_engine_db_connections_open",
			Help: "Number of open database connections",
		},
	)

	DBRowsAffected = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "album_engine_db_rows_affected",
			Help:    "Rows affected by write statements",
			Buckets: []float64{1, 5, 10, 50, 100, 500, 1000},
		},
		[]string{"operation"},
	)
)

// Filesystem metrics
var (
	FilesystemOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "album_engine_filesystem_operation_duration_seconds",
			Help:    "Filesystem operation duration in seconds",
			Buckets: []float64{0.0001, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"volume", "operation"},
	)

	FilesystemOperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "album_engine_filesystem_operation_errors_total",
			Help: "Total number of failed filesystem operations",
		},
		[]string{"volume", "operation"},
	)

	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "album_engine_filesystem_retry_attempts_total",
			Help: "Total number of retries after a stale file handle",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetrySuccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "album_engine_filesystem_retry_success_total",
			Help: "Total number of operations that succeeded after retrying",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "album_engine_filesystem_retry_failures_total",
			Help: "Total number of operations that failed after exhausting retries",
		},
		[]string{"operation", "volume"},
	)

	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "album_engine_filesystem_stale_errors_total",
			Help: "Total number of ESTALE errors observed",
		},
		[]string{"operation", "volume"},
	)
)

// Thumbnail and image metrics
var (
	ThumbnailGenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "album_engine_thumbnail_generations_total",
			Help: "Total number of thumbnail generations",
		},
		[]string{"kind", "status"},
	)

	ThumbnailGenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "album_engine_thumbnail_generation_duration_seconds",
			Help:    "Thumbnail generation duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"kind"},
	)

	ThumbnailCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "album_engine_thumbnail_cache_hits_total",
			Help: "Total number of thumbnail cache hits",
		},
	)

	ThumbnailCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "album_engine_thumbnail_cache_misses_total",
			Help: "Total number of thumbnail cache misses",
		},
	)

	ImageRotationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "album_engine_image_rotations_total",
			Help: "Total number of image rotations",
		},
		[]string{"status"},
	)
)

// Mount watcher metrics
var (
	MountEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "album_engine_mount_events_total",
			Help: "Total number of mount and unmount events observed",
		},
		[]string{"event"}, // "mount", "unmount"
	)

	MountWatcherErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "album_engine_mount_watcher_errors_total",
			Help: "Total number of mount watcher errors",
		},
	)
)

// HTTP metrics for the admin server
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "album_engine_http_requests_total",
			Help: "Total number of HTTP requests to the admin server",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "album_engine_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "album_engine_http_requests_in_flight",
			Help: "Number of HTTP requests currently being served",
		},
	)
)

// Application info
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "album_engine_app_info",
			Help: "Application build information",
		},
		[]string{"version", "commit", "go_version"},
	)
)
