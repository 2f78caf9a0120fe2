package workers

import (
	"os"
	"runtime"
	"strconv"
)

// OverrideEnv names the environment variable that pins the pool size.
const OverrideEnv = "ALBUM_POOL_WORKERS"

// DefaultMaxWorkers bounds the engine's task pool.
const DefaultMaxWorkers = 12

// Workload is the number of workers to run per available CPU.
type Workload float64

const (
	CPUBound Workload = 1.0
	Mixed    Workload = 1.5
	// IOBound suits import, trash and reload tasks, which mostly wait on
	// file copies and SQLite.
	IOBound Workload = 2.0
)

// Size returns the worker count for w, capped at limit when limit > 0.
// GOMAXPROCS already reflects a container CPU quota. A positive integer in
// ALBUM_POOL_WORKERS replaces the calculation but is still capped.
func Size(w Workload, limit int) int {
	n, ok := override()
	if !ok {
		n = max(1, int(float64(runtime.GOMAXPROCS(0))*float64(w)))
	}
	if limit > 0 {
		n = min(n, limit)
	}
	return n
}

func override() (int, bool) {
	v := os.Getenv(OverrideEnv)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

// ForTasks returns the engine task pool bound.
func ForTasks() int {
	return Size(IOBound, DefaultMaxWorkers)
}
