/*
Package workers runs the engine's background tasks on a bounded pool of
goroutines and sizes that pool for the container it runs in.

# Pool

A Pool starts goroutines on demand, up to its bound, and lets each one exit
after it has been idle for the pool's expiry window. Submit returns a Future
for the job:

	pool := workers.NewPool("tasks", workers.ForTasks(), 10*time.Second)
	fut, err := pool.Submit("import", func(ctx context.Context) error {
		return importFiles(ctx, paths)
	})
	if err != nil {
		return err // pool closed
	}
	<-fut.Done()

Jobs that have started always run to completion. Clear drops jobs that are
queued but not yet started; their futures resolve with ErrCleared. Shutdown
clears the queue and waits for running jobs.

# Sizing

Size multiplies GOMAXPROCS, which follows the container CPU quota, by a
Workload factor and caps the result. ForTasks sizes the engine pool as
IOBound with a cap of DefaultMaxWorkers:

	workers.Size(workers.CPUBound, 4)

ALBUM_POOL_WORKERS overrides the calculation but not the cap.
*/
package workers
