// Package operator runs the engine's serialized work on one long-lived
// goroutine: first-page loads, mounted-device listings, unmount handling and
// single-image rotation.
//
// Requests are queued in FIFO order and run one at a time. Results are
// handed to the sink given to [New]; nothing is returned synchronously.
//
// [Operator.RequestStop] is advisory. The running request checks for it
// between database rows and between walked directory entries, and stops with
// [ErrStopped] without reporting any partial data.
package operator
