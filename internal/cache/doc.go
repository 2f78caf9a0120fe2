// Package cache holds the engine's in-memory view of image metadata: a map
// from file path to record plus the ordered first page most recently loaded
// from the database.
//
// All state sits behind one mutex. Writers on pool goroutines, the dedicated
// worker and the caller's goroutine all go through the same methods, so a
// record is never observed half-merged. Entries are only removed by an
// explicit Remove; there is no size-based eviction.
package cache
