// Package engine is the album engine's coordinator. It owns the metadata
// cache, the task pool, the dedicated worker and the object registry, and it
// is the only place background results turn into cache updates and events.
//
// An Engine is built once with [New] at startup, passed by reference to
// whatever needs it, and torn down once with [Engine.Shutdown].
//
// Every mutating operation returns immediately. Its outcome arrives later as
// an event on [Engine.Events], which the interface goroutine reads in its own
// loop and, for import completions, hands to [Engine.Deliver].
package engine
