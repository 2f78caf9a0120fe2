// Package logging provides a simple leveled logging interface for the
// album engine.
//
// It supports the following log levels:
//   - DEBUG: Verbose debugging information
//   - INFO: General operational messages
//   - WARN: Warning conditions
//   - ERROR: Error conditions
//
// The log level is configured via the LOG_LEVEL environment variable, or
// DEBUG=true. Components that run on their own goroutine (the pool, the
// dedicated worker, the result hub) log through a named Logger so their
// lines can be told apart.
package logging
