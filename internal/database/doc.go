// Package database provides the SQLite store behind the album engine.
//
// It holds:
//   - Image metadata rows (one per path), read newest-first to fill the first page
//   - Album membership for imported files
//   - Trash entries carrying enough of the original row to restore it
//   - A small key/value metadata table for bookkeeping timestamps
//
// The database uses WAL mode so page loads on the dedicated worker can read
// while pool tasks write.
package database
