// Package tasks holds the units of background work the engine runs on its
// worker pool: imports, trash moves, recovery, reload validation, trash
// purging, row removal and thumbnail warming.
//
// A task is built with all of its operands and never changes afterwards.
// Running it touches the filesystem and the [Store] only; everything the
// engine needs to learn from the run is handed to the [Reporter] as a
// [Result]. Tasks never write to the engine's cache.
//
// Failures on individual files are collected as [*FileError] values and
// returned in the result. One bad file never stops the rest of the task.
package tasks
