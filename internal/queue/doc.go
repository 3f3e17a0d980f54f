// Package queue implements the compilation job coordinator: a SQLite-backed
// store holding the job state machine, per-queue routing with worker version
// compatibility, atomic claiming, and monotonic progress reporting.
package queue
