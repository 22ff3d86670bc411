// Package queue persists the ordered job queue and exposes every mutation
// the command surface and the runner need.
//
// The Store is created once per process and passed by handle. Each mutation
// reloads the backend, applies the change and flushes it before returning, so
// a crash never leaves a partially written queue. Two backends exist: a JSON
// file replaced via temp file and rename, and a SQLite database whose rows
// are rewritten inside one transaction.
//
// Items carry a stable id alongside their position. Callers address items by
// index at the boundary; the runner writes results back by id so reordering
// or removing other items while a job runs cannot misdirect an update.
//
// When a processor starts it calls ResetRunning, since nothing that was
// running before a restart is still running.
package queue
