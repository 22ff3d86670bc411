// Package daemon coordinates the long-running ytqueue process.
//
// It wires configuration, the queue store, the runner, the event hub, the
// HTTP API and the optional scheduler and directory watcher into a single
// lifecycle. A flock-held processor lock guarantees that only one process
// drives the queue at a time; a CLI running queue-run in the foreground takes
// the same lock. On start the daemon returns items left running by a crash to
// pending.
//
// Keep orchestration logic here: queue semantics live in the queue and
// runner packages while the daemon focuses on startup, shutdown and high
// level coordination.
package daemon
