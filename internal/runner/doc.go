// Package runner drives the queue: it claims pending items one at a time,
// invokes the external engine, records the outcome on the store and reports
// progress on the events hub.
//
// The runner is a small state machine. It starts idle, moves to processing
// on Run or Resume, and to paused on Pause. A pause takes effect at the next
// job boundary, so the in-flight job always finishes first. When nothing is
// pending the loop ends and the runner returns to idle. Cancel aborts only the
// in-flight external call; the job is recorded as failed with "canceled" and
// the loop moves on. Cancelling the context passed to Run is a shutdown: the
// in-flight job is returned to pending.
package runner
