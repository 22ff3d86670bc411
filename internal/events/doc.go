// Package events carries queue notifications from the store and runner to
// interested subscribers.
//
// A Hub fans each published Event out to every current Subscription. Each
// subscription owns an unbounded FIFO drained by its own goroutine, so
// Publish never blocks on a slow reader and never drops an event; ordering is
// preserved per subscriber.
package events
