// Package notifications delivers queue events as ntfy push notifications.
//
// NewService returns a no-op implementation when no topic is configured.
// Each event family (queue, jobs, errors) can be switched off independently
// in the [notifications] config section; suppressed events return nil.
package notifications
