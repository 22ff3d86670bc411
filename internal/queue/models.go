package queue

import (
	"strings"

	"ytqueue/internal/job"
)

// Status represents the lifecycle of a queue item.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusFailed    Status = "failed"
	StatusCompleted Status = "completed"
)

// CanceledMessage is the error recorded when a running job is canceled.
const CanceledMessage = "canceled"

var allStatuses = []Status{
	StatusPending,
	StatusRunning,
	StatusFailed,
	StatusCompleted,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsFinished reports whether the status is terminal for a processing pass.
func (s Status) IsFinished() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Item is one entry of the ordered queue.
type Item struct {
	ID      string
	Job     job.Job
	Status  Status
	Retries int
	// Error is set only while Status is failed.
	Error string
}

// SetFailed marks the item as failed with the given error message.
func (i *Item) SetFailed(message string) {
	i.Status = StatusFailed
	i.Error = message
}

// SetPending returns the item to pending and clears any failure.
func (i *Item) SetPending() {
	i.Status = StatusPending
	i.Error = ""
}

// Summary holds per-status counts. Every status is present, zeros included.
type Summary struct {
	Pending   int `json:"pending"`
	Running   int `json:"running"`
	Failed    int `json:"failed"`
	Completed int `json:"completed"`
}

// Total returns the number of items across all statuses.
func (s Summary) Total() int {
	return s.Pending + s.Running + s.Failed + s.Completed
}

// Count returns the count for one status.
func (s Summary) Count(status Status) int {
	switch status {
	case StatusPending:
		return s.Pending
	case StatusRunning:
		return s.Running
	case StatusFailed:
		return s.Failed
	case StatusCompleted:
		return s.Completed
	default:
		return 0
	}
}

func summarize(items []Item) Summary {
	var summary Summary
	for _, item := range items {
		switch item.Status {
		case StatusPending:
			summary.Pending++
		case StatusRunning:
			summary.Running++
		case StatusFailed:
			summary.Failed++
		case StatusCompleted:
			summary.Completed++
		}
	}
	return summary
}

func cloneItems(items []Item) []Item {
	out := make([]Item, len(items))
	copy(out, items)
	return out
}
