package api

import (
	"time"

	"ytqueue/internal/queue"
	"ytqueue/internal/runner"
)

// FromQueueItem converts a queue item at position index into its DTO.
func FromQueueItem(item queue.Item, index int) QueueItem {
	return QueueItem{
		Index:   index,
		ID:      item.ID,
		Kind:    string(item.Job.Kind),
		Status:  string(item.Status),
		Label:   item.Job.Label(),
		File:    item.Job.Params.File,
		Dest:    item.Job.Dest,
		Retries: item.Retries,
		Error:   item.Error,
		Job:     item.Job,
	}
}

// FromQueueItems converts items in queue order.
func FromQueueItems(items []queue.Item) []QueueItem {
	out := make([]QueueItem, 0, len(items))
	for idx, item := range items {
		out = append(out, FromQueueItem(item, idx))
	}
	return out
}

// FilterByStatus keeps items whose status is in statuses. No statuses keeps
// everything. Indexes are preserved.
func FilterByStatus(items []QueueItem, statuses ...queue.Status) []QueueItem {
	if len(statuses) == 0 {
		return items
	}
	allowed := make(map[string]struct{}, len(statuses))
	for _, status := range statuses {
		allowed[string(status)] = struct{}{}
	}
	out := make([]QueueItem, 0, len(items))
	for _, item := range items {
		if _, ok := allowed[item.Status]; ok {
			out = append(out, item)
		}
	}
	return out
}

// FromSummary converts store counts.
func FromSummary(summary queue.Summary) QueueSummary {
	return QueueSummary{
		Pending:   summary.Pending,
		Running:   summary.Running,
		Failed:    summary.Failed,
		Completed: summary.Completed,
	}
}

// FromRunnerStatus converts a runner snapshot.
func FromRunnerStatus(status runner.Status) RunnerStatus {
	out := RunnerStatus{
		State:     string(status.State),
		Completed: status.Completed,
		Failed:    status.Failed,
	}
	if cur := status.Current; cur != nil {
		out.Current = &CurrentJob{
			ID:        cur.ID,
			Index:     cur.Index,
			Label:     cur.Label,
			Phase:     cur.Phase,
			Progress:  cur.Progress,
			StartedAt: FormatTime(cur.StartedAt),
		}
	}
	return out
}

// FormatTime renders t for payloads. The zero time renders empty.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}

// ParseTime parses a payload timestamp. Empty or malformed input yields the
// zero time.
func ParseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	t, err := time.Parse(dateTimeFormat, value)
	if err != nil {
		return time.Time{}
	}
	return t
}
