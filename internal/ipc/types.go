package ipc

import (
	"ytqueue/internal/api"
	"ytqueue/internal/job"
)

// QueueItem mirrors the HTTP API queue DTO for IPC callers.
type QueueItem = api.QueueItem

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse carries the combined daemon status.
type StatusResponse struct {
	Status api.DaemonStatus `json:"status"`
}

// QueueListRequest filters queue listing by status.
type QueueListRequest struct {
	Statuses []string `json:"statuses"`
}

// QueueListResponse contains queue entries.
type QueueListResponse struct {
	Items []QueueItem `json:"items"`
}

// QueueSummaryRequest fetches per-status counts.
type QueueSummaryRequest struct{}

// QueueSummaryResponse carries per-status counts.
type QueueSummaryResponse struct {
	Summary api.QueueSummary `json:"summary"`
}

// QueueAddRequest appends jobs in order.
type QueueAddRequest struct {
	Jobs []job.Job `json:"jobs"`
}

// QueueAddResponse returns the created items.
type QueueAddResponse struct {
	Items []QueueItem `json:"items"`
}

// QueueRemoveRequest removes the item at Index.
type QueueRemoveRequest struct {
	Index int `json:"index"`
}

// QueueRemoveResponse returns the removed item.
type QueueRemoveResponse struct {
	Item QueueItem `json:"item"`
}

// QueueMoveRequest relocates an item.
type QueueMoveRequest struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// QueueMoveResponse is empty.
type QueueMoveResponse struct{}

// QueueClearRequest removes items in a scope: all, completed, failed or
// finished. Empty means all.
type QueueClearRequest struct {
	Scope string `json:"scope"`
}

// QueueClearResponse reports the number of removed entries.
type QueueClearResponse struct {
	Removed int `json:"removed"`
}

// QueueRetryRequest retries failed items. Empty means all failed items.
type QueueRetryRequest struct {
	Indexes []int `json:"indexes"`
}

// QueueRetryResponse reports the number of retried items.
type QueueRetryResponse struct {
	Updated int `json:"updated"`
}

// QueueExportRequest writes the queue to Path on the daemon host.
type QueueExportRequest struct {
	Path string `json:"path"`
}

// QueueImportRequest loads Path, replacing the queue unless Append is set.
type QueueImportRequest struct {
	Path   string `json:"path"`
	Append bool   `json:"append"`
}

// QueueTransferResponse reports how many items were exported or imported.
type QueueTransferResponse struct {
	Count int `json:"count"`
}

// RunnerRunRequest starts processing.
type RunnerRunRequest struct {
	RetryFailed bool `json:"retry_failed"`
}

// RunnerControlRequest pauses, resumes or cancels the runner.
type RunnerControlRequest struct{}

// RunnerResponse reports the runner after a control call.
type RunnerResponse struct {
	Runner api.RunnerStatus `json:"runner"`
}

// TestNotificationRequest triggers a notification test.
type TestNotificationRequest struct{}

// TestNotificationResponse reports notification test outcome.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}
