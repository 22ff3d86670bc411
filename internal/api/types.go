package api

import (
	"ytqueue/internal/job"
)

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// QueueItem describes a queue entry in a transport-friendly format.
type QueueItem struct {
	Index   int     `json:"index"`
	ID      string  `json:"id"`
	Kind    string  `json:"kind"`
	Status  string  `json:"status"`
	Label   string  `json:"label"`
	File    string  `json:"file"`
	Dest    string  `json:"dest"`
	Retries int     `json:"retries"`
	Error   string  `json:"error,omitempty"`
	Job     job.Job `json:"job"`
}

// QueueSummary holds per-status counts.
type QueueSummary struct {
	Pending   int `json:"pending"`
	Running   int `json:"running"`
	Failed    int `json:"failed"`
	Completed int `json:"completed"`
}

// Total returns the number of items across all statuses.
func (s QueueSummary) Total() int {
	return s.Pending + s.Running + s.Failed + s.Completed
}

// CurrentJob describes the item the runner is working on.
type CurrentJob struct {
	ID        string  `json:"id"`
	Index     int     `json:"index"`
	Label     string  `json:"label"`
	Phase     string  `json:"phase,omitempty"`
	Progress  float64 `json:"progress"`
	StartedAt string  `json:"startedAt,omitempty"`
}

// RunnerStatus reports the processing loop.
type RunnerStatus struct {
	State     string      `json:"state"`
	Current   *CurrentJob `json:"current,omitempty"`
	Completed int         `json:"completed"`
	Failed    int         `json:"failed"`
}

// DependencyStatus captures availability of an external dependency.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// WatchStatus reports the directory watcher.
type WatchStatus struct {
	Enabled    bool   `json:"enabled"`
	Dir        string `json:"dir,omitempty"`
	AutoUpload bool   `json:"autoUpload"`
}

// ScheduleStatus reports scheduled queue runs.
type ScheduleStatus struct {
	Expression string `json:"expression,omitempty"`
	NextRun    string `json:"nextRun,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool               `json:"running"`
	PID          int                `json:"pid"`
	StartedAt    string             `json:"startedAt,omitempty"`
	Backend      string             `json:"backend"`
	QueuePath    string             `json:"queuePath"`
	LockPath     string             `json:"lockPath"`
	APIAddress   string             `json:"apiAddress,omitempty"`
	Runner       RunnerStatus       `json:"runner"`
	Summary      QueueSummary       `json:"summary"`
	Schedule     ScheduleStatus     `json:"schedule"`
	Watch        WatchStatus        `json:"watch"`
	Dependencies []DependencyStatus `json:"dependencies"`
}

// QueueListResponse wraps a collection of queue items.
type QueueListResponse struct {
	Items []QueueItem `json:"items"`
}

// ErrorResponse is the body of every non-2xx HTTP response.
type ErrorResponse struct {
	Error string `json:"error"`
}
