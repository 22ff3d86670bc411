package events

import (
	"encoding/json"
	"math"
	"time"
)

// Type names one of the event streams.
type Type string

const (
	// QueueChanged is published after every committed queue mutation.
	QueueChanged Type = "queue-changed"
	// QueueProgress relays external operation progress for the running item.
	QueueProgress Type = "queue-progress"
	// QueueNotify is published once when a job completes or fails.
	QueueNotify Type = "queue-notify"
)

// Job phases reported on progress events.
const (
	PhaseGenerate = "generate"
	PhaseUpload   = "upload"
)

// Event is a single notification. Fields beyond Type are populated per stream:
// progress events set Index, JobID, Progress and Phase; notify events set
// Index, JobID, Success and Error.
type Event struct {
	Type     Type      `json:"type"`
	Index    int       `json:"index"`
	JobID    string    `json:"jobId,omitempty"`
	Progress float64   `json:"progress"`
	Phase    string    `json:"phase,omitempty"`
	Success  bool      `json:"success"`
	Error    string    `json:"error,omitempty"`
	Time     time.Time `json:"time"`
}

type wireEvent struct {
	Type     Type      `json:"type"`
	Index    int       `json:"index"`
	JobID    string    `json:"jobId,omitempty"`
	Progress *float64  `json:"progress,omitempty"`
	Phase    string    `json:"phase,omitempty"`
	Success  *bool     `json:"success,omitempty"`
	Error    string    `json:"error,omitempty"`
	Time     time.Time `json:"time"`
}

// MarshalJSON always writes progress on queue-progress frames and success on
// queue-notify frames, zero values included.
func (e Event) MarshalJSON() ([]byte, error) {
	out := wireEvent{
		Type:  e.Type,
		Index: e.Index,
		JobID: e.JobID,
		Phase: e.Phase,
		Error: e.Error,
		Time:  e.Time,
	}
	switch e.Type {
	case QueueProgress:
		out.Progress = &e.Progress
	case QueueNotify:
		out.Success = &e.Success
	}
	return json.Marshal(out)
}

// Changed builds a queue-changed event.
func Changed() Event {
	return Event{Type: QueueChanged, Time: time.Now().UTC()}
}

// Progress builds a queue-progress event. percent is clamped to [0,100].
func Progress(index int, jobID, phase string, percent float64) Event {
	return Event{
		Type:     QueueProgress,
		Index:    index,
		JobID:    jobID,
		Phase:    phase,
		Progress: clampPercent(percent),
		Time:     time.Now().UTC(),
	}
}

// Notify builds a queue-notify event. errMessage is dropped on success.
func Notify(index int, jobID string, success bool, errMessage string) Event {
	evt := Event{Type: QueueNotify, Index: index, JobID: jobID, Success: success, Time: time.Now().UTC()}
	if !success {
		evt.Error = errMessage
	}
	return evt
}

func clampPercent(value float64) float64 {
	switch {
	case math.IsNaN(value), value < 0:
		return 0
	case value > 100:
		return 100
	default:
		return value
	}
}
