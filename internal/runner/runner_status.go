package runner

import (
	"context"
	"time"

	"ytqueue/internal/logging"
	"ytqueue/internal/notifications"
	"ytqueue/internal/queue"
)

// CurrentJob describes the in-flight job.
type CurrentJob struct {
	ID        string    `json:"id"`
	Index     int       `json:"index"`
	Label     string    `json:"label"`
	Phase     string    `json:"phase,omitempty"`
	Progress  float64   `json:"progress"`
	StartedAt time.Time `json:"startedAt"`
}

// Status is a point-in-time snapshot of the runner.
type Status struct {
	State     State       `json:"state"`
	Current   *CurrentJob `json:"current,omitempty"`
	Completed int         `json:"completed"`
	Failed    int         `json:"failed"`
}

// Status reports the runner state and the job in flight, if any. Completed
// and Failed count the outcomes of the current or most recent pass.
func (r *Runner) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	status := Status{
		State:     r.state,
		Completed: r.pass.completed,
		Failed:    r.pass.failed,
	}
	if r.current != nil {
		status.Current = &CurrentJob{
			ID:        r.current.item.ID,
			Index:     r.current.index,
			Label:     r.current.item.Job.Label(),
			Phase:     r.current.phase,
			Progress:  r.current.progress,
			StartedAt: r.current.startedAt,
		}
	}
	return status
}

func (r *Runner) onPassStarted(ctx context.Context) {
	summary, err := r.store.Summary(ctx)
	if err != nil {
		return
	}
	r.logger.Info("processing loop started",
		logging.Int("pending", summary.Pending),
		logging.Int("failed", summary.Failed),
		logging.String(logging.FieldEventType, "runner_started"),
	)
	if summary.Pending == 0 {
		return
	}
	r.notify(ctx, notifications.EventQueueStarted, notifications.Payload{"count": summary.Pending})
}

func (r *Runner) onPassFinished(ctx context.Context, pass passStats) {
	if pass.completed == 0 && pass.failed == 0 {
		return
	}
	r.notify(ctx, notifications.EventQueueCompleted, notifications.Payload{
		"completed": pass.completed,
		"failed":    pass.failed,
		"duration":  time.Since(pass.startedAt),
	})
}

func (r *Runner) notifyJob(ctx context.Context, item queue.Item, success bool, videoID, message string) {
	if success {
		r.notify(ctx, notifications.EventJobCompleted, notifications.Payload{
			"label":   item.Job.Label(),
			"videoId": videoID,
		})
		return
	}
	r.notify(ctx, notifications.EventJobFailed, notifications.Payload{
		"label": item.Job.Label(),
		"error": message,
	})
}

func (r *Runner) notify(ctx context.Context, event notifications.Event, payload notifications.Payload) {
	if err := r.notifier.Publish(context.WithoutCancel(ctx), event, payload); err != nil {
		logging.WarnWithContext(r.logger, "notification failed", "notification_failed",
			logging.String("event", string(event)),
			logging.Error(err),
			logging.String(logging.FieldImpact, "user was not notified"),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
		)
	}
}
