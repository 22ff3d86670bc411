package daemon

import (
	"context"

	"ytqueue/internal/api"
	"ytqueue/internal/job"
	"ytqueue/internal/logging"
	"ytqueue/internal/notifications"
	"ytqueue/internal/queue"
	"ytqueue/internal/runner"
)

// ListQueue returns items filtered by status. No statuses means all.
func (d *Daemon) ListQueue(ctx context.Context, statuses ...queue.Status) ([]api.QueueItem, error) {
	return api.NewQueueService(d.store).List(ctx, statuses...)
}

// QueueSummary returns per-status counts.
func (d *Daemon) QueueSummary(ctx context.Context) (api.QueueSummary, error) {
	return api.NewQueueService(d.store).Summary(ctx)
}

// AddJobs appends jobs in order and returns the new items.
func (d *Daemon) AddJobs(ctx context.Context, jobs []job.Job) ([]api.QueueItem, error) {
	items, err := d.store.AddBatch(ctx, jobs)
	if err != nil {
		return nil, err
	}
	all, err := d.store.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]api.QueueItem, 0, len(items))
	offset := len(all) - len(items)
	for i, item := range items {
		out = append(out, api.FromQueueItem(item, offset+i))
		d.logger.Info("job queued",
			logging.String(logging.FieldJobID, item.ID),
			logging.String("label", item.Job.Label()),
			logging.String("kind", string(item.Job.Kind)),
			logging.String(logging.FieldEventType, "job_queued"),
		)
		d.notify(ctx, notifications.EventJobQueued, notifications.Payload{"label": item.Job.Label()})
	}
	return out, nil
}

// RemoveItem deletes the item at index.
func (d *Daemon) RemoveItem(ctx context.Context, index int) (api.QueueItem, error) {
	item, err := d.store.Remove(ctx, index)
	if err != nil {
		return api.QueueItem{}, err
	}
	return api.FromQueueItem(item, index), nil
}

// MoveItem relocates the item at from to position to.
func (d *Daemon) MoveItem(ctx context.Context, from, to int) error {
	return d.store.Move(ctx, from, to)
}

// ClearQueue removes items in the named scope and returns the count.
func (d *Daemon) ClearQueue(ctx context.Context, scope string) (int, error) {
	parsed, err := queue.ParseClearScope(scope)
	if err != nil {
		return 0, err
	}
	return d.store.ClearMatching(ctx, parsed)
}

// RetryItems returns failed items to pending. No indexes means every failed
// item; the configured retry ceiling applies.
func (d *Daemon) RetryItems(ctx context.Context, indexes []int) (int, error) {
	return d.store.RetryFailed(ctx, queue.RetryOptions{
		Indexes:    indexes,
		MaxRetries: d.cfg.Runner.MaxRetries,
	})
}

// ExportQueue writes the queue to path.
func (d *Daemon) ExportQueue(ctx context.Context, path string) (int, error) {
	return d.store.Export(ctx, path)
}

// ImportQueue loads items from path, replacing or appending.
func (d *Daemon) ImportQueue(ctx context.Context, path string, appendItems bool) (int, error) {
	return d.store.Import(ctx, path, appendItems)
}

// Run starts the runner under the daemon lifetime.
func (d *Daemon) Run(_ context.Context, retryFailed bool) error {
	runCtx, err := d.runContext()
	if err != nil {
		return err
	}
	return d.runner.Run(runCtx, runner.Options{
		RetryFailed: retryFailed,
		MaxRetries:  d.cfg.Runner.MaxRetries,
	})
}

// Pause stops the runner after the current job.
func (d *Daemon) Pause() error {
	return d.runner.Pause()
}

// Resume continues a paused runner.
func (d *Daemon) Resume(_ context.Context) error {
	runCtx, err := d.runContext()
	if err != nil {
		return err
	}
	return d.runner.Resume(runCtx)
}

// Cancel aborts the current job.
func (d *Daemon) Cancel() error {
	return d.runner.Cancel()
}

// TestNotification sends a test notification.
func (d *Daemon) TestNotification(ctx context.Context) error {
	return d.notifier.Publish(ctx, notifications.EventTest, nil)
}

func (d *Daemon) notify(ctx context.Context, event notifications.Event, payload notifications.Payload) {
	if err := d.notifier.Publish(context.WithoutCancel(ctx), event, payload); err != nil {
		logging.WarnWithContext(d.logger, "notification failed", "notification_failed",
			logging.String("event", string(event)),
			logging.Error(err),
			logging.String(logging.FieldImpact, "the ntfy topic missed a message"),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
		)
	}
}
