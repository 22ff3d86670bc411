package runner

import (
	"context"
	"errors"
	"time"

	"ytqueue/internal/engine"
	"ytqueue/internal/events"
	"ytqueue/internal/logging"
	"ytqueue/internal/metrics"
	"ytqueue/internal/queue"
	"ytqueue/internal/services"
)

func (r *Runner) execute(ctx context.Context, item queue.Item, index int) {
	jobCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	jobCtx = services.WithQueueIndex(services.WithJobID(jobCtx, item.ID), index)

	started := time.Now()
	r.mu.Lock()
	r.current = &currentJob{item: item, index: index, startedAt: started, cancel: cancel}
	r.mu.Unlock()
	r.sampler.Reset()
	defer func() {
		r.mu.Lock()
		r.current = nil
		r.mu.Unlock()
	}()

	logger := logging.WithContext(jobCtx, r.logger)
	logger.Info("job started",
		logging.String("file", item.Job.Params.File),
		logging.String("dest", item.Job.Dest),
		logging.String("kind", string(item.Job.Kind)),
		logging.Int("retries", item.Retries),
		logging.String(logging.FieldEventType, "job_started"),
	)

	videoID, err := r.perform(jobCtx, item, index)
	writeCtx := storeContext(ctx)
	kind := string(item.Job.Kind)

	switch {
	case err == nil:
		found, storeErr := r.store.Complete(writeCtx, item.ID)
		r.finishWriteBack(jobCtx, "complete", found, storeErr)
		metrics.RecordJobFinished(kind, "completed", elapsedSeconds(started))
		r.recordOutcome(true)
		attrs := []logging.Attr{
			logging.Duration("elapsed", time.Since(started)),
			logging.String(logging.FieldEventType, "job_completed"),
		}
		if videoID != "" {
			attrs = append(attrs, logging.String("video_id", videoID))
		}
		logger.Info("job completed", logging.Args(attrs...)...)
		r.publish(events.Notify(index, item.ID, true, ""))
		r.notifyJob(jobCtx, item, true, videoID, "")

	case ctx.Err() != nil:
		found, storeErr := r.store.Requeue(writeCtx, item.ID)
		r.finishWriteBack(jobCtx, "requeue", found, storeErr)
		metrics.RecordJobFinished(kind, "interrupted", elapsedSeconds(started))
		logger.Info("job interrupted by shutdown; returned to pending",
			logging.String(logging.FieldEventType, "job_requeued"),
		)

	default:
		message := services.FailureMessage(err)
		result := "failed"
		// A canceled job is recorded as canceled whatever the engine reported.
		if errors.Is(err, services.ErrCanceled) || jobCtx.Err() != nil {
			message = queue.CanceledMessage
			result = "canceled"
		}
		found, storeErr := r.store.Fail(writeCtx, item.ID, message)
		r.finishWriteBack(jobCtx, "fail", found, storeErr)
		metrics.RecordJobFinished(kind, result, elapsedSeconds(started))
		r.recordOutcome(false)
		logging.WarnWithContext(logger, "job failed", "job_failed",
			logging.String("error", message),
			logging.Duration("elapsed", time.Since(started)),
			logging.String(logging.FieldImpact, "job marked failed; the queue continues"),
			logging.String(logging.FieldErrorHint, "retry with queue-retry or queue-run --retry-failed"),
		)
		r.publish(events.Notify(index, item.ID, false, message))
		r.notifyJob(jobCtx, item, false, "", message)
	}
}

// perform runs generate and, for upload jobs, upload. It returns the video id
// for uploads.
func (r *Runner) perform(ctx context.Context, item queue.Item, index int) (string, error) {
	if r.engine == nil {
		return "", services.Wrap(services.ErrConfiguration, "", "", "no engine configured", nil)
	}

	output, err := r.phase(ctx, item, index, events.PhaseGenerate, func(ctx context.Context, progress engine.ProgressFunc) (string, error) {
		return r.engine.Generate(ctx, engine.GenerateRequest{Params: item.Job.Params, Dest: item.Job.Dest}, progress)
	})
	if err != nil || !item.Job.Uploads() {
		return "", err
	}
	return r.phase(ctx, item, index, events.PhaseUpload, func(ctx context.Context, progress engine.ProgressFunc) (string, error) {
		return r.engine.Upload(ctx, item.Job.UploadRequest(output), progress)
	})
}

type phaseFunc func(ctx context.Context, progress engine.ProgressFunc) (string, error)

func (r *Runner) phase(ctx context.Context, item queue.Item, index int, phase string, fn phaseFunc) (string, error) {
	ctx = services.WithPhase(ctx, phase)
	r.mu.Lock()
	if r.current != nil {
		r.current.phase = phase
		r.current.progress = 0
	}
	r.mu.Unlock()

	started := time.Now()
	result, err := fn(ctx, func(percent float64) {
		r.reportProgress(ctx, item.ID, index, phase, percent)
	})
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	metrics.RecordPhase(phase, outcome, elapsedSeconds(started))
	if err != nil {
		return "", externalError{err: err}
	}
	return result, nil
}

// externalError tags an engine failure with queue.ErrExternalOperation while
// keeping the engine's message as the recorded error text.
type externalError struct {
	err error
}

func (e externalError) Error() string { return e.err.Error() }

func (e externalError) Unwrap() []error {
	return []error{queue.ErrExternalOperation, e.err}
}

func (r *Runner) reportProgress(ctx context.Context, id string, index int, phase string, percent float64) {
	evt := events.Progress(index, id, phase, percent)
	r.mu.Lock()
	if r.current != nil && r.current.item.ID == id {
		r.current.progress = evt.Progress
	}
	r.mu.Unlock()
	r.publish(evt)

	if r.sampler.ShouldLog(evt.Progress, phase) {
		logging.WithContext(ctx, r.logger).Info("job progress",
			logging.Float64(logging.FieldProgressPercent, evt.Progress),
			logging.String(logging.FieldEventType, "job_progress"),
		)
	}
}

func (r *Runner) recordOutcome(success bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if success {
		r.pass.completed++
	} else {
		r.pass.failed++
	}
}
