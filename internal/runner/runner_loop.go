package runner

import (
	"context"
	"errors"
	"time"

	"ytqueue/internal/logging"
)

func (r *Runner) loop(ctx context.Context, done chan struct{}, newPass bool) {
	defer close(done)
	if newPass {
		r.onPassStarted(ctx)
	}

	var (
		reason string
		state  State
		pass   passStats
	)
	// exitLocked frees the loop slot in the critical section that decided to
	// stop, so a Run or Resume that follows always launches a new loop.
	exitLocked := func(why string) {
		reason = why
		r.loopRunning = false
		if r.state == StateProcessing || why == "shutdown" {
			r.setStateLocked(StateIdle)
		}
		state = r.state
		pass = r.pass
	}
	defer func() {
		r.logger.Info("processing loop stopped",
			logging.String("reason", reason),
			logging.String("state", string(state)),
			logging.Int("completed", pass.completed),
			logging.Int("failed", pass.failed),
			logging.String(logging.FieldEventType, "runner_stopped"),
		)
		if state == StateIdle && ctx.Err() == nil {
			r.onPassFinished(ctx, pass)
		}
	}()

	for {
		r.mu.Lock()
		if ctx.Err() != nil {
			exitLocked("shutdown")
			r.mu.Unlock()
			return
		}
		if r.state != StateProcessing {
			exitLocked("paused")
			r.mu.Unlock()
			return
		}
		r.mu.Unlock()

		item, index, ok, err := r.store.ClaimNext(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				continue
			}
			logging.ErrorWithContext(r.logger, "failed to claim next queue item", "queue_claim_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check queue storage access or reset running items"),
			)
			r.mu.Lock()
			exitLocked("claim failed")
			r.mu.Unlock()
			return
		}
		if !ok {
			r.mu.Lock()
			exitLocked("queue empty")
			r.mu.Unlock()
			return
		}
		r.execute(ctx, item, index)
	}
}

// storeContext keeps store write-backs alive through shutdown.
func storeContext(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}

func elapsedSeconds(since time.Time) float64 {
	return time.Since(since).Seconds()
}

func (r *Runner) finishWriteBack(ctx context.Context, op string, found bool, err error) {
	logger := logging.WithContext(ctx, r.logger)
	if err != nil {
		logging.ErrorWithContext(logger, "failed to record job outcome", "queue_writeback_failed",
			logging.String("operation", op),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check queue storage access"),
		)
		return
	}
	if !found {
		logging.WarnWithContext(logger, "job no longer in queue; outcome discarded", "queue_writeback_missing",
			logging.String("operation", op),
			logging.String(logging.FieldImpact, "the item was removed while it ran"),
			logging.String(logging.FieldErrorHint, "none required"),
		)
	}
}
