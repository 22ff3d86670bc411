package daemon

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"ytqueue/internal/config"
	"ytqueue/internal/logging"
	"ytqueue/internal/queue"
)

// scheduler starts queue runs on the runner.schedule cron expression.
type scheduler struct {
	expression string
	cron       *cron.Cron
	entry      cron.EntryID
}

func (s *scheduler) next() time.Time {
	if s == nil || s.cron == nil {
		return time.Time{}
	}
	return s.cron.Entry(s.entry).Next
}

func (s *scheduler) stop() {
	if s == nil || s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
}

// startScheduler must be called with d.mu held.
func (d *Daemon) startScheduler() error {
	expression := strings.TrimSpace(d.cfg.Runner.Schedule)
	if expression == "" {
		return nil
	}
	c := cron.New(cron.WithParser(config.ScheduleParser))
	id, err := c.AddFunc(expression, d.scheduledRun)
	if err != nil {
		return fmt.Errorf("runner.schedule %q: %w", expression, err)
	}
	c.Start()
	d.scheduler.Store(&scheduler{expression: expression, cron: c, entry: id})
	d.logger.Info("queue schedule enabled",
		logging.String("schedule", expression),
		logging.String("next_run", c.Entry(id).Next.Format(time.RFC3339)),
	)
	return nil
}

func (d *Daemon) scheduledRun() {
	runCtx, err := d.runContext()
	if err != nil {
		return
	}
	err = d.Run(runCtx, d.cfg.Runner.ScheduleRetryFailed)
	switch {
	case err == nil:
		d.logger.Info("scheduled queue run started",
			logging.Bool("retry_failed", d.cfg.Runner.ScheduleRetryFailed),
			logging.String(logging.FieldEventType, "schedule_fired"),
		)
	case errors.Is(err, queue.ErrInvalidOperation):
		d.logger.Info("scheduled queue run skipped", logging.String("reason", err.Error()))
	default:
		logging.ErrorWithContext(d.logger, "scheduled queue run failed", "schedule_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the queue store"),
		)
	}
}
