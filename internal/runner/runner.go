package runner

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"ytqueue/internal/engine"
	"ytqueue/internal/events"
	"ytqueue/internal/logging"
	"ytqueue/internal/metrics"
	"ytqueue/internal/notifications"
	"ytqueue/internal/queue"
)

// State is the runner lifecycle state.
type State string

const (
	StateIdle       State = "idle"
	StateProcessing State = "processing"
	StatePaused     State = "paused"
)

// Options tune a Run call.
type Options struct {
	// RetryFailed returns failed items to pending before the loop starts.
	RetryFailed bool
	// MaxRetries skips failed items whose retry count reached the ceiling.
	// Zero means no ceiling.
	MaxRetries int
}

// Deps are the collaborators a Runner needs. Events and Notifier are optional.
type Deps struct {
	Store    *queue.Store
	Engine   engine.Engine
	Events   events.Publisher
	Notifier notifications.Service
	Logger   *slog.Logger
}

// Runner processes the queue sequentially.
type Runner struct {
	store    *queue.Store
	engine   engine.Engine
	events   events.Publisher
	notifier notifications.Service
	logger   *slog.Logger
	sampler  *logging.ProgressSampler

	mu          sync.Mutex
	state       State
	loopRunning bool
	done        chan struct{}
	current     *currentJob
	pass        passStats
}

type currentJob struct {
	item      queue.Item
	index     int
	phase     string
	progress  float64
	startedAt time.Time
	cancel    context.CancelFunc
}

type passStats struct {
	startedAt time.Time
	completed int
	failed    int
}

// New constructs an idle runner. Committed store mutations are forwarded to
// deps.Events as queue-changed.
func New(deps Deps) *Runner {
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	notifier := deps.Notifier
	if notifier == nil {
		notifier = notifications.NewService(nil)
	}
	r := &Runner{
		store:    deps.Store,
		engine:   deps.Engine,
		events:   deps.Events,
		notifier: notifier,
		logger:   logging.NewComponentLogger(logger, "runner"),
		sampler:  logging.NewProgressSampler(5),
		state:    StateIdle,
	}
	metrics.SetRunnerState(string(StateIdle))
	if r.store != nil {
		r.store.OnChange(r.onStoreChange)
	}
	return r
}

func (r *Runner) onStoreChange() {
	r.publish(events.Changed())
	summary, err := r.store.Summary(context.Background())
	if err != nil {
		return
	}
	metrics.UpdateQueueItems(summary.Pending, summary.Running, summary.Failed, summary.Completed)
}

func (r *Runner) publish(evt events.Event) {
	metrics.RecordEvent(string(evt.Type))
	if r.events != nil {
		r.events.Publish(evt)
	}
}

// Run starts processing from idle or paused. With opts.RetryFailed, failed
// items are moved back to pending first. Run returns once the loop has
// started; use Wait to block until it stops.
func (r *Runner) Run(ctx context.Context, opts Options) error {
	r.mu.Lock()
	if r.state == StateProcessing {
		r.mu.Unlock()
		return fmt.Errorf("%w: runner is already processing", queue.ErrInvalidOperation)
	}
	r.mu.Unlock()

	if opts.RetryFailed {
		retried, err := r.store.RetryFailed(ctx, queue.RetryOptions{MaxRetries: opts.MaxRetries})
		if err != nil {
			return fmt.Errorf("retry failed items: %w", err)
		}
		metrics.RecordRetries(retried)
		if retried > 0 {
			r.logger.Info("failed jobs requeued",
				logging.Int("count", retried),
				logging.String(logging.FieldEventType, "jobs_retried"),
			)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == StateProcessing {
		return fmt.Errorf("%w: runner is already processing", queue.ErrInvalidOperation)
	}
	r.startLocked(ctx, true)
	return nil
}

// Pause stops the runner at the next job boundary.
func (r *Runner) Pause() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateProcessing {
		return fmt.Errorf("%w: runner is %s, not processing", queue.ErrInvalidOperation, r.state)
	}
	r.setStateLocked(StatePaused)
	r.logger.Info("pause requested",
		logging.Bool("job_in_flight", r.current != nil),
		logging.String(logging.FieldEventType, "runner_paused"),
	)
	return nil
}

// Resume continues processing after Pause. A pause that has not yet taken
// effect is simply withdrawn.
func (r *Runner) Resume(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StatePaused {
		return fmt.Errorf("%w: runner is %s, not paused", queue.ErrInvalidOperation, r.state)
	}
	r.logger.Info("runner resumed", logging.String(logging.FieldEventType, "runner_resumed"))
	r.startLocked(ctx, false)
	return nil
}

// Cancel aborts the in-flight external call. The job is recorded as failed
// with error "canceled" and the loop continues.
func (r *Runner) Cancel() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil {
		return fmt.Errorf("%w: no job is running", queue.ErrInvalidOperation)
	}
	r.logger.Info("cancel requested",
		logging.String(logging.FieldJobID, r.current.item.ID),
		logging.String(logging.FieldEventType, "job_cancel_requested"),
	)
	r.current.cancel()
	return nil
}

// Wait blocks until the most recent processing loop has exited or ctx ends.
// It returns immediately when no loop was ever started.
func (r *Runner) Wait(ctx context.Context) error {
	r.mu.Lock()
	done := r.done
	r.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// State returns the current lifecycle state.
func (r *Runner) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Runner) setStateLocked(state State) {
	r.state = state
	metrics.SetRunnerState(string(state))
}

// startLocked moves to processing and launches the loop unless one is still
// finishing its current job. A new pass resets the outcome counts; a resumed
// pass keeps them.
func (r *Runner) startLocked(ctx context.Context, newPass bool) {
	r.setStateLocked(StateProcessing)
	if r.loopRunning {
		return
	}
	r.loopRunning = true
	r.done = make(chan struct{})
	if newPass {
		r.pass = passStats{startedAt: time.Now()}
	}
	go r.loop(ctx, r.done, newPass)
}
