package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"ytqueue/internal/api"
	"ytqueue/internal/config"
	"ytqueue/internal/engine"
	"ytqueue/internal/events"
	"ytqueue/internal/job"
	"ytqueue/internal/logging"
	"ytqueue/internal/notifications"
	"ytqueue/internal/preflight"
	"ytqueue/internal/queue"
	"ytqueue/internal/runner"
	"ytqueue/internal/watch"
)

// Options carry optional collaborators. Zero values select the defaults
// derived from the config.
type Options struct {
	Notifier notifications.Service
	// DisableAPI skips the HTTP listener.
	DisableAPI bool
}

// Daemon coordinates the background processing services and enforces
// single-processor execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *queue.Store
	hub      *events.Hub
	runner   *runner.Runner
	notifier notifications.Service

	lockPath string
	lock     *flock.Flock

	api       *apiServer
	scheduler atomic.Pointer[scheduler]
	watcher   *watch.Watcher

	mu        sync.Mutex
	running   atomic.Bool
	wg        sync.WaitGroup
	startedAt time.Time

	// ctxMu guards ctx and cancel; callbacks from the scheduler and watcher
	// take it while Stop holds mu.
	ctxMu  sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *queue.Store, eng engine.Engine, logger *slog.Logger, opts Options) (*Daemon, error) {
	if cfg == nil || store == nil || eng == nil {
		return nil, errors.New("daemon requires config, store and engine")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}

	hub := events.NewHub()
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		hub:      hub,
		notifier: notifier,
		lockPath: cfg.ProcessorLockPath(),
		lock:     flock.New(cfg.ProcessorLockPath()),
	}
	d.runner = runner.New(runner.Deps{
		Store:    store,
		Engine:   eng,
		Events:   hub,
		Notifier: notifier,
		Logger:   logger,
	})
	if !opts.DisableAPI {
		d.api = newAPIServer(cfg, d, logger)
	}
	return d, nil
}

// Start acquires the processor lock, reconciles interrupted items and
// launches the API server, scheduler and watcher.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running.Load() {
		return fmt.Errorf("%w: daemon already running", queue.ErrInvalidOperation)
	}

	if err := os.MkdirAll(d.cfg.Paths.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire processor lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: another ytqueue processor is already running", queue.ErrInvalidOperation)
	}

	reset, err := d.store.ResetRunning(ctx)
	if err != nil {
		_ = d.lock.Unlock()
		return fmt.Errorf("reset interrupted items: %w", err)
	}
	if reset > 0 {
		d.logger.Info("interrupted items returned to pending",
			logging.Int("count", reset),
			logging.String(logging.FieldEventType, "queue_reconciled"),
		)
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.ctxMu.Lock()
	d.ctx, d.cancel = runCtx, cancel
	d.ctxMu.Unlock()
	if err := d.api.start(runCtx); err != nil {
		d.clearContext()
		_ = d.lock.Unlock()
		return err
	}
	if err := d.startScheduler(); err != nil {
		d.clearContext()
		d.api.stop()
		_ = d.lock.Unlock()
		return err
	}
	if err := d.startWatcher(runCtx); err != nil {
		logging.WarnWithContext(d.logger, "directory watcher disabled", "watch_start_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "new files are not enqueued automatically"),
			logging.String(logging.FieldErrorHint, "check watch.dir and watch.profile"),
		)
	}

	d.startedAt = time.Now()
	d.running.Store(true)
	d.logger.Info("ytqueue daemon started",
		logging.String("lock", d.lockPath),
		logging.String("backend", d.cfg.Storage.Backend),
		logging.String("queue", d.store.Path()),
		logging.String(logging.FieldEventType, "daemon_started"),
	)
	return nil
}

// Stop stops background processing and releases the processor lock. A job
// in flight is returned to pending.
func (d *Daemon) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running.Load() {
		return
	}

	d.scheduler.Swap(nil).stop()
	d.clearContext()
	waitCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	if err := d.runner.Wait(waitCtx); err != nil {
		logging.WarnWithContext(d.logger, "runner did not stop in time", "runner_stop_timeout",
			logging.Error(err),
			logging.String(logging.FieldImpact, "the running item stays running until the next start"),
			logging.String(logging.FieldErrorHint, "the next start resets it to pending"),
		)
	}
	cancel()
	d.wg.Wait()
	d.watcher = nil
	d.api.stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release processor lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("ytqueue daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	d.hub.Close()
	return d.store.Close()
}

// Running reports whether Start has succeeded and Stop has not been called.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// Events returns the hub that carries queue events.
func (d *Daemon) Events() *events.Hub {
	return d.hub
}

// Runner returns the queue runner.
func (d *Daemon) Runner() *runner.Runner {
	return d.runner
}

// Store returns the queue store.
func (d *Daemon) Store() *queue.Store {
	return d.store
}

// APIAddress returns the bound HTTP address, or "" when the API is off.
func (d *Daemon) APIAddress() string {
	return d.api.address()
}

// runContext is the long-lived context processing loops run under.
func (d *Daemon) runContext() (context.Context, error) {
	d.ctxMu.Lock()
	defer d.ctxMu.Unlock()
	if d.ctx == nil || d.ctx.Err() != nil {
		return nil, fmt.Errorf("%w: daemon is not running", queue.ErrInvalidOperation)
	}
	return d.ctx, nil
}

func (d *Daemon) clearContext() {
	d.ctxMu.Lock()
	defer d.ctxMu.Unlock()
	if d.cancel != nil {
		d.cancel()
	}
	d.ctx, d.cancel = nil, nil
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) api.DaemonStatus {
	status := api.DaemonStatus{
		Running:    d.running.Load(),
		PID:        os.Getpid(),
		StartedAt:  api.FormatTime(d.startedAt),
		Backend:    d.cfg.Storage.Backend,
		QueuePath:  d.store.Path(),
		LockPath:   d.lockPath,
		APIAddress: d.APIAddress(),
		Runner:     api.FromRunnerStatus(d.runner.Status()),
		Watch: api.WatchStatus{
			Enabled:    d.cfg.Watch.Enabled,
			Dir:        d.cfg.Watch.Dir,
			AutoUpload: d.cfg.Watch.AutoUpload,
		},
	}
	if summary, err := d.store.Summary(ctx); err == nil {
		status.Summary = api.FromSummary(summary)
	}
	if sched := d.scheduler.Load(); sched != nil {
		status.Schedule = api.ScheduleStatus{
			Expression: sched.expression,
			NextRun:    api.FormatTime(sched.next()),
		}
	}
	for _, dep := range preflight.CheckSystemDeps(d.cfg) {
		status.Dependencies = append(status.Dependencies, api.DependencyStatus{
			Name:        dep.Name,
			Command:     dep.Command,
			Description: dep.Description,
			Optional:    dep.Optional,
			Available:   dep.Available,
			Detail:      dep.Detail,
		})
	}
	return status
}

func (d *Daemon) startWatcher(ctx context.Context) error {
	if !d.cfg.Watch.Enabled {
		return nil
	}
	opts, err := watch.OptionsFromConfig(d.cfg)
	if err != nil {
		return err
	}
	w, err := watch.New(opts, watch.SinkFunc(d.enqueueWatched), d.logger)
	if err != nil {
		return err
	}
	d.watcher = w
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := w.Run(ctx); err != nil {
			logging.WarnWithContext(d.logger, "directory watcher stopped", "watch_stopped",
				logging.Error(err),
				logging.String(logging.FieldImpact, "new files are not enqueued automatically"),
				logging.String(logging.FieldErrorHint, "check that watch.dir exists"),
			)
		}
	}()
	return nil
}

// enqueueWatched adds watcher jobs and starts the runner when it is idle.
func (d *Daemon) enqueueWatched(ctx context.Context, jobs []job.Job) error {
	if _, err := d.AddJobs(ctx, jobs); err != nil {
		return err
	}
	if d.runner.State() == runner.StateIdle {
		if err := d.Run(ctx, d.cfg.Runner.ScheduleRetryFailed); err != nil && !errors.Is(err, queue.ErrInvalidOperation) {
			return err
		}
	}
	return nil
}
