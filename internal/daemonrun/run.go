package daemonrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"

	"ytqueue/internal/config"
	"ytqueue/internal/daemon"
	"ytqueue/internal/engine"
	"ytqueue/internal/events"
	"ytqueue/internal/ipc"
	"ytqueue/internal/logging"
	"ytqueue/internal/preflight"
	"ytqueue/internal/queue"
	"ytqueue/internal/runner"
)

const (
	logPrefix  = "ytqueue-"
	logPointer = "ytqueue.log"

	pausedPollInterval = 200 * time.Millisecond
)

// Options configures process runtime behavior.
type Options struct {
	// SocketPath overrides the IPC socket location.
	SocketPath string
	// Engine replaces the exec engine client; tests inject fakes here.
	Engine engine.Engine
	// Logger replaces the file-backed logger.
	Logger *slog.Logger
}

// QueueOptions configures a foreground queue run.
type QueueOptions struct {
	Options
	RetryFailed bool
	// OnEvent receives hub events while the queue runs.
	OnEvent func(events.Event)
}

type runtime struct {
	cfg     *config.Config
	logger  *slog.Logger
	logPath string
	store   *queue.Store
	daemon  *daemon.Daemon
	ipc     *ipc.Server
}

func (r *runtime) close() {
	if r.ipc != nil {
		r.ipc.Close()
	}
	if r.daemon != nil {
		_ = r.daemon.Close()
	} else if r.store != nil {
		_ = r.store.Close()
	}
}

// Run starts the ytqueue daemon and blocks until SIGINT or SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	rt, err := start(signalCtx, cfg, opts)
	if err != nil {
		return err
	}
	defer rt.close()

	<-signalCtx.Done()
	rt.logger.Info("ytqueue daemon shutting down", logging.String(logging.FieldEventType, "daemon_shutdown"))
	return nil
}

// RunQueue takes the processor lock in this process, serves IPC and HTTP
// while the queue drains and returns once the runner is idle. A paused runner
// keeps the process alive so queue-resume can continue the pass. The returned
// status carries the pass counts.
func RunQueue(cmdCtx context.Context, cfg *config.Config, opts QueueOptions) (runner.Status, error) {
	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	rt, err := start(signalCtx, cfg, opts.Options)
	if err != nil {
		return runner.Status{}, err
	}
	defer rt.close()

	forwardDone := make(chan struct{})
	if opts.OnEvent != nil {
		sub := rt.daemon.Events().Subscribe()
		defer func() {
			sub.Close()
			<-forwardDone
		}()
		go func() {
			defer close(forwardDone)
			for evt := range sub.C() {
				opts.OnEvent(evt)
			}
		}()
	} else {
		close(forwardDone)
	}

	if err := rt.daemon.Run(signalCtx, opts.RetryFailed); err != nil {
		return runner.Status{}, err
	}
	if err := waitIdle(signalCtx, rt.daemon.Runner()); err != nil {
		// Interrupted: Stop requeues the in-flight job.
		rt.daemon.Stop()
		return rt.daemon.Runner().Status(), err
	}
	status := rt.daemon.Runner().Status()
	rt.logger.Info("queue run finished",
		logging.Int("completed", status.Completed),
		logging.Int("failed", status.Failed),
		logging.String(logging.FieldEventType, "queue_run_finished"),
	)
	return status, nil
}

// waitIdle blocks until the runner is idle, polling while it is paused.
func waitIdle(ctx context.Context, r *runner.Runner) error {
	ticker := time.NewTicker(pausedPollInterval)
	defer ticker.Stop()
	for {
		if err := r.Wait(ctx); err != nil {
			return err
		}
		switch r.State() {
		case runner.StateIdle:
			return nil
		case runner.StatePaused:
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}
		}
	}
}

func start(ctx context.Context, cfg *config.Config, opts Options) (*runtime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}
	rt := &runtime{cfg: cfg}

	logger := opts.Logger
	if logger == nil {
		runID := time.Now().UTC().Format("20060102T150405.000Z")
		fileName := logPrefix + runID + ".log"
		var err error
		logger, err = logging.NewFromConfig(cfg, fileName, uuid.NewString())
		if err != nil {
			return nil, fmt.Errorf("init logger: %w", err)
		}
		rt.logPath = filepath.Join(cfg.Paths.LogDir, fileName)
		if err := ensureCurrentLogPointer(cfg.Paths.LogDir, rt.logPath); err != nil {
			fmt.Fprintf(os.Stderr, "warn: unable to update %s link: %v\n", logPointer, err)
		}
		logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays, cfg.Paths.LogDir, logPrefix+"*.log", rt.logPath)
	}
	rt.logger = logger
	logDependencySnapshot(logger, cfg)

	store, err := queue.Open(cfg)
	if err != nil {
		logger.Error("open queue store", logging.Error(err))
		return nil, err
	}
	rt.store = store

	eng := opts.Engine
	if eng == nil {
		eng = engine.NewFromConfig(cfg.Engine, logger)
	}
	d, err := daemon.New(cfg, store, eng, logger, daemon.Options{})
	if err != nil {
		rt.close()
		return nil, fmt.Errorf("create daemon: %w", err)
	}
	rt.daemon = d

	if err := d.Start(ctx); err != nil {
		rt.close()
		if errors.Is(err, queue.ErrInvalidOperation) {
			return nil, fmt.Errorf("%w (is `ytqueue daemon` already running?)", err)
		}
		return nil, fmt.Errorf("start daemon: %w", err)
	}

	socketPath := opts.SocketPath
	if socketPath == "" {
		socketPath = cfg.SocketPath()
	}
	ipcServer, err := ipc.NewServer(ctx, socketPath, d, logger)
	if err != nil {
		rt.close()
		return nil, fmt.Errorf("start IPC server: %w", err)
	}
	ipcServer.Serve()
	rt.ipc = ipcServer
	return rt, nil
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, logPointer)
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func logDependencySnapshot(logger *slog.Logger, cfg *config.Config) {
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "dependency_snapshot"),
		logging.String("storage_backend", cfg.Storage.Backend),
		logging.Bool("ntfy_enabled", cfg.Notifications.NtfyTopic != ""),
		logging.Bool("watch_enabled", cfg.Watch.Enabled),
	}
	for _, dep := range preflight.CheckSystemDeps(cfg) {
		attrs = append(attrs,
			logging.Bool(dep.Name+"_available", dep.Available),
			logging.String(dep.Name+"_binary", dep.Command),
		)
	}
	logger.Info("dependency snapshot", logging.Args(attrs...)...)
}
