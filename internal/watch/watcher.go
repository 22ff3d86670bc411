package watch

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"ytqueue/internal/batch"
	"ytqueue/internal/config"
	"ytqueue/internal/job"
	"ytqueue/internal/logging"
)

// Sink receives the jobs built for newly detected files.
type Sink interface {
	Enqueue(ctx context.Context, jobs []job.Job) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, jobs []job.Job) error

// Enqueue implements Sink.
func (f SinkFunc) Enqueue(ctx context.Context, jobs []job.Job) error { return f(ctx, jobs) }

// Options configure a Watcher.
type Options struct {
	Dir        string
	Extensions []string
	Interval   time.Duration
	AutoUpload bool
	OutputDir  string
	Params     job.GenerateParams
}

// OptionsFromConfig resolves watcher options, including the configured
// profile.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	params, err := cfg.Profile(cfg.Watch.Profile)
	if err != nil {
		return Options{}, err
	}
	return Options{
		Dir:        cfg.Watch.Dir,
		Extensions: cfg.Watch.Extensions,
		Interval:   time.Duration(cfg.Watch.PollSeconds) * time.Second,
		AutoUpload: cfg.Watch.AutoUpload,
		OutputDir:  cfg.Paths.OutputDir,
		Params:     params,
	}, nil
}

type fileState struct {
	size    int64
	modTime time.Time
	queued  bool
}

// Watcher detects new files in a directory.
type Watcher struct {
	opts   Options
	sink   Sink
	logger *slog.Logger

	mu    sync.Mutex
	files map[string]*fileState
}

// New constructs a watcher. Call Run to start polling.
func New(opts Options, sink Sink, logger *slog.Logger) (*Watcher, error) {
	if strings.TrimSpace(opts.Dir) == "" {
		return nil, errors.New("watch directory is required")
	}
	if sink == nil {
		return nil, errors.New("watch sink is required")
	}
	if opts.Interval <= 0 {
		opts.Interval = 10 * time.Second
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Watcher{
		opts:   opts,
		sink:   sink,
		logger: logging.NewComponentLogger(logger, "watch"),
		files:  make(map[string]*fileState),
	}, nil
}

// Run primes the watcher and then polls until ctx ends.
func (w *Watcher) Run(ctx context.Context) error {
	if err := w.Prime(); err != nil {
		return err
	}
	w.logger.Info("watching directory",
		logging.String("dir", w.opts.Dir),
		logging.Duration("interval", w.opts.Interval),
		logging.Bool("auto_upload", w.opts.AutoUpload),
		logging.String(logging.FieldEventType, "watch_started"),
	)
	ticker := time.NewTicker(w.opts.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := w.Poll(ctx); err != nil {
				logging.WarnWithContext(w.logger, "watch poll failed", "watch_poll_failed",
					logging.Error(err),
					logging.String(logging.FieldImpact, "new files are not enqueued until the next successful poll"),
					logging.String(logging.FieldErrorHint, "check that the watch directory exists and is readable"),
				)
			}
		}
	}
}

// Prime marks the current directory contents as already handled.
func (w *Watcher) Prime() error {
	entries, err := w.scan()
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, info := range entries {
		w.files[path] = &fileState{size: info.Size(), modTime: info.ModTime(), queued: true}
	}
	return nil
}

// Poll scans the directory once and enqueues files that became stable. It
// returns the enqueued paths.
func (w *Watcher) Poll(ctx context.Context) ([]string, error) {
	entries, err := w.scan()
	if err != nil {
		return nil, err
	}

	w.mu.Lock()
	var ready []string
	for path, info := range entries {
		state, ok := w.files[path]
		if !ok {
			w.files[path] = &fileState{size: info.Size(), modTime: info.ModTime()}
			continue
		}
		if state.queued {
			continue
		}
		if state.size == info.Size() && state.modTime.Equal(info.ModTime()) {
			ready = append(ready, path)
			continue
		}
		state.size = info.Size()
		state.modTime = info.ModTime()
	}
	for path := range w.files {
		if _, ok := entries[path]; !ok {
			delete(w.files, path)
		}
	}
	w.mu.Unlock()

	if len(ready) == 0 {
		return nil, nil
	}
	slices.Sort(ready)
	jobs, err := batch.Build(ready, nil, w.opts.Params, batch.Options{
		OutputDir: w.opts.OutputDir,
		NoUpload:  !w.opts.AutoUpload,
	})
	if err != nil {
		return nil, err
	}
	if err := w.sink.Enqueue(ctx, jobs); err != nil {
		return nil, err
	}

	w.mu.Lock()
	for _, path := range ready {
		if state, ok := w.files[path]; ok {
			state.queued = true
		}
	}
	w.mu.Unlock()

	for _, path := range ready {
		w.logger.Info("watched file queued",
			logging.String("file", path),
			logging.String(logging.FieldEventType, "watch_file_queued"),
		)
	}
	return ready, nil
}

func (w *Watcher) scan() (map[string]os.FileInfo, error) {
	entries, err := os.ReadDir(w.opts.Dir)
	if err != nil {
		return nil, err
	}
	out := make(map[string]os.FileInfo, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		if !w.matches(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		out[filepath.Join(w.opts.Dir, entry.Name())] = info
	}
	return out, nil
}

func (w *Watcher) matches(name string) bool {
	if len(w.opts.Extensions) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(name))
	return slices.Contains(w.opts.Extensions, ext)
}
