package testsupport

import (
	"context"
	"fmt"
	"sync"

	"ytqueue/internal/engine"
	"ytqueue/internal/job"
	"ytqueue/internal/services"
)

// EngineCall records one invocation of FakeEngine.
type EngineCall struct {
	Op   string
	File string
}

// FakeEngine is an in-memory engine.Engine. Behavior is keyed by source
// file: files listed in FailGenerate or FailUpload return that error, and
// files listed in Block wait until the context ends or the channel closes.
type FakeEngine struct {
	mu    sync.Mutex
	calls []EngineCall

	FailGenerate map[string]error
	FailUpload   map[string]error
	Block        map[string]chan struct{}
	// Started receives the source file of each Generate call when set.
	Started chan string
	// Progress is reported for each phase. Defaults to 50 then 100.
	Progress []float64
}

// NewFakeEngine returns an engine that succeeds for every job.
func NewFakeEngine() *FakeEngine {
	return &FakeEngine{
		FailGenerate: make(map[string]error),
		FailUpload:   make(map[string]error),
		Block:        make(map[string]chan struct{}),
	}
}

// Generate implements engine.Generator.
func (f *FakeEngine) Generate(ctx context.Context, req engine.GenerateRequest, progress engine.ProgressFunc) (string, error) {
	f.record("generate", req.Params.File)
	if f.Started != nil {
		select {
		case f.Started <- req.Params.File:
		case <-ctx.Done():
		}
	}
	if err := f.wait(ctx, req.Params.File); err != nil {
		return "", err
	}
	f.report(progress)
	f.mu.Lock()
	err := f.FailGenerate[req.Params.File]
	f.mu.Unlock()
	if err != nil {
		return "", err
	}
	return req.Dest, nil
}

// Upload implements engine.Uploader. The video id is derived from the file.
func (f *FakeEngine) Upload(ctx context.Context, req job.UploadRequest, progress engine.ProgressFunc) (string, error) {
	f.record("upload", req.File)
	if err := ctx.Err(); err != nil {
		return "", services.Wrap(services.ErrCanceled, "upload", "", "job canceled", err)
	}
	f.report(progress)
	f.mu.Lock()
	err := f.FailUpload[req.File]
	f.mu.Unlock()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("vid-%d", len(req.File)), nil
}

// Calls returns the recorded invocations in order.
func (f *FakeEngine) Calls() []EngineCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]EngineCall(nil), f.calls...)
}

func (f *FakeEngine) record(op, file string) {
	f.mu.Lock()
	f.calls = append(f.calls, EngineCall{Op: op, File: file})
	f.mu.Unlock()
}

func (f *FakeEngine) wait(ctx context.Context, file string) error {
	f.mu.Lock()
	ch := f.Block[file]
	f.mu.Unlock()
	if ch == nil {
		return nil
	}
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return services.Wrap(services.ErrCanceled, "generate", "", "job canceled", ctx.Err())
	}
}

func (f *FakeEngine) report(progress engine.ProgressFunc) {
	if progress == nil {
		return
	}
	steps := f.Progress
	if len(steps) == 0 {
		steps = []float64{50, 100}
	}
	for _, pct := range steps {
		progress(pct)
	}
}
