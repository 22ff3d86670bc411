package runner

import (
	"context"
	"errors"
	"testing"

	"ytqueue/internal/queue"
	"ytqueue/internal/services"
	"ytqueue/internal/testsupport"
)

func TestPerformTagsEngineFailures(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	fake := testsupport.NewFakeEngine()
	fake.FailGenerate["a.mp3"] = errors.New("render crashed")
	fake.FailUpload["b.mp4"] = services.Wrap(services.ErrCanceled, "upload", "", "job canceled", context.Canceled)
	r := New(Deps{Store: store, Engine: fake})

	_, err := r.perform(context.Background(), queue.Item{ID: "a", Job: testsupport.GenerateJob("a.mp3")}, 0)
	if !errors.Is(err, queue.ErrExternalOperation) {
		t.Fatalf("expected ErrExternalOperation, got %v", err)
	}
	if err.Error() != "render crashed" {
		t.Fatalf("engine message must be kept, got %q", err.Error())
	}

	_, err = r.perform(context.Background(), queue.Item{ID: "b", Job: testsupport.UploadJob("b.mp3", "B")}, 1)
	if !errors.Is(err, queue.ErrExternalOperation) || !errors.Is(err, services.ErrCanceled) {
		t.Fatalf("expected external and canceled markers, got %v", err)
	}

	videoID, err := r.perform(context.Background(), queue.Item{ID: "c", Job: testsupport.UploadJob("c.mp3", "C")}, 2)
	if err != nil || videoID == "" {
		t.Fatalf("expected success, got id=%q err=%v", videoID, err)
	}
}

func TestLoopReleasesSlotWhenItStops(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	fake := testsupport.NewFakeEngine()
	fake.Started = make(chan string, 1)
	release := make(chan struct{})
	fake.Block["a.mp3"] = release
	testsupport.MustAdd(t, store, testsupport.GenerateJob("a.mp3"), testsupport.GenerateJob("b.mp3"))
	r := New(Deps{Store: store, Engine: fake})

	ctx := context.Background()
	if err := r.Run(ctx, Options{}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	<-fake.Started
	if err := r.Pause(); err != nil {
		t.Fatalf("Pause failed: %v", err)
	}
	close(release)
	if err := r.Wait(ctx); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}

	r.mu.Lock()
	running, state := r.loopRunning, r.state
	r.mu.Unlock()
	if running || state != StatePaused {
		t.Fatalf("stopped loop must free its slot: loopRunning=%v state=%s", running, state)
	}
}
