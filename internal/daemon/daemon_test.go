package daemon_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"ytqueue/internal/api"
	"ytqueue/internal/config"
	"ytqueue/internal/daemon"
	"ytqueue/internal/events"
	"ytqueue/internal/job"
	"ytqueue/internal/queue"
	"ytqueue/internal/testsupport"
)

func newDaemon(t *testing.T, cfg *config.Config) (*daemon.Daemon, *testsupport.FakeEngine) {
	t.Helper()
	store := testsupport.MustOpenStore(t, cfg)
	fake := testsupport.NewFakeEngine()
	d, err := daemon.New(cfg, store, fake, nil, daemon.Options{})
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d, fake
}

func startDaemon(t *testing.T, d *daemon.Daemon) {
	t.Helper()
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
}

func waitIdle(t *testing.T, d *daemon.Daemon) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.Runner().Wait(ctx); err != nil {
		t.Fatalf("runner did not stop: %v", err)
	}
}

func TestDaemonStartResetsRunningItemsAndHoldsLock(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, _ := newDaemon(t, cfg)
	ctx := context.Background()

	testsupport.MustAdd(t, d.Store(), testsupport.GenerateJob("/audio/a.wav"))
	if _, _, ok, err := d.Store().ClaimNext(ctx); err != nil || !ok {
		t.Fatalf("ClaimNext: ok=%v err=%v", ok, err)
	}

	startDaemon(t, d)
	items, err := d.ListQueue(ctx)
	if err != nil {
		t.Fatalf("ListQueue: %v", err)
	}
	if len(items) != 1 || items[0].Status != string(queue.StatusPending) {
		t.Fatalf("expected interrupted item back to pending, got %+v", items)
	}

	other, _ := newDaemon(t, cfg)
	if err := other.Start(ctx); !errors.Is(err, queue.ErrInvalidOperation) {
		t.Fatalf("expected second processor to be rejected, got %v", err)
	}

	d.Stop()
	if d.Running() {
		t.Fatal("expected daemon stopped")
	}
	if err := other.Start(ctx); err != nil {
		t.Fatalf("expected lock to be free after Stop: %v", err)
	}
}

func TestDaemonRunProcessesQueue(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, fake := newDaemon(t, cfg)
	ctx := context.Background()
	fake.FailGenerate["/audio/a.wav"] = errors.New("boom")

	if err := d.Run(ctx, false); !errors.Is(err, queue.ErrInvalidOperation) {
		t.Fatalf("expected Run before Start to fail, got %v", err)
	}
	startDaemon(t, d)

	if _, err := d.AddJobs(ctx, []job.Job{
		testsupport.GenerateJob("/audio/a.wav"),
		testsupport.GenerateJob("/audio/b.wav"),
	}); err != nil {
		t.Fatalf("AddJobs: %v", err)
	}
	if err := d.Run(ctx, false); err != nil {
		t.Fatalf("Run: %v", err)
	}
	waitIdle(t, d)

	summary, err := d.QueueSummary(ctx)
	if err != nil {
		t.Fatalf("QueueSummary: %v", err)
	}
	if summary != (api.QueueSummary{Failed: 1, Completed: 1}) {
		t.Fatalf("unexpected summary %+v", summary)
	}

	failed, err := d.ListQueue(ctx, queue.StatusFailed)
	if err != nil || len(failed) != 1 || failed[0].Index != 0 {
		t.Fatalf("expected failed item at index 0, got %+v err=%v", failed, err)
	}

	removed, err := d.ClearQueue(ctx, string(queue.ClearCompleted))
	if err != nil || removed != 1 {
		t.Fatalf("ClearQueue completed: removed=%d err=%v", removed, err)
	}
	if _, err := d.ClearQueue(ctx, "everything"); !errors.Is(err, queue.ErrInvalidOperation) {
		t.Fatalf("expected unknown scope error, got %v", err)
	}

	delete(fake.FailGenerate, "/audio/a.wav")
	retried, err := d.RetryItems(ctx, nil)
	if err != nil || retried != 1 {
		t.Fatalf("RetryItems: retried=%d err=%v", retried, err)
	}
	if err := d.Run(ctx, false); err != nil {
		t.Fatalf("second Run: %v", err)
	}
	waitIdle(t, d)
	items, _ := d.ListQueue(ctx)
	if len(items) != 1 || items[0].Status != string(queue.StatusCompleted) || items[0].Retries != 1 {
		t.Fatalf("expected retried item completed with one retry, got %+v", items)
	}
}

func TestDaemonRunnerControlsRequireActiveState(t *testing.T) {
	d, _ := newDaemon(t, testsupport.NewConfig(t))
	startDaemon(t, d)

	if err := d.Pause(); !errors.Is(err, queue.ErrInvalidOperation) {
		t.Fatalf("expected pause error while idle, got %v", err)
	}
	if err := d.Resume(context.Background()); !errors.Is(err, queue.ErrInvalidOperation) {
		t.Fatalf("expected resume error while idle, got %v", err)
	}
	if err := d.Cancel(); !errors.Is(err, queue.ErrInvalidOperation) {
		t.Fatalf("expected cancel error while idle, got %v", err)
	}
}

func TestAPIRequiresBearerToken(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithAPIToken("secret"))
	d, _ := newDaemon(t, cfg)
	startDaemon(t, d)
	testsupport.MustAdd(t, d.Store(), testsupport.GenerateJob("/audio/a.wav"))

	base := "http://" + d.APIAddress()
	resp, err := http.Get(base + "/api/queue")
	if err != nil {
		t.Fatalf("GET without token: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodGet, base+"/api/queue?status=pending", nil)
	req.Header.Set("Authorization", "Bearer secret")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET with token: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var payload api.QueueListResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode queue: %v", err)
	}
	if len(payload.Items) != 1 || payload.Items[0].File != "/audio/a.wav" {
		t.Fatalf("unexpected queue payload %+v", payload)
	}

	req, _ = http.NewRequest(http.MethodGet, base+"/api/queue?status=bogus", nil)
	req.Header.Set("Authorization", "Bearer secret")
	resp2, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET bogus status: %v", err)
	}
	resp2.Body.Close()
	if resp2.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown status, got %d", resp2.StatusCode)
	}
}

func TestAPIStatusReportsRunnerAndSummary(t *testing.T) {
	d, _ := newDaemon(t, testsupport.NewConfig(t))
	startDaemon(t, d)
	testsupport.MustAdd(t, d.Store(), testsupport.GenerateJob("/audio/a.wav"))

	resp, err := http.Get("http://" + d.APIAddress() + "/api/status")
	if err != nil {
		t.Fatalf("GET status: %v", err)
	}
	defer resp.Body.Close()
	var status api.DaemonStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if !status.Running || status.Runner.State != "idle" || status.Summary.Pending != 1 {
		t.Fatalf("unexpected status %+v", status)
	}
	if status.LockPath == "" || status.QueuePath == "" {
		t.Fatalf("expected lock and queue paths, got %+v", status)
	}
}

func TestAPIEventsStreamQueueChanges(t *testing.T) {
	d, _ := newDaemon(t, testsupport.NewConfig(t))
	startDaemon(t, d)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	stream, err := api.DialEvents(ctx, d.APIAddress(), "", events.QueueChanged)
	if err != nil {
		t.Fatalf("DialEvents: %v", err)
	}
	defer stream.Close()

	deadline := time.Now().Add(5 * time.Second)
	for d.Events().Subscribers() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("event subscriber never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	testsupport.MustAdd(t, d.Store(), testsupport.GenerateJob("/audio/a.wav"))
	select {
	case evt, ok := <-stream.C():
		if !ok {
			t.Fatalf("stream closed early: %v", stream.Err())
		}
		if evt.Type != events.QueueChanged {
			t.Fatalf("unexpected event %+v", evt)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for queue-changed")
	}
}

func TestScheduleStartsQueueRuns(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Runner.Schedule = "@every 1s"
	d, _ := newDaemon(t, cfg)
	startDaemon(t, d)
	ctx := context.Background()

	status := d.Status(ctx)
	if status.Schedule.Expression != "@every 1s" || status.Schedule.NextRun == "" {
		t.Fatalf("expected schedule in status, got %+v", status.Schedule)
	}

	testsupport.MustAdd(t, d.Store(), testsupport.GenerateJob("/audio/a.wav"))
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		summary, err := d.Store().Summary(ctx)
		if err != nil {
			t.Fatalf("Summary: %v", err)
		}
		if summary.Completed == 1 {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatal("scheduled run did not process the queue")
}
