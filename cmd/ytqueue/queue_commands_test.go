package main

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ytqueue/internal/job"
	"ytqueue/internal/queue"
	"ytqueue/internal/testsupport"
)

func TestQueueAddListAndStatus(t *testing.T) {
	env := setupCLITestEnv(t)
	t.Chdir(t.TempDir())

	out := env.mustRun(t, "queue-add", "show.mp3", "--title", "Episode 1", "--tags", "a, b", "--width", "1280")
	requireContains(t, out, "Queued #0")

	items := env.listItems(t)
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	item := items[0]
	if item.Kind != string(job.KindGenerateUpload) || item.Status != string(queue.StatusPending) {
		t.Fatalf("unexpected item %+v", item)
	}
	cwd, _ := os.Getwd()
	if item.File != filepath.Join(cwd, "show.mp3") {
		t.Fatalf("expected absolute source path, got %q", item.File)
	}
	if item.Dest != filepath.Join(env.cfg.Paths.OutputDir, "show.mp4") {
		t.Fatalf("unexpected dest %q", item.Dest)
	}
	params := item.Job.Params
	if params.Title != "Episode 1" || strings.Join(params.Tags, "|") != "a|b" {
		t.Fatalf("flags not applied: %+v", params)
	}
	if params.Width == nil || *params.Width != 1280 || params.Height != nil {
		t.Fatalf("only explicit numeric flags should be set: %+v", params)
	}

	out = env.mustRun(t, "queue-status")
	var summary struct {
		Pending int `json:"pending"`
		Total   int `json:"total"`
	}
	if err := json.Unmarshal([]byte(out), &summary); err != nil {
		t.Fatalf("decode summary %q: %v", out, err)
	}
	if summary.Pending != 1 || summary.Total != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}

	out = env.mustRun(t, "queue-status", "--format", "table")
	requireContains(t, out, "Pending")
	requireContains(t, out, "Total")

	out = env.mustRun(t, "queue-list", "--format", "table")
	requireContains(t, out, "Episode 1")

	if _, _, err := env.run(t, "queue-list", "--format", "yaml"); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestQueueAddUsesProfileAndNoUpload(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithProfile("podcast", job.GenerateParams{
		Background: "/art/bg.png",
		Privacy:    "unlisted",
		Title:      "Profile Title",
	}))

	env.mustRun(t, "queue-add", "/audio/ep.wav", "--profile", "podcast", "--title", "Override", "--no-upload", "-o", "/videos/ep.mp4")
	items := env.listItems(t)
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	item := items[0]
	if item.Kind != string(job.KindGenerate) || item.Dest != "/videos/ep.mp4" {
		t.Fatalf("unexpected item %+v", item)
	}
	if item.Job.Params.Background != "/art/bg.png" || item.Job.Params.Title != "Override" {
		t.Fatalf("profile merge wrong: %+v", item.Job.Params)
	}

	if _, _, err := env.run(t, "queue-add", "/audio/x.wav", "--profile", "missing"); err == nil {
		t.Fatal("expected error for unknown profile")
	}
}

func TestQueueAddBatchFromCSV(t *testing.T) {
	env := setupCLITestEnv(t)
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "meta.csv")
	content := "file,title,tags\n/audio/one.mp3,One,\"x,y\"\n/audio/two.mp3,,\n"
	if err := os.WriteFile(csvPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}

	out := env.mustRun(t, "queue-add-batch", "--csv", csvPath, "-d", "/out", "--privacy", "private")
	requireContains(t, out, "2 jobs queued")

	items := env.listItems(t)
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].Job.Params.Title != "One" || items[0].Dest != "/out/one.mp4" {
		t.Fatalf("unexpected first item %+v", items[0])
	}
	if items[1].Job.Params.Privacy != "private" {
		t.Fatalf("shared flag not applied: %+v", items[1].Job.Params)
	}

	if _, _, err := env.run(t, "queue-add-batch"); err == nil {
		t.Fatal("expected error without files or csv")
	}
}

func TestQueueRemoveMoveAndErrors(t *testing.T) {
	env := setupCLITestEnv(t)
	env.mustRun(t, "queue-add-batch", "/audio/a.mp3", "/audio/b.mp3", "/audio/c.mp3")

	env.mustRun(t, "queue-move", "2", "0")
	items := env.listItems(t)
	if items[0].File != "/audio/c.mp3" {
		t.Fatalf("expected c first after move, got %+v", items)
	}

	out := env.mustRun(t, "queue-remove", "1")
	requireContains(t, out, "a.mp3")
	if got := len(env.listItems(t)); got != 2 {
		t.Fatalf("expected 2 items after remove, got %d", got)
	}

	_, _, err := env.run(t, "queue-remove", "9")
	if !errors.Is(err, queue.ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange, got %v", err)
	}
	if _, _, err := env.run(t, "queue-move", "x", "0"); err == nil {
		t.Fatal("expected error for non-numeric index")
	}
}

func TestQueueExportImportAndClear(t *testing.T) {
	env := setupCLITestEnv(t)
	env.mustRun(t, "queue-add-batch", "/audio/a.mp3", "/audio/b.mp3")

	exportPath := filepath.Join(t.TempDir(), "queue.json")
	out := env.mustRun(t, "queue-export", exportPath)
	requireContains(t, out, "Exported 2 items")

	out = env.mustRun(t, "queue-clear")
	requireContains(t, out, "Cleared 2 queue items")
	if got := len(env.listItems(t)); got != 0 {
		t.Fatalf("expected empty queue, got %d", got)
	}

	env.mustRun(t, "queue-import", exportPath)
	env.mustRun(t, "queue-import", exportPath, "--append")
	if got := len(env.listItems(t)); got != 4 {
		t.Fatalf("expected 4 items after import+append, got %d", got)
	}

	bad := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(bad, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write bad file: %v", err)
	}
	if _, _, err := env.run(t, "queue-import", bad); !errors.Is(err, queue.ErrParse) {
		t.Fatalf("expected ErrParse, got %v", err)
	}
	if got := len(env.listItems(t)); got != 4 {
		t.Fatalf("failed import must leave the queue unchanged, got %d", got)
	}
}

func TestQueueRunForegroundAndRetry(t *testing.T) {
	env := setupCLITestEnv(t)
	fake := testsupport.NewFakeEngine()
	fake.FailGenerate["/audio/a.mp3"] = errors.New("engine exploded")
	env.engine = fake

	env.mustRun(t, "queue-add-batch", "/audio/a.mp3", "/audio/b.mp3", "--no-upload")

	out := env.mustRun(t, "queue-run")
	requireContains(t, out, "[#0] failed")
	requireContains(t, out, "[#1] done")
	requireContains(t, out, "Queue finished: 1 completed, 1 failed")

	items := env.listItems(t)
	if items[0].Status != "failed" || !strings.Contains(items[0].Error, "engine exploded") {
		t.Fatalf("unexpected failed item %+v", items[0])
	}

	out = env.mustRun(t, "queue-clear-completed")
	requireContains(t, out, "Cleared 2 finished items")

	env.mustRun(t, "queue-add", "/audio/c.mp3", "--no-upload")
	fake.FailGenerate["/audio/c.mp3"] = errors.New("again")
	env.mustRun(t, "queue-run")
	out = env.mustRun(t, "queue-retry")
	requireContains(t, out, "Retrying 1 items")
	items = env.listItems(t)
	if items[0].Status != "pending" || items[0].Retries != 1 {
		t.Fatalf("expected pending retry, got %+v", items[0])
	}
}

func TestRunnerControlsRequireDaemon(t *testing.T) {
	env := setupCLITestEnv(t)
	for _, name := range []string{"queue-pause", "queue-resume", "queue-cancel", "queue-watch"} {
		_, _, err := env.run(t, name)
		if err == nil || !strings.Contains(err.Error(), "connect to daemon") {
			t.Fatalf("%s: expected daemon connection error, got %v", name, err)
		}
	}
}

func TestStatusOffline(t *testing.T) {
	env := setupCLITestEnv(t)
	env.mustRun(t, "queue-add", "/audio/a.mp3")

	out := env.mustRun(t, "status")
	requireContains(t, out, "Not running")
	requireContains(t, out, "offline")
	requireContains(t, out, "Pending")

	out = env.mustRun(t, "status", "--json")
	requireContains(t, out, `"state": "offline"`)
}
