package queue_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"ytqueue/internal/config"
	"ytqueue/internal/job"
	"ytqueue/internal/queue"
	"ytqueue/internal/testsupport"
)

func forEachBackend(t *testing.T, fn func(t *testing.T, cfg *config.Config, store *queue.Store)) {
	t.Helper()
	for _, backend := range []string{config.StorageFile, config.StorageSQLite} {
		t.Run(backend, func(t *testing.T) {
			cfg := testsupport.NewConfig(t, testsupport.WithStorageBackend(backend))
			store := testsupport.MustOpenStore(t, cfg)
			fn(t, cfg, store)
		})
	}
}

func genJob(file string) job.Job {
	return job.NewGenerate(job.GenerateParams{File: file}, strings.TrimSuffix(file, ".mp3")+".mp4")
}

func mustAdd(t *testing.T, store *queue.Store, files ...string) []queue.Item {
	t.Helper()
	items := make([]queue.Item, 0, len(files))
	for _, file := range files {
		item, err := store.Add(context.Background(), genJob(file))
		if err != nil {
			t.Fatalf("Add failed: %v", err)
		}
		items = append(items, item)
	}
	return items
}

func files(t *testing.T, store *queue.Store) []string {
	t.Helper()
	items, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.Job.Params.File
	}
	return out
}

func assertFiles(t *testing.T, store *queue.Store, want ...string) {
	t.Helper()
	got := files(t, store)
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("expected order %v, got %v", want, got)
	}
}

// runItem claims the next item and finishes it with the given outcome.
func runItem(t *testing.T, store *queue.Store, failMsg string) queue.Item {
	t.Helper()
	ctx := context.Background()
	item, _, ok, err := store.ClaimNext(ctx)
	if err != nil || !ok {
		t.Fatalf("ClaimNext failed: ok=%v err=%v", ok, err)
	}
	if failMsg == "" {
		if _, err := store.Complete(ctx, item.ID); err != nil {
			t.Fatalf("Complete failed: %v", err)
		}
	} else if _, err := store.Fail(ctx, item.ID, failMsg); err != nil {
		t.Fatalf("Fail failed: %v", err)
	}
	return item
}

func TestAddAppendsPendingItems(t *testing.T) {
	forEachBackend(t, func(t *testing.T, _ *config.Config, store *queue.Store) {
		added := mustAdd(t, store, "a.mp3", "b.mp3", "a.mp3")
		items, err := store.List(context.Background())
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(items) != 3 {
			t.Fatalf("expected 3 items, got %d", len(items))
		}
		for i, item := range items {
			if item.Status != queue.StatusPending || item.Retries != 0 || item.Error != "" {
				t.Fatalf("unexpected item %d: %+v", i, item)
			}
			if item.ID != added[i].ID {
				t.Fatalf("expected id %s at %d, got %s", added[i].ID, i, item.ID)
			}
		}
		if items[0].ID == items[2].ID {
			t.Fatal("duplicate jobs must get distinct ids")
		}
	})
}

func TestAddRejectsInvalidJob(t *testing.T) {
	forEachBackend(t, func(t *testing.T, _ *config.Config, store *queue.Store) {
		_, err := store.Add(context.Background(), job.NewGenerate(job.GenerateParams{}, "out.mp4"))
		if !errors.Is(err, job.ErrInvalid) {
			t.Fatalf("expected job.ErrInvalid, got %v", err)
		}
		assertFiles(t, store)
	})
}

func TestQueuePersistsAcrossReopen(t *testing.T) {
	forEachBackend(t, func(t *testing.T, cfg *config.Config, store *queue.Store) {
		mustAdd(t, store, "a.mp3", "b.mp3")
		runItem(t, store, "boom")
		if err := store.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}

		reopened := testsupport.MustOpenStore(t, cfg)
		items, err := reopened.List(context.Background())
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(items) != 2 || items[0].Status != queue.StatusFailed || items[0].Error != "boom" {
			t.Fatalf("unexpected items after reopen: %+v", items)
		}
	})
}

func TestRemove(t *testing.T) {
	forEachBackend(t, func(t *testing.T, _ *config.Config, store *queue.Store) {
		ctx := context.Background()
		mustAdd(t, store, "a.mp3", "b.mp3", "c.mp3")

		if _, err := store.Remove(ctx, 3); !errors.Is(err, queue.ErrOutOfRange) {
			t.Fatalf("expected ErrOutOfRange, got %v", err)
		}
		if _, err := store.Remove(ctx, -1); !errors.Is(err, queue.ErrOutOfRange) {
			t.Fatalf("expected ErrOutOfRange, got %v", err)
		}
		removed, err := store.Remove(ctx, 1)
		if err != nil {
			t.Fatalf("Remove failed: %v", err)
		}
		if removed.Job.Params.File != "b.mp3" {
			t.Fatalf("expected b.mp3 removed, got %s", removed.Job.Params.File)
		}
		assertFiles(t, store, "a.mp3", "c.mp3")
	})
}

func TestRemoveAndMoveRejectRunningItem(t *testing.T) {
	forEachBackend(t, func(t *testing.T, _ *config.Config, store *queue.Store) {
		ctx := context.Background()
		mustAdd(t, store, "a.mp3", "b.mp3")
		if _, _, _, err := store.ClaimNext(ctx); err != nil {
			t.Fatalf("ClaimNext failed: %v", err)
		}

		_, err := store.Remove(ctx, 0)
		if !errors.Is(err, queue.ErrInvalidOperation) {
			t.Fatalf("expected ErrInvalidOperation, got %v", err)
		}
		if !strings.Contains(err.Error(), "cannot modify running job") {
			t.Fatalf("unexpected message %q", err.Error())
		}
		if err := store.Move(ctx, 0, 1); !errors.Is(err, queue.ErrInvalidOperation) {
			t.Fatalf("expected ErrInvalidOperation for move, got %v", err)
		}
		if err := store.Move(ctx, 1, 0); err != nil {
			t.Fatalf("moving a pending item around the running one should work: %v", err)
		}
		assertFiles(t, store, "b.mp3", "a.mp3")
	})
}

func TestMove(t *testing.T) {
	forEachBackend(t, func(t *testing.T, _ *config.Config, store *queue.Store) {
		ctx := context.Background()
		mustAdd(t, store, "a.mp3", "b.mp3", "c.mp3")
		runItem(t, store, "bad input")

		if err := store.Move(ctx, 0, 2); err != nil {
			t.Fatalf("Move failed: %v", err)
		}
		assertFiles(t, store, "b.mp3", "c.mp3", "a.mp3")

		items, err := store.List(ctx)
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if items[2].Status != queue.StatusFailed || items[2].Error != "bad input" {
			t.Fatalf("move must preserve item fields, got %+v", items[2])
		}

		if err := store.Move(ctx, 2, 0); err != nil {
			t.Fatalf("Move failed: %v", err)
		}
		assertFiles(t, store, "a.mp3", "b.mp3", "c.mp3")

		if err := store.Move(ctx, 0, 3); !errors.Is(err, queue.ErrOutOfRange) {
			t.Fatalf("expected ErrOutOfRange, got %v", err)
		}
		if err := store.Move(ctx, 5, 0); !errors.Is(err, queue.ErrOutOfRange) {
			t.Fatalf("expected ErrOutOfRange, got %v", err)
		}
		assertFiles(t, store, "a.mp3", "b.mp3", "c.mp3")
	})
}

func TestClearVariants(t *testing.T) {
	forEachBackend(t, func(t *testing.T, _ *config.Config, store *queue.Store) {
		ctx := context.Background()
		mustAdd(t, store, "a.mp3", "b.mp3", "c.mp3", "d.mp3")
		runItem(t, store, "")     // a completed
		runItem(t, store, "fail") // b failed

		removed, err := store.ClearFailed(ctx)
		if err != nil || removed != 1 {
			t.Fatalf("ClearFailed: removed=%d err=%v", removed, err)
		}
		assertFiles(t, store, "a.mp3", "c.mp3", "d.mp3")

		removed, err = store.ClearCompleted(ctx)
		if err != nil || removed != 1 {
			t.Fatalf("ClearCompleted: removed=%d err=%v", removed, err)
		}
		assertFiles(t, store, "c.mp3", "d.mp3")

		runItem(t, store, "")
		runItem(t, store, "x")
		mustAdd(t, store, "e.mp3")
		removed, err = store.ClearFinished(ctx)
		if err != nil || removed != 2 {
			t.Fatalf("ClearFinished: removed=%d err=%v", removed, err)
		}
		assertFiles(t, store, "e.mp3")

		removed, err = store.Clear(ctx)
		if err != nil || removed != 1 {
			t.Fatalf("Clear: removed=%d err=%v", removed, err)
		}
		assertFiles(t, store)
	})
}

func TestSummaryIncludesEveryStatus(t *testing.T) {
	forEachBackend(t, func(t *testing.T, _ *config.Config, store *queue.Store) {
		ctx := context.Background()
		summary, err := store.Summary(ctx)
		if err != nil {
			t.Fatalf("Summary failed: %v", err)
		}
		data, err := json.Marshal(summary)
		if err != nil {
			t.Fatalf("marshal summary: %v", err)
		}
		if string(data) != `{"pending":0,"running":0,"failed":0,"completed":0}` {
			t.Fatalf("unexpected empty summary %s", data)
		}

		mustAdd(t, store, "a.mp3", "b.mp3", "c.mp3")
		runItem(t, store, "x")
		if _, _, _, err := store.ClaimNext(ctx); err != nil {
			t.Fatalf("ClaimNext failed: %v", err)
		}
		summary, err = store.Summary(ctx)
		if err != nil {
			t.Fatalf("Summary failed: %v", err)
		}
		want := queue.Summary{Pending: 1, Running: 1, Failed: 1}
		if summary != want {
			t.Fatalf("expected %+v, got %+v", want, summary)
		}
		if summary.Total() != 3 {
			t.Fatalf("expected total 3, got %d", summary.Total())
		}
	})
}

func TestFailThenSucceedScenario(t *testing.T) {
	forEachBackend(t, func(t *testing.T, _ *config.Config, store *queue.Store) {
		ctx := context.Background()
		mustAdd(t, store, "a.mp3", "b.mp3")
		runItem(t, store, "engine exploded")
		runItem(t, store, "")

		items, err := store.List(ctx)
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if items[0].Status != queue.StatusFailed || items[0].Retries != 0 || items[0].Error != "engine exploded" {
			t.Fatalf("unexpected first item %+v", items[0])
		}
		if items[1].Status != queue.StatusCompleted || items[1].Retries != 0 || items[1].Error != "" {
			t.Fatalf("unexpected second item %+v", items[1])
		}
		summary, err := store.Summary(ctx)
		if err != nil {
			t.Fatalf("Summary failed: %v", err)
		}
		if summary != (queue.Summary{Failed: 1, Completed: 1}) {
			t.Fatalf("unexpected summary %+v", summary)
		}
	})
}

func TestRetryFailedCountsRetries(t *testing.T) {
	forEachBackend(t, func(t *testing.T, _ *config.Config, store *queue.Store) {
		ctx := context.Background()
		mustAdd(t, store, "a.mp3")
		runItem(t, store, "first")

		retried, err := store.RetryFailed(ctx, queue.RetryOptions{})
		if err != nil || retried != 1 {
			t.Fatalf("RetryFailed: retried=%d err=%v", retried, err)
		}
		item, _, _, err := store.ClaimNext(ctx)
		if err != nil {
			t.Fatalf("ClaimNext failed: %v", err)
		}
		if item.Retries != 1 || item.Error != "" {
			t.Fatalf("expected retries=1 and cleared error, got %+v", item)
		}
		if _, err := store.Fail(ctx, item.ID, "second"); err != nil {
			t.Fatalf("Fail failed: %v", err)
		}
		if _, err := store.RetryFailed(ctx, queue.RetryOptions{}); err != nil {
			t.Fatalf("RetryFailed failed: %v", err)
		}
		got, err := store.Get(ctx, item.ID)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if got.Retries != 2 || got.Status != queue.StatusPending {
			t.Fatalf("expected pending with retries=2, got %+v", got)
		}
	})
}

func TestRetryFailedHonoursIndexesAndCeiling(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	mustAdd(t, store, "a.mp3", "b.mp3", "c.mp3")
	runItem(t, store, "x")
	runItem(t, store, "")
	runItem(t, store, "y")

	if _, err := store.RetryFailed(ctx, queue.RetryOptions{Indexes: []int{1}}); !errors.Is(err, queue.ErrInvalidOperation) {
		t.Fatalf("expected ErrInvalidOperation for completed item, got %v", err)
	}
	if _, err := store.RetryFailed(ctx, queue.RetryOptions{Indexes: []int{9}}); !errors.Is(err, queue.ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange, got %v", err)
	}
	retried, err := store.RetryFailed(ctx, queue.RetryOptions{Indexes: []int{2}})
	if err != nil || retried != 1 {
		t.Fatalf("RetryFailed: retried=%d err=%v", retried, err)
	}

	retried, err = store.RetryFailed(ctx, queue.RetryOptions{MaxRetries: 1})
	if err != nil || retried != 1 {
		t.Fatalf("expected only a.mp3 to be retried, retried=%d err=%v", retried, err)
	}
	items, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if items[0].Retries != 1 || items[2].Retries != 1 {
		t.Fatalf("unexpected retries %d/%d", items[0].Retries, items[2].Retries)
	}

	runItem(t, store, "again")
	retried, err = store.RetryFailed(ctx, queue.RetryOptions{MaxRetries: 1})
	if err != nil || retried != 0 {
		t.Fatalf("ceiling should block retry, retried=%d err=%v", retried, err)
	}
}

func TestClaimNextPicksEarliestPendingAtDispatch(t *testing.T) {
	forEachBackend(t, func(t *testing.T, _ *config.Config, store *queue.Store) {
		ctx := context.Background()
		mustAdd(t, store, "a.mp3", "b.mp3", "c.mp3")
		if err := store.Move(ctx, 2, 0); err != nil {
			t.Fatalf("Move failed: %v", err)
		}
		item, index, ok, err := store.ClaimNext(ctx)
		if err != nil || !ok {
			t.Fatalf("ClaimNext failed: ok=%v err=%v", ok, err)
		}
		if item.Job.Params.File != "c.mp3" || index != 0 {
			t.Fatalf("expected c.mp3 at 0, got %s at %d", item.Job.Params.File, index)
		}
		if _, _, _, err := store.ClaimNext(ctx); !errors.Is(err, queue.ErrInvalidOperation) {
			t.Fatalf("expected second claim to be rejected, got %v", err)
		}
	})
}

func TestClaimNextWithNothingPending(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	mustAdd(t, store, "a.mp3")
	runItem(t, store, "")

	_, _, ok, err := store.ClaimNext(context.Background())
	if err != nil {
		t.Fatalf("ClaimNext failed: %v", err)
	}
	if ok {
		t.Fatal("expected no pending item")
	}
}

func TestWriteBackAfterClearIsIgnored(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	mustAdd(t, store, "a.mp3")
	item, _, _, err := store.ClaimNext(ctx)
	if err != nil {
		t.Fatalf("ClaimNext failed: %v", err)
	}
	if _, err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	found, err := store.Complete(ctx, item.ID)
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if found {
		t.Fatal("expected write-back for cleared item to report found=false")
	}
	assertFiles(t, store)
}

func TestResetRunning(t *testing.T) {
	forEachBackend(t, func(t *testing.T, cfg *config.Config, store *queue.Store) {
		ctx := context.Background()
		mustAdd(t, store, "a.mp3", "b.mp3")
		if _, _, _, err := store.ClaimNext(ctx); err != nil {
			t.Fatalf("ClaimNext failed: %v", err)
		}
		_ = store.Close()

		reopened := testsupport.MustOpenStore(t, cfg)
		reset, err := reopened.ResetRunning(ctx)
		if err != nil || reset != 1 {
			t.Fatalf("ResetRunning: reset=%d err=%v", reset, err)
		}
		summary, err := reopened.Summary(ctx)
		if err != nil {
			t.Fatalf("Summary failed: %v", err)
		}
		if summary != (queue.Summary{Pending: 2}) {
			t.Fatalf("unexpected summary %+v", summary)
		}
	})
}

func TestExportImportRoundTrip(t *testing.T) {
	forEachBackend(t, func(t *testing.T, cfg *config.Config, store *queue.Store) {
		ctx := context.Background()
		mustAdd(t, store, "a.mp3", "b.mp3")
		runItem(t, store, "nope")
		thumb := job.NewGenerateUpload(job.GenerateParams{File: "c.mp3", Title: "C", Width: job.Int(1920)}, "c.mp4", "c.png")
		if _, err := store.Add(ctx, thumb); err != nil {
			t.Fatalf("Add failed: %v", err)
		}

		exportPath := filepath.Join(t.TempDir(), "export.json")
		count, err := store.Export(ctx, exportPath)
		if err != nil || count != 3 {
			t.Fatalf("Export: count=%d err=%v", count, err)
		}
		before, err := store.List(ctx)
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}

		if _, err := store.Clear(ctx); err != nil {
			t.Fatalf("Clear failed: %v", err)
		}
		if _, err := store.Import(ctx, exportPath, false); err != nil {
			t.Fatalf("Import failed: %v", err)
		}
		after, err := store.List(ctx)
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(after) != len(before) {
			t.Fatalf("expected %d items, got %d", len(before), len(after))
		}
		for i := range before {
			b, _ := json.Marshal(before[i].Job)
			a, _ := json.Marshal(after[i].Job)
			if string(a) != string(b) || before[i].Status != after[i].Status ||
				before[i].Retries != after[i].Retries || before[i].Error != after[i].Error {
				t.Fatalf("item %d differs after round trip: %+v vs %+v", i, before[i], after[i])
			}
			if before[i].ID == after[i].ID {
				t.Fatalf("expected imported item %d to receive a fresh id", i)
			}
		}

		if _, err := store.Import(ctx, exportPath, true); err != nil {
			t.Fatalf("Import append failed: %v", err)
		}
		if got := len(files(t, store)); got != 6 {
			t.Fatalf("expected 6 items after append, got %d", got)
		}
	})
}

func TestExportShapeOmitsAbsentFields(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	mustAdd(t, store, "a.mp3")

	exportPath := filepath.Join(t.TempDir(), "export.json")
	if _, err := store.Export(ctx, exportPath); err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	data, err := os.ReadFile(exportPath)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	var raw []map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("decode export: %v", err)
	}
	if len(raw) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(raw))
	}
	if _, ok := raw[0]["error"]; ok {
		t.Fatal("pending item must not carry an error key")
	}
	if raw[0]["status"] != "pending" || raw[0]["retries"] != float64(0) {
		t.Fatalf("unexpected entry %v", raw[0])
	}
	if strings.Contains(string(data), "null") {
		t.Fatalf("export must not contain null values: %s", data)
	}
}

func TestImportParseErrorLeavesStoreUntouched(t *testing.T) {
	forEachBackend(t, func(t *testing.T, _ *config.Config, store *queue.Store) {
		ctx := context.Background()
		mustAdd(t, store, "a.mp3")
		dir := t.TempDir()

		cases := map[string]string{
			"not json":       `{`,
			"unknown status": `[{"job":{"Generate":{"params":{"file":"x"},"dest":"y"}},"status":"paused","retries":0}]`,
			"bad variant":    `[{"job":{"Render":{"params":{"file":"x"},"dest":"y"}},"status":"pending","retries":0}]`,
			"negative":       `[{"job":{"Generate":{"params":{"file":"x"},"dest":"y"}},"status":"pending","retries":-1}]`,
			"partial":        `[{"job":{"Generate":{"params":{"file":"x"},"dest":"y"}},"status":"pending","retries":0},{"status":"pending"}]`,
			"empty file":     `[{"job":{"Generate":{"params":{"file":""},"dest":""}},"status":"pending","retries":0}]`,
			"empty dest":     `[{"job":{"GenerateUpload":{"params":{"file":"x.mp3"},"dest":" "}},"status":"pending","retries":0}]`,
		}
		for name, content := range cases {
			path := filepath.Join(dir, strings.ReplaceAll(name, " ", "_")+".json")
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				t.Fatalf("write fixture: %v", err)
			}
			if _, err := store.Import(ctx, path, false); !errors.Is(err, queue.ErrParse) {
				t.Fatalf("%s: expected ErrParse, got %v", name, err)
			}
		}
		assertFiles(t, store, "a.mp3")
	})
}

func TestImportResetsRunningAndMissingFile(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "in.json")
	content := `[{"job":{"GenerateUpload":{"params":{"file":"x.mp3"},"dest":"x.mp4"}},"status":"running","retries":2},
{"job":{"Generate":{"params":{"file":"y.mp3"},"dest":"y.mp4"}},"status":"failed","retries":1,"error":"bad"}]`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	count, err := store.Import(ctx, path, false)
	if err != nil || count != 2 {
		t.Fatalf("Import: count=%d err=%v", count, err)
	}
	items, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if items[0].Status != queue.StatusPending || items[0].Retries != 2 {
		t.Fatalf("expected running import to become pending, got %+v", items[0])
	}
	if items[1].Status != queue.StatusFailed || items[1].Error != "bad" {
		t.Fatalf("unexpected failed item %+v", items[1])
	}

	if _, err := store.Import(ctx, filepath.Join(t.TempDir(), "missing.json"), false); !errors.Is(err, queue.ErrStorage) {
		t.Fatalf("expected ErrStorage for missing file, got %v", err)
	}
}

func TestCorruptQueueFileIsParseError(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(cfg.Paths.DataDir, "queue.json"), []byte("[{"), 0o644); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}
	store := testsupport.MustOpenStore(t, cfg)
	if _, err := store.List(context.Background()); !errors.Is(err, queue.ErrParse) {
		t.Fatalf("expected ErrParse, got %v", err)
	}
}

func TestLegacyFileWithoutIDsGetsIDs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	legacy := `[{"job":{"Generate":{"params":{"file":"a.mp3"},"dest":"a.mp4"}},"status":"pending","retries":0}]`
	if err := os.WriteFile(filepath.Join(cfg.Paths.DataDir, "queue.json"), []byte(legacy), 0o644); err != nil {
		t.Fatalf("write legacy file: %v", err)
	}
	store := testsupport.MustOpenStore(t, cfg)
	items, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(items) != 1 || items[0].ID == "" {
		t.Fatalf("expected id to be assigned, got %+v", items)
	}
}

func TestOnChangeFiresPerCommittedMutation(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	var calls atomic.Int32
	store.OnChange(func() { calls.Add(1) })

	mustAdd(t, store, "a.mp3", "b.mp3")
	if err := store.Move(ctx, 0, 1); err != nil {
		t.Fatalf("Move failed: %v", err)
	}
	if _, err := store.Remove(ctx, 7); err == nil {
		t.Fatal("expected out of range error")
	}
	if _, err := store.List(ctx); err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if got := calls.Load(); got != 3 {
		t.Fatalf("expected 3 change notifications, got %d", got)
	}
}

func TestConcurrentStoresShareFileLock(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	first := testsupport.MustOpenStore(t, cfg)
	second := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	done := make(chan error, 2)
	for _, store := range []*queue.Store{first, second} {
		go func(s *queue.Store) {
			for i := 0; i < 10; i++ {
				if _, err := s.Add(ctx, genJob("x.mp3")); err != nil {
					done <- err
					return
				}
			}
			done <- nil
		}(store)
	}
	for i := 0; i < 2; i++ {
		if err := <-done; err != nil {
			t.Fatalf("concurrent Add failed: %v", err)
		}
	}
	if got := len(files(t, first)); got != 20 {
		t.Fatalf("expected 20 items, got %d", got)
	}
}
