package queueaccess_test

import (
	"context"
	"errors"
	"testing"

	"ytqueue/internal/job"
	"ytqueue/internal/queue"
	"ytqueue/internal/queueaccess"
	"ytqueue/internal/testsupport"
)

func TestOpenFallsBackToStoreWithoutDaemon(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	session, err := queueaccess.Open(cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer session.Close()
	if session.Access.Remote() {
		t.Fatal("expected direct store access with no daemon socket")
	}
}

func TestStoreAccessOperations(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	access := queueaccess.NewStoreAccess(store, 1)
	ctx := context.Background()

	added, err := access.Add(ctx, []job.Job{
		testsupport.GenerateJob("/audio/a.wav"),
		testsupport.GenerateJob("/audio/b.wav"),
	})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if len(added) != 2 || added[0].Index != 0 || added[1].Index != 1 {
		t.Fatalf("unexpected indexes %+v", added)
	}

	if err := access.Move(ctx, 1, 0); err != nil {
		t.Fatalf("Move: %v", err)
	}
	items, err := access.List(ctx, nil)
	if err != nil || items[0].File != "/audio/b.wav" {
		t.Fatalf("expected b first, got %+v err=%v", items, err)
	}
	if _, err := access.List(ctx, []string{"nope"}); !errors.Is(err, queue.ErrInvalidOperation) {
		t.Fatalf("expected bad status rejected, got %v", err)
	}

	item, _, _, err := store.ClaimNext(ctx)
	if err != nil {
		t.Fatalf("ClaimNext: %v", err)
	}
	if _, err := store.Fail(ctx, item.ID, "boom"); err != nil {
		t.Fatalf("Fail: %v", err)
	}
	if n, err := access.Retry(ctx, nil); err != nil || n != 1 {
		t.Fatalf("first retry: n=%d err=%v", n, err)
	}
	item, _, _, _ = store.ClaimNext(ctx)
	_, _ = store.Fail(ctx, item.ID, "boom again")
	if n, err := access.Retry(ctx, nil); err != nil || n != 0 {
		t.Fatalf("expected ceiling to block second retry: n=%d err=%v", n, err)
	}

	summary, err := access.Summary(ctx)
	if err != nil || summary.Failed != 1 || summary.Pending != 1 {
		t.Fatalf("unexpected summary %+v err=%v", summary, err)
	}
	if _, err := access.Clear(ctx, "sometimes"); !errors.Is(err, queue.ErrInvalidOperation) {
		t.Fatalf("expected bad scope rejected, got %v", err)
	}
	if n, err := access.Clear(ctx, "failed"); err != nil || n != 1 {
		t.Fatalf("Clear failed: n=%d err=%v", n, err)
	}
	if _, err := access.Remove(ctx, 3); !errors.Is(err, queue.ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange, got %v", err)
	}
}
