package testsupport

import (
	"context"
	"strings"
	"testing"

	"ytqueue/internal/config"
	"ytqueue/internal/job"
	"ytqueue/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// GenerateJob returns a generate-only job for file with a sibling .mp4 dest.
func GenerateJob(file string) job.Job {
	return job.NewGenerate(job.GenerateParams{File: file}, destFor(file))
}

// UploadJob returns a generate-and-upload job for file.
func UploadJob(file, title string) job.Job {
	return job.NewGenerateUpload(job.GenerateParams{File: file, Title: title}, destFor(file), "")
}

func destFor(file string) string {
	if idx := strings.LastIndex(file, "."); idx > 0 {
		return file[:idx] + ".mp4"
	}
	return file + ".mp4"
}

// MustAdd enqueues jobs and returns the stored items.
func MustAdd(t testing.TB, store *queue.Store, jobs ...job.Job) []queue.Item {
	t.Helper()

	items, err := store.AddBatch(context.Background(), jobs)
	if err != nil {
		t.Fatalf("store.AddBatch: %v", err)
	}
	return items
}
