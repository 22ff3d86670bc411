package queue

import (
	"context"
	"fmt"

	"ytqueue/internal/fileutil"
)

// Backend persists the ordered item list. Save replaces the whole list in one
// atomic step; a failed Save leaves the previous content intact.
type Backend interface {
	Load(ctx context.Context) ([]Item, error)
	Save(ctx context.Context, items []Item) error
	Path() string
	Close() error
}

// FileBackend stores the queue as a JSON array in a single file.
type FileBackend struct {
	path string
}

// NewFileBackend returns a backend writing to path.
func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path}
}

// Path returns the queue file location.
func (b *FileBackend) Path() string { return b.path }

// Load reads the queue file. A missing file is an empty queue.
func (b *FileBackend) Load(_ context.Context) ([]Item, error) {
	data, ok, err := fileutil.ReadFileIfExists(b.path)
	if err != nil {
		return nil, storageErr("read queue file", err)
	}
	if !ok {
		return []Item{}, nil
	}
	items, err := decodeItems(data)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", b.path, err)
	}
	return items, nil
}

// Save writes the queue via temp file and rename.
func (b *FileBackend) Save(_ context.Context, items []Item) error {
	data, err := encodeItems(items)
	if err != nil {
		return storageErr("save queue", err)
	}
	if err := fileutil.WriteFileAtomic(b.path, data, 0o644); err != nil {
		return storageErr("save queue", err)
	}
	return nil
}

// Close is a no-op for the file backend.
func (b *FileBackend) Close() error { return nil }

