package queue

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"ytqueue/internal/config"
)

const lockRetryDelay = 25 * time.Millisecond

// Store owns the ordered queue. Every mutation reloads the backend, applies
// the change and saves before returning, under both an in-process mutex and
// an inter-process file lock.
type Store struct {
	mu        sync.Mutex
	backend   Backend
	fileLock  *flock.Flock
	listeners []func()
}

// Open builds the store selected by cfg.Storage.Backend under cfg.Paths.DataDir.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	var backend Backend
	switch cfg.Storage.Backend {
	case config.StorageSQLite:
		sqliteBackend, err := OpenSQLiteBackend(filepath.Join(cfg.Paths.DataDir, "queue.db"))
		if err != nil {
			return nil, err
		}
		backend = sqliteBackend
	default:
		backend = NewFileBackend(filepath.Join(cfg.Paths.DataDir, "queue.json"))
	}
	return New(backend, filepath.Join(cfg.Paths.DataDir, "queue.lock")), nil
}

// New wraps backend. When lockPath is empty no inter-process lock is taken.
func New(backend Backend, lockPath string) *Store {
	s := &Store{backend: backend}
	if lockPath != "" {
		s.fileLock = flock.New(lockPath)
	}
	return s
}

// Close releases the backend.
func (s *Store) Close() error {
	if s == nil || s.backend == nil {
		return nil
	}
	return s.backend.Close()
}

// Path returns the location of the backing store.
func (s *Store) Path() string {
	return s.backend.Path()
}

// OnChange registers fn to run after every committed mutation.
func (s *Store) OnChange(fn func()) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

func (s *Store) notify() {
	s.mu.Lock()
	listeners := append([]func(){}, s.listeners...)
	s.mu.Unlock()
	for _, fn := range listeners {
		fn()
	}
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func (s *Store) lockShared(ctx context.Context) (func(), error) {
	if s.fileLock == nil {
		return func() {}, nil
	}
	if _, err := s.fileLock.TryRLockContext(ctx, lockRetryDelay); err != nil {
		return nil, storageErr("acquire queue lock", err)
	}
	return func() { _ = s.fileLock.Unlock() }, nil
}

func (s *Store) lockExclusive(ctx context.Context) (func(), error) {
	if s.fileLock == nil {
		return func() {}, nil
	}
	if _, err := s.fileLock.TryLockContext(ctx, lockRetryDelay); err != nil {
		return nil, storageErr("acquire queue lock", err)
	}
	return func() { _ = s.fileLock.Unlock() }, nil
}

// snapshot loads the current items under a shared lock.
func (s *Store) snapshot(ctx context.Context) ([]Item, error) {
	ctx = ensureContext(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()

	unlock, err := s.lockShared(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	items, err := s.backend.Load(ctx)
	if err != nil {
		return nil, err
	}
	ensureIDs(items)
	return items, nil
}

// mutateFunc edits items in place or returns a replacement slice. Returning
// changed=false skips the save and the change notification.
type mutateFunc func(items []Item) (next []Item, changed bool, err error)

func (s *Store) mutate(ctx context.Context, fn mutateFunc) error {
	ctx = ensureContext(ctx)
	changed, err := s.mutateLocked(ctx, fn)
	if err != nil {
		return err
	}
	if changed {
		s.notify()
	}
	return nil
}

func (s *Store) mutateLocked(ctx context.Context, fn mutateFunc) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	unlock, err := s.lockExclusive(ctx)
	if err != nil {
		return false, err
	}
	defer unlock()

	items, err := s.backend.Load(ctx)
	if err != nil {
		return false, err
	}
	assigned := ensureIDs(items)

	next, changed, err := fn(items)
	if err != nil {
		return false, err
	}
	if !changed {
		if !assigned {
			return false, nil
		}
		next = items
	}
	if err := s.backend.Save(ctx, next); err != nil {
		return false, err
	}
	return changed, nil
}
