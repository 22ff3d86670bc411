package queue

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"

	"ytqueue/internal/fileutil"
)

// Clear removes every item regardless of status and returns the count removed.
func (s *Store) Clear(ctx context.Context) (int, error) {
	var removed int
	err := s.mutate(ctx, func(items []Item) ([]Item, bool, error) {
		removed = len(items)
		return []Item{}, true, nil
	})
	return removed, err
}

// ClearCompleted removes completed items.
func (s *Store) ClearCompleted(ctx context.Context) (int, error) {
	return s.removeStatus(ctx, StatusCompleted)
}

// ClearFailed removes failed items.
func (s *Store) ClearFailed(ctx context.Context) (int, error) {
	return s.removeStatus(ctx, StatusFailed)
}

// ClearFinished removes completed items and then failed items as two
// persisted steps.
func (s *Store) ClearFinished(ctx context.Context) (int, error) {
	completed, err := s.ClearCompleted(ctx)
	if err != nil {
		return 0, err
	}
	failed, err := s.ClearFailed(ctx)
	if err != nil {
		return completed, err
	}
	return completed + failed, nil
}

// ClearScope selects the items ClearMatching removes.
type ClearScope string

const (
	ClearAll       ClearScope = "all"
	ClearCompleted ClearScope = "completed"
	ClearFailed    ClearScope = "failed"
	ClearFinished  ClearScope = "finished"
)

// ParseClearScope normalizes value. Empty means ClearAll.
func ParseClearScope(value string) (ClearScope, error) {
	switch scope := ClearScope(strings.ToLower(strings.TrimSpace(value))); scope {
	case "":
		return ClearAll, nil
	case ClearAll, ClearCompleted, ClearFailed, ClearFinished:
		return scope, nil
	default:
		return "", fmt.Errorf("%w: unknown clear scope %q", ErrInvalidOperation, value)
	}
}

// ClearMatching removes the items selected by scope.
func (s *Store) ClearMatching(ctx context.Context, scope ClearScope) (int, error) {
	switch scope {
	case ClearAll, "":
		return s.Clear(ctx)
	case ClearCompleted:
		return s.ClearCompleted(ctx)
	case ClearFailed:
		return s.ClearFailed(ctx)
	case ClearFinished:
		return s.ClearFinished(ctx)
	default:
		return 0, fmt.Errorf("%w: unknown clear scope %q", ErrInvalidOperation, scope)
	}
}

func (s *Store) removeStatus(ctx context.Context, status Status) (int, error) {
	var removed int
	err := s.mutate(ctx, func(items []Item) ([]Item, bool, error) {
		kept := items[:0]
		for _, item := range items {
			if item.Status == status {
				removed++
				continue
			}
			kept = append(kept, item)
		}
		return kept, true, nil
	})
	return removed, err
}

// Summary returns per-status counts.
func (s *Store) Summary(ctx context.Context) (Summary, error) {
	items, err := s.snapshot(ctx)
	if err != nil {
		return Summary{}, err
	}
	return summarize(items), nil
}

// Export writes the full ordered queue to path as JSON.
func (s *Store) Export(ctx context.Context, path string) (int, error) {
	items, err := s.snapshot(ctx)
	if err != nil {
		return 0, err
	}
	data, err := encodeItems(items)
	if err != nil {
		return 0, storageErr("export queue", err)
	}
	if err := fileutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return 0, storageErr("export queue", err)
	}
	return len(items), nil
}

// Import reads an exported queue from path. The file is parsed completely
// before the store changes; a parse error leaves the queue untouched. With
// appendItems the imported items follow the existing ones, otherwise they
// replace the queue. Imported items receive fresh ids and running items
// become pending.
func (s *Store) Import(ctx context.Context, path string, appendItems bool) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, storageErr("read import file", err)
	}
	imported, err := decodeItems(data)
	if err != nil {
		return 0, fmt.Errorf("import %s: %w", path, err)
	}
	for idx := range imported {
		imported[idx].ID = uuid.NewString()
		if imported[idx].Status == StatusRunning {
			imported[idx].SetPending()
		}
	}

	err = s.mutate(ctx, func(items []Item) ([]Item, bool, error) {
		if appendItems {
			return append(items, imported...), true, nil
		}
		return imported, true, nil
	})
	if err != nil {
		return 0, err
	}
	return len(imported), nil
}

// ResetRunning returns every running item to pending. It is called when a
// processor starts, since no job survives a restart.
func (s *Store) ResetRunning(ctx context.Context) (int, error) {
	var reset int
	err := s.mutate(ctx, func(items []Item) ([]Item, bool, error) {
		for idx := range items {
			if items[idx].Status == StatusRunning {
				items[idx].SetPending()
				reset++
			}
		}
		return items, reset > 0, nil
	})
	return reset, err
}
