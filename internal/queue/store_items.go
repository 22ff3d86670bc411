package queue

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"ytqueue/internal/job"
)

func newItem(j job.Job) Item {
	return Item{ID: uuid.NewString(), Job: j, Status: StatusPending}
}

// Add appends a pending item for j. Duplicate jobs are allowed.
func (s *Store) Add(ctx context.Context, j job.Job) (Item, error) {
	items, err := s.AddBatch(ctx, []job.Job{j})
	if err != nil {
		return Item{}, err
	}
	return items[0], nil
}

// AddBatch appends one pending item per job in a single persisted step.
func (s *Store) AddBatch(ctx context.Context, jobs []job.Job) ([]Item, error) {
	if len(jobs) == 0 {
		return nil, nil
	}
	added := make([]Item, 0, len(jobs))
	for idx, j := range jobs {
		if err := j.Validate(); err != nil {
			return nil, fmt.Errorf("add job %d: %w", idx, err)
		}
		added = append(added, newItem(j))
	}
	err := s.mutate(ctx, func(items []Item) ([]Item, bool, error) {
		return append(items, added...), true, nil
	})
	if err != nil {
		return nil, err
	}
	return added, nil
}

// List returns the items in persisted order.
func (s *Store) List(ctx context.Context) ([]Item, error) {
	return s.snapshot(ctx)
}

// Get returns the item with the given id.
func (s *Store) Get(ctx context.Context, id string) (Item, error) {
	items, err := s.snapshot(ctx)
	if err != nil {
		return Item{}, err
	}
	idx := indexOf(items, id)
	if idx < 0 {
		return Item{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return items[idx], nil
}

// IndexOf returns the current position of id, or -1 when it is not queued.
func (s *Store) IndexOf(ctx context.Context, id string) (int, error) {
	items, err := s.snapshot(ctx)
	if err != nil {
		return -1, err
	}
	return indexOf(items, id), nil
}

// Remove deletes the item at index. The running item cannot be removed.
func (s *Store) Remove(ctx context.Context, index int) (Item, error) {
	var removed Item
	err := s.mutate(ctx, func(items []Item) ([]Item, bool, error) {
		if index < 0 || index >= len(items) {
			return nil, false, outOfRange(index, len(items))
		}
		if items[index].Status == StatusRunning {
			return nil, false, ErrRunningItem
		}
		removed = items[index]
		return append(items[:index], items[index+1:]...), true, nil
	})
	if err != nil {
		return Item{}, err
	}
	return removed, nil
}

// Move removes the item at from and reinserts it at to, keeping its fields.
// Both indexes refer to the queue before the move.
func (s *Store) Move(ctx context.Context, from, to int) error {
	return s.mutate(ctx, func(items []Item) ([]Item, bool, error) {
		if from < 0 || from >= len(items) {
			return nil, false, outOfRange(from, len(items))
		}
		if to < 0 || to >= len(items) {
			return nil, false, outOfRange(to, len(items))
		}
		if items[from].Status == StatusRunning {
			return nil, false, ErrRunningItem
		}
		if from == to {
			return items, false, nil
		}
		moved := items[from]
		rest := append(items[:from:from], items[from+1:]...)
		next := make([]Item, 0, len(items))
		next = append(next, rest[:to]...)
		next = append(next, moved)
		next = append(next, rest[to:]...)
		return next, true, nil
	})
}

func indexOf(items []Item, id string) int {
	for idx, item := range items {
		if item.ID == id {
			return idx
		}
	}
	return -1
}
