package queue

import (
	"context"
	"fmt"
)

// ClaimNext marks the earliest pending item running and returns it with its
// position. ok is false when nothing is pending. A running item blocks
// further claims.
func (s *Store) ClaimNext(ctx context.Context) (item Item, index int, ok bool, err error) {
	err = s.mutate(ctx, func(items []Item) ([]Item, bool, error) {
		for idx := range items {
			if items[idx].Status == StatusRunning {
				return items, false, fmt.Errorf("%w: item %s is already running", ErrInvalidOperation, items[idx].ID)
			}
		}
		for idx := range items {
			if items[idx].Status != StatusPending {
				continue
			}
			items[idx].Status = StatusRunning
			items[idx].Error = ""
			item, index, ok = items[idx], idx, true
			return items, true, nil
		}
		return items, false, nil
	})
	if err != nil {
		return Item{}, -1, false, err
	}
	return item, index, ok, nil
}

// Complete marks the running item id completed. found is false when the item
// was removed while it ran.
func (s *Store) Complete(ctx context.Context, id string) (found bool, err error) {
	return s.finish(ctx, id, func(item *Item) {
		item.Status = StatusCompleted
		item.Error = ""
	})
}

// Fail marks the running item id failed with message.
func (s *Store) Fail(ctx context.Context, id, message string) (found bool, err error) {
	return s.finish(ctx, id, func(item *Item) {
		item.SetFailed(message)
	})
}

// Requeue returns the running item id to pending without counting a retry.
func (s *Store) Requeue(ctx context.Context, id string) (found bool, err error) {
	return s.finish(ctx, id, func(item *Item) {
		item.SetPending()
	})
}

func (s *Store) finish(ctx context.Context, id string, apply func(*Item)) (bool, error) {
	found := false
	err := s.mutate(ctx, func(items []Item) ([]Item, bool, error) {
		idx := indexOf(items, id)
		if idx < 0 || items[idx].Status != StatusRunning {
			return items, false, nil
		}
		apply(&items[idx])
		found = true
		return items, true, nil
	})
	return found, err
}

// RetryOptions filters which failed items RetryFailed returns to pending.
type RetryOptions struct {
	// Indexes limits the retry to these positions. Empty means every failed item.
	Indexes []int
	// MaxRetries skips items whose retry count already reached the ceiling.
	// Zero means no ceiling.
	MaxRetries int
}

// RetryFailed moves failed items back to pending, clearing their error and
// incrementing their retry count. It returns how many items were requeued.
// A listed index that is out of range or not failed is rejected and nothing
// changes.
func (s *Store) RetryFailed(ctx context.Context, opts RetryOptions) (int, error) {
	var retried int
	err := s.mutate(ctx, func(items []Item) ([]Item, bool, error) {
		targets := make([]int, 0, len(items))
		if len(opts.Indexes) == 0 {
			for idx := range items {
				if items[idx].Status == StatusFailed {
					targets = append(targets, idx)
				}
			}
		} else {
			for _, idx := range opts.Indexes {
				if idx < 0 || idx >= len(items) {
					return nil, false, outOfRange(idx, len(items))
				}
				if items[idx].Status != StatusFailed {
					return nil, false, fmt.Errorf("%w: item %d is %s, not failed", ErrInvalidOperation, idx, items[idx].Status)
				}
				targets = append(targets, idx)
			}
		}
		for _, idx := range targets {
			if items[idx].Status != StatusFailed {
				continue
			}
			if opts.MaxRetries > 0 && items[idx].Retries >= opts.MaxRetries {
				continue
			}
			items[idx].SetPending()
			items[idx].Retries++
			retried++
		}
		return items, retried > 0, nil
	})
	return retried, err
}

// HasPending reports whether any item is waiting to run.
func (s *Store) HasPending(ctx context.Context) (bool, error) {
	summary, err := s.Summary(ctx)
	if err != nil {
		return false, err
	}
	return summary.Pending > 0, nil
}
