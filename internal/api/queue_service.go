package api

import (
	"context"

	"ytqueue/internal/queue"
)

// QueueReader abstracts the queue reads needed for API queries.
type QueueReader interface {
	List(ctx context.Context) ([]queue.Item, error)
	Summary(ctx context.Context) (queue.Summary, error)
}

// QueueService exposes read-only queue operations returning API DTOs.
type QueueService struct {
	store QueueReader
}

// NewQueueService constructs a QueueService around the provided reader.
func NewQueueService(store QueueReader) *QueueService {
	if store == nil {
		return nil
	}
	return &QueueService{store: store}
}

// List returns queue items, optionally filtered by status.
func (s *QueueService) List(ctx context.Context, statuses ...queue.Status) ([]QueueItem, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	items, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	return FilterByStatus(FromQueueItems(items), statuses...), nil
}

// Summary returns per-status counts.
func (s *QueueService) Summary(ctx context.Context) (QueueSummary, error) {
	if s == nil || s.store == nil {
		return QueueSummary{}, nil
	}
	summary, err := s.store.Summary(ctx)
	if err != nil {
		return QueueSummary{}, err
	}
	return FromSummary(summary), nil
}
