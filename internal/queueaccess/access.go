package queueaccess

import (
	"context"
	"fmt"

	"ytqueue/internal/api"
	"ytqueue/internal/ipc"
	"ytqueue/internal/job"
	"ytqueue/internal/queue"
)

// Access provides queue operations regardless of IPC or direct store backing.
type Access interface {
	Summary(ctx context.Context) (api.QueueSummary, error)
	List(ctx context.Context, statuses []string) ([]api.QueueItem, error)
	Add(ctx context.Context, jobs []job.Job) ([]api.QueueItem, error)
	Remove(ctx context.Context, index int) (api.QueueItem, error)
	Move(ctx context.Context, from, to int) error
	Clear(ctx context.Context, scope string) (int, error)
	Retry(ctx context.Context, indexes []int) (int, error)
	Export(ctx context.Context, path string) (int, error)
	Import(ctx context.Context, path string, appendItems bool) (int, error)
	// Remote reports whether calls go through a running daemon.
	Remote() bool
}

// NewIPCAccess returns an Access backed by daemon IPC.
func NewIPCAccess(client *ipc.Client) Access {
	return &ipcAccess{client: client}
}

// NewStoreAccess returns an Access backed by direct store access. maxRetries
// is the retry ceiling applied by Retry; zero means none.
func NewStoreAccess(store *queue.Store, maxRetries int) Access {
	return &storeAccess{store: store, service: api.NewQueueService(store), maxRetries: maxRetries}
}

type ipcAccess struct {
	client *ipc.Client
}

func (a *ipcAccess) Remote() bool { return true }

func (a *ipcAccess) Summary(_ context.Context) (api.QueueSummary, error) {
	resp, err := a.client.QueueSummary()
	if err != nil {
		return api.QueueSummary{}, err
	}
	return resp.Summary, nil
}

func (a *ipcAccess) List(_ context.Context, statuses []string) ([]api.QueueItem, error) {
	resp, err := a.client.QueueList(statuses)
	if err != nil {
		return nil, err
	}
	return resp.Items, nil
}

func (a *ipcAccess) Add(_ context.Context, jobs []job.Job) ([]api.QueueItem, error) {
	resp, err := a.client.QueueAdd(jobs)
	if err != nil {
		return nil, err
	}
	return resp.Items, nil
}

func (a *ipcAccess) Remove(_ context.Context, index int) (api.QueueItem, error) {
	resp, err := a.client.QueueRemove(index)
	if err != nil {
		return api.QueueItem{}, err
	}
	return resp.Item, nil
}

func (a *ipcAccess) Move(_ context.Context, from, to int) error {
	return a.client.QueueMove(from, to)
}

func (a *ipcAccess) Clear(_ context.Context, scope string) (int, error) {
	resp, err := a.client.QueueClear(scope)
	if err != nil {
		return 0, err
	}
	return resp.Removed, nil
}

func (a *ipcAccess) Retry(_ context.Context, indexes []int) (int, error) {
	resp, err := a.client.QueueRetry(indexes)
	if err != nil {
		return 0, err
	}
	return resp.Updated, nil
}

func (a *ipcAccess) Export(_ context.Context, path string) (int, error) {
	resp, err := a.client.QueueExport(path)
	if err != nil {
		return 0, err
	}
	return resp.Count, nil
}

func (a *ipcAccess) Import(_ context.Context, path string, appendItems bool) (int, error) {
	resp, err := a.client.QueueImport(path, appendItems)
	if err != nil {
		return 0, err
	}
	return resp.Count, nil
}

type storeAccess struct {
	store      *queue.Store
	service    *api.QueueService
	maxRetries int
}

func (a *storeAccess) Remote() bool { return false }

func (a *storeAccess) Summary(ctx context.Context) (api.QueueSummary, error) {
	return a.service.Summary(ctx)
}

func (a *storeAccess) List(ctx context.Context, statuses []string) ([]api.QueueItem, error) {
	filters := make([]queue.Status, 0, len(statuses))
	for _, value := range statuses {
		parsed, ok := queue.ParseStatus(value)
		if !ok {
			return nil, fmt.Errorf("%w: unknown status %q", queue.ErrInvalidOperation, value)
		}
		filters = append(filters, parsed)
	}
	return a.service.List(ctx, filters...)
}

func (a *storeAccess) Add(ctx context.Context, jobs []job.Job) ([]api.QueueItem, error) {
	added, err := a.store.AddBatch(ctx, jobs)
	if err != nil {
		return nil, err
	}
	length, err := a.store.Summary(ctx)
	if err != nil {
		return nil, err
	}
	offset := length.Total() - len(added)
	out := make([]api.QueueItem, len(added))
	for i, item := range added {
		out[i] = api.FromQueueItem(item, offset+i)
	}
	return out, nil
}

func (a *storeAccess) Remove(ctx context.Context, index int) (api.QueueItem, error) {
	item, err := a.store.Remove(ctx, index)
	if err != nil {
		return api.QueueItem{}, err
	}
	return api.FromQueueItem(item, index), nil
}

func (a *storeAccess) Move(ctx context.Context, from, to int) error {
	return a.store.Move(ctx, from, to)
}

func (a *storeAccess) Clear(ctx context.Context, scope string) (int, error) {
	parsed, err := queue.ParseClearScope(scope)
	if err != nil {
		return 0, err
	}
	return a.store.ClearMatching(ctx, parsed)
}

func (a *storeAccess) Retry(ctx context.Context, indexes []int) (int, error) {
	return a.store.RetryFailed(ctx, queue.RetryOptions{Indexes: indexes, MaxRetries: a.maxRetries})
}

func (a *storeAccess) Export(ctx context.Context, path string) (int, error) {
	return a.store.Export(ctx, path)
}

func (a *storeAccess) Import(ctx context.Context, path string, appendItems bool) (int, error) {
	return a.store.Import(ctx, path, appendItems)
}
