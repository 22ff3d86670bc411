package monitor

import (
	"context"
	"fmt"

	"ytqueue/internal/api"
	"ytqueue/internal/ipc"
)

// Snapshot is everything the view needs after a queue change.
type Snapshot struct {
	Items   []api.QueueItem
	Summary api.QueueSummary
	Runner  api.RunnerStatus
}

// Backend loads queue state and forwards runner controls.
type Backend interface {
	Snapshot(ctx context.Context) (Snapshot, error)
	Run(ctx context.Context, retryFailed bool) error
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
	Cancel(ctx context.Context) error
}

// NewIPCBackend adapts a daemon IPC client.
func NewIPCBackend(client *ipc.Client) Backend {
	return ipcBackend{client: client}
}

type ipcBackend struct {
	client *ipc.Client
}

func (b ipcBackend) Snapshot(context.Context) (Snapshot, error) {
	status, err := b.client.Status()
	if err != nil {
		return Snapshot{}, fmt.Errorf("daemon status: %w", err)
	}
	list, err := b.client.QueueList(nil)
	if err != nil {
		return Snapshot{}, fmt.Errorf("queue list: %w", err)
	}
	return Snapshot{
		Items:   list.Items,
		Summary: status.Status.Summary,
		Runner:  status.Status.Runner,
	}, nil
}

func (b ipcBackend) Run(_ context.Context, retryFailed bool) error {
	_, err := b.client.RunnerRun(retryFailed)
	return err
}

func (b ipcBackend) Pause(context.Context) error {
	_, err := b.client.RunnerPause()
	return err
}

func (b ipcBackend) Resume(context.Context) error {
	_, err := b.client.RunnerResume()
	return err
}

func (b ipcBackend) Cancel(context.Context) error {
	_, err := b.client.RunnerCancel()
	return err
}
