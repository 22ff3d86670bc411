package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"

	"ytqueue/internal/job"
)

// DialTimeout bounds how long Dial waits for the daemon socket.
const DialTimeout = 2 * time.Second

// Client provides RPC access to the daemon.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the IPC server at the given socket path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, DialTimeout)
	if err != nil {
		return nil, err
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

func (c *Client) call(method string, req, resp any) error {
	return decodeError(c.client.Call(ServiceName+"."+method, req, resp))
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.call("Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// QueueList returns queue items optionally filtered by statuses.
func (c *Client) QueueList(statuses []string) (*QueueListResponse, error) {
	var resp QueueListResponse
	if err := c.call("QueueList", QueueListRequest{Statuses: statuses}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// QueueSummary returns per-status counts.
func (c *Client) QueueSummary() (*QueueSummaryResponse, error) {
	var resp QueueSummaryResponse
	if err := c.call("QueueSummary", QueueSummaryRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// QueueAdd appends jobs.
func (c *Client) QueueAdd(jobs []job.Job) (*QueueAddResponse, error) {
	var resp QueueAddResponse
	if err := c.call("QueueAdd", QueueAddRequest{Jobs: jobs}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// QueueRemove removes the item at index.
func (c *Client) QueueRemove(index int) (*QueueRemoveResponse, error) {
	var resp QueueRemoveResponse
	if err := c.call("QueueRemove", QueueRemoveRequest{Index: index}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// QueueMove relocates the item at from to position to.
func (c *Client) QueueMove(from, to int) error {
	return c.call("QueueMove", QueueMoveRequest{From: from, To: to}, &QueueMoveResponse{})
}

// QueueClear removes items in scope.
func (c *Client) QueueClear(scope string) (*QueueClearResponse, error) {
	var resp QueueClearResponse
	if err := c.call("QueueClear", QueueClearRequest{Scope: scope}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// QueueRetry retries failed items.
func (c *Client) QueueRetry(indexes []int) (*QueueRetryResponse, error) {
	var resp QueueRetryResponse
	if err := c.call("QueueRetry", QueueRetryRequest{Indexes: indexes}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// QueueExport writes the queue to path.
func (c *Client) QueueExport(path string) (*QueueTransferResponse, error) {
	var resp QueueTransferResponse
	if err := c.call("QueueExport", QueueExportRequest{Path: path}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// QueueImport loads path into the queue.
func (c *Client) QueueImport(path string, appendItems bool) (*QueueTransferResponse, error) {
	var resp QueueTransferResponse
	if err := c.call("QueueImport", QueueImportRequest{Path: path, Append: appendItems}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RunnerRun starts processing.
func (c *Client) RunnerRun(retryFailed bool) (*RunnerResponse, error) {
	var resp RunnerResponse
	if err := c.call("RunnerRun", RunnerRunRequest{RetryFailed: retryFailed}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RunnerPause pauses after the current job.
func (c *Client) RunnerPause() (*RunnerResponse, error) {
	return c.control("RunnerPause")
}

// RunnerResume continues a paused runner.
func (c *Client) RunnerResume() (*RunnerResponse, error) {
	return c.control("RunnerResume")
}

// RunnerCancel aborts the current job.
func (c *Client) RunnerCancel() (*RunnerResponse, error) {
	return c.control("RunnerCancel")
}

func (c *Client) control(method string) (*RunnerResponse, error) {
	var resp RunnerResponse
	if err := c.call(method, RunnerControlRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TestNotification triggers a notification test via the daemon.
func (c *Client) TestNotification() (*TestNotificationResponse, error) {
	var resp TestNotificationResponse
	if err := c.call("TestNotification", TestNotificationRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
