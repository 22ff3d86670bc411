package ipc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"
	"time"

	"ytqueue/internal/api"
	"ytqueue/internal/daemon"
	"ytqueue/internal/logging"
	"ytqueue/internal/queue"
)

// ServiceName is the RPC receiver name clients call into.
const ServiceName = "YTQueue"

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	connMu sync.Mutex
	conns  map[net.Conn]struct{}
}

// NewServer configures the IPC server at the given socket path. A stale
// socket file left by a crashed process is replaced.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "ipc")

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}
	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	rpcServer := rpc.NewServer()
	if err := rpcServer.RegisterName(ServiceName, &service{daemon: d, logger: logger, ctx: serverCtx}); err != nil {
		cancel()
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	return &Server{
		path:      path,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
		conns:     make(map[net.Conn]struct{}),
	}, nil
}

// Path returns the socket path.
func (s *Server) Path() string {
	return s.path
}

// Serve starts accepting RPC connections until Close.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				if errors.Is(err, net.ErrClosed) {
					return
				}
				logging.WarnWithContext(s.logger, "accept failed", "ipc_accept_failed",
					logging.Error(err),
					logging.String(logging.FieldImpact, "IPC clients may fail to connect"),
					logging.String(logging.FieldErrorHint, "check socket permissions and restart the daemon if needed"),
				)
				time.Sleep(50 * time.Millisecond)
				continue
			}
			s.track(conn, true)
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				defer s.track(c, false)
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

func (s *Server) track(conn net.Conn, add bool) {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	if add {
		s.conns[conn] = struct{}{}
		return
	}
	delete(s.conns, conn)
}

// Close stops the server, drops open connections and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.connMu.Lock()
	for conn := range s.conns {
		_ = conn.Close()
	}
	s.connMu.Unlock()
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		logging.WarnWithContext(s.logger, "failed to remove socket", "ipc_socket_cleanup_failed",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "stale IPC socket may confuse the next start"),
			logging.String(logging.FieldErrorHint, "remove the socket file manually"),
		)
	}
}

type service struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	ctx    context.Context
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	resp.Status = s.daemon.Status(s.ctx)
	return nil
}

func (s *service) QueueList(req QueueListRequest, resp *QueueListResponse) error {
	statuses := make([]queue.Status, 0, len(req.Statuses))
	for _, value := range req.Statuses {
		parsed, ok := queue.ParseStatus(value)
		if !ok {
			return encodeError(fmt.Errorf("%w: unknown status %q", queue.ErrInvalidOperation, value))
		}
		statuses = append(statuses, parsed)
	}
	items, err := s.daemon.ListQueue(s.ctx, statuses...)
	if err != nil {
		return encodeError(err)
	}
	resp.Items = items
	return nil
}

func (s *service) QueueSummary(_ QueueSummaryRequest, resp *QueueSummaryResponse) error {
	summary, err := s.daemon.QueueSummary(s.ctx)
	if err != nil {
		return encodeError(err)
	}
	resp.Summary = summary
	return nil
}

func (s *service) QueueAdd(req QueueAddRequest, resp *QueueAddResponse) error {
	if len(req.Jobs) == 0 {
		return encodeError(fmt.Errorf("%w: no jobs to add", queue.ErrInvalidOperation))
	}
	for i, j := range req.Jobs {
		if err := j.Validate(); err != nil {
			return encodeError(fmt.Errorf("%w: job %d: %w", queue.ErrParse, i, err))
		}
	}
	items, err := s.daemon.AddJobs(s.ctx, req.Jobs)
	if err != nil {
		return encodeError(err)
	}
	resp.Items = items
	s.logger.Info("jobs queued via IPC",
		logging.Int("count", len(items)),
		logging.String(logging.FieldEventType, "ipc_queue_add"),
	)
	return nil
}

func (s *service) QueueRemove(req QueueRemoveRequest, resp *QueueRemoveResponse) error {
	item, err := s.daemon.RemoveItem(s.ctx, req.Index)
	if err != nil {
		return encodeError(err)
	}
	resp.Item = item
	return nil
}

func (s *service) QueueMove(req QueueMoveRequest, _ *QueueMoveResponse) error {
	return encodeError(s.daemon.MoveItem(s.ctx, req.From, req.To))
}

func (s *service) QueueClear(req QueueClearRequest, resp *QueueClearResponse) error {
	removed, err := s.daemon.ClearQueue(s.ctx, req.Scope)
	if err != nil {
		return encodeError(err)
	}
	resp.Removed = removed
	s.logger.Info("queue cleared",
		logging.String("scope", req.Scope),
		logging.Int("removed_count", removed),
		logging.String(logging.FieldEventType, "queue_clear"),
	)
	return nil
}

func (s *service) QueueRetry(req QueueRetryRequest, resp *QueueRetryResponse) error {
	updated, err := s.daemon.RetryItems(s.ctx, req.Indexes)
	if err != nil {
		return encodeError(err)
	}
	resp.Updated = updated
	return nil
}

func (s *service) QueueExport(req QueueExportRequest, resp *QueueTransferResponse) error {
	count, err := s.daemon.ExportQueue(s.ctx, req.Path)
	if err != nil {
		return encodeError(err)
	}
	resp.Count = count
	return nil
}

func (s *service) QueueImport(req QueueImportRequest, resp *QueueTransferResponse) error {
	count, err := s.daemon.ImportQueue(s.ctx, req.Path, req.Append)
	if err != nil {
		return encodeError(err)
	}
	resp.Count = count
	return nil
}

func (s *service) RunnerRun(req RunnerRunRequest, resp *RunnerResponse) error {
	if err := s.daemon.Run(s.ctx, req.RetryFailed); err != nil {
		return encodeError(err)
	}
	resp.Runner = api.FromRunnerStatus(s.daemon.Runner().Status())
	return nil
}

func (s *service) RunnerPause(_ RunnerControlRequest, resp *RunnerResponse) error {
	if err := s.daemon.Pause(); err != nil {
		return encodeError(err)
	}
	resp.Runner = api.FromRunnerStatus(s.daemon.Runner().Status())
	return nil
}

func (s *service) RunnerResume(_ RunnerControlRequest, resp *RunnerResponse) error {
	if err := s.daemon.Resume(s.ctx); err != nil {
		return encodeError(err)
	}
	resp.Runner = api.FromRunnerStatus(s.daemon.Runner().Status())
	return nil
}

func (s *service) RunnerCancel(_ RunnerControlRequest, resp *RunnerResponse) error {
	if err := s.daemon.Cancel(); err != nil {
		return encodeError(err)
	}
	resp.Runner = api.FromRunnerStatus(s.daemon.Runner().Status())
	return nil
}

func (s *service) TestNotification(_ TestNotificationRequest, resp *TestNotificationResponse) error {
	ctx, cancel := context.WithTimeout(s.ctx, 30*time.Second)
	defer cancel()
	if err := s.daemon.TestNotification(ctx); err != nil {
		resp.Message = err.Error()
		return nil
	}
	resp.Sent = true
	resp.Message = "test notification sent"
	return nil
}
