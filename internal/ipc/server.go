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
	"path/filepath"
	"sync"

	"syncer/internal/daemon"
	"syncer/internal/history"
	"syncer/internal/logging"
)

const (
	serviceName         = "Syncer"
	defaultHistoryLimit = 20
	defaultReportLimit  = 15
)

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	logger = logging.NewComponentLogger(logger, "ipc")

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create socket directory: %w", err)
	}
	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	rpcServer := rpc.NewServer()
	srv := &service{daemon: d, logger: logger, ctx: ctx}
	if err := rpcServer.RegisterName(serviceName, srv); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:      path,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
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
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		logging.WarnWithContext(s.logger, "failed to remove socket", "ipc_socket_cleanup_failed",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "stale IPC socket may block future starts"),
			logging.String(logging.FieldErrorHint, "remove the socket file manually"),
		)
	}
}

type service struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	ctx    context.Context
}

func (s *service) Stop(_ StopRequest, resp *StopResponse) error {
	s.logger.Info("daemon stop requested via IPC", logging.String(logging.FieldEventType, "daemon_stop"))
	s.daemon.RequestShutdown()
	resp.Stopped = true
	return nil
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	status := s.daemon.Status()
	resp.Running = status.Running
	resp.PID = status.PID
	resp.StartedAt = status.StartedAt
	resp.PipePath = status.PipePath
	resp.LockPath = status.LockFilePath
	resp.HistoryPath = status.HistoryPath
	resp.QueueLength = status.QueueLength
	resp.QueueHighWater = status.QueueHighWater
	resp.Tasks = make([]TaskState, 0, len(status.Workflow.Tasks))
	for _, task := range status.Workflow.Tasks {
		resp.Tasks = append(resp.Tasks, TaskState{
			Name:      task.Name,
			Thread:    task.Thread,
			Running:   task.Running,
			Restarts:  task.Restarts,
			LastError: task.LastError,
			LastStart: task.LastStart,
		})
	}
	resp.Dispatch = DispatchStats{
		Batches:     status.Dispatch.Batches,
		Events:      status.Dispatch.Events,
		Skipped:     status.Dispatch.Skipped,
		Units:       status.Dispatch.Units,
		Failures:    status.Dispatch.Failures,
		LastBatchID: status.Dispatch.LastBatchID,
		LastBatch:   status.Dispatch.LastBatch,
	}
	resp.Profiler = ProfilerState{
		Enabled:    status.Profiler.Enabled,
		Samples:    status.Profiler.Samples,
		Frames:     status.Profiler.Frames,
		Nodes:      status.Profiler.Nodes,
		ReportPath: status.Profiler.ReportPath,
		LastReport: status.Profiler.LastReport,
	}
	return nil
}

func (s *service) Report(req ReportRequest, resp *ReportResponse) error {
	if !req.Summary {
		text, err := s.daemon.Report()
		if err != nil {
			return err
		}
		resp.Text = text
		return nil
	}
	limit := req.Limit
	if limit <= 0 {
		limit = defaultReportLimit
	}
	nodes, err := s.daemon.ReportSummary(limit)
	if err != nil {
		return err
	}
	resp.Frames = make([]FrameSummary, 0, len(nodes))
	for _, node := range nodes {
		summary := FrameSummary{
			Count:          node.Count,
			SelfSeconds:    node.SelfTime.Seconds(),
			TotalSeconds:   node.TotalTime.Seconds(),
			PerCallSeconds: node.PerCall().Seconds(),
		}
		if len(node.Frame) > 0 {
			summary.Symbol = node.Frame[0].Symbol
			summary.Unit = node.Frame[0].Unit()
			summary.Line = node.Frame[0].Line
		}
		resp.Frames = append(resp.Frames, summary)
	}
	return nil
}

func (s *service) History(req HistoryRequest, resp *HistoryResponse) error {
	if req.BatchID != "" {
		units, err := s.daemon.HistoryUnits(s.ctx, req.BatchID)
		if err != nil {
			return err
		}
		resp.Units = make([]UnitSummary, 0, len(units))
		for _, unit := range units {
			resp.Units = append(resp.Units, unitSummary(unit))
		}
		return nil
	}

	limit := req.Limit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	batches, err := s.daemon.History(s.ctx, limit)
	if err != nil {
		return err
	}
	resp.Batches = make([]BatchSummary, 0, len(batches))
	for _, batch := range batches {
		resp.Batches = append(resp.Batches, BatchSummary{
			ID:           batch.ID,
			Events:       batch.Events,
			Skipped:      batch.Skipped,
			Builds:       batch.Builds,
			Invokes:      batch.Invokes,
			Replications: batch.Replications,
			Failures:     batch.Failures,
			StartedAt:    batch.StartedAt,
			FinishedAt:   batch.FinishedAt,
		})
	}
	stats, err := s.daemon.HistoryStats(s.ctx)
	if err != nil {
		s.logger.Debug("history stats unavailable", logging.Error(err))
		return nil
	}
	resp.TotalBatches = stats.Batches
	resp.TotalEvents = stats.Events
	resp.TotalUnits = stats.Units
	resp.TotalFailures = stats.Failures
	return nil
}

func unitSummary(unit history.Unit) UnitSummary {
	return UnitSummary{
		Kind:    string(unit.Kind),
		User:    unit.User,
		Target:  unit.Target,
		Peer:    unit.Peer,
		Outcome: unit.Outcome,
		Error:   unit.Error,
		Seconds: unit.Duration.Seconds(),
	}
}
