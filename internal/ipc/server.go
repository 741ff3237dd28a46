package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"
	"time"

	"log/slog"

	"lectern/internal/daemon"
	"lectern/internal/ledger"
	"lectern/internal/logging"
	"lectern/internal/logs"
	"lectern/internal/status"
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

// NewServer configures the IPC server at the given socket path. A shutdown
// function may be supplied; it is invoked when a client requests Stop.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, shutdown func(), logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	rpcServer := rpc.NewServer()
	svc := &service{daemon: d, shutdown: shutdown, logger: logging.NewComponentLogger(logger, "ipc"), ctx: ctx}
	if err := rpcServer.RegisterName("Lectern", svc); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:      path,
		logger:    logging.NewComponentLogger(logger, "ipc"),
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("ipc server listening", logging.String("socket", s.path))
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
				s.logger.Warn("accept failed", logging.Error(err))
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
		s.logger.Warn("failed to remove socket",
			logging.String("socket", s.path),
			logging.Error(err),
		)
	}
}

type service struct {
	daemon   *daemon.Daemon
	shutdown func()
	logger   *slog.Logger
	ctx      context.Context
}

func recordDTO(rec *ledger.Record) *LedgerRecord {
	if rec == nil {
		return nil
	}
	return &LedgerRecord{
		ID:            rec.ID,
		Fingerprint:   rec.Fingerprint,
		OriginalPath:  rec.OriginalPath,
		ConvertedPath: rec.ConvertedPath,
		Status:        rec.Status,
		HasSubtitles:  rec.HasSubtitles,
		CreatedAt:     rec.CreatedAt,
	}
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	_, cacheState := s.daemon.Candidates()

	resp.Running = s.daemon.Running()
	resp.PID = os.Getpid()
	resp.LibraryDir = s.daemon.LibraryDir()
	resp.CacheState = string(cacheState)
	resp.QueueCapacity = s.daemon.QueueCapacity()
	resp.QueueLength = len(s.daemon.QueueItems())

	for _, entry := range s.daemon.Status() {
		resp.Entries = append(resp.Entries, StatusEntry{
			Path:      entry.Path,
			State:     string(entry.State),
			Message:   entry.Message,
			Percent:   entry.Percent,
			ETA:       entry.ETA,
			UpdatedAt: entry.UpdatedAt,
		})
	}
	for _, dep := range s.daemon.Dependencies() {
		resp.Dependencies = append(resp.Dependencies, DependencyStatus{
			Name:        dep.Name,
			Command:     dep.Command,
			Description: dep.Description,
			Optional:    dep.Optional,
			Available:   dep.Available,
			Detail:      dep.Detail,
		})
	}
	return nil
}

func (s *service) LogTail(req LogTailRequest, resp *LogTailResponse) error {
	wait := time.Duration(req.WaitMillis) * time.Millisecond
	if wait <= 0 && req.Follow {
		wait = time.Second
	}

	ctx := s.ctx
	if req.Follow && wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(s.ctx, wait+500*time.Millisecond)
		defer cancel()
	}

	result, err := logs.Tail(ctx, s.daemon.LogPath(), logs.TailOptions{
		Offset: req.Offset,
		Limit:  req.Limit,
		Follow: req.Follow,
		Wait:   wait,
	})
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	resp.Lines = result.Lines
	resp.Offset = result.Offset
	return nil
}

func (s *service) Stop(_ StopRequest, resp *StopResponse) error {
	s.logger.Info("shutdown requested via ipc")
	if s.shutdown != nil {
		s.shutdown()
	}
	resp.Stopped = true
	return nil
}

func (s *service) QueueList(_ QueueListRequest, resp *QueueListResponse) error {
	resp.Capacity = s.daemon.QueueCapacity()
	for _, entry := range s.daemon.InFlight() {
		if entry.State != status.StateProcessing {
			continue
		}
		resp.Items = append(resp.Items, QueueEntry{
			Position: 0,
			Path:     entry.Path,
			State:    string(entry.State),
			Message:  entry.Message,
			Percent:  entry.Percent,
			ETA:      entry.ETA,
		})
	}
	for i, path := range s.daemon.QueueItems() {
		entry := s.daemon.StatusFor(path)
		resp.Items = append(resp.Items, QueueEntry{
			Position: i + 1,
			Path:     path,
			State:    string(entry.State),
			Message:  entry.Message,
			Percent:  entry.Percent,
			ETA:      entry.ETA,
		})
	}
	return nil
}

func (s *service) QueueAdd(req QueueAddRequest, resp *QueueAddResponse) error {
	if req.Path == "" {
		return errors.New("queue add requires a path")
	}
	if err := s.daemon.Enqueue(req.Path); err != nil {
		resp.Added = false
		resp.Message = err.Error()
		return nil
	}
	resp.Added = true
	resp.Message = "queued for conversion"
	return nil
}

func (s *service) QueueResize(req QueueResizeRequest, resp *QueueResizeResponse) error {
	if req.Capacity < 1 {
		return fmt.Errorf("invalid queue capacity %d", req.Capacity)
	}
	resp.Dropped = s.daemon.ResizeQueue(req.Capacity)
	resp.Capacity = s.daemon.QueueCapacity()
	return nil
}

func (s *service) Candidates(_ CandidatesRequest, resp *CandidatesResponse) error {
	snapshot, cacheState := s.daemon.Candidates()
	resp.CacheState = string(cacheState)
	resp.ScannedAt = snapshot.ScannedAt
	for _, c := range snapshot.Candidates {
		resp.Candidates = append(resp.Candidates, Candidate{
			Course:          c.Course,
			Section:         c.Section,
			Filename:        c.Filename,
			Path:            c.Path,
			Codec:           c.Codec,
			SizeMB:          c.SizeMB,
			DurationSeconds: c.DurationSeconds,
			NeedsConversion: c.NeedsConversion,
			Status:          string(c.Status),
			Processed:       c.Processed,
		})
	}
	return nil
}

func (s *service) LedgerList(_ LedgerListRequest, resp *LedgerListResponse) error {
	records, err := s.daemon.LedgerList(s.ctx)
	if err != nil {
		return err
	}
	for _, rec := range records {
		if dto := recordDTO(rec); dto != nil {
			resp.Records = append(resp.Records, *dto)
		}
	}
	return nil
}

func (s *service) LedgerDelete(req LedgerDeleteRequest, resp *LedgerDeleteResponse) error {
	if req.ID <= 0 {
		return fmt.Errorf("invalid ledger record id %d", req.ID)
	}
	rec, err := s.daemon.LedgerDelete(s.ctx, req.ID)
	if err != nil {
		return err
	}
	resp.Removed = rec != nil
	resp.Record = recordDTO(rec)
	return nil
}

func (s *service) StatusPrune(_ StatusPruneRequest, resp *StatusPruneResponse) error {
	resp.Removed = s.daemon.PruneStatus()
	return nil
}
