package netserver

import (
	"context"
	"log/slog"
	"net"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/kanalyze-tools/kanalyze/internal/metrics"
	"github.com/kanalyze-tools/kanalyze/internal/taskutil"
)

// Handler is the task a Server runs for every non-shutdown message it
// receives. Execute must be safe to call concurrently: a Server may run it
// from multiple connection handlers at once, bounded by its worker count.
//
// The server never lets a panic from Execute or Summary cross its
// boundary — both are recovered, logged, and replaced with a generic
// failure summary so the connection still receives exactly one framed
// reply.
type Handler interface {
	Execute(message string)
	Summary() string
}

// Server accepts connections on a single listener and runs Handler against
// each non-shutdown message it receives, replying with the handler's
// summary. Only one Server may be running per process at a time.
type Server struct {
	handler Handler
	logger  *slog.Logger

	mu       sync.Mutex
	listener net.Listener

	sem   chan struct{}
	tasks *taskutil.TaskGroup

	shutdown atomic.Bool
	stopOnce sync.Once
	stopped  chan struct{}
}

var (
	instanceMu sync.Mutex
	instance   *Server
)

// Start begins listening on address ("host::port"; DefaultAddress if
// empty) and serving handler. It returns ErrAlreadyRunning if a Server is
// already active in this process, and an error wrapping ErrConfig if
// address is malformed.
//
// workers bounds how many connections are handled concurrently; additional
// connections queue in the listener's backlog until a slot frees up.
func Start(ctx context.Context, address string, handler Handler, workers int, logger *slog.Logger) (*Server, error) {
	instanceMu.Lock()
	if instance != nil {
		instanceMu.Unlock()
		return nil, ErrAlreadyRunning
	}
	instanceMu.Unlock()

	if address == "" {
		address = DefaultAddress
	}
	network, err := parseAddress(address)
	if err != nil {
		return nil, err
	}

	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}

	ln, err := net.Listen("tcp", network)
	if err != nil {
		return nil, err
	}

	s := &Server{
		handler:  handler,
		logger:   logger,
		listener: ln,
		sem:      make(chan struct{}, workers),
		tasks:    taskutil.NewTaskGroup("netserver-connections"),
		stopped:  make(chan struct{}),
	}

	instanceMu.Lock()
	instance = s
	instanceMu.Unlock()

	go s.acceptLoop(ctx)

	return s, nil
}

// Addr returns the address the Server is listening on.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Done returns a channel that is closed once the accept loop has exited,
// whether because Stop was called explicitly or because the shutdown
// sentinel message triggered it internally. Callers that need to react to a
// client-initiated shutdown (rather than just calling Stop themselves)
// select on this.
func (s *Server) Done() <-chan struct{} {
	return s.stopped
}

func (s *Server) acceptLoop(ctx context.Context) {
	defer close(s.stopped)

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.shutdown.Load() {
				return
			}
			s.logger.Warn("netserver: accept failed", "error", err)
			continue
		}

		if s.shutdown.Load() {
			conn.Close()
			continue
		}

		s.sem <- struct{}{}
		s.tasks.Add("connection")
		go func() {
			defer func() { <-s.sem }()
			defer s.tasks.Done("connection")
			s.handleConnection(ctx, conn)
		}()
	}
}

func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	c := newConnection(conn)
	connID := uuid.NewString()

	msg, err := c.receive()
	if err != nil {
		s.logger.Warn("netserver: receive failed", "conn_id", connID, "error", err, "remote", conn.RemoteAddr())
		metrics.ServerRequestsTotal.WithLabelValues("receive_error").Inc()
		return
	}

	if strings.TrimSpace(msg) == shutdownCommand {
		if err := c.send("Shutting down"); err != nil {
			s.logger.Warn("netserver: send failed", "conn_id", connID, "error", err)
		}
		metrics.ServerRequestsTotal.WithLabelValues("shutdown").Inc()
		s.beginShutdown()
		return
	}

	reply := s.runHandler(ctx, connID, msg)
	if err := c.send(reply); err != nil {
		s.logger.Warn("netserver: send failed", "conn_id", connID, "error", err, "remote", conn.RemoteAddr())
		metrics.ServerRequestsTotal.WithLabelValues("send_error").Inc()
		return
	}
	metrics.ServerRequestsTotal.WithLabelValues("ok").Inc()
}

func (s *Server) runHandler(ctx context.Context, connID, msg string) (reply string) {
	defer func() {
		if r := recover(); r != nil {
			trace := taskutil.GetStackTrace(nil, 2)
			s.logger.Warn("netserver: handler panicked", "conn_id", connID, "panic", r, "stack", trace.String())
			reply = "internal error"
		}
	}()

	s.handler.Execute(msg)
	return s.handler.Summary()
}

func (s *Server) beginShutdown() {
	if !s.shutdown.CompareAndSwap(false, true) {
		return
	}
	go s.Stop()
}

// Stop closes the listener and waits for in-flight connection handlers to
// drain before returning. Stop is idempotent.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		s.shutdown.Store(true)
		s.listener.Close()
		<-s.stopped
		s.tasks.TryWait(context.Background())

		instanceMu.Lock()
		if instance == s {
			instance = nil
		}
		instanceMu.Unlock()
	})
}
