// Package server owns the listening socket: it admits connections up
// to the configured limit, starts a session for each, and exposes the
// operator actions that list and terminate sessions.
package server

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"telnetd/config"
	errs "telnetd/internal/errors"
	"telnetd/internal/metrics"
	"telnetd/internal/registry"
	"telnetd/internal/retry"
	"telnetd/internal/session"
	"telnetd/internal/shell"
	"telnetd/util"
)

// Server accepts connections and tracks the sessions they become.
type Server struct {
	cfg      *config.Config
	fs       shell.Filesystem
	logger   *util.Logger
	metrics  *metrics.Collector
	registry *registry.Registry
	backoff  *retry.Backoff

	mu sync.Mutex
	ln net.Listener

	sessions sync.WaitGroup
}

// New returns a Server for cfg.  Sessions run their commands against
// fsys.  m may be nil.
func New(cfg *config.Config, fsys shell.Filesystem, logger *util.Logger, m *metrics.Collector) *Server {
	return &Server{
		cfg:      cfg,
		fs:       fsys,
		logger:   logger.Named("server"),
		metrics:  m,
		registry: registry.New(cfg.MaxConnections, logger.Named("registry"), m),
		backoff:  retry.DefaultBackoff(),
	}
}

// Registry returns the session registry.
func (s *Server) Registry() *registry.Registry { return s.registry }

// MaxConnections returns the admission limit.
func (s *Server) MaxConnections() int { return s.registry.Max() }

// Addr returns the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Start binds the listening socket.  A bind failure is returned as is;
// it is a startup error and is not retried.
func (s *Server) Start() error {
	addr := util.ListenAddr(s.cfg.Host, s.cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return errs.Wrap("listen", addr, err)
	}

	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()

	s.logger.Info("listening on %s (max %d connections)", ln.Addr(), s.registry.Max())
	return nil
}

// Serve runs the accept loop until the listener is closed by Shutdown
// or ctx is cancelled, which triggers a Shutdown.  It returns nil on
// those paths and an error for any other accept failure.
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	ln := s.ln
	s.mu.Unlock()
	if ln == nil {
		return errs.ErrServerNotStarted
	}
	defer ln.Close()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			s.logger.Verbose("context done: %s", s.Shutdown())
		case <-stop:
		}
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errs.IsClosed(err) {
				s.logger.Verbose("listener closed, accept loop exiting")
				return nil
			}
			if errs.IsRetryable(err) {
				s.logger.Warn("accept: %v; retrying", err)
				s.metrics.RecordError(err.Error())
				if werr := s.backoff.Wait(ctx); werr != nil {
					return nil
				}
				continue
			}
			s.logger.Error("unable to accept connections: %v", err)
			return errs.Wrap("accept", ln.Addr().String(), err)
		}
		s.backoff.Reset()
		s.admit(ctx, conn)
	}
}

// ListenAndServe is Start followed by Serve.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if err := s.Start(); err != nil {
		return err
	}
	return s.Serve(ctx)
}

// admit starts a session for conn, or turns it away when the limit is
// reached.  The count is read before the new session registers, so a
// burst of connections can briefly exceed the limit.
func (s *Server) admit(ctx context.Context, conn net.Conn) {
	if live, max := s.registry.Count(), s.registry.Max(); live >= max {
		s.logger.Verbose("rejecting %s: %d/%d sessions", conn.RemoteAddr(), live, max)
		s.metrics.ConnectionRejected()
		conn.SetWriteDeadline(time.Now().Add(time.Second)) //nolint:errcheck
		fmt.Fprintf(conn, "%s\r\n", config.RejectMessage)  //nolint:errcheck
		conn.Close()
		return
	}

	id := uuid.NewString()
	sess := session.New(id, conn, session.Options{
		Registry: s.registry,
		Shell:    shell.New(s.fs, s.cfg.IsWindows()),
		Logger:   s.logger.Named("session"),
		Metrics:  s.metrics,
	})
	s.logger.Verbose("connection from %s assigned session %s", conn.RemoteAddr(), id)

	s.sessions.Add(1)
	go func() {
		defer s.sessions.Done()
		sess.Run(ctx)
	}()
}

// Close kills every session and closes the listener.  The error
// reflects only the listener close; failed kills are logged.  Sessions
// finish asynchronously; use Wait to drain them.
func (s *Server) Close() error {
	if err := s.registry.KillAll(); err != nil {
		s.logger.Error("disconnecting clients: %v", err)
	}

	s.mu.Lock()
	ln := s.ln
	s.mu.Unlock()
	if ln == nil {
		return errs.ErrServerNotStarted
	}
	if err := ln.Close(); err != nil && !errs.IsClosed(err) {
		s.logger.Error("failed to stop server: %v", err)
		return errs.Wrap("close", ln.Addr().String(), err)
	}
	return nil
}

// Wait blocks until every session goroutine has returned or timeout
// elapses.  It reports whether the sessions drained.
func (s *Server) Wait(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		s.sessions.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}
