// Package session represents a single connection lifecycle: one
// accepted connection, its command loop and the means to end it from
// outside.
//
// A session blocks in Read while it waits for the next command.  Read
// cannot be interrupted by cancelling a context, so Kill closes the
// connection instead; the pending Read then fails with a
// closed-connection error, which the loop treats as a normal exit.
package session

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"strings"
	"sync/atomic"
	"time"

	errs "telnetd/internal/errors"
	"telnetd/internal/metrics"
	"telnetd/internal/registry"
	"telnetd/internal/shell"
	"telnetd/util"
)

const lineBreak = "\r\n"

// Banner is the first line written to every admitted client.
const Banner = "Welcome to telnetd, the following commands are available..."

// Session owns one accepted connection.  It is never reused.
type Session struct {
	id       string
	conn     net.Conn
	shell    *shell.Shell
	registry *registry.Registry
	logger   *util.Logger
	metrics  *metrics.Collector
	started  time.Time
	stopped  atomic.Bool
}

// Options carries the collaborators a Session needs.
type Options struct {
	Registry *registry.Registry
	Shell    *shell.Shell
	Logger   *util.Logger
	Metrics  *metrics.Collector
}

// New binds a Session to conn under id.  The session does nothing
// until Run is called.
func New(id string, conn net.Conn, opts Options) *Session {
	return &Session{
		id:       id,
		conn:     conn,
		shell:    opts.Shell,
		registry: opts.Registry,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
		started:  time.Now(),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Stopped reports whether the session has been asked to stop.
func (s *Session) Stopped() bool { return s.stopped.Load() }

func (s *Session) String() string {
	return fmt.Sprintf("%s connected at %s", s.conn.RemoteAddr(), s.started.Format(time.RFC3339))
}

// Kill closes the session's connection, unblocking a pending read.  It
// returns without waiting for the loop to exit; the session
// deregisters itself.  Closing a connection that is already closed is
// not an error.  A session whose connection fails to close is not
// marked stopped and keeps serving.
func (s *Session) Kill() error {
	if err := s.conn.Close(); err != nil && !errs.IsClosed(err) {
		return errs.Kill(s.id, err)
	}
	s.stopped.Store(true)
	return nil
}

// Run registers the session, serves commands until the client leaves,
// quits or is killed, then deregisters and releases the connection.
// Run blocks; start it on its own goroutine.
func (s *Session) Run(ctx context.Context) {
	s.registry.Connect(s)
	s.logger.Verbose("session %s opened from %s", s.id, s.conn.RemoteAddr())

	defer func() {
		s.registry.Disconnect(s)
		s.stopped.Store(true)
		s.conn.Close() //nolint:errcheck // may already be closed by Kill or quit
		s.logger.Verbose("session %s closed", s.id)
	}()

	if err := s.serve(ctx); err != nil {
		s.logger.Warn("session %s: error while handling client input: %v", s.id, err)
		s.metrics.RecordError(err.Error())
	}
}

// serve runs the read/respond loop.  A nil return covers every normal
// ending: end of input, quit and an external kill.
func (s *Session) serve(ctx context.Context) error {
	r := bufio.NewReader(s.conn)
	w := bufio.NewWriter(&meteredWriter{w: s.conn, m: s.metrics})

	greeting := Banner + lineBreak + lineBreak + s.shell.Help() + lineBreak + s.shell.Prompt()
	if err := s.send(w, greeting); err != nil {
		return s.classify(err)
	}

	for !s.stopped.Load() {
		line, readErr := r.ReadString('\n')
		if line != "" {
			s.metrics.BytesReceived(int64(len(line)))
			s.metrics.CommandExecuted()

			res := s.shell.Exec(ctx, strings.TrimRight(line, "\r\n"))
			if res.Close {
				s.stopped.Store(true)
				// The close after quit must not be mistaken for a failure.
				return s.classify(s.send(w, res.Output+lineBreak))
			}
			if err := s.send(w, res.Output+lineBreak+s.shell.Prompt()); err != nil {
				return s.classify(err)
			}
		}
		if readErr != nil {
			return s.classify(readErr)
		}
	}
	return nil
}

func (s *Session) send(w *bufio.Writer, text string) error {
	if _, err := w.WriteString(text); err != nil {
		return err
	}
	return w.Flush()
}

// classify maps the error that ended the loop to nil for the expected
// endings and returns anything else.
func (s *Session) classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errs.IsClosed(err), s.stopped.Load():
		s.logger.Debug("session %s: connection closed locally", s.id)
		return nil
	case errs.IsDisconnect(err):
		s.logger.Debug("session %s: client disconnected", s.id)
		return nil
	default:
		return err
	}
}

// meteredWriter counts bytes written to the connection.
type meteredWriter struct {
	w io.Writer
	m *metrics.Collector
}

func (mw *meteredWriter) Write(p []byte) (int, error) {
	n, err := mw.w.Write(p)
	mw.m.BytesSent(int64(n))
	return n, err
}
