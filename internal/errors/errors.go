// Package errors provides domain-specific error types for telnetd.
//
// The operator-facing failures (missing id, unknown client, kill
// failure) are sentinels so callers can map them onto the status
// strings the console prints.  Network failures carry the operation
// and address that produced them.
package errors

import (
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
)

// ── Sentinel errors ──────────────────────────────────────────────────

var (
	ErrMissingIdentifier = errors.New("client id is required")
	ErrUnknownClient     = errors.New("unknown client id")
	ErrKillFailed        = errors.New("failed to close client connection")
	ErrServerNotStarted  = errors.New("server is not listening")
)

// ── Structured error types ───────────────────────────────────────────

// NetworkError represents a failure in a network operation.
type NetworkError struct {
	Op        string // operation: "listen", "accept", "read", "write", "close"
	Addr      string // network address involved
	Err       error  // underlying error
	Retryable bool   // whether the caller should retry
}

func (e *NetworkError) Error() string {
	s := fmt.Sprintf("%s %s: %v", e.Op, e.Addr, e.Err)
	if e.Retryable {
		s += " (retryable)"
	}
	return s
}

func (e *NetworkError) Unwrap() error { return e.Err }

// KillError records which client could not be disconnected.  It
// matches ErrKillFailed with errors.Is.
type KillError struct {
	ID  string
	Err error
}

func (e *KillError) Error() string {
	return fmt.Sprintf("kill %s: %v", e.ID, e.Err)
}

func (e *KillError) Unwrap() []error { return []error{ErrKillFailed, e.Err} }

// ── Constructors ─────────────────────────────────────────────────────

// Wrap creates a NetworkError, automatically detecting retryability
// from the underlying error.
func Wrap(op, addr string, err error) *NetworkError {
	return &NetworkError{
		Op:        op,
		Addr:      addr,
		Err:       err,
		Retryable: classifyRetryable(err),
	}
}

// Kill creates a KillError for the given client id.
func Kill(id string, err error) *KillError {
	return &KillError{ID: id, Err: err}
}

// ── Classification helpers ───────────────────────────────────────────

// IsClosed reports whether err is the condition raised by an I/O call
// on a connection or listener that has already been closed locally.
// This is the expected way a blocked Accept or Read ends after a kill
// or shutdown, and is not a failure.
func IsClosed(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return errors.Is(opErr.Err, net.ErrClosed)
	}
	return false
}

// IsDisconnect reports whether err means the peer went away: a clean
// EOF, a reset, or a broken pipe.
func IsDisconnect(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE)
}

// IsRetryable reports whether err is worth retrying.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var ne *NetworkError
	if errors.As(err, &ne) {
		return ne.Retryable
	}
	return classifyRetryable(err)
}

// classifyRetryable inspects standard library error types.
func classifyRetryable(err error) bool {
	if err == nil || IsClosed(err) {
		return false
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return opErr.Temporary() //nolint:staticcheck // still the only signal for EMFILE/ENFILE on accept
	}
	return false
}

// ── Re-exports for convenience ───────────────────────────────────────
//
// These allow callers to use telnetd/internal/errors as a drop-in
// replacement for the standard library in common operations.

// As is [errors.As].
func As(err error, target interface{}) bool { return errors.As(err, target) }

// Is is [errors.Is].
func Is(err, target error) bool { return errors.Is(err, target) }

// New is [errors.New].
func New(text string) error { return errors.New(text) }

// Join is [errors.Join].
func Join(errs ...error) error { return errors.Join(errs...) }
