package server

import (
	errs "telnetd/internal/errors"
)

// Status strings returned to the operator console.
const (
	StatusSuccess       = "Success"
	StatusFailed        = "Failed"
	StatusGoodbye       = "Goodbye"
	StatusMissingID     = "Client id is mandatory input"
	StatusUnknownClient = "Invalid client id provided"
)

// List returns the table of live sessions.
func (s *Server) List() string {
	return s.registry.List()
}

// Kill disconnects the session registered under id.
func (s *Server) Kill(id string) string {
	switch err := s.registry.Kill(id); {
	case err == nil:
		return StatusSuccess
	case errs.Is(err, errs.ErrMissingIdentifier):
		return StatusMissingID
	case errs.Is(err, errs.ErrUnknownClient):
		return StatusUnknownClient
	default:
		return StatusFailed
	}
}

// KillAll disconnects every session.  It reports Failed if any single
// disconnect failed.
func (s *Server) KillAll() string {
	if err := s.registry.KillAll(); err != nil {
		return StatusFailed
	}
	return StatusSuccess
}

// Shutdown disconnects every session and stops accepting connections.
func (s *Server) Shutdown() string {
	if err := s.Close(); err != nil {
		return StatusFailed
	}
	return StatusGoodbye
}

// Stats returns the server metrics as JSON.
func (s *Server) Stats() string {
	return s.metrics.JSON()
}
