package config

// ── Default values ───────────────────────────────────────────────────
//
// All tuneable defaults live here so they are easy to audit and reuse
// across CLI flags, config file parsing, and environment variable
// loading.

const (
	// DefaultPort is the TCP port the server listens on.
	DefaultPort = 4444

	// DefaultMaxConnections is the admission limit: connections beyond
	// this many live sessions are answered with RejectMessage and
	// closed.
	DefaultMaxConnections = 5

	// DefaultVerbosity shows info, warnings and errors.
	DefaultVerbosity = 1

	// RejectMessage is written to a connection refused by the
	// admission limit.
	RejectMessage = "Too many users"
)
