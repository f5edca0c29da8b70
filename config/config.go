// Package config defines the runtime configuration for telnetd and the
// layers it is assembled from: defaults, a YAML file, environment
// variables and command-line flags.
package config

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"
)

// Config holds every tuneable for a telnetd server.
type Config struct {
	// ── Listener ─────────────────────────────────────────────────────
	Host string `yaml:"host"` // bind address, empty = all interfaces
	Port int    `yaml:"port"`

	// ── Admission ────────────────────────────────────────────────────
	MaxConnections int `yaml:"maxConnections"`

	// ── Sessions ─────────────────────────────────────────────────────
	// Platform selects platform-specific help text ("windows" names the
	// listing command dir).  Defaults to runtime.GOOS.
	Platform string `yaml:"platform"`

	// ── Operator console ─────────────────────────────────────────────
	NoConsole bool `yaml:"noConsole"`

	// ── Output ───────────────────────────────────────────────────────
	Verbose int `yaml:"verbose"`

	// ConfigFile is the YAML file the config was loaded from, if any.
	ConfigFile string `yaml:"-"`
}

// Defaults returns a Config populated from defaults.go.
func Defaults() *Config {
	return &Config{
		Port:           DefaultPort,
		MaxConnections: DefaultMaxConnections,
		Platform:       runtime.GOOS,
		Verbose:        DefaultVerbosity,
	}
}

// IsWindows reports whether the configured platform is Windows.
func (c *Config) IsWindows() bool {
	return strings.EqualFold(c.Platform, "windows")
}

// ── Port helpers ─────────────────────────────────────────────────────

// ParsePort accepts a decimal port number in 0-65535.  Port 0 asks the
// kernel for an ephemeral port.
func ParsePort(spec string) (int, error) {
	port, err := strconv.Atoi(strings.TrimSpace(spec))
	if err != nil {
		return 0, fmt.Errorf("invalid port %q", spec)
	}
	if port < 0 || port > 65535 {
		return 0, fmt.Errorf("port %d out of range 0-65535", port)
	}
	return port, nil
}

// ── Validation ───────────────────────────────────────────────────────

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range 0-65535", c.Port)
	}
	if c.MaxConnections < 1 {
		return fmt.Errorf("max connections must be at least 1, got %d", c.MaxConnections)
	}
	if c.Verbose < 0 {
		return fmt.Errorf("verbosity cannot be negative")
	}
	if c.Platform == "" {
		return fmt.Errorf("platform is required")
	}
	return nil
}
