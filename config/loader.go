package config

// loader.go - configuration loading from a YAML file and environment
// variables.
//
// Precedence order (highest wins):
//   1. CLI flags  (handled by cmd/root.go)
//   2. Environment variables
//   3. Config file
//   4. Defaults   (defaults.go)

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ── Config file ──────────────────────────────────────────────────────

// LoadFile overlays the YAML document at path onto cfg.  Keys missing
// from the file keep their current value.
func LoadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.ConfigFile = path
	return nil
}

// ── Environment variable mapping ─────────────────────────────────────
//
// Every supported env var uses the TELNETD_ prefix.  Boolean values
// accept "1", "true", "yes" (case-insensitive).

// LoadFromEnv overlays environment variables onto cfg.  Only non-empty
// env vars override the existing value.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("TELNETD_HOST"); v != "" {
		cfg.Host = v
	}
	if v := envInt("TELNETD_PORT"); v > 0 {
		cfg.Port = v
	}
	if v := envInt("TELNETD_MAX_CONNECTIONS"); v > 0 {
		cfg.MaxConnections = v
	}
	if v := os.Getenv("TELNETD_PLATFORM"); v != "" {
		cfg.Platform = v
	}
	if envBool("TELNETD_NO_CONSOLE") {
		cfg.NoConsole = true
	}
	if v := envInt("TELNETD_VERBOSE"); v > 0 {
		cfg.Verbose = v
	}
}

// ── helpers ──────────────────────────────────────────────────────────

func envInt(key string) int {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

func envBool(key string) bool {
	v := strings.ToLower(os.Getenv(key))
	return v == "1" || v == "true" || v == "yes"
}
