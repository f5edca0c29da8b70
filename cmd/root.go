// Package cmd wires up the CLI flags and starts the server.
package cmd

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	flag "github.com/spf13/pflag"

	"telnetd/config"
	"telnetd/internal/console"
	"telnetd/internal/metrics"
	"telnetd/internal/server"
	"telnetd/internal/shell"
	"telnetd/util"
)

// version is overridable at link time:
//
//	go build -ldflags "-X telnetd/cmd.version=2.0.0"
var version = "1.0.0" //nolint:gochecknoglobals

// shutdownGrace bounds how long Execute waits for killed sessions to
// finish after the accept loop has stopped.
const shutdownGrace = 5 * time.Second

// Execute parses args, assembles the configuration and runs the server
// until it is shut down from the console or ctx is cancelled.
func Execute(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("telnetd", flag.ContinueOnError)

	// ── listener ─────────────────────────────────────────────────
	var (
		host      string
		port      int
		maxConns  int
		platform  string
		noConsole bool
		verbose   int
	)
	fs.StringVarP(&host, "host", "H", "", "Bind address (default all interfaces)")
	fs.IntVarP(&port, "port", "p", config.DefaultPort, "Listening port")
	fs.IntVarP(&maxConns, "max-connections", "m", config.DefaultMaxConnections, "Maximum concurrent sessions")

	// ── behaviour ────────────────────────────────────────────────
	fs.StringVar(&platform, "platform", "", "Platform flavour for the ls/dir command (default host OS)")
	fs.BoolVar(&noConsole, "no-console", false, "Run without the operator console on stdin")

	// ── config ───────────────────────────────────────────────────
	var configFile string
	fs.StringVarP(&configFile, "config", "c", "", "YAML configuration file")

	// ── output ───────────────────────────────────────────────────
	fs.CountVarP(&verbose, "verbose", "v", "Increase verbosity (repeatable)")

	var showVersion, showHelp, dryRun bool
	fs.BoolVar(&showVersion, "version", false, "Print version and exit")
	fs.BoolVarP(&showHelp, "help", "h", false, "Show this help")
	fs.BoolVar(&dryRun, "dry-run", false, "Validate the configuration and exit")

	fs.Usage = func() { printUsage(fs) }

	// ── parse ────────────────────────────────────────────────────
	if err := fs.Parse(args); err != nil {
		return err
	}

	if showHelp {
		printUsage(fs)
		return nil
	}
	if showVersion {
		fmt.Printf("telnetd %s\n", version)
		return nil
	}

	// ── assemble: defaults < file < env < flags ──────────────────
	cfg := config.Defaults()
	if configFile != "" {
		if err := config.LoadFile(cfg, configFile); err != nil {
			return err
		}
	}
	config.LoadFromEnv(cfg)

	if fs.Changed("host") {
		cfg.Host = host
	}
	if fs.Changed("max-connections") {
		cfg.MaxConnections = maxConns
	}
	if fs.Changed("platform") {
		cfg.Platform = platform
	}
	if fs.Changed("no-console") {
		cfg.NoConsole = noConsole
	}
	if fs.Changed("verbose") {
		cfg.Verbose = verbose
	}

	ignoredPort, err := applyPort(cfg, fs, port)
	if err != nil {
		return err
	}

	// ── validate ─────────────────────────────────────────────────
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := util.NewLogger(cfg.Verbose)
	if ignoredPort != "" {
		logger.Warn("ignoring port argument %q, using %d", ignoredPort, cfg.Port)
	}
	if cfg.ConfigFile != "" {
		logger.Verbose("loaded configuration from %s", cfg.ConfigFile)
	}

	if dryRun {
		fmt.Printf("telnetd: listen %s, max %d connections, platform %s\n",
			util.ListenAddr(cfg.Host, cfg.Port), cfg.MaxConnections, cfg.Platform)
		return nil
	}

	// ── build components ─────────────────────────────────────────
	srv := server.New(cfg, shell.NewFilesystem(), logger, metrics.New())
	if err := srv.Start(); err != nil {
		return err
	}
	fmt.Printf("Telnet server started successfully on %s\n", srv.Addr())

	return run(ctx, cfg, srv, logger)
}

// run serves until the accept loop stops, with the operator console
// attached to stdin unless it is disabled.
func run(ctx context.Context, cfg *config.Config, srv *server.Server, logger *util.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	served := make(chan error, 1)
	go func() { served <- srv.Serve(ctx) }()

	restore := func() {}
	if !cfg.NoConsole {
		c, r, err := console.Open(srv, os.Stdin, os.Stdout, logger)
		if err != nil {
			logger.Warn("operator console unavailable: %v", err)
		} else {
			var once sync.Once
			restore = func() { once.Do(r) }
			go func() {
				defer restore()
				if err := c.Run(ctx); err != nil {
					logger.Error("%v", err)
				}
			}()
		}
	}

	err := <-served
	restore()

	if !srv.Wait(shutdownGrace) {
		logger.Warn("sessions still running after %s", shutdownGrace)
	}
	return err
}

// ── helpers ──────────────────────────────────────────────────────────

// applyPort sets cfg.Port from -p or, failing that, from a positional
// port argument.  A positional value that does not parse is returned
// so the caller can report it; the port already configured is kept.
func applyPort(cfg *config.Config, fs *flag.FlagSet, flagPort int) (string, error) {
	rest := fs.Args()
	if len(rest) > 1 {
		return "", fmt.Errorf("too many arguments (use --help for usage)")
	}

	if fs.Changed("port") {
		cfg.Port = flagPort
		return "", nil
	}
	if len(rest) == 1 {
		p, err := config.ParsePort(rest[0])
		if err != nil {
			return rest[0], nil
		}
		cfg.Port = p
	}
	return "", nil
}

func printUsage(fs *flag.FlagSet) {
	fmt.Fprintf(os.Stderr, `telnetd – minimal remote shell server v%s

Serves a small command set (ls/dir, cd, pwd, mkdir, ?, quit) to
telnet clients, one session per connection.

Usage:
  telnetd [options] [port]

Options:
`, version)
	fs.PrintDefaults()
	fmt.Fprintf(os.Stderr, `
Examples:
  telnetd                                     Listen on %d
  telnetd 2323                                Listen on 2323
  telnetd -H 127.0.0.1 -m 10 -v               Loopback only, 10 sessions
  telnetd --no-console -c telnetd.yaml        Run detached from a config file
`, config.DefaultPort)
}
