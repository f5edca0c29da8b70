// Package shell implements the line-oriented command language served
// to every session: directory listing, a virtual working directory and
// directory creation.
//
// A Shell belongs to exactly one session.  Its working directory is
// private to that session; the Filesystem it delegates to may be
// shared.
package shell

import (
	"context"
	"os"
	"path/filepath"
	"strings"
)

// Prompt suffix written after the working directory.
const promptSuffix = "> "

// Fixed response strings.
const (
	MsgUnsupported      = "Supplied command is not supported - Enter '?' for list of valid commands"
	MsgConnectionClosed = "Connection closed"
)

// Result is the outcome of executing one input line.
type Result struct {
	// Output is written back to the client, possibly empty.
	Output string
	// Close asks the session to close its connection once Output has
	// been sent.
	Close bool
}

// Shell executes commands against a Filesystem on behalf of one
// session.
type Shell struct {
	fs      Filesystem
	windows bool
	cwd     string
}

// New returns a Shell.  windows selects the dir flavour of the help
// text.
func New(fsys Filesystem, windows bool) *Shell {
	return &Shell{
		fs:      fsys,
		windows: windows,
	}
}

// Cwd returns the current working directory, initialising it to the
// process working directory on first use.
func (s *Shell) Cwd() string {
	if s.cwd == "" {
		wd, err := os.Getwd()
		if err != nil {
			wd = string(filepath.Separator)
		}
		s.cwd = wd
	}
	return s.cwd
}

// Prompt returns the prompt shown before each command.
func (s *Shell) Prompt() string {
	return s.Cwd() + promptSuffix
}

// Exec runs one input line and returns the response.
func (s *Shell) Exec(ctx context.Context, line string) Result {
	cmd, args := parse(line)

	switch cmd {
	case cmdNone:
		return Result{}
	case cmdList:
		if len(args) > 0 {
			return Result{Output: s.list(ctx, args[0])}
		}
		return Result{Output: s.list(ctx, "")}
	case cmdChdir:
		if len(args) == 0 {
			return Result{}
		}
		return Result{Output: s.chdir(ctx, args[0])}
	case cmdPwd:
		return Result{Output: s.Cwd()}
	case cmdMkdir:
		return Result{Output: s.mkdir(ctx, args)}
	case cmdHelp:
		return Result{Output: s.Help()}
	case cmdQuit:
		return Result{Output: MsgConnectionClosed, Close: true}
	default:
		return Result{Output: MsgUnsupported}
	}
}

// ── parsing ──────────────────────────────────────────────────────────

type command int

const (
	cmdNone command = iota
	cmdList
	cmdChdir
	cmdPwd
	cmdMkdir
	cmdHelp
	cmdQuit
	cmdUnknown
)

// parse splits line on runs of whitespace and classifies the keyword.
func parse(line string) (command, []string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return cmdNone, nil
	}

	keyword, args := fields[0], fields[1:]
	switch {
	case strings.EqualFold(keyword, "ls"), strings.EqualFold(keyword, "dir"):
		return cmdList, args
	case strings.EqualFold(keyword, "cd"):
		return cmdChdir, args
	case strings.EqualFold(keyword, "pwd"):
		return cmdPwd, args
	case strings.EqualFold(keyword, "mkdir"):
		return cmdMkdir, args
	case keyword == "?":
		return cmdHelp, args
	case keyword == "quit":
		return cmdQuit, args
	default:
		return cmdUnknown, args
	}
}

// ── paths ────────────────────────────────────────────────────────────

// resolve turns a user-supplied path into a canonical absolute path:
// relative paths start from the working directory, "." and ".." are
// collapsed and symlinks are followed when the target exists.
func (s *Shell) resolve(p string) string {
	switch {
	case filepath.IsAbs(p):
	case s.windows && (strings.HasPrefix(p, `\`) || strings.HasPrefix(p, "/")):
		p = filepath.VolumeName(s.Cwd()) + p
	default:
		p = filepath.Join(s.Cwd(), p)
	}

	p = filepath.Clean(p)
	if real, err := filepath.EvalSymlinks(p); err == nil {
		return real
	}
	return p
}
