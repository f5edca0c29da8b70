package shell

import (
	"context"
	"sort"
	"strings"
)

const lineBreak = "\r\n"

// Help returns the command summary.  The listing command is shown as
// dir on Windows and ls elsewhere; both names are always accepted.
func (s *Shell) Help() string {
	lines := []string{
		"?   - Display this help menu.",
	}
	if s.windows {
		lines = append(lines, "dir - List the current working directory.")
	} else {
		lines = append(lines, "ls  - List the current working directory.")
	}
	lines = append(lines,
		"cd <DIRECTORY_NAME> - Change the current working directory to the provided arguments.",
		"pwd - Display the current working directory.",
		"mkdir <DIRECTORY_NAME>... - Create one or more directories.",
		"quit - To disconnect.",
	)
	return strings.Join(lines, lineBreak) + lineBreak
}

// list renders the directory at target, or the working directory when
// target is empty.  Directories are marked with <DIR>.
func (s *Shell) list(ctx context.Context, target string) string {
	dir := s.Cwd()
	name := dir
	if target != "" {
		dir = s.resolve(target)
		name = target
	}

	info, err := s.fs.Stat(ctx, dir)
	if err != nil || !info.IsDir() {
		return name + " - either it is not a directory or it does not exist"
	}
	entries, err := s.fs.ReadDir(ctx, dir)
	if err != nil {
		return name + " - either it is not a directory or it does not exist"
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })

	var b strings.Builder
	for i, e := range entries {
		if i > 0 {
			b.WriteString(lineBreak)
		}
		if e.IsDir {
			b.WriteString("<DIR>   ")
		} else {
			b.WriteString("        ")
		}
		b.WriteString(e.Name)
	}
	return b.String()
}

// chdir moves the working directory to target.  It returns an empty
// string on success and an error line otherwise; on error the working
// directory is unchanged.
func (s *Shell) chdir(ctx context.Context, target string) string {
	dir := s.resolve(target)

	info, err := s.fs.Stat(ctx, dir)
	if err != nil {
		return target + " - does not exist"
	}
	if !info.IsDir() {
		return target + " - is not a directory"
	}
	s.cwd = dir
	return ""
}

// mkdir creates each named directory in order and stops at the first
// failure.  Directories created before the failure are kept.
func (s *Shell) mkdir(ctx context.Context, names []string) string {
	for _, name := range names {
		if err := s.fs.MkdirAll(ctx, s.resolve(name)); err != nil {
			return "Failed to create directory '" + name + "'"
		}
	}
	return ""
}
