package shell

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// osFS is a Filesystem over the os package, independent of afs.
type osFS struct{}

func (osFS) Stat(_ context.Context, path string) (fs.FileInfo, error) { return os.Stat(path) }

func (osFS) ReadDir(_ context.Context, path string) ([]Entry, error) {
	items, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(items))
	for _, it := range items {
		out = append(out, Entry{Name: it.Name(), IsDir: it.IsDir()})
	}
	return out, nil
}

func (osFS) MkdirAll(_ context.Context, path string) error {
	if _, err := os.Stat(path); err == nil {
		return &fs.PathError{Op: "mkdir", Path: path, Err: fs.ErrExist}
	}
	return os.MkdirAll(path, 0o755)
}

// failingFS refuses to create directories whose base name is in fail.
type failingFS struct {
	osFS
	fail map[string]bool
}

func (f failingFS) MkdirAll(ctx context.Context, path string) error {
	if f.fail[filepath.Base(path)] {
		return errors.New("permission denied")
	}
	return f.osFS.MkdirAll(ctx, path)
}

func canonical(t *testing.T, p string) string {
	t.Helper()
	real, err := filepath.EvalSymlinks(p)
	require.NoError(t, err)
	return real
}

func newShellIn(t *testing.T, fsys Filesystem, dir string) *Shell {
	t.Helper()
	sh := New(fsys, false)
	require.Equal(t, "", sh.Exec(context.Background(), "cd "+dir).Output)
	return sh
}

func TestParse(t *testing.T) {
	cmd, args := parse("ls      test  something   else")
	assert.Equal(t, cmdList, cmd)
	require.Len(t, args, 3)
	assert.Equal(t, "something", args[1])

	tests := []struct {
		line string
		want command
	}{
		{"", cmdNone},
		{"   ", cmdNone},
		{"LS", cmdList},
		{"Dir", cmdList},
		{"CD /", cmdChdir},
		{"pwd", cmdPwd},
		{"MKDIR a", cmdMkdir},
		{"?", cmdHelp},
		{"quit", cmdQuit},
		{"QUIT", cmdUnknown},
		{"somecrap", cmdUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, _ := parse(tt.line)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExec_EmptyAndUnknown(t *testing.T) {
	sh := New(osFS{}, false)
	ctx := context.Background()

	assert.Equal(t, Result{}, sh.Exec(ctx, ""))
	assert.Equal(t, Result{}, sh.Exec(ctx, "    "))
	assert.Equal(t, MsgUnsupported, sh.Exec(ctx, "somecrap").Output)
}

func TestExec_Pwd(t *testing.T) {
	sh := New(osFS{}, false)
	wd, err := os.Getwd()
	require.NoError(t, err)

	assert.Equal(t, wd, sh.Exec(context.Background(), "pwd").Output)
	assert.Equal(t, wd+"> ", sh.Prompt())
}

func TestExec_List(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "file.txt"), []byte("x"), 0o644))

	sh := newShellIn(t, osFS{}, dir)
	ctx := context.Background()

	out := sh.Exec(ctx, "ls").Output
	lines := strings.Split(out, "\r\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "        file.txt", lines[0])
	assert.Equal(t, "<DIR>   sub", lines[1])

	assert.Equal(t, "<DIR>   sub", strings.Split(sh.Exec(ctx, "dir "+dir).Output, "\r\n")[1])
	assert.Equal(t, "", sh.Exec(ctx, "ls sub").Output, "empty directory lists nothing")
	assert.NotEmpty(t, sh.Exec(ctx, "ls /").Output)
	assert.NotEmpty(t, sh.Exec(ctx, "dir ..").Output)
}

func TestExec_ListMissing(t *testing.T) {
	sh := newShellIn(t, osFS{}, t.TempDir())
	ctx := context.Background()

	assert.Equal(t,
		"somethingWhichIsNotExpected - either it is not a directory or it does not exist",
		sh.Exec(ctx, "ls somethingWhichIsNotExpected").Output)

	require.NoError(t, os.WriteFile(filepath.Join(sh.Cwd(), "plain"), nil, 0o644))
	assert.Equal(t,
		"plain - either it is not a directory or it does not exist",
		sh.Exec(ctx, "ls plain").Output)
}

func TestExec_Chdir(t *testing.T) {
	root := t.TempDir()
	child := filepath.Join(root, "child")
	require.NoError(t, os.Mkdir(child, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes"), nil, 0o644))

	sh := newShellIn(t, osFS{}, root)
	ctx := context.Background()
	start := sh.Exec(ctx, "pwd").Output
	assert.Equal(t, canonical(t, root), start)

	t.Run("missing", func(t *testing.T) {
		assert.Equal(t, "nowhere - does not exist", sh.Exec(ctx, "cd nowhere").Output)
		assert.Equal(t, start, sh.Exec(ctx, "pwd").Output)
	})

	t.Run("not a directory", func(t *testing.T) {
		assert.Equal(t, "notes - is not a directory", sh.Exec(ctx, "cd notes").Output)
		assert.Equal(t, start, sh.Exec(ctx, "pwd").Output)
	})

	t.Run("no argument", func(t *testing.T) {
		assert.Equal(t, "", sh.Exec(ctx, "cd").Output)
		assert.Equal(t, start, sh.Exec(ctx, "pwd").Output)
	})

	t.Run("relative and back", func(t *testing.T) {
		assert.Equal(t, "", sh.Exec(ctx, "cd child").Output)
		assert.Equal(t, canonical(t, child), sh.Exec(ctx, "pwd").Output)

		assert.Equal(t, "", sh.Exec(ctx, "cd ..").Output)
		assert.Equal(t, canonical(t, root), sh.Exec(ctx, "pwd").Output)
	})

	t.Run("absolute", func(t *testing.T) {
		assert.Equal(t, "", sh.Exec(ctx, "cd "+child).Output)
		assert.Equal(t, canonical(t, child), sh.Cwd())
	})

	t.Run("root", func(t *testing.T) {
		prev := sh.Cwd()
		assert.Equal(t, "", sh.Exec(ctx, "cd /").Output)
		assert.True(t, strings.HasPrefix(prev, sh.Cwd()))
	})
}

func TestExec_Mkdir(t *testing.T) {
	root := t.TempDir()
	sh := newShellIn(t, osFS{}, root)
	ctx := context.Background()

	assert.Equal(t, "", sh.Exec(ctx, "mkdir").Output)

	assert.Equal(t, "", sh.Exec(ctx, "mkdir one two/three").Output)
	assert.DirExists(t, filepath.Join(root, "one"))
	assert.DirExists(t, filepath.Join(root, "two", "three"))

	assert.Equal(t, "Failed to create directory 'one'", sh.Exec(ctx, "mkdir one").Output)
}

func TestExec_MkdirPartial(t *testing.T) {
	root := t.TempDir()
	sh := newShellIn(t, failingFS{fail: map[string]bool{"b": true}}, root)

	out := sh.Exec(context.Background(), "mkdir a b c").Output
	assert.Equal(t, "Failed to create directory 'b'", out)
	assert.DirExists(t, filepath.Join(root, "a"))
	assert.NoDirExists(t, filepath.Join(root, "c"))
}

func TestExec_Help(t *testing.T) {
	ctx := context.Background()

	win := New(osFS{}, true).Exec(ctx, "?").Output
	assert.Contains(t, win, "dir - List the current working directory.")

	unix := New(osFS{}, false).Exec(ctx, "?").Output
	assert.Contains(t, unix, "ls  - List the current working directory.")
	assert.Contains(t, unix, "quit - To disconnect.")
}

func TestExec_Quit(t *testing.T) {
	res := New(osFS{}, false).Exec(context.Background(), "quit")
	assert.Equal(t, Result{Output: "Connection closed", Close: true}, res)
}

func TestAFSFilesystem(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "file.txt"), []byte("x"), 0o644))

	fsys := NewFilesystem()
	ctx := context.Background()

	info, err := fsys.Stat(ctx, root)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	_, err = fsys.Stat(ctx, filepath.Join(root, "absent"))
	assert.ErrorIs(t, err, fs.ErrNotExist)

	entries, err := fsys.ReadDir(ctx, root)
	require.NoError(t, err)
	assert.ElementsMatch(t, []Entry{{Name: "sub", IsDir: true}, {Name: "file.txt"}}, entries)

	require.NoError(t, fsys.MkdirAll(ctx, filepath.Join(root, "x", "y")))
	assert.DirExists(t, filepath.Join(root, "x", "y"))
	assert.ErrorIs(t, fsys.MkdirAll(ctx, filepath.Join(root, "sub")), fs.ErrExist)
}
