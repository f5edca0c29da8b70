package shell

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
)

// Entry is one item of a directory listing.
type Entry struct {
	Name  string
	IsDir bool
}

// Filesystem is the storage the directory commands operate on.  Paths
// are absolute host paths.
type Filesystem interface {
	// Stat describes path.  A missing path yields an error matching
	// fs.ErrNotExist.
	Stat(ctx context.Context, path string) (fs.FileInfo, error)

	// ReadDir lists the direct children of the directory at path.
	ReadDir(ctx context.Context, path string) ([]Entry, error)

	// MkdirAll creates path and any missing parents.  It fails with
	// fs.ErrExist when path is already present.
	MkdirAll(ctx context.Context, path string) error
}

// afsFilesystem serves the host filesystem through viant/afs.
type afsFilesystem struct {
	service afs.Service
}

// NewFilesystem returns the default host-backed Filesystem.
func NewFilesystem() Filesystem {
	return &afsFilesystem{service: afs.New()}
}

func fileURL(path string) string {
	p := filepath.ToSlash(path)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return "file://" + p
}

func (a *afsFilesystem) Stat(ctx context.Context, path string) (fs.FileInfo, error) {
	URL := fileURL(path)
	ok, err := a.service.Exists(ctx, URL)
	if err != nil {
		return nil, &fs.PathError{Op: "stat", Path: path, Err: err}
	}
	if !ok {
		return nil, &fs.PathError{Op: "stat", Path: path, Err: fs.ErrNotExist}
	}
	object, err := a.service.Object(ctx, URL)
	if err != nil {
		return nil, &fs.PathError{Op: "stat", Path: path, Err: err}
	}
	return object, nil
}

func (a *afsFilesystem) ReadDir(ctx context.Context, path string) ([]Entry, error) {
	URL := fileURL(path)
	objects, err := a.service.List(ctx, URL)
	if err != nil {
		return nil, &fs.PathError{Op: "readdir", Path: path, Err: err}
	}

	self := strings.TrimRight(URL, "/")
	base := filepath.Base(path)
	entries := make([]Entry, 0, len(objects))
	for i, object := range objects {
		// afs reports the listed directory itself as the first object.
		if strings.TrimRight(object.URL(), "/") == self {
			continue
		}
		if i == 0 && object.IsDir() && object.Name() == base {
			continue
		}
		entries = append(entries, Entry{Name: object.Name(), IsDir: object.IsDir()})
	}
	return entries, nil
}

func (a *afsFilesystem) MkdirAll(ctx context.Context, path string) error {
	URL := fileURL(path)
	if ok, _ := a.service.Exists(ctx, URL); ok {
		return &fs.PathError{Op: "mkdir", Path: path, Err: fs.ErrExist}
	}
	if err := a.service.Create(ctx, URL, file.DefaultDirOsMode, true); err != nil {
		return &fs.PathError{Op: "mkdir", Path: path, Err: err}
	}
	return nil
}
