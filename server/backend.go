// Package server implements the XPN server dispatcher: the
// connection state machine, control side-channel, and per-opcode op
// handlers (§4.4, §4.5), grounded on backend/local's POSIX operations
// and backend/raid3/health.go's availability-check idiom (reused here
// as the "mark errored" semantics the client applies per server).
package server

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/xpn-project/xpn/wire"
	"github.com/xpn-project/xpn/xpnerr"
)

// Backend is the backing POSIX filesystem one server instance serves
// out of a single root directory. It is the server-side analogue of
// backend/local's Fs, scoped down to the calls the op catalog needs.
type Backend struct {
	root string

	dirMu sync.Mutex
	dirs  map[wire.DirCursor]*os.File
	nextC wire.DirCursor
}

// NewBackend roots a Backend at dir, creating it if absent.
func NewBackend(dir string) (*Backend, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrapf(err, "server: creating root %q", dir)
	}
	return &Backend{root: dir, dirs: make(map[wire.DirCursor]*os.File)}, nil
}

func (b *Backend) resolve(path string) string {
	return filepath.Join(b.root, filepath.Clean("/"+path))
}

// Open implements OPEN_FILE/CREAT_FILE's backing open(2) call.
func (b *Backend) Open(path string, flags int, mode os.FileMode) (*os.File, error) {
	f, err := os.OpenFile(b.resolve(path), flags, mode)
	if err != nil {
		return nil, xpnerr.MapErrno(err)
	}
	return f, nil
}

// Remove implements RM_FILE/RM_FILE_ASYNC.
func (b *Backend) Remove(path string) error {
	if err := os.Remove(b.resolve(path)); err != nil {
		return xpnerr.MapErrno(err)
	}
	return nil
}

// Rename implements RENAME_FILE.
func (b *Backend) Rename(oldPath, newPath string) error {
	if err := os.Rename(b.resolve(oldPath), b.resolve(newPath)); err != nil {
		return xpnerr.MapErrno(err)
	}
	return nil
}

// Stat implements GETATTR_FILE.
func (b *Backend) Stat(path string) (wire.Attr, error) {
	fi, err := os.Stat(b.resolve(path))
	if err != nil {
		return wire.Attr{}, xpnerr.MapErrno(err)
	}
	return wire.Attr{
		Size:  fi.Size(),
		Mode:  uint32(fi.Mode().Perm()),
		Mtime: fi.ModTime().Unix(),
		IsDir: fi.IsDir(),
	}, nil
}

// Mkdir implements MKDIR.
func (b *Backend) Mkdir(path string, mode os.FileMode) error {
	if err := os.Mkdir(b.resolve(path), mode); err != nil {
		return xpnerr.MapErrno(err)
	}
	return nil
}

// Rmdir implements RMDIR/RMDIR_ASYNC.
func (b *Backend) Rmdir(path string) error {
	if err := os.Remove(b.resolve(path)); err != nil {
		return xpnerr.MapErrno(err)
	}
	return nil
}

// Opendir opens path for directory listing and allocates a cursor for
// it (§9's normalized-cursor decision: session mode still parks the
// real *os.File, keyed by the same opaque cursor sessionless mode
// would carry).
func (b *Backend) Opendir(path string) (wire.DirCursor, error) {
	f, err := os.Open(b.resolve(path))
	if err != nil {
		return 0, xpnerr.MapErrno(err)
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return 0, xpnerr.MapErrno(err)
	}
	if !fi.IsDir() {
		f.Close()
		return 0, xpnerr.ErrNotDir
	}

	b.dirMu.Lock()
	defer b.dirMu.Unlock()
	b.nextC++
	c := b.nextC
	b.dirs[c] = f
	return c, nil
}

// Readdir returns the next entry for cursor, or end=true once
// exhausted.
func (b *Backend) Readdir(c wire.DirCursor) (name string, end bool, err error) {
	b.dirMu.Lock()
	f, ok := b.dirs[c]
	b.dirMu.Unlock()
	if !ok {
		return "", false, xpnerr.ErrBadFd
	}
	names, err := f.Readdirnames(1)
	if err != nil {
		return "", true, nil // EOF or otherwise exhausted: end of directory
	}
	if len(names) == 0 {
		return "", true, nil
	}
	return names[0], false, nil
}

// Closedir releases a directory cursor.
func (b *Backend) Closedir(c wire.DirCursor) error {
	b.dirMu.Lock()
	f, ok := b.dirs[c]
	delete(b.dirs, c)
	b.dirMu.Unlock()
	if !ok {
		return xpnerr.ErrBadFd
	}
	return f.Close()
}

// Statvfs implements STATVFS.
func (b *Backend) Statvfs(path string) (wire.StatvfsResponse, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(b.resolve(path), &st); err != nil {
		return wire.StatvfsResponse{}, xpnerr.MapErrno(err)
	}
	return wire.StatvfsResponse{
		Status: xpnerr.StatusOK,
		Bsize:  uint64(st.Bsize),
		Blocks: st.Blocks,
		Bfree:  st.Bfree,
		Bavail: st.Bavail,
		Files:  st.Files,
		Ffree:  st.Ffree,
	}, nil
}
