package xpnerr

import (
	"errors"
	"io/fs"
	"syscall"
)

// Errno extracts the backing OS errno from a filesystem error, the
// way backend/local's platform-specific helpers unwrap syscall.Errno
// from an *os.PathError. Returns ok=false for XPN-level sentinel
// errors that never touched the OS.
func Errno(err error) (syscall.Errno, bool) {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno, true
	}
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return Errno(pathErr.Err)
	}
	return 0, false
}

// MapErrno turns a raw backing-filesystem error into an XPN sentinel
// where one exists (ENOENT -> ErrNotFound, EISDIR -> ErrIsDir, ...),
// otherwise returns it unchanged.
func MapErrno(err error) error {
	if err == nil {
		return nil
	}
	errno, ok := Errno(err)
	if !ok {
		return err
	}
	switch errno {
	case syscall.ENOENT:
		return ErrNotFound
	case syscall.EISDIR:
		return ErrIsDir
	case syscall.ENOTDIR:
		return ErrNotDir
	default:
		return err
	}
}
