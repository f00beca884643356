// Package xpnerr defines the errno-style sentinel errors shared by the
// client and server halves of XPN, and the wire status struct that
// carries them across a transport.
package xpnerr

import (
	"github.com/pkg/errors"
)

// Sentinel errors. Handlers and the client compare against these with
// errors.Is; MapErrno replaces a backend filesystem error with the
// matching sentinel where one exists and returns any other one
// unchanged, so its os.PathError survives for logging.
var (
	// ErrBadAddress is returned when a caller passes a nil buffer to
	// pread/pwrite.
	ErrBadAddress = errors.New("bad address")
	// ErrBadFd is returned for a read on a write-only fd, a write on a
	// read-only fd, or an operation against an unknown fd.
	ErrBadFd = errors.New("bad file descriptor")
	// ErrIsDir is returned for read/write against a directory handle.
	ErrIsDir = errors.New("is a directory")
	// ErrNotFound is returned when a path resolves outside any mounted
	// partition, or the backing file genuinely does not exist.
	ErrNotFound = errors.New("not found")
	// ErrNotDir is returned when a directory operation targets a file.
	ErrNotDir = errors.New("not a directory")
	// ErrShortWrite names a replicated write that no replica accepted.
	// The client's pwrite does not return it: when every op fails it
	// reports the first op's error.
	ErrShortWrite = errors.New("short write: no replica accepted the data")
	// ErrUnavailable is returned by a transport or server marked
	// errored, and by the mpi/fabric transport stubs (see transport
	// package doc).
	ErrUnavailable = errors.New("server unavailable")
	// ErrAllReplicasErrored is returned by a read when every replica of
	// a block has been marked errored.
	ErrAllReplicasErrored = errors.New("all replicas errored")
	// ErrClosed is returned by operations against a closed connection
	// or file descriptor.
	ErrClosed = errors.New("use of closed file descriptor")
	// ErrInvalidMetadata is returned when a metadata header's magic
	// does not match and the caller required a valid header.
	ErrInvalidMetadata = errors.New("invalid metadata header")
)

// Status is the wire-level {ret, server_errno} pair that accompanies
// most server responses (§7). Ret is a coarse success/fail code;
// Errno carries the backing OS errno when the failure originated in
// the backing filesystem, 0 otherwise.
type Status struct {
	Ret   int32
	Errno int32
}

// OK reports whether the status represents success.
func (s Status) OK() bool { return s.Ret >= 0 }

// StatusOK is the zero-value success status.
var StatusOK = Status{Ret: 0, Errno: 0}

// FromError maps an error to a wire Status, extracting a syscall errno
// when present and falling back to -1/0 for XPN-level sentinel errors.
func FromError(err error) Status {
	if err == nil {
		return StatusOK
	}
	if errno, ok := Errno(err); ok {
		return Status{Ret: -1, Errno: int32(errno)}
	}
	return Status{Ret: -1, Errno: 0}
}

// ToError turns a wire Status back into an error for the client side.
// It does not attempt to reconstruct the original backing error type;
// callers that need finer detail should consult Errno directly.
func ToError(s Status) error {
	if s.OK() {
		return nil
	}
	if s.Errno != 0 {
		return errors.Errorf("remote errno %d", s.Errno)
	}
	return errors.New("remote operation failed")
}
