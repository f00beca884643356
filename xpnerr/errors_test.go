package xpnerr

import (
	"os"
	"syscall"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestStatusOK(t *testing.T) {
	require.True(t, StatusOK.OK())
	require.True(t, Status{Ret: 0}.OK())
	require.False(t, Status{Ret: -1, Errno: int32(syscall.ENOENT)}.OK())
}

func TestFromError(t *testing.T) {
	require.Equal(t, StatusOK, FromError(nil))

	pathErr := &os.PathError{Op: "open", Path: "/x", Err: syscall.ENOENT}
	got := FromError(pathErr)
	require.False(t, got.OK())
	require.Equal(t, int32(syscall.ENOENT), got.Errno)

	got = FromError(ErrBadFd)
	require.False(t, got.OK())
	require.Equal(t, int32(0), got.Errno)
}

func TestToError(t *testing.T) {
	require.NoError(t, ToError(StatusOK))

	err := ToError(Status{Ret: -1, Errno: int32(syscall.ENOTDIR)})
	require.Error(t, err)

	err = ToError(Status{Ret: -1})
	require.Error(t, err)
}

func TestErrno(t *testing.T) {
	_, ok := Errno(ErrNotFound)
	require.False(t, ok)

	pathErr := &os.PathError{Op: "stat", Path: "/x", Err: syscall.EISDIR}
	errno, ok := Errno(pathErr)
	require.True(t, ok)
	require.Equal(t, syscall.EISDIR, errno)

	wrapped := errors.Wrap(pathErr, "resolve")
	errno, ok = Errno(wrapped)
	require.True(t, ok)
	require.Equal(t, syscall.EISDIR, errno)
}

func TestMapErrno(t *testing.T) {
	require.NoError(t, MapErrno(nil))

	cases := []struct {
		errno syscall.Errno
		want  error
	}{
		{syscall.ENOENT, ErrNotFound},
		{syscall.EISDIR, ErrIsDir},
		{syscall.ENOTDIR, ErrNotDir},
	}
	for _, c := range cases {
		pathErr := &os.PathError{Op: "stat", Path: "/x", Err: c.errno}
		require.Equal(t, c.want, MapErrno(pathErr))
	}

	// Unrecognized errno: returned unchanged.
	pathErr := &os.PathError{Op: "stat", Path: "/x", Err: syscall.EACCES}
	require.Equal(t, pathErr, MapErrno(pathErr))
}
