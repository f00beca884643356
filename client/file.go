package client

import (
	"context"
	"io"
	"os"
	"sync"

	"github.com/xpn-project/xpn/partition"
	"github.com/xpn-project/xpn/wire"
)

// accessModeMask isolates the O_RDONLY/O_WRONLY/O_RDWR bits of an open
// flags word, matching the POSIX O_ACCMODE mask the original checks
// the same way against (§4.2 step 1, §7 access-mode policy errors).
const accessModeMask = 0x3

// FileHandle is the client-side record of one open file: the cached
// metadata header, the current seek offset, and the lazily-initialized
// virtual file handle on each server that holds a piece of it (§4.2
// GLOSSARY "Virtual FH"). dup/dup2 share the same *FileHandle, so
// writes through either fd observe the same offset and per-server
// cache, matching the source's FH-sharing semantics rather than a
// POSIX-style independent file description per fd.
type FileHandle struct {
	Path      string
	Flags     int32
	Mode      uint32
	FirstNode uint32
	IsDir     bool

	// DirMaster and dirCursor hold the opendir state for a directory
	// handle: the master-file server that owns the cursor, and its
	// current opaque value (Open Question #3: one uint64 cursor type
	// serving both session and sessionless server modes).
	DirMaster partition.ServerID
	dirMu     sync.Mutex
	dirCursor wire.DirCursor

	offMu  sync.Mutex
	offset int64

	sizeMu sync.Mutex
	size   uint64

	vfhMu sync.Mutex
	vfh   map[partition.ServerID]int32 // server-side fd, once opened
}

func newFileHandle(path string, flags int32, mode uint32, header wire.MetadataHeader) *FileHandle {
	return &FileHandle{
		Path:      path,
		Flags:     flags,
		Mode:      mode,
		FirstNode: header.FirstNode,
		size:      header.FileSize,
		vfh:       make(map[partition.ServerID]int32),
	}
}

// Offset returns the handle's current seek position.
func (f *FileHandle) Offset() int64 {
	f.offMu.Lock()
	defer f.offMu.Unlock()
	return f.offset
}

// Seek implements lseek's three whence modes (GLOSSARY, §2 xpn_lseek).
func (f *FileHandle) Seek(off int64, whence int) (int64, error) {
	f.offMu.Lock()
	defer f.offMu.Unlock()
	var base int64
	switch whence {
	case io.SeekStart:
		base = 0
	case io.SeekCurrent:
		base = f.offset
	case io.SeekEnd:
		f.sizeMu.Lock()
		base = int64(f.size)
		f.sizeMu.Unlock()
	default:
		return 0, errInvalidWhence
	}
	newOff := base + off
	if newOff < 0 {
		return 0, errInvalidWhence
	}
	f.offset = newOff
	return newOff, nil
}

func (f *FileHandle) advance(n int64) {
	f.offMu.Lock()
	f.offset += n
	f.offMu.Unlock()
}

// readable reports whether the handle was opened for reading.
func (f *FileHandle) readable() bool {
	mode := f.Flags & accessModeMask
	return mode == os.O_RDONLY || mode == os.O_RDWR
}

// writable reports whether the handle was opened for writing.
func (f *FileHandle) writable() bool {
	mode := f.Flags & accessModeMask
	return mode == os.O_WRONLY || mode == os.O_RDWR
}

// Size returns the handle's cached file size.
func (f *FileHandle) Size() uint64 {
	f.sizeMu.Lock()
	defer f.sizeMu.Unlock()
	return f.size
}

// bumpSize advances the cached size if end exceeds it, reporting
// whether it changed (so callers know to push a WRITE_MDATA_FILE_SIZE,
// §4.2 step 6).
func (f *FileHandle) bumpSize(end uint64) bool {
	f.sizeMu.Lock()
	defer f.sizeMu.Unlock()
	if end > f.size {
		f.size = end
		return true
	}
	return false
}

// ensureVFH opens the server-local backing file on demand the first
// time this handle touches server id, then reuses the resulting fd
// (GLOSSARY "Virtual FH": "initialize-on-first-use with a once-flag
// per slot"). Writable handles add O_CREAT, since only the master
// server and the metadata replicas hold the file after Creat.
func (f *FileHandle) ensureVFH(ctx context.Context, srv *servers, id partition.ServerID) (int32, error) {
	f.vfhMu.Lock()
	defer f.vfhMu.Unlock()
	if fd, ok := f.vfh[id]; ok {
		return fd, nil
	}

	flags := f.Flags
	if f.writable() {
		flags |= int32(os.O_CREAT)
	}
	req := wire.OpenFileRequest{Path: f.Path, Flags: flags, Mode: f.Mode}
	resp, err := srv.call(ctx, id, wire.Envelope{Op: wire.OpOpenFile, Body: req.Marshal()})
	if err != nil {
		return 0, err
	}
	parsed, err := wire.UnmarshalFdResponse(resp.Body)
	if err != nil {
		return 0, err
	}
	if !parsed.Status.OK() {
		return 0, statusError(parsed.Status)
	}
	f.vfh[id] = parsed.Fd
	return parsed.Fd, nil
}

// cursor returns the directory handle's current cursor.
func (f *FileHandle) cursor() wire.DirCursor {
	f.dirMu.Lock()
	defer f.dirMu.Unlock()
	return f.dirCursor
}

// setCursor advances the directory handle's cursor.
func (f *FileHandle) setCursor(c wire.DirCursor) {
	f.dirMu.Lock()
	f.dirCursor = c
	f.dirMu.Unlock()
}

// closeAll closes every opened per-server virtual FH, called once the
// last client fd referencing this handle is closed.
func (f *FileHandle) closeAll(ctx context.Context, srv *servers) error {
	f.vfhMu.Lock()
	defer f.vfhMu.Unlock()
	var firstErr error
	for id, fd := range f.vfh {
		req := wire.FdRequest{Fd: fd}
		resp, err := srv.call(ctx, id, wire.Envelope{Op: wire.OpCloseFile, Body: req.Marshal()})
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		status, err := wire.UnmarshalStatusResponse(resp.Body)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if !status.Status.OK() && firstErr == nil {
			firstErr = statusError(status.Status)
		}
	}
	f.vfh = make(map[partition.ServerID]int32)
	return firstErr
}
