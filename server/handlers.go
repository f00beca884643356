package server

import (
	"context"
	"io"
	"os"
	"sync"

	"github.com/xpn-project/xpn/wire"
	"github.com/xpn-project/xpn/xpnerr"
)

// maxBufferSize bounds one READ_FILE/WRITE_FILE chunk (§4.5: "fixed
// upper bound MAX_BUFFER_SIZE").
const maxBufferSize = 1 << 20

// fdTable is the per-connection open-file table: server-side fds are
// scoped to one connection in session mode (§3 "Session mode").
type fdTable struct {
	mu   sync.Mutex
	next int32
	open map[int32]*os.File
}

func newFdTable() *fdTable {
	return &fdTable{open: make(map[int32]*os.File)}
}

func (t *fdTable) alloc(f *os.File) int32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.next++
	fd := t.next
	t.open[fd] = f
	return fd
}

func (t *fdTable) get(fd int32) (*os.File, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	f, ok := t.open[fd]
	return f, ok
}

// release removes fd from the table and returns the backing file
// without closing it, so closeFd can close outside the lock.
func (t *fdTable) release(fd int32) (*os.File, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	f, ok := t.open[fd]
	if ok {
		delete(t.open, fd)
	}
	return f, ok
}

// connState is the per-connection handler context: a shared Backend
// plus this connection's fd table and stats counters.
type connState struct {
	backend *Backend
	fds     *fdTable
	stats   *Stats
}

func newConnState(b *Backend, stats *Stats) *connState {
	return &connState{backend: b, fds: newFdTable(), stats: stats}
}

func (c *connState) handleOpenFile(body []byte) []byte {
	req, err := wire.UnmarshalOpenFileRequest(body)
	if err != nil {
		return wire.FdResponse{Status: xpnerr.FromError(err)}.Marshal()
	}
	f, err := c.backend.Open(req.Path, int(req.Flags), os.FileMode(req.Mode))
	if err != nil {
		return wire.FdResponse{Status: xpnerr.FromError(err)}.Marshal()
	}
	fd := c.fds.alloc(f)
	return wire.FdResponse{Status: xpnerr.StatusOK, Fd: fd}.Marshal()
}

func (c *connState) handleCreatFile(body []byte) []byte {
	req, err := wire.UnmarshalCreatFileRequest(body)
	if err != nil {
		return wire.StatusResponse{Status: xpnerr.FromError(err)}.Marshal()
	}
	f, err := c.backend.Open(req.Path, os.O_WRONLY|os.O_CREAT|os.O_TRUNC, os.FileMode(req.Mode))
	if err != nil {
		return wire.StatusResponse{Status: xpnerr.FromError(err)}.Marshal()
	}
	f.Close() // CREAT_FILE immediately closes (§4.5)
	return wire.StatusResponse{Status: xpnerr.StatusOK}.Marshal()
}

func (c *connState) handleCloseFile(body []byte) []byte {
	req, err := wire.UnmarshalFdRequest(body)
	if err != nil {
		return wire.StatusResponse{Status: xpnerr.FromError(err)}.Marshal()
	}
	f, ok := c.fds.release(req.Fd)
	if !ok {
		return wire.StatusResponse{Status: xpnerr.FromError(xpnerr.ErrBadFd)}.Marshal()
	}
	if err := f.Close(); err != nil {
		return wire.StatusResponse{Status: xpnerr.FromError(err)}.Marshal()
	}
	return wire.StatusResponse{Status: xpnerr.StatusOK}.Marshal()
}

func (c *connState) handleRmFile(body []byte) []byte {
	req, err := wire.UnmarshalPathRequest(body)
	if err != nil {
		return wire.StatusResponse{Status: xpnerr.FromError(err)}.Marshal()
	}
	err = c.backend.Remove(req.Path)
	return wire.StatusResponse{Status: xpnerr.FromError(err)}.Marshal()
}

func (c *connState) handleRenameFile(body []byte) []byte {
	req, err := wire.UnmarshalRenameFileRequest(body)
	if err != nil {
		return wire.StatusResponse{Status: xpnerr.FromError(err)}.Marshal()
	}
	err = c.backend.Rename(req.OldPath, req.NewPath)
	return wire.StatusResponse{Status: xpnerr.FromError(err)}.Marshal()
}

func (c *connState) handleGetAttrFile(body []byte) []byte {
	req, err := wire.UnmarshalPathRequest(body)
	if err != nil {
		return wire.AttrResponse{Status: xpnerr.FromError(err)}.Marshal()
	}
	attr, err := c.backend.Stat(req.Path)
	if err != nil {
		return wire.AttrResponse{Status: xpnerr.FromError(err)}.Marshal()
	}
	return wire.AttrResponse{Status: xpnerr.StatusOK, Attr: attr}.Marshal()
}

func (c *connState) handleMkdir(body []byte) []byte {
	req, err := wire.UnmarshalMkdirRequest(body)
	if err != nil {
		return wire.StatusResponse{Status: xpnerr.FromError(err)}.Marshal()
	}
	err = c.backend.Mkdir(req.Path, os.FileMode(req.Mode))
	return wire.StatusResponse{Status: xpnerr.FromError(err)}.Marshal()
}

func (c *connState) handleRmdir(body []byte) []byte {
	req, err := wire.UnmarshalPathRequest(body)
	if err != nil {
		return wire.StatusResponse{Status: xpnerr.FromError(err)}.Marshal()
	}
	err = c.backend.Rmdir(req.Path)
	return wire.StatusResponse{Status: xpnerr.FromError(err)}.Marshal()
}

func (c *connState) handleOpendir(body []byte) []byte {
	req, err := wire.UnmarshalPathRequest(body)
	if err != nil {
		return wire.OpendirResponse{Status: xpnerr.FromError(err)}.Marshal()
	}
	cur, err := c.backend.Opendir(req.Path)
	if err != nil {
		return wire.OpendirResponse{Status: xpnerr.FromError(err)}.Marshal()
	}
	return wire.OpendirResponse{Status: xpnerr.StatusOK, Cursor: cur}.Marshal()
}

func (c *connState) handleReaddir(body []byte) []byte {
	req, err := wire.UnmarshalReaddirRequest(body)
	if err != nil {
		return wire.ReaddirResponse{Status: xpnerr.FromError(err)}.Marshal()
	}
	name, end, err := c.backend.Readdir(req.Cursor)
	if err != nil {
		return wire.ReaddirResponse{Status: xpnerr.FromError(err)}.Marshal()
	}
	return wire.ReaddirResponse{Status: xpnerr.StatusOK, Name: name, Cursor: req.Cursor, End: end}.Marshal()
}

func (c *connState) handleClosedir(body []byte) []byte {
	req, err := wire.UnmarshalClosedirRequest(body)
	if err != nil {
		return wire.StatusResponse{Status: xpnerr.FromError(err)}.Marshal()
	}
	err = c.backend.Closedir(req.Cursor)
	return wire.StatusResponse{Status: xpnerr.FromError(err)}.Marshal()
}

func (c *connState) handleStatvfs(body []byte) []byte {
	req, err := wire.UnmarshalPathRequest(body)
	if err != nil {
		return wire.StatvfsResponse{Status: xpnerr.FromError(err)}.Marshal()
	}
	resp, err := c.backend.Statvfs(req.Path)
	if err != nil {
		return wire.StatvfsResponse{Status: xpnerr.FromError(err)}.Marshal()
	}
	return resp.Marshal()
}

// handleReadMdata implements READ_MDATA: open, read HEADER_SIZE bytes,
// close; a missing/invalid magic or a directory target both return a
// zeroed header with a success status (§4.3 "Read").
func (c *connState) handleReadMdata(body []byte) []byte {
	req, err := wire.UnmarshalPathRequest(body)
	if err != nil {
		return wire.ReadMdataResponse{Status: xpnerr.FromError(err)}.Marshal()
	}
	f, err := c.backend.Open(req.Path, os.O_RDONLY, 0)
	if err != nil {
		if xpnerr.MapErrno(err) == xpnerr.ErrIsDir {
			return wire.ReadMdataResponse{Status: xpnerr.StatusOK}.Marshal()
		}
		return wire.ReadMdataResponse{Status: xpnerr.FromError(err)}.Marshal()
	}
	defer f.Close()

	buf := make([]byte, wire.HeaderSize)
	if _, err := io.ReadFull(f, buf); err != nil {
		return wire.ReadMdataResponse{Status: xpnerr.StatusOK}.Marshal()
	}
	header, err := wire.UnmarshalMetadataHeader(buf)
	if err != nil {
		return wire.ReadMdataResponse{Status: xpnerr.StatusOK}.Marshal()
	}
	return wire.ReadMdataResponse{Status: xpnerr.StatusOK, Header: header}.Marshal()
}

// handleWriteMdata implements WRITE_MDATA: open(O_WRONLY|O_CREAT),
// write the header, close (§4.5).
func (c *connState) handleWriteMdata(body []byte) []byte {
	req, err := wire.UnmarshalWriteMdataRequest(body)
	if err != nil {
		return wire.StatusResponse{Status: xpnerr.FromError(err)}.Marshal()
	}
	f, err := c.backend.Open(req.Path, os.O_WRONLY|os.O_CREAT, os.FileMode(req.Mode)|0700)
	if err != nil {
		return wire.StatusResponse{Status: xpnerr.FromError(err)}.Marshal()
	}
	defer f.Close()
	if _, err := f.Write(req.Header.Marshal()); err != nil {
		return wire.StatusResponse{Status: xpnerr.FromError(err)}.Marshal()
	}
	return wire.StatusResponse{Status: xpnerr.StatusOK}.Marshal()
}

// sizeMu serializes the compare-and-advance below, matching the
// per-file mutex the spec names (§4.3 "Size-only update"); a single
// process-wide mutex is sufficient here since the backend already
// serializes through the OS file, and XPN does not need per-path
// granularity to preserve the monotonicity invariant.
var sizeMu sync.Mutex

// handleWriteMdataFileSize implements WRITE_MDATA_FILE_SIZE: under a
// mutex, re-read the current file_size and only advance it if the new
// value is strictly larger (§4.3, §7 "Consistency errors").
func (c *connState) handleWriteMdataFileSize(body []byte) []byte {
	req, err := wire.UnmarshalWriteMdataFileSizeRequest(body)
	if err != nil {
		return wire.StatusResponse{Status: xpnerr.FromError(err)}.Marshal()
	}

	sizeMu.Lock()
	defer sizeMu.Unlock()

	f, err := c.backend.Open(req.Path, os.O_RDWR, 0)
	if err != nil {
		return wire.StatusResponse{Status: xpnerr.FromError(err)}.Marshal()
	}
	defer f.Close()

	buf := make([]byte, wire.HeaderSize)
	if _, err := io.ReadFull(f, buf); err != nil {
		return wire.StatusResponse{Status: xpnerr.FromError(err)}.Marshal()
	}
	header, err := wire.UnmarshalMetadataHeader(buf)
	if err != nil {
		return wire.StatusResponse{Status: xpnerr.FromError(xpnerr.ErrInvalidMetadata)}.Marshal()
	}
	if req.FileSize <= header.FileSize {
		return wire.StatusResponse{Status: xpnerr.StatusOK}.Marshal() // stale value: silent no-op
	}
	header.FileSize = req.FileSize
	if _, err := f.WriteAt(header.Marshal(), 0); err != nil {
		return wire.StatusResponse{Status: xpnerr.FromError(err)}.Marshal()
	}
	return wire.StatusResponse{Status: xpnerr.StatusOK}.Marshal()
}

// dispatch decodes and invokes the handler for env.Op, returning the
// response body to send back tagged with the same tag (§4.4
// "Serving"). ctx is accepted for symmetry with the dispatcher's
// worker-pool submission signature; none of the POSIX calls below
// currently honor cancellation since os.File has no context-aware API.
func (c *connState) dispatch(ctx context.Context, op wire.Opcode, body []byte) []byte {
	c.stats.record(op)
	switch op {
	case wire.OpOpenFile:
		return c.handleOpenFile(body)
	case wire.OpCreatFile:
		return c.handleCreatFile(body)
	case wire.OpCloseFile:
		return c.handleCloseFile(body)
	case wire.OpRmFile, wire.OpRmFileAsync:
		return c.handleRmFile(body)
	case wire.OpRenameFile:
		return c.handleRenameFile(body)
	case wire.OpGetAttrFile:
		return c.handleGetAttrFile(body)
	case wire.OpMkdir:
		return c.handleMkdir(body)
	case wire.OpRmdir, wire.OpRmdirAsync:
		return c.handleRmdir(body)
	case wire.OpOpendir:
		return c.handleOpendir(body)
	case wire.OpReaddir:
		return c.handleReaddir(body)
	case wire.OpClosedir:
		return c.handleClosedir(body)
	case wire.OpStatvfs:
		return c.handleStatvfs(body)
	case wire.OpReadMdata:
		return c.handleReadMdata(body)
	case wire.OpWriteMdata:
		return c.handleWriteMdata(body)
	case wire.OpWriteMdataFileSize:
		return c.handleWriteMdataFileSize(body)
	default:
		return wire.StatusResponse{Status: xpnerr.FromError(xpnerr.ErrUnavailable)}.Marshal()
	}
}
