package wire

import (
	"io"

	"github.com/xpn-project/xpn/xpnerr"
)

// Each type below is one opcode's packed request or response struct
// (§4.4, §6). Marshal/Unmarshal encode the flat layout described
// there; Envelope.Body carries the result.

// OpenFileRequest is OPEN_FILE's request.
type OpenFileRequest struct {
	Path  string
	Flags int32
	Mode  uint32
}

func (r OpenFileRequest) Marshal() []byte {
	e := &encoder{}
	_ = e.path(r.Path)
	e.i32(r.Flags)
	e.u32(r.Mode)
	return e.bytes()
}

func UnmarshalOpenFileRequest(b []byte) (r OpenFileRequest, err error) {
	d := newDecoder(b)
	if r.Path, err = d.path(); err != nil {
		return
	}
	if r.Flags, err = d.i32(); err != nil {
		return
	}
	r.Mode, err = d.u32()
	return
}

// FdResponse is the common {status, fd} response shape (OPEN_FILE,
// CREAT_FILE).
type FdResponse struct {
	Status xpnerr.Status
	Fd     int32
}

func (r FdResponse) Marshal() []byte {
	e := &encoder{}
	e.status(r.Status)
	e.i32(r.Fd)
	return e.bytes()
}

func UnmarshalFdResponse(b []byte) (r FdResponse, err error) {
	d := newDecoder(b)
	if r.Status, err = d.status(); err != nil {
		return
	}
	r.Fd, err = d.i32()
	return
}

// CreatFileRequest is CREAT_FILE's request.
type CreatFileRequest struct {
	Path string
	Mode uint32
}

func (r CreatFileRequest) Marshal() []byte {
	e := &encoder{}
	_ = e.path(r.Path)
	e.u32(r.Mode)
	return e.bytes()
}

func UnmarshalCreatFileRequest(b []byte) (r CreatFileRequest, err error) {
	d := newDecoder(b)
	if r.Path, err = d.path(); err != nil {
		return
	}
	r.Mode, err = d.u32()
	return
}

// IOHeader is the small fixed header that precedes the streamed data
// of READ_FILE and WRITE_FILE; the data itself travels over the
// transport's raw ReadData/WriteData, not the envelope body (§4.6).
type IOHeader struct {
	Fd     int32
	Offset int64
	Size   int64
}

func (h IOHeader) Marshal() []byte {
	e := &encoder{}
	e.i32(h.Fd)
	e.i64(h.Offset)
	e.i64(h.Size)
	return e.bytes()
}

func UnmarshalIOHeader(b []byte) (h IOHeader, err error) {
	d := newDecoder(b)
	if h.Fd, err = d.i32(); err != nil {
		return
	}
	if h.Offset, err = d.i64(); err != nil {
		return
	}
	h.Size, err = d.i64()
	return
}

// ReadChunkHeader precedes each READ_FILE data chunk (§4.5).
type ReadChunkHeader struct {
	Size   int64
	Status xpnerr.Status
}

func (h ReadChunkHeader) Marshal() []byte {
	e := &encoder{}
	e.i64(h.Size)
	e.status(h.Status)
	return e.bytes()
}

func UnmarshalReadChunkHeader(b []byte) (h ReadChunkHeader, err error) {
	d := newDecoder(b)
	if h.Size, err = d.i64(); err != nil {
		return
	}
	h.Status, err = d.status()
	return
}

// WriteFileResponse is WRITE_FILE's single end-of-loop reply (§4.5:
// "send {cont,status} once at end").
type WriteFileResponse struct {
	Status  xpnerr.Status
	Written int64
}

func (r WriteFileResponse) Marshal() []byte {
	e := &encoder{}
	e.status(r.Status)
	e.i64(r.Written)
	return e.bytes()
}

func UnmarshalWriteFileResponse(b []byte) (r WriteFileResponse, err error) {
	d := newDecoder(b)
	if r.Status, err = d.status(); err != nil {
		return
	}
	r.Written, err = d.i64()
	return
}

// FdRequest is the common {fd} request shape (CLOSE_FILE).
type FdRequest struct{ Fd int32 }

func (r FdRequest) Marshal() []byte {
	e := &encoder{}
	e.i32(r.Fd)
	return e.bytes()
}

func UnmarshalFdRequest(b []byte) (r FdRequest, err error) {
	d := newDecoder(b)
	r.Fd, err = d.i32()
	return
}

// StatusResponse is the common bare {status} response.
type StatusResponse struct{ Status xpnerr.Status }

func (r StatusResponse) Marshal() []byte {
	e := &encoder{}
	e.status(r.Status)
	return e.bytes()
}

func UnmarshalStatusResponse(b []byte) (r StatusResponse, err error) {
	d := newDecoder(b)
	r.Status, err = d.status()
	return
}

// PathRequest is the common {path} request shape (RM_FILE, RMDIR,
// OPENDIR, STATVFS, READ_MDATA, GETATTR_FILE).
type PathRequest struct{ Path string }

func (r PathRequest) Marshal() []byte {
	e := &encoder{}
	_ = e.path(r.Path)
	return e.bytes()
}

func UnmarshalPathRequest(b []byte) (r PathRequest, err error) {
	d := newDecoder(b)
	r.Path, err = d.path()
	return
}

// RenameFileRequest is RENAME_FILE's request.
type RenameFileRequest struct {
	OldPath string
	NewPath string
}

func (r RenameFileRequest) Marshal() []byte {
	e := &encoder{}
	_ = e.path(r.OldPath)
	_ = e.path(r.NewPath)
	return e.bytes()
}

func UnmarshalRenameFileRequest(b []byte) (r RenameFileRequest, err error) {
	d := newDecoder(b)
	if r.OldPath, err = d.path(); err != nil {
		return
	}
	r.NewPath, err = d.path()
	return
}

// Attr is the POSIX-ish attribute block of GETATTR_FILE (§4.5).
type Attr struct {
	Size  int64
	Mode  uint32
	Mtime int64
	IsDir bool
}

// AttrResponse is GETATTR_FILE's response.
type AttrResponse struct {
	Status xpnerr.Status
	Attr   Attr
}

func (r AttrResponse) Marshal() []byte {
	e := &encoder{}
	e.status(r.Status)
	e.i64(r.Attr.Size)
	e.u32(r.Attr.Mode)
	e.i64(r.Attr.Mtime)
	e.boolean(r.Attr.IsDir)
	return e.bytes()
}

func UnmarshalAttrResponse(b []byte) (r AttrResponse, err error) {
	d := newDecoder(b)
	if r.Status, err = d.status(); err != nil {
		return
	}
	if r.Attr.Size, err = d.i64(); err != nil {
		return
	}
	if r.Attr.Mode, err = d.u32(); err != nil {
		return
	}
	if r.Attr.Mtime, err = d.i64(); err != nil {
		return
	}
	r.Attr.IsDir, err = d.boolean()
	return
}

// MkdirRequest is MKDIR's request.
type MkdirRequest struct {
	Path string
	Mode uint32
}

func (r MkdirRequest) Marshal() []byte {
	e := &encoder{}
	_ = e.path(r.Path)
	e.u32(r.Mode)
	return e.bytes()
}

func UnmarshalMkdirRequest(b []byte) (r MkdirRequest, err error) {
	d := newDecoder(b)
	if r.Path, err = d.path(); err != nil {
		return
	}
	r.Mode, err = d.u32()
	return
}

// DirCursor is the opaque cursor shipped on the wire for OPENDIR and
// READDIR in both session and sessionless mode (Open Question #3).
type DirCursor uint64

// OpendirResponse is OPENDIR's response.
type OpendirResponse struct {
	Status xpnerr.Status
	Cursor DirCursor
}

func (r OpendirResponse) Marshal() []byte {
	e := &encoder{}
	e.status(r.Status)
	e.u64(uint64(r.Cursor))
	return e.bytes()
}

func UnmarshalOpendirResponse(b []byte) (r OpendirResponse, err error) {
	d := newDecoder(b)
	if r.Status, err = d.status(); err != nil {
		return
	}
	c, err2 := d.u64()
	r.Cursor = DirCursor(c)
	return r, err2
}

// ReaddirRequest is READDIR's request.
type ReaddirRequest struct{ Cursor DirCursor }

func (r ReaddirRequest) Marshal() []byte {
	e := &encoder{}
	e.u64(uint64(r.Cursor))
	return e.bytes()
}

func UnmarshalReaddirRequest(b []byte) (r ReaddirRequest, err error) {
	d := newDecoder(b)
	c, err := d.u64()
	r.Cursor = DirCursor(c)
	return r, err
}

// ReaddirResponse is READDIR's response: one entry, the advanced
// cursor, and an end-of-directory flag (§4.5).
type ReaddirResponse struct {
	Status xpnerr.Status
	Name   string
	Cursor DirCursor
	End    bool
}

func (r ReaddirResponse) Marshal() []byte {
	e := &encoder{}
	e.status(r.Status)
	_ = e.path(r.Name)
	e.u64(uint64(r.Cursor))
	e.boolean(r.End)
	return e.bytes()
}

func UnmarshalReaddirResponse(b []byte) (r ReaddirResponse, err error) {
	d := newDecoder(b)
	if r.Status, err = d.status(); err != nil {
		return
	}
	if r.Name, err = d.path(); err != nil {
		return
	}
	c, err2 := d.u64()
	if err2 != nil {
		return r, err2
	}
	r.Cursor = DirCursor(c)
	r.End, err = d.boolean()
	return
}

// ClosedirRequest is CLOSEDIR's request.
type ClosedirRequest struct{ Cursor DirCursor }

func (r ClosedirRequest) Marshal() []byte {
	e := &encoder{}
	e.u64(uint64(r.Cursor))
	return e.bytes()
}

func UnmarshalClosedirRequest(b []byte) (r ClosedirRequest, err error) {
	d := newDecoder(b)
	c, err := d.u64()
	r.Cursor = DirCursor(c)
	return r, err
}

// StatvfsResponse is STATVFS's response.
type StatvfsResponse struct {
	Status xpnerr.Status
	Bsize  uint64
	Blocks uint64
	Bfree  uint64
	Bavail uint64
	Files  uint64
	Ffree  uint64
}

func (r StatvfsResponse) Marshal() []byte {
	e := &encoder{}
	e.status(r.Status)
	e.u64(r.Bsize)
	e.u64(r.Blocks)
	e.u64(r.Bfree)
	e.u64(r.Bavail)
	e.u64(r.Files)
	e.u64(r.Ffree)
	return e.bytes()
}

func UnmarshalStatvfsResponse(b []byte) (r StatvfsResponse, err error) {
	d := newDecoder(b)
	if r.Status, err = d.status(); err != nil {
		return
	}
	if r.Bsize, err = d.u64(); err != nil {
		return
	}
	if r.Blocks, err = d.u64(); err != nil {
		return
	}
	if r.Bfree, err = d.u64(); err != nil {
		return
	}
	if r.Bavail, err = d.u64(); err != nil {
		return
	}
	if r.Files, err = d.u64(); err != nil {
		return
	}
	r.Ffree, err = d.u64()
	return
}

// ReadMdataResponse is READ_MDATA's response.
type ReadMdataResponse struct {
	Status xpnerr.Status
	Header MetadataHeader
}

func (r ReadMdataResponse) Marshal() []byte {
	e := &encoder{}
	e.status(r.Status)
	e.buf.Write(r.Header.Marshal())
	return e.bytes()
}

func UnmarshalReadMdataResponse(b []byte) (r ReadMdataResponse, err error) {
	d := newDecoder(b)
	if r.Status, err = d.status(); err != nil {
		return
	}
	rest := make([]byte, HeaderSize)
	if _, err = io.ReadFull(d.r, rest); err != nil {
		return
	}
	r.Header, err = UnmarshalMetadataHeader(rest)
	return
}

// WriteMdataRequest is WRITE_MDATA's request.
type WriteMdataRequest struct {
	Path   string
	Mode   uint32
	Header MetadataHeader
}

func (r WriteMdataRequest) Marshal() []byte {
	e := &encoder{}
	_ = e.path(r.Path)
	e.u32(r.Mode)
	e.buf.Write(r.Header.Marshal())
	return e.bytes()
}

func UnmarshalWriteMdataRequest(b []byte) (r WriteMdataRequest, err error) {
	d := newDecoder(b)
	if r.Path, err = d.path(); err != nil {
		return
	}
	if r.Mode, err = d.u32(); err != nil {
		return
	}
	rest := make([]byte, HeaderSize)
	if _, err = io.ReadFull(d.r, rest); err != nil {
		return
	}
	r.Header, err = UnmarshalMetadataHeader(rest)
	return
}

// WriteMdataFileSizeRequest is WRITE_MDATA_FILE_SIZE's request.
type WriteMdataFileSizeRequest struct {
	Path     string
	FileSize uint64
}

func (r WriteMdataFileSizeRequest) Marshal() []byte {
	e := &encoder{}
	_ = e.path(r.Path)
	e.u64(r.FileSize)
	return e.bytes()
}

func UnmarshalWriteMdataFileSizeRequest(b []byte) (r WriteMdataFileSizeRequest, err error) {
	d := newDecoder(b)
	if r.Path, err = d.path(); err != nil {
		return
	}
	r.FileSize, err = d.u64()
	return
}
