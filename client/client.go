package client

import (
	"context"
	"os"
	"sync"

	"github.com/xpn-project/xpn/config"
	"github.com/xpn-project/xpn/metadata"
	"github.com/xpn-project/xpn/partition"
	"github.com/xpn-project/xpn/wire"
	"github.com/xpn-project/xpn/workerpool"
	"github.com/xpn-project/xpn/xpnerr"
)

// fdBase is the smallest integer a fresh open assigns, chosen above
// the usual 0/1/2 stdio range the way POSIX dup2 callers expect
// (§2 "Open-file table (client)").
const fdBase = 3

// Options configures a Client beyond the bare partition layout.
type Options struct {
	// WorkerMode selects the engine's per-op concurrency mode
	// (sequential, thread_pool, thread_on_demand, §4.8).
	WorkerMode string
	Threads    int
	// ShortWrite resolves a replicated write's reported byte count
	// when replicas disagree (§9 open question); defaults to
	// PrimaryReplicaPolicy.
	ShortWrite ShortWritePolicy
}

// Client is one partition-mount's worth of open state: the stripe
// partition, metadata manager, server connections, fd table, and the
// worker pool driving concurrent per-server I/O (§4.2).
type Client struct {
	partition  *partition.Partition
	meta       *metadata.Manager
	servers    *servers
	fds        *fdTable
	pool       workerpool.Pool
	shortWrite ShortWritePolicy
}

// New constructs a Client bound to partition cfg, using localServ/hasLocal
// for the read tie-break (§4.1).
func New(cfg config.Partition, localServ partition.ServerID, hasLocal bool, opts Options) (*Client, error) {
	p := partition.New(cfg, localServ, hasLocal)
	if opts.WorkerMode == "" {
		opts.WorkerMode = "thread_pool"
	}
	pool, err := workerpool.New(opts.WorkerMode, opts.Threads)
	if err != nil {
		return nil, err
	}
	srv := newServers(p)
	sw := opts.ShortWrite
	if sw == nil {
		sw = PrimaryReplicaPolicy{}
	}
	return &Client{
		partition:  p,
		meta:       metadata.New(p, srv),
		servers:    srv,
		fds:        newFdTable(fdBase),
		pool:       pool,
		shortWrite: sw,
	}, nil
}

// Disconnect releases the client's server connections and worker
// pool. Named apart from Close (which implements xpn_close against a
// single fd) since Go methods can't overload on signature alone.
func (c *Client) Disconnect() {
	c.servers.closeAll()
	c.pool.Close()
}

// Open implements xpn_open: resolve the metadata header (creating a
// fresh one from the partition defaults if absent), register the
// handle, and return its fd.
func (c *Client) Open(ctx context.Context, path string, flags int32, mode uint32) (int32, error) {
	header, err := c.meta.Read(ctx, path)
	if err != nil {
		return 0, err
	}
	if !header.Valid() {
		header = wire.MetadataHeader{
			Version:          1,
			BlockSize:        c.partition.BlockSize,
			ReplicationLevel: c.partition.ReplicationLevel,
			FirstNode:        uint32(c.partition.MasterFile(path)),
			NumServers:       c.partition.NumServers(),
		}
	}
	fh := newFileHandle(path, flags, mode, header)
	return c.fds.alloc(fh), nil
}

// Creat implements xpn_creat: CREAT_FILE against the master-file
// server, then writes a fresh metadata header and opens as Open would.
func (c *Client) Creat(ctx context.Context, path string, mode uint32) (int32, error) {
	master := c.partition.MasterFile(path)
	req := wire.CreatFileRequest{Path: path, Mode: mode}
	resp, err := c.servers.call(ctx, master, wire.Envelope{Op: wire.OpCreatFile, Body: req.Marshal()})
	if err != nil {
		return 0, err
	}
	status, err := wire.UnmarshalStatusResponse(resp.Body)
	if err != nil {
		return 0, err
	}
	if !status.Status.OK() {
		return 0, xpnerr.ToError(status.Status)
	}

	header := wire.MetadataHeader{
		Version:          1,
		BlockSize:        c.partition.BlockSize,
		ReplicationLevel: c.partition.ReplicationLevel,
		FirstNode:        uint32(master),
		NumServers:       c.partition.NumServers(),
	}
	if err := c.meta.Write(ctx, path, mode, header); err != nil {
		return 0, err
	}
	fh := newFileHandle(path, int32(os.O_RDWR), mode, header)
	return c.fds.alloc(fh), nil
}

// Close implements xpn_close, closing the handle's per-server virtual
// FHs only once every dup'd fd referencing it has been released.
func (c *Client) Close(ctx context.Context, fd int32) error {
	fh, last, ok := c.fds.release(fd)
	if !ok {
		return xpnerr.ErrBadFd
	}
	if !last {
		return nil
	}
	return fh.closeAll(ctx, c.servers)
}

// Dup implements xpn_dup.
func (c *Client) Dup(fd int32) (int32, error) {
	newFd, _, ok := c.fds.dup(fd, -1)
	if !ok {
		return 0, xpnerr.ErrBadFd
	}
	return newFd, nil
}

// Dup2 implements xpn_dup2.
func (c *Client) Dup2(fd, newFd int32) (int32, error) {
	got, _, ok := c.fds.dup(fd, newFd)
	if !ok {
		return 0, xpnerr.ErrBadFd
	}
	return got, nil
}

// Lseek implements xpn_lseek.
func (c *Client) Lseek(fd int32, off int64, whence int) (int64, error) {
	fh, ok := c.fds.get(fd)
	if !ok {
		return 0, xpnerr.ErrBadFd
	}
	return fh.Seek(off, whence)
}

// Read implements xpn_read: pread at the handle's current offset,
// advancing it on success.
func (c *Client) Read(ctx context.Context, fd int32, buf []byte) (int64, error) {
	fh, ok := c.fds.get(fd)
	if !ok {
		return 0, xpnerr.ErrBadFd
	}
	n, err := c.pread(ctx, fh, buf, fh.Offset())
	if err == nil {
		fh.advance(n)
	}
	return n, err
}

// Write implements xpn_write: pwrite at the handle's current offset,
// advancing it on success.
func (c *Client) Write(ctx context.Context, fd int32, buf []byte) (int64, error) {
	fh, ok := c.fds.get(fd)
	if !ok {
		return 0, xpnerr.ErrBadFd
	}
	n, err := c.pwrite(ctx, fh, buf, fh.Offset())
	if err == nil {
		fh.advance(n)
	}
	return n, err
}

// Pread implements xpn_pread.
func (c *Client) Pread(ctx context.Context, fd int32, buf []byte, off int64) (int64, error) {
	fh, ok := c.fds.get(fd)
	if !ok {
		return 0, xpnerr.ErrBadFd
	}
	return c.pread(ctx, fh, buf, off)
}

// Pwrite implements xpn_pwrite.
func (c *Client) Pwrite(ctx context.Context, fd int32, buf []byte, off int64) (int64, error) {
	fh, ok := c.fds.get(fd)
	if !ok {
		return 0, xpnerr.ErrBadFd
	}
	return c.pwrite(ctx, fh, buf, off)
}

func (c *Client) pread(ctx context.Context, fh *FileHandle, buf []byte, off int64) (int64, error) {
	if buf == nil {
		return 0, xpnerr.ErrBadAddress
	}
	if fh.IsDir {
		return 0, xpnerr.ErrIsDir
	}
	if !fh.readable() {
		return 0, xpnerr.ErrBadFd
	}
	if len(buf) == 0 || off < 0 {
		return 0, nil
	}

	ops, skipped := c.partition.NextRead(fh.FirstNode, uint64(off), uint64(len(buf)))
	if len(skipped) > 0 && len(ops) == 0 {
		return 0, xpnerr.ErrAllReplicasErrored
	}

	errs := make([]error, len(ops))
	futures := make([]workerpool.Future, len(ops))
	for i, op := range ops {
		i, op := i, op
		futures[i] = c.pool.Launch(func() (int64, error) {
			fd, err := fh.ensureVFH(ctx, c.servers, op.Server)
			if err != nil {
				return 0, err
			}
			data, err := c.servers.readFileOp(ctx, op.Server, fd, int64(op.LocalOff)+int64(wire.HeaderSize), int64(op.Size))
			if err != nil {
				return 0, err
			}
			copy(buf[op.BufferOff:op.BufferOff+len(data)], data)
			return int64(len(data)), nil
		})
	}
	var total int64
	for i, f := range futures {
		r := f.Wait()
		errs[i] = r.Err
		if r.Err != nil {
			c.partition.MarkErrored(ops[i].Server)
			continue
		}
		total += r.N
	}
	for _, err := range errs {
		if err != nil && total == 0 {
			return 0, err
		}
	}
	return total, nil
}

func (c *Client) pwrite(ctx context.Context, fh *FileHandle, buf []byte, off int64) (int64, error) {
	if buf == nil {
		return 0, xpnerr.ErrBadAddress
	}
	if len(buf) == 0 {
		return 0, nil
	}
	if fh.IsDir {
		return 0, xpnerr.ErrIsDir
	}
	if !fh.writable() {
		return 0, xpnerr.ErrBadFd
	}

	ops := c.partition.NextWrite(fh.FirstNode, uint64(off), uint64(len(buf)))
	if len(ops) == 0 {
		return 0, xpnerr.ErrAllReplicasErrored
	}

	counts := newReplicaCounts()
	futures := make([]workerpool.Future, len(ops))
	for i, op := range ops {
		op := op
		futures[i] = c.pool.Launch(func() (int64, error) {
			fd, err := fh.ensureVFH(ctx, c.servers, op.Server)
			if err != nil {
				return 0, err
			}
			slice := buf[op.BufferOff : op.BufferOff+int(op.Size)]
			n, err := c.servers.writeFileOp(ctx, op.Server, fd, int64(op.LocalOff)+int64(wire.HeaderSize), slice)
			if err != nil {
				return 0, err
			}
			counts.record(op.Replica, n)
			return n, nil
		})
	}
	var succeeded int
	var firstErr error
	for i, f := range futures {
		r := f.Wait()
		if r.Err != nil {
			c.partition.MarkErrored(ops[i].Server)
			if firstErr == nil {
				firstErr = r.Err
			}
			continue
		}
		succeeded++
	}
	if succeeded == 0 {
		return 0, firstErr
	}

	replicas := c.partition.ReplicationLevel + 1
	n := c.shortWrite.Resolve(counts.snapshot(), replicas)

	if end := uint64(off) + uint64(len(buf)); fh.bumpSize(end) {
		if err := c.meta.WriteFileSize(ctx, fh.Path, end); err != nil {
			return n, err
		}
	}
	return n, nil
}

// replicaCounts is a mutex-guarded accumulator for per-replica byte
// counts collected from concurrent write futures (§4.2 step 5, feeding
// ShortWritePolicy.Resolve).
type replicaCounts struct {
	mu     sync.Mutex
	counts map[uint32]int64
}

func newReplicaCounts() *replicaCounts {
	return &replicaCounts{counts: make(map[uint32]int64)}
}

func (r *replicaCounts) record(replica uint32, n int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts[replica] += n
}

func (r *replicaCounts) snapshot() map[uint32]int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[uint32]int64, len(r.counts))
	for k, v := range r.counts {
		out[k] = v
	}
	return out
}

// Unlink implements xpn_unlink.
func (c *Client) Unlink(ctx context.Context, path string) error {
	master := c.partition.MasterFile(path)
	req := wire.PathRequest{Path: path}
	resp, err := c.servers.call(ctx, master, wire.Envelope{Op: wire.OpRmFile, Body: req.Marshal()})
	if err != nil {
		return err
	}
	status, err := wire.UnmarshalStatusResponse(resp.Body)
	if err != nil {
		return err
	}
	return xpnerr.ToError(status.Status)
}

// Rename implements xpn_rename against the old path's master-file
// server (matching the source's single-RPC rename, which only moves
// the metadata/primary copy's directory entry).
func (c *Client) Rename(ctx context.Context, oldPath, newPath string) error {
	master := c.partition.MasterFile(oldPath)
	req := wire.RenameFileRequest{OldPath: oldPath, NewPath: newPath}
	resp, err := c.servers.call(ctx, master, wire.Envelope{Op: wire.OpRenameFile, Body: req.Marshal()})
	if err != nil {
		return err
	}
	status, err := wire.UnmarshalStatusResponse(resp.Body)
	if err != nil {
		return err
	}
	return xpnerr.ToError(status.Status)
}

// Stat implements xpn_stat.
func (c *Client) Stat(ctx context.Context, path string) (wire.Attr, error) {
	master := c.partition.MasterFile(path)
	req := wire.PathRequest{Path: path}
	resp, err := c.servers.call(ctx, master, wire.Envelope{Op: wire.OpGetAttrFile, Body: req.Marshal()})
	if err != nil {
		return wire.Attr{}, err
	}
	parsed, err := wire.UnmarshalAttrResponse(resp.Body)
	if err != nil {
		return wire.Attr{}, err
	}
	if !parsed.Status.OK() {
		return wire.Attr{}, xpnerr.ToError(parsed.Status)
	}
	return parsed.Attr, nil
}

// Statvfs implements xpn_statvfs against the first healthy server,
// since filesystem-wide statistics are not replicated per-file.
func (c *Client) Statvfs(ctx context.Context, path string) (wire.StatvfsResponse, error) {
	req := wire.PathRequest{Path: path}
	n := c.partition.NumServers()
	var firstErr error
	for i := partition.ServerID(0); uint32(i) < n; i++ {
		if c.partition.IsErrored(i) {
			continue
		}
		resp, err := c.servers.call(ctx, i, wire.Envelope{Op: wire.OpStatvfs, Body: req.Marshal()})
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		parsed, err := wire.UnmarshalStatvfsResponse(resp.Body)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if !parsed.Status.OK() {
			if firstErr == nil {
				firstErr = xpnerr.ToError(parsed.Status)
			}
			continue
		}
		return parsed, nil
	}
	if firstErr == nil {
		firstErr = xpnerr.ErrAllReplicasErrored
	}
	return wire.StatvfsResponse{}, firstErr
}

// Mkdir implements xpn_mkdir against every server in the partition:
// a directory must exist on every server since any of them may own a
// block of a file created inside it later.
func (c *Client) Mkdir(ctx context.Context, path string, mode uint32) error {
	req := wire.MkdirRequest{Path: path, Mode: mode}
	return c.broadcastStatus(ctx, wire.OpMkdir, req.Marshal())
}

// Rmdir implements xpn_rmdir, mirroring Mkdir's broadcast.
func (c *Client) Rmdir(ctx context.Context, path string) error {
	req := wire.PathRequest{Path: path}
	return c.broadcastStatus(ctx, wire.OpRmdir, req.Marshal())
}

// broadcastStatus issues op against every non-errored server and
// requires all of them to succeed, since directory-tree structure
// must stay consistent across the whole partition (DESIGN.md,
// "Directory fan-out decision").
func (c *Client) broadcastStatus(ctx context.Context, op wire.Opcode, body []byte) error {
	n := c.partition.NumServers()
	futures := make([]workerpool.Future, 0, n)
	ids := make([]partition.ServerID, 0, n)
	for i := partition.ServerID(0); uint32(i) < n; i++ {
		if c.partition.IsErrored(i) {
			continue
		}
		i := i
		ids = append(ids, i)
		futures = append(futures, c.pool.Launch(func() (int64, error) {
			resp, err := c.servers.call(ctx, i, wire.Envelope{Op: op, Body: body})
			if err != nil {
				return 0, err
			}
			status, err := wire.UnmarshalStatusResponse(resp.Body)
			if err != nil {
				return 0, err
			}
			if !status.Status.OK() {
				return 0, xpnerr.ToError(status.Status)
			}
			return 0, nil
		}))
	}
	var firstErr error
	for i, f := range futures {
		r := f.Wait()
		if r.Err != nil {
			c.partition.MarkErrored(ids[i])
			if firstErr == nil {
				firstErr = r.Err
			}
		}
	}
	return firstErr
}

// Opendir implements xpn_opendir against path's master-file server.
func (c *Client) Opendir(ctx context.Context, path string) (int32, error) {
	master := c.partition.MasterFile(path)
	req := wire.PathRequest{Path: path}
	resp, err := c.servers.call(ctx, master, wire.Envelope{Op: wire.OpOpendir, Body: req.Marshal()})
	if err != nil {
		return 0, err
	}
	parsed, err := wire.UnmarshalOpendirResponse(resp.Body)
	if err != nil {
		return 0, err
	}
	if !parsed.Status.OK() {
		return 0, xpnerr.ToError(parsed.Status)
	}
	fh := &FileHandle{Path: path, IsDir: true, DirMaster: master, dirCursor: parsed.Cursor}
	return c.fds.alloc(fh), nil
}

// Readdir implements xpn_readdir.
func (c *Client) Readdir(ctx context.Context, fd int32) (name string, end bool, err error) {
	fh, ok := c.fds.get(fd)
	if !ok || !fh.IsDir {
		return "", false, xpnerr.ErrBadFd
	}

	req := wire.ReaddirRequest{Cursor: fh.cursor()}
	resp, err := c.servers.call(ctx, fh.DirMaster, wire.Envelope{Op: wire.OpReaddir, Body: req.Marshal()})
	if err != nil {
		return "", false, err
	}
	parsed, err := wire.UnmarshalReaddirResponse(resp.Body)
	if err != nil {
		return "", false, err
	}
	if !parsed.Status.OK() {
		return "", false, xpnerr.ToError(parsed.Status)
	}
	fh.setCursor(parsed.Cursor)
	return parsed.Name, parsed.End, nil
}

// Closedir implements xpn_closedir.
func (c *Client) Closedir(ctx context.Context, fd int32) error {
	fh, _, ok := c.fds.release(fd)
	if !ok || !fh.IsDir {
		return xpnerr.ErrBadFd
	}

	req := wire.ClosedirRequest{Cursor: fh.cursor()}
	resp, err := c.servers.call(ctx, fh.DirMaster, wire.Envelope{Op: wire.OpClosedir, Body: req.Marshal()})
	if err != nil {
		return err
	}
	status, err := wire.UnmarshalStatusResponse(resp.Body)
	if err != nil {
		return err
	}
	return xpnerr.ToError(status.Status)
}
