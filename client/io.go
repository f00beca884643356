package client

import (
	"context"

	"github.com/xpn-project/xpn/partition"
	"github.com/xpn-project/xpn/wire"
	"github.com/xpn-project/xpn/xpnerr"
)

// writeFileOp issues one WRITE_FILE against server id: header, the
// full data slice in one WriteData call (the stream-oriented transport
// reassembles it across however many underlying reads the server's
// internal MAX_BUFFER_SIZE chunking performs, §4.5), then the single
// end-of-loop reply.
func (s *servers) writeFileOp(ctx context.Context, id partition.ServerID, fd int32, off int64, data []byte) (int64, error) {
	sc, err := s.get(ctx, id)
	if err != nil {
		return 0, err
	}
	sc.mu.Lock()
	defer sc.mu.Unlock()

	hdr := wire.IOHeader{Fd: fd, Offset: off, Size: int64(len(data))}
	if err := sc.conn.WriteOperation(ctx, wire.Envelope{Op: wire.OpWriteFile, Body: hdr.Marshal()}); err != nil {
		s.partition.MarkErrored(id)
		return 0, err
	}
	if len(data) > 0 {
		if err := sc.conn.WriteData(ctx, 0, data); err != nil {
			s.partition.MarkErrored(id)
			return 0, err
		}
	}
	env, err := sc.conn.ReadOperation(ctx)
	if err != nil {
		s.partition.MarkErrored(id)
		return 0, err
	}
	resp, err := wire.UnmarshalWriteFileResponse(env.Body)
	if err != nil {
		return 0, err
	}
	if !resp.Status.OK() {
		return resp.Written, xpnerr.ToError(resp.Status)
	}
	return resp.Written, nil
}

// readFileOp issues one READ_FILE against server id, reassembling the
// chunked reply (at most size bytes) until the server's terminating
// zero-size chunk.
func (s *servers) readFileOp(ctx context.Context, id partition.ServerID, fd int32, off int64, size int64) ([]byte, error) {
	sc, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	sc.mu.Lock()
	defer sc.mu.Unlock()

	hdr := wire.IOHeader{Fd: fd, Offset: off, Size: size}
	if err := sc.conn.WriteOperation(ctx, wire.Envelope{Op: wire.OpReadFile, Body: hdr.Marshal()}); err != nil {
		s.partition.MarkErrored(id)
		return nil, err
	}

	buf := make([]byte, 0, size)
	for {
		env, err := sc.conn.ReadOperation(ctx)
		if err != nil {
			s.partition.MarkErrored(id)
			return nil, err
		}
		chunk, err := wire.UnmarshalReadChunkHeader(env.Body)
		if err != nil {
			return nil, err
		}
		if !chunk.Status.OK() {
			return nil, xpnerr.ToError(chunk.Status)
		}
		if chunk.Size == 0 {
			break
		}
		data, err := sc.conn.ReadData(ctx, 0, int(chunk.Size))
		if err != nil {
			s.partition.MarkErrored(id)
			return nil, err
		}
		buf = append(buf, data...)
	}
	return buf, nil
}
