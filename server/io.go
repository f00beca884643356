package server

import (
	"context"
	"io"

	"github.com/xpn-project/xpn/transport"
	"github.com/xpn-project/xpn/wire"
	"github.com/xpn-project/xpn/xpnerr"
)

// handleReadFile implements READ_FILE's chunked reply (§4.5): seek to
// off+cont, read up to min(MAX_BUFFER_SIZE, remaining), send
// {size,status} then the data, repeat until remaining is 0 or a read
// returns 0 bytes.
func (c *connState) handleReadFile(ctx context.Context, conn transport.Conn, tag uint32, body []byte) error {
	req, err := wire.UnmarshalIOHeader(body)
	if err != nil {
		return c.sendReadChunk(ctx, conn, tag, wire.ReadChunkHeader{Status: xpnerr.FromError(err)}, nil)
	}
	f, ok := c.fds.get(req.Fd)
	if !ok {
		return c.sendReadChunk(ctx, conn, tag, wire.ReadChunkHeader{Status: xpnerr.FromError(xpnerr.ErrBadFd)}, nil)
	}

	remaining := req.Size
	off := req.Offset
	for remaining > 0 {
		want := maxBufferSize
		if int64(want) > remaining {
			want = int(remaining)
		}
		buf := make([]byte, want)
		n, err := f.ReadAt(buf, off)
		if n == 0 {
			if err != nil && err != io.EOF {
				return c.sendReadChunk(ctx, conn, tag, wire.ReadChunkHeader{Status: xpnerr.FromError(err)}, nil)
			}
			break // EOF or nothing left to read
		}
		if sendErr := c.sendReadChunk(ctx, conn, tag, wire.ReadChunkHeader{Size: int64(n), Status: xpnerr.StatusOK}, buf[:n]); sendErr != nil {
			return sendErr
		}
		off += int64(n)
		remaining -= int64(n)
	}
	// Final zero-size chunk signals completion.
	return c.sendReadChunk(ctx, conn, tag, wire.ReadChunkHeader{Size: 0, Status: xpnerr.StatusOK}, nil)
}

func (c *connState) sendReadChunk(ctx context.Context, conn transport.Conn, tag uint32, hdr wire.ReadChunkHeader, data []byte) error {
	if err := conn.WriteOperation(ctx, wire.Envelope{Op: wire.OpReadFile, Tag: tag, Body: hdr.Marshal()}); err != nil {
		return err
	}
	if len(data) > 0 {
		return conn.WriteData(ctx, tag, data)
	}
	return nil
}

// readWriteFilePayload parses a WRITE_FILE header and drains its
// payload off conn in MAX_BUFFER_SIZE chunks. The payload follows the
// envelope directly on the wire with no further framing (§4.5), so
// this must run in the dispatcher's own receive loop, not on an
// opPool worker: the receiver is the only goroutine allowed to call
// ReadOperation/ReadData on a connection, or a worker racing the next
// envelope read for these same bytes desyncs the stream.
func (c *connState) readWriteFilePayload(ctx context.Context, conn transport.Conn, tag uint32, body []byte) (wire.IOHeader, []byte, error) {
	req, err := wire.UnmarshalIOHeader(body)
	if err != nil {
		return wire.IOHeader{}, nil, err
	}
	data := make([]byte, 0, req.Size)
	remaining := req.Size
	for remaining > 0 {
		want := maxBufferSize
		if int64(want) > remaining {
			want = int(remaining)
		}
		chunk, err := conn.ReadData(ctx, tag, want)
		if err != nil {
			return req, nil, err
		}
		data = append(data, chunk...)
		remaining -= int64(len(chunk))
	}
	return req, data, nil
}

// handleWriteFile implements WRITE_FILE's disk-write half: req and its
// payload have already been read off the wire by readWriteFilePayload,
// so this only touches conn to send the final reply and is safe to run
// on an opPool worker (§4.5).
func (c *connState) handleWriteFile(ctx context.Context, conn transport.Conn, tag uint32, req wire.IOHeader, data []byte, readErr error) error {
	if readErr != nil {
		return c.sendWriteResponse(ctx, conn, tag, wire.WriteFileResponse{Status: xpnerr.FromError(readErr)})
	}
	f, ok := c.fds.get(req.Fd)
	if !ok {
		return c.sendWriteResponse(ctx, conn, tag, wire.WriteFileResponse{Status: xpnerr.FromError(xpnerr.ErrBadFd)})
	}

	var written int64
	off := req.Offset
	for len(data) > 0 {
		n, err := f.WriteAt(data, off)
		if err != nil {
			return c.sendWriteResponse(ctx, conn, tag, wire.WriteFileResponse{Status: xpnerr.FromError(err), Written: written})
		}
		written += int64(n)
		off += int64(n)
		data = data[n:]
	}
	return c.sendWriteResponse(ctx, conn, tag, wire.WriteFileResponse{Status: xpnerr.StatusOK, Written: written})
}

func (c *connState) sendWriteResponse(ctx context.Context, conn transport.Conn, tag uint32, resp wire.WriteFileResponse) error {
	return conn.WriteOperation(ctx, wire.Envelope{Op: wire.OpWriteFile, Tag: tag, Body: resp.Marshal()})
}
