package wire

import (
	"bytes"
	"io"

	"github.com/pkg/errors"

	"github.com/xpn-project/xpn/xpnerr"
)

// PathMax bounds a wire-encoded path, matching the original's
// char path[PATH_MAX] fixed buffer (§6).
const PathMax = 4096

// encoder/decoder are tiny helpers over bytes.Buffer/bytes.Reader so
// every payload struct below can be written as a flat sequence of
// fixed-width fields, matching the packed-struct wire layout in §6.
type encoder struct {
	buf bytes.Buffer
}

func (e *encoder) u32(v uint32) { var b [4]byte; ByteOrder.PutUint32(b[:], v); e.buf.Write(b[:]) }
func (e *encoder) u64(v uint64) { var b [8]byte; ByteOrder.PutUint64(b[:], v); e.buf.Write(b[:]) }
func (e *encoder) i32(v int32)  { e.u32(uint32(v)) }
func (e *encoder) i64(v int64)  { e.u64(uint64(v)) }
func (e *encoder) boolean(v bool) {
	if v {
		e.buf.WriteByte(1)
	} else {
		e.buf.WriteByte(0)
	}
}

func (e *encoder) path(p string) error {
	if len(p) >= PathMax {
		return errors.Errorf("path %q exceeds PATH_MAX", p)
	}
	e.u32(uint32(len(p)))
	var b [PathMax]byte
	copy(b[:], p)
	e.buf.Write(b[:])
	return nil
}

func (e *encoder) status(s xpnerr.Status) {
	e.i32(s.Ret)
	e.i32(s.Errno)
}

func (e *encoder) bytes() []byte { return e.buf.Bytes() }

type decoder struct {
	r *bytes.Reader
}

func newDecoder(body []byte) *decoder { return &decoder{r: bytes.NewReader(body)} }

func (d *decoder) u32() (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(d.r, b[:]); err != nil {
		return 0, err
	}
	return ByteOrder.Uint32(b[:]), nil
}

func (d *decoder) u64() (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(d.r, b[:]); err != nil {
		return 0, err
	}
	return ByteOrder.Uint64(b[:]), nil
}

func (d *decoder) i32() (int32, error) { v, err := d.u32(); return int32(v), err }
func (d *decoder) i64() (int64, error) { v, err := d.u64(); return int64(v), err }

func (d *decoder) boolean() (bool, error) {
	b, err := d.r.ReadByte()
	return b != 0, err
}

func (d *decoder) path() (string, error) {
	size, err := d.u32()
	if err != nil {
		return "", err
	}
	var b [PathMax]byte
	if _, err := io.ReadFull(d.r, b[:]); err != nil {
		return "", err
	}
	if int(size) > PathMax {
		return "", errors.Errorf("decoded path size %d exceeds PATH_MAX", size)
	}
	return string(b[:size]), nil
}

func (d *decoder) status() (xpnerr.Status, error) {
	ret, err := d.i32()
	if err != nil {
		return xpnerr.Status{}, err
	}
	errno, err := d.i32()
	if err != nil {
		return xpnerr.Status{}, err
	}
	return xpnerr.Status{Ret: ret, Errno: errno}, nil
}
