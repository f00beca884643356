package transport

import (
	"context"
	"io"
	"net"
	"sync"

	"github.com/pkg/errors"

	"github.com/xpn-project/xpn/wire"
)

// SckTransport is the real TCP carrier (`sck_server://`). Sockets
// ignore Conn's tag parameter and rely on strict per-socket read
// order, so a caller issuing concurrent operations over one Conn must
// serialize its own reads (§4.6).
type SckTransport struct {
	listener net.Listener
}

// ListenSck starts a TCP listener for the server side of the sck
// transport.
func ListenSck(addr string) (*SckTransport, error) {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "sck: listen %s", addr)
	}
	return &SckTransport{listener: l}, nil
}

// NewSckTransport constructs a client-side transport with no
// listener; Accept is not valid on it.
func NewSckTransport() *SckTransport { return &SckTransport{} }

// Addr returns the listener's bound address, for tests and logging.
func (t *SckTransport) Addr() string {
	if t.listener == nil {
		return ""
	}
	return t.listener.Addr().String()
}

func (t *SckTransport) Accept(ctx context.Context) (Conn, error) {
	if t.listener == nil {
		return nil, errors.New("sck: transport has no listener")
	}
	c, err := t.listener.Accept()
	if err != nil {
		return nil, errors.Wrap(err, "sck: accept")
	}
	return &sckConn{conn: c}, nil
}

func (t *SckTransport) Dial(ctx context.Context, addr string) (Conn, error) {
	var d net.Dialer
	c, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "sck: dial %s", addr)
	}
	return &sckConn{conn: c}, nil
}

func (t *SckTransport) Close() error {
	if t.listener == nil {
		return nil
	}
	return t.listener.Close()
}

// sckConn wraps one net.Conn. readMu serializes ReadOperation/ReadData
// against each other (a single receiver reads envelopes strictly in
// arrival order, §4.4); writeMu does the same for the write side so
// concurrent handler goroutines replying on the same connection don't
// interleave their bytes.
type sckConn struct {
	conn    net.Conn
	readMu  sync.Mutex
	writeMu sync.Mutex
}

func (c *sckConn) WriteOperation(ctx context.Context, e wire.Envelope) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return wire.WriteEnvelope(c.conn, e)
}

func (c *sckConn) ReadOperation(ctx context.Context) (wire.Envelope, error) {
	c.readMu.Lock()
	defer c.readMu.Unlock()
	return wire.ReadEnvelope(c.conn)
}

func (c *sckConn) ReadData(ctx context.Context, tag uint32, size int) ([]byte, error) {
	c.readMu.Lock()
	defer c.readMu.Unlock()
	buf := make([]byte, size)
	if _, err := io.ReadFull(c.conn, buf); err != nil {
		return nil, errors.Wrap(err, "sck: read data")
	}
	return buf, nil
}

func (c *sckConn) WriteData(ctx context.Context, tag uint32, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if _, err := c.conn.Write(data); err != nil {
		return errors.Wrap(err, "sck: write data")
	}
	return nil
}

func (c *sckConn) ReadControl(ctx context.Context) (wire.ControlCode, error) {
	c.readMu.Lock()
	defer c.readMu.Unlock()
	code, err := wire.ReadControlCode(c.conn)
	if err != nil {
		return 0, errors.Wrap(err, "sck: read control code")
	}
	return code, nil
}

func (c *sckConn) WriteControl(ctx context.Context, code wire.ControlCode) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := wire.WriteControlCode(c.conn, code); err != nil {
		return errors.Wrap(err, "sck: write control code")
	}
	return nil
}

func (c *sckConn) Disconnect() error {
	return c.conn.Close()
}
