package transport

import (
	"context"

	"github.com/xpn-project/xpn/wire"
	"github.com/xpn-project/xpn/xpnerr"
)

// stubTransport backs the mpi_server and fabric_server protocols.
// Neither MPI nor libfabric has a pure-Go binding in the example pack
// or its wider ecosystem (both are C libraries requiring cgo and a
// matching runtime install), so these satisfy Transport without
// fabricating a fake dependency; every call returns ErrUnavailable.
// A real deployment wanting these transports needs a cgo binding
// layer outside this module's scope.
type stubTransport struct{ name string }

// NewMPITransport returns the mpi_server stub.
func NewMPITransport() Transport { return &stubTransport{name: "mpi"} }

// NewFabricTransport returns the fabric_server stub.
func NewFabricTransport() Transport { return &stubTransport{name: "fabric"} }

func (t *stubTransport) Accept(ctx context.Context) (Conn, error) {
	return nil, xpnerr.ErrUnavailable
}

func (t *stubTransport) Dial(ctx context.Context, addr string) (Conn, error) {
	return nil, xpnerr.ErrUnavailable
}

func (t *stubTransport) Close() error { return nil }

// stubConn is unreachable in practice (stubTransport never returns
// one) but defined so Conn's contract is documented in one place.
type stubConn struct{}

func (stubConn) WriteOperation(ctx context.Context, e wire.Envelope) error {
	return xpnerr.ErrUnavailable
}
func (stubConn) ReadOperation(ctx context.Context) (wire.Envelope, error) {
	return wire.Envelope{}, xpnerr.ErrUnavailable
}
func (stubConn) ReadData(ctx context.Context, tag uint32, size int) ([]byte, error) {
	return nil, xpnerr.ErrUnavailable
}
func (stubConn) WriteData(ctx context.Context, tag uint32, data []byte) error {
	return xpnerr.ErrUnavailable
}
func (stubConn) ReadControl(ctx context.Context) (wire.ControlCode, error) {
	return 0, xpnerr.ErrUnavailable
}
func (stubConn) WriteControl(ctx context.Context, c wire.ControlCode) error {
	return xpnerr.ErrUnavailable
}
func (stubConn) Disconnect() error { return xpnerr.ErrUnavailable }
