// Package transport abstracts the three wire carriers named in the
// configuration (`mpi_server`, `sck_server`, `fabric_server`) behind
// one interface (§4.6). Only the socket transport is a real
// implementation; mpi and fabric are documented stubs (see stub.go)
// since no pure-Go binding for either exists in the example pack or
// its ecosystem.
package transport

import (
	"context"

	"github.com/xpn-project/xpn/wire"
)

// Transport is the four-call abstraction every concrete carrier
// implements (§4.6: "accept, disconnect, write_operation,
// read_data/write_data").
type Transport interface {
	// Accept blocks until a client connects (server side) and returns
	// a Conn for the new connection.
	Accept(ctx context.Context) (Conn, error)
	// Dial connects to a remote endpoint (client side).
	Dial(ctx context.Context, addr string) (Conn, error)
	// Close releases the transport's listening resources, if any.
	Close() error
}

// Conn is one established connection: envelope exchange plus the raw
// data channel used by READ_FILE/WRITE_FILE chunk streaming. Tag
// multiplexes replies for transports (mpi, fabric) that do not
// preserve strict per-connection ordering; the socket transport
// ignores it and relies on sequential read order, serialized by the
// caller (§4.6).
type Conn interface {
	WriteOperation(ctx context.Context, e wire.Envelope) error
	ReadOperation(ctx context.Context) (wire.Envelope, error)
	ReadData(ctx context.Context, tag uint32, size int) ([]byte, error)
	WriteData(ctx context.Context, tag uint32, data []byte) error
	// ReadControl/WriteControl exchange the Listening state's control
	// side-channel codes (ACCEPT_CODE, STATS_CODE, STATS_WINDOW_CODE,
	// FINISH_CODE, FINISH_CODE_AWAIT, PING_CODE) ahead of any envelope
	// traffic (§4.4).
	ReadControl(ctx context.Context) (wire.ControlCode, error)
	WriteControl(ctx context.Context, c wire.ControlCode) error
	Disconnect() error
}
