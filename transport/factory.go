package transport

import "github.com/pkg/errors"

// NewClientTransport returns the client-side Transport for a
// configuration protocol string (§6 accepted protocols).
func NewClientTransport(protocol string) (Transport, error) {
	switch protocol {
	case "sck_server":
		return NewSckTransport(), nil
	case "mpi_server":
		return NewMPITransport(), nil
	case "fabric_server":
		return NewFabricTransport(), nil
	default:
		return nil, errors.Errorf("transport: unsupported protocol %q", protocol)
	}
}
