package transport

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xpn-project/xpn/wire"
)

func TestSckTransportAcceptDialRoundTrip(t *testing.T) {
	srv, err := ListenSck("127.0.0.1:0")
	require.NoError(t, err)
	defer srv.Close()

	ctx := context.Background()
	acceptCh := make(chan Conn, 1)
	errCh := make(chan error, 1)
	go func() {
		c, err := srv.Accept(ctx)
		if err != nil {
			errCh <- err
			return
		}
		acceptCh <- c
	}()

	client := NewSckTransport()
	clientConn, err := client.Dial(ctx, srv.Addr())
	require.NoError(t, err)
	defer clientConn.Disconnect()

	var serverConn Conn
	select {
	case serverConn = <-acceptCh:
	case err := <-errCh:
		t.Fatalf("accept failed: %v", err)
	}
	defer serverConn.Disconnect()

	req := wire.OpenFileRequest{Path: "/a/b", Flags: 0, Mode: 0644}
	env := wire.Envelope{Op: wire.OpOpenFile, Tag: 5, Body: req.Marshal()}
	require.NoError(t, clientConn.WriteOperation(ctx, env))

	got, err := serverConn.ReadOperation(ctx)
	require.NoError(t, err)
	assert.Equal(t, wire.OpOpenFile, got.Op)
	assert.Equal(t, uint32(5), got.Tag)

	parsed, err := wire.UnmarshalOpenFileRequest(got.Body)
	require.NoError(t, err)
	assert.Equal(t, req, parsed)
}

func TestNewClientTransportUnknownProtocol(t *testing.T) {
	_, err := NewClientTransport("http_server")
	assert.Error(t, err)
}

func TestMPIAndFabricStubsReturnUnavailable(t *testing.T) {
	ctx := context.Background()
	for _, proto := range []string{"mpi_server", "fabric_server"} {
		tr, err := NewClientTransport(proto)
		require.NoError(t, err)
		_, err = tr.Dial(ctx, "anywhere:0")
		assert.Error(t, err)
	}
}
