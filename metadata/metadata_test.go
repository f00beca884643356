package metadata

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xpn-project/xpn/config"
	"github.com/xpn-project/xpn/partition"
	"github.com/xpn-project/xpn/wire"
	"github.com/xpn-project/xpn/xpnerr"
)

// fakeRPC plays the server side in-process: each server's header
// store is just a map, matching a test double style rather than a
// real backing filesystem.
type fakeRPC struct {
	mu      sync.Mutex
	headers map[partition.ServerID]map[string]wire.MetadataHeader
	fail    map[partition.ServerID]bool
}

func newFakeRPC(n int) *fakeRPC {
	r := &fakeRPC{
		headers: make(map[partition.ServerID]map[string]wire.MetadataHeader),
		fail:    make(map[partition.ServerID]bool),
	}
	for i := 0; i < n; i++ {
		r.headers[partition.ServerID(i)] = make(map[string]wire.MetadataHeader)
	}
	return r
}

func (r *fakeRPC) Call(ctx context.Context, server partition.ServerID, req wire.Envelope) (wire.Envelope, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.fail[server] {
		return wire.Envelope{}, xpnerr.ErrUnavailable
	}

	switch req.Op {
	case wire.OpReadMdata:
		pr, err := wire.UnmarshalPathRequest(req.Body)
		if err != nil {
			return wire.Envelope{}, err
		}
		h := r.headers[server][pr.Path] // zero value if absent, matching server semantics
		resp := wire.ReadMdataResponse{Status: xpnerr.StatusOK, Header: h}
		return wire.Envelope{Op: req.Op, Body: resp.Marshal()}, nil

	case wire.OpWriteMdata:
		wr, err := wire.UnmarshalWriteMdataRequest(req.Body)
		if err != nil {
			return wire.Envelope{}, err
		}
		r.headers[server][wr.Path] = wr.Header
		resp := wire.StatusResponse{Status: xpnerr.StatusOK}
		return wire.Envelope{Op: req.Op, Body: resp.Marshal()}, nil

	case wire.OpWriteMdataFileSize:
		wr, err := wire.UnmarshalWriteMdataFileSizeRequest(req.Body)
		if err != nil {
			return wire.Envelope{}, err
		}
		h := r.headers[server][wr.Path]
		if wr.FileSize > h.FileSize {
			h.FileSize = wr.FileSize
			r.headers[server][wr.Path] = h
		}
		resp := wire.StatusResponse{Status: xpnerr.StatusOK}
		return wire.Envelope{Op: req.Op, Body: resp.Marshal()}, nil
	}
	return wire.Envelope{}, xpnerr.ErrUnavailable
}

func testPartition(n int, replication uint32) *partition.Partition {
	servers := make([]config.ServerURL, n)
	return partition.New(config.Partition{
		BlockSize:        1024,
		ReplicationLevel: int(replication),
		Servers:          servers,
	}, 0, false)
}

func TestWriteThenReadRoundTrip(t *testing.T) {
	p := testPartition(4, 1)
	rpc := newFakeRPC(4)
	m := New(p, rpc)

	h := wire.MetadataHeader{Version: 1, BlockSize: 4096, NumServers: 4, FileSize: 100}
	require.NoError(t, m.Write(context.Background(), "/a/b", 0644, h))

	got, err := m.Read(context.Background(), "/a/b")
	require.NoError(t, err)
	assert.Equal(t, h, got)
}

func TestWriteToleratesOneFailedReplica(t *testing.T) {
	p := testPartition(4, 1) // R=1: 2 replicas per write
	rpc := newFakeRPC(4)
	m := New(p, rpc)

	s0 := p.MasterFile("/a/b")
	rpc.fail[s0] = true // primary replica unreachable

	h := wire.MetadataHeader{Version: 1, NumServers: 4, FileSize: 50}
	err := m.Write(context.Background(), "/a/b", 0644, h)
	assert.NoError(t, err)
}

func TestWriteFailsWhenAllReplicasErrored(t *testing.T) {
	p := testPartition(4, 1)
	rpc := newFakeRPC(4)
	m := New(p, rpc)

	s0 := p.MasterFile("/a/b")
	for r := uint32(0); r <= p.ReplicationLevel; r++ {
		srv := partition.ServerID((uint64(s0) + uint64(r)) % uint64(p.NumServers()))
		p.MarkErrored(srv)
	}

	err := m.Write(context.Background(), "/a/b", 0644, wire.MetadataHeader{})
	assert.ErrorIs(t, err, xpnerr.ErrAllReplicasErrored)
}

func TestWriteFileSizeCompareAndAdvance(t *testing.T) {
	p := testPartition(4, 0)
	rpc := newFakeRPC(4)
	m := New(p, rpc)

	require.NoError(t, m.Write(context.Background(), "/f", 0644, wire.MetadataHeader{Version: 1, NumServers: 4, FileSize: 100}))
	require.NoError(t, m.WriteFileSize(context.Background(), "/f", 50)) // smaller: no-op
	h, err := m.Read(context.Background(), "/f")
	require.NoError(t, err)
	assert.Equal(t, uint64(100), h.FileSize)

	require.NoError(t, m.WriteFileSize(context.Background(), "/f", 200))
	h, err = m.Read(context.Background(), "/f")
	require.NoError(t, err)
	assert.Equal(t, uint64(200), h.FileSize)
}

func TestReadAbsentFileReturnsZeroHeader(t *testing.T) {
	p := testPartition(4, 0)
	rpc := newFakeRPC(4)
	m := New(p, rpc)

	h, err := m.Read(context.Background(), "/never/written")
	require.NoError(t, err)
	assert.False(t, h.Valid())
}
