package partition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xpn-project/xpn/config"
)

func testPartition(n int, blockSize uint64, replication uint32) *Partition {
	servers := make([]config.ServerURL, n)
	for i := range servers {
		servers[i] = config.ServerURL{Protocol: "sck_server", Host: "h", Port: 3456 + i}
	}
	return New(config.Partition{
		Name:             "test",
		BlockSize:        int64(blockSize),
		ReplicationLevel: int(replication),
		Servers:          servers,
	}, 0, false)
}

func TestNextReadNoReplicationBlockAligned(t *testing.T) {
	p := testPartition(4, 1024, 0)
	ops, skipped := p.NextRead(0, 0, 1024*3)
	require.Empty(t, skipped)
	require.Len(t, ops, 3)
	for i, op := range ops {
		assert.Equal(t, uint64(i), op.BlockIndex)
		assert.Equal(t, ServerID(i%4), op.Server)
		assert.Equal(t, uint64(0), op.LocalOff)
		assert.Equal(t, uint64(1024), op.Size)
	}
}

func TestNextReadUnalignedSpansExtraBlock(t *testing.T) {
	p := testPartition(4, 1024, 0)
	ops, skipped := p.NextRead(0, 512, 1024)
	require.Empty(t, skipped)
	require.Len(t, ops, 2)
	assert.Equal(t, uint64(512), ops[0].Size)
	assert.Equal(t, uint64(512), ops[1].Size)
}

func TestNextWriteReplicatesEveryOp(t *testing.T) {
	p := testPartition(4, 1024, 1) // R=1 -> 2 copies per block
	ops := p.NextWrite(0, 0, 1024)
	require.Len(t, ops, 2)
	assert.Equal(t, ServerID(0), ops[0].Server)
	assert.Equal(t, ServerID(1), ops[1].Server)
}

func TestNextWriteSkipsErroredReplica(t *testing.T) {
	p := testPartition(4, 1024, 1)
	p.MarkErrored(1)
	ops := p.NextWrite(0, 0, 1024)
	require.Len(t, ops, 1)
	assert.Equal(t, ServerID(0), ops[0].Server)
}

func TestNextReadPrefersLocalServer(t *testing.T) {
	servers := make([]config.ServerURL, 4)
	for i := range servers {
		servers[i] = config.ServerURL{Protocol: "sck_server", Host: "h", Port: 3456 + i}
	}
	p := New(config.Partition{BlockSize: 1024, ReplicationLevel: 2, Servers: servers}, 3, true)

	// first_node 1: block 0's replica ring is servers 1, 2, 3.
	ops, skipped := p.NextRead(1, 0, 1024)
	require.Empty(t, skipped)
	require.Len(t, ops, 1)
	assert.Equal(t, ServerID(3), ops[0].Server)
}

func TestNextReadSkipsBlockWhenAllReplicasErrored(t *testing.T) {
	p := testPartition(4, 1024, 1) // replicas for block 0: servers 0 and 1
	p.MarkErrored(0)
	p.MarkErrored(1)
	ops, skipped := p.NextRead(0, 0, 1024)
	assert.Empty(t, ops)
	require.Len(t, skipped, 1)
	assert.Equal(t, uint64(0), skipped[0])
}

func TestReplicaHolderFormsContiguousRing(t *testing.T) {
	p := testPartition(5, 1024, 2)
	assert.Equal(t, ServerID(0), p.ReplicaHolder(0, 0, 0))
	assert.Equal(t, ServerID(1), p.ReplicaHolder(0, 0, 1))
	assert.Equal(t, ServerID(2), p.ReplicaHolder(0, 0, 2))
	// wraps around N
	assert.Equal(t, ServerID(0), p.ReplicaHolder(0, 3, 2))
}

func TestMasterFileIsStableAndInRange(t *testing.T) {
	p := testPartition(4, 1024, 0)
	a := p.MasterFile("/xpn/dir/file1")
	b := p.MasterFile("/xpn/dir/file1")
	assert.Equal(t, a, b)
	assert.Less(t, uint32(a), p.NumServers())
}

func TestMasterFileDoesNotPanicOnEmptyPath(t *testing.T) {
	p := testPartition(8, 1024, 0)
	assert.Less(t, uint32(p.MasterFile("")), p.NumServers())
}

func TestNextReadEmptySize(t *testing.T) {
	p := testPartition(4, 1024, 0)
	ops, skipped := p.NextRead(0, 0, 0)
	assert.Nil(t, ops)
	assert.Nil(t, skipped)
}
