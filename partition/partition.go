// Package partition implements the stripe calculator: the placement
// math that maps a user (offset, length) onto per-server, per-replica
// block operations for a fixed partition of servers (§4.1).
package partition

import (
	"math/rand"
	"sync"

	"github.com/OneOfOne/xxhash"

	"github.com/xpn-project/xpn/config"
)

// ServerID indexes a server within a Partition.
type ServerID uint32

// Partition is an immutable, ordered set of servers sharing one block
// size and replication level, as constructed from configuration at
// client init (§2: "Partition").
type Partition struct {
	Name             string
	BlockSize        uint64
	ReplicationLevel uint32
	Servers          []config.ServerURL

	mu      sync.RWMutex
	errored map[ServerID]bool
	// localServ is the partition-init-time discovery of which server
	// shares a hostname with this client, if any (§4.1 tie-break).
	localServ ServerID
	hasLocal  bool
}

// New builds a Partition from a parsed configuration section.
func New(p config.Partition, localServ ServerID, hasLocal bool) *Partition {
	return &Partition{
		Name:             p.Name,
		BlockSize:        uint64(p.BlockSize),
		ReplicationLevel: uint32(p.ReplicationLevel),
		Servers:          p.Servers,
		errored:          make(map[ServerID]bool),
		localServ:        localServ,
		hasLocal:         hasLocal,
	}
}

// NumServers is N in the placement formulas.
func (p *Partition) NumServers() uint32 { return uint32(len(p.Servers)) }

// MasterFile computes the master-file election for path: the server
// responsible for accepting metadata reads/writes for it (§3, §9
// "Master-file election by path hash"). Client and every server must
// agree on this function, so it is a pure, stable hash independent of
// process memory layout.
func (p *Partition) MasterFile(path string) ServerID {
	h := xxhash.ChecksumString64(path)
	return ServerID(h % uint64(p.NumServers()))
}

// MarkErrored flags a server as unreachable for the remainder of this
// session; subsequent ops skip it (§4.1, §4.2 failure semantics).
func (p *Partition) MarkErrored(s ServerID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.errored[s] = true
}

// IsErrored reports whether s has been marked errored.
func (p *Partition) IsErrored(s ServerID) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.errored[s]
}

// ClearErrored resets a server's errored state, e.g. after it has
// been observed to respond again.
func (p *Partition) ClearErrored(s ServerID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.errored, s)
}

// Placement is the result of mapping a single block-aligned slice of
// the user's (offset, length) onto one server (§4.1).
type Placement struct {
	BlockIndex uint64
	BlockInSrv uint64
	OwningSrv  ServerID
	LocalOff   uint64
}

// place computes the primary (replica 0) placement for an absolute
// byte offset, implementing the read-direction formula verbatim.
func (p *Partition) place(firstNode uint32, off uint64) Placement {
	b := p.BlockSize
	r := uint64(p.ReplicationLevel)
	n := uint64(p.NumServers())

	blockIndex := off / b
	blockInSrv := blockIndex / (r + 1)
	owningSrv := (uint64(firstNode) + blockIndex) % n
	localOff := blockInSrv*b + (off % b)

	return Placement{
		BlockIndex: blockIndex,
		BlockInSrv: blockInSrv,
		OwningSrv:  ServerID(owningSrv),
		LocalOff:   localOff,
	}
}

// ReplicaHolder returns the server holding replica r of the block at
// blockIndex, given the file's first_node (§4.1: "contiguous ring of
// length R+1 starting at the primary owner").
func (p *Partition) ReplicaHolder(firstNode uint32, blockIndex uint64, r uint32) ServerID {
	n := uint64(p.NumServers())
	return ServerID((uint64(firstNode) + blockIndex + uint64(r)) % n)
}

// Op is one per-server, per-block operation emitted by NextRead or
// NextWrite: a slice of the user buffer destined for (or sourced
// from) one server at one local offset (§4.1 contract).
type Op struct {
	Server     ServerID
	LocalOff   uint64
	BufferOff  int // offset into the caller's user buffer
	Size       uint64
	BlockIndex uint64
	Replica    uint32 // which replica (0 = primary) this op targets
}

// NextRead decomposes (off, size) into the ordered read ops for a
// file with the given first_node, choosing among healthy replicas per
// block using the local-server tie-break, then a randomized starting
// replica (§4.1 "Tie-breaks").
//
// Exactly one op is emitted per block touched; a block with every
// replica errored is reported via the returned skipped slice rather
// than silently dropped.
func (p *Partition) NextRead(firstNode uint32, off, size uint64) (ops []Op, skipped []uint64) {
	if size == 0 {
		return nil, nil
	}
	r := p.ReplicationLevel
	b := p.BlockSize
	end := off + size
	bufOff := 0

	for cur := off; cur < end; {
		blockEnd := (cur/b + 1) * b
		sliceEnd := blockEnd
		if sliceEnd > end {
			sliceEnd = end
		}
		sliceSize := sliceEnd - cur

		placement := p.place(firstNode, cur)
		holder, ok := p.pickReadReplica(firstNode, placement.BlockIndex, r)
		if !ok {
			skipped = append(skipped, placement.BlockIndex)
			cur = sliceEnd
			bufOff += int(sliceSize)
			continue
		}

		ops = append(ops, Op{
			Server:     holder.server,
			LocalOff:   placement.LocalOff,
			BufferOff:  bufOff,
			Size:       sliceSize,
			BlockIndex: placement.BlockIndex,
			Replica:    holder.replica,
		})

		bufOff += int(sliceSize)
		cur = sliceEnd
	}
	return ops, skipped
}

type replicaChoice struct {
	server  ServerID
	replica uint32
}

// pickReadReplica picks which replica of blockIndex to read from: the
// local server if it holds a healthy replica, else a randomized
// starting point walking the ring once (§4.1).
func (p *Partition) pickReadReplica(firstNode uint32, blockIndex uint64, r uint32) (replicaChoice, bool) {
	if p.hasLocal {
		for rep := uint32(0); rep <= r; rep++ {
			holder := p.ReplicaHolder(firstNode, blockIndex, rep)
			if holder == p.localServ && !p.IsErrored(holder) {
				return replicaChoice{holder, rep}, true
			}
		}
	}

	start := uint32(0)
	if r > 0 {
		start = uint32(rand.Intn(int(r) + 1))
	}
	for i := uint32(0); i <= r; i++ {
		rep := (start + i) % (r + 1)
		holder := p.ReplicaHolder(firstNode, blockIndex, rep)
		if !p.IsErrored(holder) {
			return replicaChoice{holder, rep}, true
		}
	}
	return replicaChoice{}, false
}

// NextWrite decomposes (off, size) into the ordered write ops for a
// file with the given first_node, emitting one op per non-errored
// replica of each block touched (§4.1: "writes always target every
// non-errored replica in order").
func (p *Partition) NextWrite(firstNode uint32, off, size uint64) []Op {
	if size == 0 {
		return nil
	}
	r := p.ReplicationLevel
	b := p.BlockSize
	end := off + size
	bufOff := 0

	var ops []Op
	for cur := off; cur < end; {
		blockEnd := (cur/b + 1) * b
		sliceEnd := blockEnd
		if sliceEnd > end {
			sliceEnd = end
		}
		sliceSize := sliceEnd - cur

		placement := p.place(firstNode, cur)
		for rep := uint32(0); rep <= r; rep++ {
			holder := p.ReplicaHolder(firstNode, placement.BlockIndex, rep)
			if p.IsErrored(holder) {
				continue
			}
			ops = append(ops, Op{
				Server:     holder,
				LocalOff:   placement.LocalOff,
				BufferOff:  bufOff,
				Size:       sliceSize,
				BlockIndex: placement.BlockIndex,
				Replica:    rep,
			})
		}

		bufOff += int(sliceSize)
		cur = sliceEnd
	}
	return ops
}
