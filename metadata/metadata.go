// Package metadata implements the client-side metadata manager
// (§4.3): per-file header read/write against the master-file election,
// replicated writes across the R+1 replica ring, and the size-only
// compare-and-advance path used after every write that extends a
// file. Grounded on the errgroup fan-out idiom of
// backend/raid3/metadata.go, generalized from raid3's fixed
// three-remote replication to XPN's configurable R.
package metadata

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/xpn-project/xpn/partition"
	"github.com/xpn-project/xpn/wire"
	"github.com/xpn-project/xpn/xpnerr"
)

// RPC is the minimal request/response call a Manager needs against one
// server; the client package supplies the concrete implementation
// (dialing/reusing a transport.Conn and tagging the envelope).
type RPC interface {
	Call(ctx context.Context, server partition.ServerID, req wire.Envelope) (wire.Envelope, error)
}

// Manager is the client-side metadata manager for one partition.
type Manager struct {
	partition *partition.Partition
	rpc       RPC
}

// New constructs a Manager bound to p and the given RPC transport.
func New(p *partition.Partition, rpc RPC) *Manager {
	return &Manager{partition: p, rpc: rpc}
}

// Read queries the master-file server for path's header (§4.3
// "Read"). A magic mismatch or directory target is reported by the
// server as success with a zeroed header, not an error; Read passes
// that through unchanged rather than synthesizing one locally.
func (m *Manager) Read(ctx context.Context, path string) (wire.MetadataHeader, error) {
	s0 := m.partition.MasterFile(path)
	req := wire.PathRequest{Path: path}
	resp, err := m.rpc.Call(ctx, s0, wire.Envelope{Op: wire.OpReadMdata, Body: req.Marshal()})
	if err != nil {
		return wire.MetadataHeader{}, err
	}
	parsed, err := wire.UnmarshalReadMdataResponse(resp.Body)
	if err != nil {
		return wire.MetadataHeader{}, err
	}
	if !parsed.Status.OK() {
		return wire.MetadataHeader{}, xpnerr.ToError(parsed.Status)
	}
	return parsed.Header, nil
}

// Write replicates a full header write to every non-errored replica
// of path's master file (§4.3 "Write"). It succeeds as long as at
// least one replica accepts the write, matching the write-path
// tolerance described in §4.2 ("metadata write reaches at least one
// master-replica").
func (m *Manager) Write(ctx context.Context, path string, mode uint32, header wire.MetadataHeader) error {
	req := wire.WriteMdataRequest{Path: path, Mode: mode, Header: header}
	return m.replicate(ctx, path, wire.OpWriteMdata, req.Marshal())
}

// WriteFileSize replicates the size-only compare-and-advance update
// used after a write extends the cached file size (§4.2 step 6, §4.3
// "Size-only update"). XPN makes this call synchronously rather than
// fire-and-forget, resolving the eventual-consistency window the
// source leaves open (§9 open question).
func (m *Manager) WriteFileSize(ctx context.Context, path string, size uint64) error {
	req := wire.WriteMdataFileSizeRequest{Path: path, FileSize: size}
	return m.replicate(ctx, path, wire.OpWriteMdataFileSize, req.Marshal())
}

func (m *Manager) replicate(ctx context.Context, path string, op wire.Opcode, body []byte) error {
	s0 := m.partition.MasterFile(path)
	r := m.partition.ReplicationLevel

	g, gCtx := errgroup.WithContext(ctx)
	var mu sync.Mutex
	var attempted, succeeded int
	var firstErr error
	record := func(err error) {
		mu.Lock()
		defer mu.Unlock()
		attempted++
		if err == nil {
			succeeded++
		} else if firstErr == nil {
			firstErr = err
		}
	}

	for rep := uint32(0); rep <= r; rep++ {
		srv := partition.ServerID((uint64(s0) + uint64(rep)) % uint64(m.partition.NumServers()))
		if m.partition.IsErrored(srv) {
			continue
		}
		srv := srv
		g.Go(func() error {
			resp, err := m.rpc.Call(gCtx, srv, wire.Envelope{Op: op, Body: body})
			if err != nil {
				record(err)
				return nil // collected via record, not propagated as a hard abort
			}
			status, err := wire.UnmarshalStatusResponse(resp.Body)
			if err != nil {
				record(err)
				return nil
			}
			if !status.Status.OK() {
				record(xpnerr.ToError(status.Status))
				return nil
			}
			record(nil)
			return nil
		})
	}
	_ = g.Wait()

	if attempted == 0 {
		return xpnerr.ErrAllReplicasErrored
	}
	if succeeded > 0 {
		return nil
	}
	return firstErr
}
