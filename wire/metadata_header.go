package wire

import "github.com/pkg/errors"

// magicBytes identifies a valid metadata header (§3).
var magicBytes = [3]byte{'X', 'P', 'N'}

// HeaderSize is the fixed on-disk/on-wire size of MetadataHeader,
// matching the packed struct in §3: magic[3], version u32,
// block_size u64, replication_level u32, first_node u32,
// num_servers u32, file_size u64.
const HeaderSize = 3 + 4 + 8 + 4 + 4 + 4 + 8

// MetadataHeader is the per-file header a partition stores at the
// master server, replicated to the R+1 replica ring (§3, §4.2).
type MetadataHeader struct {
	Version          uint32
	BlockSize        uint64
	ReplicationLevel uint32
	FirstNode        uint32
	NumServers       uint32
	FileSize         uint64
}

// Marshal encodes h into a fixed HeaderSize-byte buffer.
func (h MetadataHeader) Marshal() []byte {
	e := &encoder{}
	e.buf.Write(magicBytes[:])
	e.u32(h.Version)
	e.u64(h.BlockSize)
	e.u32(h.ReplicationLevel)
	e.u32(h.FirstNode)
	e.u32(h.NumServers)
	e.u64(h.FileSize)
	return e.bytes()
}

// UnmarshalMetadataHeader decodes a header previously produced by
// Marshal, rejecting anything not carrying the expected magic (§3
// invariant: "a header lacking the magic is not a valid file").
func UnmarshalMetadataHeader(b []byte) (MetadataHeader, error) {
	if len(b) < HeaderSize {
		return MetadataHeader{}, errors.Errorf("metadata header truncated: got %d bytes, want %d", len(b), HeaderSize)
	}
	d := newDecoder(b)
	var magic [3]byte
	if _, err := d.r.Read(magic[:]); err != nil {
		return MetadataHeader{}, errors.Wrap(err, "reading metadata magic")
	}
	if magic != magicBytes {
		return MetadataHeader{}, errors.Errorf("bad metadata magic %q", magic)
	}
	var h MetadataHeader
	var err error
	if h.Version, err = d.u32(); err != nil {
		return MetadataHeader{}, err
	}
	if h.BlockSize, err = d.u64(); err != nil {
		return MetadataHeader{}, err
	}
	if h.ReplicationLevel, err = d.u32(); err != nil {
		return MetadataHeader{}, err
	}
	if h.FirstNode, err = d.u32(); err != nil {
		return MetadataHeader{}, err
	}
	if h.NumServers, err = d.u32(); err != nil {
		return MetadataHeader{}, err
	}
	if h.FileSize, err = d.u64(); err != nil {
		return MetadataHeader{}, err
	}
	return h, nil
}

// Valid reports whether h looks like a header that was actually
// written (version and num_servers set), as opposed to a zero-value
// placeholder.
func (h MetadataHeader) Valid() bool {
	return h.Version != 0 && h.NumServers != 0
}
