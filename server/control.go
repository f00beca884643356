package server

import "github.com/xpn-project/xpn/wire"

// encodeStats packs a per-opcode counter snapshot for the STATS_CODE
// and STATS_WINDOW_CODE control replies: a count followed by
// (opcode uint32, count uint64) pairs, little-endian (§4.4).
func encodeStats(snapshot map[wire.Opcode]uint64) []byte {
	buf := make([]byte, 4+len(snapshot)*12)
	wire.ByteOrder.PutUint32(buf[0:4], uint32(len(snapshot)))
	off := 4
	for op, n := range snapshot {
		wire.ByteOrder.PutUint32(buf[off:off+4], uint32(op))
		wire.ByteOrder.PutUint64(buf[off+4:off+12], n)
		off += 12
	}
	return buf
}
