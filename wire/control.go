package wire

import "encoding/binary"

// ControlCode is a code sent on the always-TCP control side-channel
// (§4.4), read as a single 32-bit little-endian integer ahead of any
// opcode-specific payload.
type ControlCode uint32

// Control codes accepted by the Listening state.
const (
	ControlAccept ControlCode = iota + 1
	ControlStats
	ControlStatsWindow
	ControlFinish
	ControlFinishAwait
	ControlPing
)

var controlNames = map[ControlCode]string{
	ControlAccept:      "ACCEPT_CODE",
	ControlStats:       "STATS_CODE",
	ControlStatsWindow: "STATS_WINDOW_CODE",
	ControlFinish:      "FINISH_CODE",
	ControlFinishAwait: "FINISH_CODE_AWAIT",
	ControlPing:        "PING_CODE",
}

// String implements fmt.Stringer.
func (c ControlCode) String() string {
	if n, ok := controlNames[c]; ok {
		return n
	}
	return "UNKNOWN_CONTROL"
}

// ByteOrder is the wire byte order used for every integer field in
// the protocol (§6: "bit-exact"); XPN fixes it to little-endian.
var ByteOrder = binary.LittleEndian
