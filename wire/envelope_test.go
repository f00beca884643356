package wire

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelopeWriteReadRoundTrip(t *testing.T) {
	req := OpenFileRequest{Path: "/mnt/xpn/data/file.bin", Flags: 2, Mode: 0644}
	var buf bytes.Buffer
	err := WriteEnvelope(&buf, Envelope{Op: OpOpenFile, Tag: 7, Body: req.Marshal()})
	require.NoError(t, err)

	got, err := ReadEnvelope(&buf)
	require.NoError(t, err)
	assert.Equal(t, OpOpenFile, got.Op)
	assert.Equal(t, uint32(7), got.Tag)

	parsed, err := UnmarshalOpenFileRequest(got.Body)
	require.NoError(t, err)
	assert.Equal(t, req, parsed)
}

func TestReadEnvelopeRejectsOversizedMsg(t *testing.T) {
	var buf bytes.Buffer
	var hdr [EnvelopeHeaderSize]byte
	ByteOrder.PutUint32(hdr[0:4], uint32(OpReadFile))
	ByteOrder.PutUint32(hdr[4:8], 1)
	ByteOrder.PutUint32(hdr[8:12], MaxMsgSize+1)
	buf.Write(hdr[:])

	_, err := ReadEnvelope(&buf)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "msg_size")
}

func TestControlCodeWriteReadRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteControlCode(&buf, ControlStatsWindow))
	got, err := ReadControlCode(&buf)
	require.NoError(t, err)
	assert.Equal(t, ControlStatsWindow, got)
}

func TestOpcodeStringAndClassification(t *testing.T) {
	assert.Equal(t, "RM_FILE_ASYNC", OpRmFileAsync.String())
	assert.True(t, OpRmFileAsync.IsAsync())
	assert.False(t, OpRmFile.IsAsync())
	assert.True(t, OpFinalize.IsTeardown())
	assert.True(t, OpDisconnect.IsTeardown())
	assert.False(t, OpGetAttrFile.IsTeardown())
	assert.Equal(t, "UNKNOWN_OP", Opcode(0).String())
}
