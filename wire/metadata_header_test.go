package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataHeaderMarshalRoundTrip(t *testing.T) {
	h := MetadataHeader{
		Version:          1,
		BlockSize:        1 << 20,
		ReplicationLevel: 2,
		FirstNode:        3,
		NumServers:       8,
		FileSize:         123456789,
	}

	b := h.Marshal()
	assert.Len(t, b, HeaderSize)

	parsed, err := UnmarshalMetadataHeader(b)
	require.NoError(t, err)
	assert.Equal(t, h, parsed)
	assert.True(t, parsed.Valid())
}

func TestUnmarshalMetadataHeaderBadMagic(t *testing.T) {
	b := make([]byte, HeaderSize)
	copy(b, "BAD")
	_, err := UnmarshalMetadataHeader(b)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "magic")
}

func TestUnmarshalMetadataHeaderTruncated(t *testing.T) {
	_, err := UnmarshalMetadataHeader([]byte("short"))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "truncated")
}

func TestMetadataHeaderZeroValueInvalid(t *testing.T) {
	var h MetadataHeader
	assert.False(t, h.Valid())
}
