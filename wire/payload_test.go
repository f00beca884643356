package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xpn-project/xpn/xpnerr"
)

func TestRenameFileRequestRoundTrip(t *testing.T) {
	req := RenameFileRequest{OldPath: "/a/old", NewPath: "/a/new"}
	parsed, err := UnmarshalRenameFileRequest(req.Marshal())
	require.NoError(t, err)
	assert.Equal(t, req, parsed)
}

func TestAttrResponseRoundTrip(t *testing.T) {
	resp := AttrResponse{
		Status: xpnerr.StatusOK,
		Attr:   Attr{Size: 4096, Mode: 0755, Mtime: 1700000000, IsDir: true},
	}
	parsed, err := UnmarshalAttrResponse(resp.Marshal())
	require.NoError(t, err)
	assert.Equal(t, resp, parsed)
}

func TestReaddirResponseRoundTrip(t *testing.T) {
	resp := ReaddirResponse{
		Status: xpnerr.StatusOK,
		Name:   "entry.txt",
		Cursor: DirCursor(42),
		End:    false,
	}
	parsed, err := UnmarshalReaddirResponse(resp.Marshal())
	require.NoError(t, err)
	assert.Equal(t, resp, parsed)
}

func TestWriteMdataRequestRoundTrip(t *testing.T) {
	req := WriteMdataRequest{
		Path: "/a/b",
		Mode: 0644,
		Header: MetadataHeader{
			Version:          1,
			BlockSize:        1 << 16,
			ReplicationLevel: 1,
			FirstNode:        0,
			NumServers:       4,
			FileSize:         9000,
		},
	}
	parsed, err := UnmarshalWriteMdataRequest(req.Marshal())
	require.NoError(t, err)
	assert.Equal(t, req, parsed)
}

func TestReadMdataResponseRoundTrip(t *testing.T) {
	resp := ReadMdataResponse{
		Status: xpnerr.StatusOK,
		Header: MetadataHeader{Version: 1, BlockSize: 4096, NumServers: 2, FileSize: 10},
	}
	parsed, err := UnmarshalReadMdataResponse(resp.Marshal())
	require.NoError(t, err)
	assert.Equal(t, resp, parsed)
}

func TestStatvfsResponseRoundTrip(t *testing.T) {
	resp := StatvfsResponse{
		Status: xpnerr.StatusOK,
		Bsize:  4096, Blocks: 1000, Bfree: 500, Bavail: 500, Files: 10, Ffree: 5,
	}
	parsed, err := UnmarshalStatvfsResponse(resp.Marshal())
	require.NoError(t, err)
	assert.Equal(t, resp, parsed)
}

func TestPathRequestRoundTrip(t *testing.T) {
	req := PathRequest{Path: "/some/path"}
	parsed, err := UnmarshalPathRequest(req.Marshal())
	require.NoError(t, err)
	assert.Equal(t, req, parsed)
}

func TestEncoderRejectsOversizedPath(t *testing.T) {
	e := &encoder{}
	huge := make([]byte, PathMax+1)
	err := e.path(string(huge))
	assert.Error(t, err)
}
