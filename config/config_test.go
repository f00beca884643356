package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseValid(t *testing.T) {
	src := `
# comment
[partition]
partition_name = p1
controller_url = sck_server://10.0.0.1:3456/
bsize = 4M
replication_level = 1
server_url = sck_server://10.0.0.1:3456/data
server_url = sck_server://10.0.0.2:3456/data
server_url = sck_server://10.0.0.3:3456/data
`
	p, err := Parse(strings.NewReader(src))
	require.NoError(t, err)
	require.Equal(t, "p1", p.Name)
	require.Equal(t, int64(4<<20), p.BlockSize)
	require.Equal(t, 1, p.ReplicationLevel)
	require.Len(t, p.Servers, 3)
	require.Equal(t, "sck_server", p.Servers[0].Protocol)
	require.Equal(t, "10.0.0.1", p.Servers[0].Host)
	require.Equal(t, 3456, p.Servers[0].Port)
	require.Equal(t, "/data", p.Servers[0].Path)
}

func TestParseDefaultsBlockSize(t *testing.T) {
	src := `
[partition]
server_url = file:///mnt/a
`
	p, err := Parse(strings.NewReader(src))
	require.NoError(t, err)
	require.Equal(t, int64(1<<20), p.BlockSize)
}

func TestParseIgnoresUnknownKeys(t *testing.T) {
	src := `
[partition]
server_url = file:///mnt/a
future_key = whatever
`
	p, err := Parse(strings.NewReader(src))
	require.NoError(t, err)
	require.Len(t, p.Servers, 1)
}

func TestParseOutsidePartitionSectionIgnored(t *testing.T) {
	src := `
server_url = file:///mnt/a
[partition]
server_url = file:///mnt/b
`
	p, err := Parse(strings.NewReader(src))
	require.NoError(t, err)
	require.Len(t, p.Servers, 1)
	require.Equal(t, "/mnt/b", p.Servers[0].Path)
}

func TestParseNoServers(t *testing.T) {
	_, err := Parse(strings.NewReader("[partition]\npartition_name = p1\n"))
	require.Error(t, err)
}

func TestParseReplicationLevelTooHigh(t *testing.T) {
	src := `
[partition]
replication_level = 2
server_url = file:///mnt/a
server_url = file:///mnt/b
`
	_, err := Parse(strings.NewReader(src))
	require.Error(t, err)
}

func TestParseBadLine(t *testing.T) {
	src := `
[partition]
this is not key value
`
	_, err := Parse(strings.NewReader(src))
	require.Error(t, err)
}

func TestParseServerURLMissingProtocol(t *testing.T) {
	src := `
[partition]
server_url = not-a-url
`
	_, err := Parse(strings.NewReader(src))
	require.Error(t, err)
}

func TestParseServerURLUnknownProtocol(t *testing.T) {
	src := `
[partition]
server_url = ftp://host/path
`
	_, err := Parse(strings.NewReader(src))
	require.Error(t, err)
}

func TestParseServerURLBadPort(t *testing.T) {
	src := `
[partition]
server_url = file://host:notaport/path
`
	_, err := Parse(strings.NewReader(src))
	require.Error(t, err)
}

func TestServerURLString(t *testing.T) {
	s := ServerURL{Protocol: "sck_server", Host: "h", Port: 1234, Path: "/x"}
	require.Equal(t, "sck_server://h:1234/x", s.String())

	s = ServerURL{Protocol: "file", Host: "h", Path: "/x"}
	require.Equal(t, "file://h/x", s.String())
}

func TestLoadFromEnvUnset(t *testing.T) {
	t.Setenv("XPN_CONF", "")
	_, err := LoadFromEnv()
	require.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/to/xpn.conf")
	require.Error(t, err)
}
