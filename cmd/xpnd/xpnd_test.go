package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xpn-project/xpn/server"
	"github.com/xpn-project/xpn/transport"
	"github.com/xpn-project/xpn/wire"
)

func TestConnModeFromType(t *testing.T) {
	cases := map[string]string{
		"pool":       "thread_pool",
		"":           "thread_pool",
		"on_demand":  "thread_on_demand",
		"sequential": "sequential",
	}
	for in, want := range cases {
		got, err := connModeFromType(in)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}

	_, err := connModeFromType("bogus")
	require.Error(t, err)
}

func TestListenTransportSck(t *testing.T) {
	tr, err := listenTransport("sck", 0)
	require.NoError(t, err)
	defer tr.Close()
	sck, ok := tr.(*transport.SckTransport)
	require.True(t, ok)
	require.NotEmpty(t, sck.Addr())
}

func TestListenTransportStubs(t *testing.T) {
	for _, st := range []string{"mpi", "fabric"} {
		tr, err := listenTransport(st, 0)
		require.NoError(t, err)
		_, err = tr.Accept(context.Background())
		require.Error(t, err)
	}
}

func TestListenTransportUnknown(t *testing.T) {
	_, err := listenTransport("carrier-pigeon", 0)
	require.Error(t, err)
}

func TestReadHosts(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hosts")
	require.NoError(t, os.WriteFile(path, []byte("127.0.0.1:1\n127.0.0.1:2\n\n"), 0644))

	hosts, err := readHosts(path)
	require.NoError(t, err)
	require.Equal(t, []string{"127.0.0.1:1", "127.0.0.1:2"}, hosts)
}

// TestStopAndStatsAgainstRunningServer exercises the control-channel
// admin path end to end: start a dispatcher, send it STATS_CODE and
// FINISH_CODE over the same sendControl/fetchStats helpers the stop
// and stats subcommands use.
func TestStopAndStatsAgainstRunningServer(t *testing.T) {
	root := t.TempDir()
	tr, err := transport.ListenSck("127.0.0.1:0")
	require.NoError(t, err)

	d, err := server.NewDispatcher(tr, root, server.Config{ConnMode: "thread_pool", OpMode: "sequential", ThreadsPerOp: 4})
	require.NoError(t, err)
	go d.Serve(context.Background())

	addr := tr.Addr()
	ctx := context.Background()

	require.NoError(t, sendControl(ctx, addr, wire.ControlPing))

	counts, err := fetchStats(ctx, addr)
	require.NoError(t, err)
	require.NotNil(t, counts)

	require.NoError(t, sendControl(ctx, addr, wire.ControlFinish))
	time.Sleep(20 * time.Millisecond)
}
