package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadEnvDefaults(t *testing.T) {
	for _, k := range []string{
		"XPN_MOUNT_POINT", "XPN_SCK_PORT", "XPN_CONNECT_TIMEOUT_MS",
		"XPN_LOCALITY", "XPN_SESSION_FILE", "XPN_SESSION_DIR", "XPN_THREAD",
		"XPN_STATS", "XPN_GROUP_READS_WRITES", "XPN_DEBUG",
	} {
		t.Setenv(k, "")
	}

	env := LoadEnv()
	require.Equal(t, "", env.MountPoint)
	require.Equal(t, 3456, env.SckPort)
	require.Equal(t, 5000*time.Millisecond, env.ConnectTimeout)
	require.False(t, env.Locality)
	require.True(t, env.SessionFile)
	require.True(t, env.SessionDir)
	require.Equal(t, "thread_pool", env.Thread)
	require.False(t, env.Stats)
	require.False(t, env.GroupReadsWrites)
	require.False(t, env.Debug)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("XPN_MOUNT_POINT", "/mnt/xpn")
	t.Setenv("XPN_SCK_PORT", "9000")
	t.Setenv("XPN_CONNECT_TIMEOUT_MS", "1500")
	t.Setenv("XPN_LOCALITY", "1")
	t.Setenv("XPN_SESSION_FILE", "0")
	t.Setenv("XPN_THREAD", "sequential")
	t.Setenv("XPN_STATS", "true")
	t.Setenv("XPN_DEBUG", "1")

	env := LoadEnv()
	require.Equal(t, "/mnt/xpn", env.MountPoint)
	require.Equal(t, 9000, env.SckPort)
	require.Equal(t, 1500*time.Millisecond, env.ConnectTimeout)
	require.True(t, env.Locality)
	require.False(t, env.SessionFile)
	require.Equal(t, "sequential", env.Thread)
	require.True(t, env.Stats)
	require.True(t, env.Debug)
}
