package main

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHostnameMatches(t *testing.T) {
	hostname, err := os.Hostname()
	require.NoError(t, err)
	require.True(t, hostnameMatches(hostname, hostname))
	require.False(t, hostnameMatches("definitely-not-a-real-host.invalid", hostname))
}
