package log

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLevelString(t *testing.T) {
	require.Equal(t, "ERROR", LevelError.String())
	require.Equal(t, "INFO", LevelInfo.String())
	require.Equal(t, "DEBUG", LevelDebug.String())
	require.Contains(t, Level(99).String(), "Unknown")
}

func TestLoggerGating(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, LevelInfo)

	l.Debugf("should not appear")
	require.Empty(t, buf.String())

	l.Infof("hello %s", "world")
	require.Contains(t, buf.String(), "hello world")
	require.Contains(t, buf.String(), "INFO")
}

func TestLoggerSetLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, LevelInfo)
	l.SetLevel(LevelDebug)

	l.Debugf("now visible")
	require.Contains(t, buf.String(), "now visible")
}

func TestLoggerErrorfAlwaysEmitted(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, LevelError)

	l.Infof("suppressed")
	l.Errorf("boom")
	require.NotContains(t, buf.String(), "suppressed")
	require.Contains(t, buf.String(), "boom")
}

func TestLevelFromEnv(t *testing.T) {
	old := os.Getenv("XPN_DEBUG")
	defer os.Setenv("XPN_DEBUG", old)

	os.Setenv("XPN_DEBUG", "1")
	require.Equal(t, LevelDebug, LevelFromEnv())

	os.Setenv("XPN_DEBUG", "0")
	require.Equal(t, LevelInfo, LevelFromEnv())

	os.Unsetenv("XPN_DEBUG")
	require.Equal(t, LevelInfo, LevelFromEnv())
}

func TestLoggerFormat(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, LevelDebug)
	l.Infof("x=%d", 42)
	line := strings.TrimSpace(buf.String())
	fields := strings.SplitN(line, " ", 4)
	require.Len(t, fields, 4)
	require.Equal(t, "INFO", fields[2])
}
