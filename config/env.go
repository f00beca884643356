package config

import (
	"os"
	"strconv"
	"time"
)

// Env is the resolved set of XPN_* environment variables from §6,
// read once at client/server init the way the teacher's cmd/ packages
// resolve flags/env at startup rather than re-reading on every call.
type Env struct {
	MountPoint      string
	SckPort         int
	ConnectTimeout  time.Duration
	Locality        bool
	SessionFile     bool
	SessionDir      bool
	Thread          string // sequential | thread_pool | thread_on_demand
	Stats           bool
	GroupReadsWrites bool
	Debug           bool
}

// LoadEnv reads Env from the process environment, applying the same
// defaults the original client falls back to when a variable is unset.
func LoadEnv() Env {
	return Env{
		MountPoint:       os.Getenv("XPN_MOUNT_POINT"),
		SckPort:          envInt("XPN_SCK_PORT", 3456),
		ConnectTimeout:   time.Duration(envInt("XPN_CONNECT_TIMEOUT_MS", 5000)) * time.Millisecond,
		Locality:         envBool("XPN_LOCALITY", false),
		SessionFile:      envBool("XPN_SESSION_FILE", true),
		SessionDir:       envBool("XPN_SESSION_DIR", true),
		Thread:           envString("XPN_THREAD", "thread_pool"),
		Stats:            envBool("XPN_STATS", false),
		GroupReadsWrites: envBool("XPN_GROUP_READS_WRITES", false),
		Debug:            envBool("XPN_DEBUG", false),
	}
}

func envString(name, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}

func envInt(name string, def int) int {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envBool(name string, def bool) bool {
	if v := os.Getenv(name); v != "" {
		return v == "1" || v == "true"
	}
	return def
}
