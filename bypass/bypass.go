// Package bypass sketches the seam a POSIX interposition layer would
// need to call into an XPN mount without this module implementing one
// (§1 "out of scope", NON-GOALS). The original's bypass/xpn_bypass.cpp
// LD_PRELOADs libc's open/read/write/close and routes matching paths
// into the XPN client; reproducing that requires cgo and a
// process-wide fd-to-client table that lives outside a plain Go
// module's reach, so only the call surface such a shim would bind
// against is named here.
package bypass

import "github.com/xpn-project/xpn/client"

// MountPoint is the interface a libc-interposition shim would need:
// given a path under its configured prefix, resolve which *Client
// owns the mounted partition. A real shim built on this module would
// implement path-prefix matching and process-wide fd bookkeeping on
// top of an ordinary *client.Client; neither belongs in this package.
type MountPoint interface {
	Resolve(path string) (*client.Client, bool)
}
