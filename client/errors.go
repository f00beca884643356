package client

import (
	"github.com/pkg/errors"

	"github.com/xpn-project/xpn/xpnerr"
)

// errInvalidWhence is returned by Seek for an unrecognized whence or a
// result that would be negative.
var errInvalidWhence = errors.New("invalid whence or negative resulting offset")

// statusError turns a failed wire status into an error, preferring the
// mapped xpnerr sentinel when the errno is recognized.
func statusError(s xpnerr.Status) error {
	return xpnerr.ToError(s)
}
