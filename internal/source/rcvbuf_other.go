//go:build !linux

package source

import "net"

// raiseRcvBuf is a no-op outside Linux; SO_RCVBUF tuning here is an
// optimization, not a correctness requirement.
func raiseRcvBuf(*net.UDPConn) error { return nil }
