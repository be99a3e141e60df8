//go:build linux

package source

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"
)

// liveRcvBufBytes is the requested SO_RCVBUF size; the kernel doubles it for
// bookkeeping and may clamp to net.core.rmem_max, so this is a ceiling, not
// a guarantee.
const liveRcvBufBytes = 4 * 1024 * 1024

// raiseRcvBuf grows the socket's receive buffer via SO_RCVBUF, mirroring the
// raw-socket tuning the SocketCAN backend performed for its own transport.
func raiseRcvBuf(conn *net.UDPConn) error {
	raw, err := conn.SyscallConn()
	if err != nil {
		return fmt.Errorf("source: syscall conn: %w", err)
	}
	var setErr error
	ctrlErr := raw.Control(func(fd uintptr) {
		setErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_RCVBUF, liveRcvBufBytes)
	})
	if ctrlErr != nil {
		return ctrlErr
	}
	return setErr
}
