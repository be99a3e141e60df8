package source

import (
	"errors"
	"fmt"
	"net"
)

// Live reads frames from a UDP endpoint; each datagram is exactly one frame.
type Live struct {
	conn *net.UDPConn
	buf  [65535]byte
}

// NewLive binds a UDP socket at addr (host:port) and raises its receive
// buffer, since satellite downlinks can burst well past the kernel default.
func NewLive(addr string) (*Live, error) {
	laddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("source: resolve %q: %w", addr, err)
	}
	conn, err := net.ListenUDP("udp", laddr)
	if err != nil {
		return nil, fmt.Errorf("source: listen %q: %w", addr, err)
	}
	if err := raiseRcvBuf(conn); err != nil {
		// Non-fatal: the kernel default is still usable, just more lossy
		// under burst. The error is discarded and not reported.
		_ = err
	}
	return &Live{conn: conn}, nil
}

// Next reads one datagram and returns its payload.
func (s *Live) Next() ([]byte, error) {
	n, err := s.conn.Read(s.buf[:])
	if err != nil {
		if errors.Is(err, net.ErrClosed) {
			return nil, ErrSourceClosed
		}
		return nil, fmt.Errorf("source: read: %w", err)
	}
	frame := make([]byte, n)
	copy(frame, s.buf[:n])
	return frame, nil
}

// Close shuts down the UDP socket, unblocking any pending Next.
func (s *Live) Close() error { return s.conn.Close() }

// Addr returns the bound local address (useful when port 0 was requested).
func (s *Live) Addr() net.Addr { return s.conn.LocalAddr() }
