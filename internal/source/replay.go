package source

import (
	"errors"
	"io"

	"github.com/sat-broadcast/satrecv/internal/kiss"
)

// Replay reads a recorded capture and unstuffs it into frames using the
// KISS delimiter/escape convention (§ wire formats).
type Replay struct {
	r       io.ReadCloser
	dec     kiss.Decoder
	pending [][]byte
	buf     [4096]byte
	eof     bool
}

// NewReplay wraps a recorded-capture reader.
func NewReplay(r io.ReadCloser) *Replay {
	return &Replay{r: r}
}

// Next returns the next unstuffed frame, or ErrSourceClosed at EOF.
func (s *Replay) Next() ([]byte, error) {
	for len(s.pending) == 0 {
		if s.eof {
			return nil, ErrSourceClosed
		}
		n, err := s.r.Read(s.buf[:])
		if n > 0 {
			s.dec.Feed(s.buf[:n], func(f []byte) {
				cp := append([]byte(nil), f...)
				s.pending = append(s.pending, cp)
			})
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				s.eof = true
				continue
			}
			return nil, err
		}
	}
	f := s.pending[0]
	s.pending = s.pending[1:]
	return f, nil
}

// Close releases the underlying reader.
func (s *Replay) Close() error { return s.r.Close() }
