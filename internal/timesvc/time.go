// Package timesvc decodes time-service payloads into TimeEvents and fans
// them out to observers. It never touches file-reassembly state.
package timesvc

import (
	"encoding/binary"
	"errors"
	"sync"
	"time"
)

// Discriminant is the fixed first byte of a time-service payload.
const Discriminant = 0x01

// wireLen is discriminant(1) + seconds-since-epoch(4).
const wireLen = 5

// ErrMalformed is returned when the payload does not match the fixed layout.
var ErrMalformed = errors.New("timesvc: malformed record")

// TimeEvent is emitted once per decoded time beacon.
type TimeEvent struct {
	Instant time.Time
}

// Parse decodes a fixed-layout timestamp (whole seconds since the Unix
// epoch) from a time-service payload.
func Parse(payload []byte) (TimeEvent, error) {
	if len(payload) != wireLen || payload[0] != Discriminant {
		return TimeEvent{}, ErrMalformed
	}
	secs := binary.BigEndian.Uint32(payload[1:5])
	return TimeEvent{Instant: time.Unix(int64(secs), 0).UTC()}, nil
}

// Encode is the left inverse of Parse, used by tests.
func Encode(ev TimeEvent) []byte {
	out := make([]byte, wireLen)
	out[0] = Discriminant
	binary.BigEndian.PutUint32(out[1:5], uint32(ev.Instant.Unix()))
	return out
}

// Decoder parses time-service payloads and notifies subscribed observers.
type Decoder struct {
	mu        sync.RWMutex
	observers []func(TimeEvent)
}

// Subscribe registers fn to be called for every subsequently decoded event.
func (d *Decoder) Subscribe(fn func(TimeEvent)) {
	d.mu.Lock()
	d.observers = append(d.observers, fn)
	d.mu.Unlock()
}

// Handle decodes payload and notifies observers, or returns ErrMalformed.
func (d *Decoder) Handle(payload []byte) error {
	ev, err := Parse(payload)
	if err != nil {
		return err
	}
	d.mu.RLock()
	obs := make([]func(TimeEvent), len(d.observers))
	copy(obs, d.observers)
	d.mu.RUnlock()
	for _, fn := range obs {
		fn(ev)
	}
	return nil
}
