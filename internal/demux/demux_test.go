package demux

import (
	"testing"

	"github.com/sat-broadcast/satrecv/internal/wire"
)

func TestDispatchRoutesRegisteredService(t *testing.T) {
	d := New()
	var got []byte
	d.Register(wire.ServiceTime, func(payload []byte) { got = payload })
	d.Dispatch(wire.Frame{ServiceID: wire.ServiceTime, Payload: []byte{1, 2, 3}})
	if string(got) != "\x01\x02\x03" {
		t.Fatalf("handler did not receive payload, got %v", got)
	}
}

func TestDispatchUnknownServiceDoesNotPanic(t *testing.T) {
	d := New()
	d.Dispatch(wire.Frame{ServiceID: wire.ServiceId(0x7F), Payload: []byte{0xAA, 0xBB}})
}
