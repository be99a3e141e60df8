package wire

import (
	"bytes"
	"testing"
)

func TestParseSerializeRoundTrip(t *testing.T) {
	cases := [][]byte{
		{},
		{0x01},
		bytes.Repeat([]byte{0xAB}, 37),
	}
	for _, payload := range cases {
		raw := Serialize(ServiceFile, payload)
		fr, err := Parse(raw)
		if err != nil {
			t.Fatalf("Parse(%x): %v", raw, err)
		}
		if fr.ServiceID != ServiceFile {
			t.Fatalf("got service %v, want %v", fr.ServiceID, ServiceFile)
		}
		if !bytes.Equal(fr.Payload, payload) {
			t.Fatalf("got payload %x, want %x", fr.Payload, payload)
		}
	}
}

func TestParseShortFrame(t *testing.T) {
	if _, err := Parse([]byte{0x01, 0x02}); err != ErrShortFrame {
		t.Fatalf("got %v, want ErrShortFrame", err)
	}
}

func TestParseBadCRC(t *testing.T) {
	raw := Serialize(ServiceTime, []byte{1, 2, 3})
	raw[len(raw)-1] ^= 0xFF
	if _, err := Parse(raw); err != ErrBadCRC {
		t.Fatalf("got %v, want ErrBadCRC", err)
	}
}

func TestParseDeterministic(t *testing.T) {
	raw := Serialize(ServiceFile, []byte("hello"))
	a, err1 := Parse(raw)
	b, err2 := Parse(raw)
	if err1 != nil || err2 != nil {
		t.Fatalf("unexpected errors: %v %v", err1, err2)
	}
	if a.ServiceID != b.ServiceID || !bytes.Equal(a.Payload, b.Payload) {
		t.Fatalf("parse not deterministic: %+v vs %+v", a, b)
	}
}
