package timesvc

import (
	"testing"
	"time"
)

func TestParseEncodeRoundTrip(t *testing.T) {
	ev := TimeEvent{Instant: time.Unix(1700000000, 0).UTC()}
	got, err := Parse(Encode(ev))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !got.Instant.Equal(ev.Instant) {
		t.Fatalf("got %v want %v", got.Instant, ev.Instant)
	}
}

func TestParseMalformed(t *testing.T) {
	if _, err := Parse([]byte{0x01, 0x00}); err != ErrMalformed {
		t.Fatalf("got %v, want ErrMalformed", err)
	}
	if _, err := Parse([]byte{0x02, 0, 0, 0, 0}); err != ErrMalformed {
		t.Fatalf("got %v, want ErrMalformed", err)
	}
}

func TestDecoderNotifiesObservers(t *testing.T) {
	var d Decoder
	var got []TimeEvent
	d.Subscribe(func(ev TimeEvent) { got = append(got, ev) })
	want := TimeEvent{Instant: time.Unix(10, 0).UTC()}
	if err := d.Handle(Encode(want)); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(got) != 1 || !got[0].Instant.Equal(want.Instant) {
		t.Fatalf("got %v, want [%v]", got, want)
	}
}
