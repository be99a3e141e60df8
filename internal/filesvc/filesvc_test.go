package filesvc

import (
	"bytes"
	"testing"

	"github.com/sat-broadcast/satrecv/internal/wire"
)

func TestAnnouncementRoundTrip(t *testing.T) {
	a := Announcement{
		CarouselID:  1,
		FileID:      42,
		TotalBlocks: 6,
		Systematic:  4,
		BlockSize:   100,
		FileLength:  350,
		CodeID:      1,
		FileName:    "weather/latest.png",
		Signature:   []byte{0xDE, 0xAD},
	}
	got, err := ParseAnnouncement(EncodeAnnouncement(a))
	if err != nil {
		t.Fatalf("ParseAnnouncement: %v", err)
	}
	if got.FileName != a.FileName || got.CarouselID != a.CarouselID ||
		got.FileID != a.FileID || got.TotalBlocks != a.TotalBlocks ||
		got.Systematic != a.Systematic || got.BlockSize != a.BlockSize ||
		got.FileLength != a.FileLength || got.CodeID != a.CodeID ||
		!bytes.Equal(got.Signature, a.Signature) {
		t.Fatalf("got %+v want %+v", got, a)
	}
}

func TestAnnouncementMalformed(t *testing.T) {
	if _, err := ParseAnnouncement([]byte{0x00}); err != ErrMalformed {
		t.Fatalf("got %v, want ErrMalformed", err)
	}
	bad := EncodeAnnouncement(Announcement{TotalBlocks: 4, Systematic: 4, BlockSize: 10, FileName: "x"})
	bad[0] = 0xFF
	if _, err := ParseAnnouncement(bad); err != ErrMalformed {
		t.Fatalf("got %v, want ErrMalformed", err)
	}
}

func TestBlockRoundTrip(t *testing.T) {
	b := Block{CarouselID: 1, FileID: 2, Index: 3, Payload: []byte("abcdefgh")}
	got, err := ParseBlock(EncodeBlock(b))
	if err != nil {
		t.Fatalf("ParseBlock: %v", err)
	}
	if got.CarouselID != b.CarouselID || got.FileID != b.FileID || got.Index != b.Index || !bytes.Equal(got.Payload, b.Payload) {
		t.Fatalf("got %+v want %+v", got, b)
	}
}

func TestBlockBadCRC(t *testing.T) {
	raw := EncodeBlock(Block{CarouselID: 1, FileID: 1, Index: 0, Payload: []byte("x")})
	raw[len(raw)-1] ^= 0xFF
	if _, err := ParseBlock(raw); err != wire.ErrBadCRC {
		t.Fatalf("got %v, want ErrBadCRC", err)
	}
}
