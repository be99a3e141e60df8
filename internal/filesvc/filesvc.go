// Package filesvc parses the file-delivery service's two record kinds —
// announcements and data blocks — out of a file-service payload, following
// the fixed-offset parsing style used throughout this receiver (pure
// functions, explicit byte ranges, no reflection).
package filesvc

import (
	"encoding/binary"
	"errors"

	"github.com/sat-broadcast/satrecv/internal/wire"
)

// Record discriminants, the first byte of every file-service payload.
const (
	DiscriminantAnnouncement = 0xA0
	DiscriminantBlock        = 0xB0
)

// ErrMalformed is returned when a record's length or discriminant is invalid.
var ErrMalformed = errors.New("filesvc: malformed record")

// announcementMinLen: discriminant(1) + carousel(4) + file(4) + total(2) +
// systematic(2) + block_size(2) + file_len(8) + code_id(1) + name_len(2) +
// sig_len(2), before the variable-length name/signature tails.
const announcementMinLen = 1 + 4 + 4 + 2 + 2 + 2 + 8 + 1 + 2 + 2

// Announcement is a parsed file-delivery descriptor (§3 AnnouncementRecord).
type Announcement struct {
	CarouselID  uint32
	FileID      uint32
	TotalBlocks uint16 // N
	Systematic  uint16 // K
	BlockSize   uint16
	FileLength  uint64
	CodeID      uint8 // LDPC code selector
	FileName    string
	Signature   []byte // opaque, not validated (§1 out of scope)
}

// ParseAnnouncement decodes an announcement record.
func ParseAnnouncement(payload []byte) (Announcement, error) {
	if len(payload) < announcementMinLen || payload[0] != DiscriminantAnnouncement {
		return Announcement{}, ErrMalformed
	}
	a := Announcement{
		CarouselID:  binary.BigEndian.Uint32(payload[1:5]),
		FileID:      binary.BigEndian.Uint32(payload[5:9]),
		TotalBlocks: binary.BigEndian.Uint16(payload[9:11]),
		Systematic:  binary.BigEndian.Uint16(payload[11:13]),
		BlockSize:   binary.BigEndian.Uint16(payload[13:15]),
		FileLength:  binary.BigEndian.Uint64(payload[15:23]),
		CodeID:      payload[23],
	}
	off := 24
	nameLen, err := readU16Prefixed(payload, off)
	if err != nil {
		return Announcement{}, err
	}
	off += 2
	if off+int(nameLen) > len(payload) {
		return Announcement{}, ErrMalformed
	}
	a.FileName = string(payload[off : off+int(nameLen)])
	off += int(nameLen)

	sigLen, err := readU16Prefixed(payload, off)
	if err != nil {
		return Announcement{}, err
	}
	off += 2
	if off+int(sigLen) != len(payload) {
		return Announcement{}, ErrMalformed
	}
	if sigLen > 0 {
		a.Signature = append([]byte(nil), payload[off:off+int(sigLen)]...)
	}
	if a.Systematic == 0 || a.TotalBlocks < a.Systematic || a.BlockSize == 0 {
		return Announcement{}, ErrMalformed
	}
	return a, nil
}

func readU16Prefixed(payload []byte, off int) (uint16, error) {
	if off+2 > len(payload) {
		return 0, ErrMalformed
	}
	return binary.BigEndian.Uint16(payload[off : off+2]), nil
}

// EncodeAnnouncement is the left inverse of ParseAnnouncement, used by tests.
func EncodeAnnouncement(a Announcement) []byte {
	out := make([]byte, announcementMinLen+len(a.FileName)+len(a.Signature))
	out[0] = DiscriminantAnnouncement
	binary.BigEndian.PutUint32(out[1:5], a.CarouselID)
	binary.BigEndian.PutUint32(out[5:9], a.FileID)
	binary.BigEndian.PutUint16(out[9:11], a.TotalBlocks)
	binary.BigEndian.PutUint16(out[11:13], a.Systematic)
	binary.BigEndian.PutUint16(out[13:15], a.BlockSize)
	binary.BigEndian.PutUint64(out[15:23], a.FileLength)
	out[23] = a.CodeID
	off := 24
	binary.BigEndian.PutUint16(out[off:off+2], uint16(len(a.FileName)))
	off += 2
	off += copy(out[off:], a.FileName)
	binary.BigEndian.PutUint16(out[off:off+2], uint16(len(a.Signature)))
	off += 2
	copy(out[off:], a.Signature)
	return out
}

// blockHeaderLen: discriminant(1) + carousel(4) + file(4) + index(4).
const blockHeaderLen = 1 + 4 + 4 + 4

// innerCRCLen is the trailing inner-integrity field width (§4.7).
const innerCRCLen = 2

// Block is a parsed file fragment (§3 BlockRecord), already CRC-verified.
type Block struct {
	CarouselID uint32
	FileID     uint32
	Index      uint32
	Payload    []byte
}

// ParseBlock decodes and CRC-validates a block record. Bad-CRC records never
// reach the caller (§4.7): it returns wire.ErrBadCRC in that case.
func ParseBlock(payload []byte) (Block, error) {
	if len(payload) < blockHeaderLen+innerCRCLen || payload[0] != DiscriminantBlock {
		return Block{}, ErrMalformed
	}
	body := payload[:len(payload)-innerCRCLen]
	want := uint16(payload[len(payload)-2])<<8 | uint16(payload[len(payload)-1])
	// CRC covers index + payload only (§4.7), not carousel/file id.
	if wire.CRC16(body[9:]) != want {
		return Block{}, wire.ErrBadCRC
	}
	b := Block{
		CarouselID: binary.BigEndian.Uint32(body[1:5]),
		FileID:     binary.BigEndian.Uint32(body[5:9]),
		Index:      binary.BigEndian.Uint32(body[9:13]),
	}
	b.Payload = append([]byte(nil), body[blockHeaderLen:]...)
	return b, nil
}

// EncodeBlock is the left inverse of ParseBlock, used by tests; it computes the inner CRC over index+payload per §4.7.
func EncodeBlock(b Block) []byte {
	out := make([]byte, blockHeaderLen+len(b.Payload)+innerCRCLen)
	out[0] = DiscriminantBlock
	binary.BigEndian.PutUint32(out[1:5], b.CarouselID)
	binary.BigEndian.PutUint32(out[5:9], b.FileID)
	binary.BigEndian.PutUint32(out[9:13], b.Index)
	copy(out[blockHeaderLen:], b.Payload)
	crc := wire.CRC16(out[9 : blockHeaderLen+len(b.Payload)])
	out[len(out)-2] = byte(crc >> 8)
	out[len(out)-1] = byte(crc)
	return out
}
