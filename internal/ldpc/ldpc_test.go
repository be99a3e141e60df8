package ldpc

import (
	"bytes"
	"testing"
)

func xorBlocks(size int, blocks ...[]byte) []byte {
	out := make([]byte, size)
	for _, b := range blocks {
		xorInto(out, b)
	}
	return out
}

func TestDecodeRecoversTwoMissingSystematic(t *testing.T) {
	const blockSize = 8
	k, n := 4, 6
	code := SelectCode(k, n, 1)

	sys := [][]byte{
		bytes.Repeat([]byte{0x01}, blockSize),
		bytes.Repeat([]byte{0x02}, blockSize),
		bytes.Repeat([]byte{0x03}, blockSize),
		bytes.Repeat([]byte{0x04}, blockSize),
	}
	parity := make([][]byte, n-k)
	for row, cols := range code.Rows {
		members := make([][]byte, 0, len(cols))
		for _, c := range cols {
			members = append(members, sys[c])
		}
		parity[row] = xorBlocks(blockSize, members...)
	}

	received := map[int][]byte{
		0:   sys[0],
		2:   sys[2],
		k:   parity[0],
		k+1: parity[1],
	}

	recovered, err := Decode(code, received, blockSize)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !bytes.Equal(recovered[1], sys[1]) {
		t.Errorf("index 1: got %x want %x", recovered[1], sys[1])
	}
	if !bytes.Equal(recovered[3], sys[3]) {
		t.Errorf("index 3: got %x want %x", recovered[3], sys[3])
	}
}

func TestDecodeInsufficientWhenUnderdetermined(t *testing.T) {
	const blockSize = 4
	k, n := 4, 5 // only one parity block for four systematic slots
	code := SelectCode(k, n, 0)

	sys := [][]byte{
		{1, 1, 1, 1},
		{2, 2, 2, 2},
		{3, 3, 3, 3},
		{4, 4, 4, 4},
	}
	members := make([][]byte, 0, len(code.Rows[0]))
	for _, c := range code.Rows[0] {
		members = append(members, sys[c])
	}
	parity0 := xorBlocks(blockSize, members...)

	received := map[int][]byte{
		0: sys[0],
		k: parity0,
	}
	if _, err := Decode(code, received, blockSize); err != ErrInsufficient {
		t.Fatalf("got %v, want ErrInsufficient", err)
	}
}

func TestDecodeNoOpWhenAllSystematicPresent(t *testing.T) {
	code := SelectCode(3, 5, 0)
	received := map[int][]byte{0: {1}, 1: {2}, 2: {3}}
	recovered, err := Decode(code, received, 1)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(recovered) != 0 {
		t.Fatalf("got %v, want empty", recovered)
	}
}

func TestSelectCodeDeterministic(t *testing.T) {
	a := SelectCode(10, 14, 2)
	b := SelectCode(10, 14, 2)
	if len(a.Rows) != len(b.Rows) {
		t.Fatalf("row count mismatch")
	}
	for i := range a.Rows {
		if len(a.Rows[i]) != len(b.Rows[i]) {
			t.Fatalf("row %d differs between calls", i)
		}
		for j := range a.Rows[i] {
			if a.Rows[i][j] != b.Rows[i][j] {
				t.Fatalf("row %d differs between calls", i)
			}
		}
	}
}
