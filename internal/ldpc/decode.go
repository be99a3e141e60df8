package ldpc

import "errors"

// ErrInsufficient is returned when the received blocks do not form a
// solvable system: too many systematic blocks are missing for the parity
// equations on hand to pin down every one of them.
var ErrInsufficient = errors.New("ldpc: insufficient blocks to recover file")

// Decode recovers every missing systematic block given the blocks actually
// received. received maps block index (0..N-1; indices below K are
// systematic, K..N-1 are parity) to that block's exact blockSize-byte
// payload. Decode never mutates the slices in received.
//
// It returns a map from systematic index to recovered payload, containing
// only the indices that were missing from received. If the parity equations
// on hand cannot pin down every missing systematic index, it returns
// ErrInsufficient.
func Decode(code Code, received map[int][]byte, blockSize int) (map[int][]byte, error) {
	missing := make([]int, 0)
	for i := 0; i < code.K; i++ {
		if _, ok := received[i]; !ok {
			missing = append(missing, i)
		}
	}
	if len(missing) == 0 {
		return map[int][]byte{}, nil
	}

	colOf := make(map[int]int, len(missing)) // systematic index -> unknown column
	for c, idx := range missing {
		colOf[idx] = c
	}
	m := len(missing)

	type equation struct {
		cols []bool
		rhs  []byte
	}
	var rows []equation

	for row, cols := range code.Rows {
		parityIdx := code.K + row
		parityPayload, ok := received[parityIdx]
		if !ok {
			continue
		}
		rhs := append([]byte(nil), parityPayload...)
		bits := make([]bool, m)
		unknownCount := 0
		for _, sysIdx := range cols {
			if c, isUnknown := colOf[sysIdx]; isUnknown {
				bits[c] = true
				unknownCount++
				continue
			}
			xorInto(rhs, received[sysIdx])
		}
		if unknownCount == 0 {
			continue // pure consistency check, carries no new information
		}
		rows = append(rows, equation{cols: bits, rhs: rhs})
	}

	colPivot := make([]int, m)
	for i := range colPivot {
		colPivot[i] = -1
	}
	usedRow := make([]bool, len(rows))

	for col := 0; col < m; col++ {
		sel := -1
		for i, r := range rows {
			if !usedRow[i] && r.cols[col] {
				sel = i
				break
			}
		}
		if sel == -1 {
			continue
		}
		usedRow[sel] = true
		colPivot[col] = sel
		pivot := rows[sel]
		for i := range rows {
			if i == sel || !rows[i].cols[col] {
				continue
			}
			for c2 := 0; c2 < m; c2++ {
				rows[i].cols[c2] = rows[i].cols[c2] != pivot.cols[c2]
			}
			xorInto(rows[i].rhs, pivot.rhs)
		}
	}

	out := make(map[int][]byte, m)
	for col, sysIdx := range missing {
		if colPivot[col] == -1 {
			return nil, ErrInsufficient
		}
		out[sysIdx] = rows[colPivot[col]].rhs
	}
	return out, nil
}

func xorInto(dst, src []byte) {
	n := len(dst)
	if len(src) < n {
		n = len(src)
	}
	for i := 0; i < n; i++ {
		dst[i] ^= src[i]
	}
}
