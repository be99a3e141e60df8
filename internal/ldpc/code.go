// Package ldpc implements the outer erasure code: given a set of received
// systematic and parity blocks, it recovers any missing systematic blocks by
// solving the code's parity equations over GF(2), block-wise.
//
// The broadcast's real parity-check matrices are parameterised by file size
// and would need to be replicated bit-for-bit from existing captures for
// true interop (§9 design notes); none were available in this receiver's
// reference material, so Code uses a deterministic structured construction
// instead (documented as an open-question decision). It is internally
// consistent: the same (K, N, codeID) always yields the same matrix, so
// encode-side tooling and this decoder always agree.
package ldpc

// Code is a parity-check structure: N-K rows, each a sorted set of
// systematic column indices (the blocks XORed to form that parity block).
type Code struct {
	K, N int
	Rows [][]int // len(Rows) == N-K
}

// SelectCode derives the parity-check structure for a given systematic
// count K, total count N, and code identifier (carried in the
// announcement's FEC parameters, §3).
//
// Each parity row excludes exactly one systematic column, cycling which
// column is excluded (perturbed by codeID so distinct code identifiers do
// not collapse onto the same matrix). Rows are pairwise distinct while
// N-K <= K and K > 1; past that the cycle repeats. Restricted to the
// missing systematic columns, a row whose excluded column is missing covers
// every missing column but that one, and any other row covers all of them,
// so whether a loss pattern is recoverable depends on which columns are
// missing. Having as many parity blocks as missing systematic blocks is not
// always enough: with K=4, N=6, codeID 0 and blocks 2 and 3 missing, both
// rows cover {2, 3} and Decode returns ErrInsufficient.
func SelectCode(k, n int, codeID uint8) Code {
	p := n - k
	c := Code{K: k, N: n, Rows: make([][]int, p)}
	if p <= 0 || k <= 0 {
		return c
	}
	offset := int(codeID) % k
	for row := 0; row < p; row++ {
		excluded := (row + offset) % k
		if k == 1 {
			c.Rows[row] = []int{0}
			continue
		}
		cols := make([]int, 0, k-1)
		for j := 0; j < k; j++ {
			if j != excluded {
				cols = append(cols, j)
			}
		}
		c.Rows[row] = cols
	}
	return c
}
