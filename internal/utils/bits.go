package utils

import (
	"fmt"
	"math/bits"
)

// Log2Strict returns log2(n) for a power-of-two n, and panics otherwise.
// Codeword and domain sizes are powers of two throughout the protocol, so a
// non-power-of-two length is a programming error by the caller.
func Log2Strict(n int) int {
	if n <= 0 || n&(n-1) != 0 {
		panic(fmt.Sprintf("utils: %d is not a power of two", n))
	}
	return bits.TrailingZeros(uint(n))
}

// ReverseBits reverses the low nbBits bits of x.
func ReverseBits(x, nbBits int) int {
	return int(bits.Reverse64(uint64(x)) >> (64 - nbBits))
}

// ReverseIndexBits permutes s in place so that s[i] and s[rev(i)] are swapped,
// where rev reverses the log2(len(s)) low bits of i. len(s) must be a power of
// two.
func ReverseIndexBits[T any](s []T) {
	n := len(s)
	if n == 0 {
		return
	}
	logN := Log2Strict(n)
	for i := 0; i < n; i++ {
		j := ReverseBits(i, logN)
		if i < j {
			s[i], s[j] = s[j], s[i]
		}
	}
}
