package utils

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLog2Strict(t *testing.T) {
	require.Equal(t, 0, Log2Strict(1))
	require.Equal(t, 3, Log2Strict(8))
	require.Equal(t, 10, Log2Strict(1024))
	require.Panics(t, func() { Log2Strict(0) })
	require.Panics(t, func() { Log2Strict(12) })
}

func TestReverseBits(t *testing.T) {
	require.Equal(t, 0, ReverseBits(0, 4))
	require.Equal(t, 8, ReverseBits(1, 4))
	require.Equal(t, 12, ReverseBits(3, 4))
	for i := 0; i < 32; i++ {
		require.Equal(t, i, ReverseBits(ReverseBits(i, 5), 5))
	}
}

func TestReverseIndexBits(t *testing.T) {
	s := []int{0, 1, 2, 3, 4, 5, 6, 7}
	ReverseIndexBits(s)
	require.Equal(t, []int{0, 4, 2, 6, 1, 5, 3, 7}, s)
	ReverseIndexBits(s)
	require.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7}, s)
}
