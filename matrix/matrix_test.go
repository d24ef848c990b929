package matrix

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDense(t *testing.T) {
	m := NewDense([]int{1, 2, 3, 4, 5, 6}, 2)
	require.Equal(t, 3, m.Height())
	require.Equal(t, 2, m.Width())
	require.Equal(t, []int{3, 4}, m.Row(1))
	require.Equal(t, Dimensions{Width: 2, Height: 3}, m.Dims())

	require.Panics(t, func() { NewDense([]int{1, 2, 3}, 2) })
}

func TestBitReversed(t *testing.T) {
	m := NewDense([]int{0, 1, 2, 3, 4, 5, 6, 7}, 1)
	br := BitReversed[int](m)
	require.Equal(t, 8, br.Height())
	var rows []int
	for i := 0; i < br.Height(); i++ {
		rows = append(rows, br.Row(i)[0])
	}
	require.Equal(t, []int{0, 4, 2, 6, 1, 5, 3, 7}, rows)
}

func TestTopRows(t *testing.T) {
	m := NewDense([]int{0, 1, 2, 3, 4, 5, 6, 7}, 2)
	top := TopRows[int](m, 2)
	require.Equal(t, 2, top.Height())
	require.Equal(t, []int{2, 3}, top.Row(1))
	require.Panics(t, func() { top.Row(2) })
	require.Panics(t, func() { TopRows[int](m, 5) })
}
