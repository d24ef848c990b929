// Package matrix provides the row-major matrices the commitment and opening
// layers operate on, together with the index views (bit-reversed, truncated)
// that keep the two-adic folding structure aligned with memory layout.
package matrix

import (
	"fmt"

	"github.com/lita-xyz/go-fri/internal/utils"
)

// Dimensions describes the shape of a committed matrix.
type Dimensions struct {
	Width  int
	Height int
}

// Matrix is a read-only view over rows of field elements.
type Matrix[T any] interface {
	Height() int
	Width() int
	// Row returns the i-th row. The returned slice may alias internal storage
	// and must not be modified.
	Row(i int) []T
}

// Dense is a row-major matrix backed by a flat slice.
type Dense[T any] struct {
	Values []T
	Cols   int
}

// NewDense wraps values as a matrix with the given number of columns.
func NewDense[T any](values []T, cols int) *Dense[T] {
	if cols <= 0 || len(values)%cols != 0 {
		panic(fmt.Sprintf("matrix: %d values do not form rows of width %d", len(values), cols))
	}
	return &Dense[T]{Values: values, Cols: cols}
}

func (m *Dense[T]) Height() int { return len(m.Values) / m.Cols }

func (m *Dense[T]) Width() int { return m.Cols }

func (m *Dense[T]) Row(i int) []T { return m.Values[i*m.Cols : (i+1)*m.Cols] }

// Dims returns the matrix dimensions.
func (m *Dense[T]) Dims() Dimensions { return Dimensions{Width: m.Cols, Height: m.Height()} }

type bitReversed[T any] struct {
	inner   Matrix[T]
	logRows int
}

// BitReversed returns a view of m with rows read in bit-reversed index order.
// The height of m must be a power of two.
func BitReversed[T any](m Matrix[T]) Matrix[T] {
	return &bitReversed[T]{inner: m, logRows: utils.Log2Strict(m.Height())}
}

func (m *bitReversed[T]) Height() int { return m.inner.Height() }
func (m *bitReversed[T]) Width() int  { return m.inner.Width() }

func (m *bitReversed[T]) Row(i int) []T {
	return m.inner.Row(utils.ReverseBits(i, m.logRows))
}

type topRows[T any] struct {
	inner Matrix[T]
	rows  int
}

// TopRows returns a view of the first n rows of m.
func TopRows[T any](m Matrix[T], n int) Matrix[T] {
	if n > m.Height() {
		panic("matrix: truncation beyond matrix height")
	}
	return &topRows[T]{inner: m, rows: n}
}

func (m *topRows[T]) Height() int { return m.rows }
func (m *topRows[T]) Width() int  { return m.inner.Width() }

func (m *topRows[T]) Row(i int) []T {
	if i >= m.rows {
		panic("matrix: row out of range")
	}
	return m.inner.Row(i)
}
