// Package mmcs implements a Merkle commitment over a batch of matrices of
// distinct power-of-two heights. All matrices are committed under a single
// root: rows of the tallest matrices are hashed into the leaf layer, and rows
// of each shorter matrix are absorbed into the internal layer whose node count
// matches the matrix height. Opening one index therefore yields one row per
// matrix, sharing a single authentication path.
package mmcs

import (
	"bytes"
	"errors"
	"fmt"

	"golang.org/x/crypto/sha3"

	"github.com/lita-xyz/go-fri/internal/parallel"
	"github.com/lita-xyz/go-fri/internal/utils"
	"github.com/lita-xyz/go-fri/matrix"
)

// Commitment is a Merkle root.
type Commitment [32]byte

// Proof is the list of sibling digests from the leaf layer to the root.
type Proof [][]byte

var (
	ErrDimensionMismatch = errors.New("mmcs: opened rows do not match claimed dimensions")
	ErrInvalidIndex      = errors.New("mmcs: index out of range")
	ErrRootMismatch      = errors.New("mmcs: root mismatch")
)

// Scheme hashes rows of T into the tree. The encoder appends the canonical
// byte representation of x to dst.
type Scheme[T any] struct {
	encode func(dst []byte, x T) []byte
}

// NewScheme builds a commitment scheme from a row-element encoder.
func NewScheme[T any](encode func(dst []byte, x T) []byte) *Scheme[T] {
	return &Scheme[T]{encode: encode}
}

// ProverData retains the committed matrices and every tree layer so openings
// can be produced without recomputation.
type ProverData[T any] struct {
	mats   []matrix.Matrix[T]
	layers [][][32]byte // layers[0] is the leaf layer, last layer has one node
}

// Matrices returns the committed matrices in commit order.
func (pd *ProverData[T]) Matrices() []matrix.Matrix[T] { return pd.mats }

// MaxHeight returns the height of the tallest committed matrix.
func (pd *ProverData[T]) MaxHeight() int { return len(pd.layers[0]) }

// Root returns the commitment.
func (pd *ProverData[T]) Root() Commitment {
	top := pd.layers[len(pd.layers)-1]
	return Commitment(top[0])
}

// leaf and node digests carry distinct prefixes so a leaf preimage can never
// collide with an internal node preimage.
const (
	leafPrefix = 0x00
	nodePrefix = 0x01
)

func hashDigest(buf []byte) [32]byte {
	var out [32]byte
	h := sha3.NewShake256()
	h.Write(buf)
	h.Read(out[:])
	return out
}

// rowsAtHeight returns the matrices of exactly height h, in commit order.
func rowsAtHeight[T any](mats []matrix.Matrix[T], h int) []matrix.Matrix[T] {
	var out []matrix.Matrix[T]
	for _, m := range mats {
		if m.Height() == h {
			out = append(out, m)
		}
	}
	return out
}

// Commit builds the tree over the given matrices. Heights must be powers of
// two; matrices of equal height are concatenated row-wise at the same layer.
func (s *Scheme[T]) Commit(mats []matrix.Matrix[T]) (Commitment, *ProverData[T]) {
	if len(mats) == 0 {
		panic("mmcs: empty commit")
	}
	maxH := 0
	for _, m := range mats {
		h := m.Height()
		utils.Log2Strict(h)
		if h > maxH {
			maxH = h
		}
	}

	pd := &ProverData[T]{mats: mats}

	// Leaf layer: one digest per index, absorbing the rows of every matrix
	// of maximal height.
	tallest := rowsAtHeight(mats, maxH)
	leaves := make([][32]byte, maxH)
	parallel.Execute(maxH, func(start, end int) {
		buf := make([]byte, 0, 256)
		for i := start; i < end; i++ {
			buf = append(buf[:0], leafPrefix)
			for _, m := range tallest {
				for _, v := range m.Row(i) {
					buf = s.encode(buf, v)
				}
			}
			leaves[i] = hashDigest(buf)
		}
	})
	pd.layers = append(pd.layers, leaves)

	// Internal layers: compress pairs, injecting rows of any matrix whose
	// height equals the new layer size.
	for size := maxH / 2; size >= 1; size /= 2 {
		prev := pd.layers[len(pd.layers)-1]
		injected := rowsAtHeight(mats, size)
		layer := make([][32]byte, size)
		parallel.Execute(size, func(start, end int) {
			buf := make([]byte, 0, 256)
			for i := start; i < end; i++ {
				buf = append(buf[:0], nodePrefix)
				buf = append(buf, prev[2*i][:]...)
				buf = append(buf, prev[2*i+1][:]...)
				for _, m := range injected {
					for _, v := range m.Row(i) {
						buf = s.encode(buf, v)
					}
				}
				layer[i] = hashDigest(buf)
			}
		})
		pd.layers = append(pd.layers, layer)
	}

	return pd.Root(), pd
}

// Open returns, for each committed matrix, its row at the given leaf index
// scaled down to the matrix height, together with the authentication path.
func (s *Scheme[T]) Open(pd *ProverData[T], index int) ([][]T, Proof) {
	maxH := pd.MaxHeight()
	if index < 0 || index >= maxH {
		panic("mmcs: index out of range")
	}
	logMax := utils.Log2Strict(maxH)

	rows := make([][]T, len(pd.mats))
	for i, m := range pd.mats {
		shift := logMax - utils.Log2Strict(m.Height())
		rows[i] = m.Row(index >> shift)
	}

	proof := make(Proof, 0, logMax)
	idx := index
	for level := 0; level < logMax; level++ {
		sibling := pd.layers[level][idx^1]
		proof = append(proof, append([]byte(nil), sibling[:]...))
		idx >>= 1
	}
	return rows, proof
}

// Verify checks that rows are the openings of the matrices described by dims
// at the given index under commitment c.
func (s *Scheme[T]) Verify(c Commitment, dims []matrix.Dimensions, index int, rows [][]T, proof Proof) error {
	if len(rows) != len(dims) {
		return fmt.Errorf("%w: %d rows for %d matrices", ErrDimensionMismatch, len(rows), len(dims))
	}
	maxH := 0
	for _, d := range dims {
		utils.Log2Strict(d.Height)
		if d.Height > maxH {
			maxH = d.Height
		}
	}
	logMax := utils.Log2Strict(maxH)
	if index < 0 || index >= maxH {
		return fmt.Errorf("%w: index %d, height %d", ErrInvalidIndex, index, maxH)
	}
	if len(proof) != logMax {
		return fmt.Errorf("%w: proof has %d levels, want %d", ErrDimensionMismatch, len(proof), logMax)
	}
	for i, d := range dims {
		if len(rows[i]) != d.Width {
			return fmt.Errorf("%w: row %d has width %d, want %d", ErrDimensionMismatch, i, len(rows[i]), d.Width)
		}
	}

	encodeAtHeight := func(buf []byte, h int) []byte {
		for i, d := range dims {
			if d.Height != h {
				continue
			}
			for _, v := range rows[i] {
				buf = s.encode(buf, v)
			}
		}
		return buf
	}

	buf := make([]byte, 0, 256)
	buf = append(buf, leafPrefix)
	buf = encodeAtHeight(buf, maxH)
	digest := hashDigest(buf)

	idx := index
	for level := 0; level < logMax; level++ {
		sibling := proof[level]
		if len(sibling) != 32 {
			return fmt.Errorf("%w: sibling at level %d has %d bytes", ErrDimensionMismatch, level, len(sibling))
		}
		buf = append(buf[:0], nodePrefix)
		if idx&1 == 0 {
			buf = append(buf, digest[:]...)
			buf = append(buf, sibling...)
		} else {
			buf = append(buf, sibling...)
			buf = append(buf, digest[:]...)
		}
		idx >>= 1
		buf = encodeAtHeight(buf, maxH>>(level+1))
		digest = hashDigest(buf)
	}

	if !bytes.Equal(digest[:], c[:]) {
		return ErrRootMismatch
	}
	return nil
}
