package fri

import (
	"math/big"

	fr "github.com/consensys/gnark-crypto/field/koalabear"
	"github.com/consensys/gnark-crypto/field/koalabear/extensions"
	"github.com/consensys/gnark-crypto/field/koalabear/fft"

	"github.com/lita-xyz/go-fri/fext"
	"github.com/lita-xyz/go-fri/internal/parallel"
	"github.com/lita-xyz/go-fri/internal/utils"
	"github.com/lita-xyz/go-fri/matrix"
)

var oneHalf fr.Element

func init() {
	oneHalf.SetOne()
	oneHalf.Halve()
}

// foldMatrix folds a codeword of 2·height(m) evaluations, committed as a
// width-2 matrix in bit-reversed row order, into a codeword of height(m)
// evaluations for the next round.
//
// Row i holds f(x) and f(-x) with x = g^bitrev(i, log n) over the subgroup of
// order 2n, and the output is
//
//	out[i] = (1/2 + beta/(2x))·f(x) + (1/2 - beta/(2x))·f(-x),
//
// the evaluation at beta of the line through (x, f(x)) and (-x, f(-x)),
// reindexed to the subgroup of order n.
func foldMatrix(beta extensions.E4, m matrix.Matrix[extensions.E4]) []extensions.E4 {
	n := m.Height()
	utils.Log2Strict(n)

	g, err := fft.Generator(uint64(2 * n))
	if err != nil {
		panic("fri: codeword exceeds two-adicity")
	}
	var gInv fr.Element
	gInv.Inverse(&g)

	var halfBeta extensions.E4
	halfBeta.MulByElement(&beta, &oneHalf)

	// powers[i] = beta/2 · g^-i, then bit-reversed to match row order.
	powers := make([]extensions.E4, n)
	powers[0] = halfBeta
	for i := 1; i < n; i++ {
		powers[i].MulByElement(&powers[i-1], &gInv)
	}
	utils.ReverseIndexBits(powers)

	half := fext.FromBase(oneHalf)
	out := make([]extensions.E4, n)
	parallel.Execute(n, func(start, end int) {
		var c0, c1, t extensions.E4
		for i := start; i < end; i++ {
			row := m.Row(i)
			c0.Add(&half, &powers[i])
			c1.Sub(&half, &powers[i])
			t.Mul(&c0, &row[0])
			out[i].Mul(&c1, &row[1])
			out[i].Add(&out[i], &t)
		}
	})
	return out
}

// FoldRow folds a single opened pair during verification. index is the row
// index in the folded codeword of log size logHeight, and (e0, e1) are the
// two evaluations committed at that row.
func FoldRow(index, logHeight int, beta extensions.E4, e0, e1 extensions.E4) extensions.E4 {
	g, err := fft.Generator(uint64(1) << uint(logHeight+1))
	if err != nil {
		panic("fri: codeword exceeds two-adicity")
	}
	var x fr.Element
	x.Exp(g, big.NewInt(int64(utils.ReverseBits(index, logHeight))))

	var twoX fr.Element
	twoX.Add(&x, &x)
	twoX.Inverse(&twoX)

	var ratio extensions.E4
	ratio.MulByElement(&beta, &twoX)

	half := fext.FromBase(oneHalf)
	var c0, c1, t, out extensions.E4
	c0.Add(&half, &ratio)
	c1.Sub(&half, &ratio)
	t.Mul(&c0, &e0)
	out.Mul(&c1, &e1)
	out.Add(&out, &t)
	return out
}
