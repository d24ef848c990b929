// Package interpolation evaluates polynomials given on a multiplicative coset
// at an out-of-domain point, via the barycentric formula. No coefficient
// recovery takes place, the cost is linear in the domain size.
package interpolation

import (
	"math/big"
	"sync"

	fr "github.com/consensys/gnark-crypto/field/koalabear"
	"github.com/consensys/gnark-crypto/field/koalabear/extensions"
	"github.com/consensys/gnark-crypto/field/koalabear/fft"

	"github.com/lita-xyz/go-fri/fext"
	"github.com/lita-xyz/go-fri/internal/parallel"
	"github.com/lita-xyz/go-fri/matrix"
)

// InterpolateSubgroup evaluates the columns of m, read as evaluations over the
// subgroup of order m.Height() in natural order, at point.
func InterpolateSubgroup(m matrix.Matrix[fr.Element], point extensions.E4) []extensions.E4 {
	var one fr.Element
	one.SetOne()
	return InterpolateCoset(m, one, point)
}

// InterpolateCoset evaluates the columns of m, read as evaluations over the
// coset shift·H with H the subgroup of order m.Height() in natural order, at
// point. One extension element is returned per column.
//
// With Z(X) = X^h - shift^h the vanishing polynomial of the coset, the
// barycentric form used is
//
//	p(z) = Z(z) / (h·shift^(h-1)) · sum_i y_i · g^i / (z - shift·g^i).
func InterpolateCoset(m matrix.Matrix[fr.Element], shift fr.Element, point extensions.E4) []extensions.E4 {
	h := m.Height()
	w := m.Width()

	g, err := fft.Generator(uint64(h))
	if err != nil {
		panic("interpolation: height exceeds two-adicity")
	}

	diffInvs := make([]extensions.E4, h)
	x := shift
	for i := 0; i < h; i++ {
		xe := fext.FromBase(x)
		diffInvs[i].Sub(&point, &xe)
		x.Mul(&x, &g)
	}
	fext.BatchInvert(diffInvs)

	var mu sync.Mutex
	sums := make([]extensions.E4, w)
	parallel.Execute(h, func(start, end int) {
		local := make([]extensions.E4, w)
		var gi fr.Element
		var weight, term extensions.E4
		gi.Exp(g, big.NewInt(int64(start)))
		for i := start; i < end; i++ {
			weight.MulByElement(&diffInvs[i], &gi)
			row := m.Row(i)
			for j := 0; j < w; j++ {
				term.MulByElement(&weight, &row[j])
				local[j].Add(&local[j], &term)
			}
			gi.Mul(&gi, &g)
		}
		mu.Lock()
		for j := 0; j < w; j++ {
			sums[j].Add(&sums[j], &local[j])
		}
		mu.Unlock()
	})

	// scale = (z^h - shift^h) / (h · shift^(h-1))
	zh := fext.Pow(point, uint64(h))
	var sh, denom, hf fr.Element
	sh.Exp(shift, big.NewInt(int64(h)))
	she := fext.FromBase(sh)
	var scale extensions.E4
	scale.Sub(&zh, &she)
	denom.Exp(shift, big.NewInt(int64(h-1)))
	hf.SetUint64(uint64(h))
	denom.Mul(&denom, &hf)
	denom.Inverse(&denom)
	scale.MulByElement(&scale, &denom)

	for j := 0; j < w; j++ {
		sums[j].Mul(&sums[j], &scale)
	}
	return sums
}
