package pcs

import (
	fr "github.com/consensys/gnark-crypto/field/koalabear"
	"github.com/consensys/gnark-crypto/field/koalabear/extensions"

	"github.com/lita-xyz/go-fri/fext"
)

// PowersReducer folds vectors against successive powers of a batching
// challenge. The powers are stored both as extension elements and as
// transposed base field limbs, so reducing a base field row costs four base
// dot products instead of a per-element extension multiplication.
type PowersReducer struct {
	powers []extensions.E4
	limbs  [4][]fr.Element
}

// NewPowersReducer precomputes powers of alpha up to maxWidth.
func NewPowersReducer(alpha extensions.E4, maxWidth int) *PowersReducer {
	r := &PowersReducer{powers: fext.Powers(alpha, maxWidth)}
	for l := 0; l < 4; l++ {
		r.limbs[l] = make([]fr.Element, maxWidth)
	}
	for i, p := range r.powers {
		ls := fext.Limbs(p)
		for l := 0; l < 4; l++ {
			r.limbs[l][i] = ls[l]
		}
	}
	return r
}

// ReduceExt returns sum_i alpha^i · xs[i].
func (r *PowersReducer) ReduceExt(xs []extensions.E4) extensions.E4 {
	var res, t extensions.E4
	for i := range xs {
		t.Mul(&r.powers[i], &xs[i])
		res.Add(&res, &t)
	}
	return res
}

// ReduceBase returns sum_i alpha^i · xs[i] for a base field row. The sum is
// taken limb by limb over the transposed powers.
func (r *PowersReducer) ReduceBase(xs []fr.Element) extensions.E4 {
	var sums [4]fr.Element
	for l := 0; l < 4; l++ {
		ps := r.limbs[l]
		var acc, t fr.Element
		i := 0
		for ; i+4 <= len(xs); i += 4 {
			t.Mul(&ps[i], &xs[i])
			acc.Add(&acc, &t)
			t.Mul(&ps[i+1], &xs[i+1])
			acc.Add(&acc, &t)
			t.Mul(&ps[i+2], &xs[i+2])
			acc.Add(&acc, &t)
			t.Mul(&ps[i+3], &xs[i+3])
			acc.Add(&acc, &t)
		}
		for ; i < len(xs); i++ {
			t.Mul(&ps[i], &xs[i])
			acc.Add(&acc, &t)
		}
		sums[l] = acc
	}
	return fext.SetLimbs(sums)
}
