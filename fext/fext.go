// Package fext provides helpers over the degree-4 extension of the koalabear
// field that gnark-crypto does not ship directly: power tables, Horner
// evaluation, batch inversion and base-field limb access.
package fext

import (
	"math/bits"

	fr "github.com/consensys/gnark-crypto/field/koalabear"
	"github.com/consensys/gnark-crypto/field/koalabear/extensions"
)

// FromBase embeds a base field element into the extension.
func FromBase(x fr.Element) extensions.E4 {
	var r extensions.E4
	r.B0.A0 = x
	return r
}

// Limbs returns the base field coefficients of x in fixed order.
func Limbs(x extensions.E4) [4]fr.Element {
	return [4]fr.Element{x.B0.A0, x.B0.A1, x.B1.A0, x.B1.A1}
}

// SetLimbs reconstructs an extension element from its base field coefficients,
// inverse of Limbs.
func SetLimbs(limbs [4]fr.Element) extensions.E4 {
	var r extensions.E4
	r.B0.A0 = limbs[0]
	r.B0.A1 = limbs[1]
	r.B1.A0 = limbs[2]
	r.B1.A1 = limbs[3]
	return r
}

// Powers returns [1, x, x², ..., x^(n-1)].
func Powers(x extensions.E4, n int) []extensions.E4 {
	res := make([]extensions.E4, n)
	if n == 0 {
		return res
	}
	res[0].SetOne()
	for i := 1; i < n; i++ {
		res[i].Mul(&res[i-1], &x)
	}
	return res
}

// Pow returns x^k by square and multiply.
func Pow(x extensions.E4, k uint64) extensions.E4 {
	var res extensions.E4
	res.SetOne()
	if k == 0 {
		return res
	}
	for i := bits.Len64(k) - 1; i >= 0; i-- {
		res.Mul(&res, &res)
		if (k>>uint(i))&1 == 1 {
			res.Mul(&res, &x)
		}
	}
	return res
}

// PowExp2 returns x^(2^k).
func PowExp2(x extensions.E4, k int) extensions.E4 {
	res := x
	for i := 0; i < k; i++ {
		res.Mul(&res, &res)
	}
	return res
}

// Horner evaluates the polynomial with the given coefficients (low degree
// first) at x.
func Horner(coeffs []extensions.E4, x extensions.E4) extensions.E4 {
	var res extensions.E4
	for i := len(coeffs) - 1; i >= 0; i-- {
		res.Mul(&res, &x)
		res.Add(&res, &coeffs[i])
	}
	return res
}

// BatchInvert inverts the elements of a in place using a single field
// inversion. Zero entries are left untouched.
func BatchInvert(a []extensions.E4) {
	if len(a) == 0 {
		return
	}
	zeroes := make([]bool, len(a))
	accumulator := extensions.E4{}
	accumulator.SetOne()
	prod := make([]extensions.E4, len(a))
	for i := range a {
		if a[i].IsZero() {
			zeroes[i] = true
			continue
		}
		prod[i] = accumulator
		accumulator.Mul(&accumulator, &a[i])
	}
	accumulator.Inverse(&accumulator)
	for i := len(a) - 1; i >= 0; i-- {
		if zeroes[i] {
			continue
		}
		var tmp extensions.E4
		tmp.Mul(&a[i], &accumulator)
		a[i].Mul(&accumulator, &prod[i])
		accumulator = tmp
	}
}
