package pcs

import (
	"testing"

	fr "github.com/consensys/gnark-crypto/field/koalabear"
	"github.com/consensys/gnark-crypto/field/koalabear/extensions"
	"github.com/stretchr/testify/require"

	"github.com/lita-xyz/go-fri/fext"
)

func TestReduceBase(t *testing.T) {
	var alpha extensions.E4
	alpha.MustSetRandom()

	for _, width := range []int{1, 3, 4, 5, 16, 31, 110, 512, 999, 1000} {
		r := NewPowersReducer(alpha, width)

		xs := make([]fr.Element, width)
		for i := range xs {
			xs[i].MustSetRandom()
		}

		var want, term extensions.E4
		pow := fext.Powers(alpha, width)
		for i := range xs {
			term.MulByElement(&pow[i], &xs[i])
			want.Add(&want, &term)
		}

		got := r.ReduceBase(xs)
		require.True(t, got.Equal(&want), "width %d", width)

		// shorter rows reuse the same reducer
		if width > 2 {
			short := r.ReduceBase(xs[:width-2])
			var wantShort extensions.E4
			for i := 0; i < width-2; i++ {
				term.MulByElement(&pow[i], &xs[i])
				wantShort.Add(&wantShort, &term)
			}
			require.True(t, short.Equal(&wantShort), "width %d truncated", width)
		}
	}
}

func TestReduceExt(t *testing.T) {
	var alpha extensions.E4
	alpha.MustSetRandom()
	const width = 9

	r := NewPowersReducer(alpha, width)
	xs := make([]extensions.E4, width)
	for i := range xs {
		xs[i].MustSetRandom()
	}

	var want, term extensions.E4
	pow := fext.Powers(alpha, width)
	for i := range xs {
		term.Mul(&pow[i], &xs[i])
		want.Add(&want, &term)
	}
	got := r.ReduceExt(xs)
	require.True(t, got.Equal(&want))
}

func TestReduceBaseAgreesWithReduceExt(t *testing.T) {
	var alpha extensions.E4
	alpha.MustSetRandom()
	const width = 17

	r := NewPowersReducer(alpha, width)
	base := make([]fr.Element, width)
	ext := make([]extensions.E4, width)
	for i := range base {
		base[i].MustSetRandom()
		ext[i] = fext.FromBase(base[i])
	}

	a := r.ReduceBase(base)
	b := r.ReduceExt(ext)
	require.True(t, a.Equal(&b))
}
