package pcs

import (
	"bytes"
	"testing"

	fr "github.com/consensys/gnark-crypto/field/koalabear"
	"github.com/consensys/gnark-crypto/field/koalabear/extensions"
	"github.com/consensys/gnark-crypto/field/koalabear/fft"
	"github.com/stretchr/testify/require"

	"github.com/lita-xyz/go-fri/challenger"
	"github.com/lita-xyz/go-fri/fext"
	"github.com/lita-xyz/go-fri/fri"
	"github.com/lita-xyz/go-fri/internal/utils"
	"github.com/lita-xyz/go-fri/matrix"
	"github.com/lita-xyz/go-fri/mmcs"
)

func newTestPcs() *Pcs {
	friCfg := &fri.Config{
		LogBlowup:       1,
		LogFinalPolyLen: 0,
		NumQueries:      10,
		ProofOfWorkBits: 4,
		Mmcs: mmcs.NewScheme(func(dst []byte, x extensions.E4) []byte {
			for _, l := range fext.Limbs(x) {
				b := l.Bytes()
				dst = append(dst, b[:]...)
			}
			return dst
		}),
	}
	inputMmcs := mmcs.NewScheme(func(dst []byte, x fr.Element) []byte {
		b := x.Bytes()
		return append(dst, b[:]...)
	})
	return New(friCfg, inputMmcs)
}

// polysToMatrix evaluates each coefficient column over the subgroup of order
// height, producing the evaluation matrix Commit expects.
func polysToMatrix(t *testing.T, coeffs [][]fr.Element, height int) *matrix.Dense[fr.Element] {
	t.Helper()
	g, err := fft.Generator(uint64(height))
	require.NoError(t, err)

	width := len(coeffs)
	values := make([]fr.Element, height*width)
	var x fr.Element
	x.SetOne()
	for i := 0; i < height; i++ {
		for j := 0; j < width; j++ {
			var acc fr.Element
			for k := len(coeffs[j]) - 1; k >= 0; k-- {
				acc.Mul(&acc, &x)
				acc.Add(&acc, &coeffs[j][k])
			}
			values[i*width+j] = acc
		}
		x.Mul(&x, &g)
	}
	return matrix.NewDense(values, width)
}

func randomCoeffs(t *testing.T, width, degree int) [][]fr.Element {
	t.Helper()
	out := make([][]fr.Element, width)
	for j := range out {
		out[j] = make([]fr.Element, degree)
		for k := range out[j] {
			out[j][k].MustSetRandom()
		}
	}
	return out
}

type testSetup struct {
	pcs     *Pcs
	commits []mmcs.Commitment
	rounds  []Round
	coeffs  [][][]fr.Element // matrices in commit order across rounds
	opened  OpenedValues
	proof   *Proof
	claims  []RoundClaim
}

func buildSetup(t *testing.T) *testSetup {
	t.Helper()
	p := newTestPcs()

	// Round 0: two matrices of different heights; round 1: one matrix.
	coeffs0a := randomCoeffs(t, 3, 32)
	coeffs0b := randomCoeffs(t, 2, 8)
	coeffs1 := randomCoeffs(t, 2, 32)

	mats0 := []*matrix.Dense[fr.Element]{
		polysToMatrix(t, coeffs0a, 32),
		polysToMatrix(t, coeffs0b, 8),
	}
	mats1 := []*matrix.Dense[fr.Element]{polysToMatrix(t, coeffs1, 32)}

	c0, pd0 := p.Commit(mats0)
	c1, pd1 := p.Commit(mats1)

	var z1, z2, z3 extensions.E4
	z1.MustSetRandom()
	z2.MustSetRandom()
	z3.MustSetRandom()

	rounds := []Round{
		{Data: pd0, Points: [][]extensions.E4{{z1, z2}, {z1}}},
		{Data: pd1, Points: [][]extensions.E4{{z3}}},
	}

	ch := challenger.New("pcs-test")
	ch.ObserveBytes(c0[:])
	ch.ObserveBytes(c1[:])
	opened, proof, err := p.Open(rounds, ch)
	require.NoError(t, err)

	claims := []RoundClaim{
		{
			Commitment: c0,
			Claims: []Claim{
				{LogHeight: 5, Points: rounds[0].Points[0], Values: opened[0][0]},
				{LogHeight: 3, Points: rounds[0].Points[1], Values: opened[0][1]},
			},
		},
		{
			Commitment: c1,
			Claims: []Claim{
				{LogHeight: 5, Points: rounds[1].Points[0], Values: opened[1][0]},
			},
		},
	}

	return &testSetup{
		pcs:     p,
		commits: []mmcs.Commitment{c0, c1},
		rounds:  rounds,
		coeffs:  [][][]fr.Element{coeffs0a, coeffs0b, coeffs1},
		opened:  opened,
		proof:   proof,
		claims:  claims,
	}
}

func (ts *testSetup) verify(t *testing.T) error {
	t.Helper()
	ch := challenger.New("pcs-test")
	for _, c := range ts.commits {
		ch.ObserveBytes(c[:])
	}
	return ts.pcs.Verify(ts.claims, ts.proof, ch)
}

func TestOpenVerify(t *testing.T) {
	ts := buildSetup(t)
	require.NoError(t, ts.verify(t))
}

// The claimed values must be the actual polynomial evaluations at the opening
// points.
func TestOpenedValuesMatchPolynomials(t *testing.T) {
	ts := buildSetup(t)

	check := func(values [][]extensions.E4, points []extensions.E4, coeffs [][]fr.Element) {
		require.Len(t, values, len(points))
		for pi, z := range points {
			require.Len(t, values[pi], len(coeffs))
			for j := range coeffs {
				ext := make([]extensions.E4, len(coeffs[j]))
				for k := range ext {
					ext[k] = fext.FromBase(coeffs[j][k])
				}
				want := fext.Horner(ext, z)
				require.True(t, values[pi][j].Equal(&want), "point %d column %d", pi, j)
			}
		}
	}
	check(ts.opened[0][0], ts.rounds[0].Points[0], ts.coeffs[0])
	check(ts.opened[0][1], ts.rounds[0].Points[1], ts.coeffs[1])
	check(ts.opened[1][0], ts.rounds[1].Points[0], ts.coeffs[2])
}

func TestVerifyRejectsWrongValue(t *testing.T) {
	ts := buildSetup(t)
	ts.claims[0].Claims[0].Values[1][2].MustSetRandom()
	require.Error(t, ts.verify(t))
}

func TestVerifyRejectsWrongShortMatrixValue(t *testing.T) {
	ts := buildSetup(t)
	ts.claims[0].Claims[1].Values[0][0].MustSetRandom()
	require.Error(t, ts.verify(t))
}

func TestVerifyRejectsTamperedCommitment(t *testing.T) {
	ts := buildSetup(t)
	ts.claims[1].Commitment[0] ^= 1
	err := ts.verify(t)
	require.Error(t, err)
}

func TestVerifyRejectsTamperedBatchOpening(t *testing.T) {
	ts := buildSetup(t)
	ts.proof.Fri.QueryProofs[0].InputProof[0].OpenedValues[0][0].MustSetRandom()
	err := ts.verify(t)
	require.Error(t, err)

	var ie *fri.InputError
	require.ErrorAs(t, err, &ie)
}

func TestVerifyRejectsWrongPoint(t *testing.T) {
	ts := buildSetup(t)
	ts.claims[1].Claims[0].Points[0].MustSetRandom()
	require.Error(t, ts.verify(t))
}

// The tallest committed matrix of every round must carry at least one opening
// point; the contract is checked before any query work starts.
func TestOpenRequiresPointOnTallestMatrix(t *testing.T) {
	p := newTestPcs()
	mats := []*matrix.Dense[fr.Element]{
		polysToMatrix(t, randomCoeffs(t, 1, 32), 32),
		polysToMatrix(t, randomCoeffs(t, 1, 8), 8),
	}
	c, pd := p.Commit(mats)

	var z extensions.E4
	z.MustSetRandom()
	rounds := []Round{{Data: pd, Points: [][]extensions.E4{{}, {z}}}}

	ch := challenger.New("pcs-test")
	ch.ObserveBytes(c[:])
	require.PanicsWithValue(t, "pcs: tallest committed matrix must be opened at some point", func() {
		p.Open(rounds, ch)
	})
}

func TestProofSerializationRoundTrip(t *testing.T) {
	ts := buildSetup(t)

	var buf bytes.Buffer
	_, err := ts.proof.WriteTo(&buf)
	require.NoError(t, err)

	var decoded Proof
	_, err = decoded.ReadFrom(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)

	ts.proof = &decoded
	require.NoError(t, ts.verify(t))
}

func TestSerializationDeterministic(t *testing.T) {
	ts := buildSetup(t)
	var a, b bytes.Buffer
	_, err := ts.proof.WriteTo(&a)
	require.NoError(t, err)
	_, err = ts.proof.WriteTo(&b)
	require.NoError(t, err)
	require.Equal(t, a.Bytes(), b.Bytes())
}

func TestLdeMatchesPolynomial(t *testing.T) {
	p := newTestPcs()
	coeffs := randomCoeffs(t, 1, 8)
	m := polysToMatrix(t, coeffs, 8)

	lde := p.lde(m)
	require.Equal(t, 16, lde.Height())

	// Committed rows are bit-reversed evaluations over the shifted coset.
	shift := p.CosetShift()
	g, err := fft.Generator(16)
	require.NoError(t, err)

	x := shift
	for i := 0; i < 16; i++ {
		var want fr.Element
		for k := len(coeffs[0]) - 1; k >= 0; k-- {
			want.Mul(&want, &x)
			want.Add(&want, &coeffs[0][k])
		}
		require.Equal(t, want, lde.Row(utils.ReverseBits(i, 4))[0], "point %d", i)
		x.Mul(&x, &g)
	}
}
