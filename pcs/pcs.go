// Package pcs implements a polynomial commitment scheme over two-adic
// evaluation domains. Matrices of evaluations are committed through their low
// degree extension on a blown-up coset, and batched multi-point openings are
// reduced, via a random linear combination of quotients, to a single low
// degree test handled by the fri package.
package pcs

import (
	"errors"
	"fmt"
	"math/big"
	"sync"

	fr "github.com/consensys/gnark-crypto/field/koalabear"
	"github.com/consensys/gnark-crypto/field/koalabear/extensions"
	"github.com/consensys/gnark-crypto/field/koalabear/fft"

	"github.com/lita-xyz/go-fri/challenger"
	"github.com/lita-xyz/go-fri/fext"
	"github.com/lita-xyz/go-fri/fri"
	"github.com/lita-xyz/go-fri/internal/parallel"
	"github.com/lita-xyz/go-fri/internal/utils"
	"github.com/lita-xyz/go-fri/interpolation"
	"github.com/lita-xyz/go-fri/logger"
	"github.com/lita-xyz/go-fri/matrix"
	"github.com/lita-xyz/go-fri/mmcs"
)

// Pcs commits to matrices of base field evaluations and opens them at
// extension field points.
type Pcs struct {
	fri  *fri.Config
	mmcs *mmcs.Scheme[fr.Element]

	mu      sync.Mutex
	domains map[uint64]*fft.Domain
}

// New builds a scheme from FRI parameters and the commitment scheme used for
// the input matrices.
func New(friCfg *fri.Config, inputMmcs *mmcs.Scheme[fr.Element]) *Pcs {
	return &Pcs{
		fri:     friCfg,
		mmcs:    inputMmcs,
		domains: make(map[uint64]*fft.Domain),
	}
}

func (p *Pcs) domain(n int) *fft.Domain {
	p.mu.Lock()
	defer p.mu.Unlock()
	d, ok := p.domains[uint64(n)]
	if !ok {
		d = fft.NewDomain(uint64(n))
		p.domains[uint64(n)] = d
	}
	return d
}

// CosetShift returns the multiplicative generator used to shift every
// evaluation coset.
func (p *Pcs) CosetShift() fr.Element {
	return p.domain(2).FrMultiplicativeGen
}

// Commit commits to the given matrices. Each matrix holds evaluations over
// the subgroup of its height in natural order; heights must be powers of two
// and need not be equal. The returned prover data is required by Open.
func (p *Pcs) Commit(mats []*matrix.Dense[fr.Element]) (mmcs.Commitment, *mmcs.ProverData[fr.Element]) {
	log := logger.Logger().With().Str("component", "pcs").Logger()
	log.Debug().Int("matrices", len(mats)).Msg("committing")

	ldes := make([]matrix.Matrix[fr.Element], len(mats))
	for i, m := range mats {
		ldes[i] = p.lde(m)
	}
	return p.mmcs.Commit(ldes)
}

// lde extends m onto the coset of blowup times its height, rows in
// bit-reversed order. The extension is computed column by column: interpolate
// over the small subgroup, then evaluate over the large coset.
func (p *Pcs) lde(m *matrix.Dense[fr.Element]) *matrix.Dense[fr.Element] {
	h := m.Height()
	w := m.Width()
	utils.Log2Strict(h)
	hLde := h << uint(p.fri.LogBlowup)

	small := p.domain(h)
	large := p.domain(hLde)

	out := make([]fr.Element, hLde*w)
	parallel.Execute(w, func(start, end int) {
		col := make([]fr.Element, h)
		buf := make([]fr.Element, hLde)
		for j := start; j < end; j++ {
			for i := 0; i < h; i++ {
				col[i] = m.Values[i*w+j]
			}
			small.FFTInverse(col, fft.DIF)
			fft.BitReverse(col)
			copy(buf, col)
			for i := h; i < hLde; i++ {
				buf[i].SetZero()
			}
			large.FFT(buf, fft.DIF, fft.OnCoset())
			for i := 0; i < hLde; i++ {
				out[i*w+j] = buf[i]
			}
		}
	})
	return &matrix.Dense[fr.Element]{Values: out, Cols: w}
}

// Round pairs committed prover data with the points each of its matrices is
// opened at. Points[i] lists the opening points of the i-th committed matrix.
type Round struct {
	Data   *mmcs.ProverData[fr.Element]
	Points [][]extensions.E4
}

// OpenedValues is indexed by round, matrix, point, column.
type OpenedValues [][][][]extensions.E4

// Open proves the evaluations of all committed matrices at the requested
// points. The returned values are the claimed evaluations; the caller is
// expected to have observed every round's commitment into the transcript, in
// order, before calling.
func (p *Pcs) Open(rounds []Round, ch *challenger.Challenger) (OpenedValues, *Proof, error) {
	log := logger.Logger().With().Str("component", "pcs").Logger()

	alpha := ch.SampleExt()
	shift := p.CosetShift()

	maxWidth := 0
	for _, round := range rounds {
		mats := round.Data.Matrices()
		if len(round.Points) != len(mats) {
			panic("pcs: point lists do not match committed matrices")
		}
		for _, m := range mats {
			if m.Width() > maxWidth {
				maxWidth = m.Width()
			}
		}
	}
	reducer := NewPowersReducer(alpha, maxWidth)
	invDenoms := p.computeInverseDenominators(rounds, shift)

	// Reduced opening accumulators, one codeword per distinct LDE height,
	// in bit-reversed order like the committed rows.
	buckets := make(map[int][]extensions.E4)
	numReduced := make(map[int]int)

	opened := make(OpenedValues, len(rounds))
	for r, round := range rounds {
		mats := round.Data.Matrices()
		opened[r] = make([][][]extensions.E4, len(mats))
		for mi, mat := range mats {
			logH := utils.Log2Strict(mat.Height())
			low := matrix.BitReversed(matrix.TopRows(mat, mat.Height()>>uint(p.fri.LogBlowup)))
			opened[r][mi] = make([][]extensions.E4, len(round.Points[mi]))
			for pi, z := range round.Points[mi] {
				ys := interpolation.InterpolateCoset(low, shift, z)
				opened[r][mi][pi] = ys

				bucket, ok := buckets[logH]
				if !ok {
					bucket = make([]extensions.E4, mat.Height())
					buckets[logH] = bucket
				}
				alphaOffset := fext.Pow(alpha, uint64(numReduced[logH]))
				reducedYs := reducer.ReduceExt(ys)
				inv := invDenoms[z]
				parallel.Execute(mat.Height(), func(start, end int) {
					var t extensions.E4
					for i := start; i < end; i++ {
						t = reducer.ReduceBase(mat.Row(i))
						t.Sub(&t, &reducedYs)
						t.Mul(&t, &inv[i])
						t.Mul(&t, &alphaOffset)
						bucket[i].Add(&bucket[i], &t)
					}
				})
				numReduced[logH] += mat.Width()
			}
		}
	}

	friInput, logGlobalMax := sortedBuckets(buckets)
	log.Debug().Int("rounds", len(rounds)).Int("codewords", len(friInput)).Msg("opening")

	// Query indices range over the tallest reduced codeword; a committed
	// matrix taller than every opened one would be unreachable.
	for _, round := range rounds {
		if utils.Log2Strict(round.Data.MaxHeight()) > logGlobalMax {
			panic("pcs: tallest committed matrix must be opened at some point")
		}
	}

	openInput := func(index int) ([]BatchOpening, error) {
		out := make([]BatchOpening, len(rounds))
		for r, round := range rounds {
			logBatchMax := utils.Log2Strict(round.Data.MaxHeight())
			rows, proof := p.mmcs.Open(round.Data, index>>uint(logGlobalMax-logBatchMax))
			out[r] = BatchOpening{OpenedValues: rows, OpeningProof: proof}
		}
		return out, nil
	}

	friProof, err := fri.Prove(p.fri, friInput, ch, openInput)
	if err != nil {
		return nil, nil, err
	}
	return opened, &Proof{Fri: *friProof}, nil
}

// sortedBuckets returns the reduced codewords by strictly decreasing height,
// and the log of the tallest.
func sortedBuckets(buckets map[int][]extensions.E4) ([][]extensions.E4, int) {
	maxLog := 0
	for logH := range buckets {
		if logH > maxLog {
			maxLog = logH
		}
	}
	out := make([][]extensions.E4, 0, len(buckets))
	for logH := maxLog; logH >= 0; logH-- {
		if b, ok := buckets[logH]; ok {
			out = append(out, b)
		}
	}
	return out, maxLog
}

// computeInverseDenominators batch inverts z - x over, for each opening point
// z, the tallest coset any matrix opened at z lives on. Shorter matrices share
// prefixes of the same vector thanks to the bit-reversed order.
func (p *Pcs) computeInverseDenominators(rounds []Round, shift fr.Element) map[extensions.E4][]extensions.E4 {
	maxLogForPoint := make(map[extensions.E4]int)
	globalMax := 0
	for _, round := range rounds {
		for mi, mat := range round.Data.Matrices() {
			logH := utils.Log2Strict(mat.Height())
			if logH > globalMax {
				globalMax = logH
			}
			for _, z := range round.Points[mi] {
				if lh, ok := maxLogForPoint[z]; !ok || logH > lh {
					maxLogForPoint[z] = logH
				}
			}
		}
	}

	g, err := fft.Generator(uint64(1) << uint(globalMax))
	if err != nil {
		panic("pcs: matrix height exceeds two-adicity")
	}
	coset := make([]fr.Element, 1<<uint(globalMax))
	x := shift
	for i := range coset {
		coset[i] = x
		x.Mul(&x, &g)
	}
	utils.ReverseIndexBits(coset)

	out := make(map[extensions.E4][]extensions.E4, len(maxLogForPoint))
	for z, logH := range maxLogForPoint {
		diffs := make([]extensions.E4, 1<<uint(logH))
		for i := range diffs {
			xe := fext.FromBase(coset[i])
			diffs[i].Sub(&z, &xe)
		}
		fext.BatchInvert(diffs)
		out[z] = diffs
	}
	return out
}

// Claim carries the verifier's view of one committed matrix: its original
// (pre blowup) log height, the opening points, and the claimed values per
// point and column.
type Claim struct {
	LogHeight int
	Points    []extensions.E4
	Values    [][]extensions.E4
}

// RoundClaim groups the claims of all matrices under one commitment.
type RoundClaim struct {
	Commitment mmcs.Commitment
	Claims     []Claim
}

// InputMmcsError reports the rejection of one round's batch opening.
type InputMmcsError struct {
	Round int
	Err   error
}

func (e *InputMmcsError) Error() string {
	return fmt.Sprintf("pcs: round %d: %v", e.Round, e.Err)
}

func (e *InputMmcsError) Unwrap() error { return e.Err }

var errClaimShape = errors.New("pcs: claim shape mismatch")

// Verify checks the claimed openings against the commitments. The transcript
// must be in the same state as the prover's was at Open, with every round's
// commitment observed in order.
func (p *Pcs) Verify(rounds []RoundClaim, proof *Proof, ch *challenger.Challenger) error {
	alpha := ch.SampleExt()
	shift := p.CosetShift()
	logGlobalMax := len(proof.Fri.CommitPhaseCommits) + p.fri.LogBlowup + p.fri.LogFinalPolyLen

	verifyInput := func(index int, batches []BatchOpening) ([]fri.ReducedOpening, error) {
		if len(batches) != len(rounds) {
			return nil, fmt.Errorf("%w: %d batch openings for %d rounds", errClaimShape, len(batches), len(rounds))
		}

		type acc struct {
			alphaPow extensions.E4
			ro       extensions.E4
		}
		buckets := make(map[int]*acc)

		for r := range rounds {
			round := &rounds[r]
			batch := &batches[r]
			if len(batch.OpenedValues) != len(round.Claims) {
				return nil, fmt.Errorf("%w: round %d has %d opened rows for %d matrices",
					errClaimShape, r, len(batch.OpenedValues), len(round.Claims))
			}

			dims := make([]matrix.Dimensions, len(round.Claims))
			batchMaxLog := 0
			for m, cl := range round.Claims {
				logH := cl.LogHeight + p.fri.LogBlowup
				if logH > logGlobalMax {
					return nil, fmt.Errorf("%w: round %d matrix %d taller than proof", errClaimShape, r, m)
				}
				dims[m] = matrix.Dimensions{Width: len(batch.OpenedValues[m]), Height: 1 << uint(logH)}
				if logH > batchMaxLog {
					batchMaxLog = logH
				}
			}

			reducedIndex := index >> uint(logGlobalMax-batchMaxLog)
			if err := p.mmcs.Verify(round.Commitment, dims, reducedIndex, batch.OpenedValues, batch.OpeningProof); err != nil {
				return nil, &InputMmcsError{Round: r, Err: err}
			}

			for m := range round.Claims {
				cl := &round.Claims[m]
				if len(cl.Points) == 0 {
					continue
				}
				logH := cl.LogHeight + p.fri.LogBlowup
				idx := index >> uint(logGlobalMax-logH)

				g, err := fft.Generator(uint64(1) << uint(logH))
				if err != nil {
					panic("pcs: matrix height exceeds two-adicity")
				}
				var x fr.Element
				x.Exp(g, big.NewInt(int64(utils.ReverseBits(idx, logH))))
				x.Mul(&x, &shift)
				xe := fext.FromBase(x)

				b, ok := buckets[logH]
				if !ok {
					b = &acc{}
					b.alphaPow.SetOne()
					buckets[logH] = b
				}

				row := batch.OpenedValues[m]
				for pi, z := range cl.Points {
					if len(cl.Values[pi]) != len(row) {
						return nil, fmt.Errorf("%w: round %d matrix %d point %d: %d values for width %d",
							errClaimShape, r, m, pi, len(cl.Values[pi]), len(row))
					}
					var quot extensions.E4
					quot.Sub(&z, &xe)
					quot.Inverse(&quot)
					var num extensions.E4
					for j := range row {
						pj := fext.FromBase(row[j])
						num.Sub(&pj, &cl.Values[pi][j])
						num.Mul(&num, &quot)
						num.Mul(&num, &b.alphaPow)
						b.ro.Add(&b.ro, &num)
						b.alphaPow.Mul(&b.alphaPow, &alpha)
					}
				}
			}
		}

		ros := make([]fri.ReducedOpening, 0, len(buckets))
		for logH := logGlobalMax; logH >= 0; logH-- {
			if b, ok := buckets[logH]; ok {
				ros = append(ros, fri.ReducedOpening{LogHeight: logH, Value: b.ro})
			}
		}
		return ros, nil
	}

	return fri.Verify(p.fri, &proof.Fri, ch, verifyInput)
}
