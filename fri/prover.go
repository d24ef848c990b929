package fri

import (
	fr "github.com/consensys/gnark-crypto/field/koalabear"
	"github.com/consensys/gnark-crypto/field/koalabear/extensions"
	"github.com/consensys/gnark-crypto/field/koalabear/fft"
	"golang.org/x/sync/errgroup"

	"github.com/lita-xyz/go-fri/challenger"
	"github.com/lita-xyz/go-fri/fext"
	"github.com/lita-xyz/go-fri/internal/utils"
	"github.com/lita-xyz/go-fri/logger"
	"github.com/lita-xyz/go-fri/matrix"
	"github.com/lita-xyz/go-fri/mmcs"
)

// Prove runs the low degree test over the given input codewords.
//
// Each input is a vector of evaluations in bit-reversed order; heights must be
// strictly decreasing powers of two, none smaller than Blowup·FinalPolyLen.
// Codewords of matching height are merged into the running fold as it reaches
// them. openInput produces, for one sampled query index into the widest
// codeword, the caller's proof that the inputs themselves open consistently;
// it may be called concurrently.
func Prove[IP any](
	cfg *Config,
	inputs [][]extensions.E4,
	ch *challenger.Challenger,
	openInput func(index int) (IP, error),
) (*Proof[IP], error) {
	if len(inputs) == 0 {
		panic("fri: no inputs")
	}
	for i, in := range inputs {
		utils.Log2Strict(len(in))
		if i > 0 && len(in) >= len(inputs[i-1]) {
			panic("fri: input heights must be strictly decreasing")
		}
		if len(in) < cfg.Blowup()*cfg.FinalPolyLen() {
			panic("fri: input smaller than final codeword")
		}
	}

	log := logger.Logger().With().Str("component", "fri").Logger()
	logMaxHeight := utils.Log2Strict(len(inputs[0]))
	log.Debug().Int("logMaxHeight", logMaxHeight).Int("inputs", len(inputs)).Msg("commit phase")

	commits, data, finalPoly := commitPhase(cfg, inputs, ch)

	powWitness := ch.Grind(cfg.ProofOfWorkBits)

	proof := &Proof[IP]{
		CommitPhaseCommits: commits,
		QueryProofs:        make([]QueryProof[IP], cfg.NumQueries),
		FinalPoly:          finalPoly,
		PowWitness:         powWitness,
	}

	// Indices are drawn sequentially from the transcript, then answered in
	// parallel.
	indices := make([]int, cfg.NumQueries)
	for i := range indices {
		indices[i] = int(ch.SampleBits(logMaxHeight))
	}

	var eg errgroup.Group
	for i := range indices {
		eg.Go(func() error {
			ip, err := openInput(indices[i])
			if err != nil {
				return err
			}
			proof.QueryProofs[i] = QueryProof[IP]{
				InputProof:          ip,
				CommitPhaseOpenings: answerQuery(cfg, data, indices[i]),
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	log.Debug().Int("queries", cfg.NumQueries).Int("rounds", len(commits)).Msg("proof complete")
	return proof, nil
}

// commitPhase folds the inputs down to the final codeword, committing each
// intermediate width-2 matrix and sampling one folding challenge per round.
func commitPhase(
	cfg *Config,
	inputs [][]extensions.E4,
	ch *challenger.Challenger,
) ([]mmcs.Commitment, []*mmcs.ProverData[extensions.E4], []extensions.E4) {
	next := 1
	folded := inputs[0]

	var commits []mmcs.Commitment
	var data []*mmcs.ProverData[extensions.E4]

	for len(folded) > cfg.Blowup()*cfg.FinalPolyLen() {
		leaves := matrix.NewDense(folded, 2)
		commit, pd := cfg.Mmcs.Commit([]matrix.Matrix[extensions.E4]{leaves})
		ch.ObserveBytes(commit[:])

		beta := ch.SampleExt()
		folded = foldMatrix(beta, leaves)

		commits = append(commits, commit)
		data = append(data, pd)

		if next < len(inputs) && len(inputs[next]) == len(folded) {
			for i := range folded {
				folded[i].Add(&folded[i], &inputs[next][i])
			}
			next++
		}
	}

	finalPoly := finalPolyCoeffs(cfg, folded)
	for _, c := range finalPoly {
		ch.ObserveExt(c)
	}
	return commits, data, finalPoly
}

// finalPolyCoeffs recovers the coefficients of the last codeword and checks
// that everything above the degree bound vanished.
func finalPolyCoeffs(cfg *Config, folded []extensions.E4) []extensions.E4 {
	evals := append([]extensions.E4(nil), folded...)
	utils.ReverseIndexBits(evals)

	// The inverse DFT is linear over the base field, so it applies limb by
	// limb.
	n := len(evals)
	domain := fft.NewDomain(uint64(n))
	coeffs := make([]extensions.E4, n)
	limb := make([]fr.Element, n)
	for l := 0; l < 4; l++ {
		for i := range evals {
			limb[i] = fext.Limbs(evals[i])[l]
		}
		domain.FFTInverse(limb, fft.DIF)
		fft.BitReverse(limb)
		for i := range coeffs {
			limbs := fext.Limbs(coeffs[i])
			limbs[l] = limb[i]
			coeffs[i] = fext.SetLimbs(limbs)
		}
	}

	for i := cfg.FinalPolyLen(); i < n; i++ {
		if !coeffs[i].IsZero() {
			panic("fri: final codeword exceeds degree bound")
		}
	}
	return coeffs[:cfg.FinalPolyLen()]
}

// answerQuery opens every committed round at the pair containing the query
// position, recording only the sibling value; the queried value is recomputed
// by the verifier's folds.
func answerQuery(cfg *Config, data []*mmcs.ProverData[extensions.E4], index int) []CommitPhaseProofStep {
	steps := make([]CommitPhaseProofStep, len(data))
	for r, pd := range data {
		idx := index >> uint(r)
		rows, proof := cfg.Mmcs.Open(pd, idx>>1)
		if len(rows) != 1 {
			panic("fri: commit phase round must hold a single matrix")
		}
		if len(rows[0]) != 2 {
			panic("fri: commit phase rows must have width 2")
		}
		steps[r] = CommitPhaseProofStep{
			SiblingValue: rows[0][(idx^1)&1],
			OpeningProof: proof,
		}
	}
	return steps
}
