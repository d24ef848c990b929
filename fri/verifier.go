package fri

import (
	"errors"
	"fmt"
	"math/big"

	fr "github.com/consensys/gnark-crypto/field/koalabear"
	"github.com/consensys/gnark-crypto/field/koalabear/extensions"
	"github.com/consensys/gnark-crypto/field/koalabear/fft"

	"github.com/lita-xyz/go-fri/challenger"
	"github.com/lita-xyz/go-fri/fext"
	"github.com/lita-xyz/go-fri/internal/utils"
	"github.com/lita-xyz/go-fri/matrix"
)

var (
	ErrInvalidProofShape = errors.New("fri: invalid proof shape")
	ErrInvalidPowWitness = errors.New("fri: invalid proof of work witness")
	ErrFinalPolyMismatch = errors.New("fri: final polynomial mismatch")
)

// maxTwoAdicity is the two-adicity of the koalabear multiplicative group; no
// evaluation domain exists above 2^24, so a proof claiming more folding rounds
// is malformed.
const maxTwoAdicity = 24

// InputError reports a failure of the caller's input opening check for one
// query.
type InputError struct {
	Query int
	Err   error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("fri: query %d: input opening: %v", e.Query, e.Err)
}

func (e *InputError) Unwrap() error { return e.Err }

// CommitPhaseError reports a failure while checking one commit phase round of
// one query.
type CommitPhaseError struct {
	Query int
	Round int
	Err   error
}

func (e *CommitPhaseError) Error() string {
	return fmt.Sprintf("fri: query %d round %d: %v", e.Query, e.Round, e.Err)
}

func (e *CommitPhaseError) Unwrap() error { return e.Err }

// Verify checks proof against the transcript ch. openInput must verify the
// caller's input openings for one query index and return the evaluations to
// feed into the fold, ordered by strictly decreasing log height; an opening at
// the maximal height is required.
func Verify[IP any](
	cfg *Config,
	proof *Proof[IP],
	ch *challenger.Challenger,
	openInput func(index int, inputProof IP) ([]ReducedOpening, error),
) error {
	if len(proof.FinalPoly) != cfg.FinalPolyLen() {
		return fmt.Errorf("%w: final polynomial has %d coefficients, want %d",
			ErrInvalidProofShape, len(proof.FinalPoly), cfg.FinalPolyLen())
	}
	if len(proof.QueryProofs) != cfg.NumQueries {
		return fmt.Errorf("%w: %d query proofs, want %d",
			ErrInvalidProofShape, len(proof.QueryProofs), cfg.NumQueries)
	}

	logFinalHeight := cfg.LogBlowup + cfg.LogFinalPolyLen
	logMaxHeight := len(proof.CommitPhaseCommits) + logFinalHeight
	if logMaxHeight > maxTwoAdicity {
		return fmt.Errorf("%w: %d commit phase rounds imply a codeword of log height %d, beyond the two-adicity %d",
			ErrInvalidProofShape, len(proof.CommitPhaseCommits), logMaxHeight, maxTwoAdicity)
	}

	betas := make([]extensions.E4, len(proof.CommitPhaseCommits))
	for i, commit := range proof.CommitPhaseCommits {
		ch.ObserveBytes(commit[:])
		betas[i] = ch.SampleExt()
	}
	for _, c := range proof.FinalPoly {
		ch.ObserveExt(c)
	}

	if !ch.CheckWitness(cfg.ProofOfWorkBits, proof.PowWitness) {
		return ErrInvalidPowWitness
	}

	for q := range proof.QueryProofs {
		qp := &proof.QueryProofs[q]
		index := int(ch.SampleBits(logMaxHeight))

		ros, err := openInput(index, qp.InputProof)
		if err != nil {
			return &InputError{Query: q, Err: err}
		}
		if err := checkReducedOpenings(ros, logFinalHeight, logMaxHeight); err != nil {
			return &InputError{Query: q, Err: err}
		}

		if len(qp.CommitPhaseOpenings) != len(proof.CommitPhaseCommits) {
			return &InputError{Query: q, Err: fmt.Errorf("%w: %d commit phase openings, want %d",
				ErrInvalidProofShape, len(qp.CommitPhaseOpenings), len(proof.CommitPhaseCommits))}
		}

		folded, err := verifyQuery(cfg, proof, betas, q, index, ros, logMaxHeight)
		if err != nil {
			return err
		}

		g, genErr := fft.Generator(uint64(1) << uint(logFinalHeight))
		if genErr != nil {
			panic("fri: codeword exceeds two-adicity")
		}
		finalIndex := index >> uint(len(proof.CommitPhaseCommits))
		var x fr.Element
		x.Exp(g, big.NewInt(int64(utils.ReverseBits(finalIndex, logFinalHeight))))
		want := fext.Horner(proof.FinalPoly, fext.FromBase(x))
		if !want.Equal(&folded) {
			return fmt.Errorf("%w: query %d", ErrFinalPolyMismatch, q)
		}
	}
	return nil
}

// checkReducedOpenings enforces the contract on the input opening heights:
// strictly decreasing, within the folding range, and present at the top. An
// opening at the final height is allowed, it folds into the final polynomial
// comparison rather than into a commit phase round.
func checkReducedOpenings(ros []ReducedOpening, logFinalHeight, logMaxHeight int) error {
	if len(ros) == 0 || ros[0].LogHeight != logMaxHeight {
		return fmt.Errorf("%w: missing input opening at log height %d", ErrInvalidProofShape, logMaxHeight)
	}
	for i, ro := range ros {
		if i > 0 && ro.LogHeight >= ros[i-1].LogHeight {
			return fmt.Errorf("%w: input opening heights not strictly decreasing", ErrInvalidProofShape)
		}
		if ro.LogHeight < logFinalHeight || ro.LogHeight > logMaxHeight {
			return fmt.Errorf("%w: input opening at log height %d outside folding range", ErrInvalidProofShape, ro.LogHeight)
		}
	}
	return nil
}

// verifyQuery replays the folds for one query, checking each round's opening
// against its commitment, and returns the fully folded evaluation.
func verifyQuery[IP any](
	cfg *Config,
	proof *Proof[IP],
	betas []extensions.E4,
	query, index int,
	ros []ReducedOpening,
	logMaxHeight int,
) (extensions.E4, error) {
	var folded extensions.E4
	next := 0

	for r := range proof.CommitPhaseCommits {
		logHeight := logMaxHeight - r
		if next < len(ros) && ros[next].LogHeight == logHeight {
			folded.Add(&folded, &ros[next].Value)
			next++
		}

		step := &proof.QueryProofs[query].CommitPhaseOpenings[r]
		pairIdx := index >> 1

		var evals [2]extensions.E4
		evals[index&1] = folded
		evals[(index^1)&1] = step.SiblingValue

		dims := []matrix.Dimensions{{Width: 2, Height: 1 << uint(logHeight-1)}}
		err := cfg.Mmcs.Verify(proof.CommitPhaseCommits[r], dims, pairIdx,
			[][]extensions.E4{evals[:]}, step.OpeningProof)
		if err != nil {
			return extensions.E4{}, &CommitPhaseError{Query: query, Round: r, Err: err}
		}

		folded = FoldRow(pairIdx, logHeight-1, betas[r], evals[0], evals[1])
		index = pairIdx
	}

	// An input merged at the final codeword length contributes directly to
	// the final polynomial comparison.
	if next < len(ros) {
		folded.Add(&folded, &ros[next].Value)
		next++
	}
	if next != len(ros) {
		return extensions.E4{}, &InputError{Query: query,
			Err: fmt.Errorf("%w: unconsumed input opening", ErrInvalidProofShape)}
	}
	return folded, nil
}
