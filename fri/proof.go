package fri

import (
	"github.com/consensys/gnark-crypto/field/koalabear/extensions"

	"github.com/lita-xyz/go-fri/mmcs"
)

// Proof is a complete FRI proof. The type parameter IP is the proof attached
// to each query that opens the original inputs; the low degree test treats it
// as opaque.
type Proof[IP any] struct {
	// CommitPhaseCommits holds one commitment per folding round.
	CommitPhaseCommits []mmcs.Commitment

	// QueryProofs holds one proof per sampled query index.
	QueryProofs []QueryProof[IP]

	// FinalPoly is the coefficient vector of the last codeword, low degree
	// first.
	FinalPoly []extensions.E4

	// PowWitness is the grind witness observed before sampling queries.
	PowWitness uint64
}

// QueryProof opens every commit phase round, plus the inputs, at one index.
type QueryProof[IP any] struct {
	InputProof IP

	// CommitPhaseOpenings holds one opening per folding round, ordered from
	// the widest codeword down.
	CommitPhaseOpenings []CommitPhaseProofStep
}

// CommitPhaseProofStep opens one round's codeword at the sibling of the
// queried position. The queried value itself is reconstructed by the
// verifier's fold, so only the sibling travels in the proof.
type CommitPhaseProofStep struct {
	SiblingValue extensions.E4
	OpeningProof mmcs.Proof
}

// ReducedOpening is an input evaluation fed into the fold at a given height,
// produced by the caller's input opening logic.
type ReducedOpening struct {
	LogHeight int
	Value     extensions.E4
}
