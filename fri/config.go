// Package fri implements the FRI low degree test: a commit phase folding the
// input codewords round by round down to a short final polynomial, a proof of
// work grind, and a query phase opening the committed rounds at random
// indices. The protocol is generic over the proof attached to each query that
// ties the FRI inputs back to their own commitments.
package fri

import (
	"github.com/consensys/gnark-crypto/field/koalabear/extensions"

	"github.com/lita-xyz/go-fri/mmcs"
)

// Config collects the protocol parameters shared by prover and verifier.
type Config struct {
	// LogBlowup is the log of the ratio between committed domain size and
	// polynomial degree bound.
	LogBlowup int

	// LogFinalPolyLen is the log of the number of coefficients of the final
	// polynomial sent in the clear. Folding stops once the codeword reaches
	// FinalPolyLen · Blowup evaluations.
	LogFinalPolyLen int

	// NumQueries is the number of query indices sampled after the grind.
	NumQueries int

	// ProofOfWorkBits is the grind difficulty. At zero the grind is trivial.
	ProofOfWorkBits int

	// Mmcs commits the folded codewords of the commit phase.
	Mmcs *mmcs.Scheme[extensions.E4]
}

// Blowup returns the domain blowup factor.
func (c *Config) Blowup() int { return 1 << c.LogBlowup }

// FinalPolyLen returns the number of final polynomial coefficients.
func (c *Config) FinalPolyLen() int { return 1 << c.LogFinalPolyLen }
