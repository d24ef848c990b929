package pcs

import (
	"io"

	fr "github.com/consensys/gnark-crypto/field/koalabear"
	"github.com/fxamacker/cbor/v2"

	"github.com/lita-xyz/go-fri/fri"
	"github.com/lita-xyz/go-fri/mmcs"
)

// BatchOpening opens all matrices of one commitment round at a query index:
// one row per matrix, authenticated by a single path.
type BatchOpening struct {
	OpenedValues [][]fr.Element
	OpeningProof mmcs.Proof
}

// Proof is a batched multi-point opening proof.
type Proof struct {
	Fri fri.Proof[[]BatchOpening]
}

// encMode is the deterministic encoder shared by all proofs, so identical
// proofs serialize to identical bytes.
var encMode cbor.EncMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
}

// WriteTo serializes the proof.
func (p *Proof) WriteTo(w io.Writer) (int64, error) {
	data, err := encMode.Marshal(p)
	if err != nil {
		return 0, err
	}
	n, err := w.Write(data)
	return int64(n), err
}

// ReadFrom deserializes a proof produced by WriteTo.
func (p *Proof) ReadFrom(r io.Reader) (int64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return int64(len(data)), err
	}
	if err := cbor.Unmarshal(data, p); err != nil {
		return int64(len(data)), err
	}
	return int64(len(data)), nil
}
