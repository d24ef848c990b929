// Package challenger implements the Fiat-Shamir transcript used by the prover
// and verifier. It is a duplex construction over SHAKE-256: observed data is
// buffered, and each sample ratchets a 32-byte state through the hash together
// with the pending buffer, so samples depend on everything observed so far.
package challenger

import (
	"encoding/binary"

	fr "github.com/consensys/gnark-crypto/field/koalabear"
	"github.com/consensys/gnark-crypto/field/koalabear/extensions"
	"golang.org/x/crypto/sha3"
)

// Challenger is a stateful transcript. The zero value is not usable, call New.
type Challenger struct {
	state [32]byte
	buf   []byte
}

// New returns a transcript seeded with a domain separation label.
func New(label string) *Challenger {
	c := &Challenger{}
	c.buf = append(c.buf, label...)
	return c
}

// Clone returns an independent copy of the transcript.
func (c *Challenger) Clone() *Challenger {
	cp := &Challenger{state: c.state}
	cp.buf = append(cp.buf, c.buf...)
	return cp
}

// ObserveBytes absorbs raw bytes into the transcript.
func (c *Challenger) ObserveBytes(data []byte) {
	c.buf = append(c.buf, data...)
}

// Observe absorbs a base field element.
func (c *Challenger) Observe(x fr.Element) {
	b := x.Bytes()
	c.buf = append(c.buf, b[:]...)
}

// ObserveExt absorbs an extension field element limb by limb.
func (c *Challenger) ObserveExt(x extensions.E4) {
	for _, l := range [4]fr.Element{x.B0.A0, x.B0.A1, x.B1.A0, x.B1.A1} {
		c.Observe(l)
	}
}

// squeeze ratchets the state over the pending buffer and fills out.
func (c *Challenger) squeeze(out []byte) {
	h := sha3.NewShake256()
	h.Write(c.state[:])
	h.Write(c.buf)
	h.Read(c.state[:])
	h.Read(out)
	c.buf = c.buf[:0]
}

// Sample draws a uniform base field element. Candidates outside the uniform
// range are rejected so the output has no modular bias.
func (c *Challenger) Sample() fr.Element {
	q := fr.Modulus().Uint64()
	limit := (^uint64(0) / q) * q
	var buf [8]byte
	for {
		c.squeeze(buf[:])
		v := binary.BigEndian.Uint64(buf[:])
		if v < limit {
			var r fr.Element
			r.SetUint64(v % q)
			return r
		}
	}
}

// SampleExt draws a uniform extension field element.
func (c *Challenger) SampleExt() extensions.E4 {
	var r extensions.E4
	r.B0.A0 = c.Sample()
	r.B0.A1 = c.Sample()
	r.B1.A0 = c.Sample()
	r.B1.A1 = c.Sample()
	return r
}

// SampleBits draws n uniform bits as an integer, 0 <= n <= 63.
func (c *Challenger) SampleBits(n int) uint64 {
	if n < 0 || n > 63 {
		panic("challenger: bit count out of range")
	}
	var buf [8]byte
	c.squeeze(buf[:])
	v := binary.BigEndian.Uint64(buf[:])
	return v & ((uint64(1) << uint(n)) - 1)
}

// Grind searches for a witness whose absorption makes the next
// SampleBits(bits) draw zero, and commits the winning witness to the
// transcript. The search is sequential so proofs are deterministic.
func (c *Challenger) Grind(bits int) uint64 {
	for w := uint64(0); ; w++ {
		if c.Clone().CheckWitness(bits, w) {
			c.CheckWitness(bits, w)
			return w
		}
	}
}

// CheckWitness absorbs w as a field element and reports whether the resulting
// SampleBits(bits) draw is zero. It mutates the transcript on both outcomes,
// mirroring Grind.
func (c *Challenger) CheckWitness(bits int, w uint64) bool {
	var e fr.Element
	e.SetUint64(w)
	c.Observe(e)
	return c.SampleBits(bits) == 0
}
