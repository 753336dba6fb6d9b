// Package amh implements the additive multiset hash (AMH): the single
// cryptographic, order-independent anchor that every accumulator strategy
// embeds to resolve ambiguity at decode time. Two AMHs over the same
// multiset are equal under the nonce-shifted equality check regardless of
// insertion order or the nonce each was created with.
package amh

import (
	"golang.org/x/crypto/sha3"

	"github.com/rawblock/quack-go/internal/seed"
)

const nonceSize = 16

// AMH is the triple (H, n, s) from spec.md §3: a 256-bit accumulator, a
// wrapping 32-bit element count, and a 16-byte nonce drawn at creation.
type AMH struct {
	H [32]byte
	N uint32
	S [16]byte
}

// New draws a fresh nonce from src and returns an empty AMH. H is seeded to
// hash0(nonce) rather than zero: the nonce-shifted equality check in Equals
// only cancels out correctly if both sides folded their own nonce in at
// construction.
func New(src seed.Source) *AMH {
	var a AMH
	copy(a.S[:], src.Bytes(nonceSize))
	a.H = hash0(a.S[:])
	return &a
}

// FromNonce builds an empty AMH with an explicit, caller-supplied nonce.
// Useful when a peer needs to reconstruct an AMH from its wire form.
func FromNonce(nonce [16]byte) *AMH {
	a := &AMH{S: nonce}
	a.H = hash0(a.S[:])
	return a
}

func hash0(x []byte) [32]byte {
	return taggedHash(0x00, x)
}

func hash1(x []byte) [32]byte {
	return taggedHash(0x01, x)
}

func taggedHash(tag byte, x []byte) [32]byte {
	h := sha3.New256()
	h.Write([]byte{tag})
	h.Write(x)
	var out [32]byte
	h.Sum(out[:0])
	return out
}

// add256 computes (a+b) mod 2^256, treating both as big-endian unsigned
// integers, and writes the result into dst.
func add256(dst *[32]byte, a, b [32]byte) {
	var carry uint16
	for i := 31; i >= 0; i-- {
		sum := uint16(a[i]) + uint16(b[i]) + carry
		dst[i] = byte(sum)
		carry = sum >> 8
	}
	// carry beyond byte 0 is discarded: this is exactly "mod 2^256".
}

// Add folds elem into the digest: H += hash1(elem) (mod 2^256), n++.
func (a *AMH) Add(elem []byte) {
	h := hash1(elem)
	var sum [32]byte
	add256(&sum, a.H, h)
	a.H = sum
	a.N++
}

// AddAll is the batched form of Add.
func (a *AMH) AddAll(elems [][]byte) {
	for _, e := range elems {
		a.Add(e)
	}
}

// Equals implements the nonce-shifted equality check from spec.md §3:
// a.H + hash0(b.S) == b.H + hash0(a.S) (mod 2^256), and a.N == b.N.
func (a *AMH) Equals(b *AMH) bool {
	if a.N != b.N {
		return false
	}
	var lhs, rhs [32]byte
	add256(&lhs, a.H, hash0(b.S[:]))
	add256(&rhs, b.H, hash0(a.S[:]))
	return lhs == rhs
}

// FromParts reconstructs an AMH from its exact wire-transmitted state,
// bypassing the hash0(nonce) seeding New performs — used when deserializing
// an accumulator that already carries a populated H and N.
func FromParts(h [32]byte, n uint32, s [16]byte) *AMH {
	return &AMH{H: h, N: n, S: s}
}

// Clone returns a deep copy.
func (a *AMH) Clone() *AMH {
	c := *a
	return &c
}
