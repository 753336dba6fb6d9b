// Package iblt implements the invertible Bloom lookup table: a counting
// Bloom filter extended with a per-cell additive 32-bit image sum, so a
// difference sketch (logged minus received) can be peeled apart to recover
// the identities of the elements that differ, rather than merely detecting
// that a difference exists.
package iblt

import (
	"github.com/rawblock/quack-go/internal/counter"
	"github.com/rawblock/quack-go/internal/hashindex"
)

// IBLT is (counters, data, k, seed) from spec.md §4.4. Unlike the CBF,
// counter overflow wraps modulo 2^b rather than failing — the validator
// detects wraparound arithmetically via k*d == sum (spec.md §4.8) rather
// than by refusing to let it happen.
type IBLT struct {
	Counters *counter.Vector
	Data     []uint32
	K        int
	Seed     uint64
	builder  hashindex.Builder
}

// New allocates an IBLT with m cells of the given counter width, k hash
// positions per element, and a seed reconstructible by a peer.
func New(m, width, k int, seed uint64) *IBLT {
	return &IBLT{
		Counters: counter.New(m, width),
		Data:     make([]uint32, m),
		K:        k,
		Seed:     seed,
		builder:  hashindex.NewBuilder(seed),
	}
}

// Indexes returns the k cell indices elem covers.
func (b *IBLT) Indexes(elem []byte) []int {
	return b.IndexesForImage(hashindex.DJB32(elem))
}

// IndexesForImage returns the k cell indices a 32-bit sketch image covers —
// the same computation Indexes performs, but usable during peeling, when
// only a recovered image (not the original packet bytes) is available.
func (b *IBLT) IndexesForImage(image uint32) []int {
	return b.builder.IndexesForImage(image, b.K, b.Counters.Len())
}

// Insert adds elem: increments each covered counter (wrapping on overflow)
// and adds elem's DJB image into each covered cell's Data entry modulo 2^32.
func (b *IBLT) Insert(elem []byte) {
	image := hashindex.DJB32(elem)
	b.InsertImage(image)
}

// InsertImage is Insert given an already-computed 32-bit image.
func (b *IBLT) InsertImage(image uint32) {
	max := counter.MaxValue(b.Counters.Width())
	for _, i := range b.IndexesForImage(image) {
		v := b.Counters.Get(i)
		if v == max {
			v = 0
		} else {
			v++
		}
		b.Counters.Set(i, v)
		b.Data[i] += image
	}
}

// RemoveImage subtracts a previously-inserted element's image from each
// cell it covers: decrements the counter (wrapping below zero) and
// subtracts the image modulo 2^32. This is a modular subtraction, not an
// XOR — the IBLT's accumulator is additive, unlike RIBLT's.
func (b *IBLT) RemoveImage(image uint32) {
	max := counter.MaxValue(b.Counters.Width())
	for _, i := range b.IndexesForImage(image) {
		v := b.Counters.Get(i)
		if v == 0 {
			v = max
		} else {
			v--
		}
		b.Counters.Set(i, v)
		b.Data[i] -= image
	}
}

// EmptyClone returns a zeroed IBLT with the same k, m, and hash seed — so a
// receiver can build a difference IBLT in the same cell frame as the
// sender's.
func (b *IBLT) EmptyClone() *IBLT {
	return New(b.Counters.Len(), b.Counters.Width(), b.K, b.Seed)
}

// SubAssign computes the cell-wise difference b - rhs in place: counters
// subtract modulo 2^b, data subtracts modulo 2^32. b and rhs must share the
// same shape and seed (same builder), which EmptyClone guarantees.
func (b *IBLT) SubAssign(rhs *IBLT) {
	max := counter.MaxValue(b.Counters.Width())
	for i := 0; i < b.Counters.Len(); i++ {
		lv := int64(b.Counters.Get(i))
		rv := int64(rhs.Counters.Get(i))
		diff := lv - rv
		for diff < 0 {
			diff += int64(max) + 1
		}
		b.Counters.Set(i, uint32(diff)&max)
		b.Data[i] -= rhs.Data[i]
	}
}

// Sum returns the sum of all counters, used by the IBLT accumulator's
// k*d == sum wraparound check (spec.md §4.8).
func (b *IBLT) Sum() uint64 {
	var sum uint64
	for i := 0; i < b.Counters.Len(); i++ {
		sum += uint64(b.Counters.Get(i))
	}
	return sum
}

// EliminateElems implements the peeling decoder (spec.md §4.4): scans cells
// for a counter equal to one, treats that cell's Data value as the
// identity of the unique surviving element covering it, removes that
// element from the sketch, and repeats until no cell has counter one.
// Because a count-one cell necessarily covers a unique element in the
// sketch frame, the returned set can never contain duplicates.
//
// Each pass scans all m cells and peels every count-one cell it meets,
// touching k cells per peel; passes repeat until one peels nothing, so a
// cell can be visited once per pass rather than at most once overall.
func (b *IBLT) EliminateElems() []uint32 {
	peeled := make([]uint32, 0)

	for {
		progressed := false
		for i := 0; i < b.Counters.Len(); i++ {
			if b.Counters.Get(i) != 1 {
				continue
			}
			image := b.Data[i]
			b.RemoveImage(image)
			peeled = append(peeled, image)
			progressed = true
		}
		if !progressed {
			break
		}
	}
	return peeled
}
