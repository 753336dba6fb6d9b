// Package hashindex provides the non-cryptographic hashing the CBF and IBLT
// sketches use to map a packet element to cell indices and to a 32-bit
// image. Only the AMH (internal/amh) needs to be collision-resistant; these
// hashes just need to be fast and well distributed, so they lean on
// murmur3 rather than SHA3.
package hashindex

import "github.com/spaolacci/murmur3"

// DJB32 is the Bernstein-style (x33a) hash spec.md mandates for mapping an
// element to its 32-bit sketch image.
func DJB32(elem []byte) uint32 {
	h := uint32(5381)
	for _, b := range elem {
		h = h*33 + uint32(b)
	}
	return h
}

// FieldImage masks a DJB32 hash to 31 bits so it fits unbiased in GF(q) for
// the power-sum accumulator (spec.md §3).
func FieldImage(elem []byte) uint32 {
	return DJB32(elem) & 0x7FFFFFFF
}

// Builder is a keyed 128-bit hash builder: two independent seeds derive two
// independent hash functions, which double-hashing then combines into k
// cell indices per spec.md §4.3 (CBF) / §4.4 (IBLT).
type Builder struct {
	Seed1 uint64
	Seed2 uint64
}

// NewBuilder derives a Builder from a single 64-bit seed, splitting it into
// two independent murmur3 seeds via two distinguishing salts.
func NewBuilder(seed uint64) Builder {
	return Builder{
		Seed1: murmur3.Sum64WithSeed(uint64ToBytes(seed), 0x1b873593),
		Seed2: murmur3.Sum64WithSeed(uint64ToBytes(seed), 0x85ebca6b),
	}
}

func uint64ToBytes(v uint64) []byte {
	return []byte{
		byte(v >> 56), byte(v >> 48), byte(v >> 40), byte(v >> 32),
		byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v),
	}
}

func (b Builder) h1(elem []byte) uint64 {
	return murmur3.Sum64WithSeed(elem, uint32(b.Seed1))
}

func (b Builder) h2(elem []byte) uint64 {
	return murmur3.Sum64WithSeed(elem, uint32(b.Seed2))
}

// Indexes returns the k cell indices (mod m) covered by elem, via the
// standard double-hashing scheme idx_i = (h1 + i*h2) mod m.
func (b Builder) Indexes(elem []byte, k, m int) []int {
	h1 := b.h1(elem)
	h2 := b.h2(elem)
	idx := make([]int, k)
	for i := 0; i < k; i++ {
		idx[i] = int((h1 + uint64(i)*h2) % uint64(m))
	}
	return idx
}

// ImageBytes renders a 32-bit sketch image in big-endian form, the common
// representation CBF/IBLT hash into cell indices — this lets the IBLT
// peeling decoder (internal/iblt) recompute an element's covered cells from
// its recovered d_i image alone, without the original packet bytes.
func ImageBytes(image uint32) [4]byte {
	return [4]byte{byte(image >> 24), byte(image >> 16), byte(image >> 8), byte(image)}
}

// IndexesForImage is Indexes applied to a 32-bit image's byte encoding.
func (b Builder) IndexesForImage(image uint32, k, m int) []int {
	buf := ImageBytes(image)
	return b.Indexes(buf[:], k, m)
}
