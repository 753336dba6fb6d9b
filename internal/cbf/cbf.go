// Package cbf implements the counting Bloom filter sketch: a multiset
// membership structure with k hash positions per element and fixed-width
// saturating counters. Overflow is treated as fatal here (spec.md §4.3, §9)
// because the CBF accumulator's decode depends on exact counts; the IBLT
// variant in internal/iblt instead lets counters wrap, by design.
package cbf

import (
	"errors"

	"github.com/rawblock/quack-go/internal/counter"
	"github.com/rawblock/quack-go/internal/hashindex"
)

// ErrCounterOverflow is returned by Insert when a covered cell is already at
// its maximum value — a parameter error by the caller (m or the counter
// width was sized too small for the expected load).
var ErrCounterOverflow = errors.New("cbf: counter overflow")

// CBF is (counters, k, H1, H2) from spec.md §3.
type CBF struct {
	Counters *counter.Vector
	K        int
	Seed     uint64
	builder  hashindex.Builder
}

// New allocates a CBF with m cells of the given counter width, k hash
// positions per element, and a seed reconstructible by a peer.
func New(m, width, k int, seed uint64) *CBF {
	return &CBF{
		Counters: counter.New(m, width),
		K:        k,
		Seed:     seed,
		builder:  hashindex.NewBuilder(seed),
	}
}

// Indexes returns the k cell indices elem covers, deterministic given the
// CBF's seed. Cell indices are derived from elem's 32-bit DJB image rather
// than its raw bytes, so the IBLT peeling decoder (internal/iblt) can
// recompute the same cells from a recovered image alone, with no access to
// the original packet bytes.
func (c *CBF) Indexes(elem []byte) []int {
	return c.IndexesForImage(hashindex.DJB32(elem))
}

// IndexesForImage returns the k cell indices a 32-bit sketch image covers.
func (c *CBF) IndexesForImage(image uint32) []int {
	return c.builder.IndexesForImage(image, c.K, c.Counters.Len())
}

// Insert increments the k counters elem covers. Returns ErrCounterOverflow
// without mutating state if any covered counter is already saturated.
func (c *CBF) Insert(elem []byte) error {
	idx := c.Indexes(elem)
	max := counter.MaxValue(c.Counters.Width())
	for _, i := range idx {
		if c.Counters.Get(i) == max {
			return ErrCounterOverflow
		}
	}
	for _, i := range idx {
		c.Counters.Set(i, c.Counters.Get(i)+1)
	}
	return nil
}

// Contains reports whether all of elem's covered counters are non-zero.
// False positives are possible (by construction); false negatives are not.
func (c *CBF) Contains(elem []byte) bool {
	for _, i := range c.Indexes(elem) {
		if c.Counters.Get(i) == 0 {
			return false
		}
	}
	return true
}

// EmptyClone returns a zeroed CBF with the same k, m, and hash seed — so a
// receiver can build a difference CBF in the same cell frame as the
// sender's (spec.md §4.3).
func (c *CBF) EmptyClone() *CBF {
	return New(c.Counters.Len(), c.Counters.Width(), c.K, c.Seed)
}
