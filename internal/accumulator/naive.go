package accumulator

import (
	"sync"

	"github.com/rawblock/quack-go/internal/amh"
	"github.com/rawblock/quack-go/internal/seed"
)

// Naive is just an AMH (spec.md §4.5): validate by brute-force subset
// search. Exponential in the number of drops; kept as a baseline and as a
// correctness oracle for the other strategies' tests, not for production
// thresholds beyond a handful of drops.
type Naive struct {
	mu  sync.Mutex
	amh *amh.AMH
}

// NewNaive builds an empty Naive accumulator, drawing its AMH nonce from
// src.
func NewNaive(src seed.Source) *Naive {
	return &Naive{amh: amh.New(src)}
}

// Insert folds elem into the underlying AMH.
func (a *Naive) Insert(elem []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.amh.Add(elem)
}

// ProcessBatch is the batched form of Insert.
func (a *Naive) ProcessBatch(elems [][]byte) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.amh.AddAll(elems)
}

// Total returns the number of elements observed.
func (a *Naive) Total() uint32 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.amh.N
}

// Validate enumerates C(|log|, n) subsets of log until one's AMH equals
// the stored AMH.
func (a *Naive) Validate(log [][]byte) (Result, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	n := int(a.amh.N)
	if len(log) < n {
		return Invalid, nil
	}
	d := len(log) - n
	if d == 0 {
		cand := amh.New(seed.Default)
		cand.AddAll(log)
		if cand.Equals(a.amh) {
			return Valid, nil
		}
		return Invalid, nil
	}

	found := false
	combinations(len(log), d, func(dropped []int) bool {
		kept := keptElements(log, dropped)
		cand := amh.New(seed.Default)
		cand.AddAll(kept)
		if cand.Equals(a.amh) {
			found = true
			return false
		}
		return true
	})
	if found {
		return Valid, nil
	}
	return Invalid, nil
}

// ToBytes serializes (H, N, S) — the full AMH state.
func (a *Naive) ToBytes() []byte {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]byte, 0, 32+4+16)
	out = append(out, a.amh.H[:]...)
	out = appendUint32(out, a.amh.N)
	out = append(out, a.amh.S[:]...)
	return out
}

// FromBytes restores state serialized by ToBytes.
func (a *Naive) FromBytes(data []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(data) != 32+4+16 {
		return errShortBuffer("naive", 32+4+16, len(data))
	}
	var h [32]byte
	copy(h[:], data[:32])
	n := readUint32(data[32:36])
	var s [16]byte
	copy(s[:], data[36:52])
	a.amh = amh.FromParts(h, n, s)
	return nil
}

// Reset clears the accumulator back to empty, drawing a fresh nonce.
func (a *Naive) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.amh = amh.New(seed.Default)
}

// keptElements returns log with the indices in dropped (ascending, as
// produced by combinations) removed.
func keptElements(log [][]byte, dropped []int) [][]byte {
	kept := make([][]byte, 0, len(log)-len(dropped))
	di := 0
	for i, e := range log {
		if di < len(dropped) && dropped[di] == i {
			di++
			continue
		}
		kept = append(kept, e)
	}
	return kept
}
