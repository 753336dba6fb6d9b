package accumulator

import (
	"runtime"
	"sync"

	"github.com/rawblock/quack-go/internal/amh"
	"github.com/rawblock/quack-go/internal/field"
	"github.com/rawblock/quack-go/internal/hashindex"
	"github.com/rawblock/quack-go/internal/rootfind"
	"github.com/rawblock/quack-go/internal/seed"
)

// PowerSum is AMH + P[1..t] (spec.md §4.6): a degree-t power-sum
// accumulator that can recover up to t dropped elements by polynomial
// root-finding, falling back to combinatorial enumeration when the
// recovered roots collide with more than one log candidate.
type PowerSum struct {
	mu     sync.Mutex
	amh    *amh.AMH
	p      []field.Elem
	t      int
	finder rootfind.Finder
}

// NewPowerSum builds an empty PowerSum accumulator with the given drop
// threshold t, drawing its AMH nonce from src and using finder for
// polynomial factoring. A nil finder defaults to a pure-Go Cantor-
// Zassenhaus finder seeded from seed.Default.
func NewPowerSum(t int, src seed.Source, finder rootfind.Finder) *PowerSum {
	if finder == nil {
		finder = rootfind.NewDefaultFinder(seed.Default)
	}
	return &PowerSum{
		amh:    amh.New(src),
		p:      make([]field.Elem, t),
		t:      t,
		finder: finder,
	}
}

func fieldImageOf(elem []byte) field.Elem {
	return field.New(uint64(hashindex.FieldImage(elem)))
}

// Insert folds elem into the AMH and accumulates x^1..x^t into P, where x
// is elem's 31-bit masked djb image.
func (a *PowerSum) Insert(elem []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.amh.Add(elem)
	x := fieldImageOf(elem)
	pow := field.Elem(1)
	for j := 0; j < a.t; j++ {
		pow = field.Mul(pow, x)
		a.p[j] = field.Add(a.p[j], pow)
	}
}

// ProcessBatch is the batched form of Insert.
func (a *PowerSum) ProcessBatch(elems [][]byte) {
	for _, e := range elems {
		a.Insert(e)
	}
}

// Total returns the number of elements observed.
func (a *PowerSum) Total() uint32 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.amh.N
}

// Reset clears the accumulator, drawing a fresh nonce.
func (a *PowerSum) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.amh = amh.New(seed.Default)
	a.p = make([]field.Elem, a.t)
}

// computePowerSums computes the power sums p_1..p_t of elems, range-
// partitioning the work across all available hardware threads and merging
// partial vectors by field addition (spec.md §5's only parallel section).
func computePowerSums(elems [][]byte, t int) []field.Elem {
	if t == 0 {
		return nil
	}
	workers := runtime.NumCPU()
	if workers > len(elems) {
		workers = len(elems)
	}
	if workers < 1 {
		workers = 1
	}
	chunkSize := (len(elems) + workers - 1) / workers
	if chunkSize == 0 {
		chunkSize = 1
	}

	var numChunks int
	for start := 0; start < len(elems); start += chunkSize {
		numChunks++
	}
	if numChunks == 0 {
		numChunks = 1
	}

	partials := make([][]field.Elem, numChunks)
	var wg sync.WaitGroup
	idx := 0
	for start := 0; start < len(elems); start += chunkSize {
		end := start + chunkSize
		if end > len(elems) {
			end = len(elems)
		}
		wg.Add(1)
		go func(i, start, end int) {
			defer wg.Done()
			partials[i] = partialPowerSums(elems[start:end], t)
		}(idx, start, end)
		idx++
	}
	wg.Wait()

	total := make([]field.Elem, t)
	for _, partial := range partials {
		if partial == nil {
			continue
		}
		for j := range total {
			total[j] = field.Add(total[j], partial[j])
		}
	}
	return total
}

func partialPowerSums(elems [][]byte, t int) []field.Elem {
	sums := make([]field.Elem, t)
	for _, e := range elems {
		x := fieldImageOf(e)
		pow := field.Elem(1)
		for j := 0; j < t; j++ {
			pow = field.Mul(pow, x)
			sums[j] = field.Add(sums[j], pow)
		}
	}
	return sums
}

// Validate implements spec.md §4.6's decode procedure.
func (a *PowerSum) Validate(log [][]byte) (Result, error) {
	a.mu.Lock()
	n := int(a.amh.N)
	t := a.t
	pStored := append([]field.Elem{}, a.p...)
	storedAMH := a.amh.Clone()
	a.mu.Unlock()

	if len(log) < n {
		return Invalid, nil
	}
	d := len(log) - n
	if d == 0 {
		cand := amh.New(seed.Default)
		cand.AddAll(log)
		if cand.Equals(storedAMH) {
			return Valid, nil
		}
		return Invalid, nil
	}
	if d > t {
		return PsumExceedsThreshold, nil
	}

	pLog := computePowerSums(log, t)
	delta := make([]field.Elem, d)
	for j := 0; j < d; j++ {
		delta[j] = field.Sub(pLog[j], pStored[j])
	}

	coeffs := field.Newton(delta)
	roots, err := a.finder.FindRoots(coeffs, d)
	if err != nil {
		return PsumErrorFindingRoots, nil
	}

	return resolveRootsAgainstLog(log, roots, storedAMH)
}

// rootLogCandidates, for a single recovered root, is the set of log
// indices whose field image matches it.
func rootLogCandidates(log [][]byte, root field.Elem) []int {
	var out []int
	for i, e := range log {
		if fieldImageOf(e) == root {
			out = append(out, i)
		}
	}
	return out
}

// resolveRootsAgainstLog implements spec.md §4.6 steps 7-8: match each
// recovered root against its log candidates, short-circuiting Invalid if
// any root is unaccounted for, and falling back to Cartesian-product
// combination enumeration when a root's candidate set exceeds its
// multiplicity (a preimage collision).
func resolveRootsAgainstLog(log [][]byte, roots []rootfind.Root, storedAMH *amh.AMH) (Result, error) {
	type rootMatch struct {
		candidates   []int
		multiplicity int
	}
	matches := make([]rootMatch, 0, len(roots))
	hasCollision := false

	for _, r := range roots {
		cands := rootLogCandidates(log, r.Value)
		if len(cands) < r.Multiplicity {
			return Invalid, nil
		}
		if len(cands) > r.Multiplicity {
			hasCollision = true
		}
		matches = append(matches, rootMatch{candidates: cands, multiplicity: r.Multiplicity})
	}

	if !hasCollision {
		var dropped []int
		for _, m := range matches {
			dropped = append(dropped, m.candidates...)
		}
		kept := keptElements(log, sortedCopy(dropped))
		cand := amh.New(seed.Default)
		cand.AddAll(kept)
		if cand.Equals(storedAMH) {
			return Valid, nil
		}
		return Invalid, nil
	}

	dims := make([][][]int, len(matches))
	for i, m := range matches {
		var options [][]int
		combinations(len(m.candidates), m.multiplicity, func(pos []int) bool {
			chosen := make([]int, len(pos))
			for j, p := range pos {
				chosen[j] = m.candidates[p]
			}
			options = append(options, chosen)
			return true
		})
		dims[i] = options
	}

	found := false
	cartesianProduct(dims, func(choice [][]int) bool {
		var dropped []int
		for _, c := range choice {
			dropped = append(dropped, c...)
		}
		kept := keptElements(log, sortedCopy(dropped))
		cand := amh.New(seed.Default)
		cand.AddAll(kept)
		if cand.Equals(storedAMH) {
			found = true
			return false
		}
		return true
	})

	if found {
		return PsumCollisionsValid, nil
	}
	return PsumCollisionsInvalid, nil
}

func sortedCopy(xs []int) []int {
	out := append([]int{}, xs...)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

// ToBytes serializes (H, N, S, t, P[1..t]).
func (a *PowerSum) ToBytes() []byte {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]byte, 0, 52+4+4*len(a.p))
	out = append(out, a.amh.H[:]...)
	out = appendUint32(out, a.amh.N)
	out = append(out, a.amh.S[:]...)
	out = appendUint32(out, uint32(a.t))
	for _, p := range a.p {
		out = appendUint32(out, uint32(p))
	}
	return out
}

// FromBytes restores state serialized by ToBytes.
func (a *PowerSum) FromBytes(data []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(data) < 52+4 {
		return errShortBuffer("powersum header", 52+4, len(data))
	}
	var h [32]byte
	copy(h[:], data[:32])
	n := readUint32(data[32:36])
	var s [16]byte
	copy(s[:], data[36:52])
	t := int(readUint32(data[52:56]))
	want := 56 + 4*t
	if len(data) != want {
		return errShortBuffer("powersum", want, len(data))
	}
	p := make([]field.Elem, t)
	for i := 0; i < t; i++ {
		p[i] = field.Elem(readUint32(data[56+4*i : 60+4*i]))
	}
	a.amh = amh.FromParts(h, n, s)
	a.p = p
	a.t = t
	return nil
}
