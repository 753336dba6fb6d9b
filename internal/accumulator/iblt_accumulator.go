package accumulator

import (
	"log"
	"sync"

	"github.com/rawblock/quack-go/internal/amh"
	"github.com/rawblock/quack-go/internal/counter"
	"github.com/rawblock/quack-go/internal/hashindex"
	"github.com/rawblock/quack-go/internal/iblt"
	"github.com/rawblock/quack-go/internal/ilp"
	"github.com/rawblock/quack-go/internal/seed"
)

// IBLTAccumulator is AMH + IBLT (spec.md §4.8): validates by peeling a
// difference IBLT as far as it will go, then falling back to the ILP
// solver for any residual drops peeling could not resolve on its own.
type IBLTAccumulator struct {
	mu     sync.Mutex
	amh    *amh.AMH
	sketch *iblt.IBLT
	solver ilp.Solver
}

// NewIBLTAccumulator builds an empty IBLTAccumulator sharing sketch's shape
// (m, width, k, seed). A nil solver defaults to ilp.DefaultSolver.
func NewIBLTAccumulator(src seed.Source, sketch *iblt.IBLT, solver ilp.Solver) *IBLTAccumulator {
	if solver == nil {
		solver = ilp.DefaultSolver{}
	}
	return &IBLTAccumulator{
		amh:    amh.New(src),
		sketch: sketch,
		solver: solver,
	}
}

// Insert folds elem into the AMH and the IBLT. Counter overflow wraps
// rather than failing — spec.md §7 treats this as a recoverable arithmetic
// state the validator detects via k*d == sum, not a fatal caller error.
func (a *IBLTAccumulator) Insert(elem []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.amh.Add(elem)
	a.sketch.Insert(elem)
}

// ProcessBatch is the batched form of Insert.
func (a *IBLTAccumulator) ProcessBatch(elems [][]byte) {
	for _, e := range elems {
		a.Insert(e)
	}
}

// Total returns the number of elements observed.
func (a *IBLTAccumulator) Total() uint32 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.amh.N
}

// Reset clears the accumulator back to empty, preserving the IBLT's shape.
func (a *IBLTAccumulator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.amh = amh.New(seed.Default)
	a.sketch = a.sketch.EmptyClone()
}

func djb32Candidates(log [][]byte, image uint32) []int {
	var out []int
	for i, e := range log {
		if hashindex.DJB32(e) == image {
			out = append(out, i)
		}
	}
	return out
}

// imageGroup is a distinct recovered image and how many times it appeared
// in a peeled set — a peeled image can repeat when two dropped elements
// happen to share a djb image.
type imageGroup struct {
	image        uint32
	multiplicity int
}

func groupImages(images []uint32) []imageGroup {
	counts := make(map[uint32]int)
	var order []uint32
	for _, v := range images {
		if counts[v] == 0 {
			order = append(order, v)
		}
		counts[v]++
	}
	out := make([]imageGroup, len(order))
	for i, v := range order {
		out[i] = imageGroup{image: v, multiplicity: counts[v]}
	}
	return out
}

type imageMatch struct {
	candidates   []int
	multiplicity int
}

// resolveImageGroups matches each recovered image group against its log
// candidates (by djb32 identity), reporting failure if any group has too
// few candidates to cover its multiplicity. When no group collides with
// more candidates than its multiplicity, the unambiguous dropped index set
// is returned directly; otherwise per-group combination choices are
// returned for the caller to enumerate via cartesianProduct (spec.md §4.6
// step 8 / §4.8 step 4).
func resolveImageGroups(log [][]byte, groups []imageGroup) (dropped []int, dims [][][]int, ok bool) {
	matches := make([]imageMatch, 0, len(groups))
	hasCollision := false
	for _, g := range groups {
		cands := djb32Candidates(log, g.image)
		if len(cands) < g.multiplicity {
			return nil, nil, false
		}
		if len(cands) > g.multiplicity {
			hasCollision = true
		}
		matches = append(matches, imageMatch{candidates: cands, multiplicity: g.multiplicity})
	}

	if !hasCollision {
		for _, m := range matches {
			dropped = append(dropped, m.candidates...)
		}
		return dropped, nil, true
	}

	dims = make([][][]int, len(matches))
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
	return nil, dims, true
}

func amhMatches(log [][]byte, droppedSorted []int, storedAMH *amh.AMH) bool {
	kept := keptElements(log, droppedSorted)
	cand := amh.New(seed.Default)
	cand.AddAll(kept)
	return cand.Equals(storedAMH)
}

// Validate implements spec.md §4.8's decode procedure.
func (a *IBLTAccumulator) Validate(candidateLog [][]byte) (Result, error) {
	a.mu.Lock()
	n := int(a.amh.N)
	storedAMH := a.amh.Clone()
	storedSketch := a.sketch
	solver := a.solver
	a.mu.Unlock()

	if len(candidateLog) < n {
		return Invalid, nil
	}
	d := len(candidateLog) - n
	if d == 0 {
		cand := amh.New(seed.Default)
		cand.AddAll(candidateLog)
		if cand.Equals(storedAMH) {
			return Valid, nil
		}
		return Invalid, nil
	}

	logSketch := storedSketch.EmptyClone()
	for _, e := range candidateLog {
		logSketch.Insert(e)
	}

	diff := logSketch.EmptyClone()
	for i := 0; i < diff.Counters.Len(); i++ {
		diff.Counters.Set(i, logSketch.Counters.Get(i))
		diff.Data[i] = logSketch.Data[i]
	}
	diff.SubAssign(storedSketch)

	width := storedSketch.Counters.Width()
	maxCounter := counter.MaxValue(width)

	for i := 0; i < diff.Counters.Len(); i++ {
		if diff.Counters.Get(i) == 0 && diff.Data[i] != 0 {
			return Invalid, nil
		}
	}
	sum := diff.Sum()
	if uint64(storedSketch.K)*uint64(d) != sum {
		if uint64(d) <= uint64(maxCounter) {
			return Invalid, nil
		}
		log.Printf("iblt accumulator: k*d != sum but d (%d) exceeds counter width %d; parameters chosen too tight", d, maxCounter)
		return Invalid, nil
	}

	peeled := diff.EliminateElems()

	if len(peeled) == d {
		groups := groupImages(peeled)
		dropped, dims, ok := resolveImageGroups(candidateLog, groups)
		if !ok {
			return Invalid, nil
		}
		if dims == nil {
			if amhMatches(candidateLog, sortedCopy(dropped), storedAMH) {
				return Valid, nil
			}
			return Invalid, nil
		}
		found := false
		cartesianProduct(dims, func(choice [][]int) bool {
			var chosen []int
			for _, c := range choice {
				chosen = append(chosen, c...)
			}
			if amhMatches(candidateLog, sortedCopy(chosen), storedAMH) {
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

	// Residual path: peeling resolved fewer than d drops; ask the ILP
	// solver for the remainder over what peeling left behind in diff.
	residual := d - len(peeled)
	m := diff.Counters.Len()
	target := make([]uint32, m)
	for i := 0; i < m; i++ {
		target[i] = diff.Counters.Get(i)
	}

	var candidateIdx []int
	var covers [][]int
	for i, e := range candidateLog {
		idx := diff.IndexesForImage(hashindex.DJB32(e))
		coverable := true
		for _, c := range idx {
			if target[c] == 0 {
				coverable = false
				break
			}
		}
		if coverable {
			candidateIdx = append(candidateIdx, i)
			covers = append(covers, idx)
		}
	}

	selection, err := solver.Solve(target, covers, residual)
	if err != nil {
		return IbltIlpInvalid, nil
	}
	ilpDropped := make([]int, len(selection))
	for i, pos := range selection {
		ilpDropped[i] = candidateIdx[pos]
	}

	groups := groupImages(peeled)
	peeledDropped, dims, ok := resolveImageGroups(candidateLog, groups)
	if !ok {
		return IbltIlpInvalid, nil
	}

	if dims == nil {
		combined := append(append([]int{}, peeledDropped...), ilpDropped...)
		if amhMatches(candidateLog, sortedCopy(combined), storedAMH) {
			return IbltIlpValid, nil
		}
		return IbltIlpInvalid, nil
	}

	found := false
	cartesianProduct(dims, func(choice [][]int) bool {
		combined := append([]int{}, ilpDropped...)
		for _, c := range choice {
			combined = append(combined, c...)
		}
		if amhMatches(candidateLog, sortedCopy(combined), storedAMH) {
			found = true
			return false
		}
		return true
	})
	if found {
		return IbltIlpValid, nil
	}
	return IbltIlpInvalid, nil
}

// ToBytes serializes (H, N, S, IBLT shape, counters, data).
func (a *IBLTAccumulator) ToBytes() []byte {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]byte, 0)
	out = append(out, a.amh.H[:]...)
	out = appendUint32(out, a.amh.N)
	out = append(out, a.amh.S[:]...)
	out = appendUint32(out, uint32(a.sketch.Counters.Len()))
	out = appendUint32(out, uint32(a.sketch.Counters.Width()))
	out = appendUint32(out, uint32(a.sketch.K))
	out = appendUint32(out, uint32(a.sketch.Seed>>32))
	out = appendUint32(out, uint32(a.sketch.Seed))
	for i := 0; i < a.sketch.Counters.Len(); i++ {
		out = appendUint32(out, a.sketch.Counters.Get(i))
	}
	for _, v := range a.sketch.Data {
		out = appendUint32(out, v)
	}
	return out
}

// FromBytes restores state serialized by ToBytes.
func (a *IBLTAccumulator) FromBytes(data []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	const headerLen = 32 + 4 + 16 + 4 + 4 + 4 + 4 + 4
	if len(data) < headerLen {
		return errShortBuffer("iblt accumulator header", headerLen, len(data))
	}
	var h [32]byte
	copy(h[:], data[:32])
	n := readUint32(data[32:36])
	var s [16]byte
	copy(s[:], data[36:52])
	m := int(readUint32(data[52:56]))
	width := int(readUint32(data[56:60]))
	k := int(readUint32(data[60:64]))
	seedHi := uint64(readUint32(data[64:68]))
	seedLo := uint64(readUint32(data[68:72]))
	seedVal := seedHi<<32 | seedLo

	want := headerLen + 4*m + 4*m
	if len(data) != want {
		return errShortBuffer("iblt accumulator", want, len(data))
	}
	sketch := iblt.New(m, width, k, seedVal)
	for i := 0; i < m; i++ {
		sketch.Counters.Set(i, readUint32(data[headerLen+4*i:headerLen+4+4*i]))
	}
	dataOffset := headerLen + 4*m
	for i := 0; i < m; i++ {
		sketch.Data[i] = readUint32(data[dataOffset+4*i : dataOffset+4+4*i])
	}
	a.amh = amh.FromParts(h, n, s)
	a.sketch = sketch
	return nil
}
