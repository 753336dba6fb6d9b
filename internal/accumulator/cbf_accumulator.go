package accumulator

import (
	"sync"

	"github.com/rawblock/quack-go/internal/amh"
	"github.com/rawblock/quack-go/internal/cbf"
	"github.com/rawblock/quack-go/internal/ilp"
	"github.com/rawblock/quack-go/internal/seed"
)

// CBFAccumulator is AMH + CBF (spec.md §4.7): validates by building a
// difference CBF between the candidate log and the received sketch, then
// asking an ILP solver for an exact-size assignment of dropped candidates
// over the residual cells.
type CBFAccumulator struct {
	mu     sync.Mutex
	amh    *amh.AMH
	filter *cbf.CBF
	solver ilp.Solver
}

// NewCBFAccumulator builds an empty CBFAccumulator sharing filter's shape
// (m, width, k, seed) — filter should be freshly constructed via cbf.New
// and not yet populated. A nil solver defaults to ilp.DefaultSolver.
func NewCBFAccumulator(src seed.Source, filter *cbf.CBF, solver ilp.Solver) *CBFAccumulator {
	if solver == nil {
		solver = ilp.DefaultSolver{}
	}
	return &CBFAccumulator{
		amh:    amh.New(src),
		filter: filter,
		solver: solver,
	}
}

// Insert folds elem into the AMH and the CBF. Overflow panics, per spec.md
// §7: CBF's decode depends on exact counts, so silent wraparound would
// compromise the difference computation's correctness.
func (a *CBFAccumulator) Insert(elem []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.amh.Add(elem)
	if err := a.filter.Insert(elem); err != nil {
		panic(err)
	}
}

// ProcessBatch is the batched form of Insert.
func (a *CBFAccumulator) ProcessBatch(elems [][]byte) {
	for _, e := range elems {
		a.Insert(e)
	}
}

// Total returns the number of elements observed.
func (a *CBFAccumulator) Total() uint32 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.amh.N
}

// Reset clears the accumulator back to empty, preserving the CBF's shape.
func (a *CBFAccumulator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.amh = amh.New(seed.Default)
	a.filter = a.filter.EmptyClone()
}

// Validate implements spec.md §4.7's decode procedure.
func (a *CBFAccumulator) Validate(log [][]byte) (Result, error) {
	a.mu.Lock()
	n := int(a.amh.N)
	storedAMH := a.amh.Clone()
	storedFilter := a.filter
	solver := a.solver
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

	logFilter := storedFilter.EmptyClone()
	for _, e := range log {
		if err := logFilter.Insert(e); err != nil {
			return Invalid, err
		}
	}

	m := storedFilter.Counters.Len()
	diff := make([]uint32, m)
	for i := 0; i < m; i++ {
		lv := logFilter.Counters.Get(i)
		sv := storedFilter.Counters.Get(i)
		if lv < sv {
			return Invalid, nil
		}
		diff[i] = lv - sv
	}

	var candidateIdx []int
	var covers [][]int
	for i, e := range log {
		idx := storedFilter.Indexes(e)
		coverable := true
		for _, c := range idx {
			if diff[c] == 0 {
				coverable = false
				break
			}
		}
		if coverable {
			candidateIdx = append(candidateIdx, i)
			covers = append(covers, idx)
		}
	}

	selection, err := solver.Solve(diff, covers, d)
	if err != nil {
		return Invalid, nil
	}

	dropped := make([]int, len(selection))
	for i, pos := range selection {
		dropped[i] = candidateIdx[pos]
	}
	kept := keptElements(log, sortedCopy(dropped))
	cand := amh.New(seed.Default)
	cand.AddAll(kept)
	if cand.Equals(storedAMH) {
		return Valid, nil
	}
	return Invalid, nil
}

// ToBytes serializes (H, N, S, CBF shape, counters).
func (a *CBFAccumulator) ToBytes() []byte {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]byte, 0)
	out = append(out, a.amh.H[:]...)
	out = appendUint32(out, a.amh.N)
	out = append(out, a.amh.S[:]...)
	out = appendUint32(out, uint32(a.filter.Counters.Len()))
	out = appendUint32(out, uint32(a.filter.Counters.Width()))
	out = appendUint32(out, uint32(a.filter.K))
	out = appendUint32(out, uint32(a.filter.Seed>>32))
	out = appendUint32(out, uint32(a.filter.Seed))
	for i := 0; i < a.filter.Counters.Len(); i++ {
		out = appendUint32(out, a.filter.Counters.Get(i))
	}
	return out
}

// FromBytes restores state serialized by ToBytes.
func (a *CBFAccumulator) FromBytes(data []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	const headerLen = 32 + 4 + 16 + 4 + 4 + 4 + 4 + 4
	if len(data) < headerLen {
		return errShortBuffer("cbf accumulator header", headerLen, len(data))
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

	want := headerLen + 4*m
	if len(data) != want {
		return errShortBuffer("cbf accumulator", want, len(data))
	}
	filter := cbf.New(m, width, k, seedVal)
	for i := 0; i < m; i++ {
		filter.Counters.Set(i, readUint32(data[headerLen+4*i:headerLen+4+4*i]))
	}
	a.amh = amh.FromParts(h, n, s)
	a.filter = filter
	return nil
}
