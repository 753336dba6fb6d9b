// Package ilp provides the integer-linear-programming callout the CBF and
// IBLT accumulators use when peeling alone cannot finish a decode (spec.md
// §4.7 step 4, §4.8 step 5): given a difference sketch's cell counters and
// a list of log-candidate elements with their covered cells, find a subset
// of exactly d candidates whose cell coverage reproduces the counters
// exactly.
//
// Modeled as a pluggable Solver so a real ILP/CP-SAT library can stand in
// for the backtracking default without the accumulator package caring
// which is in use — the same pattern the CP-SAT and DP solver lanes in
// this codebase's history used for constrained assignment problems.
package ilp

import "errors"

// ErrNoFeasibleSolution is returned when no subset of exactly d candidates
// reproduces the target cell counters.
var ErrNoFeasibleSolution = errors.New("ilp: no feasible assignment of the requested size")

// Solver finds a feasible 0/1 assignment of candidates to a target cell
// coverage. target holds one entry per sketch cell (its residual counter
// value); covers holds, per candidate index, the list of cell indices that
// candidate's element covers. d is the exact number of candidates the
// solution must select.
type Solver interface {
	Solve(target []uint32, covers [][]int, d int) ([]int, error)
}

// DefaultSolver is a pure-Go backtracking search with per-cell pruning: a
// partial assignment is abandoned as soon as any cell's running tally
// exceeds its target, or as soon as too few undecided candidates remain to
// reach size d. Fine for the small, tightly constrained instances this
// callout is meant for (spec.md's accumulators only reach the ILP path
// once peeling has already resolved all but a handful of drops); not
// intended for large unconstrained instances.
type DefaultSolver struct {
	// MaxCandidates guards against accidentally invoking the solver on an
	// instance too large for backtracking to be practical. Zero means no
	// guard.
	MaxCandidates int
}

// Solve implements Solver.
func (s DefaultSolver) Solve(target []uint32, covers [][]int, d int) ([]int, error) {
	n := len(covers)
	if s.MaxCandidates > 0 && n > s.MaxCandidates {
		return nil, ErrNoFeasibleSolution
	}
	if d < 0 || d > n {
		return nil, ErrNoFeasibleSolution
	}
	if d == 0 {
		for _, c := range target {
			if c != 0 {
				return nil, ErrNoFeasibleSolution
			}
		}
		return []int{}, nil
	}

	tally := make([]uint32, len(target))
	selected := make([]int, 0, d)
	var solution []int

	var search func(idx int)
	search = func(idx int) {
		if solution != nil {
			return
		}
		if len(selected) == d {
			if tallyMatches(tally, target) {
				solution = append([]int{}, selected...)
			}
			return
		}
		remaining := n - idx
		if remaining < d-len(selected) {
			return
		}
		if idx == n {
			return
		}

		// Branch 1: include candidate idx, if it doesn't overshoot any cell.
		if feasibleAfterAdding(tally, target, covers[idx]) {
			applyCover(tally, covers[idx], 1)
			selected = append(selected, idx)
			search(idx + 1)
			selected = selected[:len(selected)-1]
			applyCover(tally, covers[idx], -1)
		}
		if solution != nil {
			return
		}

		// Branch 2: exclude candidate idx.
		search(idx + 1)
	}
	search(0)

	if solution == nil {
		return nil, ErrNoFeasibleSolution
	}
	return solution, nil
}

func feasibleAfterAdding(tally, target []uint32, cells []int) bool {
	for _, c := range cells {
		if tally[c]+1 > target[c] {
			return false
		}
	}
	return true
}

func applyCover(tally []uint32, cells []int, delta int) {
	for _, c := range cells {
		if delta > 0 {
			tally[c]++
		} else {
			tally[c]--
		}
	}
}

func tallyMatches(tally, target []uint32) bool {
	for i := range target {
		if tally[i] != target[i] {
			return false
		}
	}
	return true
}
