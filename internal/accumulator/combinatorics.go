package accumulator

// combinations enumerates every k-element subset of {0, ..., n-1}, each as
// a slice of ascending indices, calling yield for each. Enumeration stops
// early if yield returns false. Used by the naive accumulator's brute-force
// subset search (spec.md §4.5) and by the power-sum/IBLT accumulators'
// preimage-collision combination enumeration (spec.md §4.6 step 8).
func combinations(n, k int, yield func(indices []int) bool) {
	if k < 0 || k > n {
		return
	}
	if k == 0 {
		yield(nil)
		return
	}
	idx := make([]int, k)
	for i := range idx {
		idx[i] = i
	}
	for {
		if !yield(idx) {
			return
		}
		// advance to the next combination in lexicographic order
		i := k - 1
		for i >= 0 && idx[i] == n-k+i {
			i--
		}
		if i < 0 {
			return
		}
		idx[i]++
		for j := i + 1; j < k; j++ {
			idx[j] = idx[j-1] + 1
		}
	}
}

// cartesianProduct enumerates the Cartesian product of a slice of choice
// sets, each choice set being a list of candidate index-sets (e.g. one
// entry per colliding root, each a list of which "kept" subsets are
// possible for that root). It calls yield with one concrete combination
// drawn from each dimension. Used by the power-sum and IBLT accumulators'
// across-collision combination enumeration (spec.md §4.6 step 8).
func cartesianProduct(dims [][][]int, yield func(choice [][]int) bool) {
	n := len(dims)
	if n == 0 {
		yield(nil)
		return
	}
	choice := make([][]int, n)
	var rec func(d int) bool
	rec = func(d int) bool {
		if d == n {
			return yield(choice)
		}
		for _, option := range dims[d] {
			choice[d] = option
			if !rec(d + 1) {
				return false
			}
		}
		return true
	}
	rec(0)
}
