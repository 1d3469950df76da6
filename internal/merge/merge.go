// Package merge combines individually sorted runs into one sorted sequence.
//
// KWay compares values only. When equal values appear in different runs the
// one from the lower run index is emitted first, but callers must not rely on
// this as a stability guarantee across runs: only the order inside each run
// is preserved.
package merge

// KWay merges sorted runs into a single ascending slice in
// O(total * log(len(runs))) time. Every element of every run appears in the
// output exactly once. Runs are not modified.
func KWay(runs [][]int64) []int64 {
	total := 0
	for _, r := range runs {
		total += len(r)
	}
	out := make([]int64, 0, total)

	h := newHeadHeap(len(runs))
	pos := make([]int, len(runs))
	for i, r := range runs {
		if len(r) > 0 {
			h.push(r[0], i)
			pos[i] = 1
		}
	}

	for h.len() > 0 {
		v, run := h.peek()
		out = append(out, v)

		if next := pos[run]; next < len(runs[run]) {
			pos[run]++
			h.replaceTop(runs[run][next])
		} else {
			h.pop()
		}
	}

	return out
}
