package merge

// headHeap is a min-heap of run heads ordered by (value, run).
// Index-based like a plain slice heap to avoid interface dispatch.
type headHeap struct {
	values []int64
	runs   []int
}

func newHeadHeap(capacity int) *headHeap {
	return &headHeap{
		values: make([]int64, 0, capacity),
		runs:   make([]int, 0, capacity),
	}
}

func (h *headHeap) len() int {
	return len(h.values)
}

// push adds a head and restores the heap property. O(log n).
func (h *headHeap) push(value int64, run int) {
	h.values = append(h.values, value)
	h.runs = append(h.runs, run)
	h.up(len(h.values) - 1)
}

// peek returns the smallest head without removing it.
func (h *headHeap) peek() (int64, int) {
	return h.values[0], h.runs[0]
}

// replaceTop swaps the smallest head for the next value of the same run.
func (h *headHeap) replaceTop(value int64) {
	h.values[0] = value
	h.down(0, len(h.values))
}

// pop removes the smallest head.
func (h *headHeap) pop() (int64, int) {
	n := len(h.values) - 1
	h.swap(0, n)
	h.down(0, n)
	v, r := h.values[n], h.runs[n]
	h.values = h.values[:n]
	h.runs = h.runs[:n]
	return v, r
}

func (h *headHeap) swap(i, j int) {
	h.values[i], h.values[j] = h.values[j], h.values[i]
	h.runs[i], h.runs[j] = h.runs[j], h.runs[i]
}

func (h *headHeap) less(i, j int) bool {
	if h.values[i] != h.values[j] {
		return h.values[i] < h.values[j]
	}
	// Deterministic tie-break by run index
	return h.runs[i] < h.runs[j]
}

func (h *headHeap) up(j int) {
	for {
		i := (j - 1) / 2 // parent
		if i == j || !h.less(j, i) {
			break
		}
		h.swap(i, j)
		j = i
	}
}

func (h *headHeap) down(i, n int) {
	for {
		j1 := 2*i + 1
		if j1 >= n || j1 < 0 {
			break
		}
		j := j1 // left child
		if j2 := j1 + 1; j2 < n && h.less(j2, j1) {
			j = j2 // right child
		}
		if !h.less(j, i) {
			break
		}
		h.swap(i, j)
		i = j
	}
}
