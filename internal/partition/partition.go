// Package partition splits an input sequence into contiguous chunks, one per worker.
package partition

import "fmt"

// Partition is a contiguous slice [Start, End) of the input.
// Index orders partitions for reassembly after parallel work.
type Partition struct {
	Index  int
	Start  int
	End    int
	Values []int64 // aliases the input; workers must copy before sorting
}

// Len returns the number of values in the partition.
func (p Partition) Len() int {
	return p.End - p.Start
}

func (p Partition) String() string {
	return fmt.Sprintf("partition[%d] %d-%d", p.Index, p.Start, p.End)
}

// EffectiveWorkers clamps the requested worker count to [1, n].
// An empty input still reports one worker.
func EffectiveWorkers(n, requested int) int {
	return max(1, min(requested, n))
}

// ChunkSize returns ceil(n / EffectiveWorkers(n, requested)).
func ChunkSize(n, requested int) int {
	w := EffectiveWorkers(n, requested)
	return (n + w - 1) / w
}

// Split divides values into contiguous, non-empty partitions covering the
// input exactly once. The last partition may be shorter than the others.
// Empty input yields no partitions.
func Split(values []int64, workers int) []Partition {
	n := len(values)
	if n == 0 {
		return nil
	}

	size := ChunkSize(n, workers)
	out := make([]Partition, 0, EffectiveWorkers(n, workers))

	idx := 0
	for start := 0; start < n; {
		end := min(start+size, n)
		out = append(out, Partition{
			Index:  idx,
			Start:  start,
			End:    end,
			Values: values[start:end:end],
		})
		idx++
		start = end
	}

	return out
}

// Validate checks that parts cover [0, n) contiguously and in order.
func Validate(parts []Partition, n int) error {
	next := 0
	for i, p := range parts {
		if p.Index != i {
			return fmt.Errorf("partition %d has index %d", i, p.Index)
		}
		if p.Start != next {
			return fmt.Errorf("partition gap detected: %d -> %d", next, p.Start)
		}
		if p.End <= p.Start {
			return fmt.Errorf("partition %d is empty (%d-%d)", i, p.Start, p.End)
		}
		if len(p.Values) != p.Len() {
			return fmt.Errorf("partition %d has %d values, expected %d", i, len(p.Values), p.Len())
		}
		next = p.End
	}
	if next != n {
		return fmt.Errorf("partitions cover %d values, expected %d", next, n)
	}
	return nil
}
