// Package sorter wires the partitioner, worker pool and k-way merge into the
// parallel sort path, and exposes the single-worker baseline.
package sorter

import (
	"context"
	"fmt"
	"iter"
	"time"

	"github.com/withObsrvr/obsrvr-radix-bench/internal/merge"
	"github.com/withObsrvr/obsrvr-radix-bench/internal/metrics"
	"github.com/withObsrvr/obsrvr-radix-bench/internal/partition"
	"github.com/withObsrvr/obsrvr-radix-bench/internal/pool"
	"github.com/withObsrvr/obsrvr-radix-bench/internal/radix"
)

// Result is the output of a parallel sort.
type Result struct {
	Sorted     []int64
	Partitions int // partitions actually dispatched
}

// Sorter runs the parallel path with a configurable per-partition sort.
type Sorter struct {
	coord *pool.Coordinator
}

// New creates a Sorter. A nil fn sorts partitions with radix.Sort.
func New(fn pool.SortFunc) *Sorter {
	return &Sorter{coord: pool.NewCoordinator(fn)}
}

// Parallel splits values across at most workers partitions, sorts each on
// its own worker and merges the results. values is not modified.
func (s *Sorter) Parallel(ctx context.Context, values []int64, workers int) (Result, error) {
	startTime := time.Now()

	parts := partition.Split(values, workers)
	if len(parts) == 0 {
		return Result{Sorted: []int64{}, Partitions: 0}, nil
	}

	runs, err := s.coord.Run(ctx, parts)
	if err != nil {
		return Result{}, fmt.Errorf("sort partitions: %w", err)
	}

	sorted := merge.KWay(runs)

	if m := metrics.Get(); m != nil {
		m.ObserveSort(metrics.PathParallel, time.Since(startTime).Seconds())
	}

	return Result{Sorted: sorted, Partitions: len(parts)}, nil
}

// Parallel sorts values with the default radix worker pool.
func Parallel(ctx context.Context, values []int64, workers int) ([]int64, error) {
	res, err := New(nil).Parallel(ctx, values, workers)
	if err != nil {
		return nil, err
	}
	return res.Sorted, nil
}

// Sequential is the single-worker baseline: the same radix sort applied to
// the whole input.
func Sequential(values []int64) []int64 {
	startTime := time.Now()
	sorted := radix.Sort(values)

	if m := metrics.Get(); m != nil {
		m.ObserveSort(metrics.PathSequential, time.Since(startTime).Seconds())
	}

	return sorted
}

// Collect materializes any finite sequence of integers for the sort paths.
func Collect(seq iter.Seq[int64]) []int64 {
	out := []int64{}
	for v := range seq {
		out = append(out, v)
	}
	return out
}
