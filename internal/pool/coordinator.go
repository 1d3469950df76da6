// Package pool runs one isolated sort worker per partition and reassembles
// their results in submission order.
package pool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/withObsrvr/obsrvr-radix-bench/internal/logging"
	"github.com/withObsrvr/obsrvr-radix-bench/internal/metrics"
	"github.com/withObsrvr/obsrvr-radix-bench/internal/partition"
	"github.com/withObsrvr/obsrvr-radix-bench/internal/radix"
)

// RadixSort is the default SortFunc.
func RadixSort(values []int64) ([]int64, error) {
	return radix.Sort(values), nil
}

// Coordinator implements the dispatcher → workers → sequencer flow.
// Every call to Run starts a fresh set of workers and tears them down
// before returning; nothing is kept between calls.
type Coordinator struct {
	sort SortFunc
	log  *slog.Logger
}

// NewCoordinator creates a coordinator that sorts partitions with fn.
// A nil fn uses RadixSort.
func NewCoordinator(fn SortFunc) *Coordinator {
	if fn == nil {
		fn = RadixSort
	}
	return &Coordinator{
		sort: fn,
		log:  logging.Component("pool"),
	}
}

// Run sorts every partition on its own worker and returns the sorted
// sub-sequences in the order parts were given.
//
// If any worker fails, Run still waits for all the others, then returns an
// error wrapping ErrWorkerFailed and every *WorkerError. No partial result is
// returned. ctx is only checked before dispatch; in-flight sorts are not
// interrupted.
func (c *Coordinator) Run(ctx context.Context, parts []partition.Partition) ([][]int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(parts) == 0 {
		return [][]int64{}, nil
	}

	workers := len(parts)
	workQueue := make(chan SortTask, workers)
	resultChan := make(chan SortResult, workers)

	c.log.Debug("starting workers", "workers", workers)
	if m := metrics.Get(); m != nil {
		m.SetActiveWorkers(float64(workers))
		defer m.SetActiveWorkers(0)
	}

	// Workers send failures on resultChan rather than returning them: the
	// group keeps only the first error, and sequence must join every one.
	// The group is the join point for closing resultChan.
	var g errgroup.Group
	for i := 0; i < workers; i++ {
		workerID := i
		g.Go(func() error {
			c.workerLoop(workerID, workQueue, resultChan)
			return nil
		})
	}

	c.dispatch(parts, workQueue)

	go func() {
		_ = g.Wait() // always nil
		close(resultChan)
	}()

	return c.sequence(resultChan, workers)
}

// dispatch hands each worker its own copy of a partition.
func (c *Coordinator) dispatch(parts []partition.Partition, workQueue chan<- SortTask) {
	defer close(workQueue)

	for seq, p := range parts {
		workQueue <- SortTask{
			Seq:       seq,
			Partition: p,
			Values:    slices.Clone(p.Values),
		}
	}
}

// workerLoop sorts tasks until the queue is closed.
func (c *Coordinator) workerLoop(workerID int, workQueue <-chan SortTask, resultChan chan<- SortResult) {
	for task := range workQueue {
		resultChan <- c.processTask(workerID, task)
	}
}

// processTask sorts one partition. A panic inside the sort is converted
// into an error so the worker never takes the process down.
func (c *Coordinator) processTask(workerID int, task SortTask) (result SortResult) {
	log := logging.WorkerLogger(workerID).With(
		"partition", task.Partition.Index,
		"start", task.Partition.Start,
		"end", task.Partition.End,
	)

	result = SortResult{Task: task, WorkerID: workerID}

	defer func() {
		if r := recover(); r != nil {
			result.Sorted = nil
			result.Err = fmt.Errorf("%w: %v", ErrWorkerPanic, r)
			log.Error("worker panicked", "panic", r)
		}
	}()

	startTime := time.Now()
	sorted, err := c.sort(task.Values)
	elapsed := time.Since(startTime)

	if err != nil {
		log.Warn("partition sort failed", "error", err)
		result.Err = err
		return result
	}

	log.Debug("partition sorted", "len", len(sorted), "duration_ms", elapsed.Milliseconds())

	if m := metrics.Get(); m != nil {
		m.ObservePartitionSortDuration(elapsed.Seconds())
		m.ObservePartitionSize(float64(len(sorted)))
	}

	result.Sorted = sorted
	return result
}

// sequence collects every result, ordering them by submission sequence.
// It always drains resultChan so that all workers have finished before it
// returns.
func (c *Coordinator) sequence(resultChan <-chan SortResult, expected int) ([][]int64, error) {
	out := make([][]int64, expected)
	var failures []error
	received := 0

	for result := range resultChan {
		received++

		if result.Err != nil {
			failures = append(failures, &WorkerError{
				WorkerID:  result.WorkerID,
				Partition: result.Task.Partition,
				Err:       result.Err,
			})
			if m := metrics.Get(); m != nil {
				m.IncWorkerFailures()
			}
			continue
		}

		out[result.Task.Seq] = result.Sorted
	}

	if len(failures) > 0 {
		c.log.Error("parallel sort failed", "failed_partitions", len(failures), "workers", expected)
		return nil, fmt.Errorf("%w: %w", ErrWorkerFailed, errors.Join(failures...))
	}
	if received != expected {
		return nil, fmt.Errorf("%w: received %d of %d results", ErrWorkerFailed, received, expected)
	}

	return out, nil
}
