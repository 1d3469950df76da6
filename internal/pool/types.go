package pool

import (
	"errors"
	"fmt"

	"github.com/withObsrvr/obsrvr-radix-bench/internal/partition"
)

var (
	// ErrWorkerFailed is returned by Coordinator.Run when any worker fails.
	ErrWorkerFailed = errors.New("parallel sort failed")

	// ErrWorkerPanic marks a worker failure caused by a recovered panic.
	ErrWorkerPanic = errors.New("worker panicked")
)

// SortFunc sorts one partition. It owns its input and must return a slice
// the caller can take ownership of.
type SortFunc func(values []int64) ([]int64, error)

// SortTask is sent to a worker. Values is a private copy of the partition.
// Seq is the position of the partition in the submitted list.
type SortTask struct {
	Seq       int
	Partition partition.Partition
	Values    []int64
}

// SortResult is returned from a worker to the sequencer.
type SortResult struct {
	Task     SortTask
	WorkerID int
	Sorted   []int64
	Err      error
}

// WorkerError describes a single failed partition.
type WorkerError struct {
	WorkerID  int
	Partition partition.Partition
	Err       error
}

func (e *WorkerError) Error() string {
	return fmt.Sprintf("worker %d: %s: %v", e.WorkerID, e.Partition, e.Err)
}

func (e *WorkerError) Unwrap() error {
	return e.Err
}
