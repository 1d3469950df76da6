// Package bench times the sequential and parallel sort paths on the same
// input, checks that they agree, and derives speedup and efficiency.
package bench

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/withObsrvr/obsrvr-radix-bench/internal/logging"
	"github.com/withObsrvr/obsrvr-radix-bench/internal/metrics"
	"github.com/withObsrvr/obsrvr-radix-bench/internal/partition"
	"github.com/withObsrvr/obsrvr-radix-bench/internal/pool"
	"github.com/withObsrvr/obsrvr-radix-bench/internal/sorter"
)

// DefaultMinMeasurable is the parallel duration below which speedup is
// reported as undefined.
const DefaultMinMeasurable = time.Microsecond

// Record is the benchmark result of one dataset run.
type Record struct {
	Values           int
	RequestedWorkers int
	Workers          int // max(1, min(requested, values)); efficiency divisor
	Partitions       int // partitions actually dispatched, at most Workers
	Sequential       time.Duration
	Parallel         time.Duration
	Match            bool
	FirstMismatch    int
	Errors           []string

	// Speedup and Efficiency are only meaningful when HasSpeedup is true.
	Speedup    float64
	Efficiency float64
	HasSpeedup bool
}

// Outcome carries the record together with both sorted outputs.
type Outcome struct {
	Record     Record
	Sequential []int64
	Parallel   []int64
}

// Harness runs both sort paths.
type Harness struct {
	sorter        *sorter.Sorter
	minMeasurable time.Duration
	log           *slog.Logger
}

// NewHarness creates a harness. A nil fn sorts partitions with radix.Sort;
// minMeasurable <= 0 uses DefaultMinMeasurable.
func NewHarness(fn pool.SortFunc, minMeasurable time.Duration) *Harness {
	if minMeasurable <= 0 {
		minMeasurable = DefaultMinMeasurable
	}
	return &Harness{
		sorter:        sorter.New(fn),
		minMeasurable: minMeasurable,
		log:           logging.Component("bench"),
	}
}

// Run sorts values sequentially and in parallel with the requested worker
// count. A worker failure is returned as an error; a disagreement between
// the two outputs is reported through Record.Match.
func (h *Harness) Run(ctx context.Context, values []int64, workers int) (Outcome, error) {
	startTime := time.Now()
	seqSorted := sorter.Sequential(values)
	seqElapsed := time.Since(startTime)

	startTime = time.Now()
	par, err := h.sorter.Parallel(ctx, values, workers)
	parElapsed := time.Since(startTime)
	if err != nil {
		return Outcome{}, fmt.Errorf("parallel sort: %w", err)
	}

	verdict := Verify(seqSorted, par.Sorted)

	rec := Record{
		Values:           len(values),
		RequestedWorkers: workers,
		Workers:          partition.EffectiveWorkers(len(values), workers),
		Partitions:       par.Partitions,
		Sequential:       seqElapsed,
		Parallel:         parElapsed,
		Match:            verdict.Match,
		FirstMismatch:    verdict.FirstMismatch,
		Errors:           verdict.Errors,
	}
	if rec.Partitions > 0 {
		rec.Speedup, rec.Efficiency, rec.HasSpeedup = Speedup(seqElapsed, parElapsed, rec.Workers, h.minMeasurable)
	}

	if !verdict.Match {
		h.log.Warn("sequential and parallel results differ",
			"first_mismatch", verdict.FirstMismatch,
			"errors", verdict.Errors,
		)
	}

	return Outcome{
		Record:     rec,
		Sequential: seqSorted,
		Parallel:   par.Sorted,
	}, nil
}

// Speedup returns seq/par and speedup/workers. ok is false when par is
// below minMeasurable or workers is zero.
func Speedup(seq, par time.Duration, workers int, minMeasurable time.Duration) (speedup, efficiency float64, ok bool) {
	if par <= 0 || par < minMeasurable || workers <= 0 {
		return 0, 0, false
	}
	speedup = seq.Seconds() / par.Seconds()
	efficiency = speedup / float64(workers)
	return speedup, efficiency, true
}

// Observe publishes a record to the metrics registry, if one is configured.
func Observe(dataset string, rec Record) {
	m := metrics.Get()
	if m == nil {
		return
	}
	m.SetDatasetSize(dataset, float64(rec.Values))
	if rec.HasSpeedup {
		m.SetSpeedup(dataset, rec.Speedup, rec.Efficiency)
	}
	if !rec.Match {
		m.IncVerdictMismatches(dataset)
	}
}
