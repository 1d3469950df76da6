// Package suite runs the benchmark over a list of datasets, reporting each
// run and checkpointing completed datasets.
package suite

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/withObsrvr/obsrvr-radix-bench/internal/bench"
	"github.com/withObsrvr/obsrvr-radix-bench/internal/checkpoint"
	"github.com/withObsrvr/obsrvr-radix-bench/internal/dataset"
	"github.com/withObsrvr/obsrvr-radix-bench/internal/logging"
	"github.com/withObsrvr/obsrvr-radix-bench/internal/pool"
	"github.com/withObsrvr/obsrvr-radix-bench/internal/report"
)

// Version information (set via ldflags)
var (
	Version = "v0.1.0"
	GitSHA  = "unknown"
)

// Producer describes this build for reports.
func Producer() report.ProducerInfo {
	return report.ProducerInfo{Name: "radix-bench", Version: Version, GitSHA: GitSHA}
}

// ErrDatasetsFailed is returned when at least one dataset could not be
// loaded or sorted. The remaining datasets still run.
var ErrDatasetsFailed = errors.New("one or more datasets failed")

// Options configures a suite run.
type Options struct {
	Datasets      []string
	Workers       int
	Trials        int
	MinMeasurable time.Duration
	// SortFunc replaces the per-partition sort; nil uses pool.RadixSort.
	SortFunc pool.SortFunc
	// SortedWriter, when set, receives each dataset's sorted output once
	// under SortedPrefix+name.
	SortedWriter SortedWriter
}

// SortedPrefix is prepended to dataset names when writing sorted output.
const SortedPrefix = "sorted/"

// SortedWriter persists a sorted sequence and returns the key it was
// written to. dataset.Writer satisfies it.
type SortedWriter interface {
	Write(ctx context.Context, name string, values []int64) (string, error)
}

// Summary counts what a suite run did.
type Summary struct {
	Datasets   int
	Runs       int
	Skipped    int // empty datasets
	Resumed    int // completed in an earlier run
	Mismatches int
	Failed     []string
}

// Runner executes the suite.
type Runner struct {
	opts       Options
	src        dataset.Source
	harness    *bench.Harness
	sink       report.Sink
	checkpoint checkpoint.Manager
	log        *slog.Logger
}

// New creates a runner. cp may be nil to disable checkpointing.
func New(opts Options, src dataset.Source, sink report.Sink, cp checkpoint.Manager) *Runner {
	if opts.Trials < 1 {
		opts.Trials = 1
	}
	if cp == nil {
		cp, _ = checkpoint.NewManager(checkpoint.Config{Enabled: false})
	}
	return &Runner{
		opts:       opts,
		src:        src,
		harness:    bench.NewHarness(opts.SortFunc, opts.MinMeasurable),
		sink:       sink,
		checkpoint: cp,
		log:        logging.Component("suite"),
	}
}

// SuiteID identifies a suite configuration. Runs with the same datasets,
// worker count and trial count share checkpoints.
func (r *Runner) SuiteID() string {
	key := fmt.Sprintf("%s|w=%d|t=%d", strings.Join(r.opts.Datasets, ","), r.opts.Workers, r.opts.Trials)
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(key)).String()
}

// Run benchmarks every dataset in order. Cancellation is honoured between
// datasets and trials; a run in progress completes first.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	var sum Summary
	suiteID := r.SuiteID()

	cp, err := r.checkpoint.Load(ctx, suiteID)
	if err != nil && !errors.Is(err, checkpoint.ErrNoCheckpoint) {
		return sum, fmt.Errorf("load checkpoint: %w", err)
	}
	if cp == nil {
		cp = &checkpoint.Checkpoint{SuiteID: suiteID}
	} else {
		r.log.Info("resuming from checkpoint", "suite_id", suiteID, "completed", len(cp.Completed))
	}

	r.log.Info("starting suite",
		"suite_id", suiteID,
		"datasets", len(r.opts.Datasets),
		"workers", r.opts.Workers,
		"trials", r.opts.Trials,
		"source", r.src.Type(),
	)
	startTime := time.Now()

	for _, name := range r.opts.Datasets {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		sum.Datasets++

		runIDs, err := r.runDataset(ctx, name, cp, &sum)
		if err != nil {
			if ctx.Err() != nil {
				return sum, ctx.Err()
			}
			r.log.Error("dataset failed", "dataset", name, "error", err)
			sum.Failed = append(sum.Failed, name)
			continue
		}
		if runIDs == nil {
			continue
		}

		if err := r.checkpoint.Save(ctx, cp); err != nil {
			r.log.Warn("failed to save checkpoint", "dataset", name, "error", err)
		}
	}

	r.log.Info("suite complete",
		"datasets", sum.Datasets,
		"runs", sum.Runs,
		"skipped", sum.Skipped,
		"resumed", sum.Resumed,
		"mismatches", sum.Mismatches,
		"failed", len(sum.Failed),
		"duration", time.Since(startTime).String(),
	)

	if len(sum.Failed) > 0 {
		return sum, fmt.Errorf("%w: %s", ErrDatasetsFailed, strings.Join(sum.Failed, ", "))
	}
	return sum, nil
}

// runDataset loads and benchmarks one dataset. It returns the run ids that
// were reported, or nil when the dataset was already complete.
func (r *Runner) runDataset(ctx context.Context, name string, cp *checkpoint.Checkpoint, sum *Summary) ([]string, error) {
	values, err := r.src.Load(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("load dataset: %w", err)
	}

	fingerprint := dataset.Fingerprint(values)
	if cp.Done(name, fingerprint) {
		r.log.Info("dataset already completed, skipping", "dataset", name, "fingerprint", fingerprint)
		sum.Resumed++
		return nil, nil
	}

	var runIDs []string

	if len(values) == 0 {
		runID := uuid.New().String()
		r.report(ctx, report.Entry{
			RunID:       runID,
			Dataset:     name,
			Fingerprint: fingerprint,
			StartedAt:   time.Now(),
			Skipped:     true,
		})
		sum.Skipped++
		runIDs = append(runIDs, runID)
	}

	for trial := 1; len(values) > 0 && trial <= r.opts.Trials; trial++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		runID := uuid.New().String()
		correlationID := logging.GenerateCorrelationID()
		runCtx := logging.WithCorrelationID(ctx, correlationID)
		startedAt := time.Now()

		out, err := r.harness.Run(runCtx, values, r.opts.Workers)
		if err != nil {
			return nil, fmt.Errorf("trial %d: %w", trial, err)
		}
		bench.Observe(name, out.Record)

		if !out.Record.Match {
			sum.Mismatches++
		}
		sum.Runs++

		var sortedKey string
		if trial == 1 && r.opts.SortedWriter != nil {
			sortedKey, err = r.opts.SortedWriter.Write(runCtx, SortedPrefix+name, out.Parallel)
			if err != nil {
				return nil, fmt.Errorf("write sorted output: %w", err)
			}
			r.log.Info("wrote sorted output", "dataset", name, "key", sortedKey)
		}

		r.report(runCtx, report.Entry{
			RunID:         runID,
			CorrelationID: correlationID,
			Dataset:       name,
			Fingerprint:   fingerprint,
			Trial:         trial,
			StartedAt:     startedAt,
			Record:        out.Record,
			Input:         values,
			Sorted:        out.Parallel,
			SortedKey:     sortedKey,
		})
		runIDs = append(runIDs, runID)
	}

	cp.MarkDone(checkpoint.CompletedDataset{
		Name:        name,
		Fingerprint: fingerprint,
		RunIDs:      runIDs,
		CompletedAt: time.Now().UTC(),
	})
	return runIDs, nil
}

// report delivers an entry. Sink failures are logged and do not stop the
// suite.
func (r *Runner) report(ctx context.Context, e report.Entry) {
	if r.sink == nil {
		return
	}
	if err := r.sink.Report(ctx, e); err != nil {
		r.log.Warn("failed to report run", "dataset", e.Dataset, "run_id", e.RunID, "error", err)
	}
}
