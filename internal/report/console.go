package report

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/withObsrvr/obsrvr-radix-bench/internal/dataset"
	"github.com/withObsrvr/obsrvr-radix-bench/internal/logging"
)

// ConsoleSink prints a human readable block (format "text") or one JSON
// manifest per line (format "json") and logs a structured summary.
type ConsoleSink struct {
	mu       sync.Mutex
	out      io.Writer
	format   string
	producer ProducerInfo
	log      *slog.Logger
}

// NewConsoleSink creates a console sink writing to out.
func NewConsoleSink(out io.Writer, format string, producer ProducerInfo) *ConsoleSink {
	return &ConsoleSink{
		out:      out,
		format:   format,
		producer: producer,
		log:      logging.Component("report"),
	}
}

// Name implements Sink.
func (s *ConsoleSink) Name() string { return "console" }

// Report implements Sink.
func (s *ConsoleSink) Report(ctx context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	logger := logging.RunLogger(ctx, e.RunID, e.Dataset, e.Record.Workers)
	if e.Skipped {
		logger.Info("dataset empty, skipped")
	} else {
		logger.Info("run complete",
			"values", e.Record.Values,
			"trial", e.Trial,
			"sequential", e.Record.Sequential,
			"parallel", e.Record.Parallel,
			"match", e.Record.Match,
			"has_speedup", e.Record.HasSpeedup,
			"speedup", e.Record.Speedup,
			"efficiency", e.Record.Efficiency,
		)
	}

	if s.format == "json" {
		if e.Skipped {
			return nil
		}
		data, err := json.Marshal(NewManifest(e, s.producer))
		if err != nil {
			return fmt.Errorf("marshal manifest: %w", err)
		}
		// json.Marshal compacts the indented MarshalJSON output.
		_, err = s.out.Write(append(data, '\n'))
		return err
	}

	return writeBlock(s.out, e)
}

// Close implements Sink.
func (s *ConsoleSink) Close() error { return nil }

func writeBlock(w io.Writer, e Entry) error {
	rec := e.Record
	var err error
	printf := func(format string, args ...any) {
		if err == nil {
			_, err = fmt.Fprintf(w, format, args...)
		}
	}

	printf("\n===== %s =====\n", e.Dataset)
	printf("Total numbers read: %d\n", rec.Values)
	if e.Skipped {
		printf("Dataset is empty. Skipping.\n")
		return err
	}
	if e.Trial > 0 {
		printf("Trial: %d\n", e.Trial)
	}

	printf("Sequential radix sort time:      %.6f seconds\n", rec.Sequential.Seconds())
	printf("Parallel radix sort time:        %.6f seconds\n", rec.Parallel.Seconds())
	printf("Workers used: %d\n", rec.Workers)
	if e.SortedKey != "" {
		printf("Sorted output written to: %s\n", e.SortedKey)
	}

	if len(e.Input) <= EchoLimit && e.Sorted != nil {
		printf("\nUnsorted Input:\n")
		if err == nil {
			err = dataset.Format(w, e.Input)
		}
		printf("\n\nSorted Output:\n")
		if err == nil {
			err = dataset.Format(w, e.Sorted)
		}
		printf("\n\n")
	}

	if rec.Match {
		printf("Both versions produce the SAME result.\n")
	} else {
		printf("WARNING: results are DIFFERENT between sequential and parallel versions (first mismatch at index %d).\n",
			rec.FirstMismatch)
	}

	if rec.HasSpeedup {
		printf("Speedup  (T_seq / T_par):        %.3f\n", rec.Speedup)
		printf("Efficiency (speedup / p):        %.3f\n", rec.Efficiency)
	} else {
		printf("Parallel time too small to measure; cannot compute speedup.\n")
	}
	return err
}
