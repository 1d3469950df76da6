// Package catalog records benchmark runs in a PostgreSQL catalog.
package catalog

import (
	"context"
	"time"

	"github.com/withObsrvr/obsrvr-radix-bench/internal/report"
)

type Config struct {
	PostgresDSN string
	Namespace   string
}

// Writer persists benchmark runs.
type Writer interface {
	RecordRun(ctx context.Context, rec RunRecord) error
	Close() error
}

// RunRecord is one catalog row.
type RunRecord struct {
	RunID            string
	CorrelationID    string
	Dataset          string
	Fingerprint      string
	Values           int
	Trial            int
	RequestedWorkers int
	Workers          int
	Partitions       int
	Sequential       time.Duration
	Parallel         time.Duration
	Match            bool
	FirstMismatch    int
	// Speedup and Efficiency are nil when not measurable.
	Speedup         *float64
	Efficiency      *float64
	ProducerVersion string
	StartedAt       time.Time
}

// NewRunRecord builds a catalog record from a report entry.
func NewRunRecord(e report.Entry, producerVersion string) RunRecord {
	rec := e.Record
	r := RunRecord{
		RunID:            e.RunID,
		CorrelationID:    e.CorrelationID,
		Dataset:          e.Dataset,
		Fingerprint:      e.Fingerprint,
		Values:           rec.Values,
		Trial:            e.Trial,
		RequestedWorkers: rec.RequestedWorkers,
		Workers:          rec.Workers,
		Partitions:       rec.Partitions,
		Sequential:       rec.Sequential,
		Parallel:         rec.Parallel,
		Match:            rec.Match,
		FirstMismatch:    rec.FirstMismatch,
		ProducerVersion:  producerVersion,
		StartedAt:        e.StartedAt,
	}
	if rec.HasSpeedup {
		speedup, efficiency := rec.Speedup, rec.Efficiency
		r.Speedup = &speedup
		r.Efficiency = &efficiency
	}
	return r
}

// NewWriter returns a PostgreSQL writer when a DSN is configured and a
// no-op writer otherwise.
func NewWriter(cfg Config) (Writer, error) {
	if cfg.PostgresDSN == "" {
		return noopWriter{}, nil
	}
	return NewPostgresWriter(cfg)
}

type noopWriter struct{}

func (noopWriter) RecordRun(_ context.Context, _ RunRecord) error { return nil }
func (noopWriter) Close() error                                   { return nil }

// Sink adapts a Writer to report.Sink.
type Sink struct {
	w               Writer
	producerVersion string
}

// NewSink wraps w. The sink owns w.
func NewSink(w Writer, producerVersion string) *Sink {
	return &Sink{w: w, producerVersion: producerVersion}
}

// Name implements report.Sink.
func (s *Sink) Name() string { return "catalog" }

// Report implements report.Sink. Skipped datasets are not recorded.
func (s *Sink) Report(ctx context.Context, e report.Entry) error {
	if e.Skipped {
		return nil
	}
	return s.w.RecordRun(ctx, NewRunRecord(e, s.producerVersion))
}

// Close implements report.Sink.
func (s *Sink) Close() error { return s.w.Close() }
