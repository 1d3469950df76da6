// Package report publishes benchmark results to the console, to blob
// storage as JSON and Parquet, and through other sinks.
package report

import (
	"encoding/json"
	"time"

	"github.com/withObsrvr/obsrvr-radix-bench/internal/bench"
)

// SchemaVersion is the version of the manifest and RunRow layouts.
const SchemaVersion = "1.1.0"

// EchoLimit is the largest dataset whose input and sorted output are
// echoed on the console.
const EchoLimit = 20

// Entry is one reported dataset run.
type Entry struct {
	RunID         string
	CorrelationID string
	Dataset       string
	Fingerprint   string
	Trial         int
	StartedAt     time.Time
	// Skipped is set for empty datasets; Record is zero then.
	Skipped bool
	Record  bench.Record

	// Input and Sorted are the unsorted values and the parallel result.
	// They are only echoed for small datasets and never serialised.
	Input  []int64
	Sorted []int64
	// SortedKey is the object the sorted output was written to, if any.
	SortedKey string
}

// Manifest is the JSON document written for each run.
type Manifest struct {
	SchemaVersion string       `json:"schema_version"`
	RunID         string       `json:"run_id"`
	CorrelationID string       `json:"correlation_id,omitempty"`
	Dataset       DatasetInfo  `json:"dataset"`
	Trial         int          `json:"trial"`
	Result        ResultInfo   `json:"result"`
	SortedOutput  string       `json:"sorted_output,omitempty"`
	Producer      ProducerInfo `json:"producer"`
	StartedAt     time.Time    `json:"started_at"`
	CreatedAt     time.Time    `json:"created_at"`
}

// DatasetInfo identifies the sorted input.
type DatasetInfo struct {
	Name        string `json:"name"`
	Fingerprint string `json:"fingerprint"`
	Values      int    `json:"values"`
}

// ResultInfo holds the measured outcome. Speedup and Efficiency are omitted
// when the parallel time was too small to measure.
type ResultInfo struct {
	RequestedWorkers int      `json:"requested_workers"`
	Workers          int      `json:"workers"`
	Partitions       int      `json:"partitions"`
	SequentialNanos  int64    `json:"sequential_ns"`
	ParallelNanos    int64    `json:"parallel_ns"`
	Match            bool     `json:"match"`
	FirstMismatch    int      `json:"first_mismatch"`
	Errors           []string `json:"errors,omitempty"`
	Speedup          *float64 `json:"speedup,omitempty"`
	Efficiency       *float64 `json:"efficiency,omitempty"`
}

// ProducerInfo describes the software that produced the report.
type ProducerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	GitSHA  string `json:"git_sha,omitempty"`
}

// MarshalJSON returns the manifest as indented JSON.
func (m *Manifest) MarshalJSON() ([]byte, error) {
	type Alias Manifest
	return json.MarshalIndent((*Alias)(m), "", "  ")
}

// NewManifest builds the manifest for an entry.
func NewManifest(e Entry, producer ProducerInfo) *Manifest {
	rec := e.Record
	res := ResultInfo{
		RequestedWorkers: rec.RequestedWorkers,
		Workers:          rec.Workers,
		Partitions:       rec.Partitions,
		SequentialNanos:  rec.Sequential.Nanoseconds(),
		ParallelNanos:    rec.Parallel.Nanoseconds(),
		Match:            rec.Match,
		FirstMismatch:    rec.FirstMismatch,
		Errors:           rec.Errors,
	}
	if rec.HasSpeedup {
		speedup, efficiency := rec.Speedup, rec.Efficiency
		res.Speedup = &speedup
		res.Efficiency = &efficiency
	}

	return &Manifest{
		SchemaVersion: SchemaVersion,
		RunID:         e.RunID,
		CorrelationID: e.CorrelationID,
		Dataset: DatasetInfo{
			Name:        e.Dataset,
			Fingerprint: e.Fingerprint,
			Values:      rec.Values,
		},
		Trial:        e.Trial,
		Result:       res,
		SortedOutput: e.SortedKey,
		Producer:     producer,
		StartedAt:    e.StartedAt.UTC(),
		CreatedAt:    time.Now().UTC(),
	}
}

// RunRow is one row of the run history Parquet table.
type RunRow struct {
	RunID            string    `parquet:"run_id"`
	Dataset          string    `parquet:"dataset"`
	Fingerprint      string    `parquet:"fingerprint"`
	Trial            int32     `parquet:"trial"`
	Values           int64     `parquet:"values"`
	RequestedWorkers int32     `parquet:"requested_workers"`
	Workers          int32     `parquet:"workers"`
	Partitions       int32     `parquet:"partitions"`
	SequentialNanos  int64     `parquet:"sequential_ns"`
	ParallelNanos    int64     `parquet:"parallel_ns"`
	Match            bool      `parquet:"match"`
	FirstMismatch    int64     `parquet:"first_mismatch"`
	HasSpeedup       bool      `parquet:"has_speedup"`
	Speedup          float64   `parquet:"speedup"`
	Efficiency       float64   `parquet:"efficiency"`
	ProducerVersion  string    `parquet:"producer_version"`
	StartedAt        time.Time `parquet:"started_at,timestamp(millisecond)"`
}

// TableName returns the canonical table name.
func (RunRow) TableName() string {
	return "bench_runs"
}

// NewRunRow builds the Parquet row for an entry.
func NewRunRow(e Entry, producer ProducerInfo) RunRow {
	rec := e.Record
	return RunRow{
		RunID:            e.RunID,
		Dataset:          e.Dataset,
		Fingerprint:      e.Fingerprint,
		Trial:            int32(e.Trial),
		Values:           int64(rec.Values),
		RequestedWorkers: int32(rec.RequestedWorkers),
		Workers:          int32(rec.Workers),
		Partitions:       int32(rec.Partitions),
		SequentialNanos:  rec.Sequential.Nanoseconds(),
		ParallelNanos:    rec.Parallel.Nanoseconds(),
		Match:            rec.Match,
		FirstMismatch:    int64(rec.FirstMismatch),
		HasSpeedup:       rec.HasSpeedup,
		Speedup:          rec.Speedup,
		Efficiency:       rec.Efficiency,
		ProducerVersion:  producer.Version,
		StartedAt:        e.StartedAt.UTC(),
	}
}
