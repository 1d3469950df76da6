package suite

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"

	"github.com/withObsrvr/obsrvr-radix-bench/internal/checkpoint"
	"github.com/withObsrvr/obsrvr-radix-bench/internal/dataset"
	"github.com/withObsrvr/obsrvr-radix-bench/internal/pool"
	"github.com/withObsrvr/obsrvr-radix-bench/internal/report"
	"github.com/withObsrvr/obsrvr-radix-bench/internal/storage"
)

type mapSource struct {
	data  map[string][]int64
	loads []string
}

func (s *mapSource) Load(_ context.Context, name string) ([]int64, error) {
	s.loads = append(s.loads, name)
	v, ok := s.data[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", dataset.ErrNotFound, name)
	}
	return append([]int64(nil), v...), nil
}

func (s *mapSource) Type() string { return "map" }
func (s *mapSource) Close() error { return nil }

type recordingSink struct {
	mu      sync.Mutex
	entries []report.Entry
}

func (s *recordingSink) Report(_ context.Context, e report.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
	return nil
}

func (s *recordingSink) Name() string { return "recording" }
func (s *recordingSink) Close() error { return nil }

func newSource() *mapSource {
	return &mapSource{data: map[string][]int64{
		"a":     {5, -3, 0, -3, 17, -1000000},
		"b":     {9, 8, 7, 6, 5, 4, 3, 2, 1, 0},
		"empty": {},
	}}
}

func TestRun_ReportsEveryTrial(t *testing.T) {
	src := newSource()
	sink := &recordingSink{}
	r := New(Options{Datasets: []string{"a", "b"}, Workers: 4, Trials: 2}, src, sink, nil)

	sum, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if sum.Datasets != 2 || sum.Runs != 4 || sum.Mismatches != 0 {
		t.Errorf("unexpected summary %+v", sum)
	}
	if len(sink.entries) != 4 {
		t.Fatalf("entries = %d, want 4", len(sink.entries))
	}

	seen := make(map[string]bool)
	for i, e := range sink.entries {
		if !e.Record.Match {
			t.Errorf("entry %d should match: %v", i, e.Record.Errors)
		}
		if e.RunID == "" || seen[e.RunID] {
			t.Errorf("entry %d has empty or duplicate run id %q", i, e.RunID)
		}
		seen[e.RunID] = true
		if e.CorrelationID == "" {
			t.Errorf("entry %d has no correlation id", i)
		}
		if e.Fingerprint == "" {
			t.Errorf("entry %d has no fingerprint", i)
		}
		if want := i%2 + 1; e.Trial != want {
			t.Errorf("entry %d trial = %d, want %d", i, e.Trial, want)
		}
	}
	if sink.entries[0].Dataset != "a" || sink.entries[2].Dataset != "b" {
		t.Error("datasets should be reported in order")
	}
}

func TestRun_SkipsEmpty(t *testing.T) {
	sink := &recordingSink{}
	r := New(Options{Datasets: []string{"empty", "a"}, Workers: 2, Trials: 3}, newSource(), sink, nil)

	sum, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if sum.Skipped != 1 || sum.Runs != 3 {
		t.Errorf("unexpected summary %+v", sum)
	}
	if len(sink.entries) != 4 {
		t.Fatalf("entries = %d, want 4", len(sink.entries))
	}
	if !sink.entries[0].Skipped || sink.entries[0].Dataset != "empty" {
		t.Errorf("first entry should be the skipped empty dataset: %+v", sink.entries[0])
	}
}

func TestRun_ResumesFromCheckpoint(t *testing.T) {
	dir := t.TempDir()
	cp, err := checkpoint.NewManager(checkpoint.Config{Enabled: true, Dir: dir})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	opts := Options{Datasets: []string{"a", "b"}, Workers: 2, Trials: 1}

	src := newSource()
	if _, err := New(opts, src, &recordingSink{}, cp).Run(context.Background()); err != nil {
		t.Fatalf("first Run failed: %v", err)
	}

	sink := &recordingSink{}
	sum, err := New(opts, src, sink, cp).Run(context.Background())
	if err != nil {
		t.Fatalf("second Run failed: %v", err)
	}
	if sum.Resumed != 2 || len(sink.entries) != 0 {
		t.Errorf("second run should resume everything: %+v, %d entries", sum, len(sink.entries))
	}

	// Changed content invalidates the checkpoint for that dataset only.
	src.data["b"] = []int64{1, 2, 3}
	sink = &recordingSink{}
	sum, err = New(opts, src, sink, cp).Run(context.Background())
	if err != nil {
		t.Fatalf("third Run failed: %v", err)
	}
	if sum.Resumed != 1 || len(sink.entries) != 1 || sink.entries[0].Dataset != "b" {
		t.Errorf("only b should rerun: %+v, %+v", sum, sink.entries)
	}
}

func TestRun_SuiteIDDependsOnOptions(t *testing.T) {
	a := New(Options{Datasets: []string{"a"}, Workers: 2, Trials: 1}, newSource(), nil, nil)
	b := New(Options{Datasets: []string{"a"}, Workers: 4, Trials: 1}, newSource(), nil, nil)
	c := New(Options{Datasets: []string{"a"}, Workers: 2, Trials: 1}, newSource(), nil, nil)

	if a.SuiteID() == b.SuiteID() {
		t.Error("different worker counts should give different suite ids")
	}
	if a.SuiteID() != c.SuiteID() {
		t.Error("same options should give the same suite id")
	}
}

func TestRun_WorkerFailureContinues(t *testing.T) {
	failing := func(values []int64) ([]int64, error) {
		return nil, errors.New("boom")
	}
	sink := &recordingSink{}
	r := New(Options{Datasets: []string{"a", "missing", "b"}, Workers: 2, Trials: 1, SortFunc: failing}, newSource(), sink, nil)

	sum, err := r.Run(context.Background())
	if !errors.Is(err, ErrDatasetsFailed) {
		t.Fatalf("Run error = %v, want ErrDatasetsFailed", err)
	}
	if len(sum.Failed) != 3 {
		t.Errorf("Failed = %v, want all three datasets", sum.Failed)
	}
	if len(sink.entries) != 0 {
		t.Errorf("failed runs should not be reported, got %d", len(sink.entries))
	}
}

func TestRun_MissingDataset(t *testing.T) {
	sink := &recordingSink{}
	r := New(Options{Datasets: []string{"missing", "a"}, Workers: 2, Trials: 1, SortFunc: pool.RadixSort}, newSource(), sink, nil)

	sum, err := r.Run(context.Background())
	if !errors.Is(err, ErrDatasetsFailed) {
		t.Fatalf("Run error = %v, want ErrDatasetsFailed", err)
	}
	if len(sum.Failed) != 1 || sum.Failed[0] != "missing" {
		t.Errorf("Failed = %v, want [missing]", sum.Failed)
	}
	if len(sink.entries) != 1 || sink.entries[0].Dataset != "a" {
		t.Errorf("a should still run: %+v", sink.entries)
	}
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := newSource()
	_, err := New(Options{Datasets: []string{"a"}, Workers: 2, Trials: 1}, src, &recordingSink{}, nil).Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run error = %v, want context.Canceled", err)
	}
	if len(src.loads) != 0 {
		t.Error("no dataset should load after cancellation")
	}
}

func TestRun_WritesSortedOutput(t *testing.T) {
	ctx := context.Background()
	store, err := storage.Open(ctx, "mem://", "out/")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer store.Close()

	w, err := dataset.NewWriter(store, false)
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}
	defer w.Close()

	sink := &recordingSink{}
	r := New(Options{Datasets: []string{"a"}, Workers: 4, Trials: 2, SortedWriter: w}, newSource(), sink, nil)
	if _, err := r.Run(ctx); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	const key = "out/sorted/a.txt"
	data, err := store.ReadAll(ctx, key)
	if err != nil {
		t.Fatalf("ReadAll %s failed: %v", key, err)
	}
	got, err := dataset.Parse(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	want := []int64{-1000000, -3, -3, 0, 5, 17}
	if !slices.Equal(got, want) {
		t.Errorf("sorted output = %v, want %v", got, want)
	}
	if !slices.IsSorted(got) {
		t.Error("sorted output is not ascending")
	}

	if len(sink.entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(sink.entries))
	}
	first, second := sink.entries[0], sink.entries[1]
	if first.SortedKey != key {
		t.Errorf("first trial SortedKey = %q, want %q", first.SortedKey, key)
	}
	if second.SortedKey != "" {
		t.Errorf("sorted output should be written once, got key %q on trial 2", second.SortedKey)
	}
	if !slices.Equal(first.Sorted, want) || len(first.Input) != len(want) {
		t.Errorf("entry should carry input and sorted output: %+v", first)
	}
}

type failingWriter struct{}

func (failingWriter) Write(context.Context, string, []int64) (string, error) {
	return "", errors.New("bucket unavailable")
}

func TestRun_SortedWriteFailureFailsDataset(t *testing.T) {
	sink := &recordingSink{}
	r := New(Options{Datasets: []string{"a", "b"}, Workers: 2, Trials: 1, SortedWriter: failingWriter{}}, newSource(), sink, nil)

	sum, err := r.Run(context.Background())
	if !errors.Is(err, ErrDatasetsFailed) {
		t.Fatalf("Run error = %v, want ErrDatasetsFailed", err)
	}
	if len(sum.Failed) != 2 {
		t.Errorf("Failed = %v, want both datasets", sum.Failed)
	}
	if len(sink.entries) != 0 {
		t.Errorf("no entry should be reported for a failed write, got %d", len(sink.entries))
	}
}
