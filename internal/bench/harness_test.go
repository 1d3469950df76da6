package bench

import (
	"context"
	"errors"
	"math/rand/v2"
	"slices"
	"testing"
	"time"

	"github.com/withObsrvr/obsrvr-radix-bench/internal/pool"
	"github.com/withObsrvr/obsrvr-radix-bench/internal/radix"
)

func TestHarnessRun_Valid(t *testing.T) {
	in := []int64{5, -3, 0, -3, 17, -1000000}
	h := NewHarness(nil, 0)

	out, err := h.Run(context.Background(), in, 4)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	want := []int64{-1000000, -3, -3, 0, 5, 17}
	if !slices.Equal(out.Sequential, want) {
		t.Errorf("sequential = %v, want %v", out.Sequential, want)
	}
	if !slices.Equal(out.Parallel, want) {
		t.Errorf("parallel = %v, want %v", out.Parallel, want)
	}

	rec := out.Record
	if !rec.Match {
		t.Errorf("Match = false, errors: %v", rec.Errors)
	}
	if rec.FirstMismatch != -1 {
		t.Errorf("FirstMismatch = %d, want -1", rec.FirstMismatch)
	}
	if rec.Values != 6 || rec.RequestedWorkers != 4 {
		t.Errorf("unexpected record: %+v", rec)
	}
	if rec.Workers != 4 {
		t.Errorf("Workers = %d, want 4", rec.Workers)
	}
	// ceil(6/4) = 2 -> 3 partitions
	if rec.Partitions != 3 {
		t.Errorf("Partitions = %d, want 3", rec.Partitions)
	}
}

func TestHarnessRun_EfficiencyUsesEffectiveWorkers(t *testing.T) {
	h := NewHarness(nil, time.Nanosecond)

	out, err := h.Run(context.Background(), []int64{5, 4, 3, 2, 1}, 4)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	rec := out.Record
	// max(1, min(4, 5)) = 4 even though ceil(5/4) = 2 leaves only 3 partitions.
	if rec.Workers != 4 {
		t.Errorf("Workers = %d, want 4", rec.Workers)
	}
	if rec.Partitions != 3 {
		t.Errorf("Partitions = %d, want 3", rec.Partitions)
	}
	if rec.HasSpeedup && rec.Efficiency != rec.Speedup/4 {
		t.Errorf("Efficiency = %v, want Speedup/4 = %v", rec.Efficiency, rec.Speedup/4)
	}

	s, e, ok := Speedup(6*time.Second, 2*time.Second, rec.Workers, time.Microsecond)
	if !ok || s != 3 || e != 0.75 {
		t.Errorf("Speedup = (%v, %v, %v), want (3, 0.75, true)", s, e, ok)
	}
}

func TestHarnessRun_RandomTrialsAgree(t *testing.T) {
	rng := rand.New(rand.NewPCG(5, 6))
	h := NewHarness(nil, 0)

	for trial := 0; trial < 100; trial++ {
		in := make([]int64, 20)
		for i := range in {
			in[i] = rng.Int64N(1001) - 500
		}

		out, err := h.Run(context.Background(), in, 4)
		if err != nil {
			t.Fatalf("trial %d: %v", trial, err)
		}
		if !out.Record.Match {
			t.Fatalf("trial %d: verdict false: %v", trial, out.Record.Errors)
		}
	}
}

func TestHarnessRun_MismatchIsReportedNotRaised(t *testing.T) {
	// Drops the last value of every partition.
	lossy := func(values []int64) ([]int64, error) {
		sorted := radix.Sort(values)
		return sorted[:len(sorted)-1], nil
	}

	h := NewHarness(lossy, 0)
	out, err := h.Run(context.Background(), []int64{4, 3, 2, 1}, 2)
	if err != nil {
		t.Fatalf("mismatch should not be an error: %v", err)
	}
	if out.Record.Match {
		t.Error("Match should be false")
	}
	if len(out.Record.Errors) == 0 {
		t.Error("expected mismatch description")
	}
	if out.Parallel == nil || out.Sequential == nil {
		t.Error("both outputs should be returned on mismatch")
	}
}

func TestHarnessRun_WorkerFailureIsError(t *testing.T) {
	faulty := func(values []int64) ([]int64, error) {
		return nil, errors.New("injected fault")
	}

	h := NewHarness(faulty, 0)
	_, err := h.Run(context.Background(), []int64{1, 2, 3}, 2)
	if !errors.Is(err, pool.ErrWorkerFailed) {
		t.Errorf("error = %v, want ErrWorkerFailed", err)
	}
}

func TestHarnessRun_UnmeasurableParallelTime(t *testing.T) {
	h := NewHarness(nil, time.Hour)

	out, err := h.Run(context.Background(), []int64{2, 1}, 2)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if out.Record.HasSpeedup {
		t.Errorf("speedup should be undefined, got %v", out.Record.Speedup)
	}
	if !out.Record.Match {
		t.Error("sort result should remain valid")
	}
}

func TestHarnessRun_EmptyInput(t *testing.T) {
	out, err := NewHarness(nil, 0).Run(context.Background(), nil, 4)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !out.Record.Match || out.Record.Values != 0 || out.Record.Partitions != 0 {
		t.Errorf("unexpected record: %+v", out.Record)
	}
	if out.Record.HasSpeedup {
		t.Error("speedup should be undefined for empty input")
	}
}

func TestSpeedup(t *testing.T) {
	s, e, ok := Speedup(4*time.Second, time.Second, 4, time.Microsecond)
	if !ok || s != 4 || e != 1 {
		t.Errorf("Speedup = (%v, %v, %v), want (4, 1, true)", s, e, ok)
	}

	if _, _, ok := Speedup(time.Second, 0, 4, time.Microsecond); ok {
		t.Error("zero parallel time should be undefined")
	}
	if _, _, ok := Speedup(time.Second, time.Nanosecond, 4, time.Microsecond); ok {
		t.Error("sub-threshold parallel time should be undefined")
	}
	if _, _, ok := Speedup(time.Second, time.Second, 0, time.Microsecond); ok {
		t.Error("zero workers should be undefined")
	}
}

func TestVerify(t *testing.T) {
	tests := []struct {
		name      string
		want, got []int64
		match     bool
		first     int
	}{
		{"equal", []int64{1, 2}, []int64{1, 2}, true, -1},
		{"both empty", nil, []int64{}, true, -1},
		{"value differs", []int64{1, 2, 3}, []int64{1, 5, 3}, false, 1},
		{"shorter", []int64{1, 2, 3}, []int64{1, 2}, false, 2},
		{"longer", []int64{1}, []int64{1, 1}, false, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Verify(tt.want, tt.got)
			if v.Match != tt.match {
				t.Errorf("Match = %v, want %v", v.Match, tt.match)
			}
			if v.FirstMismatch != tt.first {
				t.Errorf("FirstMismatch = %d, want %d", v.FirstMismatch, tt.first)
			}
			if !v.Match && len(v.Errors) == 0 {
				t.Error("expected errors for mismatch")
			}
		})
	}
}
