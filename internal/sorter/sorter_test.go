package sorter

import (
	"context"
	"errors"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/withObsrvr/obsrvr-radix-bench/internal/pool"
	"github.com/withObsrvr/obsrvr-radix-bench/internal/radix"
)

func randomValues(rng *rand.Rand, n int, lo, hi int64) []int64 {
	out := make([]int64, n)
	for i := range out {
		out[i] = lo + rng.Int64N(hi-lo+1)
	}
	return out
}

func TestParallel_MatchesSequentialForAllWorkerCounts(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 1))
	ctx := context.Background()

	for _, n := range []int{0, 1, 2, 7, 20, 137, 1000} {
		in := randomValues(rng, n, -1_000_000_000, 1_000_000_000)
		want := Sequential(in)

		for w := 1; w <= 9; w++ {
			got, err := Parallel(ctx, in, w)
			if err != nil {
				t.Fatalf("n=%d w=%d: Parallel failed: %v", n, w, err)
			}
			if !slices.Equal(got, want) {
				t.Fatalf("n=%d w=%d: parallel result differs from sequential", n, w)
			}
		}
	}
}

func TestParallel_ScenarioB(t *testing.T) {
	res, err := New(nil).Parallel(context.Background(), []int64{3, 3, 3}, 4)
	if err != nil {
		t.Fatalf("Parallel failed: %v", err)
	}
	if res.Partitions > 3 {
		t.Errorf("workers = %d, want <= 3", res.Partitions)
	}
	if !slices.Equal(res.Sorted, []int64{3, 3, 3}) {
		t.Errorf("sorted = %v, want [3 3 3]", res.Sorted)
	}
}

func TestParallel_ScenarioC(t *testing.T) {
	rng := rand.New(rand.NewPCG(2024, 11))
	ctx := context.Background()

	for trial := 0; trial < 100; trial++ {
		in := randomValues(rng, 20, -500, 500)

		got, err := Parallel(ctx, in, 4)
		if err != nil {
			t.Fatalf("trial %d: %v", trial, err)
		}
		if want := Sequential(in); !slices.Equal(got, want) {
			t.Fatalf("trial %d: parallel %v != sequential %v", trial, got, want)
		}
	}
}

func TestParallel_ScenarioD_InjectedFault(t *testing.T) {
	in := []int64{5, -3, 0, -3, 17, -1000000, 8, 2}
	faulty := func(values []int64) ([]int64, error) {
		if slices.Contains(values, 17) {
			return nil, errors.New("injected fault")
		}
		return radix.Sort(values), nil
	}

	res, err := New(faulty).Parallel(context.Background(), in, 4)
	if !errors.Is(err, pool.ErrWorkerFailed) {
		t.Fatalf("error = %v, want ErrWorkerFailed", err)
	}
	if res.Sorted != nil {
		t.Errorf("expected no sorted result, got %v", res.Sorted)
	}
}

func TestParallel_EmptyInput(t *testing.T) {
	res, err := New(nil).Parallel(context.Background(), nil, 4)
	if err != nil {
		t.Fatalf("Parallel failed: %v", err)
	}
	if len(res.Sorted) != 0 || res.Partitions != 0 {
		t.Errorf("Parallel(nil) = %+v, want empty", res)
	}
}

func TestParallel_DoesNotMutateInput(t *testing.T) {
	in := []int64{4, -1, 9, 0}
	orig := slices.Clone(in)

	if _, err := Parallel(context.Background(), in, 2); err != nil {
		t.Fatalf("Parallel failed: %v", err)
	}
	if !slices.Equal(in, orig) {
		t.Errorf("input mutated: %v, want %v", in, orig)
	}
}

func TestCollect(t *testing.T) {
	got := Collect(slices.Values([]int64{3, 1, 2}))
	if !slices.Equal(got, []int64{3, 1, 2}) {
		t.Errorf("Collect = %v", got)
	}

	empty := Collect(func(yield func(int64) bool) {})
	if empty == nil || len(empty) != 0 {
		t.Errorf("Collect(empty) = %#v, want non-nil empty slice", empty)
	}
}

func BenchmarkParallel(b *testing.B) {
	rng := rand.New(rand.NewPCG(9, 9))
	in := randomValues(rng, 100_000, -1_000_000, 1_000_000)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Parallel(ctx, in, 4); err != nil {
			b.Fatal(err)
		}
	}
}
