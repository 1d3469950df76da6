package radix

import (
	"math"
	"slices"
)

// maxPlace is the largest power of ten representable as int64.
const maxPlace = int64(1_000_000_000_000_000_000)

// SortNonNegative returns values sorted ascending. All values must be >= 0.
func SortNonNegative(values []int64) []int64 {
	if len(values) == 0 {
		return []int64{}
	}

	out := slices.Clone(values)
	maxVal := slices.Max(out)

	for exp := int64(1); maxVal/exp > 0; exp *= 10 {
		out = SortByDigit(out, exp)
		if exp == maxPlace {
			break
		}
	}

	return out
}

// Sort returns values sorted ascending. Within each sign group equal values
// keep their input order.
func Sort(values []int64) []int64 {
	if len(values) == 0 {
		return []int64{}
	}

	var (
		magnitudes   []int64
		nonNegatives []int64
		minInts      int // math.MinInt64 has no positive counterpart
	)
	for _, v := range values {
		switch {
		case v == math.MinInt64:
			minInts++
		case v < 0:
			magnitudes = append(magnitudes, -v)
		default:
			nonNegatives = append(nonNegatives, v)
		}
	}

	sortedMag := SortNonNegative(magnitudes)
	sortedPos := SortNonNegative(nonNegatives)

	out := make([]int64, 0, len(values))
	for range minInts {
		out = append(out, math.MinInt64)
	}
	// Largest magnitude first: -1000000 precedes -3.
	for i := len(sortedMag) - 1; i >= 0; i-- {
		out = append(out, -sortedMag[i])
	}
	out = append(out, sortedPos...)

	return out
}

// IsSorted reports whether values are in non-decreasing order.
func IsSorted(values []int64) bool {
	for i := 1; i < len(values); i++ {
		if values[i] < values[i-1] {
			return false
		}
	}
	return true
}
