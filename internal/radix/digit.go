// Package radix implements a base-10 LSD radix sort over signed 64-bit integers.
package radix

import (
	"errors"
	"fmt"
)

// Base is the number of buckets used by a single digit pass.
const Base = 10

var (
	// ErrNegativeValue is the panic cause when a digit pass sees a negative key.
	ErrNegativeValue = errors.New("radix: digit pass requires non-negative values")

	// ErrInvalidPlace is the panic cause when a digit pass is given exp <= 0.
	ErrInvalidPlace = errors.New("radix: digit place must be positive")
)

// SortByDigit returns a copy of values stably ordered by the decimal digit
// (v / exp) % 10.
//
// Callers guarantee every value is non-negative and exp is a positive power
// of ten. Violating either is a programming error and panics.
func SortByDigit(values []int64, exp int64) []int64 {
	return SortByDigitFunc(values, exp, identity)
}

// SortByDigitFunc is SortByDigit for arbitrary items ordered by key(item).
// Items with equal digits keep their relative input order.
func SortByDigitFunc[T any](items []T, exp int64, key func(T) int64) []T {
	if exp <= 0 {
		panic(fmt.Errorf("%w: exp=%d", ErrInvalidPlace, exp))
	}

	out := make([]T, len(items))
	var count [Base]int

	for i, it := range items {
		k := key(it)
		if k < 0 {
			panic(fmt.Errorf("%w: items[%d] key=%d", ErrNegativeValue, i, k))
		}
		count[(k/exp)%Base]++
	}

	// count[d] becomes the end offset (exclusive) of digit d's run.
	for d := 1; d < Base; d++ {
		count[d] += count[d-1]
	}

	// Right-to-left placement keeps equal digits in input order.
	for i := len(items) - 1; i >= 0; i-- {
		d := (key(items[i]) / exp) % Base
		count[d]--
		out[count[d]] = items[i]
	}

	return out
}

func identity(v int64) int64 { return v }
