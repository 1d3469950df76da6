package bench

import "fmt"

// Verdict is the outcome of comparing the sequential and parallel outputs.
type Verdict struct {
	Match         bool
	FirstMismatch int // -1 when the outputs match
	Errors        []string
}

// Verify checks that want and got have the same length and the same value
// at every index. A mismatch is reported in the verdict, never as an error.
func Verify(want, got []int64) Verdict {
	v := Verdict{
		Match:         true,
		FirstMismatch: -1,
	}

	if len(want) != len(got) {
		v.Match = false
		v.Errors = append(v.Errors,
			fmt.Sprintf("length mismatch: sequential %d, parallel %d", len(want), len(got)))
	}

	for i := 0; i < min(len(want), len(got)); i++ {
		if want[i] != got[i] {
			v.Match = false
			v.FirstMismatch = i
			v.Errors = append(v.Errors,
				fmt.Sprintf("value mismatch at index %d: sequential %d, parallel %d", i, want[i], got[i]))
			break
		}
	}

	if !v.Match && v.FirstMismatch < 0 {
		// Common prefix matched; the outputs diverge where the shorter ends.
		v.FirstMismatch = min(len(want), len(got))
	}

	return v
}
