// Package dataset loads, generates and publishes the integer datasets the
// benchmark sorts.
package dataset

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// ErrInvalidToken is returned when input contains a token that is not a
// signed decimal integer in the int64 range.
var ErrInvalidToken = errors.New("invalid integer token")

// Parse reads whitespace-separated decimal integers. Empty or
// whitespace-only input yields an empty, non-nil slice.
func Parse(r io.Reader) ([]int64, error) {
	scanner := bufio.NewScanner(r)
	scanner.Split(bufio.ScanWords)

	values := []int64{}
	for pos := 0; scanner.Scan(); pos++ {
		tok := scanner.Text()
		v, err := strconv.ParseInt(tok, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q at token %d", ErrInvalidToken, tok, pos)
		}
		values = append(values, v)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan input: %w", err)
	}

	return values, nil
}

// Format writes values space-separated with no trailing newline.
func Format(w io.Writer, values []int64) error {
	bw := bufio.NewWriter(w)
	buf := make([]byte, 0, 24)
	for i, v := range values {
		if i > 0 {
			if err := bw.WriteByte(' '); err != nil {
				return err
			}
		}
		buf = strconv.AppendInt(buf[:0], v, 10)
		if _, err := bw.Write(buf); err != nil {
			return err
		}
	}
	return bw.Flush()
}
