package report

import (
	"context"
	"errors"
	"fmt"

	"github.com/withObsrvr/obsrvr-radix-bench/internal/metrics"
)

// Sink receives benchmark entries.
type Sink interface {
	Report(ctx context.Context, e Entry) error
	// Name is used as a metrics label.
	Name() string
	Close() error
}

// Multi fans entries out to every sink. All sinks see every entry; errors
// are joined.
type Multi []Sink

// Report implements Sink.
func (m Multi) Report(ctx context.Context, e Entry) error {
	var errs []error
	for _, s := range m {
		if err := s.Report(ctx, e); err != nil {
			if mt := metrics.Get(); mt != nil {
				mt.IncReportErrors(s.Name())
			}
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Name implements Sink.
func (m Multi) Name() string { return "multi" }

// Close closes every sink.
func (m Multi) Close() error {
	var errs []error
	for _, s := range m {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}
