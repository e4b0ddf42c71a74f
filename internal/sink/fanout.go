package sink

import (
	"context"
	"errors"

	"github.com/mizulab/sensorhub/internal/telemetry"
)

// Fanout delivers every reading to all member sinks. One failing member does
// not stop delivery to the others; the errors are joined.
type Fanout []Sink

func (f Fanout) Store(ctx context.Context, r telemetry.Reading) error {
	var errs []error
	for _, s := range f {
		if err := s.Store(ctx, r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f Fanout) Close() error {
	var errs []error
	for _, s := range f {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
