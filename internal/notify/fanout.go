package notify

import (
	"context"
	"errors"
	"fmt"
)

// Fanout dispatches notifications to all configured sinks.
type Fanout struct {
	sinks []Sink
}

// NewFanout builds a dispatcher that fans out notifications across sinks.
func NewFanout(sinks []Sink) *Fanout {
	cp := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s == nil {
			continue
		}
		cp = append(cp, s)
	}
	return &Fanout{sinks: cp}
}

// Publish forwards the notification to every registered sink.
// It returns the number of sinks that successfully handled it.
func (f *Fanout) Publish(ctx context.Context, n Notification) (int, error) {
	if f == nil || len(f.sinks) == 0 {
		return 0, nil
	}

	var errs []error
	successful := 0
	for _, s := range f.sinks {
		if err := s.Publish(ctx, n); err != nil {
			errs = append(errs, fmt.Errorf("%s sink[%s]: %w", s.Type(), s.ID(), err))
		} else {
			successful++
		}
	}
	return successful, errors.Join(errs...)
}

// PublishBatch forwards each notification in order, preserving the push
// order a downstream queue consumer observes. It returns the number of
// notifications every sink accepted.
func (f *Fanout) PublishBatch(ctx context.Context, batch []Notification) (int, error) {
	if f == nil || len(batch) == 0 {
		return 0, nil
	}

	var errs []error
	delivered := 0
	for _, n := range batch {
		count, err := f.Publish(ctx, n)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if count == len(f.sinks) {
			delivered++
		}
	}
	return delivered, errors.Join(errs...)
}

// Size returns the number of active sinks.
func (f *Fanout) Size() int {
	if f == nil {
		return 0
	}
	return len(f.sinks)
}
