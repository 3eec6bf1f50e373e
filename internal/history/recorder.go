// Package history persists detected opportunities. Every sink is append-only:
// a record, once written, is never overwritten.
package history

import (
	"context"
	"errors"

	"github.com/suwandre/arbwatch/internal/models"
)

// Recorder appends one opportunity to durable storage.
type Recorder interface {
	Record(ctx context.Context, opp models.Opportunity) error
	Close() error
}

// Multi fans a record out to several sinks. A failing sink does not prevent
// the others from being written.
type Multi struct {
	sinks []Recorder
}

func NewMulti(sinks ...Recorder) *Multi {
	return &Multi{sinks: sinks}
}

func (m *Multi) Record(ctx context.Context, opp models.Opportunity) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Record(ctx, opp); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Multi) Close() error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Len returns the number of sinks.
func (m *Multi) Len() int {
	return len(m.sinks)
}
