// Package collector provides metrics sinks: an in-memory series, a CSV
// writer, and a fan-out over several sinks.
package collector

import (
	"sync"

	"github.com/talgya/segregation/internal/engine"
)

// Series keeps every collected record in memory. It is safe for
// concurrent use, so an observer can read while a run appends.
type Series struct {
	mu      sync.RWMutex
	records []engine.Record
}

// NewSeries creates an empty series.
func NewSeries() *Series {
	return &Series{}
}

// Collect implements engine.Sink.
func (s *Series) Collect(r engine.Record) error {
	s.mu.Lock()
	s.records = append(s.records, r)
	s.mu.Unlock()
	return nil
}

// Records returns a copy of the collected records.
func (s *Series) Records() []engine.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]engine.Record, len(s.records))
	copy(out, s.records)
	return out
}

// Len returns the number of records.
func (s *Series) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Reset drops all records.
func (s *Series) Reset() {
	s.mu.Lock()
	s.records = nil
	s.mu.Unlock()
}

// Multi fans a record out to several sinks. The first error stops the
// fan-out and is returned.
type Multi []engine.Sink

// Collect implements engine.Sink.
func (m Multi) Collect(r engine.Record) error {
	for _, s := range m {
		if err := s.Collect(r); err != nil {
			return err
		}
	}
	return nil
}
