// Package processor implements the consumer side of the pipeline: the
// registrar that announces this processor to a distributer, the ingress
// listener that demultiplexes chunk and health frames, the validator
// pool, and the sink that retains accepted records.
package processor

import (
	"sync"

	"github.com/flowmesh/distributer/internal/flow"
)

// Sink is an append-only destination for validated records. The
// reference behavior retains them in memory; any append-only consumer
// can stand in, which is why archivesink implements the same shape
// without embedding it in an interface the validator pool depends on.
type Sink interface {
	Append(records []flow.Record)
}

// MemorySink retains every accepted record in memory, guarded by a mutex
// since multiple validator workers append concurrently.
type MemorySink struct {
	mu      sync.Mutex
	records []flow.Record
}

// NewMemorySink builds an empty MemorySink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Append adds records to the sink.
func (s *MemorySink) Append(records []flow.Record) {
	if len(records) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, records...)
}

// Records returns a copy of everything retained so far.
func (s *MemorySink) Records() []flow.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]flow.Record, len(s.records))
	copy(out, s.records)
	return out
}

// Len returns the number of records retained so far.
func (s *MemorySink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// MultiSink fans every Append out to each of the wrapped sinks, in order.
// It is how the optional archival sink is layered on top of the
// in-memory one without the validator pool knowing more than one sink
// exists.
type MultiSink struct {
	sinks []Sink
}

// NewMultiSink builds a MultiSink wrapping sinks.
func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

// Append fans out to every wrapped sink.
func (m *MultiSink) Append(records []flow.Record) {
	for _, s := range m.sinks {
		s.Append(records)
	}
}
