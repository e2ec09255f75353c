package processor

import (
	"context"
	"log/slog"

	"github.com/flowmesh/distributer/internal/flow"
)

// ValidatorPool consumes raw batches from a shared ingress channel,
// drops records that fail the completeness predicate, and publishes the
// rest onto a sink. Workers share one channel rather than each owning a
// private queue; a single mutex-free channel read per worker is
// equivalent to the fan-out queue the design allows for.
type ValidatorPool struct {
	in     <-chan flow.Batch
	sink   Sink
	logger *slog.Logger
	n      int
}

// NewValidatorPool builds a pool of n workers (n < 1 is clamped to 1)
// reading from in and publishing accepted records to sink.
func NewValidatorPool(in <-chan flow.Batch, sink Sink, logger *slog.Logger, n int) *ValidatorPool {
	if n < 1 {
		n = 1
	}
	return &ValidatorPool{in: in, sink: sink, logger: logger.With("component", "validator"), n: n}
}

// Run starts n worker goroutines and blocks until ctx is cancelled or the
// input channel closes and drains.
func (p *ValidatorPool) Run(ctx context.Context) {
	done := make(chan struct{}, p.n)
	for i := 0; i < p.n; i++ {
		go func(id int) {
			p.worker(ctx, id)
			done <- struct{}{}
		}(i)
	}
	for i := 0; i < p.n; i++ {
		<-done
	}
}

func (p *ValidatorPool) worker(ctx context.Context, id int) {
	workerLogger := p.logger.With("worker", id)
	for {
		select {
		case batch, ok := <-p.in:
			if !ok {
				return
			}
			accepted := make([]flow.Record, 0, len(batch))
			dropped := 0
			for _, rec := range batch {
				if rec.Valid() {
					accepted = append(accepted, rec)
				} else {
					dropped++
				}
			}
			if len(accepted) > 0 {
				p.sink.Append(accepted)
			}
			if dropped > 0 {
				workerLogger.Debug("dropped invalid records", "count", dropped)
			}
		case <-ctx.Done():
			return
		}
	}
}
