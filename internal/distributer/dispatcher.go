package distributer

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/flowmesh/distributer/internal/flow"
	"github.com/flowmesh/distributer/internal/registry"
	"github.com/flowmesh/distributer/internal/wire"
)

// ErrNoProcessors is returned by Dispatcher.Produce when the registry is
// empty at dispatch time.
var ErrNoProcessors = errors.New("distributer: no processors registered")

// dialTimeout bounds the one-shot connection a dispatch opens per chunk.
const dialTimeout = 2 * time.Second

// Dispatcher fans batches out to the registered processor pool,
// round-robin, one fresh TCP connection per chunk. Connection pooling is
// deliberately absent: a receiver relies on the connection close to mark
// the end of a frame in the degenerate single-frame case.
type Dispatcher struct {
	reg    *registry.Registry
	logger *slog.Logger
}

// NewDispatcher builds a Dispatcher bound to reg.
func NewDispatcher(reg *registry.Registry, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{reg: reg, logger: logger.With("component", "dispatcher")}
}

// Produce selects the next endpoint round-robin and sends b as one chunk
// frame over a fresh connection. On an empty registry it clears the
// readiness gate and returns ErrNoProcessors; the failing endpoint is
// never evicted here — liveness is solely the heartbeat supervisor's job.
func (d *Dispatcher) Produce(b flow.Batch) error {
	if d.reg.Len() == 0 {
		d.reg.SetReady(false)
		return ErrNoProcessors
	}

	endpoint, err := d.reg.Next()
	if err != nil {
		d.reg.SetReady(false)
		return fmt.Errorf("%w: %v", ErrNoProcessors, err)
	}

	conn, err := net.DialTimeout("tcp", endpoint, dialTimeout)
	if err != nil {
		return fmt.Errorf("dialing %s: %w", endpoint, err)
	}
	defer conn.Close()

	if err := wire.WriteChunk(conn, b); err != nil {
		return fmt.Errorf("sending chunk to %s: %w", endpoint, err)
	}
	return nil
}
