package distributer

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/flowmesh/distributer/internal/registry"
	"github.com/flowmesh/distributer/internal/wire"
)

// responseBudget bounds how much of a health response the heartbeat will
// read before giving up on an endpoint.
const responseBudget = 1024

// HeartbeatSupervisor probes every registered endpoint on a fixed cadence
// and evicts any that fail the probe. It is the sole writer that sets the
// readiness gate true; both it and the dispatcher may clear it.
type HeartbeatSupervisor struct {
	reg         *registry.Registry
	logger      *slog.Logger
	dialTimeout time.Duration
	readBudget  time.Duration
	cron        *cron.Cron
}

// NewHeartbeatSupervisor builds a supervisor scheduled on interval via
// cron's "@every" cadence, the same scheduling primitive the driver loop
// uses.
func NewHeartbeatSupervisor(reg *registry.Registry, logger *slog.Logger, interval, dialTimeout, readBudget time.Duration) (*HeartbeatSupervisor, error) {
	h := &HeartbeatSupervisor{
		reg:         reg,
		logger:      logger.With("component", "heartbeat"),
		dialTimeout: dialTimeout,
		readBudget:  readBudget,
	}

	c := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))))
	spec := fmt.Sprintf("@every %s", interval)
	if _, err := c.AddFunc(spec, h.sweep); err != nil {
		return nil, fmt.Errorf("scheduling heartbeat sweep: %w", err)
	}
	h.cron = c
	return h, nil
}

// Start begins the scheduled sweeps.
func (h *HeartbeatSupervisor) Start() {
	h.logger.Info("heartbeat supervisor started")
	h.cron.Start()
}

// Stop halts scheduling and waits for any in-flight sweep to finish.
func (h *HeartbeatSupervisor) Stop(ctx context.Context) {
	stopCtx := h.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
		h.logger.Warn("heartbeat supervisor stop timed out")
	}
}

// sweep takes a registry snapshot, probes each endpoint, and evicts the
// unhealthy ones in one registry transaction, then recomputes the
// readiness gate.
func (h *HeartbeatSupervisor) sweep() {
	snapshot := h.reg.Snapshot()
	unhealthy := make(map[string]struct{})

	for _, endpoint := range snapshot {
		if err := h.probe(endpoint); err != nil {
			h.logger.Warn("endpoint failed health probe", "endpoint", endpoint, "error", err)
			unhealthy[endpoint] = struct{}{}
		}
	}

	h.reg.RemoveMany(unhealthy)
	ready := h.reg.Len() > 0
	h.reg.SetReady(ready)
	h.logger.Debug("heartbeat sweep complete", "probed", len(snapshot), "evicted", len(unhealthy), "ready", ready)
}

// probe dials endpoint, writes the health-check frame, and confirms the
// response is exactly "healthy".
func (h *HeartbeatSupervisor) probe(endpoint string) error {
	conn, err := net.DialTimeout("tcp", endpoint, h.dialTimeout)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(h.readBudget)); err != nil {
		return fmt.Errorf("setting deadline: %w", err)
	}

	if err := wire.WriteHealthProbe(conn); err != nil {
		return fmt.Errorf("writing probe: %w", err)
	}

	buf := make([]byte, responseBudget)
	n, err := conn.Read(buf)
	if err != nil && n == 0 {
		return fmt.Errorf("reading response: %w", err)
	}
	if string(buf[:n]) != "healthy" {
		return fmt.Errorf("unexpected response %q", string(buf[:n]))
	}
	return nil
}
