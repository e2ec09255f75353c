package distributer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/flowmesh/distributer/internal/config"
	"github.com/flowmesh/distributer/internal/registry"
	"github.com/flowmesh/distributer/internal/statsreport"
	"github.com/flowmesh/distributer/internal/store"
)

// Run wires the registry, admission listener, heartbeat supervisor,
// dispatcher, and driver loop together and blocks until ctx is cancelled.
func Run(ctx context.Context, cfg *config.DistributerConfig, logger *slog.Logger) error {
	CheckSeedRequested(logger)

	src, err := store.Open(cfg.Source.Driver, cfg.Source.DSN, cfg.Source.Table)
	if err != nil {
		return fmt.Errorf("opening source: %w", err)
	}
	defer src.Close()

	reg := registry.New()
	dispatcher := NewDispatcher(reg, logger)

	heartbeat, err := NewHeartbeatSupervisor(reg, logger, cfg.Heartbeat.Interval, cfg.Heartbeat.DialTimeout, cfg.Heartbeat.ResponseBudget)
	if err != nil {
		return fmt.Errorf("building heartbeat supervisor: %w", err)
	}

	driver, err := NewDriverLoop(reg, src, dispatcher, logger, fmt.Sprintf("@every %s", cfg.Driver.TickInterval))
	if err != nil {
		return fmt.Errorf("building driver loop: %w", err)
	}

	stats := statsreport.New(logger, "distributer")
	stats.Start()
	defer stats.Stop()

	heartbeat.Start()
	defer heartbeat.Stop(context.Background())

	driver.Start()
	defer driver.Stop(context.Background())

	return RunAdmissionListener(ctx, cfg.Admission.Listen, reg, logger)
}
