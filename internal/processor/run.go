package processor

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"

	"github.com/flowmesh/distributer/internal/config"
	"github.com/flowmesh/distributer/internal/processor/archivesink"
	"github.com/flowmesh/distributer/internal/statsreport"
)

// Run registers with the distributer, starts the ingress listener and
// validator pool, and blocks until ctx is cancelled.
func Run(ctx context.Context, cfg *config.ProcessorConfig, logger *slog.Logger) error {
	ingress, err := ListenIngress(cfg.Ingress.PortMin, cfg.Ingress.PortMax, logger)
	if err != nil {
		return fmt.Errorf("starting ingress listener: %w", err)
	}
	defer ingress.Close()

	if err := Register(cfg.Server.Address, ingress.Port, logger); err != nil {
		return fmt.Errorf("registering with distributer: %w", err)
	}

	var sink Sink = NewMemorySink()
	if cfg.Archive.Enabled {
		archive, err := archivesink.New(ctx, cfg.Archive.Bucket, cfg.Archive.Prefix, cfg.Archive.FlushCount, logger)
		if err != nil {
			return fmt.Errorf("starting archive sink: %w", err)
		}
		archive.Start(cfg.Archive.FlushInterval)
		defer archive.Stop()
		sink = NewMultiSink(sink, archive)
	}

	workers := cfg.Validator.Workers
	if workers <= 0 {
		workers = runtime.NumCPU() / 2
		if workers < 1 {
			workers = 1
		}
	}

	pool := NewValidatorPool(ingress.Batches(), sink, logger, workers)

	stats := statsreport.New(logger, "processor")
	stats.Start()
	defer stats.Stop()

	go pool.Run(ctx)

	ingress.Run(ctx)
	return nil
}
