package distributer

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/robfig/cron/v3"

	"github.com/flowmesh/distributer/internal/flow"
	"github.com/flowmesh/distributer/internal/registry"
	"github.com/flowmesh/distributer/internal/store"
)

// DriverLoop ticks on a fixed cadence; when the readiness gate is set, it
// opens a scan epoch, partitions the source across cores paged-reader
// tasks, and drains the resulting batches through the Dispatcher. Ticks
// that land while the previous epoch is still draining are dropped: at
// most one epoch runs at a time.
type DriverLoop struct {
	reg        *registry.Registry
	src        store.PagedSource
	dispatcher *Dispatcher
	logger     *slog.Logger
	cron       *cron.Cron
	epochBusy  atomic.Bool
}

// NewDriverLoop builds a loop scheduled on interval.
func NewDriverLoop(reg *registry.Registry, src store.PagedSource, dispatcher *Dispatcher, logger *slog.Logger, interval string) (*DriverLoop, error) {
	d := &DriverLoop{
		reg:        reg,
		src:        src,
		dispatcher: dispatcher,
		logger:     logger.With("component", "driver"),
	}

	c := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))))
	if _, err := c.AddFunc(interval, d.tick); err != nil {
		return nil, fmt.Errorf("scheduling driver loop: %w", err)
	}
	d.cron = c
	return d, nil
}

// Start begins ticking.
func (d *DriverLoop) Start() {
	d.logger.Info("driver loop started")
	d.cron.Start()
}

// Stop halts scheduling and waits for an in-flight epoch to finish, or
// for ctx to be done, whichever comes first.
func (d *DriverLoop) Stop(ctx context.Context) {
	stopCtx := d.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
		d.logger.Warn("driver loop stop timed out")
	}
}

func (d *DriverLoop) tick() {
	if !d.reg.Ready() {
		d.logger.Debug("tick skipped: not ready to produce")
		return
	}
	if !d.epochBusy.CompareAndSwap(false, true) {
		d.logger.Debug("tick skipped: previous epoch still draining")
		return
	}
	defer d.epochBusy.Store(false)

	if err := d.runEpoch(context.Background()); err != nil {
		d.logger.Error("epoch failed", "error", err)
	}
}

// runEpoch performs one full scan-and-dispatch cycle: count rows, compute
// cores and chunk_size, spawn one paged-reader task per core, and drain
// the resulting batches into the dispatcher as they arrive.
func (d *DriverLoop) runEpoch(ctx context.Context) error {
	rows, err := d.src.RowCount(ctx)
	if err != nil {
		return fmt.Errorf("counting source rows: %w", err)
	}
	if rows == 0 {
		d.logger.Debug("epoch skipped: source is empty")
		return nil
	}

	cores := runtime.NumCPU()
	chunkSize := int(rows) / cores
	if chunkSize == 0 {
		chunkSize = int(rows)
		cores = 1
	}

	out := make(chan flow.Batch, chunkSize)

	var wg sync.WaitGroup
	for page := 0; page < cores; page++ {
		offset := page * chunkSize
		size := chunkSize
		if page == cores-1 {
			// Last chunk absorbs the remainder of an uneven division.
			size = int(rows) - offset
		}
		wg.Add(1)
		go func(offset, size int) {
			defer wg.Done()
			readChunk(ctx, d.src, offset, size, out, d.logger)
		}(offset, size)
	}

	go func() {
		wg.Wait()
		close(out)
	}()

	dispatched, dropped := 0, 0
	for batch := range out {
		if !d.reg.Ready() {
			dropped++
			continue
		}
		if err := d.dispatcher.Produce(batch); err != nil {
			d.logger.Error("dispatch failed", "error", err)
			continue
		}
		dispatched++
	}

	d.logger.Info("epoch complete", "rows", rows, "cores", cores, "chunk_size", chunkSize, "dispatched", dispatched, "dropped", dropped)
	return nil
}
