// Package statsreport periodically samples host resource usage and logs
// it. It is purely observational: nothing it collects feeds back into
// Registry state, the readiness gate, or dispatch decisions.
package statsreport

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
)

// interval between samples.
const interval = 15 * time.Second

// Sample holds one round of host stats.
type Sample struct {
	CPUPercent    float64
	MemoryPercent float64
	LoadAverage1  float64
}

// Reporter samples host stats on a fixed cadence and logs them.
type Reporter struct {
	logger *slog.Logger
	role   string

	mu     sync.RWMutex
	latest Sample

	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a Reporter. role labels log lines (e.g. "distributer",
// "processor") so a shared log stream can distinguish the two binaries.
func New(logger *slog.Logger, role string) *Reporter {
	return &Reporter{
		logger: logger.With("component", "stats_reporter", "role", role),
		role:   role,
		done:   make(chan struct{}),
	}
}

// Start begins periodic sampling in a background goroutine.
func (r *Reporter) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel

	go func() {
		defer close(r.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		r.sample()
		for {
			select {
			case <-ticker.C:
				r.sample()
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop cancels sampling and waits for the goroutine to exit.
func (r *Reporter) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	<-r.done
}

// Latest returns the most recently collected sample.
func (r *Reporter) Latest() Sample {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.latest
}

func (r *Reporter) sample() {
	var s Sample

	if pcts, err := cpu.Percent(0, false); err == nil && len(pcts) > 0 {
		s.CPUPercent = pcts[0]
	} else {
		r.logger.Debug("failed to sample cpu", "error", err)
	}

	if v, err := mem.VirtualMemory(); err == nil {
		s.MemoryPercent = v.UsedPercent
	} else {
		r.logger.Debug("failed to sample memory", "error", err)
	}

	if l, err := load.Avg(); err == nil {
		s.LoadAverage1 = l.Load1
	} else {
		r.logger.Debug("failed to sample load average", "error", err)
	}

	r.mu.Lock()
	r.latest = s
	r.mu.Unlock()

	r.logger.Info("host stats",
		"cpu_percent", s.CPUPercent,
		"memory_percent", s.MemoryPercent,
		"load1", s.LoadAverage1,
	)
}
