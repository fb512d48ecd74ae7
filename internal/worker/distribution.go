package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/boredtap/engine/internal/config"
	"github.com/boredtap/engine/internal/service"
)

// DistributionWorker periodically runs the daily clan revenue share.
// The share itself is guarded per clan per day, so firing more often
// than once a day costs reads but never double-pays.
type DistributionWorker struct {
	engine  *service.Engine
	config  *config.DistributionConfig
	logger  *slog.Logger
	stopCh  chan struct{}
	doneCh  chan struct{}
	mu      sync.Mutex
	running bool
}

// NewDistributionWorker creates a new distribution worker
func NewDistributionWorker(
	engine *service.Engine,
	cfg *config.DistributionConfig,
	logger *slog.Logger,
) *DistributionWorker {
	return &DistributionWorker{
		engine: engine,
		config: cfg,
		logger: logger,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Start begins the background distribution loop
func (w *DistributionWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	w.logger.Info("distribution worker started", "interval", w.config.CheckInterval)

	go w.run(ctx)
	return nil
}

// Stop stops the background distribution loop
func (w *DistributionWorker) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	w.logger.Info("distribution worker stopped")
	return nil
}

// run is the main worker loop
func (w *DistributionWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.config.CheckInterval)
	defer ticker.Stop()

	// Run once at startup so a restart after midnight still pays out
	w.runCycle(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.runCycle(ctx)
		}
	}
}

// runCycle runs one distribution pass and broadcasts fresh standings
// when any clan was actually paid.
func (w *DistributionWorker) runCycle(ctx context.Context) {
	startTime := time.Now()

	result, err := w.engine.RunDailyDistribution(ctx, startTime)
	if err != nil {
		w.logger.Error("distribution cycle failed", "error", err)
		return
	}

	paidCount := 0
	for _, share := range result.Distributed {
		if share > 0 {
			paidCount++
		}
	}

	w.logger.Info("distribution cycle completed",
		"day", result.Day,
		"clans_paid", paidCount,
		"clans_failed", len(result.FailedClans),
		"duration", time.Since(startTime),
	)

	if paidCount > 0 {
		w.engine.PublishStandings(ctx)
	}
}

// IsRunning returns whether the worker is currently running
func (w *DistributionWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// RunOnce runs a single distribution cycle (useful for manual triggers)
func (w *DistributionWorker) RunOnce(ctx context.Context) {
	w.runCycle(ctx)
}
