/*
scheduler.go - Background balance recalculation

PURPOSE:
  Periodically rebuilds every employee's balance snapshots so dashboards
  and reports read fresh materialized data without computing on demand.
  Each run is recorded in recalc_runs for audit and UI display.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Skips a cycle when the last completed run is fresher than the interval
    (another instance may have run it)
  - Per-employee failures are recorded on the run, never abort the batch

USAGE:
  scheduler := NewRecalcScheduler(store, handler.Aggregator, logger)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: TriggerRecalculation endpoint (manual run)
  - leave/balance.go: RecalculateAll
*/
package api

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/atlashr/leave-engine/leave"
	"github.com/atlashr/leave-engine/store/sqlite"
)

// RecalcScheduler periodically rebuilds balance snapshots.
type RecalcScheduler struct {
	Store         *sqlite.Store
	Aggregator    *leave.Aggregator
	Logger        *slog.Logger
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewRecalcScheduler creates a scheduler with a 6 hour default interval.
func NewRecalcScheduler(store *sqlite.Store, aggregator *leave.Aggregator, logger *slog.Logger) *RecalcScheduler {
	return &RecalcScheduler{
		Store:         store,
		Aggregator:    aggregator,
		Logger:        logger,
		CheckInterval: 6 * time.Hour,
		Enabled:       true,
		stop:          make(chan struct{}),
	}
}

// Start begins the scheduler.
func (rs *RecalcScheduler) Start() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if !rs.Enabled {
		rs.Logger.Info("recalc scheduler disabled, not starting")
		return
	}

	rs.ticker = time.NewTicker(rs.CheckInterval)
	rs.wg.Add(1)
	go rs.run()

	rs.Logger.Info("recalc scheduler started", "interval", rs.CheckInterval.String())
}

// Stop stops the scheduler and waits for an in-flight run to finish.
func (rs *RecalcScheduler) Stop() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.ticker != nil {
		rs.ticker.Stop()
		close(rs.stop)
		rs.wg.Wait()
		rs.Logger.Info("recalc scheduler stopped")
	}
}

func (rs *RecalcScheduler) run() {
	defer rs.wg.Done()

	rs.checkAndRun()

	for {
		select {
		case <-rs.ticker.C:
			rs.checkAndRun()
		case <-rs.stop:
			return
		}
	}
}

func (rs *RecalcScheduler) checkAndRun() {
	ctx := context.Background()

	last, err := rs.Store.LastCompletedRun(ctx)
	if err != nil {
		rs.Logger.Error("checking last recalc run", "error", err)
		return
	}
	if last != nil && last.CompletedAt != nil && time.Since(*last.CompletedAt) < rs.CheckInterval {
		return
	}

	if _, err := RunRecalculation(ctx, rs.Store, rs.Aggregator, rs.Logger, ""); err != nil {
		rs.Logger.Error("scheduled recalculation failed", "error", err)
	}
}

// RunNow triggers an immediate run (for testing/admin).
func (rs *RecalcScheduler) RunNow() {
	rs.checkAndRun()
}

// RunRecalculation executes one batch recalculation and records the run.
// Shared by the scheduler and the admin endpoint.
func RunRecalculation(ctx context.Context, store *sqlite.Store, aggregator *leave.Aggregator, logger *slog.Logger, entityID string) (*leave.RecalcResult, error) {
	started := time.Now()
	run := &sqlite.RecalcRun{
		ID:        fmt.Sprintf("run-%d", started.UnixNano()),
		EntityID:  entityID,
		Status:    "running",
		StartedAt: &started,
		CreatedAt: started,
	}
	if err := store.SaveRecalcRun(ctx, run); err != nil {
		return nil, err
	}

	res, err := aggregator.RecalculateAll(ctx, entityID, func(p leave.Progress) {
		if p.Processed%100 == 0 || p.Processed == p.Total {
			logger.Info("recalculation progress", "processed", p.Processed, "total", p.Total)
		}
	})
	completed := time.Now()
	recalcDuration.Observe(completed.Sub(started).Seconds())

	if err != nil {
		run.Status = "failed"
		run.Error = err.Error()
		if res != nil {
			run.Total = res.Total
			run.Processed = res.Processed
			run.Failed = res.Failed
		}
		run.CompletedAt = &completed
		store.SaveRecalcRun(ctx, run)
		return res, err
	}

	run.Status = "completed"
	run.Total = res.Total
	run.Processed = res.Processed
	run.Failed = res.Failed
	run.CompletedAt = &completed
	if res.Failed > 0 {
		recalcFailures.Add(float64(res.Failed))
		for _, f := range res.Failures {
			logger.Warn("employee skipped during recalculation",
				"employee_id", f.EmployeeID, "error", f.Err)
		}
	}
	if err := store.SaveRecalcRun(ctx, run); err != nil {
		return res, fmt.Errorf("failed to update run record: %w", err)
	}

	logger.Info("recalculation completed",
		"total", res.Total, "processed", res.Processed, "failed", res.Failed,
		"duration", completed.Sub(started).String())
	return res, nil
}
