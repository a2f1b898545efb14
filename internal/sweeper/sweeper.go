// Package sweeper prunes logically stale rows from the per-user
// conversation list projection. Recency updates append a fresh ordering
// row instead of deleting the old one, so superseded rows accumulate;
// the sweeper bounds how long they can surface in deep pagination.
package sweeper

import (
	"context"
	"fmt"
	"time"

	"github.com/adhocore/gronx"

	"messengerdb/pkg/config"
	"messengerdb/pkg/logger"
	"messengerdb/pkg/store"
	"messengerdb/pkg/telemetry"
)

// RunOnce performs a single sweep of the conversations-by-user
// namespace.
func RunOnce(ctx context.Context) error {
	start := time.Now()
	pruned, err := store.SweepStaleSummaries(ctx)
	if err != nil {
		return err
	}
	telemetry.SweeperPruned.Add(float64(pruned))
	logger.Info("sweeper_run_complete", "pruned", pruned, "elapsed", time.Since(start).String())
	return nil
}

// Start starts the sweep scheduler if enabled. Returns a cancel func.
func Start(ctx context.Context, cfg *config.Config) (context.CancelFunc, error) {
	if !cfg.Sweeper.Enabled {
		logger.Info("sweeper_disabled")
		return func() {}, nil
	}
	cronExpr := cfg.Sweeper.Cron
	if cronExpr == "" {
		cronExpr = "0 2 * * *"
	}
	if !gronx.IsValid(cronExpr) {
		logger.Error("sweeper_invalid_cron", "cron", cronExpr)
		return nil, fmt.Errorf("invalid sweeper cron expression: %s", cronExpr)
	}

	ctx2, cancel := context.WithCancel(ctx)
	go runScheduler(ctx2, cronExpr)
	logger.Info("sweeper_scheduler_started", "cron", cronExpr)
	return cancel, nil
}

// runScheduler sleeps until the next cron tick and triggers a sweep,
// repeating until the context is canceled.
func runScheduler(ctx context.Context, cronExpr string) {
	for {
		select {
		case <-ctx.Done():
			logger.Info("sweeper_scheduler_stopping")
			return
		default:
		}

		now := time.Now().UTC()
		next, err := gronx.NextTickAfter(cronExpr, now, false)
		if err != nil {
			logger.Error("sweeper_nexttick_failed", "cron", cronExpr, "error", err)
			select {
			case <-time.After(30 * time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}

		select {
		case <-time.After(time.Until(next)):
			if err := RunOnce(ctx); err != nil {
				logger.Error("sweeper_run_error", "error", err)
			}
		case <-ctx.Done():
			logger.Info("sweeper_scheduler_stopping")
			return
		}
	}
}
