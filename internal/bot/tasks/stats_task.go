package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/edgard/joinkeeper/internal/errtrack"
)

func newHourlyStatsTask(deps TaskDeps) ScheduledTaskFunc {
	return newReportTask(deps, "hourly_stats", deps.Reporter.SendHourly)
}

func newDailyStatsTask(deps TaskDeps) ScheduledTaskFunc {
	return newReportTask(deps, "daily_stats", deps.Reporter.SendDaily)
}

func newReportTask(deps TaskDeps, name string, send func(ctx context.Context) error) ScheduledTaskFunc {
	log := deps.Logger.With("task", name)

	return func(ctx context.Context) error {
		startTime := time.Now()
		if err := send(ctx); err != nil {
			log.ErrorContext(ctx, "Statistics report failed", "error", err, "duration", time.Since(startTime))
			errtrack.CaptureError(err, map[string]string{"component": "tasks", "task": name})
			return fmt.Errorf("%s failed: %w", name, err)
		}
		log.DebugContext(ctx, "Statistics report completed", "duration", time.Since(startTime))
		return nil
	}
}
