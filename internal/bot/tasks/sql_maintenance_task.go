package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/edgard/joinkeeper/internal/errtrack"
)

// newSQLMaintenanceTask prunes stale approvals, vacuums the database and logs
// how much state the bot is carrying.
func newSQLMaintenanceTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "sql_maintenance")

	return func(ctx context.Context) error {
		startTime := time.Now()

		if err := deps.Store.RunSQLMaintenance(ctx); err != nil {
			log.ErrorContext(ctx, "SQL maintenance failed", "error", err, "duration", time.Since(startTime))
			errtrack.CaptureError(err, map[string]string{"component": "tasks", "task": "sql_maintenance"})
			return fmt.Errorf("sql maintenance failed: %w", err)
		}

		pending, err := deps.Store.CountJoinRequests(ctx)
		if err != nil {
			log.WarnContext(ctx, "Failed to count pending join requests", "error", err)
		}
		chats, err := deps.Store.ListTrackedChats(ctx)
		if err != nil {
			log.WarnContext(ctx, "Failed to list tracked chats", "error", err)
		}

		log.InfoContext(ctx, "SQL maintenance completed",
			"duration", time.Since(startTime),
			"pending_requests", pending,
			"tracked_chats", len(chats),
		)
		return nil
	}
}
