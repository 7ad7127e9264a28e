package tasks

import (
	"context"
	"time"

	"github.com/edgard/joinkeeper/internal/config"
)

// ScheduledTaskFunc defines the standard signature for all scheduled tasks.
// The context provided by the scheduler should be respected for cancellation.
type ScheduledTaskFunc func(ctx context.Context) error

// RegisterAllTasks initializes and returns a map of all registered scheduled tasks.
// The keys match the task names of the scheduler configuration.
func RegisterAllTasks(deps TaskDeps) map[string]ScheduledTaskFunc {
	if deps.Now == nil {
		deps.Now = time.Now
	}

	tasks := make(map[string]ScheduledTaskFunc)
	tasks[config.TaskHourlyStats] = newHourlyStatsTask(deps)
	tasks[config.TaskDailyStats] = newDailyStatsTask(deps)
	tasks[config.TaskPendingSweep] = newPendingSweepTask(deps)
	tasks[config.TaskSQLMaintenance] = newSQLMaintenanceTask(deps)

	deps.Logger.Info("Initialized scheduled tasks", "count", len(tasks))
	return tasks
}
