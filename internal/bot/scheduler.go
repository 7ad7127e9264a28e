package bot

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/edgard/joinkeeper/internal/bot/tasks"
	"github.com/edgard/joinkeeper/internal/config"
)

// Scheduler runs the periodic tasks from the configuration and the one-shot
// approval jobs on top of gocron.
type Scheduler struct {
	scheduler gocron.Scheduler
	logger    *slog.Logger
	cfg       *config.SchedulerConfig
	taskMap   map[string]tasks.ScheduledTaskFunc
	mu        sync.Mutex
	running   bool
	now       func() time.Time
}

// NewScheduler creates a new scheduler instance using gocron.
func NewScheduler(logger *slog.Logger, cfg *config.SchedulerConfig, taskMap map[string]tasks.ScheduledTaskFunc) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With("component", "scheduler")

	s, err := gocron.NewScheduler()
	if err != nil {
		log.Error("Failed to create gocron scheduler", "error", err)
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}

	return &Scheduler{
		scheduler: s,
		logger:    log,
		cfg:       cfg,
		taskMap:   taskMap,
		now:       time.Now,
	}, nil
}

// SetTasks replaces the task registry. It must be called before Start.
func (s *Scheduler) SetTasks(taskMap map[string]tasks.ScheduledTaskFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.taskMap = taskMap
}

// jobDefinition picks the gocron trigger for a periodic task. An interval
// wins over a cron schedule; the first run happens one interval after start.
func jobDefinition(task config.TaskConfig) (gocron.JobDefinition, string, error) {
	switch {
	case task.Interval > 0:
		return gocron.DurationJob(task.Interval), "every " + task.Interval.String(), nil
	case task.Schedule != "":
		return gocron.CronJob(task.Schedule, true), task.Schedule, nil
	default:
		return nil, "", fmt.Errorf("task has neither interval nor schedule")
	}
}

// Start schedules and starts all enabled tasks based on the configuration.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler is already running")
	}

	s.logger.Debug("Configuring scheduler jobs...")

	if s.cfg == nil || len(s.cfg.Tasks) == 0 {
		s.logger.Warn("No scheduler tasks configured.")
		s.scheduler.Start()
		s.running = true
		return nil
	}

	scheduledCount := 0
	for taskName, taskConfig := range s.cfg.Tasks {
		if !taskConfig.Enabled {
			s.logger.Info("Skipping disabled task", "task_name", taskName)
			continue
		}

		taskFunc, exists := s.taskMap[taskName]
		if !exists {
			s.logger.Warn("Scheduled task configured but not found in registry, skipping", "task_name", taskName)
			continue
		}

		definition, describe, err := jobDefinition(taskConfig)
		if err != nil {
			s.logger.Warn("Scheduled task enabled but has no schedule, skipping", "task_name", taskName)
			continue
		}

		_, err = s.scheduler.NewJob(
			definition,
			gocron.NewTask(s.wrap(taskFunc), context.Background(), taskName),
			gocron.WithName(taskName),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			s.logger.Error("Failed to schedule task", "task_name", taskName, "schedule", describe, "error", err)
			continue
		}

		s.logger.Info("Scheduled task", "task_name", taskName, "schedule", describe)
		scheduledCount++
	}

	s.scheduler.Start()
	s.running = true
	s.logger.Info("Scheduler initialized and started", "tasks_scheduled", scheduledCount)

	return nil
}

// wrap adds start/finish logging around a task.
func (s *Scheduler) wrap(taskFunc tasks.ScheduledTaskFunc) func(ctx context.Context, name string) {
	return func(ctx context.Context, name string) {
		s.logger.Info("Running scheduled task", "task_name", name)
		startTime := time.Now()
		if taskErr := taskFunc(ctx); taskErr != nil {
			s.logger.Error("Scheduled task failed", "task_name", name, "error", taskErr)
		}
		s.logger.Info("Finished scheduled task", "task_name", name, "duration", time.Since(startTime))
	}
}

// ScheduleOnce runs fn once at the given time, or right away when the time
// has passed. A job already scheduled under the same name is replaced.
func (s *Scheduler) ScheduleOnce(name string, at time.Time, fn func(ctx context.Context) error) error {
	s.scheduler.RemoveByTags(name)

	start := gocron.OneTimeJobStartImmediately()
	if at.After(s.now()) {
		start = gocron.OneTimeJobStartDateTime(at)
	}

	_, err := s.scheduler.NewJob(
		gocron.OneTimeJob(start),
		gocron.NewTask(func(ctx context.Context, name string) {
			if err := fn(ctx); err != nil {
				s.logger.Error("One-time job failed", "job_name", name, "error", err)
			}
		}, context.Background(), name),
		gocron.WithName(name),
		gocron.WithTags(name),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule job %s: %w", name, err)
	}

	s.logger.Debug("One-time job scheduled", "job_name", name, "at", at)
	return nil
}

// Cancel removes a pending one-time job. Unknown names are ignored.
func (s *Scheduler) Cancel(name string) {
	s.scheduler.RemoveByTags(name)
}

// Stop gracefully stops the scheduler, waiting for running jobs to complete.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		s.logger.Info("Scheduler is not running, nothing to stop.")
		return nil
	}

	s.logger.Debug("Stopping scheduler gracefully (waiting for jobs)...")
	err := s.scheduler.Shutdown()
	if err != nil {
		s.logger.Error("Error during scheduler shutdown", "error", err)
	} else {
		s.logger.Info("Scheduler stopped gracefully.")
	}

	s.running = false
	return err
}
