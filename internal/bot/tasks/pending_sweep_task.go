package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// sweepGrace is how long a request may stay overdue before the sweep picks
// it up; the one-time approval job normally handles it first.
const sweepGrace = 5 * time.Minute

// newPendingSweepTask creates a task approving join requests whose one-time
// approval job was lost or failed to run.
func newPendingSweepTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "pending_sweep")

	return func(ctx context.Context) error {
		sweepCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
		defer cancel()

		reqs, err := deps.Store.ListJoinRequests(sweepCtx)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				log.WarnContext(ctx, "Timeout listing pending join requests")
			}
			return fmt.Errorf("failed to list pending join requests: %w", err)
		}

		cutoff := deps.Now().Add(-sweepGrace)
		var overdue, approved int
		for _, req := range reqs {
			if req.ApproveAt.After(cutoff) {
				continue
			}
			overdue++
			if err := deps.Approver.ApprovePending(sweepCtx, req.ChatID, req.UserID); err != nil {
				log.WarnContext(ctx, "Overdue join request not approved",
					"chat_id", req.ChatID, "user_id", req.UserID, "error", err)
				continue
			}
			approved++
		}

		if overdue > 0 {
			log.InfoContext(ctx, "Overdue join requests swept", "overdue", overdue, "approved", approved)
		}
		return nil
	}
}
