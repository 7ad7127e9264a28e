// Package tasks implements the periodic jobs of joinkeeper: statistics
// reports, the sweep of overdue join requests and database maintenance.
package tasks

import (
	"context"
	"log/slog"
	"time"

	"github.com/edgard/joinkeeper/internal/config"
	"github.com/edgard/joinkeeper/internal/database"
)

// Reporter sends the periodic statistics reports.
type Reporter interface {
	SendHourly(ctx context.Context) error
	SendDaily(ctx context.Context) error
}

// Approver approves a stored join request.
type Approver interface {
	ApprovePending(ctx context.Context, chatID, userID int64) error
}

// TaskDeps contains all dependencies required by scheduled tasks.
type TaskDeps struct {
	Logger   *slog.Logger
	Store    database.Store
	Reporter Reporter
	Approver Approver
	Config   *config.Config
	Now      func() time.Time
}
