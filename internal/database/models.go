package database

import (
	"time"
)

// JoinRequest is a pending request to join a chat, waiting for automatic approval.
type JoinRequest struct {
	ID          uint      `db:"id"`
	ChatID      int64     `db:"chat_id"`
	UserID      int64     `db:"user_id"`
	ChatType    string    `db:"chat_type"`
	FirstName   string    `db:"first_name"`
	LastName    string    `db:"last_name"`
	Username    string    `db:"username"`
	RequestedAt time.Time `db:"requested_at"`
	ApproveAt   time.Time `db:"approve_at"`
}

// ApprovedUser records a user approved by the bot who has not been welcomed yet.
type ApprovedUser struct {
	ID         uint      `db:"id"`
	ChatID     int64     `db:"chat_id"`
	UserID     int64     `db:"user_id"`
	ApprovedAt time.Time `db:"approved_at"`
}

// TrackedChat is a chat whose admins receive statistics reports.
type TrackedChat struct {
	ChatID    int64     `db:"chat_id"`
	ChatType  string    `db:"chat_type"`
	Title     string    `db:"title"`
	TrackedAt time.Time `db:"tracked_at"`
}

// Period identifies a statistics window.
type Period string

// Statistics windows. Hourly and daily are reset after each report, total never.
const (
	PeriodHourly Period = "hourly"
	PeriodDaily  Period = "daily"
	PeriodTotal  Period = "total"
)

// AllPeriods lists every statistics window.
var AllPeriods = []Period{PeriodHourly, PeriodDaily, PeriodTotal}

// Counter names a column of stats_counters.
type Counter string

// Counters that can be incremented.
const (
	CounterRequests Counter = "requests"
	CounterApproved Counter = "approved"
	CounterLeft     Counter = "left_count"
)

// Counters holds the statistics of one window.
type Counters struct {
	Period          Period    `db:"period"`
	Requests        int64     `db:"requests"`
	Approved        int64     `db:"approved"`
	Left            int64     `db:"left_count"`
	WindowStartedAt time.Time `db:"window_started_at"`
}

// NetGrowth is the number of requests minus the number of members who left.
func (c Counters) NetGrowth() int64 {
	return c.Requests - c.Left
}

// IsEmpty reports whether nothing happened during the window.
func (c Counters) IsEmpty() bool {
	return c.Requests == 0 && c.Left == 0
}
