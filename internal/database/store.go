package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Store defines the interface for database operations.
// Methods accept context.Context for cancellation and timeouts.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// SaveJoinRequest inserts a pending request or replaces the one stored for
	// the same chat and user.
	SaveJoinRequest(ctx context.Context, req *JoinRequest) error

	// GetJoinRequest returns the pending request for a chat and user, or ErrNotFound.
	GetJoinRequest(ctx context.Context, chatID, userID int64) (*JoinRequest, error)

	// DeleteJoinRequest removes a pending request and reports whether it existed.
	DeleteJoinRequest(ctx context.Context, chatID, userID int64) (bool, error)

	// ListJoinRequests returns every pending request ordered by approval time.
	ListJoinRequests(ctx context.Context) ([]*JoinRequest, error)

	// CountJoinRequests returns the number of pending requests.
	CountJoinRequests(ctx context.Context) (int, error)

	// MarkApproved moves a pending request to the approved users in one transaction.
	MarkApproved(ctx context.Context, chatID, userID int64) error

	// ConsumeApproved removes an approved user record and reports whether it existed.
	ConsumeApproved(ctx context.Context, chatID, userID int64) (bool, error)

	// TrackChat inserts or refreshes a tracked chat.
	TrackChat(ctx context.Context, chat *TrackedChat) error

	// UntrackChat stops tracking a chat.
	UntrackChat(ctx context.Context, chatID int64) error

	// ListTrackedChats returns all tracked chats ordered by id.
	ListTrackedChats(ctx context.Context) ([]*TrackedChat, error)

	// IncrementCounter adds delta to a counter in every statistics window.
	IncrementCounter(ctx context.Context, counter Counter, delta int64) error

	// GetCounters returns the counters of one window.
	GetCounters(ctx context.Context, period Period) (*Counters, error)

	// ResetCounters subtracts a reported snapshot from its window and restarts
	// the window at the current time. Counts added after the snapshot was read
	// stay in the window.
	ResetCounters(ctx context.Context, reported *Counters) error

	// RunSQLMaintenance performs database maintenance tasks like VACUUM.
	RunSQLMaintenance(ctx context.Context) error
}

// sqlxStore provides an implementation of the Store interface using sqlx.
type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
	now    func() time.Time
}

// NewStore creates a new Store implementation backed by sqlx.
// It requires a connected sqlx.DB instance and a logger.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Ping checks the database connection.
func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// withTx runs fn inside a transaction, committing on success and rolling back otherwise.
func (s *sqlxStore) withTx(ctx context.Context, op string, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to begin transaction", "operation", op, "error", err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if tx != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
				s.logger.WarnContext(ctx, "Error rolling back transaction", "operation", op, "error", rollbackErr)
			}
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		s.logger.ErrorContext(ctx, "Failed to commit transaction", "operation", op, "error", err)
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	// Successfully committed, set tx to nil to avoid rollback
	tx = nil
	return nil
}

func (s *sqlxStore) SaveJoinRequest(ctx context.Context, req *JoinRequest) error {
	if req == nil {
		return fmt.Errorf("cannot save nil join request")
	}
	if req.ChatID == 0 || req.UserID == 0 {
		return fmt.Errorf("join request must have non-zero chat_id and user_id")
	}
	if req.RequestedAt.IsZero() {
		req.RequestedAt = s.now()
	}
	if req.ApproveAt.IsZero() {
		req.ApproveAt = req.RequestedAt
	}

	query := `
        INSERT INTO join_requests (chat_id, user_id, chat_type, first_name, last_name, username, requested_at, approve_at)
        VALUES (:chat_id, :user_id, :chat_type, :first_name, :last_name, :username, :requested_at, :approve_at)
        ON CONFLICT (chat_id, user_id) DO UPDATE SET
            chat_type = excluded.chat_type,
            first_name = excluded.first_name,
            last_name = excluded.last_name,
            username = excluded.username,
            requested_at = excluded.requested_at,
            approve_at = excluded.approve_at;
    `
	if _, err := s.db.NamedExecContext(ctx, query, req); err != nil {
		s.logger.ErrorContext(ctx, "Error saving join request", "chat_id", req.ChatID, "user_id", req.UserID, "error", err)
		return fmt.Errorf("failed to save join request (chat %d, user %d): %w", req.ChatID, req.UserID, err)
	}

	s.logger.DebugContext(ctx, "Join request saved", "chat_id", req.ChatID, "user_id", req.UserID, "approve_at", req.ApproveAt)
	return nil
}

func (s *sqlxStore) GetJoinRequest(ctx context.Context, chatID, userID int64) (*JoinRequest, error) {
	var req JoinRequest
	err := s.db.GetContext(ctx, &req, `
        SELECT id, chat_id, user_id, chat_type, first_name, last_name, username, requested_at, approve_at
        FROM join_requests
        WHERE chat_id = ? AND user_id = ?;
    `, chatID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get join request (chat %d, user %d): %w", chatID, userID, err)
	}
	return &req, nil
}

func (s *sqlxStore) DeleteJoinRequest(ctx context.Context, chatID, userID int64) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM join_requests WHERE chat_id = ? AND user_id = ?;`, chatID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to delete join request (chat %d, user %d): %w", chatID, userID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return affected > 0, nil
}

func (s *sqlxStore) ListJoinRequests(ctx context.Context) ([]*JoinRequest, error) {
	var reqs []*JoinRequest
	err := s.db.SelectContext(ctx, &reqs, `
        SELECT id, chat_id, user_id, chat_type, first_name, last_name, username, requested_at, approve_at
        FROM join_requests
        ORDER BY approve_at ASC, id ASC;
    `)
	if err != nil {
		return nil, fmt.Errorf("failed to list join requests: %w", err)
	}
	return reqs, nil
}

func (s *sqlxStore) CountJoinRequests(ctx context.Context) (int, error) {
	var count int
	if err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM join_requests;`); err != nil {
		return 0, fmt.Errorf("failed to count join requests: %w", err)
	}
	return count, nil
}

func (s *sqlxStore) MarkApproved(ctx context.Context, chatID, userID int64) error {
	return s.withTx(ctx, "mark_approved", func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM join_requests WHERE chat_id = ? AND user_id = ?;`, chatID, userID); err != nil {
			return fmt.Errorf("failed to delete join request: %w", err)
		}
		_, err := tx.ExecContext(ctx, `
            INSERT INTO approved_users (chat_id, user_id, approved_at) VALUES (?, ?, ?)
            ON CONFLICT (chat_id, user_id) DO UPDATE SET approved_at = excluded.approved_at;
        `, chatID, userID, s.now())
		if err != nil {
			return fmt.Errorf("failed to record approved user: %w", err)
		}
		return nil
	})
}

func (s *sqlxStore) ConsumeApproved(ctx context.Context, chatID, userID int64) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM approved_users WHERE chat_id = ? AND user_id = ?;`, chatID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to consume approved user (chat %d, user %d): %w", chatID, userID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return affected > 0, nil
}

func (s *sqlxStore) TrackChat(ctx context.Context, chat *TrackedChat) error {
	if chat == nil || chat.ChatID == 0 {
		return fmt.Errorf("tracked chat must have a non-zero chat_id")
	}
	if chat.TrackedAt.IsZero() {
		chat.TrackedAt = s.now()
	}

	// Keep known type and title when an update carries less information.
	query := `
        INSERT INTO tracked_chats (chat_id, chat_type, title, tracked_at)
        VALUES (:chat_id, :chat_type, :title, :tracked_at)
        ON CONFLICT (chat_id) DO UPDATE SET
            chat_type = CASE WHEN excluded.chat_type != '' THEN excluded.chat_type ELSE tracked_chats.chat_type END,
            title = CASE WHEN excluded.title != '' THEN excluded.title ELSE tracked_chats.title END;
    `
	if _, err := s.db.NamedExecContext(ctx, query, chat); err != nil {
		return fmt.Errorf("failed to track chat %d: %w", chat.ChatID, err)
	}
	return nil
}

func (s *sqlxStore) UntrackChat(ctx context.Context, chatID int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM tracked_chats WHERE chat_id = ?;`, chatID); err != nil {
		return fmt.Errorf("failed to untrack chat %d: %w", chatID, err)
	}
	s.logger.InfoContext(ctx, "Chat untracked", "chat_id", chatID)
	return nil
}

func (s *sqlxStore) ListTrackedChats(ctx context.Context) ([]*TrackedChat, error) {
	var chats []*TrackedChat
	err := s.db.SelectContext(ctx, &chats, `
        SELECT chat_id, chat_type, title, tracked_at FROM tracked_chats ORDER BY chat_id ASC;
    `)
	if err != nil {
		return nil, fmt.Errorf("failed to list tracked chats: %w", err)
	}
	return chats, nil
}

func (s *sqlxStore) IncrementCounter(ctx context.Context, counter Counter, delta int64) error {
	var query string
	switch counter {
	case CounterRequests:
		query = `UPDATE stats_counters SET requests = requests + ?;`
	case CounterApproved:
		query = `UPDATE stats_counters SET approved = approved + ?;`
	case CounterLeft:
		query = `UPDATE stats_counters SET left_count = left_count + ?;`
	default:
		return fmt.Errorf("unknown counter %q", counter)
	}

	if _, err := s.db.ExecContext(ctx, query, delta); err != nil {
		return fmt.Errorf("failed to increment counter %s: %w", counter, err)
	}
	return nil
}

func (s *sqlxStore) GetCounters(ctx context.Context, period Period) (*Counters, error) {
	var c Counters
	err := s.db.GetContext(ctx, &c, `
        SELECT period, requests, approved, left_count, window_started_at
        FROM stats_counters WHERE period = ?;
    `, string(period))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s counters: %w", period, err)
	}
	return &c, nil
}

func (s *sqlxStore) ResetCounters(ctx context.Context, reported *Counters) error {
	if reported == nil {
		return fmt.Errorf("no counters to reset")
	}
	period := reported.Period
	if period == PeriodTotal {
		return fmt.Errorf("total counters cannot be reset")
	}
	result, err := s.db.ExecContext(ctx, `
        UPDATE stats_counters SET
            requests = MAX(requests - ?, 0),
            approved = MAX(approved - ?, 0),
            left_count = MAX(left_count - ?, 0),
            window_started_at = ?
        WHERE period = ?;
    `, reported.Requests, reported.Approved, reported.Left, s.now(), string(period))
	if err != nil {
		return fmt.Errorf("failed to reset %s counters: %w", period, err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	s.logger.DebugContext(ctx, "Counters reset", "period", period)
	return nil
}

// RunSQLMaintenance executes a VACUUM command on the SQLite database.
func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	if ctx.Err() != nil {
		s.logger.WarnContext(ctx, "Context cancelled or timed out before starting VACUUM", "error", ctx.Err())
		return ctx.Err()
	}

	s.logger.InfoContext(ctx, "Starting database maintenance (VACUUM)...")

	// Stale approvals are users who never joined after being approved.
	cutoff := s.now().Add(-30 * 24 * time.Hour)
	if result, err := s.db.ExecContext(ctx, `DELETE FROM approved_users WHERE approved_at < ?;`, cutoff); err != nil {
		s.logger.WarnContext(ctx, "Failed to prune stale approved users", "error", err)
	} else if n, err := result.RowsAffected(); err == nil && n > 0 {
		s.logger.InfoContext(ctx, "Pruned stale approved users", "count", n)
	}

	_, err := s.db.ExecContext(ctx, "VACUUM;")

	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.logger.WarnContext(ctx, "VACUUM operation timed out or was cancelled", "error", err)
		return fmt.Errorf("database maintenance (VACUUM) timed out: %w", err)

	case err != nil:
		s.logger.ErrorContext(ctx, "Database maintenance (VACUUM) failed", "error", err)
		return fmt.Errorf("failed to execute VACUUM: %w", err)

	default:
		s.logger.InfoContext(ctx, "Database maintenance (VACUUM) completed successfully")
	}

	return nil
}
