// Package membership implements join request moderation: recording requests,
// approving them after a delay, notifying chat admins, welcoming approved
// users once they join and counting members who leave.
package membership

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/joinkeeper/internal/config"
	"github.com/edgard/joinkeeper/internal/database"
	"github.com/edgard/joinkeeper/internal/errtrack"
	"github.com/edgard/joinkeeper/internal/metrics"
	"github.com/edgard/joinkeeper/internal/resilience"
	"github.com/edgard/joinkeeper/internal/telegram"
)

// JobScheduler runs named one-shot jobs. Scheduling a name that already
// exists replaces the previous job.
type JobScheduler interface {
	ScheduleOnce(name string, at time.Time, fn func(ctx context.Context) error) error
	Cancel(name string)
}

// Deps contains the collaborators of the Service.
type Deps struct {
	Logger    *slog.Logger
	Config    *config.Config
	Store     database.Store
	API       telegram.API
	Scheduler JobScheduler
	Metrics   *metrics.Metrics
	BotID     int64
	Now       func() time.Time
	// Retry governs approval calls. The zero value means resilience.DefaultRetryConfig.
	Retry resilience.RetryConfig
}

// Service moderates join requests and membership changes.
type Service struct {
	logger  *slog.Logger
	cfg     *config.Config
	store   database.Store
	api     telegram.API
	sched   JobScheduler
	metrics *metrics.Metrics
	botID   int64
	now     func() time.Time
	retry   resilience.RetryConfig
}

// NewService creates a Service from its dependencies.
func NewService(deps Deps) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	m := deps.Metrics
	if m == nil {
		m = metrics.NewLocal()
	}
	retry := deps.Retry
	if retry.MaxAttempts == 0 {
		retry = resilience.DefaultRetryConfig()
	}
	if retry.Permanent == nil {
		retry.Permanent = telegram.IsAccessError
	}
	return &Service{
		logger:  logger.With("component", "membership"),
		cfg:     deps.Config,
		store:   deps.Store,
		api:     deps.API,
		sched:   deps.Scheduler,
		metrics: m,
		botID:   deps.BotID,
		now:     now,
		retry:   retry,
	}
}

// ApprovalJobName names the one-shot job approving a user in a chat.
func ApprovalJobName(userID, chatID int64) string {
	return "approve_" + strconv.FormatInt(userID, 10) + "_" + strconv.FormatInt(chatID, 10)
}

// HandleJoinRequest records a join request, schedules its approval and
// notifies the chat admins.
func (s *Service) HandleJoinRequest(ctx context.Context, req *models.ChatJoinRequest) error {
	if req == nil {
		return nil
	}
	chat := req.Chat
	user := req.From
	log := s.logger.With("chat_id", chat.ID, "user_id", user.ID, "chat_type", string(chat.Type))

	log.InfoContext(ctx, "Join request received", "first_name", user.FirstName)

	if !telegram.IsManagedChat(chat.Type) {
		log.WarnContext(ctx, "Unsupported chat type for join request")
		return nil
	}

	s.metrics.JoinRequests.Inc()
	if err := s.store.IncrementCounter(ctx, database.CounterRequests, 1); err != nil {
		log.ErrorContext(ctx, "Failed to count join request", "error", err)
	}

	if err := s.store.TrackChat(ctx, &database.TrackedChat{
		ChatID:   chat.ID,
		ChatType: string(chat.Type),
		Title:    chat.Title,
	}); err != nil {
		log.ErrorContext(ctx, "Failed to track chat", "error", err)
	}

	now := s.now().UTC()
	pending := &database.JoinRequest{
		ChatID:      chat.ID,
		UserID:      user.ID,
		ChatType:    string(chat.Type),
		FirstName:   user.FirstName,
		LastName:    user.LastName,
		Username:    user.Username,
		RequestedAt: now,
		ApproveAt:   now.Add(s.cfg.Approval.Delay),
	}
	if err := s.store.SaveJoinRequest(ctx, pending); err != nil {
		return fmt.Errorf("failed to save join request: %w", err)
	}
	s.refreshPendingGauge(ctx)

	if err := s.scheduleApproval(pending); err != nil {
		log.ErrorContext(ctx, "Failed to schedule automatic approval", "error", err)
		errtrack.CaptureError(err, map[string]string{"component": "membership", "operation": "schedule_approval"})
	} else {
		log.InfoContext(ctx, "Automatic approval scheduled", "delay", s.cfg.Approval.Delay, "approve_at", pending.ApproveAt)
	}

	if s.cfg.Approval.NotifyAdmins {
		s.notifyAdmins(ctx, pending)
	}
	return nil
}

func (s *Service) scheduleApproval(req *database.JoinRequest) error {
	at := req.ApproveAt
	if now := s.now(); at.Before(now) {
		at = now
	}
	chatID, userID := req.ChatID, req.UserID
	return s.sched.ScheduleOnce(ApprovalJobName(userID, chatID), at, func(ctx context.Context) error {
		return s.ApprovePending(ctx, chatID, userID)
	})
}

// RestorePending reschedules the approvals of requests stored before a restart.
// Overdue requests are approved right away.
func (s *Service) RestorePending(ctx context.Context) (int, error) {
	reqs, err := s.store.ListJoinRequests(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list pending join requests: %w", err)
	}

	restored := 0
	for _, req := range reqs {
		if err := s.scheduleApproval(req); err != nil {
			s.logger.ErrorContext(ctx, "Failed to reschedule approval",
				"chat_id", req.ChatID, "user_id", req.UserID, "error", err)
			continue
		}
		restored++
	}
	s.metrics.PendingRequests.Set(float64(len(reqs)))

	s.logger.InfoContext(ctx, "Pending join requests restored", "count", restored, "stored", len(reqs))
	return restored, nil
}

// ApprovePending approves a stored join request. It is the body of the
// scheduled approval job and is a no-op when the request is gone.
func (s *Service) ApprovePending(ctx context.Context, chatID, userID int64) error {
	log := s.logger.With("chat_id", chatID, "user_id", userID)

	req, err := s.store.GetJoinRequest(ctx, chatID, userID)
	if errors.Is(err, database.ErrNotFound) {
		log.InfoContext(ctx, "Join request already processed")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load join request: %w", err)
	}

	// Recorded before the call: the member update caused by the approval
	// can arrive before the call returns.
	if err := s.store.MarkApproved(ctx, chatID, userID); err != nil {
		return fmt.Errorf("failed to record approval: %w", err)
	}

	apiErr := resilience.WithRetry(ctx, func(ctx context.Context) error {
		_, err := s.api.ApproveChatJoinRequest(ctx, &bot.ApproveChatJoinRequestParams{
			ChatID: chatID,
			UserID: userID,
		})
		return err
	}, s.retry)
	if apiErr != nil {
		s.metrics.ApprovalFailures.Inc()
		log.ErrorContext(ctx, "Failed to approve join request", "error", apiErr)
		errtrack.CaptureError(apiErr, map[string]string{"component": "membership", "operation": "approve"})

		// The pending record is already gone; stale requests are rejected for good.
		if _, err := s.store.ConsumeApproved(ctx, chatID, userID); err != nil {
			log.ErrorContext(ctx, "Failed to roll back approval record", "error", err)
		}
		s.refreshPendingGauge(ctx)
		return fmt.Errorf("failed to approve join request: %w", apiErr)
	}

	if err := s.store.IncrementCounter(ctx, database.CounterApproved, 1); err != nil {
		log.ErrorContext(ctx, "Failed to count approval", "error", err)
	}
	s.metrics.Approvals.Inc()
	s.refreshPendingGauge(ctx)

	log.InfoContext(ctx, "Join request approved automatically", "first_name", req.FirstName)
	return nil
}

// HandleMemberUpdate welcomes users approved by the bot once they become
// members and counts members who leave.
func (s *Service) HandleMemberUpdate(ctx context.Context, upd *models.ChatMemberUpdated) error {
	if upd == nil {
		return nil
	}
	chat := upd.Chat
	log := s.logger.With("chat_id", chat.ID, "chat_type", string(chat.Type))

	if err := s.store.TrackChat(ctx, &database.TrackedChat{
		ChatID:   chat.ID,
		ChatType: string(chat.Type),
		Title:    chat.Title,
	}); err != nil {
		log.ErrorContext(ctx, "Failed to track chat", "error", err)
	}

	user := telegram.MemberUser(upd.NewChatMember)
	if user == nil {
		log.WarnContext(ctx, "Chat member update without user")
		return nil
	}
	log = log.With("user_id", user.ID)

	wasPresent := telegram.IsPresent(upd.OldChatMember)
	isPresent := telegram.IsPresent(upd.NewChatMember)

	switch {
	case !wasPresent && isPresent:
		// Joined before the delay elapsed, e.g. approved by an admin by hand.
		if dropped, err := s.store.DeleteJoinRequest(ctx, chat.ID, user.ID); err != nil {
			log.ErrorContext(ctx, "Failed to drop pending join request", "error", err)
		} else if dropped {
			s.sched.Cancel(ApprovalJobName(user.ID, chat.ID))
			s.refreshPendingGauge(ctx)
			log.InfoContext(ctx, "Pending join request resolved outside the bot")
		}

		approved, err := s.store.ConsumeApproved(ctx, chat.ID, user.ID)
		if err != nil {
			return fmt.Errorf("failed to check approved user: %w", err)
		}
		if !approved {
			log.DebugContext(ctx, "Member joined without bot approval, no welcome")
			return nil
		}
		s.sendWelcome(ctx, chat, user)

	case wasPresent && !isPresent:
		if err := s.store.IncrementCounter(ctx, database.CounterLeft, 1); err != nil {
			log.ErrorContext(ctx, "Failed to count member leaving", "error", err)
		}
		s.metrics.MembersLeft.Inc()
		log.InfoContext(ctx, "Member left chat", "first_name", user.FirstName, "new_status", string(upd.NewChatMember.Type))
	}
	return nil
}

func (s *Service) refreshPendingGauge(ctx context.Context) {
	count, err := s.store.CountJoinRequests(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to count pending join requests", "error", err)
		return
	}
	s.metrics.PendingRequests.Set(float64(count))
}
