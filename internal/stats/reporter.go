package stats

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"golang.org/x/time/rate"

	"github.com/edgard/joinkeeper/internal/database"
	"github.com/edgard/joinkeeper/internal/errtrack"
	"github.com/edgard/joinkeeper/internal/metrics"
	"github.com/edgard/joinkeeper/internal/telegram"
)

// Private messages are paced below the Bot API broadcast limit of about
// 30 messages per second.
const (
	sendRate  = 20
	sendBurst = 5
)

// Reporter sends statistics reports to chat admins.
type Reporter struct {
	logger  *slog.Logger
	store   database.Store
	api     telegram.API
	metrics *metrics.Metrics
	botID   int64
	now     func() time.Time
	limiter *rate.Limiter
}

// NewReporter creates a Reporter. A nil now defaults to time.Now.
func NewReporter(logger *slog.Logger, store database.Store, api telegram.API, m *metrics.Metrics, botID int64, now func() time.Time) *Reporter {
	if logger == nil {
		logger = slog.Default()
	}
	if m == nil {
		m = metrics.NewLocal()
	}
	if now == nil {
		now = time.Now
	}
	return &Reporter{
		logger:  logger.With("component", "stats_reporter"),
		store:   store,
		api:     api,
		metrics: m,
		botID:   botID,
		now:     now,
		limiter: rate.NewLimiter(rate.Limit(sendRate), sendBurst),
	}
}

// SendHourly delivers the hourly report and restarts the hourly window.
// Only the reported numbers leave the window; events counted during delivery
// go into the next report.
// Nothing is sent when no request arrived and nobody left.
func (r *Reporter) SendHourly(ctx context.Context) error {
	hourly, err := r.store.GetCounters(ctx, database.PeriodHourly)
	if err != nil {
		return fmt.Errorf("failed to read hourly counters: %w", err)
	}
	if hourly.IsEmpty() {
		r.logger.DebugContext(ctx, "Hourly statistics empty, report skipped")
		return nil
	}

	sent := r.deliver(ctx, FormatHourly(*hourly, r.now()))
	r.metrics.ReportsSent.WithLabelValues(string(database.PeriodHourly)).Add(float64(sent))

	if err := r.store.ResetCounters(ctx, hourly); err != nil {
		return fmt.Errorf("failed to reset hourly counters: %w", err)
	}
	r.logger.InfoContext(ctx, "Hourly statistics sent", "recipients", sent)
	return nil
}

// SendDaily delivers the 8-hour report and restarts the daily window.
func (r *Reporter) SendDaily(ctx context.Context) error {
	daily, err := r.store.GetCounters(ctx, database.PeriodDaily)
	if err != nil {
		return fmt.Errorf("failed to read daily counters: %w", err)
	}
	total, err := r.store.GetCounters(ctx, database.PeriodTotal)
	if err != nil {
		return fmt.Errorf("failed to read total counters: %w", err)
	}

	sent := r.deliver(ctx, FormatDaily(*daily, *total, r.now()))
	r.metrics.ReportsSent.WithLabelValues(string(database.PeriodDaily)).Add(float64(sent))

	if err := r.store.ResetCounters(ctx, daily); err != nil {
		return fmt.Errorf("failed to reset daily counters: %w", err)
	}
	r.logger.InfoContext(ctx, "Daily statistics sent", "recipients", sent)
	return nil
}

// Current renders the numbers of every window without resetting them.
func (r *Reporter) Current(ctx context.Context) (string, error) {
	var counters [3]database.Counters
	for i, period := range database.AllPeriods {
		c, err := r.store.GetCounters(ctx, period)
		if err != nil {
			return "", fmt.Errorf("failed to read %s counters: %w", period, err)
		}
		counters[i] = *c
	}
	return FormatCurrent(counters[0], counters[1], counters[2], r.now()), nil
}

// IsAdminOfTrackedChat reports whether the user administrates at least one
// tracked chat.
func (r *Reporter) IsAdminOfTrackedChat(ctx context.Context, userID int64) (bool, error) {
	chats, err := r.store.ListTrackedChats(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to list tracked chats: %w", err)
	}
	for _, chat := range chats {
		m, err := r.api.GetChatMember(ctx, &bot.GetChatMemberParams{ChatID: chat.ChatID, UserID: userID})
		if err != nil {
			r.logger.DebugContext(ctx, "Failed to read chat member", "chat_id", chat.ChatID, "user_id", userID, "error", err)
			continue
		}
		if m != nil && telegram.IsAdmin(*m) {
			return true, nil
		}
	}
	return false, nil
}

// deliver sends text privately to every human admin of every tracked chat,
// once per admin, and returns the number of admins reached.
func (r *Reporter) deliver(ctx context.Context, text string) int {
	chats, err := r.store.ListTrackedChats(ctx)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to list tracked chats", "error", err)
		errtrack.CaptureError(err, map[string]string{"component": "stats", "operation": "list_chats"})
		return 0
	}
	if len(chats) == 0 {
		r.logger.WarnContext(ctx, "No tracked chats to send statistics for")
		return 0
	}

	sentTo := make(map[int64]struct{})
	for _, chat := range chats {
		log := r.logger.With("chat_id", chat.ChatID, "chat_type", chat.ChatType)

		if models.ChatType(chat.ChatType) == models.ChatTypeChannel && !r.botAdministrates(ctx, chat.ChatID) {
			log.DebugContext(ctx, "Bot is not an admin of channel, skipped")
			continue
		}

		admins, err := r.api.GetChatAdministrators(ctx, &bot.GetChatAdministratorsParams{ChatID: chat.ChatID})
		if err != nil {
			if telegram.IsAccessError(err) {
				log.WarnContext(ctx, "No access to chat, untracking", "error", err)
				if err := r.store.UntrackChat(ctx, chat.ChatID); err != nil {
					log.ErrorContext(ctx, "Failed to untrack chat", "error", err)
				}
				continue
			}
			log.ErrorContext(ctx, "Failed to list chat admins", "error", err)
			continue
		}

		for _, admin := range telegram.HumanAdmins(admins) {
			if _, done := sentTo[admin.ID]; done {
				continue
			}
			if err := r.limiter.Wait(ctx); err != nil {
				log.WarnContext(ctx, "Statistics delivery interrupted", "error", err)
				return len(sentTo)
			}
			if _, err := r.api.SendMessage(ctx, &bot.SendMessageParams{ChatID: admin.ID, Text: text}); err != nil {
				log.WarnContext(ctx, "Failed to send statistics to admin", "admin_id", admin.ID, "error", err)
				continue
			}
			sentTo[admin.ID] = struct{}{}
			log.DebugContext(ctx, "Statistics sent to admin", "admin_id", admin.ID)
		}
	}
	return len(sentTo)
}

func (r *Reporter) botAdministrates(ctx context.Context, chatID int64) bool {
	m, err := r.api.GetChatMember(ctx, &bot.GetChatMemberParams{ChatID: chatID, UserID: r.botID})
	if err != nil || m == nil {
		return false
	}
	return telegram.IsAdmin(*m)
}
