package membership

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/joinkeeper/internal/database"
	"github.com/edgard/joinkeeper/internal/telegram"
	"github.com/edgard/joinkeeper/internal/text"
)

// AdminNotice renders the message sent to admins about a new join request.
func AdminNotice(req *database.JoinRequest, delayMinutes int) string {
	username := req.Username
	if username == "" {
		username = "не указан"
	}
	name := text.FullName(req.FirstName, req.LastName)
	if name == "" {
		name = "не указано"
	}

	var sb strings.Builder
	sb.WriteString("📝 Новая заявка на вступление:\n")
	fmt.Fprintf(&sb, "👤 Пользователь: %s\n", name)
	fmt.Fprintf(&sb, "🆔 ID: %d\n", req.UserID)
	fmt.Fprintf(&sb, "👤 Username: %s\n", username)
	fmt.Fprintf(&sb, "⏰ Автоматическое одобрение через %d минут", delayMinutes)
	return sb.String()
}

// firstName is the cleaned first name, or a neutral word when nothing printable is left.
func firstName(user *models.User) string {
	if name := text.CleanName(user.FirstName); name != "" {
		return name
	}
	return "участник"
}

// WelcomeText renders the Markdown welcome for a user. Channels get a plain
// greeting, groups a mention.
func WelcomeText(chatType models.ChatType, user *models.User, welcome string) string {
	name := firstName(user)
	if chatType == models.ChatTypeChannel {
		return fmt.Sprintf("🎉 Добро пожаловать, %s! %s", text.EscapeMarkdown(name), welcome)
	}
	mention := text.EntityText(name)
	if mention == "" {
		mention = "участник"
	}
	return fmt.Sprintf("[%s](tg://user?id=%d), %s", mention, user.ID, welcome)
}

// PlainWelcomeText is the fallback used when the formatted welcome is rejected.
func PlainWelcomeText(user *models.User, welcome string) string {
	return fmt.Sprintf("Добро пожаловать, %s! %s", firstName(user), welcome)
}

func (s *Service) notifyAdmins(ctx context.Context, req *database.JoinRequest) {
	log := s.logger.With("chat_id", req.ChatID, "user_id", req.UserID)

	admins, err := s.api.GetChatAdministrators(ctx, &bot.GetChatAdministratorsParams{ChatID: req.ChatID})
	if err != nil {
		log.ErrorContext(ctx, "Failed to list chat admins for notification", "error", err)
		return
	}

	text := AdminNotice(req, int(s.cfg.Approval.Delay.Minutes()))
	sent := 0
	for _, admin := range telegram.HumanAdmins(admins) {
		if _, err := s.api.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: admin.ID,
			Text:   text,
		}); err != nil {
			log.WarnContext(ctx, "Failed to notify admin", "admin_id", admin.ID, "error", err)
			continue
		}
		sent++
	}
	s.metrics.AdminNotices.Add(float64(sent))
	log.DebugContext(ctx, "Admins notified about join request", "count", sent)
}

func (s *Service) sendWelcome(ctx context.Context, chat models.Chat, user *models.User) {
	log := s.logger.With("chat_id", chat.ID, "user_id", user.ID)

	self, err := s.api.GetChatMember(ctx, &bot.GetChatMemberParams{ChatID: chat.ID, UserID: s.botID})
	if err != nil {
		log.WarnContext(ctx, "Failed to check bot permissions", "error", err)
		return
	}
	if self == nil || !telegram.CanPost(*self, chat.Type) {
		log.WarnContext(ctx, "Bot cannot post in chat, welcome skipped")
		return
	}

	welcome := s.cfg.Messages.Welcome
	_, err = s.api.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chat.ID,
		Text:      WelcomeText(chat.Type, user, welcome),
		ParseMode: models.ParseModeMarkdownV1,
	})
	if err == nil {
		s.metrics.WelcomeMessages.Inc()
		log.InfoContext(ctx, "Welcome message sent", "first_name", user.FirstName)
		return
	}
	log.ErrorContext(ctx, "Failed to send welcome message", "error", err)

	if _, err := s.api.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chat.ID,
		Text:   PlainWelcomeText(user, welcome),
	}); err != nil {
		log.ErrorContext(ctx, "Failed to send plain welcome message", "error", err)
		return
	}
	s.metrics.WelcomeMessages.Inc()
	log.InfoContext(ctx, "Plain welcome message sent", "first_name", user.FirstName)
}
