// Package logger provides structured logging for joinkeeper.
// It uses Go's slog package with configurable levels and formats.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewLogger creates a new slog Logger writing to stdout with the specified
// level and format and installs it as the default logger.
func NewLogger(levelStr string, jsonOutput bool) *slog.Logger {
	logger := New(os.Stdout, levelStr, jsonOutput)
	slog.SetDefault(logger)
	return logger
}

// New creates a slog Logger writing to w. Unknown levels fall back to info.
func New(w io.Writer, levelStr string, jsonOutput bool) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: ParseLevel(levelStr),
	}

	var handler slog.Handler
	if jsonOutput {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(levelStr string) slog.Level {
	switch levelStr {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Middleware creates a logging middleware for the Telegram bot.
// It logs the kind of each incoming update along with the chat and user it concerns.
func Middleware(log *slog.Logger) bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, update *models.Update) {
			startTime := time.Now()

			updateType, attrs := describeUpdate(update)
			logEntry := log.With("update_id", update.ID, "update_type", updateType).With(attrs...)

			logEntry.DebugContext(ctx, "Processing update")

			next(ctx, b, update)

			logEntry.InfoContext(ctx, "Finished processing update", "duration", time.Since(startTime))
		}
	}
}

// describeUpdate returns the update type and the log attributes relevant to it.
func describeUpdate(update *models.Update) (string, []any) {
	switch {
	case update.Message != nil:
		attrs := []any{
			"message_id", update.Message.ID,
			"chat_id", update.Message.Chat.ID,
			"text_preview", truncateString(update.Message.Text, 50),
		}
		if update.Message.From != nil {
			attrs = append(attrs, "user_id", update.Message.From.ID)
		}
		return "message", attrs
	case update.ChatJoinRequest != nil:
		return "chat_join_request", []any{
			"chat_id", update.ChatJoinRequest.Chat.ID,
			"chat_type", string(update.ChatJoinRequest.Chat.Type),
			"user_id", update.ChatJoinRequest.From.ID,
		}
	case update.ChatMember != nil:
		return "chat_member", []any{
			"chat_id", update.ChatMember.Chat.ID,
			"old_status", string(update.ChatMember.OldChatMember.Type),
			"new_status", string(update.ChatMember.NewChatMember.Type),
		}
	case update.MyChatMember != nil:
		return "my_chat_member", []any{
			"chat_id", update.MyChatMember.Chat.ID,
			"new_status", string(update.MyChatMember.NewChatMember.Type),
		}
	case update.CallbackQuery != nil:
		return "callback_query", []any{
			"callback_query_id", update.CallbackQuery.ID,
			"user_id", update.CallbackQuery.From.ID,
		}
	default:
		return "other", nil
	}
}

// truncateString shortens s to maxLen runes, ending with "..." when cut.
func truncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return "..."
	}
	return string(runes[:maxLen-3]) + "..."
}
