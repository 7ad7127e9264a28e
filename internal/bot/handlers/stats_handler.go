package handlers

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/joinkeeper/internal/errtrack"
)

// NewStatsHandler returns a handler for the /stats command.
func NewStatsHandler(deps HandlerDeps) bot.HandlerFunc {
	return statsHandler{deps}.Handle
}

type statsHandler struct {
	deps HandlerDeps
}

func (h statsHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "stats")

	if update.Message == nil || update.Message.From == nil {
		log.WarnContext(ctx, "Stats handler received update with nil message or sender", "update_id", update.ID)
		return
	}
	chatID := update.Message.Chat.ID

	log.InfoContext(ctx, "Handling /stats command", "chat_id", chatID, "user_id", update.Message.From.ID)

	text, err := h.deps.Stats.Current(ctx)
	if err != nil {
		log.ErrorContext(ctx, "Failed to read statistics", "error", err)
		errtrack.CaptureError(err, map[string]string{"component": "handlers", "handler": "stats"})
		text = "❌ Не удалось получить статистику, попробуйте позже."
	}

	if _, err := b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text}); err != nil {
		log.ErrorContext(ctx, "Failed to send statistics", "error", err, "chat_id", chatID)
	}
}
