// Package handlers contains the Telegram update and command handlers,
// along with their registration logic and middleware.
package handlers

import (
	"context"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// TrackedChatAdminOnly creates a middleware that lets through only senders
// who administrate at least one tracked chat. Others get the configured
// refusal and processing stops.
func TrackedChatAdminOnly(deps HandlerDeps) tgbot.Middleware {
	return func(next tgbot.HandlerFunc) tgbot.HandlerFunc {
		return func(ctx context.Context, bot *tgbot.Bot, update *models.Update) {
			if update.Message == nil || update.Message.From == nil {
				return
			}

			userID := update.Message.From.ID
			chatID := update.Message.Chat.ID
			log := deps.Logger.With("middleware", "TrackedChatAdminOnly")

			isAdmin, err := deps.Stats.IsAdminOfTrackedChat(ctx, userID)
			if err != nil {
				log.ErrorContext(ctx, "Failed to check admin rights", "error", err, "user_id", userID)
			}

			if !isAdmin {
				log.WarnContext(ctx, "Unauthorized access attempt", "user_id", userID, "chat_id", chatID)

				_, err := bot.SendMessage(ctx, &tgbot.SendMessageParams{
					ChatID: chatID,
					Text:   deps.Config.Messages.StatsForbidden,
				})
				if err != nil {
					log.ErrorContext(ctx, "Failed to send unauthorized message", "error", err, "chat_id", chatID)
				}
				return
			}

			next(ctx, bot, update)
		}
	}
}

// PrivateOnly drops command messages sent outside private chats.
func PrivateOnly(deps HandlerDeps) tgbot.Middleware {
	return func(next tgbot.HandlerFunc) tgbot.HandlerFunc {
		return func(ctx context.Context, bot *tgbot.Bot, update *models.Update) {
			if update.Message == nil || update.Message.Chat.Type != models.ChatTypePrivate {
				deps.Logger.DebugContext(ctx, "Ignoring command outside private chat", "update_id", update.ID)
				return
			}
			next(ctx, bot, update)
		}
	}
}
