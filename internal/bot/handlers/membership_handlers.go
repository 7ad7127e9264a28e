package handlers

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/joinkeeper/internal/errtrack"
)

// IsJoinRequest matches chat_join_request updates.
func IsJoinRequest(update *models.Update) bool {
	return update.ChatJoinRequest != nil
}

// IsChatMemberUpdate matches chat_member updates.
func IsChatMemberUpdate(update *models.Update) bool {
	return update.ChatMember != nil
}

// NewJoinRequestHandler returns a handler passing join requests to the
// membership service.
func NewJoinRequestHandler(deps HandlerDeps) bot.HandlerFunc {
	log := deps.Logger.With("handler", "join_request")

	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		if update.ChatJoinRequest == nil {
			return
		}
		if err := deps.Membership.HandleJoinRequest(ctx, update.ChatJoinRequest); err != nil {
			log.ErrorContext(ctx, "Failed to handle join request", "error", err,
				"chat_id", update.ChatJoinRequest.Chat.ID, "user_id", update.ChatJoinRequest.From.ID)
			errtrack.CaptureError(err, map[string]string{"component": "handlers", "handler": "join_request"})
		}
	}
}

// NewChatMemberHandler returns a handler passing member status changes to
// the membership service.
func NewChatMemberHandler(deps HandlerDeps) bot.HandlerFunc {
	log := deps.Logger.With("handler", "chat_member")

	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		if update.ChatMember == nil {
			return
		}
		if err := deps.Membership.HandleMemberUpdate(ctx, update.ChatMember); err != nil {
			log.ErrorContext(ctx, "Failed to handle chat member update", "error", err,
				"chat_id", update.ChatMember.Chat.ID)
			errtrack.CaptureError(err, map[string]string{"component": "handlers", "handler": "chat_member"})
		}
	}
}
