package handlers

import (
	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/joinkeeper/internal/telegram"
)

// Commands returns the command list published to Telegram clients.
func Commands() []models.BotCommand {
	return []models.BotCommand{
		{Command: "start", Description: "информация о боте"},
		{Command: "help", Description: "список команд"},
		{Command: "stats", Description: "получить статистику по всем каналам"},
	}
}

// RegisterAllHandlers returns every update and command handler with its
// routing and middleware.
func RegisterAllHandlers(deps HandlerDeps) []telegram.Handler {
	privateOnly := PrivateOnly(deps)

	return []telegram.Handler{
		{
			Name:    "join_request",
			Match:   IsJoinRequest,
			Handler: NewJoinRequestHandler(deps),
		},
		{
			Name:    "chat_member",
			Match:   IsChatMemberUpdate,
			Handler: NewChatMemberHandler(deps),
		},
		{
			Name:        "/start",
			HandlerType: tgbot.HandlerTypeMessageText,
			Pattern:     "start",
			MatchType:   tgbot.MatchTypeCommandStartOnly,
			Handler:     NewStartHandler(deps),
			Middleware:  []tgbot.Middleware{privateOnly},
		},
		{
			Name:        "/help",
			HandlerType: tgbot.HandlerTypeMessageText,
			Pattern:     "help",
			MatchType:   tgbot.MatchTypeCommandStartOnly,
			Handler:     NewHelpHandler(deps),
			Middleware:  []tgbot.Middleware{privateOnly},
		},
		{
			Name:        "/stats",
			HandlerType: tgbot.HandlerTypeMessageText,
			Pattern:     "stats",
			MatchType:   tgbot.MatchTypeCommandStartOnly,
			Handler:     NewStatsHandler(deps),
			Middleware:  []tgbot.Middleware{privateOnly, TrackedChatAdminOnly(deps)},
		},
	}
}
