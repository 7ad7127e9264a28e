// Package telegram wraps the go-telegram/bot client: construction, handler
// registration, webhook management and helpers for reading chat members.
package telegram

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/joinkeeper/internal/config"
)

// AllowedUpdates are the update kinds the bot subscribes to, both when
// polling and when registering a webhook.
var AllowedUpdates = []string{"message", "chat_join_request", "chat_member"}

// NewTelegramBot creates a new Telegram bot instance using the go-telegram/bot library.
func NewTelegramBot(token string, logger *slog.Logger, opts ...bot.Option) (*bot.Bot, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram bot token cannot be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With("component", "telegram_bot")

	opts = append([]bot.Option{bot.WithAllowedUpdates(bot.AllowedUpdates(AllowedUpdates))}, opts...)

	b, err := bot.New(token, opts...)
	if err != nil {
		log.Error("Failed to create Telegram bot instance", "error", err)
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	log.Info("Telegram bot instance created successfully", "token_prefix", config.RedactToken(token))
	return b, nil
}

// Handler describes one update handler. Updates are routed either by a
// command pattern or, when Match is set, by an arbitrary predicate.
type Handler struct {
	Name        string
	HandlerType bot.HandlerType
	Pattern     string
	MatchType   bot.MatchType
	Match       bot.MatchFunc
	Handler     bot.HandlerFunc
	Middleware  []bot.Middleware
}

// applyMiddleware wraps a handler function with a slice of middleware.
// Middleware are applied in reverse order so the first one in the slice is the outermost.
func applyMiddleware(handler bot.HandlerFunc, mw []bot.Middleware) bot.HandlerFunc {
	for i := len(mw) - 1; i >= 0; i-- {
		handler = mw[i](handler)
	}
	return handler
}

// RegisterHandlers registers the given handlers with the Telegram bot instance.
func RegisterHandlers(b *bot.Bot, logger *slog.Logger, handlers []Handler) error {
	if b == nil {
		return fmt.Errorf("bot instance cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With("component", "handler_registry")

	if len(handlers) == 0 {
		log.Warn("No handlers provided for registration.")
		return nil
	}

	for _, h := range handlers {
		if h.Handler == nil {
			log.Warn("Skipping registration for nil handler", "name", h.Name)
			continue
		}

		finalHandler := applyMiddleware(h.Handler, h.Middleware)
		if h.Match != nil {
			b.RegisterHandlerMatchFunc(h.Match, finalHandler)
		} else {
			b.RegisterHandler(h.HandlerType, h.Pattern, h.MatchType, finalHandler)
		}
		log.Debug("Registered handler", "name", h.Name, "pattern", h.Pattern, "middleware_count", len(h.Middleware))
	}

	log.Info("Registered Telegram handlers successfully", "count", len(handlers))
	return nil
}

// SetCommands publishes the command list shown by Telegram clients.
func SetCommands(ctx context.Context, b *bot.Bot, commands []models.BotCommand) error {
	if _, err := b.SetMyCommands(ctx, &bot.SetMyCommandsParams{Commands: commands}); err != nil {
		return fmt.Errorf("failed to set bot commands: %w", err)
	}
	return nil
}
