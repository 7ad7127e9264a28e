package handlers

import (
	"context"
	"log/slog"

	"github.com/go-telegram/bot/models"

	"github.com/edgard/joinkeeper/internal/config"
)

// Membership handles join requests and member status changes.
type Membership interface {
	HandleJoinRequest(ctx context.Context, req *models.ChatJoinRequest) error
	HandleMemberUpdate(ctx context.Context, upd *models.ChatMemberUpdated) error
}

// Stats answers statistics queries.
type Stats interface {
	Current(ctx context.Context) (string, error)
	IsAdminOfTrackedChat(ctx context.Context, userID int64) (bool, error)
}

// HandlerDeps provides dependencies for Telegram update handlers.
type HandlerDeps struct {
	Logger     *slog.Logger
	Config     *config.Config
	Membership Membership
	Stats      Stats
}
