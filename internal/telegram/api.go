package telegram

import (
	"context"
	"errors"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// API is the subset of the Bot API used by the membership service and the
// statistics reporter.
type API interface {
	ApproveChatJoinRequest(ctx context.Context, params *bot.ApproveChatJoinRequestParams) (bool, error)
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	GetChatMember(ctx context.Context, params *bot.GetChatMemberParams) (*models.ChatMember, error)
	GetChatAdministrators(ctx context.Context, params *bot.GetChatAdministratorsParams) ([]models.ChatMember, error)
}

// Compile-time check that the real bot satisfies the interface.
var _ API = (*bot.Bot)(nil)

// IsAccessError reports whether err means the bot cannot reach a chat or user
// (blocked, kicked, chat gone).
func IsAccessError(err error) bool {
	return errors.Is(err, bot.ErrorForbidden) || errors.Is(err, bot.ErrorBadRequest)
}

// IsManagedChat reports whether join requests from this chat type are handled.
func IsManagedChat(chatType models.ChatType) bool {
	switch chatType {
	case models.ChatTypeGroup, models.ChatTypeSupergroup, models.ChatTypeChannel:
		return true
	default:
		return false
	}
}

// MemberUser returns the user a chat member entry describes.
func MemberUser(m models.ChatMember) *models.User {
	switch m.Type {
	case models.ChatMemberTypeOwner:
		if m.Owner != nil {
			return m.Owner.User
		}
	case models.ChatMemberTypeAdministrator:
		if m.Administrator != nil {
			return &m.Administrator.User
		}
	case models.ChatMemberTypeMember:
		if m.Member != nil {
			return m.Member.User
		}
	case models.ChatMemberTypeRestricted:
		if m.Restricted != nil {
			return m.Restricted.User
		}
	case models.ChatMemberTypeLeft:
		if m.Left != nil {
			return m.Left.User
		}
	case models.ChatMemberTypeBanned:
		if m.Banned != nil {
			return m.Banned.User
		}
	}
	return nil
}

// IsPresent reports whether the member is currently in the chat.
func IsPresent(m models.ChatMember) bool {
	switch m.Type {
	case models.ChatMemberTypeOwner, models.ChatMemberTypeAdministrator, models.ChatMemberTypeMember:
		return true
	case models.ChatMemberTypeRestricted:
		return m.Restricted != nil && m.Restricted.IsMember
	default:
		return false
	}
}

// IsAdmin reports whether the member administrates the chat.
func IsAdmin(m models.ChatMember) bool {
	return m.Type == models.ChatMemberTypeOwner || m.Type == models.ChatMemberTypeAdministrator
}

// CanPost reports whether a member (usually the bot itself) may send messages
// to a chat of the given type.
func CanPost(m models.ChatMember, chatType models.ChatType) bool {
	switch m.Type {
	case models.ChatMemberTypeOwner:
		return true
	case models.ChatMemberTypeAdministrator:
		if chatType == models.ChatTypeChannel {
			return m.Administrator != nil && m.Administrator.CanPostMessages
		}
		return true
	case models.ChatMemberTypeMember:
		return chatType != models.ChatTypeChannel
	case models.ChatMemberTypeRestricted:
		return m.Restricted != nil && m.Restricted.IsMember && m.Restricted.CanSendMessages
	default:
		return false
	}
}

// HumanAdmins returns the users behind admin entries, skipping bots.
func HumanAdmins(admins []models.ChatMember) []*models.User {
	users := make([]*models.User, 0, len(admins))
	for _, admin := range admins {
		u := MemberUser(admin)
		if u == nil || u.IsBot {
			continue
		}
		users = append(users, u)
	}
	return users
}
