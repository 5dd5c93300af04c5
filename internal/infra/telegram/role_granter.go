package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"telegram-onboarding-bot/internal/domain/ports/adapter"
)

var (
	_ adapter.RoleGranter = (*ChatRoleGranter)(nil)
	_ adapter.RoleGranter = (*NoopRoleGranter)(nil)
)

// NoopRoleGranter is the dev-mode stand-in; it never touches Telegram.
type NoopRoleGranter struct{}

func (NoopRoleGranter) Grant(ctx context.Context, tgID int64) (adapter.RoleGrantResult, error) {
	return adapter.RoleNotConfigured, nil
}

// ChatRoleGranter promotes a member of the community chat from the
// restricted newcomer state to a full member by lifting the message
// restrictions applied on join. With no community chat configured it
// degrades to a no-op.
type ChatRoleGranter struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	log    *zerolog.Logger
}

func NewChatRoleGranter(bot *tgbotapi.BotAPI, communityChatID int64, logger *zerolog.Logger) *ChatRoleGranter {
	return &ChatRoleGranter{bot: bot, chatID: communityChatID, log: logger}
}

func (g *ChatRoleGranter) Grant(ctx context.Context, tgID int64) (adapter.RoleGrantResult, error) {
	if g.chatID == 0 {
		return adapter.RoleNotConfigured, nil
	}

	member, err := g.bot.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{
			ChatID: g.chatID,
			UserID: tgID,
		},
	})
	if err != nil {
		g.log.Warn().Err(err).Int64("tg_id", tgID).Msg("get chat member failed")
		return adapter.RoleGrantFailed, err
	}

	if member.Status != "restricted" {
		return adapter.RoleAlreadyHeld, nil
	}

	lift := tgbotapi.RestrictChatMemberConfig{
		ChatMemberConfig: tgbotapi.ChatMemberConfig{
			ChatID: g.chatID,
			UserID: tgID,
		},
		Permissions: &tgbotapi.ChatPermissions{
			CanSendMessages:       true,
			CanSendMediaMessages:  true,
			CanSendPolls:          true,
			CanSendOtherMessages:  true,
			CanAddWebPagePreviews: true,
			CanInviteUsers:        true,
		},
	}
	if _, err := g.bot.Request(lift); err != nil {
		g.log.Warn().Err(err).Int64("tg_id", tgID).Msg("lift restriction failed")
		return adapter.RoleGrantFailed, err
	}
	return adapter.RoleGranted, nil
}
