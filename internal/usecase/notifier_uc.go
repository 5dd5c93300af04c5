package usecase

import (
	"context"
	"fmt"

	"telegram-onboarding-bot/internal/domain/model"
	"telegram-onboarding-bot/internal/domain/ports/adapter"

	"github.com/rs/zerolog"
)

var _ NotifierUseCase = (*adminNotifier)(nil)

// NotifierUseCase pushes operator-facing notices through the bot. All sends
// are best effort; a failed notice never fails the operation that produced it.
type NotifierUseCase interface {
	NotifyCompletion(ctx context.Context, rec *model.UserRecord)
}

type adminNotifier struct {
	bot      adapter.TelegramBotAdapter
	adminIDs []int64
	log      *zerolog.Logger
}

func NewAdminNotifier(bot adapter.TelegramBotAdapter, adminIDs []int64, logger *zerolog.Logger) *adminNotifier {
	return &adminNotifier{bot: bot, adminIDs: adminIDs, log: logger}
}

// NotifyCompletion tells every configured admin about a finished onboarding.
func (n *adminNotifier) NotifyCompletion(ctx context.Context, rec *model.UserRecord) {
	if n.bot == nil || len(n.adminIDs) == 0 || rec == nil {
		return
	}
	text := fmt.Sprintf("New onboarding completed: %s (%d) from %s\nInterests: %s\nPlatforms: %s",
		displayName(rec), rec.TelegramID, rec.Country, rec.InterestsJoined(), rec.PlatformsJoined())
	for _, id := range n.adminIDs {
		if err := n.bot.SendMessage(ctx, id, text); err != nil {
			n.log.Warn().Err(err).Int64("admin_id", id).Msg("completion notice failed")
		}
	}
}
