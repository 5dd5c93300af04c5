package telegram

import (
	"context"
	"log"

	"telegram-onboarding-bot/internal/domain/ports/adapter"
)

var _ adapter.TelegramBotAdapter = (*NoopBotAdapter)(nil)

// NoopBotAdapter implements adapter.TelegramBotAdapter for local/dev testing.
// It logs outgoing traffic instead of talking to Telegram.
type NoopBotAdapter struct {
}

// NewNoopBotAdapter constructs the noop adapter.
func NewNoopBotAdapter() *NoopBotAdapter {
	return &NoopBotAdapter{}
}

func (b *NoopBotAdapter) SendMessage(ctx context.Context, tgID int64, text string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	log.Printf("[noop-telegram] To user %d: %s\n", tgID, text)
	return nil
}

func (b *NoopBotAdapter) SendButtons(ctx context.Context, tgID int64, text string, rows [][]adapter.InlineButton) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	log.Printf("[noop-telegram] To user %d: %s (%d button rows)\n", tgID, text, len(rows))
	return nil
}

func (b *NoopBotAdapter) SendDocument(ctx context.Context, tgID int64, filename string, data []byte, caption string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	log.Printf("[noop-telegram] To user %d: document %s (%d bytes)\n", tgID, filename, len(data))
	return nil
}
