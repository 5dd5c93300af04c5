//go:build !integration

package application_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"telegram-onboarding-bot/internal/application"
	"telegram-onboarding-bot/internal/domain"
	"telegram-onboarding-bot/internal/domain/model"
	"telegram-onboarding-bot/internal/domain/ports/adapter"
	"telegram-onboarding-bot/internal/infra/session"
	"telegram-onboarding-bot/internal/usecase"
)

type memRecords struct {
	mu   sync.Mutex
	byID map[int64]*model.UserRecord
}

func newMemRecords() *memRecords { return &memRecords{byID: make(map[int64]*model.UserRecord)} }

func (m *memRecords) Exists(ctx context.Context, tgID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.byID[tgID]
	return ok, nil
}

func (m *memRecords) Upsert(ctx context.Context, rec *model.UserRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[rec.TelegramID] = rec
	return nil
}

func (m *memRecords) Append(ctx context.Context, rec *model.UserRecord) error {
	return m.Upsert(ctx, rec)
}

func (m *memRecords) ListAll(ctx context.Context) ([]*model.UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.UserRecord, 0, len(m.byID))
	for _, r := range m.byID {
		out = append(out, r)
	}
	return out, nil
}

type grantAll struct{}

func (grantAll) Grant(ctx context.Context, tgID int64) (adapter.RoleGrantResult, error) {
	return adapter.RoleGranted, nil
}

// captureBot records outbound sends for assertions.
type captureBot struct {
	mu   sync.Mutex
	sent []string
}

func (c *captureBot) SendMessage(ctx context.Context, tgID int64, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, text)
	return nil
}

func (c *captureBot) SendButtons(ctx context.Context, tgID int64, text string, rows [][]adapter.InlineButton) error {
	return c.SendMessage(ctx, tgID, text)
}

func (c *captureBot) SendDocument(ctx context.Context, tgID int64, filename string, data []byte, caption string) error {
	return nil
}

func newFacade() (*application.BotFacade, *captureBot) {
	l := zerolog.Nop()
	records := newMemRecords()
	sessions := session.NewMemoryRepo(time.Minute)
	bot := &captureBot{}
	onbUC := usecase.NewOnboardingUseCase(sessions, records, grantAll{}, usecase.RepeatPrompt, "memory", &l)
	adminUC := usecase.NewAdminUseCase(records, &l)
	notifier := usecase.NewAdminNotifier(bot, []int64{1000}, &l)
	return application.NewBotFacade(onbUC, adminUC, notifier), bot
}

func TestBotFacade_FullFlow(t *testing.T) {
	ctx := context.Background()
	f, bot := newFacade()
	const tgID int64 = 99

	reply, err := f.HandleStart(ctx, tgID, "alice", "Canada")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if reply.Stage != model.StageAwaitingInterests || !strings.Contains(reply.Text, "Canada") {
		t.Fatalf("unexpected start reply: %+v", reply)
	}

	reply, err = f.HandleInterests(ctx, tgID, []string{"feedback"})
	if err != nil {
		t.Fatalf("interests: %v", err)
	}
	if reply.Stage != model.StageAwaitingPlatforms {
		t.Fatalf("unexpected stage: %s", reply.Stage)
	}

	reply, err = f.HandlePlatforms(ctx, tgID, []string{"Unity"})
	if err != nil {
		t.Fatalf("platforms: %v", err)
	}
	if reply.Stage != model.StageAwaitingAppLink {
		t.Fatalf("unexpected stage: %s", reply.Stage)
	}

	if _, err = f.HandleAppLink(ctx, tgID, "https://apps.example.com/1", false); err != nil {
		t.Fatalf("app link: %v", err)
	}
	reply, err = f.HandleName(ctx, tgID, "", true)
	if err != nil {
		t.Fatalf("name: %v", err)
	}
	if !strings.Contains(reply.Text, "complete") || !strings.Contains(reply.Text, "Member") {
		t.Errorf("completion message missing role note: %q", reply.Text)
	}
	if len(bot.sent) != 1 || !strings.Contains(bot.sent[0], "New onboarding completed") {
		t.Errorf("expected one admin notice, got %v", bot.sent)
	}

	// Second run lands in the repeat-choice branch.
	reply, err = f.HandleStart(ctx, tgID, "alice", "Iceland")
	if err != nil {
		t.Fatalf("restart: %v", err)
	}
	if reply.Stage != model.StageAwaitingRepeatChoice {
		t.Fatalf("expected repeat prompt, got %+v", reply)
	}
}

func TestBotFacade_ExpiredSessionMessage(t *testing.T) {
	ctx := context.Background()
	f, _ := newFacade()

	reply, err := f.HandleInterests(ctx, 7, []string{"feedback"})
	if err == nil || !strings.Contains(reply.Text, "session has expired") {
		t.Fatalf("expected expiry message, got %+v (%v)", reply, err)
	}
	if _, err := f.Stage(ctx, 7); err != domain.ErrSessionExpired {
		t.Fatalf("expected ErrSessionExpired from Stage, got %v", err)
	}
}

func TestBotFacade_Export(t *testing.T) {
	ctx := context.Background()
	f, _ := newFacade()
	const tgID int64 = 5

	if _, err := f.HandleStart(ctx, tgID, "bob", "Japan"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := f.HandleInterests(ctx, tgID, []string{"promote"}); err != nil {
		t.Fatalf("interests: %v", err)
	}
	if _, err := f.HandlePlatforms(ctx, tgID, []string{"Flutter"}); err != nil {
		t.Fatalf("platforms: %v", err)
	}
	if _, err := f.HandleAppLink(ctx, tgID, "", true); err != nil {
		t.Fatalf("skip link: %v", err)
	}
	if _, err := f.HandleName(ctx, tgID, "Bob", false); err != nil {
		t.Fatalf("name: %v", err)
	}

	summary, csvData, err := f.HandleExport(ctx)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if !strings.Contains(summary, "Completed onboardings: 1") {
		t.Errorf("unexpected summary: %q", summary)
	}
	if !strings.Contains(string(csvData), "Japan") {
		t.Errorf("export missing record data")
	}
}
