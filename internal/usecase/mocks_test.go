//go:build !integration

package usecase_test

import (
	"context"
	"sync"

	"telegram-onboarding-bot/internal/domain"
	"telegram-onboarding-bot/internal/domain/model"
	"telegram-onboarding-bot/internal/domain/ports/adapter"

	"github.com/rs/zerolog"
)

func newTestLogger() *zerolog.Logger { l := zerolog.Nop(); return &l }

// memSessionRepo is a small in-memory SessionRepository used by unit tests.
type memSessionRepo struct {
	mu    sync.RWMutex
	store map[int64]*model.OnboardingSession
}

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{store: make(map[int64]*model.OnboardingSession)}
}

func (m *memSessionRepo) Set(ctx context.Context, tgID int64, s *model.OnboardingSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.store[tgID] = &cp
	return nil
}

func (m *memSessionRepo) Get(ctx context.Context, tgID int64) (*model.OnboardingSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.store[tgID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memSessionRepo) Clear(ctx context.Context, tgID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.store, tgID)
	return nil
}

// memRecordRepo keeps records in memory and counts raw appends so tests can
// detect duplicate writes. writeErr simulates a backend outage.
type memRecordRepo struct {
	mu       sync.RWMutex
	byID     map[int64]*model.UserRecord
	appends  int
	writeErr error
}

func newMemRecordRepo() *memRecordRepo {
	return &memRecordRepo{byID: make(map[int64]*model.UserRecord)}
}

func (m *memRecordRepo) Exists(ctx context.Context, tgID int64) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.byID[tgID]
	return ok, nil
}

func (m *memRecordRepo) Upsert(ctx context.Context, rec *model.UserRecord) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *rec
	m.byID[rec.TelegramID] = &cp
	return nil
}

func (m *memRecordRepo) Append(ctx context.Context, rec *model.UserRecord) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *rec
	m.byID[rec.TelegramID] = &cp
	m.appends++
	return nil
}

func (m *memRecordRepo) ListAll(ctx context.Context) ([]*model.UserRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*model.UserRecord, 0, len(m.byID))
	for _, r := range m.byID {
		cp := *r
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memRecordRepo) count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byID)
}

// fakeRoleGranter records grant calls and returns a scripted outcome.
type fakeRoleGranter struct {
	mu     sync.Mutex
	calls  []int64
	result adapter.RoleGrantResult
	err    error
}

func newFakeRoleGranter(result adapter.RoleGrantResult) *fakeRoleGranter {
	return &fakeRoleGranter{result: result}
}

func (f *fakeRoleGranter) Grant(ctx context.Context, tgID int64) (adapter.RoleGrantResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, tgID)
	return f.result, f.err
}

func (f *fakeRoleGranter) granted() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}
