package session

import (
	"context"
	"sync"
	"time"

	"telegram-onboarding-bot/internal/domain"
	"telegram-onboarding-bot/internal/domain/model"
	"telegram-onboarding-bot/internal/domain/ports/repository"
)

var _ repository.SessionRepository = (*MemoryRepo)(nil)

type entry struct {
	session  *model.OnboardingSession
	deadline time.Time
}

// MemoryRepo keeps in-flight onboarding sessions in a guarded map. Entries
// expire after the TTL; expiry is checked lazily on Get and swept by a
// background ticker so abandoned sessions do not accumulate.
type MemoryRepo struct {
	mu    sync.RWMutex
	items map[int64]entry
	ttl   time.Duration
}

func NewMemoryRepo(ttl time.Duration) *MemoryRepo {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &MemoryRepo{
		items: make(map[int64]entry),
		ttl:   ttl,
	}
}

// StartSweeper runs a periodic cleanup until ctx is canceled.
func (m *MemoryRepo) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			m.mu.Lock()
			for id, e := range m.items {
				if now.After(e.deadline) {
					delete(m.items, id)
				}
			}
			m.mu.Unlock()
		}
	}
}

func (m *MemoryRepo) Set(ctx context.Context, tgID int64, s *model.OnboardingSession) error {
	if s == nil {
		return domain.ErrInvalidArgument
	}
	cp := *s
	m.mu.Lock()
	m.items[tgID] = entry{session: &cp, deadline: time.Now().Add(m.ttl)}
	m.mu.Unlock()
	return nil
}

func (m *MemoryRepo) Get(ctx context.Context, tgID int64) (*model.OnboardingSession, error) {
	m.mu.RLock()
	e, ok := m.items[tgID]
	m.mu.RUnlock()
	if !ok {
		return nil, domain.ErrNotFound
	}
	if time.Now().After(e.deadline) {
		m.mu.Lock()
		delete(m.items, tgID)
		m.mu.Unlock()
		return nil, domain.ErrNotFound
	}
	cp := *e.session
	return &cp, nil
}

func (m *MemoryRepo) Clear(ctx context.Context, tgID int64) error {
	m.mu.Lock()
	delete(m.items, tgID)
	m.mu.Unlock()
	return nil
}
