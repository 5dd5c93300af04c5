package repository

import (
	"context"

	"telegram-onboarding-bot/internal/domain/model"
)

// SessionRepository is the port for managing in-flight onboarding state.
// Implementations expire entries after a TTL; Get reports a missing or
// expired entry as domain.ErrNotFound, which the state machine maps to
// domain.ErrSessionExpired.
type SessionRepository interface {
	Set(ctx context.Context, tgID int64, s *model.OnboardingSession) error
	Get(ctx context.Context, tgID int64) (*model.OnboardingSession, error)
	Clear(ctx context.Context, tgID int64) error
}
