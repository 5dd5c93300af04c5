package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"telegram-onboarding-bot/internal/domain"
	"telegram-onboarding-bot/internal/domain/model"
	"telegram-onboarding-bot/internal/domain/ports/repository"

	"github.com/go-redis/redis/v8"
)

// Ensure the adapter implements the port interface.
var _ repository.SessionRepository = (*SessionRepo)(nil)

// SessionRepo manages in-flight onboarding sessions in Redis. TTL-based
// expiry comes for free with key expiry, so abandoned flows clean themselves
// up.
type SessionRepo struct {
	client RedisClient
	ttl    time.Duration
}

func NewSessionRepo(client RedisClient, ttl time.Duration) *SessionRepo {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &SessionRepo{client: client, ttl: ttl}
}

func (s *SessionRepo) sessionKey(tgID int64) string {
	return fmt.Sprintf("onb_state:%d", tgID)
}

func (s *SessionRepo) Set(ctx context.Context, tgID int64, sess *model.OnboardingSession) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.sessionKey(tgID), data, s.ttl)
}

func (s *SessionRepo) Get(ctx context.Context, tgID int64) (*model.OnboardingSession, error) {
	data, err := s.client.Get(ctx, s.sessionKey(tgID))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	var sess model.OnboardingSession
	if err := json.Unmarshal([]byte(data), &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *SessionRepo) Clear(ctx context.Context, tgID int64) error {
	return s.client.Del(ctx, s.sessionKey(tgID))
}
