//go:build !integration

package redis_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"telegram-onboarding-bot/internal/domain"
	"telegram-onboarding-bot/internal/domain/model"
	red "telegram-onboarding-bot/internal/infra/redis"
)

// fakeRedis implements red.RedisClient over a plain map, recording the TTL
// passed to Set.
type fakeRedis struct {
	mu      sync.Mutex
	store   map[string]string
	lastTTL time.Duration
}

func newFakeRedis() *fakeRedis { return &fakeRedis{store: make(map[string]string)} }

func (f *fakeRedis) Ping(ctx context.Context) error { return nil }

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.store[key] = fmt.Sprintf("%s", value)
	f.lastTTL = expiration
	return nil
}

func (f *fakeRedis) Get(ctx context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.store[key]
	if !ok {
		return "", goredis.Nil
	}
	return v, nil
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		delete(f.store, k)
	}
	return nil
}

func (f *fakeRedis) Close() error { return nil }

func TestSessionRepo(t *testing.T) {
	ctx := context.Background()

	t.Run("round-trip preserves all fields", func(t *testing.T) {
		client := newFakeRedis()
		repo := red.NewSessionRepo(client, 15*time.Minute)

		sess, err := model.NewOnboardingSession(42, "alice", "Canada")
		if err != nil {
			t.Fatalf("new session: %v", err)
		}
		sess.Interests = []string{"feedback", "network"}
		sess.Stage = model.StageAwaitingPlatforms
		sess.Repeat = true

		if err := repo.Set(ctx, 42, sess); err != nil {
			t.Fatalf("set: %v", err)
		}
		if client.lastTTL != 15*time.Minute {
			t.Errorf("expected 15m ttl on the key, got %v", client.lastTTL)
		}

		got, err := repo.Get(ctx, 42)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.TelegramID != 42 || got.Country != "Canada" || got.Stage != model.StageAwaitingPlatforms {
			t.Errorf("round-trip mismatch: %+v", got)
		}
		if !got.Repeat || len(got.Interests) != 2 || got.Interests[0] != "feedback" {
			t.Errorf("fields lost in transit: %+v", got)
		}
	})

	t.Run("missing key yields ErrNotFound", func(t *testing.T) {
		repo := red.NewSessionRepo(newFakeRedis(), time.Minute)
		if _, err := repo.Get(ctx, 7); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("clear removes the key", func(t *testing.T) {
		client := newFakeRedis()
		repo := red.NewSessionRepo(client, time.Minute)

		sess, _ := model.NewOnboardingSession(42, "alice", "Canada")
		_ = repo.Set(ctx, 42, sess)
		if err := repo.Clear(ctx, 42); err != nil {
			t.Fatalf("clear: %v", err)
		}
		if _, err := repo.Get(ctx, 42); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound after clear, got %v", err)
		}
	})
}
