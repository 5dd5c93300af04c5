package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS onboarding_records (
  telegram_id  BIGINT PRIMARY KEY,
  username     TEXT NOT NULL DEFAULT '',
  country      TEXT NOT NULL,
  interests    TEXT NOT NULL,
  platforms    TEXT NOT NULL,
  app_link     TEXT NOT NULL DEFAULT '',
  full_name    TEXT NOT NULL DEFAULT '',
  receipt_id   TEXT NOT NULL DEFAULT '',
  completed_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`

// NewPgxPool connects, verifies the connection and applies the schema.
func NewPgxPool(ctx context.Context, url string, maxConns int32) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse postgres url: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	pool, err := pgxpool.ConnectConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return pool, nil
}
