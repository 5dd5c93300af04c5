package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-onboarding-bot/internal/domain/model"
	"telegram-onboarding-bot/internal/domain/ports/repository"
)

var _ repository.RecordRepository = (*RecordRepo)(nil)

type RecordRepo struct {
	pool *pgxpool.Pool
}

func NewRecordRepo(pool *pgxpool.Pool) *RecordRepo {
	return &RecordRepo{pool: pool}
}

func (r *RecordRepo) Exists(ctx context.Context, tgID int64) (bool, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM onboarding_records WHERE telegram_id=$1;`, tgID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("exists: %w", err)
	}
	return n > 0, nil
}

func (r *RecordRepo) Upsert(ctx context.Context, rec *model.UserRecord) error {
	const q = `
INSERT INTO onboarding_records (
  telegram_id, username, country, interests, platforms, app_link, full_name, receipt_id, completed_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9
) ON CONFLICT (telegram_id) DO UPDATE SET
  username=$2, country=$3, interests=$4, platforms=$5,
  app_link=$6, full_name=$7, receipt_id=$8, completed_at=$9;
`
	_, err := r.pool.Exec(ctx, q,
		rec.TelegramID, rec.Username, rec.Country,
		rec.InterestsJoined(), rec.PlatformsJoined(),
		rec.AppLink, rec.FullName, rec.ReceiptID, rec.CompletedAt)
	if err != nil {
		return fmt.Errorf("upsert: %w", err)
	}
	return nil
}

// Append is the same keyed write; the primary key rules out duplicates.
func (r *RecordRepo) Append(ctx context.Context, rec *model.UserRecord) error {
	return r.Upsert(ctx, rec)
}

func (r *RecordRepo) ListAll(ctx context.Context) ([]*model.UserRecord, error) {
	rows, err := r.pool.Query(ctx, `
SELECT telegram_id, username, country, interests, platforms, app_link, full_name, receipt_id, completed_at
  FROM onboarding_records;`)
	if err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}
	defer rows.Close()

	out := make([]*model.UserRecord, 0)
	for rows.Next() {
		var rec model.UserRecord
		var interests, platforms string
		if err := rows.Scan(&rec.TelegramID, &rec.Username, &rec.Country,
			&interests, &platforms, &rec.AppLink, &rec.FullName, &rec.ReceiptID, &rec.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		rec.Interests = model.SplitTags(interests)
		rec.Platforms = model.SplitTags(platforms)
		out = append(out, &rec)
	}
	return out, rows.Err()
}
