package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"telegram-onboarding-bot/internal/domain/model"
	"telegram-onboarding-bot/internal/domain/ports/repository"
)

var _ repository.RecordRepository = (*RecordRepo)(nil)

// RecordRepo is the embedded backend. A connection is opened and closed per
// operation rather than shared, so concurrent handlers never hold the
// embedded file's write lock across operations.
type RecordRepo struct {
	path string
}

const schema = `
CREATE TABLE IF NOT EXISTS onboarding_records (
  telegram_id  INTEGER PRIMARY KEY,
  username     TEXT NOT NULL DEFAULT '',
  country      TEXT NOT NULL,
  interests    TEXT NOT NULL,
  platforms    TEXT NOT NULL,
  app_link     TEXT NOT NULL DEFAULT '',
  full_name    TEXT NOT NULL DEFAULT '',
  receipt_id   TEXT NOT NULL DEFAULT '',
  completed_at TIMESTAMP
);`

// NewRecordRepo creates parent directories, opens the database once to apply
// the schema, and returns the repo.
func NewRecordRepo(path string) (*RecordRepo, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	r := &RecordRepo{path: path}
	db, err := r.open()
	if err != nil {
		return nil, err
	}
	defer db.Close()
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return r, nil
}

func (r *RecordRepo) open() (*sql.DB, error) {
	db, err := sql.Open("sqlite3", r.path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", r.path, err)
	}
	return db, nil
}

func (r *RecordRepo) Exists(ctx context.Context, tgID int64) (bool, error) {
	db, err := r.open()
	if err != nil {
		return false, err
	}
	defer db.Close()

	var n int
	err = db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM onboarding_records WHERE telegram_id = ?`, tgID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("exists: %w", err)
	}
	return n > 0, nil
}

func (r *RecordRepo) Upsert(ctx context.Context, rec *model.UserRecord) error {
	db, err := r.open()
	if err != nil {
		return err
	}
	defer db.Close()

	_, err = db.ExecContext(ctx, `
INSERT OR REPLACE INTO onboarding_records
  (telegram_id, username, country, interests, platforms, app_link, full_name, receipt_id, completed_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.TelegramID, rec.Username, rec.Country,
		rec.InterestsJoined(), rec.PlatformsJoined(),
		rec.AppLink, rec.FullName, rec.ReceiptID, rec.CompletedAt)
	if err != nil {
		return fmt.Errorf("upsert: %w", err)
	}
	return nil
}

// Append on a keyed table is the same write as Upsert; the primary key makes
// duplicates impossible rather than the caller's problem.
func (r *RecordRepo) Append(ctx context.Context, rec *model.UserRecord) error {
	return r.Upsert(ctx, rec)
}

func (r *RecordRepo) ListAll(ctx context.Context) ([]*model.UserRecord, error) {
	db, err := r.open()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, `
SELECT telegram_id, username, country, interests, platforms, app_link, full_name, receipt_id, completed_at
  FROM onboarding_records`)
	if err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}
	defer rows.Close()

	out := make([]*model.UserRecord, 0)
	for rows.Next() {
		var rec model.UserRecord
		var interests, platforms string
		var completed sql.NullTime
		if err := rows.Scan(&rec.TelegramID, &rec.Username, &rec.Country,
			&interests, &platforms, &rec.AppLink, &rec.FullName, &rec.ReceiptID, &completed); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		rec.Interests = model.SplitTags(interests)
		rec.Platforms = model.SplitTags(platforms)
		if completed.Valid {
			rec.CompletedAt = completed.Time
		}
		out = append(out, &rec)
	}
	return out, rows.Err()
}
