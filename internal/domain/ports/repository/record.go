package repository

import (
	"context"

	"telegram-onboarding-bot/internal/domain/model"
)

// -----------------------------
// Onboarding records
// -----------------------------

// RecordRepository is the persistence port for completed onboardings. All
// backends (spreadsheet, sqlite, postgres) satisfy the same contract; backend
// quirks such as header-row bootstrapping or connection-per-call never leak
// past this interface.
type RecordRepository interface {
	// Exists reports whether a record for tgID has been durably written.
	Exists(ctx context.Context, tgID int64) (bool, error)
	// Upsert writes rec, replacing any record with the same TelegramID.
	Upsert(ctx context.Context, rec *model.UserRecord) error
	// Append writes rec unconditionally. Duplicate detection is the caller's
	// job on append-only backends.
	Append(ctx context.Context, rec *model.UserRecord) error
	// ListAll returns the current full snapshot. An empty store yields an
	// empty slice, not an error.
	ListAll(ctx context.Context) ([]*model.UserRecord, error)
}
