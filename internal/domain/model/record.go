package model

import (
	"strings"
	"time"

	"telegram-onboarding-bot/internal/domain"

	"github.com/google/uuid"
)

// UserRecord is the durable result of one completed onboarding.
// Exactly one record exists per Telegram user; TelegramID is the unique key.
type UserRecord struct {
	ID          string
	TelegramID  int64
	Username    string
	Country     string
	Interests   []string
	Platforms   []string
	AppLink     string
	FullName    string
	ReceiptID   string
	CompletedAt time.Time
}

func NewUserRecord(id string, tgID int64, username, country string) (*UserRecord, error) {
	if id == "" {
		id = uuid.NewString()
	}
	if tgID <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	if country == "" {
		return nil, domain.ErrInvalidArgument
	}
	return &UserRecord{
		ID:         id,
		TelegramID: tgID,
		Username:   username,
		Country:    country,
	}, nil
}

func (r *UserRecord) IsZero() bool { return r == nil || r.TelegramID == 0 }

// InterestsJoined and PlatformsJoined produce the comma-joined form used at
// the persistence boundary (spreadsheet cells, TEXT columns, CSV exports).
func (r *UserRecord) InterestsJoined() string { return strings.Join(r.Interests, ",") }
func (r *UserRecord) PlatformsJoined() string { return strings.Join(r.Platforms, ",") }

// SplitTags is the inverse of the joined form. Empty input yields nil rather
// than a one-element slice holding "".
func SplitTags(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
