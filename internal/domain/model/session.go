package model

import (
	"time"

	"telegram-onboarding-bot/internal/domain"
)

// Stage is the current step within the onboarding sequence.
type Stage string

const (
	// StageAwaitingRepeatChoice is the continue-or-abort branch entered when a
	// returning user starts onboarding under the "prompt" repeat policy.
	StageAwaitingRepeatChoice Stage = "awaiting_repeat_choice"
	StageAwaitingInterests    Stage = "awaiting_interests"
	StageAwaitingPlatforms    Stage = "awaiting_platforms"
	StageAwaitingAppLink      Stage = "awaiting_app_link"
	StageAwaitingName         Stage = "awaiting_name"
	StageComplete             Stage = "complete"
)

// OnboardingSession holds one user's in-flight answers. Sessions are
// transient: created by Start, mutated one stage at a time, removed once the
// record is durably written (or left to expire on abandonment).
type OnboardingSession struct {
	TelegramID int64     `json:"telegram_id"`
	Username   string    `json:"username"`
	Country    string    `json:"country"`
	Interests  []string  `json:"interests"`
	Platforms  []string  `json:"platforms"`
	AppLink    string    `json:"app_link"`
	FullName   string    `json:"full_name"`
	Stage      Stage     `json:"stage"`
	// Repeat marks a returning user's session; completion then overwrites the
	// prior record instead of appending.
	Repeat    bool      `json:"repeat"`
	StartedAt time.Time `json:"started_at"`
}

func NewOnboardingSession(tgID int64, username, country string) (*OnboardingSession, error) {
	if tgID <= 0 || country == "" {
		return nil, domain.ErrInvalidArgument
	}
	return &OnboardingSession{
		TelegramID: tgID,
		Username:   username,
		Country:    country,
		Stage:      StageAwaitingInterests,
		StartedAt:  time.Now(),
	}, nil
}

// Record converts the finished session into its durable form. Callers assign
// ReceiptID and CompletedAt at the moment of persistence.
func (s *OnboardingSession) Record() (*UserRecord, error) {
	rec, err := NewUserRecord("", s.TelegramID, s.Username, s.Country)
	if err != nil {
		return nil, err
	}
	rec.Interests = append([]string(nil), s.Interests...)
	rec.Platforms = append([]string(nil), s.Platforms...)
	rec.AppLink = s.AppLink
	rec.FullName = s.FullName
	return rec, nil
}
