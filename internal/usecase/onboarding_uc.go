package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"telegram-onboarding-bot/internal/directory"
	"telegram-onboarding-bot/internal/domain"
	"telegram-onboarding-bot/internal/domain/model"
	"telegram-onboarding-bot/internal/domain/ports/adapter"
	"telegram-onboarding-bot/internal/domain/ports/repository"
	"telegram-onboarding-bot/internal/infra/logging"
	"telegram-onboarding-bot/internal/infra/metrics"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

// Compile-time check
var _ OnboardingUseCase = (*onboardingUC)(nil)

// RepeatPolicy decides what Start does for a user who already completed
// onboarding.
type RepeatPolicy string

const (
	RepeatPrompt    RepeatPolicy = "prompt"
	RepeatOverwrite RepeatPolicy = "overwrite"
	RepeatBlock     RepeatPolicy = "block"
)

// CompletionResult is returned by the final transition: the persisted record
// plus the (best-effort) role promotion outcome.
type CompletionResult struct {
	Record     *model.UserRecord
	RoleResult adapter.RoleGrantResult
}

// OnboardingUseCase is the per-user onboarding state machine. Every
// transition requires a live session for the user; a missing session yields
// domain.ErrSessionExpired and the caller tells the user to restart.
type OnboardingUseCase interface {
	Start(ctx context.Context, tgID int64, username, country string) (*model.OnboardingSession, error)
	ConfirmRepeat(ctx context.Context, tgID int64) (*model.OnboardingSession, error)
	AbortRepeat(ctx context.Context, tgID int64) error
	SubmitInterests(ctx context.Context, tgID int64, tags []string) (*model.OnboardingSession, error)
	SubmitPlatforms(ctx context.Context, tgID int64, tags []string) (*model.OnboardingSession, error)
	SubmitAppLink(ctx context.Context, tgID int64, link string) (*model.OnboardingSession, error)
	SkipAppLink(ctx context.Context, tgID int64) (*model.OnboardingSession, error)
	SubmitName(ctx context.Context, tgID int64, name string) (*CompletionResult, error)
	SkipName(ctx context.Context, tgID int64) (*CompletionResult, error)
	Cancel(ctx context.Context, tgID int64) error
	Session(ctx context.Context, tgID int64) (*model.OnboardingSession, error)
}

type onboardingUC struct {
	sessions repository.SessionRepository
	records  repository.RecordRepository
	roles    adapter.RoleGranter
	policy   RepeatPolicy
	backend  string // persistence backend name, for logs and metrics
	log      *zerolog.Logger

	// One mutex per user so a double-clicked button serializes instead of
	// racing the stage transition. Entries are never removed: deleting while a
	// waiter still holds the old mutex would let a racing call mint a second
	// one, and the map is bounded by distinct users.
	locks sync.Map // int64 -> *sync.Mutex
}

func NewOnboardingUseCase(
	sessions repository.SessionRepository,
	records repository.RecordRepository,
	roles adapter.RoleGranter,
	policy RepeatPolicy,
	backend string,
	logger *zerolog.Logger,
) *onboardingUC {
	return &onboardingUC{
		sessions: sessions,
		records:  records,
		roles:    roles,
		policy:   policy,
		backend:  backend,
		log:      logger,
	}
}

func (u *onboardingUC) lock(tgID int64) func() {
	m, _ := u.locks.LoadOrStore(tgID, &sync.Mutex{})
	mu := m.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// Start creates (or overwrites) the user's session. Under the prompt policy a
// returning user lands in StageAwaitingRepeatChoice; under block, Start fails
// with domain.ErrAlreadyOnboarded and no session is created.
func (u *onboardingUC) Start(ctx context.Context, tgID int64, username, country string) (*model.OnboardingSession, error) {
	defer logging.TraceDuration(u.log, "OnboardingUC.Start")()
	defer u.lock(tgID)()

	if !directory.IsCountry(country) {
		return nil, fmt.Errorf("unknown country %q: %w", country, domain.ErrInvalidArgument)
	}

	sess, err := model.NewOnboardingSession(tgID, username, country)
	if err != nil {
		return nil, err
	}

	if u.policy != RepeatOverwrite {
		exists, err := u.records.Exists(ctx, tgID)
		if err != nil {
			metrics.IncPersistenceFailure(u.backend, "exists")
			u.log.Error().Err(err).Int64("tg_id", tgID).Msg("exists check failed")
			return nil, fmt.Errorf("%w: %v", domain.ErrPersistenceFailure, err)
		}
		if exists {
			switch u.policy {
			case RepeatBlock:
				metrics.IncStarted("repeat_blocked")
				return nil, domain.ErrAlreadyOnboarded
			default: // RepeatPrompt
				sess.Stage = model.StageAwaitingRepeatChoice
				sess.Repeat = true
				if err := u.sessions.Set(ctx, tgID, sess); err != nil {
					return nil, err
				}
				metrics.IncStarted("repeat_prompted")
				return sess, nil
			}
		}
	}

	if err := u.sessions.Set(ctx, tgID, sess); err != nil {
		return nil, err
	}
	metrics.IncStarted("new")
	return sess, nil
}

// ConfirmRepeat resumes a prompted returning user; their eventual completion
// overwrites the old record.
func (u *onboardingUC) ConfirmRepeat(ctx context.Context, tgID int64) (*model.OnboardingSession, error) {
	defer logging.TraceDuration(u.log, "OnboardingUC.ConfirmRepeat")()
	defer u.lock(tgID)()

	sess, err := u.load(ctx, tgID, model.StageAwaitingRepeatChoice)
	if err != nil {
		return nil, err
	}
	sess.Stage = model.StageAwaitingInterests
	if err := u.sessions.Set(ctx, tgID, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

func (u *onboardingUC) AbortRepeat(ctx context.Context, tgID int64) error {
	defer logging.TraceDuration(u.log, "OnboardingUC.AbortRepeat")()
	defer u.lock(tgID)()

	if _, err := u.load(ctx, tgID, model.StageAwaitingRepeatChoice); err != nil {
		return err
	}
	metrics.IncAbandoned()
	return u.sessions.Clear(ctx, tgID)
}

func (u *onboardingUC) SubmitInterests(ctx context.Context, tgID int64, tags []string) (*model.OnboardingSession, error) {
	defer logging.TraceDuration(u.log, "OnboardingUC.SubmitInterests")()
	defer u.lock(tgID)()

	sess, err := u.load(ctx, tgID, model.StageAwaitingInterests)
	if err != nil {
		return nil, err
	}
	if len(tags) == 0 {
		return nil, fmt.Errorf("select at least one interest: %w", domain.ErrInvalidArgument)
	}
	for _, t := range tags {
		if !directory.ValidInterest(t) {
			return nil, fmt.Errorf("unknown interest %q: %w", t, domain.ErrInvalidArgument)
		}
	}
	sess.Interests = append([]string(nil), tags...)
	sess.Stage = model.StageAwaitingPlatforms
	if err := u.sessions.Set(ctx, tgID, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

func (u *onboardingUC) SubmitPlatforms(ctx context.Context, tgID int64, tags []string) (*model.OnboardingSession, error) {
	defer logging.TraceDuration(u.log, "OnboardingUC.SubmitPlatforms")()
	defer u.lock(tgID)()

	sess, err := u.load(ctx, tgID, model.StageAwaitingPlatforms)
	if err != nil {
		return nil, err
	}
	if len(tags) == 0 {
		return nil, fmt.Errorf("select at least one platform: %w", domain.ErrInvalidArgument)
	}
	for _, t := range tags {
		if !directory.ValidPlatform(t) {
			return nil, fmt.Errorf("unknown platform %q: %w", t, domain.ErrInvalidArgument)
		}
	}
	sess.Platforms = append([]string(nil), tags...)
	sess.Stage = model.StageAwaitingAppLink
	if err := u.sessions.Set(ctx, tgID, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

func (u *onboardingUC) SubmitAppLink(ctx context.Context, tgID int64, link string) (*model.OnboardingSession, error) {
	return u.appLink(ctx, tgID, link)
}

func (u *onboardingUC) SkipAppLink(ctx context.Context, tgID int64) (*model.OnboardingSession, error) {
	return u.appLink(ctx, tgID, "")
}

func (u *onboardingUC) appLink(ctx context.Context, tgID int64, link string) (*model.OnboardingSession, error) {
	defer logging.TraceDuration(u.log, "OnboardingUC.AppLink")()
	defer u.lock(tgID)()

	sess, err := u.load(ctx, tgID, model.StageAwaitingAppLink)
	if err != nil {
		return nil, err
	}
	sess.AppLink = link
	sess.Stage = model.StageAwaitingName
	if err := u.sessions.Set(ctx, tgID, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

func (u *onboardingUC) SubmitName(ctx context.Context, tgID int64, name string) (*CompletionResult, error) {
	return u.complete(ctx, tgID, name)
}

func (u *onboardingUC) SkipName(ctx context.Context, tgID int64) (*CompletionResult, error) {
	return u.complete(ctx, tgID, "")
}

// complete is the final transition: build the record, write it through the
// store, clear the session and promote the member. A failed write keeps the
// session so the same interaction can be retried without restarting the flow.
func (u *onboardingUC) complete(ctx context.Context, tgID int64, name string) (*CompletionResult, error) {
	defer logging.TraceDuration(u.log, "OnboardingUC.Complete")()
	defer u.lock(tgID)()

	sess, err := u.load(ctx, tgID, model.StageAwaitingName)
	if err != nil {
		return nil, err
	}
	sess.FullName = name

	rec, err := sess.Record()
	if err != nil {
		return nil, err
	}
	rec.ReceiptID = ulid.Make().String()
	rec.CompletedAt = time.Now().UTC()

	// Append is safe only when Start proved no prior record exists; repeat
	// sessions and the silent-overwrite policy go through the keyed write.
	if sess.Repeat || u.policy == RepeatOverwrite {
		err = u.records.Upsert(ctx, rec)
	} else {
		err = u.records.Append(ctx, rec)
	}
	if err != nil {
		metrics.IncPersistenceFailure(u.backend, "write")
		u.log.Error().Err(err).Int64("tg_id", tgID).Str("backend", u.backend).
			Msg("record write failed; session kept for retry")
		return nil, fmt.Errorf("%w: %v", domain.ErrPersistenceFailure, err)
	}

	if err := u.sessions.Clear(ctx, tgID); err != nil {
		// The record is durable; a stale session is harmless and will expire.
		u.log.Warn().Err(err).Int64("tg_id", tgID).Msg("session clear failed after completion")
	}
	metrics.IncCompleted()

	res := &CompletionResult{Record: rec, RoleResult: adapter.RoleNotConfigured}
	if u.roles != nil {
		result, err := u.roles.Grant(ctx, tgID)
		if err != nil {
			u.log.Warn().Err(err).Int64("tg_id", tgID).Msg("role grant failed")
		}
		res.RoleResult = result
		metrics.IncRoleGrant(string(result))
	}
	return res, nil
}

func (u *onboardingUC) Cancel(ctx context.Context, tgID int64) error {
	defer logging.TraceDuration(u.log, "OnboardingUC.Cancel")()
	defer u.lock(tgID)()

	if _, err := u.sessions.Get(ctx, tgID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrSessionExpired
		}
		return err
	}
	metrics.IncAbandoned()
	return u.sessions.Clear(ctx, tgID)
}

func (u *onboardingUC) Session(ctx context.Context, tgID int64) (*model.OnboardingSession, error) {
	sess, err := u.sessions.Get(ctx, tgID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrSessionExpired
		}
		return nil, err
	}
	return sess, nil
}

// load fetches the session and enforces the expected stage. Stage order
// strictly advances; a submission for any other stage is rejected.
func (u *onboardingUC) load(ctx context.Context, tgID int64, want model.Stage) (*model.OnboardingSession, error) {
	sess, err := u.sessions.Get(ctx, tgID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			metrics.IncSessionExpired()
			return nil, domain.ErrSessionExpired
		}
		return nil, err
	}
	if sess.Stage != want {
		return nil, fmt.Errorf("stage %s, want %s: %w", sess.Stage, want, domain.ErrWrongStage)
	}
	return sess, nil
}
