package application

import (
	"context"
	"errors"
	"fmt"

	"telegram-onboarding-bot/internal/domain"
	"telegram-onboarding-bot/internal/domain/model"
	"telegram-onboarding-bot/internal/domain/ports/adapter"
	"telegram-onboarding-bot/internal/usecase"
)

// FlowReply is what the chat adapter needs to answer one interaction: the
// text to send and the stage to render controls for. Stage is empty once the
// flow is finished or aborted.
type FlowReply struct {
	Text  string
	Stage model.Stage
}

// BotFacade composes usecases into high-level bot replies. Keeping the
// methods returning plain reply values means the Telegram adapter just
// renders them; no domain error ever reaches the chat unmapped.
type BotFacade struct {
	OnboardingUC usecase.OnboardingUseCase
	AdminUC      usecase.AdminUseCase
	Notifier     usecase.NotifierUseCase // optional
}

func NewBotFacade(onboardingUC usecase.OnboardingUseCase, adminUC usecase.AdminUseCase, notifier usecase.NotifierUseCase) *BotFacade {
	return &BotFacade{OnboardingUC: onboardingUC, AdminUC: adminUC, Notifier: notifier}
}

const (
	msgSessionExpired = "Your session has expired. Please restart the onboarding process with /onboarding."
	msgSaveFailed     = "There was an error saving your information. Please try again or contact an administrator."
	msgWrongStage     = "That step was already answered. Use the controls of the latest message, or /onboarding to restart."
)

// HandleStart begins (or restarts) the flow for one user.
func (b *BotFacade) HandleStart(ctx context.Context, tgID int64, username, country string) (*FlowReply, error) {
	sess, err := b.OnboardingUC.Start(ctx, tgID, username, country)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrAlreadyOnboarded):
			return &FlowReply{Text: "You have already completed the onboarding process."}, err
		case errors.Is(err, domain.ErrInvalidArgument):
			return &FlowReply{Text: "I don't recognize that country. Type /onboarding followed by part of its name and pick a match."}, err
		default:
			return &FlowReply{Text: msgSaveFailed}, err
		}
	}
	if sess.Stage == model.StageAwaitingRepeatChoice {
		return &FlowReply{
			Text:  "You have already completed the onboarding process. Would you like to continue and update your information?",
			Stage: sess.Stage,
		}, nil
	}
	return &FlowReply{
		Text:  fmt.Sprintf("You selected %s. Now, what are you interested in? (Select all that apply, then press Done)", sess.Country),
		Stage: sess.Stage,
	}, nil
}

// HandleRepeatChoice resolves the continue-or-abort branch.
func (b *BotFacade) HandleRepeatChoice(ctx context.Context, tgID int64, proceed bool) (*FlowReply, error) {
	if !proceed {
		if err := b.OnboardingUC.AbortRepeat(ctx, tgID); err != nil {
			return b.flowError(err)
		}
		return &FlowReply{Text: "No problem, your existing information is unchanged."}, nil
	}
	sess, err := b.OnboardingUC.ConfirmRepeat(ctx, tgID)
	if err != nil {
		return b.flowError(err)
	}
	return &FlowReply{
		Text:  fmt.Sprintf("You selected %s. Now, what are you interested in? (Select all that apply, then press Done)", sess.Country),
		Stage: sess.Stage,
	}, nil
}

func (b *BotFacade) HandleInterests(ctx context.Context, tgID int64, tags []string) (*FlowReply, error) {
	sess, err := b.OnboardingUC.SubmitInterests(ctx, tgID, tags)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) {
			return &FlowReply{Text: "Select at least one interest, then press Done.", Stage: model.StageAwaitingInterests}, err
		}
		return b.flowError(err)
	}
	return &FlowReply{
		Text:  "Saved your interests. Now, what platforms are you working with?",
		Stage: sess.Stage,
	}, nil
}

func (b *BotFacade) HandlePlatforms(ctx context.Context, tgID int64, tags []string) (*FlowReply, error) {
	sess, err := b.OnboardingUC.SubmitPlatforms(ctx, tgID, tags)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) {
			return &FlowReply{Text: "Select at least one platform, then press Done.", Stage: model.StageAwaitingPlatforms}, err
		}
		return b.flowError(err)
	}
	return &FlowReply{
		Text:  "Saved your platform choices. Would you like to share a link to your published app (optional)?",
		Stage: sess.Stage,
	}, nil
}

func (b *BotFacade) HandleAppLink(ctx context.Context, tgID int64, link string, skipped bool) (*FlowReply, error) {
	var (
		sess *model.OnboardingSession
		err  error
	)
	if skipped {
		sess, err = b.OnboardingUC.SkipAppLink(ctx, tgID)
	} else {
		sess, err = b.OnboardingUC.SubmitAppLink(ctx, tgID, link)
	}
	if err != nil {
		return b.flowError(err)
	}
	return &FlowReply{
		Text:  "Would you like to share your full name (optional)?",
		Stage: sess.Stage,
	}, nil
}

func (b *BotFacade) HandleName(ctx context.Context, tgID int64, name string, skipped bool) (*FlowReply, error) {
	var (
		res *usecase.CompletionResult
		err error
	)
	if skipped {
		res, err = b.OnboardingUC.SkipName(ctx, tgID)
	} else {
		res, err = b.OnboardingUC.SubmitName(ctx, tgID, name)
	}
	if err != nil {
		return b.flowError(err)
	}

	if b.Notifier != nil {
		b.Notifier.NotifyCompletion(ctx, res.Record)
	}

	text := "Your onboarding is complete!\nThank you for sharing your information."
	if res.RoleResult == adapter.RoleGranted {
		text += "\nYour role has been updated from Guest to Member."
	}
	return &FlowReply{Text: text}, nil
}

func (b *BotFacade) HandleCancel(ctx context.Context, tgID int64) (*FlowReply, error) {
	if err := b.OnboardingUC.Cancel(ctx, tgID); err != nil {
		if errors.Is(err, domain.ErrSessionExpired) {
			return &FlowReply{Text: "Nothing to cancel; you have no onboarding in progress."}, nil
		}
		return b.flowError(err)
	}
	return &FlowReply{Text: "Onboarding canceled. Start again anytime with /onboarding."}, nil
}

// Stage reports the user's current step so the adapter can interpret free
// text replies (app link, full name) without keeping its own state.
func (b *BotFacade) Stage(ctx context.Context, tgID int64) (model.Stage, error) {
	sess, err := b.OnboardingUC.Session(ctx, tgID)
	if err != nil {
		return "", err
	}
	return sess.Stage, nil
}

// HandleExport renders the admin summary plus the CSV attachment.
func (b *BotFacade) HandleExport(ctx context.Context) (summary string, csvData []byte, err error) {
	summary, err = b.AdminUC.Summary(ctx)
	if err != nil {
		return "", nil, fmt.Errorf("summary: %w", err)
	}
	csvData, err = b.AdminUC.ExportCSV(ctx)
	if err != nil {
		return "", nil, fmt.Errorf("export: %w", err)
	}
	return summary, csvData, nil
}

// flowError maps domain failures to user-facing text. The original error is
// returned alongside for the adapter to log.
func (b *BotFacade) flowError(err error) (*FlowReply, error) {
	switch {
	case errors.Is(err, domain.ErrSessionExpired):
		return &FlowReply{Text: msgSessionExpired}, err
	case errors.Is(err, domain.ErrWrongStage):
		return &FlowReply{Text: msgWrongStage}, err
	case errors.Is(err, domain.ErrPersistenceFailure):
		return &FlowReply{Text: msgSaveFailed}, err
	default:
		return &FlowReply{Text: msgSaveFailed}, err
	}
}
