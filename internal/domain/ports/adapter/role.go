package adapter

import "context"

// RoleGrantResult describes the outcome of promoting a member after
// onboarding. None of the outcomes are fatal to completion: the record is
// already saved by the time Grant runs.
type RoleGrantResult string

const (
	RoleGranted       RoleGrantResult = "granted"
	RoleAlreadyHeld   RoleGrantResult = "already_held"
	RoleNotConfigured RoleGrantResult = "not_configured"
	RoleGrantFailed   RoleGrantResult = "failed"
)

// RoleGranter promotes a user's access once onboarding completes. The
// Telegram implementation lifts the new-member restriction in the community
// chat; a noop implementation is used when no chat is configured.
type RoleGranter interface {
	Grant(ctx context.Context, tgID int64) (RoleGrantResult, error)
}
