package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrSessionExpired     = errors.New("onboarding session expired")
	ErrAlreadyOnboarded   = errors.New("user already completed onboarding")
	ErrPersistenceFailure = errors.New("persistence backend failure")
	ErrRoleGrant          = errors.New("role grant failed")
	ErrWrongStage         = errors.New("submission does not match current stage")
)
