package service

import "errors"

var (
	ErrEntryNotFound         = errors.New("entry not found")
	ErrVoteNotFound          = errors.New("vote not found")
	ErrInvalidSubmission     = errors.New("invalid submission")
	ErrSubmitFailed          = errors.New("failed to submit vote")
	ErrValidationUnavailable = errors.New("vote checks unavailable")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrInvalidWebhook        = errors.New("invalid webhook secret")
)
