package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors.
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Input errors, recovered by re-prompting.
	ErrorValidation = errors.New("validation error")

	// The Outline management API failed or answered with an unexpected status.
	ErrRemoteUnavailable = errors.New("remote server unavailable")
)
