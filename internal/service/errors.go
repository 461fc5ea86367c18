package service

import "errors"

// Domain errors. Handlers map each of these to a response.ErrCode; anything
// else is an internal failure.
var (
	ErrNotFound         = errors.New("resource not found")
	ErrForbidden        = errors.New("forbidden")
	ErrAlreadyAttempted = errors.New("exam already attempted")
	ErrAlreadySubmitted = errors.New("attempt already submitted")
	ErrNotStarted       = errors.New("attempt not started")
	ErrExamNotAvailable = errors.New("exam is not available")
	ErrNotYetCompleted  = errors.New("attempt not yet completed")
	ErrInvalidSchedule  = errors.New("exam end time must be after start time")
	ErrDuplicateUser    = errors.New("username already taken")

	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrSessionInvalidated = errors.New("session invalidated")
)
