package services

import "errors"

var (
	// ErrUserNotFound is returned when an operation names a user that was never seen
	ErrUserNotFound = errors.New("user not found")

	// ErrInvalidUser is returned when a session is requested without a stable identity
	ErrInvalidUser = errors.New("user id is required")

	// ErrInvalidScore is returned for scores outside [0, max]
	ErrInvalidScore = errors.New("invalid score")
)
