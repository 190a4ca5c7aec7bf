package storage

import "errors"

// Common storage errors
var (
	// ErrUserNotFound indicates that user was not found in storage
	ErrUserNotFound = errors.New("user not found")

	// ErrUserExists indicates that user with this username already exists
	ErrUserExists = errors.New("user already exists")

	// ErrUUIDTaken indicates that the generated credential UUID collided
	// with another user's UUID
	ErrUUIDTaken = errors.New("uuid already taken")

	// ErrDuplicatedPlanID indicates that a plan history row with this
	// idempotency id was already recorded
	ErrDuplicatedPlanID = errors.New("duplicated plan id")
)
