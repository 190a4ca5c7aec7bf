package users

import "errors"

// Service-level failure taxonomy. Storage-detected failures
// (storage.ErrUserNotFound, storage.ErrUserExists,
// storage.ErrDuplicatedPlanID) and validation.ErrInvalidUsername pass
// through unchanged, so every failure kind stays distinguishable with
// errors.Is.
var (
	// ErrUsersCapacity indicates the configured max_users limit is reached
	ErrUsersCapacity = errors.New("users capacity limit reached")

	// ErrActiveUsersCapacity indicates the configured max_active_users
	// limit is reached
	ErrActiveUsersCapacity = errors.New("active users capacity limit reached")

	// ErrUUIDOverlap indicates that generated UUIDs kept colliding with
	// existing ones; practically unreachable, but handled rather than
	// assumed impossible
	ErrUUIDOverlap = errors.New("uuid overlap")

	// ErrNoTrafficLimit indicates an extra traffic grant for a plan
	// without a primary traffic limit
	ErrNoTrafficLimit = errors.New("plan has no traffic limit")

	// ErrInvalidArgument indicates malformed plan parameters
	ErrInvalidArgument = errors.New("invalid argument")
)
