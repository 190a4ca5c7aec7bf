package storage

import (
	"context"
	"time"

	"github.com/iudanet/proxyhub/internal/models"
)

// PlanChange describes a primary plan update. Nil pointer fields clear
// the corresponding restriction. StartDate is expected in UTC truncated
// to whole seconds, Duration in whole seconds.
type PlanChange struct {
	ID            *int64     // idempotency id recorded in the history table
	StartDate     *time.Time // начало плана, nil = без ограничения по времени
	Duration      *int64     // длительность в секундах
	Traffic       *int64     // лимит трафика в байтах, nil = без ограничения
	PreserveUsage bool       // сохранить накопленный plan_traffic_usage
}

// ExtraTrafficChange describes an extra traffic grant. A nil ExtraTraffic
// resets the extra allowance to zero.
type ExtraTrafficChange struct {
	ID           *int64 // idempotency id recorded in the history table
	ExtraTraffic *int64 // байты, добавляемые к дополнительному лимиту
}

// TrafficDelta holds one increment of the four per-user traffic counters.
// All values are byte counts, never negative.
type TrafficDelta struct {
	TrafficUsage      int64
	ExtraTrafficUsage int64
	Upload            int64
	Download          int64
}

// UserStorage defines interface for the users/history ledger persistence
type UserStorage interface {
	// CreateUser inserts a new user row.
	// Returns ErrUserExists when the username is taken and
	// ErrUUIDTaken when the credential UUID collides.
	CreateUser(ctx context.Context, creds models.Credentials, createdAt time.Time) error

	// DeleteUser deletes user by username.
	// Returns ErrUserNotFound if user doesn't exist.
	DeleteUser(ctx context.Context, username string) error

	// UserExists reports whether a user row exists.
	UserExists(ctx context.Context, username string) (bool, error)

	// CredentialsExist reports whether a row matches both username and UUID.
	CredentialsExist(ctx context.Context, creds models.Credentials) (bool, error)

	// GetCredentials retrieves the user's credentials.
	// Returns ErrUserNotFound if user doesn't exist.
	GetCredentials(ctx context.Context, username string) (*models.Credentials, error)

	// GetPlan retrieves the user's current plan.
	// Returns ErrUserNotFound if user doesn't exist.
	GetPlan(ctx context.Context, username string) (*models.Plan, error)

	// SetPlan records the change in the history table and updates the
	// live plan row in one transaction. The unused extra traffic balance
	// is carried into the new plan generation.
	// Returns ErrDuplicatedPlanID if the history id was already used and
	// ErrUserNotFound if user doesn't exist.
	SetPlan(ctx context.Context, username string, now time.Time, change PlanChange) error

	// SetExtraTraffic records the change in the history table and rolls
	// the unused extra balance into the new grant in one transaction.
	// Returns ErrDuplicatedPlanID if the history id was already used and
	// ErrUserNotFound if user doesn't exist.
	SetExtraTraffic(ctx context.Context, username string, now time.Time, change ExtraTrafficChange) error

	// AddTraffic atomically increments the four traffic counters.
	AddTraffic(ctx context.Context, username string, delta TrafficDelta) error

	// GetTotalTraffic retrieves the cumulative upload/download counters.
	// Returns ErrUserNotFound if user doesn't exist.
	GetTotalTraffic(ctx context.Context, username string) (*models.Traffic, error)

	// ResetTotalTraffic zeroes the cumulative upload/download counters.
	// Returns ErrUserNotFound if user doesn't exist.
	ResetTotalTraffic(ctx context.Context, username string) error

	// ListUsers returns all user rows with their plans, ordered by username.
	ListUsers(ctx context.Context) ([]models.User, error)

	// Usernames returns all usernames ordered alphabetically.
	Usernames(ctx context.Context) ([]string, error)

	// CountUsers returns the total number of user rows.
	CountUsers(ctx context.Context) (int, error)
}
